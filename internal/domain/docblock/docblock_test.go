package docblock

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/corey/jsig/internal/ports"
)

func TestParseDocblock_FlowVariants(t *testing.T) {
	cases := []struct {
		name    string
		content string
		flow    ports.FlowPragma
		strict  bool
	}{
		{"line comment", "// @flow\nconst x = 1;", ports.FlowOptIn, false},
		{"block comment", "/* @flow */\nconst x = 1;", ports.FlowOptIn, false},
		{"strict", "// @flow strict\n", ports.FlowOptInStrict, true},
		{"strict local", "/**\n * @flow strict-local\n */\n", ports.FlowOptInStrictLocal, true},
		{"noflow", "// @noflow\n", ports.FlowOptOut, false},
		{"absent", "const x = 1; // @flow too late", ports.FlowNone, false},
		{"after code", "const x = 1;\n// @flow\n", ports.FlowNone, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			errs, db := New().ParseDocblock([]byte(tc.content), 10)
			assert.Empty(t, errs)
			assert.Equal(t, tc.flow, db.Flow)
			assert.Equal(t, tc.strict, db.IsStrict)
		})
	}
}

func TestParseDocblock_DuplicatePragma(t *testing.T) {
	errs, db := New().ParseDocblock([]byte("// @flow\n// @noflow\n"), 10)
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0].Msg, "duplicate @flow")
	assert.Equal(t, 2, errs[0].Loc.Line)
	// First pragma wins.
	assert.Equal(t, ports.FlowOptIn, db.Flow)
}

func TestParseDocblock_ProvidesModule(t *testing.T) {
	errs, db := New().ParseDocblock([]byte("/**\n * @providesModule Banana\n * @flow\n */\n"), 10)
	assert.Empty(t, errs)
	assert.Equal(t, "Banana", db.ProvidesModule)
	assert.Equal(t, ports.FlowOptIn, db.Flow)
}

func TestParseDocblock_MaxTokens(t *testing.T) {
	// Directive budget of 1: the second directive is never scanned.
	_, db := New().ParseDocblock([]byte("// @providesModule A\n// @flow\n"), 1)
	assert.Equal(t, ports.FlowNone, db.Flow)
	assert.Equal(t, "A", db.ProvidesModule)
}
