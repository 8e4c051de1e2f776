// Package docblock parses the leading comment of a source file for checker
// directives: @flow (with strict / strict-local arguments), @noflow, and
// @providesModule. Scanning stops at the first non-comment token or after
// maxTokens directives, whichever comes first.
package docblock

import (
	"strings"
	"unicode"

	"github.com/corey/jsig/internal/ports"
)

// Parser implements ports.DocblockParser over raw file bytes.
type Parser struct{}

// New returns a docblock parser.
func New() *Parser { return &Parser{} }

// ParseDocblock scans the file prelude. Directive errors (duplicate @flow
// pragmas) are reported alongside the best-effort docblock; the reducer
// decides whether they are fatal for the file.
func (Parser) ParseDocblock(content []byte, maxTokens int) ([]ports.ParseError, ports.Docblock) {
	if maxTokens <= 0 {
		maxTokens = 10
	}

	var (
		db     ports.Docblock
		errs   []ports.ParseError
		tokens int
	)

	sawFlow := false
	for _, d := range leadingDirectives(content, maxTokens) {
		tokens++
		switch d.name {
		case "@flow":
			if sawFlow {
				errs = append(errs, ports.ParseError{
					Msg: "Unexpected duplicate @flow declaration",
					Loc: ports.Loc{Line: d.line, Col: d.col},
				})
				continue
			}
			sawFlow = true
			switch d.arg {
			case "strict":
				db.Flow = ports.FlowOptInStrict
				db.IsStrict = true
			case "strict-local":
				db.Flow = ports.FlowOptInStrictLocal
				db.IsStrict = true
			default:
				db.Flow = ports.FlowOptIn
			}
		case "@noflow":
			if sawFlow {
				errs = append(errs, ports.ParseError{
					Msg: "Unexpected duplicate @flow declaration",
					Loc: ports.Loc{Line: d.line, Col: d.col},
				})
				continue
			}
			sawFlow = true
			db.Flow = ports.FlowOptOut
		case "@providesModule":
			if d.arg != "" {
				db.ProvidesModule = d.arg
			}
		}
		if tokens >= maxTokens {
			break
		}
	}

	return errs, db
}

// directive is one @name [arg] pair found in the prelude comments.
type directive struct {
	name string
	arg  string
	line int
	col  int
}

// leadingDirectives tokenizes the comment block at the top of the file.
// Both // line comments and a single /* ... */ block are recognized; the
// prelude ends at the first line that is neither blank nor a comment.
func leadingDirectives(content []byte, limit int) []directive {
	var out []directive

	text := string(content)
	lines := strings.Split(text, "\n")
	inBlock := false

	for lineNo, raw := range lines {
		line := strings.TrimSpace(raw)

		switch {
		case inBlock:
			if idx := strings.Index(line, "*/"); idx >= 0 {
				line = line[:idx]
				inBlock = false
			}
			line = strings.TrimPrefix(strings.TrimSpace(line), "*")
		case line == "":
			continue
		case strings.HasPrefix(line, "//"):
			line = strings.TrimPrefix(line, "//")
		case strings.HasPrefix(line, "/*"):
			line = strings.TrimPrefix(line, "/*")
			if idx := strings.Index(line, "*/"); idx >= 0 {
				line = line[:idx]
			} else {
				inBlock = true
			}
		default:
			return out // prelude over
		}

		out = append(out, scanDirectives(line, lineNo+1)...)
		if len(out) >= limit {
			return out[:limit]
		}
	}
	return out
}

// scanDirectives finds @word tokens in one comment line, pairing each with
// the following bare word as its argument when present.
func scanDirectives(line string, lineNo int) []directive {
	var out []directive
	fields := strings.FieldsFunc(line, func(r rune) bool {
		return unicode.IsSpace(r)
	})
	for i, f := range fields {
		if !strings.HasPrefix(f, "@") || len(f) < 2 {
			continue
		}
		d := directive{name: f, line: lineNo, col: strings.Index(line, f) + 1}
		if i+1 < len(fields) && !strings.HasPrefix(fields[i+1], "@") {
			d.arg = fields[i+1]
		}
		out = append(out, d)
	}
	return out
}
