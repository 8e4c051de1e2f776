// Package options resolves the global checker configuration into the
// immutable per-run ParsingOptions bundle, and houses the types-checked
// predicate that gates which files are parsed for types.
package options

import (
	"regexp"

	"github.com/corey/jsig/internal/filekey"
	"github.com/corey/jsig/internal/ports"
)

// TypesMode controls whether type syntax is checked for a file.
type TypesMode uint8

const (
	// TypesAllowed checks every file regardless of docblock.
	TypesAllowed TypesMode = iota
	// TypesForbiddenByDefault checks only files that opt in via docblock.
	TypesForbiddenByDefault
)

// GlobalOptions is the checker-wide configuration the resolver reads from.
type GlobalOptions struct {
	AllTypes            bool
	ModulesAreUseStrict bool

	MungeUnderscores      bool
	ModuleRefPrefix       string
	ModuleRefPrefixLegacy string
	FacebookFbt           string
	SuppressTypes         map[string]struct{}
	MaxLiteralLen         int
	ComponentSyntax       bool
	ExactByDefault        bool
	EnableEnums           bool

	EnableRelayIntegration               bool
	RelayIntegrationExcludes             []*regexp.Regexp
	RelayIntegrationModulePrefix         string
	RelayIntegrationModulePrefixIncludes []*regexp.Regexp

	NodeMainFields []string
	Distributed    bool

	EnableConditionalTypes bool
	EnableMappedTypes      bool
	TupleEnhancements      bool

	MaxHeaderTokens int
}

// ParsingOptions is the immutable per-run configuration bundle handed to the
// pipeline. Fields mirror GlobalOptions except for the two resolved ones.
type ParsingOptions struct {
	TypesMode TypesMode
	UseStrict bool

	MungeUnderscores      bool
	ModuleRefPrefix       string
	ModuleRefPrefixLegacy string
	FacebookFbt           string
	SuppressTypes         map[string]struct{}
	MaxLiteralLen         int
	ComponentSyntax       bool
	ExactByDefault        bool
	EnableEnums           bool

	EnableRelayIntegration               bool
	RelayIntegrationExcludes             []*regexp.Regexp
	RelayIntegrationModulePrefix         string
	RelayIntegrationModulePrefixIncludes []*regexp.Regexp

	NodeMainFields []string
	Distributed    bool

	EnableConditionalTypes bool
	EnableMappedTypes      bool
	TupleEnhancements      bool

	MaxHeaderTokens int
}

// Overrides carries caller-supplied values that win over the global
// defaults during resolution. Nil pointer = no override.
type Overrides struct {
	TypesMode *TypesMode
	UseStrict *bool
}

// Resolve produces the per-run ParsingOptions.
//
// types_mode: caller override wins; else AllTypes yields TypesAllowed; else
// TypesForbiddenByDefault. use_strict: caller override wins; else
// ModulesAreUseStrict. Everything else copies through.
func Resolve(g GlobalOptions, ov Overrides) ParsingOptions {
	mode := TypesForbiddenByDefault
	if ov.TypesMode != nil {
		mode = *ov.TypesMode
	} else if g.AllTypes {
		mode = TypesAllowed
	}

	useStrict := g.ModulesAreUseStrict
	if ov.UseStrict != nil {
		useStrict = *ov.UseStrict
	}

	return ParsingOptions{
		TypesMode: mode,
		UseStrict: useStrict,

		MungeUnderscores:      g.MungeUnderscores,
		ModuleRefPrefix:       g.ModuleRefPrefix,
		ModuleRefPrefixLegacy: g.ModuleRefPrefixLegacy,
		FacebookFbt:           g.FacebookFbt,
		SuppressTypes:         g.SuppressTypes,
		MaxLiteralLen:         g.MaxLiteralLen,
		ComponentSyntax:       g.ComponentSyntax,
		ExactByDefault:        g.ExactByDefault,
		EnableEnums:           g.EnableEnums,

		EnableRelayIntegration:               g.EnableRelayIntegration,
		RelayIntegrationExcludes:             g.RelayIntegrationExcludes,
		RelayIntegrationModulePrefix:         g.RelayIntegrationModulePrefix,
		RelayIntegrationModulePrefixIncludes: g.RelayIntegrationModulePrefixIncludes,

		NodeMainFields: g.NodeMainFields,
		Distributed:    g.Distributed,

		EnableConditionalTypes: g.EnableConditionalTypes,
		EnableMappedTypes:      g.EnableMappedTypes,
		TupleEnhancements:      g.TupleEnhancements,

		MaxHeaderTokens: g.MaxHeaderTokens,
	}
}

// TypesChecked reports whether the file's types should be checked under the
// resolved mode and its docblock.
func TypesChecked(mode TypesMode, db ports.Docblock) bool {
	switch mode {
	case TypesAllowed:
		return true
	case TypesForbiddenByDefault:
		return db.Flow.OptedIn()
	}
	return false
}

// RelayFor resolves the relay integration settings for one file: disabled if
// the path matches any exclude pattern. With no include patterns the default
// prefix applies to every file; with include patterns it applies only to
// paths matching one of them, and other paths get an empty prefix.
func (o ParsingOptions) RelayFor(key filekey.FileKey) ports.FileSigOptions {
	out := ports.FileSigOptions{
		EnableEnums:                  o.EnableEnums,
		EnableRelayIntegration:       o.EnableRelayIntegration,
		RelayIntegrationModulePrefix: o.RelayIntegrationModulePrefix,
	}
	if !out.EnableRelayIntegration {
		return out
	}
	for _, re := range o.RelayIntegrationExcludes {
		if re.MatchString(key.Path) {
			out.EnableRelayIntegration = false
			return out
		}
	}
	if len(o.RelayIntegrationModulePrefixIncludes) > 0 {
		out.RelayIntegrationModulePrefix = ""
		for _, re := range o.RelayIntegrationModulePrefixIncludes {
			if re.MatchString(key.Path) {
				out.RelayIntegrationModulePrefix = o.RelayIntegrationModulePrefix
				break
			}
		}
	}
	return out
}
