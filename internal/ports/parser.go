// Package ports defines the interfaces (contracts) that adapters must implement.
// These are the boundaries of the hexagonal architecture. The parsing core
// depends only on these interfaces, never on concrete implementations.
package ports

import (
	"github.com/corey/jsig/internal/filekey"
)

// Loc is a source position. Lines and columns are 1-based; a zero Loc means
// "unknown".
type Loc struct {
	Line int `json:"line"`
	Col  int `json:"col"`
}

// ParseError is a recoverable syntax or structure error attributed to a
// source position.
type ParseError struct {
	Msg string `json:"msg"`
	Loc Loc    `json:"loc"`
}

func (e ParseError) Error() string { return e.Msg }

// AST is an opaque parsed-tree handle produced by a SourceParser and consumed
// by the signature extractors. The parsing core never inspects it.
type AST interface {
	// Close releases parser-owned resources. Safe to call once the artifact
	// is evicted from the heap.
	Close()
}

// SourceOptions is the option subset handed to the low-level source parser.
type SourceOptions struct {
	Components             bool
	Enums                  bool
	EsproposalDecorators   bool
	Types                  bool
	UseStrict              bool
	ModuleRefPrefix        string
	ModuleRefPrefixLegacy  string
	EnableConditionalTypes bool
	EnableMappedTypes      bool
	TupleEnhancements      bool
}

// SourceParser turns file bytes into an AST. Recoverable syntax errors are
// returned in the error list, never as a panic or a Go error; the returned
// AST is always usable (error-tolerant parse).
type SourceParser interface {
	ParseSource(content []byte, key filekey.FileKey, opts SourceOptions) (AST, []ParseError)
}

// FlowPragma is the docblock @flow annotation variant.
type FlowPragma uint8

const (
	// FlowNone means the docblock carries no flow annotation.
	FlowNone FlowPragma = iota
	// FlowOptOut is @noflow.
	FlowOptOut
	// FlowOptIn is @flow.
	FlowOptIn
	// FlowOptInStrict is @flow strict.
	FlowOptInStrict
	// FlowOptInStrictLocal is @flow strict-local.
	FlowOptInStrictLocal
)

// OptedIn reports whether the pragma opts the file into checking.
func (p FlowPragma) OptedIn() bool {
	return p == FlowOptIn || p == FlowOptInStrict || p == FlowOptInStrictLocal
}

// Docblock is the parsed prelude metadata of a source file.
type Docblock struct {
	Flow           FlowPragma
	IsStrict       bool
	ProvidesModule string
}

// DocblockParser extracts the docblock from the leading comments of a file.
// It scans at most maxTokens directives. Errors (duplicate pragmas, malformed
// directives) are returned alongside the best-effort docblock.
type DocblockParser interface {
	ParseDocblock(content []byte, maxTokens int) ([]ParseError, Docblock)
}

// ImportBinding records a local name introduced by an import statement.
type ImportBinding struct {
	Local     string `json:"local"`
	Specifier string `json:"specifier"`
}

// FileSig is the import/export-level summary of a file, independent of types.
type FileSig struct {
	Requires    map[string]struct{} `json:"requires"`
	Imports     []ImportBinding     `json:"imports"`
	ExportNames []string            `json:"export_names"`
	HasDefault  bool                `json:"has_default"`
}

// TolerableErrorKind classifies diagnostics recorded on an artifact rather
// than aborting the parse.
type TolerableErrorKind string

const (
	// SignatureVerificationError marks a type-signature error mapped back to
	// a source location.
	SignatureVerificationError TolerableErrorKind = "signature-verification-error"
	// IndeterminateModuleType marks a file whose module system could not be
	// decided from its imports/exports.
	IndeterminateModuleType TolerableErrorKind = "indeterminate-module-type"
)

// TolerableError is a per-file diagnostic carried on the parsed artifact.
type TolerableError struct {
	Kind TolerableErrorKind `json:"kind"`
	Msg  string             `json:"msg"`
	Loc  Loc                `json:"loc"`
}

// FileSigOptions is the per-file configuration of the signature extractor.
type FileSigOptions struct {
	EnableEnums                  bool
	EnableRelayIntegration       bool
	RelayIntegrationModulePrefix string
}

// SigExtractor derives a FileSig from an AST.
type SigExtractor interface {
	ExtractFileSig(ast AST, key filekey.FileKey, opts FileSigOptions) (*FileSig, []TolerableError)
}

// SigErrorKind discriminates packer diagnostics.
type SigErrorKind uint8

const (
	// SigKindSig is a signature error surfaced to the caller (mapped through
	// Locs into a SignatureVerificationError).
	SigKindSig SigErrorKind = iota
	// SigKindCheck is an error deferred to the checking phase and dropped
	// here.
	SigKindCheck
)

// SigError is a diagnostic produced by the type-signature packer. SigLoc
// indexes into the Locs table returned alongside it.
type SigError struct {
	Kind   SigErrorKind
	Msg    string
	SigLoc int
}

// Locs maps signature-local location indices back to source positions.
type Locs []Loc

// Get returns the source Loc for a signature location index, or a zero Loc
// when the index is out of range.
func (l Locs) Get(i int) Loc {
	if i < 0 || i >= len(l) {
		return Loc{}
	}
	return l[i]
}

// SigExport is one exported binding in a packed type signature.
type SigExport struct {
	Name  string `json:"name"`
	Kind  string `json:"kind"` // "value", "type", "default", "enum", "component"
	Annot string `json:"annot,omitempty"`
}

// TypeSig is the compact, serializable description of a module's type-level
// exports. Bytes is the deterministic packed form (the CAS upload payload).
type TypeSig struct {
	Exports []SigExport `json:"exports"`
	Bytes   []byte      `json:"-"`
}

// PackOptions is the configuration of the type-signature packer.
type PackOptions struct {
	MungeUnderscores bool
	ExactByDefault   bool
	MaxLiteralLen    int
	EnableEnums      bool
	ComponentSyntax  bool
	SuppressTypes    map[string]struct{}
	FacebookFbt      string
}

// SigPacker builds a type signature from an AST.
type SigPacker interface {
	PackSig(ast AST, strict bool, opts PackOptions) ([]SigError, Locs, *TypeSig)
}

// ScopeExtractor runs the scope/SSA pass and yields the file's free
// (global) identifiers.
type ScopeExtractor interface {
	Globals(ast AST, enableEnums bool) []string
}

// PackageInfo is the semantic extract of a package.json file.
type PackageInfo struct {
	Name string `json:"name"`
	Main string `json:"main"`
	Dir  string `json:"dir"`
}

// ModuleExports is the export surface derived from a type signature.
type ModuleExports struct {
	Names      []string `json:"names"`
	HasDefault bool     `json:"has_default"`
}

// ModuleImports is the import surface derived from a file signature plus the
// scope pass's globals.
type ModuleImports struct {
	Specifiers []string `json:"specifiers"`
	Globals    []string `json:"globals"`
}
