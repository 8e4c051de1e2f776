package parsing

import (
	"context"
	"encoding/json"
	"log/slog"
	"path/filepath"
	"runtime/debug"
	"sort"
	"sync"
	"time"

	"github.com/corey/jsig/internal/domain/options"
	"github.com/corey/jsig/internal/filekey"
	"github.com/corey/jsig/internal/heap"
	"github.com/corey/jsig/internal/ports"
)

// ExnLogger gates the diagnostic emitted when the pipeline captures an
// uncaught exception.
type ExnLogger interface {
	ShouldEmit() bool
}

// RateLimitedExnLogger emits at most one diagnostic per interval.
type RateLimitedExnLogger struct {
	Interval time.Duration

	mu   sync.Mutex
	last time.Time
}

// ShouldEmit reports whether the rate budget allows an emission now.
func (l *RateLimitedExnLogger) ShouldEmit() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	interval := l.Interval
	if interval <= 0 {
		interval = time.Second
	}
	now := time.Now()
	if now.Sub(l.last) < interval {
		return false
	}
	l.last = now
	return true
}

// Pipeline is the straight-line per-file parse flow. It is synchronous and
// self-contained within one worker; it never propagates a panic.
type Pipeline struct {
	Opts   options.ParsingOptions
	Parser ports.SourceParser
	Sig    ports.SigExtractor
	Packer ports.SigPacker
	Scope  ports.ScopeExtractor
	Blobs  ports.BlobStore
	Exns   ExnLogger
	Log    *slog.Logger
}

// Parse runs the pipeline for one file. The docblock has already been parsed
// (with no errors) by the reducer; the noflow override has been applied.
func (p *Pipeline) Parse(key filekey.FileKey, content []byte, db ports.Docblock) Outcome {
	// Step 1: dispatch by key variant.
	switch key.Kind {
	case filekey.ResourceKind:
		return OutcomeSkip{Reason: SkipResource{}}
	case filekey.JSONKind:
		if key.IsPackageJSON() {
			pkg, perr := p.parsePackage(key, content)
			return OutcomeSkip{Reason: SkipPackage{Pkg: pkg, Err: perr}}
		}
		return OutcomeSkip{Reason: SkipResource{}}
	}

	// Step 3: types-checked gate.
	if !options.TypesChecked(p.Opts.TypesMode, db) {
		return OutcomeSkip{Reason: SkipNonFlow{}}
	}

	return p.parseSource(key, content, db)
}

// parseSource is steps 4-11, wrapped so any uncaught panic becomes an
// OutcomeExn instead of escaping to the reducer.
func (p *Pipeline) parseSource(key filekey.FileKey, content []byte, db ports.Docblock) (out Outcome) {
	defer func() {
		if r := recover(); r != nil {
			exn := &CapturedExn{Value: r, Stack: debug.Stack()}
			if p.Exns != nil && p.Exns.ShouldEmit() && p.Log != nil {
				p.Log.Error("uncaught exception in parse pipeline",
					"file", key.String(), "exn", exn.Value)
			}
			out = OutcomeExn{Exn: exn}
		}
	}()

	// Step 4: source parse. Enums and decorator syntax are always parsed;
	// gating happens later in inference.
	ast, parseErrs := p.Parser.ParseSource(content, key, ports.SourceOptions{
		Components:             p.Opts.ComponentSyntax,
		Enums:                  true,
		EsproposalDecorators:   true,
		Types:                  true,
		UseStrict:              p.Opts.UseStrict,
		ModuleRefPrefix:        p.Opts.ModuleRefPrefix,
		ModuleRefPrefixLegacy:  p.Opts.ModuleRefPrefixLegacy,
		EnableConditionalTypes: p.Opts.EnableConditionalTypes,
		EnableMappedTypes:      p.Opts.EnableMappedTypes,
		TupleEnhancements:      p.Opts.TupleEnhancements,
	})

	// Step 5: file signature, with relay integration resolved per-file.
	fileSig, tolerable := p.Sig.ExtractFileSig(ast, key, p.Opts.RelayFor(key))

	// Step 6: requires, sorted unique.
	requires := sortedRequires(fileSig)

	// Step 7: recovery branch.
	if len(parseErrs) > 0 {
		return OutcomeRecovered{
			AST:             ast,
			Requires:        requires,
			FileSig:         fileSig,
			TolerableErrors: tolerable,
			ParseErrors:     parseErrs,
		}
	}

	// Step 8: scope pass.
	globals := p.Scope.Globals(ast, p.Opts.EnableEnums)

	// Step 9: type signature. Sig-kind errors map through the locs table
	// into tolerable errors; check-kind errors are deferred to inference.
	sigErrs, locs, typeSig := p.Packer.PackSig(ast, db.IsStrict, ports.PackOptions{
		MungeUnderscores: p.Opts.MungeUnderscores,
		ExactByDefault:   p.Opts.ExactByDefault,
		MaxLiteralLen:    p.Opts.MaxLiteralLen,
		EnableEnums:      p.Opts.EnableEnums,
		ComponentSyntax:  p.Opts.ComponentSyntax,
		SuppressTypes:    p.Opts.SuppressTypes,
		FacebookFbt:      p.Opts.FacebookFbt,
	})
	for _, se := range sigErrs {
		if se.Kind != ports.SigKindSig {
			continue
		}
		tolerable = append(tolerable, ports.TolerableError{
			Kind: ports.SignatureVerificationError,
			Msg:  se.Msg,
			Loc:  locs.Get(se.SigLoc),
		})
	}

	// Step 10: module exports/imports.
	exports := exportsOfModule(typeSig)
	imports := addGlobals(globals, importsOfFileSig(fileSig))

	// Step 11: CAS digest.
	var casDigest string
	if p.Opts.Distributed && p.Blobs != nil && typeSig != nil {
		digest, err := p.Blobs.UploadBlob(context.Background(), typeSig.Bytes)
		if err == nil {
			casDigest = digest
		} else if p.Log != nil {
			p.Log.Warn("type signature upload failed", "file", key.String(), "err", err)
		}
	}

	return OutcomeOk{Artifact: &heap.ParsedArtifact{
		AST:             ast,
		Requires:        requires,
		FileSig:         fileSig,
		TolerableErrors: tolerable,
		Locs:            locs,
		TypeSig:         typeSig,
		Exports:         exports,
		Imports:         imports,
		CASDigest:       casDigest,
	}}
}

// parsePackage is the package-JSON sub-pipeline: parse the object, then
// apply the semantic extractor parameterized by node_main_fields.
func (p *Pipeline) parsePackage(key filekey.FileKey, content []byte) (*ports.PackageInfo, *ports.ParseError) {
	var obj map[string]any
	if err := json.Unmarshal(content, &obj); err != nil {
		return nil, &ports.ParseError{Msg: err.Error(), Loc: ports.Loc{Line: 1, Col: 1}}
	}

	pkg := &ports.PackageInfo{Dir: filepath.Dir(key.Path)}
	if name, ok := obj["name"].(string); ok {
		pkg.Name = name
	}
	for _, field := range p.Opts.NodeMainFields {
		if main, ok := obj[field].(string); ok {
			pkg.Main = main
			break
		}
	}
	return pkg, nil
}

// sortedRequires flattens the require set into a sorted, unique array.
func sortedRequires(fs *ports.FileSig) []string {
	if fs == nil || len(fs.Requires) == 0 {
		return nil
	}
	out := make([]string, 0, len(fs.Requires))
	for r := range fs.Requires {
		out = append(out, r)
	}
	sort.Strings(out)
	return out
}

// exportsOfModule derives the export surface of a packed signature.
func exportsOfModule(ts *ports.TypeSig) *ports.ModuleExports {
	out := &ports.ModuleExports{}
	if ts == nil {
		return out
	}
	for _, e := range ts.Exports {
		if e.Kind == "default" {
			out.HasDefault = true
			continue
		}
		out.Names = append(out.Names, e.Name)
	}
	sort.Strings(out.Names)
	return out
}

// importsOfFileSig derives the import surface of a file signature.
func importsOfFileSig(fs *ports.FileSig) *ports.ModuleImports {
	out := &ports.ModuleImports{}
	if fs == nil {
		return out
	}
	for r := range fs.Requires {
		out.Specifiers = append(out.Specifiers, r)
	}
	sort.Strings(out.Specifiers)
	return out
}

// addGlobals attaches the scope pass's free identifiers to the imports.
func addGlobals(globals []string, imp *ports.ModuleImports) *ports.ModuleImports {
	imp.Globals = append(imp.Globals, globals...)
	sort.Strings(imp.Globals)
	return imp
}
