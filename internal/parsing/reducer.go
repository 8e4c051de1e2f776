package parsing

import (
	"path/filepath"
	"strings"

	"github.com/corey/jsig/internal/domain/hash"
	"github.com/corey/jsig/internal/filekey"
	"github.com/corey/jsig/internal/heap"
	"github.com/corey/jsig/internal/ports"
)

// ModuleHint is the closed variant handed to the module resolver: what the
// reducer knew about the file when it resolved its module identity.
type ModuleHint interface{ isHint() }

// HintUnknown carries no information (read failures).
type HintUnknown struct{}

// HintModule carries the parsed docblock.
type HintModule struct{ Docblock ports.Docblock }

// HintPackage carries the package.json extract.
type HintPackage struct{ Pkg *ports.PackageInfo }

func (HintUnknown) isHint() {}
func (HintModule) isHint()  {}
func (HintPackage) isHint() {}

// ModuleResolver maps a file to its exported module identifier. The result
// participates in every heap write.
type ModuleResolver func(key filekey.FileKey, hint ModuleHint) string

// DefaultModuleResolver prefers @providesModule, then the package name, then
// the key path stripped of its extension.
func DefaultModuleResolver(key filekey.FileKey, hint ModuleHint) string {
	switch h := hint.(type) {
	case HintModule:
		if h.Docblock.ProvidesModule != "" {
			return h.Docblock.ProvidesModule
		}
	case HintPackage:
		if h.Pkg != nil && h.Pkg.Name != "" {
			return h.Pkg.Name
		}
	}
	ext := filepath.Ext(key.Path)
	return strings.TrimSuffix(key.Path, ext)
}

// Reducer folds one file into a worker-local accumulator: consult the heap
// to decide whether to skip, run the pipeline if not, write the outcome
// through the mutator, and classify the key into exactly one bucket.
type Reducer struct {
	Mut       heap.Mutator
	Pipeline  *Pipeline
	Docblocks ports.DocblockParser
	Reader    ports.FileReader

	NoFlow         func(filekey.FileKey) bool
	ExportedModule ModuleResolver

	SkipChanged   bool
	SkipUnchanged bool
}

// Reduce processes one key. Within a worker, calls are sequential and acc is
// local; no error ever escapes — every failure lands in the accumulator.
func (r *Reducer) Reduce(acc *Results, key filekey.FileKey) *Results {
	handle := r.Mut.GetFileAddr(key)

	// Cold-start idempotence: inside an initial transaction, a key that
	// already has a parse was handled earlier in the same transaction.
	if r.Mut.InInitTransaction() && r.Mut.GetParse(handle) != nil {
		return acc
	}

	content, err := r.Reader.ReadKey(key)
	if err != nil {
		if !r.SkipChanged {
			module := r.resolveModule(key, HintUnknown{})
			acc.addDirty(r.Mut.ClearNotFound(key, module))
		}
		acc.NotFound.Add(key)
		return acc
	}

	digest := hash.Of(content)

	if r.SkipChanged {
		if cur, ok := r.Mut.GetFileHash(key); !ok || digest != cur {
			acc.Changed.Add(key)
			return acc
		}
	}
	if r.SkipUnchanged {
		if old, ok := r.Mut.GetOldFileHash(key); ok && digest == old {
			acc.Unchanged.Add(key)
			return acc
		}
	}

	maxTokens := r.Pipeline.Opts.MaxHeaderTokens
	dbErrs, db := r.Docblocks.ParseDocblock(content, maxTokens)

	// The noflow override applies after docblock parsing and before the
	// types-checked gate; both orderings are observable.
	if r.NoFlow != nil && r.NoFlow(key) {
		db.Flow = ports.FlowOptOut
	}

	if len(dbErrs) > 0 {
		module := r.resolveModule(key, HintModule{Docblock: db})
		acc.addDirty(r.Mut.AddUnparsed(key, handle, digest, module))
		acc.addFailed(key, FailureDocblock{Errors: dbErrs})
		return acc
	}

	switch out := r.Pipeline.Parse(key, content, db).(type) {
	case OutcomeOk:
		module := r.resolveModule(key, HintModule{Docblock: db})
		acc.addDirty(r.Mut.AddParsed(key, handle, digest, module, out.Artifact))
		acc.Parsed.Add(key)

	case OutcomeRecovered:
		module := r.resolveModule(key, HintModule{Docblock: db})
		acc.addDirty(r.Mut.AddUnparsed(key, handle, digest, module))
		acc.addFailed(key, FailureParse{Err: out.ParseErrors[0]})

	case OutcomeExn:
		module := r.resolveModule(key, HintModule{Docblock: db})
		acc.addDirty(r.Mut.AddUnparsed(key, handle, digest, module))
		acc.addFailed(key, FailureUncaught{Exn: out.Exn})

	case OutcomeSkip:
		switch reason := out.Reason.(type) {
		case SkipPackage:
			module := r.resolveModule(key, HintPackage{Pkg: reason.Pkg})
			acc.addDirty(r.Mut.AddPackage(key, handle, digest, module, reason.Pkg, reason.Err))
			acc.addPackage(key, reason.Err)
		default: // SkipResource, SkipNonFlow
			module := r.resolveModule(key, HintModule{Docblock: db})
			acc.addDirty(r.Mut.AddUnparsed(key, handle, digest, module))
			acc.Unparsed.Add(key)
		}
	}

	return acc
}

func (r *Reducer) resolveModule(key filekey.FileKey, hint ModuleHint) string {
	if r.ExportedModule == nil {
		return DefaultModuleResolver(key, hint)
	}
	return r.ExportedModule(key, hint)
}
