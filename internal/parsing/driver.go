package parsing

import (
	"context"
	"log/slog"
	"time"

	"github.com/corey/jsig/internal/dispatch"
	"github.com/corey/jsig/internal/filekey"
	"github.com/corey/jsig/internal/heap"
	"github.com/corey/jsig/internal/ports"
)

// Driver fans a file set across the worker pool and runs the parse flows.
// It is cooperative — it may suspend while workers run — but never parallel
// with itself; transactions are created and closed here, never by workers.
type Driver struct {
	Pool *dispatch.Pool
	Heap *heap.Heap

	Parser    ports.SourceParser
	Sig       ports.SigExtractor
	Packer    ports.SigPacker
	Scope     ports.ScopeExtractor
	Docblocks ports.DocblockParser
	Blobs     ports.BlobStore
	Reader    ports.FileReader

	NoFlow         func(filekey.FileKey) bool
	ExportedModule ModuleResolver

	Exns     ExnLogger
	Log      *slog.Logger
	Profile  bool
	Progress dispatch.Progress
}

func (d *Driver) logger() *slog.Logger {
	if d.Log != nil {
		return d.Log
	}
	return slog.Default()
}

func (d *Driver) pipeline(opts Options) *Pipeline {
	return &Pipeline{
		Opts:   opts.Parsing,
		Parser: d.Parser,
		Sig:    d.Sig,
		Packer: d.Packer,
		Scope:  d.Scope,
		Blobs:  d.Blobs,
		Exns:   d.Exns,
		Log:    d.logger(),
	}
}

func (d *Driver) reader() ports.FileReader {
	if d.Reader != nil {
		return d.Reader
	}
	return ports.OSReader{}
}

func (d *Driver) fold(ctx context.Context, red *Reducer, keys []filekey.FileKey) *Results {
	return dispatch.Fold(ctx, d.Pool,
		func(acc *Results, key filekey.FileKey) *Results { return red.Reduce(acc, key) },
		NewResults,
		Merge,
		dispatch.Next(d.Pool, keys),
		len(keys),
		d.Progress,
	)
}

// Parse is the cold flow: no skip semantics, direct writes. When initial is
// set the fold runs inside an initial transaction, which makes re-parsing a
// key within the transaction a no-op.
func (d *Driver) Parse(ctx context.Context, keys filekey.Set, opts Options) (*Results, error) {
	start := time.Now()

	var txn *heap.Txn
	if opts.Initial {
		t, err := d.Heap.Begin(true)
		if err != nil {
			return nil, err
		}
		txn = t
	}

	red := &Reducer{
		Mut:            heap.NewParseMutator(d.Heap),
		Pipeline:       d.pipeline(opts),
		Docblocks:      d.Docblocks,
		Reader:         d.reader(),
		NoFlow:         d.NoFlow,
		ExportedModule: d.ExportedModule,
		SkipChanged:    opts.SkipChanged,
		SkipUnchanged:  false,
	}
	results := d.fold(ctx, red, keys.Sorted())

	if txn != nil {
		txn.Commit()
	}

	if d.Profile {
		d.logger().Info("parse done",
			"parsed", len(results.Parsed),
			"unparsed", len(results.Unparsed),
			"changed", len(results.Changed),
			"unchanged", len(results.Unchanged),
			"not_found", len(results.NotFound),
			"package_json", len(results.PackageKeys),
			"failed", len(results.FailedKeys),
			"elapsed_s", time.Since(start).Seconds(),
		)
	}
	return results, nil
}

// Reparse is the incremental flow: unchanged files are skipped, every write
// is scoped under a transaction, and the unchanged/not-found classifications
// are projected back onto the heap before commit.
func (d *Driver) Reparse(ctx context.Context, keys filekey.Set, opts Options) (*Results, error) {
	txn, err := d.Heap.Begin(false)
	if err != nil {
		return nil, err
	}

	red := &Reducer{
		Mut:            heap.NewReparseMutator(txn),
		Pipeline:       d.pipeline(opts),
		Docblocks:      d.Docblocks,
		Reader:         d.reader(),
		NoFlow:         d.NoFlow,
		ExportedModule: d.ExportedModule,
		SkipChanged:    false,
		SkipUnchanged:  true,
	}
	results := d.fold(ctx, red, keys.Sorted())

	txn.RecordUnchanged(results.Unchanged)
	txn.RecordNotFound(results.NotFound)
	txn.Commit()

	return results, nil
}

// EnsureParsed makes sure every key has a live AST. Phase 1 filters, in
// parallel, to the keys without one; phase 2 runs the parse flow with
// skip_changed over the filtered set. Only changed ∪ not_found surface to
// the caller — those are the files the caller must account for elsewhere.
func (d *Driver) EnsureParsed(ctx context.Context, keys filekey.Set, opts Options) (filekey.Set, error) {
	missing := dispatch.Fold(ctx, d.Pool,
		func(acc filekey.Set, key filekey.FileKey) filekey.Set {
			if !d.Heap.HasAST(key) {
				acc.Add(key)
			}
			return acc
		},
		func() filekey.Set { return make(filekey.Set) },
		func(a, b filekey.Set) filekey.Set { return a.Union(b) },
		dispatch.Next(d.Pool, keys.Sorted()),
		len(keys),
		nil,
	)

	opts.SkipChanged = true
	opts.Initial = false
	results, err := d.Parse(ctx, missing, opts)
	if err != nil {
		return nil, err
	}

	out := make(filekey.Set)
	out.Union(results.Changed)
	out.Union(results.NotFound)
	return out, nil
}
