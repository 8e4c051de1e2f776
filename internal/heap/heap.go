// Package heap implements the shared, transactionally-updated store of parse
// artifacts. Entries are keyed by FileKey and carry a current and an old
// slot, so a reparse batch can be diffed against the previous generation and
// rolled back as a unit.
//
// Concurrency: the key space is sharded; workers write disjoint keys (the
// driver hands each key to exactly one worker), so writes never contend on
// an entry. Reads during a parse are snapshots of the committed slots.
package heap

import (
	"fmt"
	"sync"

	"github.com/cespare/xxhash/v2"

	"github.com/corey/jsig/internal/filekey"
	"github.com/corey/jsig/internal/ports"
)

// EntryKind discriminates what a slot holds.
type EntryKind uint8

const (
	// kindNone is the zero value of a slot that was never written. A rolled
	// back first-write leaves the entry in this state, indistinguishable
	// from absent through the read API.
	kindNone EntryKind = iota
	// KindParsed is a fully parsed artifact.
	KindParsed
	// KindUnparsed is a file that was seen but not parsed (skipped, failed).
	KindUnparsed
	// KindPackage is a package.json extract.
	KindPackage
	// KindNotFound marks a file that could not be read.
	KindNotFound
)

// ParsedArtifact is the payload of a Parsed slot.
type ParsedArtifact struct {
	AST             ports.AST
	Requires        []string
	FileSig         *ports.FileSig
	TolerableErrors []ports.TolerableError
	Locs            ports.Locs
	TypeSig         *ports.TypeSig
	Exports         *ports.ModuleExports
	Imports         *ports.ModuleImports
	CASDigest       string
}

// slot is one generation of an entry.
type slot struct {
	kind   EntryKind
	hash   uint64
	module string
	parsed *ParsedArtifact
	pkg    *ports.PackageInfo
	pkgErr *ports.ParseError
}

// Entry is the per-FileKey record. The zero kind of an absent slot is never
// observed: entries are only created through a write.
type Entry struct {
	mu  sync.RWMutex
	cur slot
	old slot
}

const shardCount = 64

type shard struct {
	mu      sync.RWMutex
	entries map[filekey.FileKey]*Entry
}

// Heap is the process-wide artifact store.
type Heap struct {
	shards [shardCount]shard

	txnMu sync.Mutex
	txn   *Txn
}

// New returns an empty heap.
func New() *Heap {
	h := &Heap{}
	for i := range h.shards {
		h.shards[i].entries = make(map[filekey.FileKey]*Entry)
	}
	return h
}

func (h *Heap) shardFor(key filekey.FileKey) *shard {
	n := xxhash.Sum64String(key.Path) ^ uint64(key.Kind)
	return &h.shards[n%shardCount]
}

// entry returns the Entry for key, creating it when create is set.
func (h *Heap) entry(key filekey.FileKey, create bool) *Entry {
	s := h.shardFor(key)
	s.mu.RLock()
	e := s.entries[key]
	s.mu.RUnlock()
	if e != nil || !create {
		return e
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if e = s.entries[key]; e == nil {
		e = &Entry{}
		s.entries[key] = e
	}
	return e
}

// GetFileAddr returns the opaque entry handle for key, or nil when the heap
// has never seen it.
func (h *Heap) GetFileAddr(key filekey.FileKey) *Entry {
	return h.entry(key, false)
}

// GetParse returns the current-slot parsed artifact for a handle, or nil.
func (h *Heap) GetParse(e *Entry) *ParsedArtifact {
	if e == nil {
		return nil
	}
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.cur.kind != KindParsed {
		return nil
	}
	return e.cur.parsed
}

// GetFileHash returns the current-generation content hash for key.
func (h *Heap) GetFileHash(key filekey.FileKey) (uint64, bool) {
	e := h.entry(key, false)
	if e == nil {
		return 0, false
	}
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.cur.kind == kindNone || e.cur.kind == KindNotFound {
		return 0, false
	}
	return e.cur.hash, true
}

// GetOldFileHash returns the old-generation content hash for key.
func (h *Heap) GetOldFileHash(key filekey.FileKey) (uint64, bool) {
	e := h.entry(key, false)
	if e == nil {
		return 0, false
	}
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.old.kind == kindNone || e.old.kind == KindNotFound {
		return 0, false
	}
	return e.old.hash, true
}

// HasAST reports whether key has a parsed current slot with a live AST.
// Snapshot-restored entries report false (their AST was not persisted).
func (h *Heap) HasAST(key filekey.FileKey) bool {
	e := h.entry(key, false)
	if e == nil {
		return false
	}
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.cur.kind == KindParsed && e.cur.parsed != nil && e.cur.parsed.AST != nil
}

// EntryKindOf returns the committed kind for key. The second result is false
// when the heap has never seen the key.
func (h *Heap) EntryKindOf(key filekey.FileKey) (EntryKind, bool) {
	e := h.entry(key, false)
	if e == nil {
		return 0, false
	}
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.cur.kind == kindNone {
		return 0, false
	}
	return e.cur.kind, true
}

// Len returns the number of entries.
func (h *Heap) Len() int {
	n := 0
	for i := range h.shards {
		s := &h.shards[i]
		s.mu.RLock()
		n += len(s.entries)
		s.mu.RUnlock()
	}
	return n
}

// Begin opens a transaction. Only one transaction may be active at a time;
// it is created and closed by the driver, never by workers.
func (h *Heap) Begin(initial bool) (*Txn, error) {
	h.txnMu.Lock()
	defer h.txnMu.Unlock()
	if h.txn != nil {
		return nil, fmt.Errorf("heap: transaction already active")
	}
	t := &Txn{
		h:         h,
		initial:   initial,
		touched:   make(map[filekey.FileKey]*Entry),
		unchanged: make(filekey.Set),
		notFound:  make(filekey.Set),
	}
	h.txn = t
	return t, nil
}

// InInitTransaction reports whether an initial (cold-start) transaction is
// active. Read by the reducer to suppress duplicate work.
func (h *Heap) InInitTransaction() bool {
	h.txnMu.Lock()
	defer h.txnMu.Unlock()
	return h.txn != nil && h.txn.initial
}

// Snapshot captures the committed surface of every entry: kind, hash, module,
// requires and CAS digest, but never the AST.
func (h *Heap) Snapshot() *ports.HeapSnapshot {
	snap := &ports.HeapSnapshot{Entries: make(map[filekey.FileKey]ports.SnapshotEntry)}
	for i := range h.shards {
		s := &h.shards[i]
		s.mu.RLock()
		for key, e := range s.entries {
			e.mu.RLock()
			if e.cur.kind == kindNone {
				e.mu.RUnlock()
				continue
			}
			se := ports.SnapshotEntry{
				Kind:   snapshotKind(e.cur.kind),
				Hash:   e.cur.hash,
				Module: e.cur.module,
			}
			if e.cur.parsed != nil {
				se.Requires = e.cur.parsed.Requires
				se.CASDigest = e.cur.parsed.CASDigest
			}
			se.Package = e.cur.pkg
			e.mu.RUnlock()
			snap.Entries[key] = se
		}
		s.mu.RUnlock()
	}
	return snap
}

// Restore populates the heap from a persisted snapshot. Restored Parsed
// entries carry no artifact, so HasAST reports false and the ensure-parsed
// flow repopulates them on demand; their hashes still drive incremental
// skipping.
func (h *Heap) Restore(snap *ports.HeapSnapshot) {
	if snap == nil {
		return
	}
	for key, se := range snap.Entries {
		e := h.entry(key, true)
		e.mu.Lock()
		e.cur = slot{kind: entryKind(se.Kind), hash: se.Hash, module: se.Module, pkg: se.Package}
		e.old = e.cur
		e.mu.Unlock()
	}
}

func snapshotKind(k EntryKind) ports.SnapshotKind {
	switch k {
	case KindParsed:
		return ports.SnapParsed
	case KindUnparsed:
		return ports.SnapUnparsed
	case KindPackage:
		return ports.SnapPackage
	default:
		return ports.SnapNotFound
	}
}

func entryKind(k ports.SnapshotKind) EntryKind {
	switch k {
	case ports.SnapParsed:
		return KindParsed
	case ports.SnapUnparsed:
		return KindUnparsed
	case ports.SnapPackage:
		return KindPackage
	default:
		return KindNotFound
	}
}
