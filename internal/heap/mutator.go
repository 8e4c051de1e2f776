package heap

import (
	"github.com/corey/jsig/internal/filekey"
	"github.com/corey/jsig/internal/ports"
)

// Mutator is the typed write facade the reducer goes through. Every write
// returns the set of module identifiers it dirtied. The two flavors share
// the read contract of the heap.
type Mutator interface {
	AddParsed(key filekey.FileKey, prev *Entry, hash uint64, module string, art *ParsedArtifact) []string
	AddUnparsed(key filekey.FileKey, prev *Entry, hash uint64, module string) []string
	AddPackage(key filekey.FileKey, prev *Entry, hash uint64, module string, pkg *ports.PackageInfo, pkgErr *ports.ParseError) []string
	ClearNotFound(key filekey.FileKey, module string) []string

	GetFileAddr(key filekey.FileKey) *Entry
	GetParse(e *Entry) *ParsedArtifact
	GetFileHash(key filekey.FileKey) (uint64, bool)
	GetOldFileHash(key filekey.FileKey) (uint64, bool)
	HasAST(key filekey.FileKey) bool
	InInitTransaction() bool
}

func dirty(module string) []string {
	if module == "" {
		return nil
	}
	return []string{module}
}

// ParseMutator writes directly: each write is committed immediately into
// both generations. Not rollback-safe; used by the cold parse flow.
type ParseMutator struct {
	h *Heap
}

// NewParseMutator returns the direct-write mutator for h.
func NewParseMutator(h *Heap) *ParseMutator { return &ParseMutator{h: h} }

func (m *ParseMutator) write(key filekey.FileKey, s slot) {
	e := m.h.entry(key, true)
	e.mu.Lock()
	e.cur = s
	e.old = s
	e.mu.Unlock()
}

// AddParsed records a Parsed entry.
func (m *ParseMutator) AddParsed(key filekey.FileKey, _ *Entry, hash uint64, module string, art *ParsedArtifact) []string {
	m.write(key, slot{kind: KindParsed, hash: hash, module: module, parsed: art})
	return dirty(module)
}

// AddUnparsed records an Unparsed entry.
func (m *ParseMutator) AddUnparsed(key filekey.FileKey, _ *Entry, hash uint64, module string) []string {
	m.write(key, slot{kind: KindUnparsed, hash: hash, module: module})
	return dirty(module)
}

// AddPackage records a Package entry (pkgErr non-nil on a malformed file).
func (m *ParseMutator) AddPackage(key filekey.FileKey, _ *Entry, hash uint64, module string, pkg *ports.PackageInfo, pkgErr *ports.ParseError) []string {
	m.write(key, slot{kind: KindPackage, hash: hash, module: module, pkg: pkg, pkgErr: pkgErr})
	return dirty(module)
}

// ClearNotFound records NotFound.
func (m *ParseMutator) ClearNotFound(key filekey.FileKey, module string) []string {
	m.write(key, slot{kind: KindNotFound, module: module})
	return dirty(module)
}

func (m *ParseMutator) GetFileAddr(key filekey.FileKey) *Entry { return m.h.GetFileAddr(key) }
func (m *ParseMutator) GetParse(e *Entry) *ParsedArtifact      { return m.h.GetParse(e) }
func (m *ParseMutator) GetFileHash(key filekey.FileKey) (uint64, bool) {
	return m.h.GetFileHash(key)
}
func (m *ParseMutator) GetOldFileHash(key filekey.FileKey) (uint64, bool) {
	return m.h.GetOldFileHash(key)
}
func (m *ParseMutator) HasAST(key filekey.FileKey) bool { return m.h.HasAST(key) }
func (m *ParseMutator) InInitTransaction() bool         { return m.h.InInitTransaction() }

// ReparseMutator writes under a transaction: only the current slot moves,
// and the transaction can roll every write back.
type ReparseMutator struct {
	t *Txn
}

// NewReparseMutator returns the transactional mutator for t.
func NewReparseMutator(t *Txn) *ReparseMutator { return &ReparseMutator{t: t} }

func (m *ReparseMutator) write(key filekey.FileKey, s slot) {
	e := m.t.h.entry(key, true)
	e.mu.Lock()
	e.cur = s
	e.mu.Unlock()
	m.t.touch(key, e)
}

// AddParsed records a Parsed entry in the current generation.
func (m *ReparseMutator) AddParsed(key filekey.FileKey, _ *Entry, hash uint64, module string, art *ParsedArtifact) []string {
	m.write(key, slot{kind: KindParsed, hash: hash, module: module, parsed: art})
	return dirty(module)
}

// AddUnparsed records an Unparsed entry in the current generation.
func (m *ReparseMutator) AddUnparsed(key filekey.FileKey, _ *Entry, hash uint64, module string) []string {
	m.write(key, slot{kind: KindUnparsed, hash: hash, module: module})
	return dirty(module)
}

// AddPackage records a Package entry in the current generation.
func (m *ReparseMutator) AddPackage(key filekey.FileKey, _ *Entry, hash uint64, module string, pkg *ports.PackageInfo, pkgErr *ports.ParseError) []string {
	m.write(key, slot{kind: KindPackage, hash: hash, module: module, pkg: pkg, pkgErr: pkgErr})
	return dirty(module)
}

// ClearNotFound records NotFound in the current generation.
func (m *ReparseMutator) ClearNotFound(key filekey.FileKey, module string) []string {
	m.write(key, slot{kind: KindNotFound, module: module})
	return dirty(module)
}

func (m *ReparseMutator) GetFileAddr(key filekey.FileKey) *Entry { return m.t.h.GetFileAddr(key) }
func (m *ReparseMutator) GetParse(e *Entry) *ParsedArtifact      { return m.t.h.GetParse(e) }
func (m *ReparseMutator) GetFileHash(key filekey.FileKey) (uint64, bool) {
	return m.t.h.GetFileHash(key)
}
func (m *ReparseMutator) GetOldFileHash(key filekey.FileKey) (uint64, bool) {
	return m.t.h.GetOldFileHash(key)
}
func (m *ReparseMutator) HasAST(key filekey.FileKey) bool { return m.t.h.HasAST(key) }
func (m *ReparseMutator) InInitTransaction() bool         { return m.t.h.InInitTransaction() }
