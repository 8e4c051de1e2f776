package heap

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/corey/jsig/internal/filekey"
	"github.com/corey/jsig/internal/ports"
)

type fakeAST struct{}

func (fakeAST) Close() {}

func art() *ParsedArtifact {
	return &ParsedArtifact{AST: fakeAST{}, Requires: []string{"react"}}
}

func TestParseMutator_WritesBothGenerations(t *testing.T) {
	h := New()
	key := filekey.Source("a.js")
	m := NewParseMutator(h)

	dirty := m.AddParsed(key, nil, 42, "a", art())
	assert.Equal(t, []string{"a"}, dirty)

	cur, ok := h.GetFileHash(key)
	require.True(t, ok)
	old, ok := h.GetOldFileHash(key)
	require.True(t, ok)
	assert.Equal(t, uint64(42), cur)
	assert.Equal(t, uint64(42), old)
	assert.True(t, h.HasAST(key))
	assert.NotNil(t, h.GetParse(h.GetFileAddr(key)))
}

func TestReadSide_UnknownKey(t *testing.T) {
	h := New()
	key := filekey.Source("missing.js")

	assert.Nil(t, h.GetFileAddr(key))
	assert.Nil(t, h.GetParse(nil))
	_, ok := h.GetFileHash(key)
	assert.False(t, ok)
	_, ok = h.GetOldFileHash(key)
	assert.False(t, ok)
	assert.False(t, h.HasAST(key))
}

func TestTxn_CommitAdvancesGenerations(t *testing.T) {
	h := New()
	key := filekey.Source("a.js")
	NewParseMutator(h).AddParsed(key, nil, 1, "a", art())

	txn, err := h.Begin(false)
	require.NoError(t, err)
	m := NewReparseMutator(txn)
	m.AddParsed(key, h.GetFileAddr(key), 2, "a", art())

	// Mid-transaction: current moved, old still the committed generation.
	cur, _ := h.GetFileHash(key)
	old, _ := h.GetOldFileHash(key)
	assert.Equal(t, uint64(2), cur)
	assert.Equal(t, uint64(1), old)

	txn.Commit()
	old, _ = h.GetOldFileHash(key)
	assert.Equal(t, uint64(2), old)
}

func TestTxn_RollbackRestores(t *testing.T) {
	h := New()
	key := filekey.Source("a.js")
	NewParseMutator(h).AddParsed(key, nil, 1, "a", art())

	txn, err := h.Begin(false)
	require.NoError(t, err)
	NewReparseMutator(txn).AddUnparsed(key, h.GetFileAddr(key), 9, "a")

	kind, _ := h.EntryKindOf(key)
	assert.Equal(t, KindUnparsed, kind)

	txn.Rollback()
	kind, _ = h.EntryKindOf(key)
	assert.Equal(t, KindParsed, kind)
	cur, _ := h.GetFileHash(key)
	assert.Equal(t, uint64(1), cur)
}

func TestTxn_RollbackNewEntryLeavesItAbsent(t *testing.T) {
	h := New()
	key := filekey.Source("new.js")

	txn, err := h.Begin(false)
	require.NoError(t, err)
	NewReparseMutator(txn).AddUnparsed(key, nil, 5, "new")
	txn.Rollback()

	_, ok := h.EntryKindOf(key)
	assert.False(t, ok)
	_, ok = h.GetFileHash(key)
	assert.False(t, ok)
}

func TestTxn_RecordNotFound(t *testing.T) {
	h := New()
	key := filekey.Source("gone.js")
	NewParseMutator(h).AddParsed(key, nil, 1, "gone", art())

	txn, err := h.Begin(false)
	require.NoError(t, err)
	txn.RecordNotFound(filekey.NewSet(key))
	txn.Commit()

	kind, ok := h.EntryKindOf(key)
	require.True(t, ok)
	assert.Equal(t, KindNotFound, kind)
	_, ok = h.GetFileHash(key)
	assert.False(t, ok)
}

func TestTxn_SingleActive(t *testing.T) {
	h := New()
	txn, err := h.Begin(true)
	require.NoError(t, err)
	assert.True(t, h.InInitTransaction())

	_, err = h.Begin(false)
	assert.Error(t, err)

	txn.Commit()
	assert.False(t, h.InInitTransaction())

	txn2, err := h.Begin(false)
	require.NoError(t, err)
	assert.False(t, h.InInitTransaction())
	txn2.Rollback()
}

func TestSnapshotRoundTrip(t *testing.T) {
	h := New()
	a := filekey.Source("a.js")
	p := filekey.JSON("pkg/package.json")
	m := NewParseMutator(h)
	m.AddParsed(a, nil, 11, "a", art())
	m.AddPackage(p, nil, 22, "pkg", &ports.PackageInfo{Name: "pkg", Main: "./index.js"}, nil)

	snap := h.Snapshot()
	require.Len(t, snap.Entries, 2)
	assert.Equal(t, ports.SnapParsed, snap.Entries[a].Kind)
	assert.Equal(t, []string{"react"}, snap.Entries[a].Requires)

	h2 := New()
	h2.Restore(snap)
	hash, ok := h2.GetFileHash(a)
	require.True(t, ok)
	assert.Equal(t, uint64(11), hash)
	// ASTs are not persisted: ensure-parsed must repopulate.
	assert.False(t, h2.HasAST(a))
	kind, _ := h2.EntryKindOf(p)
	assert.Equal(t, KindPackage, kind)
}
