package bbolt

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/corey/jsig/internal/filekey"
	"github.com/corey/jsig/internal/ports"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := NewStore(filepath.Join(t.TempDir(), "jsig.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestSaveLoadSnapshot(t *testing.T) {
	store := newTestStore(t)

	snap := &ports.HeapSnapshot{Entries: map[filekey.FileKey]ports.SnapshotEntry{
		filekey.Source("src/a.js"): {
			Kind: ports.SnapParsed, Hash: 42, Module: "a",
			Requires: []string{"react"}, CASDigest: "d1",
		},
		filekey.JSON("package.json"): {
			Kind: ports.SnapPackage, Hash: 7, Module: "pkg",
			Package: &ports.PackageInfo{Name: "pkg", Main: "./index.js"},
		},
	}}
	require.NoError(t, store.SaveSnapshot("proj", snap))

	got, err := store.LoadSnapshot("proj")
	require.NoError(t, err)
	require.NotNil(t, got)
	require.Len(t, got.Entries, 2)

	a := got.Entries[filekey.Source("src/a.js")]
	assert.Equal(t, ports.SnapParsed, a.Kind)
	assert.Equal(t, uint64(42), a.Hash)
	assert.Equal(t, []string{"react"}, a.Requires)

	p := got.Entries[filekey.JSON("package.json")]
	require.NotNil(t, p.Package)
	assert.Equal(t, "pkg", p.Package.Name)
}

func TestLoadSnapshot_FreshProject(t *testing.T) {
	store := newTestStore(t)
	got, err := store.LoadSnapshot("nothing")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestSaveSnapshot_Overwrites(t *testing.T) {
	store := newTestStore(t)

	first := &ports.HeapSnapshot{Entries: map[filekey.FileKey]ports.SnapshotEntry{
		filekey.Source("a.js"): {Kind: ports.SnapParsed, Hash: 1},
	}}
	require.NoError(t, store.SaveSnapshot("proj", first))

	second := &ports.HeapSnapshot{Entries: map[filekey.FileKey]ports.SnapshotEntry{
		filekey.Source("b.js"): {Kind: ports.SnapUnparsed, Hash: 2},
	}}
	require.NoError(t, store.SaveSnapshot("proj", second))

	got, err := store.LoadSnapshot("proj")
	require.NoError(t, err)
	require.Len(t, got.Entries, 1)
	_, ok := got.Entries[filekey.Source("b.js")]
	assert.True(t, ok)
}

func TestDeleteProject_Idempotent(t *testing.T) {
	store := newTestStore(t)
	require.NoError(t, store.DeleteProject("ghost"))

	snap := &ports.HeapSnapshot{Entries: map[filekey.FileKey]ports.SnapshotEntry{
		filekey.Source("a.js"): {Kind: ports.SnapParsed},
	}}
	require.NoError(t, store.SaveSnapshot("proj", snap))
	require.NoError(t, store.DeleteProject("proj"))

	got, err := store.LoadSnapshot("proj")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestEntryKey_RoundTripsPathsWithColons(t *testing.T) {
	key := filekey.Source("weird:path/a.js")
	parsed, err := parseEntryKey(entryKey(key))
	require.NoError(t, err)
	assert.Equal(t, key, parsed)
}
