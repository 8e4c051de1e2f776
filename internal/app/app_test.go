package app

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/corey/jsig/internal/domain/options"
	"github.com/corey/jsig/internal/filekey"
)

func newTestApp(t *testing.T, root string, global options.GlobalOptions) *App {
	t.Helper()
	a, err := New(Config{ProjectRoot: root, Workers: 2, Global: global})
	require.NoError(t, err)
	t.Cleanup(func() { a.Close() })
	return a
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
}

func TestParseAll_ThenReparseUnchanged(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "a.js"), "// @flow\nexport const x: number = 1;\n")
	writeFile(t, filepath.Join(root, "b.js"), "export const y = 2;\n")
	writeFile(t, filepath.Join(root, "package.json"), `{"name":"proj","main":"./a.js"}`)

	a := newTestApp(t, root, options.GlobalOptions{NodeMainFields: []string{"main"}})

	res, err := a.ParseAll(context.Background())
	require.NoError(t, err)
	assert.Len(t, res.Parsed, 1)
	assert.Len(t, res.Unparsed, 1)
	assert.Len(t, res.PackageKeys, 1)
	assert.Empty(t, res.FailedKeys)

	// Nothing on disk moved: everything is unchanged.
	keys, err := DiscoverFiles(a.ProjectRoot)
	require.NoError(t, err)
	res, err = a.Reparse(context.Background(), keys)
	require.NoError(t, err)
	assert.Len(t, res.Unchanged, 3)
	assert.Empty(t, res.Parsed)
}

func TestReparse_PicksUpEdit(t *testing.T) {
	root := t.TempDir()
	path := filepath.Join(root, "a.js")
	writeFile(t, path, "// @flow\nexport const x: number = 1;\n")

	a := newTestApp(t, root, options.GlobalOptions{})
	_, err := a.ParseAll(context.Background())
	require.NoError(t, err)

	writeFile(t, path, "// @flow\nexport const x: number = 42;\n")
	key, ok := filekey.FromPath(path)
	require.True(t, ok)

	res, err := a.Reparse(context.Background(), filekey.NewSet(key))
	require.NoError(t, err)
	assert.True(t, res.Parsed.Has(key))
	assert.Empty(t, res.Unchanged)
}

func TestSnapshotSurvivesRestart(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "a.js"), "// @flow\nexport const x: number = 1;\n")

	a := newTestApp(t, root, options.GlobalOptions{})
	_, err := a.ParseAll(context.Background())
	require.NoError(t, err)
	require.NoError(t, a.Close())

	// A fresh App restores the committed surface: the reparse sees the file
	// as unchanged without a cold parse.
	a2, err := New(Config{ProjectRoot: root, Workers: 2})
	require.NoError(t, err)
	defer a2.Close()

	keys, err := DiscoverFiles(root)
	require.NoError(t, err)
	res, err := a2.Reparse(context.Background(), keys)
	require.NoError(t, err)
	assert.Len(t, res.Unchanged, 1)
}

func TestDiscoverFiles_SkipsIgnoredDirs(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "a.js"), "// @flow\n")
	writeFile(t, filepath.Join(root, "node_modules", "dep", "index.js"), "module.exports = 1;\n")

	keys, err := DiscoverFiles(root)
	require.NoError(t, err)
	assert.Len(t, keys, 1)
}
