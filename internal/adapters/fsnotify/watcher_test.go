package fsnotify

import (
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/corey/jsig/internal/filekey"
)

// batchCollector accumulates delivered batches for assertions.
type batchCollector struct {
	mu      sync.Mutex
	batches []filekey.Set
}

func (c *batchCollector) add(batch filekey.Set) {
	c.mu.Lock()
	c.batches = append(c.batches, batch)
	c.mu.Unlock()
}

func (c *batchCollector) allKeys() filekey.Set {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make(filekey.Set)
	for _, b := range c.batches {
		out.Union(b)
	}
	return out
}

func (c *batchCollector) waitForKey(t *testing.T, key filekey.FileKey) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if c.allKeys().Has(key) {
			return
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatalf("key %s never delivered", key)
}

func newTestWatcher(t *testing.T, root string, c *batchCollector) *Watcher {
	t.Helper()
	w, err := NewWatcher(50 * time.Millisecond)
	require.NoError(t, err)
	t.Cleanup(func() { w.Stop() })
	require.NoError(t, w.Watch(root, c.add))
	return w
}

func TestWatch_DeliversClassifiedKeys(t *testing.T) {
	root := t.TempDir()
	c := &batchCollector{}
	newTestWatcher(t, root, c)

	jsPath := filepath.Join(root, "a.js")
	require.NoError(t, os.WriteFile(jsPath, []byte("// @flow\n"), 0644))
	// Unclassifiable paths never reach the callback.
	require.NoError(t, os.WriteFile(filepath.Join(root, "notes.md"), []byte("x"), 0644))

	key, ok := filekey.FromPath(jsPath)
	require.True(t, ok)
	c.waitForKey(t, key)

	for _, b := range c.batches {
		for k := range b {
			assert.NotEqual(t, "notes.md", filepath.Base(k.Path))
		}
	}
}

func TestWatch_CoalescesRapidWrites(t *testing.T) {
	root := t.TempDir()
	c := &batchCollector{}
	newTestWatcher(t, root, c)

	path := filepath.Join(root, "a.js")
	for i := 0; i < 10; i++ {
		require.NoError(t, os.WriteFile(path, []byte("// @flow\n"), 0644))
	}

	key, ok := filekey.FromPath(path)
	require.True(t, ok)
	c.waitForKey(t, key)

	// Ten writes inside one flush window appear as one key per batch, not
	// ten batch entries.
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, b := range c.batches {
		assert.LessOrEqual(t, len(b), 1)
	}
}

func TestWatch_SkipsIgnoredDirs(t *testing.T) {
	root := t.TempDir()
	nm := filepath.Join(root, "node_modules", "dep")
	require.NoError(t, os.MkdirAll(nm, 0755))

	c := &batchCollector{}
	newTestWatcher(t, root, c)

	require.NoError(t, os.WriteFile(filepath.Join(nm, "index.js"), []byte("x"), 0644))
	good := filepath.Join(root, "b.js")
	require.NoError(t, os.WriteFile(good, []byte("// @flow\n"), 0644))

	key, ok := filekey.FromPath(good)
	require.True(t, ok)
	c.waitForKey(t, key)

	for k := range c.allKeys() {
		assert.NotContains(t, k.Path, "node_modules")
	}
}

func TestStop_Twice(t *testing.T) {
	w, err := NewWatcher(0)
	require.NoError(t, err)
	require.NoError(t, w.Watch(t.TempDir(), func(filekey.Set) {}))
	assert.NoError(t, w.Stop())
	assert.NoError(t, w.Stop())
}
