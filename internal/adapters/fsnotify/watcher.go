// Package fsnotify implements the ports.Watcher interface using
// github.com/fsnotify/fsnotify. The adapter is FileKey-aware: raw filesystem
// events are classified at the boundary, coalesced into a pending key set,
// and delivered as debounced batches — a storm of editor saves to one file
// collapses into a single key in a single batch, sized for one reparse
// transaction.
package fsnotify

import (
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/corey/jsig/internal/filekey"
)

// skipDirs are never watched (matches the discovery walk).
var skipDirs = map[string]bool{
	".git":         true,
	"node_modules": true,
	".hg":          true,
	".idea":        true,
	".vscode":      true,
	"dist":         true,
	"build":        true,
	".jsig":        true,
}

// defaultFlushInterval paces batch delivery when the caller passes 0.
const defaultFlushInterval = 500 * time.Millisecond

// Watcher implements ports.Watcher: it accumulates classified FileKeys and
// flushes them to the batch callback once per interval.
type Watcher struct {
	fw       *fsnotify.Watcher
	interval time.Duration
	done     chan struct{}
	stopOnce sync.Once
	stopErr  error

	mu      sync.Mutex
	pending filekey.Set
}

// NewWatcher creates a watcher that delivers one batch per interval.
// interval <= 0 selects the default.
func NewWatcher(interval time.Duration) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if interval <= 0 {
		interval = defaultFlushInterval
	}
	return &Watcher{
		fw:       fw,
		interval: interval,
		done:     make(chan struct{}),
		pending:  make(filekey.Set),
	}, nil
}

// Watch starts monitoring root recursively. onBatch is called from the
// flush goroutine with each non-empty batch of changed keys; paths that
// classify to no FileKey never reach it.
func (w *Watcher) Watch(root string, onBatch func(batch filekey.Set)) error {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return err
	}

	err = filepath.Walk(absRoot, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return nil // skip inaccessible paths
		}
		if info.IsDir() {
			if skipDirs[info.Name()] && path != absRoot {
				return filepath.SkipDir
			}
			return w.fw.Add(path)
		}
		return nil
	})
	if err != nil {
		return err
	}

	go w.collect()
	go w.flush(onBatch)
	return nil
}

// collect drains filesystem events into the pending key set. Remove and
// rename events pass through too: the reducer classifies a vanished file as
// not-found when it fails to read it.
func (w *Watcher) collect() {
	for {
		select {
		case event, ok := <-w.fw.Events:
			if !ok {
				return
			}
			path := event.Name

			// New directories join the watch list.
			if event.Has(fsnotify.Create) {
				if info, err := os.Stat(path); err == nil && info.IsDir() {
					if !skipDirs[info.Name()] {
						w.fw.Add(path)
					}
				}
			}

			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) &&
				!event.Has(fsnotify.Remove) && !event.Has(fsnotify.Rename) {
				continue
			}
			if underSkippedDir(path) {
				continue
			}
			key, ok := filekey.FromPath(path)
			if !ok {
				continue
			}

			// Set insertion is the debounce: repeated events on one file
			// within a flush window collapse into one key.
			w.mu.Lock()
			w.pending.Add(key)
			w.mu.Unlock()

		case _, ok := <-w.fw.Errors:
			if !ok {
				return
			}
			// Errors are swallowed — fsnotify recovers automatically

		case <-w.done:
			return
		}
	}
}

// flush hands the accumulated keys to onBatch once per interval.
func (w *Watcher) flush(onBatch func(batch filekey.Set)) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			w.mu.Lock()
			if len(w.pending) == 0 {
				w.mu.Unlock()
				continue
			}
			batch := w.pending
			w.pending = make(filekey.Set)
			w.mu.Unlock()
			onBatch(batch)

		case <-w.done:
			return
		}
	}
}

// Stop ends monitoring and releases all resources.
// Safe to call multiple times.
func (w *Watcher) Stop() error {
	w.stopOnce.Do(func() {
		close(w.done)
		w.stopErr = w.fw.Close()
	})
	return w.stopErr
}

// underSkippedDir reports whether any ancestor directory is skipped.
func underSkippedDir(path string) bool {
	dir := filepath.Dir(path)
	for dir != "/" && dir != "." {
		if skipDirs[filepath.Base(dir)] {
			return true
		}
		dir = filepath.Dir(dir)
	}
	return false
}
