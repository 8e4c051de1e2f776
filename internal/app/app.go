// Package app wires together all adapters and the parsing core. It provides
// lifecycle management for a project: open, parse, reparse, snapshot, close.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/corey/jsig/internal/adapters/bbolt"
	fsw "github.com/corey/jsig/internal/adapters/fsnotify"
	"github.com/corey/jsig/internal/adapters/treesitter"
	"github.com/corey/jsig/internal/dispatch"
	"github.com/corey/jsig/internal/domain/docblock"
	"github.com/corey/jsig/internal/domain/options"
	"github.com/corey/jsig/internal/filekey"
	"github.com/corey/jsig/internal/heap"
	"github.com/corey/jsig/internal/parsing"
	"github.com/corey/jsig/internal/ports"
)

// skipDirs lists directories never scanned for inputs (matches the watcher).
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

// maxFileSize skips pathological inputs.
const maxFileSize = 16 << 20

// Config carries the per-project construction settings.
type Config struct {
	ProjectRoot string
	ProjectID   string
	Workers     int
	Global      options.GlobalOptions
	Blobs       ports.BlobStore // nil unless distributed mode is configured
	Log         *slog.Logger
	Profile     bool
}

// App is the top-level container wiring all components together.
type App struct {
	ProjectRoot string
	ProjectID   string

	Heap   *heap.Heap
	Store  *bbolt.Store
	Driver *parsing.Driver

	watcher *fsw.Watcher
	global  options.GlobalOptions
	log     *slog.Logger
}

// New opens the project store, restores the last committed heap surface, and
// builds the parse driver over the tree-sitter adapters.
func New(cfg Config) (*App, error) {
	absRoot, err := filepath.Abs(cfg.ProjectRoot)
	if err != nil {
		return nil, err
	}
	if cfg.ProjectID == "" {
		cfg.ProjectID = filepath.Base(absRoot)
	}
	log := cfg.Log
	if log == nil {
		log = slog.Default()
	}

	stateDir := filepath.Join(absRoot, ".jsig")
	if err := os.MkdirAll(stateDir, 0755); err != nil {
		return nil, fmt.Errorf("create state dir: %w", err)
	}
	store, err := bbolt.NewStore(filepath.Join(stateDir, "jsig.db"))
	if err != nil {
		return nil, err
	}

	h := heap.New()
	snap, err := store.LoadSnapshot(cfg.ProjectID)
	if err != nil {
		store.Close()
		return nil, err
	}
	h.Restore(snap)

	driver := &parsing.Driver{
		Pool:      dispatch.NewPool(cfg.Workers),
		Heap:      h,
		Parser:    treesitter.NewParser(),
		Sig:       treesitter.NewSigExtractor(),
		Packer:    treesitter.NewSigPacker(),
		Scope:     treesitter.NewScopeExtractor(),
		Docblocks: docblock.New(),
		Blobs:     cfg.Blobs,
		Exns:      &parsing.RateLimitedExnLogger{},
		Log:       log,
		Profile:   cfg.Profile,
	}

	return &App{
		ProjectRoot: absRoot,
		ProjectID:   cfg.ProjectID,
		Heap:        h,
		Store:       store,
		Driver:      driver,
		global:      cfg.Global,
		log:         log,
	}, nil
}

// Close stops the watcher (if running) and closes the store.
func (a *App) Close() error {
	if a.watcher != nil {
		a.watcher.Stop()
	}
	return a.Store.Close()
}

func (a *App) runOptions(initial bool) parsing.Options {
	return parsing.Options{
		Parsing: options.Resolve(a.global, options.Overrides{}),
		Initial: initial,
	}
}

// ParseAll discovers every input under the project root, runs the cold parse
// flow, and persists the committed surface.
func (a *App) ParseAll(ctx context.Context) (*parsing.Results, error) {
	keys, err := DiscoverFiles(a.ProjectRoot)
	if err != nil {
		return nil, err
	}
	results, err := a.Driver.Parse(ctx, keys, a.runOptions(true))
	if err != nil {
		return nil, err
	}
	if err := a.Store.SaveSnapshot(a.ProjectID, a.Heap.Snapshot()); err != nil {
		a.log.Warn("snapshot save failed", "err", err)
	}
	return results, nil
}

// Reparse runs the incremental flow over keys and persists the new surface.
func (a *App) Reparse(ctx context.Context, keys filekey.Set) (*parsing.Results, error) {
	results, err := a.Driver.Reparse(ctx, keys, a.runOptions(false))
	if err != nil {
		return nil, err
	}
	if err := a.Store.SaveSnapshot(a.ProjectID, a.Heap.Snapshot()); err != nil {
		a.log.Warn("snapshot save failed", "err", err)
	}
	return results, nil
}

// EnsureParsed makes sure every key has a live AST and returns the keys that
// could not be brought up to date (changed or missing on disk).
func (a *App) EnsureParsed(ctx context.Context, keys filekey.Set) (filekey.Set, error) {
	return a.Driver.EnsureParsed(ctx, keys, a.runOptions(false))
}

// DiscoverFiles walks root collecting every input key.
func DiscoverFiles(root string) (filekey.Set, error) {
	keys := make(filekey.Set)
	err := filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return nil // skip unreadable
		}
		if info.IsDir() {
			if skipDirs[info.Name()] {
				return filepath.SkipDir
			}
			return nil
		}
		if info.Size() > maxFileSize {
			return nil
		}
		if key, ok := filekey.FromPath(path); ok {
			keys.Add(key)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return keys, nil
}
