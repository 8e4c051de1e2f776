package app

import (
	"context"
	"time"

	fsw "github.com/corey/jsig/internal/adapters/fsnotify"
	"github.com/corey/jsig/internal/ctxlog"
	"github.com/corey/jsig/internal/filekey"
)

// flushInterval batches watcher events into one reparse per tick.
const flushInterval = 500 * time.Millisecond

// WatchAndReparse starts the recursive watcher and reparses each batch of
// changed keys until ctx is cancelled. The watcher coalesces event storms,
// so each delivered batch becomes one transaction.
func (a *App) WatchAndReparse(ctx context.Context) error {
	log := ctxlog.FromContext(ctx)

	w, err := fsw.NewWatcher(flushInterval)
	if err != nil {
		return err
	}
	a.watcher = w

	err = w.Watch(a.ProjectRoot, func(batch filekey.Set) {
		results, err := a.Reparse(ctx, batch)
		if err != nil {
			log.Error("reparse failed", "err", err)
			return
		}
		log.Info("reparsed batch",
			"changed_files", len(batch),
			"parsed", len(results.Parsed),
			"unchanged", len(results.Unchanged),
			"failed", len(results.FailedKeys),
			"dirty_modules", len(results.DirtyModules),
		)
	})
	if err != nil {
		w.Stop()
		return err
	}

	<-ctx.Done()
	return ctx.Err()
}
