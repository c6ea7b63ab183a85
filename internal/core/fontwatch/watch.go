// Package fontwatch notices font installs and fontconfig cache rebuilds so
// that running applications can be told to reload their fonts.
package fontwatch

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/zeusync/xsyncd/internal/core/loop"
	"github.com/zeusync/xsyncd/internal/core/observability/log"
)

const DefaultDebounce = 2 * time.Second

type Watcher struct {
	dirs      []string
	debounce  time.Duration
	scheduler loop.Scheduler
	onChange  func()
	logger    log.Log

	// pending and generation are only touched on the loop goroutine.
	pending    loop.Stopper
	generation uint64
}

// New returns a watcher that calls onChange on the loop once a burst of
// filesystem events in dirs has been quiet for debounce.
func New(dirs []string, debounce time.Duration, scheduler loop.Scheduler, onChange func(), logger log.Log) *Watcher {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	return &Watcher{
		dirs:      dirs,
		debounce:  debounce,
		scheduler: scheduler,
		onChange:  onChange,
		logger:    logger.With(log.String("component", "fontwatch")),
	}
}

// Run watches until ctx is cancelled. Directories that do not exist are
// skipped.
func (w *Watcher) Run(ctx context.Context) error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("fontconfig watcher: %w", err)
	}
	defer fsw.Close()

	watched := 0
	for _, dir := range w.dirs {
		if err := fsw.Add(dir); err != nil {
			if errors.Is(err, os.ErrNotExist) {
				w.logger.Debug("Skipping missing font directory", log.String("dir", dir))
				continue
			}
			w.logger.Warn("Cannot watch font directory", log.String("dir", dir), log.Error(err))
			continue
		}
		watched++
	}
	w.logger.Info("Watching font directories", log.Int("count", watched))

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			if ev.Op == fsnotify.Chmod {
				continue
			}
			w.scheduler.Post(w.kick)
		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("Font watcher error", log.Error(err))
		}
	}
}

func (w *Watcher) kick() {
	if w.pending != nil {
		w.pending.Stop()
	}
	w.generation++
	gen := w.generation
	w.pending = w.scheduler.AfterFunc(w.debounce, func() {
		// A timer that fired just before being stopped may still arrive.
		if gen != w.generation {
			return
		}
		w.pending = nil
		w.onChange()
	})
}
