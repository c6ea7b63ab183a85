package settings

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/fsnotify/fsnotify"

	"github.com/zeusync/xsyncd/internal/core/observability/log"
)

// Watch follows the backing file and hands a reload to post whenever it is
// written, created or replaced. The parent directory is watched because
// editors and Set both replace the file by rename. Watch blocks until ctx is
// cancelled.
func (s *Store) Watch(ctx context.Context, post func(func()), logger log.Log) error {
	if s.path == "" {
		<-ctx.Done()
		return nil
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("settings watcher: %w", err)
	}
	defer watcher.Close()

	dir := filepath.Dir(s.path)
	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("watch %s: %w", dir, err)
	}

	target := filepath.Clean(s.path)
	const relevant = fsnotify.Write | fsnotify.Create | fsnotify.Rename | fsnotify.Remove

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != target || ev.Op&relevant == 0 {
				continue
			}
			post(func() {
				if err := s.Reload(); err != nil {
					logger.Warn("Settings reload failed, keeping previous values",
						log.String("path", s.path), log.Error(err))
				}
			})
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Warn("Settings watcher error", log.Error(err))
		}
	}
}
