package registry

import (
	"context"
	"log/slog"

	"github.com/fsnotify/fsnotify"
)

// Watcher re-scans a pack directory tree whenever a file under it changes,
// keeping a Registry's contents current without a restart.
type Watcher struct {
	registry *Registry
	packsDir string
	logger   *slog.Logger
	watcher  *fsnotify.Watcher
}

// NewWatcher creates a Watcher over packsDir. Call Start to begin watching.
func NewWatcher(r *Registry, packsDir string, logger *slog.Logger) (*Watcher, error) {
	if logger == nil {
		logger = slog.Default()
	}
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	return &Watcher{registry: r, packsDir: packsDir, logger: logger, watcher: fw}, nil
}

// Start adds packsDir (and its immediate pack subdirectories) to the watch
// list and blocks, re-scanning on every write/create/remove event, until ctx
// is cancelled.
func (w *Watcher) Start(ctx context.Context) error {
	if err := w.addDirs(); err != nil {
		return err
	}
	defer w.watcher.Close()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			if _, err := w.registry.ScanPacks(w.packsDir, w.logger); err != nil {
				w.logger.Warn("registry: rescan after fs event failed", "error", err)
			}
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("registry: watcher error", "error", err)
		}
	}
}

func (w *Watcher) addDirs() error {
	if err := w.watcher.Add(w.packsDir); err != nil {
		return err
	}
	entries, err := readDirNames(w.packsDir)
	if err != nil {
		return err
	}
	for _, dir := range entries {
		_ = w.watcher.Add(dir) // best-effort: a pack dir removed between listing and Add is not fatal
	}
	return nil
}
