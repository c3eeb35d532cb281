package out

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	hclog "github.com/hashicorp/go-hclog"

	settingsout "geowatch/internal/modules/settings/port/out"
	"geowatch/internal/platform/logging"
)

// FileWatcher watches the directory holding the settings file, since editors
// and Save replace the file rather than write it in place.
type FileWatcher struct {
	path   string
	logger hclog.Logger
}

func NewFileWatcher(path string, logger hclog.Logger) settingsout.ChangeWatcher {
	return &FileWatcher{path: path, logger: logging.OrDiscard(logger).Named("settings-watcher")}
}

func (w *FileWatcher) Changes(ctx context.Context) (<-chan struct{}, error) {
	dir := filepath.Dir(w.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create settings dir: %w", err)
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	if err := watcher.Add(dir); err != nil {
		_ = watcher.Close()
		return nil, fmt.Errorf("watch %s: %w", dir, err)
	}

	out := make(chan struct{}, 1)
	target := filepath.Clean(w.path)
	go func() {
		defer close(out)
		defer watcher.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Clean(event.Name) != target {
					continue
				}
				if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
					continue
				}
				// Coalesce bursts: one pending signal is enough.
				select {
				case out <- struct{}{}:
				default:
				}
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				w.logger.Warn("settings watcher error", "error", err)
			}
		}
	}()
	return out, nil
}
