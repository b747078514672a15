package indexer

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"media-picker/internal/logging"
	"media-picker/internal/metrics"
)

// watchLoop re-indexes once filesystem events under the media directory
// have been quiet for the debounce window.
func (idx *Indexer) watchLoop(ctx context.Context) {
	defer idx.wg.Done()

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		logging.Error("Failed to create file watcher: %v", err)
		return
	}
	defer func() {
		if err := watcher.Close(); err != nil {
			logging.Error("failed to close file watcher: %v", err)
		}
	}()

	logging.Info("Watching %d directories under %s", addWatches(watcher, idx.mediaDir), idx.mediaDir)

	timer := time.NewTimer(idx.debounce)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			metrics.IndexerWatchEvents.WithLabelValues(eventOp(event.Op)).Inc()

			if event.Has(fsnotify.Create) {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					addWatches(watcher, event.Name)
				}
			}
			if event.Has(fsnotify.Chmod) && !event.Has(fsnotify.Write) {
				continue
			}
			timer.Reset(idx.debounce)

		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			logging.Error("Watcher error: %v", err)

		case <-timer.C:
			logging.Debug("File changes settled, re-indexing")
			if _, err := idx.Index(ctx); err != nil && !errors.Is(err, ErrAlreadyRunning) && !errors.Is(err, context.Canceled) {
				logging.Error("Re-index after change detection failed: %v", err)
			}

		case <-ctx.Done():
			return
		}
	}
}

// addWatches adds root and every directory below it to watcher.
func addWatches(watcher *fsnotify.Watcher, root string) int {
	count := 0
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() {
			if err := watcher.Add(path); err != nil {
				logging.Warn("failed to add path to watcher %s: %v", path, err)
			} else {
				count++
			}
		}
		return nil
	})
	if err != nil {
		logging.Error("failed to walk %s for watcher: %v", root, err)
	}
	return count
}

func eventOp(op fsnotify.Op) string {
	switch {
	case op.Has(fsnotify.Create):
		return "create"
	case op.Has(fsnotify.Write):
		return "write"
	case op.Has(fsnotify.Remove):
		return "remove"
	case op.Has(fsnotify.Rename):
		return "rename"
	case op.Has(fsnotify.Chmod):
		return "chmod"
	default:
		return "unknown"
	}
}
