package index

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/starford/livetag/internal/samples"
	"github.com/starford/livetag/internal/storage"
)

// Event kinds passed to EventCallback.
const (
	EventCreated = "created"
	EventUpdated = "updated"
	EventDeleted = "deleted"
)

// EventCallback is called after a watcher-driven catalog change with the
// slash-separated path of the folder document.
type EventCallback func(kind string, path string)

// Watch starts an fsnotify watcher on the library root and processes file
// change events until ctx is cancelled. Only folder metadata documents are
// indexed; everything else is ignored. It calls cb (if non-nil) after each
// successful catalog mutation.
//
// New directories created at runtime are automatically added to the watch
// list. Rename events trigger a reconciliation pass that removes stale
// catalog entries whose documents no longer exist on disk.
func Watch(ctx context.Context, db *DB, store storage.Provider, logger *slog.Logger, cb EventCallback) error {
	root := store.Root()
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	if err := addDirsRecursive(w, root); err != nil {
		return err
	}

	logger.Info("watcher: started", slog.String("root", root))

	// reconcileTimer debounces rename reconciliation.
	var reconcileTimer *time.Timer
	var reconcileCh <-chan time.Time

	scheduleReconcile := func() {
		if reconcileTimer == nil {
			reconcileTimer = time.NewTimer(200 * time.Millisecond)
			reconcileCh = reconcileTimer.C
		} else {
			reconcileTimer.Reset(200 * time.Millisecond)
		}
	}

	notify := func(kind, rel string) {
		if cb != nil {
			cb(kind, rel)
		}
	}

	for {
		select {
		case <-ctx.Done():
			if reconcileTimer != nil {
				reconcileTimer.Stop()
			}
			logger.Info("watcher: stopped")
			return nil

		case <-reconcileCh:
			reconcile(db, store, logger, notify)

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}

			absPath := ev.Name

			// New directories (including a fresh "Ableton Folder Info")
			// are watched and scanned for documents already inside.
			if ev.Op&fsnotify.Create != 0 {
				if info, statErr := os.Stat(absPath); statErr == nil && info.IsDir() {
					if addErr := addDirsRecursive(w, absPath); addErr != nil {
						logger.Warn("watcher: add new dir failed",
							slog.String("path", absPath),
							slog.String("error", addErr.Error()))
					} else {
						logger.Debug("watcher: watching new dir", slog.String("path", absPath))
					}
					indexNewDir(db, store, root, absPath, logger, notify)
					continue
				}
			}

			if !samples.IsFolderDocument(absPath) {
				// A renamed or removed directory may take documents with it.
				if ev.Op&(fsnotify.Rename|fsnotify.Remove) != 0 {
					scheduleReconcile()
				}
				continue
			}

			rel, relErr := filepath.Rel(root, absPath)
			if relErr != nil {
				continue
			}
			rel = filepath.ToSlash(rel)

			switch {
			case ev.Op&(fsnotify.Create|fsnotify.Write) != 0:
				data, readErr := store.Read(rel)
				if readErr != nil {
					logger.Warn("watcher: read failed", slog.String("path", rel), slog.String("error", readErr.Error()))
					continue
				}
				if idxErr := IndexDocument(db, rel, data); idxErr != nil {
					logger.Warn("watcher: index failed", slog.String("path", rel), slog.String("error", idxErr.Error()))
					continue
				}
				kind := EventUpdated
				if ev.Op&fsnotify.Create != 0 {
					kind = EventCreated
				}
				logger.Debug("watcher: indexed", slog.String("path", rel), slog.String("op", kind))
				notify(kind, rel)

			case ev.Op&fsnotify.Remove != 0:
				if delErr := db.DeleteFolder(rel); delErr != nil {
					logger.Warn("watcher: delete failed", slog.String("path", rel), slog.String("error", delErr.Error()))
					continue
				}
				logger.Debug("watcher: deleted", slog.String("path", rel))
				notify(EventDeleted, rel)

			case ev.Op&fsnotify.Rename != 0:
				// fsnotify fires Rename on the old path only; the new path
				// arrives as a separate Create when it stays in a watched
				// dir. A short reconciliation pass catches the rest.
				if delErr := db.DeleteFolder(rel); delErr != nil {
					logger.Warn("watcher: rename delete failed", slog.String("path", rel), slog.String("error", delErr.Error()))
				} else {
					logger.Debug("watcher: rename old deleted", slog.String("path", rel))
					notify(EventDeleted, rel)
				}
				scheduleReconcile()
			}

		case watchErr, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Error("watcher: error", slog.String("error", watchErr.Error()))
		}
	}
}

// reconcile removes catalog entries without a document on disk and indexes
// documents whose checksum changed.
func reconcile(db *DB, store storage.Provider, logger *slog.Logger, notify func(kind, rel string)) {
	checksums, err := db.AllChecksums()
	if err != nil {
		logger.Warn("reconcile: all checksums failed", slog.String("error", err.Error()))
		return
	}

	metas, err := store.List("")
	if err != nil {
		logger.Warn("reconcile: list failed", slog.String("error", err.Error()))
		return
	}

	disk := make(map[string]string, len(metas))
	for _, m := range metas {
		disk[m.Path] = m.Checksum
	}

	for p := range checksums {
		if _, ok := disk[p]; ok {
			continue
		}
		if delErr := db.DeleteFolder(p); delErr == nil {
			logger.Debug("reconcile: removed stale", slog.String("path", p))
			notify(EventDeleted, p)
		}
	}

	for p, cs := range disk {
		if checksums[p] == cs {
			continue
		}
		data, readErr := store.Read(p)
		if readErr != nil {
			continue
		}
		if idxErr := IndexDocument(db, p, data); idxErr == nil {
			logger.Debug("reconcile: indexed new", slog.String("path", p))
			notify(EventCreated, p)
		}
	}
}

// indexNewDir indexes any folder documents found in a newly created directory.
func indexNewDir(db *DB, store storage.Provider, root, dirPath string, logger *slog.Logger, notify func(kind, rel string)) {
	_ = filepath.WalkDir(dirPath, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() || !samples.IsFolderDocument(path) {
			return nil
		}
		rel, relErr := filepath.Rel(root, path)
		if relErr != nil {
			return nil
		}
		rel = filepath.ToSlash(rel)
		data, readErr := store.Read(rel)
		if readErr != nil {
			return nil
		}
		if idxErr := IndexDocument(db, rel, data); idxErr == nil {
			logger.Debug("watcher: indexed from new dir", slog.String("path", rel))
			notify(EventCreated, rel)
		}
		return nil
	})
}

// addDirsRecursive adds root and all its subdirectories to the watcher.
func addDirsRecursive(w *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return w.Add(path)
		}
		return nil
	})
}
