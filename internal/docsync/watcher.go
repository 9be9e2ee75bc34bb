package docsync

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
)

// EventCallback is called after a watcher-driven document change.
// kind is one of "created", "updated", "deleted".
type EventCallback func(kind string, path string)

// Watch starts an fsnotify watcher on the docs root and processes file
// change events until ctx is cancelled. It calls cb (if non-nil) after
// each successful import or removal.
//
// New directories created at runtime are automatically added to the watch
// list. Rename events trigger a reconciliation pass that removes documents
// whose files no longer exist on disk.
func (im *Importer) Watch(ctx context.Context, docsRoot string, cb EventCallback) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	if err := addDirsRecursive(w, docsRoot); err != nil {
		return err
	}

	im.logger.Info("docsync: watcher started", slog.String("root", docsRoot))

	// reconcileTimer is used to debounce rename reconciliation.
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

	for {
		select {
		case <-ctx.Done():
			if reconcileTimer != nil {
				reconcileTimer.Stop()
			}
			im.logger.Info("docsync: watcher stopped")
			return nil

		case <-reconcileCh:
			im.reconcileAfterRename(ctx, cb)

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}

			absPath := ev.Name

			// New directories are added to the watcher; any Markdown
			// already inside them is imported right away.
			if ev.Op&fsnotify.Create != 0 {
				if info, statErr := os.Stat(absPath); statErr == nil && info.IsDir() {
					if addErr := addDirsRecursive(w, absPath); addErr != nil {
						im.logger.Warn("docsync: add new dir failed",
							slog.String("path", absPath),
							slog.String("error", addErr.Error()))
					} else {
						im.logger.Debug("docsync: watching new dir", slog.String("path", absPath))
					}
					im.importNewDir(ctx, docsRoot, absPath, cb)
					continue
				}
			}

			// Only process .md files from here on.
			if !strings.HasSuffix(absPath, ".md") {
				continue
			}

			rel, relErr := filepath.Rel(docsRoot, absPath)
			if relErr != nil {
				continue
			}

			switch {
			case ev.Op&(fsnotify.Create|fsnotify.Write) != 0:
				if impErr := im.importFile(ctx, rel); impErr != nil {
					im.logger.Warn("docsync: import failed", slog.String("path", rel), slog.String("error", impErr.Error()))
					continue
				}
				kind := "updated"
				if ev.Op&fsnotify.Create != 0 {
					kind = "created"
				}
				im.logger.Debug("docsync: imported", slog.String("path", rel), slog.String("op", kind))
				if cb != nil {
					cb(kind, rel)
				}

			case ev.Op&fsnotify.Remove != 0:
				if delErr := im.remove(ctx, rel); delErr != nil {
					im.logger.Warn("docsync: delete failed", slog.String("path", rel), slog.String("error", delErr.Error()))
					continue
				}
				im.logger.Debug("docsync: deleted", slog.String("path", rel))
				if cb != nil {
					cb("deleted", rel)
				}

			case ev.Op&fsnotify.Rename != 0:
				// fsnotify fires Rename on the OLD path only. The new
				// path will arrive as a separate Create event (if it
				// stays within a watched dir). We delete the old entry
				// immediately and schedule a short reconciliation pass
				// to catch any stragglers.
				if delErr := im.remove(ctx, rel); delErr != nil {
					im.logger.Warn("docsync: rename delete failed", slog.String("path", rel), slog.String("error", delErr.Error()))
				} else {
					im.logger.Debug("docsync: rename old deleted", slog.String("path", rel))
					if cb != nil {
						cb("deleted", rel)
					}
				}
				scheduleReconcile()
			}

		case watchErr, ok := <-w.Errors:
			if !ok {
				return nil
			}
			im.logger.Error("docsync: watcher error", slog.String("error", watchErr.Error()))
		}
	}
}

// reconcileAfterRename finds documents without a corresponding file on disk
// and removes them, and imports on-disk files that have no document yet.
func (im *Importer) reconcileAfterRename(ctx context.Context, cb EventCallback) {
	imported, err := im.db.ImportedDocuments(im.repoID)
	if err != nil {
		im.logger.Warn("docsync: reconcile lookup failed", slog.String("error", err.Error()))
		return
	}

	metas, err := im.files.List("")
	if err != nil {
		im.logger.Warn("docsync: reconcile list failed", slog.String("error", err.Error()))
		return
	}

	disk := make(map[string]struct{}, len(metas))
	for _, m := range metas {
		disk[m.Path] = struct{}{}
	}

	for src := range imported {
		if _, ok := disk[src]; !ok {
			if delErr := im.remove(ctx, src); delErr == nil {
				im.logger.Debug("docsync: reconcile removed stale", slog.String("path", src))
				if cb != nil {
					cb("deleted", src)
				}
			}
		}
	}

	for src := range disk {
		if _, ok := imported[src]; ok {
			continue
		}
		if impErr := im.importFile(ctx, src); impErr == nil {
			im.logger.Debug("docsync: reconcile imported", slog.String("path", src))
			if cb != nil {
				cb("created", src)
			}
		}
	}
}

// importNewDir imports any .md files found in a newly created directory.
func (im *Importer) importNewDir(ctx context.Context, docsRoot, dirPath string, cb EventCallback) {
	_ = filepath.WalkDir(dirPath, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() || !strings.HasSuffix(path, ".md") {
			return nil
		}
		rel, relErr := filepath.Rel(docsRoot, path)
		if relErr != nil {
			return nil
		}
		if impErr := im.importFile(ctx, rel); impErr == nil {
			im.logger.Debug("docsync: imported from new dir", slog.String("path", rel))
			if cb != nil {
				cb("created", rel)
			}
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
