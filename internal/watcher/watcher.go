// Package watcher reports note changes made on disk outside the API.
package watcher

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"

	"github.com/j-shelfwood/obsidian-local-rest-api/internal/sse"
	"github.com/j-shelfwood/obsidian-local-rest-api/internal/vault"
)

// Callback receives a change for a vault-relative note path.
type Callback func(kind sse.Kind, path string)

// Watch watches vaultRoot recursively until ctx is cancelled and calls cb
// for every Markdown file created, updated or removed. Directories created
// at runtime are added to the watch list; hidden directories are ignored.
//
// Atomic saves arrive as a create on the final name, so the watcher keeps
// the set of notes it has seen to tell a new note from a replaced one.
func Watch(ctx context.Context, vaultRoot string, logger *slog.Logger, cb Callback) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	known := make(map[string]struct{})
	if err := addDirsRecursive(w, vaultRoot, vaultRoot, known); err != nil {
		return err
	}
	logger.Info("watcher: started", slog.String("root", vaultRoot), slog.Int("notes", len(known)))

	emit := func(kind sse.Kind, rel string) {
		logger.Debug("watcher: change", slog.String("path", rel), slog.String("op", string(kind)))
		if cb != nil {
			cb(kind, rel)
		}
	}

	for {
		select {
		case <-ctx.Done():
			logger.Info("watcher: stopped")
			return nil

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			abs := ev.Name
			if hidden(vaultRoot, abs) {
				continue
			}

			if ev.Op&fsnotify.Create != 0 {
				if info, statErr := os.Stat(abs); statErr == nil && info.IsDir() {
					before := len(known)
					if addErr := addDirsRecursive(w, vaultRoot, abs, known); addErr != nil {
						logger.Warn("watcher: add new dir failed",
							slog.String("path", abs),
							slog.String("error", addErr.Error()))
					}
					// Notes moved in with the directory.
					if len(known) > before {
						_ = filepath.WalkDir(abs, func(p string, d fs.DirEntry, err error) error {
							if err == nil && !d.IsDir() && vault.IsMarkdown(p) {
								emit(sse.Created, relPath(vaultRoot, p))
							}
							return nil
						})
					}
					continue
				}
			}

			if !vault.IsMarkdown(abs) {
				continue
			}
			rel := relPath(vaultRoot, abs)
			if rel == "" {
				continue
			}

			switch {
			case ev.Op&(fsnotify.Create|fsnotify.Write) != 0:
				kind := sse.Updated
				if _, seen := known[rel]; !seen {
					kind = sse.Created
					known[rel] = struct{}{}
				}
				emit(kind, rel)

			case ev.Op&(fsnotify.Remove|fsnotify.Rename) != 0:
				// Rename fires on the old name; the new name arrives as a Create.
				delete(known, rel)
				emit(sse.Deleted, rel)
			}

		case watchErr, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Error("watcher: error", slog.String("error", watchErr.Error()))
		}
	}
}

func relPath(root, abs string) string {
	rel, err := filepath.Rel(root, abs)
	if err != nil || strings.HasPrefix(rel, "..") {
		return ""
	}
	return filepath.ToSlash(rel)
}

// hidden reports whether abs lies in or is a dot-prefixed entry below root.
func hidden(root, abs string) bool {
	rel := relPath(root, abs)
	for _, part := range strings.Split(rel, "/") {
		if strings.HasPrefix(part, ".") && part != "." {
			return true
		}
	}
	return false
}

// addDirsRecursive watches dir and every visible subdirectory, recording the
// notes found on the way.
func addDirsRecursive(w *fsnotify.Watcher, root, dir string, known map[string]struct{}) error {
	return filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if p != dir && strings.HasPrefix(d.Name(), ".") {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			return w.Add(p)
		}
		if vault.IsMarkdown(p) {
			known[relPath(root, p)] = struct{}{}
		}
		return nil
	})
}
