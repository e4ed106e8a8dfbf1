// Package watcher keeps the index and link graph in sync with external
// edits to the vault while the server is running.
package watcher

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/corvid-labs/fuda/internal/scope"
)

// ReindexFunc rebuilds the index and link graph for one scope root. The
// watcher does not interpret individual events; any change inside a vault
// schedules a debounced full rebuild of that scope.
type ReindexFunc func(root scope.Root) error

// EventCallback is called after a watcher-driven rebuild completes.
type EventCallback func(root scope.Root)

const debounceDelay = 200 * time.Millisecond

// Watch starts an fsnotify watcher over the vault directories of the given
// roots and processes events until ctx is cancelled. New directories
// created at runtime are added to the watch list automatically.
func Watch(ctx context.Context, roots []scope.Root, vaultDirs map[scope.Scope]string, reindex ReindexFunc, logger *slog.Logger, cb EventCallback) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	for _, root := range roots {
		dir := vaultDirs[root.Scope]
		if err := addDirsRecursive(w, dir); err != nil {
			return err
		}
		logger.Info("watcher: started", slog.String("scope", string(root.Scope)), slog.String("dir", dir))
	}

	// One debounce timer per scope so a burst of edits in one vault does
	// not delay the rebuild of the other.
	timers := make(map[scope.Scope]*time.Timer, len(roots))
	fired := make(chan scope.Root, len(roots)*2)

	schedule := func(root scope.Root) {
		if t, ok := timers[root.Scope]; ok {
			t.Reset(debounceDelay)
			return
		}
		timers[root.Scope] = time.AfterFunc(debounceDelay, func() {
			select {
			case fired <- root:
			case <-ctx.Done():
			}
		})
	}

	ownerOf := func(path string) (scope.Root, bool) {
		for _, root := range roots {
			dir := vaultDirs[root.Scope]
			if path == dir || strings.HasPrefix(path, dir+string(os.PathSeparator)) {
				return root, true
			}
		}
		return scope.Root{}, false
	}

	for {
		select {
		case <-ctx.Done():
			for _, t := range timers {
				t.Stop()
			}
			logger.Info("watcher: stopped")
			return nil

		case root := <-fired:
			if err := reindex(root); err != nil {
				logger.Warn("watcher: reindex failed",
					slog.String("scope", string(root.Scope)),
					slog.String("error", err.Error()))
				continue
			}
			logger.Debug("watcher: reindexed", slog.String("scope", string(root.Scope)))
			if cb != nil {
				cb(root)
			}

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}

			root, ok := ownerOf(ev.Name)
			if !ok {
				continue
			}

			if ev.Op&fsnotify.Create != 0 {
				if info, statErr := os.Stat(ev.Name); statErr == nil && info.IsDir() {
					if addErr := addDirsRecursive(w, ev.Name); addErr != nil {
						logger.Warn("watcher: add new dir failed",
							slog.String("path", ev.Name),
							slog.String("error", addErr.Error()))
					}
					schedule(root)
					continue
				}
			}

			if !strings.HasSuffix(ev.Name, ".md") {
				continue
			}
			if ev.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) != 0 {
				schedule(root)
			}

		case watchErr, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Error("watcher: error", slog.String("error", watchErr.Error()))
		}
	}
}

// addDirsRecursive adds root and all its subdirectories to the watcher.
// A missing directory is not an error; it will be picked up once created
// by a parent watch.
func addDirsRecursive(w *fsnotify.Watcher, root string) error {
	if _, err := os.Stat(root); os.IsNotExist(err) {
		return nil
	}
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
