package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/slicer/sequences/internal/ir"
)

const watchDebounce = 50 * time.Millisecond

// sceneWatcher recompiles a scene description whenever one of its .cue
// files changes and hands valid results to onLoad. Invalid edits are
// logged and skipped, so the running workspace keeps its last good scene.
type sceneWatcher struct {
	path     string // file or directory passed to LoadScene
	file     string // cleaned path when watching a single file
	watcher  *fsnotify.Watcher
	debounce time.Duration
	onLoad   func(ir.Scene)
}

func newSceneWatcher(path string, onLoad func(ir.Scene)) (*sceneWatcher, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("watch %s: %w", path, err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}

	w := &sceneWatcher{
		path:     path,
		watcher:  watcher,
		debounce: watchDebounce,
		onLoad:   onLoad,
	}
	// Editors often replace files on save, so watch the directory.
	dir := path
	if !info.IsDir() {
		dir = filepath.Dir(path)
		w.file = filepath.Clean(path)
	}
	if err := watcher.Add(dir); err != nil {
		_ = watcher.Close()
		return nil, fmt.Errorf("watch %s: %w", dir, err)
	}
	return w, nil
}

func (w *sceneWatcher) relevant(event fsnotify.Event) bool {
	if filepath.Ext(event.Name) != ".cue" {
		return false
	}
	if w.file != "" && filepath.Clean(event.Name) != w.file {
		return false
	}
	return event.Has(fsnotify.Write) || event.Has(fsnotify.Create) ||
		event.Has(fsnotify.Rename) || event.Has(fsnotify.Remove)
}

// Run delivers reloads until ctx is cancelled. It closes the watcher on
// return.
func (w *sceneWatcher) Run(ctx context.Context) error {
	defer w.watcher.Close()

	var (
		timer *time.Timer
		fire  <-chan time.Time
	)
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			if !w.relevant(event) {
				continue
			}
			slog.Debug("scene file changed", "path", event.Name, "op", event.Op.String())
			if timer == nil {
				timer = time.NewTimer(w.debounce)
			} else {
				timer.Reset(w.debounce)
			}
			fire = timer.C
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			slog.Error("fsnotify error", "error", err)
		case <-fire:
			fire = nil
			w.reload()
		}
	}
}

func (w *sceneWatcher) reload() {
	result, err := loadValidScene(w.path)
	if err != nil {
		slog.Warn("scene reload failed, keeping the current scene", "path", w.path, "error", err)
		return
	}
	slog.Info("scene reloaded", "path", w.path,
		"sequences", len(result.Scene.Sequences),
		"browsers", len(result.Scene.Browsers),
	)
	w.onLoad(result.Scene)
}
