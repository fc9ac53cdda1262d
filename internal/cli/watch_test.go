package cli

import (
	"context"
	"io/fs"
	"path/filepath"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/slicer/sequences/internal/ir"
)

const oneItemScene = `
sequence: heart: {class: "Scalar", items: [{at: 0, content: {value: 1}}]}
browser: review: master: "heart"
`

const twoItemScene = `
sequence: heart: {class: "Scalar", items: [{at: 0, content: {value: 1}}, {at: 1, content: {value: 2}}]}
browser: review: master: "heart"
`

// startWatcher runs a watcher on path and returns the channel its reloads
// are delivered on.
func startWatcher(t *testing.T, path string) <-chan ir.Scene {
	t.Helper()
	loads := make(chan ir.Scene, 8)
	w, err := newSceneWatcher(path, func(s ir.Scene) { loads <- s })
	require.NoError(t, err)
	w.debounce = 10 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		assert.NoError(t, w.Run(ctx))
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	return loads
}

func TestSceneWatcher_ReloadsOnWrite(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "scene.cue", oneItemScene)
	loads := startWatcher(t, path)

	writeFile(t, dir, "scene.cue", twoItemScene)

	select {
	case s := <-loads:
		require.Len(t, s.Sequences, 1)
		assert.Len(t, s.Sequences[0].Items, 2)
	case <-time.After(5 * time.Second):
		t.Fatal("no reload after write")
	}
}

func TestSceneWatcher_SkipsInvalidEdit(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "scene.cue", oneItemScene)
	loads := startWatcher(t, path)

	writeFile(t, dir, "scene.cue", `browser: review: master: "missing"`)
	select {
	case <-loads:
		t.Fatal("invalid scene was delivered")
	case <-time.After(300 * time.Millisecond):
	}

	writeFile(t, dir, "scene.cue", twoItemScene)
	select {
	case s := <-loads:
		assert.Len(t, s.Sequences[0].Items, 2)
	case <-time.After(5 * time.Second):
		t.Fatal("no reload after fixing the scene")
	}
}

func TestSceneWatcher_DirectoryIgnoresOtherFiles(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "scene.cue", oneItemScene)
	loads := startWatcher(t, dir)

	writeFile(t, dir, "notes.txt", "not a scene")
	select {
	case <-loads:
		t.Fatal("reload for a non-CUE file")
	case <-time.After(300 * time.Millisecond):
	}
}

func TestSceneWatcher_MissingPath(t *testing.T) {
	_, err := newSceneWatcher(filepath.Join(t.TempDir(), "gone.cue"), func(ir.Scene) {})
	require.Error(t, err)
	assert.ErrorIs(t, err, fs.ErrNotExist)
}

func TestSceneWatcher_Relevant(t *testing.T) {
	dir := t.TempDir()
	scene := writeFile(t, dir, "scene.cue", oneItemScene)
	other := filepath.Join(dir, "other.cue")

	fileWatcher := &sceneWatcher{file: filepath.Clean(scene)}
	dirWatcher := &sceneWatcher{}

	tests := []struct {
		name  string
		w     *sceneWatcher
		event fsnotify.Event
		want  bool
	}{
		{"write to watched file", fileWatcher, fsnotify.Event{Name: scene, Op: fsnotify.Write}, true},
		{"rename of watched file", fileWatcher, fsnotify.Event{Name: scene, Op: fsnotify.Rename}, true},
		{"chmod only", fileWatcher, fsnotify.Event{Name: scene, Op: fsnotify.Chmod}, false},
		{"sibling cue file", fileWatcher, fsnotify.Event{Name: other, Op: fsnotify.Write}, false},
		{"any cue file in directory", dirWatcher, fsnotify.Event{Name: other, Op: fsnotify.Create}, true},
		{"removed cue file", dirWatcher, fsnotify.Event{Name: other, Op: fsnotify.Remove}, true},
		{"non-cue file", dirWatcher, fsnotify.Event{Name: filepath.Join(dir, "x.swp"), Op: fsnotify.Write}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.w.relevant(tt.event))
		})
	}
}
