package engine

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/slicer/sequences/internal/browser"
	"github.com/slicer/sequences/internal/ir"
	"github.com/slicer/sequences/internal/node"
	"github.com/slicer/sequences/internal/scene"
	"github.com/slicer/sequences/internal/store"
)

func builtEngine(t *testing.T) *Engine {
	t.Helper()
	e, _ := newTestEngine(t)
	require.NoError(t, e.Build(reviewScene()))
	require.True(t, e.Browser("review").SetSelectedItemNumber(2))
	return e
}

func TestEngine_ExportOrder(t *testing.T) {
	e := builtEngine(t)
	snap := e.Export()

	assert.Equal(t, formatVersion, snap.Meta[MetaFormatVersion])
	var kinds []store.Kind
	for _, o := range snap.Objects {
		if len(kinds) == 0 || kinds[len(kinds)-1] != o.Kind {
			kinds = append(kinds, o.Kind)
		}
	}
	assert.Equal(t, []store.Kind{
		store.KindNode,
		store.KindSequence, store.KindItem,
		store.KindSequence, store.KindItem,
		store.KindBrowser,
	}, kinds)

	seq := e.Sequence("sync")
	assert.Len(t, snap.Items(seq.ID()), 2)
}

func TestEngine_ImportRoundTripThroughStore(t *testing.T) {
	e := builtEngine(t)
	want := e.Export()

	st, err := store.Open(filepath.Join(t.TempDir(), "workspace.db"))
	require.NoError(t, err)
	defer st.Close()
	ctx := context.Background()
	require.NoError(t, st.Save(ctx, want))
	loaded, err := st.Load(ctx)
	require.NoError(t, err)

	e2, _ := newTestEngine(t, WithIDGenerator(scene.NewSequentialGenerator("r")))
	require.NoError(t, e2.Import(loaded))
	assert.Equal(t, want.Objects, e2.Export().Objects)

	b := e2.Browser("review")
	require.NotNil(t, b)
	s := e2.Sequence("sync")
	require.NotNil(t, s)
	assert.Same(t, e2.Sequence("master"), b.Master())
	assert.Equal(t, 2, b.SelectedItemNumber())
	assert.Equal(t, 12.0, proxyValue(t, b, s))
	assert.Equal(t, 2.0, proxyValue(t, b, b.Master()))

	// the restored browser keeps synchronizing
	require.True(t, b.SetSelectedItemNumber(0))
	probe := b.Proxy(s).(*node.Scalar)
	assert.Equal(t, 10.0, probe.Value)
	probe.Value = 99
	probe.Modified()
	assert.Equal(t, 99.0, itemValue(t, s, "0"))
}

func TestEngine_ImportDoesNotPushRestoredProxies(t *testing.T) {
	e := builtEngine(t)
	snap := e.Export()

	// A proxy saved with content different from its item must not be
	// written back while the workspace loads.
	for i, o := range snap.Objects {
		if o.Kind == store.KindNode && o.Name == "Probe" {
			snap.Objects[i].Content = ir.Object{"value": ir.Float(77), "unit": ir.String("mm")}
		}
	}

	e2, _ := newTestEngine(t)
	require.NoError(t, e2.Import(snap))
	s := e2.Sequence("sync")
	assert.Equal(t, 12.0, itemValue(t, s, "2"))
	assert.Equal(t, 77.0, proxyValue(t, e2.Browser("review"), s))
}

func TestEngine_ImportWithMissingSequence(t *testing.T) {
	e := builtEngine(t)
	snap := e.Export()
	syncID := e.Sequence("sync").ID()

	var kept []store.Object
	for _, o := range snap.Objects {
		if o.ID == syncID || o.ParentID == syncID {
			continue
		}
		kept = append(kept, o)
	}
	snap.Objects = kept

	e2, _ := newTestEngine(t)
	require.NoError(t, e2.Import(snap))
	b := e2.Browser("review")
	require.NotNil(t, b)
	assert.Equal(t, 2, b.Len(), "unresolved entry is kept")
	require.NotNil(t, b.Master())

	require.True(t, b.SetSelectedItemNumber(1))
	assert.Equal(t, 1.0, proxyValue(t, b, b.Master()))
}

func TestEngine_ImportWithMissingMasterReleasesProxies(t *testing.T) {
	e := builtEngine(t)
	master := e.Sequence("master")
	ownedID := e.Browser("review").Proxy(master).ID()
	snap := e.Export()

	var kept []store.Object
	for _, o := range snap.Objects {
		if o.ID == master.ID() || o.ParentID == master.ID() {
			continue
		}
		kept = append(kept, o)
	}
	snap.Objects = kept

	e2, _ := newTestEngine(t)
	require.NoError(t, e2.Import(snap))
	b := e2.Browser("review")
	require.NotNil(t, b)
	require.Nil(t, b.Master())

	assert.False(t, e2.Pull(b))
	assert.Empty(t, b.Proxies())
	_, ok := e2.Scene().Node(ownedID)
	assert.False(t, ok, "owned master proxy is removed")
	_, ok = e2.Scene().NodeByName("Probe")
	assert.True(t, ok, "borrowed proxy stays in the scene")
}

func TestEngine_ImportMalformedSyncProperties(t *testing.T) {
	var logs bytes.Buffer
	prev := slog.Default()
	slog.SetDefault(slog.New(slog.NewTextHandler(&logs, nil)))
	t.Cleanup(func() { slog.SetDefault(prev) })

	e := builtEngine(t)
	snap := e.Export()
	for _, o := range snap.ByKind(store.KindBrowser) {
		for k := range o.Attributes {
			if strings.HasPrefix(k, browser.AttrSyncPropertiesPrefix) {
				o.Attributes[k] = "playback"
			}
		}
	}

	e2, _ := newTestEngine(t)
	require.NoError(t, e2.Import(snap))
	b := e2.Browser("review")
	require.NotNil(t, b)
	for _, entry := range b.Entries() {
		assert.Equal(t, browser.DefaultSyncProperties(), entry.Properties())
	}
	assert.Contains(t, logs.String(), string(ErrCodeMalformedProperties))

	err := NewMalformedPropertiesError(b.ID(), browser.ErrMalformedProperties)
	assert.True(t, IsMalformedProperties(fmt.Errorf("import: %w", err)))
	assert.False(t, IsMissingReference(err))
}

func TestEngine_ImportReplacesWorkspace(t *testing.T) {
	e := builtEngine(t)
	snap := e.Export()

	e2, _ := newTestEngine(t)
	e2.NewSequence("stale")
	e2.NewBrowser("stale")
	require.NoError(t, e2.Import(snap))

	assert.Nil(t, e2.Sequence("stale"))
	assert.Nil(t, e2.Browser("stale"))
	assert.Len(t, e2.Sequences(), 2)
	assert.Len(t, e2.Browsers(), 1)
}

func TestEngine_ImportRejectsUnknownFormatVersion(t *testing.T) {
	e, _ := newTestEngine(t)
	e.NewSequence("kept")

	err := e.Import(store.Snapshot{Meta: map[string]string{MetaFormatVersion: "99"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported format version")
	assert.NotNil(t, e.Sequence("kept"), "workspace untouched")
}
