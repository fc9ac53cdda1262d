package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/slicer/sequences/internal/browser"
	"github.com/slicer/sequences/internal/ir"
	"github.com/slicer/sequences/internal/node"
)

func scalarItem(value string, f float64) ir.ItemSpec {
	return ir.ItemSpec{
		IndexValue: value,
		Class:      "Scalar",
		Content:    ir.Object{"value": ir.Float(f), "unit": ir.String("mm")},
	}
}

// reviewScene is a master with three items and a sparse sequence shown
// through an existing scene node.
func reviewScene() ir.Scene {
	return ir.Scene{
		Sequences: []ir.SequenceSpec{
			{Name: "master", DataNodeClass: "Scalar", Items: []ir.ItemSpec{
				scalarItem("0", 0), scalarItem("1", 1), scalarItem("2", 2),
			}},
			{Name: "sync", DataNodeClass: "Scalar", Items: []ir.ItemSpec{
				scalarItem("0", 10), scalarItem("2", 12),
			}},
		},
		Browsers: []ir.BrowserSpec{{
			Name:   "review",
			Master: "master",
			Synchronized: []ir.SyncSpec{{
				Sequence:    "sync",
				Proxy:       "Probe",
				Playback:    true,
				SaveChanges: true,
				MissingItem: "setToDefault",
			}},
			PlaybackRateFps:   "25",
			PlaybackLooped:    true,
			RecordingSampling: "all",
			IndexDisplayMode:  "index",
		}},
	}
}

func TestEngine_Build(t *testing.T) {
	var pulls int
	e, _ := newTestEngine(t, WithTrace(func(ev TraceEvent) {
		if ev.Type == TracePull {
			pulls++
		}
	}))
	require.NoError(t, e.Build(reviewScene()))

	m, s := e.Sequence("master"), e.Sequence("sync")
	require.NotNil(t, m)
	require.NotNil(t, s)
	assert.Equal(t, []string{"0", "1", "2"}, m.IndexValues())
	assert.Equal(t, 12.0, itemValue(t, s, "2"))

	b := e.Browser("review")
	require.NotNil(t, b)
	assert.Same(t, m, b.Master())
	assert.Equal(t, 0, b.SelectedItemNumber())
	assert.Equal(t, 25.0, b.Playback().RateFps)
	assert.True(t, b.Playback().Looped)
	assert.False(t, b.Playback().ItemSkipping)
	assert.Equal(t, browser.SamplingAll, b.Recording().Sampling)
	assert.Equal(t, browser.IndexDisplayAsIndex, b.IndexDisplay().Mode)

	props, ok := b.Properties(s)
	require.True(t, ok)
	assert.True(t, props.SaveChanges)
	assert.Equal(t, browser.SetToDefault, props.MissingItem)

	probe, ok := e.Scene().NodeByName("Probe")
	require.True(t, ok)
	ref, ok := b.ProxyRef(s)
	require.True(t, ok)
	assert.Equal(t, probe.ID(), ref.NodeID)
	assert.Equal(t, browser.Borrowed, ref.Ownership)
	assert.Equal(t, 10.0, probe.(*node.Scalar).Value)
	assert.Equal(t, "mm", probe.(*node.Scalar).Unit)
	assert.Equal(t, 1, pulls, "one pull once the browser is assembled")

	require.True(t, b.SetSelectedItemNumber(1))
	assert.Equal(t, 0.0, probe.(*node.Scalar).Value, "missing item shows the default")
	assert.Equal(t, 2, s.Len())
}

func TestEngine_BuildReusesExistingProxyNode(t *testing.T) {
	e, _ := newTestEngine(t)
	existing := scalar(5)
	existing.SetName("Probe")
	e.Scene().AddNode(existing)

	require.NoError(t, e.Build(reviewScene()))
	b := e.Browser("review")
	assert.Same(t, existing, b.Proxy(e.Sequence("sync")).(*node.Scalar))
	assert.Equal(t, 10.0, existing.Value)
}

func TestEngine_BuildErrors(t *testing.T) {
	tests := []struct {
		name  string
		edit  func(*ir.Scene)
		check func(t *testing.T, err error)
	}{
		{
			name: "missing master",
			edit: func(s *ir.Scene) { s.Browsers[0].Master = "nope" },
			check: func(t *testing.T, err error) {
				assert.True(t, IsMissingReference(err))
			},
		},
		{
			name: "missing synchronized sequence",
			edit: func(s *ir.Scene) { s.Browsers[0].Synchronized[0].Sequence = "nope" },
			check: func(t *testing.T, err error) {
				assert.True(t, IsMissingReference(err))
			},
		},
		{
			name: "incompatible sequence",
			edit: func(s *ir.Scene) { s.Sequences[1].IndexUnit = "frame" },
			check: func(t *testing.T, err error) {
				assert.True(t, IsIncompatible(err))
				assert.ErrorIs(t, err, browser.ErrIncompatible)
			},
		},
		{
			name: "unknown item class",
			edit: func(s *ir.Scene) { s.Sequences[0].Items[0].Class = "Mesh" },
			check: func(t *testing.T, err error) {
				assert.ErrorContains(t, err, "build sequence master")
			},
		},
		{
			name: "unknown missing item mode",
			edit: func(s *ir.Scene) { s.Browsers[0].Synchronized[0].MissingItem = "guess" },
			check: func(t *testing.T, err error) {
				assert.ErrorContains(t, err, "unknown missing item mode")
			},
		},
		{
			name: "negative playback rate",
			edit: func(s *ir.Scene) { s.Browsers[0].PlaybackRateFps = "-1" },
			check: func(t *testing.T, err error) {
				assert.ErrorContains(t, err, "invalid playback rate")
			},
		},
		{
			name: "unknown index type",
			edit: func(s *ir.Scene) { s.Sequences[0].IndexType = "ordinal" },
			check: func(t *testing.T, err error) {
				assert.ErrorContains(t, err, "unknown index type")
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e, _ := newTestEngine(t)
			desc := reviewScene()
			tt.edit(&desc)
			err := e.Build(desc)
			require.Error(t, err)
			tt.check(t, err)

			assert.Nil(t, e.Browser("review"), "a failed browser is not registered")
			_, ok := e.Scene().NodeByName("Probe")
			assert.False(t, ok, "a proxy created for a failed browser is removed")
		})
	}
}

func TestEngine_BuildEmptySequenceWithDeclaredClass(t *testing.T) {
	e, _ := newTestEngine(t)
	desc := ir.Scene{
		Sequences: []ir.SequenceSpec{
			{Name: "master", DataNodeClass: "Scalar", Items: []ir.ItemSpec{scalarItem("0", 0)}},
			{Name: "live", DataNodeClass: "Scalar"},
		},
		Browsers: []ir.BrowserSpec{{
			Name:              "rec",
			Master:            "master",
			RecordingSampling: "all",
			Synchronized: []ir.SyncSpec{{
				Sequence:  "live",
				Proxy:     "Marker",
				Recording: true,
			}},
		}},
	}
	require.NoError(t, e.Build(desc))

	live := e.Sequence("live")
	assert.Equal(t, node.Class("Scalar"), live.DataNodeClass())
	marker, ok := e.Scene().NodeByName("Marker")
	require.True(t, ok)
	assert.Equal(t, node.Class("Scalar"), marker.Class())

	b := e.Browser("rec")
	require.NotNil(t, b)
	ref, ok := b.ProxyRef(live)
	require.True(t, ok)
	assert.Equal(t, marker.ID(), ref.NodeID)
	assert.Equal(t, browser.Borrowed, ref.Ownership)
	assert.Equal(t, 0, live.Len())
}

func TestEngine_BuildEmptySequenceWithoutClass(t *testing.T) {
	e, _ := newTestEngine(t)
	desc := reviewScene()
	desc.Sequences[1] = ir.SequenceSpec{Name: "sync"}

	err := e.Build(desc)
	require.Error(t, err)
	assert.ErrorContains(t, err, "has no items and no declared class")
	assert.Nil(t, e.Browser("review"))
	assert.NotNil(t, e.Sequence("master"), "sequences built before the failure stay")
}

func TestEngine_BuildTextIndexedSequence(t *testing.T) {
	e, _ := newTestEngine(t)
	desc := ir.Scene{Sequences: []ir.SequenceSpec{{
		Name:      "labels",
		IndexName: "label",
		IndexType: "text",
		Items: []ir.ItemSpec{
			{IndexValue: "b", Class: "Text", Content: ir.Object{"text": ir.String("second")}},
			{IndexValue: "a", Class: "Text", Content: ir.Object{"text": ir.String("first")}},
		},
	}}}
	require.NoError(t, e.Build(desc))

	seq := e.Sequence("labels")
	require.NotNil(t, seq)
	assert.Equal(t, []string{"b", "a"}, seq.IndexValues(), "text sequences keep insertion order")
	n, ok := seq.DataNodeAtValue("a", true)
	require.True(t, ok)
	assert.Equal(t, "first", n.(*node.Text).Text)
}
