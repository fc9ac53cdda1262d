package compiler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/slicer/sequences/internal/ir"
)

func TestAnalyzeFeedback_SharedProxyLoop(t *testing.T) {
	scene := ir.Scene{
		Browsers: []ir.BrowserSpec{
			{Name: "left", Master: "a", Synchronized: []ir.SyncSpec{
				{Sequence: "a", Proxy: "Probe", Playback: true, SaveChanges: true},
			}},
			{Name: "right", Master: "b", Synchronized: []ir.SyncSpec{
				{Sequence: "b", Proxy: "Probe", Playback: true, SaveChanges: true},
			}},
		},
	}

	warnings := AnalyzeFeedback(scene)
	require.Len(t, warnings, 1)
	assert.Equal(t, []string{"sequence:a", "proxy:Probe", "sequence:b"}, warnings[0].Path)
	assert.Equal(t, "warning", warnings[0].Level)
	assert.Contains(t, warnings[0].Message, "Proxy feedback loop")
}

func TestAnalyzeFeedback_RoundTripIsNotALoop(t *testing.T) {
	scene := ir.Scene{
		Browsers: []ir.BrowserSpec{
			{Name: "left", Master: "a", Synchronized: []ir.SyncSpec{
				{Sequence: "a", Playback: true, SaveChanges: true},
				{Sequence: "b", Playback: true, SaveChanges: true},
			}},
			{Name: "right", Master: "b", Synchronized: []ir.SyncSpec{
				{Sequence: "b", Playback: true, SaveChanges: true},
			}},
		},
	}

	warnings := AnalyzeFeedback(scene)
	assert.NotNil(t, warnings)
	assert.Empty(t, warnings)
}

func TestAnalyzeFeedback_PlaybackOnlyReader(t *testing.T) {
	// b reads from the shared proxy but never writes back into it.
	scene := ir.Scene{
		Browsers: []ir.BrowserSpec{
			{Name: "left", Master: "a", Synchronized: []ir.SyncSpec{
				{Sequence: "a", Proxy: "Probe", Playback: true, SaveChanges: true},
			}},
			{Name: "right", Master: "b", Synchronized: []ir.SyncSpec{
				{Sequence: "b", Proxy: "Probe", Playback: true},
			}},
		},
	}

	assert.Empty(t, AnalyzeFeedback(scene))
}

func TestAnalyzeFeedback_EmptyScene(t *testing.T) {
	warnings := AnalyzeFeedback(ir.Scene{})
	assert.NotNil(t, warnings)
	assert.Empty(t, warnings)
}

func TestAnalyzeFeedback_SeparateLoopsAreSorted(t *testing.T) {
	entry := func(seq, proxy string) ir.SyncSpec {
		return ir.SyncSpec{Sequence: seq, Proxy: proxy, Playback: true, SaveChanges: true}
	}
	scene := ir.Scene{
		Browsers: []ir.BrowserSpec{
			{Name: "one", Master: "y", Synchronized: []ir.SyncSpec{entry("y", "Q"), entry("c", "P")}},
			{Name: "two", Master: "z", Synchronized: []ir.SyncSpec{entry("z", "Q"), entry("d", "P")}},
		},
	}

	warnings := AnalyzeFeedback(scene)
	require.Len(t, warnings, 2)
	assert.Equal(t, []string{"sequence:c", "proxy:P", "sequence:d"}, warnings[0].Path)
	assert.Equal(t, []string{"sequence:y", "proxy:Q", "sequence:z"}, warnings[1].Path)
}
