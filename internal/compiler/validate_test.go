package compiler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/slicer/sequences/internal/ir"
)

func validScene() ir.Scene {
	return ir.Scene{
		Sequences: []ir.SequenceSpec{
			{
				Name:          "heart",
				DataNodeClass: "Scalar",
				Items: []ir.ItemSpec{
					{IndexValue: "0"},
					{IndexValue: "0.5"},
					{IndexValue: "1"},
				},
			},
			{
				Name:      "probe",
				IndexName: "time",
				IndexUnit: "s",
				IndexType: "numeric",
				Tolerance: "0.01",
				Items: []ir.ItemSpec{
					{IndexValue: "0", Class: "Transform"},
					{IndexValue: "1", Class: "Transform"},
				},
			},
		},
		Browsers: []ir.BrowserSpec{
			{
				Name:   "review",
				Master: "heart",
				Synchronized: []ir.SyncSpec{
					{Sequence: "probe", Playback: true, SaveChanges: true, MissingItem: "createFromPrevious"},
				},
				PlaybackRateFps:    "12.5",
				RecordingSampling:  "all",
				IndexDisplayMode:   "indexValue",
				IndexDisplayFormat: "%.2f s",
			},
		},
	}
}

func TestValidate_ValidScene(t *testing.T) {
	assert.Empty(t, Validate(validScene()))
}

func TestValidate_EmptyScene(t *testing.T) {
	assert.Empty(t, Validate(ir.Scene{}))
}

func TestValidate_Errors(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(*ir.Scene)
		wantCode  string
		wantField string
	}{
		{
			name: "duplicate sequence name",
			mutate: func(s *ir.Scene) {
				s.Sequences = append(s.Sequences, ir.SequenceSpec{Name: "heart"})
			},
			wantCode:  ErrDuplicateName,
			wantField: "sequence.heart",
		},
		{
			name: "duplicate browser name",
			mutate: func(s *ir.Scene) {
				s.Browsers = append(s.Browsers, ir.BrowserSpec{Name: "review", Master: "heart"})
			},
			wantCode:  ErrDuplicateName,
			wantField: "browser.review",
		},
		{
			name:      "invalid index type",
			mutate:    func(s *ir.Scene) { s.Sequences[1].IndexType = "ordinal" },
			wantCode:  ErrInvalidIndexType,
			wantField: "sequence.probe.index_type",
		},
		{
			name:      "negative tolerance",
			mutate:    func(s *ir.Scene) { s.Sequences[1].Tolerance = "-0.1" },
			wantCode:  ErrInvalidTolerance,
			wantField: "sequence.probe.tolerance",
		},
		{
			name: "new proxy for an empty sequence without a class",
			mutate: func(s *ir.Scene) {
				s.Sequences[1].Items = nil
				s.Browsers[0].Synchronized[0].Proxy = "Marker"
			},
			wantCode:  ErrUnknownProxyClass,
			wantField: "browser.review.synchronized.probe.proxy",
		},
		{
			name:      "unknown sequence class",
			mutate:    func(s *ir.Scene) { s.Sequences[0].DataNodeClass = "Mesh" },
			wantCode:  ErrUnknownClass,
			wantField: "sequence.heart.class",
		},
		{
			name:      "unknown item class",
			mutate:    func(s *ir.Scene) { s.Sequences[1].Items[1].Class = "Mesh" },
			wantCode:  ErrUnknownClass,
			wantField: "sequence.probe.items[1].class",
		},
		{
			name:      "item without any class",
			mutate:    func(s *ir.Scene) { s.Sequences[1].Items[0].Class = "" },
			wantCode:  ErrUnknownClass,
			wantField: "sequence.probe.items[0].class",
		},
		{
			name:      "duplicate index value within tolerance",
			mutate:    func(s *ir.Scene) { s.Sequences[0].Items[2].IndexValue = "0.5004" },
			wantCode:  ErrDuplicateIndexValue,
			wantField: "sequence.heart.items[2].at",
		},
		{
			name:      "non-numeric index value",
			mutate:    func(s *ir.Scene) { s.Sequences[0].Items[1].IndexValue = "half" },
			wantCode:  ErrInvalidIndexValue,
			wantField: "sequence.heart.items[1].at",
		},
		{
			name:      "undefined master",
			mutate:    func(s *ir.Scene) { s.Browsers[0].Master = "missing" },
			wantCode:  ErrUndefinedSequence,
			wantField: "browser.review.master",
		},
		{
			name: "undefined synchronized sequence",
			mutate: func(s *ir.Scene) {
				s.Browsers[0].Synchronized = append(s.Browsers[0].Synchronized, ir.SyncSpec{Sequence: "missing"})
			},
			wantCode:  ErrUndefinedSequence,
			wantField: "browser.review.synchronized.missing",
		},
		{
			name:      "incompatible index unit",
			mutate:    func(s *ir.Scene) { s.Sequences[1].IndexUnit = "ms" },
			wantCode:  ErrIncompatible,
			wantField: "browser.review.synchronized.probe",
		},
		{
			name:      "invalid missing item mode",
			mutate:    func(s *ir.Scene) { s.Browsers[0].Synchronized[0].MissingItem = "ignore" },
			wantCode:  ErrInvalidMissingItem,
			wantField: "browser.review.synchronized.probe.missing_item",
		},
		{
			name:      "invalid sampling",
			mutate:    func(s *ir.Scene) { s.Browsers[0].RecordingSampling = "sometimes" },
			wantCode:  ErrInvalidSampling,
			wantField: "browser.review.recording_sampling",
		},
		{
			name:      "invalid display mode",
			mutate:    func(s *ir.Scene) { s.Browsers[0].IndexDisplayMode = "frame" },
			wantCode:  ErrInvalidDisplayMode,
			wantField: "browser.review.index_display_mode",
		},
		{
			name:      "negative playback rate",
			mutate:    func(s *ir.Scene) { s.Browsers[0].PlaybackRateFps = "-1" },
			wantCode:  ErrInvalidPlaybackRate,
			wantField: "browser.review.playback_rate_fps",
		},
		{
			name: "sequence synchronized twice",
			mutate: func(s *ir.Scene) {
				s.Browsers[0].Synchronized = append(s.Browsers[0].Synchronized, ir.SyncSpec{Sequence: "probe"})
			},
			wantCode:  ErrDuplicateEntry,
			wantField: "browser.review.synchronized.probe",
		},
		{
			name:      "format without verb",
			mutate:    func(s *ir.Scene) { s.Browsers[0].IndexDisplayFormat = "%d frames" },
			wantCode:  ErrInvalidFormat,
			wantField: "browser.review.index_display_format",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			scene := validScene()
			tt.mutate(&scene)

			errs := Validate(scene)
			require.Len(t, errs, 1, "errors: %v", errs)
			assert.Equal(t, tt.wantCode, errs[0].Code)
			assert.Equal(t, tt.wantField, errs[0].Field)
		})
	}
}

func TestValidate_TextIndexDuplicatesAreExact(t *testing.T) {
	scene := ir.Scene{Sequences: []ir.SequenceSpec{{
		Name:          "labels",
		IndexType:     "text",
		DataNodeClass: "Text",
		Items: []ir.ItemSpec{
			{IndexValue: "a"},
			{IndexValue: "A"},
			{IndexValue: "a"},
		},
	}}}

	errs := Validate(scene)
	require.Len(t, errs, 1)
	assert.Equal(t, ErrDuplicateIndexValue, errs[0].Code)
	assert.Equal(t, "sequence.labels.items[2].at", errs[0].Field)
}

func TestValidate_DefaultsApplyToCompatibility(t *testing.T) {
	// heart leaves index metadata unset; probe spells out the defaults.
	scene := validScene()
	scene.Sequences[1].IndexName = "time"
	scene.Sequences[1].IndexUnit = "s"
	scene.Sequences[1].IndexType = "numeric"
	assert.Empty(t, Validate(scene))

	scene.Sequences[1].IndexType = "text"
	scene.Sequences[1].Items = nil
	errs := Validate(scene)
	require.Len(t, errs, 1)
	assert.Equal(t, ErrIncompatible, errs[0].Code)
	assert.Contains(t, errs[0].Message, "time [s, text]")
}

func TestValidate_EmptySequenceProxies(t *testing.T) {
	scene := validScene()
	scene.Sequences[1].Items = nil
	scene.Sequences[1].DataNodeClass = "Transform"
	scene.Browsers[0].Synchronized[0].Proxy = "Marker"
	assert.Empty(t, Validate(scene), "declared class names the new proxy")

	// A second browser borrows the node the first one created.
	scene = validScene()
	scene.Browsers[0].Synchronized[0].Proxy = "Marker"
	scene.Sequences = append(scene.Sequences, ir.SequenceSpec{Name: "live"})
	scene.Browsers = append(scene.Browsers, ir.BrowserSpec{
		Name:         "recorder",
		Master:       "heart",
		Synchronized: []ir.SyncSpec{{Sequence: "live", Proxy: "Marker"}},
	})
	assert.Empty(t, Validate(scene))
}

func TestValidate_CollectsAllErrors(t *testing.T) {
	scene := validScene()
	scene.Sequences[1].IndexType = "ordinal"
	scene.Browsers[0].Master = "missing"
	scene.Browsers[0].RecordingSampling = "sometimes"

	codes := make([]string, 0, 3)
	for _, e := range Validate(scene) {
		codes = append(codes, e.Code)
	}
	assert.ElementsMatch(t, []string{ErrInvalidIndexType, ErrUndefinedSequence, ErrInvalidSampling}, codes)
}

func TestValidationError_Error(t *testing.T) {
	err := ValidationError{Field: "browser.review.master", Message: "undefined sequence \"x\"", Code: ErrUndefinedSequence}
	assert.Equal(t, `[E110] browser.review.master: undefined sequence "x"`, err.Error())

	err.Line = 4
	assert.Equal(t, `[E110] line 4: browser.review.master: undefined sequence "x"`, err.Error())
}
