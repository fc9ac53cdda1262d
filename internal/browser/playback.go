package browser

import (
	"log/slog"
	"math"
	"strconv"
	"time"

	"github.com/slicer/sequences/internal/sequence"
	"github.com/slicer/sequences/internal/timeline"
)

// SamplingMode controls how often continuous recording accepts a snapshot.
type SamplingMode int

const (
	// SamplingLimitedToPlaybackRate drops snapshots closer than 1/rate seconds
	// to the previous accepted one.
	SamplingLimitedToPlaybackRate SamplingMode = iota
	// SamplingAll accepts every snapshot.
	SamplingAll
)

// String returns the persisted name of the mode.
func (m SamplingMode) String() string {
	if m == SamplingAll {
		return "all"
	}
	return "limitedToPlaybackFrameRate"
}

// ParseSamplingMode converts a persisted sampling mode name.
func ParseSamplingMode(s string) (SamplingMode, bool) {
	switch s {
	case "all":
		return SamplingAll, true
	case "limitedToPlaybackFrameRate":
		return SamplingLimitedToPlaybackRate, true
	default:
		return SamplingLimitedToPlaybackRate, false
	}
}

// ItemCount returns the number of items of the master, 0 without a master.
func (b *Browser) ItemCount() int {
	m := b.Master()
	if m == nil {
		return 0
	}
	return m.Len()
}

// SelectedItemNumber returns the selected master item, or -1.
func (b *Browser) SelectedItemNumber() int {
	return b.selected
}

// CurrentIndexValue returns the master index value at the selection.
func (b *Browser) CurrentIndexValue() (string, bool) {
	m := b.Master()
	if m == nil || b.selected < 0 || b.selected >= m.Len() {
		return "", false
	}
	return m.NthIndexValue(b.selected), true
}

func (b *Browser) setSelected(i int) {
	if b.selected == i {
		return
	}
	b.selected = i
	b.notify(EventMasterAdvanced)
}

// SetSelectedItemNumber selects a master item. Values outside
// [-1, ItemCount()-1] are rejected.
func (b *Browser) SetSelectedItemNumber(i int) bool {
	if i < -1 || i >= b.ItemCount() {
		slog.Warn("selection out of range", "browser", b.name, "selected", i, "items", b.ItemCount())
		return false
	}
	b.setSelected(i)
	return true
}

// ClampSelection pulls the selection back into range after the master shrank.
func (b *Browser) ClampSelection() {
	if n := b.ItemCount(); b.selected >= n {
		b.setSelected(n - 1)
	}
}

// SelectFirst selects the first master item. Returns the selection.
func (b *Browser) SelectFirst() int {
	if b.ItemCount() > 0 {
		b.setSelected(0)
	} else {
		b.setSelected(-1)
	}
	return b.selected
}

// SelectLast selects the last master item. Returns the selection.
func (b *Browser) SelectLast() int {
	b.setSelected(b.ItemCount() - 1)
	return b.selected
}

// SelectNext moves the selection by increment and returns it. With no
// selection the first item is selected whatever the increment. Past either
// end the selection wraps when looping; otherwise playback stops and the
// selection lands on the first item going forward or the last going back.
// An empty master leaves the selection untouched and returns -1.
func (b *Browser) SelectNext(increment int) int {
	n := b.ItemCount()
	if n == 0 {
		return -1
	}
	was := b.StartModify()
	defer b.EndModify(was)

	sel := b.selected
	switch {
	case sel < 0:
		sel = 0
	default:
		sel += increment
		if sel >= n {
			if b.playback.Looped {
				sel %= n
			} else {
				b.SetPlaybackActive(false)
				sel = 0
			}
		} else if sel < 0 {
			if b.playback.Looped {
				sel = (sel%n + n) % n
			} else {
				b.SetPlaybackActive(false)
				sel = n - 1
			}
		}
	}
	b.setSelected(sel)
	return sel
}

// Playback returns the playback settings.
func (b *Browser) Playback() PlaybackSettings {
	return b.playback
}

// SetPlaybackActive starts or stops playback. Starting stops recording.
func (b *Browser) SetPlaybackActive(active bool) {
	was := b.StartModify()
	defer b.EndModify(was)
	if active {
		b.SetRecordingActive(false)
	}
	if b.playback.Active != active {
		b.playback.Active = active
		b.notify(EventModified)
	}
}

// SetPlaybackRateFps sets the playback rate. Negative rates are rejected.
func (b *Browser) SetPlaybackRateFps(fps float64) bool {
	if fps < 0 || math.IsNaN(fps) || math.IsInf(fps, 0) {
		slog.Warn("invalid playback rate", "browser", b.name, "rate_fps", fps)
		return false
	}
	if b.playback.RateFps != fps {
		b.playback.RateFps = fps
		b.notify(EventModified)
	}
	return true
}

// SetPlaybackLooped sets whether playback wraps to the first item after
// the last one instead of stopping.
func (b *Browser) SetPlaybackLooped(looped bool) {
	if b.playback.Looped != looped {
		b.playback.Looped = looped
		b.notify(EventModified)
	}
}

// SetPlaybackItemSkipping sets whether playback may skip items to keep up
// with the playback rate.
func (b *Browser) SetPlaybackItemSkipping(enabled bool) {
	if b.playback.ItemSkipping != enabled {
		b.playback.ItemSkipping = enabled
		b.notify(EventModified)
	}
}

// Recording returns the recording settings.
func (b *Browser) Recording() RecordingSettings {
	return b.recording
}

// SetRecordingActive starts or stops continuous recording. Starting stops
// playback. The time origin is reset on every call and moved back by the
// master's last index value when the master is numeric and not empty, so a
// restarted recording continues the existing timeline.
func (b *Browser) SetRecordingActive(active bool) {
	was := b.StartModify()
	defer b.EndModify(was)

	now := b.now()
	b.recording.TimeOrigin = now
	if m := b.Master(); m != nil && m.Len() > 0 && m.IndexType() == timeline.Numeric {
		if last, err := strconv.ParseFloat(m.NthIndexValue(m.Len()-1), 64); err == nil {
			b.recording.TimeOrigin = now.Add(-secondsToDuration(last))
		}
	}
	if active {
		b.SetPlaybackActive(false)
	}
	if b.recording.Active != active {
		b.recording.Active = active
		b.notify(EventModified)
	}
}

// SetRecordingSampling sets how often snapshots are accepted while
// recording.
func (b *Browser) SetRecordingSampling(mode SamplingMode) {
	if b.recording.Sampling != mode {
		b.recording.Sampling = mode
		b.notify(EventModified)
	}
}

// SetRecordMasterOnly sets whether only changes of the master proxy
// trigger snapshots.
func (b *Browser) SetRecordMasterOnly(masterOnly bool) {
	if b.recording.MasterOnly != masterOnly {
		b.recording.MasterOnly = masterOnly
		b.notify(EventModified)
	}
}

// SnapshotIndexValue returns the index value a snapshot taken now should be
// stored at. While recording, the value is the time since the origin and
// ok is false when the sampling mode rejects a snapshot this soon after the
// previous one. Otherwise the value is one playback frame after the master's
// last item, at 1 fps when the rate is unset.
func (b *Browser) SnapshotIndexValue() (value string, ok bool) {
	if b.recording.Active {
		now := b.now()
		elapsed := now.Sub(b.recording.LastSnapshot).Seconds()
		if b.recording.Sampling == SamplingLimitedToPlaybackRate &&
			b.playback.RateFps > 0 && elapsed < 1/b.playback.RateFps {
			return "", false
		}
		b.recording.LastSnapshot = now
		return FormatIndexSeconds(now.Sub(b.recording.TimeOrigin).Seconds()), true
	}

	last := 0.0
	if m := b.Master(); m != nil && m.Len() > 0 {
		if v, err := strconv.ParseFloat(m.NthIndexValue(m.Len()-1), 64); err == nil {
			last = v
		}
	}
	rate := b.playback.RateFps
	if rate == 0 {
		rate = 1
	}
	return FormatIndexSeconds(last + 1/rate), true
}

// FormatIndexSeconds renders a numeric index value rounded to microseconds
// without exponent notation.
func FormatIndexSeconds(v float64) string {
	return strconv.FormatFloat(math.Round(v*1e6)/1e6, 'f', -1, 64)
}

func secondsToDuration(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}

// Properties returns the synchronization properties of seq.
func (b *Browser) Properties(seq *sequence.Sequence) (SyncProperties, bool) {
	e := b.Entry(seq)
	if e == nil {
		return SyncProperties{}, false
	}
	return e.props, true
}

// SetProperties replaces the properties of seq, or of every entry when seq is nil.
func (b *Browser) SetProperties(seq *sequence.Sequence, p SyncProperties) {
	b.updateProperties(seq, func(cur *SyncProperties) { *cur = p })
}

// SetPlaybackEnabled sets whether pulls update the proxy of seq, or of
// every entry when seq is nil. The same applies to the setters below.
func (b *Browser) SetPlaybackEnabled(seq *sequence.Sequence, enabled bool) {
	b.updateProperties(seq, func(p *SyncProperties) { p.Playback = enabled })
}

// SetRecordingEnabled sets whether snapshots store the proxy of seq.
func (b *Browser) SetRecordingEnabled(seq *sequence.Sequence, enabled bool) {
	b.updateProperties(seq, func(p *SyncProperties) { p.Recording = enabled })
}

// SetOverwriteProxyName sets whether pulls rename the proxy of seq after
// the shown item.
func (b *Browser) SetOverwriteProxyName(seq *sequence.Sequence, enabled bool) {
	b.updateProperties(seq, func(p *SyncProperties) { p.OverwriteProxyName = enabled })
}

// SetSaveChanges sets whether proxy edits are pushed back into seq.
func (b *Browser) SetSaveChanges(seq *sequence.Sequence, enabled bool) {
	b.updateProperties(seq, func(p *SyncProperties) { p.SaveChanges = enabled })
}

// SetMissingItemMode sets what the proxy of seq shows when seq has no item
// at the current index value.
func (b *Browser) SetMissingItemMode(seq *sequence.Sequence, mode MissingItemMode) {
	b.updateProperties(seq, func(p *SyncProperties) { p.MissingItem = mode })
}

func (b *Browser) updateProperties(seq *sequence.Sequence, fn func(*SyncProperties)) {
	targets := b.entries
	if seq != nil {
		e := b.Entry(seq)
		if e == nil {
			slog.Warn("sequence not attached", "browser", b.name, "sequence", seq.Name())
			return
		}
		targets = []*SyncEntry{e}
	}
	changed := false
	for _, e := range targets {
		before := e.props
		fn(&e.props)
		if e.props != before {
			changed = true
		}
	}
	if changed {
		b.notify(EventModified)
	}
}
