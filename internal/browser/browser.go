// Package browser holds the state of a sequence browser: the master and
// synchronized sequences with their per-sequence synchronization
// properties, proxy references, selection, playback and recording settings.
//
// The browser never copies content between items and proxies. That is the
// engine's job; the browser tracks which proxy belongs to which sequence
// and tells listeners when something they care about has changed.
package browser

import (
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/slicer/sequences/internal/scene"
	"github.com/slicer/sequences/internal/sequence"
)

var (
	// ErrIncompatible is returned when a sequence does not share the master's
	// index name, unit and type.
	ErrIncompatible = errors.New("sequence is not compatible with the master")

	// ErrNotFound is returned when a sequence is not attached to the browser.
	ErrNotFound = errors.New("sequence not attached")

	// ErrMalformedProperties is returned for an unparsable synchronization
	// properties string.
	ErrMalformedProperties = errors.New("malformed synchronization properties")
)

// Defaults for newly created browsers.
const (
	DefaultPlaybackRateFps    = 10.0
	DefaultIndexDisplayFormat = "%.2f"
)

// SyncEntry binds one sequence to the browser. The first entry is the master.
type SyncEntry struct {
	postfix    string
	sequenceID string
	seq        *sequence.Sequence
	ownership  Ownership
	props      SyncProperties

	cancelObserve func()
}

// Postfix returns the entry's role postfix, unique within its browser.
func (e *SyncEntry) Postfix() string { return e.postfix }

// SequenceID returns the ID of the attached sequence.
func (e *SyncEntry) SequenceID() string { return e.sequenceID }

// Sequence returns the attached sequence, or nil while it is unresolved.
func (e *SyncEntry) Sequence() *sequence.Sequence { return e.seq }

// Properties returns the entry's synchronization properties.
func (e *SyncEntry) Properties() SyncProperties { return e.props }

// PlaybackSettings control how the selection advances over time.
type PlaybackSettings struct {
	Active       bool
	RateFps      float64
	Looped       bool
	ItemSkipping bool
}

// RecordingSettings control snapshot capture.
type RecordingSettings struct {
	Active       bool
	Sampling     SamplingMode
	MasterOnly   bool
	TimeOrigin   time.Time
	LastSnapshot time.Time
}

// Browser is a master sequence plus synchronized sequences browsed together.
// It is not safe for concurrent use.
type Browser struct {
	id   string
	name string

	scene *scene.Scene
	now   func() time.Time

	entries     []*SyncEntry
	lastPostfix int
	selected    int

	playback  PlaybackSettings
	recording RecordingSettings
	display   IndexDisplay

	listeners    []listener
	nextListener int
	modifyDepth  int
	pending      []Event
}

// Option configures a Browser.
type Option func(*Browser)

// WithID sets the browser ID instead of drawing one from the scene.
func WithID(id string) Option {
	return func(b *Browser) {
		b.id = id
	}
}

// WithNow sets the wall clock used for recording timestamps. Default: time.Now.
func WithNow(now func() time.Time) Option {
	return func(b *Browser) {
		b.now = now
	}
}

// New creates an empty browser whose proxies live in sc.
func New(name string, sc *scene.Scene, opts ...Option) *Browser {
	b := &Browser{
		name:     name,
		scene:    sc,
		now:      time.Now,
		selected: -1,
		playback: PlaybackSettings{
			RateFps:      DefaultPlaybackRateFps,
			Looped:       true,
			ItemSkipping: true,
		},
		recording: RecordingSettings{Sampling: SamplingLimitedToPlaybackRate},
		display: IndexDisplay{
			Mode:   IndexDisplayAsIndexValue,
			Format: DefaultIndexDisplayFormat,
		},
	}
	for _, opt := range opts {
		opt(b)
	}
	if b.id == "" {
		b.id = sc.IDs().Generate()
	}
	start := b.now()
	b.recording.TimeOrigin = start
	b.recording.LastSnapshot = start
	return b
}

// ID returns the browser ID.
func (b *Browser) ID() string { return b.id }
// Name returns the display name.
func (b *Browser) Name() string { return b.name }
// Scene returns the scene holding the proxies.
func (b *Browser) Scene() *scene.Scene { return b.scene }

// SetName renames the browser.
func (b *Browser) SetName(name string) {
	if b.name != name {
		b.name = name
		b.notify(EventModified)
	}
}

// Master returns the master sequence, or nil when there is none or it is unresolved.
func (b *Browser) Master() *sequence.Sequence {
	if len(b.entries) == 0 {
		return nil
	}
	return b.entries[0].seq
}

// Entries returns the sync entries, master first.
func (b *Browser) Entries() []*SyncEntry {
	return append([]*SyncEntry(nil), b.entries...)
}

// Len returns the number of attached sequences including the master.
func (b *Browser) Len() int {
	return len(b.entries)
}

// Entry returns the entry of seq, or nil.
func (b *Browser) Entry(seq *sequence.Sequence) *SyncEntry {
	if seq == nil {
		return nil
	}
	for _, e := range b.entries {
		if e.seq == seq {
			return e
		}
	}
	return nil
}

func (b *Browser) entryByPostfix(postfix string) *SyncEntry {
	for _, e := range b.entries {
		if e.postfix == postfix {
			return e
		}
	}
	return nil
}

// indexOf matches by pointer first, then by ID for entries not yet resolved.
func (b *Browser) indexOf(seq *sequence.Sequence) int {
	for i, e := range b.entries {
		if e.seq == seq {
			return i
		}
	}
	if seq.ID() == "" {
		return -1
	}
	for i, e := range b.entries {
		if e.seq == nil && e.sequenceID == seq.ID() {
			return i
		}
	}
	return -1
}

// Sequences returns the resolved sequences, master first.
func (b *Browser) Sequences() []*sequence.Sequence {
	out := make([]*sequence.Sequence, 0, len(b.entries))
	for _, e := range b.entries {
		if e.seq != nil {
			out = append(out, e.seq)
		}
	}
	return out
}

// IsSynchronized reports whether seq is attached, as master or otherwise.
func (b *Browser) IsSynchronized(seq *sequence.Sequence) bool {
	return b.Entry(seq) != nil
}

func (b *Browser) nextPostfix() string {
	for {
		p := strconv.Itoa(b.lastPostfix)
		b.lastPostfix++
		if b.entryByPostfix(p) == nil {
			return p
		}
	}
}

func (b *Browser) attach(seq *sequence.Sequence) *SyncEntry {
	e := &SyncEntry{
		postfix:    b.nextPostfix(),
		sequenceID: seq.ID(),
		seq:        seq,
		props:      DefaultSyncProperties(),
	}
	b.entries = append(b.entries, e)
	return e
}

// SetMaster makes seq the master and returns its postfix. A nil seq detaches
// everything. If seq is not attached, or there is no resolved master, every
// current entry is dropped and seq becomes the only one. Otherwise seq's
// entry swaps places with the current master and the selection moves to the
// item of seq closest before the previously selected index value.
func (b *Browser) SetMaster(seq *sequence.Sequence) string {
	if seq == nil {
		b.RemoveAll()
		return ""
	}
	current := b.Master()
	if current == seq {
		return b.entries[0].postfix
	}

	was := b.StartModify()
	defer b.EndModify(was)

	pos := b.indexOf(seq)
	if pos < 0 || current == nil {
		b.RemoveAll()
		e := b.attach(seq)
		b.setSelected(b.initialSelection())
		b.notify(EventModified)
		b.notify(EventMasterAdvanced)
		return e.postfix
	}

	lastValue := current.NthIndexValue(b.selected)
	b.entries[0], b.entries[pos] = b.entries[pos], b.entries[0]
	b.entries[0].seq = seq
	b.setSelected(seq.ItemNumberFromIndexValue(lastValue, false))
	slog.Debug("master changed",
		"browser", b.name,
		"master", seq.Name(),
		"index_value", lastValue,
		"selected", b.selected,
	)
	b.notify(EventModified)
	b.notify(EventMasterAdvanced)
	return b.entries[0].postfix
}

func (b *Browser) initialSelection() int {
	if m := b.Master(); m != nil && m.Len() > 0 {
		return 0
	}
	return -1
}

// AddSynchronized attaches seq with default properties and returns its
// postfix. Attaching an already attached sequence returns its postfix.
// The first attached sequence becomes the master.
func (b *Browser) AddSynchronized(seq *sequence.Sequence) (string, error) {
	if seq == nil {
		slog.Error("add synchronized sequence: nil sequence", "browser", b.name)
		return "", fmt.Errorf("browser %s: %w", b.name, ErrNotFound)
	}
	if e := b.Entry(seq); e != nil {
		return e.postfix, nil
	}
	if m := b.Master(); m != nil && !m.IsCompatible(seq) {
		slog.Warn("rejecting incompatible sequence",
			"browser", b.name,
			"sequence", seq.Name(),
			"master", m.Name(),
			"index_name", seq.IndexName(),
			"index_unit", seq.IndexUnit(),
			"index_type", seq.IndexType().String(),
		)
		return "", fmt.Errorf("browser %s: sequence %s: %w", b.name, seq.Name(), ErrIncompatible)
	}

	was := b.StartModify()
	defer b.EndModify(was)

	e := b.attach(seq)
	if len(b.entries) == 1 {
		b.setSelected(b.initialSelection())
	}
	b.notify(EventModified)
	b.notify(EventMasterAdvanced)
	return e.postfix, nil
}

// RemoveSequence detaches seq. Playback and recording stop, and a proxy the
// browser owns is removed from the scene. Returns false if seq is not attached.
func (b *Browser) RemoveSequence(seq *sequence.Sequence) bool {
	e := b.Entry(seq)
	if e == nil {
		return false
	}
	b.removeEntry(e)
	return true
}

func (b *Browser) removeEntry(e *SyncEntry) {
	was := b.StartModify()
	defer b.EndModify(was)

	b.SetPlaybackActive(false)
	b.SetRecordingActive(false)
	b.RemoveProxy(e.postfix)
	for i, cur := range b.entries {
		if cur == e {
			b.entries = append(b.entries[:i], b.entries[i+1:]...)
			break
		}
	}
	b.ClampSelection()
	b.notify(EventModified)
}

// RemoveAll detaches every sequence, the master last, and clears the selection.
func (b *Browser) RemoveAll() {
	was := b.StartModify()
	defer b.EndModify(was)

	for i := len(b.entries) - 1; i >= 0; i-- {
		e := b.entries[i]
		if e.seq == nil {
			slog.Error("dropping unresolved sequence entry", "browser", b.name, "sequence_id", e.sequenceID)
		}
		b.removeEntry(e)
	}
	b.setSelected(-1)
}

// Resolve binds entries restored from attributes to sequences and starts
// observing their proxies. Returns the number of entries still unresolved.
func (b *Browser) Resolve(lookup func(id string) (*sequence.Sequence, bool)) int {
	unresolved := 0
	for _, e := range b.entries {
		if e.seq == nil {
			if seq, ok := lookup(e.sequenceID); ok {
				e.seq = seq
			}
		}
		if e.seq == nil {
			unresolved++
			continue
		}
		if e.cancelObserve == nil {
			b.observeProxy(e)
		}
	}
	if unresolved > 0 {
		slog.Debug("browser has unresolved sequences", "browser", b.name, "unresolved", unresolved)
	}
	return unresolved
}
