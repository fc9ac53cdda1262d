package engine

import (
	"fmt"
	"log/slog"

	"github.com/slicer/sequences/internal/browser"
	"github.com/slicer/sequences/internal/node"
	"github.com/slicer/sequences/internal/sequence"
)

// AddSynchronizedNode adds seq to b, with proxy as its borrowed proxy.
//
// Playback and recording of b stop first. When seq is nil a new empty
// sequence named "<proxy name>-Sequence" is created with the master's index
// metadata, so a node can start being recorded in one call. An incompatible
// seq is refused with an ErrCodeIncompatible SyncError.
func (e *Engine) AddSynchronizedNode(seq *sequence.Sequence, proxy node.Node, b *browser.Browser) (*sequence.Sequence, error) {
	if b == nil {
		slog.Warn("add synchronized node: no browser")
		return nil, NewInvalidBrowserError("")
	}

	was := b.StartModify()
	defer b.EndModify(was)

	b.SetPlaybackActive(false)
	b.SetRecordingActive(false)

	if seq == nil {
		name := "Sequence"
		if proxy != nil {
			name = proxy.Name() + "-Sequence"
		}
		seq = e.NewSequence(name)
		if m := b.Master(); m != nil {
			seq.CopyIndexMetadataFrom(m)
		}
	} else {
		e.AddSequence(seq)
	}

	if m := b.Master(); m != nil && m != seq && !m.IsCompatible(seq) {
		slog.Warn("add synchronized node: incompatible sequence",
			"browser", b.Name(), "sequence", seq.Name(), "master", m.Name())
		return nil, NewIncompatibleError(b.ID(), seq.ID())
	}
	if _, err := b.AddSynchronized(seq); err != nil {
		return nil, fmt.Errorf("add synchronized node: %w", err)
	}
	if proxy != nil {
		if _, err := b.SetProxy(seq, proxy, browser.Borrowed); err != nil {
			return nil, fmt.Errorf("add synchronized node: %w", err)
		}
		if dd, ok := proxy.(node.DisplayDefaulter); ok {
			dd.CreateDefaultDisplay()
		}
	}
	return seq, nil
}

// CompatibleSequences returns the registered sequences, other than master,
// that master's browser would accept.
func (e *Engine) CompatibleSequences(master *sequence.Sequence) []*sequence.Sequence {
	if master == nil {
		return nil
	}
	var out []*sequence.Sequence
	for _, s := range e.sequences {
		if s != master && master.IsCompatible(s) {
			out = append(out, s)
		}
	}
	return out
}

// BrowsersForSequence returns the registered browsers seq is attached to,
// as master or synchronized sequence.
func (e *Engine) BrowsersForSequence(seq *sequence.Sequence) []*browser.Browser {
	var out []*browser.Browser
	for _, b := range e.browsers {
		if b.IsSynchronized(seq) {
			out = append(out, b)
		}
	}
	return out
}

// FirstBrowserForSequence returns the first browser seq is attached to, or nil.
func (e *Engine) FirstBrowserForSequence(seq *sequence.Sequence) *browser.Browser {
	for _, b := range e.browsers {
		if b.IsSynchronized(seq) {
			return b
		}
	}
	return nil
}

// BrowserForProxy returns the first browser using the node with the given
// ID as a proxy, or nil.
func (e *Engine) BrowserForProxy(id string) *browser.Browser {
	for _, b := range e.browsers {
		if b.IsProxy(id) {
			return b
		}
	}
	return nil
}
