package engine

import (
	"log/slog"

	"github.com/slicer/sequences/internal/browser"
	"github.com/slicer/sequences/internal/sequence"
)

// NewSequence creates an empty sequence, registers it and returns it.
func (e *Engine) NewSequence(name string) *sequence.Sequence {
	seq := sequence.New(name, sequence.WithItemIDs(e.ids), sequence.WithFactory(e.factory))
	e.AddSequence(seq)
	return seq
}

// AddSequence registers seq, giving it an ID when it has none. The engine
// takes over the sequence's modified hook.
func (e *Engine) AddSequence(seq *sequence.Sequence) {
	if seq == nil {
		slog.Error("add sequence: nil sequence")
		return
	}
	for _, s := range e.sequences {
		if s == seq {
			return
		}
	}
	if seq.ID() == "" || e.Sequence(seq.ID()) != nil {
		seq.SetID(e.ids.Generate())
	}
	e.sequences = append(e.sequences, seq)
	seq.SetModifiedHook(e.sequenceModified)
}

// RemoveSequence detaches seq from every browser and unregisters it.
func (e *Engine) RemoveSequence(seq *sequence.Sequence) bool {
	for i, s := range e.sequences {
		if s != seq {
			continue
		}
		for _, b := range e.BrowsersForSequence(seq) {
			b.RemoveSequence(seq)
		}
		seq.SetModifiedHook(nil)
		e.sequences = append(e.sequences[:i], e.sequences[i+1:]...)
		return true
	}
	return false
}

// Sequence returns the registered sequence with the given ID or name.
func (e *Engine) Sequence(idOrName string) *sequence.Sequence {
	for _, s := range e.sequences {
		if s.ID() == idOrName {
			return s
		}
	}
	for _, s := range e.sequences {
		if s.Name() == idOrName {
			return s
		}
	}
	return nil
}

// Sequences returns the registered sequences in registration order.
func (e *Engine) Sequences() []*sequence.Sequence {
	return append([]*sequence.Sequence(nil), e.sequences...)
}

// NewBrowser creates an empty browser over the main scene, registers it and
// returns it.
func (e *Engine) NewBrowser(name string) *browser.Browser {
	b := browser.New(name, e.scene, browser.WithNow(e.wall.Now))
	e.AddBrowser(b)
	return b
}

// AddBrowser registers b and starts reacting to its events: a master
// advance pulls, a proxy content change pushes.
func (e *Engine) AddBrowser(b *browser.Browser) {
	if b == nil {
		slog.Error("add browser: nil browser")
		return
	}
	if _, ok := e.listeners[b]; ok {
		return
	}
	e.browsers = append(e.browsers, b)
	e.listeners[b] = b.AddListener(e.onBrowserEvent)
}

// RemoveBrowser unregisters b. Its proxies stay in the scene.
func (e *Engine) RemoveBrowser(b *browser.Browser) bool {
	id, ok := e.listeners[b]
	if !ok {
		return false
	}
	b.RemoveListener(id)
	delete(e.listeners, b)
	delete(e.lastTick, b.ID())
	for i, cur := range e.browsers {
		if cur == b {
			e.browsers = append(e.browsers[:i], e.browsers[i+1:]...)
			break
		}
	}
	return true
}

// Browser returns the registered browser with the given ID or name.
func (e *Engine) Browser(idOrName string) *browser.Browser {
	for _, b := range e.browsers {
		if b.ID() == idOrName {
			return b
		}
	}
	for _, b := range e.browsers {
		if b.Name() == idOrName {
			return b
		}
	}
	return nil
}

// Browsers returns the registered browsers in registration order.
func (e *Engine) Browsers() []*browser.Browser {
	return append([]*browser.Browser(nil), e.browsers...)
}

// Reset drops every browser, sequence and scene node.
func (e *Engine) Reset() {
	for _, b := range e.Browsers() {
		e.RemoveBrowser(b)
	}
	for _, s := range e.sequences {
		s.SetModifiedHook(nil)
	}
	e.sequences = nil
	e.scene.Clear()
}

func (e *Engine) onBrowserEvent(n browser.Notification) {
	switch n.Event {
	case browser.EventMasterAdvanced:
		e.Pull(n.Browser)
	case browser.EventProxyContentChanged:
		if e.scene.Importing() {
			slog.Debug("scene importing, not pushing proxy change", "browser", n.Browser.Name())
			return
		}
		e.Push(n.Browser, n.Proxy)
	}
}

// sequenceModified keeps every browser showing seq consistent with it: the
// selection is clamped when seq is a master, then proxies are pulled again.
// During a pull or push the pull is a no-op.
func (e *Engine) sequenceModified(seq *sequence.Sequence) {
	for _, b := range e.BrowsersForSequence(seq) {
		if b.Master() == seq {
			before := b.SelectedItemNumber()
			b.ClampSelection()
			if b.SelectedItemNumber() != before {
				continue // the selection change already pulled
			}
		}
		e.Pull(b)
	}
}
