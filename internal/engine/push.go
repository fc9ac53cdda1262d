package engine

import (
	"log/slog"

	"github.com/slicer/sequences/internal/browser"
	"github.com/slicer/sequences/internal/node"
)

// Push writes a proxy change back into its sequence.
//
// While b records, the change triggers a snapshot of every recording
// entry (only when proxy is the master's proxy if b records on master
// changes only). Otherwise, when the proxy's entry saves changes, the
// proxy content is copied into the item at the current index value; no
// item is created.
//
// Push is a no-op during playback and while another pull or push runs.
// Returns true if a sequence was written.
func (e *Engine) Push(b *browser.Browser, proxy node.Node) bool {
	if b == nil {
		slog.Error("push: nil browser")
		return false
	}
	if b.Playback().Active {
		return false
	}
	if !e.enter(StatePushing) {
		slog.Debug("push skipped, sync in progress", "browser", b.Name(), "state", e.state.String())
		return false
	}
	defer e.leave()

	master := b.Master()
	if master == nil {
		slog.Error("push: browser has no master", "browser", b.Name())
		return false
	}
	if proxy == nil {
		slog.Error("push: nil proxy", "browser", b.Name())
		return false
	}

	if b.Recording().Active {
		if b.Recording().MasterOnly {
			mp := b.Proxy(master)
			if mp == nil || mp.ID() != proxy.ID() {
				return false
			}
		}
		return e.captureSnapshot(b)
	}

	seq := b.SequenceForProxy(proxy)
	if seq == nil {
		slog.Debug("push: node is not a proxy of this browser", "browser", b.Name(), "node_id", proxy.ID())
		return false
	}
	props, _ := b.Properties(seq)
	if !props.SaveChanges {
		return false
	}
	value, ok := b.CurrentIndexValue()
	if !ok {
		return false
	}
	if seq.ItemNumberFromIndexValue(value, true) < 0 {
		slog.Debug("push: no item at current index value", "browser", b.Name(), "sequence", seq.Name(), "index_value", value)
		return false
	}
	if !seq.UpdateDataNodeAtValue(proxy, value, true) {
		return false
	}
	e.emit(TracePush, b)
	return true
}

// CaptureSnapshot stores the current content of every recording-enabled
// proxy of b at a new index value (see browser.SnapshotIndexValue) and
// selects the new last item. Returns true if anything was stored.
//
// Outside recording this is the single-shot snapshot: the proxies are
// pulled again afterwards so they are named after the new selection.
func (e *Engine) CaptureSnapshot(b *browser.Browser) bool {
	if b == nil {
		slog.Error("snapshot: nil browser")
		return false
	}
	if !e.enter(StatePushing) {
		slog.Debug("snapshot skipped, sync in progress", "browser", b.Name(), "state", e.state.String())
		return false
	}
	added := e.captureSnapshot(b)
	e.leave()

	if added && !b.Recording().Active {
		e.Pull(b)
	}
	return added
}

// captureSnapshot reports whether anything was stored. A candidate the
// sampling mode rejects is dropped, not retried.
func (e *Engine) captureSnapshot(b *browser.Browser) (added bool) {
	value, ok := b.SnapshotIndexValue()
	if !ok {
		slog.Debug("snapshot dropped by sampling mode", "browser", b.Name())
		return false
	}

	was := b.StartModify()
	defer b.EndModify(was)

	for _, entry := range b.Entries() {
		seq := entry.Sequence()
		if seq == nil || !entry.Properties().Recording {
			continue
		}
		proxy := b.Proxy(seq)
		if proxy == nil {
			slog.Debug("snapshot: sequence has no proxy", "browser", b.Name(), "sequence", seq.Name())
			continue
		}
		if _, err := seq.SetDataNodeAtValue(proxy, value); err != nil {
			slog.Warn("snapshot: cannot store item", "browser", b.Name(), "sequence", seq.Name(), "index_value", value, "error", err)
			continue
		}
		added = true
	}
	if added {
		b.SelectLast()
		e.emitAt(TraceSnapshot, b, value)
	}
	return added
}
