package engine

import (
	"log/slog"

	"github.com/slicer/sequences/internal/browser"
	"github.com/slicer/sequences/internal/node"
	"github.com/slicer/sequences/internal/sequence"
)

// Pull copies, for every playback-enabled entry of b, the item at the
// master's current index value into the entry's proxy, creating owned
// proxies where none exist or the class changed.
//
// Pull is a no-op while another pull or push runs, while b is recording,
// and when there is no current index value. Entries whose sequence is not
// resolved, or that have no item to show, are skipped. A browser whose
// master is not resolved releases all of its proxies. Returns true if the
// pass ran.
func (e *Engine) Pull(b *browser.Browser) bool {
	if b == nil {
		slog.Error("pull: nil browser")
		return false
	}
	if !e.enter(StatePulling) {
		slog.Debug("pull skipped, sync in progress", "browser", b.Name(), "state", e.state.String())
		return false
	}
	defer e.leave()

	if b.Recording().Active {
		return false
	}
	if b.Master() == nil {
		if b.Len() > 0 {
			slog.Debug("pull: master not resolved, releasing proxies", "browser", b.Name())
			b.RemoveAllProxies()
		}
		return false
	}
	value, ok := b.CurrentIndexValue()
	if !ok {
		return false
	}

	type bracket struct {
		n   node.Node
		was bool
	}
	var brackets []bracket
	for _, entry := range b.Entries() {
		seq := entry.Sequence()
		if seq == nil {
			slog.Debug("pull: sequence not resolved", "browser", b.Name(), "sequence_id", entry.SequenceID())
			continue
		}
		props := entry.Properties()
		if !props.Playback {
			continue
		}
		source, ok := e.resolveSource(b, seq, props, value)
		if !ok {
			continue
		}

		target := b.Proxy(seq)
		if target != nil && target.Class() != source.Class() {
			slog.Debug("proxy class changed, replacing proxy",
				"browser", b.Name(), "sequence", seq.Name(),
				"from", string(target.Class()), "to", string(source.Class()))
			target = nil
		}
		created := false
		if target == nil {
			n, err := b.AddProxyCopy(seq, source)
			if err != nil {
				slog.Warn("pull: cannot create proxy", "browser", b.Name(), "sequence", seq.Name(), "error", err)
				continue
			}
			target, created = n, true
		}

		// Every proxy stays bracketed until all of them hold the new state,
		// so observers never see a half-updated set.
		brackets = append(brackets, bracket{n: target, was: target.StartModify()})
		if err := node.CopyContent(target, source, !props.SaveChanges); err != nil {
			slog.Warn("pull: copy failed", "browser", b.Name(), "sequence", seq.Name(), "error", err)
			continue
		}
		if created {
			if dd, ok := target.(node.DisplayDefaulter); ok {
				dd.CreateDefaultDisplay()
			}
		}
		if props.OverwriteProxyName && !target.Singleton() {
			target.SetAttribute(sequence.AttrBaseName, seq.Name())
			target.SetName(ProxyName(seq.Name(), b.Master(), value))
		}
	}
	for _, br := range brackets {
		br.n.EndModify(br.was)
	}

	e.emit(TracePull, b)
	return true
}

// ProxyName is the name a proxy gets when its browser overwrites proxy
// names: "<base> [<indexName>=<value><unit>]", without "<indexName>=" when
// the master has no index name.
func ProxyName(base string, master *sequence.Sequence, value string) string {
	label := value + master.IndexUnit()
	if name := master.IndexName(); name != "" {
		label = name + "=" + label
	}
	return base + " [" + label + "]"
}

// resolveSource picks the node whose content seq's proxy should show at
// value, applying the entry's missing-item policy. Returns false when the
// proxy should be left alone.
func (e *Engine) resolveSource(b *browser.Browser, seq *sequence.Sequence, props browser.SyncProperties, value string) (node.Node, bool) {
	if seq.Len() == 0 {
		if !props.SaveChanges {
			return nil, false
		}
		// An empty sequence that saves changes is seeded from its proxy.
		proxy := b.Proxy(seq)
		if proxy == nil {
			return nil, false
		}
		return e.materialize(seq, proxy, value)
	}

	if n, ok := seq.DataNodeAtValue(value, true); ok {
		return n, true
	}

	switch props.MissingItem {
	case browser.CreateFromDefault:
		def, ok := e.defaultItem(seq)
		if !ok {
			return nil, false
		}
		if !props.SaveChanges {
			return def, true
		}
		return e.materialize(seq, def, value)
	case browser.SetToDefault:
		return e.defaultItem(seq)
	default:
		prev, ok := seq.DataNodeAtValue(value, false)
		if !ok {
			return nil, false
		}
		if !props.SaveChanges {
			return prev, true
		}
		return e.materialize(seq, prev, value)
	}
}

func (e *Engine) materialize(seq *sequence.Sequence, src node.Node, value string) (node.Node, bool) {
	stored, err := seq.SetDataNodeAtValue(src, value)
	if err != nil {
		slog.Warn("pull: cannot create item", "sequence", seq.Name(), "index_value", value, "error", err)
		return nil, false
	}
	slog.Debug("pull: created item", "sequence", seq.Name(), "index_value", value)
	return stored, true
}

// defaultItem builds a default-constructed node of seq's item class. It is
// not added anywhere.
func (e *Engine) defaultItem(seq *sequence.Sequence) (node.Node, bool) {
	class := seq.DataNodeClass()
	if class == "" {
		return nil, false
	}
	n, err := seq.Items().CreateNodeByClass(class)
	if err != nil {
		slog.Warn("pull: cannot create default item", "sequence", seq.Name(), "class", string(class), "error", err)
		return nil, false
	}
	n.SetName(seq.Name())
	return n, true
}
