package engine

import (
	"fmt"
	"log/slog"
	"sort"

	"github.com/slicer/sequences/internal/browser"
	"github.com/slicer/sequences/internal/node"
	"github.com/slicer/sequences/internal/sequence"
	"github.com/slicer/sequences/internal/store"
)

// Snapshot metadata keys.
const (
	MetaFormatVersion = "format_version"
	MetaSceneHash     = "scene_hash"

	formatVersion = "1"

	// attrSingleton carries node.Singleton through persistence.
	attrSingleton = "Sequences.Singleton"
)

// Export captures the workspace: scene nodes, sequences with their items,
// then browsers, each with its flat attribute list.
func (e *Engine) Export() store.Snapshot {
	snap := store.Snapshot{Meta: map[string]string{MetaFormatVersion: formatVersion}}
	for _, n := range e.scene.Nodes() {
		snap.Objects = append(snap.Objects, nodeObject(store.KindNode, n, ""))
	}
	for _, s := range e.sequences {
		snap.Objects = append(snap.Objects, store.Object{
			Kind:       store.KindSequence,
			ID:         s.ID(),
			Name:       s.Name(),
			Attributes: s.Attributes(),
		})
		for _, item := range s.Items().Nodes() {
			snap.Objects = append(snap.Objects, nodeObject(store.KindItem, item, s.ID()))
		}
	}
	for _, b := range e.browsers {
		snap.Objects = append(snap.Objects, store.Object{
			Kind:       store.KindBrowser,
			ID:         b.ID(),
			Name:       b.Name(),
			Attributes: b.Attributes(),
		})
	}
	return snap
}

func nodeObject(kind store.Kind, n node.Node, parent string) store.Object {
	attrs := make(map[string]string)
	for _, k := range n.AttributeNames() {
		attrs[k] = n.Attribute(k)
	}
	if n.Singleton() {
		attrs[attrSingleton] = "true"
	}
	return store.Object{
		Kind:       kind,
		ID:         n.ID(),
		ParentID:   parent,
		Class:      string(n.Class()),
		Name:       n.Name(),
		Content:    n.Content(),
		Attributes: attrs,
	}
}

// Import replaces the workspace with snap. The scene is marked importing
// for the duration, so proxies restored with their content are not pushed
// back into sequences. References that cannot be resolved are logged and
// left dangling; browsers skip such entries until they resolve.
func (e *Engine) Import(snap store.Snapshot) error {
	if v, ok := snap.Meta[MetaFormatVersion]; ok && v != formatVersion {
		return fmt.Errorf("import: unsupported format version %q", v)
	}

	e.Reset()
	e.scene.SetImporting(true)
	defer e.scene.SetImporting(false)

	for _, o := range snap.ByKind(store.KindNode) {
		n, err := e.restoreNode(o)
		if err != nil {
			return fmt.Errorf("import: %w", err)
		}
		e.scene.AddNode(n)
	}

	for _, o := range snap.ByKind(store.KindSequence) {
		seq := sequence.New(o.Name, sequence.WithItemIDs(e.ids), sequence.WithFactory(e.factory))
		seq.SetID(o.ID)
		seq.ReadAttributes(o.Attributes)
		for _, io := range snap.Items(o.ID) {
			n, err := e.restoreNode(io)
			if err != nil {
				return fmt.Errorf("import sequence %s: %w", o.Name, err)
			}
			seq.Items().AddNode(n)
		}
		if missing := seq.ResolveItems(); missing > 0 {
			slog.Warn("sequence has items missing from the snapshot",
				"sequence", o.Name, "missing", missing,
				"error", NewMissingReferenceError("", o.ID, "item"))
		}
		e.AddSequence(seq)
	}

	for _, o := range snap.ByKind(store.KindBrowser) {
		b := browser.New(o.Name, e.scene, browser.WithID(o.ID), browser.WithNow(e.wall.Now))
		if err := b.ReadAttributes(o.Attributes); err != nil {
			slog.Warn("browser entries keep default synchronization properties",
				"browser", o.Name,
				"error", NewMalformedPropertiesError(o.ID, err))
		}
		if missing := b.Resolve(e.sequenceByID); missing > 0 {
			slog.Warn("browser references missing sequences",
				"browser", o.Name, "missing", missing,
				"error", NewMissingReferenceError(o.ID, "", "sequence"))
		}
		e.AddBrowser(b)
	}

	slog.Info("workspace imported",
		"nodes", e.scene.Len(),
		"sequences", len(e.sequences),
		"browsers", len(e.browsers),
	)
	return nil
}

func (e *Engine) restoreNode(o store.Object) (node.Node, error) {
	n, err := e.factory.New(node.Class(o.Class))
	if err != nil {
		return nil, fmt.Errorf("%s %q: %w", o.Kind, o.ID, err)
	}
	n.SetID(o.ID)
	n.SetName(o.Name)
	keys := make([]string, 0, len(o.Attributes))
	for k := range o.Attributes {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if k == attrSingleton {
			n.SetSingleton(o.Attributes[k] == "true")
			continue
		}
		n.SetAttribute(k, o.Attributes[k])
	}
	if err := n.SetContent(o.Content); err != nil {
		return nil, fmt.Errorf("%s %q: %w", o.Kind, o.ID, err)
	}
	return n, nil
}

func (e *Engine) sequenceByID(id string) (*sequence.Sequence, bool) {
	for _, s := range e.sequences {
		if s.ID() == id {
			return s, true
		}
	}
	return nil, false
}
