package engine

import (
	"fmt"
	"strconv"

	"github.com/slicer/sequences/internal/browser"
	"github.com/slicer/sequences/internal/ir"
	"github.com/slicer/sequences/internal/node"
	"github.com/slicer/sequences/internal/sequence"
	"github.com/slicer/sequences/internal/timeline"
)

// Build adds the sequences and browsers of a compiled scene description to
// the workspace. Sequences are built first so browsers can reference them
// by name. Each browser is assembled inside one modify bracket: proxies are
// pulled once, with the final properties, when it closes.
func (e *Engine) Build(desc ir.Scene) error {
	for _, spec := range desc.Sequences {
		if err := e.buildSequence(spec); err != nil {
			return fmt.Errorf("build sequence %s: %w", spec.Name, err)
		}
	}
	for _, spec := range desc.Browsers {
		if err := e.buildBrowser(spec); err != nil {
			return fmt.Errorf("build browser %s: %w", spec.Name, err)
		}
	}
	return nil
}

func (e *Engine) buildSequence(spec ir.SequenceSpec) error {
	seq := sequence.New(spec.Name, sequence.WithItemIDs(e.ids), sequence.WithFactory(e.factory))
	if spec.DataNodeClass != "" {
		seq.SetDataNodeClass(node.Class(spec.DataNodeClass))
	}
	if spec.IndexName != "" {
		seq.SetIndexName(spec.IndexName)
	}
	if spec.IndexUnit != "" {
		seq.SetIndexUnit(spec.IndexUnit)
	}
	if spec.IndexType != "" {
		t, ok := timeline.ParseIndexType(spec.IndexType)
		if !ok {
			return fmt.Errorf("unknown index type %q", spec.IndexType)
		}
		seq.SetIndexType(t)
	}
	if spec.Tolerance != "" {
		tol, err := strconv.ParseFloat(spec.Tolerance, 64)
		if err != nil || tol < 0 {
			return fmt.Errorf("invalid tolerance %q", spec.Tolerance)
		}
		seq.SetTolerance(tol)
	}

	for _, it := range spec.Items {
		class := it.Class
		if class == "" {
			class = spec.DataNodeClass
		}
		n, err := e.factory.New(node.Class(class))
		if err != nil {
			return fmt.Errorf("item at %q: %w", it.IndexValue, err)
		}
		name := it.Name
		if name == "" {
			name = spec.Name
		}
		n.SetName(name)
		if len(it.Content) > 0 {
			if err := n.SetContent(it.Content); err != nil {
				return fmt.Errorf("item at %q: %w", it.IndexValue, err)
			}
		}
		if _, err := seq.SetDataNodeAtValue(n, it.IndexValue); err != nil {
			return err
		}
	}
	e.AddSequence(seq)
	return nil
}

func (e *Engine) buildBrowser(spec ir.BrowserSpec) error {
	master := e.Sequence(spec.Master)
	if master == nil {
		return NewMissingReferenceError("", spec.Master, "master sequence "+strconv.Quote(spec.Master))
	}

	b := e.NewBrowser(spec.Name)
	was := b.StartModify()

	var created []string
	if err := e.assembleBrowser(b, master, spec, &created); err != nil {
		// Unregister before closing the bracket so the half-built browser
		// is never pulled.
		b.RemoveAll()
		e.RemoveBrowser(b)
		b.EndModify(was)
		for _, id := range created {
			e.scene.RemoveNode(id)
		}
		return err
	}
	b.EndModify(was)
	return nil
}

// assembleBrowser applies spec to a browser inside its modify bracket.
// IDs of proxy nodes it adds to the scene are appended to created.
func (e *Engine) assembleBrowser(b *browser.Browser, master *sequence.Sequence, spec ir.BrowserSpec, created *[]string) error {
	b.SetMaster(master)
	for _, ss := range spec.Synchronized {
		seq := e.Sequence(ss.Sequence)
		if seq == nil {
			return NewMissingReferenceError(b.ID(), ss.Sequence, "sequence "+strconv.Quote(ss.Sequence))
		}
		if _, err := b.AddSynchronized(seq); err != nil {
			return fmt.Errorf("%w: %w", NewIncompatibleError(b.ID(), seq.ID()), err)
		}
		props, err := syncProperties(ss)
		if err != nil {
			return err
		}
		b.SetProperties(seq, props)
		if ss.Proxy != "" {
			id, err := e.borrowProxy(b, seq, ss.Proxy)
			if err != nil {
				return err
			}
			if id != "" {
				*created = append(*created, id)
			}
		}
	}

	if spec.PlaybackRateFps != "" {
		fps, err := strconv.ParseFloat(spec.PlaybackRateFps, 64)
		if err != nil || !b.SetPlaybackRateFps(fps) {
			return fmt.Errorf("invalid playback rate %q", spec.PlaybackRateFps)
		}
	}
	b.SetPlaybackLooped(spec.PlaybackLooped)
	b.SetPlaybackItemSkipping(spec.ItemSkipping)
	b.SetRecordMasterOnly(spec.RecordMasterOnly)
	if spec.RecordingSampling != "" {
		mode, ok := browser.ParseSamplingMode(spec.RecordingSampling)
		if !ok {
			return fmt.Errorf("unknown recording sampling mode %q", spec.RecordingSampling)
		}
		b.SetRecordingSampling(mode)
	}
	if spec.IndexDisplayMode != "" {
		mode, ok := browser.ParseIndexDisplayMode(spec.IndexDisplayMode)
		if !ok {
			return fmt.Errorf("unknown index display mode %q", spec.IndexDisplayMode)
		}
		b.SetIndexDisplayMode(mode)
	}
	if spec.IndexDisplayFormat != "" {
		b.SetIndexDisplayFormat(spec.IndexDisplayFormat)
	}
	return nil
}

func syncProperties(ss ir.SyncSpec) (browser.SyncProperties, error) {
	props := browser.SyncProperties{
		Playback:           ss.Playback,
		Recording:          ss.Recording,
		OverwriteProxyName: ss.OverwriteProxyName,
		SaveChanges:        ss.SaveChanges,
	}
	if ss.MissingItem != "" {
		mode, ok := browser.ParseMissingItemMode(ss.MissingItem)
		if !ok {
			return props, fmt.Errorf("sequence %s: unknown missing item mode %q", ss.Sequence, ss.MissingItem)
		}
		props.MissingItem = mode
	}
	return props, nil
}

// borrowProxy makes the scene node called name the borrowed proxy of seq,
// creating it with seq's item class when the scene has no such node. It
// returns the ID of the node it created, or "" when the node existed.
func (e *Engine) borrowProxy(b *browser.Browser, seq *sequence.Sequence, name string) (string, error) {
	n, ok := e.scene.NodeByName(name)
	var createdID string
	if !ok {
		class := seq.DataNodeClass()
		if class == "" {
			return "", fmt.Errorf("proxy %q: sequence %s has no items and no declared class", name, seq.Name())
		}
		created, err := e.factory.New(class)
		if err != nil {
			return "", fmt.Errorf("proxy %q: %w", name, err)
		}
		created.SetName(name)
		createdID = e.scene.AddNode(created)
		n = created
	}
	if _, err := b.SetProxy(seq, n, browser.Borrowed); err != nil {
		return createdID, err
	}
	return createdID, nil
}
