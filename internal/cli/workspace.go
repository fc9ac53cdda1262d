package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/slicer/sequences/internal/engine"
	"github.com/slicer/sequences/internal/ir"
	"github.com/slicer/sequences/internal/store"
)

// WorkspaceSummary describes the sequences and browsers of an engine.
type WorkspaceSummary struct {
	Sequences []SequenceSummary `json:"sequences"`
	Browsers  []BrowserSummary  `json:"browsers"`
}

// SequenceSummary is one line of sequence output.
type SequenceSummary struct {
	Name  string `json:"name"`
	Index string `json:"index"` // "time [s, numeric]"
	Items int    `json:"items"`
	First string `json:"first,omitempty"`
	Last  string `json:"last,omitempty"`
}

// BrowserSummary is one line of browser output.
type BrowserSummary struct {
	Name         string `json:"name"`
	Master       string `json:"master,omitempty"`
	Synchronized int    `json:"synchronized"`
	Selected     int    `json:"selected"`
	IndexValue   string `json:"index_value,omitempty"`
	Display      string `json:"display,omitempty"`
	Playing      bool   `json:"playing"`
	Recording    bool   `json:"recording"`
}

// summarize reads the workspace. Call it on the goroutine that owns the
// engine: before Run, after Run returns, or from a CommandApply.
func summarize(e *engine.Engine) WorkspaceSummary {
	summary := WorkspaceSummary{
		Sequences: []SequenceSummary{},
		Browsers:  []BrowserSummary{},
	}
	for _, s := range e.Sequences() {
		ss := SequenceSummary{
			Name:  s.Name(),
			Index: fmt.Sprintf("%s [%s, %s]", s.IndexName(), s.IndexUnit(), s.IndexType()),
			Items: s.Len(),
		}
		if s.Len() > 0 {
			ss.First = s.NthIndexValue(0)
			ss.Last = s.NthIndexValue(s.Len() - 1)
		}
		summary.Sequences = append(summary.Sequences, ss)
	}
	for _, b := range e.Browsers() {
		bs := BrowserSummary{
			Name:         b.Name(),
			Synchronized: b.Len(),
			Selected:     b.SelectedItemNumber(),
			Display:      b.FormattedIndexValue(b.SelectedItemNumber()),
			Playing:      b.Playback().Active,
			Recording:    b.Recording().Active,
		}
		if m := b.Master(); m != nil {
			bs.Master = m.Name()
		}
		bs.IndexValue, _ = b.CurrentIndexValue()
		summary.Browsers = append(summary.Browsers, bs)
	}
	return summary
}

// writeSummary prints a workspace summary as text.
func writeSummary(w io.Writer, s WorkspaceSummary) {
	if len(s.Sequences) > 0 {
		fmt.Fprintln(w, "Sequences:")
		for _, seq := range s.Sequences {
			if seq.Items == 0 {
				fmt.Fprintf(w, "  %s: empty, index %s\n", seq.Name, seq.Index)
				continue
			}
			fmt.Fprintf(w, "  %s: %d item(s) from %s to %s, index %s\n",
				seq.Name, seq.Items, seq.First, seq.Last, seq.Index)
		}
	}
	if len(s.Browsers) > 0 {
		fmt.Fprintln(w, "Browsers:")
		for _, b := range s.Browsers {
			state := "stopped"
			switch {
			case b.Recording:
				state = "recording"
			case b.Playing:
				state = "playing"
			}
			fmt.Fprintf(w, "  %s: master %s, item %d (%s), %d synchronized, %s\n",
				b.Name, b.Master, b.Selected, b.Display, b.Synchronized, state)
		}
	}
}

// saveWorkspace writes the engine's workspace to the database at dbPath,
// tagged with the hash of the description it was built from.
func saveWorkspace(ctx context.Context, e *engine.Engine, desc ir.Scene, dbPath string) (map[store.Kind]int, error) {
	snap := e.Export()
	hash, err := ir.SceneHash(desc)
	if err != nil {
		return nil, err
	}
	snap.Meta[engine.MetaSceneHash] = hash

	st, err := store.Open(dbPath)
	if err != nil {
		return nil, err
	}
	defer func() {
		if closeErr := st.Close(); closeErr != nil {
			slog.Error("error closing database", "error", closeErr)
		}
	}()

	if err := st.Save(ctx, snap); err != nil {
		return nil, err
	}
	counts, err := st.Counts(ctx)
	if err != nil {
		return nil, err
	}
	slog.Info("workspace saved", "db", dbPath, "objects", len(snap.Objects), "scene_hash", hash)
	return counts, nil
}
