package sequence

import (
	"log/slog"
	"strconv"
	"strings"

	"github.com/slicer/sequences/internal/node"
	"github.com/slicer/sequences/internal/timeline"
)

// Persisted attribute names.
const (
	AttrIndexName   = "indexName"
	AttrIndexUnit   = "indexUnit"
	AttrIndexType   = "indexType"
	AttrTolerance   = "numericIndexValueTolerance"
	AttrIndexValues = "indexValues"
	AttrClass       = "dataNodeClass"
)

// Attributes returns the flat attribute list persisted for the sequence.
// indexValues is "itemID:value;itemID:value;..." in timeline order.
func (s *Sequence) Attributes() map[string]string {
	var b strings.Builder
	for _, e := range s.timeline.Entries() {
		id := e.ItemID
		if e.Item != nil {
			id = e.Item.ID()
		}
		if id == "" {
			slog.Error("item without identity at index value", "sequence", s.name, "index_value", e.Value)
			continue
		}
		if b.Len() > 0 {
			b.WriteByte(';')
		}
		b.WriteString(id)
		b.WriteByte(':')
		b.WriteString(e.Value)
	}
	attrs := map[string]string{
		AttrIndexName:   s.indexName,
		AttrIndexUnit:   s.indexUnit,
		AttrIndexType:   s.IndexType().String(),
		AttrTolerance:   strconv.FormatFloat(s.Tolerance(), 'g', -1, 64),
		AttrIndexValues: b.String(),
	}
	if s.class != "" {
		attrs[AttrClass] = string(s.class)
	}
	return attrs
}

// ReadAttributes restores state written by Attributes. Missing attributes
// keep their current value. An unknown index type falls back to text and an
// unparsable tolerance to the default. Entries come back unresolved; call
// ResolveItems once the item store is loaded.
func (s *Sequence) ReadAttributes(attrs map[string]string) {
	if v, ok := attrs[AttrIndexName]; ok {
		s.indexName = v
	}
	if v, ok := attrs[AttrIndexUnit]; ok {
		s.indexUnit = v
	}
	if v, ok := attrs[AttrIndexType]; ok {
		t, known := timeline.ParseIndexType(v)
		if !known {
			slog.Error("invalid index type, assuming text", "sequence", s.name, "index_type", v)
			t = timeline.Text
		}
		s.timeline.SetIndexType(t)
	}
	if v, ok := attrs[AttrTolerance]; ok {
		tol, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			slog.Warn("invalid tolerance, using default", "sequence", s.name, "value", v)
			tol = timeline.DefaultTolerance
		}
		s.timeline.SetTolerance(tol)
	}
	if v, ok := attrs[AttrClass]; ok {
		s.class = node.Class(v)
	}
	if v, ok := attrs[AttrIndexValues]; ok {
		s.readIndexValues(v)
	}
	s.modified()
}

func (s *Sequence) readIndexValues(text string) {
	s.timeline.Clear()
	for _, pair := range strings.Split(text, ";") {
		sep := strings.IndexByte(pair, ':')
		if sep <= 0 {
			if pair != "" {
				slog.Warn("skipping malformed index entry", "sequence", s.name, "entry", pair)
			}
			continue
		}
		s.timeline.InsertPending(pair[sep+1:], pair[:sep])
	}
}
