// Package sequence implements Sequence: an indexed timeline of data items
// plus index metadata, backed by a private item store.
//
// A Sequence is the sole writer of its timeline and of its item store. Items
// handed to SetDataNodeAtValue are deep-copied into the store; the caller
// keeps ownership of the node it passed in.
package sequence

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/slicer/sequences/internal/node"
	"github.com/slicer/sequences/internal/scene"
	"github.com/slicer/sequences/internal/timeline"
)

// Defaults for newly created sequences.
const (
	DefaultIndexName = "time"
	DefaultIndexUnit = "s"
)

// AttrBaseName is the node attribute holding the name an item was stored
// under. Proxies are renamed from it.
const AttrBaseName = "Sequences.BaseName"

var (
	// ErrNilNode is returned when a nil node is stored.
	ErrNilNode = errors.New("nil data node")

	// ErrNotFound is returned when no item exists at an index value.
	ErrNotFound = timeline.ErrNotFound
)

// Sequence is an ordered, indexed collection of data items.
type Sequence struct {
	id   string
	name string

	indexName string
	indexUnit string
	class     node.Class // declared item class, used while the sequence is empty

	timeline *timeline.Timeline[node.Node]
	items    *scene.Scene

	hook func(*Sequence)
}

// Option configures a Sequence.
type Option func(*sequenceConfig)

type sequenceConfig struct {
	sceneOpts []scene.Option
}

// WithItemIDs sets the identity source of the item store.
func WithItemIDs(g scene.IDGenerator) Option {
	return func(c *sequenceConfig) {
		c.sceneOpts = append(c.sceneOpts, scene.WithIDGenerator(g))
	}
}

// WithFactory sets the node factory of the item store.
func WithFactory(f node.Factory) Option {
	return func(c *sequenceConfig) {
		c.sceneOpts = append(c.sceneOpts, scene.WithFactory(f))
	}
}

// New creates an empty numeric sequence indexed by time in seconds.
func New(name string, opts ...Option) *Sequence {
	var cfg sequenceConfig
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Sequence{
		name:      name,
		indexName: DefaultIndexName,
		indexUnit: DefaultIndexUnit,
		timeline:  timeline.New[node.Node](timeline.Numeric, timeline.DefaultTolerance),
		items:     scene.New(cfg.sceneOpts...),
	}
}

// ID returns the sequence ID. Registering a sequence without one assigns it.
func (s *Sequence) ID() string { return s.id }
// SetID sets the ID.
func (s *Sequence) SetID(id string) { s.id = id }
// Name returns the display name.
func (s *Sequence) Name() string { return s.name }
// SetName renames the sequence without notifying observers.
func (s *Sequence) SetName(n string) { s.name = n }
// IndexName returns the name of the index, "time" by default.
func (s *Sequence) IndexName() string { return s.indexName }
// IndexUnit returns the unit of index values, "s" by default.
func (s *Sequence) IndexUnit() string { return s.indexUnit }
// Items returns the store holding the item nodes.
func (s *Sequence) Items() *scene.Scene { return s.items }

// SetIndexName changes the index name. Browsers compare it when checking
// compatibility with their master.
func (s *Sequence) SetIndexName(name string) {
	if s.indexName != name {
		s.indexName = name
		s.modified()
	}
}

// SetIndexUnit changes the index unit.
func (s *Sequence) SetIndexUnit(unit string) {
	if s.indexUnit != unit {
		s.indexUnit = unit
		s.modified()
	}
}

// IndexType returns how index values are compared.
func (s *Sequence) IndexType() timeline.IndexType {
	return s.timeline.IndexType()
}

// SetIndexType changes the index type. Existing entries keep their order;
// switching a populated sequence is logged since later numeric lookups may
// miss entries that are out of numeric order.
func (s *Sequence) SetIndexType(t timeline.IndexType) {
	if s.timeline.IndexType() == t {
		return
	}
	if s.timeline.Len() > 0 {
		slog.Warn("index type changed on populated sequence; entries are not re-sorted",
			"sequence", s.name,
			"from", s.timeline.IndexType().String(),
			"to", t.String(),
			"items", s.timeline.Len(),
		)
	}
	s.timeline.SetIndexType(t)
	s.modified()
}

// Tolerance returns the numeric matching tolerance.
func (s *Sequence) Tolerance() float64 {
	return s.timeline.Tolerance()
}

// SetTolerance sets the numeric matching tolerance. Text sequences ignore it.
func (s *Sequence) SetTolerance(tol float64) {
	s.timeline.SetTolerance(tol)
	s.modified()
}

// SetModifiedHook registers fn to run after every change to the sequence.
func (s *Sequence) SetModifiedHook(fn func(*Sequence)) {
	s.hook = fn
}

func (s *Sequence) modified() {
	if s.hook != nil {
		s.hook(s)
	}
}

// SetDataNodeAtValue stores a deep copy of n at value, replacing any item
// already stored there. Returns the stored copy.
func (s *Sequence) SetDataNodeAtValue(n node.Node, value string) (node.Node, error) {
	if n == nil {
		return nil, fmt.Errorf("set data node at %q: %w", value, ErrNilNode)
	}
	stored, err := s.copyToItems(n)
	if err != nil {
		return nil, fmt.Errorf("set data node at %q: %w", value, err)
	}
	if pos := s.timeline.ItemNumber(value, true); pos >= 0 {
		if e, _ := s.timeline.Nth(pos); e.Item != nil {
			s.items.RemoveNode(e.Item.ID())
		}
		s.timeline.SetItem(pos, stored)
	} else {
		s.timeline.InsertOrReplace(value, stored)
	}
	s.modified()
	return stored, nil
}

func (s *Sequence) copyToItems(src node.Node) (node.Node, error) {
	clone, err := s.items.Factory().Clone(src)
	if err != nil {
		return nil, err
	}
	baseName := src.Attribute(AttrBaseName)
	if baseName == "" {
		baseName = src.Name()
	}
	if baseName == "" {
		baseName = "Data"
	}
	clone.SetName(baseName)
	clone.SetAttribute(AttrBaseName, baseName)
	clone.SetSingleton(false)
	s.items.AddNode(clone)
	return clone, nil
}

// DataNodeAtValue returns the item at value. With exact=false a numeric
// sequence falls back to the closest previous item.
func (s *Sequence) DataNodeAtValue(value string, exact bool) (node.Node, bool) {
	n, ok := s.timeline.Lookup(value, exact)
	if !ok || n == nil {
		return nil, false
	}
	return n, true
}

// ItemNumberFromIndexValue returns the position of the item at value, or -1.
func (s *Sequence) ItemNumberFromIndexValue(value string, exact bool) int {
	return s.timeline.ItemNumber(value, exact)
}

// RemoveDataNodeAtValue removes the item at value. Returns false if there is none.
func (s *Sequence) RemoveDataNodeAtValue(value string) bool {
	pos := s.timeline.ItemNumber(value, true)
	if pos < 0 {
		slog.Warn("no item to remove", "sequence", s.name, "index_value", value)
		return false
	}
	e, _ := s.timeline.Nth(pos)
	if e.Item != nil {
		s.items.RemoveNode(e.Item.ID())
	}
	s.timeline.RemoveAt(pos)
	s.modified()
	return true
}

// UpdateDataNodeAtValue copies n's content into the item already stored at
// value. No entry is created. Returns false if there is no item at value or
// the copy fails.
func (s *Sequence) UpdateDataNodeAtValue(n node.Node, value string, shallow bool) bool {
	if n == nil {
		slog.Error("update data node: nil node", "sequence", s.name, "index_value", value)
		return false
	}
	target, ok := s.DataNodeAtValue(value, true)
	if !ok {
		slog.Debug("update data node: index value not found", "sequence", s.name, "index_value", value)
		return false
	}
	if err := node.CopyContent(target, n, !shallow); err != nil {
		slog.Warn("update data node failed", "sequence", s.name, "index_value", value, "error", err)
		return false
	}
	s.modified()
	return true
}

// UpdateIndexValue moves the item at oldValue to newValue.
func (s *Sequence) UpdateIndexValue(oldValue, newValue string) error {
	if err := s.timeline.UpdateValue(oldValue, newValue); err != nil {
		return fmt.Errorf("sequence %s: %w", s.name, err)
	}
	if oldValue != newValue {
		s.modified()
	}
	return nil
}

// NthIndexValue returns the index value at position i, or "" when out of range.
func (s *Sequence) NthIndexValue(i int) string {
	e, ok := s.timeline.Nth(i)
	if !ok {
		return ""
	}
	return e.Value
}

// NthDataNode returns the item at position i.
func (s *Sequence) NthDataNode(i int) (node.Node, bool) {
	e, ok := s.timeline.Nth(i)
	if !ok || e.Item == nil {
		return nil, false
	}
	return e.Item, true
}

// Len returns the number of items.
func (s *Sequence) Len() int {
	return s.timeline.Len()
}

// IndexValues returns every index value in timeline order.
func (s *Sequence) IndexValues() []string {
	return s.timeline.Values()
}

// RemoveAllDataNodes empties the sequence and its item store.
func (s *Sequence) RemoveAllDataNodes() {
	s.timeline.Clear()
	s.items.Clear()
	s.modified()
}

// DataNodeClass returns the class of the first item. An empty sequence (or
// one whose first item is not resolved yet) reports its declared class,
// which is "" unless SetDataNodeClass was called.
func (s *Sequence) DataNodeClass() node.Class {
	n, ok := s.NthDataNode(0)
	if !ok {
		return s.class
	}
	return n.Class()
}

// SetDataNodeClass declares the item class of the sequence. It lets proxies
// and default items be created before the first item is recorded.
func (s *Sequence) SetDataNodeClass(class node.Class) {
	s.class = class
}

// CopyIndexMetadataFrom copies index name, unit, type and tolerance. Items
// are never copied.
func (s *Sequence) CopyIndexMetadataFrom(other *Sequence) {
	s.indexName = other.indexName
	s.indexUnit = other.indexUnit
	s.timeline.SetIndexType(other.IndexType())
	s.timeline.SetTolerance(other.Tolerance())
	s.modified()
}

// IsCompatible reports whether other shares index name, unit and type.
func (s *Sequence) IsCompatible(other *Sequence) bool {
	if other == nil {
		return false
	}
	return s.indexName == other.indexName &&
		s.indexUnit == other.indexUnit &&
		s.IndexType() == other.IndexType()
}

// ResolveItems binds entries restored from attributes to the nodes of the
// item store. Returns the number of entries still unresolved.
func (s *Sequence) ResolveItems() int {
	unresolved := 0
	for i, e := range s.timeline.Entries() {
		if e.Item != nil {
			continue
		}
		n, ok := s.items.Node(e.ItemID)
		if !ok {
			unresolved++
			continue
		}
		s.timeline.SetItem(i, n)
	}
	return unresolved
}
