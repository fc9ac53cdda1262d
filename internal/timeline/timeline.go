package timeline

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
)

// IndexType selects the ordering and equality rules of a Timeline.
type IndexType int

const (
	// Numeric index values are parsed as floats, sorted, and compared within tolerance.
	Numeric IndexType = iota
	// Text index values keep insertion order and compare exactly.
	Text
)

// DefaultTolerance is the numeric equality tolerance used when none is configured.
const DefaultTolerance = 0.001

// String returns the persisted name of the index type ("numeric" or "text").
func (t IndexType) String() string {
	switch t {
	case Numeric:
		return "numeric"
	case Text:
		return "text"
	default:
		return ""
	}
}

// ParseIndexType converts a persisted index type name back to an IndexType.
// Returns false for unknown names.
func ParseIndexType(s string) (IndexType, bool) {
	switch s {
	case "numeric":
		return Numeric, true
	case "text":
		return Text, true
	default:
		return Text, false
	}
}

var (
	// ErrNotFound is returned when an index value has no entry.
	ErrNotFound = errors.New("index value not found")

	// ErrDuplicate is returned when an index value is already taken.
	ErrDuplicate = errors.New("index value already exists")
)

// Entry is one (index value, item) pair of a Timeline.
//
// ItemID carries the identity of an item that is known by ID but not resolved
// yet (for example right after loading attributes, before the item store is
// read). Item is the zero value until the entry is resolved.
type Entry[T any] struct {
	Value  string
	Item   T
	ItemID string
}

// Timeline is an ordered index of items keyed by index value.
//
// Timeline is not safe for concurrent use; the owning Sequence is its only writer.
type Timeline[T any] struct {
	indexType IndexType
	tolerance float64
	entries   []Entry[T]
}

// New creates an empty timeline.
func New[T any](indexType IndexType, tolerance float64) *Timeline[T] {
	return &Timeline[T]{
		indexType: indexType,
		tolerance: tolerance,
	}
}

// IndexType returns the index type.
func (t *Timeline[T]) IndexType() IndexType {
	return t.indexType
}

// SetIndexType changes the index type.
//
// Existing entries are NOT re-sorted or re-validated. Switching a populated
// Text timeline to Numeric may leave entries out of numeric order, in which
// case lookups still terminate but may miss values.
func (t *Timeline[T]) SetIndexType(indexType IndexType) {
	t.indexType = indexType
}

// Tolerance returns the numeric equality tolerance.
func (t *Timeline[T]) Tolerance() float64 {
	return t.tolerance
}

// SetTolerance sets the numeric equality tolerance. Negative values are treated as 0.
func (t *Timeline[T]) SetTolerance(tolerance float64) {
	t.tolerance = math.Max(0, tolerance)
}

// Len returns the number of entries.
func (t *Timeline[T]) Len() int {
	return len(t.entries)
}

// Nth returns the entry at the given position.
func (t *Timeline[T]) Nth(position int) (Entry[T], bool) {
	if position < 0 || position >= len(t.entries) {
		return Entry[T]{}, false
	}
	return t.entries[position], true
}

// Entries returns a copy of all entries in timeline order.
func (t *Timeline[T]) Entries() []Entry[T] {
	out := make([]Entry[T], len(t.entries))
	copy(out, t.entries)
	return out
}

// Values returns the index values in timeline order.
func (t *Timeline[T]) Values() []string {
	out := make([]string, len(t.entries))
	for i, e := range t.entries {
		out[i] = e.Value
	}
	return out
}

// InsertOrReplace stores item at value.
//
// If an entry compares equal to value, its item is replaced (the stored index
// value string is kept). Otherwise a new entry is inserted: in numeric order
// for Numeric timelines, at the end for Text timelines.
//
// Returns the position of the entry.
func (t *Timeline[T]) InsertOrReplace(value string, item T) int {
	if pos := t.ItemNumber(value, true); pos >= 0 {
		t.entries[pos].Item = item
		t.entries[pos].ItemID = ""
		return pos
	}
	pos := t.insertPosition(value)
	t.insertAt(pos, Entry[T]{Value: value, Item: item})
	return pos
}

// InsertPending appends an entry whose item is only known by ID.
// Used when restoring from persisted attributes; entries are taken in the
// order they were saved.
func (t *Timeline[T]) InsertPending(value, itemID string) {
	t.entries = append(t.entries, Entry[T]{Value: value, ItemID: itemID})
}

// SetItem replaces the item of the entry at position. Returns false if the
// position is out of range.
func (t *Timeline[T]) SetItem(position int, item T) bool {
	if position < 0 || position >= len(t.entries) {
		return false
	}
	t.entries[position].Item = item
	t.entries[position].ItemID = ""
	return true
}

// Lookup returns the item stored at value.
//
// With exact=true only an equal entry matches. With exact=false a Numeric
// timeline returns the closest previous entry (greatest index value not above
// value); Text timelines ignore exact=false and match exactly.
func (t *Timeline[T]) Lookup(value string, exact bool) (T, bool) {
	pos := t.ItemNumber(value, exact)
	if pos < 0 {
		var zero T
		return zero, false
	}
	return t.entries[pos].Item, true
}

// ItemNumber returns the position of the entry matching value, or -1.
// Matching rules are the same as Lookup.
func (t *Timeline[T]) ItemNumber(value string, exact bool) int {
	if len(t.entries) == 0 {
		return -1
	}
	if t.indexType != Numeric {
		return t.findString(value)
	}
	v, ok := parseNumeric(value)
	if !ok {
		return t.findString(value)
	}

	// Greatest entry whose value is <= v + tolerance. Unparsable entries order last.
	upper := v + t.tolerance
	n := sort.Search(len(t.entries), func(i int) bool {
		ev, ok := parseNumeric(t.entries[i].Value)
		return !ok || ev > upper
	})
	candidate := n - 1
	if candidate < 0 {
		return -1
	}
	if !exact {
		return candidate
	}
	ev, _ := parseNumeric(t.entries[candidate].Value)
	if math.Abs(ev-v) <= t.tolerance {
		return candidate
	}
	return -1
}

// Remove deletes the entry equal to value. Returns false if there is none.
func (t *Timeline[T]) Remove(value string) bool {
	pos := t.ItemNumber(value, true)
	if pos < 0 {
		return false
	}
	t.RemoveAt(pos)
	return true
}

// RemoveAt deletes the entry at position. Returns false if out of range.
func (t *Timeline[T]) RemoveAt(position int) bool {
	if position < 0 || position >= len(t.entries) {
		return false
	}
	t.entries = append(t.entries[:position], t.entries[position+1:]...)
	return true
}

// Clear removes all entries.
func (t *Timeline[T]) Clear() {
	t.entries = nil
}

// UpdateValue changes the index value of an existing entry, keeping its item.
// Numeric timelines move the entry to its new sorted position.
func (t *Timeline[T]) UpdateValue(oldValue, newValue string) error {
	if oldValue == newValue {
		return nil
	}
	pos := t.ItemNumber(oldValue, true)
	if pos < 0 {
		return fmt.Errorf("update index value %q: %w", oldValue, ErrNotFound)
	}
	if t.ItemNumber(newValue, true) >= 0 {
		return fmt.Errorf("update index value to %q: %w", newValue, ErrDuplicate)
	}
	moving := t.entries[pos]
	moving.Value = newValue
	if t.indexType != Numeric {
		t.entries[pos] = moving
		return nil
	}
	t.RemoveAt(pos)
	t.insertAt(t.insertPosition(newValue), moving)
	return nil
}

// NumericValue parses an index value as a number. Returns false when the
// value is not numeric; callers fall back to the raw string.
func NumericValue(value string) (float64, bool) {
	return parseNumeric(value)
}

// insertPosition returns where a new value goes. Caller has checked that no
// equal entry exists.
func (t *Timeline[T]) insertPosition(value string) int {
	if t.indexType != Numeric {
		return len(t.entries)
	}
	v, ok := parseNumeric(value)
	if !ok {
		return len(t.entries)
	}
	return sort.Search(len(t.entries), func(i int) bool {
		ev, ok := parseNumeric(t.entries[i].Value)
		return !ok || ev > v
	})
}

func (t *Timeline[T]) insertAt(pos int, e Entry[T]) {
	t.entries = append(t.entries, Entry[T]{})
	copy(t.entries[pos+1:], t.entries[pos:])
	t.entries[pos] = e
}

func (t *Timeline[T]) findString(value string) int {
	for i, e := range t.entries {
		if e.Value == value {
			return i
		}
	}
	return -1
}

func parseNumeric(s string) (float64, bool) {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || math.IsNaN(v) {
		return 0, false
	}
	return v, true
}
