package timeline

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func numericTimeline(values ...string) *Timeline[string] {
	tl := New[string](Numeric, DefaultTolerance)
	for _, v := range values {
		tl.InsertOrReplace(v, "item-"+v)
	}
	return tl
}

func TestIndexType_StringRoundTrip(t *testing.T) {
	for _, it := range []IndexType{Numeric, Text} {
		parsed, ok := ParseIndexType(it.String())
		require.True(t, ok)
		assert.Equal(t, it, parsed)
	}

	_, ok := ParseIndexType("bogus")
	assert.False(t, ok)
}

func TestTimeline_NumericInsertKeepsOrder(t *testing.T) {
	tl := numericTimeline("3", "1", "2.5", "0", "10")

	assert.Equal(t, []string{"0", "1", "2.5", "3", "10"}, tl.Values())
}

func TestTimeline_TextInsertAppends(t *testing.T) {
	tl := New[string](Text, DefaultTolerance)
	tl.InsertOrReplace("b", "1")
	tl.InsertOrReplace("a", "2")
	tl.InsertOrReplace("c", "3")

	assert.Equal(t, []string{"b", "a", "c"}, tl.Values())
}

func TestTimeline_InsertOrReplace_ReplacesEqualValue(t *testing.T) {
	tl := numericTimeline("1", "2")

	pos := tl.InsertOrReplace("2.0004", "replacement")

	assert.Equal(t, 1, pos)
	assert.Equal(t, 2, tl.Len())
	item, ok := tl.Lookup("2", true)
	require.True(t, ok)
	assert.Equal(t, "replacement", item)

	// the original index value string is kept
	e, _ := tl.Nth(1)
	assert.Equal(t, "2", e.Value)
}

func TestTimeline_InsertThenLookupReturnsItem(t *testing.T) {
	for _, it := range []IndexType{Numeric, Text} {
		tl := New[string](it, DefaultTolerance)
		for i := 0; i < 20; i++ {
			v := fmt.Sprintf("%d", (i*7)%20)
			tl.InsertOrReplace(v, "x"+v)
			got, ok := tl.Lookup(v, true)
			require.True(t, ok, "type %s value %s", it, v)
			assert.Equal(t, "x"+v, got)
		}
		// second pass replaces in place
		for i := 0; i < 20; i++ {
			v := fmt.Sprintf("%d", i)
			tl.InsertOrReplace(v, "y"+v)
			got, _ := tl.Lookup(v, true)
			assert.Equal(t, "y"+v, got)
		}
		assert.Equal(t, 20, tl.Len())
	}
}

func TestTimeline_ExactLookupWithinTolerance(t *testing.T) {
	tl := New[string](Numeric, 0.01)
	for _, v := range []string{"0", "0.5", "1", "1.5", "2"} {
		tl.InsertOrReplace(v, v)
	}

	tests := []struct {
		query string
		want  int
	}{
		{"0", 0},
		{"0.005", 0},
		{"-0.005", 0},
		{"-0.02", -1},
		{"0.49", 2 - 1},
		{"0.52", -1},
		{"1.009", 2},
		{"1.2", -1},
		{"2.01", 4},
		{"2.02", -1},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			assert.Equal(t, tt.want, tl.ItemNumber(tt.query, true))
		})
	}
}

func TestTimeline_ClosestPrevious(t *testing.T) {
	tl := numericTimeline("0", "1", "4")

	tests := []struct {
		query string
		want  string
		found bool
	}{
		{"3", "item-1", true},
		{"1", "item-1", true},
		{"0.5", "item-0", true},
		{"4", "item-4", true},
		{"100", "item-4", true},
		{"-1", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			got, ok := tl.Lookup(tt.query, false)
			assert.Equal(t, tt.found, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestTimeline_TextIgnoresClosestMatch(t *testing.T) {
	tl := New[string](Text, DefaultTolerance)
	tl.InsertOrReplace("alpha", "a")
	tl.InsertOrReplace("beta", "b")

	assert.Equal(t, -1, tl.ItemNumber("alp", false))
	assert.Equal(t, 1, tl.ItemNumber("beta", false))
}

func TestTimeline_EmptyLookup(t *testing.T) {
	tl := New[string](Numeric, DefaultTolerance)

	_, ok := tl.Lookup("1", false)
	assert.False(t, ok)
	assert.Equal(t, -1, tl.ItemNumber("1", true))
}

func TestTimeline_UnparsableNumericValues(t *testing.T) {
	tl := numericTimeline("1", "2")

	pos := tl.InsertOrReplace("n/a", "raw")
	assert.Equal(t, 2, pos, "unparsable values are appended")

	got, ok := tl.Lookup("n/a", true)
	require.True(t, ok)
	assert.Equal(t, "raw", got)

	// numeric queries still work and never land on the raw entry
	assert.Equal(t, 1, tl.ItemNumber("50", false))

	// new numeric values are inserted before the raw entry
	tl.InsertOrReplace("3", "item-3")
	assert.Equal(t, []string{"1", "2", "3", "n/a"}, tl.Values())
}

func TestTimeline_Remove(t *testing.T) {
	tl := numericTimeline("0", "1", "2")

	assert.True(t, tl.Remove("1.0"))
	assert.Equal(t, []string{"0", "2"}, tl.Values())
	assert.False(t, tl.Remove("1"))
	assert.False(t, tl.RemoveAt(5))
}

func TestTimeline_UpdateValue(t *testing.T) {
	tl := numericTimeline("0", "1", "2")

	require.NoError(t, tl.UpdateValue("0", "5"))
	assert.Equal(t, []string{"1", "2", "5"}, tl.Values())
	item, _ := tl.Lookup("5", true)
	assert.Equal(t, "item-0", item)

	err := tl.UpdateValue("42", "43")
	assert.ErrorIs(t, err, ErrNotFound)

	err = tl.UpdateValue("1", "2")
	assert.ErrorIs(t, err, ErrDuplicate)

	assert.NoError(t, tl.UpdateValue("1", "1"))
}

func TestTimeline_SetIndexTypeDoesNotResort(t *testing.T) {
	tl := New[string](Text, DefaultTolerance)
	tl.InsertOrReplace("3", "c")
	tl.InsertOrReplace("1", "a")

	tl.SetIndexType(Numeric)

	assert.Equal(t, []string{"3", "1"}, tl.Values())
}

func TestTimeline_PendingEntries(t *testing.T) {
	tl := New[string](Numeric, DefaultTolerance)
	tl.InsertPending("0", "node-a")
	tl.InsertPending("1", "node-b")

	e, ok := tl.Nth(1)
	require.True(t, ok)
	assert.Equal(t, "node-b", e.ItemID)
	assert.Equal(t, "", e.Item)

	require.True(t, tl.SetItem(1, "resolved"))
	e, _ = tl.Nth(1)
	assert.Equal(t, "", e.ItemID)
	assert.Equal(t, "resolved", e.Item)
}

func TestTimeline_SetToleranceClampsNegative(t *testing.T) {
	tl := New[string](Numeric, DefaultTolerance)
	tl.SetTolerance(-1)
	assert.Equal(t, 0.0, tl.Tolerance())
}
