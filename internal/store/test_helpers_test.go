package store

import (
	"path/filepath"
	"testing"

	"github.com/slicer/sequences/internal/ir"
)

// createTestStore creates a new store in a temp directory for testing.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// testSnapshot is a small workspace: one sequence with two items, one
// browser and one proxy node.
func testSnapshot() Snapshot {
	return Snapshot{
		Objects: []Object{
			{
				Kind: KindSequence, ID: "seq-1", Name: "heart",
				Attributes: map[string]string{
					"indexName":   "time",
					"indexUnit":   "s",
					"indexValues": "item-1:0;item-2:0.5",
				},
			},
			{Kind: KindItem, ID: "item-1", ParentID: "seq-1", Class: "Scalar", Name: "heart",
				Content: ir.Object{"value": ir.String("1")}},
			{Kind: KindItem, ID: "item-2", ParentID: "seq-1", Class: "Scalar", Name: "heart",
				Content: ir.Object{"value": ir.String("2.5")}},
			{Kind: KindNode, ID: "node-1", Class: "Scalar", Name: "heart [time=0.5s]",
				Content:    ir.Object{"value": ir.String("2.5")},
				Attributes: map[string]string{"Sequences.BaseName": "heart"}},
			{
				Kind: KindBrowser, ID: "b-1", Name: "browser",
				Attributes: map[string]string{
					"selectedItemNumber": "1",
					"sequenceNodeRef0":   "seq-1",
					"proxyNodeRef0":      "node-1",
				},
			},
		},
		Meta: map[string]string{"scene_hash": "abc"},
	}
}
