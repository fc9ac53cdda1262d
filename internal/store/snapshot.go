package store

import "github.com/slicer/sequences/internal/ir"

// Kind classifies a persisted object.
type Kind string

const (
	KindNode     Kind = "node"
	KindSequence Kind = "sequence"
	KindItem     Kind = "item" // ParentID is the owning sequence
	KindBrowser  Kind = "browser"
)

// Object is one persisted node, sequence, item or browser.
type Object struct {
	Kind       Kind
	ID         string
	ParentID   string
	Class      string
	Name       string
	Content    ir.Object
	Attributes map[string]string
}

// Snapshot is everything a workspace needs to be rebuilt.
type Snapshot struct {
	Objects []Object
	Meta    map[string]string
}

// ByKind returns the objects of kind k in saved order.
func (s Snapshot) ByKind(k Kind) []Object {
	var out []Object
	for _, o := range s.Objects {
		if o.Kind == k {
			out = append(out, o)
		}
	}
	return out
}

// Items returns the items of sequence id in saved order.
func (s Snapshot) Items(sequenceID string) []Object {
	var out []Object
	for _, o := range s.Objects {
		if o.Kind == KindItem && o.ParentID == sequenceID {
			out = append(out, o)
		}
	}
	return out
}
