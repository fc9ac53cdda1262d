package node

import (
	"errors"
	"fmt"
	"sort"

	"github.com/slicer/sequences/internal/ir"
)

// ErrUnknownClass is returned by Factory.New for classes it cannot build.
var ErrUnknownClass = errors.New("unknown node class")

// Factory maps each class to its constructor. Build it once at startup with
// DefaultFactory and pass it to the components that create nodes.
type Factory map[Class]func() Node

// DefaultFactory returns the factory for every built-in kind.
func DefaultFactory() Factory {
	return Factory{
		ClassTransform: func() Node { return NewTransform() },
		ClassScalar:    func() Node { return NewScalar() },
		ClassText:      func() Node { return NewText() },
		ClassCurve:     func() Node { return NewCurve() },
		ClassVolume:    func() Node { return NewVolume() },
	}
}

// New creates a default-constructed node of class.
func (f Factory) New(class Class) (Node, error) {
	ctor, ok := f[class]
	if !ok {
		return nil, fmt.Errorf("create %q: %w", class, ErrUnknownClass)
	}
	return ctor(), nil
}

// Classes returns the registered classes in sorted order.
func (f Factory) Classes() []Class {
	out := make([]Class, 0, len(f))
	for c := range f {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Clone returns a new node of the same class holding a deep copy of src's
// content, name and attributes. The clone has no ID.
func (f Factory) Clone(src Node) (Node, error) {
	dst, err := f.New(src.Class())
	if err != nil {
		return nil, err
	}
	if err := CopyContent(dst, src, true); err != nil {
		return nil, err
	}
	dst.SetName(src.Name())
	for _, k := range src.AttributeNames() {
		dst.SetAttribute(k, src.Attribute(k))
	}
	return dst, nil
}

// MarshalContent encodes a node's content as canonical JSON.
func MarshalContent(n Node) ([]byte, error) {
	data, err := ir.MarshalCanonical(n.Content())
	if err != nil {
		return nil, fmt.Errorf("marshal %s content: %w", n.Class(), err)
	}
	return data, nil
}

// UnmarshalContent decodes canonical JSON content into n.
func UnmarshalContent(n Node, data []byte) error {
	obj, err := ir.UnmarshalObject(data)
	if err != nil {
		return fmt.Errorf("unmarshal %s content: %w", n.Class(), err)
	}
	return n.SetContent(obj)
}
