// Package node defines the closed set of item and proxy kinds handled by
// sequences and browsers.
//
// Every kind embeds Base, which carries identity, name, attributes, the
// singleton tag and the modify bracket. Optional behavior is exposed through
// capability interfaces (ContentCopier, DisplayDefaulter) that callers query
// at the boundary with SupportsCopyContent and SupportsDisplayDefaults.
package node

import (
	"errors"
	"fmt"
	"sort"

	"github.com/slicer/sequences/internal/ir"
)

// Class names a node kind.
type Class string

const (
	ClassTransform Class = "Transform"
	ClassScalar    Class = "Scalar"
	ClassText      Class = "Text"
	ClassCurve     Class = "Curve"
	ClassVolume    Class = "Volume"
)

// ErrClassMismatch is returned when content is copied between different kinds.
var ErrClassMismatch = errors.New("node class mismatch")

// Node is the common surface of every item and proxy.
type Node interface {
	ID() string
	SetID(id string)
	Class() Class

	Name() string
	SetName(name string)

	Attribute(name string) string
	SetAttribute(name, value string)
	RemoveAttribute(name string)
	AttributeNames() []string

	// Singleton nodes are shared scene-wide and are never renamed by a browser.
	Singleton() bool
	SetSingleton(singleton bool)

	// StartModify opens a modify bracket and returns the previous state for EndModify.
	// Modified calls inside the bracket are coalesced into one notification
	// fired when the outermost bracket closes.
	StartModify() bool
	EndModify(wasModifying bool)
	Modified()
	SetModifiedHook(fn func(Node))

	// Content returns the kind-specific payload; SetContent replaces it.
	Content() ir.Object
	SetContent(content ir.Object) error
}

// ContentCopier is implemented by kinds that can take over another node's content.
// A shallow copy may share buffers with src; a deep copy never does.
type ContentCopier interface {
	CopyContent(src Node, deep bool) error
}

// DisplayDefaulter is implemented by kinds that carry display settings.
type DisplayDefaulter interface {
	CreateDefaultDisplay()
}

// SupportsCopyContent reports whether n implements ContentCopier.
func SupportsCopyContent(n Node) bool {
	_, ok := n.(ContentCopier)
	return ok
}

// SupportsDisplayDefaults reports whether n implements DisplayDefaulter.
func SupportsDisplayDefaults(n Node) bool {
	_, ok := n.(DisplayDefaulter)
	return ok
}

// CopyContent copies src into dst through dst's ContentCopier capability.
func CopyContent(dst, src Node, deep bool) error {
	c, ok := dst.(ContentCopier)
	if !ok {
		return fmt.Errorf("copy content into %s %q: no copy capability", dst.Class(), dst.ID())
	}
	return c.CopyContent(src, deep)
}

// Base holds the state shared by all kinds. Kinds embed it and call init
// with themselves so hooks receive the outer node.
type Base struct {
	self      Node
	class     Class
	id        string
	name      string
	attrs     map[string]string
	singleton bool

	modifyDepth int
	pending     bool
	hook        func(Node)
}

func (b *Base) init(self Node, class Class) {
	b.self = self
	b.class = class
}

// ID returns the node ID, assigned by the scene that holds it.
func (b *Base) ID() string { return b.id }
// SetID sets the node ID.
func (b *Base) SetID(id string) { b.id = id }
// Class returns the kind of node.
func (b *Base) Class() Class { return b.class }
// Name returns the display name.
func (b *Base) Name() string { return b.name }
// Singleton reports whether the node is shared scene-wide.
func (b *Base) Singleton() bool { return b.singleton }
// SetName renames the node without notifying observers.
func (b *Base) SetName(n string) { b.name = n }

// SetSingleton marks the node as shared scene-wide.
func (b *Base) SetSingleton(singleton bool) { b.singleton = singleton }

// Attribute returns the named attribute, or "" if unset.
func (b *Base) Attribute(name string) string {
	return b.attrs[name]
}

// SetAttribute sets the named attribute.
func (b *Base) SetAttribute(name, value string) {
	if b.attrs == nil {
		b.attrs = make(map[string]string)
	}
	b.attrs[name] = value
}

// RemoveAttribute deletes the named attribute.
func (b *Base) RemoveAttribute(name string) {
	delete(b.attrs, name)
}

// AttributeNames returns attribute names in sorted order.
func (b *Base) AttributeNames() []string {
	names := make([]string, 0, len(b.attrs))
	for k := range b.attrs {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// StartModify opens a modify bracket. Modified calls inside it are folded
// into one notification at the outermost EndModify. It returns whether a
// bracket was already open; pass that to EndModify.
func (b *Base) StartModify() bool {
	was := b.modifyDepth > 0
	b.modifyDepth++
	return was
}

// EndModify closes a bracket opened by StartModify.
func (b *Base) EndModify(wasModifying bool) {
	if b.modifyDepth > 0 {
		b.modifyDepth--
	}
	if wasModifying || b.modifyDepth > 0 || !b.pending {
		return
	}
	b.pending = false
	b.notify()
}

// Modified notifies the hook, or defers the notification while a bracket
// is open.
func (b *Base) Modified() {
	if b.modifyDepth > 0 {
		b.pending = true
		return
	}
	b.notify()
}

// SetModifiedHook sets the function called on every notification. A nil
// fn removes it.
func (b *Base) SetModifiedHook(fn func(Node)) {
	b.hook = fn
}

func (b *Base) notify() {
	if b.hook != nil && b.self != nil {
		b.hook(b.self)
	}
}

func checkClass(dst, src Node) error {
	if src == nil {
		return fmt.Errorf("copy content into %s: nil source", dst.Class())
	}
	if dst.Class() != src.Class() {
		return fmt.Errorf("copy %s into %s: %w", src.Class(), dst.Class(), ErrClassMismatch)
	}
	return nil
}
