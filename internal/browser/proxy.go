package browser

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/slicer/sequences/internal/node"
	"github.com/slicer/sequences/internal/sequence"
)

// RoleProxy prefixes the scene reference role linking a browser to the
// proxy of one entry. The entry postfix completes the role name.
const RoleProxy = "proxyNodeRef"

// ErrNilProxy is returned when a nil proxy is attached.
var ErrNilProxy = errors.New("nil proxy node")

// Ownership says who destroys a proxy.
type Ownership int

const (
	// Borrowed proxies belong to the scene's other users; detaching leaves them in place.
	Borrowed Ownership = iota
	// Owned proxies were created by the browser and are removed on detach.
	Owned
)

// String returns the persisted name of the ownership.
func (o Ownership) String() string {
	if o == Owned {
		return "owned"
	}
	return "borrowed"
}

// ParseOwnership converts a persisted ownership name. Anything but "owned" is Borrowed.
func ParseOwnership(s string) Ownership {
	if s == "owned" {
		return Owned
	}
	return Borrowed
}

// ProxyRef identifies the proxy of an entry and who owns it.
type ProxyRef struct {
	NodeID    string
	Ownership Ownership
}

func (b *Browser) proxyRole(e *SyncEntry) string {
	return RoleProxy + e.postfix
}

func (b *Browser) proxyOf(e *SyncEntry) node.Node {
	id, ok := b.scene.Reference(b.id, b.proxyRole(e))
	if !ok {
		return nil
	}
	n, ok := b.scene.Node(id)
	if !ok {
		return nil
	}
	return n
}

// Proxy returns the proxy of seq, or nil when seq has none or it left the scene.
func (b *Browser) Proxy(seq *sequence.Sequence) node.Node {
	e := b.Entry(seq)
	if e == nil {
		return nil
	}
	return b.proxyOf(e)
}

// ProxyRef returns the proxy reference of seq.
func (b *Browser) ProxyRef(seq *sequence.Sequence) (ProxyRef, bool) {
	e := b.Entry(seq)
	if e == nil {
		return ProxyRef{}, false
	}
	id, ok := b.scene.Reference(b.id, b.proxyRole(e))
	if !ok {
		return ProxyRef{}, false
	}
	return ProxyRef{NodeID: id, Ownership: e.ownership}, true
}

// Proxies returns every live proxy, master first.
func (b *Browser) Proxies() []node.Node {
	var out []node.Node
	for _, e := range b.entries {
		if n := b.proxyOf(e); n != nil {
			out = append(out, n)
		}
	}
	return out
}

// SetProxy makes n the proxy of seq, attaching seq first when needed. n is
// added to the scene if it is not there yet. A different previous proxy is
// released, and removed from the scene if the browser owned it.
func (b *Browser) SetProxy(seq *sequence.Sequence, n node.Node, own Ownership) (node.Node, error) {
	if n == nil {
		return nil, fmt.Errorf("browser %s: %w", b.name, ErrNilProxy)
	}
	was := b.StartModify()
	defer b.EndModify(was)

	e := b.Entry(seq)
	if e == nil {
		if _, err := b.AddSynchronized(seq); err != nil {
			return nil, err
		}
		e = b.Entry(seq)
	}
	if n.Attribute(sequence.AttrBaseName) == "" {
		n.SetAttribute(sequence.AttrBaseName, n.Name())
	}
	b.scene.AddNode(n)
	if b.proxyOf(e) != n {
		b.RemoveProxy(e.postfix)
		b.scene.SetReference(b.id, b.proxyRole(e), n.ID())
		b.observeProxy(e)
	}
	e.ownership = own
	b.notify(EventModified)
	return n, nil
}

// AddProxyCopy creates a new default node of source's class, named after
// seq, and makes it the browser-owned proxy of seq. Content is not copied.
func (b *Browser) AddProxyCopy(seq *sequence.Sequence, source node.Node) (node.Node, error) {
	if source == nil {
		return nil, fmt.Errorf("browser %s: %w", b.name, ErrNilProxy)
	}
	if source.Attribute(sequence.AttrBaseName) == "" {
		source.SetAttribute(sequence.AttrBaseName, source.Name())
	}
	n, err := b.scene.CreateNodeByClass(source.Class())
	if err != nil {
		return nil, fmt.Errorf("browser %s: create proxy: %w", b.name, err)
	}
	if seq != nil {
		n.SetName(seq.Name())
	}
	return b.SetProxy(seq, n, Owned)
}

// SequenceForProxy returns the sequence whose proxy is n, or nil.
func (b *Browser) SequenceForProxy(n node.Node) *sequence.Sequence {
	if n == nil {
		return nil
	}
	for _, e := range b.entries {
		if p := b.proxyOf(e); p != nil && p.ID() == n.ID() {
			return e.seq
		}
	}
	return nil
}

// IsProxy reports whether the node with the given ID is a proxy of this browser.
func (b *Browser) IsProxy(id string) bool {
	for _, e := range b.entries {
		if target, ok := b.scene.Reference(b.id, b.proxyRole(e)); ok && target == id {
			return true
		}
	}
	return false
}

// RemoveProxy releases the proxy of the entry with the given postfix. An
// owned proxy is removed from the scene.
func (b *Browser) RemoveProxy(postfix string) {
	e := b.entryByPostfix(postfix)
	if e == nil {
		return
	}
	if e.cancelObserve != nil {
		e.cancelObserve()
		e.cancelObserve = nil
	}
	id, ok := b.scene.Reference(b.id, b.proxyRole(e))
	if !ok {
		return
	}
	if e.ownership == Owned {
		slog.Debug("removing owned proxy", "browser", b.name, "postfix", postfix, "node_id", id)
		b.scene.RemoveNode(id)
	}
	b.scene.SetReference(b.id, b.proxyRole(e), "")
	e.ownership = Borrowed
	b.notify(EventModified)
}

// RemoveAllProxies releases the proxy of every entry. Owned proxies are
// removed from the scene; borrowed ones stay.
func (b *Browser) RemoveAllProxies() {
	was := b.StartModify()
	defer b.EndModify(was)
	for _, e := range b.entries {
		b.RemoveProxy(e.postfix)
	}
}

func (b *Browser) observeProxy(e *SyncEntry) {
	if e.cancelObserve != nil {
		e.cancelObserve()
		e.cancelObserve = nil
	}
	n := b.proxyOf(e)
	if n == nil {
		return
	}
	e.cancelObserve = b.scene.Observe(n.ID(), b.proxyChanged)
}
