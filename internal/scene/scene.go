// Package scene is the in-memory node container used for the main scene and
// for the private item store of every sequence.
//
// A Scene owns its nodes, assigns their identities, records named references
// between nodes, and fans out content-modified notifications to observers.
// It is not safe for concurrent use; the engine's Run loop is its only writer.
package scene

import (
	"log/slog"

	"github.com/slicer/sequences/internal/node"
)

// Scene holds nodes keyed by ID in insertion order.
type Scene struct {
	ids     IDGenerator
	factory node.Factory

	nodes map[string]node.Node
	order []string

	// owner ID -> role -> target ID
	refs map[string]map[string]string

	observers map[string][]*observer
	nextObs   int

	importing bool
}

type observer struct {
	id int
	fn func(node.Node)
}

// Option configures a Scene.
type Option func(*Scene)

// WithIDGenerator sets the identity source. Default: UUIDv7Generator.
func WithIDGenerator(g IDGenerator) Option {
	return func(s *Scene) {
		s.ids = g
	}
}

// WithFactory sets the factory used by CreateNodeByClass. Default: node.DefaultFactory().
func WithFactory(f node.Factory) Option {
	return func(s *Scene) {
		s.factory = f
	}
}

// New creates an empty scene.
func New(opts ...Option) *Scene {
	s := &Scene{
		ids:       UUIDv7Generator{},
		nodes:     make(map[string]node.Node),
		refs:      make(map[string]map[string]string),
		observers: make(map[string][]*observer),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.factory == nil {
		s.factory = node.DefaultFactory()
	}
	return s
}

// Factory returns the scene's node factory.
func (s *Scene) Factory() node.Factory {
	return s.factory
}

// IDs returns the scene's identity source.
func (s *Scene) IDs() IDGenerator {
	return s.ids
}

// AddNode registers n and returns its ID. A node without an ID, or whose ID
// is already taken, is given a fresh one.
func (s *Scene) AddNode(n node.Node) string {
	if existing, ok := s.nodes[n.ID()]; ok && existing == n {
		return n.ID()
	}
	if n.ID() == "" || s.nodes[n.ID()] != nil {
		n.SetID(s.ids.Generate())
	}
	s.nodes[n.ID()] = n
	s.order = append(s.order, n.ID())
	n.SetModifiedHook(s.dispatch)
	return n.ID()
}

// RemoveNode unregisters a node, its outgoing references, references that
// point at it and its observers. Returns false if the node is unknown.
func (s *Scene) RemoveNode(id string) bool {
	n, ok := s.nodes[id]
	if !ok {
		return false
	}
	n.SetModifiedHook(nil)
	delete(s.nodes, id)
	for i, oid := range s.order {
		if oid == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	delete(s.refs, id)
	for _, roles := range s.refs {
		for role, target := range roles {
			if target == id {
				delete(roles, role)
			}
		}
	}
	delete(s.observers, id)
	return true
}

// Node returns the node with the given ID.
func (s *Scene) Node(id string) (node.Node, bool) {
	n, ok := s.nodes[id]
	return n, ok
}

// NodeByName returns the first node, in insertion order, with the given name.
func (s *Scene) NodeByName(name string) (node.Node, bool) {
	for _, id := range s.order {
		if n := s.nodes[id]; n.Name() == name {
			return n, true
		}
	}
	return nil, false
}

// Nodes returns all nodes in insertion order.
func (s *Scene) Nodes() []node.Node {
	out := make([]node.Node, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.nodes[id])
	}
	return out
}

// Len returns the number of nodes.
func (s *Scene) Len() int {
	return len(s.order)
}

// Clear removes every node.
func (s *Scene) Clear() {
	for _, n := range s.nodes {
		n.SetModifiedHook(nil)
	}
	s.nodes = make(map[string]node.Node)
	s.order = nil
	s.refs = make(map[string]map[string]string)
	s.observers = make(map[string][]*observer)
}

// CreateNodeByClass builds a default node of class. The node is not added.
func (s *Scene) CreateNodeByClass(class node.Class) (node.Node, error) {
	return s.factory.New(class)
}

// SetReference points owner's role at target. An empty target clears the role.
func (s *Scene) SetReference(ownerID, role, targetID string) {
	if targetID == "" {
		if roles, ok := s.refs[ownerID]; ok {
			delete(roles, role)
		}
		return
	}
	roles, ok := s.refs[ownerID]
	if !ok {
		roles = make(map[string]string)
		s.refs[ownerID] = roles
	}
	roles[role] = targetID
}

// Reference returns the target of owner's role.
func (s *Scene) Reference(ownerID, role string) (string, bool) {
	target, ok := s.refs[ownerID][role]
	return target, ok
}

// Observe calls fn whenever the node's content-modified event fires.
// The returned function cancels the subscription.
func (s *Scene) Observe(nodeID string, fn func(node.Node)) (cancel func()) {
	s.nextObs++
	obs := &observer{id: s.nextObs, fn: fn}
	s.observers[nodeID] = append(s.observers[nodeID], obs)
	return func() {
		list := s.observers[nodeID]
		for i, o := range list {
			if o.id == obs.id {
				s.observers[nodeID] = append(list[:i:i], list[i+1:]...)
				return
			}
		}
	}
}

// SetImporting marks the scene as being loaded. Observers are still called;
// consumers check Importing and skip work that would capture partial state.
func (s *Scene) SetImporting(importing bool) {
	s.importing = importing
}

// Importing reports whether the scene is being loaded.
func (s *Scene) Importing() bool {
	return s.importing
}

func (s *Scene) dispatch(n node.Node) {
	list := s.observers[n.ID()]
	if len(list) == 0 {
		return
	}
	// copy so observers may cancel themselves
	snapshot := append([]*observer(nil), list...)
	slog.Debug("node modified", "node_id", n.ID(), "observers", len(snapshot))
	for _, o := range snapshot {
		o.fn(n)
	}
}
