package testutil

import (
	"fmt"
	"sync"
)

// FixedIDGenerator hands out a preset list of IDs in order, then falls back
// to "<prefix>-<n>" once the list is exhausted.
//
// Scenario files use it to pin the IDs of the first nodes they create, so
// golden traces and persisted attributes stay byte-identical between runs.
//
// Thread-safety: safe for concurrent use.
type FixedIDGenerator struct {
	mu     sync.Mutex
	ids    []string
	prefix string
	n      int
}

// NewFixedIDGenerator creates a generator returning ids first. An empty
// prefix becomes "id".
func NewFixedIDGenerator(prefix string, ids ...string) *FixedIDGenerator {
	if prefix == "" {
		prefix = "id"
	}
	return &FixedIDGenerator{ids: append([]string(nil), ids...), prefix: prefix}
}

// Generate implements scene.IDGenerator.
func (g *FixedIDGenerator) Generate() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	if len(g.ids) > 0 {
		id := g.ids[0]
		g.ids = g.ids[1:]
		return id
	}
	g.n++
	return fmt.Sprintf("%s-%d", g.prefix, g.n)
}
