package compiler

import (
	"fmt"
	"slices"
	"strings"

	"github.com/slicer/sequences/internal/ir"
)

// FeedbackWarning describes proxies and sequences that write into each
// other across entries.
//
// Feedback loops are warnings, not errors: the engine's synchronization
// guard drops the nested pass, so the loop terminates, but which sequence
// wins depends on event order.
type FeedbackWarning struct {
	Path    []string `json:"path"`    // ["sequence:a", "proxy:Probe", "sequence:b"]
	Message string   `json:"message"` // Human-readable description
	Level   string   `json:"level"`   // "warning"
}

// AnalyzeFeedback finds write-back loops in a scene description.
//
// The graph has one vertex per sequence and one per proxy node. A
// playback-enabled entry adds sequence → proxy (pull); an entry that saves
// changes adds proxy → sequence (push). A lone sequence and its proxy
// always form a two-vertex loop, which is the normal round trip; only
// strongly connected components holding two or more sequences are
// reported. Proxies are only shared when entries name the same node, so
// descriptions without explicit proxies never warn.
//
// A description without loops returns an empty list.
func AnalyzeFeedback(scene ir.Scene) []FeedbackWarning {
	graph := buildSyncGraph(scene)
	if len(graph) == 0 {
		return []FeedbackWarning{}
	}

	warnings := []FeedbackWarning{}
	for _, scc := range tarjanSCC(graph) {
		seqs := 0
		for _, v := range scc {
			if strings.HasPrefix(v, "sequence:") {
				seqs++
			}
		}
		if seqs < 2 {
			continue
		}
		path := reconstructCyclePath(scc, graph)
		warnings = append(warnings, FeedbackWarning{
			Path:    path,
			Message: fmt.Sprintf("Proxy feedback loop: %s", strings.Join(path, " → ")),
			Level:   "warning",
		})
	}
	// One warning per component, ordered by starting vertex
	slices.SortFunc(warnings, func(a, b FeedbackWarning) int {
		return strings.Compare(a.Path[0], b.Path[0])
	})
	return warnings
}

// syncGraph maps a vertex to the vertices its changes propagate to.
type syncGraph map[string][]string

func buildSyncGraph(scene ir.Scene) syncGraph {
	graph := make(syncGraph)
	addEdge := func(from, to string) {
		if !slices.Contains(graph[from], to) {
			graph[from] = append(graph[from], to)
		}
		if graph[to] == nil {
			graph[to] = []string{}
		}
	}

	for _, b := range scene.Browsers {
		for _, ss := range b.Synchronized {
			seq := "sequence:" + ss.Sequence
			proxy := "proxy:" + b.Name + "/" + ss.Sequence
			if ss.Proxy != "" {
				proxy = "proxy:" + ss.Proxy
			}
			if ss.Playback {
				addEdge(seq, proxy)
			}
			if ss.SaveChanges {
				addEdge(proxy, seq)
			}
		}
	}
	return graph
}

// tarjanSCC finds strongly connected components using Tarjan's algorithm.
// Vertices are visited in sorted order so component order is stable.
func tarjanSCC(graph syncGraph) [][]string {
	var (
		index   = 0
		stack   []string
		indices = make(map[string]int)
		lowlink = make(map[string]int)
		onStack = make(map[string]bool)
		sccs    [][]string
	)

	var strongConnect func(string)
	strongConnect = func(v string) {
		indices[v] = index
		lowlink[v] = index
		index++
		stack = append(stack, v)
		onStack[v] = true

		for _, w := range graph[v] {
			if _, visited := indices[w]; !visited {
				strongConnect(w)
				lowlink[v] = min(lowlink[v], lowlink[w])
			} else if onStack[w] {
				lowlink[v] = min(lowlink[v], indices[w])
			}
		}

		// v is a root: pop its component
		if lowlink[v] == indices[v] {
			var scc []string
			for {
				w := stack[len(stack)-1]
				stack = stack[:len(stack)-1]
				onStack[w] = false
				scc = append(scc, w)
				if w == v {
					break
				}
			}
			sccs = append(sccs, scc)
		}
	}

	vertices := make([]string, 0, len(graph))
	for v := range graph {
		vertices = append(vertices, v)
	}
	slices.Sort(vertices)
	for _, v := range vertices {
		if _, visited := indices[v]; !visited {
			strongConnect(v)
		}
	}
	return sccs
}

// reconstructCyclePath walks the component from its smallest sequence
// vertex, preferring unvisited members, until it returns to the start.
func reconstructCyclePath(scc []string, graph syncGraph) []string {
	if len(scc) == 0 {
		return []string{}
	}
	members := make(map[string]bool, len(scc))
	for _, v := range scc {
		members[v] = true
	}

	sorted := slices.Clone(scc)
	slices.Sort(sorted)
	start := sorted[0]
	for _, v := range sorted {
		if strings.HasPrefix(v, "sequence:") {
			start = v
			break
		}
	}

	path := []string{start}
	visited := map[string]bool{start: true}
	current := start
	for {
		var next string
		neighbors := slices.Clone(graph[current])
		slices.Sort(neighbors)
		for _, w := range neighbors {
			if members[w] && !visited[w] {
				next = w
				break
			}
		}
		if next == "" {
			if slices.Contains(graph[current], start) {
				path = append(path, start)
			}
			break
		}
		path = append(path, next)
		visited[next] = true
		current = next
	}
	return path
}
