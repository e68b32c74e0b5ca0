// Package graph implements the small directed-graph toolkit the architecture
// analyzer needs: strongly connected components, topological sorting, and
// SCC condensation over int64 node ids (file ids in practice).
package graph

import (
	"errors"
	"sort"
)

// ErrCyclic is returned by TopologicalSort when the graph contains a cycle.
var ErrCyclic = errors.New("graph contains a cycle")

// Directed is a directed graph over int64 node ids. Edges are deduplicated;
// parallel edges collapse into one.
type Directed struct {
	nodes map[int64]struct{}
	succ  map[int64]map[int64]struct{}
	pred  map[int64]map[int64]struct{}
}

// NewDirected creates an empty directed graph
func NewDirected() *Directed {
	return &Directed{
		nodes: make(map[int64]struct{}),
		succ:  make(map[int64]map[int64]struct{}),
		pred:  make(map[int64]map[int64]struct{}),
	}
}

// AddNode adds a node; adding an existing node is a no-op
func (g *Directed) AddNode(id int64) {
	g.nodes[id] = struct{}{}
}

// AddEdge adds a directed edge from → to, adding both endpoints as needed
func (g *Directed) AddEdge(from, to int64) {
	g.AddNode(from)
	g.AddNode(to)

	if g.succ[from] == nil {
		g.succ[from] = make(map[int64]struct{})
	}
	g.succ[from][to] = struct{}{}

	if g.pred[to] == nil {
		g.pred[to] = make(map[int64]struct{})
	}
	g.pred[to][from] = struct{}{}
}

// HasNode reports whether the node exists
func (g *Directed) HasNode(id int64) bool {
	_, ok := g.nodes[id]
	return ok
}

// Len returns the number of nodes
func (g *Directed) Len() int {
	return len(g.nodes)
}

// Nodes returns all node ids in ascending order
func (g *Directed) Nodes() []int64 {
	ids := make([]int64, 0, len(g.nodes))
	for id := range g.nodes {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// Successors returns the targets of all edges leaving id, ascending
func (g *Directed) Successors(id int64) []int64 {
	return sortedKeys(g.succ[id])
}

// Predecessors returns the sources of all edges entering id, ascending
func (g *Directed) Predecessors(id int64) []int64 {
	return sortedKeys(g.pred[id])
}

// Edges returns every edge as a (from, to) pair in deterministic order
func (g *Directed) Edges() [][2]int64 {
	var edges [][2]int64
	for _, from := range g.Nodes() {
		for _, to := range g.Successors(from) {
			edges = append(edges, [2]int64{from, to})
		}
	}
	return edges
}

func sortedKeys(set map[int64]struct{}) []int64 {
	ids := make([]int64, 0, len(set))
	for id := range set {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// TopologicalSort returns the nodes in dependency order (every edge points
// from an earlier to a later position). Ties break on ascending node id so
// results are deterministic. Returns ErrCyclic when no order exists.
func (g *Directed) TopologicalSort() ([]int64, error) {
	indegree := make(map[int64]int, len(g.nodes))
	for id := range g.nodes {
		indegree[id] = len(g.pred[id])
	}

	var frontier []int64
	for id, deg := range indegree {
		if deg == 0 {
			frontier = append(frontier, id)
		}
	}
	sort.Slice(frontier, func(i, j int) bool { return frontier[i] < frontier[j] })

	order := make([]int64, 0, len(g.nodes))
	for len(frontier) > 0 {
		id := frontier[0]
		frontier = frontier[1:]
		order = append(order, id)

		var freed []int64
		for _, to := range g.Successors(id) {
			indegree[to]--
			if indegree[to] == 0 {
				freed = append(freed, to)
			}
		}
		if len(freed) > 0 {
			frontier = append(frontier, freed...)
			sort.Slice(frontier, func(i, j int) bool { return frontier[i] < frontier[j] })
		}
	}

	if len(order) != len(g.nodes) {
		return nil, ErrCyclic
	}
	return order, nil
}

// IsAcyclic reports whether the graph has no directed cycle
func (g *Directed) IsAcyclic() bool {
	_, err := g.TopologicalSort()
	return err == nil
}
