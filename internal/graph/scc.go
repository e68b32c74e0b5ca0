package graph

import "sort"

// StronglyConnectedComponents computes the SCCs of the graph using an
// iterative Tarjan traversal (no recursion, no shared mutable closures).
// Each component is returned with its members in ascending order; the
// component list itself is ordered by smallest member for determinism.
func (g *Directed) StronglyConnectedComponents() [][]int64 {
	index := 0
	indexOf := make(map[int64]int, len(g.nodes))
	lowlink := make(map[int64]int, len(g.nodes))
	onStack := make(map[int64]bool, len(g.nodes))
	var stack []int64
	var components [][]int64

	type frame struct {
		node  int64
		succs []int64
		next  int
	}

	for _, root := range g.Nodes() {
		if _, visited := indexOf[root]; visited {
			continue
		}

		frames := []frame{{node: root, succs: g.Successors(root)}}
		indexOf[root] = index
		lowlink[root] = index
		index++
		stack = append(stack, root)
		onStack[root] = true

		for len(frames) > 0 {
			f := &frames[len(frames)-1]

			if f.next < len(f.succs) {
				w := f.succs[f.next]
				f.next++

				if _, visited := indexOf[w]; !visited {
					indexOf[w] = index
					lowlink[w] = index
					index++
					stack = append(stack, w)
					onStack[w] = true
					frames = append(frames, frame{node: w, succs: g.Successors(w)})
				} else if onStack[w] && indexOf[w] < lowlink[f.node] {
					lowlink[f.node] = indexOf[w]
				}
				continue
			}

			// All successors handled: close out this node
			v := f.node
			if lowlink[v] == indexOf[v] {
				var comp []int64
				for {
					w := stack[len(stack)-1]
					stack = stack[:len(stack)-1]
					onStack[w] = false
					comp = append(comp, w)
					if w == v {
						break
					}
				}
				sort.Slice(comp, func(i, j int) bool { return comp[i] < comp[j] })
				components = append(components, comp)
			}

			frames = frames[:len(frames)-1]
			if len(frames) > 0 {
				parent := &frames[len(frames)-1]
				if lowlink[v] < lowlink[parent.node] {
					lowlink[parent.node] = lowlink[v]
				}
			}
		}
	}

	sort.Slice(components, func(i, j int) bool { return components[i][0] < components[j][0] })
	return components
}

// Condensation is the DAG obtained by contracting every SCC to one node.
type Condensation struct {
	// Components holds the member lists, indexed by component id
	Components [][]int64

	// ComponentOf maps each original node to its component id
	ComponentOf map[int64]int

	// DAG is the condensed graph over component ids
	DAG *Directed
}

// Condense contracts each strongly connected component into a super-node
// and returns the resulting acyclic graph.
func (g *Directed) Condense() *Condensation {
	components := g.StronglyConnectedComponents()

	componentOf := make(map[int64]int, len(g.nodes))
	for i, comp := range components {
		for _, node := range comp {
			componentOf[node] = i
		}
	}

	dag := NewDirected()
	for i := range components {
		dag.AddNode(int64(i))
	}
	for _, edge := range g.Edges() {
		from, to := componentOf[edge[0]], componentOf[edge[1]]
		if from != to {
			dag.AddEdge(int64(from), int64(to))
		}
	}

	return &Condensation{
		Components:  components,
		ComponentOf: componentOf,
		DAG:         dag,
	}
}
