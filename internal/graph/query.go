package graph

import (
	"slices"
	"time"
)

// Start returns the project start date day offsets are measured from.
func (g *Graph) Start() time.Time {
	return g.start
}

// Len returns the number of tasks.
func (g *Graph) Len() int {
	return len(g.ids)
}

// Has reports whether id is a task in the graph.
func (g *Graph) Has(id string) bool {
	_, ok := g.duration[id]
	return ok
}

// IDs returns the task ids in ascending order.
func (g *Graph) IDs() []string {
	return slices.Clone(g.ids)
}

// Order returns the topological order. Among tasks whose predecessors are
// all placed, the smallest id comes first.
func (g *Graph) Order() []string {
	return slices.Clone(g.order)
}

// Pred returns the sorted predecessors of id.
func (g *Graph) Pred(id string) []string {
	return slices.Clone(g.pred[id])
}

// Succ returns the sorted successors of id.
func (g *Graph) Succ(id string) []string {
	return slices.Clone(g.succ[id])
}

// Duration returns the duration of id in days.
func (g *Graph) Duration(id string) int {
	return g.duration[id]
}

// Lead returns the overlap, in days, allowed on the edge from -> to.
func (g *Graph) Lead(from, to string) int {
	return g.lead[Edge{From: from, To: to}]
}

// Release returns the earliest day offset id may start at, from its
// not-before constraint. Zero when unconstrained.
func (g *Graph) Release(id string) int {
	return g.release[id]
}

// Edges returns every dependency edge ordered by (From, To).
func (g *Graph) Edges() []Edge {
	var edges []Edge
	for _, from := range g.ids {
		for _, to := range g.succ[from] {
			edges = append(edges, Edge{From: from, To: to})
		}
	}
	return edges
}

// Roots returns tasks without predecessors, sorted.
func (g *Graph) Roots() []string {
	var out []string
	for _, id := range g.ids {
		if len(g.pred[id]) == 0 {
			out = append(out, id)
		}
	}
	return out
}

// Leaves returns tasks without successors, sorted.
func (g *Graph) Leaves() []string {
	var out []string
	for _, id := range g.ids {
		if len(g.succ[id]) == 0 {
			out = append(out, id)
		}
	}
	return out
}

// Ancestors returns every transitive predecessor of id, sorted.
func (g *Graph) Ancestors(id string) []string {
	return g.reach(id, g.pred)
}

// Descendants returns every transitive successor of id, sorted.
func (g *Graph) Descendants(id string) []string {
	return g.reach(id, g.succ)
}

// reach is a breadth-first search over adj, excluding the start node.
func (g *Graph) reach(id string, adj map[string][]string) []string {
	if !g.Has(id) {
		return nil
	}
	seen := map[string]bool{id: true}
	queue := []string{id}
	var out []string
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, next := range adj[cur] {
			if seen[next] {
				continue
			}
			seen[next] = true
			out = append(out, next)
			queue = append(queue, next)
		}
	}
	slices.Sort(out)
	return out
}
