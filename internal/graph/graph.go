// Package graph validates a schedule's dependency relation and exposes it as
// an immutable directed acyclic graph with a deterministic topological order.
//
// Edges run from predecessor to successor. Every traversal in this package is
// iterative; deep dependency chains never grow the goroutine stack.
package graph

import (
	"container/heap"
	"slices"
	"time"

	"github.com/Iron-Ham/gantry/internal/errors"
	"github.com/Iron-Ham/gantry/internal/schedule"
)

// Edge is a finish-to-start dependency from a predecessor to a successor.
type Edge struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// Graph is the validated dependency graph of a schedule.
// A Graph is never modified after Build returns it.
type Graph struct {
	start    time.Time
	ids      []string
	order    []string
	duration map[string]int
	release  map[string]int
	pred     map[string][]string
	succ     map[string][]string
	lead     map[Edge]int
}

// Build validates s and constructs its graph. Validation happens in this
// order, each step reporting the first offending task in ascending id order:
// unknown dependency ids, dependency cycles, then per-task date, duration
// and lead checks. No partial graph is returned on error.
func Build(s *schedule.Schedule) (*Graph, error) {
	g := &Graph{
		start:    s.ProjectStart(),
		ids:      s.IDs(),
		duration: make(map[string]int, s.Len()),
		release:  make(map[string]int),
		pred:     make(map[string][]string, s.Len()),
		succ:     make(map[string][]string, s.Len()),
		lead:     make(map[Edge]int),
	}

	if err := g.linkDependencies(s); err != nil {
		return nil, err
	}
	if err := g.checkAcyclic(); err != nil {
		return nil, err
	}
	if err := g.checkTasks(s); err != nil {
		return nil, err
	}
	g.order = g.topologicalOrder()
	return g, nil
}

func (g *Graph) linkDependencies(s *schedule.Schedule) error {
	for _, id := range g.ids {
		t, _ := s.Task(id)
		seen := make(map[string]bool, len(t.Dependencies))
		for _, dep := range t.Dependencies {
			if _, ok := s.Task(dep); !ok {
				return errors.NewValidationError(errors.KindDanglingDependencyReference,
					"dependency refers to a task that does not exist").
					WithTaskID(id).
					WithRelated(dep)
			}
			if seen[dep] {
				continue
			}
			seen[dep] = true
			g.pred[id] = append(g.pred[id], dep)
			g.succ[dep] = append(g.succ[dep], id)
		}
	}
	for _, id := range g.ids {
		slices.Sort(g.pred[id])
		slices.Sort(g.succ[id])
	}
	return nil
}

// DFS colours
const (
	unvisited = iota
	onStack
	finished
)

// dfsFrame is one level of the explicit DFS stack.
type dfsFrame struct {
	id   string
	next int // index of the next successor to visit
}

// checkAcyclic runs an iterative depth-first search with an on-stack marker.
// A back edge closes a cycle, reported as the path from the re-entered task
// around to itself.
func (g *Graph) checkAcyclic() error {
	state := make(map[string]int, len(g.ids))

	for _, root := range g.ids {
		if state[root] != unvisited {
			continue
		}
		stack := []dfsFrame{{id: root}}
		state[root] = onStack

		for len(stack) > 0 {
			top := &stack[len(stack)-1]
			succ := g.succ[top.id]
			if top.next == len(succ) {
				state[top.id] = finished
				stack = stack[:len(stack)-1]
				continue
			}
			next := succ[top.next]
			top.next++

			switch state[next] {
			case onStack:
				return cycleError(stack, next)
			case unvisited:
				state[next] = onStack
				stack = append(stack, dfsFrame{id: next})
			}
		}
	}
	return nil
}

func cycleError(stack []dfsFrame, reentered string) error {
	var path []string
	for i, f := range stack {
		if f.id != reentered {
			continue
		}
		for _, on := range stack[i:] {
			path = append(path, on.id)
		}
		break
	}
	path = append(path, reentered)
	return errors.NewValidationError(errors.KindCyclicDependency, "dependency cycle detected").
		WithTaskID(reentered).
		WithRelated(path...)
}

func (g *Graph) checkTasks(s *schedule.Schedule) error {
	for _, id := range g.ids {
		t, _ := s.Task(id)
		if t.Start.IsZero() {
			return errors.NewValidationError(errors.KindInvalidField, "task has no start date").
				WithTaskID(id).
				WithField("start")
		}
		if !t.End.IsZero() && t.End.Before(t.Start) {
			return errors.NewValidationError(errors.KindInvalidDateRange, "task ends before it starts").
				WithTaskID(id)
		}
		d := t.Duration()
		if d < 1 {
			return errors.NewValidationError(errors.KindNonPositiveDuration, "task must last at least one day").
				WithTaskID(id)
		}
		g.duration[id] = d
		if !t.NotBefore.IsZero() {
			if off := schedule.DaysBetween(g.start, t.NotBefore); off > 0 {
				g.release[id] = off
			}
		}
	}

	for _, id := range g.ids {
		t, _ := s.Task(id)
		for _, pred := range sortedKeys(t.Leads) {
			lead := t.Leads[pred]
			if !t.DependsOn(pred) {
				return errors.NewValidationError(errors.KindInvalidLead, "lead refers to a task that is not a dependency").
					WithTaskID(id).
					WithRelated(pred)
			}
			if lead < 0 || lead >= g.duration[pred] {
				return errors.NewValidationError(errors.KindInvalidLead, "lead must be at least 0 and shorter than the predecessor").
					WithTaskID(id).
					WithRelated(pred)
			}
			if lead > 0 {
				g.lead[Edge{From: pred, To: id}] = lead
			}
		}
	}
	return nil
}

func sortedKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

// idHeap is a min-heap of task ids.
type idHeap []string

func (h idHeap) Len() int           { return len(h) }
func (h idHeap) Less(i, j int) bool { return h[i] < h[j] }
func (h idHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }
func (h *idHeap) Push(x any)        { *h = append(*h, x.(string)) }
func (h *idHeap) Pop() any {
	old := *h
	n := len(old)
	x := old[n-1]
	*h = old[:n-1]
	return x
}

// topologicalOrder is Kahn's algorithm taking the smallest ready id first.
func (g *Graph) topologicalOrder() []string {
	indegree := make(map[string]int, len(g.ids))
	ready := &idHeap{}
	for _, id := range g.ids {
		indegree[id] = len(g.pred[id])
		if indegree[id] == 0 {
			*ready = append(*ready, id)
		}
	}
	heap.Init(ready)

	order := make([]string, 0, len(g.ids))
	for ready.Len() > 0 {
		id := heap.Pop(ready).(string)
		order = append(order, id)
		for _, s := range g.succ[id] {
			indegree[s]--
			if indegree[s] == 0 {
				heap.Push(ready, s)
			}
		}
	}
	return order
}
