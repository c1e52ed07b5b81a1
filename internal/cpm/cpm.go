// Package cpm implements the critical path method over a validated task graph.
//
// Times are day offsets from the project start. A task occupying days
// [EarlyStart, EarlyFinish] is inclusive on both ends, so
// EarlyFinish = EarlyStart + duration − 1.
//
// Forward pass, in topological order:
//
//	ES(t) = max(EF(p) + 1 − lead(p,t)) over predecessors, at least release(t)
//	EF(t) = ES(t) + duration(t) − 1
//
// Backward pass, in reverse topological order:
//
//	LF(t) = min(LS(s) − 1 + lead(t,s)) over successors, or projectDuration − 1
//	LS(t) = LF(t) − duration(t) + 1
//
// With no leads or release dates these reduce to the textbook formulas.
package cpm

import (
	"sort"
	"time"

	"github.com/Iron-Ham/gantry/internal/errors"
	"github.com/Iron-Ham/gantry/internal/graph"
	"github.com/Iron-Ham/gantry/internal/schedule"
)

// TaskTimes holds the CPM figures of one task.
type TaskTimes struct {
	ID          string `json:"id"`
	Duration    int    `json:"duration"`
	EarlyStart  int    `json:"early_start"`
	EarlyFinish int    `json:"early_finish"`
	LateStart   int    `json:"late_start"`
	LateFinish  int    `json:"late_finish"`
	Float       int    `json:"float"`
	IsCritical  bool   `json:"is_critical"`
}

// Result is the outcome of a CPM analysis. It is freshly allocated per call
// and never modified afterwards.
type Result struct {
	ProjectStart    time.Time   `json:"project_start"`
	ProjectEnd      time.Time   `json:"project_end"`
	ProjectDuration int         `json:"project_duration"`
	CriticalPath    []string    `json:"critical_path"`
	Order           []string    `json:"topological_order"`
	Tasks           []TaskTimes `json:"tasks"`

	index map[string]int
}

// Task returns the figures for id.
func (r *Result) Task(id string) (TaskTimes, bool) {
	i, ok := r.index[id]
	if !ok {
		return TaskTimes{}, false
	}
	return r.Tasks[i], true
}

// Critical returns every task with zero float, sorted by id. This can be a
// superset of CriticalPath when several critical chains run in parallel.
func (r *Result) Critical() []string {
	var out []string
	for _, t := range r.Tasks {
		if t.IsCritical {
			out = append(out, t.ID)
		}
	}
	return out
}

// IsCritical reports whether id has zero float.
func (r *Result) IsCritical(id string) bool {
	t, ok := r.Task(id)
	return ok && t.IsCritical
}

// EarlyStartDate returns the calendar date of id's early start.
func (r *Result) EarlyStartDate(id string) time.Time {
	t, _ := r.Task(id)
	return schedule.AddDays(r.ProjectStart, t.EarlyStart)
}

// EarlyFinishDate returns the calendar date of id's early finish.
func (r *Result) EarlyFinishDate(id string) time.Time {
	t, _ := r.Task(id)
	return schedule.AddDays(r.ProjectStart, t.EarlyFinish)
}

// Analyze validates s and runs the critical path method over it.
// A schedule without tasks is an EmptySchedule computation error.
func Analyze(s *schedule.Schedule) (*Result, error) {
	if s.Len() == 0 {
		return nil, errors.NewComputationError(errors.KindEmptySchedule, "critical path analysis")
	}
	g, err := graph.Build(s)
	if err != nil {
		return nil, err
	}
	return AnalyzeGraph(g)
}

// AnalyzeGraph runs the critical path method over an already built graph.
func AnalyzeGraph(g *graph.Graph) (*Result, error) {
	if g.Len() == 0 {
		return nil, errors.NewComputationError(errors.KindEmptySchedule, "critical path analysis")
	}

	order := g.Order()
	es := make(map[string]int, len(order))
	ef := make(map[string]int, len(order))
	ls := make(map[string]int, len(order))
	lf := make(map[string]int, len(order))

	projectDuration := 0
	for _, id := range order {
		start := g.Release(id)
		for _, p := range g.Pred(id) {
			if c := ef[p] + 1 - g.Lead(p, id); c > start {
				start = c
			}
		}
		es[id] = start
		ef[id] = start + g.Duration(id) - 1
		if ef[id]+1 > projectDuration {
			projectDuration = ef[id] + 1
		}
	}

	for i := len(order) - 1; i >= 0; i-- {
		id := order[i]
		finish := projectDuration - 1
		for _, s := range g.Succ(id) {
			if c := ls[s] - 1 + g.Lead(id, s); c < finish {
				finish = c
			}
		}
		lf[id] = finish
		ls[id] = finish - g.Duration(id) + 1
	}

	ids := g.IDs()
	r := &Result{
		ProjectStart:    g.Start(),
		ProjectEnd:      schedule.AddDays(g.Start(), projectDuration-1),
		ProjectDuration: projectDuration,
		Order:           order,
		Tasks:           make([]TaskTimes, len(ids)),
		index:           make(map[string]int, len(ids)),
	}
	for i, id := range ids {
		float := ls[id] - es[id]
		r.Tasks[i] = TaskTimes{
			ID:          id,
			Duration:    g.Duration(id),
			EarlyStart:  es[id],
			EarlyFinish: ef[id],
			LateStart:   ls[id],
			LateFinish:  lf[id],
			Float:       float,
			IsCritical:  float == 0,
		}
		r.index[id] = i
	}
	r.CriticalPath = criticalPath(g, r)
	return r, nil
}

// Driving reports whether the edge from -> to determines to's early start,
// i.e. to starts exactly when from (less any lead) allows.
func (r *Result) Driving(g *graph.Graph, from, to string) bool {
	p, ok1 := r.Task(from)
	s, ok2 := r.Task(to)
	return ok1 && ok2 && s.EarlyStart == p.EarlyFinish+1-g.Lead(from, to)
}

// criticalPath walks one chain of driving critical edges from the project
// start to the project end.
//
// The chain starts at a critical task that no critical predecessor drives.
// At every step, including the choice of the first task, ties between
// candidates are broken deterministically: the earliest start first, then
// the candidate with the larger own duration, then the smaller task id.
func criticalPath(g *graph.Graph, r *Result) []string {
	var starts []TaskTimes
	for _, t := range r.Tasks {
		if !t.IsCritical {
			continue
		}
		driven := false
		for _, p := range g.Pred(t.ID) {
			if r.IsCritical(p) && r.Driving(g, p, t.ID) {
				driven = true
				break
			}
		}
		if !driven {
			starts = append(starts, t)
		}
	}
	if len(starts) == 0 {
		return nil
	}
	sortCandidates(starts)

	path := []string{starts[0].ID}
	cur := starts[0].ID
	for {
		var next []TaskTimes
		for _, s := range g.Succ(cur) {
			st, _ := r.Task(s)
			if st.IsCritical && r.Driving(g, cur, s) {
				next = append(next, st)
			}
		}
		if len(next) == 0 {
			return path
		}
		sortCandidates(next)
		cur = next[0].ID
		path = append(path, cur)
	}
}

func sortCandidates(c []TaskTimes) {
	sort.Slice(c, func(i, j int) bool {
		if c[i].EarlyStart != c[j].EarlyStart {
			return c[i].EarlyStart < c[j].EarlyStart
		}
		if c[i].Duration != c[j].Duration {
			return c[i].Duration > c[j].Duration
		}
		return c[i].ID < c[j].ID
	})
}
