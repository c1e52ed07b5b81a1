// Package whatif simulates hypothetical delays on a copy of a schedule and
// reports how the project end, the critical path and cost would change.
//
// Simulations never modify the schedule they are given: perturbations are
// applied to a clone, the clone is re-validated and re-analysed, and the
// result is a diff against the unperturbed analysis.
package whatif

import (
	"fmt"
	"slices"
	"time"

	"github.com/Iron-Ham/gantry/internal/cpm"
	"github.com/Iron-Ham/gantry/internal/errors"
	"github.com/Iron-Ham/gantry/internal/schedule"
)

// Kind is the type of a perturbation.
type Kind string

const (
	// DurationChange lengthens (positive Days) or shortens (negative Days) a task.
	DurationChange Kind = "duration_change"
	// StartShift holds a task back by Days from its unperturbed early start.
	StartShift Kind = "start_shift"
)

// Perturbation is a single hypothetical change to one task.
type Perturbation struct {
	TaskID string `json:"task_id"`
	Kind   Kind   `json:"kind"`
	Days   int    `json:"days"`
}

func (p Perturbation) String() string {
	return fmt.Sprintf("%s %s %+d", p.TaskID, p.Kind, p.Days)
}

// Delay is shorthand for a DurationChange of days.
func Delay(id string, days int) Perturbation {
	return Perturbation{TaskID: id, Kind: DurationChange, Days: days}
}

// Shift is shorthand for a StartShift of days.
func Shift(id string, days int) Perturbation {
	return Perturbation{TaskID: id, Kind: StartShift, Days: days}
}

// Slip is the movement of one task relative to the unperturbed analysis.
type Slip struct {
	ID         string `json:"id"`
	StartDays  int    `json:"start_days"`
	FinishDays int    `json:"finish_days"`
	Critical   bool   `json:"critical"`
}

// CriticalPathImpact describes how criticality changed.
type CriticalPathImpact struct {
	Before           []string `json:"before"`
	After            []string `json:"after"`
	BecameCritical   []string `json:"became_critical"`
	NoLongerCritical []string `json:"no_longer_critical"`
	PathChanged      bool     `json:"path_changed"`
}

// CostImpact lists the tasks and days a perturbation affects and, when a
// cost model was supplied, the priced estimate.
type CostImpact struct {
	AffectedTasks []string `json:"affected_tasks"`
	SlippedDays   int      `json:"slipped_days"`
	Estimate      float64  `json:"estimate"`
	Capped        bool     `json:"capped,omitempty"`
	Priced        bool     `json:"priced"`
}

// ImpactSummary holds the headline facts of a simulation.
type ImpactSummary struct {
	DelayDays     int  `json:"delay_days"`
	EndChanged    bool `json:"end_changed"`
	TasksAffected int  `json:"tasks_affected"`
	NewlyCritical int  `json:"newly_critical"`
	PathChanged   bool `json:"critical_path_changed"`
	FloatAbsorbed bool `json:"float_absorbed"`
}

// Result is the outcome of one simulation.
type Result struct {
	Perturbations      []Perturbation     `json:"perturbations"`
	OriginalDuration   int                `json:"original_duration"`
	NewDuration        int                `json:"new_duration"`
	OriginalEndDate    time.Time          `json:"original_end_date"`
	NewEndDate         time.Time          `json:"new_end_date"`
	Summary            ImpactSummary      `json:"impact_summary"`
	CriticalPathImpact CriticalPathImpact `json:"critical_path_impact"`
	CostImpact         CostImpact         `json:"cost_impact"`
	Slips              []Slip             `json:"slips"`
}

// Simulate applies perturbations, in order, to a clone of s and diffs the
// re-analysed clone against the analysis of s.
//
// Validation errors of s itself are returned unchanged. An unknown task id
// yields a *errors.NotFoundError; a change leaving a task shorter than one
// day yields NonPositiveDuration; a negative start shift or unknown kind
// yields InvalidField.
func Simulate(s *schedule.Schedule, perturbations []Perturbation, opts Options) (*Result, error) {
	base, err := cpm.Analyze(s)
	if err != nil {
		return nil, err
	}
	return simulate(s, base, perturbations, opts)
}

func simulate(s *schedule.Schedule, base *cpm.Result, perturbations []Perturbation, opts Options) (*Result, error) {
	c := s.Clone()
	for _, p := range perturbations {
		if err := apply(c, base, p); err != nil {
			return nil, err
		}
	}
	after, err := cpm.Analyze(c)
	if err != nil {
		return nil, err
	}

	r := &Result{
		Perturbations:    slices.Clone(perturbations),
		OriginalDuration: base.ProjectDuration,
		NewDuration:      after.ProjectDuration,
		OriginalEndDate:  base.ProjectEnd,
		NewEndDate:       after.ProjectEnd,
		Slips:            []Slip{},
	}
	r.CriticalPathImpact = criticalImpact(base, after)
	for _, t := range after.Tasks {
		b, _ := base.Task(t.ID)
		sl := Slip{
			ID:         t.ID,
			StartDays:  t.EarlyStart - b.EarlyStart,
			FinishDays: t.EarlyFinish - b.EarlyFinish,
			Critical:   t.IsCritical,
		}
		if sl.StartDays != 0 || sl.FinishDays != 0 {
			r.Slips = append(r.Slips, sl)
		}
	}
	r.CostImpact = price(r.Slips, opts)

	r.Summary = ImpactSummary{
		DelayDays:     r.NewDuration - r.OriginalDuration,
		EndChanged:    !r.NewEndDate.Equal(r.OriginalEndDate),
		TasksAffected: len(r.Slips),
		NewlyCritical: len(r.CriticalPathImpact.BecameCritical),
		PathChanged:   r.CriticalPathImpact.PathChanged,
	}
	r.Summary.FloatAbsorbed = len(r.Slips) > 0 && r.Summary.DelayDays == 0
	return r, nil
}

func apply(c *schedule.Schedule, base *cpm.Result, p Perturbation) error {
	t, ok := c.Task(p.TaskID)
	if !ok {
		return errors.NewNotFoundError("task", p.TaskID)
	}

	switch p.Kind {
	case DurationChange:
		d := t.Duration() + p.Days
		if d < 1 {
			return errors.NewValidationError(errors.KindNonPositiveDuration,
				fmt.Sprintf("changing the duration by %d day(s) leaves %d", p.Days, d)).
				WithTaskID(p.TaskID)
		}
		if t.End.IsZero() {
			t.DurationDays = d
		} else {
			t.End = schedule.AddDays(t.Start, d-1)
		}
		// leads against a shortened task may not exceed its new length
		for _, id := range c.Successors(p.TaskID) {
			succ, _ := c.Task(id)
			if l := succ.Lead(p.TaskID); l >= d {
				succ.Leads[p.TaskID] = d - 1
			}
		}

	case StartShift:
		if p.Days < 0 {
			return errors.NewValidationError(errors.KindInvalidField, "a start shift cannot be negative").
				WithTaskID(p.TaskID).
				WithField("days")
		}
		bt, _ := base.Task(p.TaskID)
		nb := schedule.AddDays(base.ProjectStart, bt.EarlyStart+p.Days)
		if nb.After(t.NotBefore) {
			t.NotBefore = nb
		}

	default:
		return errors.NewValidationError(errors.KindInvalidField,
			fmt.Sprintf("unknown perturbation kind %q", p.Kind)).
			WithTaskID(p.TaskID).
			WithField("kind")
	}
	return nil
}

func criticalImpact(before, after *cpm.Result) CriticalPathImpact {
	imp := CriticalPathImpact{
		Before:           before.CriticalPath,
		After:            after.CriticalPath,
		BecameCritical:   []string{},
		NoLongerCritical: []string{},
	}
	for _, t := range after.Tasks {
		was := before.IsCritical(t.ID)
		switch {
		case t.IsCritical && !was:
			imp.BecameCritical = append(imp.BecameCritical, t.ID)
		case !t.IsCritical && was:
			imp.NoLongerCritical = append(imp.NoLongerCritical, t.ID)
		}
	}
	imp.PathChanged = !slices.Equal(imp.Before, imp.After)
	return imp
}
