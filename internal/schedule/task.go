// Package schedule defines the task and schedule records every analysis in
// gantry operates on, together with the lenient decoding boundary that turns
// loosely typed spreadsheet or file input into strict records.
//
// Dates are calendar days. All dates are normalised to midnight UTC so that
// day arithmetic never crosses a DST boundary, and task ranges are inclusive:
// a task starting and ending on the same date lasts one day.
package schedule

import (
	"fmt"
	"maps"
	"slices"
	"time"
)

// Status is the execution state of a task.
type Status string

const (
	StatusToDo       Status = "todo"
	StatusInProgress Status = "in_progress"
	StatusDone       Status = "done"
)

// Valid reports whether s is one of the defined statuses.
func (s Status) Valid() bool {
	switch s {
	case StatusToDo, StatusInProgress, StatusDone:
		return true
	}
	return false
}

// Priority is the scheduling priority of a task.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

// Valid reports whether p is one of the defined priorities.
func (p Priority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh:
		return true
	}
	return false
}

// Task is a single activity in a schedule.
type Task struct {
	ID    string    `json:"id" yaml:"id"`
	Name  string    `json:"name" yaml:"name"`
	Start time.Time `json:"start" yaml:"start"`
	End   time.Time `json:"end,omitzero" yaml:"end,omitempty"`

	// DurationDays supplies the duration when End is zero.
	DurationDays int `json:"duration_days,omitempty" yaml:"duration_days,omitempty"`

	// Dependencies lists predecessor task ids (finish-to-start).
	Dependencies []string `json:"dependencies,omitempty" yaml:"dependencies,omitempty"`
	// Leads maps a predecessor id to the number of days this task may
	// overlap the end of that predecessor.
	Leads map[string]int `json:"leads,omitempty" yaml:"leads,omitempty"`
	// NotBefore is an optional start-no-earlier-than constraint.
	NotBefore time.Time `json:"not_before,omitzero" yaml:"not_before,omitempty"`

	Progress  int      `json:"progress" yaml:"progress"`
	Status    Status   `json:"status" yaml:"status"`
	Priority  Priority `json:"priority" yaml:"priority"`
	Assignees []string `json:"assignees,omitempty" yaml:"assignees,omitempty"`

	BaselineStart time.Time `json:"baseline_start,omitzero" yaml:"baseline_start,omitempty"`
	BaselineEnd   time.Time `json:"baseline_end,omitzero" yaml:"baseline_end,omitempty"`
}

// Duration returns the inclusive length of the task in days. Tasks without
// an end date fall back to DurationDays.
func (t *Task) Duration() int {
	if t.End.IsZero() {
		return t.DurationDays
	}
	return DaysBetween(t.Start, t.End) + 1
}

// Finish returns the end date, deriving it from DurationDays when End is unset.
func (t *Task) Finish() time.Time {
	if !t.End.IsZero() || t.DurationDays < 1 {
		return t.End
	}
	return AddDays(t.Start, t.DurationDays-1)
}

// HasBaseline reports whether a baseline end date was recorded.
func (t *Task) HasBaseline() bool {
	return !t.BaselineEnd.IsZero()
}

// Lead returns the overlap allowed against predecessor pred.
func (t *Task) Lead(pred string) int {
	return t.Leads[pred]
}

// DependsOn reports whether pred is a declared predecessor.
func (t *Task) DependsOn(pred string) bool {
	return slices.Contains(t.Dependencies, pred)
}

// SharesAssignee reports whether t and other have at least one assignee in common.
func (t *Task) SharesAssignee(other *Task) bool {
	for _, a := range t.Assignees {
		if slices.Contains(other.Assignees, a) {
			return true
		}
	}
	return false
}

// Clone returns a deep copy of the task.
func (t *Task) Clone() *Task {
	c := *t
	c.Dependencies = slices.Clone(t.Dependencies)
	c.Assignees = slices.Clone(t.Assignees)
	if t.Leads != nil {
		c.Leads = maps.Clone(t.Leads)
	}
	return &c
}

// String implements fmt.Stringer.
func (t *Task) String() string {
	return fmt.Sprintf("%s (%s..%s)", t.ID, FormatDate(t.Start), FormatDate(t.Finish()))
}

// Date truncates tm to midnight UTC of its own calendar day.
func Date(tm time.Time) time.Time {
	if tm.IsZero() {
		return tm
	}
	y, m, d := tm.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// DaysBetween returns the number of calendar days from a to b (b − a).
func DaysBetween(a, b time.Time) int {
	return int(Date(b).Sub(Date(a)).Hours() / 24)
}

// AddDays returns the date n calendar days after tm.
func AddDays(tm time.Time, n int) time.Time {
	return Date(tm).AddDate(0, 0, n)
}

// FormatDate renders a date as YYYY-MM-DD, or "-" for the zero time.
func FormatDate(tm time.Time) string {
	if tm.IsZero() {
		return "-"
	}
	return tm.Format(time.DateOnly)
}
