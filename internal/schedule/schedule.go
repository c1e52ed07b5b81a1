package schedule

import (
	"slices"
	"sort"
	"time"

	"github.com/Iron-Ham/gantry/internal/errors"
)

// Schedule is a snapshot of a project's tasks. Analyses never mutate a
// Schedule; callers that need a modified copy use Clone. The zero value is
// an empty schedule ready for Add.
type Schedule struct {
	Name  string
	Start time.Time

	tasks map[string]*Task
}

// New creates an empty schedule. A zero start means the project starts on
// the earliest task start.
func New(name string, start time.Time) *Schedule {
	return &Schedule{
		Name:  name,
		Start: Date(start),
		tasks: make(map[string]*Task),
	}
}

// Add inserts a task. Dates are normalised to calendar days.
func (s *Schedule) Add(t *Task) error {
	if t.ID == "" {
		return errors.NewValidationError(errors.KindInvalidField, "task id is required").WithField("id")
	}
	if s.tasks == nil {
		s.tasks = make(map[string]*Task)
	}
	if _, exists := s.tasks[t.ID]; exists {
		return errors.NewValidationError(errors.KindDuplicateTaskID, "task id is used more than once").WithTaskID(t.ID)
	}
	t.Start = Date(t.Start)
	t.End = Date(t.End)
	t.NotBefore = Date(t.NotBefore)
	t.BaselineStart = Date(t.BaselineStart)
	t.BaselineEnd = Date(t.BaselineEnd)
	if t.Status == "" {
		t.Status = StatusToDo
	}
	if t.Priority == "" {
		t.Priority = PriorityMedium
	}
	s.tasks[t.ID] = t
	return nil
}

// MustAdd is Add for fixtures; it panics on error.
func (s *Schedule) MustAdd(tasks ...*Task) *Schedule {
	for _, t := range tasks {
		if err := s.Add(t); err != nil {
			panic(err)
		}
	}
	return s
}

// Task returns the task with the given id.
func (s *Schedule) Task(id string) (*Task, bool) {
	t, ok := s.tasks[id]
	return t, ok
}

// Len returns the number of tasks.
func (s *Schedule) Len() int {
	return len(s.tasks)
}

// IDs returns all task ids in ascending order.
func (s *Schedule) IDs() []string {
	ids := make([]string, 0, len(s.tasks))
	for id := range s.tasks {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Tasks returns all tasks ordered by id.
func (s *Schedule) Tasks() []*Task {
	out := make([]*Task, 0, len(s.tasks))
	for _, id := range s.IDs() {
		out = append(out, s.tasks[id])
	}
	return out
}

// ProjectStart returns Start, or the earliest task start when Start is zero.
func (s *Schedule) ProjectStart() time.Time {
	if !s.Start.IsZero() {
		return s.Start
	}
	var earliest time.Time
	for _, t := range s.tasks {
		if t.Start.IsZero() {
			continue
		}
		if earliest.IsZero() || t.Start.Before(earliest) {
			earliest = t.Start
		}
	}
	return earliest
}

// PlannedEnd returns the latest task finish date as entered, ignoring dependencies.
func (s *Schedule) PlannedEnd() time.Time {
	var latest time.Time
	for _, t := range s.tasks {
		if f := t.Finish(); f.After(latest) {
			latest = f
		}
	}
	return latest
}

// Successors returns the ids of tasks that declare id as a dependency, sorted.
func (s *Schedule) Successors(id string) []string {
	var out []string
	for _, t := range s.tasks {
		if t.DependsOn(id) {
			out = append(out, t.ID)
		}
	}
	slices.Sort(out)
	return out
}

// Clone returns a deep copy; modifying the copy never affects s.
func (s *Schedule) Clone() *Schedule {
	c := &Schedule{
		Name:  s.Name,
		Start: s.Start,
		tasks: make(map[string]*Task, len(s.tasks)),
	}
	for id, t := range s.tasks {
		c.tasks[id] = t.Clone()
	}
	return c
}
