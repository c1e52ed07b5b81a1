package recovery

import (
	"strings"
	"testing"
	"time"

	"github.com/Iron-Ham/gantry/internal/cpm"
	"github.com/Iron-Ham/gantry/internal/errors"
	"github.com/Iron-Ham/gantry/internal/schedule"
)

var d0 = time.Date(2025, 4, 7, 0, 0, 0, 0, time.UTC)

func at(n int) time.Time { return schedule.AddDays(d0, n) }

func task(id string, days int, deps ...string) *schedule.Task {
	return &schedule.Task{ID: id, Start: d0, End: at(days - 1), Dependencies: deps}
}

// diamond is A5 -> {B3, C2} -> D1, nine days long.
func diamond() *schedule.Schedule {
	return schedule.New("diamond", d0).MustAdd(
		task("A", 5),
		task("B", 3, "A"),
		task("C", 2, "A"),
		task("D", 1, "B", "C"),
	)
}

// byDuration returns a target whose window is n days from the project start.
func byDuration(n int) Target {
	return Target{End: at(n - 1)}
}

// assertOverlapBound checks every edge of the applied schedule keeps the
// successor from starting earlier than the predecessor's end less its
// maximum overlap.
func assertOverlapBound(t *testing.T, p *Plan, opts Options) {
	t.Helper()
	applied := p.Apply()
	res, err := cpm.Analyze(applied)
	if err != nil {
		t.Fatalf("applied schedule does not analyze: %v", err)
	}
	for _, succ := range applied.Tasks() {
		for _, pred := range succ.Dependencies {
			pp, _ := p.Task(pred)
			sp, _ := p.Task(succ.ID)
			pt, _ := res.Task(pred)
			bound := schedule.AddDays(pp.RevisedEnd, -opts.MaxOverlap(pt.Duration))
			if sp.RevisedStart.Before(bound) {
				t.Errorf("edge %s->%s: successor starts %s, before %s", pred, succ.ID,
					schedule.FormatDate(sp.RevisedStart), schedule.FormatDate(bound))
			}
		}
	}
	if res.ProjectDuration != p.AchievedDuration {
		t.Errorf("applied schedule lasts %d days, plan says %d", res.ProjectDuration, p.AchievedDuration)
	}
	for _, tp := range p.Tasks {
		if tp.RevisedStart.Before(p.ProjectStart) || tp.RevisedEnd.After(p.AchievedEnd) {
			t.Errorf("%s revised %s..%s falls outside %s..%s", tp.ID,
				schedule.FormatDate(tp.RevisedStart), schedule.FormatDate(tp.RevisedEnd),
				schedule.FormatDate(p.ProjectStart), schedule.FormatDate(p.AchievedEnd))
		}
		if p.Met && tp.RevisedEnd.After(p.TargetEnd) {
			t.Errorf("%s ends %s, after the met target %s", tp.ID,
				schedule.FormatDate(tp.RevisedEnd), schedule.FormatDate(p.TargetEnd))
		}
	}
}

func TestOptions(t *testing.T) {
	o := DefaultOptions()
	tests := []struct {
		original, minDuration, overlap int
	}{
		{1, 1, 0},
		{3, 3, 1},
		{5, 4, 2},
		{10, 8, 5},
		{11, 9, 5},
	}
	for _, tt := range tests {
		if got := o.MinDuration(tt.original); got != tt.minDuration {
			t.Errorf("MinDuration(%d) = %d, want %d", tt.original, got, tt.minDuration)
		}
		if got := o.MaxOverlap(tt.original); got != tt.overlap {
			t.Errorf("MaxOverlap(%d) = %d, want %d", tt.original, got, tt.overlap)
		}
	}
}

func TestRecover_TargetAlreadyMet(t *testing.T) {
	opts := DefaultOptions()
	p, err := Recover(diamond(), byDuration(12), opts)
	if err != nil {
		t.Fatalf("Recover() error = %v", err)
	}
	if !p.Met || p.RequiredCompression != 0 || p.AchievedDuration != 9 {
		t.Errorf("Met = %v RequiredCompression = %d AchievedDuration = %d", p.Met, p.RequiredCompression, p.AchievedDuration)
	}
	if len(p.Changed()) != 0 {
		t.Errorf("Changed() = %v, want none", p.Changed())
	}
	for _, tp := range p.Tasks {
		if tp.Strategy != Unchanged {
			t.Errorf("%s strategy = %s, want unchanged", tp.ID, tp.Strategy)
		}
	}

	// entered dates all sit on day 0; revised dates follow the dependencies
	a, _ := p.Task("A")
	if a.Suggestion != "No change" {
		t.Errorf("A suggestion = %q", a.Suggestion)
	}
	b, _ := p.Task("B")
	if !b.RevisedStart.Equal(at(5)) || !b.RevisedEnd.Equal(at(7)) {
		t.Errorf("B revised = %s..%s, want %s..%s", schedule.FormatDate(b.RevisedStart),
			schedule.FormatDate(b.RevisedEnd), schedule.FormatDate(at(5)), schedule.FormatDate(at(7)))
	}
	if !strings.HasPrefix(b.Suggestion, "Reschedule B to 2025-04-12..2025-04-14") {
		t.Errorf("B suggestion = %q", b.Suggestion)
	}
	assertOverlapBound(t, p, opts)
}

// releaseSchedule has X held back to day 4 by a not-before date beside an
// independent five-day Y.
func releaseSchedule() *schedule.Schedule {
	return schedule.New("release", d0).MustAdd(
		&schedule.Task{ID: "X", Start: d0, End: at(1), NotBefore: at(4)},
		task("Y", 5),
	)
}

func TestRecover_RevisedStartMovesNotBefore(t *testing.T) {
	opts := DefaultOptions()

	t.Run("met", func(t *testing.T) {
		p, err := Recover(releaseSchedule(), Target{Start: at(1), End: at(7)}, opts)
		if err != nil {
			t.Fatalf("Recover() error = %v", err)
		}
		if !p.Met || !p.AchievedEnd.Equal(at(6)) {
			t.Errorf("Met = %v AchievedEnd = %s", p.Met, schedule.FormatDate(p.AchievedEnd))
		}
		x, _ := p.Task("X")
		if !x.RevisedStart.Equal(at(5)) || !x.RevisedEnd.Equal(at(6)) {
			t.Errorf("X revised = %s..%s, want 2025-04-12..2025-04-13",
				schedule.FormatDate(x.RevisedStart), schedule.FormatDate(x.RevisedEnd))
		}
		applied, _ := p.Apply().Task("X")
		if !applied.NotBefore.Equal(at(5)) {
			t.Errorf("applied X not before = %s, want %s", schedule.FormatDate(applied.NotBefore), schedule.FormatDate(at(5)))
		}
		assertOverlapBound(t, p, opts)
	})

	t.Run("infeasible", func(t *testing.T) {
		p, err := Recover(releaseSchedule(), Target{Start: at(1), End: at(5)}, opts)
		if !errors.Is(err, errors.ErrTargetInfeasible) {
			t.Fatalf("Recover() error = %v, want TargetInfeasible", err)
		}
		if p.Met || !p.AchievedEnd.Equal(at(6)) {
			t.Errorf("Met = %v AchievedEnd = %s, want the release to hold X to %s",
				p.Met, schedule.FormatDate(p.AchievedEnd), schedule.FormatDate(at(6)))
		}
		x, _ := p.Task("X")
		if !x.RevisedStart.Equal(at(5)) {
			t.Errorf("X revised start = %s, want %s", schedule.FormatDate(x.RevisedStart), schedule.FormatDate(at(5)))
		}
		assertOverlapBound(t, p, opts)
	})
}

func TestRecover_CrashOnly(t *testing.T) {
	p, err := Recover(diamond(), byDuration(8), DefaultOptions())
	if err != nil {
		t.Fatalf("Recover() error = %v", err)
	}
	if !p.Met || p.AchievedDuration != 8 || p.RequiredCompression != 1 {
		t.Fatalf("plan = met %v achieved %d required %d", p.Met, p.AchievedDuration, p.RequiredCompression)
	}

	a, _ := p.Task("A")
	if a.Strategy != Crashed || a.CrashedDays != 1 {
		t.Errorf("A = %+v, want crashed by 1", a)
	}
	if !a.RevisedEnd.Equal(at(3)) {
		t.Errorf("A revised end = %s, want %s", schedule.FormatDate(a.RevisedEnd), schedule.FormatDate(at(3)))
	}
	if !strings.Contains(a.Suggestion, "Crash A by 1 day(s), from 5 to 4 days") {
		t.Errorf("A suggestion = %q", a.Suggestion)
	}

	d, _ := p.Task("D")
	if d.Strategy != Unchanged || !d.RevisedStart.Equal(at(7)) {
		t.Errorf("D = %+v, want unchanged, moved to day 7", d)
	}
	if !strings.HasPrefix(d.Suggestion, "Reschedule D") {
		t.Errorf("D suggestion = %q", d.Suggestion)
	}
	assertOverlapBound(t, p, DefaultOptions())
}

func TestRecover_CrashThenFastTrack(t *testing.T) {
	opts := DefaultOptions()
	p, err := Recover(diamond(), byDuration(6), opts)
	if err != nil {
		t.Fatalf("Recover() error = %v", err)
	}
	if !p.Met || p.AchievedDuration != 6 {
		t.Fatalf("Met = %v achieved = %d", p.Met, p.AchievedDuration)
	}

	a, _ := p.Task("A")
	if a.CrashedDays != 1 {
		t.Errorf("A crashed %d days, want 1 (its 20%% bound)", a.CrashedDays)
	}
	b, _ := p.Task("B")
	if b.Strategy != FastTracked || b.LeadDays["A"] != 2 {
		t.Errorf("B = %+v, want fast-tracked 2 days against A", b)
	}
	if !strings.Contains(b.Suggestion, "Start B 2 day(s) before A finishes") {
		t.Errorf("B suggestion = %q", b.Suggestion)
	}
	if !p.AchievedEnd.Equal(at(5)) {
		t.Errorf("AchievedEnd = %s", schedule.FormatDate(p.AchievedEnd))
	}

	applied := p.Apply()
	ab, _ := applied.Task("B")
	if ab.Lead("A") != 2 {
		t.Errorf("applied B lead = %d, want 2", ab.Lead("A"))
	}
	assertOverlapBound(t, p, opts)
}

func TestRecover_Infeasible(t *testing.T) {
	opts := DefaultOptions()
	p, err := Recover(diamond(), byDuration(3), opts)
	if !errors.Is(err, errors.ErrTargetInfeasible) {
		t.Fatalf("Recover() error = %v, want TargetInfeasible", err)
	}
	if errors.IsFatal(err) {
		t.Error("infeasible targets are not fatal")
	}
	if p == nil {
		t.Fatal("best-effort plan must accompany TargetInfeasible")
	}
	if p.Met || p.AchievedDuration <= 3 || p.AchievedDuration >= 9 {
		t.Errorf("Met = %v achieved = %d, want a partial compression", p.Met, p.AchievedDuration)
	}

	var planErr *errors.PlanningError
	if !errors.As(err, &planErr) {
		t.Fatalf("error type = %T", err)
	}
	if !planErr.AchievedEnd.Equal(p.AchievedEnd) || !planErr.TargetEnd.Equal(at(2)) {
		t.Errorf("planning error dates = %v / %v", planErr.AchievedEnd, planErr.TargetEnd)
	}
	assertOverlapBound(t, p, opts)
}

func TestRecover_DoneTasksAreNotCompressed(t *testing.T) {
	s := diamond()
	a, _ := s.Task("A")
	a.Status = schedule.StatusDone

	p, err := Recover(s, byDuration(8), DefaultOptions())
	if err != nil {
		t.Fatalf("Recover() error = %v", err)
	}
	pa, _ := p.Task("A")
	if pa.CrashedDays != 0 || pa.Strategy != Unchanged {
		t.Errorf("done task A changed: %+v", pa)
	}
	pb, _ := p.Task("B")
	if len(pb.LeadDays) != 0 {
		t.Errorf("edge from done task A was fast-tracked: %+v", pb)
	}
	pd, _ := p.Task("D")
	if pd.Strategy != FastTracked || pd.LeadDays["B"] != 1 {
		t.Errorf("D = %+v, want fast-tracked against B", pd)
	}
	assertOverlapBound(t, p, DefaultOptions())
}

func TestRecover_Resequencing(t *testing.T) {
	s := schedule.New("crew", d0).MustAdd(
		&schedule.Task{ID: "A", Start: d0, End: at(4), Assignees: []string{"crew"}},
		task("B", 3, "A"),
		&schedule.Task{ID: "X", Start: d0, End: at(1), Assignees: []string{"crew"}},
	)

	p, err := Recover(s, byDuration(7), DefaultOptions())
	if err != nil {
		t.Fatalf("Recover() error = %v", err)
	}

	x, _ := p.Task("X")
	if x.Strategy != Resequenced || x.ShiftDays != 4 {
		t.Fatalf("X = %+v, want re-sequenced by 4 days", x)
	}
	if !x.RevisedStart.Equal(at(4)) {
		t.Errorf("X revised start = %s, want %s", schedule.FormatDate(x.RevisedStart), schedule.FormatDate(at(4)))
	}
	if !strings.Contains(x.Suggestion, "conflict with A") {
		t.Errorf("X suggestion = %q", x.Suggestion)
	}
	if p.AchievedDuration != 7 {
		t.Errorf("re-sequencing changed the project length to %d", p.AchievedDuration)
	}

	// the shift survives Apply as a not-before constraint
	res, err := cpm.Analyze(p.Apply())
	if err != nil {
		t.Fatal(err)
	}
	if xt, _ := res.Task("X"); xt.EarlyStart != 4 {
		t.Errorf("applied X early start = %d, want 4", xt.EarlyStart)
	}
	assertOverlapBound(t, p, DefaultOptions())
}

func TestRecover_ResequencesWithoutCompression(t *testing.T) {
	s := schedule.New("crew", d0).MustAdd(
		&schedule.Task{ID: "A", Start: d0, End: at(4), Assignees: []string{"crew"}},
		task("B", 3, "A"),
		&schedule.Task{ID: "X", Start: d0, End: at(1), Assignees: []string{"crew"}},
	)

	p, err := Recover(s, byDuration(10), DefaultOptions())
	if err != nil {
		t.Fatalf("Recover() error = %v", err)
	}
	if p.RequiredCompression != 0 || p.AchievedDuration != 8 {
		t.Errorf("RequiredCompression = %d AchievedDuration = %d", p.RequiredCompression, p.AchievedDuration)
	}
	x, _ := p.Task("X")
	if x.Strategy != Resequenced {
		t.Errorf("X = %+v, want the assignee conflict cleared", x)
	}
	assertOverlapBound(t, p, DefaultOptions())
}

func TestRecover_RevisedStart(t *testing.T) {
	p, err := Recover(diamond(), Target{Start: at(2)}, DefaultOptions())
	if err != nil {
		t.Fatalf("Recover() error = %v", err)
	}
	if !p.ProjectStart.Equal(at(2)) || !p.TargetEnd.Equal(at(8)) {
		t.Errorf("start/target = %s/%s", schedule.FormatDate(p.ProjectStart), schedule.FormatDate(p.TargetEnd))
	}
	if p.TargetDuration != 7 || !p.Met {
		t.Errorf("TargetDuration = %d Met = %v", p.TargetDuration, p.Met)
	}
	a, _ := p.Task("A")
	if !a.RevisedStart.Equal(at(2)) {
		t.Errorf("A revised start = %s, want the new project start", schedule.FormatDate(a.RevisedStart))
	}
	assertOverlapBound(t, p, DefaultOptions())
}

func TestRecover_DoesNotMutateInput(t *testing.T) {
	s := diamond()
	if _, err := Recover(s, byDuration(6), DefaultOptions()); err != nil {
		t.Fatal(err)
	}
	a, _ := s.Task("A")
	b, _ := s.Task("B")
	if a.Duration() != 5 || b.Leads != nil {
		t.Errorf("input schedule changed: A=%d days, B leads=%v", a.Duration(), b.Leads)
	}
}

func TestRecover_Errors(t *testing.T) {
	t.Run("cycle", func(t *testing.T) {
		s := schedule.New("c", d0).MustAdd(task("A", 1, "B"), task("B", 1, "A"))
		p, err := Recover(s, byDuration(1), DefaultOptions())
		if p != nil || !errors.Is(err, errors.ErrCyclicDependency) {
			t.Errorf("Recover() = %v, %v; want CyclicDependency", p, err)
		}
	})

	t.Run("no target", func(t *testing.T) {
		_, err := Recover(diamond(), Target{}, DefaultOptions())
		if errors.KindOf(err) != errors.KindInvalidField {
			t.Errorf("Recover() error = %v, want InvalidField", err)
		}
	})

	t.Run("target before start", func(t *testing.T) {
		_, err := Recover(diamond(), Target{End: at(-3)}, DefaultOptions())
		if !errors.Is(err, errors.ErrInvalidDateRange) {
			t.Errorf("Recover() error = %v, want InvalidDateRange", err)
		}
	})

	t.Run("empty", func(t *testing.T) {
		_, err := Recover(schedule.New("e", d0), byDuration(3), DefaultOptions())
		if !errors.Is(err, errors.ErrEmptySchedule) {
			t.Errorf("Recover() error = %v, want EmptySchedule", err)
		}
	})
}

func TestRecover_Deterministic(t *testing.T) {
	p1, _ := Recover(diamond(), byDuration(6), DefaultOptions())
	p2, _ := Recover(diamond(), byDuration(6), DefaultOptions())
	for i := range p1.Tasks {
		a, b := p1.Tasks[i], p2.Tasks[i]
		if a.ID != b.ID || !a.RevisedStart.Equal(b.RevisedStart) || a.Suggestion != b.Suggestion {
			t.Errorf("run differs on %s", a.ID)
		}
	}
}
