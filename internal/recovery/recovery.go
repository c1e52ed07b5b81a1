// Package recovery plans schedule compression: given a target end date (or a
// revised project start) it crashes, fast-tracks and re-sequences tasks until
// the critical path fits, recomputing CPM after every single-day change.
package recovery

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/Iron-Ham/gantry/internal/cpm"
	"github.com/Iron-Ham/gantry/internal/errors"
	"github.com/Iron-Ham/gantry/internal/graph"
	"github.com/Iron-Ham/gantry/internal/schedule"
)

// Strategy names the change applied to a task.
type Strategy string

const (
	Unchanged   Strategy = "unchanged"
	Crashed     Strategy = "crashed"
	FastTracked Strategy = "fast-tracked"
	Resequenced Strategy = "re-sequenced"
)

// Target is the goal of a recovery. At least one field must be set. When
// only Start is set, the goal is to keep the current end date despite the
// later start.
type Target struct {
	End   time.Time
	Start time.Time
}

// Options bounds the compression strategies.
type Options struct {
	// CrashFraction is the largest share of a task's original duration crashing may remove.
	CrashFraction float64
	// MaxOverlapFraction is the largest share of a predecessor's duration a successor may overlap.
	MaxOverlapFraction float64
}

// DefaultOptions returns 20% crashing and 50% overlap.
func DefaultOptions() Options {
	return Options{CrashFraction: 0.2, MaxOverlapFraction: 0.5}
}

// MaxOverlap returns the largest lead a successor may take against a
// predecessor of the given duration.
func (o Options) MaxOverlap(duration int) int {
	return int(math.Floor(float64(duration) * o.MaxOverlapFraction))
}

// MinDuration returns the shortest a task of the given original duration may be crashed to.
func (o Options) MinDuration(original int) int {
	return max(1, original-int(math.Floor(float64(original)*o.CrashFraction)))
}

// TaskPlan is the revised schedule of one task.
type TaskPlan struct {
	ID            string         `json:"id"`
	Name          string         `json:"name,omitempty"`
	OriginalStart time.Time      `json:"original_start"`
	OriginalEnd   time.Time      `json:"original_end"`
	RevisedStart  time.Time      `json:"revised_start"`
	RevisedEnd    time.Time      `json:"revised_end"`
	Strategy      Strategy       `json:"strategy"`
	Strategies    []Strategy     `json:"strategies,omitempty"`
	CrashedDays   int            `json:"crashed_days,omitempty"`
	LeadDays      map[string]int `json:"lead_days,omitempty"`
	ShiftDays     int            `json:"shift_days,omitempty"`
	Suggestion    string         `json:"suggestion"`
}

// Plan is the result of a recovery. Tasks are ordered by id.
type Plan struct {
	ProjectStart        time.Time  `json:"project_start"`
	OriginalEnd         time.Time  `json:"original_end"`
	TargetEnd           time.Time  `json:"target_end"`
	AchievedEnd         time.Time  `json:"achieved_end"`
	OriginalDuration    int        `json:"original_duration"`
	TargetDuration      int        `json:"target_duration"`
	AchievedDuration    int        `json:"achieved_duration"`
	RequiredCompression int        `json:"required_compression"`
	Met                 bool       `json:"met"`
	Iterations          int        `json:"iterations"`
	Tasks               []TaskPlan `json:"tasks"`

	revised *schedule.Schedule
}

// Task returns the plan entry for id.
func (p *Plan) Task(id string) (TaskPlan, bool) {
	i := sort.Search(len(p.Tasks), func(i int) bool { return p.Tasks[i].ID >= id })
	if i < len(p.Tasks) && p.Tasks[i].ID == id {
		return p.Tasks[i], true
	}
	return TaskPlan{}, false
}

// Changed returns the entries whose strategy is not Unchanged.
func (p *Plan) Changed() []TaskPlan {
	var out []TaskPlan
	for _, t := range p.Tasks {
		if t.Strategy != Unchanged {
			out = append(out, t)
		}
	}
	return out
}

// Apply returns a new schedule carrying the revised dates and leads. The
// schedule the plan was computed from is not modified.
func (p *Plan) Apply() *schedule.Schedule {
	return p.revised.Clone()
}

// working is the mutable state of one recovery run.
type working struct {
	opts     Options
	sched    *schedule.Schedule
	original map[string]int
	crashed  map[string]int
	leads    map[string]map[string]int // successor -> predecessor -> added lead
	shifts   map[string]int
	partner  map[string]string // re-sequenced task -> task it was moved behind
	g        *graph.Graph
	res      *cpm.Result
	steps    int
}

func (w *working) recompute() error {
	g, err := graph.Build(w.sched)
	if err != nil {
		return err
	}
	res, err := cpm.AnalyzeGraph(g)
	if err != nil {
		return err
	}
	w.g, w.res = g, res
	w.steps++
	return nil
}

// Recover plans a compression of s towards target.
//
// A revised start moves the project start, and every NotBefore date moves
// with it. Strategies run in order and each changes one task or edge by one
// day before CPM is recomputed: crashing critical tasks that are not done,
// then fast-tracking driving critical edges, stopping as soon as the target
// is met. Re-sequencing then clears assignee collisions among non-critical
// tasks within their float without moving the project end; it runs even
// when no compression was needed. Revised dates are always the CPM
// positions of the adjusted schedule.
//
// When the target cannot be met the best-effort plan is returned together
// with a *errors.PlanningError of kind TargetInfeasible. Validation errors
// from the schedule are returned without a plan.
func Recover(s *schedule.Schedule, target Target, opts Options) (*Plan, error) {
	base, err := cpm.Analyze(s)
	if err != nil {
		return nil, err
	}
	if target.End.IsZero() && target.Start.IsZero() {
		return nil, errors.NewValidationError(errors.KindInvalidField, "recovery needs a target end date or a revised start date").
			WithField("target")
	}

	origStart := base.ProjectStart
	newStart := origStart
	if !target.Start.IsZero() {
		newStart = schedule.Date(target.Start)
	}
	targetEnd := base.ProjectEnd
	if !target.End.IsZero() {
		targetEnd = schedule.Date(target.End)
	}
	targetDuration := schedule.DaysBetween(newStart, targetEnd) + 1
	if targetDuration < 1 {
		return nil, errors.NewValidationError(errors.KindInvalidDateRange, "target end precedes the project start").
			WithField("target")
	}

	w := &working{
		opts:     opts,
		sched:    s.Clone(),
		original: make(map[string]int, s.Len()),
		crashed:  make(map[string]int),
		leads:    make(map[string]map[string]int),
		shifts:   make(map[string]int),
		partner:  make(map[string]string),
	}
	w.sched.Start = newStart
	if delta := schedule.DaysBetween(origStart, newStart); delta != 0 {
		for _, t := range w.sched.Tasks() {
			if !t.NotBefore.IsZero() {
				t.NotBefore = schedule.AddDays(t.NotBefore, delta)
			}
		}
	}
	for _, t := range base.Tasks {
		w.original[t.ID] = t.Duration
	}
	if err := w.recompute(); err != nil {
		return nil, err
	}

	plan := &Plan{
		ProjectStart:        newStart,
		OriginalEnd:         base.ProjectEnd,
		TargetEnd:           targetEnd,
		OriginalDuration:    base.ProjectDuration,
		TargetDuration:      targetDuration,
		RequiredCompression: max(0, w.res.ProjectDuration-targetDuration),
	}

	for w.res.ProjectDuration > targetDuration {
		id := w.pickCrash()
		if id == "" {
			break
		}
		w.shorten(id)
		if err := w.recompute(); err != nil {
			return nil, err
		}
	}

	for w.res.ProjectDuration > targetDuration {
		edge, ok := w.pickFastTrack()
		if !ok {
			break
		}
		w.addLead(edge)
		if err := w.recompute(); err != nil {
			return nil, err
		}
	}

	w.resequence()

	plan.AchievedDuration = w.res.ProjectDuration
	plan.AchievedEnd = schedule.AddDays(newStart, w.res.ProjectDuration-1)
	plan.Met = plan.AchievedDuration <= targetDuration
	plan.Iterations = w.steps
	plan.Tasks, plan.revised = w.buildPlan(s)

	if !plan.Met {
		return plan, errors.NewTargetInfeasibleError(plan.AchievedEnd, targetEnd)
	}
	return plan, nil
}

// pickCrash returns the critical, not-done task with the most remaining
// compressible days, ties broken by id. Empty when nothing can be crashed.
func (w *working) pickCrash() string {
	best, bestDays := "", 0
	for _, t := range w.res.Tasks {
		if !t.IsCritical {
			continue
		}
		task, _ := w.sched.Task(t.ID)
		if task.Status == schedule.StatusDone {
			continue
		}
		if days := t.Duration - w.opts.MinDuration(w.original[t.ID]); days > bestDays {
			best, bestDays = t.ID, days
		}
	}
	return best
}

func (w *working) shorten(id string) {
	t, _ := w.sched.Task(id)
	if t.End.IsZero() {
		t.DurationDays--
	} else {
		t.End = schedule.AddDays(t.End, -1)
	}
	w.crashed[id]++
}

// pickFastTrack returns the driving critical edge with the most remaining
// overlap capacity, ties broken by (From, To). Edges touching a done task
// are skipped.
func (w *working) pickFastTrack() (graph.Edge, bool) {
	var best graph.Edge
	bestCap := 0
	for _, e := range w.g.Edges() {
		if !w.res.IsCritical(e.From) || !w.res.IsCritical(e.To) || !w.res.Driving(w.g, e.From, e.To) {
			continue
		}
		from, _ := w.sched.Task(e.From)
		to, _ := w.sched.Task(e.To)
		if from.Status == schedule.StatusDone || to.Status == schedule.StatusDone {
			continue
		}
		capacity := w.opts.MaxOverlap(w.g.Duration(e.From)) - w.g.Lead(e.From, e.To)
		if capacity > bestCap {
			best, bestCap = e, capacity
		}
	}
	return best, bestCap > 0
}

func (w *working) addLead(e graph.Edge) {
	t, _ := w.sched.Task(e.To)
	if t.Leads == nil {
		t.Leads = make(map[string]int)
	}
	t.Leads[e.From]++
	if w.leads[e.To] == nil {
		w.leads[e.To] = make(map[string]int)
	}
	w.leads[e.To][e.From]++
}

// position returns the current start and end offsets of id.
func (w *working) position(id string) (int, int) {
	t, _ := w.res.Task(id)
	start := t.EarlyStart + w.shifts[id]
	return start, start + t.Duration - 1
}

// room is how many days id can move later without touching any successor
// or the project end.
func (w *working) room(id string) int {
	_, end := w.position(id)
	limit := w.res.ProjectDuration - 1
	for _, s := range w.g.Succ(id) {
		sStart, _ := w.position(s)
		limit = min(limit, sStart-1+w.g.Lead(id, s))
	}
	return limit - end
}

// moveAfter pushes x to start the day after y ends, if x is a non-critical
// task that has not started and the move fits its float.
func (w *working) moveAfter(x, y string) bool {
	tx, _ := w.res.Task(x)
	task, _ := w.sched.Task(x)
	if tx.IsCritical || task.Status != schedule.StatusToDo {
		return false
	}
	xs, _ := w.position(x)
	_, ye := w.position(y)
	need := ye + 1 - xs
	if need <= 0 || need > w.room(x) || xs+need > tx.LateStart {
		return false
	}
	w.shifts[x] += need
	w.partner[x] = y
	return true
}

// resequence clears date collisions between tasks sharing an assignee by
// moving the later-starting task (or else the earlier one) within its float.
func (w *working) resequence() {
	ids := w.g.IDs()
	limit := len(ids) * len(ids)
	for pass := 0; pass < limit; pass++ {
		sort.SliceStable(ids, func(i, j int) bool {
			si, _ := w.position(ids[i])
			sj, _ := w.position(ids[j])
			if si != sj {
				return si < sj
			}
			return ids[i] < ids[j]
		})

		changed := false
		for i := 0; i < len(ids) && !changed; i++ {
			a, _ := w.sched.Task(ids[i])
			for j := i + 1; j < len(ids); j++ {
				b, _ := w.sched.Task(ids[j])
				if !a.SharesAssignee(b) || !w.overlaps(a.ID, b.ID) {
					continue
				}
				if w.moveAfter(b.ID, a.ID) || w.moveAfter(a.ID, b.ID) {
					changed = true
					break
				}
			}
		}
		if !changed {
			return
		}
	}
}

func (w *working) overlaps(a, b string) bool {
	as, ae := w.position(a)
	bs, be := w.position(b)
	return as <= be && bs <= ae
}

func (w *working) buildPlan(s *schedule.Schedule) ([]TaskPlan, *schedule.Schedule) {
	revised := w.sched.Clone()
	start := w.sched.Start

	var tasks []TaskPlan
	for _, orig := range s.Tasks() {
		id := orig.ID
		first, last := w.position(id)
		tp := TaskPlan{
			ID:            id,
			Name:          orig.Name,
			OriginalStart: orig.Start,
			OriginalEnd:   orig.Finish(),
			RevisedStart:  schedule.AddDays(start, first),
			RevisedEnd:    schedule.AddDays(start, last),
			CrashedDays:   w.crashed[id],
			ShiftDays:     w.shifts[id],
		}
		if len(w.leads[id]) > 0 {
			tp.LeadDays = w.leads[id]
		}
		if tp.CrashedDays > 0 {
			tp.Strategies = append(tp.Strategies, Crashed)
		}
		if len(tp.LeadDays) > 0 {
			tp.Strategies = append(tp.Strategies, FastTracked)
		}
		if tp.ShiftDays > 0 {
			tp.Strategies = append(tp.Strategies, Resequenced)
		}
		tp.Strategy = Unchanged
		if len(tp.Strategies) > 0 {
			tp.Strategy = tp.Strategies[0]
		}
		tp.Suggestion = suggest(tp, w)
		tasks = append(tasks, tp)

		rt, _ := revised.Task(id)
		rt.Start, rt.End, rt.DurationDays = tp.RevisedStart, tp.RevisedEnd, 0
		if tp.ShiftDays > 0 {
			rt.NotBefore = tp.RevisedStart
		}
	}
	return tasks, revised
}

// suggest renders a one-line recommendation from the plan entry.
func suggest(tp TaskPlan, w *working) string {
	var parts []string
	if tp.CrashedDays > 0 {
		orig := w.original[tp.ID]
		parts = append(parts, fmt.Sprintf("Crash %s by %d day(s), from %d to %d days",
			tp.ID, tp.CrashedDays, orig, orig-tp.CrashedDays))
	}
	for _, pred := range sortedKeys(tp.LeadDays) {
		parts = append(parts, fmt.Sprintf("Start %s %d day(s) before %s finishes",
			tp.ID, tp.LeadDays[pred], pred))
	}
	if tp.ShiftDays > 0 {
		parts = append(parts, fmt.Sprintf("Delay %s by %d day(s) to clear an assignee conflict with %s",
			tp.ID, tp.ShiftDays, w.partner[tp.ID]))
	}
	if len(parts) == 0 {
		if tp.RevisedStart.Equal(tp.OriginalStart) && tp.RevisedEnd.Equal(tp.OriginalEnd) {
			return "No change"
		}
		return fmt.Sprintf("Reschedule %s to %s..%s", tp.ID,
			schedule.FormatDate(tp.RevisedStart), schedule.FormatDate(tp.RevisedEnd))
	}
	return strings.Join(parts, "; ")
}

func sortedKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
