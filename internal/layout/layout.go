// Package layout computes Gantt chart geometry for a schedule: one bar per
// task, a cubic Bézier curve per dependency, and highlight sets for hover
// interaction. The output is plain numbers; drawing is left to a renderer.
package layout

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"time"

	"github.com/Iron-Ham/gantry/internal/cpm"
	"github.com/Iron-Ham/gantry/internal/errors"
	"github.com/Iron-Ham/gantry/internal/graph"
	"github.com/Iron-Ham/gantry/internal/schedule"
)

// Options controls the chart geometry, in pixels.
type Options struct {
	DayWidth      float64
	RowHeight     float64
	BarHeight     float64
	Padding       float64
	MinLinkOffset float64
}

// DefaultOptions returns the geometry used when nothing is configured.
func DefaultOptions() Options {
	return Options{
		DayWidth:      24,
		RowHeight:     28,
		BarHeight:     18,
		Padding:       8,
		MinLinkOffset: 40,
	}
}

// Point is a position on the canvas.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Row is the bar of one task.
type Row struct {
	TaskID string `json:"task_id"`
	Name   string `json:"name,omitempty"`
	Index  int    `json:"row"`

	X      float64 `json:"x"`
	Width  float64 `json:"width"`
	Y      float64 `json:"y"`
	Height float64 `json:"height"`

	// StartDay and Days are the bar position in calendar days.
	StartDay int `json:"start_day"`
	Days     int `json:"days"`

	Critical   bool    `json:"critical"`
	FloatWidth float64 `json:"float_width"`
	Progress   int     `json:"progress"`
}

// Right returns the x coordinate of the bar's right edge.
func (r Row) Right() float64 { return r.X + r.Width }

// MidY returns the vertical centre of the bar.
func (r Row) MidY() float64 { return r.Y + r.Height/2 }

// Link is the curve of one dependency, from the predecessor's right edge to
// the successor's left edge. PathPoints holds the start point, both control
// points and the end point.
type Link struct {
	FromID     string  `json:"from_id"`
	ToID       string  `json:"to_id"`
	PathPoints []Point `json:"path_points"`
	Path       string  `json:"path"`
	Critical   bool    `json:"critical"`
}

// Layout is the geometry of a whole chart.
type Layout struct {
	ProjectStart time.Time `json:"project_start"`
	Days         int       `json:"days"`
	Width        float64   `json:"width"`
	Height       float64   `json:"height"`
	Rows         []Row     `json:"rows"`
	Links        []Link    `json:"links"`

	opts  Options
	g     *graph.Graph
	index map[string]int
}

// Compute lays out s using the timings in res. Rows are ordered by start
// date with ties broken by id; each bar sits at its task's entered start
// date offset from the project start, so the chart shows the schedule as
// entered even where it disagrees with the CPM early start. Duration,
// float and criticality come from res. A successor entered earlier than its
// predecessor's end gets a link with a negative gap, which still bends by
// at least MinLinkOffset. Links are ordered by (from, to).
func Compute(s *schedule.Schedule, res *cpm.Result, opts Options) (*Layout, error) {
	g, err := graph.Build(s)
	if err != nil {
		return nil, err
	}

	tasks := s.Tasks()
	sort.SliceStable(tasks, func(i, j int) bool {
		if !tasks[i].Start.Equal(tasks[j].Start) {
			return tasks[i].Start.Before(tasks[j].Start)
		}
		return tasks[i].ID < tasks[j].ID
	})

	l := &Layout{
		ProjectStart: res.ProjectStart,
		Days:         res.ProjectDuration,
		Rows:         make([]Row, 0, len(tasks)),
		Links:        []Link{},
		opts:         opts,
		g:            g,
		index:        make(map[string]int, len(tasks)),
	}

	for i, t := range tasks {
		tt, _ := res.Task(t.ID)
		offset := schedule.DaysBetween(res.ProjectStart, t.Start)
		row := Row{
			TaskID:     t.ID,
			Name:       t.Name,
			Index:      i,
			X:          float64(offset) * opts.DayWidth,
			Width:      float64(tt.Duration) * opts.DayWidth,
			Y:          float64(i)*opts.RowHeight + opts.Padding,
			Height:     opts.BarHeight,
			StartDay:   offset,
			Days:       tt.Duration,
			Critical:   tt.IsCritical,
			FloatWidth: float64(tt.Float) * opts.DayWidth,
			Progress:   t.Progress,
		}
		l.Rows = append(l.Rows, row)
		l.index[t.ID] = i
		l.Days = max(l.Days, offset+tt.Duration)
	}

	for _, e := range g.Edges() {
		from, to := l.Rows[l.index[e.From]], l.Rows[l.index[e.To]]
		l.Links = append(l.Links, link(from, to, opts.MinLinkOffset))
	}

	l.Width = float64(l.Days) * opts.DayWidth
	l.Height = float64(len(l.Rows))*opts.RowHeight + 2*opts.Padding
	return l, nil
}

// link builds the curve between two bars. The horizontal control offset is
// half the gap between them, but never less than minOffset so that curves
// between touching bars still bend clear of the bars.
func link(from, to Row, minOffset float64) Link {
	p0 := Point{X: from.Right(), Y: from.MidY()}
	p3 := Point{X: to.X, Y: to.MidY()}
	off := math.Max(minOffset, math.Abs(p3.X-p0.X)/2)
	p1 := Point{X: p0.X + off, Y: p0.Y}
	p2 := Point{X: p3.X - off, Y: p3.Y}

	return Link{
		FromID:     from.TaskID,
		ToID:       to.TaskID,
		PathPoints: []Point{p0, p1, p2, p3},
		Path: fmt.Sprintf("M %s %s C %s %s, %s %s, %s %s",
			num(p0.X), num(p0.Y), num(p1.X), num(p1.Y), num(p2.X), num(p2.Y), num(p3.X), num(p3.Y)),
		Critical: from.Critical && to.Critical,
	}
}

func num(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// Row returns the bar of id.
func (l *Layout) Row(id string) (Row, bool) {
	i, ok := l.index[id]
	if !ok {
		return Row{}, false
	}
	return l.Rows[i], true
}

// Options returns the geometry the layout was computed with.
func (l *Layout) Options() Options {
	return l.opts
}

// DayX returns the x coordinate of the start of a calendar date.
func (l *Layout) DayX(date time.Time) float64 {
	return float64(schedule.DaysBetween(l.ProjectStart, date)) * l.opts.DayWidth
}

// TodayX returns the x coordinate of the today marker and whether today
// falls inside the charted range.
func (l *Layout) TodayX(today time.Time) (float64, bool) {
	d := schedule.DaysBetween(l.ProjectStart, today)
	return l.DayX(today), d >= 0 && d < l.Days
}

// Highlight is the set of tasks related to a hovered task.
type Highlight struct {
	TaskID string `json:"task_id"`
	// Active holds the task and all its transitive predecessors and successors.
	Active []string `json:"active"`
	// Dimmed holds every other task.
	Dimmed []string `json:"dimmed"`

	set map[string]bool
}

// Contains reports whether id is highlighted.
func (h Highlight) Contains(id string) bool {
	return h.set[id]
}

// Highlight returns the highlight set for id. Both lists are sorted by id.
func (l *Layout) Highlight(id string) (Highlight, error) {
	if !l.g.Has(id) {
		return Highlight{}, errors.NewNotFoundError("task", id)
	}

	h := Highlight{TaskID: id, Active: []string{}, Dimmed: []string{}, set: map[string]bool{id: true}}
	for _, a := range l.g.Ancestors(id) {
		h.set[a] = true
	}
	for _, d := range l.g.Descendants(id) {
		h.set[d] = true
	}
	for _, other := range l.g.IDs() {
		if h.set[other] {
			h.Active = append(h.Active, other)
		} else {
			h.Dimmed = append(h.Dimmed, other)
		}
	}
	return h, nil
}
