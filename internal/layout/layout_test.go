package layout

import (
	"slices"
	"testing"
	"time"

	"github.com/Iron-Ham/gantry/internal/cpm"
	"github.com/Iron-Ham/gantry/internal/errors"
	"github.com/Iron-Ham/gantry/internal/schedule"
)

var d0 = time.Date(2025, 4, 7, 0, 0, 0, 0, time.UTC)

func at(n int) time.Time { return schedule.AddDays(d0, n) }

func task(id string, start, days int, deps ...string) *schedule.Task {
	return &schedule.Task{ID: id, Start: at(start), End: at(start + days - 1), Dependencies: deps}
}

func compute(t *testing.T, tasks ...*schedule.Task) *Layout {
	t.Helper()
	s := schedule.New("layout", d0).MustAdd(tasks...)
	res, err := cpm.Analyze(s)
	if err != nil {
		t.Fatalf("Analyze() error = %v", err)
	}
	l, err := Compute(s, res, DefaultOptions())
	if err != nil {
		t.Fatalf("Compute() error = %v", err)
	}
	return l
}

func diamond(t *testing.T) *Layout {
	return compute(t,
		task("D", 8, 1, "B", "C"),
		task("C", 5, 2, "A"),
		task("B", 5, 3, "A"),
		task("A", 0, 5),
	)
}

func TestCompute_Rows(t *testing.T) {
	l := diamond(t)

	tests := []struct {
		id                  string
		index               int
		x, width, y, floatW float64
		critical            bool
	}{
		{"A", 0, 0, 120, 8, 0, true},
		{"B", 1, 120, 72, 36, 0, true},
		{"C", 2, 120, 48, 64, 24, false},
		{"D", 3, 192, 24, 92, 0, true},
	}
	for _, tt := range tests {
		r, ok := l.Row(tt.id)
		if !ok {
			t.Fatalf("row %s missing", tt.id)
		}
		if r.Index != tt.index || r.X != tt.x || r.Width != tt.width || r.Y != tt.y {
			t.Errorf("%s: row/x/width/y = %d/%v/%v/%v, want %d/%v/%v/%v",
				tt.id, r.Index, r.X, r.Width, r.Y, tt.index, tt.x, tt.width, tt.y)
		}
		if r.FloatWidth != tt.floatW || r.Critical != tt.critical {
			t.Errorf("%s: float width %v critical %v", tt.id, r.FloatWidth, r.Critical)
		}
		if r.Height != 18 {
			t.Errorf("%s: Height = %v", tt.id, r.Height)
		}
	}

	if l.Width != 216 || l.Height != 128 || l.Days != 9 {
		t.Errorf("canvas = %vx%v over %d days, want 216x128 over 9", l.Width, l.Height, l.Days)
	}
}

func TestCompute_RowOrderTieBreak(t *testing.T) {
	l := compute(t, task("zeta", 0, 2), task("alpha", 0, 2), task("mid", 1, 1))
	var got []string
	for _, r := range l.Rows {
		got = append(got, r.TaskID)
	}
	if !slices.Equal(got, []string{"alpha", "zeta", "mid"}) {
		t.Errorf("row order = %v", got)
	}
}

func TestCompute_Links(t *testing.T) {
	l := diamond(t)

	var pairs []string
	for _, lk := range l.Links {
		pairs = append(pairs, lk.FromID+">"+lk.ToID)
	}
	if !slices.Equal(pairs, []string{"A>B", "A>C", "B>D", "C>D"}) {
		t.Fatalf("links = %v", pairs)
	}

	ab := l.Links[0]
	want := []Point{{120, 17}, {160, 17}, {80, 45}, {120, 45}}
	if !slices.Equal(ab.PathPoints, want) {
		t.Errorf("A>B points = %v, want %v", ab.PathPoints, want)
	}
	if ab.Path != "M 120 17 C 160 17, 80 45, 120 45" {
		t.Errorf("A>B path = %q", ab.Path)
	}
	if !ab.Critical || l.Links[1].Critical {
		t.Errorf("critical flags = %v/%v, want A>B critical and A>C not", ab.Critical, l.Links[1].Critical)
	}
}

func TestCompute_LinkOffsetGrowsWithGap(t *testing.T) {
	l := compute(t, task("A", 0, 5), task("E", 20, 1, "A"))
	lk := l.Links[0]
	p0, p1 := lk.PathPoints[0], lk.PathPoints[1]
	// gap 480-120 = 360, offset 180
	if p1.X-p0.X != 180 {
		t.Errorf("control offset = %v, want 180", p1.X-p0.X)
	}
}

func TestCompute_EnteredStartBeforeDependency(t *testing.T) {
	// B is entered on day 2 although A runs until day 4
	l := compute(t, task("A", 0, 5), task("B", 2, 3, "A"))

	b, _ := l.Row("B")
	if b.X != 48 || b.StartDay != 2 {
		t.Errorf("B x/start day = %v/%d, want the entered 48/2", b.X, b.StartDay)
	}

	pts := l.Links[0].PathPoints
	want := []Point{{120, 17}, {160, 17}, {8, 45}, {48, 45}}
	if !slices.Equal(pts, want) {
		t.Errorf("A>B points = %v, want %v", pts, want)
	}
}

func TestHighlight(t *testing.T) {
	l := diamond(t)

	h, err := l.Highlight("C")
	if err != nil {
		t.Fatalf("Highlight() error = %v", err)
	}
	if !slices.Equal(h.Active, []string{"A", "C", "D"}) || !slices.Equal(h.Dimmed, []string{"B"}) {
		t.Errorf("active %v dimmed %v", h.Active, h.Dimmed)
	}
	if !h.Contains("A") || h.Contains("B") {
		t.Error("Contains disagrees with Active")
	}

	root, _ := l.Highlight("A")
	if len(root.Dimmed) != 0 {
		t.Errorf("every task descends from A, dimmed = %v", root.Dimmed)
	}

	if _, err := l.Highlight("nope"); !errors.Is(err, errors.ErrTaskNotFound) {
		t.Errorf("Highlight(nope) error = %v, want not found", err)
	}
}

func TestTodayX(t *testing.T) {
	l := diamond(t)
	tests := []struct {
		day     int
		x       float64
		visible bool
	}{
		{0, 0, true},
		{3, 72, true},
		{8, 192, true},
		{9, 216, false},
		{-1, -24, false},
	}
	for _, tt := range tests {
		x, ok := l.TodayX(at(tt.day))
		if x != tt.x || ok != tt.visible {
			t.Errorf("TodayX(day %d) = %v/%v, want %v/%v", tt.day, x, ok, tt.x, tt.visible)
		}
	}
}

func TestCompute_InvalidSchedule(t *testing.T) {
	s := schedule.New("bad", d0).MustAdd(task("A", 0, 1, "ghost"))
	if _, err := Compute(s, &cpm.Result{}, DefaultOptions()); !errors.Is(err, errors.ErrDanglingDependencyReference) {
		t.Errorf("Compute() error = %v, want DanglingDependencyReference", err)
	}
}
