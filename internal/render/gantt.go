package render

import (
	"strings"
	"time"

	"github.com/mattn/go-runewidth"

	"github.com/Iron-Ham/gantry/internal/layout"
	"github.com/Iron-Ham/gantry/internal/schedule"
)

// Glyphs drawn in the terminal chart.
const (
	GlyphCritical = '█'
	GlyphTask     = '▓'
	GlyphDone     = '▒'
	GlyphFloat    = '·'
	GlyphToday    = '│'
	GlyphSelected = '▸'
)

const (
	defaultGanttWidth = 100
	defaultLabelWidth = 20
	minChartCells     = 10
	axisStepDays      = 7
)

// GanttOptions controls the terminal chart.
type GanttOptions struct {
	// Width is the total line width in cells. Zero uses 100.
	Width int
	// LabelWidth is the width of the task name column. Zero uses 20.
	LabelWidth int
	// Today draws a marker column when it falls inside the project.
	Today time.Time
	// Selected marks one row.
	Selected string
	// Highlight dims every row outside its set.
	Highlight *layout.Highlight
	// Legend appends a glyph legend.
	Legend bool
}

type cellKind int

const (
	cellEmpty cellKind = iota
	cellCritical
	cellTask
	cellDone
	cellFloat
	cellToday
)

// Gantt draws l as a text chart, one line per row below a date axis. When
// the project is longer than the chart area each cell covers several days.
func Gantt(l *layout.Layout, st Styles, opts GanttOptions) string {
	if opts.Width <= 0 {
		opts.Width = defaultGanttWidth
	}
	if opts.LabelWidth <= 0 {
		opts.LabelWidth = defaultLabelWidth
	}
	cells := max(opts.Width-opts.LabelWidth-3, minChartCells)
	perCell := 1
	if l.Days > cells {
		perCell = (l.Days + cells - 1) / cells
	}
	cells = (l.Days + perCell - 1) / perCell

	todayCell := -1
	if !opts.Today.IsZero() {
		if d := schedule.DaysBetween(l.ProjectStart, opts.Today); d >= 0 && d < l.Days {
			todayCell = d / perCell
		}
	}

	var b strings.Builder
	b.WriteString(strings.Repeat(" ", opts.LabelWidth+3))
	b.WriteString(st.Header.Render(axis(l.ProjectStart, cells, perCell)))
	b.WriteByte('\n')

	dayWidth := l.Options().DayWidth
	for _, r := range l.Rows {
		dimmed := opts.Highlight != nil && !opts.Highlight.Contains(r.TaskID)
		selected := opts.Selected != "" && r.TaskID == opts.Selected

		marker := " "
		if selected {
			marker = string(GlyphSelected)
		}
		name := r.Name
		if name == "" {
			name = r.TaskID
		}
		label := runewidth.FillRight(runewidth.Truncate(name, opts.LabelWidth, "…"), opts.LabelWidth)
		switch {
		case selected:
			label = st.Selected.Render(label)
		case dimmed:
			label = st.Dimmed.Render(label)
		default:
			label = st.Label.Render(label)
		}
		b.WriteString(marker + " " + label + " ")

		floatDays := 0
		if dayWidth > 0 {
			floatDays = int(r.FloatWidth/dayWidth + 0.5)
		}
		kinds := make([]cellKind, cells)
		for c := range kinds {
			kinds[c] = rowCell(r, floatDays, c*perCell, (c+1)*perCell-1)
			if kinds[c] == cellEmpty && c == todayCell {
				kinds[c] = cellToday
			}
		}
		b.WriteString(paint(kinds, st, dimmed))
		b.WriteByte('\n')
	}

	if opts.Legend {
		b.WriteString(legend(st))
		b.WriteByte('\n')
	}
	return b.String()
}

// rowCell classifies the cell covering days [from, to] for r.
func rowCell(r layout.Row, floatDays, from, to int) cellKind {
	barEnd := r.StartDay + r.Days - 1
	if from <= barEnd && to >= r.StartDay {
		switch {
		case r.Progress >= 100:
			return cellDone
		case r.Critical:
			return cellCritical
		default:
			return cellTask
		}
	}
	if floatDays > 0 && from <= barEnd+floatDays && to > barEnd {
		return cellFloat
	}
	return cellEmpty
}

// paint renders runs of equal cells with one style call each.
func paint(kinds []cellKind, st Styles, dimmed bool) string {
	var b strings.Builder
	for i := 0; i < len(kinds); {
		j := i
		for j < len(kinds) && kinds[j] == kinds[i] {
			j++
		}
		glyph, style := ' ', st.Label
		switch kinds[i] {
		case cellCritical:
			glyph, style = GlyphCritical, st.Critical
		case cellTask:
			glyph, style = GlyphTask, st.Task
		case cellDone:
			glyph, style = GlyphDone, st.Done
		case cellFloat:
			glyph, style = GlyphFloat, st.Float
		case cellToday:
			glyph, style = GlyphToday, st.Today
		}
		if dimmed && kinds[i] != cellEmpty && kinds[i] != cellToday {
			style = st.Dimmed
		}
		run := strings.Repeat(string(glyph), j-i)
		if kinds[i] == cellEmpty {
			b.WriteString(run)
		} else {
			b.WriteString(style.Render(run))
		}
		i = j
	}
	return b.String()
}

// axis labels the first day of each week that has room for its label.
func axis(start time.Time, cells, perCell int) string {
	line := []rune(strings.Repeat(" ", cells))
	next := 0
	for c := 0; c < cells; c++ {
		day := c * perCell
		if c < next || (day%axisStepDays >= perCell && c != 0) {
			continue
		}
		label := []rune(schedule.AddDays(start, day).Format("Jan 02"))
		if c+len(label) > cells {
			break
		}
		copy(line[c:], label)
		next = c + len(label) + 1
	}
	return strings.TrimRight(string(line), " ")
}

func legend(st Styles) string {
	items := []struct {
		glyph rune
		style func(...string) string
		name  string
	}{
		{GlyphCritical, st.Critical.Render, "critical"},
		{GlyphTask, st.Task.Render, "task"},
		{GlyphDone, st.Done.Render, "done"},
		{GlyphFloat, st.Float.Render, "float"},
		{GlyphToday, st.Today.Render, "today"},
	}
	parts := make([]string, 0, len(items))
	for _, it := range items {
		parts = append(parts, it.style(string(it.glyph))+" "+st.Muted.Render(it.name))
	}
	return strings.Join(parts, "  ")
}
