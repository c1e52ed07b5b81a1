package render

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/Iron-Ham/gantry/internal/layout"
	"github.com/Iron-Ham/gantry/internal/schedule"
)

const (
	defaultSVGLabelWidth = 160
	svgHeaderHeight      = 24
	svgFontFamily        = "Helvetica, Arial, sans-serif"
	svgFontSize          = 12
)

// SVGOptions controls the SVG document.
type SVGOptions struct {
	// Title is drawn above the chart when set.
	Title string
	// LabelWidth is the width in pixels of the task name gutter. Zero uses 160.
	LabelWidth float64
	// Today draws a vertical marker when it falls inside the project.
	Today time.Time
	// Highlight dims every bar and link outside its set.
	Highlight *layout.Highlight
}

// SVG writes l as a standalone SVG document. Bars and links use the layout
// coordinates unchanged, translated right of the label gutter and below the
// date header.
func SVG(w io.Writer, l *layout.Layout, theme *Theme, opts SVGOptions) error {
	if theme == nil {
		theme = DefaultTheme()
	}
	if opts.LabelWidth <= 0 {
		opts.LabelWidth = defaultSVGLabelWidth
	}
	c := theme.Colors
	lo := l.Options()

	top := float64(svgHeaderHeight)
	if opts.Title != "" {
		top += svgHeaderHeight
	}
	width := opts.LabelWidth + l.Width + lo.Padding
	height := top + l.Height

	var svg strings.Builder
	svg.WriteString(fmt.Sprintf(`<?xml version="1.0" encoding="UTF-8"?>
<svg width="%s" height="%s" viewBox="0 0 %s %s" xmlns="http://www.w3.org/2000/svg">
<rect width="100%%" height="100%%" fill="%s"/>
<defs>
<style>
.label { font-family: %s; font-size: %dpx; fill: %s; }
.axis { font-family: %s; font-size: %dpx; fill: %s; }
.title { font-family: %s; font-size: %dpx; font-weight: bold; fill: %s; }
</style>
<marker id="arrow" viewBox="0 0 8 8" refX="8" refY="4" markerWidth="6" markerHeight="6" orient="auto"><path d="M 0 0 L 8 4 L 0 8 z" fill="%s"/></marker>
<marker id="arrow-critical" viewBox="0 0 8 8" refX="8" refY="4" markerWidth="6" markerHeight="6" orient="auto"><path d="M 0 0 L 8 4 L 0 8 z" fill="%s"/></marker>
</defs>
`, num(width), num(height), num(width), num(height), c.Background,
		svgFontFamily, svgFontSize, c.Text,
		svgFontFamily, svgFontSize-2, c.Muted,
		svgFontFamily, svgFontSize+4, c.Text,
		c.Link, c.CriticalLink))

	if opts.Title != "" {
		svg.WriteString(fmt.Sprintf(`<text class="title" x="%s" y="%d">%s</text>`+"\n",
			num(lo.Padding), svgHeaderHeight-6, escapeXML(opts.Title)))
	}

	// Date axis and week grid lines.
	for day := 0; day < l.Days; day += axisStepDays {
		date := schedule.AddDays(l.ProjectStart, day)
		x := opts.LabelWidth + float64(day)*lo.DayWidth
		svg.WriteString(fmt.Sprintf(`<line x1="%s" y1="%s" x2="%s" y2="%s" stroke="%s" stroke-width="1"/>`+"\n",
			num(x), num(top), num(x), num(height), c.Grid))
		svg.WriteString(fmt.Sprintf(`<text class="axis" x="%s" y="%s">%s</text>`+"\n",
			num(x+2), num(top-8), escapeXML(date.Format("Jan 02"))))
	}

	// Task labels.
	for _, r := range l.Rows {
		name := r.Name
		if name == "" {
			name = r.TaskID
		}
		fill := ""
		if dimmedRow(opts.Highlight, r.TaskID) {
			fill = fmt.Sprintf(` fill="%s"`, c.Dimmed)
		}
		svg.WriteString(fmt.Sprintf(`<text class="label" x="%s" y="%s" dominant-baseline="middle"%s>%s</text>`+"\n",
			num(lo.Padding), num(top+r.MidY()), fill, escapeXML(name)))
	}

	svg.WriteString(fmt.Sprintf(`<g transform="translate(%s %s)">`+"\n", num(opts.LabelWidth), num(top)))

	for _, r := range l.Rows {
		barColor := c.Task
		switch {
		case r.Progress >= 100:
			barColor = c.Done
		case r.Critical:
			barColor = c.Critical
		}
		opacity := "1"
		if dimmedRow(opts.Highlight, r.TaskID) {
			barColor = c.Dimmed
			opacity = "0.5"
		}
		if r.FloatWidth > 0 {
			svg.WriteString(fmt.Sprintf(`<rect x="%s" y="%s" width="%s" height="%s" fill="none" stroke="%s" stroke-dasharray="3 3" opacity="%s"/>`+"\n",
				num(r.Right()), num(r.Y), num(r.FloatWidth), num(r.Height), c.Float, opacity))
		}
		svg.WriteString(fmt.Sprintf(`<rect id="task-%s" x="%s" y="%s" width="%s" height="%s" rx="3" fill="%s" opacity="%s"><title>%s</title></rect>`+"\n",
			escapeXML(r.TaskID), num(r.X), num(r.Y), num(r.Width), num(r.Height), barColor, opacity, escapeXML(barTitle(r))))
		if r.Progress > 0 && r.Progress < 100 {
			svg.WriteString(fmt.Sprintf(`<rect x="%s" y="%s" width="%s" height="3" fill="%s" opacity="%s"/>`+"\n",
				num(r.X), num(r.Y+r.Height-3), num(r.Width*float64(r.Progress)/100), c.Done, opacity))
		}
	}

	for _, link := range l.Links {
		stroke, marker := c.Link, "arrow"
		if link.Critical {
			stroke, marker = c.CriticalLink, "arrow-critical"
		}
		opacity := "1"
		if opts.Highlight != nil && !(opts.Highlight.Contains(link.FromID) && opts.Highlight.Contains(link.ToID)) {
			stroke, opacity = c.Dimmed, "0.4"
		}
		svg.WriteString(fmt.Sprintf(`<path d="%s" stroke="%s" stroke-width="1.5" fill="none" opacity="%s" marker-end="url(#%s)"/>`+"\n",
			link.Path, stroke, opacity, marker))
	}

	if x, ok := l.TodayX(opts.Today); ok && !opts.Today.IsZero() {
		svg.WriteString(fmt.Sprintf(`<line x1="%s" y1="0" x2="%s" y2="%s" stroke="%s" stroke-width="2" stroke-dasharray="4 2"/>`+"\n",
			num(x), num(x), num(l.Height), c.Today))
	}

	svg.WriteString("</g>\n</svg>\n")

	_, err := io.WriteString(w, svg.String())
	return err
}

func dimmedRow(h *layout.Highlight, id string) bool {
	return h != nil && !h.Contains(id)
}

func barTitle(r layout.Row) string {
	title := fmt.Sprintf("%s: %d days", r.TaskID, r.Days)
	if r.Critical {
		title += ", critical"
	}
	return title
}

func num(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// escapeXML escapes the XML special characters in s.
func escapeXML(s string) string {
	s = strings.ReplaceAll(s, "&", "&amp;")
	s = strings.ReplaceAll(s, "<", "&lt;")
	s = strings.ReplaceAll(s, ">", "&gt;")
	s = strings.ReplaceAll(s, "\"", "&quot;")
	s = strings.ReplaceAll(s, "'", "&apos;")
	return s
}
