// Package render turns analysis results into terminal charts, SVG documents
// and report tables.
package render

import "github.com/charmbracelet/lipgloss"

// Styles are the lipgloss styles used for terminal output.
type Styles struct {
	Title    lipgloss.Style
	Header   lipgloss.Style
	Label    lipgloss.Style
	Muted    lipgloss.Style
	Critical lipgloss.Style
	Task     lipgloss.Style
	Float    lipgloss.Style
	Done     lipgloss.Style
	Today    lipgloss.Style
	Dimmed   lipgloss.Style
	Selected lipgloss.Style
	Warning  lipgloss.Style
	Border   lipgloss.Style
}

// NewStyles builds styles from theme. With color disabled every style is
// plain so output contains no escape sequences.
func NewStyles(theme *Theme, color bool) Styles {
	if !color {
		plain := lipgloss.NewStyle()
		return Styles{
			Title:    plain.Bold(true),
			Header:   plain,
			Label:    plain,
			Muted:    plain,
			Critical: plain,
			Task:     plain,
			Float:    plain,
			Done:     plain,
			Today:    plain,
			Dimmed:   plain,
			Selected: plain,
			Warning:  plain,
			Border:   plain,
		}
	}
	if theme == nil {
		theme = DefaultTheme()
	}
	c := theme.Colors
	fg := func(hex string) lipgloss.Style {
		return lipgloss.NewStyle().Foreground(lipgloss.Color(hex))
	}
	return Styles{
		Title:    fg(c.Text).Bold(true),
		Header:   fg(c.Muted).Bold(true),
		Label:    fg(c.Text),
		Muted:    fg(c.Muted),
		Critical: fg(c.Critical),
		Task:     fg(c.Task),
		Float:    fg(c.Float),
		Done:     fg(c.Done),
		Today:    fg(c.Today).Bold(true),
		Dimmed:   fg(c.Dimmed),
		Selected: fg(c.Text).Background(lipgloss.Color(c.Background)).Bold(true),
		Warning:  fg(c.Today),
		Border:   fg(c.Grid),
	}
}
