package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/Iron-Ham/gantry/internal/engine"
	"github.com/Iron-Ham/gantry/internal/layout"
	"github.com/Iron-Ham/gantry/internal/render"
	"github.com/Iron-Ham/gantry/internal/schedule"
	"github.com/Iron-Ham/gantry/internal/whatif"
)

// Layout constants
const (
	headerLines   = 3 // title, summary, date axis
	footerLines   = 2 // status, help
	minBodyHeight = 3
)

// Options configures the viewer.
type Options struct {
	Engine   *engine.Engine
	Schedule *schedule.Schedule
	Theme    *render.Theme
	Color    bool
	// Today places the today marker. Zero disables it.
	Today time.Time
}

// Messages

type scheduleMsg struct {
	schedule *schedule.Schedule
}

type reloadErrMsg struct {
	err error
}

type outcomeMsg struct {
	outcome engine.Outcome
}

// Model is the viewer state.
type Model struct {
	engine *engine.Engine
	runner *engine.Runner

	schedule *schedule.Schedule
	chart    *engine.Chart

	styles   render.Styles
	keys     keyMap
	help     help.Model
	viewport viewport.Model
	input    textinput.Model

	today      time.Time
	width      int
	height     int
	ready      bool
	quitting   bool
	selectedID string
	highlight  bool
	inputMode  bool

	whatIf       *whatif.Result
	errorMessage string
	infoMessage  string
}

// NewModel creates a viewer for opts.Schedule. Analysis starts with Init.
func NewModel(opts Options) Model {
	eng := opts.Engine
	if eng == nil {
		eng = engine.New(nil, nil, nil)
	}

	ti := textinput.New()
	ti.Prompt = "what-if> "
	ti.Placeholder = "C+2, B>3"
	ti.CharLimit = 256

	return Model{
		engine:   eng,
		runner:   engine.NewRunner(eng.Logger(), eng.Bus()),
		schedule: opts.Schedule,
		styles:   render.NewStyles(opts.Theme, opts.Color),
		keys:     defaultKeyMap(),
		help:     help.New(),
		viewport: viewport.New(0, 0),
		input:    ti,
		today:    opts.Today,
	}
}

// Close stops the background runner.
func (m Model) Close() {
	m.runner.Close()
}

// Init starts the first analysis.
func (m Model) Init() tea.Cmd {
	if m.schedule == nil {
		return waitForOutcome(m.runner)
	}
	return m.submit(m.schedule)
}

func (m Model) submit(s *schedule.Schedule) tea.Cmd {
	m.runner.Submit(context.Background(), m.engine.LayoutJob(s))
	return waitForOutcome(m.runner)
}

// waitForOutcome blocks until the runner delivers. A closed runner yields nil.
func waitForOutcome(r *engine.Runner) tea.Cmd {
	return func() tea.Msg {
		o, ok := <-r.Results()
		if !ok {
			return nil
		}
		return outcomeMsg{outcome: o}
	}
}

// Update handles messages and updates the model
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKeypress(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.ready = true
		m.help.Width = msg.Width
		m.refresh()
		return m, nil

	case scheduleMsg:
		m.schedule = msg.schedule
		m.errorMessage = ""
		m.infoMessage = "Schedule changed, recomputing..."
		m.runner.Submit(context.Background(), m.engine.LayoutJob(msg.schedule))
		return m, nil

	case reloadErrMsg:
		m.errorMessage = fmt.Sprintf("Reload failed: %v", msg.err)
		return m, nil

	case outcomeMsg:
		m.applyOutcome(msg.outcome)
		return m, waitForOutcome(m.runner)
	}

	return m, nil
}

// applyOutcome installs a delivered chart. Outcomes superseded after
// delivery are dropped.
func (m *Model) applyOutcome(o engine.Outcome) {
	if !m.runner.IsCurrent(o.Generation) {
		return
	}
	if o.Err != nil {
		m.errorMessage = o.Err.Error()
		return
	}
	chart, ok := o.Value.(*engine.Chart)
	if !ok {
		return
	}

	m.chart = chart
	m.schedule = chart.Schedule
	m.errorMessage = ""
	m.infoMessage = ""
	m.whatIf = nil
	if _, ok := chart.Layout.Row(m.selectedID); !ok {
		m.selectedID = ""
		if len(chart.Layout.Rows) > 0 {
			m.selectedID = chart.Layout.Rows[0].TaskID
		}
	}
	m.refresh()
}

// handleKeypress processes keyboard input
func (m Model) handleKeypress(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.inputMode {
		return m.handleWhatIfInput(msg)
	}

	switch {
	case key.Matches(msg, m.keys.Quit):
		m.quitting = true
		return m, tea.Quit
	case key.Matches(msg, m.keys.Help):
		m.help.ShowAll = !m.help.ShowAll
		m.refresh()
	case key.Matches(msg, m.keys.Up):
		m.moveSelection(-1)
	case key.Matches(msg, m.keys.Down):
		m.moveSelection(1)
	case key.Matches(msg, m.keys.Top):
		m.moveSelection(-len(m.rows()))
	case key.Matches(msg, m.keys.Bottom):
		m.moveSelection(len(m.rows()))
	case key.Matches(msg, m.keys.Highlight):
		if m.selectedID != "" {
			m.highlight = !m.highlight
			m.refresh()
		}
	case key.Matches(msg, m.keys.WhatIf):
		if m.chart == nil {
			return m, nil
		}
		m.inputMode = true
		m.input.SetValue("")
		return m, m.input.Focus()
	case key.Matches(msg, m.keys.Clear):
		m.highlight = false
		m.whatIf = nil
		m.errorMessage = ""
		m.refresh()
	}
	return m, nil
}

func (m Model) handleWhatIfInput(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc:
		m.inputMode = false
		m.input.Blur()
		return m, nil
	case tea.KeyEnter:
		m.inputMode = false
		m.input.Blur()
		m.runWhatIf(m.input.Value())
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// runWhatIf simulates a comma separated list of changes against the
// current schedule.
func (m *Model) runWhatIf(value string) {
	var entries []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			entries = append(entries, part)
		}
	}
	if len(entries) == 0 {
		return
	}

	perts, err := whatif.ParseAll(entries)
	if err != nil {
		m.errorMessage = err.Error()
		return
	}
	r, err := m.engine.Simulate(m.schedule, perts)
	if err != nil {
		m.errorMessage = err.Error()
		return
	}
	m.errorMessage = ""
	m.whatIf = r
	m.refresh()
}

func (m Model) rows() []layout.Row {
	if m.chart == nil {
		return nil
	}
	return m.chart.Layout.Rows
}

func (m Model) selectedIndex() int {
	for i, r := range m.rows() {
		if r.TaskID == m.selectedID {
			return i
		}
	}
	return -1
}

func (m *Model) moveSelection(delta int) {
	rows := m.rows()
	if len(rows) == 0 {
		return
	}
	i := max(0, min(len(rows)-1, m.selectedIndex()+delta))
	m.selectedID = rows[i].TaskID
	m.refresh()
}

func (m Model) currentHighlight() *layout.Highlight {
	if !m.highlight || m.chart == nil {
		return nil
	}
	h, err := m.chart.Layout.Highlight(m.selectedID)
	if err != nil {
		return nil
	}
	return &h
}

// gantt renders the chart and splits off the date axis.
func (m Model) gantt() (axis string, body string) {
	if m.chart == nil {
		return "", ""
	}
	out := render.Gantt(m.chart.Layout, m.styles, render.GanttOptions{
		Width:     m.width,
		Today:     m.today,
		Selected:  m.selectedID,
		Highlight: m.currentHighlight(),
	})
	axis, body, _ = strings.Cut(strings.TrimSuffix(out, "\n"), "\n")
	return axis, body
}

// refresh recomputes the viewport size and content and keeps the selected
// row on screen.
func (m *Model) refresh() {
	_, body := m.gantt()
	m.viewport.Width = m.width
	m.viewport.Height = m.bodyHeight()
	m.viewport.SetContent(body)

	if i := m.selectedIndex(); i >= 0 {
		switch {
		case i < m.viewport.YOffset:
			m.viewport.SetYOffset(i)
		case i >= m.viewport.YOffset+m.viewport.Height:
			m.viewport.SetYOffset(i - m.viewport.Height + 1)
		}
	}
}

func (m Model) bodyHeight() int {
	h := m.height - headerLines - footerLines
	if m.whatIf != nil {
		h -= lineCount(m.whatIfPanel())
	}
	if m.help.ShowAll {
		h -= lineCount(m.help.View(m.keys)) - 1
	}
	return max(h, minBodyHeight)
}

func lineCount(s string) int {
	if s == "" {
		return 0
	}
	return strings.Count(strings.TrimSuffix(s, "\n"), "\n") + 1
}

func (m Model) whatIfPanel() string {
	if m.whatIf == nil {
		return ""
	}
	return render.WhatIf(m.whatIf, m.engine.Config().Cost.Currency, m.styles)
}

// View renders the UI
func (m Model) View() string {
	if m.quitting {
		return ""
	}
	if !m.ready {
		return "Loading..."
	}

	var b strings.Builder
	b.WriteString(m.renderHeader())

	axis, _ := m.gantt()
	b.WriteString(axis + "\n")
	b.WriteString(m.viewport.View() + "\n")

	if panel := m.whatIfPanel(); panel != "" {
		b.WriteString(panel)
	}
	b.WriteString(m.renderStatus() + "\n")
	b.WriteString(m.help.View(m.keys))
	return b.String()
}

func (m Model) renderHeader() string {
	if m.chart == nil {
		return m.styles.Title.Render("gantry") + "\n" + m.styles.Muted.Render("Analysing...") + "\n"
	}
	res := m.chart.Result
	name := m.chart.Schedule.Name
	if name == "" {
		name = "Schedule"
	}
	summary := fmt.Sprintf("%s to %s  %d days  %s %s",
		schedule.FormatDate(res.ProjectStart), schedule.FormatDate(res.ProjectEnd), res.ProjectDuration,
		m.styles.Muted.Render("critical"), m.styles.Critical.Render(strings.Join(res.CriticalPath, render.PathSeparator)))
	return m.styles.Title.Render(name) + "\n" + summary + "\n"
}

func (m Model) renderStatus() string {
	switch {
	case m.inputMode:
		return m.input.View()
	case m.errorMessage != "":
		return m.styles.Critical.Render(m.errorMessage)
	case m.infoMessage != "":
		return m.styles.Muted.Render(m.infoMessage)
	}

	if m.chart == nil {
		return ""
	}
	row, ok := m.chart.Layout.Row(m.selectedID)
	if !ok {
		return ""
	}
	tt, _ := m.chart.Result.Task(row.TaskID)
	status := fmt.Sprintf("%s  %s to %s  float %d",
		row.TaskID,
		schedule.FormatDate(m.chart.Result.EarlyStartDate(row.TaskID)),
		schedule.FormatDate(m.chart.Result.EarlyFinishDate(row.TaskID)),
		tt.Float)
	if h := m.currentHighlight(); h != nil {
		status += fmt.Sprintf("  %d related", len(h.Active)-1)
	}
	return m.styles.Label.Render(status)
}
