// Package tui is the interactive Gantt chart viewer.
package tui

import (
	"os"
	"os/signal"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/Iron-Ham/gantry/internal/schedule"
)

// App wraps the bubbletea program.
type App struct {
	model   Model
	program *tea.Program
}

// New creates a viewer application.
func New(opts Options) *App {
	model := NewModel(opts)
	return &App{
		model:   model,
		program: tea.NewProgram(model, tea.WithAltScreen()),
	}
}

// Reload hands a freshly loaded schedule to the running viewer, which
// recomputes in the background. Safe to call from any goroutine.
func (a *App) Reload(s *schedule.Schedule) {
	a.program.Send(scheduleMsg{schedule: s})
}

// ReportError shows a reload failure in the status line.
func (a *App) ReportError(err error) {
	a.program.Send(reloadErrMsg{err: err})
}

// Run starts the viewer and blocks until it exits.
func (a *App) Run() error {
	defer a.model.Close()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)

	go func() {
		<-sigChan
		a.program.Send(tea.Quit())
	}()

	_, err := a.program.Run()

	signal.Stop(sigChan)

	return err
}
