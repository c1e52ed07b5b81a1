package cmd

import (
	"github.com/spf13/cobra"

	"github.com/Iron-Ham/gantry/internal/schedule"
	"github.com/Iron-Ham/gantry/internal/tui"
	"github.com/Iron-Ham/gantry/internal/watch"
)

var viewCmd = &cobra.Command{
	Use:   "view",
	Short: "Browse the schedule in an interactive Gantt chart",
	Long: `Open the schedule in a full-screen Gantt chart.

Move between tasks with the arrow keys, press enter to trace a task's
dependencies and w to try a what-if change. Unless --watch=false is given
the chart is recomputed whenever the schedule file is saved.`,
	Args: cobra.NoArgs,
	RunE: runView,
}

var viewWatch bool

func init() {
	viewCmd.Flags().BoolVar(&viewWatch, "watch", true, "Reload when the schedule file changes")
	viewCmd.Flags().String("today", "now", "Draw a today marker at this date, 'now', or '' for none")
	rootCmd.AddCommand(viewCmd)
}

func runView(cmd *cobra.Command, args []string) error {
	today, err := todayFlag(cmd)
	if err != nil {
		return err
	}

	rt, err := newRuntime(cmd)
	if err != nil {
		return err
	}
	defer rt.Close()

	s, path, err := loadSchedule(cmd)
	if err != nil {
		return err
	}

	app := tui.New(tui.Options{
		Engine:   rt.engine,
		Schedule: s,
		Theme:    rt.theme,
		Color:    rt.color,
		Today:    today,
	})

	if viewWatch {
		w, err := watch.New(appFs, path, rt.bus, rt.logger)
		if err != nil {
			return err
		}
		w.SetLoadCallback(func(s *schedule.Schedule) { app.Reload(s) })
		w.SetErrorCallback(app.ReportError)
		w.Start()
		defer w.Stop()
	}

	return app.Run()
}
