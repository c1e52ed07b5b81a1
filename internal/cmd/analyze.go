package cmd

import (
	"github.com/spf13/cobra"

	"github.com/Iron-Ham/gantry/internal/render"
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Find the critical path of a schedule",
	Long: `Run a critical path analysis over the schedule.

Prints the project dates, the critical path and, for every task, its early
and late dates and total float. With --chart a text Gantt chart follows.`,
	Args: cobra.NoArgs,
	RunE: runAnalyze,
}

var analyzeChart bool

func init() {
	analyzeCmd.Flags().BoolVar(&analyzeChart, "chart", false, "Append a text Gantt chart")
	rootCmd.AddCommand(analyzeCmd)
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	rt, err := newRuntime(cmd)
	if err != nil {
		return err
	}
	defer rt.Close()

	s, _, err := loadSchedule(cmd)
	if err != nil {
		return err
	}
	l, res, err := rt.engine.Layout(s)
	if err != nil {
		return err
	}

	return rt.emit(res, func() string {
		out := render.Analysis(s, res, rt.styles)
		if analyzeChart {
			out += "\n" + render.Gantt(l, rt.styles, render.GanttOptions{
				Width:  termWidth(rt.out),
				Legend: true,
			})
		}
		return out
	})
}
