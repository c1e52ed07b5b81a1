package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Iron-Ham/gantry/internal/render"
)

var baselineCmd = &cobra.Command{
	Use:   "baseline",
	Short: "Compare the schedule against its baseline",
	Long: `Report how far each task has moved from its baseline dates.

Tasks finishing within the tolerance of their baseline end are on track;
earlier ones are ahead and later ones behind. Tasks without a baseline are
counted but not classified.`,
	Args: cobra.NoArgs,
	RunE: runBaseline,
}

var baselineTolerance int

func init() {
	baselineCmd.Flags().IntVar(&baselineTolerance, "tolerance", 0, "Days of slip still on track (default from config)")
	rootCmd.AddCommand(baselineCmd)
}

func runBaseline(cmd *cobra.Command, args []string) error {
	rt, err := newRuntime(cmd)
	if err != nil {
		return err
	}
	defer rt.Close()

	if cmd.Flags().Changed("tolerance") {
		if baselineTolerance < 0 {
			return fmt.Errorf("invalid value for --tolerance: must be non-negative")
		}
		rt.cfg.Baseline.ToleranceDays = baselineTolerance
	}

	s, _, err := loadSchedule(cmd)
	if err != nil {
		return err
	}
	rep := rt.engine.Baseline(s)
	return rt.emit(rep, func() string { return render.Baseline(rep, rt.styles) })
}
