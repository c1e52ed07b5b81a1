package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Iron-Ham/gantry/internal/errors"
	"github.com/Iron-Ham/gantry/internal/recovery"
	"github.com/Iron-Ham/gantry/internal/render"
	"github.com/Iron-Ham/gantry/internal/schedule"
)

var recoverCmd = &cobra.Command{
	Use:   "recover",
	Short: "Plan a schedule compression toward a target date",
	Long: `Compress the schedule so the project finishes by --target-end, or keeps
its current end date despite starting on --revised-start.

Critical tasks are crashed first, then overlapped with their predecessors
(fast-tracking), then non-critical work is re-sequenced. When the target
cannot be reached the best plan found is still printed.

With --save the revised schedule is written to the given file.`,
	Args: cobra.NoArgs,
	RunE: runRecover,
}

var recoverSave string

func init() {
	recoverCmd.Flags().String("target-end", "", "Date the project must finish by (YYYY-MM-DD)")
	recoverCmd.Flags().String("revised-start", "", "New project start date (YYYY-MM-DD)")
	recoverCmd.Flags().StringVar(&recoverSave, "save", "", "Write the revised schedule to this file")
	rootCmd.AddCommand(recoverCmd)
}

func runRecover(cmd *cobra.Command, args []string) error {
	targetEnd, err := dateFlag(cmd, "target-end")
	if err != nil {
		return err
	}
	revisedStart, err := dateFlag(cmd, "revised-start")
	if err != nil {
		return err
	}
	if targetEnd.IsZero() && revisedStart.IsZero() {
		return fmt.Errorf("at least one of --target-end and --revised-start is required")
	}

	rt, err := newRuntime(cmd)
	if err != nil {
		return err
	}
	defer rt.Close()

	s, _, err := loadSchedule(cmd)
	if err != nil {
		return err
	}

	plan, err := rt.engine.Recover(s, recovery.Target{End: targetEnd, Start: revisedStart})
	if plan == nil {
		return err
	}
	if err != nil && !errors.Is(err, errors.ErrTargetInfeasible) {
		return err
	}

	if err := rt.emit(plan, func() string { return render.RecoveryPlan(plan, rt.styles) }); err != nil {
		return err
	}
	if !plan.Met && err != nil {
		fmt.Fprintf(cmd.ErrOrStderr(), "Warning: %v\n", err)
	}

	if recoverSave != "" {
		if err := schedule.Save(appFs, recoverSave, plan.Apply()); err != nil {
			return fmt.Errorf("failed to save revised schedule: %w", err)
		}
		fmt.Fprintf(cmd.ErrOrStderr(), "Revised schedule saved to %s\n", recoverSave)
	}
	return nil
}
