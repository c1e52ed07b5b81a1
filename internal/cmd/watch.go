package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/Iron-Ham/gantry/internal/engine"
	"github.com/Iron-Ham/gantry/internal/event"
	"github.com/Iron-Ham/gantry/internal/render"
	"github.com/Iron-Ham/gantry/internal/schedule"
	"github.com/Iron-Ham/gantry/internal/watch"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Re-analyse the schedule every time it is saved",
	Long: `Watch the schedule file and print a fresh critical path analysis after
every save. Saves that arrive while an analysis is still running supersede
it; only the newest result is printed. Stop with Ctrl+C.`,
	Args: cobra.NoArgs,
	RunE: runWatch,
}

func init() {
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	rt, err := newRuntime(cmd)
	if err != nil {
		return err
	}
	defer rt.Close()

	path, _ := cmd.Flags().GetString("schedule")
	w, err := watch.New(appFs, path, rt.bus, rt.logger)
	if err != nil {
		return err
	}
	defer w.Stop()

	parent := cmd.Context()
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	runner := engine.NewRunner(rt.logger, rt.bus)
	defer runner.Close()

	status := cmd.ErrOrStderr()
	rt.bus.Subscribe(event.TypeScheduleChanged, func(event.Event) {
		fmt.Fprintln(status, rt.styles.Muted.Render("Change detected, recomputing..."))
	})

	s, err := w.Load()
	if err != nil {
		return fmt.Errorf("failed to load schedule: %w", err)
	}
	runner.Submit(ctx, rt.engine.LayoutJob(s))

	w.SetLoadCallback(func(s *schedule.Schedule) {
		runner.Submit(ctx, rt.engine.LayoutJob(s))
	})
	w.SetErrorCallback(func(err error) {
		fmt.Fprintf(status, "Reload failed: %v\n", err)
	})
	w.Start()

	fmt.Fprintf(status, "Watching %s\n", w.Path())
	return printOutcomes(ctx, rt, runner, status)
}

// printOutcomes prints every current outcome until ctx is done.
func printOutcomes(ctx context.Context, rt *runtime, runner *engine.Runner, status io.Writer) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case o, ok := <-runner.Results():
			if !ok {
				return nil
			}
			if !runner.IsCurrent(o.Generation) {
				continue
			}
			if o.Err != nil {
				fmt.Fprintf(status, "%s %v\n", rt.styles.Critical.Render("Analysis failed:"), o.Err)
				continue
			}
			chart, ok := o.Value.(*engine.Chart)
			if !ok {
				continue
			}
			if err := rt.emitChart(chart); err != nil {
				return err
			}
		}
	}
}

// emitChart prints the analysis of one chart.
func (rt *runtime) emitChart(chart *engine.Chart) error {
	return rt.emit(chart.Result, func() string {
		return render.Analysis(chart.Schedule, chart.Result, rt.styles)
	})
}
