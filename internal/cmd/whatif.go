package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/Iron-Ham/gantry/internal/render"
	"github.com/Iron-Ham/gantry/internal/whatif"
)

var whatifCmd = &cobra.Command{
	Use:   "whatif",
	Short: "Simulate delays and see how they ripple through the schedule",
	Long: `Apply hypothetical changes to a copy of the schedule and compare the
result with the schedule as it stands.

Changes are written as:
  ID+N   task ID takes N more days
  ID-N   task ID takes N fewer days
  ID>N   task ID cannot start until N days later

Examples:
  gantry whatif --change footings+3
  gantry whatif --change footings+3 --change slab>2
  gantry whatif --task footings --delay 3
  gantry whatif --scenarios scenarios.yaml

A scenario file lists named sets of changes that are simulated
independently and in parallel:
  - name: wet week
    changes: [excavation+3, footings>2]
  - name: late steel
    changes: [frame>5]`,
	Args: cobra.NoArgs,
	RunE: runWhatIf,
}

var (
	whatifChanges   []string
	whatifTask      string
	whatifDelay     int
	whatifShift     int
	whatifScenarios string
)

func init() {
	whatifCmd.Flags().StringArrayVar(&whatifChanges, "change", nil, "Change to apply, e.g. footings+3 (repeatable)")
	whatifCmd.Flags().StringVar(&whatifTask, "task", "", "Task to change (with --delay or --shift)")
	whatifCmd.Flags().IntVar(&whatifDelay, "delay", 0, "Days to add to --task (negative shortens it)")
	whatifCmd.Flags().IntVar(&whatifShift, "shift", 0, "Days to hold back the start of --task")
	whatifCmd.Flags().StringVar(&whatifScenarios, "scenarios", "", "YAML or JSON file of named scenarios")
	whatifCmd.MarkFlagsMutuallyExclusive("scenarios", "change")
	whatifCmd.MarkFlagsMutuallyExclusive("scenarios", "task")
	rootCmd.AddCommand(whatifCmd)
}

// scenarioOutput is the machine-readable form of a scenario result.
type scenarioOutput struct {
	Name   string         `json:"name"`
	Result *whatif.Result `json:"result,omitempty"`
	Error  string         `json:"error,omitempty"`
}

func runWhatIf(cmd *cobra.Command, args []string) error {
	if whatifScenarios != "" {
		return runScenarios(cmd)
	}

	perts, err := whatifPerturbations(cmd)
	if err != nil {
		return err
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
	r, err := rt.engine.Simulate(s, perts)
	if err != nil {
		return err
	}
	return rt.emit(r, func() string { return render.WhatIf(r, rt.cfg.Cost.Currency, rt.styles) })
}

// whatifPerturbations collects --change entries followed by the
// --task/--delay/--shift form.
func whatifPerturbations(cmd *cobra.Command) ([]whatif.Perturbation, error) {
	perts, err := whatif.ParseAll(whatifChanges)
	if err != nil {
		return nil, err
	}

	delaySet := cmd.Flags().Changed("delay")
	shiftSet := cmd.Flags().Changed("shift")
	switch {
	case whatifTask == "" && (delaySet || shiftSet):
		return nil, fmt.Errorf("--delay and --shift need --task")
	case whatifTask != "" && !delaySet && !shiftSet:
		return nil, fmt.Errorf("--task needs --delay or --shift")
	}
	if delaySet {
		perts = append(perts, whatif.Delay(whatifTask, whatifDelay))
	}
	if shiftSet {
		perts = append(perts, whatif.Shift(whatifTask, whatifShift))
	}

	if len(perts) == 0 {
		return nil, fmt.Errorf("no changes given (use --change, --task or --scenarios)")
	}
	return perts, nil
}

func runScenarios(cmd *cobra.Command) error {
	data, err := afero.ReadFile(appFs, whatifScenarios)
	if err != nil {
		return fmt.Errorf("failed to read scenarios: %w", err)
	}
	scenarios, err := whatif.DecodeScenarios(data)
	if err != nil {
		return err
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

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	results, err := rt.engine.SimulateAll(ctx, s, scenarios)
	if err != nil {
		return err
	}

	out := make([]scenarioOutput, len(results))
	for i, sr := range results {
		out[i] = scenarioOutput{Name: sr.Scenario.Name, Result: sr.Result}
		if sr.Err != nil {
			out[i].Error = sr.Err.Error()
		}
	}
	return rt.emit(out, func() string { return render.Scenarios(results, rt.cfg.Cost.Currency, rt.styles) })
}
