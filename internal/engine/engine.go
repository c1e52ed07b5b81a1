// Package engine wires configuration, logging and events around the pure
// scheduling components. Every method takes a schedule snapshot and returns
// a freshly computed result; the Engine itself holds no schedule state.
package engine

import (
	"context"
	"time"

	"github.com/Iron-Ham/gantry/internal/baseline"
	"github.com/Iron-Ham/gantry/internal/config"
	"github.com/Iron-Ham/gantry/internal/cpm"
	"github.com/Iron-Ham/gantry/internal/errors"
	"github.com/Iron-Ham/gantry/internal/event"
	"github.com/Iron-Ham/gantry/internal/layout"
	"github.com/Iron-Ham/gantry/internal/logging"
	"github.com/Iron-Ham/gantry/internal/recovery"
	"github.com/Iron-Ham/gantry/internal/schedule"
	"github.com/Iron-Ham/gantry/internal/whatif"
)

// Engine runs analyses with configured options. It is safe for concurrent use.
type Engine struct {
	cfg    *config.Config
	logger *logging.Logger
	bus    *event.Bus
}

// New creates an Engine. A nil cfg uses config.Default(), a nil logger
// discards output and a nil bus creates a private one.
func New(cfg *config.Config, logger *logging.Logger, bus *event.Bus) *Engine {
	if cfg == nil {
		cfg = config.Default()
	}
	if logger == nil {
		logger = logging.NopLogger()
	}
	if bus == nil {
		bus = event.NewBus()
	}
	return &Engine{cfg: cfg, logger: logger, bus: bus}
}

// Config returns the configuration the engine was built with.
func (e *Engine) Config() *config.Config { return e.cfg }

// Bus returns the event bus results are published on.
func (e *Engine) Bus() *event.Bus { return e.bus }

// Logger returns the engine's logger.
func (e *Engine) Logger() *logging.Logger { return e.logger }

// RecoveryOptions returns the configured compression bounds.
func (e *Engine) RecoveryOptions() recovery.Options {
	return recovery.Options{
		CrashFraction:      e.cfg.Engine.CrashFraction,
		MaxOverlapFraction: e.cfg.Engine.MaxOverlapFraction,
	}
}

// WhatIfOptions returns the configured simulation options. A zero daily
// rate leaves simulations unpriced.
func (e *Engine) WhatIfOptions() whatif.Options {
	opts := whatif.Options{
		CostCap:  e.cfg.Cost.Cap,
		Parallel: e.cfg.Engine.WhatIfParallel,
	}
	if e.cfg.Cost.DailyRate > 0 {
		opts.Cost = whatif.DailyRate{Rate: e.cfg.Cost.DailyRate}
	}
	return opts
}

// LayoutOptions returns the configured chart geometry.
func (e *Engine) LayoutOptions() layout.Options {
	l := e.cfg.Layout
	return layout.Options{
		DayWidth:      l.DayWidth,
		RowHeight:     l.RowHeight,
		BarHeight:     l.BarHeight,
		Padding:       l.Padding,
		MinLinkOffset: l.MinLinkOffset,
	}
}

func (e *Engine) opLogger(op string, s *schedule.Schedule) *logging.Logger {
	return e.logger.WithSchedule(s.Name).WithOperation(op)
}

// Analyze runs the critical path method.
func (e *Engine) Analyze(s *schedule.Schedule) (*cpm.Result, error) {
	log := e.opLogger("analyze", s)
	start := time.Now()

	res, err := cpm.Analyze(s)
	if err != nil {
		log.Debug("analysis failed", "error", err.Error(), "kind", string(errors.KindOf(err)))
		return nil, err
	}
	log.Debug("analysis complete",
		"tasks", len(res.Tasks),
		"project_duration", res.ProjectDuration,
		"critical_path", res.CriticalPath,
		"elapsed_ms", time.Since(start).Milliseconds())
	return res, nil
}

// Recover plans a compression towards target with the configured bounds.
// An infeasible target returns the best-effort plan with the error, as
// recovery.Recover does.
func (e *Engine) Recover(s *schedule.Schedule, target recovery.Target) (*recovery.Plan, error) {
	log := e.opLogger("recover", s)

	plan, err := recovery.Recover(s, target, e.RecoveryOptions())
	if plan == nil {
		log.Debug("recovery failed", "error", err.Error())
		return nil, err
	}

	e.bus.Publish(event.NewRecoveryPlannedEvent(plan.Met, plan.AchievedEnd, plan.TargetEnd, plan.Iterations))
	if !plan.Met {
		log.Warn("recovery target infeasible",
			"target_end", schedule.FormatDate(plan.TargetEnd),
			"achieved_end", schedule.FormatDate(plan.AchievedEnd),
			"iterations", plan.Iterations)
	} else {
		log.Debug("recovery planned",
			"required_compression", plan.RequiredCompression,
			"changed_tasks", len(plan.Changed()),
			"iterations", plan.Iterations)
	}
	return plan, err
}

// Simulate runs one what-if simulation.
func (e *Engine) Simulate(s *schedule.Schedule, perturbations []whatif.Perturbation) (*whatif.Result, error) {
	log := e.opLogger("whatif", s)

	r, err := whatif.Simulate(s, perturbations, e.WhatIfOptions())
	if err != nil {
		log.Debug("simulation failed", "error", err.Error())
		return nil, err
	}
	log.Debug("simulation complete",
		"perturbations", len(perturbations),
		"delay_days", r.Summary.DelayDays,
		"tasks_affected", r.Summary.TasksAffected)
	return r, nil
}

// SimulateAll runs independent scenarios concurrently.
func (e *Engine) SimulateAll(ctx context.Context, s *schedule.Schedule, scenarios []whatif.Scenario) ([]whatif.ScenarioResult, error) {
	log := e.opLogger("whatif", s)

	results, err := whatif.SimulateAll(ctx, s, scenarios, e.WhatIfOptions())
	if err != nil {
		log.Warn("scenario batch aborted", "error", err.Error())
		return nil, err
	}
	failed := 0
	for _, r := range results {
		if r.Err != nil {
			failed++
			log.Debug("scenario failed", "scenario", r.Scenario.Name, "error", r.Err.Error())
		}
	}
	e.bus.Publish(event.NewSimulationFinishedEvent(len(results), failed))
	return results, nil
}

// Baseline computes the variance report with the configured tolerance.
func (e *Engine) Baseline(s *schedule.Schedule) *baseline.Report {
	r := baseline.Track(s, e.cfg.Baseline.ToleranceDays)
	e.opLogger("baseline", s).Debug("variance tracked",
		"ahead", r.Ahead, "on_track", r.OnTrack, "behind", r.Behind, "excluded", r.Excluded)
	return r
}

// Layout analyses s and computes its chart geometry.
func (e *Engine) Layout(s *schedule.Schedule) (*layout.Layout, *cpm.Result, error) {
	res, err := e.Analyze(s)
	if err != nil {
		return nil, nil, err
	}
	l, err := layout.Compute(s, res, e.LayoutOptions())
	if err != nil {
		return nil, nil, err
	}
	return l, res, nil
}

// AnalyzeJob returns a Runner job analysing s. The job returns a *cpm.Result.
func (e *Engine) AnalyzeJob(s *schedule.Schedule) Job {
	return func(ctx context.Context) (any, error) {
		if err := ctx.Err(); err != nil {
			return nil, errors.Join(errors.ErrCanceled, err)
		}
		res, err := e.Analyze(s)
		if err != nil {
			return nil, err
		}
		return res, nil
	}
}

// Chart is a schedule snapshot with its analysis and geometry.
type Chart struct {
	Schedule *schedule.Schedule
	Result   *cpm.Result
	Layout   *layout.Layout
}

// LayoutJob returns a Runner job charting s. The job returns a *Chart.
func (e *Engine) LayoutJob(s *schedule.Schedule) Job {
	return func(ctx context.Context) (any, error) {
		if err := ctx.Err(); err != nil {
			return nil, errors.Join(errors.ErrCanceled, err)
		}
		l, res, err := e.Layout(s)
		if err != nil {
			return nil, err
		}
		return &Chart{Schedule: s, Result: res, Layout: l}, nil
	}
}
