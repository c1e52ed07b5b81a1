package whatif

import (
	"context"

	"github.com/sourcegraph/conc/pool"

	"github.com/Iron-Ham/gantry/internal/cpm"
	"github.com/Iron-Ham/gantry/internal/errors"
	"github.com/Iron-Ham/gantry/internal/schedule"
)

// DefaultParallel is used when Options.Parallel is not positive.
const DefaultParallel = 4

// Scenario is a named set of perturbations simulated together.
type Scenario struct {
	Name          string         `json:"name"`
	Perturbations []Perturbation `json:"perturbations"`
}

// ScenarioResult pairs a scenario with its outcome. Exactly one of Result
// and Err is set.
type ScenarioResult struct {
	Scenario Scenario `json:"scenario"`
	Result   *Result  `json:"result,omitempty"`
	Err      error    `json:"-"`
}

// SimulateAll evaluates independent scenarios against the same schedule
// concurrently. The schedule is analysed once and shared read-only between
// workers. Results are returned in the order of scenarios; a failing
// scenario records its error without affecting the others.
//
// The error return is reserved for problems with s itself and for ctx being
// cancelled before every scenario ran.
func SimulateAll(ctx context.Context, s *schedule.Schedule, scenarios []Scenario, opts Options) ([]ScenarioResult, error) {
	base, err := cpm.Analyze(s)
	if err != nil {
		return nil, err
	}

	n := opts.Parallel
	if n <= 0 {
		n = DefaultParallel
	}

	results := make([]ScenarioResult, len(scenarios))
	p := pool.New().WithContext(ctx).WithMaxGoroutines(n)
	for i, sc := range scenarios {
		p.Go(func(ctx context.Context) error {
			if err := ctx.Err(); err != nil {
				return err
			}
			r, err := simulate(s, base, sc.Perturbations, opts)
			results[i] = ScenarioResult{Scenario: sc, Result: r, Err: err}
			return nil
		})
	}
	if err := p.Wait(); err != nil {
		return nil, errors.Join(errors.ErrCanceled, err)
	}
	return results, nil
}
