package whatif

// CostModel prices the slip of a single task. Implementations are supplied
// by the caller; the simulator only reports which tasks moved and by how much.
type CostModel interface {
	TaskCost(id string, slipDays int) float64
}

// DailyRate is a CostModel charging a flat amount per slipped day, with
// optional per-task overrides.
type DailyRate struct {
	Rate    float64
	PerTask map[string]float64
}

// TaskCost implements CostModel.
func (d DailyRate) TaskCost(id string, slipDays int) float64 {
	rate := d.Rate
	if r, ok := d.PerTask[id]; ok {
		rate = r
	}
	return rate * float64(slipDays)
}

// Options configures a simulation.
type Options struct {
	// Cost prices slipped days. Nil leaves the estimate at zero.
	Cost CostModel
	// CostCap bounds the estimate. Zero means unbounded.
	CostCap float64
	// Parallel is the number of scenarios SimulateAll evaluates at once.
	Parallel int
}

// price lists tasks whose finish moved later and prices them.
func price(slips []Slip, opts Options) CostImpact {
	ci := CostImpact{AffectedTasks: []string{}, Priced: opts.Cost != nil}
	for _, s := range slips {
		if s.FinishDays <= 0 {
			continue
		}
		ci.AffectedTasks = append(ci.AffectedTasks, s.ID)
		ci.SlippedDays += s.FinishDays
		if opts.Cost != nil {
			ci.Estimate += opts.Cost.TaskCost(s.ID, s.FinishDays)
		}
	}
	if opts.CostCap > 0 && ci.Estimate > opts.CostCap {
		ci.Estimate = opts.CostCap
		ci.Capped = true
	}
	return ci
}
