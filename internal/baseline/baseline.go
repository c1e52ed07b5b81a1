// Package baseline compares a schedule's current dates against its recorded
// baseline and classifies each task as ahead, on track or behind.
package baseline

import (
	"github.com/Iron-Ham/gantry/internal/schedule"
)

// DefaultToleranceDays is the slip still considered on track.
const DefaultToleranceDays = 2

// Classification is the variance bucket of a task.
type Classification string

const (
	Ahead   Classification = "ahead"
	OnTrack Classification = "on_track"
	Behind  Classification = "behind"
)

// Entry is the variance of one task with a baseline.
type Entry struct {
	ID string `json:"id"`
	// FinishVariance is End − BaselineEnd in days; positive is late.
	FinishVariance int `json:"finish_variance_days"`
	// StartVariance is Start − BaselineStart in days, when a baseline start exists.
	StartVariance    int            `json:"start_variance_days"`
	HasStartBaseline bool           `json:"has_start_baseline"`
	Classification   Classification `json:"classification"`
}

// Report summarises variance over a schedule.
type Report struct {
	ToleranceDays int     `json:"tolerance_days"`
	Ahead         int     `json:"ahead"`
	OnTrack       int     `json:"on_track"`
	Behind        int     `json:"behind"`
	Excluded      int     `json:"excluded"`
	Entries       []Entry `json:"entries"`
}

// Classify buckets a finish variance against tolerance.
func Classify(variance, tolerance int) Classification {
	switch {
	case variance > tolerance:
		return Behind
	case variance < -tolerance:
		return Ahead
	default:
		return OnTrack
	}
}

// Track computes the variance report. Tasks without a baseline end are
// counted in Excluded and otherwise ignored. Entries are ordered by id.
// A negative tolerance is treated as zero.
func Track(s *schedule.Schedule, tolerance int) *Report {
	tolerance = max(tolerance, 0)
	r := &Report{ToleranceDays: tolerance, Entries: []Entry{}}

	for _, t := range s.Tasks() {
		if !t.HasBaseline() {
			r.Excluded++
			continue
		}

		e := Entry{
			ID:             t.ID,
			FinishVariance: schedule.DaysBetween(t.BaselineEnd, t.Finish()),
		}
		if !t.BaselineStart.IsZero() {
			e.HasStartBaseline = true
			e.StartVariance = schedule.DaysBetween(t.BaselineStart, t.Start)
		}
		e.Classification = Classify(e.FinishVariance, tolerance)

		switch e.Classification {
		case Ahead:
			r.Ahead++
		case Behind:
			r.Behind++
		default:
			r.OnTrack++
		}
		r.Entries = append(r.Entries, e)
	}
	return r
}

// Tracked returns the number of tasks that had a baseline.
func (r *Report) Tracked() int {
	return r.Ahead + r.OnTrack + r.Behind
}

// Entry returns the variance entry for id.
func (r *Report) Entry(id string) (Entry, bool) {
	for _, e := range r.Entries {
		if e.ID == id {
			return e, true
		}
	}
	return Entry{}, false
}
