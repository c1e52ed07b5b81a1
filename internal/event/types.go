// Package event defines the events gantry components publish while loading
// and analysing schedules.
package event

import "time"

// Event is the interface that all events must implement.
type Event interface {
	// EventType returns a "category.action" identifier, e.g. "analysis.completed".
	EventType() string

	// Timestamp returns when the event occurred.
	Timestamp() time.Time
}

// Event type identifiers.
const (
	TypeScheduleLoaded     = "schedule.loaded"
	TypeScheduleChanged    = "schedule.changed"
	TypeAnalysisCompleted  = "analysis.completed"
	TypeAnalysisFailed     = "analysis.failed"
	TypeResultDiscarded    = "result.discarded"
	TypeRecoveryPlanned    = "recovery.planned"
	TypeSimulationFinished = "whatif.finished"
)

type baseEvent struct {
	eventType string
	timestamp time.Time
}

func (e baseEvent) EventType() string    { return e.eventType }
func (e baseEvent) Timestamp() time.Time { return e.timestamp }

func newBaseEvent(eventType string) baseEvent {
	return baseEvent{
		eventType: eventType,
		timestamp: time.Now(),
	}
}

// -----------------------------------------------------------------------------
// Schedule Events
// -----------------------------------------------------------------------------

// ScheduleLoadedEvent is emitted after a schedule file is decoded.
type ScheduleLoadedEvent struct {
	baseEvent
	Path  string
	Name  string
	Tasks int
}

// NewScheduleLoadedEvent creates a ScheduleLoadedEvent.
func NewScheduleLoadedEvent(path, name string, tasks int) ScheduleLoadedEvent {
	return ScheduleLoadedEvent{
		baseEvent: newBaseEvent(TypeScheduleLoaded),
		Path:      path,
		Name:      name,
		Tasks:     tasks,
	}
}

// ScheduleChangedEvent is emitted when a watched schedule file changes on disk.
type ScheduleChangedEvent struct {
	baseEvent
	Path string
	Op   string // fsnotify operation, e.g. "WRITE"
}

// NewScheduleChangedEvent creates a ScheduleChangedEvent.
func NewScheduleChangedEvent(path, op string) ScheduleChangedEvent {
	return ScheduleChangedEvent{
		baseEvent: newBaseEvent(TypeScheduleChanged),
		Path:      path,
		Op:        op,
	}
}

// -----------------------------------------------------------------------------
// Analysis Events
// -----------------------------------------------------------------------------

// AnalysisCompletedEvent is emitted when a current-generation analysis finishes.
type AnalysisCompletedEvent struct {
	baseEvent
	Generation      uint64
	ProjectDuration int
	CriticalPath    []string
	Elapsed         time.Duration
}

// NewAnalysisCompletedEvent creates an AnalysisCompletedEvent.
func NewAnalysisCompletedEvent(gen uint64, duration int, path []string, elapsed time.Duration) AnalysisCompletedEvent {
	return AnalysisCompletedEvent{
		baseEvent:       newBaseEvent(TypeAnalysisCompleted),
		Generation:      gen,
		ProjectDuration: duration,
		CriticalPath:    path,
		Elapsed:         elapsed,
	}
}

// AnalysisFailedEvent is emitted when a current-generation computation fails.
type AnalysisFailedEvent struct {
	baseEvent
	Generation uint64
	Err        error
}

// NewAnalysisFailedEvent creates an AnalysisFailedEvent.
func NewAnalysisFailedEvent(gen uint64, err error) AnalysisFailedEvent {
	return AnalysisFailedEvent{
		baseEvent:  newBaseEvent(TypeAnalysisFailed),
		Generation: gen,
		Err:        err,
	}
}

// ResultDiscardedEvent is emitted when a computation finishes after a newer
// generation was submitted; its result is dropped.
type ResultDiscardedEvent struct {
	baseEvent
	Generation uint64
	Current    uint64
}

// NewResultDiscardedEvent creates a ResultDiscardedEvent.
func NewResultDiscardedEvent(gen, current uint64) ResultDiscardedEvent {
	return ResultDiscardedEvent{
		baseEvent:  newBaseEvent(TypeResultDiscarded),
		Generation: gen,
		Current:    current,
	}
}

// -----------------------------------------------------------------------------
// Planning Events
// -----------------------------------------------------------------------------

// RecoveryPlannedEvent is emitted after a recovery plan is computed.
type RecoveryPlannedEvent struct {
	baseEvent
	Met         bool
	AchievedEnd time.Time
	TargetEnd   time.Time
	Iterations  int
}

// NewRecoveryPlannedEvent creates a RecoveryPlannedEvent.
func NewRecoveryPlannedEvent(met bool, achieved, target time.Time, iterations int) RecoveryPlannedEvent {
	return RecoveryPlannedEvent{
		baseEvent:   newBaseEvent(TypeRecoveryPlanned),
		Met:         met,
		AchievedEnd: achieved,
		TargetEnd:   target,
		Iterations:  iterations,
	}
}

// SimulationFinishedEvent is emitted after a batch of what-if scenarios.
type SimulationFinishedEvent struct {
	baseEvent
	Scenarios int
	Failed    int
}

// NewSimulationFinishedEvent creates a SimulationFinishedEvent.
func NewSimulationFinishedEvent(scenarios, failed int) SimulationFinishedEvent {
	return SimulationFinishedEvent{
		baseEvent: newBaseEvent(TypeSimulationFinished),
		Scenarios: scenarios,
		Failed:    failed,
	}
}
