// Package errors provides centralized error definitions and error handling utilities
// for the gantry scheduling engine. It defines the engine's error taxonomy, error
// constructors with context, and classification helpers.
//
// # Error Types
//
// The package provides three domain error categories that mirror how callers are
// expected to react:
//   - ValidationError: the schedule (or a perturbation of it) is structurally
//     invalid. Fatal for the requested operation, no partial result is returned.
//   - ComputationError: the operation cannot run on the given input at all
//     (for example an empty schedule).
//   - PlanningError: a non-fatal shortfall reported alongside a best-effort
//     result (for example an infeasible recovery target).
//
// One semantic error is shared across packages:
//   - NotFoundError: a referenced task does not exist
//
// # Usage
//
// Creating errors:
//
//	err := errors.NewValidationError(errors.KindCyclicDependency, "dependency cycle detected").
//	    WithTaskID("a").
//	    WithRelated("a", "b", "a")
//
// Checking errors:
//
//	if errors.Is(err, errors.ErrCyclicDependency) { ... }
//
//	var planErr *errors.PlanningError
//	if errors.As(err, &planErr) {
//	    fmt.Println(planErr.AchievedEnd)
//	}
package errors

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Re-export standard library functions for convenience.
// This allows callers to import only this package for all error handling.
var (
	Is     = errors.Is
	As     = errors.As
	Unwrap = errors.Unwrap
	New    = errors.New
	Join   = errors.Join
)

// Severity represents the severity level of an error.
type Severity int

const (
	// SeverityDebug is for errors that are useful for debugging but not critical.
	SeverityDebug Severity = iota
	// SeverityInfo is for informational errors that don't indicate a problem.
	SeverityInfo
	// SeverityWarning is for errors that might indicate a problem but aren't critical.
	SeverityWarning
	// SeverityError is for errors that indicate a real problem.
	SeverityError
	// SeverityCritical is for errors that require immediate attention.
	SeverityCritical
)

// String returns the string representation of the severity level.
func (s Severity) String() string {
	switch s {
	case SeverityDebug:
		return "debug"
	case SeverityInfo:
		return "info"
	case SeverityWarning:
		return "warning"
	case SeverityError:
		return "error"
	case SeverityCritical:
		return "critical"
	default:
		return "unknown"
	}
}

// Kind identifies a specific failure within an error category.
type Kind string

// Validation kinds
const (
	KindCyclicDependency            Kind = "CyclicDependency"
	KindDanglingDependencyReference Kind = "DanglingDependencyReference"
	KindInvalidDateRange            Kind = "InvalidDateRange"
	KindNonPositiveDuration         Kind = "NonPositiveDuration"
	KindInvalidLead                 Kind = "InvalidLead"
	KindDuplicateTaskID             Kind = "DuplicateTaskID"
	KindInvalidField                Kind = "InvalidField"
)

// Computation kinds
const (
	KindEmptySchedule Kind = "EmptySchedule"
)

// Planning kinds
const (
	KindTargetInfeasible Kind = "TargetInfeasible"
)

// -----------------------------------------------------------------------------
// Sentinel Errors
// -----------------------------------------------------------------------------

// Validation sentinel errors
var (
	// ErrCyclicDependency indicates the dependency relation contains a cycle.
	ErrCyclicDependency = New("cyclic dependency")
	// ErrDanglingDependencyReference indicates a dependency names an unknown task.
	ErrDanglingDependencyReference = New("dangling dependency reference")
	// ErrInvalidDateRange indicates a task ends before it starts.
	ErrInvalidDateRange = New("invalid date range")
	// ErrNonPositiveDuration indicates a task duration below one day.
	ErrNonPositiveDuration = New("non-positive duration")
	// ErrInvalidLead indicates a lead that is not attached to a dependency or is out of range.
	ErrInvalidLead = New("invalid lead")
	// ErrDuplicateTaskID indicates two tasks share an id.
	ErrDuplicateTaskID = New("duplicate task id")
	// ErrInvalidField indicates a task field could not be decoded.
	ErrInvalidField = New("invalid field")
)

// Computation and planning sentinel errors
var (
	// ErrEmptySchedule indicates an operation that requires at least one task.
	ErrEmptySchedule = New("empty schedule")
	// ErrTargetInfeasible indicates a recovery target that could not be met.
	ErrTargetInfeasible = New("target infeasible")
)

// General sentinel errors
var (
	// ErrTaskNotFound indicates a task id that is not part of the schedule.
	ErrTaskNotFound = New("task not found")
	// ErrInvalidInput indicates that input validation failed.
	ErrInvalidInput = New("invalid input")
	// ErrCanceled indicates that an operation was canceled.
	ErrCanceled = New("operation canceled")
)

var kindSentinels = map[Kind]error{
	KindCyclicDependency:            ErrCyclicDependency,
	KindDanglingDependencyReference: ErrDanglingDependencyReference,
	KindInvalidDateRange:            ErrInvalidDateRange,
	KindNonPositiveDuration:         ErrNonPositiveDuration,
	KindInvalidLead:                 ErrInvalidLead,
	KindDuplicateTaskID:             ErrDuplicateTaskID,
	KindInvalidField:                ErrInvalidField,
	KindEmptySchedule:               ErrEmptySchedule,
	KindTargetInfeasible:            ErrTargetInfeasible,
}

// Sentinel returns the sentinel error matched by errors of the given kind,
// or nil for an unknown kind.
func (k Kind) Sentinel() error {
	return kindSentinels[k]
}

// -----------------------------------------------------------------------------
// Base Error Interface
// -----------------------------------------------------------------------------

// GantryError is the base interface for all engine errors.
// It extends the standard error interface with additional methods for
// error handling and classification.
type GantryError interface {
	error

	// Unwrap returns the underlying error, if any.
	Unwrap() error

	// Is reports whether this error matches the target error.
	// This is used by errors.Is() for error comparison.
	Is(target error) bool

	// Severity returns the severity level of this error.
	Severity() Severity

	// IsUserFacing returns true if the error message is safe to display
	// to end users.
	IsUserFacing() bool
}

// -----------------------------------------------------------------------------
// Base Error Implementation
// -----------------------------------------------------------------------------

// baseError provides common functionality for all error types.
type baseError struct {
	kind       Kind
	message    string
	cause      error
	severity   Severity
	userFacing bool
}

// Error returns the error message.
func (e *baseError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.message, e.cause)
	}
	return e.message
}

// Unwrap returns the underlying error.
func (e *baseError) Unwrap() error {
	return e.cause
}

// Is checks if this error matches the target.
func (e *baseError) Is(target error) bool {
	if sentinel := e.kind.Sentinel(); sentinel != nil && target == sentinel {
		return true
	}
	if e.cause != nil {
		return errors.Is(e.cause, target)
	}
	return false
}

// Kind returns the failure kind.
func (e *baseError) Kind() Kind {
	return e.kind
}

// Severity returns the error severity.
func (e *baseError) Severity() Severity {
	return e.severity
}

// IsUserFacing returns whether the error is safe to show users.
func (e *baseError) IsUserFacing() bool {
	return e.userFacing
}

// formatWithContext renders "<prefix> [k=v, ...]: message: cause".
func (e *baseError) formatWithContext(prefix string, parts []string) string {
	if len(parts) > 0 {
		prefix = fmt.Sprintf("%s [%s]", prefix, strings.Join(parts, ", "))
	}
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", prefix, e.message, e.cause)
	}
	return fmt.Sprintf("%s: %s", prefix, e.message)
}

// -----------------------------------------------------------------------------
// Domain Errors
// -----------------------------------------------------------------------------

// ValidationError represents a structurally invalid schedule.
//
// Example:
//
//	err := errors.NewValidationError(errors.KindDanglingDependencyReference, "unknown dependency").
//	    WithTaskID("pour-slab").
//	    WithRelated("formwork")
//	fmt.Println(err) // "validation error [kind=DanglingDependencyReference, task=pour-slab, related=formwork]: unknown dependency"
type ValidationError struct {
	baseError
	TaskID  string
	Field   string
	Related []string
}

// NewValidationError creates a new ValidationError of the given kind.
func NewValidationError(kind Kind, message string) *ValidationError {
	return &ValidationError{
		baseError: baseError{
			kind:       kind,
			message:    message,
			severity:   SeverityError,
			userFacing: true,
		},
	}
}

// WithTaskID adds the offending task id to the error context.
func (e *ValidationError) WithTaskID(id string) *ValidationError {
	e.TaskID = id
	return e
}

// WithField adds the offending field name to the error context.
func (e *ValidationError) WithField(field string) *ValidationError {
	e.Field = field
	return e
}

// WithRelated records related task ids (a cycle path, a missing dependency).
func (e *ValidationError) WithRelated(ids ...string) *ValidationError {
	e.Related = append(e.Related, ids...)
	return e
}

// WithCause adds a cause to the error.
func (e *ValidationError) WithCause(cause error) *ValidationError {
	e.cause = cause
	return e
}

// Error returns the formatted error message.
func (e *ValidationError) Error() string {
	parts := []string{fmt.Sprintf("kind=%s", e.kind)}
	if e.TaskID != "" {
		parts = append(parts, fmt.Sprintf("task=%s", e.TaskID))
	}
	if e.Field != "" {
		parts = append(parts, fmt.Sprintf("field=%s", e.Field))
	}
	if len(e.Related) > 0 {
		parts = append(parts, fmt.Sprintf("related=%s", strings.Join(e.Related, "->")))
	}
	return e.formatWithContext("validation error", parts)
}

// Is checks if this error matches the target.
func (e *ValidationError) Is(target error) bool {
	if _, ok := target.(*ValidationError); ok {
		return true
	}
	if target == ErrInvalidInput {
		return true
	}
	return e.baseError.Is(target)
}

// ComputationError represents an operation that cannot run on its input.
type ComputationError struct {
	baseError
	Operation string
}

// NewComputationError creates a new ComputationError.
func NewComputationError(kind Kind, operation string) *ComputationError {
	return &ComputationError{
		baseError: baseError{
			kind:       kind,
			message:    fmt.Sprintf("%s requires at least one task", operation),
			severity:   SeverityError,
			userFacing: true,
		},
		Operation: operation,
	}
}

// Error returns the formatted error message.
func (e *ComputationError) Error() string {
	return e.formatWithContext("computation error", []string{fmt.Sprintf("kind=%s", e.kind)})
}

// Is checks if this error matches the target.
func (e *ComputationError) Is(target error) bool {
	if _, ok := target.(*ComputationError); ok {
		return true
	}
	return e.baseError.Is(target)
}

// PlanningError is a non-fatal shortfall returned alongside a best-effort result.
//
// Example:
//
//	plan, err := recovery.Recover(s, target, opts)
//	var planErr *errors.PlanningError
//	if errors.As(err, &planErr) {
//	    // plan is still usable; planErr.AchievedEnd is the best end date found
//	}
type PlanningError struct {
	baseError
	AchievedEnd time.Time
	TargetEnd   time.Time
}

// NewTargetInfeasibleError creates a PlanningError for a recovery target that
// could not be met after all strategies were exhausted.
func NewTargetInfeasibleError(achieved, target time.Time) *PlanningError {
	short := int(achieved.Sub(target).Hours() / 24)
	return &PlanningError{
		baseError: baseError{
			kind:       KindTargetInfeasible,
			message:    fmt.Sprintf("best achievable end %s misses target %s by %d day(s)", achieved.Format(time.DateOnly), target.Format(time.DateOnly), short),
			severity:   SeverityWarning,
			userFacing: true,
		},
		AchievedEnd: achieved,
		TargetEnd:   target,
	}
}

// Error returns the formatted error message.
func (e *PlanningError) Error() string {
	return e.formatWithContext("planning error", []string{fmt.Sprintf("kind=%s", e.kind)})
}

// Is checks if this error matches the target.
func (e *PlanningError) Is(target error) bool {
	if _, ok := target.(*PlanningError); ok {
		return true
	}
	return e.baseError.Is(target)
}

// -----------------------------------------------------------------------------
// Semantic Errors
// -----------------------------------------------------------------------------

// NotFoundError represents a resource that could not be found.
//
// Example:
//
//	err := errors.NewNotFoundError("task", "excavation")
//	fmt.Println(err) // "task 'excavation' not found"
type NotFoundError struct {
	baseError
	ResourceType string
	ResourceID   string
}

// NewNotFoundError creates a new NotFoundError.
func NewNotFoundError(resourceType, resourceID string) *NotFoundError {
	return &NotFoundError{
		baseError: baseError{
			message:    fmt.Sprintf("%s '%s' not found", resourceType, resourceID),
			severity:   SeverityWarning,
			userFacing: true,
		},
		ResourceType: resourceType,
		ResourceID:   resourceID,
	}
}

// Error returns the formatted error message.
func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s '%s' not found", e.ResourceType, e.ResourceID)
}

// Is checks if this error matches the target.
func (e *NotFoundError) Is(target error) bool {
	if _, ok := target.(*NotFoundError); ok {
		return true
	}
	if target == ErrTaskNotFound && e.ResourceType == "task" {
		return true
	}
	return e.baseError.Is(target)
}

// -----------------------------------------------------------------------------
// Error Classification Helpers
// -----------------------------------------------------------------------------

// KindOf returns the Kind carried by err, or "" if err carries none.
func KindOf(err error) Kind {
	var v *ValidationError
	if As(err, &v) {
		return v.kind
	}
	var c *ComputationError
	if As(err, &c) {
		return c.kind
	}
	var p *PlanningError
	if As(err, &p) {
		return p.kind
	}
	return ""
}

// IsFatal reports whether err should abort the caller's operation. Planning
// errors accompany a usable result and are therefore not fatal.
func IsFatal(err error) bool {
	if err == nil {
		return false
	}
	var p *PlanningError
	return !As(err, &p)
}

// IsUserFacing returns true if the error message is safe to display to end users.
func IsUserFacing(err error) bool {
	if err == nil {
		return false
	}

	var gantryErr GantryError
	if As(err, &gantryErr) {
		return gantryErr.IsUserFacing()
	}
	return false
}

// GetSeverity returns the severity level of the error.
// Returns SeverityError for errors that don't implement GantryError.
func GetSeverity(err error) Severity {
	if err == nil {
		return SeverityDebug
	}

	var gantryErr GantryError
	if As(err, &gantryErr) {
		return gantryErr.Severity()
	}
	return SeverityError
}

// -----------------------------------------------------------------------------
// Convenience Constructors
// -----------------------------------------------------------------------------

// Wrap wraps an error with additional context message.
// Unlike a bare fmt.Errorf, it returns nil for a nil error.
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// Wrapf wraps an error with a formatted context message.
func Wrapf(err error, format string, args ...any) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), err)
}
