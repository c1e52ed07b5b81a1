package config

import (
	"fmt"
	"slices"
	"strings"
)

// ValidationError represents a single validation failure
type ValidationError struct {
	Field   string // The config field path (e.g., "engine.crash_fraction")
	Value   any    // The invalid value
	Message string // Human-readable error description
}

// Error implements the error interface for ValidationError
func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s (got: %v)", e.Field, e.Message, e.Value)
}

// ValidationErrors is a collection of validation errors
type ValidationErrors []ValidationError

// Error implements the error interface for ValidationErrors
func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return ""
	}
	if len(e) == 1 {
		return e[0].Error()
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%d validation errors:\n", len(e)))
	for i, err := range e {
		sb.WriteString(fmt.Sprintf("  %d. %s\n", i+1, err.Error()))
	}
	return sb.String()
}

// ValidLogLevels returns the list of valid log levels
func ValidLogLevels() []string {
	return []string{"debug", "info", "warn", "error"}
}

// ValidOutputFormats returns the list of valid CLI output formats
func ValidOutputFormats() []string {
	return []string{"text", "json", "yaml"}
}

// Validate checks the Config for invalid values and returns all validation errors found
func (c *Config) Validate() []ValidationError {
	var errors []ValidationError

	errors = append(errors, c.validateEngine()...)
	errors = append(errors, c.validateBaseline()...)
	errors = append(errors, c.validateCost()...)
	errors = append(errors, c.validateLayout()...)
	errors = append(errors, c.validateLogging()...)
	errors = append(errors, c.validateOutput()...)

	return errors
}

// validateEngine validates the EngineConfig
func (c *Config) validateEngine() []ValidationError {
	var errors []ValidationError

	// A fraction of 0 would disable crashing entirely, 1 would allow zero-day tasks
	if c.Engine.CrashFraction <= 0 || c.Engine.CrashFraction >= 1 {
		errors = append(errors, ValidationError{
			Field:   "engine.crash_fraction",
			Value:   c.Engine.CrashFraction,
			Message: "must be greater than 0 and less than 1",
		})
	}

	if c.Engine.MaxOverlapFraction < 0 || c.Engine.MaxOverlapFraction >= 1 {
		errors = append(errors, ValidationError{
			Field:   "engine.max_overlap_fraction",
			Value:   c.Engine.MaxOverlapFraction,
			Message: "must be at least 0 and less than 1",
		})
	}

	const maxParallel = 64
	if c.Engine.WhatIfParallel < 1 {
		errors = append(errors, ValidationError{
			Field:   "engine.whatif_parallel",
			Value:   c.Engine.WhatIfParallel,
			Message: "must be at least 1",
		})
	} else if c.Engine.WhatIfParallel > maxParallel {
		errors = append(errors, ValidationError{
			Field:   "engine.whatif_parallel",
			Value:   c.Engine.WhatIfParallel,
			Message: fmt.Sprintf("exceeds maximum of %d", maxParallel),
		})
	}

	return errors
}

// validateBaseline validates the BaselineConfig
func (c *Config) validateBaseline() []ValidationError {
	var errors []ValidationError

	if c.Baseline.ToleranceDays < 0 {
		errors = append(errors, ValidationError{
			Field:   "baseline.tolerance_days",
			Value:   c.Baseline.ToleranceDays,
			Message: "must be non-negative",
		})
	}

	return errors
}

// validateCost validates the CostConfig
func (c *Config) validateCost() []ValidationError {
	var errors []ValidationError

	if c.Cost.DailyRate < 0 {
		errors = append(errors, ValidationError{
			Field:   "cost.daily_rate",
			Value:   c.Cost.DailyRate,
			Message: "must be non-negative",
		})
	}

	if c.Cost.Cap < 0 {
		errors = append(errors, ValidationError{
			Field:   "cost.cap",
			Value:   c.Cost.Cap,
			Message: "must be non-negative (use 0 for no cap)",
		})
	}

	return errors
}

// validateLayout validates the LayoutConfig
func (c *Config) validateLayout() []ValidationError {
	var errors []ValidationError

	positive := []struct {
		field string
		value float64
	}{
		{"layout.day_width", c.Layout.DayWidth},
		{"layout.row_height", c.Layout.RowHeight},
		{"layout.bar_height", c.Layout.BarHeight},
	}
	for _, p := range positive {
		if p.value <= 0 {
			errors = append(errors, ValidationError{
				Field:   p.field,
				Value:   p.value,
				Message: "must be positive",
			})
		}
	}

	if c.Layout.BarHeight > c.Layout.RowHeight && c.Layout.RowHeight > 0 {
		errors = append(errors, ValidationError{
			Field:   "layout.bar_height",
			Value:   c.Layout.BarHeight,
			Message: fmt.Sprintf("must not exceed layout.row_height (%v)", c.Layout.RowHeight),
		})
	}

	if c.Layout.Padding < 0 {
		errors = append(errors, ValidationError{
			Field:   "layout.padding",
			Value:   c.Layout.Padding,
			Message: "must be non-negative",
		})
	}

	if c.Layout.MinLinkOffset < 0 {
		errors = append(errors, ValidationError{
			Field:   "layout.min_link_offset",
			Value:   c.Layout.MinLinkOffset,
			Message: "must be non-negative",
		})
	}

	return errors
}

// validateLogging validates the LoggingConfig
func (c *Config) validateLogging() []ValidationError {
	var errors []ValidationError

	// Validate log level
	if c.Logging.Level != "" && !slices.Contains(ValidLogLevels(), c.Logging.Level) {
		errors = append(errors, ValidationError{
			Field:   "logging.level",
			Value:   c.Logging.Level,
			Message: fmt.Sprintf("must be one of: %s", strings.Join(ValidLogLevels(), ", ")),
		})
	}

	// Max size must be positive
	if c.Logging.MaxSizeMB <= 0 {
		errors = append(errors, ValidationError{
			Field:   "logging.max_size_mb",
			Value:   c.Logging.MaxSizeMB,
			Message: "must be positive",
		})
	}

	// Reasonable upper bound for log file size
	const maxLogSizeMB = 1000 // 1GB
	if c.Logging.MaxSizeMB > maxLogSizeMB {
		errors = append(errors, ValidationError{
			Field:   "logging.max_size_mb",
			Value:   c.Logging.MaxSizeMB,
			Message: fmt.Sprintf("exceeds maximum of %dMB", maxLogSizeMB),
		})
	}

	// Max backups must be non-negative
	if c.Logging.MaxBackups < 0 {
		errors = append(errors, ValidationError{
			Field:   "logging.max_backups",
			Value:   c.Logging.MaxBackups,
			Message: "must be non-negative",
		})
	}

	if strings.ContainsRune(c.Logging.Dir, '\x00') {
		errors = append(errors, ValidationError{
			Field:   "logging.dir",
			Value:   c.Logging.Dir,
			Message: "path contains invalid null character",
		})
	}

	return errors
}

// validateOutput validates the OutputConfig
func (c *Config) validateOutput() []ValidationError {
	var errors []ValidationError

	if c.Output.Format != "" && !slices.Contains(ValidOutputFormats(), c.Output.Format) {
		errors = append(errors, ValidationError{
			Field:   "output.format",
			Value:   c.Output.Format,
			Message: fmt.Sprintf("must be one of: %s", strings.Join(ValidOutputFormats(), ", ")),
		})
	}

	if strings.ContainsRune(c.Output.Theme, 0) {
		errors = append(errors, ValidationError{
			Field:   "output.theme",
			Value:   c.Output.Theme,
			Message: "contains invalid null character",
		})
	}

	return errors
}
