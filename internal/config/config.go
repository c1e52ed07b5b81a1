package config

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// Config represents the complete gantry configuration
type Config struct {
	Engine   EngineConfig   `mapstructure:"engine" yaml:"engine"`
	Baseline BaselineConfig `mapstructure:"baseline" yaml:"baseline"`
	Cost     CostConfig     `mapstructure:"cost" yaml:"cost"`
	Layout   LayoutConfig   `mapstructure:"layout" yaml:"layout"`
	Logging  LoggingConfig  `mapstructure:"logging" yaml:"logging"`
	Output   OutputConfig   `mapstructure:"output" yaml:"output"`
}

// EngineConfig controls the recovery planner and what-if simulator
type EngineConfig struct {
	// CrashFraction is the largest share of a task's original duration that
	// crashing may remove (default: 0.2, exclusive range 0..1)
	CrashFraction float64 `mapstructure:"crash_fraction" yaml:"crash_fraction"`
	// MaxOverlapFraction is the largest share of a predecessor's duration a
	// fast-tracked successor may overlap (default: 0.5, range [0, 1))
	MaxOverlapFraction float64 `mapstructure:"max_overlap_fraction" yaml:"max_overlap_fraction"`
	// WhatIfParallel bounds how many what-if scenarios are evaluated at once (default: 4)
	WhatIfParallel int `mapstructure:"whatif_parallel" yaml:"whatif_parallel"`
}

// BaselineConfig controls variance classification
type BaselineConfig struct {
	// ToleranceDays is the slip, in either direction, still considered on track (default: 2)
	ToleranceDays int `mapstructure:"tolerance_days" yaml:"tolerance_days"`
}

// CostConfig prices schedule slips in what-if results.
// A zero DailyRate disables cost estimation.
type CostConfig struct {
	// DailyRate is the cost of one slipped task-day
	DailyRate float64 `mapstructure:"daily_rate" yaml:"daily_rate"`
	// Cap bounds a single estimate (0 = no cap)
	Cap float64 `mapstructure:"cap" yaml:"cap"`
	// Currency is the display label for amounts (default: "USD")
	Currency string `mapstructure:"currency" yaml:"currency"`
}

// LayoutConfig controls Gantt geometry
type LayoutConfig struct {
	// DayWidth is the horizontal size of one calendar day in pixels (default: 24)
	DayWidth float64 `mapstructure:"day_width" yaml:"day_width"`
	// RowHeight is the vertical pitch of task rows in pixels (default: 28)
	RowHeight float64 `mapstructure:"row_height" yaml:"row_height"`
	// BarHeight is the height of a task bar, at most RowHeight (default: 18)
	BarHeight float64 `mapstructure:"bar_height" yaml:"bar_height"`
	// Padding is the top margin above the first row (default: 8)
	Padding float64 `mapstructure:"padding" yaml:"padding"`
	// MinLinkOffset is the minimum horizontal control-point offset of dependency curves (default: 40)
	MinLinkOffset float64 `mapstructure:"min_link_offset" yaml:"min_link_offset"`
}

// LoggingConfig controls debug logging behavior
type LoggingConfig struct {
	// Enabled controls whether logs are written at all (default: true)
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`
	// Level is the log level: "debug", "info", "warn", "error" (default: "info")
	Level string `mapstructure:"level" yaml:"level"`
	// Dir is where gantry.log is written. Empty means <config dir>/logs.
	// Supports ~ for home directory expansion.
	Dir string `mapstructure:"dir" yaml:"dir"`
	// MaxSizeMB is the maximum log file size in megabytes before rotation (default: 10)
	MaxSizeMB int `mapstructure:"max_size_mb" yaml:"max_size_mb"`
	// MaxBackups is the number of backup log files to keep (default: 3)
	MaxBackups int `mapstructure:"max_backups" yaml:"max_backups"`
}

// OutputConfig controls how CLI results are printed
type OutputConfig struct {
	// Format is "text", "json" or "yaml" (default: "text")
	Format string `mapstructure:"format" yaml:"format"`
	// Color enables styled terminal output (default: true)
	Color bool `mapstructure:"color" yaml:"color"`
	// Theme is an optional path to a YAML chart theme. Empty uses the built-in theme.
	// Supports ~ for home directory expansion.
	Theme string `mapstructure:"theme" yaml:"theme"`
}

// ResolveDir returns the resolved log directory.
// If Dir is empty, it returns <ConfigDir()>/logs.
// If Dir starts with ~, it expands to the user's home directory.
func (l *LoggingConfig) ResolveDir() string {
	if l.Dir == "" {
		return filepath.Join(ConfigDir(), "logs")
	}

	return expandHome(l.Dir)
}

// ResolveTheme returns the theme path with ~ expanded. Empty means the
// built-in theme.
func (o *OutputConfig) ResolveTheme() string {
	if o.Theme == "" {
		return ""
	}
	return expandHome(o.Theme)
}

func expandHome(path string) string {
	// Expand ~ to home directory
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err == nil {
			path = filepath.Join(home, path[2:])
		}
	} else if path == "~" {
		home, err := os.UserHomeDir()
		if err == nil {
			path = home
		}
	}

	return path
}

// Default returns a Config with sensible default values
func Default() *Config {
	return &Config{
		Engine: EngineConfig{
			CrashFraction:      0.2,
			MaxOverlapFraction: 0.5,
			WhatIfParallel:     4,
		},
		Baseline: BaselineConfig{
			ToleranceDays: 2,
		},
		Cost: CostConfig{
			DailyRate: 0, // Cost estimation disabled by default
			Cap:       0,
			Currency:  "USD",
		},
		Layout: LayoutConfig{
			DayWidth:      24,
			RowHeight:     28,
			BarHeight:     18,
			Padding:       8,
			MinLinkOffset: 40,
		},
		Logging: LoggingConfig{
			Enabled:    true,
			Level:      "info",
			Dir:        "",
			MaxSizeMB:  10,
			MaxBackups: 3,
		},
		Output: OutputConfig{
			Format: "text",
			Color:  true,
			Theme:  "",
		},
	}
}

// SetDefaults registers default values with viper
func SetDefaults() {
	defaults := Default()

	// Engine defaults
	viper.SetDefault("engine.crash_fraction", defaults.Engine.CrashFraction)
	viper.SetDefault("engine.max_overlap_fraction", defaults.Engine.MaxOverlapFraction)
	viper.SetDefault("engine.whatif_parallel", defaults.Engine.WhatIfParallel)

	// Baseline defaults
	viper.SetDefault("baseline.tolerance_days", defaults.Baseline.ToleranceDays)

	// Cost defaults
	viper.SetDefault("cost.daily_rate", defaults.Cost.DailyRate)
	viper.SetDefault("cost.cap", defaults.Cost.Cap)
	viper.SetDefault("cost.currency", defaults.Cost.Currency)

	// Layout defaults
	viper.SetDefault("layout.day_width", defaults.Layout.DayWidth)
	viper.SetDefault("layout.row_height", defaults.Layout.RowHeight)
	viper.SetDefault("layout.bar_height", defaults.Layout.BarHeight)
	viper.SetDefault("layout.padding", defaults.Layout.Padding)
	viper.SetDefault("layout.min_link_offset", defaults.Layout.MinLinkOffset)

	// Logging defaults
	viper.SetDefault("logging.enabled", defaults.Logging.Enabled)
	viper.SetDefault("logging.level", defaults.Logging.Level)
	viper.SetDefault("logging.dir", defaults.Logging.Dir)
	viper.SetDefault("logging.max_size_mb", defaults.Logging.MaxSizeMB)
	viper.SetDefault("logging.max_backups", defaults.Logging.MaxBackups)

	// Output defaults
	viper.SetDefault("output.format", defaults.Output.Format)
	viper.SetDefault("output.color", defaults.Output.Color)
	viper.SetDefault("output.theme", defaults.Output.Theme)
}

// Load reads the configuration from viper into a Config struct and validates it
func Load() (*Config, error) {
	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	// Validate the configuration
	if errs := cfg.Validate(); len(errs) > 0 {
		return nil, ValidationErrors(errs)
	}

	return &cfg, nil
}

// Get returns the current configuration (convenience function)
func Get() *Config {
	cfg, err := Load()
	if err != nil {
		// Fall back to defaults if unmarshaling fails
		return Default()
	}
	return cfg
}

// ConfigDir returns the path to the user's config directory
func ConfigDir() string {
	// Check XDG_CONFIG_HOME first
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "gantry")
	}
	// Fall back to ~/.config/gantry
	home, err := os.UserHomeDir()
	if err != nil {
		return ".gantry"
	}
	return filepath.Join(home, ".config", "gantry")
}

// ConfigFile returns the path to the config file
func ConfigFile() string {
	return filepath.Join(ConfigDir(), "config.yaml")
}
