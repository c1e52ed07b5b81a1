package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/viper"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg == nil {
		t.Fatal("Default() returned nil")
	}

	// Verify default engine config
	if cfg.Engine.CrashFraction != 0.2 {
		t.Errorf("Engine.CrashFraction = %v, want 0.2", cfg.Engine.CrashFraction)
	}
	if cfg.Engine.MaxOverlapFraction != 0.5 {
		t.Errorf("Engine.MaxOverlapFraction = %v, want 0.5", cfg.Engine.MaxOverlapFraction)
	}
	if cfg.Engine.WhatIfParallel != 4 {
		t.Errorf("Engine.WhatIfParallel = %d, want 4", cfg.Engine.WhatIfParallel)
	}

	// Verify default baseline config
	if cfg.Baseline.ToleranceDays != 2 {
		t.Errorf("Baseline.ToleranceDays = %d, want 2", cfg.Baseline.ToleranceDays)
	}

	// Verify default layout config
	if cfg.Layout.DayWidth != 24 {
		t.Errorf("Layout.DayWidth = %v, want 24", cfg.Layout.DayWidth)
	}
	if cfg.Layout.RowHeight != 28 {
		t.Errorf("Layout.RowHeight = %v, want 28", cfg.Layout.RowHeight)
	}
	if cfg.Layout.MinLinkOffset != 40 {
		t.Errorf("Layout.MinLinkOffset = %v, want 40", cfg.Layout.MinLinkOffset)
	}

	// Verify cost estimation is off
	if cfg.Cost.DailyRate != 0 {
		t.Errorf("Cost.DailyRate = %v, want 0", cfg.Cost.DailyRate)
	}

	if cfg.Output.Format != "text" {
		t.Errorf("Output.Format = %q, want %q", cfg.Output.Format, "text")
	}
	if !cfg.Logging.Enabled {
		t.Error("Logging.Enabled should be true by default")
	}
}

func TestConfigDir(t *testing.T) {
	t.Run("with XDG_CONFIG_HOME", func(t *testing.T) {
		t.Setenv("XDG_CONFIG_HOME", "/custom/config")
		result := ConfigDir()
		expected := "/custom/config/gantry"
		if result != expected {
			t.Errorf("ConfigDir() = %q, want %q", result, expected)
		}
	})

	t.Run("without XDG_CONFIG_HOME", func(t *testing.T) {
		t.Setenv("XDG_CONFIG_HOME", "")
		result := ConfigDir()

		// Should be based on home directory
		home, _ := os.UserHomeDir()
		expected := filepath.Join(home, ".config", "gantry")
		if result != expected {
			t.Errorf("ConfigDir() = %q, want %q", result, expected)
		}
	})
}

func TestConfigFile(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "/custom/config")
	result := ConfigFile()
	expected := "/custom/config/gantry/config.yaml"
	if result != expected {
		t.Errorf("ConfigFile() = %q, want %q", result, expected)
	}
}

func TestLoggingConfig_ResolveDir(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "/custom/config")
	home, _ := os.UserHomeDir()

	tests := []struct {
		name string
		dir  string
		want string
	}{
		{"empty uses config dir", "", "/custom/config/gantry/logs"},
		{"absolute", "/var/log/gantry", "/var/log/gantry"},
		{"tilde prefix", "~/logs", filepath.Join(home, "logs")},
		{"bare tilde", "~", home},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := LoggingConfig{Dir: tt.dir}
			if got := l.ResolveDir(); got != tt.want {
				t.Errorf("ResolveDir() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestOutputConfig_ResolveTheme(t *testing.T) {
	home, _ := os.UserHomeDir()

	tests := []struct {
		theme string
		want  string
	}{
		{"", ""},
		{"/etc/gantry/night.yaml", "/etc/gantry/night.yaml"},
		{"~/themes/night.yaml", filepath.Join(home, "themes/night.yaml")},
	}
	for _, tt := range tests {
		o := OutputConfig{Theme: tt.theme}
		if got := o.ResolveTheme(); got != tt.want {
			t.Errorf("ResolveTheme(%q) = %q, want %q", tt.theme, got, tt.want)
		}
	}
}

func TestGet(t *testing.T) {
	viper.Reset()
	defer viper.Reset()

	// Set defaults in viper first (normally done by cmd init)
	SetDefaults()

	cfg := Get()
	if cfg == nil {
		t.Fatal("Get() returned nil")
	}
	if cfg.Layout.DayWidth != 24 {
		t.Errorf("Get().Layout.DayWidth = %v, want 24", cfg.Layout.DayWidth)
	}
}

func TestLoad_FromYAML(t *testing.T) {
	viper.Reset()
	defer viper.Reset()
	SetDefaults()

	viper.SetConfigType("yaml")
	yaml := `
engine:
  crash_fraction: 0.3
baseline:
  tolerance_days: 5
layout:
  day_width: 12
`
	if err := viper.ReadConfig(strings.NewReader(yaml)); err != nil {
		t.Fatalf("ReadConfig: %v", err)
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Engine.CrashFraction != 0.3 {
		t.Errorf("CrashFraction = %v, want 0.3", cfg.Engine.CrashFraction)
	}
	if cfg.Baseline.ToleranceDays != 5 {
		t.Errorf("ToleranceDays = %d, want 5", cfg.Baseline.ToleranceDays)
	}
	if cfg.Layout.DayWidth != 12 {
		t.Errorf("DayWidth = %v, want 12", cfg.Layout.DayWidth)
	}
	// untouched keys keep their defaults
	if cfg.Engine.MaxOverlapFraction != 0.5 {
		t.Errorf("MaxOverlapFraction = %v, want default 0.5", cfg.Engine.MaxOverlapFraction)
	}
}

func TestLoad_Invalid(t *testing.T) {
	viper.Reset()
	defer viper.Reset()
	SetDefaults()

	viper.Set("engine.crash_fraction", 1.5)
	viper.Set("output.format", "xml")

	cfg, err := Load()
	if err == nil {
		t.Fatal("Load() should fail for invalid values")
	}
	if cfg != nil {
		t.Error("Load() should not return a config on validation failure")
	}

	var verrs ValidationErrors
	if !errors.As(err, &verrs) {
		t.Fatalf("error type = %T, want ValidationErrors", err)
	}
	if len(verrs) != 2 {
		t.Errorf("got %d validation errors, want 2: %v", len(verrs), verrs)
	}

	// Get falls back to defaults
	if Get().Engine.CrashFraction != 0.2 {
		t.Error("Get() should fall back to defaults on invalid config")
	}
}
