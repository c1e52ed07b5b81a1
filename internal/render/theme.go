package render

import (
	"errors"
	"fmt"
	"regexp"

	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"
)

// Theme is a chart color scheme, optionally loaded from YAML.
type Theme struct {
	// Name is the theme's display name
	Name string `yaml:"name"`
	// Version is the theme file format version (currently "1")
	Version string `yaml:"version"`
	// Colors defines the palette. Empty entries fall back to the default theme.
	Colors ThemeColors `yaml:"colors"`
}

// ThemeColors holds hex colors (#RGB or #RRGGBB) for every chart element.
type ThemeColors struct {
	Critical     string `yaml:"critical,omitempty"`
	Task         string `yaml:"task,omitempty"`
	Float        string `yaml:"float,omitempty"`
	Done         string `yaml:"done,omitempty"`
	Link         string `yaml:"link,omitempty"`
	CriticalLink string `yaml:"critical_link,omitempty"`
	Today        string `yaml:"today,omitempty"`
	Text         string `yaml:"text,omitempty"`
	Muted        string `yaml:"muted,omitempty"`
	Grid         string `yaml:"grid,omitempty"`
	Background   string `yaml:"background,omitempty"`
	Dimmed       string `yaml:"dimmed,omitempty"`
}

var hexColorRegex = regexp.MustCompile(`^#([0-9A-Fa-f]{3}|[0-9A-Fa-f]{6})$`)

// DefaultTheme returns the built-in dark palette.
func DefaultTheme() *Theme {
	return &Theme{
		Name:    "default",
		Version: "1",
		Colors: ThemeColors{
			Critical:     "#F87171",
			Task:         "#60A5FA",
			Float:        "#6B7280",
			Done:         "#10B981",
			Link:         "#9CA3AF",
			CriticalLink: "#F87171",
			Today:        "#FBBF24",
			Text:         "#F9FAFB",
			Muted:        "#9CA3AF",
			Grid:         "#374151",
			Background:   "#1F2937",
			Dimmed:       "#4B5563",
		},
	}
}

// LoadTheme reads a theme file from fs. Colors the file leaves out keep
// their default values.
func LoadTheme(fs afero.Fs, path string) (*Theme, error) {
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		return nil, fmt.Errorf("reading theme file: %w", err)
	}

	var theme Theme
	if err := yaml.Unmarshal(data, &theme); err != nil {
		return nil, fmt.Errorf("parsing theme file: %w", err)
	}
	if err := theme.Validate(); err != nil {
		return nil, fmt.Errorf("invalid theme: %w", err)
	}

	theme.Colors = theme.Colors.withDefaults(DefaultTheme().Colors)
	return &theme, nil
}

// Validate checks that the theme is well-formed.
func (t *Theme) Validate() error {
	if t.Name == "" {
		return errors.New("theme name is required")
	}
	if t.Version == "" {
		return errors.New("theme version is required")
	}
	if t.Version != "1" {
		return fmt.Errorf("unsupported theme version: %s (supported: 1)", t.Version)
	}

	for _, c := range t.Colors.named() {
		if c.value != "" && !hexColorRegex.MatchString(c.value) {
			return fmt.Errorf("color '%s' has invalid format: %s (expected #RGB or #RRGGBB)", c.name, c.value)
		}
	}
	return nil
}

type namedColor struct {
	name  string
	value string
}

// named lists the colors in a stable order so validation errors are deterministic.
func (c ThemeColors) named() []namedColor {
	return []namedColor{
		{"critical", c.Critical},
		{"task", c.Task},
		{"float", c.Float},
		{"done", c.Done},
		{"link", c.Link},
		{"critical_link", c.CriticalLink},
		{"today", c.Today},
		{"text", c.Text},
		{"muted", c.Muted},
		{"grid", c.Grid},
		{"background", c.Background},
		{"dimmed", c.Dimmed},
	}
}

func (c ThemeColors) withDefaults(d ThemeColors) ThemeColors {
	return ThemeColors{
		Critical:     colorOrDefault(c.Critical, d.Critical),
		Task:         colorOrDefault(c.Task, d.Task),
		Float:        colorOrDefault(c.Float, d.Float),
		Done:         colorOrDefault(c.Done, d.Done),
		Link:         colorOrDefault(c.Link, d.Link),
		CriticalLink: colorOrDefault(c.CriticalLink, d.CriticalLink),
		Today:        colorOrDefault(c.Today, d.Today),
		Text:         colorOrDefault(c.Text, d.Text),
		Muted:        colorOrDefault(c.Muted, d.Muted),
		Grid:         colorOrDefault(c.Grid, d.Grid),
		Background:   colorOrDefault(c.Background, d.Background),
		Dimmed:       colorOrDefault(c.Dimmed, d.Dimmed),
	}
}

func colorOrDefault(color, fallback string) string {
	if color != "" {
		return color
	}
	return fallback
}
