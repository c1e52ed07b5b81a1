// Package config provides CLI commands for managing gantry configuration.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"sort"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	appconfig "github.com/Iron-Ham/gantry/internal/config"
	"github.com/Iron-Ham/gantry/internal/logging"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "View or modify gantry configuration",
	Long: `View or modify gantry configuration.

Use 'config show' to display the effective configuration.
Use subcommands to modify settings or create a config file.`,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	Args:  cobra.NoArgs,
	RunE:  runConfigShow,
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a configuration value",
	Long: `Set a configuration value in the config file.

Keys use dot notation, e.g.:
  gantry config set baseline.tolerance_days 3
  gantry config set cost.daily_rate 1800
  gantry config set output.format json

Valid keys:
  engine.crash_fraction        - Largest share of a task crashing may remove (0-1)
  engine.max_overlap_fraction  - Largest share of a predecessor fast-tracking may overlap (0-1)
  engine.whatif_parallel       - Scenarios simulated at once
  baseline.tolerance_days      - Days of slip still on track
  cost.daily_rate              - Cost of one slipped task-day (0 disables pricing)
  cost.cap                     - Upper bound of one estimate (0 = no cap)
  cost.currency                - Currency label for amounts
  layout.day_width             - Pixels per day
  layout.row_height            - Pixels per row
  layout.bar_height            - Bar height in pixels
  layout.padding               - Top margin in pixels
  layout.min_link_offset       - Minimum curve offset of dependency links
  logging.enabled              - Write a debug log (true/false)
  logging.level                - debug, info, warn, error
  logging.dir                  - Log directory
  logging.max_size_mb          - Log size before rotation
  logging.max_backups          - Rotated logs to keep
  output.format                - text, json, yaml
  output.color                 - Styled terminal output (true/false)
  output.theme                 - Path to a YAML chart theme`,
	Args: cobra.ExactArgs(2),
	RunE: runConfigSet,
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Create a default config file",
	Long:  `Create a default config file at ~/.config/gantry/config.yaml with all available options.`,
	Args:  cobra.NoArgs,
	RunE:  runConfigInit,
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Show the config file path",
	Args:  cobra.NoArgs,
	RunE:  runConfigPath,
}

var configValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Check the configuration for invalid values",
	Args:  cobra.NoArgs,
	RunE:  runConfigValidate,
}

func init() {
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configPathCmd)
	configCmd.AddCommand(configValidateCmd)
	configCmd.AddCommand(themeCmd)
}

// Register adds all config-related commands to the given parent command.
// This is the main entry point for integrating the config subpackage with
// the root command.
func Register(parent *cobra.Command) {
	parent.AddCommand(configCmd)
}

// keyTypes maps every settable key to the type its value is parsed as.
var keyTypes = map[string]string{
	"engine.crash_fraction":       "float",
	"engine.max_overlap_fraction": "float",
	"engine.whatif_parallel":      "int",
	"baseline.tolerance_days":     "int",
	"cost.daily_rate":             "float",
	"cost.cap":                    "float",
	"cost.currency":               "string",
	"layout.day_width":            "float",
	"layout.row_height":           "float",
	"layout.bar_height":           "float",
	"layout.padding":              "float",
	"layout.min_link_offset":      "float",
	"logging.enabled":             "bool",
	"logging.level":               "level",
	"logging.dir":                 "string",
	"logging.max_size_mb":         "int",
	"logging.max_backups":         "int",
	"output.format":               "format",
	"output.color":                "bool",
	"output.theme":                "string",
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	cfg := appconfig.Get()

	if viper.ConfigFileUsed() != "" {
		fmt.Fprintf(out, "# Config file: %s\n", viper.ConfigFileUsed())
	} else {
		fmt.Fprintln(out, "# Config file: (none - using defaults)")
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to encode configuration: %w", err)
	}
	_, err = out.Write(data)
	return err
}

func parseValue(key, value string) (any, error) {
	keyType, ok := keyTypes[key]
	if !ok {
		return nil, fmt.Errorf("unknown configuration key: %s\nRun 'gantry config set --help' to see valid keys", key)
	}

	switch keyType {
	case "level":
		if !slices.Contains(appconfig.ValidLogLevels(), strings.ToLower(value)) {
			return nil, fmt.Errorf("invalid value for %s: %s\nValid options: %s",
				key, value, strings.Join(appconfig.ValidLogLevels(), ", "))
		}
		return strings.ToLower(value), nil
	case "format":
		if !slices.Contains(appconfig.ValidOutputFormats(), strings.ToLower(value)) {
			return nil, fmt.Errorf("invalid value for %s: %s\nValid options: %s",
				key, value, strings.Join(appconfig.ValidOutputFormats(), ", "))
		}
		return strings.ToLower(value), nil
	case "bool":
		if value != "true" && value != "false" {
			return nil, fmt.Errorf("invalid value for %s: expected true or false", key)
		}
		return value == "true", nil
	case "int":
		intVal, err := strconv.Atoi(value)
		if err != nil {
			return nil, fmt.Errorf("invalid value for %s: expected integer", key)
		}
		if intVal < 0 {
			return nil, fmt.Errorf("invalid value for %s: must be non-negative", key)
		}
		return intVal, nil
	case "float":
		f, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid value for %s: expected number", key)
		}
		return f, nil
	}
	return value, nil
}

// targetFile is the file config changes are written to: the file in use,
// or the default location.
func targetFile() string {
	if used := viper.ConfigFileUsed(); used != "" {
		return used
	}
	return appconfig.ConfigFile()
}

func runConfigSet(cmd *cobra.Command, args []string) error {
	key, value := args[0], args[1]

	typedValue, err := parseValue(key, value)
	if err != nil {
		return err
	}

	previous := viper.Get(key)
	viper.Set(key, typedValue)

	// Range checks live in Validate; reject values that would make the
	// whole configuration invalid.
	if _, err := appconfig.Load(); err != nil {
		viper.Set(key, previous)
		return fmt.Errorf("invalid value for %s: %w", key, err)
	}

	configFile := targetFile()
	if err := os.MkdirAll(filepath.Dir(configFile), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := viper.WriteConfigAs(configFile); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Set %s = %v\n", key, typedValue)
	fmt.Fprintf(out, "Config saved to %s\n", configFile)
	return nil
}

// defaultConfigContent is written by 'config init'.
const defaultConfigContent = `# Gantry Configuration

# Schedule compression bounds used by 'gantry recover'
engine:
  # Largest share of a task's duration crashing may remove (exclusive 0..1)
  crash_fraction: 0.2
  # Largest share of a predecessor's duration a fast-tracked successor may overlap
  max_overlap_fraction: 0.5
  # Scenarios simulated at once by 'gantry whatif --scenarios'
  whatif_parallel: 4

# Variance classification used by 'gantry baseline'
baseline:
  # Days of slip, either way, still considered on track
  tolerance_days: 2

# Pricing of slipped days in what-if results
cost:
  # Cost of one slipped task-day (0 disables pricing)
  daily_rate: 0
  # Upper bound of a single estimate (0 = no cap)
  cap: 0
  currency: USD

# Gantt chart geometry in pixels
layout:
  day_width: 24
  row_height: 28
  bar_height: 18
  padding: 8
  min_link_offset: 40

# Debug log written to <config dir>/logs/gantry.log
logging:
  enabled: true
  # debug, info, warn, error
  level: info
  max_size_mb: 10
  max_backups: 3

output:
  # text, json or yaml
  format: text
  color: true
  # Path to a YAML chart theme; 'gantry config theme export' writes a template
  theme: ""
`

func runConfigInit(cmd *cobra.Command, args []string) error {
	configFile := appconfig.ConfigFile()

	// Check if config file already exists
	if _, err := os.Stat(configFile); err == nil {
		return fmt.Errorf("config file already exists at %s\nUse 'gantry config set' to modify values", configFile)
	}

	if err := os.MkdirAll(appconfig.ConfigDir(), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := os.WriteFile(configFile, []byte(defaultConfigContent), 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Created config file at %s\n", configFile)
	fmt.Fprintln(out, "Edit this file to customize gantry's behavior.")
	return nil
}

func runConfigPath(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()

	if viper.ConfigFileUsed() != "" {
		fmt.Fprintf(out, "Active config: %s\n", viper.ConfigFileUsed())
	} else {
		fmt.Fprintf(out, "Default path: %s (not created)\n", appconfig.ConfigFile())
	}

	// Also show config search paths
	fmt.Fprintln(out, "\nSearch paths:")
	fmt.Fprintf(out, "  1. %s\n", filepath.Join(appconfig.ConfigDir(), "config.yaml"))
	fmt.Fprintf(out, "  2. $HOME/.config/gantry/config.yaml\n")
	fmt.Fprintf(out, "  3. ./config.yaml (current directory)\n")
	fmt.Fprintln(out, "\nEnvironment variables: GANTRY_* (e.g., GANTRY_BASELINE_TOLERANCE_DAYS)")
	fmt.Fprintf(out, "Log directory: %s (%s)\n", appconfig.Get().Logging.ResolveDir(), logging.LogFileName)
	return nil
}

func runConfigValidate(cmd *cobra.Command, args []string) error {
	var cfg appconfig.Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return fmt.Errorf("failed to read configuration: %w", err)
	}

	errs := cfg.Validate()
	if len(errs) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "Configuration is valid.")
		return nil
	}

	sort.SliceStable(errs, func(i, j int) bool { return errs[i].Field < errs[j].Field })
	out := cmd.OutOrStdout()
	for _, e := range errs {
		fmt.Fprintf(out, "  %s\n", e.Error())
	}
	return fmt.Errorf("configuration has %d invalid value(s)", len(errs))
}
