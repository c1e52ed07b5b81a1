package cmd

import (
	"strings"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/Iron-Ham/gantry/internal/cmd/config"
	appconfig "github.com/Iron-Ham/gantry/internal/config"
)

// appFs is the filesystem schedules, themes and SVG files are read from
// and written to. Tests swap in a MemMapFs.
var appFs afero.Fs = afero.NewOsFs()

var rootCmd = &cobra.Command{
	Use:   "gantry",
	Short: "Construction schedule analysis",
	Long: `Gantry analyses construction schedules: it finds the critical path,
tracks variance against a baseline, plans recoveries toward a target date,
simulates delays and draws Gantt charts.

The schedule is a YAML or JSON file passed with --schedule.`,
	SilenceUsage: true,
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags
	rootCmd.PersistentFlags().StringP("config", "c", "", "config file (default is $HOME/.config/gantry/config.yaml)")
	rootCmd.PersistentFlags().StringP("schedule", "f", "schedule.yaml", "schedule file (YAML or JSON)")
	rootCmd.PersistentFlags().String("format", "", "output format: text, json or yaml (default from config)")
	rootCmd.PersistentFlags().Bool("json", false, "shorthand for --format json")
	rootCmd.PersistentFlags().Bool("no-color", false, "disable styled output")
	_ = viper.BindPFlag("config", rootCmd.PersistentFlags().Lookup("config"))

	config.Register(rootCmd)
}

func initConfig() {
	// Set defaults first so they're available even without a config file
	appconfig.SetDefaults()

	if cfgFile := viper.GetString("config"); cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(appconfig.ConfigDir())
		viper.AddConfigPath("$HOME/.config/gantry")
		viper.AddConfigPath(".")
	}

	viper.AutomaticEnv()
	viper.SetEnvPrefix("GANTRY")
	// e.g., GANTRY_BASELINE_TOLERANCE_DAYS for baseline.tolerance_days
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Read config file if it exists (ignore error if not found)
	_ = viper.ReadInConfig()
}
