package config

import (
	"fmt"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	appconfig "github.com/Iron-Ham/gantry/internal/config"
	"github.com/Iron-Ham/gantry/internal/render"
)

// themeFs is where theme files are read and written. Replaced in tests.
var themeFs afero.Fs = afero.NewOsFs()

var themeCmd = &cobra.Command{
	Use:   "theme",
	Short: "Manage chart color themes",
	Long: `Manage the color theme used by Gantt charts.

A theme is a YAML file of hex colors. Point output.theme at one to use it:
  gantry config theme export ~/.config/gantry/night.yaml
  gantry config set output.theme ~/.config/gantry/night.yaml

Colors missing from a theme file fall back to the built-in theme.`,
}

var themeExportCmd = &cobra.Command{
	Use:   "export [output-file]",
	Short: "Export the built-in theme as a template",
	Long: `Export the built-in theme to YAML as a starting point for a custom theme.

If no output file is specified, the YAML is printed to stdout.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runThemeExport,
}

var themeCheckCmd = &cobra.Command{
	Use:   "check <theme-file>",
	Short: "Validate a theme file",
	Args:  cobra.ExactArgs(1),
	RunE:  runThemeCheck,
}

var themeShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the theme in use",
	Args:  cobra.NoArgs,
	RunE:  runThemeShow,
}

func init() {
	themeCmd.AddCommand(themeExportCmd)
	themeCmd.AddCommand(themeCheckCmd)
	themeCmd.AddCommand(themeShowCmd)
}

func runThemeExport(cmd *cobra.Command, args []string) error {
	data, err := yaml.Marshal(render.DefaultTheme())
	if err != nil {
		return fmt.Errorf("exporting theme: %w", err)
	}

	if len(args) == 1 {
		outputPath := args[0]
		if err := afero.WriteFile(themeFs, outputPath, data, 0o644); err != nil {
			return fmt.Errorf("writing to %s: %w", outputPath, err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Theme exported to: %s\n", outputPath)
		return nil
	}

	_, err = cmd.OutOrStdout().Write(data)
	return err
}

func runThemeCheck(cmd *cobra.Command, args []string) error {
	theme, err := render.LoadTheme(themeFs, args[0])
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Theme %q is valid.\n", theme.Name)
	return nil
}

func runThemeShow(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	theme := render.DefaultTheme()
	if path := appconfig.Get().Output.ResolveTheme(); path != "" {
		loaded, err := render.LoadTheme(themeFs, path)
		if err != nil {
			return err
		}
		theme = loaded
		fmt.Fprintf(out, "# Theme file: %s\n", path)
	} else {
		fmt.Fprintln(out, "# Built-in theme")
	}

	data, err := yaml.Marshal(theme)
	if err != nil {
		return err
	}
	_, err = out.Write(data)
	return err
}
