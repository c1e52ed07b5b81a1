package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"
	"gopkg.in/yaml.v3"

	"github.com/Iron-Ham/gantry/internal/config"
	"github.com/Iron-Ham/gantry/internal/engine"
	"github.com/Iron-Ham/gantry/internal/event"
	"github.com/Iron-Ham/gantry/internal/logging"
	"github.com/Iron-Ham/gantry/internal/render"
	"github.com/Iron-Ham/gantry/internal/schedule"
)

const defaultTermWidth = 100

// isTerminal reports whether w is an interactive terminal. Replaced in tests.
var isTerminal = func(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// runtime is what every analysis command needs: validated configuration,
// an engine wired to a logger and event bus, and the output settings
// resolved from flags.
type runtime struct {
	cfg    *config.Config
	logger *logging.Logger
	bus    *event.Bus
	engine *engine.Engine

	out    io.Writer
	format string
	color  bool
	theme  *render.Theme
	styles render.Styles
}

func newRuntime(cmd *cobra.Command) (*runtime, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	format, err := outputFormat(cmd, cfg)
	if err != nil {
		return nil, err
	}

	theme := render.DefaultTheme()
	if path := cfg.Output.ResolveTheme(); path != "" {
		theme, err = render.LoadTheme(appFs, path)
		if err != nil {
			return nil, err
		}
	}

	out := cmd.OutOrStdout()
	noColor, _ := cmd.Flags().GetBool("no-color")
	color := cfg.Output.Color && !noColor && isTerminal(out)

	logger := createLogger(cfg)
	bus := event.NewBus()
	bus.SetLogger(logger)

	return &runtime{
		cfg:    cfg,
		logger: logger,
		bus:    bus,
		engine: engine.New(cfg, logger, bus),
		out:    out,
		format: format,
		color:  color,
		theme:  theme,
		styles: render.NewStyles(theme, color),
	}, nil
}

// Close flushes the logger.
func (rt *runtime) Close() {
	_ = rt.logger.Close()
}

// createLogger creates a logger if logging is enabled in config.
// Returns a NopLogger if logging is disabled or if creation fails.
func createLogger(cfg *config.Config) *logging.Logger {
	if !cfg.Logging.Enabled {
		return logging.NopLogger()
	}

	rotationConfig := logging.RotationConfig{
		MaxSizeMB:  cfg.Logging.MaxSizeMB,
		MaxBackups: cfg.Logging.MaxBackups,
	}

	logger, err := logging.NewLoggerWithRotation(cfg.Logging.ResolveDir(), cfg.Logging.Level, rotationConfig)
	if err != nil {
		// Log creation failure shouldn't prevent the command from running
		fmt.Fprintf(os.Stderr, "Warning: failed to create logger: %v\n", err)
		return logging.NopLogger()
	}
	return logger
}

// outputFormat resolves --json, --format and output.format, in that order.
func outputFormat(cmd *cobra.Command, cfg *config.Config) (string, error) {
	if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
		return "json", nil
	}
	format, _ := cmd.Flags().GetString("format")
	if format == "" {
		format = cfg.Output.Format
	}
	format = strings.ToLower(format)
	if !slices.Contains(config.ValidOutputFormats(), format) {
		return "", fmt.Errorf("invalid output format: %s\nValid options: %s",
			format, strings.Join(config.ValidOutputFormats(), ", "))
	}
	return format, nil
}

// loadSchedule reads the file named by --schedule.
func loadSchedule(cmd *cobra.Command) (*schedule.Schedule, string, error) {
	path, _ := cmd.Flags().GetString("schedule")
	if path == "" {
		return nil, "", fmt.Errorf("no schedule file given (use --schedule)")
	}
	s, err := schedule.LoadFile(appFs, path)
	if err != nil {
		return nil, path, fmt.Errorf("failed to load schedule: %w", err)
	}
	return s, path, nil
}

// emit writes v as JSON or YAML, or the text rendering for the text format.
func (rt *runtime) emit(v any, text func() string) error {
	switch rt.format {
	case "json":
		enc := json.NewEncoder(rt.out)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case "yaml":
		return writeYAML(rt.out, v)
	default:
		_, err := io.WriteString(rt.out, text())
		return err
	}
}

// writeYAML encodes v through its JSON form so YAML output carries the
// same snake_case keys and date formats as JSON output.
func writeYAML(w io.Writer, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	var doc any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return err
	}
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(doc); err != nil {
		return err
	}
	return enc.Close()
}

// termWidth returns the width of w when it is a terminal.
func termWidth(w io.Writer) int {
	if f, ok := w.(*os.File); ok {
		if width, _, err := term.GetSize(int(f.Fd())); err == nil && width > 0 {
			return width
		}
	}
	return defaultTermWidth
}

// dateFlag reads an optional date flag. Unset yields the zero time.
func dateFlag(cmd *cobra.Command, name string) (time.Time, error) {
	value, _ := cmd.Flags().GetString(name)
	if value == "" {
		return time.Time{}, nil
	}
	tm, err := schedule.ParseDate(value)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid --%s: %w", name, err)
	}
	return tm, nil
}
