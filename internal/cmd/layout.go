package cmd

import (
	"bytes"
	"fmt"
	"io"
	"time"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/Iron-Ham/gantry/internal/layout"
	"github.com/Iron-Ham/gantry/internal/render"
	"github.com/Iron-Ham/gantry/internal/schedule"
)

var layoutCmd = &cobra.Command{
	Use:   "layout",
	Short: "Draw the schedule as a Gantt chart",
	Long: `Lay the schedule out as a Gantt chart.

By default a text chart is printed. With --svg the chart is written as an
SVG document ("-" writes it to standard output). With --json or --format
the computed geometry (bars, dependency curves) is printed instead.

--highlight traces the dependencies of one task and dims everything else.`,
	Args: cobra.NoArgs,
	RunE: runLayout,
}

var (
	layoutSVG       string
	layoutTitle     string
	layoutHighlight string
)

func init() {
	layoutCmd.Flags().StringVar(&layoutSVG, "svg", "", "Write an SVG chart to this file (- for stdout)")
	layoutCmd.Flags().StringVar(&layoutTitle, "title", "", "Chart title (default: schedule name)")
	layoutCmd.Flags().StringVar(&layoutHighlight, "highlight", "", "Trace the dependencies of this task")
	layoutCmd.Flags().String("today", "", "Draw a today marker at this date, or 'now'")
	rootCmd.AddCommand(layoutCmd)
}

// todayFlag reads --today, accepting "now" for the current date.
func todayFlag(cmd *cobra.Command) (time.Time, error) {
	if value, _ := cmd.Flags().GetString("today"); value == "now" {
		return schedule.Date(time.Now()), nil
	}
	return dateFlag(cmd, "today")
}

func runLayout(cmd *cobra.Command, args []string) error {
	today, err := todayFlag(cmd)
	if err != nil {
		return err
	}

	rt, err := newRuntime(cmd)
	if err != nil {
		return err
	}
	defer rt.Close()

	s, _, err := loadSchedule(cmd)
	if err != nil {
		return err
	}
	l, _, err := rt.engine.Layout(s)
	if err != nil {
		return err
	}

	var highlight *layout.Highlight
	if layoutHighlight != "" {
		h, err := l.Highlight(layoutHighlight)
		if err != nil {
			return err
		}
		highlight = &h
	}

	if layoutSVG != "" {
		title := layoutTitle
		if title == "" {
			title = s.Name
		}
		return writeSVG(rt.out, cmd.ErrOrStderr(), l, rt.theme, render.SVGOptions{
			Title:     title,
			Today:     today,
			Highlight: highlight,
		})
	}

	return rt.emit(l, func() string {
		return render.Gantt(l, rt.styles, render.GanttOptions{
			Width:     termWidth(rt.out),
			Today:     today,
			Highlight: highlight,
			Legend:    true,
		})
	})
}

func writeSVG(out, status io.Writer, l *layout.Layout, theme *render.Theme, opts render.SVGOptions) error {
	if layoutSVG == "-" {
		return render.SVG(out, l, theme, opts)
	}

	var buf bytes.Buffer
	if err := render.SVG(&buf, l, theme, opts); err != nil {
		return err
	}
	if err := afero.WriteFile(appFs, layoutSVG, buf.Bytes(), 0644); err != nil {
		return fmt.Errorf("failed to write SVG: %w", err)
	}
	fmt.Fprintf(status, "Chart written to %s\n", layoutSVG)
	return nil
}
