package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/Iron-Ham/gantry/internal/engine"
	"github.com/Iron-Ham/gantry/internal/render"
	"github.com/Iron-Ham/gantry/internal/schedule"
)

const diamondYAML = `
name: diamond
tasks:
  - {id: A, name: Excavation, start: 2025-04-07, duration: 5}
  - {id: B, name: Footings, start: 2025-04-12, duration: 3, dependencies: [A], baseline_end: 2025-04-10}
  - {id: C, name: Drainage, start: 2025-04-12, duration: 2, dependencies: [A]}
  - {id: D, name: Slab, start: 2025-04-15, duration: 1, dependencies: [B, C], baseline_end: 2025-04-14}
`

// resetFlags returns every flag of c and its subcommands to its default so
// one test's flags do not leak into the next.
func resetFlags(c *cobra.Command) {
	reset := func(f *pflag.Flag) {
		if sv, ok := f.Value.(pflag.SliceValue); ok {
			_ = sv.Replace(nil)
		} else {
			_ = f.Value.Set(f.DefValue)
		}
		f.Changed = false
	}
	c.PersistentFlags().VisitAll(reset)
	c.Flags().VisitAll(reset)
	for _, sub := range c.Commands() {
		resetFlags(sub)
	}
}

// setupTestEnvironment installs an in-memory filesystem holding
// schedule.yaml and isolates configuration and logging.
func setupTestEnvironment(t *testing.T) afero.Fs {
	t.Helper()

	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Setenv("GANTRY_LOGGING_ENABLED", "false")

	fs := afero.NewMemMapFs()
	if err := afero.WriteFile(fs, "schedule.yaml", []byte(diamondYAML), 0o644); err != nil {
		t.Fatalf("failed to write schedule: %v", err)
	}
	orig := appFs
	appFs = fs
	t.Cleanup(func() {
		appFs = orig
		resetFlags(rootCmd)
	})
	resetFlags(rootCmd)
	return fs
}

// executeCommand runs the root command with args, starting from default
// flag values, and returns captured stdout and stderr.
func executeCommand(t *testing.T, args ...string) (stdout, stderr string, err error) {
	t.Helper()
	resetFlags(rootCmd)
	out, errOut := new(bytes.Buffer), new(bytes.Buffer)
	rootCmd.SetOut(out)
	rootCmd.SetErr(errOut)
	rootCmd.SetArgs(args)
	defer func() {
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
		rootCmd.SetArgs(nil)
	}()
	err = rootCmd.Execute()
	return out.String(), errOut.String(), err
}

func decodeJSON(t *testing.T, data string) map[string]any {
	t.Helper()
	var v map[string]any
	if err := json.Unmarshal([]byte(data), &v); err != nil {
		t.Fatalf("output is not JSON: %v\n%s", err, data)
	}
	return v
}

func TestRootCommand(t *testing.T) {
	if rootCmd.Use != "gantry" {
		t.Errorf("rootCmd.Use = %q, want %q", rootCmd.Use, "gantry")
	}

	expectedCmds := []string{"analyze", "recover", "whatif", "baseline", "layout", "view", "watch", "config"}
	cmdMap := make(map[string]bool)
	for _, cmd := range rootCmd.Commands() {
		cmdMap[cmd.Name()] = true
	}
	for _, name := range expectedCmds {
		if !cmdMap[name] {
			t.Errorf("missing subcommand: %s", name)
		}
	}

	for _, flag := range []string{"config", "schedule", "format", "json", "no-color"} {
		if rootCmd.PersistentFlags().Lookup(flag) == nil {
			t.Errorf("missing persistent flag: --%s", flag)
		}
	}
}

func TestAnalyzeCommand(t *testing.T) {
	setupTestEnvironment(t)

	out, _, err := executeCommand(t, "analyze")
	if err != nil {
		t.Fatalf("analyze error = %v", err)
	}
	for _, want := range []string{"diamond", "Duration 9 days", "A → B → D", "Excavation", "2025-04-15"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, string(render.GlyphCritical)) {
		t.Error("the chart should only be drawn with --chart")
	}

	out, _, err = executeCommand(t, "analyze", "--chart")
	if err != nil {
		t.Fatalf("analyze --chart error = %v", err)
	}
	if !strings.Contains(out, string(render.GlyphCritical)) {
		t.Errorf("--chart should draw the Gantt chart:\n%s", out)
	}
}

func TestAnalyzeCommand_Formats(t *testing.T) {
	setupTestEnvironment(t)

	out, _, err := executeCommand(t, "analyze", "--json")
	if err != nil {
		t.Fatalf("analyze --json error = %v", err)
	}
	res := decodeJSON(t, out)
	if res["project_duration"] != float64(9) {
		t.Errorf("project_duration = %v, want 9", res["project_duration"])
	}
	path, _ := res["critical_path"].([]any)
	if len(path) != 3 || path[0] != "A" || path[2] != "D" {
		t.Errorf("critical_path = %v", res["critical_path"])
	}

	out, _, err = executeCommand(t, "analyze", "--format", "yaml")
	if err != nil {
		t.Fatalf("analyze --format yaml error = %v", err)
	}
	if !strings.Contains(out, "project_duration: 9") || !strings.Contains(out, "- A") {
		t.Errorf("yaml output:\n%s", out)
	}

	if _, _, err := executeCommand(t, "analyze", "--format", "xml"); err == nil || !strings.Contains(err.Error(), "invalid output format") {
		t.Errorf("--format xml error = %v", err)
	}
}

func TestAnalyzeCommand_EnvOverrides(t *testing.T) {
	setupTestEnvironment(t)
	t.Setenv("GANTRY_OUTPUT_FORMAT", "json")

	out, _, err := executeCommand(t, "analyze")
	if err != nil {
		t.Fatalf("analyze error = %v", err)
	}
	decodeJSON(t, out)

	t.Setenv("GANTRY_ENGINE_CRASH_FRACTION", "2")
	if _, _, err := executeCommand(t, "analyze"); err == nil || !strings.Contains(err.Error(), "invalid configuration") {
		t.Errorf("error = %v, want an invalid configuration", err)
	}
}

func TestAnalyzeCommand_ScheduleErrors(t *testing.T) {
	fs := setupTestEnvironment(t)

	if _, _, err := executeCommand(t, "analyze", "-f", "missing.yaml"); err == nil || !strings.Contains(err.Error(), "failed to load schedule") {
		t.Errorf("missing file error = %v", err)
	}

	cyclic := "- {id: A, start: 2025-04-07, duration: 1, dependencies: [B]}\n- {id: B, start: 2025-04-08, duration: 1, dependencies: [A]}\n"
	_ = afero.WriteFile(fs, "cyclic.yaml", []byte(cyclic), 0o644)
	if _, _, err := executeCommand(t, "analyze", "-f", "cyclic.yaml"); err == nil || !strings.Contains(err.Error(), "cycl") {
		t.Errorf("cyclic schedule error = %v", err)
	}
}

func TestRecoverCommand(t *testing.T) {
	fs := setupTestEnvironment(t)

	out, _, err := executeCommand(t, "recover", "--target-end", "2025-04-14", "--json")
	if err != nil {
		t.Fatalf("recover error = %v", err)
	}
	plan := decodeJSON(t, out)
	if plan["met"] != true || plan["required_compression"] != float64(1) {
		t.Errorf("plan = %v", plan)
	}

	out, _, err = executeCommand(t, "recover", "--revised-start", "2025-04-08", "--save", "revised.yaml")
	if err != nil {
		t.Fatalf("recover --save error = %v", err)
	}
	if !strings.Contains(out, "target met") {
		t.Errorf("output:\n%s", out)
	}
	revised, err := schedule.LoadFile(fs, "revised.yaml")
	if err != nil {
		t.Fatalf("revised schedule not saved: %v", err)
	}
	if got := schedule.FormatDate(revised.PlannedEnd()); got != "2025-04-15" {
		t.Errorf("revised end = %s, want the original 2025-04-15", got)
	}
}

func TestRecoverCommand_Infeasible(t *testing.T) {
	setupTestEnvironment(t)

	out, errOut, err := executeCommand(t, "recover", "--target-end", "2025-04-08")
	if err != nil {
		t.Fatalf("an infeasible target still prints a plan, got error %v", err)
	}
	if !strings.Contains(out, "target not met") {
		t.Errorf("output:\n%s", out)
	}
	if !strings.Contains(errOut, "Warning:") {
		t.Errorf("stderr = %q, want a warning", errOut)
	}
}

func TestRecoverCommand_FlagErrors(t *testing.T) {
	setupTestEnvironment(t)

	tests := []struct {
		args []string
		want string
	}{
		{[]string{"recover"}, "at least one of"},
		{[]string{"recover", "--target-end", "soon"}, "invalid --target-end"},
		{[]string{"recover", "--revised-start", "2025-13-40"}, "invalid --revised-start"},
	}
	for _, tt := range tests {
		t.Run(strings.Join(tt.args, " "), func(t *testing.T) {
			if _, _, err := executeCommand(t, tt.args...); err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error = %v, want %q", err, tt.want)
			}
		})
	}
}

func TestWhatIfCommand(t *testing.T) {
	setupTestEnvironment(t)
	t.Setenv("GANTRY_COST_DAILY_RATE", "500")

	out, _, err := executeCommand(t, "whatif", "--change", "C+2")
	if err != nil {
		t.Fatalf("whatif error = %v", err)
	}
	for _, want := range []string{"Project end slips by 1 day.", "Now critical C", "USD"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}

	out, _, err = executeCommand(t, "whatif", "--task", "B", "--delay", "1", "--json")
	if err != nil {
		t.Fatalf("whatif --task error = %v", err)
	}
	summary, _ := decodeJSON(t, out)["impact_summary"].(map[string]any)
	if summary["delay_days"] != float64(1) {
		t.Errorf("impact_summary = %v", summary)
	}
}

func TestWhatIfCommand_Errors(t *testing.T) {
	setupTestEnvironment(t)

	tests := []struct {
		args []string
		want string
	}{
		{[]string{"whatif"}, "no changes given"},
		{[]string{"whatif", "--delay", "2"}, "need --task"},
		{[]string{"whatif", "--task", "B"}, "needs --delay or --shift"},
		{[]string{"whatif", "--change", "B plus 2"}, "cannot parse change"},
		{[]string{"whatif", "--change", "Q+1"}, "Q"},
	}
	for _, tt := range tests {
		t.Run(strings.Join(tt.args, " "), func(t *testing.T) {
			if _, _, err := executeCommand(t, tt.args...); err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error = %v, want %q", err, tt.want)
			}
		})
	}
}

func TestWhatIfCommand_Scenarios(t *testing.T) {
	fs := setupTestEnvironment(t)
	_ = afero.WriteFile(fs, "scenarios.yaml", []byte(`
- name: wet week
  changes: [A+3]
- name: drainage
  changes: [C+1]
- name: typo
  changes: [Q+1]
`), 0o644)

	out, _, err := executeCommand(t, "whatif", "--scenarios", "scenarios.yaml", "--json")
	if err != nil {
		t.Fatalf("whatif --scenarios error = %v", err)
	}
	var results []scenarioOutput
	if err := json.Unmarshal([]byte(out), &results); err != nil {
		t.Fatalf("output is not a JSON list: %v\n%s", err, out)
	}
	if len(results) != 3 {
		t.Fatalf("got %d results, want 3", len(results))
	}
	if results[0].Name != "wet week" || results[0].Result.Summary.DelayDays != 3 {
		t.Errorf("wet week = %+v", results[0])
	}
	if results[1].Result == nil || !results[1].Result.Summary.FloatAbsorbed {
		t.Errorf("drainage should be absorbed by float: %+v", results[1])
	}
	if results[2].Result != nil || results[2].Error == "" {
		t.Errorf("typo should fail on its own: %+v", results[2])
	}

	out, _, err = executeCommand(t, "whatif", "--scenarios", "scenarios.yaml")
	if err != nil {
		t.Fatalf("whatif --scenarios error = %v", err)
	}
	if !strings.Contains(out, "wet week") || !strings.Contains(out, "+3") {
		t.Errorf("scenario table:\n%s", out)
	}

	if _, _, err := executeCommand(t, "whatif", "--scenarios", "nope.yaml"); err == nil {
		t.Error("a missing scenario file should fail")
	}
}

func TestBaselineCommand(t *testing.T) {
	setupTestEnvironment(t)

	out, _, err := executeCommand(t, "baseline", "--json")
	if err != nil {
		t.Fatalf("baseline error = %v", err)
	}
	rep := decodeJSON(t, out)
	if rep["behind"] != float64(1) || rep["on_track"] != float64(1) || rep["excluded"] != float64(2) {
		t.Errorf("report = %v", rep)
	}

	out, _, err = executeCommand(t, "baseline", "--tolerance", "5", "--json")
	if err != nil {
		t.Fatalf("baseline --tolerance error = %v", err)
	}
	if rep := decodeJSON(t, out); rep["behind"] != float64(0) || rep["tolerance_days"] != float64(5) {
		t.Errorf("report with tolerance 5 = %v", rep)
	}

	out, _, err = executeCommand(t, "baseline")
	if err != nil {
		t.Fatalf("baseline error = %v", err)
	}
	if !strings.Contains(out, "Baseline variance") || !strings.Contains(out, "behind") {
		t.Errorf("output:\n%s", out)
	}

	if _, _, err := executeCommand(t, "baseline", "--tolerance", "-1"); err == nil {
		t.Error("a negative tolerance should fail")
	}
}

func TestLayoutCommand(t *testing.T) {
	fs := setupTestEnvironment(t)

	out, _, err := executeCommand(t, "layout", "--today", "2025-04-10")
	if err != nil {
		t.Fatalf("layout error = %v", err)
	}
	for _, want := range []string{string(render.GlyphCritical), string(render.GlyphToday), "Excavation", "critical"} {
		if !strings.Contains(out, want) {
			t.Errorf("chart missing %q:\n%s", want, out)
		}
	}

	out, _, err = executeCommand(t, "layout", "--json")
	if err != nil {
		t.Fatalf("layout --json error = %v", err)
	}
	l := decodeJSON(t, out)
	if rows, _ := l["rows"].([]any); len(rows) != 4 {
		t.Errorf("rows = %v", l["rows"])
	}
	if links, _ := l["links"].([]any); len(links) != 4 {
		t.Errorf("links = %v", l["links"])
	}

	_, errOut, err := executeCommand(t, "layout", "--svg", "chart.svg", "--highlight", "C")
	if err != nil {
		t.Fatalf("layout --svg error = %v", err)
	}
	if !strings.Contains(errOut, "chart.svg") {
		t.Errorf("stderr = %q", errOut)
	}
	svg, err := afero.ReadFile(fs, "chart.svg")
	if err != nil {
		t.Fatalf("SVG not written: %v", err)
	}
	if !bytes.HasPrefix(svg, []byte("<?xml")) || !bytes.Contains(svg, []byte(">diamond<")) {
		t.Errorf("SVG:\n%s", svg)
	}

	out, _, err = executeCommand(t, "layout", "--svg", "-", "--title", "Tower & Slab")
	if err != nil {
		t.Fatalf("layout --svg - error = %v", err)
	}
	if !strings.Contains(out, "</svg>") || !strings.Contains(out, "Tower &amp; Slab") {
		t.Errorf("SVG on stdout:\n%s", out)
	}
}

func TestLayoutCommand_Errors(t *testing.T) {
	setupTestEnvironment(t)

	if _, _, err := executeCommand(t, "layout", "--highlight", "Q"); err == nil || !strings.Contains(err.Error(), "Q") {
		t.Errorf("unknown highlight error = %v", err)
	}
	if _, _, err := executeCommand(t, "layout", "--today", "someday"); err == nil || !strings.Contains(err.Error(), "invalid --today") {
		t.Errorf("bad --today error = %v", err)
	}
}

func testRuntime(out *bytes.Buffer) *runtime {
	return &runtime{
		engine: engine.New(nil, nil, nil),
		out:    out,
		format: "text",
		styles: render.NewStyles(nil, false),
	}
}

func TestPrintOutcomes(t *testing.T) {
	s, err := schedule.Decode([]byte(diamondYAML), schedule.FormatYAML)
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}

	out, status := new(bytes.Buffer), new(bytes.Buffer)
	rt := testRuntime(out)

	runner := engine.NewRunner(nil, nil)
	runner.Submit(context.Background(), rt.engine.LayoutJob(s))
	runner.Wait()
	runner.Close()

	if err := printOutcomes(context.Background(), rt, runner, status); err != nil {
		t.Fatalf("printOutcomes() error = %v", err)
	}
	if !strings.Contains(out.String(), "A → B → D") {
		t.Errorf("output:\n%s", out.String())
	}
	if status.Len() != 0 {
		t.Errorf("status = %q", status.String())
	}
}

func TestPrintOutcomes_Failure(t *testing.T) {
	out, status := new(bytes.Buffer), new(bytes.Buffer)
	rt := testRuntime(out)

	runner := engine.NewRunner(nil, nil)
	runner.Submit(context.Background(), func(context.Context) (any, error) {
		return nil, errors.New("cyclic dependency: A -> B -> A")
	})
	runner.Wait()
	runner.Close()

	if err := printOutcomes(context.Background(), rt, runner, status); err != nil {
		t.Fatalf("printOutcomes() error = %v", err)
	}
	if out.Len() != 0 || !strings.Contains(status.String(), "Analysis failed: cyclic dependency") {
		t.Errorf("out = %q, status = %q", out.String(), status.String())
	}
}

func TestPrintOutcomes_StopsOnCancel(t *testing.T) {
	rt := testRuntime(new(bytes.Buffer))
	runner := engine.NewRunner(nil, nil)
	defer runner.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := printOutcomes(ctx, rt, runner, new(bytes.Buffer)); err != nil {
		t.Errorf("printOutcomes() error = %v", err)
	}
}

func TestWriteYAML(t *testing.T) {
	var buf bytes.Buffer
	v := struct {
		Name  string   `json:"name"`
		Items []string `json:"items"`
	}{"diamond", []string{"A", "B"}}
	if err := writeYAML(&buf, v); err != nil {
		t.Fatalf("writeYAML() error = %v", err)
	}
	if got, want := buf.String(), "items:\n  - A\n  - B\nname: diamond\n"; got != want {
		t.Errorf("writeYAML() = %q, want %q", got, want)
	}
}
