package render

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/dustin/go-humanize"
	"github.com/dustin/go-humanize/english"

	"github.com/Iron-Ham/gantry/internal/baseline"
	"github.com/Iron-Ham/gantry/internal/cpm"
	"github.com/Iron-Ham/gantry/internal/recovery"
	"github.com/Iron-Ham/gantry/internal/schedule"
	"github.com/Iron-Ham/gantry/internal/whatif"
)

// PathSeparator joins task ids on a critical path.
const PathSeparator = " → "

func newTable(st Styles, headers ...string) *table.Table {
	return table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(st.Border).
		Headers(headers...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return st.Header.Padding(0, 1)
			}
			return lipgloss.NewStyle().Padding(0, 1)
		})
}

func days(n int) string {
	return english.Plural(n, "day", "")
}

func signedDays(n int) string {
	if n == 0 {
		return "0"
	}
	return fmt.Sprintf("%+d", n)
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return ""
}

// Money formats amount with thousands separators and two decimals.
func Money(amount float64, currency string) string {
	v := humanize.FormatFloat("#,###.##", amount)
	if currency == "" {
		return v
	}
	return currency + " " + v
}

// Analysis reports a CPM result: project dates, the critical path and one
// table row per task in topological order.
func Analysis(s *schedule.Schedule, res *cpm.Result, st Styles) string {
	var b strings.Builder
	title := s.Name
	if title == "" {
		title = "Schedule"
	}
	b.WriteString(st.Title.Render(title) + "\n")
	fmt.Fprintf(&b, "%s %s  %s %s  %s %s\n",
		st.Muted.Render("Start"), schedule.FormatDate(res.ProjectStart),
		st.Muted.Render("End"), schedule.FormatDate(res.ProjectEnd),
		st.Muted.Render("Duration"), days(res.ProjectDuration))
	fmt.Fprintf(&b, "%s %s\n", st.Muted.Render("Critical path"),
		st.Critical.Render(strings.Join(res.CriticalPath, PathSeparator)))

	t := newTable(st, "Task", "Name", "Days", "Start", "Finish", "Late start", "Late finish", "Float", "Critical")
	for _, id := range res.Order {
		tt, _ := res.Task(id)
		name := ""
		if task, ok := s.Task(id); ok {
			name = task.Name
		}
		t.Row(id, name, strconv.Itoa(tt.Duration),
			schedule.FormatDate(res.EarlyStartDate(id)),
			schedule.FormatDate(res.EarlyFinishDate(id)),
			schedule.FormatDate(schedule.AddDays(res.ProjectStart, tt.LateStart)),
			schedule.FormatDate(schedule.AddDays(res.ProjectStart, tt.LateFinish)),
			strconv.Itoa(tt.Float), yesNo(tt.IsCritical))
	}
	b.WriteString(t.String())
	b.WriteByte('\n')
	return b.String()
}

// RecoveryPlan reports the outcome of a recovery and the changed tasks.
func RecoveryPlan(p *recovery.Plan, st Styles) string {
	var b strings.Builder
	status := st.Done.Render("target met")
	if !p.Met {
		status = st.Warning.Render("target not met")
	}
	b.WriteString(st.Title.Render("Recovery plan") + "  " + status + "\n")
	fmt.Fprintf(&b, "%s %s  %s %s  %s %s\n",
		st.Muted.Render("Original end"), schedule.FormatDate(p.OriginalEnd),
		st.Muted.Render("Target"), schedule.FormatDate(p.TargetEnd),
		st.Muted.Render("Achieved"), schedule.FormatDate(p.AchievedEnd))
	fmt.Fprintf(&b, "%s %s  %s %s\n",
		st.Muted.Render("Required compression"), days(p.RequiredCompression),
		st.Muted.Render("Iterations"), humanize.Comma(int64(p.Iterations)))

	changed := p.Changed()
	if len(changed) == 0 {
		b.WriteString(st.Muted.Render("No changes needed.") + "\n")
		return b.String()
	}

	t := newTable(st, "Task", "Strategy", "Original", "Revised", "Suggestion")
	for _, tp := range changed {
		strategies := make([]string, len(tp.Strategies))
		for i, s := range tp.Strategies {
			strategies[i] = string(s)
		}
		if len(strategies) == 0 {
			strategies = []string{string(tp.Strategy)}
		}
		t.Row(tp.ID, strings.Join(strategies, ", "),
			dateRange(tp.OriginalStart, tp.OriginalEnd),
			dateRange(tp.RevisedStart, tp.RevisedEnd),
			tp.Suggestion)
	}
	b.WriteString(t.String())
	b.WriteByte('\n')
	return b.String()
}

func dateRange(start, end time.Time) string {
	return schedule.FormatDate(start) + " to " + schedule.FormatDate(end)
}

// WhatIf reports one simulation.
func WhatIf(r *whatif.Result, currency string, st Styles) string {
	var b strings.Builder
	perts := make([]string, len(r.Perturbations))
	for i, p := range r.Perturbations {
		perts[i] = p.String()
	}
	b.WriteString(st.Title.Render("What-if") + "  " + st.Muted.Render(strings.Join(perts, "; ")) + "\n")
	fmt.Fprintf(&b, "%s %s → %s (%s)\n", st.Muted.Render("End"),
		schedule.FormatDate(r.OriginalEndDate), schedule.FormatDate(r.NewEndDate),
		signedDays(r.Summary.DelayDays))
	switch {
	case r.Summary.FloatAbsorbed:
		b.WriteString(st.Done.Render("Absorbed by float.") + "\n")
	case r.Summary.DelayDays > 0:
		b.WriteString(st.Warning.Render("Project end slips by "+days(r.Summary.DelayDays)+".") + "\n")
	}

	cp := r.CriticalPathImpact
	if cp.PathChanged {
		fmt.Fprintf(&b, "%s %s → %s\n", st.Muted.Render("Critical path"),
			strings.Join(cp.Before, PathSeparator), st.Critical.Render(strings.Join(cp.After, PathSeparator)))
	}
	if len(cp.BecameCritical) > 0 {
		fmt.Fprintf(&b, "%s %s\n", st.Muted.Render("Now critical"), english.OxfordWordSeries(cp.BecameCritical, "and"))
	}
	if len(cp.NoLongerCritical) > 0 {
		fmt.Fprintf(&b, "%s %s\n", st.Muted.Render("No longer critical"), english.OxfordWordSeries(cp.NoLongerCritical, "and"))
	}

	if ci := r.CostImpact; ci.Priced {
		cost := Money(ci.Estimate, currency)
		if ci.Capped {
			cost += " (capped)"
		}
		fmt.Fprintf(&b, "%s %s over %s\n", st.Muted.Render("Cost"), cost, days(ci.SlippedDays))
	}

	if len(r.Slips) > 0 {
		t := newTable(st, "Task", "Start", "Finish", "Critical")
		for _, s := range r.Slips {
			t.Row(s.ID, signedDays(s.StartDays), signedDays(s.FinishDays), yesNo(s.Critical))
		}
		b.WriteString(t.String())
		b.WriteByte('\n')
	}
	return b.String()
}

// Scenarios reports a batch of simulations, one row per scenario.
func Scenarios(results []whatif.ScenarioResult, currency string, st Styles) string {
	t := newTable(st, "Scenario", "Delay", "New end", "Affected", "Cost", "Error")
	for _, sr := range results {
		if sr.Err != nil {
			t.Row(sr.Scenario.Name, "", "", "", "", sr.Err.Error())
			continue
		}
		r := sr.Result
		cost := ""
		if r.CostImpact.Priced {
			cost = Money(r.CostImpact.Estimate, currency)
		}
		t.Row(sr.Scenario.Name, signedDays(r.Summary.DelayDays), schedule.FormatDate(r.NewEndDate),
			strconv.Itoa(r.Summary.TasksAffected), cost, "")
	}
	return t.String() + "\n"
}

// Baseline reports variance against the baseline.
func Baseline(rep *baseline.Report, st Styles) string {
	var b strings.Builder
	b.WriteString(st.Title.Render("Baseline variance") + "\n")
	fmt.Fprintf(&b, "%s %s  %s %s  %s %s  %s %s  %s %s\n",
		st.Done.Render("Ahead"), strconv.Itoa(rep.Ahead),
		st.Label.Render("On track"), strconv.Itoa(rep.OnTrack),
		st.Critical.Render("Behind"), strconv.Itoa(rep.Behind),
		st.Muted.Render("Untracked"), strconv.Itoa(rep.Excluded),
		st.Muted.Render("Tolerance"), days(rep.ToleranceDays))

	if len(rep.Entries) == 0 {
		b.WriteString(st.Muted.Render("No tasks have a baseline.") + "\n")
		return b.String()
	}
	t := newTable(st, "Task", "Start", "Finish", "Status")
	for _, e := range rep.Entries {
		start := ""
		if e.HasStartBaseline {
			start = signedDays(e.StartVariance)
		}
		t.Row(e.ID, start, signedDays(e.FinishVariance), strings.ReplaceAll(string(e.Classification), "_", " "))
	}
	b.WriteString(t.String())
	b.WriteByte('\n')
	return b.String()
}
