package schedule

import (
	"bytes"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/afero"
	"github.com/spf13/cast"
	"gopkg.in/yaml.v3"

	"github.com/Iron-Ham/gantry/internal/errors"
)

// Format selects the encoding of a schedule document.
type Format string

const (
	FormatYAML Format = "yaml"
	FormatJSON Format = "json"
)

// FormatForPath picks the document format from a file extension.
// Anything that is not .json is read as YAML.
func FormatForPath(path string) Format {
	if strings.EqualFold(filepath.Ext(path), ".json") {
		return FormatJSON
	}
	return FormatYAML
}

// document is the on-disk shape written by Save.
type document struct {
	Name  string         `json:"name,omitempty" yaml:"name,omitempty"`
	Start string         `json:"start,omitempty" yaml:"start,omitempty"`
	Tasks []taskDocument `json:"tasks" yaml:"tasks"`
}

type taskDocument struct {
	ID            string         `json:"id" yaml:"id"`
	Name          string         `json:"name,omitempty" yaml:"name,omitempty"`
	Start         string         `json:"start" yaml:"start"`
	End           string         `json:"end,omitempty" yaml:"end,omitempty"`
	DurationDays  int            `json:"duration_days,omitempty" yaml:"duration_days,omitempty"`
	Dependencies  []string       `json:"dependencies,omitempty" yaml:"dependencies,omitempty"`
	Leads         map[string]int `json:"leads,omitempty" yaml:"leads,omitempty"`
	NotBefore     string         `json:"not_before,omitempty" yaml:"not_before,omitempty"`
	Progress      int            `json:"progress" yaml:"progress"`
	Status        Status         `json:"status" yaml:"status"`
	Priority      Priority       `json:"priority" yaml:"priority"`
	Assignees     []string       `json:"assignees,omitempty" yaml:"assignees,omitempty"`
	BaselineStart string         `json:"baseline_start,omitempty" yaml:"baseline_start,omitempty"`
	BaselineEnd   string         `json:"baseline_end,omitempty" yaml:"baseline_end,omitempty"`
}

// LoadFile reads and decodes a schedule document from fs.
func LoadFile(fs afero.Fs, path string) (*Schedule, error) {
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		return nil, fmt.Errorf("reading schedule file: %w", err)
	}

	s, err := Decode(data, FormatForPath(path))
	if err != nil {
		return nil, errors.Wrapf(err, "loading %s", path)
	}
	if s.Name == "" {
		s.Name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	return s, nil
}

// Save writes s to path in the format implied by its extension.
func Save(fs afero.Fs, path string, s *Schedule) error {
	data, err := Encode(s, FormatForPath(path))
	if err != nil {
		return err
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := fs.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("creating schedule directory: %w", err)
		}
	}
	if err := afero.WriteFile(fs, path, data, 0644); err != nil {
		return fmt.Errorf("writing schedule file: %w", err)
	}
	return nil
}

// Encode renders s as a document that Decode reads back unchanged.
func Encode(s *Schedule, format Format) ([]byte, error) {
	doc := document{Name: s.Name}
	if !s.Start.IsZero() {
		doc.Start = FormatDate(s.Start)
	}
	for _, t := range s.Tasks() {
		doc.Tasks = append(doc.Tasks, taskDocument{
			ID:            t.ID,
			Name:          t.Name,
			Start:         FormatDate(t.Start),
			End:           optionalDate(t.Finish()),
			Dependencies:  t.Dependencies,
			Leads:         t.Leads,
			NotBefore:     optionalDate(t.NotBefore),
			Progress:      t.Progress,
			Status:        t.Status,
			Priority:      t.Priority,
			Assignees:     t.Assignees,
			BaselineStart: optionalDate(t.BaselineStart),
			BaselineEnd:   optionalDate(t.BaselineEnd),
		})
	}

	if format == FormatJSON {
		data, err := json.MarshalIndent(doc, "", "  ")
		if err != nil {
			return nil, fmt.Errorf("encoding schedule: %w", err)
		}
		return append(data, '\n'), nil
	}
	data, err := yaml.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("encoding schedule: %w", err)
	}
	return data, nil
}

func optionalDate(tm time.Time) string {
	if tm.IsZero() {
		return ""
	}
	return FormatDate(tm)
}

// Decode parses a schedule document. The document is either a list of task
// records or a mapping with "name", "start" and "tasks" keys. Records are
// loosely typed and normalised into strict Tasks.
func Decode(data []byte, format Format) (*Schedule, error) {
	var raw any
	if format == FormatJSON {
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.UseNumber()
		if err := dec.Decode(&raw); err != nil {
			return nil, errors.NewValidationError(errors.KindInvalidField, "schedule document is not valid JSON").WithCause(err)
		}
	} else if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, errors.NewValidationError(errors.KindInvalidField, "schedule document is not valid YAML").WithCause(err)
	}

	var (
		name    string
		start   time.Time
		records []any
	)
	switch v := raw.(type) {
	case nil:
	case []any:
		records = v
	case map[string]any:
		name = cast.ToString(v["name"])
		if rawStart, ok := v["start"]; ok && rawStart != nil {
			d, err := parseDate(rawStart)
			if err != nil {
				return nil, errors.NewValidationError(errors.KindInvalidField, "project start is not a date").WithField("start").WithCause(err)
			}
			start = d
		}
		if v["tasks"] != nil {
			tasks, err := cast.ToSliceE(v["tasks"])
			if err != nil {
				return nil, errors.NewValidationError(errors.KindInvalidField, "tasks must be a list").WithField("tasks").WithCause(err)
			}
			records = tasks
		}
	default:
		return nil, errors.NewValidationError(errors.KindInvalidField, fmt.Sprintf("unexpected document of type %T", raw))
	}

	s := New(name, start)
	for i, rec := range records {
		fields, err := cast.ToStringMapE(rec)
		if err != nil {
			return nil, errors.NewValidationError(errors.KindInvalidField, fmt.Sprintf("task record %d is not a mapping", i)).WithCause(err)
		}
		t, err := decodeTask(fields)
		if err != nil {
			return nil, err
		}
		if err := s.Add(t); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// lookup returns the first present key among aliases.
func lookup(fields map[string]any, aliases ...string) (any, bool) {
	for _, key := range aliases {
		if v, ok := fields[key]; ok && v != nil {
			return v, true
		}
	}
	return nil, false
}

func decodeTask(fields map[string]any) (*Task, error) {
	rawID, _ := lookup(fields, "id", "task_id", "key")
	id := strings.TrimSpace(cast.ToString(rawID))
	if id == "" {
		return nil, errors.NewValidationError(errors.KindInvalidField, "task id is required").WithField("id")
	}

	fieldErr := func(field, msg string, cause error) error {
		e := errors.NewValidationError(errors.KindInvalidField, msg).WithTaskID(id).WithField(field)
		if cause != nil {
			e = e.WithCause(cause)
		}
		return e
	}

	t := &Task{ID: id}
	if v, ok := lookup(fields, "name", "title"); ok {
		t.Name = cast.ToString(v)
	}

	dates := []struct {
		field   string
		aliases []string
		dst     *time.Time
	}{
		{"start", []string{"start", "start_date"}, &t.Start},
		{"end", []string{"end", "end_date", "finish"}, &t.End},
		{"not_before", []string{"not_before", "start_no_earlier_than"}, &t.NotBefore},
		{"baseline_start", []string{"baseline_start", "baselineStart"}, &t.BaselineStart},
		{"baseline_end", []string{"baseline_end", "baselineEnd"}, &t.BaselineEnd},
	}
	for _, d := range dates {
		v, ok := lookup(fields, d.aliases...)
		if !ok {
			continue
		}
		tm, err := parseDate(v)
		if err != nil {
			return nil, fieldErr(d.field, "not a date", err)
		}
		*d.dst = tm
	}
	if t.Start.IsZero() {
		return nil, fieldErr("start", "start date is required", nil)
	}

	if v, ok := lookup(fields, "duration_days", "duration"); ok {
		n, err := cast.ToIntE(v)
		if err != nil {
			return nil, fieldErr("duration_days", "duration must be a whole number of days", err)
		}
		t.DurationDays = n
	}
	if t.End.IsZero() && t.DurationDays > 0 {
		t.End = AddDays(t.Start, t.DurationDays-1)
	}
	if !t.End.IsZero() {
		t.DurationDays = 0
	}

	if v, ok := lookup(fields, "dependencies", "depends_on", "predecessors"); ok {
		deps, err := stringList(v)
		if err != nil {
			return nil, fieldErr("dependencies", "dependencies must be a list of task ids", err)
		}
		t.Dependencies = deps
	}

	if v, ok := lookup(fields, "leads"); ok {
		leads, err := cast.ToStringMapIntE(v)
		if err != nil {
			return nil, fieldErr("leads", "leads must map predecessor ids to days", err)
		}
		t.Leads = leads
	}

	if v, ok := lookup(fields, "assignees", "assignee"); ok {
		assignees, err := stringList(v)
		if err != nil {
			return nil, fieldErr("assignees", "assignees must be a list", err)
		}
		t.Assignees = assignees
	}

	if v, ok := lookup(fields, "progress", "percent_complete"); ok {
		p, err := parseProgress(v)
		if err != nil {
			return nil, fieldErr("progress", "progress must be a number between 0 and 100", err)
		}
		t.Progress = p
	}

	if v, ok := lookup(fields, "status"); ok {
		st, err := ParseStatus(cast.ToString(v))
		if err != nil {
			return nil, fieldErr("status", "unknown status", err)
		}
		t.Status = st
	}

	if v, ok := lookup(fields, "priority"); ok {
		p, err := ParsePriority(cast.ToString(v))
		if err != nil {
			return nil, fieldErr("priority", "unknown priority", err)
		}
		t.Priority = p
	}

	return t, nil
}

// dateLayouts are tried in order for string dates.
var dateLayouts = []string{
	time.DateOnly,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006/01/02",
}

// parseDate accepts ISO-8601 dates, RFC 3339 timestamps and time.Time values.
// The calendar day is taken in the value's own zone.
func parseDate(v any) (time.Time, error) {
	if tm, ok := v.(time.Time); ok {
		return Date(tm), nil
	}
	str := strings.TrimSpace(cast.ToString(v))
	if str == "" {
		return time.Time{}, fmt.Errorf("empty date")
	}
	for _, layout := range dateLayouts {
		if tm, err := time.Parse(layout, str); err == nil {
			return Date(tm), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognised date %q", str)
}

// ParseDate parses a calendar date in any of the accepted spellings.
func ParseDate(s string) (time.Time, error) {
	return parseDate(s)
}

// stringList accepts a list of scalars or a comma separated string.
func stringList(v any) ([]string, error) {
	if str, ok := v.(string); ok {
		var out []string
		for _, part := range strings.Split(str, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
		return out, nil
	}
	items, err := cast.ToSliceE(v)
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		s, err := cast.ToStringE(item)
		if err != nil {
			return nil, err
		}
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out, nil
}

func parseProgress(v any) (int, error) {
	if str, ok := v.(string); ok {
		v = strings.TrimSuffix(strings.TrimSpace(str), "%")
	}
	f, err := cast.ToFloat64E(v)
	if err != nil {
		return 0, err
	}
	if f < 0 || f > 100 {
		return 0, fmt.Errorf("%v out of range", f)
	}
	return int(f + 0.5), nil
}

// normaliseEnum lowercases and strips separators so "In Progress",
// "in-progress" and "in_progress" compare equal.
func normaliseEnum(s string) string {
	return strings.NewReplacer(" ", "", "-", "", "_", "").Replace(strings.ToLower(strings.TrimSpace(s)))
}

// ParseStatus maps common status spellings onto a Status. Empty input is ToDo.
func ParseStatus(s string) (Status, error) {
	switch normaliseEnum(s) {
	case "", "todo", "notstarted", "pending", "planned", "open":
		return StatusToDo, nil
	case "inprogress", "started", "active", "ongoing", "doing":
		return StatusInProgress, nil
	case "done", "complete", "completed", "finished", "closed":
		return StatusDone, nil
	}
	return "", fmt.Errorf("%q is not a task status", s)
}

// ParsePriority maps common priority spellings onto a Priority. Empty input is Medium.
func ParsePriority(s string) (Priority, error) {
	switch normaliseEnum(s) {
	case "low", "minor":
		return PriorityLow, nil
	case "", "medium", "med", "normal":
		return PriorityMedium, nil
	case "high", "urgent", "critical", "major":
		return PriorityHigh, nil
	}
	return "", fmt.Errorf("%q is not a task priority", s)
}
