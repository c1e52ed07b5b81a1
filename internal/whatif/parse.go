package whatif

import (
	"fmt"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/Iron-Ham/gantry/internal/errors"
)

// Parse reads a perturbation written as ID+N (lengthen by N days), ID-N
// (shorten by N days) or ID>N (hold the start back by N days). Whitespace
// around the parts is ignored.
func Parse(s string) (Perturbation, error) {
	s = strings.TrimSpace(s)
	i := strings.LastIndexAny(s, "+->")
	if i <= 0 || i == len(s)-1 {
		return Perturbation{}, invalidSyntax(s)
	}

	id := strings.TrimSpace(s[:i])
	n, err := strconv.Atoi(strings.TrimSpace(s[i+1:]))
	if id == "" || err != nil || n < 0 {
		return Perturbation{}, invalidSyntax(s)
	}

	switch s[i] {
	case '+':
		return Delay(id, n), nil
	case '-':
		return Delay(id, -n), nil
	default:
		return Shift(id, n), nil
	}
}

// ParseAll parses every entry of list.
func ParseAll(list []string) ([]Perturbation, error) {
	out := make([]Perturbation, 0, len(list))
	for _, s := range list {
		p, err := Parse(s)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}

// scenarioDocument is one entry of a scenario file.
type scenarioDocument struct {
	Name    string   `yaml:"name"`
	Changes []string `yaml:"changes"`
}

// DecodeScenarios reads a YAML or JSON list of named scenarios:
//
//	- name: wet week
//	  changes: [excavation+3, footings>2]
//
// A document with a top-level "scenarios" key is accepted too. Unnamed
// scenarios are called "scenario N".
func DecodeScenarios(data []byte) ([]Scenario, error) {
	var docs []scenarioDocument
	if err := yaml.Unmarshal(data, &docs); err != nil {
		var wrapped struct {
			Scenarios []scenarioDocument `yaml:"scenarios"`
		}
		if err2 := yaml.Unmarshal(data, &wrapped); err2 != nil {
			return nil, fmt.Errorf("parsing scenarios: %w", err)
		}
		docs = wrapped.Scenarios
	}
	if len(docs) == 0 {
		return nil, fmt.Errorf("no scenarios defined")
	}

	out := make([]Scenario, 0, len(docs))
	for i, d := range docs {
		name := strings.TrimSpace(d.Name)
		if name == "" {
			name = fmt.Sprintf("scenario %d", i+1)
		}
		perts, err := ParseAll(d.Changes)
		if err != nil {
			return nil, errors.Wrapf(err, "scenario %q", name)
		}
		if len(perts) == 0 {
			return nil, fmt.Errorf("scenario %q has no changes", name)
		}
		out = append(out, Scenario{Name: name, Perturbations: perts})
	}
	return out, nil
}

func invalidSyntax(s string) error {
	return errors.NewValidationError(errors.KindInvalidField,
		fmt.Sprintf("cannot parse change %q: want ID+DAYS, ID-DAYS or ID>DAYS", s))
}
