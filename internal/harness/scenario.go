package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Scenario defines a browsing session to replay against a scene description.
type Scenario struct {
	// Name uniquely identifies this scenario. It also names the golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Scene is the path of the CUE scene description to build.
	// Relative paths are resolved against the scenario file's directory.
	Scene string `yaml:"scene"`

	// IDs pins the IDs handed to the first nodes, sequences and browsers
	// the engine creates. Later objects get "id-<n>".
	IDs []string `yaml:"ids,omitempty"`

	// Steps run in order after the scene is built.
	Steps []Step `yaml:"steps"`

	// Assertions validate the final trace and workspace.
	Assertions []Assertion `yaml:"assertions"`
}

// Step is one user action against the engine.
type Step struct {
	// Action is one of the Step* constants.
	Action string `yaml:"action"`

	// Browser names the target browser (all actions except tick and advance).
	Browser string `yaml:"browser,omitempty"`

	// Sequence names the entry whose proxy is edited (modify).
	Sequence string `yaml:"sequence,omitempty"`

	// Item is the item number (select) or the increment (select_next).
	Item int `yaml:"item,omitempty"`

	// Duration moves the wall clock (advance), e.g. "250ms".
	Duration string `yaml:"duration,omitempty"`

	// Enabled starts or stops playback or recording.
	Enabled bool `yaml:"enabled,omitempty"`

	// Content replaces the proxy content (modify). Decimals may be written
	// as YAML floats.
	Content map[string]any `yaml:"content,omitempty"`

	// ExpectError declares that the engine rejects this step.
	ExpectError bool `yaml:"expect_error,omitempty"`
}

// Step actions.
const (
	StepSelect     = "select"
	StepSelectNext = "select_next"
	StepAdvance    = "advance"
	StepTick       = "tick"
	StepModify     = "modify"
	StepSnapshot   = "snapshot"
	StepRecord     = "record"
	StepPlayback   = "playback"
)

// Assertion validates the trace or the final workspace.
type Assertion struct {
	// Type specifies the assertion type:
	// - "trace_count": trace holds exactly Count events of Event (for Browser, if set)
	// - "trace_order": Events appear in this order (not necessarily adjacent)
	// - "selected": Browser has Item selected
	// - "proxy": proxy of Sequence in Browser holds Expect (and is called Name, if set)
	// - "item": Sequence has an item at At holding Expect, or none when Absent
	// - "index_values": Sequence holds exactly Values
	Type string `yaml:"type"`

	Event  string   `yaml:"event,omitempty"`
	Events []string `yaml:"events,omitempty"`
	Count  int      `yaml:"count,omitempty"`

	Browser  string `yaml:"browser,omitempty"`
	Sequence string `yaml:"sequence,omitempty"`
	Item     int    `yaml:"item,omitempty"`
	At       string `yaml:"at,omitempty"`
	Name     string `yaml:"name,omitempty"`
	Absent   bool   `yaml:"absent,omitempty"`

	// Expect contains expected content fields. Subset match: only the
	// listed fields are compared; numbers compare by value.
	Expect map[string]any `yaml:"expect,omitempty"`

	Values []string `yaml:"values,omitempty"`
}

// Assertion type constants.
const (
	AssertTraceCount  = "trace_count"
	AssertTraceOrder  = "trace_order"
	AssertSelected    = "selected"
	AssertProxy       = "proxy"
	AssertItem        = "item"
	AssertIndexValues = "index_values"
)

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	// Strict field validation catches typos like "assertion:" vs "assertions:"
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if scenario.Scene != "" && !filepath.IsAbs(scenario.Scene) {
		scenario.Scene = filepath.Join(filepath.Dir(path), scenario.Scene)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if s.Scene == "" {
		return fmt.Errorf("scene is required")
	}
	if _, err := os.Stat(s.Scene); os.IsNotExist(err) {
		return fmt.Errorf("scene file not found: %s", s.Scene)
	}
	if len(s.Assertions) == 0 {
		return fmt.Errorf("assertions list is required and must be non-empty")
	}

	for i, step := range s.Steps {
		if err := validateStep(i, &step); err != nil {
			return err
		}
	}
	for i, assertion := range s.Assertions {
		if err := validateAssertion(i, &assertion); err != nil {
			return err
		}
	}
	return nil
}

func validateStep(index int, s *Step) error {
	switch s.Action {
	case "":
		return fmt.Errorf("steps[%d]: action is required", index)
	case StepTick:
		return nil
	case StepAdvance:
		d, err := time.ParseDuration(s.Duration)
		if err != nil {
			return fmt.Errorf("steps[%d]: invalid duration %q: %w", index, s.Duration, err)
		}
		if d < 0 {
			return fmt.Errorf("steps[%d]: duration must be non-negative", index)
		}
		return nil
	case StepSelect, StepSelectNext, StepSnapshot, StepRecord, StepPlayback:
		if s.Browser == "" {
			return fmt.Errorf("steps[%d]: browser is required for %s", index, s.Action)
		}
		return nil
	case StepModify:
		if s.Browser == "" || s.Sequence == "" {
			return fmt.Errorf("steps[%d]: browser and sequence are required for modify", index)
		}
		if len(s.Content) == 0 {
			return fmt.Errorf("steps[%d]: content is required for modify", index)
		}
		return nil
	default:
		return fmt.Errorf("steps[%d]: unknown action %q", index, s.Action)
	}
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	switch a.Type {
	case "":
		return fmt.Errorf("assertions[%d]: type is required", index)
	case AssertTraceCount:
		if a.Event == "" {
			return fmt.Errorf("assertions[%d]: event is required for trace_count", index)
		}
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for trace_count", index)
		}
	case AssertTraceOrder:
		if len(a.Events) == 0 {
			return fmt.Errorf("assertions[%d]: events list is required for trace_order", index)
		}
	case AssertSelected:
		if a.Browser == "" {
			return fmt.Errorf("assertions[%d]: browser is required for selected", index)
		}
	case AssertProxy:
		if a.Browser == "" || a.Sequence == "" {
			return fmt.Errorf("assertions[%d]: browser and sequence are required for proxy", index)
		}
		if len(a.Expect) == 0 && a.Name == "" {
			return fmt.Errorf("assertions[%d]: expect or name is required for proxy", index)
		}
	case AssertItem:
		if a.Sequence == "" || a.At == "" {
			return fmt.Errorf("assertions[%d]: sequence and at are required for item", index)
		}
		if !a.Absent && len(a.Expect) == 0 {
			return fmt.Errorf("assertions[%d]: expect is required for item unless absent", index)
		}
	case AssertIndexValues:
		if a.Sequence == "" {
			return fmt.Errorf("assertions[%d]: sequence is required for index_values", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}
	return nil
}
