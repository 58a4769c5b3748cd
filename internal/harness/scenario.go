package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Scenario defines a conformance test scenario.
// Scenarios compile CUE definition files, run a flow of invocations, and
// assert on the resulting trace and journal.
type Scenario struct {
	// Name uniquely identifies this scenario. Also names the golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Defs lists paths to CUE definition files to compile and load.
	// Paths are relative to the scenario file location.
	Defs []string `yaml:"defs"`

	// Token is the call-token prefix for deterministic traces.
	// Empty defaults to "test-call".
	Token string `yaml:"token,omitempty"`

	// Derive declares derived-symbol edges before the flow runs.
	Derive []DeriveStep `yaml:"derive,omitempty"`

	// Contexts supplies fixed values for the context keys the definitions
	// dispatch on.
	Contexts map[string]any `yaml:"contexts,omitempty"`

	// Flow contains the invocations with their expected outcomes.
	Flow []FlowStep `yaml:"flow"`

	// Assertions validate the final trace, journal, and cache counters.
	// Optional: flow expect clauses already assert per-call outcomes.
	Assertions []Assertion `yaml:"assertions,omitempty"`
}

// DeriveStep declares one edge in the derived-symbol tree.
type DeriveStep struct {
	Child  string `yaml:"child"`
	Parent string `yaml:"parent"`
}

// FlowStep invokes a generic and optionally validates the outcome.
type FlowStep struct {
	// Invoke is the generic function name.
	Invoke string `yaml:"invoke"`

	// Args contains the invocation arguments. Values are converted to
	// ir values during execution; floats are rejected.
	Args []any `yaml:"args"`

	// Expect specifies the expected outcome.
	// If nil, the step is assumed to succeed.
	Expect *ExpectClause `yaml:"expect,omitempty"`
}

// ExpectClause specifies an expected dispatch outcome.
type ExpectClause struct {
	// Outcome is "ok" or "error". Empty defaults to "ok".
	Outcome string `yaml:"outcome,omitempty"`

	// Result is the expected return value, compared by canonical JSON.
	// If nil, only the outcome is validated.
	Result any `yaml:"result,omitempty"`

	// Failure is the expected failure code for error outcomes
	// (e.g. "NO_APPLICABLE_METHOD").
	Failure string `yaml:"failure,omitempty"`
}

// Assertion validates the trace, journal, or cache counters.
type Assertion struct {
	// Type specifies the assertion type:
	// - "trace_count": generic appears exactly N times in the trace
	// - "trace_order": generics appear in this relative order
	// - "journal": the run journal equals this label list exactly
	// - "cache_reuse": the combined-callable memo was reused at least
	//   N times over the run (repeat dispatches must not rebuild)
	Type string `yaml:"type"`

	// Generic is the generic name (used by trace_count).
	Generic string `yaml:"generic,omitempty"`

	// Generics is the expected relative order (used by trace_order).
	Generics []string `yaml:"generics,omitempty"`

	// Entries is the expected journal, in order (used by journal).
	Entries []string `yaml:"entries,omitempty"`

	// Count is the expected number (used by trace_count, cache_reuse).
	Count int `yaml:"count"`
}

// Assertion type constants.
const (
	AssertTraceCount = "trace_count"
	AssertTraceOrder = "trace_order"
	AssertJournal    = "journal"
	AssertCacheReuse = "cache_reuse"
)

// LoadScenario reads and parses a scenario YAML file, resolving definition
// paths relative to the scenario file's directory. Returns an error if the
// file is malformed, contains unknown fields (typos), or is missing
// required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true) // Reject unknown fields (catches typos)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	base := filepath.Dir(path)
	for i, defPath := range scenario.Defs {
		if !filepath.IsAbs(defPath) {
			scenario.Defs[i] = filepath.Join(base, defPath)
		}
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
	if len(s.Defs) == 0 {
		return fmt.Errorf("defs list is required and must be non-empty")
	}
	if len(s.Flow) == 0 {
		return fmt.Errorf("flow list is required and must be non-empty")
	}

	for _, defPath := range s.Defs {
		if _, err := os.Stat(defPath); os.IsNotExist(err) {
			return fmt.Errorf("definition file not found: %s", defPath)
		}
	}

	for i, d := range s.Derive {
		if d.Child == "" || d.Parent == "" {
			return fmt.Errorf("derive[%d]: child and parent are required", i)
		}
	}

	for i, step := range s.Flow {
		if step.Invoke == "" {
			return fmt.Errorf("flow[%d]: invoke is required", i)
		}
		if step.Expect != nil {
			switch step.Expect.Outcome {
			case "", "ok", "error":
			default:
				return fmt.Errorf("flow[%d].expect: outcome must be ok or error", i)
			}
			if step.Expect.Failure != "" && step.Expect.Outcome != "error" {
				return fmt.Errorf("flow[%d].expect: failure requires outcome: error", i)
			}
		}
	}

	for i, assertion := range s.Assertions {
		if err := validateAssertion(i, &assertion); err != nil {
			return err
		}
	}

	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	switch a.Type {
	case AssertTraceCount:
		if a.Generic == "" {
			return fmt.Errorf("assertions[%d]: generic is required for trace_count", index)
		}
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative", index)
		}
	case AssertTraceOrder:
		if len(a.Generics) == 0 {
			return fmt.Errorf("assertions[%d]: generics list is required for trace_order", index)
		}
	case AssertJournal:
		if a.Entries == nil {
			return fmt.Errorf("assertions[%d]: entries list is required for journal", index)
		}
	case AssertCacheReuse:
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative", index)
		}
	case "":
		return fmt.Errorf("assertions[%d]: type is required", index)
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}
	return nil
}
