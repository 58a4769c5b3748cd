package harness

import (
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/multimethod/internal/ir"
)

// TraceSnapshot captures the trace of a scenario execution for golden
// comparison. Canonical JSON serialization keeps the bytes deterministic.
type TraceSnapshot struct {
	ScenarioName string
	Trace        []TraceEvent
	Journal      []string
}

// toCanonicalMap converts a TraceSnapshot to a map for ir.MarshalCanonical,
// which only handles ir values, primitives, maps, and slices.
func (s *TraceSnapshot) toCanonicalMap() map[string]any {
	traceList := make([]any, len(s.Trace))
	for i, event := range s.Trace {
		eventMap := map[string]any{
			"generic": event.Generic,
			"args":    event.Args,
			"outcome": event.Outcome,
			"seq":     event.Seq,
		}
		if event.Result != nil {
			eventMap["result"] = event.Result
		}
		if event.Failure != "" {
			eventMap["failure"] = event.Failure
		}
		traceList[i] = eventMap
	}

	result := map[string]any{
		"scenario_name": s.ScenarioName,
		"trace":         traceList,
	}
	if len(s.Journal) > 0 {
		journal := make([]any, len(s.Journal))
		for i, label := range s.Journal {
			journal[i] = label
		}
		result["journal"] = journal
	}
	return result
}

// RunWithGolden executes a scenario on the harness and compares the trace
// against testdata/golden/{scenario.Name}.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
//
// Returns an error if scenario execution fails; trace mismatches fail the
// test via goldie.
func (h *Harness) RunWithGolden(t *testing.T, scenario *Scenario) (*Result, error) {
	t.Helper()

	result, err := h.Run(scenario)
	if err != nil {
		return nil, err
	}

	AssertGolden(t, scenario.Name, result)
	return result, nil
}

// AssertGolden compares an already-obtained result's trace against the
// golden file named scenarioName.
func AssertGolden(t *testing.T, scenarioName string, result *Result) {
	t.Helper()

	snapshot := TraceSnapshot{
		ScenarioName: scenarioName,
		Trace:        result.Trace,
		Journal:      result.Journal,
	}

	traceJSON, err := ir.MarshalCanonical(snapshot.toCanonicalMap())
	if err != nil {
		t.Fatalf("marshal trace snapshot: %v", err)
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenarioName, traceJSON)
}
