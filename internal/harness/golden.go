package harness

import (
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/wikichain/internal/ir"
)

// TraceSnapshot captures the complete trace for a scenario execution.
// All fields use canonical JSON serialization for deterministic comparison.
type TraceSnapshot struct {
	ScenarioName string       `json:"scenario_name"`
	Backend      string       `json:"backend,omitempty"`
	Trace        []TraceEvent `json:"trace"`
}

// toCanonicalMap converts a TraceSnapshot to a map[string]any for canonical JSON serialization.
// This is required because ir.MarshalCanonical only handles maps, slices and primitives.
func (s *TraceSnapshot) toCanonicalMap() map[string]any {
	traceList := make([]any, len(s.Trace))
	for i, ev := range s.Trace {
		eventMap := map[string]any{
			"step":       ev.Step,
			"op":         ev.Op,
			"agent":      ev.Agent,
			"content":    ev.Content,
			"permission": ev.Permission,
			"outcome":    ev.Outcome,
			"seq":        ev.Seq,
		}
		if ev.Target != "" {
			eventMap["target"] = ev.Target
		}
		if ev.Reason != "" {
			eventMap["reason"] = ev.Reason
		}
		if ev.Saved != "" {
			eventMap["saved"] = ev.Saved
		}
		traceList[i] = eventMap
	}

	result := map[string]any{
		"scenario_name": s.ScenarioName,
		"trace":         traceList,
	}
	if s.Backend != "" {
		result["backend"] = s.Backend
	}
	return result
}

// MarshalTrace renders a result's trace as canonical JSON.
func MarshalTrace(scenario *Scenario, result *Result) ([]byte, error) {
	snapshot := TraceSnapshot{
		ScenarioName: scenario.Name,
		Backend:      scenario.Backend,
		Trace:        result.Trace,
	}
	return ir.MarshalCanonical(snapshot.toCanonicalMap())
}

// RunWithGolden executes a scenario and compares the trace against a golden file.
// The golden file is stored in testdata/golden/{scenario.Name}.golden
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
//
// Returns error if scenario execution fails.
// Test failure (via goldie) occurs if trace doesn't match golden file.
func RunWithGolden(t *testing.T, scenario *Scenario) (*Result, error) {
	t.Helper()

	result, err := Run(scenario)
	if err != nil {
		return nil, err
	}

	traceJSON, err := MarshalTrace(scenario, result)
	if err != nil {
		return nil, err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenario.Name, traceJSON)

	return result, nil
}
