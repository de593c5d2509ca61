package harness

import (
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/recache/internal/ir"
)

// TraceSnapshot captures the applied operations of a scenario execution.
// All fields use canonical JSON serialization for deterministic comparison.
type TraceSnapshot struct {
	ScenarioName string         `json:"scenario_name"`
	Trace        []TraceEvent   `json:"trace"`
	Deliveries   map[string]int `json:"deliveries,omitempty"`
}

// toCanonical converts a TraceSnapshot to an IRObject for canonical JSON
// serialization.
func (s *TraceSnapshot) toCanonical() ir.IRObject {
	trace := make(ir.IRArray, len(s.Trace))
	for i, event := range s.Trace {
		obj := ir.IRObject{
			"seq":       ir.IRInt(event.Seq),
			"step":      ir.IRInt(event.Step),
			"operation": event.Operation,
		}
		if event.Result != nil {
			obj["result"] = event.Result
		}
		trace[i] = obj
	}

	out := ir.IRObject{
		"scenario_name": ir.IRString(s.ScenarioName),
		"trace":         trace,
	}
	if len(s.Deliveries) > 0 {
		deliveries := make(ir.IRObject, len(s.Deliveries))
		for name, n := range s.Deliveries {
			deliveries[name] = ir.IRInt(n)
		}
		out["deliveries"] = deliveries
	}
	return out
}

// Snapshot returns the canonical JSON golden form of a result.
func Snapshot(scenarioName string, result *Result) ([]byte, error) {
	snapshot := TraceSnapshot{
		ScenarioName: scenarioName,
		Trace:        result.Trace,
		Deliveries:   result.Deliveries,
	}
	return ir.MarshalCanonical(snapshot.toCanonical())
}

// RunWithGolden executes a scenario and compares the trace against a golden file.
// The golden file is stored in testdata/golden/{scenario.Name}.golden
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
//
// Returns the result so callers can also check Pass. Test failure (via
// goldie) occurs if the trace doesn't match the golden file.
func RunWithGolden(t *testing.T, scenario *Scenario) (*Result, error) {
	t.Helper()

	result, err := Run(scenario)
	if err != nil {
		return nil, err
	}
	if err := AssertGolden(t, scenario.Name, result); err != nil {
		return nil, err
	}
	return result, nil
}

// AssertGolden compares the given result's trace against a golden file.
// This is useful when you've already run a scenario and want to compare
// the result against a golden file without re-running.
func AssertGolden(t *testing.T, scenarioName string, result *Result) error {
	t.Helper()

	traceJSON, err := Snapshot(scenarioName, result)
	if err != nil {
		return err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenarioName, traceJSON)
	return nil
}
