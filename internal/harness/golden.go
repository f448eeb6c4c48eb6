package harness

import (
	"bytes"
	"encoding/json"
	"fmt"
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/flexiq/internal/ir"
)

// Snapshot renders the trace of a scenario run as indented JSON with
// sorted keys, suitable for golden file comparison.
func Snapshot(scenarioName string, result *Result) ([]byte, error) {
	trace := make(ir.List, len(result.Trace))
	for i, event := range result.Trace {
		trace[i] = eventObject(event)
	}
	snapshot := ir.NewObject(
		ir.O("scenario_name", ir.String(scenarioName)),
		ir.O("trace", trace),
	)

	data, err := ir.Marshal(snapshot)
	if err != nil {
		return nil, fmt.Errorf("snapshot: %w", err)
	}
	var buf bytes.Buffer
	if err := json.Indent(&buf, data, "", "  "); err != nil {
		return nil, fmt.Errorf("snapshot: %w", err)
	}
	buf.WriteByte('\n')
	return buf.Bytes(), nil
}

// eventObject converts a trace event, leaving out empty fields.
func eventObject(event TraceEvent) ir.Object {
	obj := ir.NewObject(
		ir.O("type", ir.String(event.Type)),
		ir.O("step", ir.Int(event.Step)),
	)
	if event.Operation != "" {
		obj["operation"] = ir.String(event.Operation)
	}
	if event.Method != "" {
		obj["method"] = ir.String(event.Method)
	}
	if event.URL != "" {
		obj["url"] = ir.String(event.URL)
	}
	if event.Body != nil {
		obj["body"] = event.Body
	}
	if event.Status != 0 {
		obj["status"] = ir.Int(event.Status)
	}
	if event.Seq != 0 {
		obj["seq"] = ir.Int(event.Seq)
	}
	if event.Type == EventResult && event.Error == "" && event.Value != nil {
		obj["value"] = event.Value
	}
	if event.Error != "" {
		obj["error"] = ir.String(event.Error)
	}
	return obj
}

// RunWithGolden executes a scenario and compares the trace against a golden file.
// The golden file is stored in testdata/golden/{scenario.Name}.golden
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
func RunWithGolden(t *testing.T, scenario *Scenario, opts ...Option) (*Result, error) {
	t.Helper()

	result, err := Run(scenario, opts...)
	if err != nil {
		return nil, err
	}
	if err := AssertGolden(t, scenario.Name, result); err != nil {
		return nil, err
	}
	return result, nil
}

// AssertGolden compares the given result's trace against a golden file
// without re-running the scenario.
func AssertGolden(t *testing.T, scenarioName string, result *Result) error {
	t.Helper()

	data, err := Snapshot(scenarioName, result)
	if err != nil {
		return err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenarioName, data)
	return nil
}
