package harness

import (
	"encoding/json"
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/drumsync/drumsync/internal/engine"
)

// TraceSnapshot is the serialized form of a scenario run, compared
// against testdata/golden/<name>.golden.
type TraceSnapshot struct {
	Scenario string              `json:"scenario"`
	Session  string              `json:"session"`
	FinalBPM float64             `json:"final_bpm"`
	Trace    []engine.TraceEvent `json:"trace"`
}

// RunWithGolden executes a scenario and compares its trace against the
// golden file named after the scenario.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
func RunWithGolden(t *testing.T, scenario *Scenario) (*Result, error) {
	t.Helper()

	result, err := Run(scenario)
	if err != nil {
		return nil, err
	}

	snapshot := TraceSnapshot{
		Scenario: scenario.Name,
		Session:  result.Session,
		FinalBPM: result.FinalBPM,
		Trace:    result.Trace,
	}
	data, err := json.MarshalIndent(snapshot, "", "  ")
	if err != nil {
		return nil, err
	}
	data = append(data, '\n')

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenario.Name, data)
	return result, nil
}
