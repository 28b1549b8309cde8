package harness

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/drumsync/drumsync/internal/score"
)

// Scenario defines one deterministic tracking session: an inline beatmap,
// controller tuning, a scripted strike sequence, and assertions on the
// resulting trace.
type Scenario struct {
	// Name uniquely identifies this scenario; it also names the golden
	// trace file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Beatmap is the inline reference rhythm.
	Beatmap BeatmapSpec `yaml:"beatmap"`

	// Controller overrides the PID tuning. Omitted fields fall back to
	// the stock defaults.
	Controller *ControllerSpec `yaml:"controller,omitempty"`

	// Strikes is the scripted performance, in emission order.
	Strikes []StrikeStep `yaml:"strikes"`

	// Assertions validate the final trace and tempo.
	// Supported types: final_bpm, trace_count, bpm_in_range
	Assertions []Assertion `yaml:"assertions"`

	// SessionToken is the fixed token used for the run. Defaults to
	// "session-<name>" so golden traces stay stable.
	SessionToken string `yaml:"session_token,omitempty"`
}

// BeatmapSpec is the inline beatmap of a scenario.
type BeatmapSpec struct {
	BPM            float64            `yaml:"bpm"`
	SecondsPerSlot float64            `yaml:"seconds_per_slot"`
	Tracks         map[string][]uint8 `yaml:"tracks"`
}

// toBeatMap converts the inline document into a validated BeatMap.
func (b BeatmapSpec) toBeatMap() (*score.BeatMap, error) {
	tracks := make(map[score.Instrument][]uint8, len(b.Tracks))
	for name, flags := range b.Tracks {
		tracks[score.Instrument(name)] = flags
	}
	bm := &score.BeatMap{
		NominalBPM:     b.BPM,
		SecondsPerSlot: b.SecondsPerSlot,
		Tracks:         tracks,
	}
	if err := bm.Check(); err != nil {
		return nil, err
	}
	return bm, nil
}

// ControllerSpec overrides PID tuning per scenario. Pointer fields
// distinguish "not set" from an explicit zero (Ki: 0 is a real tuning).
type ControllerSpec struct {
	Kp  *float64 `yaml:"kp,omitempty"`
	Ki  *float64 `yaml:"ki,omitempty"`
	Kd  *float64 `yaml:"kd,omitempty"`
	Min *float64 `yaml:"min,omitempty"`
	Max *float64 `yaml:"max,omitempty"`
}

// StrikeStep is one scripted strike.
type StrikeStep struct {
	// At is the strike time in seconds since session start.
	At float64 `yaml:"at"`

	Instrument string `yaml:"instrument"`
}

// Assertion validates the run result.
type Assertion struct {
	// Type specifies the assertion type:
	// - "final_bpm": the last published tempo equals Value within Tolerance
	// - "trace_count": exactly Count strikes were matched
	// - "bpm_in_range": every traced tempo lies within [Min, Max]
	Type string `yaml:"type"`

	// Value is the expected tempo (final_bpm).
	Value float64 `yaml:"value,omitempty"`

	// Tolerance is the allowed deviation (final_bpm). Zero means exact.
	Tolerance float64 `yaml:"tolerance,omitempty"`

	// Count is the expected number of matched strikes (trace_count).
	Count int `yaml:"count,omitempty"`

	// Min and Max bound the traced tempo (bpm_in_range).
	Min float64 `yaml:"min,omitempty"`
	Max float64 `yaml:"max,omitempty"`
}

// Assertion type constants.
const (
	AssertFinalBPM   = "final_bpm"
	AssertTraceCount = "trace_count"
	AssertBPMInRange = "bpm_in_range"
)

// LoadScenario reads and parses a scenario YAML file. Unknown fields are
// rejected to catch typos.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
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
	if len(s.Beatmap.Tracks) == 0 {
		return fmt.Errorf("beatmap.tracks is required and must be non-empty")
	}
	if len(s.Strikes) == 0 {
		return fmt.Errorf("strikes list is required and must be non-empty")
	}
	if len(s.Assertions) == 0 {
		return fmt.Errorf("assertions list is required and must be non-empty")
	}

	for i, strike := range s.Strikes {
		if strike.Instrument == "" {
			return fmt.Errorf("strikes[%d]: instrument is required", i)
		}
		if strike.At < 0 {
			return fmt.Errorf("strikes[%d]: at must be non-negative", i)
		}
	}

	for i, a := range s.Assertions {
		if err := validateAssertion(i, &a); err != nil {
			return err
		}
	}
	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	switch a.Type {
	case "":
		return fmt.Errorf("assertions[%d]: type is required", index)
	case AssertFinalBPM:
		if a.Value <= 0 {
			return fmt.Errorf("assertions[%d]: value must be positive for final_bpm", index)
		}
		if a.Tolerance < 0 {
			return fmt.Errorf("assertions[%d]: tolerance must be non-negative for final_bpm", index)
		}
	case AssertTraceCount:
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for trace_count", index)
		}
	case AssertBPMInRange:
		if a.Max <= a.Min {
			return fmt.Errorf("assertions[%d]: bounds inverted for bpm_in_range: [%v, %v]", index, a.Min, a.Max)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}
	return nil
}
