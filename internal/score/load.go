package score

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// yamlBeatMap is the on-disk YAML shape of a beatmap document.
type yamlBeatMap struct {
	BPM            float64          `yaml:"bpm"`
	SecondsPerSlot float64          `yaml:"seconds_per_slot"`
	Tracks         map[string][]int `yaml:"tracks"`
}

// Load reads a beatmap from disk, dispatching on the file extension:
// ".txt" selects the legacy drum_sync_data format, everything else is
// parsed as YAML. The returned map has passed structural validation.
func Load(path string) (*BeatMap, error) {
	if filepath.Ext(path) == ".txt" {
		return LoadLegacy(path)
	}
	return LoadYAML(path)
}

// LoadYAML reads the native YAML beatmap format:
//
//	bpm: 120
//	seconds_per_slot: 0.5
//	tracks:
//	  kick:  [1, 0, 0, 1]
//	  snare: [0, 0, 1, 0]
func LoadYAML(path string) (*BeatMap, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read beatmap: %w", err)
	}
	return ParseYAML(data)
}

// ParseYAML decodes and validates a YAML beatmap document.
func ParseYAML(data []byte) (*BeatMap, error) {
	var doc yamlBeatMap
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse beatmap: %w", err)
	}

	m := &BeatMap{
		NominalBPM:     doc.BPM,
		SecondsPerSlot: doc.SecondsPerSlot,
		Tracks:         make(map[Instrument][]uint8, len(doc.Tracks)),
	}
	for name, flags := range doc.Tracks {
		track := make([]uint8, len(flags))
		for i, f := range flags {
			if f != 0 && f != 1 {
				return nil, fmt.Errorf("parse beatmap: track %q slot %d: flag must be 0 or 1, got %d", name, i, f)
			}
			track[i] = uint8(f)
		}
		m.Tracks[Instrument(name)] = track
	}

	if err := m.Check(); err != nil {
		return nil, err
	}
	return m, nil
}

// LoadLegacy reads the drum_sync_data text format produced by the score
// preprocessing pipeline. Recognized keys:
//
//	bpm: <float>
//	sensor_rate_hz: <float>
//	samples_per_array_element: <float>
//	beat_array_<instrument>: 1,0,0,1,...
//
// Blank lines and lines starting with "#" or "##" are ignored. The slot
// time is derived as samples_per_array_element / sensor_rate_hz.
func LoadLegacy(path string) (*BeatMap, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read beatmap: %w", err)
	}
	return ParseLegacy(data)
}

// ParseLegacy decodes and validates a legacy drum_sync_data document.
func ParseLegacy(data []byte) (*BeatMap, error) {
	var (
		bpm         float64
		sensorRate  float64
		samplesPer  float64
		haveBPM     bool
		haveRate    bool
		haveSamples bool
	)
	tracks := make(map[Instrument][]uint8)

	for lineNo, raw := range strings.Split(string(data), "\n") {
		line := strings.TrimSpace(raw)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		key, value, ok := strings.Cut(line, ":")
		if !ok {
			return nil, fmt.Errorf("parse beatmap: line %d: expected key: value", lineNo+1)
		}
		key = strings.TrimSpace(key)
		value = strings.TrimSpace(value)

		switch {
		case key == "bpm":
			bpm, ok = parseFloatField(value)
			haveBPM = ok
		case key == "sensor_rate_hz":
			sensorRate, ok = parseFloatField(value)
			haveRate = ok
		case key == "samples_per_array_element":
			samplesPer, ok = parseFloatField(value)
			haveSamples = ok
		case strings.HasPrefix(key, "beat_array_"):
			inst := Instrument(strings.TrimPrefix(key, "beat_array_"))
			track, err := parseFlagList(value)
			if err != nil {
				return nil, fmt.Errorf("parse beatmap: line %d: %w", lineNo+1, err)
			}
			tracks[inst] = track
			ok = true
		default:
			// Unknown keys are tolerated; the preprocessing pipeline
			// emits extra metadata fields.
			continue
		}
		if !ok {
			return nil, fmt.Errorf("parse beatmap: line %d: invalid value %q for %s", lineNo+1, value, key)
		}
	}

	if !haveBPM || !haveRate || !haveSamples {
		return nil, fmt.Errorf("parse beatmap: missing required keys bpm / sensor_rate_hz / samples_per_array_element")
	}
	if sensorRate <= 0 {
		return nil, fmt.Errorf("parse beatmap: sensor_rate_hz must be positive, got %v", sensorRate)
	}

	m := &BeatMap{
		NominalBPM:     bpm,
		SecondsPerSlot: samplesPer / sensorRate,
		Tracks:         tracks,
	}
	if err := m.Check(); err != nil {
		return nil, err
	}
	return m, nil
}

func parseFloatField(s string) (float64, bool) {
	v, err := strconv.ParseFloat(s, 64)
	return v, err == nil
}

func parseFlagList(s string) ([]uint8, error) {
	var track []uint8
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		switch part {
		case "0":
			track = append(track, 0)
		case "1":
			track = append(track, 1)
		default:
			return nil, fmt.Errorf("beat flag must be 0 or 1, got %q", part)
		}
	}
	return track, nil
}
