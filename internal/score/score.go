// Package score holds the reference rhythm data the sync engine plays
// against: per-instrument boolean beat timelines at a fixed time
// resolution, plus the nominal tempo the session starts from.
//
// A BeatMap is built once (from a YAML beatmap file or a legacy
// drum_sync_data text file), validated, and never mutated afterwards.
// The engine and matcher read it concurrently without synchronization.
package score

import (
	"fmt"
	"sort"
	"strings"
)

// Instrument identifies one reference track in a BeatMap.
type Instrument string

// The instruments produced by the drum sensor rig.
const (
	Kick  Instrument = "kick"
	Snare Instrument = "snare"
	Hit   Instrument = "hit"
)

// BeatMap is the reference rhythm for a session.
//
// Tracks map each instrument to an ordered sequence of 0/1 flags; a 1 at
// index i means a reference beat is expected at i*SecondsPerSlot seconds
// after session start.
//
// Immutable after construction. Validate before use - the engine refuses
// to start on a map that fails validation.
type BeatMap struct {
	// NominalBPM is the tempo the reference rhythm was written at and the
	// initial value of the controlled tempo.
	NominalBPM float64

	// SecondsPerSlot is the real time covered by one array slot.
	SecondsPerSlot float64

	// Tracks holds the per-instrument beat flags.
	Tracks map[Instrument][]uint8
}

// Validation error codes (E100-E109).
const (
	ErrSlotTimeNotPositive = "E100" // seconds_per_slot must be > 0
	ErrBPMNotPositive      = "E101" // bpm must be > 0
	ErrNoTracks            = "E102" // at least one track required
	ErrEmptyTrack          = "E103" // track has no slots
	ErrInvalidFlag         = "E104" // flag outside {0,1}
	ErrEmptyInstrument     = "E105" // instrument name empty
	ErrSchemaViolation     = "E106" // document rejected by CUE schema
)

// ValidationError describes one defect found in a beatmap document.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code"`
}

// Error implements the error interface.
func (e ValidationError) Error() string {
	return fmt.Sprintf("[%s] %s: %s", e.Code, e.Field, e.Message)
}

// Validate checks the structural invariants of the map.
// Returns all defects found (does not fail-fast).
func (m *BeatMap) Validate() []ValidationError {
	var errs []ValidationError

	if m.SecondsPerSlot <= 0 {
		errs = append(errs, ValidationError{
			Field:   "seconds_per_slot",
			Message: fmt.Sprintf("must be positive, got %v", m.SecondsPerSlot),
			Code:    ErrSlotTimeNotPositive,
		})
	}
	if m.NominalBPM <= 0 {
		errs = append(errs, ValidationError{
			Field:   "bpm",
			Message: fmt.Sprintf("must be positive, got %v", m.NominalBPM),
			Code:    ErrBPMNotPositive,
		})
	}
	if len(m.Tracks) == 0 {
		errs = append(errs, ValidationError{
			Field:   "tracks",
			Message: "at least one instrument track is required",
			Code:    ErrNoTracks,
		})
	}

	for inst, track := range m.Tracks {
		if strings.TrimSpace(string(inst)) == "" {
			errs = append(errs, ValidationError{
				Field:   "tracks",
				Message: "instrument name must be non-empty",
				Code:    ErrEmptyInstrument,
			})
		}
		if len(track) == 0 {
			errs = append(errs, ValidationError{
				Field:   fmt.Sprintf("tracks.%s", inst),
				Message: "track has no slots",
				Code:    ErrEmptyTrack,
			})
		}
		for i, flag := range track {
			if flag != 0 && flag != 1 {
				errs = append(errs, ValidationError{
					Field:   fmt.Sprintf("tracks.%s[%d]", inst, i),
					Message: fmt.Sprintf("beat flag must be 0 or 1, got %d", flag),
					Code:    ErrInvalidFlag,
				})
				break // one bad flag per track is enough to report
			}
		}
	}

	return errs
}

// Check runs Validate and folds the result into a single error,
// for callers that only need pass/fail.
func (m *BeatMap) Check() error {
	errs := m.Validate()
	if len(errs) == 0 {
		return nil
	}
	msgs := make([]string, len(errs))
	for i, e := range errs {
		msgs[i] = e.Error()
	}
	return fmt.Errorf("invalid beatmap: %s", strings.Join(msgs, "; "))
}

// Instruments returns the track names in sorted order.
// Sorted so that iteration over the map is deterministic.
func (m *BeatMap) Instruments() []Instrument {
	out := make([]Instrument, 0, len(m.Tracks))
	for inst := range m.Tracks {
		out = append(out, inst)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Track returns the flag sequence for an instrument.
func (m *BeatMap) Track(inst Instrument) ([]uint8, bool) {
	t, ok := m.Tracks[inst]
	return t, ok
}

// BeatTimes returns the reference beat times of an instrument, in seconds
// from session start, in increasing order.
func (m *BeatMap) BeatTimes(inst Instrument) []float64 {
	track, ok := m.Tracks[inst]
	if !ok {
		return nil
	}
	var times []float64
	for i, flag := range track {
		if flag == 1 {
			times = append(times, float64(i)*m.SecondsPerSlot)
		}
	}
	return times
}

// NumBeats returns the number of reference beats on an instrument's track.
func (m *BeatMap) NumBeats(inst Instrument) int {
	n := 0
	for _, flag := range m.Tracks[inst] {
		if flag == 1 {
			n++
		}
	}
	return n
}

// Duration returns the time covered by the longest track.
func (m *BeatMap) Duration() float64 {
	longest := 0
	for _, track := range m.Tracks {
		if len(track) > longest {
			longest = len(track)
		}
	}
	return float64(longest) * m.SecondsPerSlot
}

// Summary renders a human-readable description of the map, one line per
// instrument. Used by the inspect command and golden tests.
func (m *BeatMap) Summary() string {
	var b strings.Builder
	fmt.Fprintf(&b, "bpm: %g\n", m.NominalBPM)
	fmt.Fprintf(&b, "seconds_per_slot: %g\n", m.SecondsPerSlot)
	fmt.Fprintf(&b, "duration: %gs\n", m.Duration())
	for _, inst := range m.Instruments() {
		track := m.Tracks[inst]
		fmt.Fprintf(&b, "track %-8s slots=%d beats=%d\n", inst, len(track), m.NumBeats(inst))
	}
	return b.String()
}
