package engine

import (
	"github.com/drumsync/drumsync/internal/score"
)

// Match is the pairing of one strike with one reference beat.
type Match struct {
	// Index is the slot index of the matched reference beat.
	Index int

	// Ref is the reference beat time in seconds from session start.
	Ref float64

	// Err is the timing error: actual minus reference. Positive means the
	// performer struck late.
	Err float64
}

// Matcher pairs strikes with reference beats, one instrument cursor each.
//
// Matching is strictly forward and at-most-one-to-one: a reference beat is
// consumed by exactly one strike and never re-evaluated, and a strike can
// never match a beat the cursor has already passed. A strike whose
// timestamp lies far before the next unconsumed beat still matches that
// beat - the matcher never rewinds, large error and all.
//
// Owned by the engine's Run loop; not safe for concurrent use.
type Matcher struct {
	dt     float64
	tracks map[score.Instrument][]uint8
	next   map[score.Instrument]int
}

// NewMatcher creates a matcher over the beatmap's tracks with every
// instrument cursor at slot 0. The beatmap is read, never written.
func NewMatcher(m *score.BeatMap) *Matcher {
	next := make(map[score.Instrument]int, len(m.Tracks))
	for inst := range m.Tracks {
		next[inst] = 0
	}
	return &Matcher{
		dt:     m.SecondsPerSlot,
		tracks: m.Tracks,
		next:   next,
	}
}

// ComputeError matches a strike at tActual seconds against the next
// unconsumed reference beat of inst.
//
// On success the cursor advances past the matched beat unconditionally,
// even if a later strike would have fit it better. Returns a MatchError
// with code TRACK_EXHAUSTED when no flagged slot remains (the cursor is
// left in place and every later call answers the same), or with code
// UNKNOWN_INSTRUMENT when the beatmap has no track for inst.
func (m *Matcher) ComputeError(inst score.Instrument, tActual float64) (Match, error) {
	track, ok := m.tracks[inst]
	if !ok {
		return Match{}, newUnknownInstrumentError(inst)
	}

	idx := m.next[inst]
	for idx < len(track) && track[idx] != 1 {
		idx++
	}
	if idx >= len(track) {
		// Park the cursor at the end so the scan is not repeated.
		m.next[inst] = len(track)
		return Match{}, newTrackExhaustedError(inst)
	}

	ref := float64(idx) * m.dt
	m.next[inst] = idx + 1

	return Match{
		Index: idx,
		Ref:   ref,
		Err:   tActual - ref,
	}, nil
}

// Cursor returns the current next-slot index for an instrument.
// Exposed for inspection and tests.
func (m *Matcher) Cursor(inst score.Instrument) (int, bool) {
	idx, ok := m.next[inst]
	return idx, ok
}

// Remaining returns how many unconsumed reference beats inst still has.
func (m *Matcher) Remaining(inst score.Instrument) int {
	track, ok := m.tracks[inst]
	if !ok {
		return 0
	}
	n := 0
	for i := m.next[inst]; i < len(track); i++ {
		if track[i] == 1 {
			n++
		}
	}
	return n
}
