package engine

import (
	"errors"
	"fmt"

	"github.com/drumsync/drumsync/internal/score"
)

// MatchErrorCode categorizes why a strike could not be matched.
type MatchErrorCode string

const (
	// ErrCodeTrackExhausted means the instrument's reference track has no
	// unconsumed beat left. Terminal for that instrument, never fatal for
	// the session.
	ErrCodeTrackExhausted MatchErrorCode = "TRACK_EXHAUSTED"

	// ErrCodeUnknownInstrument means the strike names an instrument the
	// beatmap has no track for. A contract violation by the event source;
	// the strike is dropped and logged.
	ErrCodeUnknownInstrument MatchErrorCode = "UNKNOWN_INSTRUMENT"
)

// MatchError is returned by Matcher.ComputeError when a strike cannot be
// paired with a reference beat.
type MatchError struct {
	Code       MatchErrorCode
	Instrument score.Instrument
	Message    string
}

// Error implements the error interface.
func (e *MatchError) Error() string {
	return fmt.Sprintf("%s: %s (instrument=%s)", e.Code, e.Message, e.Instrument)
}

// IsTrackExhausted reports whether err is a track-exhaustion match error.
// Uses errors.As to handle wrapped errors.
func IsTrackExhausted(err error) bool {
	var me *MatchError
	if errors.As(err, &me) {
		return me.Code == ErrCodeTrackExhausted
	}
	return false
}

// IsUnknownInstrument reports whether err is an unknown-instrument match
// error. Uses errors.As to handle wrapped errors.
func IsUnknownInstrument(err error) bool {
	var me *MatchError
	if errors.As(err, &me) {
		return me.Code == ErrCodeUnknownInstrument
	}
	return false
}

func newTrackExhaustedError(inst score.Instrument) *MatchError {
	return &MatchError{
		Code:       ErrCodeTrackExhausted,
		Instrument: inst,
		Message:    "no unconsumed reference beat remains",
	}
}

func newUnknownInstrumentError(inst score.Instrument) *MatchError {
	return &MatchError{
		Code:       ErrCodeUnknownInstrument,
		Instrument: inst,
		Message:    "beatmap has no track for instrument",
	}
}
