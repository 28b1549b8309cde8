package engine

import (
	"sync"

	"github.com/drumsync/drumsync/internal/score"
)

// TraceEvent records one successfully matched strike.
type TraceEvent struct {
	Seq        int64            `json:"seq"`
	Instrument score.Instrument `json:"instrument"`
	Actual     float64          `json:"actual"`
	Ref        float64          `json:"ref"`
	Err        float64          `json:"error"`
	BPM        float64          `json:"bpm"`
}

// Trace collects the matched strikes of a session in processing order.
//
// The Run loop is the only writer; Snapshot may be called from other
// goroutines (tests, the simulate command after Run returns), hence the
// mutex.
type Trace struct {
	mu     sync.Mutex
	events []TraceEvent
}

// NewTrace creates an empty trace.
func NewTrace() *Trace {
	return &Trace{}
}

// Record appends one matched strike.
func (t *Trace) Record(e TraceEvent) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.events = append(t.events, e)
}

// Snapshot returns a copy of the recorded events.
func (t *Trace) Snapshot() []TraceEvent {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]TraceEvent, len(t.events))
	copy(out, t.events)
	return out
}

// Len returns the number of recorded events.
func (t *Trace) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.events)
}
