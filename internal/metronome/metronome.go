// Package metronome emits ticks at the interval implied by the tempo the
// engine publishes, re-reading the shared tempo cell each cycle.
package metronome

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/drumsync/drumsync/internal/engine"
)

// State is the emitter lifecycle: idle until Run, stopped is terminal.
type State int32

const (
	StateIdle State = iota
	StateRunning
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRunning:
		return "running"
	case StateStopped:
		return "stopped"
	default:
		return fmt.Sprintf("State(%d)", int32(s))
	}
}

// Tick is one metronome pulse.
type Tick struct {
	// At is when the tick fired.
	At time.Time

	// BPM is the tempo the interval was derived from.
	BPM float64

	// Count numbers ticks from 1 within the session.
	Count int
}

// DefaultPoll bounds the emitter's wait granularity. Stop and tempo
// readiness are observed within one poll interval.
const DefaultPoll = 5 * time.Millisecond

// Emitter schedules ticks from the current tempo.
//
// Each cycle reads the tempo cell and computes interval = 60/bpm. A tempo
// change takes effect at the next tick boundary - the in-flight interval
// is never shortened. A non-positive tempo means "not ready": no tick,
// keep polling.
//
// Waits are channel selects on a timer, capped at the poll interval, so
// Stop (idempotent) and context cancellation interrupt promptly.
type Emitter struct {
	tempo *engine.TempoCell
	sink  Sink

	state    atomic.Int32
	stop     chan struct{}
	stopOnce sync.Once

	now  func() time.Time
	poll time.Duration
}

// EmitterOption configures an Emitter.
type EmitterOption func(*Emitter)

// WithNowFunc overrides the emitter's clock (tests).
func WithNowFunc(now func() time.Time) EmitterOption {
	return func(e *Emitter) { e.now = now }
}

// WithPoll overrides the wait granularity.
func WithPoll(d time.Duration) EmitterOption {
	return func(e *Emitter) { e.poll = d }
}

// NewEmitter creates an idle emitter reading tempo from cell and
// delivering ticks to sink.
func NewEmitter(cell *engine.TempoCell, sink Sink, opts ...EmitterOption) *Emitter {
	e := &Emitter{
		tempo: cell,
		sink:  sink,
		stop:  make(chan struct{}),
		now:   time.Now,
		poll:  DefaultPoll,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// State returns the current lifecycle state.
func (e *Emitter) State() State {
	return State(e.state.Load())
}

// Run drives the tick loop until Stop or ctx cancellation. Returns an
// error only if the emitter was already started; a stopped emitter stays
// stopped.
func (e *Emitter) Run(ctx context.Context) error {
	if !e.state.CompareAndSwap(int32(StateIdle), int32(StateRunning)) {
		return fmt.Errorf("metronome: emitter already started (state %s)", e.State())
	}
	defer e.state.Store(int32(StateStopped))

	var (
		next  time.Time // zero until the first ready tempo read
		count int
	)

	timer := time.NewTimer(e.poll)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-e.stop:
			return nil
		case <-timer.C:
		}

		now := e.now()
		bpm := e.tempo.Load()

		if bpm <= 0 {
			// Not ready yet; the engine has not published a tempo.
			timer.Reset(e.poll)
			continue
		}

		if next.IsZero() {
			next = now // first tick fires immediately
		}
		if !now.Before(next) {
			count++
			e.sink.Tick(Tick{At: now, BPM: bpm, Count: count})
			// The interval is fixed at emission time; a tempo change
			// mid-interval only affects the tick after this one.
			next = now.Add(time.Duration(60 / bpm * float64(time.Second)))
		}

		wait := e.poll
		if d := next.Sub(now); d > 0 && d < wait {
			wait = d
		}
		timer.Reset(wait)
	}
}

// Stop transitions the emitter toward stopped; the run loop observes it
// within one poll interval. Idempotent, safe from any goroutine.
func (e *Emitter) Stop() {
	e.stopOnce.Do(func() { close(e.stop) })
}
