package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/drumsync/drumsync/internal/score"
)

// Source is the contract an event producer must satisfy. The core defines
// it; serial hardware readers and simulators implement it elsewhere.
//
// Run produces events through emit until the stream ends, emit returns
// false, or ctx is cancelled. emit is safe to call from the Run goroutine
// only. Finished reports whether the stream has ended. Stop must be
// idempotent and must cause Run to return within one polling interval.
type Source interface {
	Run(ctx context.Context, emit func(Event) bool) error
	Finished() bool
	Stop()
}

// Emitter is the tick-emitter half the engine supervises. Run blocks
// until Stop or ctx cancellation; Stop must be idempotent.
type Emitter interface {
	Run(ctx context.Context) error
	Stop()
}

// DefaultStopBudget bounds how long shutdown waits for the source and
// emitter goroutines to exit. Exceeding it is a fatal shutdown error -
// a leaked goroutine, not a recoverable condition.
const DefaultStopBudget = 2 * time.Second

// Engine is the session orchestrator: the single-writer loop connecting
// source, matcher, controller and tempo cell.
//
// Thread-safety model:
//   - Enqueue(): safe from any goroutine
//   - Run(): must be called from exactly one goroutine
//   - matcher and controller state is touched only inside Run()
type Engine struct {
	beatmap *score.BeatMap
	matcher *Matcher
	ctrl    *Controller
	tempo   *TempoCell
	queue   *eventQueue
	clock   *Clock
	source  Source
	emitter Emitter
	tokens  SessionTokenGenerator
	trace   *Trace

	nowFunc    func() time.Time
	stopBudget time.Duration
	session    string
}

// Option configures an Engine.
type Option func(*Engine)

// WithEmitter attaches a tick emitter whose lifecycle the engine manages.
// Without one the engine runs headless (tests, trace-only simulation).
func WithEmitter(em Emitter) Option {
	return func(e *Engine) { e.emitter = em }
}

// WithTempoCell shares an externally created tempo cell, so the caller
// can hand the same cell to a metronome built before the engine.
func WithTempoCell(c *TempoCell) Option {
	return func(e *Engine) { e.tempo = c }
}

// WithTokenGenerator overrides the session token generator (tests).
func WithTokenGenerator(g SessionTokenGenerator) Option {
	return func(e *Engine) { e.tokens = g }
}

// WithNowFunc overrides the controller timestamp source (tests).
func WithNowFunc(now func() time.Time) Option {
	return func(e *Engine) { e.nowFunc = now }
}

// WithStopBudget overrides the shutdown wait budget.
func WithStopBudget(d time.Duration) Option {
	return func(e *Engine) { e.stopBudget = d }
}

// New creates an engine for one session. The beatmap must pass
// validation - malformed reference data is rejected here, before any
// goroutine starts.
func New(bm *score.BeatMap, ctrl *Controller, src Source, opts ...Option) (*Engine, error) {
	if err := bm.Check(); err != nil {
		return nil, err
	}
	if ctrl == nil {
		return nil, fmt.Errorf("engine: controller is required")
	}
	if src == nil {
		return nil, fmt.Errorf("engine: event source is required")
	}

	e := &Engine{
		beatmap:    bm,
		matcher:    NewMatcher(bm),
		ctrl:       ctrl,
		queue:      newEventQueue(),
		clock:      NewClock(),
		source:     src,
		tokens:     UUIDv7Generator{},
		trace:      NewTrace(),
		nowFunc:    time.Now,
		stopBudget: DefaultStopBudget,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.tempo == nil {
		e.tempo = NewTempoCell(ctrl.Tempo())
	}
	return e, nil
}

// Enqueue submits an event for processing by the Run loop.
// Thread-safe. Returns false once the engine is stopping.
func (e *Engine) Enqueue(ev Event) bool {
	return e.queue.Enqueue(ev)
}

// Tempo returns the shared tempo cell read by the metronome.
func (e *Engine) Tempo() *TempoCell {
	return e.tempo
}

// Trace returns the session trace.
func (e *Engine) Trace() *Trace {
	return e.trace
}

// Session returns the session token. Empty until Run assigns one.
func (e *Engine) Session() string {
	return e.session
}

// Run drives the session: starts the source (and emitter, if any), then
// processes events one at a time until the source has finished and the
// queue is drained, Stop() is called, or ctx is cancelled. On return the
// source and emitter have been stopped and joined.
//
// Must be called from exactly one goroutine, exactly once.
func (e *Engine) Run(ctx context.Context) error {
	e.session = e.tokens.Generate()
	slog.Info("session starting",
		"session", e.session,
		"bpm", e.ctrl.Tempo(),
		"instruments", len(e.beatmap.Tracks),
	)

	// Publish the nominal tempo so the emitter is ready before the first
	// strike arrives.
	e.tempo.Store(e.ctrl.Tempo())

	srcDone := make(chan error, 1)
	go func() {
		srcDone <- e.source.Run(ctx, e.Enqueue)
	}()

	var emitDone chan error
	if e.emitter != nil {
		emitDone = make(chan error, 1)
		go func() {
			emitDone <- e.emitter.Run(ctx)
		}()
	}

	var (
		srcExited bool
		srcErr    error
		runErr    error
	)

loop:
	for {
		if ev, ok := e.queue.TryDequeue(); ok {
			e.process(ev)
			continue
		}

		// Session ends when the source is done AND no buffered events
		// remain; the TryDequeue above just failed, so the queue is
		// drained.
		if srcExited {
			slog.Info("session complete: source finished and queue drained",
				"session", e.session,
				"matched", e.trace.Len(),
			)
			break
		}

		select {
		case <-ctx.Done():
			slog.Info("session stopping: context cancelled", "session", e.session)
			runErr = ctx.Err()
			break loop

		case err := <-srcDone:
			srcExited = true
			srcErr = err

		case <-e.queue.Wait():
			if e.queue.Closed() && e.queue.Len() == 0 {
				slog.Info("session stopping: queue closed", "session", e.session)
				break loop
			}
		}
	}

	e.queue.Close()
	e.source.Stop()
	if e.emitter != nil {
		e.emitter.Stop()
	}

	if !srcExited {
		srcErr = e.join(srcDone, "event source")
		srcExited = true
	}
	if runErr == nil && srcErr != nil && !errors.Is(srcErr, context.Canceled) {
		runErr = fmt.Errorf("event source: %w", srcErr)
	}
	if emitDone != nil {
		if err := e.join(emitDone, "tick emitter"); err != nil && runErr == nil {
			runErr = err
		}
	}

	slog.Info("session closed", "session", e.session, "matched", e.trace.Len())
	return runErr
}

// Stop requests shutdown: the queue closes, the Run loop drains what is
// buffered and exits. Idempotent, safe from any goroutine.
func (e *Engine) Stop() {
	e.queue.Close()
}

// process handles one dequeued event.
// Called only from the Run goroutine - single-writer guarantee.
func (e *Engine) process(ev Event) {
	seq := e.clock.Next()

	m, err := e.matcher.ComputeError(ev.Instrument, ev.Time)
	if err != nil {
		switch {
		case IsTrackExhausted(err):
			// Terminal for this instrument; others keep playing.
			slog.Debug("strike skipped: track exhausted",
				"session", e.session, "seq", seq,
				"instrument", ev.Instrument, "t", ev.Time,
			)
		case IsUnknownInstrument(err):
			slog.Warn("strike dropped: unknown instrument",
				"session", e.session, "seq", seq,
				"instrument", ev.Instrument, "t", ev.Time,
			)
		default:
			slog.Error("strike dropped",
				"session", e.session, "seq", seq,
				"instrument", ev.Instrument, "t", ev.Time,
				"error", err,
			)
		}
		return
	}

	bpm := e.ctrl.Update(m.Err, e.nowFunc())
	e.tempo.Store(bpm)

	e.trace.Record(TraceEvent{
		Seq:        seq,
		Instrument: ev.Instrument,
		Actual:     ev.Time,
		Ref:        m.Ref,
		Err:        m.Err,
		BPM:        bpm,
	})
	slog.Info("strike matched",
		"session", e.session, "seq", seq,
		"instrument", ev.Instrument,
		"t", ev.Time, "ref", m.Ref,
		"error_ms", m.Err*1000,
		"bpm", bpm,
	)
}

// join waits for a supervised goroutine to exit within the stop budget.
func (e *Engine) join(done <-chan error, name string) error {
	select {
	case err := <-done:
		if err != nil && !errors.Is(err, context.Canceled) {
			return fmt.Errorf("%s: %w", name, err)
		}
		return nil
	case <-time.After(e.stopBudget):
		return fmt.Errorf("%s failed to stop within %s", name, e.stopBudget)
	}
}
