package engine

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/drumsync/drumsync/internal/score"
)

// stubSource replays fixed events, optionally blocking afterwards until
// stopped. Counts Stop calls so tests can assert idempotence.
type stubSource struct {
	events   []Event
	block    bool
	stop     chan struct{}
	stopOnce sync.Once
	stops    atomic.Int32
	finished atomic.Bool
}

func newStubSource(events ...Event) *stubSource {
	return &stubSource{events: events, stop: make(chan struct{})}
}

func (s *stubSource) Run(ctx context.Context, emit func(Event) bool) error {
	for _, ev := range s.events {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-s.stop:
			return nil
		default:
		}
		if !emit(ev) {
			break
		}
	}
	if s.block {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-s.stop:
		}
	}
	s.finished.Store(true)
	return nil
}

func (s *stubSource) Finished() bool { return s.finished.Load() }

func (s *stubSource) Stop() {
	s.stops.Add(1)
	s.stopOnce.Do(func() { close(s.stop) })
}

// blockedEmitter never exits until stopped; used to exercise the stop
// budget.
type blockedEmitter struct {
	ignoreStop bool
	stop       chan struct{}
	stopOnce   sync.Once
}

func newBlockedEmitter(ignoreStop bool) *blockedEmitter {
	return &blockedEmitter{ignoreStop: ignoreStop, stop: make(chan struct{})}
}

func (e *blockedEmitter) Run(ctx context.Context) error {
	if e.ignoreStop {
		select {} // leaks on purpose; the engine must give up
	}
	<-e.stop
	return nil
}

func (e *blockedEmitter) Stop() {
	e.stopOnce.Do(func() { close(e.stop) })
}

func stepClock(step time.Duration) func() time.Time {
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	return func() time.Time {
		now = now.Add(step)
		return now
	}
}

func engineTestMap() *score.BeatMap {
	return &score.BeatMap{
		NominalBPM:     120,
		SecondsPerSlot: 0.5,
		Tracks: map[score.Instrument][]uint8{
			score.Kick:  {1, 0, 0, 1, 0, 0},
			score.Snare: {0, 1, 0, 0, 0, 0},
		},
	}
}

func proportionalController(t *testing.T) *Controller {
	t.Helper()
	c, err := NewController(ControllerConfig{
		Kp: 10, Ki: 0, Kd: 0,
		InitialTempo: 120, TempoMin: 40, TempoMax: 240,
	})
	require.NoError(t, err)
	return c
}

func TestEngine_ProcessesAllEventsThenReturns(t *testing.T) {
	src := newStubSource(
		Event{Time: 0.55, Instrument: score.Kick},
		Event{Time: 1.0, Instrument: score.Kick},
	)
	eng, err := New(engineTestMap(), proportionalController(t), src,
		WithTokenGenerator(NewFixedGenerator("session-1")),
		WithNowFunc(stepClock(100*time.Millisecond)),
	)
	require.NoError(t, err)

	require.NoError(t, eng.Run(context.Background()))
	assert.Equal(t, "session-1", eng.Session())

	trace := eng.Trace().Snapshot()
	require.Len(t, trace, 2)

	assert.Equal(t, int64(1), trace[0].Seq)
	assert.Equal(t, 0.0, trace[0].Ref)
	assert.InDelta(t, 0.55, trace[0].Err, 1e-12)
	assert.InDelta(t, 125.5, trace[0].BPM, 1e-9)

	assert.Equal(t, int64(2), trace[1].Seq)
	assert.Equal(t, 1.5, trace[1].Ref)
	assert.InDelta(t, -0.5, trace[1].Err, 1e-12)
	assert.InDelta(t, 120.5, trace[1].BPM, 1e-9)

	// The last corrected tempo is what the metronome would read.
	assert.InDelta(t, 120.5, eng.Tempo().Load(), 1e-9)
}

func TestEngine_PublishesNominalTempoBeforeFirstStrike(t *testing.T) {
	src := newStubSource()
	eng, err := New(engineTestMap(), proportionalController(t), src)
	require.NoError(t, err)

	require.NoError(t, eng.Run(context.Background()))
	assert.Equal(t, 120.0, eng.Tempo().Load())
}

func TestEngine_UnknownInstrumentDropped(t *testing.T) {
	src := newStubSource(
		Event{Time: 0.1, Instrument: score.Instrument("cowbell")},
		Event{Time: 0.2, Instrument: score.Kick},
	)
	eng, err := New(engineTestMap(), proportionalController(t), src,
		WithNowFunc(stepClock(100*time.Millisecond)),
	)
	require.NoError(t, err)

	require.NoError(t, eng.Run(context.Background()))

	trace := eng.Trace().Snapshot()
	require.Len(t, trace, 1, "only the kick strike is matched")
	assert.Equal(t, score.Kick, trace[0].Instrument)
	// The dropped strike still consumed a seq number.
	assert.Equal(t, int64(2), trace[0].Seq)
}

func TestEngine_ExhaustedTrackSkippedOthersContinue(t *testing.T) {
	src := newStubSource(
		Event{Time: 0.5, Instrument: score.Snare},
		Event{Time: 0.9, Instrument: score.Snare}, // snare exhausted
		Event{Time: 1.4, Instrument: score.Kick},
	)
	eng, err := New(engineTestMap(), proportionalController(t), src,
		WithNowFunc(stepClock(100*time.Millisecond)),
	)
	require.NoError(t, err)

	require.NoError(t, eng.Run(context.Background()))

	trace := eng.Trace().Snapshot()
	require.Len(t, trace, 2)
	assert.Equal(t, score.Snare, trace[0].Instrument)
	assert.Equal(t, score.Kick, trace[1].Instrument)
}

func TestEngine_StopEndsBlockedSession(t *testing.T) {
	src := newStubSource(Event{Time: 0.1, Instrument: score.Kick})
	src.block = true

	eng, err := New(engineTestMap(), proportionalController(t), src,
		WithStopBudget(time.Second),
	)
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() { done <- eng.Run(context.Background()) }()

	// Let the strike go through, then stop twice: idempotent.
	time.Sleep(50 * time.Millisecond)
	eng.Stop()
	eng.Stop()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after Stop")
	}

	assert.Len(t, eng.Trace().Snapshot(), 1)
	assert.GreaterOrEqual(t, src.stops.Load(), int32(1))
}

func TestEngine_ContextCancellation(t *testing.T) {
	src := newStubSource()
	src.block = true

	eng, err := New(engineTestMap(), proportionalController(t), src,
		WithStopBudget(time.Second),
	)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- eng.Run(ctx) }()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancellation")
	}
}

func TestEngine_EmitterLifecycleManaged(t *testing.T) {
	src := newStubSource(Event{Time: 0.1, Instrument: score.Kick})
	em := newBlockedEmitter(false)

	eng, err := New(engineTestMap(), proportionalController(t), src,
		WithEmitter(em),
		WithStopBudget(time.Second),
	)
	require.NoError(t, err)

	// Run stops the emitter itself once the source is done.
	require.NoError(t, eng.Run(context.Background()))
}

func TestEngine_EmitterExceedingStopBudgetIsFatal(t *testing.T) {
	src := newStubSource()
	em := newBlockedEmitter(true)

	eng, err := New(engineTestMap(), proportionalController(t), src,
		WithEmitter(em),
		WithStopBudget(50*time.Millisecond),
	)
	require.NoError(t, err)

	err = eng.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to stop")
}

func TestEngine_RejectsMalformedBeatMap(t *testing.T) {
	bad := &score.BeatMap{
		NominalBPM:     120,
		SecondsPerSlot: 0, // dt must be positive
		Tracks:         map[score.Instrument][]uint8{score.Kick: {1}},
	}

	_, err := New(bad, proportionalController(t), newStubSource())
	assert.Error(t, err)
}

func TestEngine_SharedTempoCellOption(t *testing.T) {
	cell := NewTempoCell(0)
	src := newStubSource(Event{Time: 0.05, Instrument: score.Kick})

	eng, err := New(engineTestMap(), proportionalController(t), src,
		WithTempoCell(cell),
		WithNowFunc(stepClock(100*time.Millisecond)),
	)
	require.NoError(t, err)
	require.NoError(t, eng.Run(context.Background()))

	assert.InDelta(t, 120.5, cell.Load(), 1e-9, "engine writes through the shared cell")
}
