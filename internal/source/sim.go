package source

import (
	"context"
	"log/slog"
	"math/rand"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/drumsync/drumsync/internal/engine"
	"github.com/drumsync/drumsync/internal/score"
)

// SimConfig shapes the simulated performer's timing error.
type SimConfig struct {
	// Offset is a constant error in seconds added to every strike.
	// Positive means the performer plays late.
	Offset float64

	// Jitter is the half-width in seconds of the uniform random error
	// added per strike.
	Jitter float64

	// Seed drives the jitter RNG; a fixed seed gives a fixed schedule.
	Seed int64
}

// Strike is one planned simulated hit.
type Strike struct {
	// Ref is the beatmap reference time of the beat being played.
	Ref float64

	// At is when the simulated performer actually strikes.
	At float64

	Instrument score.Instrument
}

// SimSource replays a beatmap as an imperfect performer: every flagged
// beat of every track becomes a strike at its reference time plus the
// configured offset and jitter. The schedule is fixed at construction,
// so a seed fully determines the session.
type SimSource struct {
	schedule []Strike

	stop     chan struct{}
	stopOnce sync.Once
	finished atomic.Bool
}

// NewSimSource plans a full pass over the beatmap.
func NewSimSource(bm *score.BeatMap, cfg SimConfig) *SimSource {
	rng := rand.New(rand.NewSource(cfg.Seed))

	var schedule []Strike
	for _, inst := range bm.Instruments() {
		for _, ref := range bm.BeatTimes(inst) {
			schedule = append(schedule, Strike{Ref: ref, Instrument: inst})
		}
	}
	// Strike order is reference order; ties break by instrument name so
	// the same seed always sees the same RNG draw sequence.
	sort.Slice(schedule, func(i, j int) bool {
		if schedule[i].Ref != schedule[j].Ref {
			return schedule[i].Ref < schedule[j].Ref
		}
		return schedule[i].Instrument < schedule[j].Instrument
	})
	for i := range schedule {
		jitter := (rng.Float64()*2 - 1) * cfg.Jitter
		schedule[i].At = schedule[i].Ref + cfg.Offset + jitter
	}

	return &SimSource{
		schedule: schedule,
		stop:     make(chan struct{}),
	}
}

// Schedule returns a copy of the planned strikes in emission order.
func (s *SimSource) Schedule() []Strike {
	out := make([]Strike, len(s.schedule))
	copy(out, s.schedule)
	return out
}

// Run emits the planned strikes in real time, waiting out the gap before
// each one. Returns nil on Stop or when the schedule is exhausted.
func (s *SimSource) Run(ctx context.Context, emit func(engine.Event) bool) error {
	defer s.finished.Store(true)

	slog.Info("sim: performer started", "strikes", len(s.schedule))
	start := time.Now()
	timer := time.NewTimer(0)
	<-timer.C
	defer timer.Stop()

	for _, strike := range s.schedule {
		if wait := time.Duration(strike.At * float64(time.Second)); wait > 0 {
			timer.Reset(wait - time.Since(start))
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-s.stop:
				return nil
			case <-timer.C:
			}
		}
		ev := engine.Event{Time: strike.At, Instrument: strike.Instrument}
		if !emit(ev) {
			return nil
		}
	}
	return nil
}

// Finished reports whether the schedule has been fully emitted.
func (s *SimSource) Finished() bool {
	return s.finished.Load()
}

// Stop interrupts the wait before the next strike. Idempotent.
func (s *SimSource) Stop() {
	s.stopOnce.Do(func() { close(s.stop) })
}
