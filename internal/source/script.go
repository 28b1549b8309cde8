package source

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/drumsync/drumsync/internal/engine"
)

// ScriptSource replays a fixed event list immediately, in order, without
// real-time waits. The reference producer for deterministic engine runs.
type ScriptSource struct {
	events []engine.Event

	stop     chan struct{}
	stopOnce sync.Once
	finished atomic.Bool
}

// NewScriptSource copies events so later mutation of the caller's slice
// cannot change the replay.
func NewScriptSource(events []engine.Event) *ScriptSource {
	copied := make([]engine.Event, len(events))
	copy(copied, events)
	return &ScriptSource{
		events: copied,
		stop:   make(chan struct{}),
	}
}

// Run emits every scripted event back to back.
func (s *ScriptSource) Run(ctx context.Context, emit func(engine.Event) bool) error {
	defer s.finished.Store(true)

	for _, ev := range s.events {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-s.stop:
			return nil
		default:
		}
		if !emit(ev) {
			return nil
		}
	}
	return nil
}

// Finished reports whether the replay has completed.
func (s *ScriptSource) Finished() bool {
	return s.finished.Load()
}

// Stop aborts the replay before the next event. Idempotent.
func (s *ScriptSource) Stop() {
	s.stopOnce.Do(func() { close(s.stop) })
}
