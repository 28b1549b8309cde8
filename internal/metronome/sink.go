package metronome

import "log/slog"

// Sink consumes metronome ticks. Implementations must not block for
// longer than a small fraction of the tick interval; slow consumers
// should buffer on their side.
type Sink interface {
	Tick(t Tick)
}

// FuncSink adapts a function to the Sink interface.
type FuncSink func(Tick)

// Tick implements Sink.
func (f FuncSink) Tick(t Tick) { f(t) }

// LogSink logs each tick through slog. The default sink when no audio or
// MIDI output is configured.
type LogSink struct{}

// Tick implements Sink.
func (LogSink) Tick(t Tick) {
	slog.Info("tick", "count", t.Count, "bpm", t.BPM)
}

// MultiSink fans one tick out to several sinks in order.
type MultiSink []Sink

// Tick implements Sink.
func (m MultiSink) Tick(t Tick) {
	for _, s := range m {
		s.Tick(t)
	}
}
