// Package engine implements the closed-loop tempo tracking core.
//
// The engine receives timestamped strike events from a Source, matches
// each strike against the next unconsumed reference beat of its
// instrument, feeds the timing error through a PID controller, and
// publishes the corrected tempo for the metronome to read.
//
// ARCHITECTURE:
//
// Single-Writer Event Loop:
// All match and controller state is mutated from one goroutine - the
// Run loop. This ensures:
// - Strictly ordered, reproducible strike processing
// - No locking on the matcher or controller
// - Deterministic traces given a scripted source and injected clock
//
// Data flow:
// 1. Source goroutine appends events to the FIFO queue
// 2. Run() dequeues one event at a time
// 3. Matcher.ComputeError pairs the strike with a reference beat
// 4. Controller.Update turns the timing error into a new tempo
// 5. The tempo is stored in the TempoCell read by the metronome
//
// The only values shared across goroutines are the event queue and the
// TempoCell; the TempoCell has exactly one writer (the Run loop) and one
// reader (the tick emitter).
//
// Exhausted tracks are terminal per instrument and never fatal; strikes
// for unknown instruments are dropped and logged. Tempo is clamped to the
// controller bounds on every update, with the integral term reset when a
// clamp fires.
package engine
