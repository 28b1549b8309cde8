package engine

import "sync/atomic"

// Clock is a monotonic logical clock stamping processed strikes.
//
// Every event dequeued by the Run loop receives a strictly increasing seq
// number. Traces are ordered by seq, never by wall-clock time, so two runs
// over the same scripted input produce identical orderings.
//
// Thread-safety: safe for concurrent use (atomic operations), though the
// engine's single-writer design means only the Run loop calls Next().
type Clock struct {
	seq atomic.Int64
}

// NewClock creates a clock starting at 0; the first Next() returns 1.
func NewClock() *Clock {
	return &Clock{}
}

// Next returns the next sequence number and advances the clock.
func (c *Clock) Next() int64 {
	return c.seq.Add(1)
}

// Current returns the latest issued sequence number without advancing.
func (c *Clock) Current() int64 {
	return c.seq.Load()
}
