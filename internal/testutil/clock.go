// Package testutil provides deterministic time sources for tests.
package testutil

import (
	"sync"
	"time"
)

// ManualClock is a settable wall clock for timing-sensitive tests.
//
// Components take a now func; tests hand them clock.Now and advance the
// clock explicitly instead of sleeping.
//
// Thread-safety: all methods are safe for concurrent use.
type ManualClock struct {
	mu  sync.Mutex
	now time.Time
}

// NewManualClock creates a clock frozen at start.
func NewManualClock(start time.Time) *ManualClock {
	return &ManualClock{now: start}
}

// Now returns the current manual time.
func (c *ManualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Advance moves the clock forward by d.
func (c *ManualClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// Set jumps the clock to t. Going backwards is allowed; components under
// test decide how they treat that.
func (c *ManualClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}

// Stepper returns a now func that advances the clock by step on every
// call. Useful where each observation should see time move by a fixed
// amount, such as feeding a controller a constant sample interval.
func (c *ManualClock) Stepper(step time.Duration) func() time.Time {
	return func() time.Time {
		c.mu.Lock()
		defer c.mu.Unlock()
		c.now = c.now.Add(step)
		return c.now
	}
}
