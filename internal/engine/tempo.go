package engine

import (
	"math"
	"sync/atomic"
)

// TempoCell is the shared tempo value between the engine (single writer)
// and the tick emitter (single reader).
//
// A float64 is one machine word, so the cell stores the IEEE bits in an
// atomic.Uint64 rather than taking a lock. There is no read-modify-write
// on the reader side - the emitter only loads.
type TempoCell struct {
	bits atomic.Uint64
}

// NewTempoCell creates a cell holding the initial tempo. Zero is a valid
// initial value and reads as "not ready" to the emitter.
func NewTempoCell(initial float64) *TempoCell {
	c := &TempoCell{}
	c.Store(initial)
	return c
}

// Load returns the current tempo in BPM.
func (c *TempoCell) Load() float64 {
	return math.Float64frombits(c.bits.Load())
}

// Store publishes a new tempo. Called only from the engine's Run loop.
func (c *TempoCell) Store(bpm float64) {
	c.bits.Store(math.Float64bits(bpm))
}
