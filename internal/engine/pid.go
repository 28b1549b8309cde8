package engine

import (
	"fmt"
	"time"
)

// Default controller tuning, carried over from the drum rig it was tuned
// on. Kp dominates; Kd damps the response; Ki stays off by default
// because the forward-only matcher already prevents steady-state offset
// from accumulating across beats.
const (
	DefaultKp = 30.0
	DefaultKi = 0.0
	DefaultKd = 5.0

	DefaultTempoMin = 40.0
	DefaultTempoMax = 240.0

	// firstUpdateDT stands in for the sample interval on the first call,
	// when no previous timestamp exists for the derivative term.
	firstUpdateDT = 0.01

	// minUpdateDT floors the measured interval so near-simultaneous
	// strikes cannot blow up the derivative.
	minUpdateDT = 1e-4
)

// ControllerConfig sets the PID gains and tempo bounds.
type ControllerConfig struct {
	Kp float64
	Ki float64
	Kd float64

	// InitialTempo is the starting BPM, normally the beatmap's nominal
	// tempo.
	InitialTempo float64

	// TempoMin and TempoMax clamp the controlled tempo. A clamp resets
	// the integral term (anti-windup).
	TempoMin float64
	TempoMax float64
}

// DefaultControllerConfig returns the stock tuning around an initial
// tempo.
func DefaultControllerConfig(initialTempo float64) ControllerConfig {
	return ControllerConfig{
		Kp:           DefaultKp,
		Ki:           DefaultKi,
		Kd:           DefaultKd,
		InitialTempo: initialTempo,
		TempoMin:     DefaultTempoMin,
		TempoMax:     DefaultTempoMax,
	}
}

// Controller is the PID tempo controller.
//
// Sign convention: a positive timing error (the performer struck after
// the reference beat) raises the tempo, pulling the dependent clock
// toward the performer. Fixed by design and covered by a dedicated test.
//
// Owned by the engine's Run loop; not safe for concurrent use. Update
// never blocks, and given identical stored state, error and now, it is
// deterministic.
type Controller struct {
	cfg ControllerConfig

	integral float64
	prevErr  float64
	prevTime time.Time
	hasPrev  bool

	tempo float64
}

// NewController validates the config and creates a controller at the
// initial tempo.
func NewController(cfg ControllerConfig) (*Controller, error) {
	if cfg.TempoMin <= 0 {
		return nil, fmt.Errorf("controller: tempo minimum must be positive, got %v", cfg.TempoMin)
	}
	if cfg.TempoMax <= cfg.TempoMin {
		return nil, fmt.Errorf("controller: tempo bounds inverted: [%v, %v]", cfg.TempoMin, cfg.TempoMax)
	}
	if cfg.InitialTempo < cfg.TempoMin || cfg.InitialTempo > cfg.TempoMax {
		return nil, fmt.Errorf("controller: initial tempo %v outside [%v, %v]", cfg.InitialTempo, cfg.TempoMin, cfg.TempoMax)
	}
	return &Controller{
		cfg:   cfg,
		tempo: cfg.InitialTempo,
	}, nil
}

// Update feeds one timing error (seconds) into the controller and returns
// the new tempo, already clamped to the configured bounds.
func (c *Controller) Update(errVal float64, now time.Time) float64 {
	dt := firstUpdateDT
	if c.hasPrev {
		dt = now.Sub(c.prevTime).Seconds()
		if dt < minUpdateDT {
			dt = minUpdateDT
		}
	}
	c.prevTime = now
	c.hasPrev = true

	c.integral += errVal * dt
	derivative := (errVal - c.prevErr) / dt
	c.prevErr = errVal

	delta := c.cfg.Kp*errVal + c.cfg.Ki*c.integral + c.cfg.Kd*derivative
	c.tempo += delta

	if c.tempo < c.cfg.TempoMin {
		c.tempo = c.cfg.TempoMin
		c.integral = 0
	} else if c.tempo > c.cfg.TempoMax {
		c.tempo = c.cfg.TempoMax
		c.integral = 0
	}

	return c.tempo
}

// Tempo returns the current tempo estimate.
func (c *Controller) Tempo() float64 {
	return c.tempo
}

// Integral returns the accumulated integral term. Exposed for tests of
// the anti-windup reset.
func (c *Controller) Integral() float64 {
	return c.integral
}
