package engine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var pidEpoch = time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

func newTestController(t *testing.T, cfg ControllerConfig) *Controller {
	t.Helper()
	c, err := NewController(cfg)
	require.NoError(t, err)
	return c
}

func TestNewController_RejectsBadConfig(t *testing.T) {
	testCases := []struct {
		name string
		cfg  ControllerConfig
	}{
		{"zero min", ControllerConfig{InitialTempo: 120, TempoMin: 0, TempoMax: 240}},
		{"inverted bounds", ControllerConfig{InitialTempo: 120, TempoMin: 240, TempoMax: 40}},
		{"initial below min", ControllerConfig{InitialTempo: 30, TempoMin: 40, TempoMax: 240}},
		{"initial above max", ControllerConfig{InitialTempo: 500, TempoMin: 40, TempoMax: 240}},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NewController(tc.cfg)
			assert.Error(t, err)
		})
	}
}

func TestController_FirstCallUsesNominalDT(t *testing.T) {
	// Spec scenario: PID(Kp=10, Ki=0, Kd=0), initial 120, bounds [40,240].
	// update(error=1.0) raises tempo by exactly Kp*error = 10.
	c := newTestController(t, ControllerConfig{
		Kp: 10, Ki: 0, Kd: 0,
		InitialTempo: 120, TempoMin: 40, TempoMax: 240,
	})

	got := c.Update(1.0, pidEpoch)
	assert.Equal(t, 130.0, got)
	assert.Equal(t, 130.0, c.Tempo())
}

func TestController_PositiveErrorRaisesTempo(t *testing.T) {
	// Sign convention: performer late (positive error) => tempo goes up.
	c := newTestController(t, DefaultControllerConfig(120))

	before := c.Tempo()
	after := c.Update(0.05, pidEpoch)
	assert.Greater(t, after, before)
}

func TestController_NegativeErrorLowersTempo(t *testing.T) {
	c := newTestController(t, DefaultControllerConfig(120))

	before := c.Tempo()
	after := c.Update(-0.05, pidEpoch)
	assert.Less(t, after, before)
}

func TestController_AlwaysWithinBounds(t *testing.T) {
	c := newTestController(t, DefaultControllerConfig(120))

	now := pidEpoch
	errs := []float64{0.01, -2, 1e6, -1e6, 0.5, 3, -0.25, 1e6, 1e6, -1e6, 0}
	for _, e := range errs {
		now = now.Add(100 * time.Millisecond)
		got := c.Update(e, now)
		assert.GreaterOrEqual(t, got, DefaultTempoMin)
		assert.LessOrEqual(t, got, DefaultTempoMax)
		assert.Equal(t, got, c.Tempo())
	}
}

func TestController_ClampResetsIntegral(t *testing.T) {
	c := newTestController(t, ControllerConfig{
		Kp: 10, Ki: 1, Kd: 0,
		InitialTempo: 120, TempoMin: 40, TempoMax: 240,
	})

	now := pidEpoch
	got := c.Update(2.0, now)
	assert.InDelta(t, 140.02, got, 1e-9, "Kp*2 + Ki*(2*0.01)")
	assert.NotZero(t, c.Integral())

	// Saturate high: the clamp must zero the integral on the clamping
	// call itself.
	now = now.Add(time.Second)
	got = c.Update(1e6, now)
	assert.Equal(t, DefaultTempoMax, got)
	assert.Zero(t, c.Integral())
}

func TestController_ClampLowResetsIntegral(t *testing.T) {
	c := newTestController(t, ControllerConfig{
		Kp: 10, Ki: 1, Kd: 0,
		InitialTempo: 120, TempoMin: 40, TempoMax: 240,
	})

	got := c.Update(-1e6, pidEpoch)
	assert.Equal(t, DefaultTempoMin, got)
	assert.Zero(t, c.Integral())
}

func TestController_NearSimultaneousCallsDoNotBlowUp(t *testing.T) {
	c := newTestController(t, ControllerConfig{
		Kp: 1, Ki: 0, Kd: 1,
		InitialTempo: 120, TempoMin: 40, TempoMax: 240,
	})

	now := pidEpoch
	c.Update(0.1, now)
	// Same timestamp: measured dt floors at minUpdateDT instead of
	// dividing by zero.
	got := c.Update(0.2, now)
	assert.False(t, got != got, "tempo must not be NaN")
	assert.GreaterOrEqual(t, got, 40.0)
	assert.LessOrEqual(t, got, 240.0)
}

func TestController_DeterministicGivenSameInputs(t *testing.T) {
	run := func() []float64 {
		c := newTestController(t, DefaultControllerConfig(120))
		now := pidEpoch
		var out []float64
		for _, e := range []float64{0.05, -0.02, 0.01, 0.0} {
			now = now.Add(250 * time.Millisecond)
			out = append(out, c.Update(e, now))
		}
		return out
	}

	assert.Equal(t, run(), run())
}
