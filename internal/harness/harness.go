// Package harness runs scripted tracking scenarios deterministically:
// fixed session tokens, a manual controller clock stepping 10 ms per
// strike, and a scripted source replaying the scenario's strikes. The
// resulting trace is byte-stable, which makes golden comparison safe.
package harness

import (
	"context"
	"fmt"
	"time"

	"github.com/drumsync/drumsync/internal/engine"
	"github.com/drumsync/drumsync/internal/score"
	"github.com/drumsync/drumsync/internal/source"
	"github.com/drumsync/drumsync/internal/testutil"
)

// controllerStep is the fixed interval the manual clock advances per
// processed strike. It equals the controller's first-call derivative
// interval, so every update sees the same dt.
const controllerStep = 10 * time.Millisecond

// Result captures one scenario execution.
type Result struct {
	// Session is the token the run was stamped with.
	Session string

	// Trace lists the matched strikes in processing order.
	Trace []engine.TraceEvent

	// FinalBPM is the tempo after the last matched strike, or the
	// nominal tempo when nothing matched.
	FinalBPM float64

	// Errors lists assertion failures. Empty means the scenario passed.
	Errors []string
}

// Passed reports whether every assertion held.
func (r *Result) Passed() bool {
	return len(r.Errors) == 0
}

// Run executes a scenario and evaluates its assertions.
//
// Each scenario runs a fresh engine. The scripted source finishes as soon
// as the strikes are emitted, so Run returns once the queue drains.
func Run(scenario *Scenario) (*Result, error) {
	bm, err := scenario.Beatmap.toBeatMap()
	if err != nil {
		return nil, fmt.Errorf("scenario beatmap: %w", err)
	}

	ctrl, err := engine.NewController(controllerConfig(scenario, bm.NominalBPM))
	if err != nil {
		return nil, fmt.Errorf("scenario controller: %w", err)
	}

	events := make([]engine.Event, len(scenario.Strikes))
	for i, strike := range scenario.Strikes {
		events[i] = engine.Event{
			Time:       strike.At,
			Instrument: score.Instrument(strike.Instrument),
		}
	}
	src := source.NewScriptSource(events)

	token := scenario.SessionToken
	if token == "" {
		token = "session-" + scenario.Name
	}
	clock := testutil.NewManualClock(time.Unix(0, 0).UTC())

	eng, err := engine.New(bm, ctrl, src,
		engine.WithTokenGenerator(engine.NewFixedGenerator(token)),
		engine.WithNowFunc(clock.Stepper(controllerStep)),
	)
	if err != nil {
		return nil, fmt.Errorf("scenario engine: %w", err)
	}

	if err := eng.Run(context.Background()); err != nil {
		return nil, fmt.Errorf("scenario run: %w", err)
	}

	result := &Result{
		Session:  eng.Session(),
		Trace:    eng.Trace().Snapshot(),
		FinalBPM: eng.Tempo().Load(),
	}
	result.Errors = EvaluateAssertions(result, scenario.Assertions)
	return result, nil
}

// controllerConfig resolves the scenario's tuning over the defaults.
func controllerConfig(scenario *Scenario, nominalBPM float64) engine.ControllerConfig {
	cfg := engine.DefaultControllerConfig(nominalBPM)
	spec := scenario.Controller
	if spec == nil {
		return cfg
	}
	if spec.Kp != nil {
		cfg.Kp = *spec.Kp
	}
	if spec.Ki != nil {
		cfg.Ki = *spec.Ki
	}
	if spec.Kd != nil {
		cfg.Kd = *spec.Kd
	}
	if spec.Min != nil {
		cfg.TempoMin = *spec.Min
	}
	if spec.Max != nil {
		cfg.TempoMax = *spec.Max
	}
	return cfg
}
