package cli

import (
	"github.com/spf13/cobra"

	"github.com/drumsync/drumsync/internal/engine"
)

// controllerFlags groups the PID tuning flags shared by the session
// commands.
type controllerFlags struct {
	Kp     float64
	Ki     float64
	Kd     float64
	MinBPM float64
	MaxBPM float64
}

func (f *controllerFlags) register(cmd *cobra.Command) {
	cmd.Flags().Float64Var(&f.Kp, "kp", engine.DefaultKp, "proportional gain")
	cmd.Flags().Float64Var(&f.Ki, "ki", engine.DefaultKi, "integral gain")
	cmd.Flags().Float64Var(&f.Kd, "kd", engine.DefaultKd, "derivative gain")
	cmd.Flags().Float64Var(&f.MinBPM, "min-bpm", engine.DefaultTempoMin, "tempo floor")
	cmd.Flags().Float64Var(&f.MaxBPM, "max-bpm", engine.DefaultTempoMax, "tempo ceiling")
}

func (f *controllerFlags) config(initialTempo float64) engine.ControllerConfig {
	return engine.ControllerConfig{
		Kp:           f.Kp,
		Ki:           f.Ki,
		Kd:           f.Kd,
		InitialTempo: initialTempo,
		TempoMin:     f.MinBPM,
		TempoMax:     f.MaxBPM,
	}
}
