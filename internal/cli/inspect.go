package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/drumsync/drumsync/internal/score"
)

// InspectResult summarizes a beatmap for the inspect command.
type InspectResult struct {
	File           string           `json:"file"`
	BPM            float64          `json:"bpm"`
	SecondsPerSlot float64          `json:"seconds_per_slot"`
	Duration       float64          `json:"duration"`
	Instruments    []InstrumentInfo `json:"instruments"`
}

// InstrumentInfo describes one track.
type InstrumentInfo struct {
	Name  string `json:"name"`
	Slots int    `json:"slots"`
	Beats int    `json:"beats"`
}

// NewInspectCommand creates the inspect command.
func NewInspectCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "inspect <beatmap>",
		Short: "Show a beatmap summary",
		Long: `Load a beatmap and print its tempo, duration and per-instrument
beat counts. Accepts both the YAML format and the legacy .txt format.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInspect(rootOpts, args[0], cmd)
		},
	}
}

func runInspect(opts *RootOptions, path string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	bm, err := score.Load(path)
	if err != nil {
		_ = formatter.Error("E002", err.Error(), nil)
		return WrapExitError(ExitCommandError, "failed to load beatmap", err)
	}

	result := InspectResult{
		File:           path,
		BPM:            bm.NominalBPM,
		SecondsPerSlot: bm.SecondsPerSlot,
		Duration:       bm.Duration(),
	}
	for _, inst := range bm.Instruments() {
		track, _ := bm.Track(inst)
		result.Instruments = append(result.Instruments, InstrumentInfo{
			Name:  string(inst),
			Slots: len(track),
			Beats: bm.NumBeats(inst),
		})
	}

	if opts.Format == "json" {
		return formatter.Success(result)
	}

	fmt.Fprintln(formatter.Writer, bm.Summary())
	return nil
}
