package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/drumsync/drumsync/internal/engine"
	"github.com/drumsync/drumsync/internal/score"
	"github.com/drumsync/drumsync/internal/source"
)

// SimulateOptions holds flags for the simulate command.
type SimulateOptions struct {
	*RootOptions
	OffsetMS   float64
	JitterMS   float64
	Seed       int64
	Controller controllerFlags
}

// SimulateResult is the JSON payload of a simulated session.
type SimulateResult struct {
	Session  string              `json:"session"`
	FinalBPM float64             `json:"final_bpm"`
	Trace    []engine.TraceEvent `json:"trace"`
}

// NewSimulateCommand creates the simulate command.
func NewSimulateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &SimulateOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "simulate <beatmap>",
		Short: "Play the beatmap with a simulated performer",
		Long: `Run one session with a simulated performer striking every beat of
the beatmap, shifted by a constant offset plus uniform jitter, and
print the resulting match trace.

Example:
  drumsync simulate song.yaml --offset-ms 30 --jitter-ms 20 --seed 7`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSimulate(opts, args[0], cmd)
		},
	}

	cmd.Flags().Float64Var(&opts.OffsetMS, "offset-ms", 0, "constant timing error in milliseconds")
	cmd.Flags().Float64Var(&opts.JitterMS, "jitter-ms", 20, "uniform jitter half-width in milliseconds")
	cmd.Flags().Int64Var(&opts.Seed, "seed", 0, "jitter RNG seed")
	opts.Controller.register(cmd)

	return cmd
}

func runSimulate(opts *SimulateOptions, beatmapPath string, cmd *cobra.Command) error {
	setupLogging(opts.Verbose)

	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	bm, err := score.Load(beatmapPath)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load beatmap", err)
	}

	ctrl, err := engine.NewController(opts.Controller.config(bm.NominalBPM))
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid controller tuning", err)
	}

	src := source.NewSimSource(bm, source.SimConfig{
		Offset: opts.OffsetMS / 1000,
		Jitter: opts.JitterMS / 1000,
		Seed:   opts.Seed,
	})

	eng, err := engine.New(bm, ctrl, src)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to create engine", err)
	}

	ctx, cancel := sessionContext(cmd)
	defer cancel()

	if err := eng.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return WrapExitError(ExitFailure, "session error", err)
	}

	result := SimulateResult{
		Session:  eng.Session(),
		FinalBPM: eng.Tempo().Load(),
		Trace:    eng.Trace().Snapshot(),
	}
	if opts.Format == "json" {
		return formatter.Success(result)
	}

	fmt.Fprintf(formatter.Writer, "session %s: %d strikes matched, final bpm %.2f\n",
		result.Session, len(result.Trace), result.FinalBPM)
	for _, ev := range result.Trace {
		fmt.Fprintf(formatter.Writer, "  #%d %-6s t=%.3f ref=%.3f err=%+.1fms bpm=%.2f\n",
			ev.Seq, ev.Instrument, ev.Actual, ev.Ref, ev.Err*1000, ev.BPM)
	}
	return nil
}
