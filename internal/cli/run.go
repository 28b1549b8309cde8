package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/drumsync/drumsync/internal/engine"
	"github.com/drumsync/drumsync/internal/metronome"
	"github.com/drumsync/drumsync/internal/score"
	"github.com/drumsync/drumsync/internal/source"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	Port        string
	Baud        int
	MIDIPort    string
	AccentEvery int
	ClickWAV    string
	Controller  controllerFlags
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "run <beatmap>",
		Short: "Run a live session against a serial sensor",
		Long: `Start a live tracking session: strikes arrive from the sensor on
the serial port, each one is matched against the beatmap, and the
metronome follows the corrected tempo.

Example:
  drumsync run song.yaml --port /dev/ttyUSB0
  drumsync run song.yaml --port /dev/ttyUSB0 --midi-port "IAC" --verbose`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSession(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Port, "port", "", "serial device of the sensor (required)")
	_ = cmd.MarkFlagRequired("port")
	cmd.Flags().IntVar(&opts.Baud, "baud", source.DefaultBaud, "serial baud rate")
	cmd.Flags().StringVar(&opts.MIDIPort, "midi-port", "", "send ticks as MIDI notes to the named output port")
	cmd.Flags().IntVar(&opts.AccentEvery, "accent-every", metronome.DefaultAccentEvery, "accent every Nth MIDI tick (0 disables)")
	cmd.Flags().StringVar(&opts.ClickWAV, "click", "", "play this WAV sample on every tick")
	opts.Controller.register(cmd)

	return cmd
}

func runSession(opts *RunOptions, beatmapPath string, cmd *cobra.Command) error {
	setupLogging(opts.Verbose)

	bm, err := score.Load(beatmapPath)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load beatmap", err)
	}
	slog.Info("beatmap loaded", "file", beatmapPath, "bpm", bm.NominalBPM, "instruments", len(bm.Tracks))

	ctrl, err := engine.NewController(opts.Controller.config(bm.NominalBPM))
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid controller tuning", err)
	}

	sink, closers, err := buildSink(opts.MIDIPort, opts.AccentEvery, opts.ClickWAV)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to set up tick output", err)
	}
	defer closeAll(closers)

	src := source.NewSerialSource(opts.Port, source.WithBaud(opts.Baud))
	cell := engine.NewTempoCell(0)
	em := metronome.NewEmitter(cell, sink)

	eng, err := engine.New(bm, ctrl, src,
		engine.WithEmitter(em),
		engine.WithTempoCell(cell),
	)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to create engine", err)
	}

	ctx, cancel := sessionContext(cmd)
	defer cancel()

	fmt.Fprintln(cmd.OutOrStdout(), "Session started. Listening for strikes...")
	fmt.Fprintln(cmd.OutOrStdout(), "Press Ctrl-C to stop.")

	if err := eng.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return WrapExitError(ExitFailure, "session error", err)
	}
	slog.Info("session stopped gracefully")
	return nil
}

// setupLogging switches the default slog handler by verbosity.
func setupLogging(verbose bool) {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
}

// buildSink assembles the tick output chain from the output flags.
// Defaults to the log sink when no audio or MIDI output is requested.
func buildSink(midiPort string, accentEvery int, clickWAV string) (metronome.Sink, []io.Closer, error) {
	var (
		sinks   metronome.MultiSink
		closers []io.Closer
	)
	if midiPort != "" {
		midi, err := metronome.NewMIDISink(midiPort, metronome.WithAccentEvery(accentEvery))
		if err != nil {
			return nil, nil, err
		}
		sinks = append(sinks, midi)
		closers = append(closers, midi)
	}
	if clickWAV != "" {
		click, err := metronome.NewClickSink(clickWAV)
		if err != nil {
			closeAll(closers)
			return nil, nil, err
		}
		sinks = append(sinks, click)
		closers = append(closers, click)
	}
	if len(sinks) == 0 {
		return metronome.LogSink{}, nil, nil
	}
	if len(sinks) == 1 {
		return sinks[0], closers, nil
	}
	return sinks, closers, nil
}

func closeAll(closers []io.Closer) {
	for _, c := range closers {
		if err := c.Close(); err != nil {
			slog.Warn("tick output close failed", "err", err)
		}
	}
}

// sessionContext derives a context cancelled by SIGINT/SIGTERM.
func sessionContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	parent := cmd.Context()
	if parent == nil {
		parent = context.Background()
	}
	ctx, cancel := context.WithCancel(parent)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		defer signal.Stop(sigChan)
		select {
		case sig := <-sigChan:
			slog.Info("received signal, shutting down", "signal", sig)
			cancel()
		case <-ctx.Done():
		}
	}()

	return ctx, cancel
}
