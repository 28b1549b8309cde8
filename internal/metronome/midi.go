package metronome

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/drivers"
	"gitlab.com/gomidi/midi/v2/drivers/rtmididrv"
)

// Defaults for the MIDI click: channel 10 percussion, side stick for the
// weak beats and a high wood block for the accented downbeat. GM drum
// keys 37 and 76.
const (
	midiClickChannel   = 9
	midiClickKey       = 37
	midiAccentKey      = 76
	midiClickVelocity  = 100
	midiAccentVelocity = 120
	midiClickLength    = 50 * time.Millisecond

	// DefaultAccentEvery accents every fourth tick, a 4/4 downbeat.
	DefaultAccentEvery = 4
)

// MIDISink plays each tick as a short percussion note on a MIDI output
// port, for downstream synths or hardware metronomes. The first tick of
// every bar is accented.
type MIDISink struct {
	drv         *rtmididrv.Driver
	out         drivers.Out
	send        func(midi.Message) error
	accentEvery int
}

// MIDIOption configures a MIDISink.
type MIDIOption func(*MIDISink)

// WithAccentEvery sets the bar length in ticks; every barth tick is
// accented. Zero disables accents.
func WithAccentEvery(bar int) MIDIOption {
	return func(s *MIDISink) { s.accentEvery = bar }
}

// NewMIDISink opens the first MIDI output whose name contains portName
// (case-insensitive). Call Close when done.
func NewMIDISink(portName string, opts ...MIDIOption) (*MIDISink, error) {
	drv, err := rtmididrv.New()
	if err != nil {
		return nil, fmt.Errorf("rtmididrv: %w", err)
	}

	outs, err := drv.Outs()
	if err != nil {
		drv.Close()
		return nil, fmt.Errorf("midi: list outputs: %w", err)
	}

	var port drivers.Out
	for _, out := range outs {
		if strings.Contains(strings.ToLower(out.String()), strings.ToLower(portName)) {
			port = out
			break
		}
	}
	if port == nil {
		drv.Close()
		return nil, fmt.Errorf("midi: no output port matching %q", portName)
	}
	if err := port.Open(); err != nil {
		drv.Close()
		return nil, fmt.Errorf("midi: open %q: %w", port.String(), err)
	}

	send, err := midi.SendTo(port)
	if err != nil {
		_ = port.Close()
		drv.Close()
		return nil, fmt.Errorf("midi: sender for %q: %w", port.String(), err)
	}

	s := &MIDISink{drv: drv, out: port, send: send, accentEvery: DefaultAccentEvery}
	for _, opt := range opts {
		opt(s)
	}
	slog.Info("midi: click output connected", "port", port.String(), "accent_every", s.accentEvery)
	return s, nil
}

// Tick implements Sink.
func (s *MIDISink) Tick(t Tick) {
	key := uint8(midiClickKey)
	velocity := uint8(midiClickVelocity)
	if s.accentEvery > 0 && (t.Count-1)%s.accentEvery == 0 {
		key = midiAccentKey
		velocity = midiAccentVelocity
	}
	if err := s.send(midi.NoteOn(midiClickChannel, key, velocity)); err != nil {
		slog.Warn("midi: note on failed", "err", err)
		return
	}
	time.AfterFunc(midiClickLength, func() {
		if err := s.send(midi.NoteOff(midiClickChannel, key)); err != nil {
			slog.Warn("midi: note off failed", "err", err)
		}
	})
}

// Close releases the MIDI port and driver.
func (s *MIDISink) Close() error {
	err := s.out.Close()
	s.drv.Close()
	return err
}
