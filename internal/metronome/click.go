package metronome

import (
	"fmt"
	"os"
	"time"

	"github.com/faiface/beep"
	"github.com/faiface/beep/speaker"
	"github.com/faiface/beep/wav"
)

// ClickSink plays a WAV click sample through the speaker on every tick.
type ClickSink struct {
	buffer *beep.Buffer
}

// NewClickSink decodes the click sample and initializes the speaker at
// the sample's rate. Only one ClickSink should exist per process; the
// speaker is a singleton.
func NewClickSink(wavPath string) (*ClickSink, error) {
	f, err := os.Open(wavPath)
	if err != nil {
		return nil, fmt.Errorf("click: open sample: %w", err)
	}

	streamer, format, err := wav.Decode(f)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("click: decode sample: %w", err)
	}

	if err := speaker.Init(format.SampleRate, format.SampleRate.N(time.Second/10)); err != nil {
		streamer.Close()
		return nil, fmt.Errorf("click: init speaker: %w", err)
	}

	buffer := beep.NewBuffer(format)
	buffer.Append(streamer)
	streamer.Close()

	return &ClickSink{buffer: buffer}, nil
}

// Tick implements Sink.
func (s *ClickSink) Tick(Tick) {
	shot := s.buffer.Streamer(0, s.buffer.Len())
	speaker.Play(shot)
}

// Close silences any in-flight click.
func (s *ClickSink) Close() error {
	speaker.Clear()
	return nil
}
