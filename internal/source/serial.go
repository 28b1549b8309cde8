package source

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"go.bug.st/serial"

	"github.com/drumsync/drumsync/internal/engine"
)

// DefaultBaud matches the sensor firmware's serial rate.
const DefaultBaud = 9600

// readPoll bounds how long a blocked serial read can delay Stop.
const readPoll = 100 * time.Millisecond

// SerialSource reads strike lines from a hardware sensor over a serial
// port. Each line carries an instrument tag (K, S or H); the event time
// is seconds elapsed since Run started.
type SerialSource struct {
	device string
	baud   int
	now    func() time.Time

	stop     chan struct{}
	stopOnce sync.Once
	finished atomic.Bool
}

// SerialOption configures a SerialSource.
type SerialOption func(*SerialSource)

// WithBaud overrides the serial rate.
func WithBaud(baud int) SerialOption {
	return func(s *SerialSource) { s.baud = baud }
}

// WithSerialNowFunc overrides the source's clock (tests).
func WithSerialNowFunc(now func() time.Time) SerialOption {
	return func(s *SerialSource) { s.now = now }
}

// NewSerialSource creates a source reading from the named device. The
// port is opened by Run, not here.
func NewSerialSource(device string, opts ...SerialOption) *SerialSource {
	s := &SerialSource{
		device: device,
		baud:   DefaultBaud,
		now:    time.Now,
		stop:   make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Run opens the port and reads lines until Stop, ctx cancellation, emit
// refusing an event, or a port error. Reads use a short timeout so Stop
// is observed promptly even when the sensor is silent.
func (s *SerialSource) Run(ctx context.Context, emit func(engine.Event) bool) error {
	defer s.finished.Store(true)

	port, err := serial.Open(s.device, &serial.Mode{BaudRate: s.baud})
	if err != nil {
		return fmt.Errorf("serial: open %s: %w", s.device, err)
	}
	defer port.Close()

	if err := port.SetReadTimeout(readPoll); err != nil {
		return fmt.Errorf("serial: set read timeout: %w", err)
	}
	slog.Info("serial: port opened", "device", s.device, "baud", s.baud)

	start := s.now()
	var (
		pending []byte
		buf     = make([]byte, 256)
	)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-s.stop:
			return nil
		default:
		}

		n, err := port.Read(buf)
		if err != nil {
			return fmt.Errorf("serial: read %s: %w", s.device, err)
		}
		if n == 0 {
			continue // read timeout, recheck stop
		}

		pending = append(pending, buf[:n]...)
		for {
			idx := bytes.IndexByte(pending, '\n')
			if idx < 0 {
				break
			}
			line := string(bytes.TrimSpace(pending[:idx]))
			pending = pending[idx+1:]

			inst, ok := instrumentForLine(line)
			if !ok {
				if line != "" {
					slog.Debug("serial: unrecognized line", "line", line)
				}
				continue
			}
			ev := engine.Event{
				Time:       s.now().Sub(start).Seconds(),
				Instrument: inst,
			}
			if !emit(ev) {
				return nil
			}
		}
	}
}

// Finished reports whether the read loop has exited.
func (s *SerialSource) Finished() bool {
	return s.finished.Load()
}

// Stop asks the read loop to exit. Idempotent.
func (s *SerialSource) Stop() {
	s.stopOnce.Do(func() { close(s.stop) })
}
