// Package transport owns the physical serial connection to a device.
// It knows nothing about framing: just bytes, deadlines and close.
package transport

import (
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"go.bug.st/serial"
)

// Transport errors.
var (
	// ErrConnection indicates the serial endpoint could not be reached.
	ErrConnection = errors.New("transport: connection failed")

	// ErrTimeout indicates a read deadline expired with no data.
	ErrTimeout = errors.New("transport: read timeout")

	// ErrClosed indicates IO on a closed port.
	ErrClosed = errors.New("transport: port closed")
)

// Port is a byte-level connection to a device. All reads are blocking and
// honor the deadline set by SetReadTimeout; there are no implicit retries.
type Port interface {
	io.ReadWriteCloser

	// SetReadTimeout sets the deadline applied to subsequent Reads.
	// A zero duration blocks indefinitely.
	SetReadTimeout(d time.Duration) error
}

// Garmin devices enumerate as a 115200 8N1 CDC-ACM endpoint.
var portMode = &serial.Mode{
	BaudRate: 115200,
	DataBits: 8,
	Parity:   serial.NoParity,
	StopBits: serial.OneStopBit,
}

// Open opens the serial endpoint at path (e.g. /dev/ttyACM0). Failures
// wrap ErrConnection.
func Open(path string) (Port, error) {
	p, err := serial.Open(path, portMode)
	if err != nil {
		return nil, fmt.Errorf("%w: open %s: %v", ErrConnection, path, err)
	}
	return &serialPort{inner: p}, nil
}

// serialPort adapts go.bug.st/serial to the Port contract: the library
// reports an expired read deadline as (0, nil), which we surface as
// ErrTimeout so callers never mistake it for a clean zero-byte read.
//
// mu guards closed and timeout; the blocking inner calls run outside it
// so Close can interrupt a Read in flight.
type serialPort struct {
	inner serial.Port

	mu      sync.Mutex
	timeout time.Duration
	closed  bool
}

func (s *serialPort) Read(p []byte) (int, error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return 0, ErrClosed
	}
	timeout := s.timeout
	s.mu.Unlock()

	n, err := s.inner.Read(p)
	if err != nil {
		return n, fmt.Errorf("transport: read: %w", err)
	}
	if n == 0 && timeout > 0 {
		return 0, ErrTimeout
	}
	return n, nil
}

func (s *serialPort) Write(p []byte) (int, error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return 0, ErrClosed
	}
	s.mu.Unlock()

	n, err := s.inner.Write(p)
	if err != nil {
		return n, fmt.Errorf("transport: write: %w", err)
	}
	return n, nil
}

func (s *serialPort) SetReadTimeout(d time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	if err := s.inner.SetReadTimeout(d); err != nil {
		return fmt.Errorf("transport: set read timeout: %w", err)
	}
	s.timeout = d
	return nil
}

// Close is idempotent. A Read in flight is woken by closing the
// underlying port.
func (s *serialPort) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()

	if err := s.inner.Close(); err != nil {
		return fmt.Errorf("transport: close: %w", err)
	}
	return nil
}
