package session

import (
	"time"

	"github.com/openciq/gsl/protocol"
	"github.com/openciq/gsl/transport"
)

// Config holds the session configuration.
type Config struct {
	// ReadTimeout bounds every blocking read on the transport. A timed-out
	// exchange latches the session Faulted; there are no retries.
	ReadTimeout time.Duration

	// SegmentSize is the payload byte count per TransferSegment frame.
	SegmentSize int

	// Logger receives session events (optional).
	Logger Logger

	// Dialer opens the transport. Defaults to transport.Open on the path
	// given to Connect; overridable for tests and alternative transports.
	Dialer func() (transport.Port, error)
}

// defaultConfig returns the default configuration.
func defaultConfig() Config {
	return Config{
		ReadTimeout: 3 * time.Second,
		SegmentSize: protocol.DefaultSegmentSize,
	}
}

// Option is a functional option for configuring a Session.
type Option func(*Config)

// WithReadTimeout sets the per-read deadline.
func WithReadTimeout(d time.Duration) Option {
	return func(c *Config) {
		if d > 0 {
			c.ReadTimeout = d
		}
	}
}

// WithSegmentSize overrides the transfer segment size. Values outside
// (0, MaxPayloadSize-2] are ignored.
func WithSegmentSize(size int) Option {
	return func(c *Config) {
		if size > 0 && size <= protocol.MaxPayloadSize-2 {
			c.SegmentSize = size
		}
	}
}

// WithLogger sets a logger for session events.
func WithLogger(logger Logger) Option {
	return func(c *Config) {
		c.Logger = logger
	}
}

// WithDialer overrides how the session opens its transport. Used by tests
// and by callers bringing their own Port implementation.
func WithDialer(dial func() (transport.Port, error)) Option {
	return func(c *Config) {
		c.Dialer = dial
	}
}
