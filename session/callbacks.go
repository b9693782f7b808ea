package session

import "time"

// Transfer phases reported to the progress callback during a push.
const (
	PhaseBegin    = "begin"
	PhaseTransfer = "transfer"
	PhaseFinalize = "finalize"
	PhaseComplete = "complete"
)

// Progress describes the state of an in-flight push.
type Progress struct {
	// Phase is one of the Phase* constants.
	Phase string

	// Segment is the number of segments acknowledged so far.
	Segment int

	// Total is the total number of segments in this push.
	Total int

	// BytesSent is the payload byte count acknowledged so far.
	BytesSent int

	// Percentage is the completion percentage (0.0 to 100.0).
	Percentage float64

	// Elapsed is the time since the push started.
	Elapsed time.Duration
}

// ProgressFunc is called after each acknowledged exchange of a push.
// Implementations should return quickly; the device is waiting.
type ProgressFunc func(Progress)

// Logger is an optional logging interface. It allows integration with any
// logging framework; the gsl CLI bridges log/slog into it.
type Logger interface {
	// Debug logs a debug message with optional key-value pairs
	Debug(msg string, keysAndValues ...interface{})

	// Info logs an info message with optional key-value pairs
	Info(msg string, keysAndValues ...interface{})

	// Error logs an error message with optional key-value pairs
	Error(msg string, keysAndValues ...interface{})
}
