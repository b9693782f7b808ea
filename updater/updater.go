// Package updater plans and applies batches of package updates against a
// connected device. It decides what to install, gates each package on
// device compatibility, and stops the batch as soon as the device state
// becomes uncertain rather than pushing into the unknown.
package updater

import (
	"context"
	"fmt"

	"github.com/openciq/gsl/container"
	"github.com/openciq/gsl/protocol"
	"github.com/openciq/gsl/session"
)

// Device is the slice of a device session the updater needs. Satisfied by
// *session.Session; tests substitute a fake.
type Device interface {
	Identity() *protocol.DeviceIdentity
	Push(ctx context.Context, pkg *container.Package, progress session.ProgressFunc) (*session.PushResult, error)
}

// Descriptor names one candidate update. Fetch is called only when the
// updater decides the package should be applied, so a plan of twenty
// candidates with one stale entry downloads one binary.
type Descriptor struct {
	Name string

	// CurrentVersion is the installed version, zero when not installed.
	CurrentVersion uint32

	// AvailableVersion is the newest version known upstream.
	AvailableVersion uint32

	// Fetch retrieves the package binary.
	Fetch func(ctx context.Context) (*container.Package, error)
}

// Status classifies what happened to one descriptor in a run.
type Status int

const (
	// StatusApplied means the device acknowledged the full transfer.
	StatusApplied Status = iota

	// StatusUpToDate means the installed version already matches.
	StatusUpToDate

	// StatusSkippedIncompatible means the package does not list the
	// device's part number.
	StatusSkippedIncompatible

	// StatusFailed means the fetch failed or the device rejected the
	// package. A rejection halts the batch: the session latches Faulted
	// on any device-reported error.
	StatusFailed

	// StatusIncomplete means the transfer broke mid-flight and the device
	// state is unknown. The batch halts.
	StatusIncomplete

	// StatusNotAttempted means an earlier descriptor halted the batch.
	StatusNotAttempted
)

// String returns the status name.
func (s Status) String() string {
	switch s {
	case StatusApplied:
		return "APPLIED"
	case StatusUpToDate:
		return "UP_TO_DATE"
	case StatusSkippedIncompatible:
		return "SKIPPED_INCOMPATIBLE"
	case StatusFailed:
		return "FAILED"
	case StatusIncomplete:
		return "INCOMPLETE"
	case StatusNotAttempted:
		return "NOT_ATTEMPTED"
	default:
		return "UNKNOWN"
	}
}

// Result reports the outcome for one descriptor.
type Result struct {
	Name   string
	Status Status

	// RejectCode carries the device status code for a rejected push.
	RejectCode byte

	// Err carries the underlying failure for Failed and Incomplete.
	Err error
}

// Report summarizes a run.
type Report struct {
	Results []Result

	// Applied counts descriptors the device committed.
	Applied int

	// Halted is true when the run stopped before trying every descriptor.
	Halted bool
}

// Failed reports whether any descriptor ended Failed or Incomplete.
func (r *Report) Failed() bool {
	for _, res := range r.Results {
		if res.Status == StatusFailed || res.Status == StatusIncomplete {
			return true
		}
	}
	return false
}

// Config holds updater options.
type Config struct {
	// Logger receives run events (optional).
	Logger session.Logger

	// Progress receives per-push transfer progress (optional).
	Progress session.ProgressFunc

	// Force applies packages even when CurrentVersion matches.
	Force bool
}

// Option is a functional option for Run.
type Option func(*Config)

// WithLogger sets a logger for run events.
func WithLogger(logger session.Logger) Option {
	return func(c *Config) { c.Logger = logger }
}

// WithProgress sets a transfer progress callback.
func WithProgress(fn session.ProgressFunc) Option {
	return func(c *Config) { c.Progress = fn }
}

// WithForce reinstalls packages whose version already matches.
func WithForce() Option {
	return func(c *Config) { c.Force = true }
}

// Run applies the descriptors in order. Stale descriptors are fetched and
// pushed one at a time; up-to-date and incompatible ones are skipped, and
// a failed fetch fails only its own descriptor. Any broken or rejected
// push halts the batch, because the session is Faulted afterwards and the
// device state is not trusted; the remaining descriptors are reported
// NotAttempted.
func Run(ctx context.Context, dev Device, descriptors []Descriptor, opts ...Option) (*Report, error) {
	var cfg Config
	for _, opt := range opts {
		opt(&cfg)
	}

	identity := dev.Identity()
	if identity == nil {
		return nil, fmt.Errorf("device identity unknown, connect first")
	}

	report := &Report{Results: make([]Result, 0, len(descriptors))}
	halted := false

	for _, d := range descriptors {
		if halted {
			report.Results = append(report.Results, Result{Name: d.Name, Status: StatusNotAttempted})
			continue
		}

		res, halt := applyOne(ctx, dev, identity, d, &cfg)
		report.Results = append(report.Results, res)
		if res.Status == StatusApplied {
			report.Applied++
		}
		if halt {
			halted = true
		}
	}

	report.Halted = halted
	if cfg.Logger != nil {
		cfg.Logger.Info("update run finished",
			"descriptors", len(descriptors),
			"applied", report.Applied,
			"halted", report.Halted,
		)
	}
	return report, nil
}

func applyOne(ctx context.Context, dev Device, identity *protocol.DeviceIdentity, d Descriptor, cfg *Config) (Result, bool) {
	if !cfg.Force && d.CurrentVersion != 0 && d.CurrentVersion >= d.AvailableVersion {
		logDebug(cfg, "up to date", "name", d.Name, "version", d.CurrentVersion)
		return Result{Name: d.Name, Status: StatusUpToDate}, false
	}

	pkg, err := d.Fetch(ctx)
	if err != nil {
		logError(cfg, "fetch failed", "name", d.Name, "error", err.Error())
		return Result{Name: d.Name, Status: StatusFailed, Err: err}, false
	}

	if !pkg.CompatibleWith(identity.PartNumber) {
		logDebug(cfg, "incompatible", "name", d.Name, "part_number", identity.PartNumber)
		return Result{Name: d.Name, Status: StatusSkippedIncompatible}, false
	}

	logInfo(cfg, "applying", "name", d.Name, "version", d.AvailableVersion, "size", pkg.Size())

	pushRes, err := dev.Push(ctx, pkg, cfg.Progress)
	if err != nil {
		// Session-level refusal: the session is unusable. Halt.
		return Result{Name: d.Name, Status: StatusIncomplete, Err: err}, true
	}

	switch pushRes.Outcome {
	case session.OutcomeAcked:
		return Result{Name: d.Name, Status: StatusApplied}, false
	case session.OutcomeRejected:
		return Result{
			Name:       d.Name,
			Status:     StatusFailed,
			RejectCode: pushRes.RejectCode,
			Err:        pushRes.Err,
		}, true
	default:
		return Result{Name: d.Name, Status: StatusIncomplete, Err: pushRes.Err}, true
	}
}

func logDebug(cfg *Config, msg string, kv ...interface{}) {
	if cfg.Logger != nil {
		cfg.Logger.Debug(msg, kv...)
	}
}

func logInfo(cfg *Config, msg string, kv ...interface{}) {
	if cfg.Logger != nil {
		cfg.Logger.Info(msg, kv...)
	}
}

func logError(cfg *Config, msg string, kv ...interface{}) {
	if cfg.Logger != nil {
		cfg.Logger.Error(msg, kv...)
	}
}
