package session

import (
	"context"
	"errors"
	"time"

	"github.com/openciq/gsl/container"
	"github.com/openciq/gsl/protocol"
)

// Outcome classifies how a push ended.
type Outcome int

const (
	// OutcomeAcked means every frame of the transfer was acknowledged and
	// the device committed the package.
	OutcomeAcked Outcome = iota

	// OutcomeIncomplete means the transfer was opened but the exchange
	// broke before the finalize ack arrived. The device may hold a partial
	// or even a committed package; the session latches Faulted and the
	// caller decides whether to query and retry after reconnecting.
	OutcomeIncomplete

	// OutcomeRejected means the device explicitly refused a frame of the
	// transfer. RejectCode carries the device status code.
	OutcomeRejected
)

// String returns the outcome name.
func (o Outcome) String() string {
	switch o {
	case OutcomeAcked:
		return "ACKED"
	case OutcomeIncomplete:
		return "INCOMPLETE"
	case OutcomeRejected:
		return "REJECTED"
	default:
		return "UNKNOWN"
	}
}

// PushResult reports the terminal state of a push. Err is non-nil for
// every outcome other than OutcomeAcked and carries the underlying cause.
type PushResult struct {
	Outcome       Outcome
	SegmentsSent  int
	SegmentsTotal int

	// RejectCode is the device status code when Outcome is
	// OutcomeRejected, zero otherwise.
	RejectCode byte

	// Err is the underlying failure, nil when acked.
	Err error
}

// Push transfers a package to the device: one TransferBegin, a run of
// TransferSegment frames and a TransferFinalize carrying the payload
// digest. The device recomputes the digest before committing, so a
// finalize ack means the payload arrived intact.
//
// Push never retries. An explicit device rejection yields
// OutcomeRejected; a broken exchange after TransferBegin yields
// OutcomeIncomplete with the session latched Faulted. Only session-level
// refusals (Faulted, disconnected, oversized package) return a nil result
// with an error.
func (s *Session) Push(ctx context.Context, pkg *container.Package, progress ProgressFunc) (*PushResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.state {
	case StateFaulted:
		return nil, ErrSessionFaulted
	case StateIdle:
		// proceed
	default:
		return nil, ErrNotConnected
	}

	payload := pkg.Payload()
	segSize := s.cfg.SegmentSize
	total := (len(payload) + segSize - 1) / segSize
	if total > int(^uint16(0)) {
		return nil, errors.New("package too large for segment count field")
	}

	digest := pkg.Digest()
	begin, err := protocol.BuildTransferBegin(protocol.TransferBegin{
		Kind:      byte(pkg.Kind),
		TotalSize: uint32(len(payload)),
		Segments:  uint16(total),
		Digest:    digest,
		Name:      pkg.Name,
	})
	if err != nil {
		return nil, err
	}

	start := time.Now()
	result := &PushResult{SegmentsTotal: total}

	s.logInfo("push started",
		"name", pkg.Name,
		"kind", pkg.Kind.String(),
		"size", len(payload),
		"segments", total,
	)

	report := func(phase string, sent int) {
		if progress == nil {
			return
		}
		pct := 100.0
		if total > 0 {
			pct = float64(sent) / float64(total) * 100.0
		}
		progress(Progress{
			Phase:      phase,
			Segment:    sent,
			Total:      total,
			BytesSent:  min(sent*segSize, len(payload)),
			Percentage: pct,
			Elapsed:    time.Since(start),
		})
	}

	if _, err := s.command(ctx, protocol.OpTransferBegin, begin); err != nil {
		return s.pushFailed(result, err)
	}
	report(PhaseBegin, 0)

	for i := 0; i < total; i++ {
		if err := ctx.Err(); err != nil {
			s.fault("push cancelled", err)
			return s.pushFailed(result, err)
		}

		lo := i * segSize
		hi := min(lo+segSize, len(payload))
		seg, err := protocol.BuildTransferSegment(uint16(i), payload[lo:hi])
		if err != nil {
			s.fault("segment build failed", err)
			return s.pushFailed(result, err)
		}

		if _, err := s.command(ctx, protocol.OpTransferSegment, seg); err != nil {
			return s.pushFailed(result, err)
		}
		result.SegmentsSent = i + 1
		report(PhaseTransfer, result.SegmentsSent)
	}

	report(PhaseFinalize, total)
	if _, err := s.command(ctx, protocol.OpTransferFinalize, protocol.BuildTransferFinalize(digest)); err != nil {
		return s.pushFailed(result, err)
	}

	result.Outcome = OutcomeAcked
	report(PhaseComplete, total)
	s.logInfo("push complete",
		"name", pkg.Name,
		"segments", total,
		"elapsed", time.Since(start).String(),
	)
	return result, nil
}

// pushFailed classifies a broken push. An explicit device status code is
// a clean rejection; anything else leaves the device state unknown (the
// begin frame was already on the wire) and is reported incomplete.
func (s *Session) pushFailed(result *PushResult, err error) (*PushResult, error) {
	result.Err = err
	if code, ok := protocol.IsDeviceError(err); ok {
		result.Outcome = OutcomeRejected
		result.RejectCode = code
		s.logError("push rejected",
			"status", protocol.StatusNames[code],
			"segments_sent", result.SegmentsSent,
		)
		return result, nil
	}
	result.Outcome = OutcomeIncomplete
	s.logError("push incomplete",
		"segments_sent", result.SegmentsSent,
		"segments_total", result.SegmentsTotal,
		"error", errString(err),
	)
	return result, nil
}
