package session

import (
	"errors"
	"fmt"
)

// Session errors.
var (
	// ErrSessionFaulted indicates the session latched Faulted; the caller
	// must Reconnect before issuing further operations.
	ErrSessionFaulted = errors.New("session faulted, reconnect required")

	// ErrHandshakeFailed indicates the identify exchange failed or the
	// device reported an unsupported protocol version. The transport is
	// closed before this error surfaces.
	ErrHandshakeFailed = errors.New("handshake failed")

	// ErrNotConnected indicates an operation on a disconnected session.
	ErrNotConnected = errors.New("session not connected")

	// ErrProtocolViolation indicates an out-of-order or mismatched
	// response frame. The session latches Faulted.
	ErrProtocolViolation = errors.New("protocol violation")
)

// UnsupportedVersionError reports a device whose protocol major version
// this library does not speak.
type UnsupportedVersionError struct {
	DeviceVersion string
	HostVersion   string
}

func (e *UnsupportedVersionError) Error() string {
	return fmt.Sprintf("device speaks protocol %s, host speaks %s", e.DeviceVersion, e.HostVersion)
}
