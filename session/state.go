package session

// State is the device session state. Transitions happen only in response
// to a sent frame, a received frame, or a timeout.
type State int

const (
	// StateDisconnected indicates no open transport.
	StateDisconnected State = iota

	// StateHandshaking indicates the identify exchange is in progress.
	StateHandshaking

	// StateIdle indicates the session is connected with no exchange open.
	StateIdle

	// StateAwaitingResponse indicates a request frame has been sent and
	// exactly one correlated response is awaited.
	StateAwaitingResponse

	// StateFaulted indicates the session hit a checksum failure, timeout,
	// protocol violation or device-reported error. Every operation fails
	// with ErrSessionFaulted until Reconnect.
	StateFaulted
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "DISCONNECTED"
	case StateHandshaking:
		return "HANDSHAKING"
	case StateIdle:
		return "IDLE"
	case StateAwaitingResponse:
		return "AWAITING_RESPONSE"
	case StateFaulted:
		return "FAULTED"
	default:
		return "UNKNOWN"
	}
}
