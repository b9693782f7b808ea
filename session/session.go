package session

import (
	"context"
	"fmt"
	"sync"

	"github.com/openciq/gsl/protocol"
	"github.com/openciq/gsl/transport"
)

// Session runs the handshake and command/response state machine over one
// device handle. A handle is exclusively owned: exactly one Session per
// physical device, exactly one in-flight exchange at any time. The
// protocol has no request-correlation identifier, so this is a hard
// invariant, not a performance choice.
type Session struct {
	mu sync.Mutex

	cfg      Config
	port     transport.Port
	dec      protocol.Decoder
	state    State
	identity *protocol.DeviceIdentity
}

// Connect opens the serial endpoint at path and performs the identify
// handshake. On handshake failure the transport is closed before the
// error surfaces.
func Connect(path string, opts ...Option) (*Session, error) {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.Dialer == nil {
		cfg.Dialer = func() (transport.Port, error) { return transport.Open(path) }
	}

	s := &Session{cfg: cfg, state: StateDisconnected}
	if err := s.connect(); err != nil {
		return nil, err
	}
	return s, nil
}

// connect dials the transport and runs the handshake. Caller must not
// hold the session in any connected state.
func (s *Session) connect() error {
	port, err := s.cfg.Dialer()
	if err != nil {
		return err
	}
	if err := port.SetReadTimeout(s.cfg.ReadTimeout); err != nil {
		_ = port.Close()
		return err
	}

	s.port = port
	s.dec.Reset()
	s.state = StateHandshaking

	identity, err := s.handshake()
	if err != nil {
		_ = port.Close()
		s.port = nil
		s.state = StateDisconnected
		return fmt.Errorf("%w: %v", ErrHandshakeFailed, err)
	}

	s.identity = identity
	s.state = StateIdle
	s.logInfo("connected",
		"model", identity.Model,
		"part_number", identity.PartNumber,
		"unit_id", identity.UnitID,
		"firmware", identity.FirmwareVersion(),
		"protocol", identity.ProtocolVersion(),
	)
	return nil
}

// handshake sends the identify hello and validates the device's identity
// response, including the protocol version gate.
func (s *Session) handshake() (*protocol.DeviceIdentity, error) {
	data, err := s.roundTrip(protocol.OpIdentify, protocol.BuildIdentifyRequest())
	if err != nil {
		return nil, err
	}

	identity, err := protocol.ParseIdentifyResponse(data)
	if err != nil {
		return nil, fmt.Errorf("malformed identity response: %w", err)
	}

	if identity.ProtocolMajor != protocol.HostProtocolMajor {
		return nil, &UnsupportedVersionError{
			DeviceVersion: identity.ProtocolVersion(),
			HostVersion:   fmt.Sprintf("%d.%d", protocol.HostProtocolMajor, protocol.HostProtocolMinor),
		}
	}
	return identity, nil
}

// State returns the current session state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Identity returns the device identity learned during the handshake.
func (s *Session) Identity() *protocol.DeviceIdentity {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.identity
}

// Identify re-queries the device identity block.
func (s *Session) Identify(ctx context.Context) (*protocol.DeviceIdentity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := s.command(ctx, protocol.OpIdentify, protocol.BuildIdentifyRequest())
	if err != nil {
		return nil, err
	}

	identity, err := protocol.ParseIdentifyResponse(data)
	if err != nil {
		s.fault("malformed identity response", err)
		return nil, fmt.Errorf("%w: %v", ErrProtocolViolation, err)
	}

	s.identity = identity
	return identity, nil
}

// ListInstalled returns the installed Connect IQ application table.
func (s *Session) ListInstalled(ctx context.Context) ([]protocol.AppEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := s.command(ctx, protocol.OpListInstalled, nil)
	if err != nil {
		return nil, err
	}

	apps, err := protocol.ParseListInstalledResponse(data)
	if err != nil {
		s.fault("malformed app table", err)
		return nil, fmt.Errorf("%w: %v", ErrProtocolViolation, err)
	}
	return apps, nil
}

// QueryStatus returns the device transfer engine state and the number of
// segments it has received for any open transfer.
func (s *Session) QueryStatus(ctx context.Context) (state byte, received uint16, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := s.command(ctx, protocol.OpQueryStatus, nil)
	if err != nil {
		return 0, 0, err
	}

	st, rcv, err := protocol.ParseQueryStatusResponse(data)
	if err != nil {
		s.fault("malformed status response", err)
		return 0, 0, fmt.Errorf("%w: %v", ErrProtocolViolation, err)
	}
	return st, rcv, nil
}

// Disconnect closes the transport. Idempotent.
func (s *Session) Disconnect() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.port == nil {
		s.state = StateDisconnected
		return nil
	}
	err := s.port.Close()
	s.port = nil
	s.state = StateDisconnected
	s.logInfo("disconnected")
	return err
}

// Reconnect closes any existing transport, reopens it and redoes the
// handshake. This is the only way out of the Faulted state.
func (s *Session) Reconnect() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.port != nil {
		_ = s.port.Close()
		s.port = nil
	}
	s.state = StateDisconnected
	return s.connect()
}

// command runs one Idle -> AwaitingResponse -> Idle exchange and returns
// the response data after the status byte. Device-reported errors, like
// timeouts and codec failures, latch the session Faulted (the device's
// transfer engine state is no longer trusted). Caller holds s.mu.
func (s *Session) command(ctx context.Context, op byte, payload []byte) ([]byte, error) {
	switch s.state {
	case StateFaulted:
		return nil, ErrSessionFaulted
	case StateDisconnected:
		return nil, ErrNotConnected
	case StateIdle:
		// proceed
	default:
		return nil, fmt.Errorf("%w: command issued in state %s", ErrProtocolViolation, s.state)
	}

	if err := ctx.Err(); err != nil {
		s.fault("context cancelled", err)
		return nil, err
	}
	return s.roundTrip(op, payload)
}

// roundTrip sends one request frame and blocks for exactly one correlated
// response frame. Used by command and, before the session is Idle, by the
// handshake. Caller holds s.mu (or owns the session exclusively).
func (s *Session) roundTrip(op byte, payload []byte) ([]byte, error) {
	// Anything already buffered is a frame the device sent while no
	// request was pending: a protocol violation.
	if f, err := s.dec.Next(); err != nil || f != nil {
		s.fault("unsolicited data before request", err)
		return nil, fmt.Errorf("%w: unsolicited frame before request 0x%02X", ErrProtocolViolation, op)
	}

	wire, err := protocol.Encode(op, payload)
	if err != nil {
		return nil, err
	}

	prev := s.state
	s.state = StateAwaitingResponse
	defer func() {
		if s.state == StateAwaitingResponse {
			s.state = prev
		}
	}()

	if _, err := s.port.Write(wire); err != nil {
		s.fault("write failed", err)
		return nil, err
	}
	s.logDebug("sent", "opcode", protocol.OpcodeNames[op], "payload_len", len(payload))

	frame, err := s.readFrame()
	if err != nil {
		s.fault("read failed", err)
		return nil, err
	}

	if !frame.IsResponse() || frame.RequestOpcode() != op {
		s.fault("mismatched response opcode", nil)
		return nil, fmt.Errorf("%w: expected response to 0x%02X, got frame 0x%02X",
			ErrProtocolViolation, op, frame.Opcode)
	}
	if len(frame.Payload) < 1 {
		s.fault("response missing status byte", nil)
		return nil, fmt.Errorf("%w: response to 0x%02X has no status byte", ErrProtocolViolation, op)
	}

	status := frame.Payload[0]
	if status != protocol.StatusAck {
		devErr := &protocol.DeviceError{Operation: op, Code: status}
		s.fault("device reported error", devErr)
		return nil, devErr
	}

	s.logDebug("acked", "opcode", protocol.OpcodeNames[op])
	return frame.Payload[1:], nil
}

// readFrame blocks until one complete frame is decoded or a read fails.
// Each underlying read honors the configured deadline.
func (s *Session) readFrame() (*protocol.Frame, error) {
	buf := make([]byte, 512)
	for {
		if f, err := s.dec.Next(); err != nil {
			return nil, err
		} else if f != nil {
			return f, nil
		}

		n, err := s.port.Read(buf)
		if err != nil {
			return nil, err
		}
		s.dec.Feed(buf[:n])
	}
}

// fault latches the session Faulted and drops any buffered stream state.
// A Faulted session refuses all operations until Reconnect.
func (s *Session) fault(reason string, err error) {
	if s.state == StateDisconnected {
		return
	}
	s.state = StateFaulted
	s.dec.Reset()
	s.logError("session faulted", "reason", reason, "error", errString(err))
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}

// Faulted reports whether the session is latched Faulted.
func (s *Session) Faulted() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state == StateFaulted
}

func (s *Session) logDebug(msg string, kv ...interface{}) {
	if s.cfg.Logger != nil {
		s.cfg.Logger.Debug(msg, kv...)
	}
}

func (s *Session) logInfo(msg string, kv ...interface{}) {
	if s.cfg.Logger != nil {
		s.cfg.Logger.Info(msg, kv...)
	}
}

func (s *Session) logError(msg string, kv ...interface{}) {
	if s.cfg.Logger != nil {
		s.cfg.Logger.Error(msg, kv...)
	}
}
