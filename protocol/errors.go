package protocol

import (
	"errors"
	"fmt"
)

// Frame codec errors.
var (
	// ErrFrameTooLarge indicates a payload above MaxPayloadSize, either on
	// encode or declared by an incoming frame header.
	ErrFrameTooLarge = errors.New("frame payload too large")

	// ErrChecksumMismatch indicates the frame CRC did not validate.
	ErrChecksumMismatch = errors.New("frame checksum mismatch")

	// ErrTruncated indicates the input ends before the declared frame does.
	ErrTruncated = errors.New("truncated frame")
)

// DeviceError is a non-ACK status code reported by the device in a
// response frame. The raw code is preserved for diagnosis.
type DeviceError struct {
	// Operation is the request opcode that was rejected.
	Operation byte

	// Code is the status code from the device response.
	Code byte
}

func (e *DeviceError) Error() string {
	op := OpcodeNames[e.Operation]
	if op == "" {
		op = fmt.Sprintf("0x%02X", e.Operation)
	}
	status := StatusNames[e.Code]
	if status == "" {
		status = fmt.Sprintf("unknown status 0x%02X", e.Code)
	}
	return fmt.Sprintf("%s rejected by device: %s (0x%02X)", op, status, e.Code)
}

// IsDeviceError reports whether err is a device-reported status failure,
// returning the raw code when it is.
func IsDeviceError(err error) (byte, bool) {
	var de *DeviceError
	if errors.As(err, &de) {
		return de.Code, true
	}
	return 0, false
}
