package protocol

import (
	"encoding/binary"
	"fmt"
)

// DeviceIdentity is the identity block returned by the Identify command.
type DeviceIdentity struct {
	// ProtocolMajor and ProtocolMinor are the device protocol version.
	ProtocolMajor byte
	ProtocolMinor byte

	// UnitID is the device serial number.
	UnitID uint32

	// FirmwareMajor and FirmwareMinor are the installed firmware version.
	FirmwareMajor byte
	FirmwareMinor byte

	// PartNumber is the hardware SKU, e.g. "006-B3258-00".
	PartNumber string

	// Model is the marketing name, e.g. "Forerunner 245".
	Model string
}

// ProtocolVersion renders the device protocol version as "major.minor".
func (d *DeviceIdentity) ProtocolVersion() string {
	return fmt.Sprintf("%d.%d", d.ProtocolMajor, d.ProtocolMinor)
}

// FirmwareVersion renders the firmware version as "major.minor".
func (d *DeviceIdentity) FirmwareVersion() string {
	return fmt.Sprintf("%d.%d", d.FirmwareMajor, d.FirmwareMinor)
}

// AppEntry is one installed application as reported by ListInstalled.
type AppEntry struct {
	// Name is the application display name.
	Name string

	// Version is the internal (monotonic) version number.
	Version uint32
}

// TransferBegin announces an incoming package push.
type TransferBegin struct {
	// Kind is the container kind byte (see the container package).
	Kind byte

	// TotalSize is the package payload size in bytes.
	TotalSize uint32

	// Segments is the number of TransferSegment frames that will follow.
	Segments uint16

	// Digest is the CRC-16 of the full package payload. The device
	// recomputes it during finalize.
	Digest uint16

	// Name is the package display name shown on the device screen.
	Name string
}

// BuildIdentifyRequest encodes the Identify request payload: the host
// protocol version the device should answer with or refuse.
//
// Payload layout: [HOST_MAJOR(1)][HOST_MINOR(1)]
func BuildIdentifyRequest() []byte {
	return []byte{HostProtocolMajor, HostProtocolMinor}
}

// ParseIdentifyResponse decodes the identity block that follows the status
// byte of an Identify response.
//
// Layout:
//
//	[PROTO_MAJOR(1)][PROTO_MINOR(1)][UNIT_ID(4, LE)]
//	[FW_MAJOR(1)][FW_MINOR(1)][PART_NUMBER str8][MODEL str8]
func ParseIdentifyResponse(data []byte) (*DeviceIdentity, error) {
	if len(data) < 8 {
		return nil, fmt.Errorf("%w: identity block is %d bytes, need at least 8", ErrTruncated, len(data))
	}

	id := &DeviceIdentity{
		ProtocolMajor: data[0],
		ProtocolMinor: data[1],
		UnitID:        binary.LittleEndian.Uint32(data[2:6]),
		FirmwareMajor: data[6],
		FirmwareMinor: data[7],
	}

	rest := data[8:]
	part, rest, err := readString8(rest)
	if err != nil {
		return nil, fmt.Errorf("identity part number: %w", err)
	}
	model, rest, err := readString8(rest)
	if err != nil {
		return nil, fmt.Errorf("identity model: %w", err)
	}
	if len(rest) != 0 {
		return nil, fmt.Errorf("identity block has %d trailing bytes", len(rest))
	}

	id.PartNumber = part
	id.Model = model
	return id, nil
}

// ParseListInstalledResponse decodes the installed-app table that follows
// the status byte of a ListInstalled response.
//
// Layout: [COUNT(2, LE)] then per app [VERSION(4, LE)][NAME str8]
func ParseListInstalledResponse(data []byte) ([]AppEntry, error) {
	if len(data) < 2 {
		return nil, fmt.Errorf("%w: app table is %d bytes", ErrTruncated, len(data))
	}

	count := int(binary.LittleEndian.Uint16(data[0:2]))
	rest := data[2:]
	apps := make([]AppEntry, 0, count)

	for i := 0; i < count; i++ {
		if len(rest) < 4 {
			return nil, fmt.Errorf("%w: app entry %d", ErrTruncated, i)
		}
		version := binary.LittleEndian.Uint32(rest[0:4])
		name, tail, err := readString8(rest[4:])
		if err != nil {
			return nil, fmt.Errorf("app entry %d: %w", i, err)
		}
		apps = append(apps, AppEntry{Name: name, Version: version})
		rest = tail
	}

	if len(rest) != 0 {
		return nil, fmt.Errorf("app table has %d trailing bytes", len(rest))
	}
	return apps, nil
}

// BuildTransferBegin encodes a TransferBegin request payload.
//
// Layout: [KIND(1)][TOTAL(4, LE)][SEGMENTS(2, LE)][DIGEST(2, LE)][NAME str8]
func BuildTransferBegin(tb TransferBegin) ([]byte, error) {
	name, err := writeString8(tb.Name)
	if err != nil {
		return nil, err
	}

	buf := make([]byte, 9, 9+len(name))
	buf[0] = tb.Kind
	binary.LittleEndian.PutUint32(buf[1:5], tb.TotalSize)
	binary.LittleEndian.PutUint16(buf[5:7], tb.Segments)
	binary.LittleEndian.PutUint16(buf[7:9], tb.Digest)
	return append(buf, name...), nil
}

// BuildTransferSegment encodes a TransferSegment request payload.
//
// Layout: [INDEX(2, LE)][DATA...]
func BuildTransferSegment(index uint16, data []byte) ([]byte, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("segment %d is empty", index)
	}
	if len(data) > MaxPayloadSize-2 {
		return nil, fmt.Errorf("%w: segment %d carries %d bytes", ErrFrameTooLarge, index, len(data))
	}

	buf := make([]byte, 2+len(data))
	binary.LittleEndian.PutUint16(buf[0:2], index)
	copy(buf[2:], data)
	return buf, nil
}

// BuildTransferFinalize encodes a TransferFinalize request payload: the
// payload digest repeated so the device can verify what it assembled.
//
// Layout: [DIGEST(2, LE)]
func BuildTransferFinalize(digest uint16) []byte {
	buf := make([]byte, 2)
	binary.LittleEndian.PutUint16(buf, digest)
	return buf
}

// ParseQueryStatusResponse decodes the transfer engine state that follows
// the status byte of a QueryStatus response.
//
// Layout: [STATE(1)][RECEIVED_SEGMENTS(2, LE)]
func ParseQueryStatusResponse(data []byte) (state byte, received uint16, err error) {
	if len(data) != 3 {
		return 0, 0, fmt.Errorf("%w: status block is %d bytes, expected 3", ErrTruncated, len(data))
	}
	return data[0], binary.LittleEndian.Uint16(data[1:3]), nil
}

// readString8 consumes a length-prefixed string (uint8 length) from buf.
func readString8(buf []byte) (string, []byte, error) {
	if len(buf) < 1 {
		return "", nil, fmt.Errorf("%w: missing string length", ErrTruncated)
	}
	n := int(buf[0])
	if len(buf) < 1+n {
		return "", nil, fmt.Errorf("%w: string wants %d bytes, have %d", ErrTruncated, n, len(buf)-1)
	}
	return string(buf[1 : 1+n]), buf[1+n:], nil
}

// writeString8 renders a length-prefixed string (uint8 length).
func writeString8(s string) ([]byte, error) {
	if len(s) > 255 {
		return nil, fmt.Errorf("string %q exceeds 255 bytes", s)
	}
	buf := make([]byte, 1+len(s))
	buf[0] = byte(len(s))
	copy(buf[1:], s)
	return buf, nil
}
