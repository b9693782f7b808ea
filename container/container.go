package container

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/openciq/gsl/protocol"
)

// Container errors.
var (
	// ErrBadMagic indicates the input does not start with a known magic.
	ErrBadMagic = errors.New("container: bad magic")

	// ErrUnsupportedVersion indicates an unknown container format version.
	ErrUnsupportedVersion = errors.New("container: unsupported format version")

	// ErrChecksumMismatch indicates the trailing checksum did not validate.
	ErrChecksumMismatch = errors.New("container: checksum mismatch")

	// ErrTruncated indicates the input ends before the container does.
	ErrTruncated = errors.New("container: truncated")
)

// Kind identifies one of the three container formats.
type Kind byte

// Container kinds. The byte values travel in TransferBegin frames and are
// pinned alongside the protocol opcodes.
const (
	Application Kind = 0x01
	Settings    Kind = 0x02
	Firmware    Kind = 0x03
)

// String returns the kind name.
func (k Kind) String() string {
	switch k {
	case Application:
		return "application"
	case Settings:
		return "settings"
	case Firmware:
		return "firmware"
	default:
		return fmt.Sprintf("kind(0x%02X)", byte(k))
	}
}

// Magic tags, pinned from real package files.
var (
	magicApplication = [4]byte{'C', 'I', 'Q', 'P'}
	magicSettings    = [4]byte{'C', 'I', 'Q', 'S'}
	magicFirmware    = [4]byte{'K', 'p', 'G', 'r'}
)

// FormatVersion is the only container format version this library reads
// and writes.
const FormatVersion = 1

// Package is a parsed binary container. It is immutable once parsed:
// accessors return copies of the payload, and Serialize recomputes the
// trailer rather than trusting cached state.
//
// Common layout (all three kinds):
//
//	[MAGIC(4)][VERSION(1)][NAME str8][PKG_VERSION(4, LE)]
//	[PART_COUNT(1)][PART_NUMBER str8 ...]
//	[PAYLOAD_LEN(4, LE)][PAYLOAD...][TRAILER]
//
// The trailer covers every preceding byte including the magic. Application
// and Settings containers close with a CRC-16-CCITT (2 bytes, LE);
// Firmware regions keep the older one-byte additive checksum.
type Package struct {
	// Kind is the container format.
	Kind Kind

	// Name is the display name from the metadata block.
	Name string

	// Version is the internal (monotonic) package version.
	Version uint32

	// PartNumbers lists compatible device SKUs. For Application and
	// Settings this is the store compatibility list; for Firmware it is
	// the single target SKU.
	PartNumbers []string

	payload []byte
}

// Payload returns a copy of the opaque payload block.
func (p *Package) Payload() []byte {
	out := make([]byte, len(p.payload))
	copy(out, p.payload)
	return out
}

// Size returns the payload size in bytes.
func (p *Package) Size() int {
	return len(p.payload)
}

// Digest returns the CRC-16 payload digest announced in TransferBegin and
// verified by the device at finalize.
func (p *Package) Digest() uint16 {
	return protocol.CRC16(p.payload)
}

// CompatibleWith reports whether the package targets the given device SKU.
// An empty part-number list never matches: compatibility is declared, not
// assumed.
func (p *Package) CompatibleWith(partNumber string) bool {
	for _, pn := range p.PartNumbers {
		if pn == partNumber {
			return true
		}
	}
	return false
}

// New builds a Package from raw fields. Intended for producing test
// fixtures and settings containers assembled locally; downloaded packages
// should go through Parse.
func New(kind Kind, name string, version uint32, partNumbers []string, payload []byte) *Package {
	pl := make([]byte, len(payload))
	copy(pl, payload)
	return &Package{
		Kind:        kind,
		Name:        name,
		Version:     version,
		PartNumbers: append([]string(nil), partNumbers...),
		payload:     pl,
	}
}

// kindForMagic maps a magic tag to its kind.
func kindForMagic(magic []byte) (Kind, bool) {
	switch {
	case string(magic) == string(magicApplication[:]):
		return Application, true
	case string(magic) == string(magicSettings[:]):
		return Settings, true
	case string(magic) == string(magicFirmware[:]):
		return Firmware, true
	default:
		return 0, false
	}
}

// magicForKind maps a kind to its magic tag.
func magicForKind(kind Kind) ([4]byte, error) {
	switch kind {
	case Application:
		return magicApplication, nil
	case Settings:
		return magicSettings, nil
	case Firmware:
		return magicFirmware, nil
	default:
		return [4]byte{}, fmt.Errorf("container: unknown kind 0x%02X", byte(kind))
	}
}

// trailerSize returns the checksum trailer length for a kind.
func trailerSize(kind Kind) int {
	if kind == Firmware {
		return 1
	}
	return 2
}

// Parse decodes a binary container. The trailing checksum must validate;
// a Package is never constructed from bytes that fail integrity.
func Parse(data []byte) (*Package, error) {
	if len(data) < 4 {
		return nil, fmt.Errorf("%w: %d bytes", ErrTruncated, len(data))
	}

	kind, ok := kindForMagic(data[:4])
	if !ok {
		return nil, fmt.Errorf("%w: % X", ErrBadMagic, data[:4])
	}

	trailer := trailerSize(kind)
	if len(data) < 4+1+trailer {
		return nil, fmt.Errorf("%w: %d bytes", ErrTruncated, len(data))
	}

	// Verify the trailer first: nothing else is trusted until it checks.
	body := data[:len(data)-trailer]
	if kind == Firmware {
		want := data[len(data)-1]
		if got := protocol.LegacySum(body); got != want {
			return nil, fmt.Errorf("%w: got 0x%02X, expected 0x%02X", ErrChecksumMismatch, got, want)
		}
	} else {
		want := binary.LittleEndian.Uint16(data[len(data)-2:])
		if got := protocol.CRC16(body); got != want {
			return nil, fmt.Errorf("%w: got 0x%04X, expected 0x%04X", ErrChecksumMismatch, got, want)
		}
	}

	if body[4] != FormatVersion {
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedVersion, body[4])
	}

	rest := body[5:]
	name, rest, err := readString8(rest)
	if err != nil {
		return nil, fmt.Errorf("container name: %w", err)
	}

	if len(rest) < 5 {
		return nil, fmt.Errorf("%w: metadata block", ErrTruncated)
	}
	version := binary.LittleEndian.Uint32(rest[0:4])
	partCount := int(rest[4])
	rest = rest[5:]

	parts := make([]string, 0, partCount)
	for i := 0; i < partCount; i++ {
		var pn string
		pn, rest, err = readString8(rest)
		if err != nil {
			return nil, fmt.Errorf("part number %d: %w", i, err)
		}
		parts = append(parts, pn)
	}

	if len(rest) < 4 {
		return nil, fmt.Errorf("%w: payload length", ErrTruncated)
	}
	payloadLen := int(binary.LittleEndian.Uint32(rest[0:4]))
	rest = rest[4:]
	if len(rest) != payloadLen {
		return nil, fmt.Errorf("%w: payload declares %d bytes, have %d", ErrTruncated, payloadLen, len(rest))
	}

	payload := make([]byte, payloadLen)
	copy(payload, rest)

	return &Package{
		Kind:        kind,
		Name:        name,
		Version:     version,
		PartNumbers: parts,
		payload:     payload,
	}, nil
}

// Serialize renders a Package back to its binary form. For any package
// produced by Parse, Parse(Serialize(p)) reproduces p exactly.
func Serialize(p *Package) ([]byte, error) {
	magic, err := magicForKind(p.Kind)
	if err != nil {
		return nil, err
	}
	name, err := writeString8(p.Name)
	if err != nil {
		return nil, err
	}
	if len(p.PartNumbers) > 255 {
		return nil, fmt.Errorf("container: %d part numbers exceeds 255", len(p.PartNumbers))
	}

	buf := make([]byte, 0, 4+1+len(name)+4+1+len(p.payload)+8)
	buf = append(buf, magic[:]...)
	buf = append(buf, FormatVersion)
	buf = append(buf, name...)
	buf = binary.LittleEndian.AppendUint32(buf, p.Version)
	buf = append(buf, byte(len(p.PartNumbers)))
	for _, pn := range p.PartNumbers {
		enc, err := writeString8(pn)
		if err != nil {
			return nil, err
		}
		buf = append(buf, enc...)
	}
	buf = binary.LittleEndian.AppendUint32(buf, uint32(len(p.payload)))
	buf = append(buf, p.payload...)

	if p.Kind == Firmware {
		buf = append(buf, protocol.LegacySum(buf))
	} else {
		buf = binary.LittleEndian.AppendUint16(buf, protocol.CRC16(buf))
	}
	return buf, nil
}

// readString8 consumes a length-prefixed string (uint8 length).
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
		return nil, fmt.Errorf("container: string %q exceeds 255 bytes", s)
	}
	buf := make([]byte, 1+len(s))
	buf[0] = byte(len(s))
	copy(buf[1:], s)
	return buf, nil
}
