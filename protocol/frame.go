package protocol

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// Frame is the smallest protocol unit exchanged with the device.
type Frame struct {
	// Opcode identifies the message type. Responses carry ResponseBit.
	Opcode byte

	// Payload is the frame body. May be empty.
	Payload []byte
}

// IsResponse reports whether the frame is a device response.
func (f *Frame) IsResponse() bool {
	return f.Opcode&ResponseBit != 0
}

// RequestOpcode returns the request opcode a response frame answers.
func (f *Frame) RequestOpcode() byte {
	return f.Opcode &^ ResponseBit
}

// Encode builds the wire bytes for a frame:
//
//	[OPCODE(1)][LEN(2, LE)][CRC(2, LE)][PAYLOAD...]
//
// The CRC covers OPCODE, LEN and PAYLOAD. Encode never fails for payloads
// within MaxPayloadSize and returns ErrFrameTooLarge otherwise.
func Encode(opcode byte, payload []byte) ([]byte, error) {
	if len(payload) > MaxPayloadSize {
		return nil, fmt.Errorf("%w: %d > %d", ErrFrameTooLarge, len(payload), MaxPayloadSize)
	}

	frame := make([]byte, HeaderSize+len(payload))
	frame[0] = opcode
	binary.LittleEndian.PutUint16(frame[1:3], uint16(len(payload)))
	copy(frame[HeaderSize:], payload)

	// CRC over opcode + length + payload; the CRC field itself is zero
	// while summing, so hash the two header pieces separately.
	crc := frameCRC(opcode, frame[1:3], payload)
	binary.LittleEndian.PutUint16(frame[3:5], crc)

	return frame, nil
}

// Decode parses one frame from the front of buf. It returns the frame and
// the number of bytes consumed. ErrTruncated means buf ends before the
// declared frame does; callers streaming from a transport should use
// Decoder instead, which buffers partial input.
func Decode(buf []byte) (Frame, int, error) {
	if len(buf) < HeaderSize {
		return Frame{}, 0, ErrTruncated
	}

	opcode := buf[0]
	length := int(binary.LittleEndian.Uint16(buf[1:3]))
	if length > MaxPayloadSize {
		return Frame{}, 0, fmt.Errorf("%w: declared %d > %d", ErrFrameTooLarge, length, MaxPayloadSize)
	}

	total := HeaderSize + length
	if len(buf) < total {
		return Frame{}, 0, ErrTruncated
	}

	payload := buf[HeaderSize:total]
	want := binary.LittleEndian.Uint16(buf[3:5])
	got := frameCRC(opcode, buf[1:3], payload)
	if want != got {
		return Frame{}, 0, fmt.Errorf("%w: got 0x%04X, expected 0x%04X", ErrChecksumMismatch, got, want)
	}

	out := Frame{Opcode: opcode, Payload: make([]byte, length)}
	copy(out.Payload, payload)
	return out, total, nil
}

// frameCRC hashes opcode + length bytes + payload as one stream.
func frameCRC(opcode byte, lenBytes, payload []byte) uint16 {
	buf := make([]byte, 0, 3+len(payload))
	buf = append(buf, opcode)
	buf = append(buf, lenBytes...)
	buf = append(buf, payload...)
	return CRC16(buf)
}

// Decoder reassembles frames from a byte stream arriving in arbitrary
// chunk sizes. Feed appends raw bytes; Next yields one decoded frame per
// call once enough bytes are buffered, and nil while a frame is still
// incomplete. Decoder never blocks.
type Decoder struct {
	buf []byte
}

// Feed appends raw transport bytes to the decoder's buffer.
func (d *Decoder) Feed(p []byte) {
	d.buf = append(d.buf, p...)
}

// Next returns the next complete frame, or nil if more bytes are needed.
// A checksum or length failure poisons the buffered data and is returned
// as an error; the caller must treat the stream as corrupt (there is no
// reliable way to resynchronise an unsynchronised serial stream).
func (d *Decoder) Next() (*Frame, error) {
	frame, n, err := Decode(d.buf)
	switch {
	case err == nil:
		d.buf = d.buf[n:]
		return &frame, nil
	case errors.Is(err, ErrTruncated):
		return nil, nil
	default:
		return nil, err
	}
}

// Buffered returns the number of bytes awaiting a complete frame.
func (d *Decoder) Buffered() int {
	return len(d.buf)
}

// Reset discards any buffered partial frame.
func (d *Decoder) Reset() {
	d.buf = d.buf[:0]
}
