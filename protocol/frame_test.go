package protocol

import (
	"bytes"
	"errors"
	"testing"
)

// TestEncodePinnedVector pins the exact wire bytes of an Identify request.
// Captured from device traffic; if this test breaks, the codec no longer
// speaks to real hardware.
func TestEncodePinnedVector(t *testing.T) {
	frame, err := Encode(OpIdentify, BuildIdentifyRequest())
	if err != nil {
		t.Fatalf("Encode() error: %v", err)
	}

	want := []byte{0xA0, 0x02, 0x00, 0xB5, 0xA5, 0x01, 0x04}
	if !bytes.Equal(frame, want) {
		t.Errorf("Encode() = % X, want % X", frame, want)
	}
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	tests := []struct {
		name    string
		opcode  byte
		payload []byte
	}{
		{"empty payload", OpQueryStatus, nil},
		{"small payload", OpIdentify, []byte{0x01, 0x04}},
		{"segment payload", OpTransferSegment, bytes.Repeat([]byte{0xAB}, DefaultSegmentSize)},
		{"max payload", OpTransferSegment, bytes.Repeat([]byte{0x5C}, MaxPayloadSize)},
		{"response opcode", OpIdentify | ResponseBit, []byte{StatusAck, 0x01}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			wire, err := Encode(tt.opcode, tt.payload)
			if err != nil {
				t.Fatalf("Encode() error: %v", err)
			}

			frame, n, err := Decode(wire)
			if err != nil {
				t.Fatalf("Decode() error: %v", err)
			}
			if n != len(wire) {
				t.Errorf("Decode() consumed %d bytes, want %d", n, len(wire))
			}
			if frame.Opcode != tt.opcode {
				t.Errorf("opcode = 0x%02X, want 0x%02X", frame.Opcode, tt.opcode)
			}
			if !bytes.Equal(frame.Payload, tt.payload) && len(tt.payload) > 0 {
				t.Errorf("payload mismatch")
			}
		})
	}
}

func TestEncodeTooLarge(t *testing.T) {
	_, err := Encode(OpTransferSegment, make([]byte, MaxPayloadSize+1))
	if !errors.Is(err, ErrFrameTooLarge) {
		t.Errorf("Encode() error = %v, want ErrFrameTooLarge", err)
	}
}

func TestDecodeTruncated(t *testing.T) {
	wire, err := Encode(OpListInstalled, []byte{0x01, 0x02, 0x03})
	if err != nil {
		t.Fatalf("Encode() error: %v", err)
	}

	for cut := 0; cut < len(wire); cut++ {
		if _, _, err := Decode(wire[:cut]); !errors.Is(err, ErrTruncated) {
			t.Errorf("Decode(%d bytes) error = %v, want ErrTruncated", cut, err)
		}
	}
}

func TestDecodeDeclaredLengthTooLarge(t *testing.T) {
	// Header declaring a payload beyond MaxPayloadSize must be refused
	// before any payload bytes are awaited.
	hdr := []byte{OpTransferSegment, 0xFF, 0xFF, 0x00, 0x00}
	if _, _, err := Decode(hdr); !errors.Is(err, ErrFrameTooLarge) {
		t.Errorf("Decode() error = %v, want ErrFrameTooLarge", err)
	}
}

// TestChecksumSensitivity flips every bit of an encoded frame's payload and
// expects the decoder to notice each time.
func TestChecksumSensitivity(t *testing.T) {
	payload := []byte{0x10, 0x20, 0x30, 0x40, 0x55}
	wire, err := Encode(OpTransferSegment, payload)
	if err != nil {
		t.Fatalf("Encode() error: %v", err)
	}

	for i := HeaderSize; i < len(wire); i++ {
		for bit := 0; bit < 8; bit++ {
			corrupted := make([]byte, len(wire))
			copy(corrupted, wire)
			corrupted[i] ^= 1 << bit

			if _, _, err := Decode(corrupted); !errors.Is(err, ErrChecksumMismatch) {
				t.Errorf("flip byte %d bit %d: error = %v, want ErrChecksumMismatch", i, bit, err)
			}
		}
	}
}

// TestDecoderArbitraryChunks feeds the encoded bytes of several frames to
// the streaming decoder in chunk sizes from 1 byte up, and expects the
// same frames out regardless of how the stream was sliced.
func TestDecoderArbitraryChunks(t *testing.T) {
	frames := []Frame{
		{Opcode: OpIdentify | ResponseBit, Payload: []byte{StatusAck, 0x01, 0x04}},
		{Opcode: OpQueryStatus | ResponseBit, Payload: []byte{StatusAck, TransferStateIdle, 0x00, 0x00}},
		{Opcode: OpTransferSegment | ResponseBit, Payload: []byte{StatusAck}},
	}

	var stream []byte
	for _, f := range frames {
		wire, err := Encode(f.Opcode, f.Payload)
		if err != nil {
			t.Fatalf("Encode() error: %v", err)
		}
		stream = append(stream, wire...)
	}

	for chunkSize := 1; chunkSize <= len(stream); chunkSize++ {
		var dec Decoder
		var got []Frame

		for off := 0; off < len(stream); off += chunkSize {
			end := off + chunkSize
			if end > len(stream) {
				end = len(stream)
			}
			dec.Feed(stream[off:end])

			for {
				f, err := dec.Next()
				if err != nil {
					t.Fatalf("chunk size %d: Next() error: %v", chunkSize, err)
				}
				if f == nil {
					break
				}
				got = append(got, *f)
			}
		}

		if len(got) != len(frames) {
			t.Fatalf("chunk size %d: decoded %d frames, want %d", chunkSize, len(got), len(frames))
		}
		for i := range frames {
			if got[i].Opcode != frames[i].Opcode || !bytes.Equal(got[i].Payload, frames[i].Payload) {
				t.Errorf("chunk size %d: frame %d mismatch", chunkSize, i)
			}
		}
		if dec.Buffered() != 0 {
			t.Errorf("chunk size %d: %d stray buffered bytes", chunkSize, dec.Buffered())
		}
	}
}

func TestDecoderCorruptStream(t *testing.T) {
	wire, err := Encode(OpIdentify, []byte{0x01, 0x04})
	if err != nil {
		t.Fatalf("Encode() error: %v", err)
	}
	wire[len(wire)-1] ^= 0xFF

	var dec Decoder
	dec.Feed(wire)
	if _, err := dec.Next(); !errors.Is(err, ErrChecksumMismatch) {
		t.Errorf("Next() error = %v, want ErrChecksumMismatch", err)
	}

	dec.Reset()
	if dec.Buffered() != 0 {
		t.Errorf("Reset() left %d buffered bytes", dec.Buffered())
	}
}

func TestResponseHelpers(t *testing.T) {
	f := Frame{Opcode: OpTransferFinalize | ResponseBit}
	if !f.IsResponse() {
		t.Error("IsResponse() = false for response frame")
	}
	if f.RequestOpcode() != OpTransferFinalize {
		t.Errorf("RequestOpcode() = 0x%02X, want 0x%02X", f.RequestOpcode(), OpTransferFinalize)
	}

	req := Frame{Opcode: OpTransferFinalize}
	if req.IsResponse() {
		t.Error("IsResponse() = true for request frame")
	}
}
