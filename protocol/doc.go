// Package protocol implements the Garmin USB-serial device protocol:
// frame codec, opcode and status tables, checksums, and the payload
// layouts of each command.
//
// # Protocol Overview
//
// There is no public specification for this protocol; every constant in
// this package is pinned from captured traffic between a device and the
// official desktop client, and covered by fixed byte vectors in the tests.
// Treat the values as a compatibility contract, not an implementation
// choice.
//
// Every message is a frame:
//
//	[OPCODE(1)][LEN(2, LE)][CRC(2, LE)][PAYLOAD...]
//
// The CRC is CRC-16-CCITT over OPCODE, LEN and PAYLOAD. A device response
// echoes the request opcode with ResponseBit set, and its payload always
// begins with a one-byte status code (StatusAck on success).
//
// The protocol has no request-correlation identifier: correlation is
// purely positional, which is why the session layer allows exactly one
// in-flight exchange per handle.
//
// # Frame Codec
//
// Encode and Decode convert between (opcode, payload) and wire bytes.
// Decoder reassembles frames from a stream arriving in arbitrary chunk
// sizes without ever blocking:
//
//	var dec protocol.Decoder
//	dec.Feed(chunk)
//	for {
//	    f, err := dec.Next()
//	    if err != nil || f == nil {
//	        break
//	    }
//	    handle(f)
//	}
package protocol
