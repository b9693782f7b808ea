package protocol

// Host protocol version advertised during the handshake. Devices with a
// different major version are refused.
const (
	HostProtocolMajor = 1
	HostProtocolMinor = 4
)

// Frame layout constants. Every frame on the wire is:
//
//	[OPCODE(1)][LEN(2, LE)][CRC(2, LE)][PAYLOAD...]
//
// The CRC is computed over OPCODE, LEN and PAYLOAD (see checksum.go).
const (
	// HeaderSize is the fixed frame header size in bytes.
	HeaderSize = 5

	// MaxPayloadSize bounds the declared payload length of a single frame.
	// Captured traffic never shows frames above 2 KiB; 4 KiB leaves headroom
	// without letting a corrupt length field allocate absurd buffers.
	MaxPayloadSize = 4096
)

// ResponseBit is OR-ed into the request opcode by the device when it
// answers. A response to OpIdentify arrives as OpIdentify|ResponseBit.
const ResponseBit = 0x40

// Request opcodes, pinned from captured device traffic. These values are a
// compatibility contract: changing one breaks every shipped watch.
const (
	// OpIdentify carries the host protocol version and asks the device for
	// its identity block.
	OpIdentify = 0xA0

	// OpQueryStatus asks for the device-side transfer engine state.
	OpQueryStatus = 0xA2

	// OpListInstalled asks for the installed Connect IQ app table.
	OpListInstalled = 0xA4

	// OpTransferBegin announces an incoming package: kind, size and digest.
	OpTransferBegin = 0xB0

	// OpTransferSegment carries one package segment.
	OpTransferSegment = 0xB1

	// OpTransferFinalize commits a completed transfer on the device.
	OpTransferFinalize = 0xB2
)

// OpcodeNames maps opcodes to human-readable names for logging.
var OpcodeNames = map[byte]string{
	OpIdentify:         "IDENTIFY",
	OpQueryStatus:      "QUERY_STATUS",
	OpListInstalled:    "LIST_INSTALLED",
	OpTransferBegin:    "TRANSFER_BEGIN",
	OpTransferSegment:  "TRANSFER_SEGMENT",
	OpTransferFinalize: "TRANSFER_FINALIZE",
}

// Device status codes. The first payload byte of every response frame.
const (
	// StatusAck indicates the command was accepted and executed.
	StatusAck = 0x00

	// StatusErrGeneral is the device's catch-all failure code.
	StatusErrGeneral = 0x01

	// StatusErrBadRequest indicates a malformed request payload.
	StatusErrBadRequest = 0x02

	// StatusErrChecksum indicates the device saw a digest mismatch.
	StatusErrChecksum = 0x03

	// StatusErrSegmentOrder indicates a segment arrived out of order.
	StatusErrSegmentOrder = 0x04

	// StatusErrIncompatible indicates the package does not target this unit.
	StatusErrIncompatible = 0x05

	// StatusErrStorageFull indicates the device has no room for the package.
	StatusErrStorageFull = 0x06

	// StatusErrBusy indicates a transfer or update is already in progress.
	StatusErrBusy = 0x07

	// StatusErrUnsupported indicates the opcode is unknown to this firmware.
	StatusErrUnsupported = 0x08
)

// StatusNames maps device status codes to human-readable names.
var StatusNames = map[byte]string{
	StatusAck:             "ACK",
	StatusErrGeneral:      "ERR_GENERAL",
	StatusErrBadRequest:   "ERR_BAD_REQUEST",
	StatusErrChecksum:     "ERR_CHECKSUM",
	StatusErrSegmentOrder: "ERR_SEGMENT_ORDER",
	StatusErrIncompatible: "ERR_INCOMPATIBLE",
	StatusErrStorageFull:  "ERR_STORAGE_FULL",
	StatusErrBusy:         "ERR_BUSY",
	StatusErrUnsupported:  "ERR_UNSUPPORTED",
}

// Transfer engine states reported by QueryStatus.
const (
	// TransferStateIdle means no transfer is open on the device.
	TransferStateIdle = 0x00

	// TransferStateReceiving means a transfer is open and awaiting segments.
	TransferStateReceiving = 0x01

	// TransferStateCommitting means a finalize is being applied to storage.
	TransferStateCommitting = 0x02
)

// DefaultSegmentSize is the package segment size used for pushes. Pinned
// from captured traffic: the official client never sends more than 512
// payload bytes per TransferSegment frame.
const DefaultSegmentSize = 512
