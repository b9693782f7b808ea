package protocol

// Checksum algorithm constants.
const (
	// CRC16Polynomial is the CRC-16-CCITT polynomial (0x1021)
	CRC16Polynomial = 0x1021

	// CRC16InitialValue is the CRC-16 initial value
	CRC16InitialValue = 0xFFFF

	// CRC16HighBitMask is the high bit mask for CRC-16 calculations
	CRC16HighBitMask = 0x8000

	// BitsPerByte is the number of bits per byte
	BitsPerByte = 8
)

// CRC16 computes the CRC-16-CCITT checksum used by the device for both
// frame integrity and package payload digests.
//
// Parameters (pinned by the test vectors in checksum_test.go):
//   - Polynomial: CRC16Polynomial
//   - Initial value: CRC16InitialValue
//   - No final XOR
func CRC16(data []byte) uint16 {
	crc := uint16(CRC16InitialValue)

	for _, b := range data {
		crc ^= uint16(b) << BitsPerByte
		for i := 0; i < BitsPerByte; i++ {
			if crc&CRC16HighBitMask != 0 {
				crc = (crc << 1) ^ CRC16Polynomial
			} else {
				crc = crc << 1
			}
		}
	}

	return crc
}

// LegacySum computes the 8-bit additive checksum (sum all bytes, then
// 2's complement) used by the firmware region container trailer. Older
// than the CRC-16 frame checksum; firmware images still carry it.
func LegacySum(data []byte) byte {
	var sum byte
	for _, b := range data {
		sum += b
	}
	// 2's complement: invert and add 1
	return ^sum + 1
}
