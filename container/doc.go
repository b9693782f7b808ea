// Package container decodes and encodes the three binary package formats
// exchanged with a device: Connect IQ application binaries (PRG),
// application settings blobs (SET) and firmware region images.
//
// # Layout
//
// All three kinds share one reverse-engineered layout:
//
//	[MAGIC(4)][VERSION(1)][NAME str8][PKG_VERSION(4, LE)]
//	[PART_COUNT(1)][PART_NUMBER str8 ...]
//	[PAYLOAD_LEN(4, LE)][PAYLOAD...][TRAILER]
//
// where str8 is a uint8 length followed by that many bytes. The magic
// selects the kind: "CIQP" application, "CIQS" settings, "KpGr" firmware
// region. The trailer is a CRC-16-CCITT (2 bytes, little-endian) for
// application and settings containers and the older one-byte additive
// checksum for firmware regions; it covers every byte before it, magic
// included.
//
// # Guarantees
//
// Parse validates the trailer before reading anything else and never
// repairs malformed input. A parsed Package is immutable, and
// Parse(Serialize(p)) == p for every p that Parse produced (the tests pin
// this round-trip law).
//
//	pkg, err := container.Parse(raw)
//	if err != nil {
//	    return err
//	}
//	fmt.Printf("%s %s v%d (%d bytes)\n", pkg.Kind, pkg.Name, pkg.Version, pkg.Size())
package container
