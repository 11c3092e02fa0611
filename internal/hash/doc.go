// Package hash provides hardware-accelerated checksums for snapshot integrity.
//
// # CRC32-Castagnoli (CRC32C)
//
// Snapshot payloads are checksummed with CRC32C, which is accelerated on x86
// (SSE4.2) and ARM (CRC extension) and detects all burst errors up to 32 bits.
//
// # Usage
//
//	checksum := hash.CRC32C(data)
//
//	crc := hash.UpdateCRC32C(0, bits)
//	crc = hash.UpdateCRC32C(crc, items)
package hash
