package cipher

import "hash/crc32"

// CRC32 computes the IEEE 802.3 CRC32 of b with a zero seed, as required by
// the envelope's integrity chunk.
func CRC32(b []byte) uint32 {
	return crc32.ChecksumIEEE(b)
}
