package hash

import (
	"encoding/binary"
	"hash/crc32"
)

var crc32cTable = crc32.MakeTable(crc32.Castagnoli)

// Size is the length of an encoded checksum.
const Size = 4

// CRC32C computes the CRC32-Castagnoli checksum of data.
func CRC32C(data []byte) uint32 {
	return crc32.Checksum(data, crc32cTable)
}

// AppendCRC32C appends the little-endian checksum of data to dst.
func AppendCRC32C(dst, data []byte) []byte {
	return binary.LittleEndian.AppendUint32(dst, CRC32C(data))
}

// Split separates a checksummed buffer into payload and stored checksum.
// ok is false when buf is shorter than a checksum.
func Split(buf []byte) (payload []byte, sum uint32, ok bool) {
	if len(buf) < Size {
		return nil, 0, false
	}
	n := len(buf) - Size
	return buf[:n], binary.LittleEndian.Uint32(buf[n:]), true
}
