// Package filter encodes and decodes store chunks.
//
// A frame is
//
//	[uncompressed uint32][compressed uint32][payload][crc32c uint32]
//
// with little-endian integers. compressed == 0 marks a raw payload, which is
// also chosen when compression saves less than 10%. The trailing checksum
// covers the header and payload and is verified by Decode.
package filter
