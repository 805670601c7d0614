// Package hash provides the chunk checksum used by the store.
//
// Every chunk frame ends with a CRC32-Castagnoli of its header and payload.
// The table is computed once at init; the standard library uses SSE4.2 or
// the ARM CRC extension when present.
package hash
