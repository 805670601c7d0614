// Package conv provides checked integer conversions.
//
// Dataset extents, chunk indexes and header values are stored as fixed-width
// unsigned integers but sized against int slices in memory. Conversions of
// values read from a container go through Checked so that a corrupt or
// oversized header fails with ErrOverflow instead of wrapping.
//
// For conversions that are provably safe by construction (loop indices,
// bounded counters), use direct type casts.
package conv
