// Package dtype defines the ten KEA pixel data types and converts between
// typed Go slices and their packed little-endian encoding.
//
// Conversions follow Go's numeric conversion rules: narrowing integer
// conversions wrap and float to integer conversions truncate toward zero.
package dtype
