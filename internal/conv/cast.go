package conv

import (
	"errors"
	"fmt"
)

// ErrOverflow is returned when a value does not fit the target type.
var ErrOverflow = errors.New("integer overflow")

// Integer is any built-in integer type.
type Integer interface {
	~int | ~int8 | ~int16 | ~int32 | ~int64 |
		~uint | ~uint8 | ~uint16 | ~uint32 | ~uint64 | ~uintptr
}

// Checked converts v to To, failing with ErrOverflow when the value changes.
func Checked[To, From Integer](v From) (To, error) {
	t := To(v)
	if From(t) != v || (t < 0) != (v < 0) {
		return 0, fmt.Errorf("%w: %d does not fit %T", ErrOverflow, v, t)
	}
	return t, nil
}

// Int converts a size or offset to int.
func Int[From Integer](v From) (int, error) {
	return Checked[int](v)
}

// Uint32 converts v to uint32.
func Uint32[From Integer](v From) (uint32, error) {
	return Checked[uint32](v)
}

// Uint64 converts v to uint64; negative values fail.
func Uint64[From Integer](v From) (uint64, error) {
	return Checked[uint64](v)
}
