package neighbours

import (
	"errors"
	"fmt"
)

// ErrInvalidTile is returned for tiles that are not rectangular or whose
// data does not match the given shape.
var ErrInvalidTile = errors.New("neighbours: invalid tile")

// ErrClosed is returned by AddTile after Close.
var ErrClosed = errors.New("neighbours: accumulator is closed")

// HistogramMismatchError reports a label seen more often than its histogram
// count, or one outside the histogram.
type HistogramMismatchError struct {
	Label int64
	Bins  int
}

func (e *HistogramMismatchError) Error() string {
	if e.Label < 0 || e.Label >= int64(e.Bins) {
		return fmt.Sprintf("neighbours: label %d is outside the histogram (%d bins)", e.Label, e.Bins)
	}
	return fmt.Sprintf("neighbours: label %d occurs more often than its histogram count", e.Label)
}

// IncompleteError lists the labels whose pixels were not all visited before
// Close. Their neighbour sets were never written.
type IncompleteError struct {
	Labels []uint64
}

func (e *IncompleteError) Error() string {
	const show = 8
	if len(e.Labels) > show {
		return fmt.Sprintf("neighbours: %d labels not written: %v ...", len(e.Labels), e.Labels[:show])
	}
	return fmt.Sprintf("neighbours: %d labels not written: %v", len(e.Labels), e.Labels)
}
