package raster

import (
	"errors"
	"fmt"
)

var (
	// ErrBandIndex is returned for band 0.
	ErrBandIndex = errors.New("raster: image bands start at 1")
	// ErrBandNotFound is returned for bands beyond the band count.
	ErrBandNotFound = errors.New("raster: band is not present within image")
	// ErrOverviewLevel is returned for overview level 0.
	ErrOverviewLevel = errors.New("raster: overview levels start at 1")
	// ErrOverviewNotFound is returned when an overview does not exist.
	ErrOverviewNotFound = errors.New("raster: overview does not exist")
	// ErrMaskNotFound is returned for mask I/O on a band without a mask.
	ErrMaskNotFound = errors.New("raster: band mask does not exist")
)

// WindowError reports a window that does not fit the raster.
type WindowError struct {
	XOff, YOff    uint64
	XSize, YSize  uint64
	Width, Height uint64
}

func (e *WindowError) Error() string {
	return fmt.Sprintf("raster: window %dx%d at (%d,%d) exceeds raster of %dx%d",
		e.XSize, e.YSize, e.XOff, e.YOff, e.Width, e.Height)
}

// BufferError reports a caller buffer that cannot hold the window.
type BufferError struct {
	XSize, YSize       uint64
	BufXSize, BufYSize uint64
	Len                int
}

func (e *BufferError) Error() string {
	return fmt.Sprintf("raster: buffer of %d elements (%dx%d) cannot hold a %dx%d window",
		e.Len, e.BufXSize, e.BufYSize, e.XSize, e.YSize)
}
