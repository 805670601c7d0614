package kea

import (
	"errors"
	"fmt"

	"github.com/hupe1980/kea/raster"
	"github.com/hupe1980/kea/store"
)

var (
	// ErrNotFound is returned when a dataset, group or metadata item does not exist.
	ErrNotFound = errors.New("not found")
	// ErrReadOnly is returned for mutations of an image opened read-only.
	ErrReadOnly = errors.New("image is read-only")
	// ErrClosed is returned for operations on a closed image.
	ErrClosed = errors.New("image is closed")
	// ErrNotKEA is returned by Open when the header does not identify a KEA image.
	ErrNotKEA = errors.New("not a KEA image")
	// ErrNoDataUndefined is returned when reading a no-data value that is not set.
	ErrNoDataUndefined = errors.New("no data value is not defined")
	// ErrAborted is returned when a progress callback stops an operation.
	ErrAborted = errors.New("operation aborted")
	// ErrInvalidBand is returned for band 0 and bands beyond the band count.
	ErrInvalidBand = errors.New("invalid band")
)

// ErrInvalidSize indicates an image or band extent that cannot be created.
type ErrInvalidSize struct {
	XSize uint64
	YSize uint64
	cause error
}

func (e *ErrInvalidSize) Error() string {
	return fmt.Sprintf("invalid image size: %dx%d", e.XSize, e.YSize)
}

func (e *ErrInvalidSize) Unwrap() error { return e.cause }

// ErrSizeMismatch indicates two bands whose extents differ.
//
// The original underlying error (if any) can be accessed via errors.Unwrap.
type ErrSizeMismatch struct {
	Expected [2]uint64
	Actual   [2]uint64
	cause    error
}

func (e *ErrSizeMismatch) Error() string {
	return fmt.Sprintf("size mismatch: expected %dx%d, got %dx%d",
		e.Expected[0], e.Expected[1], e.Actual[0], e.Actual[1])
}

func (e *ErrSizeMismatch) Unwrap() error { return e.cause }

// ErrHeader indicates a missing or malformed header item.
type ErrHeader struct {
	Item  string
	cause error
}

func (e *ErrHeader) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("header %s: %v", e.Item, e.cause)
	}
	return "header " + e.Item + " is malformed"
}

func (e *ErrHeader) Unwrap() error { return e.cause }

func translateError(err error) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, ErrNotFound) || errors.Is(err, ErrReadOnly) || errors.Is(err, ErrClosed) || errors.Is(err, ErrInvalidBand) {
		return err
	}

	// Not found unification.
	if errors.Is(err, store.ErrNotFound) ||
		errors.Is(err, raster.ErrOverviewNotFound) ||
		errors.Is(err, raster.ErrMaskNotFound) {
		return fmt.Errorf("%w: %w", ErrNotFound, err)
	}

	if errors.Is(err, store.ErrReadOnly) {
		return fmt.Errorf("%w: %w", ErrReadOnly, err)
	}
	if errors.Is(err, store.ErrClosed) {
		return fmt.Errorf("%w: %w", ErrClosed, err)
	}
	if errors.Is(err, raster.ErrBandIndex) || errors.Is(err, raster.ErrBandNotFound) {
		return fmt.Errorf("%w: %w", ErrInvalidBand, err)
	}

	return err
}
