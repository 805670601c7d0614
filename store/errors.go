package store

import (
	"errors"

	"github.com/hupe1980/kea/internal/filter"
)

var (
	// ErrNotFound is returned when an object or attribute does not exist.
	ErrNotFound = errors.New("store: object not found")
	// ErrExists is returned when creating an object that already exists.
	ErrExists = errors.New("store: object already exists")
	// ErrNotDataset is returned when a dataset operation names a group.
	ErrNotDataset = errors.New("store: object is not a dataset")
	// ErrNotGroup is returned when a group operation names a dataset.
	ErrNotGroup = errors.New("store: object is not a group")
	// ErrOutOfBounds is returned for selections outside a dataset's extent
	// and for extensions beyond its maximum dimensions.
	ErrOutOfBounds = errors.New("store: selection out of bounds")
	// ErrTypeMismatch is returned when data does not match the element type.
	ErrTypeMismatch = errors.New("store: type mismatch")
	// ErrReadOnly is returned for writes to a file opened read-only.
	ErrReadOnly = errors.New("store: file is read-only")
	// ErrClosed is returned for operations on a closed file.
	ErrClosed = errors.New("store: file is closed")
	// ErrInvalidPath is returned for malformed object paths.
	ErrInvalidPath = errors.New("store: invalid path")
)

// ChecksumMismatchError reports a corrupt chunk blob.
type ChecksumMismatchError = filter.ChecksumMismatchError
