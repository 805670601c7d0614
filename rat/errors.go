package rat

import (
	"errors"
	"fmt"
)

var (
	// ErrAttributeTable is matched by every schema and range error.
	ErrAttributeTable = errors.New("rat: attribute table error")
	// ErrIO is matched by every error raised by the backing store.
	ErrIO = errors.New("rat: attribute table I/O error")
)

// DuplicateFieldError is returned when a field name is already registered.
type DuplicateFieldError struct {
	Name string
}

func (e *DuplicateFieldError) Error() string {
	return fmt.Sprintf("rat: field %q already exists", e.Name)
}

func (e *DuplicateFieldError) Is(target error) bool { return target == ErrAttributeTable }

// FieldNotFoundError is returned for an unknown field name.
type FieldNotFoundError struct {
	Name string
}

func (e *FieldNotFoundError) Error() string {
	return fmt.Sprintf("rat: field %q does not exist", e.Name)
}

func (e *FieldNotFoundError) Is(target error) bool { return target == ErrAttributeTable }

// ColumnNotFoundError is returned when no field has a global column number.
type ColumnNotFoundError struct {
	Column uint32
}

func (e *ColumnNotFoundError) Error() string {
	return fmt.Sprintf("rat: column %d does not exist", e.Column)
}

func (e *ColumnNotFoundError) Is(target error) bool { return target == ErrAttributeTable }

// OutOfRangeError is returned for rows or per-kind indexes outside the
// table. Index is the first position that does not exist.
type OutOfRangeError struct {
	What  string
	Index uint64
	Size  uint64
}

func (e *OutOfRangeError) Error() string {
	return fmt.Sprintf("rat: requested %s (%d) is not within the table (size %d)", e.What, e.Index, e.Size)
}

func (e *OutOfRangeError) Is(target error) bool { return target == ErrAttributeTable }

// KindMismatchError is returned when a handle or field of one kind is used
// with an accessor of another.
type KindMismatchError struct {
	Field string
	Want  Kind
	Got   Kind
}

func (e *KindMismatchError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("rat: %s accessor used with a %s column", e.Want, e.Got)
	}
	return fmt.Sprintf("rat: field %q is %s, not %s", e.Field, e.Got, e.Want)
}

func (e *KindMismatchError) Is(target error) bool { return target == ErrAttributeTable }

// IOError wraps a failure of the backing store.
type IOError struct {
	Op  string
	Err error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("rat: %s: %v", e.Op, e.Err)
}

func (e *IOError) Unwrap() error { return e.Err }

func (e *IOError) Is(target error) bool { return target == ErrIO }

func ioError(op string, err error) error {
	if err == nil {
		return nil
	}
	var ioe *IOError
	if errors.As(err, &ioe) {
		return err
	}
	return &IOError{Op: op, Err: err}
}
