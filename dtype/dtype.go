package dtype

import (
	"errors"
	"fmt"
)

// DataType is a KEA pixel data type. The numeric values are the codes
// stored in DATATYPE datasets.
type DataType uint8

const (
	Unknown DataType = 0
	Int8    DataType = 1
	Int16   DataType = 2
	Int32   DataType = 3
	Int64   DataType = 4
	Uint8   DataType = 5
	Uint16  DataType = 6
	Uint32  DataType = 7
	Uint64  DataType = 8
	Float32 DataType = 9
	Float64 DataType = 10
)

// ErrUnsupported is returned for values that are not one of the supported
// typed slices or scalars.
var ErrUnsupported = errors.New("dtype: unsupported type")

// Number is the set of Go types a DataType maps onto.
type Number interface {
	~int8 | ~int16 | ~int32 | ~int64 |
		~uint8 | ~uint16 | ~uint32 | ~uint64 |
		~float32 | ~float64
}

var names = [...]string{
	Unknown: "unknown",
	Int8:    "int8",
	Int16:   "int16",
	Int32:   "int32",
	Int64:   "int64",
	Uint8:   "uint8",
	Uint16:  "uint16",
	Uint32:  "uint32",
	Uint64:  "uint64",
	Float32: "float32",
	Float64: "float64",
}

func (d DataType) String() string {
	if int(d) < len(names) {
		return names[d]
	}
	return fmt.Sprintf("datatype(%d)", uint8(d))
}

// Parse returns the DataType with the given name.
func Parse(s string) (DataType, error) {
	for i, n := range names {
		if i > 0 && n == s {
			return DataType(i), nil
		}
	}
	return Unknown, fmt.Errorf("%w: %q", ErrUnsupported, s)
}

// Valid reports whether d is one of the ten pixel types.
func (d DataType) Valid() bool {
	return d >= Int8 && d <= Float64
}

// Size returns the encoded size of one element in bytes, 0 if d is invalid.
func (d DataType) Size() int {
	switch d {
	case Int8, Uint8:
		return 1
	case Int16, Uint16:
		return 2
	case Int32, Uint32, Float32:
		return 4
	case Int64, Uint64, Float64:
		return 8
	default:
		return 0
	}
}

// IsFloat reports whether d is a floating point type.
func (d DataType) IsFloat() bool {
	return d == Float32 || d == Float64
}

// IsSigned reports whether d can hold negative values.
func (d DataType) IsSigned() bool {
	return (d >= Int8 && d <= Int64) || d.IsFloat()
}

// Of returns the DataType matching the element type of a typed slice.
func Of(buf any) (DataType, error) {
	switch buf.(type) {
	case []int8:
		return Int8, nil
	case []int16:
		return Int16, nil
	case []int32:
		return Int32, nil
	case []int64:
		return Int64, nil
	case []uint8:
		return Uint8, nil
	case []uint16:
		return Uint16, nil
	case []uint32:
		return Uint32, nil
	case []uint64:
		return Uint64, nil
	case []float32:
		return Float32, nil
	case []float64:
		return Float64, nil
	default:
		return Unknown, fmt.Errorf("%w: %T", ErrUnsupported, buf)
	}
}

// TypeOf returns the DataType of T.
func TypeOf[T Number]() DataType {
	var zero T
	switch any(zero).(type) {
	case int8:
		return Int8
	case int16:
		return Int16
	case int32:
		return Int32
	case int64:
		return Int64
	case uint8:
		return Uint8
	case uint16:
		return Uint16
	case uint32:
		return Uint32
	case uint64:
		return Uint64
	case float32:
		return Float32
	case float64:
		return Float64
	}
	return Unknown
}

// Make returns a zeroed typed slice of n elements of type d.
func Make(d DataType, n int) (any, error) {
	switch d {
	case Int8:
		return make([]int8, n), nil
	case Int16:
		return make([]int16, n), nil
	case Int32:
		return make([]int32, n), nil
	case Int64:
		return make([]int64, n), nil
	case Uint8:
		return make([]uint8, n), nil
	case Uint16:
		return make([]uint16, n), nil
	case Uint32:
		return make([]uint32, n), nil
	case Uint64:
		return make([]uint64, n), nil
	case Float32:
		return make([]float32, n), nil
	case Float64:
		return make([]float64, n), nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupported, d)
	}
}

// Len returns the length of a typed slice.
func Len(buf any) (int, error) {
	switch b := buf.(type) {
	case []int8:
		return len(b), nil
	case []int16:
		return len(b), nil
	case []int32:
		return len(b), nil
	case []int64:
		return len(b), nil
	case []uint8:
		return len(b), nil
	case []uint16:
		return len(b), nil
	case []uint32:
		return len(b), nil
	case []uint64:
		return len(b), nil
	case []float32:
		return len(b), nil
	case []float64:
		return len(b), nil
	default:
		return 0, fmt.Errorf("%w: %T", ErrUnsupported, buf)
	}
}

// Prefix returns the first n elements of the typed slice buf.
func Prefix(buf any, n int) (any, error) {
	l, err := Len(buf)
	if err != nil {
		return nil, err
	}
	if n < 0 || n > l {
		return nil, fmt.Errorf("dtype: prefix %d of %d elements", n, l)
	}
	switch b := buf.(type) {
	case []int8:
		return b[:n], nil
	case []int16:
		return b[:n], nil
	case []int32:
		return b[:n], nil
	case []int64:
		return b[:n], nil
	case []uint8:
		return b[:n], nil
	case []uint16:
		return b[:n], nil
	case []uint32:
		return b[:n], nil
	case []uint64:
		return b[:n], nil
	case []float32:
		return b[:n], nil
	default:
		return buf.([]float64)[:n], nil
	}
}
