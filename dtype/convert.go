package dtype

import (
	"encoding/binary"
	"fmt"
	"math"
)

var le = binary.LittleEndian

// Append appends the encoding of src as type d to dst.
func Append[T Number](dst []byte, d DataType, src []T) ([]byte, error) {
	size := d.Size()
	if size == 0 {
		return nil, fmt.Errorf("%w: %s", ErrUnsupported, d)
	}
	off := len(dst)
	dst = append(dst, make([]byte, len(src)*size)...)
	out := dst[off:]

	switch d {
	case Int8:
		for i, v := range src {
			out[i] = byte(int8(v))
		}
	case Uint8:
		for i, v := range src {
			out[i] = uint8(v)
		}
	case Int16:
		for i, v := range src {
			le.PutUint16(out[2*i:], uint16(int16(v)))
		}
	case Uint16:
		for i, v := range src {
			le.PutUint16(out[2*i:], uint16(v))
		}
	case Int32:
		for i, v := range src {
			le.PutUint32(out[4*i:], uint32(int32(v)))
		}
	case Uint32:
		for i, v := range src {
			le.PutUint32(out[4*i:], uint32(v))
		}
	case Int64:
		for i, v := range src {
			le.PutUint64(out[8*i:], uint64(int64(v)))
		}
	case Uint64:
		for i, v := range src {
			le.PutUint64(out[8*i:], uint64(v))
		}
	case Float32:
		for i, v := range src {
			le.PutUint32(out[4*i:], math.Float32bits(float32(v)))
		}
	case Float64:
		for i, v := range src {
			le.PutUint64(out[8*i:], math.Float64bits(float64(v)))
		}
	}
	return dst, nil
}

// DecodeInto decodes len(dst) elements of type d from data into dst.
func DecodeInto[T Number](dst []T, d DataType, data []byte) error {
	size := d.Size()
	if size == 0 {
		return fmt.Errorf("%w: %s", ErrUnsupported, d)
	}
	if len(data) < len(dst)*size {
		return fmt.Errorf("dtype: short buffer: need %d bytes, have %d", len(dst)*size, len(data))
	}

	switch d {
	case Int8:
		for i := range dst {
			dst[i] = T(int8(data[i]))
		}
	case Uint8:
		for i := range dst {
			dst[i] = T(data[i])
		}
	case Int16:
		for i := range dst {
			dst[i] = T(int16(le.Uint16(data[2*i:])))
		}
	case Uint16:
		for i := range dst {
			dst[i] = T(le.Uint16(data[2*i:]))
		}
	case Int32:
		for i := range dst {
			dst[i] = T(int32(le.Uint32(data[4*i:])))
		}
	case Uint32:
		for i := range dst {
			dst[i] = T(le.Uint32(data[4*i:]))
		}
	case Int64:
		for i := range dst {
			dst[i] = T(int64(le.Uint64(data[8*i:])))
		}
	case Uint64:
		for i := range dst {
			dst[i] = T(le.Uint64(data[8*i:]))
		}
	case Float32:
		for i := range dst {
			dst[i] = T(math.Float32frombits(le.Uint32(data[4*i:])))
		}
	case Float64:
		for i := range dst {
			dst[i] = T(math.Float64frombits(le.Uint64(data[8*i:])))
		}
	}
	return nil
}

// Encode encodes the typed slice buf as type d.
func Encode(d DataType, buf any) ([]byte, error) {
	switch b := buf.(type) {
	case []int8:
		return Append(nil, d, b)
	case []int16:
		return Append(nil, d, b)
	case []int32:
		return Append(nil, d, b)
	case []int64:
		return Append(nil, d, b)
	case []uint8:
		return Append(nil, d, b)
	case []uint16:
		return Append(nil, d, b)
	case []uint32:
		return Append(nil, d, b)
	case []uint64:
		return Append(nil, d, b)
	case []float32:
		return Append(nil, d, b)
	case []float64:
		return Append(nil, d, b)
	default:
		return nil, fmt.Errorf("%w: %T", ErrUnsupported, buf)
	}
}

// Decode decodes elements of type d from data into the typed slice buf,
// filling all of buf.
func Decode(d DataType, data []byte, buf any) error {
	switch b := buf.(type) {
	case []int8:
		return DecodeInto(b, d, data)
	case []int16:
		return DecodeInto(b, d, data)
	case []int32:
		return DecodeInto(b, d, data)
	case []int64:
		return DecodeInto(b, d, data)
	case []uint8:
		return DecodeInto(b, d, data)
	case []uint16:
		return DecodeInto(b, d, data)
	case []uint32:
		return DecodeInto(b, d, data)
	case []uint64:
		return DecodeInto(b, d, data)
	case []float32:
		return DecodeInto(b, d, data)
	case []float64:
		return DecodeInto(b, d, data)
	default:
		return fmt.Errorf("%w: %T", ErrUnsupported, buf)
	}
}

// EncodeValue encodes a single Go scalar (any Go integer or float kind) as
// type d. A nil value encodes as zero.
func EncodeValue(d DataType, v any) ([]byte, error) {
	switch x := v.(type) {
	case nil:
		return Append(nil, d, []uint8{0})
	case int:
		return Append(nil, d, []int64{int64(x)})
	case uint:
		return Append(nil, d, []uint64{uint64(x)})
	case int8:
		return Append(nil, d, []int8{x})
	case int16:
		return Append(nil, d, []int16{x})
	case int32:
		return Append(nil, d, []int32{x})
	case int64:
		return Append(nil, d, []int64{x})
	case uint8:
		return Append(nil, d, []uint8{x})
	case uint16:
		return Append(nil, d, []uint16{x})
	case uint32:
		return Append(nil, d, []uint32{x})
	case uint64:
		return Append(nil, d, []uint64{x})
	case float32:
		return Append(nil, d, []float32{x})
	case float64:
		return Append(nil, d, []float64{x})
	case bool:
		var b uint8
		if x {
			b = 1
		}
		return Append(nil, d, []uint8{b})
	default:
		return nil, fmt.Errorf("%w: %T", ErrUnsupported, v)
	}
}

// ElementFloat64 decodes element i of data (type d) as a float64.
func ElementFloat64(d DataType, data []byte, i int) (float64, error) {
	var out [1]float64
	size := d.Size()
	if size == 0 || len(data) < (i+1)*size {
		return 0, fmt.Errorf("dtype: element %d out of range", i)
	}
	if err := DecodeInto(out[:], d, data[i*size:]); err != nil {
		return 0, err
	}
	return out[0], nil
}

// Convert re-encodes data from type from to type to.
func Convert(to, from DataType, data []byte) ([]byte, error) {
	if to == from {
		return data, nil
	}
	n := 0
	if s := from.Size(); s > 0 {
		n = len(data) / s
	}
	switch {
	case from.IsFloat() || to.IsFloat():
		tmp := make([]float64, n)
		if err := DecodeInto(tmp, from, data); err != nil {
			return nil, err
		}
		return Append(nil, to, tmp)
	case from == Uint64:
		tmp := make([]uint64, n)
		if err := DecodeInto(tmp, from, data); err != nil {
			return nil, err
		}
		return Append(nil, to, tmp)
	default:
		tmp := make([]int64, n)
		if err := DecodeInto(tmp, from, data); err != nil {
			return nil, err
		}
		return Append(nil, to, tmp)
	}
}
