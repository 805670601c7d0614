package store

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/hupe1980/kea/dtype"
	"github.com/hupe1980/kea/internal/manifest"
)

// Class is the element class of a dataset.
type Class uint8

const (
	ClassNumeric Class = iota
	ClassString
	ClassVarLen
	ClassCompound
)

func (c Class) String() string {
	switch c {
	case ClassNumeric:
		return "numeric"
	case ClassString:
		return "string"
	case ClassVarLen:
		return "varlen"
	case ClassCompound:
		return "compound"
	default:
		return fmt.Sprintf("class(%d)", uint8(c))
	}
}

// MemberKind is the type of one compound member.
type MemberKind uint8

const (
	MemberString MemberKind = iota + 1
	MemberUint32
	MemberUint64
	MemberInt64
	MemberFloat64
)

// Member is a named compound member.
type Member struct {
	Name string
	Kind MemberKind
}

// Datatype describes the elements of a dataset.
type Datatype struct {
	Class   Class
	Numeric dtype.DataType
	Members []Member
}

// Numeric returns the datatype of numeric elements of type d.
func Numeric(d dtype.DataType) Datatype {
	return Datatype{Class: ClassNumeric, Numeric: d}
}

// Compound returns a compound datatype with the given members.
func Compound(members ...Member) Datatype {
	return Datatype{Class: ClassCompound, Members: members}
}

var (
	// String holds one variable-length UTF-8 string per element.
	String = Datatype{Class: ClassString}
	// VarLen holds one variable-length []uint64 per element.
	VarLen = Datatype{Class: ClassVarLen}
)

// Record is one compound element. Values are string, uint32, uint64, int64
// or float64 according to the member kinds.
type Record []any

func (t Datatype) String() string {
	if t.Class == ClassNumeric {
		return t.Numeric.String()
	}
	return t.Class.String()
}

// fixed reports whether elements are stored as packed fixed-size values.
func (t Datatype) fixed() bool { return t.Class == ClassNumeric }

func (t Datatype) validate() error {
	switch t.Class {
	case ClassNumeric:
		if !t.Numeric.Valid() {
			return fmt.Errorf("%w: invalid numeric type %d", ErrTypeMismatch, t.Numeric)
		}
	case ClassString, ClassVarLen:
	case ClassCompound:
		if len(t.Members) == 0 {
			return fmt.Errorf("%w: compound type without members", ErrTypeMismatch)
		}
		for _, m := range t.Members {
			if m.Kind < MemberString || m.Kind > MemberFloat64 {
				return fmt.Errorf("%w: member %q has invalid kind %d", ErrTypeMismatch, m.Name, m.Kind)
			}
		}
	default:
		return fmt.Errorf("%w: invalid class %d", ErrTypeMismatch, t.Class)
	}
	return nil
}

func (t Datatype) toManifest() manifest.Type {
	mt := manifest.Type{Class: uint8(t.Class), Numeric: uint8(t.Numeric)}
	for _, m := range t.Members {
		mt.Members = append(mt.Members, manifest.Member{Name: m.Name, Kind: uint8(m.Kind)})
	}
	return mt
}

func datatypeFromManifest(mt manifest.Type) Datatype {
	t := Datatype{Class: Class(mt.Class), Numeric: dtype.DataType(mt.Numeric)}
	for _, m := range mt.Members {
		t.Members = append(t.Members, Member{Name: m.Name, Kind: MemberKind(m.Kind)})
	}
	return t
}

// encodeFill returns the element encoding of a fill value. A nil value
// yields the zero element.
func (t Datatype) encodeFill(v any) ([]byte, error) {
	switch t.Class {
	case ClassNumeric:
		return dtype.EncodeValue(t.Numeric, v)
	case ClassString:
		if v == nil {
			return []byte{}, nil
		}
		s, ok := v.(string)
		if !ok {
			return nil, fmt.Errorf("%w: string fill %T", ErrTypeMismatch, v)
		}
		return []byte(s), nil
	case ClassVarLen:
		if v == nil {
			return []byte{}, nil
		}
		seq, ok := v.([]uint64)
		if !ok {
			return nil, fmt.Errorf("%w: varlen fill %T", ErrTypeMismatch, v)
		}
		return encodeVarLen(seq), nil
	case ClassCompound:
		if v == nil {
			v = t.zeroRecord()
		}
		r, ok := v.(Record)
		if !ok {
			return nil, fmt.Errorf("%w: compound fill %T", ErrTypeMismatch, v)
		}
		return t.encodeRecord(r)
	}
	return nil, fmt.Errorf("%w: class %s", ErrTypeMismatch, t.Class)
}

// decodeFill is the inverse of encodeFill. Numeric fills decode to int64,
// uint64 or float64.
func (t Datatype) decodeFill(b []byte) (any, error) {
	switch t.Class {
	case ClassNumeric:
		switch {
		case t.Numeric.IsFloat():
			out := make([]float64, 1)
			err := dtype.DecodeInto(out, t.Numeric, b)
			return out[0], err
		case t.Numeric.IsSigned():
			out := make([]int64, 1)
			err := dtype.DecodeInto(out, t.Numeric, b)
			return out[0], err
		default:
			out := make([]uint64, 1)
			err := dtype.DecodeInto(out, t.Numeric, b)
			return out[0], err
		}
	case ClassString:
		return string(b), nil
	case ClassVarLen:
		return decodeVarLen(b)
	case ClassCompound:
		return t.decodeRecord(b)
	}
	return nil, fmt.Errorf("%w: class %s", ErrTypeMismatch, t.Class)
}

func (t Datatype) zeroRecord() Record {
	r := make(Record, len(t.Members))
	for i, m := range t.Members {
		switch m.Kind {
		case MemberString:
			r[i] = ""
		case MemberUint32:
			r[i] = uint32(0)
		case MemberUint64:
			r[i] = uint64(0)
		case MemberInt64:
			r[i] = int64(0)
		case MemberFloat64:
			r[i] = float64(0)
		}
	}
	return r
}

func encodeVarLen(seq []uint64) []byte {
	out := make([]byte, 0, len(seq)*2)
	for _, v := range seq {
		out = binary.AppendUvarint(out, v)
	}
	return out
}

func decodeVarLen(b []byte) ([]uint64, error) {
	seq := make([]uint64, 0, len(b))
	for len(b) > 0 {
		v, n := binary.Uvarint(b)
		if n <= 0 {
			return nil, fmt.Errorf("store: corrupt varlen element")
		}
		seq = append(seq, v)
		b = b[n:]
	}
	return seq, nil
}

func (t Datatype) encodeRecord(r Record) ([]byte, error) {
	if len(r) != len(t.Members) {
		return nil, fmt.Errorf("%w: record has %d values, type has %d members", ErrTypeMismatch, len(r), len(t.Members))
	}
	var out []byte
	for i, m := range t.Members {
		v := r[i]
		switch m.Kind {
		case MemberString:
			s, ok := v.(string)
			if !ok {
				return nil, memberError(m, v)
			}
			out = binary.AppendUvarint(out, uint64(len(s)))
			out = append(out, s...)
		case MemberUint32:
			u, ok := asUint64(v)
			if !ok || u > math.MaxUint32 {
				return nil, memberError(m, v)
			}
			out = binary.LittleEndian.AppendUint32(out, uint32(u))
		case MemberUint64:
			u, ok := asUint64(v)
			if !ok {
				return nil, memberError(m, v)
			}
			out = binary.LittleEndian.AppendUint64(out, u)
		case MemberInt64:
			n, ok := asInt64(v)
			if !ok {
				return nil, memberError(m, v)
			}
			out = binary.LittleEndian.AppendUint64(out, uint64(n))
		case MemberFloat64:
			f, ok := v.(float64)
			if !ok {
				return nil, memberError(m, v)
			}
			out = binary.LittleEndian.AppendUint64(out, math.Float64bits(f))
		}
	}
	return out, nil
}

func (t Datatype) decodeRecord(b []byte) (Record, error) {
	r := make(Record, len(t.Members))
	for i, m := range t.Members {
		switch m.Kind {
		case MemberString:
			n, k := binary.Uvarint(b)
			if k <= 0 || uint64(len(b)-k) < n {
				return nil, fmt.Errorf("store: corrupt compound member %q", m.Name)
			}
			r[i] = string(b[k : k+int(n)])
			b = b[k+int(n):]
		case MemberUint32:
			if len(b) < 4 {
				return nil, fmt.Errorf("store: corrupt compound member %q", m.Name)
			}
			r[i] = binary.LittleEndian.Uint32(b)
			b = b[4:]
		case MemberUint64, MemberInt64, MemberFloat64:
			if len(b) < 8 {
				return nil, fmt.Errorf("store: corrupt compound member %q", m.Name)
			}
			u := binary.LittleEndian.Uint64(b)
			switch m.Kind {
			case MemberUint64:
				r[i] = u
			case MemberInt64:
				r[i] = int64(u)
			default:
				r[i] = math.Float64frombits(u)
			}
			b = b[8:]
		}
	}
	return r, nil
}

func memberError(m Member, v any) error {
	return fmt.Errorf("%w: member %q cannot hold %T", ErrTypeMismatch, m.Name, v)
}

func asUint64(v any) (uint64, bool) {
	switch x := v.(type) {
	case uint:
		return uint64(x), true
	case uint8:
		return uint64(x), true
	case uint16:
		return uint64(x), true
	case uint32:
		return uint64(x), true
	case uint64:
		return x, true
	case int:
		return uint64(x), x >= 0
	case int32:
		return uint64(x), x >= 0
	case int64:
		return uint64(x), x >= 0
	}
	return 0, false
}

func asInt64(v any) (int64, bool) {
	switch x := v.(type) {
	case int:
		return int64(x), true
	case int8:
		return int64(x), true
	case int16:
		return int64(x), true
	case int32:
		return int64(x), true
	case int64:
		return x, true
	case uint8:
		return int64(x), true
	case uint16:
		return int64(x), true
	case uint32:
		return int64(x), true
	case uint64:
		return int64(x), x <= math.MaxInt64
	}
	return 0, false
}
