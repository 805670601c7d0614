package rat

import (
	"cmp"
	"fmt"
	"math"
	"slices"

	"golang.org/x/text/unicode/norm"
)

// Kind is the value type of a field.
type Kind uint8

const (
	Bool Kind = iota + 1
	Int
	Float
	String
)

// Kinds lists the field kinds in storage order.
var Kinds = [...]Kind{Bool, Int, Float, String}

func (k Kind) String() string {
	switch k {
	case Bool:
		return "bool"
	case Int:
		return "int"
	case Float:
		return "float"
	case String:
		return "string"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

// Valid reports whether k is one of the four field kinds.
func (k Kind) Valid() bool { return k >= Bool && k <= String }

// Field describes one registered column.
type Field struct {
	Name  string
	Kind  Kind
	Index uint32 // offset within the columns of Kind
	// Column is the global column number, assigned once at creation.
	Column uint32
	Usage  string
}

// Handle returns the typed address of the field's column.
func (f Field) Handle() FieldHandle {
	return FieldHandle{Kind: f.Kind, Index: f.Index}
}

// FieldHandle addresses the column at Index among the columns of Kind.
type FieldHandle struct {
	Kind  Kind
	Index uint32
}

// FieldSpec describes a field to add with Table.AddFields. Index and Column
// are set once the field is registered.
type FieldSpec struct {
	Name  string
	Kind  Kind
	Usage string
	// Fill backfills existing rows and initialises appended ones. Nil
	// selects the zero value of Kind.
	Fill any

	Index  uint32
	Column uint32
}

// schema is the field registry shared by both table implementations.
type schema struct {
	byName  map[string]Field
	counts  [len(Kinds) + 1]uint32
	columns uint32
}

func newSchema() schema {
	return schema{byName: make(map[string]Field)}
}

func normalizeName(name string) string {
	return norm.NFC.String(name)
}

// reserve returns the next field of kind without registering it.
func (s *schema) reserve(name string, kind Kind, usage string) (Field, error) {
	if !kind.Valid() {
		return Field{}, fmt.Errorf("%w: invalid kind %d for field %q", ErrAttributeTable, kind, name)
	}
	name = normalizeName(name)
	if _, ok := s.byName[name]; ok {
		return Field{}, &DuplicateFieldError{Name: name}
	}
	return Field{Name: name, Kind: kind, Index: s.counts[kind], Column: s.columns, Usage: usage}, nil
}

func (s *schema) register(f Field) {
	s.byName[f.Name] = f
	s.counts[f.Kind] = max(s.counts[f.Kind], f.Index+1)
	s.columns = max(s.columns, f.Column+1)
}

// drop reverts the most recent register of f.
func (s *schema) drop(f Field) {
	delete(s.byName, f.Name)
	s.counts[f.Kind] = f.Index
	s.columns = f.Column
}

func (s *schema) lookup(name string) (Field, error) {
	f, ok := s.byName[normalizeName(name)]
	if !ok {
		return Field{}, &FieldNotFoundError{Name: name}
	}
	return f, nil
}

func (s *schema) byColumn(col uint32) (Field, error) {
	for _, f := range s.byName {
		if f.Column == col {
			return f, nil
		}
	}
	return Field{}, &ColumnNotFoundError{Column: col}
}

// fields returns every field ordered by global column number.
func (s *schema) fields() []Field {
	out := make([]Field, 0, len(s.byName))
	for _, f := range s.byName {
		out = append(out, f)
	}
	slices.SortFunc(out, func(a, b Field) int { return cmp.Compare(a.Column, b.Column) })
	return out
}

// ofKind returns the fields of kind ordered by per-kind index.
func (s *schema) ofKind(kind Kind) []Field {
	var out []Field
	for _, f := range s.byName {
		if f.Kind == kind {
			out = append(out, f)
		}
	}
	slices.SortFunc(out, func(a, b Field) int { return cmp.Compare(a.Index, b.Index) })
	return out
}

func (s *schema) count(kind Kind) uint32 {
	if !kind.Valid() {
		return 0
	}
	return s.counts[kind]
}

// fillValue converts a caller fill to the Go type of kind: bool, int64,
// float64 or string.
func fillValue(name string, kind Kind, v any) (any, error) {
	if v == nil {
		return zeroValue(kind), nil
	}
	bad := fmt.Errorf("%w: fill %v (%T) does not fit %s field %q", ErrAttributeTable, v, v, kind, name)
	switch kind {
	case Bool:
		b, ok := v.(bool)
		if !ok {
			return nil, bad
		}
		return b, nil
	case Int:
		switch x := v.(type) {
		case int:
			return int64(x), nil
		case int8:
			return int64(x), nil
		case int16:
			return int64(x), nil
		case int32:
			return int64(x), nil
		case int64:
			return x, nil
		case uint:
			if uint64(x) > math.MaxInt64 {
				return nil, bad
			}
			return int64(x), nil
		case uint8:
			return int64(x), nil
		case uint16:
			return int64(x), nil
		case uint32:
			return int64(x), nil
		case uint64:
			if x > math.MaxInt64 {
				return nil, bad
			}
			return int64(x), nil
		}
	case Float:
		switch x := v.(type) {
		case float32:
			return float64(x), nil
		case float64:
			return x, nil
		case int:
			return float64(x), nil
		case int8:
			return float64(x), nil
		case int16:
			return float64(x), nil
		case int32:
			return float64(x), nil
		case int64:
			return float64(x), nil
		case uint:
			return float64(x), nil
		case uint8:
			return float64(x), nil
		case uint16:
			return float64(x), nil
		case uint32:
			return float64(x), nil
		case uint64:
			return float64(x), nil
		}
	case String:
		if s, ok := v.(string); ok {
			return s, nil
		}
	}
	return nil, bad
}

func zeroValue(kind Kind) any {
	switch kind {
	case Bool:
		return false
	case Int:
		return int64(0)
	case Float:
		return float64(0)
	default:
		return ""
	}
}
