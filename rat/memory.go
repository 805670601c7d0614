package rat

import (
	"context"
	"slices"
	"sync"
)

// InMemoryTable is a Table held entirely in memory. It is safe for
// concurrent use.
type InMemoryTable struct {
	table
	cols memColumns
}

var _ Table = (*InMemoryTable)(nil)

// NewInMemoryTable returns an empty table.
func NewInMemoryTable() *InMemoryTable {
	t := &InMemoryTable{}
	t.mu = &sync.Mutex{}
	t.schema = newSchema()
	t.b = &t.cols
	return t
}

type column[T any] struct {
	values []T
	fill   T
}

// memColumns stores each column as its own slice. neighbours always has one
// entry per row.
type memColumns struct {
	bools      []*column[bool]
	ints       []*column[int64]
	floats     []*column[float64]
	strings    []*column[string]
	neighbours [][]uint64
}

func newColumn[T any](rows int, fill any) *column[T] {
	v := fill.(T)
	return &column[T]{values: slices.Repeat([]T{v}, rows), fill: v}
}

func growColumns[T any](cols []*column[T], rows int) {
	for _, c := range cols {
		for len(c.values) < rows {
			c.values = append(c.values, c.fill)
		}
	}
}

func (m *memColumns) addColumn(_ context.Context, f Field, fill any) error {
	rows := len(m.neighbours)
	switch f.Kind {
	case Bool:
		m.bools = append(m.bools, newColumn[bool](rows, fill))
	case Int:
		m.ints = append(m.ints, newColumn[int64](rows, fill))
	case Float:
		m.floats = append(m.floats, newColumn[float64](rows, fill))
	case String:
		m.strings = append(m.strings, newColumn[string](rows, fill))
	}
	return nil
}

func (m *memColumns) addRows(_ context.Context, rows uint64) error {
	n := int(rows)
	growColumns(m.bools, n)
	growColumns(m.ints, n)
	growColumns(m.floats, n)
	growColumns(m.strings, n)
	m.neighbours = append(m.neighbours, make([][]uint64, n-len(m.neighbours))...)
	return nil
}

func copyOut[T any](cols []*column[T], h FieldHandle, start uint64, buf any) {
	copy(buf.([]T), cols[h.Index].values[start:])
}

func copyIn[T any](cols []*column[T], h FieldHandle, start uint64, buf any) {
	copy(cols[h.Index].values[start:], buf.([]T))
}

func (m *memColumns) read(_ context.Context, h FieldHandle, start uint64, buf any) error {
	switch h.Kind {
	case Bool:
		copyOut(m.bools, h, start, buf)
	case Int:
		copyOut(m.ints, h, start, buf)
	case Float:
		copyOut(m.floats, h, start, buf)
	case String:
		copyOut(m.strings, h, start, buf)
	}
	return nil
}

func (m *memColumns) write(_ context.Context, h FieldHandle, start uint64, buf any) error {
	switch h.Kind {
	case Bool:
		copyIn(m.bools, h, start, buf)
	case Int:
		copyIn(m.ints, h, start, buf)
	case Float:
		copyIn(m.floats, h, start, buf)
	case String:
		copyIn(m.strings, h, start, buf)
	}
	return nil
}

func (m *memColumns) readNeighbours(_ context.Context, start, length uint64) ([][]uint64, error) {
	out := make([][]uint64, length)
	for i := range out {
		out[i] = append([]uint64{}, m.neighbours[start+uint64(i)]...)
	}
	return out, nil
}

func (m *memColumns) writeNeighbours(_ context.Context, start uint64, data [][]uint64) error {
	for i, set := range data {
		m.neighbours[start+uint64(i)] = slices.Clone(set)
	}
	return nil
}

func (m *memColumns) fill(h FieldHandle) any {
	switch h.Kind {
	case Bool:
		return m.bools[h.Index].fill
	case Int:
		return m.ints[h.Index].fill
	case Float:
		return m.floats[h.Index].fill
	default:
		return m.strings[h.Index].fill
	}
}

func (m *memColumns) refresh(context.Context) error { return nil }
