package rat

import (
	"context"
	"fmt"
	"math"
	"sync"
)

// DefaultChunkSize is the number of rows moved per block by Export, Open and
// Copy when no chunk size is given.
const DefaultChunkSize = 1000

// Table is a raster attribute table. Rows are addressed by feature id (fid),
// which by convention equals the label the row describes.
type Table interface {
	// AddField registers a field and backfills every existing row with fill.
	AddField(ctx context.Context, name string, kind Kind, fill any, usage string) error
	// AddFields adds each spec in order and writes the assigned Index and
	// Column back into it.
	AddFields(ctx context.Context, specs []*FieldSpec) error
	// AddRows appends n rows holding the fill value of every field.
	AddRows(ctx context.Context, n uint64) error

	GetBoolField(ctx context.Context, fid uint64, h FieldHandle) (bool, error)
	GetIntField(ctx context.Context, fid uint64, h FieldHandle) (int64, error)
	GetFloatField(ctx context.Context, fid uint64, h FieldHandle) (float64, error)
	GetStringField(ctx context.Context, fid uint64, h FieldHandle) (string, error)
	SetBoolField(ctx context.Context, fid uint64, h FieldHandle, v bool) error
	SetIntField(ctx context.Context, fid uint64, h FieldHandle, v int64) error
	SetFloatField(ctx context.Context, fid uint64, h FieldHandle, v float64) error
	SetStringField(ctx context.Context, fid uint64, h FieldHandle, v string) error

	GetBoolFieldByName(ctx context.Context, fid uint64, name string) (bool, error)
	GetIntFieldByName(ctx context.Context, fid uint64, name string) (int64, error)
	GetFloatFieldByName(ctx context.Context, fid uint64, name string) (float64, error)
	GetStringFieldByName(ctx context.Context, fid uint64, name string) (string, error)
	SetBoolFieldByName(ctx context.Context, fid uint64, name string, v bool) error
	SetIntFieldByName(ctx context.Context, fid uint64, name string, v int64) error
	SetFloatFieldByName(ctx context.Context, fid uint64, name string, v float64) error
	SetStringFieldByName(ctx context.Context, fid uint64, name string, v string) error

	GetBoolFieldByColumn(ctx context.Context, fid uint64, col uint32) (bool, error)
	GetIntFieldByColumn(ctx context.Context, fid uint64, col uint32) (int64, error)
	GetFloatFieldByColumn(ctx context.Context, fid uint64, col uint32) (float64, error)
	GetStringFieldByColumn(ctx context.Context, fid uint64, col uint32) (string, error)
	SetBoolFieldByColumn(ctx context.Context, fid uint64, col uint32, v bool) error
	SetIntFieldByColumn(ctx context.Context, fid uint64, col uint32, v int64) error
	SetFloatFieldByColumn(ctx context.Context, fid uint64, col uint32, v float64) error
	SetStringFieldByColumn(ctx context.Context, fid uint64, col uint32, v string) error

	// The bulk accessors move length values of one column starting at row
	// start. buf must hold at least length values.
	GetBoolFields(ctx context.Context, start, length uint64, h FieldHandle, buf []bool) error
	GetIntFields(ctx context.Context, start, length uint64, h FieldHandle, buf []int64) error
	GetFloatFields(ctx context.Context, start, length uint64, h FieldHandle, buf []float64) error
	GetStringFields(ctx context.Context, start, length uint64, h FieldHandle, buf []string) error
	SetBoolFields(ctx context.Context, start, length uint64, h FieldHandle, buf []bool) error
	SetIntFields(ctx context.Context, start, length uint64, h FieldHandle, buf []int64) error
	SetFloatFields(ctx context.Context, start, length uint64, h FieldHandle, buf []float64) error
	SetStringFields(ctx context.Context, start, length uint64, h FieldHandle, buf []string) error

	GetNeighbours(ctx context.Context, start, length uint64) ([][]uint64, error)
	SetNeighbours(ctx context.Context, start, length uint64, data [][]uint64) error

	Field(name string) (Field, error)
	FieldByColumn(col uint32) (Field, error)
	Handle(name string) (FieldHandle, error)
	// Fields returns every field ordered by global column number.
	Fields() []Field
	// Size returns the number of rows.
	Size() uint64
	// MaxGlobalColumn returns one more than the largest global column
	// number, the width of a buffer addressed by column.
	MaxGlobalColumn() uint32
	NumFields(kind Kind) uint32
}

// backend stores the rows of a table. Calls are made with the table lock
// held, after the table validated kinds and ranges.
type backend interface {
	// addColumn adds the column of f, already registered, and sets every
	// existing row to fill.
	addColumn(ctx context.Context, f Field, fill any) error
	// addRows grows every column to rows.
	addRows(ctx context.Context, rows uint64) error
	read(ctx context.Context, h FieldHandle, start uint64, buf any) error
	write(ctx context.Context, h FieldHandle, start uint64, buf any) error
	readNeighbours(ctx context.Context, start, length uint64) ([][]uint64, error)
	writeNeighbours(ctx context.Context, start uint64, data [][]uint64) error
	// fill returns the value appended rows receive in column h.
	fill(h FieldHandle) any
	// refresh reloads the schema and row count when the backing storage
	// was changed by another writer.
	refresh(ctx context.Context) error
}

// table implements Table over a backend. mu guards every entry point; a
// ChunkedTable may share it with the owner of the file.
type table struct {
	mu     sync.Locker
	schema schema
	rows   uint64
	b      backend
}

// lock takes mu and refreshes the cached schema. mu is released when the
// refresh fails.
func (t *table) lock(ctx context.Context) error {
	t.mu.Lock()
	if err := t.b.refresh(ctx); err != nil {
		t.mu.Unlock()
		return err
	}
	return nil
}

// lockCached takes mu for a schema query that has no context. A failed
// refresh keeps the cached schema.
func (t *table) lockCached() {
	t.mu.Lock()
	_ = t.b.refresh(context.Background())
}

// filler is implemented by tables that report the row default of a column.
type filler interface {
	fieldFill(h FieldHandle) any
}

func (t *table) fieldFill(h FieldHandle) any {
	t.lockCached()
	defer t.mu.Unlock()
	if !h.Kind.Valid() || h.Index >= t.schema.count(h.Kind) {
		return zeroValue(h.Kind)
	}
	return t.b.fill(h)
}

func (t *table) AddField(ctx context.Context, name string, kind Kind, fill any, usage string) error {
	if err := t.lock(ctx); err != nil {
		return err
	}
	defer t.mu.Unlock()
	_, err := t.addField(ctx, name, kind, fill, usage)
	return err
}

func (t *table) addField(ctx context.Context, name string, kind Kind, fill any, usage string) (Field, error) {
	f, err := t.schema.reserve(name, kind, usage)
	if err != nil {
		return Field{}, err
	}
	v, err := fillValue(f.Name, kind, fill)
	if err != nil {
		return Field{}, err
	}
	t.schema.register(f)
	if err := t.b.addColumn(ctx, f, v); err != nil {
		t.schema.drop(f)
		return Field{}, err
	}
	return f, nil
}

func (t *table) AddFields(ctx context.Context, specs []*FieldSpec) error {
	if err := t.lock(ctx); err != nil {
		return err
	}
	defer t.mu.Unlock()
	for _, spec := range specs {
		f, err := t.addField(ctx, spec.Name, spec.Kind, spec.Fill, spec.Usage)
		if err != nil {
			return err
		}
		spec.Index = f.Index
		spec.Column = f.Column
	}
	return nil
}

func (t *table) AddRows(ctx context.Context, n uint64) error {
	if n == 0 {
		return nil
	}
	if err := t.lock(ctx); err != nil {
		return err
	}
	defer t.mu.Unlock()
	rows := t.rows + n
	if rows < t.rows {
		return &OutOfRangeError{What: "feature", Index: math.MaxUint64, Size: t.rows}
	}
	if err := t.b.addRows(ctx, rows); err != nil {
		return err
	}
	t.rows = rows
	return nil
}

// checkRows validates the row range [start, start+length).
func (t *table) checkRows(start, length uint64) error {
	end := start + length
	if end < start {
		return &OutOfRangeError{What: "feature", Index: math.MaxUint64, Size: t.rows}
	}
	if end > t.rows || (length == 0 && start > t.rows) {
		return &OutOfRangeError{What: "feature", Index: start + max(length, 1) - 1, Size: t.rows}
	}
	return nil
}

func (t *table) checkColumn(kind Kind, h FieldHandle) error {
	if h.Kind != kind {
		return &KindMismatchError{Want: kind, Got: h.Kind}
	}
	if n := t.schema.count(kind); h.Index >= n {
		return &OutOfRangeError{What: kind.String() + " column", Index: uint64(h.Index), Size: uint64(n)}
	}
	return nil
}

func readCells[T any](ctx context.Context, t *table, kind Kind, start, length uint64, h FieldHandle, buf []T) error {
	if err := t.lock(ctx); err != nil {
		return err
	}
	defer t.mu.Unlock()
	if err := t.checkColumn(kind, h); err != nil {
		return err
	}
	if err := t.checkRows(start, length); err != nil {
		return err
	}
	if uint64(len(buf)) < length {
		return fmt.Errorf("%w: buffer holds %d values, %d requested", ErrAttributeTable, len(buf), length)
	}
	if length == 0 {
		return nil
	}
	return t.b.read(ctx, h, start, buf[:length])
}

func writeCells[T any](ctx context.Context, t *table, kind Kind, start, length uint64, h FieldHandle, buf []T) error {
	if err := t.lock(ctx); err != nil {
		return err
	}
	defer t.mu.Unlock()
	if err := t.checkColumn(kind, h); err != nil {
		return err
	}
	if err := t.checkRows(start, length); err != nil {
		return err
	}
	if uint64(len(buf)) < length {
		return fmt.Errorf("%w: buffer holds %d values, %d requested", ErrAttributeTable, len(buf), length)
	}
	if length == 0 {
		return nil
	}
	return t.b.write(ctx, h, start, buf[:length])
}

func getCell[T any](ctx context.Context, t *table, kind Kind, fid uint64, h FieldHandle) (T, error) {
	buf := make([]T, 1)
	err := readCells(ctx, t, kind, fid, 1, h, buf)
	return buf[0], err
}

func setCell[T any](ctx context.Context, t *table, kind Kind, fid uint64, h FieldHandle, v T) error {
	return writeCells(ctx, t, kind, fid, 1, h, []T{v})
}

func (t *table) GetBoolField(ctx context.Context, fid uint64, h FieldHandle) (bool, error) {
	return getCell[bool](ctx, t, Bool, fid, h)
}

func (t *table) GetIntField(ctx context.Context, fid uint64, h FieldHandle) (int64, error) {
	return getCell[int64](ctx, t, Int, fid, h)
}

func (t *table) GetFloatField(ctx context.Context, fid uint64, h FieldHandle) (float64, error) {
	return getCell[float64](ctx, t, Float, fid, h)
}

func (t *table) GetStringField(ctx context.Context, fid uint64, h FieldHandle) (string, error) {
	return getCell[string](ctx, t, String, fid, h)
}

func (t *table) SetBoolField(ctx context.Context, fid uint64, h FieldHandle, v bool) error {
	return setCell(ctx, t, Bool, fid, h, v)
}

func (t *table) SetIntField(ctx context.Context, fid uint64, h FieldHandle, v int64) error {
	return setCell(ctx, t, Int, fid, h, v)
}

func (t *table) SetFloatField(ctx context.Context, fid uint64, h FieldHandle, v float64) error {
	return setCell(ctx, t, Float, fid, h, v)
}

func (t *table) SetStringField(ctx context.Context, fid uint64, h FieldHandle, v string) error {
	return setCell(ctx, t, String, fid, h, v)
}

// resolveName returns the handle of the field called name, which must be of
// the given kind.
func (t *table) resolveName(ctx context.Context, name string, kind Kind) (FieldHandle, error) {
	if err := t.lock(ctx); err != nil {
		return FieldHandle{}, err
	}
	defer t.mu.Unlock()
	f, err := t.schema.lookup(name)
	if err != nil {
		return FieldHandle{}, err
	}
	if f.Kind != kind {
		return FieldHandle{}, &KindMismatchError{Field: f.Name, Want: kind, Got: f.Kind}
	}
	return f.Handle(), nil
}

func (t *table) resolveColumn(ctx context.Context, col uint32, kind Kind) (FieldHandle, error) {
	if err := t.lock(ctx); err != nil {
		return FieldHandle{}, err
	}
	defer t.mu.Unlock()
	f, err := t.schema.byColumn(col)
	if err != nil {
		return FieldHandle{}, err
	}
	if f.Kind != kind {
		return FieldHandle{}, &KindMismatchError{Field: f.Name, Want: kind, Got: f.Kind}
	}
	return f.Handle(), nil
}

func (t *table) GetBoolFieldByName(ctx context.Context, fid uint64, name string) (bool, error) {
	h, err := t.resolveName(ctx, name, Bool)
	if err != nil {
		return false, err
	}
	return t.GetBoolField(ctx, fid, h)
}

func (t *table) GetIntFieldByName(ctx context.Context, fid uint64, name string) (int64, error) {
	h, err := t.resolveName(ctx, name, Int)
	if err != nil {
		return 0, err
	}
	return t.GetIntField(ctx, fid, h)
}

func (t *table) GetFloatFieldByName(ctx context.Context, fid uint64, name string) (float64, error) {
	h, err := t.resolveName(ctx, name, Float)
	if err != nil {
		return 0, err
	}
	return t.GetFloatField(ctx, fid, h)
}

func (t *table) GetStringFieldByName(ctx context.Context, fid uint64, name string) (string, error) {
	h, err := t.resolveName(ctx, name, String)
	if err != nil {
		return "", err
	}
	return t.GetStringField(ctx, fid, h)
}

func (t *table) SetBoolFieldByName(ctx context.Context, fid uint64, name string, v bool) error {
	h, err := t.resolveName(ctx, name, Bool)
	if err != nil {
		return err
	}
	return t.SetBoolField(ctx, fid, h, v)
}

func (t *table) SetIntFieldByName(ctx context.Context, fid uint64, name string, v int64) error {
	h, err := t.resolveName(ctx, name, Int)
	if err != nil {
		return err
	}
	return t.SetIntField(ctx, fid, h, v)
}

func (t *table) SetFloatFieldByName(ctx context.Context, fid uint64, name string, v float64) error {
	h, err := t.resolveName(ctx, name, Float)
	if err != nil {
		return err
	}
	return t.SetFloatField(ctx, fid, h, v)
}

func (t *table) SetStringFieldByName(ctx context.Context, fid uint64, name string, v string) error {
	h, err := t.resolveName(ctx, name, String)
	if err != nil {
		return err
	}
	return t.SetStringField(ctx, fid, h, v)
}

func (t *table) GetBoolFieldByColumn(ctx context.Context, fid uint64, col uint32) (bool, error) {
	h, err := t.resolveColumn(ctx, col, Bool)
	if err != nil {
		return false, err
	}
	return t.GetBoolField(ctx, fid, h)
}

func (t *table) GetIntFieldByColumn(ctx context.Context, fid uint64, col uint32) (int64, error) {
	h, err := t.resolveColumn(ctx, col, Int)
	if err != nil {
		return 0, err
	}
	return t.GetIntField(ctx, fid, h)
}

func (t *table) GetFloatFieldByColumn(ctx context.Context, fid uint64, col uint32) (float64, error) {
	h, err := t.resolveColumn(ctx, col, Float)
	if err != nil {
		return 0, err
	}
	return t.GetFloatField(ctx, fid, h)
}

func (t *table) GetStringFieldByColumn(ctx context.Context, fid uint64, col uint32) (string, error) {
	h, err := t.resolveColumn(ctx, col, String)
	if err != nil {
		return "", err
	}
	return t.GetStringField(ctx, fid, h)
}

func (t *table) SetBoolFieldByColumn(ctx context.Context, fid uint64, col uint32, v bool) error {
	h, err := t.resolveColumn(ctx, col, Bool)
	if err != nil {
		return err
	}
	return t.SetBoolField(ctx, fid, h, v)
}

func (t *table) SetIntFieldByColumn(ctx context.Context, fid uint64, col uint32, v int64) error {
	h, err := t.resolveColumn(ctx, col, Int)
	if err != nil {
		return err
	}
	return t.SetIntField(ctx, fid, h, v)
}

func (t *table) SetFloatFieldByColumn(ctx context.Context, fid uint64, col uint32, v float64) error {
	h, err := t.resolveColumn(ctx, col, Float)
	if err != nil {
		return err
	}
	return t.SetFloatField(ctx, fid, h, v)
}

func (t *table) SetStringFieldByColumn(ctx context.Context, fid uint64, col uint32, v string) error {
	h, err := t.resolveColumn(ctx, col, String)
	if err != nil {
		return err
	}
	return t.SetStringField(ctx, fid, h, v)
}

func (t *table) GetBoolFields(ctx context.Context, start, length uint64, h FieldHandle, buf []bool) error {
	return readCells(ctx, t, Bool, start, length, h, buf)
}

func (t *table) GetIntFields(ctx context.Context, start, length uint64, h FieldHandle, buf []int64) error {
	return readCells(ctx, t, Int, start, length, h, buf)
}

func (t *table) GetFloatFields(ctx context.Context, start, length uint64, h FieldHandle, buf []float64) error {
	return readCells(ctx, t, Float, start, length, h, buf)
}

func (t *table) GetStringFields(ctx context.Context, start, length uint64, h FieldHandle, buf []string) error {
	return readCells(ctx, t, String, start, length, h, buf)
}

func (t *table) SetBoolFields(ctx context.Context, start, length uint64, h FieldHandle, buf []bool) error {
	return writeCells(ctx, t, Bool, start, length, h, buf)
}

func (t *table) SetIntFields(ctx context.Context, start, length uint64, h FieldHandle, buf []int64) error {
	return writeCells(ctx, t, Int, start, length, h, buf)
}

func (t *table) SetFloatFields(ctx context.Context, start, length uint64, h FieldHandle, buf []float64) error {
	return writeCells(ctx, t, Float, start, length, h, buf)
}

func (t *table) SetStringFields(ctx context.Context, start, length uint64, h FieldHandle, buf []string) error {
	return writeCells(ctx, t, String, start, length, h, buf)
}

func (t *table) GetNeighbours(ctx context.Context, start, length uint64) ([][]uint64, error) {
	if err := t.lock(ctx); err != nil {
		return nil, err
	}
	defer t.mu.Unlock()
	if err := t.checkRows(start, length); err != nil {
		return nil, err
	}
	if length == 0 {
		return [][]uint64{}, nil
	}
	return t.b.readNeighbours(ctx, start, length)
}

func (t *table) SetNeighbours(ctx context.Context, start, length uint64, data [][]uint64) error {
	if err := t.lock(ctx); err != nil {
		return err
	}
	defer t.mu.Unlock()
	if err := t.checkRows(start, length); err != nil {
		return err
	}
	if uint64(len(data)) < length {
		return fmt.Errorf("%w: %d neighbour sets given, %d requested", ErrAttributeTable, len(data), length)
	}
	if length == 0 {
		return nil
	}
	return t.b.writeNeighbours(ctx, start, data[:length])
}

func (t *table) Field(name string) (Field, error) {
	t.lockCached()
	defer t.mu.Unlock()
	return t.schema.lookup(name)
}

func (t *table) FieldByColumn(col uint32) (Field, error) {
	t.lockCached()
	defer t.mu.Unlock()
	return t.schema.byColumn(col)
}

func (t *table) Handle(name string) (FieldHandle, error) {
	f, err := t.Field(name)
	if err != nil {
		return FieldHandle{}, err
	}
	return f.Handle(), nil
}

func (t *table) Fields() []Field {
	t.lockCached()
	defer t.mu.Unlock()
	return t.schema.fields()
}

func (t *table) Size() uint64 {
	t.lockCached()
	defer t.mu.Unlock()
	return t.rows
}

func (t *table) MaxGlobalColumn() uint32 {
	t.lockCached()
	defer t.mu.Unlock()
	return t.schema.columns
}

func (t *table) NumFields(kind Kind) uint32 {
	t.lockCached()
	defer t.mu.Unlock()
	return t.schema.count(kind)
}
