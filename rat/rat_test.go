package rat

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/hupe1980/kea/blobstore"
	"github.com/hupe1980/kea/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newFile(t *testing.T) (*store.File, *blobstore.MemoryStore) {
	t.Helper()
	bs := blobstore.NewMemoryStore()
	f, err := store.Create(context.Background(), bs)
	require.NoError(t, err)
	return f, bs
}

func newChunked(t *testing.T, f *store.File, band, chunkSize uint32) *ChunkedTable {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, CreateHeaders(ctx, f, band, chunkSize))
	tbl, err := Open(ctx, f, band, 0)
	require.NoError(t, err)
	return tbl
}

// implementations returns an empty table of each kind.
func implementations(t *testing.T) map[string]Table {
	f, _ := newFile(t)
	return map[string]Table{
		"memory":  NewInMemoryTable(),
		"chunked": newChunked(t, f, 1, 4),
	}
}

func populate(t *testing.T, tbl Table, rows uint64) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, tbl.AddRows(ctx, rows))
	specs := []*FieldSpec{
		{Name: "Histogram", Kind: Float, Usage: "PixelCount"},
		{Name: "Class", Kind: String, Usage: "Name", Fill: "unclassified"},
		{Name: "Selected", Kind: Bool},
		{Name: "Red", Kind: Int, Usage: "Red", Fill: 255},
		{Name: "Area", Kind: Float},
	}
	require.NoError(t, tbl.AddFields(ctx, specs))
	assert.Equal(t, uint32(1), specs[4].Index)
	assert.Equal(t, uint32(4), specs[4].Column)

	for fid := uint64(0); fid < rows; fid++ {
		require.NoError(t, tbl.SetFloatFieldByName(ctx, fid, "Histogram", float64(fid)*1.5))
		if fid%3 == 0 {
			require.NoError(t, tbl.SetStringFieldByName(ctx, fid, "Class", fmt.Sprintf("class-%d", fid)))
		}
		require.NoError(t, tbl.SetBoolFieldByName(ctx, fid, "Selected", fid%2 == 1))
		require.NoError(t, tbl.SetIntFieldByColumn(ctx, fid, 3, int64(fid)*10-7))
		require.NoError(t, tbl.SetFloatFieldByColumn(ctx, fid, 4, -float64(fid)))
	}

	sets := make([][]uint64, rows)
	for fid := range sets {
		if fid > 0 {
			sets[fid] = append(sets[fid], uint64(fid-1))
		}
		if uint64(fid)+1 < rows && fid%4 != 0 {
			sets[fid] = append(sets[fid], uint64(fid+1))
		}
	}
	require.NoError(t, tbl.SetNeighbours(ctx, 0, rows, sets))
}

func assertTablesEqual(t *testing.T, want, got Table) {
	t.Helper()
	ctx := context.Background()
	require.Equal(t, want.Size(), got.Size())
	require.Equal(t, want.Fields(), got.Fields())
	assert.Equal(t, want.MaxGlobalColumn(), got.MaxGlobalColumn())
	for _, k := range Kinds {
		assert.Equal(t, want.NumFields(k), got.NumFields(k), k.String())
	}

	n := want.Size()
	for _, f := range want.Fields() {
		h := f.Handle()
		switch f.Kind {
		case Bool:
			a, b := make([]bool, n), make([]bool, n)
			require.NoError(t, want.GetBoolFields(ctx, 0, n, h, a))
			require.NoError(t, got.GetBoolFields(ctx, 0, n, h, b))
			assert.Equal(t, a, b, f.Name)
		case Int:
			a, b := make([]int64, n), make([]int64, n)
			require.NoError(t, want.GetIntFields(ctx, 0, n, h, a))
			require.NoError(t, got.GetIntFields(ctx, 0, n, h, b))
			assert.Equal(t, a, b, f.Name)
		case Float:
			a, b := make([]float64, n), make([]float64, n)
			require.NoError(t, want.GetFloatFields(ctx, 0, n, h, a))
			require.NoError(t, got.GetFloatFields(ctx, 0, n, h, b))
			assert.Equal(t, a, b, f.Name)
		case String:
			a, b := make([]string, n), make([]string, n)
			require.NoError(t, want.GetStringFields(ctx, 0, n, h, a))
			require.NoError(t, got.GetStringFields(ctx, 0, n, h, b))
			assert.Equal(t, a, b, f.Name)
		}
	}

	a, err := want.GetNeighbours(ctx, 0, n)
	require.NoError(t, err)
	b, err := got.GetNeighbours(ctx, 0, n)
	require.NoError(t, err)
	require.Len(t, b, len(a))
	for i := range a {
		assert.ElementsMatch(t, a[i], b[i], "neighbours of row %d", i)
	}
}

func TestSchema(t *testing.T) {
	for name, tbl := range implementations(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			require.NoError(t, tbl.AddField(ctx, "Histogram", Float, 0.0, "PixelCount"))
			require.NoError(t, tbl.AddField(ctx, "Red", Int, 0, "Red"))
			require.NoError(t, tbl.AddField(ctx, "Green", Int, 0, "Green"))
			require.NoError(t, tbl.AddField(ctx, "Caf\u00e9", String, "", ""))

			f, err := tbl.Field("Green")
			require.NoError(t, err)
			assert.Equal(t, Field{Name: "Green", Kind: Int, Index: 1, Column: 2, Usage: "Green"}, f)

			f, err = tbl.FieldByColumn(3)
			require.NoError(t, err)
			assert.Equal(t, "Caf\u00e9", f.Name)

			h, err := tbl.Handle("Red")
			require.NoError(t, err)
			assert.Equal(t, FieldHandle{Kind: Int, Index: 0}, h)

			assert.Equal(t, uint32(4), tbl.MaxGlobalColumn())
			assert.Equal(t, uint32(2), tbl.NumFields(Int))
			assert.Equal(t, uint32(0), tbl.NumFields(Bool))
			assert.Len(t, tbl.Fields(), 4)

			err = tbl.AddField(ctx, "Red", Bool, false, "")
			var dup *DuplicateFieldError
			require.ErrorAs(t, err, &dup)
			assert.ErrorIs(t, err, ErrAttributeTable)

			// Canonically equivalent names collide.
			err = tbl.AddField(ctx, "Cafe\u0301", String, "", "")
			require.ErrorAs(t, err, &dup)
			f, err = tbl.Field("Cafe\u0301")
			require.NoError(t, err)
			assert.Equal(t, uint32(3), f.Column)

			err = tbl.AddField(ctx, "Blue", Int, "not a number", "")
			assert.ErrorIs(t, err, ErrAttributeTable)
			assert.Equal(t, uint32(4), tbl.MaxGlobalColumn(), "a rejected field does not consume a column")

			require.NoError(t, tbl.AddField(ctx, "Blue", Int, int32(3), "Blue"))
			f, err = tbl.Field("Blue")
			require.NoError(t, err)
			assert.Equal(t, uint32(4), f.Column)
			assert.Equal(t, uint32(2), f.Index)
		})
	}
}

func TestBackfillAndRowDefaults(t *testing.T) {
	for name, tbl := range implementations(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			require.NoError(t, tbl.AddField(ctx, "Name", String, "none", ""))
			require.NoError(t, tbl.AddRows(ctx, 6))

			require.NoError(t, tbl.AddField(ctx, "Count", Int, 7, ""))
			require.NoError(t, tbl.AddField(ctx, "Valid", Bool, true, ""))
			require.NoError(t, tbl.AddField(ctx, "Mean", Float, 2.5, ""))

			count, err := tbl.Field("Count")
			require.NoError(t, err)
			assert.Equal(t, uint32(1), count.Column)

			ints := make([]int64, 6)
			require.NoError(t, tbl.GetIntFields(ctx, 0, 6, count.Handle(), ints))
			assert.Equal(t, []int64{7, 7, 7, 7, 7, 7}, ints)

			require.NoError(t, tbl.AddRows(ctx, 3))
			assert.Equal(t, uint64(9), tbl.Size())

			ints = make([]int64, 3)
			require.NoError(t, tbl.GetIntFields(ctx, 6, 3, count.Handle(), ints))
			assert.Equal(t, []int64{7, 7, 7}, ints)

			bools := make([]bool, 9)
			h, err := tbl.Handle("Valid")
			require.NoError(t, err)
			require.NoError(t, tbl.GetBoolFields(ctx, 0, 9, h, bools))
			for i, b := range bools {
				assert.True(t, b, "row %d", i)
			}

			floats := make([]float64, 9)
			h, err = tbl.Handle("Mean")
			require.NoError(t, err)
			require.NoError(t, tbl.GetFloatFields(ctx, 0, 9, h, floats))
			for i, v := range floats {
				assert.Equal(t, 2.5, v, "row %d", i)
			}

			for fid := uint64(0); fid < 9; fid++ {
				s, err := tbl.GetStringFieldByName(ctx, fid, "Name")
				require.NoError(t, err)
				assert.Equal(t, "none", s)
			}

			sets, err := tbl.GetNeighbours(ctx, 0, 9)
			require.NoError(t, err)
			for _, s := range sets {
				assert.Empty(t, s)
			}
		})
	}
}

func TestChunkedAppendedRowsUseDatasetFill(t *testing.T) {
	ctx := context.Background()
	f, _ := newFile(t)
	tables := map[string]Table{"memory": NewInMemoryTable(), "chunked": newChunked(t, f, 1, 8)}
	want := map[string][]int64{
		"memory": {2, 2, 2, 2},
		// The data dataset has one fill value, that of the first int field.
		"chunked": {2, 2, 1, 1},
	}
	for name, tbl := range tables {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, tbl.AddRows(ctx, 2))
			require.NoError(t, tbl.AddField(ctx, "a", Int, 1, ""))
			require.NoError(t, tbl.AddField(ctx, "b", Int, 2, ""))
			require.NoError(t, tbl.AddRows(ctx, 2))

			h, err := tbl.Handle("b")
			require.NoError(t, err)
			got := make([]int64, 4)
			require.NoError(t, tbl.GetIntFields(ctx, 0, 4, h, got))
			assert.Equal(t, want[name], got)

			h, err = tbl.Handle("a")
			require.NoError(t, err)
			require.NoError(t, tbl.GetIntFields(ctx, 0, 4, h, got))
			assert.Equal(t, []int64{1, 1, 1, 1}, got)
		})
	}
}

func TestBulkSingleConsistency(t *testing.T) {
	for name, tbl := range implementations(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			populate(t, tbl, 11)
			for _, f := range tbl.Fields() {
				h := f.Handle()
				for fid := uint64(0); fid < tbl.Size(); fid++ {
					switch f.Kind {
					case Bool:
						v, err := tbl.GetBoolField(ctx, fid, h)
						require.NoError(t, err)
						buf := make([]bool, 1)
						require.NoError(t, tbl.GetBoolFields(ctx, fid, 1, h, buf))
						assert.Equal(t, buf[0], v)
						byCol, err := tbl.GetBoolFieldByColumn(ctx, fid, f.Column)
						require.NoError(t, err)
						assert.Equal(t, v, byCol)
					case Int:
						v, err := tbl.GetIntField(ctx, fid, h)
						require.NoError(t, err)
						buf := make([]int64, 1)
						require.NoError(t, tbl.GetIntFields(ctx, fid, 1, h, buf))
						assert.Equal(t, buf[0], v)
						byName, err := tbl.GetIntFieldByName(ctx, fid, f.Name)
						require.NoError(t, err)
						assert.Equal(t, v, byName)
					case Float:
						v, err := tbl.GetFloatField(ctx, fid, h)
						require.NoError(t, err)
						buf := make([]float64, 1)
						require.NoError(t, tbl.GetFloatFields(ctx, fid, 1, h, buf))
						assert.Equal(t, buf[0], v)
						byCol, err := tbl.GetFloatFieldByColumn(ctx, fid, f.Column)
						require.NoError(t, err)
						assert.Equal(t, v, byCol)
					case String:
						v, err := tbl.GetStringField(ctx, fid, h)
						require.NoError(t, err)
						buf := make([]string, 1)
						require.NoError(t, tbl.GetStringFields(ctx, fid, 1, h, buf))
						assert.Equal(t, buf[0], v)
						byCol, err := tbl.GetStringFieldByColumn(ctx, fid, f.Column)
						require.NoError(t, err)
						assert.Equal(t, v, byCol)
					}
				}
			}

			v, err := tbl.GetStringFieldByName(ctx, 1, "Class")
			require.NoError(t, err)
			assert.Equal(t, "unclassified", v)
			v, err = tbl.GetStringFieldByName(ctx, 3, "Class")
			require.NoError(t, err)
			assert.Equal(t, "class-3", v)
			red, err := tbl.GetIntFieldByName(ctx, 4, "Red")
			require.NoError(t, err)
			assert.Equal(t, int64(33), red)
		})
	}
}

func TestBounds(t *testing.T) {
	for name, tbl := range implementations(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			require.NoError(t, tbl.AddRows(ctx, 3))
			require.NoError(t, tbl.AddField(ctx, "count", Int, 0, ""))
			h, err := tbl.Handle("count")
			require.NoError(t, err)

			var oor *OutOfRangeError
			_, err = tbl.GetIntField(ctx, 3, h)
			require.ErrorAs(t, err, &oor)
			assert.Equal(t, uint64(3), oor.Index)
			assert.ErrorIs(t, err, ErrAttributeTable)
			assert.ErrorAs(t, tbl.SetIntField(ctx, 3, h, 1), &oor)
			assert.ErrorAs(t, tbl.GetIntFields(ctx, 3, 1, h, make([]int64, 1)), &oor)
			assert.ErrorAs(t, tbl.SetIntFields(ctx, 2, 2, h, make([]int64, 2)), &oor)
			assert.ErrorIs(t, tbl.GetIntFields(ctx, 0, 3, h, make([]int64, 2)), ErrAttributeTable)
			_, err = tbl.GetIntField(ctx, 0, FieldHandle{Kind: Int, Index: 5})
			assert.ErrorAs(t, err, &oor)
			_, err = tbl.GetNeighbours(ctx, 2, 2)
			assert.ErrorAs(t, err, &oor)
			assert.NoError(t, tbl.GetIntFields(ctx, 3, 0, h, nil))

			var kind *KindMismatchError
			_, err = tbl.GetFloatField(ctx, 0, h)
			require.ErrorAs(t, err, &kind)
			assert.Equal(t, Float, kind.Want)
			assert.Equal(t, Int, kind.Got)
			_, err = tbl.GetFloatFieldByName(ctx, 0, "count")
			require.ErrorAs(t, err, &kind)
			assert.Equal(t, "count", kind.Field)

			var missing *FieldNotFoundError
			_, err = tbl.Field("nonexistent")
			assert.ErrorAs(t, err, &missing)
			_, err = tbl.GetIntFieldByName(ctx, 0, "nonexistent")
			assert.ErrorAs(t, err, &missing)

			var col *ColumnNotFoundError
			_, err = tbl.FieldByColumn(99)
			require.ErrorAs(t, err, &col)
			assert.Equal(t, uint32(99), col.Column)
			assert.ErrorIs(t, err, ErrAttributeTable)
		})
	}
}

func TestExportOpenRoundTrip(t *testing.T) {
	for _, rows := range []uint64{0, 7, 25, 30} {
		t.Run(fmt.Sprintf("rows=%d", rows), func(t *testing.T) {
			ctx := context.Background()
			src := NewInMemoryTable()
			populate(t, src, rows)

			f, bs := newFile(t)
			require.NoError(t, CreateHeaders(ctx, f, 2, 0))
			require.NoError(t, Export(ctx, src, f, 2, 10, 3))

			got, err := Open(ctx, f, 2, 0)
			require.NoError(t, err)
			assert.Equal(t, uint32(10), got.ChunkSize())
			assertTablesEqual(t, src, got)

			require.NoError(t, f.Close(ctx))
			reopened, err := store.Open(ctx, bs)
			require.NoError(t, err)
			got, err = Open(ctx, reopened, 2, 0)
			require.NoError(t, err)
			assertTablesEqual(t, src, got)
		})
	}
}

func TestExportOverExistingTable(t *testing.T) {
	ctx := context.Background()
	f, _ := newFile(t)
	require.NoError(t, CreateHeaders(ctx, f, 1, 4))

	small := NewInMemoryTable()
	populate(t, small, 5)
	require.NoError(t, Export(ctx, small, f, 1, 4, 0))

	large := NewInMemoryTable()
	populate(t, large, 13)
	require.NoError(t, large.AddField(ctx, "Extra", Int, -1, ""))
	require.NoError(t, Export(ctx, large, f, 1, 4, 0))

	got, err := Open(ctx, f, 1, 0)
	require.NoError(t, err)
	assertTablesEqual(t, large, got)
}

func TestChunkedTablePersists(t *testing.T) {
	ctx := context.Background()
	f, bs := newFile(t)
	tbl := newChunked(t, f, 3, 4)
	populate(t, tbl, 9)
	assert.Equal(t, uint32(3), tbl.Band())

	mem := NewInMemoryTable()
	populate(t, mem, 9)
	assertTablesEqual(t, mem, tbl)

	require.NoError(t, f.Close(ctx))
	reopened, err := store.Open(ctx, bs)
	require.NoError(t, err)
	got, err := Open(ctx, reopened, 3, 0)
	require.NoError(t, err)
	assertTablesEqual(t, mem, got)
}

func TestOpen(t *testing.T) {
	ctx := context.Background()
	f, _ := newFile(t)

	_, err := Open(ctx, f, 7, 0)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrIO)
	assert.ErrorIs(t, err, store.ErrNotFound)
	var ioe *IOError
	assert.ErrorAs(t, err, &ioe)

	tbl := newChunked(t, f, 1, 0)
	assert.Equal(t, uint32(DefaultChunkSize), tbl.ChunkSize())
	assert.Equal(t, uint64(0), tbl.Size())
	assert.Empty(t, tbl.Fields())

	// A zero chunk size header falls back to the caller's default.
	require.NoError(t, CreateHeaders(ctx, f, 2, 0))
	d, err := f.OpenDataset(ChunkSizeHeaderPath(2))
	require.NoError(t, err)
	require.NoError(t, store.Write(ctx, d, []uint64{0}, []uint64{1}, []uint32{0}))
	tbl, err = Open(ctx, f, 2, 64)
	require.NoError(t, err)
	assert.Equal(t, uint32(64), tbl.ChunkSize())

	// Fields survive a table without rows.
	require.NoError(t, tbl.AddField(ctx, "Name", String, "", ""))
	tbl, err = Open(ctx, f, 2, 64)
	require.NoError(t, err)
	assert.Equal(t, uint32(1), tbl.NumFields(String))
}

func TestReadOnlyFileWrapsError(t *testing.T) {
	ctx := context.Background()
	f, bs := newFile(t)
	tbl := newChunked(t, f, 1, 4)
	populate(t, tbl, 3)
	require.NoError(t, f.Close(ctx))

	ro, err := store.Open(ctx, bs, store.WithReadOnly())
	require.NoError(t, err)
	tbl, err = Open(ctx, ro, 1, 0)
	require.NoError(t, err)

	err = tbl.SetIntFieldByName(ctx, 0, "Red", 1)
	assert.ErrorIs(t, err, ErrIO)
	assert.ErrorIs(t, err, store.ErrReadOnly)
	assert.False(t, errors.Is(err, ErrAttributeTable))

	red, err := tbl.GetIntFieldByName(ctx, 0, "Red")
	require.NoError(t, err)
	assert.Equal(t, int64(-7), red)
}

func TestCopy(t *testing.T) {
	ctx := context.Background()
	src := NewInMemoryTable()
	populate(t, src, 23)

	f, _ := newFile(t)
	dst := newChunked(t, f, 1, 5)
	require.NoError(t, Copy(ctx, dst, src))
	assertTablesEqual(t, src, dst)

	back := NewInMemoryTable()
	require.NoError(t, Copy(ctx, back, dst))
	assertTablesEqual(t, src, back)

	// A second copy collides on field names.
	assert.ErrorIs(t, Copy(ctx, back, src), ErrAttributeTable)
}

func TestFillWidths(t *testing.T) {
	ctx := context.Background()
	tbl := NewInMemoryTable()
	require.NoError(t, tbl.AddRows(ctx, 2))

	fills := []any{int8(-3), int16(-4), int32(5), int(6), uint(7), uint8(8), uint16(9), uint32(10), uint64(11), float32(1.5)}
	want := []float64{-3, -4, 5, 6, 7, 8, 9, 10, 11, 1.5}
	for i, fill := range fills {
		name := fmt.Sprintf("F%d", i)
		require.NoError(t, tbl.AddField(ctx, name, Float, fill, ""), "%T", fill)
		got, err := tbl.GetFloatFieldByName(ctx, 1, name)
		require.NoError(t, err)
		assert.Equal(t, want[i], got, "%T", fill)
	}

	require.NoError(t, tbl.AddField(ctx, "U", Int, uint(12), ""))
	n, err := tbl.GetIntFieldByName(ctx, 0, "U")
	require.NoError(t, err)
	assert.Equal(t, int64(12), n)

	err = tbl.AddField(ctx, "Huge", Int, ^uint(0), "")
	assert.ErrorIs(t, err, ErrAttributeTable)
}

func TestHandlesSeeOtherWriters(t *testing.T) {
	ctx := context.Background()
	f, _ := newFile(t)
	a := newChunked(t, f, 1, 4)
	b, err := Open(ctx, f, 1, 0)
	require.NoError(t, err)

	require.NoError(t, a.AddRows(ctx, 3))
	require.NoError(t, a.AddField(ctx, "Histogram", Float, 0.0, "PixelCount"))
	require.NoError(t, a.SetFloatFieldByName(ctx, 2, "Histogram", 42))

	assert.Equal(t, uint64(3), b.Size())
	got, err := b.GetFloatFieldByName(ctx, 2, "Histogram")
	require.NoError(t, err)
	assert.Equal(t, 42.0, got)

	// An export through the file replaces the schema under both handles.
	src := NewInMemoryTable()
	require.NoError(t, src.AddRows(ctx, 10))
	require.NoError(t, src.AddField(ctx, "A", Int, int64(1), ""))
	require.NoError(t, src.AddField(ctx, "B", String, "x", ""))
	require.NoError(t, Export(ctx, src, f, 1, 4, 1))

	require.NoError(t, a.AddRows(ctx, 1))
	assert.Equal(t, uint64(11), b.Size())
	names := make([]string, 0, 2)
	for _, fd := range b.Fields() {
		names = append(names, fd.Name)
	}
	assert.Equal(t, []string{"A", "B"}, names)
	v, err := b.GetIntFieldByName(ctx, 9, "A")
	require.NoError(t, err)
	assert.Equal(t, int64(1), v)
}

type countingLocker struct {
	sync.Mutex
	n int
}

func (l *countingLocker) Lock() {
	l.Mutex.Lock()
	l.n++
}

func TestWithLocker(t *testing.T) {
	ctx := context.Background()
	f, _ := newFile(t)
	require.NoError(t, CreateHeaders(ctx, f, 1, 4))

	l := &countingLocker{}
	tbl, err := Open(ctx, f, 1, 0, WithLocker(l))
	require.NoError(t, err)

	require.NoError(t, tbl.AddRows(ctx, 2))
	require.NoError(t, tbl.AddField(ctx, "Red", Int, int64(0), "Red"))
	_ = tbl.Size()
	assert.Equal(t, 3, l.n)
}
