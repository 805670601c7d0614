package rat

import (
	"context"
	"slices"
	"sync"

	"github.com/hupe1980/kea/store"
)

// ChunkedTable is a Table bound to one band of a store.File. Reads and
// writes go straight to the band's attribute datasets; nothing is held in
// memory except the schema. Changes become durable with the file's Flush.
//
// Every call first re-reads the size header, so a table rewritten by
// Export or by another handle is picked up before the call proceeds.
//
// Appended rows read the fill value of the kind's data dataset, which is the
// fill of the first field of that kind. Fields added later backfill existing
// rows with their own fill, but their appended rows still receive the
// dataset fill.
type ChunkedTable struct {
	table
	cols *chunkedColumns
}

var _ Table = (*ChunkedTable)(nil)

type openOptions struct {
	locker sync.Locker
}

// OpenOption configures Open.
type OpenOption func(*openOptions)

// WithLocker makes the table take l around every call instead of a lock of
// its own. Owners that serialise all access to the file pass their lock
// here; l must not be held by the caller of a table method.
func WithLocker(l sync.Locker) OpenOption {
	return func(o *openOptions) {
		o.locker = l
	}
}

// Open binds a ChunkedTable to the attribute table of band. The stored chunk
// size wins over defaultChunkSize unless it is zero.
func Open(ctx context.Context, f *store.File, band uint32, defaultChunkSize uint32, optFns ...OpenOption) (*ChunkedTable, error) {
	var o openOptions
	for _, fn := range optFns {
		if fn != nil {
			fn(&o)
		}
	}
	if o.locker == nil {
		o.locker = &sync.Mutex{}
	}

	h, err := readHeader(ctx, f, band)
	if err != nil {
		return nil, err
	}
	chunkSize := h.chunkSize
	if chunkSize == 0 {
		chunkSize = defaultChunkSize
	}
	if chunkSize == 0 {
		chunkSize = DefaultChunkSize
	}

	t := &ChunkedTable{}
	t.mu = o.locker
	t.cols = &chunkedColumns{t: &t.table, f: f, band: band, chunkSize: uint64(chunkSize), level: -1}
	t.b = t.cols
	if err := t.cols.load(ctx, h); err != nil {
		return nil, err
	}
	return t, nil
}

// Band returns the band the table is bound to.
func (t *ChunkedTable) Band() uint32 { return t.cols.band }

// ChunkSize returns the row block size of the table.
func (t *ChunkedTable) ChunkSize() uint32 { return uint32(t.cols.chunkSize) }

type chunkedColumns struct {
	t         *table
	f         *store.File
	band      uint32
	chunkSize uint64
	level     int
}

// load replaces the cached schema and row count with the registries
// described by h.
func (c *chunkedColumns) load(ctx context.Context, h header) error {
	s := newSchema()
	for _, k := range Kinds {
		if h.counts[k] == 0 {
			continue
		}
		fields, err := readRegistry(ctx, c.f, c.band, k, h.counts[k])
		if err != nil {
			return err
		}
		for _, fl := range fields {
			s.register(fl)
		}
		s.counts[k] = h.counts[k]
	}
	c.t.schema = s
	c.t.rows = h.rows
	return nil
}

func (c *chunkedColumns) refresh(ctx context.Context) error {
	h, err := readHeader(ctx, c.f, c.band)
	if err != nil {
		return err
	}
	if h.rows == c.t.rows && h.counts == c.t.schema.counts {
		return nil
	}
	return c.load(ctx, h)
}

func (c *chunkedColumns) dataOptions(fill any) []store.DatasetOption {
	opts := []store.DatasetOption{
		store.WithChunks(c.chunkSize, 1),
		store.WithMaxDims(0, 0),
		store.WithFill(storedFill(fill)),
	}
	return append(opts, compression(c.level)...)
}

func (c *chunkedColumns) addColumn(ctx context.Context, f Field, fill any) error {
	p := DataPath(c.band, f.Kind)
	dims := []uint64{c.t.rows, uint64(c.t.schema.count(f.Kind))}
	if !c.f.HasDataset(p) {
		if _, err := c.f.CreateDataset(p, datatype(f.Kind), dims, c.dataOptions(fill)...); err != nil {
			return ioError("create "+f.Kind.String()+" data", err)
		}
	} else {
		d, err := c.f.OpenDataset(p)
		if err != nil {
			return ioError("open "+f.Kind.String()+" data", err)
		}
		if err := d.Resize(dims); err != nil {
			return ioError("extend "+f.Kind.String()+" data", err)
		}
		for start := uint64(0); start < c.t.rows; start += c.chunkSize {
			n := min(c.chunkSize, c.t.rows-start)
			if err := writeColumn(ctx, d, f.Kind, start, uint64(f.Index), repeat(f.Kind, fill, int(n))); err != nil {
				return ioError("backfill field "+f.Name, err)
			}
		}
	}
	if err := writeRegistry(ctx, c.f, c.band, f.Kind, c.t.schema.ofKind(f.Kind), c.chunkSize, c.level); err != nil {
		return err
	}
	return writeSizeHeader(ctx, c.f, c.band, c.t.rows, &c.t.schema)
}

func (c *chunkedColumns) addRows(ctx context.Context, rows uint64) error {
	if err := writeSizeHeader(ctx, c.f, c.band, rows, &c.t.schema); err != nil {
		return err
	}
	for _, k := range Kinds {
		n := c.t.schema.count(k)
		if n == 0 || !c.f.HasDataset(DataPath(c.band, k)) {
			continue
		}
		d, err := c.f.OpenDataset(DataPath(c.band, k))
		if err == nil {
			err = d.Resize([]uint64{rows, uint64(n)})
		}
		if err != nil {
			return ioError("extend "+k.String()+" data", err)
		}
	}
	if c.f.HasDataset(NeighboursPath(c.band)) {
		d, err := c.f.OpenDataset(NeighboursPath(c.band))
		if err == nil {
			err = d.Resize([]uint64{rows})
		}
		if err != nil {
			return ioError("extend neighbours", err)
		}
	}
	return nil
}

func (c *chunkedColumns) read(ctx context.Context, h FieldHandle, start uint64, buf any) error {
	d, err := c.f.OpenDataset(DataPath(c.band, h.Kind))
	if err != nil {
		return ioError("open "+h.Kind.String()+" data", err)
	}
	return ioError("read "+h.Kind.String()+" column", readColumn(ctx, d, h.Kind, start, uint64(h.Index), buf))
}

func (c *chunkedColumns) write(ctx context.Context, h FieldHandle, start uint64, buf any) error {
	d, err := c.f.OpenDataset(DataPath(c.band, h.Kind))
	if err != nil {
		return ioError("open "+h.Kind.String()+" data", err)
	}
	return ioError("write "+h.Kind.String()+" column", writeColumn(ctx, d, h.Kind, start, uint64(h.Index), buf))
}

func (c *chunkedColumns) readNeighbours(ctx context.Context, start, length uint64) ([][]uint64, error) {
	if !c.f.HasDataset(NeighboursPath(c.band)) {
		out := make([][]uint64, length)
		for i := range out {
			out[i] = []uint64{}
		}
		return out, nil
	}
	d, err := c.f.OpenDataset(NeighboursPath(c.band))
	if err != nil {
		return nil, ioError("open neighbours", err)
	}
	out, err := d.ReadVarLen(ctx, []uint64{start}, []uint64{length})
	if err != nil {
		return nil, ioError("read neighbours", err)
	}
	return out, nil
}

func (c *chunkedColumns) writeNeighbours(ctx context.Context, start uint64, data [][]uint64) error {
	d, err := ensureNeighbours(c.f, c.band, c.t.rows, c.chunkSize, c.level)
	if err != nil {
		return err
	}
	n := uint64(len(data))
	return ioError("write neighbours", d.WriteVarLen(ctx, []uint64{start}, []uint64{n}, data))
}

func (c *chunkedColumns) fill(h FieldHandle) any {
	d, err := c.f.OpenDataset(DataPath(c.band, h.Kind))
	if err != nil {
		return zeroValue(h.Kind)
	}
	v, err := d.Fill()
	if err != nil {
		return zeroValue(h.Kind)
	}
	switch x := v.(type) {
	case uint64:
		return x != 0
	case int64, float64, string:
		return x
	}
	return zeroValue(h.Kind)
}

// ensureNeighbours opens the neighbour dataset with at least rows entries,
// creating it when missing.
func ensureNeighbours(f *store.File, band uint32, rows, chunkSize uint64, level int) (*store.Dataset, error) {
	p := NeighboursPath(band)
	if f.HasDataset(p) {
		d, err := f.OpenDataset(p)
		if err == nil {
			err = d.Resize([]uint64{rows})
		}
		if err != nil {
			return nil, ioError("extend neighbours", err)
		}
		return d, nil
	}
	opts := append([]store.DatasetOption{store.WithChunks(chunkSize), store.WithMaxDims(0)}, compression(level)...)
	d, err := f.CreateDataset(p, store.VarLen, []uint64{rows}, opts...)
	if err != nil {
		return nil, ioError("create neighbours", err)
	}
	return d, nil
}

// readColumn reads len(buf) values of column col starting at row start.
func readColumn(ctx context.Context, d *store.Dataset, kind Kind, start, col uint64, buf any) error {
	switch kind {
	case Bool:
		dst := buf.([]bool)
		vals, err := store.Read[uint8](ctx, d, []uint64{start, col}, []uint64{uint64(len(dst)), 1})
		if err != nil {
			return err
		}
		for i, v := range vals {
			dst[i] = v != 0
		}
	case Int:
		dst := buf.([]int64)
		vals, err := store.Read[int64](ctx, d, []uint64{start, col}, []uint64{uint64(len(dst)), 1})
		if err != nil {
			return err
		}
		copy(dst, vals)
	case Float:
		dst := buf.([]float64)
		vals, err := store.Read[float64](ctx, d, []uint64{start, col}, []uint64{uint64(len(dst)), 1})
		if err != nil {
			return err
		}
		copy(dst, vals)
	case String:
		dst := buf.([]string)
		vals, err := d.ReadStrings(ctx, []uint64{start, col}, []uint64{uint64(len(dst)), 1})
		if err != nil {
			return err
		}
		copy(dst, vals)
	}
	return nil
}

// writeColumn writes the values in buf to column col starting at row start.
func writeColumn(ctx context.Context, d *store.Dataset, kind Kind, start, col uint64, buf any) error {
	switch kind {
	case Bool:
		src := buf.([]bool)
		vals := make([]uint8, len(src))
		for i, v := range src {
			if v {
				vals[i] = 1
			}
		}
		return store.Write(ctx, d, []uint64{start, col}, []uint64{uint64(len(vals)), 1}, vals)
	case Int:
		src := buf.([]int64)
		return store.Write(ctx, d, []uint64{start, col}, []uint64{uint64(len(src)), 1}, src)
	case Float:
		src := buf.([]float64)
		return store.Write(ctx, d, []uint64{start, col}, []uint64{uint64(len(src)), 1}, src)
	default:
		src := buf.([]string)
		return d.WriteStrings(ctx, []uint64{start, col}, []uint64{uint64(len(src)), 1}, src)
	}
}

// repeat returns a typed slice holding n copies of fill.
func repeat(kind Kind, fill any, n int) any {
	switch kind {
	case Bool:
		return slices.Repeat([]bool{fill.(bool)}, n)
	case Int:
		return slices.Repeat([]int64{fill.(int64)}, n)
	case Float:
		return slices.Repeat([]float64{fill.(float64)}, n)
	default:
		return slices.Repeat([]string{fill.(string)}, n)
	}
}
