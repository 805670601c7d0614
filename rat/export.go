package rat

import (
	"context"

	"github.com/hupe1980/kea/store"
)

// Export writes src into the attribute table of band, which must have been
// initialised with CreateHeaders. Rows are written in blocks of chunkSize
// (DefaultChunkSize when 0). Existing datasets are reused and extended; the
// field registries and headers are rewritten in full. level selects the
// compression of newly created datasets as for ChunkedTable: 0 stores
// chunks raw, higher values select zstd at that level and negative values
// keep the file default.
func Export(ctx context.Context, src Table, f *store.File, band uint32, chunkSize uint32, level int) error {
	if chunkSize == 0 {
		chunkSize = DefaultChunkSize
	}
	if _, err := readHeader(ctx, f, band); err != nil {
		return err
	}
	cs := uint64(chunkSize)
	rows := src.Size()

	s := newSchema()
	for _, fl := range src.Fields() {
		s.register(fl)
	}
	fl, _ := src.(filler)

	var data [len(Kinds) + 1]*store.Dataset
	for _, k := range Kinds {
		fields := s.ofKind(k)
		if len(fields) == 0 {
			continue
		}
		var fill any = zeroValue(k)
		if fl != nil {
			fill = fl.fieldFill(fields[0].Handle())
		}
		d, err := ensureData(f, band, k, uint64(s.count(k)), cs, level, fill)
		if err != nil {
			return err
		}
		data[k] = d
	}
	neighbours, err := ensureNeighbours(f, band, 0, cs, level)
	if err != nil {
		return err
	}

	for start := uint64(0); start < rows; start += cs {
		n := min(cs, rows-start)
		for _, k := range Kinds {
			if data[k] == nil {
				continue
			}
			if err := exportBlock(ctx, src, data[k], k, s.ofKind(k), uint64(s.count(k)), start, n); err != nil {
				return err
			}
		}
		if err := neighbours.Resize([]uint64{start + n}); err != nil {
			return ioError("extend neighbours", err)
		}
		sets, err := src.GetNeighbours(ctx, start, n)
		if err != nil {
			return err
		}
		if err := neighbours.WriteVarLen(ctx, []uint64{start}, []uint64{n}, sets); err != nil {
			return ioError("write neighbours", err)
		}
	}

	for _, k := range Kinds {
		if err := writeRegistry(ctx, f, band, k, s.ofKind(k), cs, level); err != nil {
			return err
		}
	}
	if err := writeSizeHeader(ctx, f, band, rows, &s); err != nil {
		return err
	}
	return writeChunkSizeHeader(ctx, f, band, chunkSize)
}

// ensureData opens the data dataset of kind with at least nfields columns,
// creating it with the given fill when missing.
func ensureData(f *store.File, band uint32, kind Kind, nfields, chunkSize uint64, level int, fill any) (*store.Dataset, error) {
	p := DataPath(band, kind)
	if f.HasDataset(p) {
		d, err := f.OpenDataset(p)
		if err == nil {
			err = d.Resize([]uint64{0, nfields})
		}
		if err != nil {
			return nil, ioError("extend "+kind.String()+" data", err)
		}
		return d, nil
	}
	opts := append([]store.DatasetOption{
		store.WithChunks(chunkSize, 1),
		store.WithMaxDims(0, 0),
		store.WithFill(storedFill(fill)),
	}, compression(level)...)
	d, err := f.CreateDataset(p, datatype(kind), []uint64{0, nfields}, opts...)
	if err != nil {
		return nil, ioError("create "+kind.String()+" data", err)
	}
	return d, nil
}

// exportBlock gathers rows [start, start+n) of every field of one kind into a
// row-major buffer and writes it in one hyperslab.
func exportBlock(ctx context.Context, src Table, d *store.Dataset, kind Kind, fields []Field, nfields, start, n uint64) error {
	if err := d.Resize([]uint64{start + n, nfields}); err != nil {
		return ioError("extend "+kind.String()+" data", err)
	}
	at, count := []uint64{start, 0}, []uint64{n, nfields}
	var err error
	switch kind {
	case Bool:
		var buf []uint8
		buf, err = gather(ctx, fields, start, n, nfields, src.GetBoolFields, func(v bool) uint8 {
			if v {
				return 1
			}
			return 0
		})
		if err == nil {
			err = ioError("write bool data", store.Write(ctx, d, at, count, buf))
		}
	case Int:
		var buf []int64
		buf, err = gather(ctx, fields, start, n, nfields, src.GetIntFields, identity[int64])
		if err == nil {
			err = ioError("write int data", store.Write(ctx, d, at, count, buf))
		}
	case Float:
		var buf []float64
		buf, err = gather(ctx, fields, start, n, nfields, src.GetFloatFields, identity[float64])
		if err == nil {
			err = ioError("write float data", store.Write(ctx, d, at, count, buf))
		}
	case String:
		var buf []string
		buf, err = gather(ctx, fields, start, n, nfields, src.GetStringFields, identity[string])
		if err == nil {
			err = ioError("write string data", d.WriteStrings(ctx, at, count, buf))
		}
	}
	return err
}

func gather[T, S any](
	ctx context.Context, fields []Field, start, n, nfields uint64,
	get func(context.Context, uint64, uint64, FieldHandle, []T) error, conv func(T) S,
) ([]S, error) {
	col := make([]T, n)
	buf := make([]S, n*nfields)
	for _, fl := range fields {
		if err := get(ctx, start, n, fl.Handle(), col); err != nil {
			return nil, err
		}
		for i, v := range col {
			buf[uint64(i)*nfields+uint64(fl.Index)] = conv(v)
		}
	}
	return buf, nil
}

func identity[T any](v T) T { return v }
