package rat

import (
	"context"
	"fmt"

	"github.com/hupe1980/kea/dtype"
	"github.com/hupe1980/kea/internal/conv"
	"github.com/hupe1980/kea/internal/filter"
	"github.com/hupe1980/kea/raster"
	"github.com/hupe1980/kea/store"
)

var kindNames = [...]string{Bool: "BOOL", Int: "INT", Float: "FLOAT", String: "STRING"}

// AttPath returns the attribute table group of a band.
func AttPath(band uint32) string { return raster.BandPath(band) + "/ATT" }

// SizeHeaderPath returns the dataset holding [rows, bools, ints, floats,
// strings].
func SizeHeaderPath(band uint32) string { return AttPath(band) + "/HEADER/SIZE" }

// ChunkSizeHeaderPath returns the dataset holding the row block size.
func ChunkSizeHeaderPath(band uint32) string { return AttPath(band) + "/HEADER/CHUNKSIZE" }

// FieldsPath returns the field registry of one kind.
func FieldsPath(band uint32, kind Kind) string {
	return AttPath(band) + "/HEADER/" + kindNames[kind] + "_FIELDS"
}

// DataPath returns the (rows, fields) dataset of one kind.
func DataPath(band uint32, kind Kind) string {
	return AttPath(band) + "/DATA/" + kindNames[kind]
}

// NeighboursPath returns the neighbour dataset.
func NeighboursPath(band uint32) string { return AttPath(band) + "/NEIGHBOURS/NEIGHBOURS" }

var registryType = store.Compound(
	store.Member{Name: "NAME", Kind: store.MemberString},
	store.Member{Name: "INDEX", Kind: store.MemberUint32},
	store.Member{Name: "USAGE", Kind: store.MemberString},
	store.Member{Name: "COLNUM", Kind: store.MemberUint32},
)

// datatype returns the stored element type of a kind. Bools are stored as
// uint8.
func datatype(kind Kind) store.Datatype {
	switch kind {
	case Bool:
		return store.Numeric(dtype.Uint8)
	case Int:
		return store.Numeric(dtype.Int64)
	case Float:
		return store.Numeric(dtype.Float64)
	default:
		return store.String
	}
}

func storedFill(v any) any {
	if b, ok := v.(bool); ok {
		if b {
			return uint8(1)
		}
		return uint8(0)
	}
	return v
}

// compression maps a level to dataset options. A negative level keeps the
// file default, 0 stores chunks raw and higher levels select zstd.
func compression(level int) []store.DatasetOption {
	switch {
	case level < 0:
		return nil
	case level == 0:
		return []store.DatasetOption{store.WithCompression(filter.None, 0)}
	default:
		return []store.DatasetOption{store.WithCompression(filter.Zstd, level)}
	}
}

// CreateHeaders creates an empty attribute table for a band: a zero size
// header and the chunk size header. Existing headers are kept.
func CreateHeaders(ctx context.Context, f *store.File, band uint32, chunkSize uint32) error {
	if chunkSize == 0 {
		chunkSize = DefaultChunkSize
	}
	if !f.HasDataset(SizeHeaderPath(band)) {
		if _, err := f.CreateDataset(SizeHeaderPath(band), store.Numeric(dtype.Uint64), []uint64{5}); err != nil {
			return ioError("create size header", err)
		}
	}
	if !f.HasDataset(ChunkSizeHeaderPath(band)) {
		if err := writeChunkSizeHeader(ctx, f, band, chunkSize); err != nil {
			return err
		}
	}
	return nil
}

type header struct {
	rows      uint64
	counts    [len(Kinds) + 1]uint32
	chunkSize uint32
}

func readHeader(ctx context.Context, f *store.File, band uint32) (header, error) {
	var h header
	d, err := f.OpenDataset(SizeHeaderPath(band))
	if err != nil {
		return h, ioError("the attribute table size field is not present", err)
	}
	size, err := store.Read[uint64](ctx, d, []uint64{0}, []uint64{5})
	if err != nil {
		return h, ioError("read size header", err)
	}
	h.rows = size[0]
	for i, k := range Kinds {
		if h.counts[k], err = conv.Uint32(size[i+1]); err != nil {
			return h, ioError("read size header", err)
		}
	}

	d, err = f.OpenDataset(ChunkSizeHeaderPath(band))
	if err != nil {
		return h, ioError("the attribute table chunk size field is not present", err)
	}
	cs, err := store.Read[uint32](ctx, d, []uint64{0}, []uint64{1})
	if err != nil {
		return h, ioError("read chunk size header", err)
	}
	h.chunkSize = cs[0]
	return h, nil
}

func writeSizeHeader(ctx context.Context, f *store.File, band uint32, rows uint64, s *schema) error {
	p := SizeHeaderPath(band)
	var (
		d   *store.Dataset
		err error
	)
	if f.HasDataset(p) {
		d, err = f.OpenDataset(p)
	} else {
		d, err = f.CreateDataset(p, store.Numeric(dtype.Uint64), []uint64{5})
	}
	if err != nil {
		return ioError("open size header", err)
	}
	size := []uint64{rows, 0, 0, 0, 0}
	for i, k := range Kinds {
		size[i+1] = uint64(s.count(k))
	}
	return ioError("write size header", store.Write(ctx, d, []uint64{0}, []uint64{5}, size))
}

func writeChunkSizeHeader(ctx context.Context, f *store.File, band uint32, chunkSize uint32) error {
	p := ChunkSizeHeaderPath(band)
	var (
		d   *store.Dataset
		err error
	)
	if f.HasDataset(p) {
		d, err = f.OpenDataset(p)
	} else {
		d, err = f.CreateDataset(p, store.Numeric(dtype.Uint32), []uint64{1})
	}
	if err != nil {
		return ioError("open chunk size header", err)
	}
	return ioError("write chunk size header", store.Write(ctx, d, []uint64{0}, []uint64{1}, []uint32{chunkSize}))
}

// writeRegistry rewrites the registry of kind in full.
func writeRegistry(ctx context.Context, f *store.File, band uint32, kind Kind, fields []Field, chunkSize uint64, level int) error {
	if len(fields) == 0 {
		return nil
	}
	n := uint64(len(fields))
	p := FieldsPath(band, kind)
	var (
		d   *store.Dataset
		err error
	)
	if f.HasDataset(p) {
		if d, err = f.OpenDataset(p); err == nil {
			err = d.Resize([]uint64{n})
		}
	} else {
		opts := append([]store.DatasetOption{store.WithChunks(chunkSize), store.WithMaxDims(0)}, compression(level)...)
		d, err = f.CreateDataset(p, registryType, []uint64{n}, opts...)
	}
	if err != nil {
		return ioError("open "+kind.String()+" field registry", err)
	}
	records := make([]store.Record, len(fields))
	for i, fl := range fields {
		records[i] = store.Record{fl.Name, fl.Index, fl.Usage, fl.Column}
	}
	return ioError("write "+kind.String()+" field registry", d.WriteRecords(ctx, []uint64{0}, []uint64{n}, records))
}

func readRegistry(ctx context.Context, f *store.File, band uint32, kind Kind, n uint32) ([]Field, error) {
	d, err := f.OpenDataset(FieldsPath(band, kind))
	if err != nil {
		return nil, ioError("open "+kind.String()+" field registry", err)
	}
	records, err := d.ReadRecords(ctx, []uint64{0}, []uint64{uint64(n)})
	if err != nil {
		return nil, ioError("read "+kind.String()+" field registry", err)
	}
	out := make([]Field, 0, len(records))
	for i, r := range records {
		name, ok1 := r[0].(string)
		index, ok2 := r[1].(uint32)
		usage, ok3 := r[2].(string)
		col, ok4 := r[3].(uint32)
		if !ok1 || !ok2 || !ok3 || !ok4 {
			return nil, ioError("read "+kind.String()+" field registry", fmt.Errorf("malformed entry %d", i))
		}
		out = append(out, Field{Name: normalizeName(name), Kind: kind, Index: index, Column: col, Usage: usage})
	}
	return out, nil
}
