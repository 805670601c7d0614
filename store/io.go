package store

import (
	"context"
	"fmt"

	"github.com/hupe1980/kea/dtype"
)

func (d *Dataset) requireClass(c Class) error {
	if d.dt.Class != c {
		return fmt.Errorf("%w: %s is %s, not %s", ErrTypeMismatch, d.path, d.dt, c)
	}
	return nil
}

// WriteRaw writes packed little-endian elements of the dataset's numeric
// type into the hyperslab [start, start+count).
func (d *Dataset) WriteRaw(ctx context.Context, start, count []uint64, data []byte) error {
	d.f.mu.Lock()
	defer d.f.mu.Unlock()

	if err := d.f.checkWritable(); err != nil {
		return err
	}
	if err := d.requireClass(ClassNumeric); err != nil {
		return err
	}
	ds, err := d.meta()
	if err != nil {
		return err
	}
	l := layoutOf(ds)
	s, c, err := l.selection(start, count)
	if err != nil {
		return err
	}
	size := d.dt.Numeric.Size()
	if want := int(c[0]*c[1]) * size; len(data) != want {
		return fmt.Errorf("%w: %d bytes for %d elements of %s", ErrTypeMismatch, len(data), c[0]*c[1], d.dt)
	}

	for _, sp := range l.spans(ds.ID, s, c) {
		ch, err := d.f.writableChunk(ctx, ds, d.dt, l, sp.id)
		if err != nil {
			return err
		}
		l.each(sp, s, c, func(ci, ui, n int) {
			copy(ch.fixed[ci*size:(ci+n)*size], data[ui*size:(ui+n)*size])
		})
	}
	return nil
}

// ReadRaw reads the hyperslab [start, start+count) as packed little-endian
// elements of the dataset's numeric type.
func (d *Dataset) ReadRaw(ctx context.Context, start, count []uint64) ([]byte, error) {
	d.f.mu.Lock()
	defer d.f.mu.Unlock()

	if err := d.requireClass(ClassNumeric); err != nil {
		return nil, err
	}
	ds, err := d.meta()
	if err != nil {
		return nil, err
	}
	l := layoutOf(ds)
	s, c, err := l.selection(start, count)
	if err != nil {
		return nil, err
	}
	size := d.dt.Numeric.Size()
	out := make([]byte, int(c[0]*c[1])*size)

	spans := l.spans(ds.ID, s, c)
	d.f.prefetch(ctx, ds, l, spans)
	for _, sp := range spans {
		ch, err := d.f.readChunk(ctx, ds, d.dt, l, sp.id)
		if err != nil {
			return nil, err
		}
		l.each(sp, s, c, func(ci, ui, n int) {
			copy(out[ui*size:(ui+n)*size], ch.fixed[ci*size:(ci+n)*size])
		})
	}
	return out, nil
}

// Write converts data to the dataset's numeric type and writes it.
func Write[T dtype.Number](ctx context.Context, d *Dataset, start, count []uint64, data []T) error {
	if err := d.requireClass(ClassNumeric); err != nil {
		return err
	}
	raw, err := dtype.Append(nil, d.dt.Numeric, data)
	if err != nil {
		return err
	}
	return d.WriteRaw(ctx, start, count, raw)
}

// Read reads a hyperslab converted to T.
func Read[T dtype.Number](ctx context.Context, d *Dataset, start, count []uint64) ([]T, error) {
	raw, err := d.ReadRaw(ctx, start, count)
	if err != nil {
		return nil, err
	}
	out := make([]T, len(raw)/d.dt.Numeric.Size())
	if err := dtype.DecodeInto(out, d.dt.Numeric, raw); err != nil {
		return nil, err
	}
	return out, nil
}

func (d *Dataset) writeVars(ctx context.Context, class Class, start, count []uint64, encs [][]byte) error {
	d.f.mu.Lock()
	defer d.f.mu.Unlock()

	if err := d.f.checkWritable(); err != nil {
		return err
	}
	if err := d.requireClass(class); err != nil {
		return err
	}
	ds, err := d.meta()
	if err != nil {
		return err
	}
	l := layoutOf(ds)
	s, c, err := l.selection(start, count)
	if err != nil {
		return err
	}
	if uint64(len(encs)) != c[0]*c[1] {
		return fmt.Errorf("%w: %d values for %d elements", ErrTypeMismatch, len(encs), c[0]*c[1])
	}

	for _, sp := range l.spans(ds.ID, s, c) {
		ch, err := d.f.writableChunk(ctx, ds, d.dt, l, sp.id)
		if err != nil {
			return err
		}
		l.each(sp, s, c, func(ci, ui, n int) {
			copy(ch.vars[ci:ci+n], encs[ui:ui+n])
		})
	}
	return nil
}

func (d *Dataset) readVars(ctx context.Context, class Class, start, count []uint64) ([][]byte, error) {
	d.f.mu.Lock()
	defer d.f.mu.Unlock()

	if err := d.requireClass(class); err != nil {
		return nil, err
	}
	ds, err := d.meta()
	if err != nil {
		return nil, err
	}
	l := layoutOf(ds)
	s, c, err := l.selection(start, count)
	if err != nil {
		return nil, err
	}
	out := make([][]byte, c[0]*c[1])

	spans := l.spans(ds.ID, s, c)
	d.f.prefetch(ctx, ds, l, spans)
	for _, sp := range spans {
		ch, err := d.f.readChunk(ctx, ds, d.dt, l, sp.id)
		if err != nil {
			return nil, err
		}
		l.each(sp, s, c, func(ci, ui, n int) {
			copy(out[ui:ui+n], ch.vars[ci:ci+n])
		})
	}
	return out, nil
}

// WriteStrings writes string elements.
func (d *Dataset) WriteStrings(ctx context.Context, start, count []uint64, values []string) error {
	encs := make([][]byte, len(values))
	for i, v := range values {
		encs[i] = []byte(v)
	}
	return d.writeVars(ctx, ClassString, start, count, encs)
}

// ReadStrings reads string elements.
func (d *Dataset) ReadStrings(ctx context.Context, start, count []uint64) ([]string, error) {
	encs, err := d.readVars(ctx, ClassString, start, count)
	if err != nil {
		return nil, err
	}
	out := make([]string, len(encs))
	for i, e := range encs {
		out[i] = string(e)
	}
	return out, nil
}

// WriteVarLen writes one uint64 sequence per element.
func (d *Dataset) WriteVarLen(ctx context.Context, start, count []uint64, values [][]uint64) error {
	encs := make([][]byte, len(values))
	for i, v := range values {
		encs[i] = encodeVarLen(v)
	}
	return d.writeVars(ctx, ClassVarLen, start, count, encs)
}

// ReadVarLen reads one uint64 sequence per element. Empty sequences are
// returned as empty, non-nil slices.
func (d *Dataset) ReadVarLen(ctx context.Context, start, count []uint64) ([][]uint64, error) {
	encs, err := d.readVars(ctx, ClassVarLen, start, count)
	if err != nil {
		return nil, err
	}
	out := make([][]uint64, len(encs))
	for i, e := range encs {
		if out[i], err = decodeVarLen(e); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// WriteRecords writes compound elements.
func (d *Dataset) WriteRecords(ctx context.Context, start, count []uint64, records []Record) error {
	encs := make([][]byte, len(records))
	for i, r := range records {
		enc, err := d.dt.encodeRecord(r)
		if err != nil {
			return err
		}
		encs[i] = enc
	}
	return d.writeVars(ctx, ClassCompound, start, count, encs)
}

// ReadRecords reads compound elements.
func (d *Dataset) ReadRecords(ctx context.Context, start, count []uint64) ([]Record, error) {
	encs, err := d.readVars(ctx, ClassCompound, start, count)
	if err != nil {
		return nil, err
	}
	out := make([]Record, len(encs))
	for i, e := range encs {
		if out[i], err = d.dt.decodeRecord(e); err != nil {
			return nil, err
		}
	}
	return out, nil
}
