package rat

import "context"

// Copy appends the schema and rows of src to dst. Every field of src is
// added to dst with AddFields, keeping its usage and row default, then the
// rows and neighbour sets are copied in blocks of DefaultChunkSize after the
// rows dst already holds. Neighbour ids are copied unchanged.
func Copy(ctx context.Context, dst, src Table) error {
	fields := src.Fields()
	fl, _ := src.(filler)
	specs := make([]*FieldSpec, len(fields))
	for i, f := range fields {
		specs[i] = &FieldSpec{Name: f.Name, Kind: f.Kind, Usage: f.Usage}
		if fl != nil {
			specs[i].Fill = fl.fieldFill(f.Handle())
		}
	}
	if err := dst.AddFields(ctx, specs); err != nil {
		return err
	}

	base := dst.Size()
	rows := src.Size()
	if err := dst.AddRows(ctx, rows); err != nil {
		return err
	}

	var (
		bools   []bool
		ints    []int64
		floats  []float64
		strings []string
	)
	for start := uint64(0); start < rows; start += DefaultChunkSize {
		n := min(DefaultChunkSize, rows-start)
		for i, f := range fields {
			sh, dh := f.Handle(), FieldHandle{Kind: f.Kind, Index: specs[i].Index}
			var err error
			switch f.Kind {
			case Bool:
				bools, err = copyBlock(ctx, bools, start, base+start, n, sh, dh, src.GetBoolFields, dst.SetBoolFields)
			case Int:
				ints, err = copyBlock(ctx, ints, start, base+start, n, sh, dh, src.GetIntFields, dst.SetIntFields)
			case Float:
				floats, err = copyBlock(ctx, floats, start, base+start, n, sh, dh, src.GetFloatFields, dst.SetFloatFields)
			case String:
				strings, err = copyBlock(ctx, strings, start, base+start, n, sh, dh, src.GetStringFields, dst.SetStringFields)
			}
			if err != nil {
				return err
			}
		}
		sets, err := src.GetNeighbours(ctx, start, n)
		if err != nil {
			return err
		}
		if err := dst.SetNeighbours(ctx, base+start, n, sets); err != nil {
			return err
		}
	}
	return nil
}

// copyBlock moves n values of one column, reusing buf when it is large
// enough.
func copyBlock[T any](
	ctx context.Context, buf []T, from, to, n uint64, sh, dh FieldHandle,
	get, set func(context.Context, uint64, uint64, FieldHandle, []T) error,
) ([]T, error) {
	if uint64(cap(buf)) < n {
		buf = make([]T, n)
	}
	buf = buf[:n]
	if err := get(ctx, from, n, sh, buf); err != nil {
		return buf, err
	}
	return buf, set(ctx, to, n, dh, buf)
}
