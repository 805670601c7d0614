package store

import (
	"fmt"
	"slices"

	"github.com/hupe1980/kea/internal/filter"
	"github.com/hupe1980/kea/internal/manifest"
)

const defaultChunkDim = 256

// Dataset is a handle to a dataset. It stays valid until the dataset is
// unlinked.
type Dataset struct {
	f    *File
	path string
	id   uint64
	dt   Datatype
}

// CreateDataset creates a rank 1 or rank 2 dataset at p, creating missing
// parent groups.
func (f *File) CreateDataset(p string, t Datatype, dims []uint64, opts ...DatasetOption) (*Dataset, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.checkWritable(); err != nil {
		return nil, err
	}
	p, err := cleanPath(p)
	if err != nil {
		return nil, err
	}
	if _, ok := f.m.Objects[p]; ok {
		return nil, fmt.Errorf("%w: %s", ErrExists, p)
	}
	if err := t.validate(); err != nil {
		return nil, err
	}
	if len(dims) != 1 && len(dims) != 2 {
		return nil, fmt.Errorf("store: dataset %s: rank %d not supported", p, len(dims))
	}

	o := datasetOptions{}
	for _, opt := range opts {
		opt(&o)
	}

	chunks := o.chunks
	if chunks == nil {
		chunks = make([]uint64, len(dims))
		for i, d := range dims {
			chunks[i] = max(1, min(d, defaultChunkDim))
		}
	}
	if len(chunks) != len(dims) {
		return nil, fmt.Errorf("store: dataset %s: chunk rank %d does not match rank %d", p, len(chunks), len(dims))
	}
	for _, c := range chunks {
		if c == 0 {
			return nil, fmt.Errorf("store: dataset %s: zero chunk dimension", p)
		}
	}

	maxDims := o.maxDims
	if maxDims == nil {
		maxDims = dims
	}
	if len(maxDims) != len(dims) {
		return nil, fmt.Errorf("store: dataset %s: max dims rank %d does not match rank %d", p, len(maxDims), len(dims))
	}
	for i, m := range maxDims {
		if m != 0 && m < dims[i] {
			return nil, fmt.Errorf("%w: dimension %d of %s exceeds its maximum", ErrOutOfBounds, i, p)
		}
	}

	fill, err := t.encodeFill(o.fill)
	if err != nil {
		return nil, err
	}

	compression, level := f.opts.compression, f.opts.level
	if o.compression != nil {
		compression, level = *o.compression, o.level
	}

	if err := f.ensureParents(p); err != nil {
		return nil, err
	}

	ds := &manifest.Dataset{
		ID:          f.m.NextDatasetID,
		Type:        t.toManifest(),
		Dims:        append([]uint64(nil), dims...),
		MaxDims:     append([]uint64(nil), maxDims...),
		Chunks:      append([]uint64(nil), chunks...),
		Fill:        fill,
		Compression: compression.String(),
		Level:       level,
	}
	f.m.NextDatasetID++
	f.m.Objects[p] = &manifest.Object{Kind: manifest.KindDataset, Dataset: ds}
	f.changed = true

	return &Dataset{f: f, path: p, id: ds.ID, dt: t}, nil
}

// OpenDataset opens the dataset at p.
func (f *File) OpenDataset(p string) (*Dataset, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.checkOpen(); err != nil {
		return nil, err
	}
	obj, p, err := f.object(p)
	if err != nil {
		return nil, err
	}
	if obj.Kind != manifest.KindDataset || obj.Dataset == nil {
		return nil, fmt.Errorf("%w: %s", ErrNotDataset, p)
	}
	return &Dataset{f: f, path: p, id: obj.Dataset.ID, dt: datatypeFromManifest(obj.Dataset.Type)}, nil
}

// meta resolves the handle against the current object tree. Callers hold
// f.mu.
func (d *Dataset) meta() (*manifest.Dataset, error) {
	if err := d.f.checkOpen(); err != nil {
		return nil, err
	}
	obj, ok := d.f.m.Objects[d.path]
	if !ok || obj.Dataset == nil || obj.Dataset.ID != d.id {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, d.path)
	}
	return obj.Dataset, nil
}

// Path returns the absolute path of the dataset.
func (d *Dataset) Path() string { return d.path }

// Datatype returns the element type.
func (d *Dataset) Datatype() Datatype { return d.dt }

// Rank returns the number of dimensions.
func (d *Dataset) Rank() int {
	dims, _ := d.Dims()
	return len(dims)
}

// Dims returns the current extent.
func (d *Dataset) Dims() ([]uint64, error) {
	d.f.mu.Lock()
	defer d.f.mu.Unlock()

	ds, err := d.meta()
	if err != nil {
		return nil, err
	}
	return append([]uint64(nil), ds.Dims...), nil
}

// MaxDims returns the maximum extent; 0 means unlimited.
func (d *Dataset) MaxDims() ([]uint64, error) {
	d.f.mu.Lock()
	defer d.f.mu.Unlock()

	ds, err := d.meta()
	if err != nil {
		return nil, err
	}
	return append([]uint64(nil), ds.MaxDims...), nil
}

// ChunkShape returns the chunk dimensions.
func (d *Dataset) ChunkShape() ([]uint64, error) {
	d.f.mu.Lock()
	defer d.f.mu.Unlock()

	ds, err := d.meta()
	if err != nil {
		return nil, err
	}
	return append([]uint64(nil), ds.Chunks...), nil
}

// Compression returns the chunk filter and level.
func (d *Dataset) Compression() (filter.Compression, int, error) {
	d.f.mu.Lock()
	defer d.f.mu.Unlock()

	ds, err := d.meta()
	if err != nil {
		return filter.None, 0, err
	}
	c, err := filter.ParseCompression(ds.Compression)
	return c, ds.Level, err
}

// Fill returns the fill value: int64, uint64 or float64 for numeric
// datasets, string, []uint64 or Record otherwise.
func (d *Dataset) Fill() (any, error) {
	d.f.mu.Lock()
	defer d.f.mu.Unlock()

	ds, err := d.meta()
	if err != nil {
		return nil, err
	}
	return d.dt.decodeFill(ds.Fill)
}

// Extend grows the first dimension to dim0. Datasets never shrink, so a
// smaller dim0 is a no-op. Growing beyond the maximum fails with
// ErrOutOfBounds.
func (d *Dataset) Extend(dim0 uint64) error {
	d.f.mu.Lock()
	defer d.f.mu.Unlock()

	if err := d.f.checkWritable(); err != nil {
		return err
	}
	ds, err := d.meta()
	if err != nil {
		return err
	}
	if dim0 <= ds.Dims[0] {
		return nil
	}
	if m := ds.MaxDims[0]; m != 0 && dim0 > m {
		return fmt.Errorf("%w: cannot extend %s to %d rows, maximum is %d", ErrOutOfBounds, d.path, dim0, m)
	}
	ds.Dims[0] = dim0
	d.f.changed = true
	return nil
}

// Resize grows the dataset to dims. Every dimension may grow up to its
// maximum; smaller values keep the current extent.
func (d *Dataset) Resize(dims []uint64) error {
	d.f.mu.Lock()
	defer d.f.mu.Unlock()

	if err := d.f.checkWritable(); err != nil {
		return err
	}
	ds, err := d.meta()
	if err != nil {
		return err
	}
	if len(dims) != len(ds.Dims) {
		return fmt.Errorf("store: resize %s: rank %d, dataset rank %d", d.path, len(dims), len(ds.Dims))
	}
	next := append([]uint64(nil), ds.Dims...)
	for i, v := range dims {
		if v <= next[i] {
			continue
		}
		if m := ds.MaxDims[i]; m != 0 && v > m {
			return fmt.Errorf("%w: cannot resize dimension %d of %s to %d, maximum is %d", ErrOutOfBounds, i, d.path, v, m)
		}
		next[i] = v
	}
	if !slices.Equal(next, ds.Dims) {
		ds.Dims = next
		d.f.changed = true
	}
	return nil
}
