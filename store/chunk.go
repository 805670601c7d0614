package store

import (
	"context"
	"encoding/binary"
	"fmt"

	"github.com/hupe1980/kea/blobstore"
	"github.com/hupe1980/kea/internal/cache"
	"github.com/hupe1980/kea/internal/filter"
	"github.com/hupe1980/kea/internal/manifest"
)

type chunkID struct {
	dataset  uint64
	row, col uint64
}

// chunk is a decoded chunk. Numeric datasets use fixed, the variable
// classes hold one element encoding per entry of vars.
type chunk struct {
	fixed []byte
	vars  [][]byte
}

// layout is the 2-D view of a dataset; rank 1 datasets have one column.
type layout struct {
	rank   int
	dims   [2]uint64
	chunks [2]uint64
	elems  int
}

func layoutOf(ds *manifest.Dataset) layout {
	l := layout{rank: len(ds.Dims), dims: [2]uint64{ds.Dims[0], 1}, chunks: [2]uint64{ds.Chunks[0], 1}}
	if l.rank == 2 {
		l.dims[1] = ds.Dims[1]
		l.chunks[1] = ds.Chunks[1]
	}
	l.elems = int(l.chunks[0] * l.chunks[1])
	return l
}

func (l layout) key(id chunkID) string {
	if l.rank == 1 {
		return manifest.ChunkKey(id.row)
	}
	return manifest.ChunkKey(id.row, id.col)
}

// selection validates a hyperslab and returns its 2-D form.
func (l layout) selection(start, count []uint64) (s, c [2]uint64, err error) {
	if len(start) != l.rank || len(count) != l.rank {
		return s, c, fmt.Errorf("%w: selection rank %d/%d, dataset rank %d", ErrOutOfBounds, len(start), len(count), l.rank)
	}
	s, c = [2]uint64{start[0], 0}, [2]uint64{count[0], 1}
	if l.rank == 2 {
		s[1], c[1] = start[1], count[1]
	}
	for i := 0; i < 2; i++ {
		end := s[i] + c[i]
		if end < s[i] || end > l.dims[i] {
			return s, c, fmt.Errorf("%w: [%d,%d) exceeds dimension %d of size %d", ErrOutOfBounds, s[i], end, i, l.dims[i])
		}
	}
	return s, c, nil
}

// span is the intersection of a selection with one chunk.
type span struct {
	id             chunkID
	r0, r1, c0, c1 uint64
}

func (l layout) spans(datasetID uint64, s, c [2]uint64) []span {
	if c[0] == 0 || c[1] == 0 {
		return nil
	}
	var out []span
	for cr := s[0] / l.chunks[0]; cr <= (s[0]+c[0]-1)/l.chunks[0]; cr++ {
		for cc := s[1] / l.chunks[1]; cc <= (s[1]+c[1]-1)/l.chunks[1]; cc++ {
			out = append(out, span{
				id: chunkID{dataset: datasetID, row: cr, col: cc},
				r0: max(s[0], cr*l.chunks[0]),
				r1: min(s[0]+c[0], (cr+1)*l.chunks[0]),
				c0: max(s[1], cc*l.chunks[1]),
				c1: min(s[1]+c[1], (cc+1)*l.chunks[1]),
			})
		}
	}
	return out
}

// each calls fn for every row run of sp with the element offset inside the
// chunk, the offset inside the packed selection and the run length.
func (l layout) each(sp span, s, c [2]uint64, fn func(ci, ui, n int)) {
	or, oc := sp.id.row*l.chunks[0], sp.id.col*l.chunks[1]
	n := int(sp.c1 - sp.c0)
	for r := sp.r0; r < sp.r1; r++ {
		ci := (r-or)*l.chunks[1] + (sp.c0 - oc)
		ui := (r-s[0])*c[1] + (sp.c0 - s[1])
		fn(int(ci), int(ui), n)
	}
}

func fillChunk(t Datatype, l layout, fill []byte) *chunk {
	if t.fixed() {
		size := len(fill)
		b := make([]byte, l.elems*size)
		if !allZero(fill) {
			for i := 0; i < l.elems; i++ {
				copy(b[i*size:], fill)
			}
		}
		return &chunk{fixed: b}
	}
	vars := make([][]byte, l.elems)
	for i := range vars {
		vars[i] = fill
	}
	return &chunk{vars: vars}
}

func allZero(b []byte) bool {
	for _, v := range b {
		if v != 0 {
			return false
		}
	}
	return true
}

func (c *chunk) payload(t Datatype) []byte {
	if t.fixed() {
		return c.fixed
	}
	n := 0
	for _, v := range c.vars {
		n += binary.MaxVarintLen64 + len(v)
	}
	out := make([]byte, 0, n)
	for _, v := range c.vars {
		out = binary.AppendUvarint(out, uint64(len(v)))
		out = append(out, v...)
	}
	return out
}

func decodeChunk(t Datatype, l layout, payload []byte) (*chunk, error) {
	if t.fixed() {
		if want := l.elems * t.Numeric.Size(); len(payload) != want {
			return nil, fmt.Errorf("store: corrupt chunk: %d bytes, want %d", len(payload), want)
		}
		return &chunk{fixed: payload}, nil
	}
	vars := make([][]byte, l.elems)
	for i := range vars {
		n, k := binary.Uvarint(payload)
		if k <= 0 || uint64(len(payload)-k) < n {
			return nil, fmt.Errorf("store: corrupt chunk at element %d", i)
		}
		vars[i] = payload[k : k+int(n)]
		payload = payload[k+int(n):]
	}
	return &chunk{vars: vars}, nil
}

// cacheKeyOf packs the grid position so that keys survive a change of the
// grid width when a dataset grows along its second dimension.
func cacheKeyOf(id chunkID) cache.CacheKey {
	return cache.CacheKey{Kind: cache.CacheKindChunk, Dataset: id.dataset, Offset: id.row<<32 | id.col}
}

// readChunk returns the current content of a chunk. The result must not be
// modified.
func (f *File) readChunk(ctx context.Context, ds *manifest.Dataset, t Datatype, l layout, id chunkID) (*chunk, error) {
	if c, ok := f.dirty[id]; ok {
		return c, nil
	}
	key := l.key(id)
	if _, written := ds.Written[key]; !written {
		return fillChunk(t, l, ds.Fill), nil
	}
	if payload, ok := f.cache.Get(ctx, cacheKeyOf(id)); ok {
		return decodeChunk(t, l, payload)
	}

	name := manifest.ChunkBlobName(ds.ID, key)
	frame, err := blobstore.ReadAll(ctx, f.bs, name)
	if err != nil {
		return nil, fmt.Errorf("store: read chunk %s: %w", name, err)
	}
	compression, err := filter.ParseCompression(ds.Compression)
	if err != nil {
		return nil, err
	}
	payload, err := filter.Decode(frame, compression)
	if err != nil {
		return nil, fmt.Errorf("store: decode chunk %s: %w", name, err)
	}
	c, err := decodeChunk(t, l, payload)
	if err != nil {
		return nil, fmt.Errorf("store: chunk %s: %w", name, err)
	}
	f.cache.Set(ctx, cacheKeyOf(id), payload)
	return c, nil
}

// writableChunk returns a private, dirty copy of a chunk.
func (f *File) writableChunk(ctx context.Context, ds *manifest.Dataset, t Datatype, l layout, id chunkID) (*chunk, error) {
	if c, ok := f.dirty[id]; ok {
		return c, nil
	}
	c, err := f.readChunk(ctx, ds, t, l, id)
	if err != nil {
		return nil, err
	}
	w := &chunk{}
	if t.fixed() {
		w.fixed = append([]byte(nil), c.fixed...)
	} else {
		w.vars = append([][]byte(nil), c.vars...)
	}
	f.dirty[id] = w
	return w, nil
}

// prefetch warms the blob store cache for the written chunks among spans.
func (f *File) prefetch(ctx context.Context, ds *manifest.Dataset, l layout, spans []span) {
	p, ok := f.bs.(blobstore.Prefetcher)
	if !ok || len(spans) < 2 {
		return
	}
	var names []string
	for _, sp := range spans {
		if _, dirty := f.dirty[sp.id]; dirty {
			continue
		}
		key := l.key(sp.id)
		if _, written := ds.Written[key]; written {
			names = append(names, manifest.ChunkBlobName(ds.ID, key))
		}
	}
	if len(names) < 2 {
		return
	}
	if err := p.Prefetch(ctx, names); err != nil {
		f.logger.WarnContext(ctx, "chunk prefetch failed", "chunks", len(names), "error", err)
	}
}
