package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"path"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/hupe1980/kea/blobstore"
	"github.com/hupe1980/kea/internal/cache"
	"github.com/hupe1980/kea/internal/manifest"
)

// File is an open container.
type File struct {
	mu sync.Mutex

	bs        blobstore.BlobStore
	manifests *manifest.Store
	m         *manifest.Manifest
	opts      options
	logger    *slog.Logger
	cache     *cache.LRUBlockCache

	dirty   map[chunkID]*chunk
	garbage []string // chunk blobs to delete after the next commit
	changed bool
	closed  bool
}

func newFile(bs blobstore.BlobStore, m *manifest.Manifest, o options) *File {
	return &File{
		bs:        bs,
		manifests: manifest.NewStore(bs, o.codec),
		m:         m,
		opts:      o,
		logger:    o.logger,
		cache:     cache.NewLRUBlockCache(o.cacheBytes, o.rc),
		dirty:     make(map[chunkID]*chunk),
	}
}

// Create creates an empty container in bs. It fails with ErrExists if bs
// already holds one.
func Create(ctx context.Context, bs blobstore.BlobStore, opts ...Option) (*File, error) {
	o := applyOptions(opts)
	if o.readOnly {
		return nil, ErrReadOnly
	}

	_, err := manifest.NewStore(bs, o.codec).Load(ctx)
	switch {
	case err == nil:
		return nil, fmt.Errorf("%w: container already present", ErrExists)
	case !errors.Is(err, manifest.ErrNotFound):
		return nil, err
	}

	f := newFile(bs, manifest.New(uuid.NewString()), o)
	f.changed = true
	f.logger.DebugContext(ctx, "container created", "uuid", f.m.UUID)
	return f, nil
}

// Open opens the container committed in bs.
func Open(ctx context.Context, bs blobstore.BlobStore, opts ...Option) (*File, error) {
	o := applyOptions(opts)

	m, err := manifest.NewStore(bs, o.codec).Load(ctx)
	if err != nil {
		if errors.Is(err, manifest.ErrNotFound) {
			return nil, fmt.Errorf("%w: no container", ErrNotFound)
		}
		return nil, err
	}

	f := newFile(bs, m, o)
	f.logger.DebugContext(ctx, "container opened", "uuid", m.UUID, "generation", m.ID, "objects", len(m.Objects))
	return f, nil
}

// UUID returns the container's identity, fixed at creation.
func (f *File) UUID() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.m.UUID
}

// Generation returns the id of the last committed manifest, 0 before the
// first Flush.
func (f *File) Generation() uint64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.m.ID
}

// ReadOnly reports whether the file rejects mutations.
func (f *File) ReadOnly() bool { return f.opts.readOnly }

// CacheStats returns chunk cache hit and miss counts.
func (f *File) CacheStats() (hits, misses int64) { return f.cache.Stats() }

// Close flushes pending writes and releases the chunk cache. The file is
// closed even when the flush fails.
func (f *File) Close(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closed {
		return nil
	}
	var err error
	if !f.opts.readOnly {
		err = f.flushLocked(ctx)
	}
	f.closed = true
	f.cache.Invalidate(func(cache.CacheKey) bool { return true })
	f.dirty = nil
	return err
}

// Discard closes f without committing. Buffered writes are dropped and the
// block cache is released. It is a no-op on a closed file.
func (f *File) Discard() {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closed {
		return
	}
	f.closed = true
	f.cache.Invalidate(func(cache.CacheKey) bool { return true })
	f.dirty = nil
	f.garbage = nil
}

func (f *File) checkOpen() error {
	if f.closed {
		return ErrClosed
	}
	return nil
}

func (f *File) checkWritable() error {
	if f.closed {
		return ErrClosed
	}
	if f.opts.readOnly {
		return ErrReadOnly
	}
	return nil
}

// cleanPath normalises p to an absolute slash path.
func cleanPath(p string) (string, error) {
	if p == "" {
		return "", ErrInvalidPath
	}
	return path.Clean("/" + p), nil
}

func (f *File) object(p string) (*manifest.Object, string, error) {
	p, err := cleanPath(p)
	if err != nil {
		return nil, "", err
	}
	obj, ok := f.m.Objects[p]
	if !ok {
		return nil, p, fmt.Errorf("%w: %s", ErrNotFound, p)
	}
	return obj, p, nil
}

// ensureParents creates the missing ancestor groups of p.
func (f *File) ensureParents(p string) error {
	parent := path.Dir(p)
	if parent == p {
		return nil
	}
	if obj, ok := f.m.Objects[parent]; ok {
		if obj.Kind != manifest.KindGroup {
			return fmt.Errorf("%w: %s", ErrNotGroup, parent)
		}
		return nil
	}
	if err := f.ensureParents(parent); err != nil {
		return err
	}
	f.m.Objects[parent] = &manifest.Object{Kind: manifest.KindGroup}
	return nil
}

// CreateGroup creates a group and any missing ancestors.
func (f *File) CreateGroup(p string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.checkWritable(); err != nil {
		return err
	}
	p, err := cleanPath(p)
	if err != nil {
		return err
	}
	if _, ok := f.m.Objects[p]; ok {
		return fmt.Errorf("%w: %s", ErrExists, p)
	}
	if err := f.ensureParents(p); err != nil {
		return err
	}
	f.m.Objects[p] = &manifest.Object{Kind: manifest.KindGroup}
	f.changed = true
	return nil
}

// Exists reports whether an object exists at p.
func (f *File) Exists(p string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()

	obj, _, err := f.object(p)
	return err == nil && obj != nil
}

// HasGroup reports whether a group exists at p.
func (f *File) HasGroup(p string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()

	obj, _, err := f.object(p)
	return err == nil && obj.Kind == manifest.KindGroup
}

// HasDataset reports whether a dataset exists at p.
func (f *File) HasDataset(p string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()

	obj, _, err := f.object(p)
	return err == nil && obj.Kind == manifest.KindDataset
}

// Children returns the sorted names of the direct children of group p.
func (f *File) Children(p string) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.checkOpen(); err != nil {
		return nil, err
	}
	obj, p, err := f.object(p)
	if err != nil {
		return nil, err
	}
	if obj.Kind != manifest.KindGroup {
		return nil, fmt.Errorf("%w: %s", ErrNotGroup, p)
	}

	prefix := p
	if prefix != "/" {
		prefix += "/"
	}
	var names []string
	for child := range f.m.Objects {
		if child == p || !strings.HasPrefix(child, prefix) {
			continue
		}
		rest := child[len(prefix):]
		if !strings.Contains(rest, "/") {
			names = append(names, rest)
		}
	}
	sort.Strings(names)
	return names, nil
}

// Unlink removes the object at p and everything below it. Chunk blobs of
// removed datasets are deleted on the next Flush.
func (f *File) Unlink(p string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.checkWritable(); err != nil {
		return err
	}
	_, p, err := f.object(p)
	if err != nil {
		return err
	}
	if p == "/" {
		return fmt.Errorf("%w: cannot unlink the root group", ErrInvalidPath)
	}

	prefix := p + "/"
	for candidate, obj := range f.m.Objects {
		if candidate != p && !strings.HasPrefix(candidate, prefix) {
			continue
		}
		if ds := obj.Dataset; ds != nil {
			f.dropDataset(ds)
		}
		delete(f.m.Objects, candidate)
	}
	f.changed = true
	return nil
}

func (f *File) dropDataset(ds *manifest.Dataset) {
	for key := range ds.Written {
		f.garbage = append(f.garbage, manifest.ChunkBlobName(ds.ID, key))
	}
	for id := range f.dirty {
		if id.dataset == ds.ID {
			delete(f.dirty, id)
		}
	}
	f.cache.Invalidate(func(k cache.CacheKey) bool {
		return k.Kind == cache.CacheKindChunk && k.Dataset == ds.ID
	})
}

// Rename moves the object at from, and everything below it, to to. The
// parent groups of to are created as needed. Chunk blobs are keyed by
// dataset and stay where they are; open Dataset handles of moved datasets
// report ErrNotFound.
func (f *File) Rename(from, to string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.checkWritable(); err != nil {
		return err
	}
	_, from, err := f.object(from)
	if err != nil {
		return err
	}
	if to, err = cleanPath(to); err != nil {
		return err
	}
	if from == "/" || to == "/" || strings.HasPrefix(to+"/", from+"/") {
		return fmt.Errorf("%w: cannot move %s to %s", ErrInvalidPath, from, to)
	}
	if _, ok := f.m.Objects[to]; ok {
		return fmt.Errorf("%w: %s", ErrExists, to)
	}
	if err := f.ensureParents(to); err != nil {
		return err
	}

	prefix := from + "/"
	moved := make(map[string]*manifest.Object)
	for candidate, obj := range f.m.Objects {
		switch {
		case candidate == from:
			moved[to] = obj
		case strings.HasPrefix(candidate, prefix):
			moved[to+"/"+candidate[len(prefix):]] = obj
		default:
			continue
		}
		delete(f.m.Objects, candidate)
	}
	maps.Copy(f.m.Objects, moved)
	f.changed = true
	return nil
}
