package blobstore

import (
	"context"

	"github.com/hupe1980/kea/internal/cache"
	"github.com/hupe1980/kea/resource"
	"golang.org/x/sync/errgroup"
)

// Prefetcher is implemented by stores that can warm several blobs at once.
type Prefetcher interface {
	Prefetch(ctx context.Context, names []string) error
}

// CachingStore wraps a BlobStore and caches whole blobs on read.
//
// Chunk blobs are small and always rewritten whole, so caching at blob
// granularity keeps invalidation trivial: every Put or Delete drops the
// entry for that name.
type CachingStore struct {
	inner       BlobStore
	cache       cache.BlockCache
	concurrency int
}

// NewCachingStore creates a CachingStore holding at most capacity bytes.
// Cached bytes are reserved from rc when it is non-nil.
func NewCachingStore(inner BlobStore, capacity int64, rc *resource.Controller) *CachingStore {
	return &CachingStore{
		inner:       inner,
		cache:       cache.NewLRUBlockCache(capacity, rc),
		concurrency: 16,
	}
}

// Stats returns cache hit and miss counts.
func (s *CachingStore) Stats() (hits, misses int64) {
	return s.cache.Stats()
}

func blobKey(name string) cache.CacheKey {
	return cache.CacheKey{Kind: cache.CacheKindBlob, Path: name}
}

// Open returns the cached content, loading it from the inner store on a miss.
func (s *CachingStore) Open(ctx context.Context, name string) (Blob, error) {
	if data, ok := s.cache.Get(ctx, blobKey(name)); ok {
		return &memoryBlob{data: data}, nil
	}
	data, err := s.load(ctx, name)
	if err != nil {
		return nil, err
	}
	return &memoryBlob{data: data}, nil
}

func (s *CachingStore) load(ctx context.Context, name string) ([]byte, error) {
	data, err := ReadAll(ctx, s.inner, name)
	if err != nil {
		return nil, err
	}
	s.cache.Set(ctx, blobKey(name), data)
	return data, nil
}

// Prefetch loads every missing blob with up to 16 concurrent backend reads.
// Missing blobs are skipped.
func (s *CachingStore) Prefetch(ctx context.Context, names []string) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)

	for _, name := range names {
		if _, ok := s.cache.Get(ctx, blobKey(name)); ok {
			continue
		}
		g.Go(func() error {
			_, err := s.load(gctx, name)
			if err != nil && !isNotFound(err) {
				return err
			}
			return nil
		})
	}
	return g.Wait()
}

// Put writes through to the inner store and refreshes the cache entry.
func (s *CachingStore) Put(ctx context.Context, name string, data []byte) error {
	s.invalidate(name)
	if err := s.inner.Put(ctx, name, data); err != nil {
		return err
	}
	s.cache.Set(ctx, blobKey(name), append([]byte(nil), data...))
	return nil
}

// Delete removes the blob from the inner store and the cache.
func (s *CachingStore) Delete(ctx context.Context, name string) error {
	s.invalidate(name)
	return s.inner.Delete(ctx, name)
}

// List is served by the inner store.
func (s *CachingStore) List(ctx context.Context, prefix string) ([]string, error) {
	return s.inner.List(ctx, prefix)
}

func (s *CachingStore) invalidate(name string) {
	s.cache.Invalidate(func(key cache.CacheKey) bool {
		return key.Kind == cache.CacheKindBlob && key.Path == name
	})
}
