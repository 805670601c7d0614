package cache

import "context"

// CacheKind separates key spaces.
type CacheKind uint8

const (
	CacheKindUnknown CacheKind = iota
	CacheKindChunk             // decoded dataset chunk payloads
	CacheKindBlob              // whole blobs read through a CachingStore
)

// CacheKey identifies one cached block.
type CacheKey struct {
	Kind CacheKind
	// Dataset is the store-assigned dataset id for chunk entries.
	Dataset uint64
	// Offset is the linear chunk index within the dataset.
	Offset uint64
	// Path names the blob for blob entries.
	Path string
}

// BlockCache is a byte-oriented cache.
// Returned slices must be treated as read-only.
type BlockCache interface {
	Get(ctx context.Context, key CacheKey) (b []byte, ok bool)
	Set(ctx context.Context, key CacheKey, b []byte)
	Invalidate(predicate func(key CacheKey) bool)
	Stats() (hits, misses int64)
}
