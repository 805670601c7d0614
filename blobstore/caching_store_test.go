package blobstore

import (
	"context"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingStore struct {
	*MemoryStore
	opens atomic.Int64
}

func (c *countingStore) Open(ctx context.Context, name string) (Blob, error) {
	c.opens.Add(1)
	return c.MemoryStore.Open(ctx, name)
}

func TestCachingStore(t *testing.T) {
	ctx := context.Background()
	inner := &countingStore{MemoryStore: NewMemoryStore()}
	require.NoError(t, inner.Put(ctx, "a", []byte("alpha")))
	require.NoError(t, inner.Put(ctx, "b", []byte("beta")))

	s := NewCachingStore(inner, 1<<10, nil)

	for i := 0; i < 3; i++ {
		data, err := ReadAll(ctx, s, "a")
		require.NoError(t, err)
		assert.Equal(t, "alpha", string(data))
	}
	assert.Equal(t, int64(1), inner.opens.Load())

	hits, misses := s.Stats()
	assert.Equal(t, int64(2), hits)
	assert.Equal(t, int64(1), misses)

	// Put refreshes the cached copy without another backend read.
	require.NoError(t, s.Put(ctx, "a", []byte("alpha2")))
	data, err := ReadAll(ctx, s, "a")
	require.NoError(t, err)
	assert.Equal(t, "alpha2", string(data))
	assert.Equal(t, int64(1), inner.opens.Load())

	require.NoError(t, s.Delete(ctx, "a"))
	_, err = s.Open(ctx, "a")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCachingStore_Prefetch(t *testing.T) {
	ctx := context.Background()
	inner := &countingStore{MemoryStore: NewMemoryStore()}
	names := []string{"c/0", "c/1", "c/2", "c/3"}
	for _, n := range names {
		require.NoError(t, inner.Put(ctx, n, []byte(n)))
	}

	s := NewCachingStore(inner, 1<<10, nil)
	require.NoError(t, s.Prefetch(ctx, append(names, "c/missing")))
	opened := inner.opens.Load()
	assert.Equal(t, int64(5), opened)

	for _, n := range names {
		data, err := ReadAll(ctx, s, n)
		require.NoError(t, err)
		assert.Equal(t, n, string(data))
	}
	assert.Equal(t, opened, inner.opens.Load(), "prefetched blobs are served from cache")

	names2, err := s.List(ctx, "c/")
	require.NoError(t, err)
	assert.Len(t, names2, 4)
}
