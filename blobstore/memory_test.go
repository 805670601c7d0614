package blobstore

import (
	"context"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStore_Lifecycle(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	data := []byte("chunk 0_0")
	require.NoError(t, s.Put(ctx, "chunks/1/0_0", data))
	data[0] = 'X' // caller mutation must not leak into the store

	b, err := s.Open(ctx, "chunks/1/0_0")
	require.NoError(t, err)
	defer b.Close()
	assert.Equal(t, int64(9), b.Size())

	buf := make([]byte, 3)
	n, err := b.ReadAt(ctx, buf, 6)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	assert.Equal(t, "0_0", string(buf))

	n, err = b.ReadAt(ctx, buf, 8)
	assert.Equal(t, 1, n)
	assert.ErrorIs(t, err, io.EOF)

	all, err := ReadAll(ctx, s, "chunks/1/0_0")
	require.NoError(t, err)
	assert.Equal(t, "chunk 0_0", string(all))

	require.NoError(t, s.Put(ctx, "chunks/1/0_1", nil))
	require.NoError(t, s.Put(ctx, "CURRENT", []byte("manifest/1.json")))

	names, err := s.List(ctx, "chunks/")
	require.NoError(t, err)
	assert.Equal(t, []string{"chunks/1/0_0", "chunks/1/0_1"}, names)

	require.NoError(t, s.Delete(ctx, "chunks/1/0_0"))
	require.NoError(t, s.Delete(ctx, "chunks/1/0_0"))
	_, err = s.Open(ctx, "chunks/1/0_0")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Equal(t, 2, s.Len())
}
