package blobstore

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalStore_Lifecycle(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()
	s := NewLocalStore(root)

	payload := []byte("framed chunk bytes")
	require.NoError(t, s.Put(ctx, "chunks/7/2_3", payload))

	_, err := os.Stat(filepath.Join(root, "chunks", "7", "2_3"))
	require.NoError(t, err)

	b, err := s.Open(ctx, "chunks/7/2_3")
	require.NoError(t, err)
	assert.Equal(t, int64(len(payload)), b.Size())

	m, ok := b.(Mappable)
	require.True(t, ok)
	mapped, err := m.Bytes()
	require.NoError(t, err)
	assert.Equal(t, payload, mapped)
	require.NoError(t, b.Close())

	// Overwrite is atomic and visible to the next Open.
	require.NoError(t, s.Put(ctx, "chunks/7/2_3", []byte("v2")))
	all, err := ReadAll(ctx, s, "chunks/7/2_3")
	require.NoError(t, err)
	assert.Equal(t, "v2", string(all))

	require.NoError(t, s.Put(ctx, "CURRENT", []byte("manifest/00000001.json")))
	names, err := s.List(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, []string{"CURRENT", "chunks/7/2_3"}, names)

	require.NoError(t, s.Delete(ctx, "chunks/7/2_3"))
	require.NoError(t, s.Delete(ctx, "chunks/7/2_3"))

	_, err = s.Open(ctx, "chunks/7/2_3")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestLocalStore_ListMissingRoot(t *testing.T) {
	s := NewLocalStore(filepath.Join(t.TempDir(), "absent"))
	names, err := s.List(context.Background(), "")
	require.NoError(t, err)
	assert.Empty(t, names)
}
