package manifest

import (
	"context"
	"math"
	"testing"

	"github.com/hupe1980/kea/blobstore"
	"github.com/hupe1980/kea/codec"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStore_SaveLoad(t *testing.T) {
	ctx := context.Background()
	bs := blobstore.NewMemoryStore()
	store := NewStore(bs, nil)

	_, err := store.Load(ctx)
	assert.ErrorIs(t, err, ErrNotFound)

	m := New("7d444840-9dc0-11d1-b245-5ffdce74fad2")
	m.Objects["/BAND1"] = &Object{Kind: KindGroup, Attributes: map[string]Attribute{
		"CLASS": {Type: "string", String: "IMAGE"},
	}}
	m.Objects["/BAND1/DATA"] = &Object{Kind: KindDataset, Dataset: &Dataset{
		ID:          1,
		Type:        Type{Class: 0, Numeric: 5},
		Dims:        []uint64{10, 20},
		MaxDims:     []uint64{10, 20},
		Chunks:      []uint64{5, 5},
		Fill:        []byte{0},
		Compression: "zstd",
		Written:     map[string]int64{"0_0": 42},
	}}

	require.NoError(t, store.Save(ctx, m))
	assert.Equal(t, uint64(1), m.ID)

	loaded, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, m.UUID, loaded.UUID)
	assert.Equal(t, uint64(1), loaded.ID)
	assert.Equal(t, "IMAGE", loaded.Objects["/BAND1"].Attributes["CLASS"].String)
	assert.Equal(t, int64(42), loaded.Objects["/BAND1/DATA"].Dataset.Written["0_0"])

	require.NoError(t, store.Save(ctx, loaded))
	ids, err := store.ListVersions(ctx)
	require.NoError(t, err)
	assert.Equal(t, []uint64{1, 2}, ids)

	v1, err := store.LoadVersion(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), v1.ID)

	require.NoError(t, store.DeleteVersion(ctx, 1))
	_, err = store.LoadVersion(ctx, 1)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStore_CrossCodec(t *testing.T) {
	ctx := context.Background()
	bs := blobstore.NewMemoryStore()

	require.NoError(t, NewStore(bs, codec.JSON{}).Save(ctx, New("u")))

	m, err := NewStore(bs, codec.GoJSON{}).Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, "u", m.UUID)
}

func TestStore_IncompatibleVersion(t *testing.T) {
	ctx := context.Background()
	bs := blobstore.NewMemoryStore()

	name := FileName(7, codec.JSON{})
	require.NoError(t, bs.Put(ctx, name, []byte(`{"version":999,"id":7}`)))
	require.NoError(t, bs.Put(ctx, CurrentFileName, []byte(name)))

	_, err := NewStore(bs, nil).Load(ctx)
	assert.ErrorIs(t, err, ErrIncompatibleVersion)
}

func TestClone(t *testing.T) {
	m := New("u")
	m.Objects["/d"] = &Object{Kind: KindDataset, Dataset: &Dataset{Dims: []uint64{1}, Written: map[string]int64{"0": 1}}}

	c := m.Clone()
	c.Objects["/d"].Dataset.Dims[0] = 9
	c.Objects["/d"].Dataset.Written["1"] = 2

	assert.Equal(t, uint64(1), m.Objects["/d"].Dataset.Dims[0])
	assert.Len(t, m.Objects["/d"].Dataset.Written, 1)
}

func TestFileNames(t *testing.T) {
	name := FileName(12, codec.GoJSON{})
	assert.Equal(t, "manifest/00000000000000000012.go-json", name)

	id, c, ok := ParseFileName(name)
	require.True(t, ok)
	assert.Equal(t, uint64(12), id)
	assert.Equal(t, "go-json", c)

	assert.Equal(t, "chunks/3/1_2", ChunkBlobName(3, ChunkKey(1, 2)))
}

func TestFloat_NonFinite(t *testing.T) {
	for _, c := range []codec.Codec{codec.JSON{}, codec.GoJSON{}} {
		t.Run(c.Name(), func(t *testing.T) {
			in := map[string]Attribute{
				"nan":  {Type: "float", Float: Float(math.NaN())},
				"inf":  {Type: "float", Float: Float(math.Inf(-1))},
				"half": {Type: "float", Float: 0.5},
			}
			data, err := c.Marshal(in)
			require.NoError(t, err)

			var out map[string]Attribute
			require.NoError(t, c.Unmarshal(data, &out))
			assert.True(t, math.IsNaN(float64(out["nan"].Float)))
			assert.True(t, math.IsInf(float64(out["inf"].Float), -1))
			assert.Equal(t, Float(0.5), out["half"].Float)
		})
	}
}
