package kea

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/kea/blobstore"
	"github.com/hupe1980/kea/dtype"
	"github.com/hupe1980/kea/store"
)

func newImage(t *testing.T, spec CreateOptions, opts ...Option) (*Image, *blobstore.MemoryStore) {
	t.Helper()
	ctx := context.Background()
	bs := blobstore.NewMemoryStore()
	img, err := Create(ctx, bs, spec, opts...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = img.Close(ctx) })
	return img, bs
}

func reopen(t *testing.T, img *Image, bs blobstore.BlobStore, opts ...Option) *Image {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, img.Close(ctx))
	out, err := Open(ctx, bs, opts...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = out.Close(ctx) })
	return out
}

func TestCreateOpenRoundTrip(t *testing.T) {
	ctx := context.Background()
	img, bs := newImage(t, CreateOptions{
		DataType:     dtype.Uint16,
		XSize:        60,
		YSize:        70,
		Bands:        2,
		Descriptions: []string{"", "NIR"},
		BlockSize:    32,
		SpatialInfo: &SpatialInfo{
			TLX: 500000, TLY: 4200000,
			XRes: 30, YRes: -30,
			XSize: 1, YSize: 1,
			WKT: "EPSG:32633",
		},
	})

	buf := make([]uint16, 60*70)
	for i := range buf {
		buf[i] = uint16(i % 1021)
	}
	require.NoError(t, img.WriteBlock(ctx, 1, buf, 0, 0, 60, 70, 60, 70))

	img = reopen(t, img, bs)

	n, err := img.NumBands(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint32(2), n)

	si, err := img.SpatialInfo(ctx)
	require.NoError(t, err)
	assert.Equal(t, SpatialInfo{
		TLX: 500000, TLY: 4200000,
		XRes: 30, YRes: -30,
		XSize: 60, YSize: 70,
		WKT: "EPSG:32633",
	}, si)

	desc, err := img.BandDescription(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "Band 1", desc)
	desc, err = img.BandDescription(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, "NIR", desc)

	pt, err := img.BandDataType(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, dtype.Uint16, pt)

	bsz, err := img.BandBlockSize(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, uint32(32), bsz)

	got := make([]uint16, 60*70)
	require.NoError(t, img.ReadBlock(ctx, 1, got, 0, 0, 60, 70, 60, 70))
	assert.Equal(t, buf, got)

	lt, err := img.BandLayerType(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, Continuous, lt)
	ci, err := img.BandColourInterp(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, Generic, ci)
}

func TestCreateDefaults(t *testing.T) {
	ctx := context.Background()
	img, _ := newImage(t, CreateOptions{XSize: 25, YSize: 50, Bands: 1})

	si, err := img.SpatialInfo(ctx)
	require.NoError(t, err)
	assert.Equal(t, SpatialInfo{XRes: 1, YRes: -1, XSize: 25, YSize: 50}, si)

	pt, err := img.BandDataType(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, dtype.Uint8, pt)

	bs, err := img.BandBlockSize(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, uint32(25), bs)

	cs, err := img.AttributeTableChunkSize(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, uint32(1000), cs)
}

func TestCreateValidation(t *testing.T) {
	ctx := context.Background()

	_, err := Create(ctx, blobstore.NewMemoryStore(), CreateOptions{XSize: 0, YSize: 10})
	var sizeErr *ErrInvalidSize
	require.ErrorAs(t, err, &sizeErr)
	assert.Equal(t, uint64(10), sizeErr.YSize)

	_, err = Create(ctx, blobstore.NewMemoryStore(), CreateOptions{XSize: 10, YSize: 10, DataType: dtype.DataType(42)})
	assert.ErrorIs(t, err, dtype.ErrUnsupported)

	_, err = Create(ctx, blobstore.NewMemoryStore(), CreateOptions{XSize: 10, YSize: 10}, WithReadOnly())
	assert.ErrorIs(t, err, ErrReadOnly)
}

func TestOpenRejectsForeignFile(t *testing.T) {
	ctx := context.Background()
	bs := blobstore.NewMemoryStore()
	f, err := store.Create(ctx, bs)
	require.NoError(t, err)
	require.NoError(t, writeStrings(ctx, f, fileTypePath, "GTiff"))
	require.NoError(t, f.Close(ctx))

	_, err = Open(ctx, bs)
	require.ErrorIs(t, err, ErrNotKEA)
	var hdr *ErrHeader
	require.ErrorAs(t, err, &hdr)
	assert.Equal(t, "FILETYPE", hdr.Item)
}

func TestSetSpatialInfoKeepsExtent(t *testing.T) {
	ctx := context.Background()
	img, bs := newImage(t, CreateOptions{XSize: 8, YSize: 6, Bands: 1})

	require.NoError(t, img.SetSpatialInfo(ctx, SpatialInfo{
		TLX: 1, TLY: 2, XRes: 0.5, YRes: -0.5, XRot: 0.1, YRot: 0.2,
		XSize: 100, YSize: 100, WKT: "LOCAL_CS[\"grid\"]",
	}))
	img = reopen(t, img, bs)

	si, err := img.SpatialInfo(ctx)
	require.NoError(t, err)
	assert.Equal(t, SpatialInfo{
		TLX: 1, TLY: 2, XRes: 0.5, YRes: -0.5, XRot: 0.1, YRot: 0.2,
		XSize: 8, YSize: 6, WKT: "LOCAL_CS[\"grid\"]",
	}, si)
}

func TestReadOnly(t *testing.T) {
	ctx := context.Background()
	img, bs := newImage(t, CreateOptions{XSize: 8, YSize: 8, Bands: 1})
	require.NoError(t, img.SetMetadata(ctx, "SENSOR", "OLI"))

	img = reopen(t, img, bs, WithReadOnly())
	assert.True(t, img.ReadOnly())

	v, err := img.Metadata(ctx, "SENSOR")
	require.NoError(t, err)
	assert.Equal(t, "OLI", v)

	assert.ErrorIs(t, img.SetMetadata(ctx, "SENSOR", "TM"), ErrReadOnly)
	assert.ErrorIs(t, img.WriteBlock(ctx, 1, make([]uint8, 4), 0, 0, 2, 2, 2, 2), ErrReadOnly)
	assert.NoError(t, img.Flush(ctx))
}

func TestClosedImage(t *testing.T) {
	ctx := context.Background()
	img, _ := newImage(t, CreateOptions{XSize: 8, YSize: 8, Bands: 1})
	require.NoError(t, img.Close(ctx))
	require.NoError(t, img.Close(ctx))

	_, err := img.NumBands(ctx)
	assert.ErrorIs(t, err, ErrClosed)
	assert.ErrorIs(t, img.Flush(ctx), ErrClosed)
}

func TestMetricsAndLogging(t *testing.T) {
	ctx := context.Background()
	metrics := &BasicMetricsCollector{}
	var logs bytes.Buffer
	logger := NewLogger(slog.NewTextHandler(&logs, &slog.HandlerOptions{Level: slog.LevelDebug}))

	img, _ := newImage(t, CreateOptions{XSize: 8, YSize: 8, Bands: 1},
		WithMetricsCollector(metrics), WithLogger(logger))

	require.NoError(t, img.WriteBlock(ctx, 1, make([]uint8, 16), 0, 0, 4, 4, 4, 4))
	require.NoError(t, img.ReadBlock(ctx, 1, make([]uint8, 4), 2, 2, 2, 2, 2, 2))
	err := img.ReadBlock(ctx, 9, make([]uint8, 4), 0, 0, 2, 2, 2, 2)
	require.ErrorIs(t, err, ErrInvalidBand)
	require.NoError(t, img.CreateOverview(ctx, 1, 1, 4, 4))
	require.NoError(t, img.Flush(ctx))

	stats := metrics.GetStats()
	assert.Equal(t, int64(1), stats.BlockWriteCount)
	assert.Equal(t, int64(16), stats.BlockWritePixels)
	assert.Equal(t, int64(2), stats.BlockReadCount)
	assert.Equal(t, int64(1), stats.BlockReadErrors)
	assert.Equal(t, int64(4), stats.BlockReadPixels)
	assert.Equal(t, int64(1), stats.OverviewCount)
	assert.Equal(t, int64(2), stats.FlushCount)
	assert.Zero(t, stats.FlushErrors)

	out := logs.String()
	assert.Contains(t, out, "image created")
	assert.Contains(t, out, "block read failed")
	assert.Contains(t, out, "overview create completed")
	assert.Contains(t, out, "flush completed")
}

func TestTranslateError(t *testing.T) {
	assert.Nil(t, translateError(nil))

	err := translateError(store.ErrNotFound)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, err, store.ErrNotFound)

	err = translateError(store.ErrReadOnly)
	assert.ErrorIs(t, err, ErrReadOnly)

	plain := errors.New("boom")
	assert.Equal(t, plain, translateError(plain))

	once := translateError(store.ErrClosed)
	assert.Equal(t, once, translateError(once))
}

// failingStore rejects commits of the CURRENT pointer while fail is set.
type failingStore struct {
	blobstore.BlobStore
	fail    bool
	commits int
}

func (s *failingStore) Put(ctx context.Context, name string, data []byte) error {
	if name == "CURRENT" {
		s.commits++
		if s.fail {
			return errors.New("put rejected")
		}
	}
	return s.BlobStore.Put(ctx, name, data)
}

func TestCreateDiscardsOnFailedCommit(t *testing.T) {
	ctx := context.Background()
	bs := &failingStore{BlobStore: blobstore.NewMemoryStore(), fail: true}

	_, err := Create(ctx, bs, CreateOptions{XSize: 8, YSize: 8, Bands: 1})
	require.Error(t, err)
	assert.Equal(t, 1, bs.commits)

	bs.fail = false
	img, err := Create(ctx, bs, CreateOptions{XSize: 8, YSize: 8, Bands: 1})
	require.NoError(t, err)
	require.NoError(t, img.Close(ctx))
	assert.Equal(t, 2, bs.commits)
}
