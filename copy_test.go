package kea

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/kea/dtype"
	"github.com/hupe1980/kea/rat"
)

func copySource(t *testing.T) (*Image, []uint8) {
	t.Helper()
	ctx := context.Background()
	src, _ := newImage(t, CreateOptions{DataType: dtype.Uint8, XSize: 40, YSize: 30, Bands: 1, BlockSize: 16})

	pixels := make([]uint8, 40*30)
	for y := range 30 {
		for x := range 40 {
			pixels[y*40+x] = uint8((x + 3*y) % 200)
		}
	}
	require.NoError(t, src.WriteBlock(ctx, 1, pixels, 0, 0, 40, 30, 40, 30))
	require.NoError(t, src.SetBandDescription(ctx, 1, "classes"))
	require.NoError(t, src.SetBandLayerType(ctx, 1, Thematic))
	require.NoError(t, src.SetNoData(ctx, 1, 7))
	require.NoError(t, src.SetBandMetadata(ctx, 1, "SOURCE", "classifier"))

	tbl := rat.NewInMemoryTable()
	require.NoError(t, tbl.AddField(ctx, "Histogram", rat.Float, 0.0, "PixelCount"))
	require.NoError(t, tbl.AddRows(ctx, 3))
	require.NoError(t, tbl.SetFloatFieldByName(ctx, 1, "Histogram", 42))
	require.NoError(t, src.ExportAttributeTable(ctx, 1, tbl))
	return src, pixels
}

func TestCopyBand(t *testing.T) {
	ctx := context.Background()
	src, pixels := copySource(t)
	dst, _ := newImage(t, CreateOptions{DataType: dtype.Int16, XSize: 40, YSize: 30, Bands: 1, BlockSize: 16})

	var fractions []float64
	err := src.CopyBand(ctx, dst, 1, 1, func(f float64) bool {
		fractions = append(fractions, f)
		return true
	})
	require.NoError(t, err)
	require.Len(t, fractions, 6)
	assert.InDelta(t, 1.0, fractions[5], 1e-9)

	got := make([]int16, 40*30)
	require.NoError(t, dst.ReadBlock(ctx, 1, got, 0, 0, 40, 30, 40, 30))
	for i, px := range pixels {
		require.Equal(t, int16(px), got[i], "pixel %d", i)
	}

	desc, err := dst.BandDescription(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "classes", desc)
	lt, err := dst.BandLayerType(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, Thematic, lt)
	nd, err := dst.NoData(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 7.0, nd)
	v, err := dst.BandMetadata(ctx, 1, "SOURCE")
	require.NoError(t, err)
	assert.Equal(t, "classifier", v)

	tbl, err := dst.AttributeTable(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, uint64(3), tbl.Size())
	h, err := tbl.GetFloatFieldByName(ctx, 1, "Histogram")
	require.NoError(t, err)
	assert.Equal(t, 42.0, h)
}

func TestCopyBandWithinImage(t *testing.T) {
	ctx := context.Background()
	src, pixels := copySource(t)
	band, err := src.AddBand(ctx, dtype.Uint8, "", 0)
	require.NoError(t, err)

	require.NoError(t, src.CopyBand(ctx, src, 1, band, nil))

	got := make([]uint8, 40*30)
	require.NoError(t, src.ReadBlock(ctx, band, got, 0, 0, 40, 30, 40, 30))
	assert.Equal(t, pixels, got)
}

func TestCopyBandAbort(t *testing.T) {
	ctx := context.Background()
	src, pixels := copySource(t)
	dst, _ := newImage(t, CreateOptions{DataType: dtype.Uint8, XSize: 40, YSize: 30, Bands: 1, BlockSize: 16})

	calls := 0
	err := src.CopyBand(ctx, dst, 1, 1, func(float64) bool {
		calls++
		return calls < 2
	})
	require.ErrorIs(t, err, ErrAborted)
	assert.Equal(t, 2, calls)

	// The first two blocks of the top row were written, the rest was not.
	row := make([]uint8, 40)
	require.NoError(t, dst.ReadBlock(ctx, 1, row, 0, 0, 40, 1, 40, 1))
	assert.Equal(t, pixels[:32], row[:32])
	assert.Equal(t, make([]uint8, 8), row[32:])

	desc, err := dst.BandDescription(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "Band 1", desc)
}

func TestCopyBandSizeMismatch(t *testing.T) {
	ctx := context.Background()
	src, _ := copySource(t)
	dst, _ := newImage(t, CreateOptions{XSize: 41, YSize: 30, Bands: 1})

	err := src.CopyBand(ctx, dst, 1, 1, nil)
	var mismatch *ErrSizeMismatch
	require.ErrorAs(t, err, &mismatch)
	assert.Equal(t, [2]uint64{41, 30}, mismatch.Expected)
	assert.Equal(t, [2]uint64{40, 30}, mismatch.Actual)

	assert.ErrorIs(t, src.CopyBand(ctx, dst, 2, 1, nil), ErrInvalidBand)
}
