package kea

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/kea/dtype"
	"github.com/hupe1980/kea/neighbours"
	"github.com/hupe1980/kea/rat"
	"github.com/hupe1980/kea/testutil"
)

// thematicImage writes labels into a uint32 band and exports a table whose
// Histogram field holds hist.
func thematicImage(t *testing.T, labels [][]int64, hist []uint64, blockSize uint32) *Image {
	t.Helper()
	ctx := context.Background()
	data, w, h := testutil.Flatten(labels)
	img, _ := newImage(t, CreateOptions{
		DataType: dtype.Uint32, XSize: uint64(w), YSize: uint64(h), Bands: 1, BlockSize: blockSize,
	})
	require.NoError(t, img.WriteBlock(ctx, 1, data, 0, 0, uint64(w), uint64(h), uint64(w), uint64(h)))
	require.NoError(t, img.SetBandLayerType(ctx, 1, Thematic))

	tbl := rat.NewInMemoryTable()
	require.NoError(t, tbl.AddField(ctx, HistogramField, rat.Float, 0.0, "PixelCount"))
	require.NoError(t, tbl.AddRows(ctx, uint64(len(hist))))
	counts := make([]float64, len(hist))
	for i, n := range hist {
		counts[i] = float64(n)
	}
	hh, err := tbl.Handle(HistogramField)
	require.NoError(t, err)
	require.NoError(t, tbl.SetFloatFields(ctx, 0, uint64(len(counts)), hh, counts))
	require.NoError(t, img.ExportAttributeTable(ctx, 1, tbl))
	return img
}

func assertNeighbours(t *testing.T, img *Image, want [][]uint64) {
	t.Helper()
	ctx := context.Background()
	tbl, err := img.AttributeTable(ctx, 1)
	require.NoError(t, err)
	got, err := tbl.GetNeighbours(ctx, 0, uint64(len(want)))
	require.NoError(t, err)
	for label := range want {
		assert.ElementsMatch(t, want[label], got[label], "label %d", label)
	}
}

func TestBuildNeighbours(t *testing.T) {
	labels := testutil.NewRNG(7).Segments(10, 10, 7)
	hist := testutil.Histogram(labels, -1)

	tests := []struct {
		name     string
		conn     neighbours.Connectivity
		tileSize uint64
	}{
		{"four/tile4", neighbours.Four, 4},
		{"eight/tile3", neighbours.Eight, 3},
		{"four/block", neighbours.Four, 0},
		{"eight/whole", neighbours.Eight, 10},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			img := thematicImage(t, labels, hist, 5)

			tiles := 0
			err := img.BuildNeighbours(ctx, 1, tt.conn, tt.tileSize, func(float64) bool {
				tiles++
				return true
			})
			require.NoError(t, err)
			assert.Positive(t, tiles)
			assertNeighbours(t, img, testutil.Adjacency(labels, -1, tt.conn == neighbours.Eight))
		})
	}
}

func TestBuildNeighboursIgnoresNoData(t *testing.T) {
	ctx := context.Background()
	labels := testutil.NewRNG(11).Segments(10, 10, 6)
	for y := range labels {
		labels[y][4] = 0
	}
	hist := testutil.Histogram(labels, 0)
	img := thematicImage(t, labels, hist, 4)
	require.NoError(t, img.SetNoData(ctx, 1, 0))

	require.NoError(t, img.BuildNeighbours(ctx, 1, neighbours.Eight, 4, nil))
	assertNeighbours(t, img, testutil.Adjacency(labels, 0, true))
}

func TestBuildNeighboursErrors(t *testing.T) {
	ctx := context.Background()
	labels := [][]int64{
		{1, 1, 2, 2},
		{1, 1, 2, 2},
		{3, 3, 4, 4},
		{3, 3, 4, 4},
	}
	hist := testutil.Histogram(labels, -1)

	t.Run("incomplete", func(t *testing.T) {
		over := append([]uint64(nil), hist...)
		over[2]++
		img := thematicImage(t, labels, over, 4)
		err := img.BuildNeighbours(ctx, 1, neighbours.Four, 2, nil)
		var incomplete *neighbours.IncompleteError
		require.ErrorAs(t, err, &incomplete)
		assert.Equal(t, []uint64{2}, incomplete.Labels)
	})

	t.Run("aborted", func(t *testing.T) {
		img := thematicImage(t, labels, hist, 4)
		err := img.BuildNeighbours(ctx, 1, neighbours.Four, 2, func(float64) bool { return false })
		assert.ErrorIs(t, err, ErrAborted)
	})

	t.Run("missing histogram", func(t *testing.T) {
		img, _ := newImage(t, CreateOptions{XSize: 4, YSize: 4, Bands: 1})
		err := img.BuildNeighbours(ctx, 1, neighbours.Four, 2, nil)
		assert.ErrorIs(t, err, rat.ErrAttributeTable)
	})

	t.Run("histogram kind", func(t *testing.T) {
		img, _ := newImage(t, CreateOptions{XSize: 4, YSize: 4, Bands: 1})
		tbl := rat.NewInMemoryTable()
		require.NoError(t, tbl.AddField(ctx, HistogramField, rat.String, "", ""))
		require.NoError(t, img.ExportAttributeTable(ctx, 1, tbl))
		err := img.BuildNeighbours(ctx, 1, neighbours.Four, 2, nil)
		var kind *rat.KindMismatchError
		require.ErrorAs(t, err, &kind)
	})
}
