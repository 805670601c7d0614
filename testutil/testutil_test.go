package testutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSegments(t *testing.T) {
	rng := NewRNG(4711)

	img := rng.Segments(20, 10, 5)

	require.Len(t, img, 10)
	assert.Len(t, img[0], 20)
	for _, row := range img {
		for _, v := range row {
			assert.GreaterOrEqual(t, v, int64(1))
			assert.LessOrEqual(t, v, int64(5))
		}
	}

	rng.Reset()
	assert.Equal(t, img, rng.Segments(20, 10, 5))
}

func TestHistogram(t *testing.T) {
	img := [][]int64{
		{0, 1, 1},
		{2, 2, 0},
		{4, 1, 0},
	}

	assert.Equal(t, []uint64{0, 3, 2, 0, 1}, Histogram(img, 0))
	assert.Equal(t, []uint64{3, 3, 2}, Histogram(img, 4))
}

func TestPadAndTiles(t *testing.T) {
	img := NewRNG(1).Labels(5, 4, 9)
	padded := Pad(img, -1)

	require.Len(t, padded, 6)
	assert.Equal(t, []int64{-1, -1, -1, -1, -1, -1, -1}, padded[0])
	assert.Equal(t, int64(-1), padded[2][0])
	assert.Equal(t, img[1][4], padded[2][5])

	tiles := Tiles(padded, 3, 2)
	require.Len(t, tiles, 4)
	assert.Len(t, tiles[0], 4)
	assert.Len(t, tiles[0][0], 5)
	assert.Len(t, tiles[1][0], 4)

	// Interiors cover every pixel once.
	covered := 0
	for _, tile := range tiles {
		covered += (len(tile) - 2) * (len(tile[0]) - 2)
	}
	assert.Equal(t, 20, covered)
}

func TestAdjacency(t *testing.T) {
	img := [][]int64{
		{1, 1, 2},
		{1, 3, 2},
		{0, 3, 3},
	}

	four := Adjacency(img, 0, false)
	assert.Equal(t, [][]uint64{{}, {2, 3}, {1, 3}, {1, 2}}, four)

	eight := Adjacency(img, 0, true)
	assert.Equal(t, []uint64{2, 3}, eight[1])
	assert.Equal(t, []uint64{1, 3}, eight[2])

	data, w, h := Flatten(img)
	assert.Equal(t, 3, w)
	assert.Equal(t, 3, h)
	assert.Equal(t, int64(3), data[7])
}
