package testutil

import (
	"math/rand"
	"slices"
	"sync"
)

// RNG struct encapsulates the random number generator and seed.
// It is thread-safe.
type RNG struct {
	rand *rand.Rand
	seed int64
	mu   sync.Mutex
}

// NewRNG creates a new RNG instance with the specified seed.
func NewRNG(seed int64) *RNG {
	return &RNG{
		rand: rand.New(rand.NewSource(seed)),
		seed: seed,
	}
}

// Reset resets the RNG to its initial seed.
func (r *RNG) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rand.Seed(r.seed)
}

// Seed returns the initial seed.
func (r *RNG) Seed() int64 {
	return r.seed
}

// Intn returns a non-negative pseudo-random number in [0,n).
func (r *RNG) Intn(n int) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rand.Intn(n)
}

// Float64 returns a pseudo-random number in [0.0,1.0).
func (r *RNG) Float64() float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rand.Float64()
}

// Labels returns a height x width image of uniformly random labels in
// [0, maxLabel].
func (r *RNG) Labels(width, height int, maxLabel int64) [][]int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	img := make([][]int64, height)
	for y := range img {
		img[y] = make([]int64, width)
		for x := range img[y] {
			img[y][x] = r.rand.Int63n(maxLabel + 1)
		}
	}
	return img
}

// Segments returns a height x width image partitioned into n regions labelled
// 1..n. Each pixel takes the label of its nearest seed point, which gives
// contiguous segments like those of an image segmentation.
func (r *RNG) Segments(width, height, n int) [][]int64 {
	r.mu.Lock()
	type seed struct{ x, y int }
	seeds := make([]seed, n)
	for i := range seeds {
		seeds[i] = seed{r.rand.Intn(width), r.rand.Intn(height)}
	}
	r.mu.Unlock()

	img := make([][]int64, height)
	for y := range img {
		img[y] = make([]int64, width)
		for x := range img[y] {
			best, bestD := 0, -1
			for i, s := range seeds {
				dx, dy := s.x-x, s.y-y
				if d := dx*dx + dy*dy; bestD < 0 || d < bestD {
					best, bestD = i, d
				}
			}
			img[y][x] = int64(best + 1)
		}
	}
	return img
}

// Histogram counts the pixels of every label. The result has one bin per
// label from 0 to the largest label present; pixels equal to ignore are not
// counted.
func Histogram(img [][]int64, ignore int64) []uint64 {
	var maxLabel int64 = -1
	for _, row := range img {
		for _, v := range row {
			if v != ignore && v > maxLabel {
				maxLabel = v
			}
		}
	}
	hist := make([]uint64, maxLabel+1)
	for _, row := range img {
		for _, v := range row {
			if v != ignore && v >= 0 {
				hist[v]++
			}
		}
	}
	return hist
}

// Pad surrounds img with a one pixel border of value.
func Pad(img [][]int64, value int64) [][]int64 {
	if len(img) == 0 {
		return nil
	}
	width := len(img[0]) + 2
	out := make([][]int64, len(img)+2)
	for y := range out {
		out[y] = slices.Repeat([]int64{value}, width)
		if y > 0 && y <= len(img) {
			copy(out[y][1:], img[y-1])
		}
	}
	return out
}

// Tiles cuts img into tiles whose interiors are at most tileW x tileH and
// partition the interior of img. Every tile carries a one pixel border of
// real image data, so neighbouring tiles overlap by two pixels.
func Tiles(img [][]int64, tileW, tileH int) [][][]int64 {
	height := len(img) - 2
	if height <= 0 {
		return nil
	}
	width := len(img[0]) - 2
	var tiles [][][]int64
	for y0 := 0; y0 < height; y0 += tileH {
		h := min(tileH, height-y0)
		for x0 := 0; x0 < width; x0 += tileW {
			w := min(tileW, width-x0)
			tile := make([][]int64, h+2)
			for y := range tile {
				tile[y] = slices.Clone(img[y0+y][x0 : x0+w+2])
			}
			tiles = append(tiles, tile)
		}
	}
	return tiles
}

// Flatten returns the row-major pixels of img with its width and height.
func Flatten(img [][]int64) (data []int64, width, height int) {
	if len(img) == 0 {
		return nil, 0, 0
	}
	width, height = len(img[0]), len(img)
	data = make([]int64, 0, width*height)
	for _, row := range img {
		data = append(data, row...)
	}
	return data, width, height
}

// Adjacency computes the neighbour set of every label by scanning the whole
// image. The result is indexed by label and each set is sorted. Pixels equal
// to ignore are neither keys nor neighbours; eight selects diagonal
// adjacency as well.
func Adjacency(img [][]int64, ignore int64, eight bool) [][]uint64 {
	hist := Histogram(img, ignore)
	sets := make([]map[uint64]struct{}, len(hist))
	for y, row := range img {
		for x, v := range row {
			if v == ignore {
				continue
			}
			for dy := -1; dy <= 1; dy++ {
				for dx := -1; dx <= 1; dx++ {
					if (dx == 0 && dy == 0) || (!eight && dx != 0 && dy != 0) {
						continue
					}
					ny, nx := y+dy, x+dx
					if ny < 0 || ny >= len(img) || nx < 0 || nx >= len(row) {
						continue
					}
					o := img[ny][nx]
					if o == v || o == ignore {
						continue
					}
					if sets[v] == nil {
						sets[v] = make(map[uint64]struct{})
					}
					sets[v][uint64(o)] = struct{}{}
				}
			}
		}
	}
	out := make([][]uint64, len(hist))
	for label, set := range sets {
		out[label] = []uint64{}
		for n := range set {
			out[label] = append(out[label], n)
		}
		slices.Sort(out[label])
	}
	return out
}
