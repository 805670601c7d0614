package neighbours

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"github.com/RoaringBitmap/roaring/v2/roaring64"
	"golang.org/x/exp/constraints"

	"github.com/hupe1980/kea/rat"
)

// Connectivity selects which surrounding pixels count as adjacent.
type Connectivity int

const (
	// Four examines the pixels above, below, left and right.
	Four Connectivity = iota
	// Eight also examines the diagonals.
	Eight
)

func (c Connectivity) String() string {
	switch c {
	case Four:
		return "four"
	case Eight:
		return "eight"
	default:
		return fmt.Sprintf("Connectivity(%d)", int(c))
	}
}

type offset struct{ dy, dx int }

var (
	fourOffsets  = []offset{{-1, 0}, {0, -1}, {0, 1}, {1, 0}}
	eightOffsets = []offset{{-1, -1}, {-1, 0}, {-1, 1}, {0, -1}, {0, 1}, {1, -1}, {1, 0}, {1, 1}}
)

// setPool recycles neighbour sets between labels.
var setPool = sync.Pool{
	New: func() any { return roaring64.New() },
}

// Option configures an Accumulator.
type Option func(*Accumulator)

// WithLogger sets the logger for completion and teardown events.
func WithLogger(l *slog.Logger) Option {
	return func(a *Accumulator) {
		if l != nil {
			a.logger = l
		}
	}
}

// Accumulator collects the neighbour sets of labels over a sequence of tiles
// and writes each set to the table once the label is complete.
type Accumulator struct {
	remaining []uint64
	table     rat.Table
	ignore    int64
	offsets   []offset
	open      map[int64]*roaring64.Bitmap
	written   uint64
	logger    *slog.Logger
	err       error
	closed    bool
}

// New returns an Accumulator writing to table. histogram holds the pixel
// count of every label and is copied; the bin of ignore is not used.
func New(histogram []uint64, table rat.Table, ignore int64, conn Connectivity, opts ...Option) *Accumulator {
	a := &Accumulator{
		remaining: slices.Clone(histogram),
		table:     table,
		ignore:    ignore,
		offsets:   fourOffsets,
		open:      make(map[int64]*roaring64.Bitmap),
		logger:    slog.New(slog.DiscardHandler),
	}
	if conn == Eight {
		a.offsets = eightOffsets
	}
	if ignore >= 0 && ignore < int64(len(a.remaining)) {
		a.remaining[ignore] = 0
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// AddTile processes the interior pixels of a row-major tile.
func (a *Accumulator) AddTile(ctx context.Context, tile [][]int64) error {
	if err := a.usable(); err != nil {
		return err
	}
	height, width := len(tile), 0
	if height > 0 {
		width = len(tile[0])
	}
	for y, row := range tile {
		if len(row) != width {
			return fmt.Errorf("%w: row %d has %d pixels, want %d", ErrInvalidTile, y, len(row), width)
		}
	}
	return a.scan(ctx, width, height, func(y, x int) int64 { return tile[y][x] })
}

// AddTileFlat processes the interior pixels of a tile stored row-major in
// data.
func (a *Accumulator) AddTileFlat(ctx context.Context, data []int64, width, height int) error {
	return AddTileOf(ctx, a, data, width, height)
}

// AddTileOf is AddTileFlat for tiles of any integer pixel type.
func AddTileOf[T constraints.Integer](ctx context.Context, a *Accumulator, data []T, width, height int) error {
	if err := a.usable(); err != nil {
		return err
	}
	if width < 0 || height < 0 || len(data) != width*height {
		return fmt.Errorf("%w: %d pixels for a %dx%d tile", ErrInvalidTile, len(data), width, height)
	}
	return a.scan(ctx, width, height, func(y, x int) int64 { return int64(data[y*width+x]) })
}

func (a *Accumulator) usable() error {
	if a.closed {
		return ErrClosed
	}
	return a.err
}

// fail makes err sticky: counters are partially updated after a failure, so
// later tiles cannot produce correct sets.
func (a *Accumulator) fail(err error) error {
	a.err = err
	return err
}

func (a *Accumulator) scan(ctx context.Context, width, height int, at func(y, x int) int64) error {
	for y := 1; y < height-1; y++ {
		if err := ctx.Err(); err != nil {
			return a.fail(err)
		}
		for x := 1; x < width-1; x++ {
			v := at(y, x)
			if v == a.ignore {
				continue
			}
			if v < 0 || v >= int64(len(a.remaining)) || a.remaining[v] == 0 {
				return a.fail(&HistogramMismatchError{Label: v, Bins: len(a.remaining)})
			}

			set, ok := a.open[v]
			if !ok {
				set = setPool.Get().(*roaring64.Bitmap)
				a.open[v] = set
			}
			for _, o := range a.offsets {
				n := at(y+o.dy, x+o.dx)
				if n == v || n == a.ignore {
					continue
				}
				if n < 0 {
					return a.fail(&HistogramMismatchError{Label: n, Bins: len(a.remaining)})
				}
				set.Add(uint64(n))
			}

			a.remaining[v]--
			if a.remaining[v] == 0 {
				if err := a.flush(ctx, v, set); err != nil {
					return a.fail(err)
				}
			}
		}
	}
	return nil
}

func (a *Accumulator) flush(ctx context.Context, label int64, set *roaring64.Bitmap) error {
	ids := set.ToArray()
	if ids == nil {
		ids = []uint64{}
	}
	if err := a.table.SetNeighbours(ctx, uint64(label), 1, [][]uint64{ids}); err != nil {
		return fmt.Errorf("neighbours: write label %d: %w", label, err)
	}
	delete(a.open, label)
	set.Clear()
	setPool.Put(set)
	a.written++
	return nil
}

// Pending returns the number of labels seen but not yet complete.
func (a *Accumulator) Pending() int { return len(a.open) }

// Written returns the number of neighbour sets written to the table.
func (a *Accumulator) Written() uint64 { return a.written }

// Close releases the in-flight sets. It returns an *IncompleteError when any
// label still has unvisited pixels, which means the histogram does not match
// the tiles or tiles are missing.
func (a *Accumulator) Close() error {
	if a.closed {
		return nil
	}
	a.closed = true

	var labels []uint64
	for label, n := range a.remaining {
		if n > 0 {
			labels = append(labels, uint64(label))
		}
	}
	for label, set := range a.open {
		set.Clear()
		setPool.Put(set)
		delete(a.open, label)
	}
	a.remaining = nil

	if len(labels) > 0 {
		a.logger.Warn("neighbour sets not written", "labels", len(labels), "first", labels[0])
		return &IncompleteError{Labels: labels}
	}
	a.logger.Debug("neighbour accumulation complete", "written", a.written)
	return nil
}
