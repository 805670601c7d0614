package kea

import (
	"context"
	"errors"
	"math"

	"github.com/hupe1980/kea/neighbours"
	"github.com/hupe1980/kea/raster"
	"github.com/hupe1980/kea/rat"
)

// HistogramField is the attribute table field holding the pixel count of
// every label.
const HistogramField = "Histogram"

// BuildNeighbours fills the neighbour sets of the attribute table of a
// thematic band from its pixels. The table must carry a Float or Int
// HistogramField with the pixel count of every label; pixels equal to the
// band's no-data value are ignored.
//
// The band is scanned in tiles of tileSize pixels (the band's block size
// when zero), each read with a one pixel border. progress, when set, is
// called after each tile with the image lock held; returning false stops
// with ErrAborted.
func (img *Image) BuildNeighbours(ctx context.Context, band uint32, conn neighbours.Connectivity, tileSize uint64, progress func(float64) bool) error {
	return img.do(func() error {
		table, err := img.attributeTable(ctx, band)
		if err != nil {
			return err
		}
		hist, err := readHistogram(ctx, table)
		if err != nil {
			return err
		}
		ignore := int64(-1)
		switch v, err := img.noData(ctx, band); {
		case err == nil:
			ignore = int64(v)
		case !errors.Is(err, ErrNoDataUndefined):
			return err
		}
		xSize, ySize, err := img.size(ctx)
		if err != nil {
			return err
		}
		if tileSize == 0 {
			bs, err := raster.BlockSize(ctx, img.f, band)
			if err != nil {
				return err
			}
			tileSize = uint64(max(bs, 1))
		}

		logger := img.logger.WithBand(band)
		acc := neighbours.New(hist, table, ignore, conn, neighbours.WithLogger(logger.Logger))
		buf := make([]int64, (tileSize+2)*(tileSize+2))
		tile := make([]int64, len(buf))
		total := math.Ceil(float64(xSize)/float64(tileSize)) * math.Ceil(float64(ySize)/float64(tileSize))
		done := 0
		for ty := uint64(0); ty < ySize; ty += tileSize {
			for tx := uint64(0); tx < xSize; tx += tileSize {
				w, h := min(tileSize, xSize-tx), min(tileSize, ySize-ty)
				if err := readTile(ctx, img, band, buf, tile, ignore, tx, ty, w, h, xSize, ySize); err != nil {
					_ = acc.Close()
					return err
				}
				if err := acc.AddTileFlat(ctx, tile[:(w+2)*(h+2)], int(w+2), int(h+2)); err != nil {
					_ = acc.Close()
					return err
				}
				done++
				if progress != nil && !progress(float64(done)/total) {
					_ = acc.Close()
					return ErrAborted
				}
			}
		}
		if err := acc.Close(); err != nil {
			return err
		}
		logger.InfoContext(ctx, "neighbours built", "labels", acc.Written(), "connectivity", conn.String())
		return nil
	})
}

// readTile reads the w×h window at (tx, ty) with a one pixel border into
// tile, padding the border with ignore outside the image.
func readTile(ctx context.Context, img *Image, band uint32, buf, tile []int64, ignore int64, tx, ty, w, h, xSize, ySize uint64) error {
	x0, y0 := tx, ty
	ox, oy := uint64(1), uint64(1)
	if tx > 0 {
		x0, ox = tx-1, 0
	}
	if ty > 0 {
		y0, oy = ty-1, 0
	}
	x1, y1 := min(tx+w+1, xSize), min(ty+h+1, ySize)
	rw, rh := x1-x0, y1-y0
	if err := raster.ReadBlock(ctx, img.f, raster.Target{Band: band}, buf, x0, y0, rw, rh, rw, rh); err != nil {
		return err
	}
	tw, th := w+2, h+2
	for i := range tile[:tw*th] {
		tile[i] = ignore
	}
	for r := uint64(0); r < rh; r++ {
		copy(tile[(r+oy)*tw+ox:(r+oy)*tw+ox+rw], buf[r*rw:(r+1)*rw])
	}
	return nil
}

// readHistogram loads HistogramField as pixel counts.
func readHistogram(ctx context.Context, table rat.Table) ([]uint64, error) {
	field, err := table.Field(HistogramField)
	if err != nil {
		return nil, err
	}
	rows := table.Size()
	hist := make([]uint64, rows)
	switch field.Kind {
	case rat.Float:
		buf := make([]float64, min(rows, rat.DefaultChunkSize))
		for start := uint64(0); start < rows; start += rat.DefaultChunkSize {
			n := min(rat.DefaultChunkSize, rows-start)
			if err := table.GetFloatFields(ctx, start, n, field.Handle(), buf[:n]); err != nil {
				return nil, err
			}
			for i, v := range buf[:n] {
				hist[start+uint64(i)] = uint64(max(v, 0))
			}
		}
	case rat.Int:
		buf := make([]int64, min(rows, rat.DefaultChunkSize))
		for start := uint64(0); start < rows; start += rat.DefaultChunkSize {
			n := min(rat.DefaultChunkSize, rows-start)
			if err := table.GetIntFields(ctx, start, n, field.Handle(), buf[:n]); err != nil {
				return nil, err
			}
			for i, v := range buf[:n] {
				hist[start+uint64(i)] = uint64(max(v, 0))
			}
		}
	default:
		return nil, &rat.KindMismatchError{Field: HistogramField, Want: rat.Float, Got: field.Kind}
	}
	return hist, nil
}
