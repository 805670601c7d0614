package raster

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/hupe1980/kea/store"
)

func checkOverview(ctx context.Context, f *store.File, band, level uint32) error {
	if err := CheckBand(ctx, f, band); err != nil {
		return err
	}
	if level == 0 {
		return ErrOverviewLevel
	}
	return nil
}

// CreateOverview creates overview level of band as an xSize×ySize dataset
// of the band's pixel type, replacing any existing overview at that level.
// Its block size is the band's block size clamped by NegotiateBlockSize.
func CreateOverview(ctx context.Context, f *store.File, band, level uint32, xSize, ySize uint64) error {
	if err := checkOverview(ctx, f, band, level); err != nil {
		return err
	}
	p := OverviewPath(band, level)
	if f.Exists(p) {
		if err := f.Unlink(p); err != nil {
			return err
		}
	}
	if !f.HasGroup(OverviewsPath(band)) {
		if err := f.CreateGroup(OverviewsPath(band)); err != nil {
			return err
		}
	}

	t, err := DataType(ctx, f, band)
	if err != nil {
		return err
	}
	imageBlock, err := BlockSize(ctx, f, band)
	if err != nil {
		return err
	}
	_, err = createImageDataset(f, p, t, xSize, ySize, NegotiateBlockSize(imageBlock, xSize, ySize), 0, "1.2")
	return err
}

// RemoveOverview unlinks an overview level. Removing a missing level is a
// no-op.
func RemoveOverview(ctx context.Context, f *store.File, band, level uint32) error {
	if err := checkOverview(ctx, f, band, level); err != nil {
		return err
	}
	err := f.Unlink(OverviewPath(band, level))
	if errors.Is(err, store.ErrNotFound) {
		return nil
	}
	return err
}

// NumOverviews returns the number of overview levels of band.
func NumOverviews(ctx context.Context, f *store.File, band uint32) (uint32, error) {
	levels, err := Overviews(ctx, f, band)
	if err != nil {
		return 0, err
	}
	return uint32(len(levels)), nil
}

// Overviews returns the existing overview levels of band in ascending
// order.
func Overviews(ctx context.Context, f *store.File, band uint32) ([]uint32, error) {
	if err := CheckBand(ctx, f, band); err != nil {
		return nil, err
	}
	if !f.HasGroup(OverviewsPath(band)) {
		return nil, nil
	}
	names, err := f.Children(OverviewsPath(band))
	if err != nil {
		return nil, err
	}
	levels := make([]uint32, 0, len(names))
	for _, name := range names {
		n, ok := strings.CutPrefix(name, "OVERVIEW")
		if !ok {
			continue
		}
		level, err := strconv.ParseUint(n, 10, 32)
		if err != nil || level == 0 {
			continue
		}
		levels = append(levels, uint32(level))
	}
	slices.Sort(levels)
	return levels, nil
}

func openOverview(ctx context.Context, f *store.File, band, level uint32) (*store.Dataset, error) {
	if err := checkOverview(ctx, f, band, level); err != nil {
		return nil, err
	}
	return Target{Band: band, Overview: level}.open(ctx, f)
}

// OverviewSize returns the width and height of an overview level.
func OverviewSize(ctx context.Context, f *store.File, band, level uint32) (xSize, ySize uint64, err error) {
	d, err := openOverview(ctx, f, band, level)
	if err != nil {
		return 0, 0, err
	}
	dims, err := d.Dims()
	if err != nil {
		return 0, 0, err
	}
	if len(dims) != 2 {
		return 0, 0, fmt.Errorf("raster: overview %d of band %d has rank %d", level, band, len(dims))
	}
	return dims[1], dims[0], nil
}

// OverviewBlockSize returns the block edge of an overview level.
func OverviewBlockSize(ctx context.Context, f *store.File, band, level uint32) (uint32, error) {
	if _, err := openOverview(ctx, f, band, level); err != nil {
		return 0, err
	}
	bs, err := f.AttributeUint(OverviewPath(band, level), AttrBlockSize)
	if err != nil {
		return 0, err
	}
	return uint32(bs), nil
}
