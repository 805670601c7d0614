package raster

import (
	"context"
	"fmt"

	"github.com/hupe1980/kea/dtype"
	"github.com/hupe1980/kea/store"
)

const (
	// DefaultBlockSize is the block edge used when none is requested.
	DefaultBlockSize = 256

	// HeaderNumBandsPath holds the band count as a single uint16.
	HeaderNumBandsPath = "/HEADER/NUMBANDS"

	AttrClass        = "CLASS"
	AttrImageVersion = "IMAGE_VERSION"
	AttrBlockSize    = "BLOCK_SIZE"
	// AttrDefined flags whether a band's no-data value is in effect.
	AttrDefined = "DEFINED"

	// MaskFill is the value of unwritten and padded mask pixels.
	MaskFill = 255
)

// BandPath returns the group of band n.
func BandPath(band uint32) string { return fmt.Sprintf("/BAND%d", band) }

// DataPath returns the pixel dataset of band n.
func DataPath(band uint32) string { return BandPath(band) + "/DATA" }

// MaskPath returns the mask dataset of band n.
func MaskPath(band uint32) string { return BandPath(band) + "/MASK" }

// NoDataPath returns the single-element no-data dataset of band n.
func NoDataPath(band uint32) string { return BandPath(band) + "/NO_DATA_VAL" }

// OverviewsPath returns the overview group of band n.
func OverviewsPath(band uint32) string { return BandPath(band) + "/OVERVIEWS" }

// OverviewPath returns the dataset of one overview level.
func OverviewPath(band, level uint32) string {
	return fmt.Sprintf("%s/OVERVIEW%d", OverviewsPath(band), level)
}

// NegotiateBlockSize clamps a requested block edge so that a small raster
// never asks for blocks larger than itself.
func NegotiateBlockSize(requested uint32, xSize, ySize uint64) uint32 {
	return uint32(min(uint64(requested), min(xSize, ySize)))
}

// NumBands returns the band count recorded in the header.
func NumBands(ctx context.Context, f *store.File) (uint32, error) {
	d, err := f.OpenDataset(HeaderNumBandsPath)
	if err != nil {
		return 0, err
	}
	n, err := store.Read[uint32](ctx, d, []uint64{0}, []uint64{1})
	if err != nil {
		return 0, err
	}
	return n[0], nil
}

// CheckBand validates a 1-based band index against the header.
func CheckBand(ctx context.Context, f *store.File, band uint32) error {
	if band == 0 {
		return ErrBandIndex
	}
	n, err := NumBands(ctx, f)
	if err != nil {
		return err
	}
	if band > n {
		return fmt.Errorf("%w: band %d of %d", ErrBandNotFound, band, n)
	}
	return nil
}

// BlockSize returns the block edge of band n.
func BlockSize(ctx context.Context, f *store.File, band uint32) (uint32, error) {
	if err := CheckBand(ctx, f, band); err != nil {
		return 0, err
	}
	bs, err := f.AttributeUint(DataPath(band), AttrBlockSize)
	if err != nil {
		return 0, err
	}
	return uint32(bs), nil
}

// DataType returns the pixel type of band n.
func DataType(ctx context.Context, f *store.File, band uint32) (dtype.DataType, error) {
	if err := CheckBand(ctx, f, band); err != nil {
		return dtype.Unknown, err
	}
	d, err := f.OpenDataset(DataPath(band))
	if err != nil {
		return dtype.Unknown, err
	}
	return d.Datatype().Numeric, nil
}

// createImageDataset creates a square-chunked 2-D pixel dataset carrying
// the image attributes.
func createImageDataset(f *store.File, p string, t dtype.DataType, xSize, ySize uint64, blockSize uint32, fill any, version string) (*store.Dataset, error) {
	edge := uint64(max(blockSize, 1))
	d, err := f.CreateDataset(p, store.Numeric(t), []uint64{ySize, xSize},
		store.WithChunks(edge, edge), store.WithFill(fill))
	if err != nil {
		return nil, err
	}
	if err := f.SetAttribute(p, AttrClass, "IMAGE"); err != nil {
		return nil, err
	}
	if err := f.SetAttribute(p, AttrImageVersion, version); err != nil {
		return nil, err
	}
	if err := f.SetAttribute(p, AttrBlockSize, uint64(blockSize)); err != nil {
		return nil, err
	}
	return d, nil
}

// CreateBandData creates /BANDn/DATA for a new band. Unwritten pixels read
// as zero.
func CreateBandData(f *store.File, band uint32, t dtype.DataType, xSize, ySize uint64, blockSize uint32) error {
	if band == 0 {
		return ErrBandIndex
	}
	_, err := createImageDataset(f, DataPath(band), t, xSize, ySize, blockSize, 0, "1.0")
	return err
}
