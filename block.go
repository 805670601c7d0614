package kea

import (
	"context"
	"time"

	"github.com/hupe1980/kea/raster"
)

// WriteBlock writes the xSize×ySize window at (xOff, yOff) of band from buf,
// a typed slice whose rows are bufXSize elements apart. Values are
// converted to the band's pixel type.
func (img *Image) WriteBlock(ctx context.Context, band uint32, buf any, xOff, yOff, xSize, ySize, bufXSize, bufYSize uint64) error {
	return img.writeBlock(ctx, raster.Target{Band: band}, buf, xOff, yOff, xSize, ySize, bufXSize, bufYSize)
}

// ReadBlock reads the xSize×ySize window at (xOff, yOff) of band into buf.
// Buffer elements outside the window receive the no-data value when one
// is defined.
func (img *Image) ReadBlock(ctx context.Context, band uint32, buf any, xOff, yOff, xSize, ySize, bufXSize, bufYSize uint64) error {
	return img.readBlock(ctx, raster.Target{Band: band}, buf, xOff, yOff, xSize, ySize, bufXSize, bufYSize)
}

// WriteOverviewBlock writes a window of overview level of band.
func (img *Image) WriteOverviewBlock(ctx context.Context, band, level uint32, buf any, xOff, yOff, xSize, ySize, bufXSize, bufYSize uint64) error {
	if level == 0 {
		return raster.ErrOverviewLevel
	}
	return img.writeBlock(ctx, raster.Target{Band: band, Overview: level}, buf, xOff, yOff, xSize, ySize, bufXSize, bufYSize)
}

// ReadOverviewBlock reads a window of overview level of band.
func (img *Image) ReadOverviewBlock(ctx context.Context, band, level uint32, buf any, xOff, yOff, xSize, ySize, bufXSize, bufYSize uint64) error {
	if level == 0 {
		return raster.ErrOverviewLevel
	}
	return img.readBlock(ctx, raster.Target{Band: band, Overview: level}, buf, xOff, yOff, xSize, ySize, bufXSize, bufYSize)
}

func (img *Image) writeBlock(ctx context.Context, t raster.Target, buf any, xOff, yOff, xSize, ySize, bufXSize, bufYSize uint64) error {
	return img.do(func() error {
		start := time.Now()
		err := translateError(raster.WriteBlock(ctx, img.f, t, buf, xOff, yOff, xSize, ySize, bufXSize, bufYSize))
		img.metrics.RecordBlockWrite(xSize*ySize, time.Since(start), err)
		img.logger.LogBlockIO(ctx, "write", t.Band, xSize, ySize, err)
		return err
	})
}

func (img *Image) readBlock(ctx context.Context, t raster.Target, buf any, xOff, yOff, xSize, ySize, bufXSize, bufYSize uint64) error {
	return img.do(func() error {
		start := time.Now()
		err := translateError(raster.ReadBlock(ctx, img.f, t, buf, xOff, yOff, xSize, ySize, bufXSize, bufYSize))
		img.metrics.RecordBlockRead(xSize*ySize, time.Since(start), err)
		img.logger.LogBlockIO(ctx, "read", t.Band, xSize, ySize, err)
		return err
	})
}

// CreateMask adds a uint8 mask to band. Unwritten mask pixels read as 255.
func (img *Image) CreateMask(ctx context.Context, band uint32) error {
	return img.do(func() error {
		return raster.CreateMask(ctx, img.f, band)
	})
}

// HasMask reports whether band has a mask.
func (img *Image) HasMask(ctx context.Context, band uint32) (bool, error) {
	var ok bool
	err := img.do(func() (err error) {
		ok, err = raster.HasMask(ctx, img.f, band)
		return err
	})
	return ok, err
}

// WriteMask writes a window of the mask of band.
func (img *Image) WriteMask(ctx context.Context, band uint32, buf any, xOff, yOff, xSize, ySize, bufXSize, bufYSize uint64) error {
	return img.do(func() error {
		return raster.WriteMask(ctx, img.f, band, buf, xOff, yOff, xSize, ySize, bufXSize, bufYSize)
	})
}

// ReadMask reads a window of the mask of band.
func (img *Image) ReadMask(ctx context.Context, band uint32, buf any, xOff, yOff, xSize, ySize, bufXSize, bufYSize uint64) error {
	return img.do(func() error {
		return raster.ReadMask(ctx, img.f, band, buf, xOff, yOff, xSize, ySize, bufXSize, bufYSize)
	})
}

// CreateOverview creates overview level of band with the given extent,
// replacing an existing overview at that level.
func (img *Image) CreateOverview(ctx context.Context, band, level uint32, xSize, ySize uint64) error {
	return img.do(func() error {
		start := time.Now()
		err := translateError(raster.CreateOverview(ctx, img.f, band, level, xSize, ySize))
		img.metrics.RecordOverview(level, time.Since(start), err)
		img.logger.LogOverview(ctx, "create", band, level, err)
		return err
	})
}

// RemoveOverview removes overview level of band. Removing a missing level
// is a no-op.
func (img *Image) RemoveOverview(ctx context.Context, band, level uint32) error {
	return img.do(func() error {
		err := translateError(raster.RemoveOverview(ctx, img.f, band, level))
		img.logger.LogOverview(ctx, "remove", band, level, err)
		return err
	})
}

// NumOverviews returns the number of overview levels of band.
func (img *Image) NumOverviews(ctx context.Context, band uint32) (uint32, error) {
	var n uint32
	err := img.do(func() (err error) {
		n, err = raster.NumOverviews(ctx, img.f, band)
		return err
	})
	return n, err
}

// Overviews returns the overview levels of band in ascending order.
func (img *Image) Overviews(ctx context.Context, band uint32) ([]uint32, error) {
	var levels []uint32
	err := img.do(func() (err error) {
		levels, err = raster.Overviews(ctx, img.f, band)
		return err
	})
	return levels, err
}

// OverviewSize returns the extent of overview level of band.
func (img *Image) OverviewSize(ctx context.Context, band, level uint32) (xSize, ySize uint64, err error) {
	err = img.do(func() (err error) {
		xSize, ySize, err = raster.OverviewSize(ctx, img.f, band, level)
		return err
	})
	return xSize, ySize, err
}

// OverviewBlockSize returns the block edge of overview level of band.
func (img *Image) OverviewBlockSize(ctx context.Context, band, level uint32) (uint32, error) {
	var bs uint32
	err := img.do(func() (err error) {
		bs, err = raster.OverviewBlockSize(ctx, img.f, band, level)
		return err
	})
	return bs, err
}
