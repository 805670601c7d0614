package kea

import (
	"context"
	"errors"
	"math"

	"github.com/hupe1980/kea/dtype"
	"github.com/hupe1980/kea/raster"
	"github.com/hupe1980/kea/rat"
)

// bandInfo is the non-pixel state of a band carried over by CopyBand.
type bandInfo struct {
	description string
	layerType   uint8
	usage       uint8
	noData      *float64
	metadata    []MetadataItem
}

// CopyBand copies the pixels of srcBand into dstBand of dst block by block,
// converting to the destination pixel type, then copies the description,
// layer type, colour interpretation, no-data value, metadata and attribute
// table. Both bands must have the same extent. dst may be img.
//
// progress, when set, is called with the completed fraction after each
// block. Returning false stops the copy with ErrAborted; blocks already
// written stay.
func (img *Image) CopyBand(ctx context.Context, dst *Image, srcBand, dstBand uint32, progress func(float64) bool) error {
	var (
		t      dtype.DataType
		bs     uint32
		sx, sy uint64
	)
	err := img.do(func() (err error) {
		if t, err = raster.DataType(ctx, img.f, srcBand); err != nil {
			return err
		}
		if bs, err = raster.BlockSize(ctx, img.f, srcBand); err != nil {
			return err
		}
		sx, sy, err = img.size(ctx)
		return err
	})
	if err != nil {
		return err
	}
	var dx, dy uint64
	err = dst.do(func() (err error) {
		if err := raster.CheckBand(ctx, dst.f, dstBand); err != nil {
			return err
		}
		dx, dy, err = dst.size(ctx)
		return err
	})
	if err != nil {
		return err
	}
	if sx != dx || sy != dy {
		return &ErrSizeMismatch{Expected: [2]uint64{dx, dy}, Actual: [2]uint64{sx, sy}}
	}

	edge := uint64(max(bs, 1))
	buf, err := dtype.Make(t, int(edge*edge))
	if err != nil {
		return err
	}
	total := math.Ceil(float64(sx)/float64(edge)) * math.Ceil(float64(sy)/float64(edge))
	done := 0
	for y := uint64(0); y < sy; y += edge {
		for x := uint64(0); x < sx; x += edge {
			xs, ys := min(edge, sx-x), min(edge, sy-y)
			if err := img.readBlock(ctx, raster.Target{Band: srcBand}, buf, x, y, xs, ys, xs, ys); err != nil {
				return err
			}
			if err := dst.writeBlock(ctx, raster.Target{Band: dstBand}, buf, x, y, xs, ys, xs, ys); err != nil {
				return err
			}
			done++
			if progress != nil && !progress(float64(done)/total) {
				img.logger.WithBand(srcBand).InfoContext(ctx, "band copy aborted", "blocks", done)
				return ErrAborted
			}
		}
	}

	var (
		info  bandInfo
		table *rat.InMemoryTable
	)
	err = img.do(func() (err error) {
		if info, err = img.bandInfo(ctx, srcBand); err != nil {
			return err
		}
		if !img.f.HasDataset(rat.SizeHeaderPath(srcBand)) {
			return nil
		}
		src, err := rat.Open(ctx, img.f, srcBand, rat.DefaultChunkSize)
		if err != nil || (src.Size() == 0 && len(src.Fields()) == 0) {
			return err
		}
		table = rat.NewInMemoryTable()
		return rat.Copy(ctx, table, src)
	})
	if err != nil {
		return err
	}
	return dst.do(func() error {
		if err := dst.setBandInfo(ctx, dstBand, info); err != nil {
			return err
		}
		if table == nil {
			return nil
		}
		return dst.exportAttributeTable(ctx, dstBand, table)
	})
}

func (img *Image) bandInfo(ctx context.Context, band uint32) (bandInfo, error) {
	var info bandInfo
	var err error
	if info.description, err = readString(ctx, img.f, descriptionPath(band)); err != nil {
		return info, err
	}
	lt, err := readNumbers[uint8](ctx, img.f, layerTypePath(band), 1)
	if err != nil {
		return info, err
	}
	usage, err := readNumbers[uint8](ctx, img.f, layerUsagePath(band), 1)
	if err != nil {
		return info, err
	}
	info.layerType, info.usage = lt[0], usage[0]
	v, err := img.noData(ctx, band)
	switch {
	case err == nil:
		info.noData = &v
	case !errors.Is(err, ErrNoDataUndefined):
		return info, err
	}
	info.metadata, err = metadataItems(ctx, img.f, bandMetadataPath(band))
	return info, err
}

func (img *Image) setBandInfo(ctx context.Context, band uint32, info bandInfo) error {
	if err := writeStrings(ctx, img.f, descriptionPath(band), info.description); err != nil {
		return err
	}
	if err := writeNumbers(ctx, img.f, layerTypePath(band), dtype.Uint8, info.layerType); err != nil {
		return err
	}
	if err := writeNumbers(ctx, img.f, layerUsagePath(band), dtype.Uint8, info.usage); err != nil {
		return err
	}
	for _, m := range info.metadata {
		if err := setMetadata(ctx, img.f, bandMetadataPath(band), m.Name, m.Value); err != nil {
			return err
		}
	}
	if info.noData == nil {
		return nil
	}
	t, err := raster.DataType(ctx, img.f, band)
	if err != nil {
		return err
	}
	raw, err := dtype.EncodeValue(t, *info.noData)
	if err != nil {
		return err
	}
	return img.writeNoData(ctx, band, t, raw)
}
