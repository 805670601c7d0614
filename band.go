package kea

import (
	"context"
	"errors"
	"fmt"

	"github.com/hupe1980/kea/dtype"
	"github.com/hupe1980/kea/raster"
	"github.com/hupe1980/kea/rat"
	"github.com/hupe1980/kea/store"
)

// LayerType distinguishes continuous from thematic (class label) bands.
type LayerType uint8

const (
	Continuous LayerType = 0
	Thematic   LayerType = 1
)

func (t LayerType) String() string {
	switch t {
	case Continuous:
		return "continuous"
	case Thematic:
		return "thematic"
	default:
		return fmt.Sprintf("LayerType(%d)", uint8(t))
	}
}

// ColourInterp is the colour interpretation of a band.
type ColourInterp uint8

const (
	Generic ColourInterp = iota
	GreyIndex
	PaletteIndex
	Red
	Green
	Blue
	Alpha
	Hue
	Saturation
	Lightness
	Cyan
	Magenta
	Yellow
	Black
	YCbCrY
	YCbCrCb
	YCbCrCr
)

var colourNames = [...]string{
	"generic", "grey index", "palette index", "red", "green", "blue", "alpha",
	"hue", "saturation", "lightness", "cyan", "magenta", "yellow", "black",
	"YCbCr Y", "YCbCr Cb", "YCbCr Cr",
}

func (c ColourInterp) String() string {
	if int(c) < len(colourNames) {
		return colourNames[c]
	}
	return fmt.Sprintf("ColourInterp(%d)", uint8(c))
}

func descriptionPath(band uint32) string  { return raster.BandPath(band) + "/DESCRIPTION" }
func dataTypePath(band uint32) string     { return raster.BandPath(band) + "/DATATYPE" }
func layerTypePath(band uint32) string    { return raster.BandPath(band) + "/LAYER_TYPE" }
func layerUsagePath(band uint32) string   { return raster.BandPath(band) + "/LAYER_USAGE" }
func bandMetadataPath(band uint32) string { return raster.BandPath(band) + "/METADATA" }

// addBand appends band n+1 with the image extent.
func (img *Image) addBand(ctx context.Context, t dtype.DataType, description string, blockSize, chunkSize uint32) (uint32, error) {
	if !t.Valid() {
		return 0, fmt.Errorf("%w: pixel type %d", dtype.ErrUnsupported, t)
	}
	n, err := raster.NumBands(ctx, img.f)
	if err != nil {
		return 0, err
	}
	band := n + 1
	if band > 0xFFFF {
		return 0, fmt.Errorf("%w: band count limited to 65535", ErrInvalidBand)
	}
	xSize, ySize, err := img.size(ctx)
	if err != nil {
		return 0, err
	}
	if blockSize == 0 {
		bs, err := readNumbers[uint32](ctx, img.f, blockSizePath, 1)
		if err != nil {
			return 0, &ErrHeader{Item: "BLOCKSIZE", cause: err}
		}
		blockSize = bs[0]
	}
	if err := raster.CreateBandData(img.f, band, t, xSize, ySize, raster.NegotiateBlockSize(blockSize, xSize, ySize)); err != nil {
		return 0, err
	}
	if description == "" {
		description = fmt.Sprintf("Band %d", band)
	}
	if err := writeStrings(ctx, img.f, descriptionPath(band), description); err != nil {
		return 0, err
	}
	if err := writeNumbers(ctx, img.f, dataTypePath(band), dtype.Uint16, uint16(t)); err != nil {
		return 0, err
	}
	if err := writeNumbers(ctx, img.f, layerTypePath(band), dtype.Uint8, uint8(Continuous)); err != nil {
		return 0, err
	}
	if err := writeNumbers(ctx, img.f, layerUsagePath(band), dtype.Uint8, uint8(Generic)); err != nil {
		return 0, err
	}
	if err := img.f.CreateGroup(bandMetadataPath(band)); err != nil {
		return 0, err
	}
	if err := img.f.CreateGroup(raster.OverviewsPath(band)); err != nil {
		return 0, err
	}
	if err := rat.CreateHeaders(ctx, img.f, band, chunkSize); err != nil {
		return 0, err
	}
	if err := writeNumbers(ctx, img.f, numBandsPath, dtype.Uint16, uint16(band)); err != nil {
		return 0, err
	}
	img.logger.WithBand(band).DebugContext(ctx, "band added", "data_type", t.String())
	return band, nil
}

// AddBand appends a band of pixel type t covering the image extent and
// returns its index. An empty description selects "Band n"; a zero block
// size selects the image default.
func (img *Image) AddBand(ctx context.Context, t dtype.DataType, description string, blockSize uint32) (uint32, error) {
	var band uint32
	err := img.do(func() (err error) {
		band, err = img.addBand(ctx, t, description, blockSize, rat.DefaultChunkSize)
		return err
	})
	return band, err
}

// RemoveBand deletes band and renumbers the bands above it down by one.
func (img *Image) RemoveBand(ctx context.Context, band uint32) error {
	return img.do(func() error {
		if err := raster.CheckBand(ctx, img.f, band); err != nil {
			return err
		}
		n, err := raster.NumBands(ctx, img.f)
		if err != nil {
			return err
		}
		if err := img.f.Unlink(raster.BandPath(band)); err != nil {
			return err
		}
		for k := band + 1; k <= n; k++ {
			if err := img.f.Rename(raster.BandPath(k), raster.BandPath(k-1)); err != nil {
				return err
			}
		}
		img.logger.WithBand(band).InfoContext(ctx, "band removed", "remaining", n-1)
		return writeNumbers(ctx, img.f, numBandsPath, dtype.Uint16, uint16(n-1))
	})
}

// NumBands returns the number of bands.
func (img *Image) NumBands(ctx context.Context) (uint32, error) {
	var n uint32
	err := img.do(func() (err error) {
		n, err = raster.NumBands(ctx, img.f)
		return err
	})
	return n, err
}

// BandDataType returns the pixel type of band.
func (img *Image) BandDataType(ctx context.Context, band uint32) (dtype.DataType, error) {
	var t dtype.DataType
	err := img.do(func() (err error) {
		t, err = raster.DataType(ctx, img.f, band)
		return err
	})
	return t, err
}

// BandBlockSize returns the block edge of band.
func (img *Image) BandBlockSize(ctx context.Context, band uint32) (uint32, error) {
	var bs uint32
	err := img.do(func() (err error) {
		bs, err = raster.BlockSize(ctx, img.f, band)
		return err
	})
	return bs, err
}

// BandDescription returns the description of band.
func (img *Image) BandDescription(ctx context.Context, band uint32) (string, error) {
	var desc string
	err := img.do(func() (err error) {
		if err := raster.CheckBand(ctx, img.f, band); err != nil {
			return err
		}
		desc, err = readString(ctx, img.f, descriptionPath(band))
		return err
	})
	return desc, err
}

// SetBandDescription replaces the description of band.
func (img *Image) SetBandDescription(ctx context.Context, band uint32, description string) error {
	return img.do(func() error {
		if err := raster.CheckBand(ctx, img.f, band); err != nil {
			return err
		}
		return writeStrings(ctx, img.f, descriptionPath(band), description)
	})
}

// BandLayerType returns whether band is continuous or thematic.
func (img *Image) BandLayerType(ctx context.Context, band uint32) (LayerType, error) {
	v, err := img.bandUint8(ctx, band, layerTypePath(band))
	return LayerType(v), err
}

// SetBandLayerType marks band as continuous or thematic.
func (img *Image) SetBandLayerType(ctx context.Context, band uint32, t LayerType) error {
	if t > Thematic {
		return fmt.Errorf("unknown layer type %d", uint8(t))
	}
	return img.setBandUint8(ctx, band, layerTypePath(band), uint8(t))
}

// BandColourInterp returns the colour interpretation of band.
func (img *Image) BandColourInterp(ctx context.Context, band uint32) (ColourInterp, error) {
	v, err := img.bandUint8(ctx, band, layerUsagePath(band))
	return ColourInterp(v), err
}

// SetBandColourInterp sets the colour interpretation of band.
func (img *Image) SetBandColourInterp(ctx context.Context, band uint32, c ColourInterp) error {
	if c > YCbCrCr {
		return fmt.Errorf("unknown colour interpretation %d", uint8(c))
	}
	return img.setBandUint8(ctx, band, layerUsagePath(band), uint8(c))
}

func (img *Image) bandUint8(ctx context.Context, band uint32, p string) (uint8, error) {
	var v uint8
	err := img.do(func() error {
		if err := raster.CheckBand(ctx, img.f, band); err != nil {
			return err
		}
		vals, err := readNumbers[uint8](ctx, img.f, p, 1)
		if err != nil {
			return err
		}
		v = vals[0]
		return nil
	})
	return v, err
}

func (img *Image) setBandUint8(ctx context.Context, band uint32, p string, v uint8) error {
	return img.do(func() error {
		if err := raster.CheckBand(ctx, img.f, band); err != nil {
			return err
		}
		return writeNumbers(ctx, img.f, p, dtype.Uint8, v)
	})
}

// SetNoData sets the no-data value of band. v is any Go integer or float
// and is converted to the band's pixel type.
func (img *Image) SetNoData(ctx context.Context, band uint32, v any) error {
	return img.do(func() error {
		t, err := raster.DataType(ctx, img.f, band)
		if err != nil {
			return err
		}
		raw, err := dtype.EncodeValue(t, v)
		if err != nil {
			return err
		}
		return img.writeNoData(ctx, band, t, raw)
	})
}

func (img *Image) writeNoData(ctx context.Context, band uint32, t dtype.DataType, raw []byte) error {
	p := raster.NoDataPath(band)
	var (
		d   *store.Dataset
		err error
	)
	if img.f.HasDataset(p) {
		d, err = img.f.OpenDataset(p)
	} else {
		d, err = img.f.CreateDataset(p, store.Numeric(t), []uint64{1})
	}
	if err != nil {
		return err
	}
	if err := d.WriteRaw(ctx, []uint64{0}, []uint64{1}, raw); err != nil {
		return err
	}
	return img.f.SetAttribute(p, raster.AttrDefined, 1)
}

// NoData returns the no-data value of band as float64. It returns
// ErrNoDataUndefined when none is set.
func (img *Image) NoData(ctx context.Context, band uint32) (float64, error) {
	var v float64
	err := img.do(func() (err error) {
		v, err = img.noData(ctx, band)
		return err
	})
	return v, err
}

func (img *Image) noData(ctx context.Context, band uint32) (float64, error) {
	if err := raster.CheckBand(ctx, img.f, band); err != nil {
		return 0, err
	}
	p := raster.NoDataPath(band)
	if !img.f.HasDataset(p) {
		return 0, ErrNoDataUndefined
	}
	defined, err := img.f.AttributeInt(p, raster.AttrDefined)
	if errors.Is(err, store.ErrNotFound) || (err == nil && defined != 1) {
		return 0, ErrNoDataUndefined
	}
	if err != nil {
		return 0, err
	}
	d, err := img.f.OpenDataset(p)
	if err != nil {
		return 0, err
	}
	raw, err := d.ReadRaw(ctx, []uint64{0}, []uint64{1})
	if err != nil {
		return 0, err
	}
	return dtype.ElementFloat64(d.Datatype().Numeric, raw, 0)
}

// UndefineNoData clears the no-data value of band. The stored value is
// kept but no longer in effect.
func (img *Image) UndefineNoData(ctx context.Context, band uint32) error {
	return img.do(func() error {
		if err := raster.CheckBand(ctx, img.f, band); err != nil {
			return err
		}
		p := raster.NoDataPath(band)
		if !img.f.HasDataset(p) {
			return nil
		}
		return img.f.SetAttribute(p, raster.AttrDefined, 0)
	})
}
