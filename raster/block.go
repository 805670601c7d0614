package raster

import (
	"context"
	"errors"
	"fmt"

	"github.com/hupe1980/kea/dtype"
	"github.com/hupe1980/kea/internal/conv"
	"github.com/hupe1980/kea/store"
)

// Target selects the dataset of a block transfer: the band's pixels when
// Overview is 0, otherwise the given overview level.
type Target struct {
	Band     uint32
	Overview uint32
}

func (t Target) open(ctx context.Context, f *store.File) (*store.Dataset, error) {
	if err := CheckBand(ctx, f, t.Band); err != nil {
		return nil, err
	}
	if t.Overview == 0 {
		return f.OpenDataset(DataPath(t.Band))
	}
	d, err := f.OpenDataset(OverviewPath(t.Band, t.Overview))
	if errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("%w: band %d level %d", ErrOverviewNotFound, t.Band, t.Overview)
	}
	return d, err
}

// window is a validated transfer rectangle.
type window struct {
	xOff, yOff       uint64
	xSize, ySize     uint64
	bufXSize         uint64
	bufYSize         uint64
	bufType          dtype.DataType
	bufLen, elements int
}

func checkWindow(d *store.Dataset, buf any, xOff, yOff, xSize, ySize, bufXSize, bufYSize uint64) (window, error) {
	dims, err := d.Dims()
	if err != nil {
		return window{}, err
	}
	height, width := dims[0], dims[1]
	if xOff+xSize < xOff || xOff+xSize > width || yOff+ySize < yOff || yOff+ySize > height {
		return window{}, &WindowError{XOff: xOff, YOff: yOff, XSize: xSize, YSize: ySize, Width: width, Height: height}
	}

	bt, err := dtype.Of(buf)
	if err != nil {
		return window{}, err
	}
	n, err := dtype.Len(buf)
	if err != nil {
		return window{}, err
	}
	bufErr := &BufferError{XSize: xSize, YSize: ySize, BufXSize: bufXSize, BufYSize: bufYSize, Len: n}
	if bufXSize < xSize || bufYSize < ySize {
		return window{}, bufErr
	}
	elements, err := conv.Int(bufXSize * bufYSize)
	if err != nil || (bufYSize != 0 && bufXSize*bufYSize/bufYSize != bufXSize) || n < elements {
		return window{}, bufErr
	}
	return window{
		xOff: xOff, yOff: yOff, xSize: xSize, ySize: ySize,
		bufXSize: bufXSize, bufYSize: bufYSize,
		bufType: bt, bufLen: n, elements: elements,
	}, nil
}

// packed reports whether the buffer is exactly the window.
func (w window) packed() bool {
	return w.bufXSize == w.xSize && w.bufYSize == w.ySize
}

// WriteBlock writes the xSize×ySize window at (xOff, yOff) from buf, whose
// rows are bufXSize elements apart.
func WriteBlock(ctx context.Context, f *store.File, t Target, buf any, xOff, yOff, xSize, ySize, bufXSize, bufYSize uint64) error {
	d, err := t.open(ctx, f)
	if err != nil {
		return err
	}
	return writeWindow(ctx, d, buf, xOff, yOff, xSize, ySize, bufXSize, bufYSize)
}

func writeWindow(ctx context.Context, d *store.Dataset, buf any, xOff, yOff, xSize, ySize, bufXSize, bufYSize uint64) error {
	w, err := checkWindow(d, buf, xOff, yOff, xSize, ySize, bufXSize, bufYSize)
	if err != nil {
		return err
	}
	if xSize == 0 || ySize == 0 {
		return nil
	}
	pixel := d.Datatype().Numeric
	size := pixel.Size()

	view, err := dtype.Prefix(buf, w.elements)
	if err != nil {
		return err
	}
	raw, err := dtype.Encode(pixel, view)
	if err != nil {
		return err
	}
	if !w.packed() {
		rowBytes := int(xSize) * size
		stride := int(bufXSize) * size
		sub := make([]byte, 0, int(ySize)*rowBytes)
		for r := 0; r < int(ySize); r++ {
			sub = append(sub, raw[r*stride:r*stride+rowBytes]...)
		}
		raw = sub
	}
	return d.WriteRaw(ctx, []uint64{yOff, xOff}, []uint64{ySize, xSize}, raw)
}

// ReadBlock reads the xSize×ySize window at (xOff, yOff) into buf, whose
// rows are bufXSize elements apart. When the buffer is larger than the
// window, its remaining elements are set to the band's no-data value, or
// zero when none is defined.
func ReadBlock(ctx context.Context, f *store.File, t Target, buf any, xOff, yOff, xSize, ySize, bufXSize, bufYSize uint64) error {
	d, err := t.open(ctx, f)
	if err != nil {
		return err
	}
	pad, err := noDataPad(ctx, f, t.Band)
	if err != nil {
		return err
	}
	return readWindow(ctx, d, buf, pad, xOff, yOff, xSize, ySize, bufXSize, bufYSize)
}

// noDataPad returns the encoded no-data value of a band and its type, or nil
// when none is defined.
func noDataPad(ctx context.Context, f *store.File, band uint32) (*padValue, error) {
	p := NoDataPath(band)
	if !f.HasDataset(p) {
		return nil, nil
	}
	defined, err := f.AttributeInt(p, AttrDefined)
	if err != nil || defined != 1 {
		return nil, nil
	}
	d, err := f.OpenDataset(p)
	if err != nil {
		return nil, err
	}
	raw, err := d.ReadRaw(ctx, []uint64{0}, []uint64{1})
	if err != nil {
		return nil, err
	}
	return &padValue{t: d.Datatype().Numeric, raw: raw}, nil
}

type padValue struct {
	t   dtype.DataType
	raw []byte
}

func readWindow(ctx context.Context, d *store.Dataset, buf any, pad *padValue, xOff, yOff, xSize, ySize, bufXSize, bufYSize uint64) error {
	w, err := checkWindow(d, buf, xOff, yOff, xSize, ySize, bufXSize, bufYSize)
	if err != nil {
		return err
	}
	pixel := d.Datatype().Numeric

	raw, err := d.ReadRaw(ctx, []uint64{yOff, xOff}, []uint64{ySize, xSize})
	if err != nil {
		return err
	}
	raw, err = dtype.Convert(w.bufType, pixel, raw)
	if err != nil {
		return err
	}

	if !w.packed() {
		size := w.bufType.Size()
		out := make([]byte, w.elements*size)
		if pad != nil {
			v, err := dtype.Convert(w.bufType, pad.t, pad.raw)
			if err != nil {
				return err
			}
			for i := 0; i < w.elements; i++ {
				copy(out[i*size:], v)
			}
		}
		rowBytes := int(xSize) * size
		stride := int(bufXSize) * size
		for r := 0; r < int(ySize); r++ {
			copy(out[r*stride:r*stride+rowBytes], raw[r*rowBytes:(r+1)*rowBytes])
		}
		raw = out
	}

	view, err := dtype.Prefix(buf, w.elements)
	if err != nil {
		return err
	}
	return dtype.Decode(w.bufType, raw, view)
}

// HasMask reports whether band n has a mask.
func HasMask(ctx context.Context, f *store.File, band uint32) (bool, error) {
	if err := CheckBand(ctx, f, band); err != nil {
		return false, err
	}
	return f.HasDataset(MaskPath(band)), nil
}

// CreateMask creates the uint8 mask of band n, shaped and blocked like the
// band, with every pixel set to MaskFill. It is a no-op when the mask
// exists.
func CreateMask(ctx context.Context, f *store.File, band uint32) error {
	if err := CheckBand(ctx, f, band); err != nil {
		return err
	}
	if f.HasDataset(MaskPath(band)) {
		return nil
	}
	data, err := f.OpenDataset(DataPath(band))
	if err != nil {
		return err
	}
	dims, err := data.Dims()
	if err != nil {
		return err
	}
	blockSize, err := f.AttributeUint(DataPath(band), AttrBlockSize)
	if err != nil {
		return err
	}
	_, err = createImageDataset(f, MaskPath(band), dtype.Uint8, dims[1], dims[0], uint32(blockSize), MaskFill, "1.2")
	return err
}

func openMask(ctx context.Context, f *store.File, band uint32) (*store.Dataset, error) {
	if err := CheckBand(ctx, f, band); err != nil {
		return nil, err
	}
	d, err := f.OpenDataset(MaskPath(band))
	if errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("%w: band %d", ErrMaskNotFound, band)
	}
	return d, err
}

// WriteMask writes a window of the band's mask.
func WriteMask(ctx context.Context, f *store.File, band uint32, buf any, xOff, yOff, xSize, ySize, bufXSize, bufYSize uint64) error {
	d, err := openMask(ctx, f, band)
	if err != nil {
		return err
	}
	return writeWindow(ctx, d, buf, xOff, yOff, xSize, ySize, bufXSize, bufYSize)
}

// ReadMask reads a window of the band's mask. Buffer elements outside the
// window are set to MaskFill.
func ReadMask(ctx context.Context, f *store.File, band uint32, buf any, xOff, yOff, xSize, ySize, bufXSize, bufYSize uint64) error {
	d, err := openMask(ctx, f, band)
	if err != nil {
		return err
	}
	pad := &padValue{t: dtype.Uint8, raw: []byte{MaskFill}}
	return readWindow(ctx, d, buf, pad, xOff, yOff, xSize, ySize, bufXSize, bufYSize)
}
