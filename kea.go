package kea

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/hupe1980/kea/blobstore"
	"github.com/hupe1980/kea/dtype"
	"github.com/hupe1980/kea/raster"
	"github.com/hupe1980/kea/rat"
	"github.com/hupe1980/kea/store"
)

// SpatialInfo is the georeferencing of an image: the top-left corner, the
// pixel resolution and rotation, the extent in pixels and the projection
// as WKT.
type SpatialInfo struct {
	TLX, TLY     float64
	XRes, YRes   float64
	XRot, YRot   float64
	XSize, YSize uint64
	WKT          string
}

// CreateOptions describes the layout of a new image.
type CreateOptions struct {
	// DataType is the pixel type of the initial bands. Zero means Uint8.
	DataType dtype.DataType
	// XSize and YSize are the image extent in pixels.
	XSize, YSize uint64
	// Bands is the number of bands to create.
	Bands uint32
	// Descriptions overrides the default "Band n" description per band.
	Descriptions []string
	// SpatialInfo, when set, supplies the geotransform and projection. Its
	// XSize and YSize are ignored in favour of the fields above.
	SpatialInfo *SpatialInfo
	// BlockSize is the requested block edge. Zero means 256.
	BlockSize uint32
	// AttributeChunkSize is the row block size of attribute tables. Zero
	// means 1000.
	AttributeChunkSize uint32
}

// Image is an open KEA image. Every method serialises on one lock.
type Image struct {
	mu      sync.Mutex
	f       *store.File
	opts    options
	logger  *Logger
	metrics MetricsCollector
	closed  bool
}

// Create initialises a new image in bs and flushes it.
func Create(ctx context.Context, bs blobstore.BlobStore, spec CreateOptions, optFns ...Option) (*Image, error) {
	o := applyOptions(optFns)
	if o.readOnly {
		return nil, ErrReadOnly
	}
	if spec.XSize == 0 || spec.YSize == 0 {
		return nil, &ErrInvalidSize{XSize: spec.XSize, YSize: spec.YSize}
	}
	if spec.DataType == dtype.Unknown {
		spec.DataType = dtype.Uint8
	}
	if !spec.DataType.Valid() {
		return nil, fmt.Errorf("%w: pixel type %d", dtype.ErrUnsupported, spec.DataType)
	}
	if spec.BlockSize == 0 {
		spec.BlockSize = raster.DefaultBlockSize
	}
	if spec.BlockSize > math.MaxUint16 {
		return nil, fmt.Errorf("block size %d exceeds %d", spec.BlockSize, math.MaxUint16)
	}
	if spec.AttributeChunkSize == 0 {
		spec.AttributeChunkSize = rat.DefaultChunkSize
	}

	f, err := store.Create(ctx, bs, o.storeOptions()...)
	if err != nil {
		return nil, translateError(err)
	}
	img := &Image{f: f, opts: o, logger: o.logger, metrics: o.metricsCollector}

	si := SpatialInfo{XRes: 1, YRes: -1}
	if spec.SpatialInfo != nil {
		si = *spec.SpatialInfo
	}
	si.XSize, si.YSize = spec.XSize, spec.YSize

	if err := img.initHeader(ctx, si, spec.BlockSize); err != nil {
		f.Discard()
		return nil, translateError(err)
	}
	for i := range spec.Bands {
		desc := ""
		if int(i) < len(spec.Descriptions) {
			desc = spec.Descriptions[i]
		}
		if _, err := img.addBand(ctx, spec.DataType, desc, spec.BlockSize, spec.AttributeChunkSize); err != nil {
			f.Discard()
			return nil, translateError(err)
		}
	}
	if err := img.flush(ctx); err != nil {
		f.Discard()
		return nil, err
	}

	o.logger.InfoContext(ctx, "image created",
		"x_size", spec.XSize,
		"y_size", spec.YSize,
		"bands", spec.Bands,
		"data_type", spec.DataType.String(),
	)
	return img, nil
}

func (img *Image) initHeader(ctx context.Context, si SpatialInfo, blockSize uint32) error {
	if err := writeSpatialInfo(ctx, img.f, si); err != nil {
		return err
	}
	if err := writeStrings(ctx, img.f, fileTypePath, fileType); err != nil {
		return err
	}
	if err := writeStrings(ctx, img.f, generatorPath, generatorName); err != nil {
		return err
	}
	if err := writeStrings(ctx, img.f, versionPath, fileVersion); err != nil {
		return err
	}
	if err := writeNumbers(ctx, img.f, numBandsPath, dtype.Uint16, uint16(0)); err != nil {
		return err
	}
	if err := writeNumbers(ctx, img.f, blockSizePath, dtype.Uint16, uint16(blockSize)); err != nil {
		return err
	}
	if err := img.f.CreateGroup(metadataPath); err != nil {
		return err
	}
	return img.f.CreateGroup(gcpGroupPath)
}

// Open opens the image stored in bs and validates its header.
func Open(ctx context.Context, bs blobstore.BlobStore, optFns ...Option) (*Image, error) {
	o := applyOptions(optFns)
	f, err := store.Open(ctx, bs, o.storeOptions()...)
	if err != nil {
		return nil, translateError(err)
	}

	ft, err := readString(ctx, f, fileTypePath)
	if err != nil || ft != fileType {
		_ = f.Close(ctx)
		return nil, fmt.Errorf("%w: %w", ErrNotKEA, &ErrHeader{Item: "FILETYPE", cause: err})
	}
	if _, err := readSpatialInfo(ctx, f); err != nil {
		_ = f.Close(ctx)
		return nil, translateError(err)
	}
	if _, err := raster.NumBands(ctx, f); err != nil {
		_ = f.Close(ctx)
		return nil, &ErrHeader{Item: "NUMBANDS", cause: translateError(err)}
	}

	o.logger.DebugContext(ctx, "image opened",
		"generation", f.Generation(),
		"read_only", o.readOnly,
	)
	return &Image{f: f, opts: o, logger: o.logger, metrics: o.metricsCollector}, nil
}

// do runs fn under the image lock.
func (img *Image) do(fn func() error) error {
	img.mu.Lock()
	defer img.mu.Unlock()

	if img.closed {
		return ErrClosed
	}
	return translateError(fn())
}

// Flush makes every change since the last flush durable.
func (img *Image) Flush(ctx context.Context) error {
	img.mu.Lock()
	defer img.mu.Unlock()

	if img.closed {
		return ErrClosed
	}
	return img.flush(ctx)
}

func (img *Image) flush(ctx context.Context) error {
	if img.f.ReadOnly() {
		return nil
	}
	start := time.Now()
	err := translateError(img.f.Flush(ctx))
	duration := time.Since(start)
	img.metrics.RecordFlush(duration, err)
	img.logger.LogFlush(ctx, img.f.Generation(), duration, err)
	return err
}

// Close flushes pending changes and releases the image. Closing twice is a
// no-op.
func (img *Image) Close(ctx context.Context) error {
	img.mu.Lock()
	defer img.mu.Unlock()

	if img.closed {
		return nil
	}
	img.closed = true

	var err error
	if !img.f.ReadOnly() {
		err = img.flush(ctx)
	}
	if cerr := img.f.Close(ctx); err == nil {
		err = translateError(cerr)
	}
	return err
}

// ReadOnly reports whether the image was opened with WithReadOnly.
func (img *Image) ReadOnly() bool { return img.opts.readOnly }

// SpatialInfo returns the georeferencing of the image.
func (img *Image) SpatialInfo(ctx context.Context) (SpatialInfo, error) {
	var si SpatialInfo
	err := img.do(func() (err error) {
		si, err = readSpatialInfo(ctx, img.f)
		return err
	})
	return si, err
}

// SetSpatialInfo replaces the geotransform and projection. The extent is
// fixed at creation; XSize and YSize of si are ignored.
func (img *Image) SetSpatialInfo(ctx context.Context, si SpatialInfo) error {
	return img.do(func() error {
		cur, err := readSpatialInfo(ctx, img.f)
		if err != nil {
			return err
		}
		si.XSize, si.YSize = cur.XSize, cur.YSize
		return writeSpatialInfo(ctx, img.f, si)
	})
}

// size returns the image extent from the header.
func (img *Image) size(ctx context.Context) (xSize, ySize uint64, err error) {
	s, err := readNumbers[uint64](ctx, img.f, sizePath, 2)
	if err != nil {
		return 0, 0, &ErrHeader{Item: "SIZE", cause: err}
	}
	return s[0], s[1], nil
}
