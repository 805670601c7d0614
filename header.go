package kea

import (
	"context"
	"fmt"

	"github.com/hupe1980/kea/dtype"
	"github.com/hupe1980/kea/raster"
	"github.com/hupe1980/kea/store"
)

// Header dataset paths.
const (
	headerPath    = "/HEADER"
	numBandsPath  = raster.HeaderNumBandsPath
	blockSizePath = headerPath + "/BLOCKSIZE"
	resPath       = headerPath + "/RES"
	tlPath        = headerPath + "/TL"
	rotPath       = headerPath + "/ROT"
	sizePath      = headerPath + "/SIZE"
	wktPath       = headerPath + "/WKT"
	fileTypePath  = headerPath + "/FILETYPE"
	generatorPath = headerPath + "/GENERATOR"
	versionPath   = headerPath + "/VERSION"
	metadataPath  = "/METADATA"
	gcpGroupPath  = "/GCPS"
	gcpsPath      = gcpGroupPath + "/GCPS"
	numGCPsPath   = gcpGroupPath + "/NUM_GCPS"
	gcpProjPath   = gcpGroupPath + "/GCP_PROJ"
	fileType      = "KEA"
	fileVersion   = "1.1"
	generatorName = "kea-go"
)

// writeStrings stores values in the rank 1 string dataset at p, creating it
// when missing.
func writeStrings(ctx context.Context, f *store.File, p string, values ...string) error {
	n := uint64(len(values))
	d, err := openOrCreate(f, p, store.String, n)
	if err != nil {
		return err
	}
	return d.WriteStrings(ctx, []uint64{0}, []uint64{n}, values)
}

// readString returns the first element of the string dataset at p.
func readString(ctx context.Context, f *store.File, p string) (string, error) {
	d, err := f.OpenDataset(p)
	if err != nil {
		return "", err
	}
	v, err := d.ReadStrings(ctx, []uint64{0}, []uint64{1})
	if err != nil {
		return "", err
	}
	return v[0], nil
}

// writeNumbers stores values in the rank 1 dataset of type t at p,
// creating it when missing.
func writeNumbers[T dtype.Number](ctx context.Context, f *store.File, p string, t dtype.DataType, values ...T) error {
	n := uint64(len(values))
	d, err := openOrCreate(f, p, store.Numeric(t), n)
	if err != nil {
		return err
	}
	return store.Write(ctx, d, []uint64{0}, []uint64{n}, values)
}

// readNumbers reads n elements of the dataset at p converted to T.
func readNumbers[T dtype.Number](ctx context.Context, f *store.File, p string, n uint64) ([]T, error) {
	d, err := f.OpenDataset(p)
	if err != nil {
		return nil, err
	}
	return store.Read[T](ctx, d, []uint64{0}, []uint64{n})
}

func openOrCreate(f *store.File, p string, t store.Datatype, n uint64) (*store.Dataset, error) {
	if !f.HasDataset(p) {
		return f.CreateDataset(p, t, []uint64{n}, store.WithMaxDims(0))
	}
	d, err := f.OpenDataset(p)
	if err != nil {
		return nil, err
	}
	if d.Datatype().Class != t.Class {
		return nil, fmt.Errorf("%w: %s holds %s", store.ErrTypeMismatch, p, d.Datatype())
	}
	if err := d.Resize([]uint64{n}); err != nil {
		return nil, err
	}
	return d, nil
}

// readSpatialInfo loads the geotransform, extent and projection.
func readSpatialInfo(ctx context.Context, f *store.File) (SpatialInfo, error) {
	var si SpatialInfo
	tl, err := readNumbers[float64](ctx, f, tlPath, 2)
	if err != nil {
		return si, &ErrHeader{Item: "TL", cause: err}
	}
	res, err := readNumbers[float64](ctx, f, resPath, 2)
	if err != nil {
		return si, &ErrHeader{Item: "RES", cause: err}
	}
	rot, err := readNumbers[float64](ctx, f, rotPath, 2)
	if err != nil {
		return si, &ErrHeader{Item: "ROT", cause: err}
	}
	size, err := readNumbers[uint64](ctx, f, sizePath, 2)
	if err != nil {
		return si, &ErrHeader{Item: "SIZE", cause: err}
	}
	wkt, err := readString(ctx, f, wktPath)
	if err != nil {
		return si, &ErrHeader{Item: "WKT", cause: err}
	}
	si.TLX, si.TLY = tl[0], tl[1]
	si.XRes, si.YRes = res[0], res[1]
	si.XRot, si.YRot = rot[0], rot[1]
	si.XSize, si.YSize = size[0], size[1]
	si.WKT = wkt
	return si, nil
}

func writeSpatialInfo(ctx context.Context, f *store.File, si SpatialInfo) error {
	if err := writeNumbers(ctx, f, tlPath, dtype.Float64, si.TLX, si.TLY); err != nil {
		return err
	}
	if err := writeNumbers(ctx, f, resPath, dtype.Float64, si.XRes, si.YRes); err != nil {
		return err
	}
	if err := writeNumbers(ctx, f, rotPath, dtype.Float64, si.XRot, si.YRot); err != nil {
		return err
	}
	if err := writeNumbers(ctx, f, sizePath, dtype.Uint64, si.XSize, si.YSize); err != nil {
		return err
	}
	return writeStrings(ctx, f, wktPath, si.WKT)
}
