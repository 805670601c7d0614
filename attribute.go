package kea

import (
	"context"
	"time"

	"github.com/hupe1980/kea/raster"
	"github.com/hupe1980/kea/rat"
)

// AttributeTable binds the attribute table of band. Every call on the table
// takes the image lock, so it is serialised with the image's other
// operations, and sees tables written by ExportAttributeTable in the
// meantime. Changes become durable with Flush or Close.
func (img *Image) AttributeTable(ctx context.Context, band uint32) (*rat.ChunkedTable, error) {
	var t *rat.ChunkedTable
	err := img.do(func() (err error) {
		t, err = img.attributeTable(ctx, band, rat.WithLocker(&img.mu))
		return err
	})
	return t, err
}

// attributeTable opens the table of band. Without options the table has a
// lock of its own, for use while the image lock is held.
func (img *Image) attributeTable(ctx context.Context, band uint32, opts ...rat.OpenOption) (*rat.ChunkedTable, error) {
	if err := raster.CheckBand(ctx, img.f, band); err != nil {
		return nil, err
	}
	if err := rat.CreateHeaders(ctx, img.f, band, rat.DefaultChunkSize); err != nil && !img.f.ReadOnly() {
		return nil, err
	}
	return rat.Open(ctx, img.f, band, rat.DefaultChunkSize, opts...)
}

// HasAttributeTable reports whether band has an attribute table with at
// least one row or field.
func (img *Image) HasAttributeTable(ctx context.Context, band uint32) (bool, error) {
	var ok bool
	err := img.do(func() error {
		if err := raster.CheckBand(ctx, img.f, band); err != nil {
			return err
		}
		if !img.f.HasDataset(rat.SizeHeaderPath(band)) {
			return nil
		}
		t, err := rat.Open(ctx, img.f, band, rat.DefaultChunkSize)
		if err != nil {
			return err
		}
		ok = t.Size() > 0 || len(t.Fields()) > 0
		return nil
	})
	return ok, err
}

// AttributeTableChunkSize returns the row block size of the attribute table
// of band.
func (img *Image) AttributeTableChunkSize(ctx context.Context, band uint32) (uint32, error) {
	var cs uint32
	err := img.do(func() error {
		t, err := img.attributeTable(ctx, band)
		if err != nil {
			return err
		}
		cs = t.ChunkSize()
		return nil
	})
	return cs, err
}

// ExportAttributeTable writes src as the attribute table of band, keeping
// the band's chunk size. Datasets created by the export use the image
// compression.
//
// src is copied into memory before the image lock is taken, so it may be a
// table returned by AttributeTable of this image.
func (img *Image) ExportAttributeTable(ctx context.Context, band uint32, src rat.Table) error {
	snapshot := rat.NewInMemoryTable()
	if err := rat.Copy(ctx, snapshot, src); err != nil {
		return translateError(err)
	}
	return img.do(func() error {
		start := time.Now()
		err := translateError(img.exportAttributeTable(ctx, band, snapshot))
		img.metrics.RecordAttributeExport(snapshot.Size(), time.Since(start), err)
		img.logger.LogAttributeExport(ctx, band, snapshot.Size(), err)
		return err
	})
}

func (img *Image) exportAttributeTable(ctx context.Context, band uint32, src rat.Table) error {
	dst, err := img.attributeTable(ctx, band)
	if err != nil {
		return err
	}
	return rat.Export(ctx, src, img.f, band, dst.ChunkSize(), -1)
}
