package kea

import (
	"context"
	"fmt"
	"strings"

	"github.com/hupe1980/kea/raster"
	"github.com/hupe1980/kea/store"
)

// MetadataItem is one name/value metadata pair.
type MetadataItem struct {
	Name  string
	Value string
}

func checkMetadataName(name string) error {
	if name == "" || strings.Contains(name, "/") {
		return fmt.Errorf("%w: metadata name %q", store.ErrInvalidPath, name)
	}
	return nil
}

func setMetadata(ctx context.Context, f *store.File, group, name, value string) error {
	if err := checkMetadataName(name); err != nil {
		return err
	}
	if !f.HasGroup(group) {
		if err := f.CreateGroup(group); err != nil {
			return err
		}
	}
	return writeStrings(ctx, f, group+"/"+name, value)
}

func getMetadata(ctx context.Context, f *store.File, group, name string) (string, error) {
	if err := checkMetadataName(name); err != nil {
		return "", err
	}
	return readString(ctx, f, group+"/"+name)
}

func metadataNames(f *store.File, group string) ([]string, error) {
	if !f.HasGroup(group) {
		return nil, nil
	}
	children, err := f.Children(group)
	if err != nil {
		return nil, err
	}
	names := children[:0]
	for _, c := range children {
		if f.HasDataset(group + "/" + c) {
			names = append(names, c)
		}
	}
	return names, nil
}

func metadataItems(ctx context.Context, f *store.File, group string) ([]MetadataItem, error) {
	names, err := metadataNames(f, group)
	if err != nil {
		return nil, err
	}
	items := make([]MetadataItem, 0, len(names))
	for _, name := range names {
		v, err := readString(ctx, f, group+"/"+name)
		if err != nil {
			return nil, err
		}
		items = append(items, MetadataItem{Name: name, Value: v})
	}
	return items, nil
}

// SetMetadata stores an image metadata item, replacing any previous value.
func (img *Image) SetMetadata(ctx context.Context, name, value string) error {
	return img.do(func() error {
		return setMetadata(ctx, img.f, metadataPath, name, value)
	})
}

// Metadata returns an image metadata item or ErrNotFound.
func (img *Image) Metadata(ctx context.Context, name string) (string, error) {
	var v string
	err := img.do(func() (err error) {
		v, err = getMetadata(ctx, img.f, metadataPath, name)
		return err
	})
	return v, err
}

// MetadataItems returns every image metadata item ordered by name.
func (img *Image) MetadataItems(ctx context.Context) ([]MetadataItem, error) {
	var items []MetadataItem
	err := img.do(func() (err error) {
		items, err = metadataItems(ctx, img.f, metadataPath)
		return err
	})
	return items, err
}

// MetadataNames returns the sorted names of the image metadata items.
func (img *Image) MetadataNames(ctx context.Context) ([]string, error) {
	var names []string
	err := img.do(func() (err error) {
		names, err = metadataNames(img.f, metadataPath)
		return err
	})
	return names, err
}

// SetBandMetadata stores a metadata item of band.
func (img *Image) SetBandMetadata(ctx context.Context, band uint32, name, value string) error {
	return img.do(func() error {
		if err := raster.CheckBand(ctx, img.f, band); err != nil {
			return err
		}
		return setMetadata(ctx, img.f, bandMetadataPath(band), name, value)
	})
}

// BandMetadata returns a metadata item of band or ErrNotFound.
func (img *Image) BandMetadata(ctx context.Context, band uint32, name string) (string, error) {
	var v string
	err := img.do(func() error {
		if err := raster.CheckBand(ctx, img.f, band); err != nil {
			return err
		}
		var err error
		v, err = getMetadata(ctx, img.f, bandMetadataPath(band), name)
		return err
	})
	return v, err
}

// BandMetadataItems returns every metadata item of band ordered by name.
func (img *Image) BandMetadataItems(ctx context.Context, band uint32) ([]MetadataItem, error) {
	var items []MetadataItem
	err := img.do(func() error {
		if err := raster.CheckBand(ctx, img.f, band); err != nil {
			return err
		}
		var err error
		items, err = metadataItems(ctx, img.f, bandMetadataPath(band))
		return err
	})
	return items, err
}

// BandMetadataNames returns the sorted metadata names of band.
func (img *Image) BandMetadataNames(ctx context.Context, band uint32) ([]string, error) {
	var names []string
	err := img.do(func() error {
		if err := raster.CheckBand(ctx, img.f, band); err != nil {
			return err
		}
		var err error
		names, err = metadataNames(img.f, bandMetadataPath(band))
		return err
	})
	return names, err
}
