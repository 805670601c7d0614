package kea

import (
	"context"
	"fmt"

	"github.com/hupe1980/kea/dtype"
	"github.com/hupe1980/kea/store"
)

// GCP is a ground control point tying a pixel position to a georeferenced
// coordinate.
type GCP struct {
	PixelID string
	Info    string
	Pixel   float64
	Line    float64
	X, Y, Z float64
}

var gcpType = store.Compound(
	store.Member{Name: "ID", Kind: store.MemberString},
	store.Member{Name: "INFO", Kind: store.MemberString},
	store.Member{Name: "PIXEL", Kind: store.MemberFloat64},
	store.Member{Name: "LINE", Kind: store.MemberFloat64},
	store.Member{Name: "X", Kind: store.MemberFloat64},
	store.Member{Name: "Y", Kind: store.MemberFloat64},
	store.Member{Name: "Z", Kind: store.MemberFloat64},
)

// SetGCPs replaces the ground control points and their projection.
//
// Failures are logged at warn level and otherwise ignored, so a failed
// write leaves the previous points in place without an error.
func (img *Image) SetGCPs(ctx context.Context, gcps []GCP, projection string) {
	img.mu.Lock()
	defer img.mu.Unlock()

	err := ErrClosed
	if !img.closed {
		err = translateError(img.setGCPs(ctx, gcps, projection))
	}
	if err != nil {
		img.logger.LogGCPFailure(ctx, len(gcps), err)
		return
	}
	img.logger.WithCount(len(gcps)).DebugContext(ctx, "ground control points written")
}

func (img *Image) setGCPs(ctx context.Context, gcps []GCP, projection string) error {
	n := uint64(len(gcps))
	if !img.f.HasGroup(gcpGroupPath) {
		if err := img.f.CreateGroup(gcpGroupPath); err != nil {
			return err
		}
	}
	d, err := openOrCreate(img.f, gcpsPath, gcpType, n)
	if err != nil {
		return err
	}
	if n > 0 {
		records := make([]store.Record, n)
		for i, g := range gcps {
			records[i] = store.Record{g.PixelID, g.Info, g.Pixel, g.Line, g.X, g.Y, g.Z}
		}
		if err := d.WriteRecords(ctx, []uint64{0}, []uint64{n}, records); err != nil {
			return err
		}
	}
	if err := writeNumbers(ctx, img.f, numGCPsPath, dtype.Uint32, uint32(n)); err != nil {
		return err
	}
	return writeStrings(ctx, img.f, gcpProjPath, projection)
}

// NumGCPs returns the number of ground control points.
func (img *Image) NumGCPs(ctx context.Context) (uint32, error) {
	var n uint32
	err := img.do(func() (err error) {
		n, err = img.numGCPs(ctx)
		return err
	})
	return n, err
}

func (img *Image) numGCPs(ctx context.Context) (uint32, error) {
	if !img.f.HasDataset(numGCPsPath) {
		return 0, nil
	}
	v, err := readNumbers[uint32](ctx, img.f, numGCPsPath, 1)
	if err != nil {
		return 0, err
	}
	return v[0], nil
}

// GCPs returns the ground control points.
func (img *Image) GCPs(ctx context.Context) ([]GCP, error) {
	var gcps []GCP
	err := img.do(func() error {
		n, err := img.numGCPs(ctx)
		if err != nil || n == 0 {
			return err
		}
		d, err := img.f.OpenDataset(gcpsPath)
		if err != nil {
			return err
		}
		records, err := d.ReadRecords(ctx, []uint64{0}, []uint64{uint64(n)})
		if err != nil {
			return err
		}
		gcps = make([]GCP, 0, len(records))
		for i, r := range records {
			g, ok := gcpFromRecord(r)
			if !ok {
				return &ErrHeader{Item: "GCPS", cause: fmt.Errorf("malformed entry %d", i)}
			}
			gcps = append(gcps, g)
		}
		return nil
	})
	return gcps, err
}

func gcpFromRecord(r store.Record) (GCP, bool) {
	var g GCP
	if len(r) != 7 {
		return g, false
	}
	var ok [7]bool
	g.PixelID, ok[0] = r[0].(string)
	g.Info, ok[1] = r[1].(string)
	g.Pixel, ok[2] = r[2].(float64)
	g.Line, ok[3] = r[3].(float64)
	g.X, ok[4] = r[4].(float64)
	g.Y, ok[5] = r[5].(float64)
	g.Z, ok[6] = r[6].(float64)
	return g, ok == [7]bool{true, true, true, true, true, true, true}
}

// GCPProjection returns the projection of the ground control points as WKT.
func (img *Image) GCPProjection(ctx context.Context) (string, error) {
	var proj string
	err := img.do(func() (err error) {
		proj, err = readString(ctx, img.f, gcpProjPath)
		return err
	})
	return proj, err
}
