package kea_test

import (
	"context"
	"fmt"
	"log"

	"github.com/hupe1980/kea"
	"github.com/hupe1980/kea/blobstore"
	"github.com/hupe1980/kea/dtype"
	"github.com/hupe1980/kea/neighbours"
	"github.com/hupe1980/kea/rat"
)

// Example demonstrates creating an image, writing a block and reading it
// back after reopening.
func Example() {
	ctx := context.Background()
	bs := blobstore.NewMemoryStore()

	img, err := kea.Create(ctx, bs, kea.CreateOptions{
		DataType: dtype.Uint8,
		XSize:    4,
		YSize:    3,
		Bands:    1,
	})
	if err != nil {
		log.Fatal(err)
	}
	pixels := []uint8{
		1, 2, 3, 4,
		5, 6, 7, 8,
		9, 10, 11, 12,
	}
	if err := img.WriteBlock(ctx, 1, pixels, 0, 0, 4, 3, 4, 3); err != nil {
		log.Fatal(err)
	}
	if err := img.Close(ctx); err != nil {
		log.Fatal(err)
	}

	img, err = kea.Open(ctx, bs, kea.WithReadOnly())
	if err != nil {
		log.Fatal(err)
	}
	defer img.Close(ctx)

	out := make([]uint8, 4)
	if err := img.ReadBlock(ctx, 1, out, 1, 1, 2, 2, 2, 2); err != nil {
		log.Fatal(err)
	}
	blockSize, _ := img.BandBlockSize(ctx, 1)
	fmt.Println(out, blockSize)
	// Output: [6 7 10 11] 3
}

// Example_buildNeighbours demonstrates deriving the neighbour sets of a
// thematic band.
func Example_buildNeighbours() {
	ctx := context.Background()
	img, err := kea.Create(ctx, blobstore.NewMemoryStore(), kea.CreateOptions{
		DataType: dtype.Uint8,
		XSize:    4,
		YSize:    2,
		Bands:    1,
	})
	if err != nil {
		log.Fatal(err)
	}
	defer img.Close(ctx)

	labels := []uint8{
		1, 1, 2, 3,
		1, 1, 2, 3,
	}
	if err := img.WriteBlock(ctx, 1, labels, 0, 0, 4, 2, 4, 2); err != nil {
		log.Fatal(err)
	}

	tbl := rat.NewInMemoryTable()
	_ = tbl.AddField(ctx, kea.HistogramField, rat.Float, 0.0, "PixelCount")
	_ = tbl.AddRows(ctx, 4)
	h, _ := tbl.Handle(kea.HistogramField)
	_ = tbl.SetFloatFields(ctx, 0, 4, h, []float64{0, 4, 2, 2})
	if err := img.ExportAttributeTable(ctx, 1, tbl); err != nil {
		log.Fatal(err)
	}

	if err := img.BuildNeighbours(ctx, 1, neighbours.Four, 0, nil); err != nil {
		log.Fatal(err)
	}
	att, _ := img.AttributeTable(ctx, 1)
	sets, _ := att.GetNeighbours(ctx, 1, 3)
	fmt.Println(sets)
	// Output: [[2] [1 3] [2]]
}
