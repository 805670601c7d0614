// Package kea reads and writes KEA raster images on top of a blob store.
//
// A KEA image is a set of bands sharing one extent and georeferencing. Each
// band holds chunked pixel data, an optional mask, a pyramid of overviews,
// metadata, an optional no-data value and a raster attribute table (RAT)
// with one row per class label.
//
// # Quick Start
//
//	ctx := context.Background()
//	bs := blobstore.NewMemoryStore()
//	img, _ := kea.Create(ctx, bs, kea.CreateOptions{
//	    DataType: dtype.Uint8,
//	    XSize:    600,
//	    YSize:    700,
//	    Bands:    1,
//	})
//	defer img.Close(ctx)
//
//	buf := make([]uint8, 256*256)
//	_ = img.WriteBlock(ctx, 1, buf, 0, 0, 256, 256, 256, 256)
//
// Local and cloud storage:
//
//	local := blobstore.NewLocalStore("./image.kea")
//	img, _ := kea.Open(ctx, local)
//
//	remote, _ := s3.NewStoreFromConfig(ctx, "my-bucket", "images/scene-1/")
//	img, _ := kea.Open(ctx, remote, kea.WithReadOnly())
//
// # Durability Model
//
// Writes are buffered in memory and become durable with Flush or Close:
//
//	img.WriteBlock(ctx, 1, buf, 0, 0, 256, 256, 256, 256) // buffered
//	img.Flush(ctx)                                          // durable after this
//
// Each flush uploads the changed chunks and then publishes a new manifest,
// so readers observe either the previous or the new state.
//
// # Attribute Tables
//
// AttributeTable binds a band's table for in-place access; rat.InMemoryTable
// builds one in memory for ExportAttributeTable:
//
//	tbl := rat.NewInMemoryTable()
//	_ = tbl.AddField(ctx, "Histogram", rat.Float, 0.0, "PixelCount")
//	_ = tbl.AddRows(ctx, 8)
//	_ = img.ExportAttributeTable(ctx, 1, tbl)
//
// BuildNeighbours derives the neighbour sets of every label from the pixels
// of a thematic band.
//
// # Observability
//
// Logging uses log/slog through Logger; metrics go to a MetricsCollector,
// such as BasicMetricsCollector or the prometheus subpackage.
//
// # Concurrency
//
// An Image is safe for concurrent use; every method serialises on one
// lock, and so does every call on a table returned by AttributeTable.
// Chunk uploads inside Flush run in parallel.
package kea
