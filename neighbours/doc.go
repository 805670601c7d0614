// Package neighbours builds the segment adjacency graph of a label image and
// streams it into the neighbour relation of an attribute table.
//
// The image is presented tile by tile. Each tile carries a one pixel border of
// real image data that is only looked at, never processed, so tiles overlap
// their neighbours and every image pixel must be interior to exactly one
// tile. Pad the image with the ignore value to cover its outer edge.
//
// A label's neighbour set is written as soon as all of its pixels, as
// counted by the histogram, have been visited:
//
//	acc := neighbours.New(hist, table, 0, neighbours.Four)
//	for _, tile := range tiles {
//		if err := acc.AddTile(ctx, tile); err != nil {
//			return err
//		}
//	}
//	return acc.Close()
//
// An Accumulator is not safe for concurrent use.
package neighbours
