// Package raster moves rectangular pixel windows between caller buffers and
// the block-tiled band datasets of a KEA container, and manages the
// per-band overview pyramid and mask.
//
// A band n lives under /BANDn. Its pixels are the 2-D dataset /BANDn/DATA
// with dimensions (ySize, xSize), chunked in square blocks whose edge length
// is recorded in the BLOCK_SIZE attribute. Overviews are
// /BANDn/OVERVIEWS/OVERVIEWm (levels start at 1) and the optional mask is
// /BANDn/MASK.
//
// Buffers are typed numeric slices ([]uint8 ... []float64) and are converted
// to and from the band's pixel type. A buffer may be larger than the window:
// it is then addressed with a row stride of bufXSize and only the leading
// xSize×ySize sub-rectangle is transferred.
package raster
