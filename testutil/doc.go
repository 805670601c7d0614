// Package testutil provides testing utilities for kea.
//
// This package is intended for use in tests and benchmarks only.
// It provides helpers for generating label images, cutting them into
// overlapping tiles, and computing reference adjacency graphs.
//
// # Label Images
//
//	rng := testutil.NewRNG(seed)
//	img := rng.Segments(64, 48, 20) // labels 1..20 in contiguous regions
//	hist := testutil.Histogram(img, 0)
//
// # Tiling
//
//	tiles := testutil.Tiles(testutil.Pad(img, 0), 16, 16)
//
// # Reference Adjacency
//
//	want := testutil.Adjacency(img, 0, false)
package testutil
