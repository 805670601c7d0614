// Package store is a chunked, hierarchical dataset store on top of a
// blobstore.BlobStore.
//
// A File is a tree of groups and datasets addressed by absolute slash paths
// ("/BAND1/DATA"). Datasets are rank 1 or 2, chunked, optionally compressed
// and extensible along their first dimension. Elements are numeric (any
// dtype.DataType), strings, variable-length uint64 sequences or compound
// records. Every object can carry typed scalar attributes.
//
// # Layout
//
//	CURRENT                          name of the latest manifest
//	manifest/<generation>.<codec>    object tree, attributes, chunk index
//	chunks/<dataset id>/<chunk key>  one framed chunk (see internal/filter)
//
// # Consistency
//
// Writes are buffered in memory as dirty chunks. Flush uploads them in
// parallel and then commits a new manifest generation by swapping CURRENT.
// A crash before the swap keeps the previous manifest, although chunks the
// failed flush rewrote may already hold newer data. Chunks that were never
// written read back as the dataset's fill value.
//
// A File is safe for concurrent use; operations are serialised.
package store
