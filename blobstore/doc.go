// Package blobstore defines the byte-blob layer beneath a KEA container.
//
// A BlobStore holds named, immutable blobs: the CURRENT pointer, the
// manifest generations and one blob per dataset chunk. Blobs are replaced
// whole with Put and read through a Blob handle.
//
// # Backends
//
//   - MemoryStore keeps blobs in a map, for tests and scratch images.
//   - LocalStore maps blob names onto files below a root directory and
//     serves reads from memory-mapped files.
//   - CachingStore wraps any BlobStore with a byte-budgeted read cache,
//     useful in front of the remote stores.
//
// Remote backends live in the s3 and minio subpackages.
//
//	bs := blobstore.NewCachingStore(blobstore.NewLocalStore("/data/scene.kea"), 64<<20, nil)
//	img, err := kea.Create(ctx, bs, kea.CreateOptions{XSize: 512, YSize: 512, Bands: 1})
package blobstore
