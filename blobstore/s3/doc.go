// Package s3 provides an S3 implementation of blobstore.BlobStore.
//
// # Usage
//
//	store, err := s3.NewStoreFromConfig(ctx, "my-bucket", "rasters/scene-1")
//	img, err := kea.Open(ctx, store)
//
// Chunks are fetched with ranged GETs; blobs above DefaultMultipartThreshold
// are written with a concurrent multipart upload.
//
// S3 has no compare-and-swap, so two writers flushing the same container
// can lose a manifest. DDBCommitStore keeps the CURRENT pointer in a
// DynamoDB table with conditional writes and reports
// ErrConcurrentModification to the loser.
package s3
