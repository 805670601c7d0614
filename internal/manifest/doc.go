// Package manifest persists the store's object tree.
//
// A manifest is a complete snapshot of a container: every group and dataset
// by absolute path, their attributes, and the index of chunk blobs written
// for each dataset. Chunk data itself lives in separate blobs.
//
// # Atomic Protocol
//
// Save is a two-step commit:
//
//  1. Write the encoded manifest to manifest/NNNNNNNNNNNNNNNNNNNN.<codec>
//  2. Replace CURRENT with the name of that blob
//
// Blob stores replace blobs atomically (rename on local disk, strong
// read-after-write on S3), so readers see either the old or the new
// manifest. Load reads CURRENT and then the manifest it names.
//
// The codec used for a manifest is recorded in its file extension, so a
// container written with one codec opens with any other.
package manifest
