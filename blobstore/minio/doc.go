// Package minio stores KEA container blobs in MinIO or any other
// S3-compatible service through the MinIO client.
//
// # Basic Usage
//
//	client, err := minio.New("localhost:9000", &minio.Options{
//	    Creds:  credentials.NewStaticV4("minioadmin", "minioadmin", ""),
//	    Secure: false,
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	bs := minioblob.NewStore(client, "rasters", "scenes/s2a-0001")
//	img, err := kea.Create(ctx, bs, kea.CreateOptions{...})
package minio
