// Package minio provides a blob store backed by the MinIO client.
//
// MinIO is an S3-compatible object storage system. The store works
// against MinIO itself and against other S3-compatible backends such
// as Ceph, SeaweedFS and Garage, without pulling in AWS dependencies.
// Reads use ranged GETs so lazy trajectory-id loads fetch only the
// blocks they touch.
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
//	store := minioblob.NewStore(client, "my-bucket", "datasets/run-42/")
//	st, err := trajhash.Open(ctx, trajhash.Remote(store))
package minio
