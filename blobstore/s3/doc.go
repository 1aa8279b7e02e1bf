// Package s3 implements blobstore.Store on Amazon S3.
//
// Lazy id fetches become ranged GETs, so query-side reads never
// download whole index files. Index saves stream through multipart
// uploads, which S3 publishes atomically on completion.
//
//	store, err := s3.New(ctx, "my-bucket",
//	    s3.WithPrefix("datasets/run42/"),
//	    s3.WithRegion("us-east-1"),
//	)
package s3
