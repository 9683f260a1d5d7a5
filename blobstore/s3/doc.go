// Package s3 stores shmimg snapshots in Amazon S3.
//
// # Usage
//
//	cfg, err := config.LoadDefaultConfig(ctx)
//	store := s3.NewStore(awss3.NewFromConfig(cfg), "my-bucket", "cameras/")
//
//	err = snapshot.Save(ctx, src, store, "front.shmimg")
//
// # Features
//
//   - Range reads, so a restore can stream one slot block at a time
//   - Multipart uploads for large snapshots
//   - CRC32C checksums on Put and on streaming uploads
//   - Key prefix for sharing one bucket between deployments
package s3
