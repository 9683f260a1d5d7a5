// Package minio stores shmimg snapshots in MinIO or any other S3-compatible
// object store (Ceph, Garage, SeaweedFS) through the MinIO Go client.
//
//	client, err := minio.New("localhost:9000", &minio.Options{
//	    Creds:  credentials.NewStaticV4("minioadmin", "minioadmin", ""),
//	    Secure: false,
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	store := minioblob.NewStore(client, "snapshots", "cameras/")
//	err = snapshot.Save(ctx, src, store, "front.shmimg")
//
// No AWS SDK is involved, which keeps this backend usable in air-gapped
// deployments.
package minio
