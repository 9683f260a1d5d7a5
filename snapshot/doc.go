// Package snapshot exports the slots of a shared-memory segment to a
// blobstore.BlobStore and restores them again.
//
// A snapshot is a single immutable blob:
//
//	header  magic "SHMS", version, compression, layout, CRC32C
//	block 0 [raw size][stored size][CRC32C of raw][payload]
//	...
//	block G-1
//
// Every slot becomes one block. A stored size of 0 means the payload is the
// raw slot; otherwise it is compressed with the codec named in the header.
// Restore checks the layout in the header against the target and verifies
// every block checksum before touching the target slot.
//
//	err := shmimg.With(name, layout, shmimg.Identity(shmimg.Batch), func(s *shmimg.Store[byte]) error {
//	    _, err := snapshot.Save(ctx, s, blobstore.NewLocalStore(dir), "front.shmimg",
//	        snapshot.WithCompression(snapshot.CompressionZSTD))
//	    return err
//	})
package snapshot
