// Package shmimg shares fixed-shape image tensors between processes through
// one named shared-memory segment, without per-call serialization.
//
// # Layout
//
// A segment is GroupCount contiguous slots. A slot is GroupSize contiguous
// images; an image is H x W x C values of ChannelByteWidth bytes, row-major
// with channels innermost. Multi-byte values are little-endian.
//
//	layout, _ := shmimg.ComputeLayout([]int{480, 640}, 4, 1, 20)
//	layout.SegmentByteSize() // 20 * 480*640*4
//
// # Attaching
//
// The segment is created by its owner (see Provision, or the shmimg CLI).
// Every process that uses it builds a Store and attaches:
//
//	s, err := shmimg.Open("frames", layout, shmimg.Float32(shmimg.Single))
//	if err != nil {
//	    return err
//	}
//	defer s.Finalize()
//
// Initialize fails with ErrSegmentNotFound when the segment does not exist
// and with ErrSizeMismatch unless its size is exactly SegmentByteSize.
// Finalize only detaches; the segment stays in place.
//
// # Slots and codecs
//
// Seek returns a slot's raw bytes. Read and Write convert through the codec
// chosen at construction:
//
//   - Identity(mode): bytes in, bytes out.
//   - Reinterpret[T](mode) and Float32(mode): every sizeof(T) bytes of a pixel
//     are one value of T.
//
// Mode decides whether a 3-D array is one image (Single) or a group of
// single-channel images (Batch).
//
// # Concurrency
//
// A Store takes no locks on the slot path. Disjoint slots may be used
// concurrently; writes to one slot must be ordered by the caller. The
// handoff package provides a ledger for that, and the pool package runs
// per-worker stores.
package shmimg
