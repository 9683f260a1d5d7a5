// Package hash holds the checksum used for snapshot integrity.
//
// Snapshot slot blocks and S3 uploads are protected with CRC32-Castagnoli.
// The Go runtime uses SSE4.2 or the ARM CRC extension when present.
//
//	sum := hash.CRC32C(slot)
//
//	h := hash.NewCRC32C()
//	h.Write(header)
//	h.Write(payload)
//	sum = h.Sum32()
package hash
