// Package mmap provides memory-mapped access to segment files.
//
// # Overview
//
// A shared-memory segment on Linux is a file under /dev/shm. Mapping it
// with MAP_SHARED gives every attached process the same physical pages, so
// a write in one process is visible to all others without copying.
//
// # Usage
//
//	m, err := mmap.OpenShared("/dev/shm/frames")
//	if err != nil { ... }
//	defer m.Close()
//
//	// Zero-copy read-write access to the segment
//	data := m.Bytes()
//
//	// Create a view into a specific region
//	region, _ := m.Region(offset, size)
//
// Open maps a file read-only; it backs the local blob store used for
// snapshots.
//
// # Platform Support
//
//   - Unix (Linux, macOS, BSD): mmap(2) with madvise(2) for access hints
//   - Windows: CreateFileMapping/MapViewOfFile (madvise is a no-op)
//
// # Thread Safety
//
// Close is idempotent and protected by an atomic flag. Callers must ensure no
// goroutine touches a slice returned by Bytes after Close returns.
package mmap
