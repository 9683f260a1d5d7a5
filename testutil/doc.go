// Package testutil provides testing utilities for shmimg.
//
// This package is intended for use in tests and benchmarks only.
//
// # Random Data
//
//	rng := testutil.NewRNG(seed)
//	img := make([]float32, h*w)
//	rng.FillUniform(img)
//
// # Segments
//
//	dir := t.TempDir()
//	testutil.Segment(t, dir, "frames", layout.SegmentByteSize())
package testutil
