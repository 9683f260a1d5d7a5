package testutil

import (
	"math/rand"
	"sync"
	"testing"

	"github.com/hupe1980/shmimg/internal/segment"
)

// RNG struct encapsulates the random number generator and seed.
// It is thread-safe.
type RNG struct {
	rand *rand.Rand
	seed int64
	mu   sync.Mutex
}

// NewRNG creates a new RNG instance with the specified seed.
func NewRNG(seed int64) *RNG {
	return &RNG{
		rand: rand.New(rand.NewSource(seed)),
		seed: seed,
	}
}

// Reset resets the RNG to its initial seed.
func (r *RNG) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rand.Seed(r.seed)
}

// Seed returns the initial seed.
func (r *RNG) Seed() int64 {
	return r.seed
}

// Intn returns a non-negative pseudo-random number in [0,n).
func (r *RNG) Intn(n int) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rand.Intn(n)
}

// FillUniform fills dst with random values in range [0, 1).
// Locks only once per call (preferred over calling Float32 in a loop).
func (r *RNG) FillUniform(dst []float32) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range dst {
		dst[i] = r.rand.Float32()
	}
}

// FillBytes fills dst with random bytes.
func (r *RNG) FillBytes(dst []byte) {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, _ = r.rand.Read(dst)
}

// UniformImages generates num float images of h*w values in [0, 1),
// backed by a single array.
func (r *RNG) UniformImages(num, h, w int) [][]float32 {
	data := make([]float32, num*h*w)
	r.FillUniform(data)

	images := make([][]float32, num)
	for i := range num {
		images[i] = data[i*h*w : (i+1)*h*w]
	}
	return images
}

// Segment provisions a zero-filled segment of size bytes in dir and removes
// it when the test ends.
func Segment(tb testing.TB, dir, name string, size int) {
	tb.Helper()
	if err := segment.Create(dir, name, size); err != nil {
		tb.Fatalf("provision segment %q: %v", name, err)
	}
	tb.Cleanup(func() {
		_ = segment.Unlink(dir, name)
	})
}
