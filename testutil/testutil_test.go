package testutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUniformImages(t *testing.T) {
	rng := NewRNG(4711)

	imgs := rng.UniformImages(3, 4, 5)

	assert.Len(t, imgs, 3)
	assert.Len(t, imgs[0], 20)
	for _, img := range imgs {
		for _, v := range img {
			assert.GreaterOrEqual(t, v, float32(0))
			assert.Less(t, v, float32(1))
		}
	}
}

func TestRNG_Reset(t *testing.T) {
	rng := NewRNG(42)
	a := make([]byte, 16)
	rng.FillBytes(a)

	rng.Reset()
	b := make([]byte, 16)
	rng.FillBytes(b)

	assert.Equal(t, a, b)
	assert.Equal(t, int64(42), rng.Seed())
}

func TestSegment(t *testing.T) {
	dir := t.TempDir()

	t.Run("provision", func(t *testing.T) {
		Segment(t, dir, "seg", 128)

		info, err := os.Stat(filepath.Join(dir, "seg"))
		require.NoError(t, err)
		assert.Equal(t, int64(128), info.Size())
	})

	_, err := os.Stat(filepath.Join(dir, "seg"))
	assert.True(t, os.IsNotExist(err))
}
