package segment

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/shmimg/internal/mmap"
)

func TestHandle_Lifecycle(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, Create(dir, "frames", 64))

	h := NewHandle(dir)
	assert.Equal(t, Unattached, h.State())
	_, err := h.Region(0, 1)
	assert.ErrorIs(t, err, ErrNotInitialized)
	assert.ErrorIs(t, h.Usable(), ErrNotInitialized)

	require.NoError(t, h.Initialize("frames"))
	assert.Equal(t, Attached, h.State())
	assert.Equal(t, "frames", h.Name())
	assert.Equal(t, filepath.Join(dir, "frames"), h.Path())
	assert.Equal(t, 64, h.Size())
	r, err := h.Region(0, 64)
	require.NoError(t, err)
	assert.Len(t, r.Bytes(), 64)

	r, err = h.Region(16, 8)
	require.NoError(t, err)
	assert.Len(t, r.Bytes(), 8)
	assert.Equal(t, 8, cap(r.Bytes()))
	_, err = h.Region(60, 8)
	assert.ErrorIs(t, err, mmap.ErrOutOfBounds)
	require.NoError(t, h.Validate(64))
	require.NoError(t, h.Advise(mmap.AccessSequential))

	require.NoError(t, h.Finalize())
	assert.Equal(t, Closed, h.State())
	assert.Nil(t, r.Bytes())
	_, err = h.Region(0, 1)
	assert.ErrorIs(t, err, ErrClosed)
	assert.Equal(t, 0, h.Size())
	assert.ErrorIs(t, h.Usable(), ErrClosed)

	// Idempotent.
	require.NoError(t, h.Finalize())

	// The segment outlives the handle.
	_, err = os.Stat(filepath.Join(dir, "frames"))
	require.NoError(t, err)
}

func TestHandle_InitializeTwice(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, Create(dir, "a", 16))

	h := NewHandle(dir)
	require.NoError(t, h.Initialize("a"))
	defer h.Finalize()

	err := h.Initialize("a")
	require.ErrorIs(t, err, ErrAlreadyInitialized)
	assert.Equal(t, Attached, h.State())
}

func TestHandle_InitializeAfterFinalize(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, Create(dir, "a", 16))

	h := NewHandle(dir)
	require.NoError(t, h.Finalize())
	assert.ErrorIs(t, h.Initialize("a"), ErrClosed)
}

func TestHandle_NotFound(t *testing.T) {
	h := NewHandle(t.TempDir())

	err := h.Initialize("missing")
	require.ErrorIs(t, err, ErrNotFound)
	assert.True(t, errors.Is(err, os.ErrNotExist))
	assert.Equal(t, Unattached, h.State())
	assert.ErrorIs(t, h.Validate(1), ErrNotInitialized)
}

func TestHandle_InvalidName(t *testing.T) {
	h := NewHandle(t.TempDir())
	for _, name := range []string{"", "/", ".", "..", "a/b", `a\b`} {
		assert.ErrorIs(t, h.Initialize(name), ErrInvalidName, "name %q", name)
	}
	assert.Equal(t, Unattached, h.State())
}

func TestHandle_Validate(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, Create(dir, "seg", 100))

	h := NewHandle(dir)
	require.NoError(t, h.Initialize("seg"))
	defer h.Finalize()

	tests := []struct {
		expected int
		ok       bool
	}{
		{100, true},
		{99, false},
		{101, false},
		{0, false},
	}
	for _, tt := range tests {
		err := h.Validate(tt.expected)
		if tt.ok {
			assert.NoError(t, err)
			continue
		}
		require.ErrorIs(t, err, ErrSizeMismatch)
		var sme *SizeMismatchError
		require.ErrorAs(t, err, &sme)
		assert.Equal(t, tt.expected, sme.Expected)
		assert.Equal(t, 100, sme.Actual)
		assert.Equal(t, "seg", sme.Name)
	}
}

func TestHandle_ValidateEmptySegment(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "empty"), nil, 0o600))

	h := NewHandle(dir)
	require.NoError(t, h.Initialize("empty"))
	defer h.Finalize()

	assert.ErrorIs(t, h.Validate(0), ErrSizeMismatch)
}

func TestHandle_SharedAcrossHandles(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, Create(dir, "shared", 8))

	a := NewHandle(dir)
	b := NewHandle(dir)
	require.NoError(t, a.Initialize("/shared"))
	require.NoError(t, b.Initialize("shared"))

	ra, err := a.Region(0, 8)
	require.NoError(t, err)
	rb, err := b.Region(0, 8)
	require.NoError(t, err)

	copy(ra.Bytes(), []byte{1, 2, 3, 4, 5, 6, 7, 8})
	assert.Equal(t, []byte{1, 2, 3, 4, 5, 6, 7, 8}, rb.Bytes())

	require.NoError(t, a.Finalize())
	assert.Equal(t, byte(8), rb.Bytes()[7])
	require.NoError(t, b.Finalize())
}

func TestProvision(t *testing.T) {
	dir := t.TempDir()

	require.Error(t, Create(dir, "zero", 0))
	require.NoError(t, Create(dir, "seg", 32))
	assert.ErrorIs(t, Create(dir, "seg", 32), os.ErrExist)

	size, err := Stat(dir, "seg")
	require.NoError(t, err)
	assert.Equal(t, int64(32), size)

	require.NoError(t, Unlink(dir, "seg"))
	assert.ErrorIs(t, Unlink(dir, "seg"), ErrNotFound)

	_, err = Stat(dir, "seg")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCleanName(t *testing.T) {
	n, err := CleanName("/frames_001")
	require.NoError(t, err)
	assert.Equal(t, "frames_001", n)

	_, err = CleanName("//x")
	assert.ErrorIs(t, err, ErrInvalidName)
}

func TestState_String(t *testing.T) {
	assert.Equal(t, "unattached", Unattached.String())
	assert.Equal(t, "attached", Attached.String())
	assert.Equal(t, "closed", Closed.String())
	assert.Equal(t, "State(7)", State(7).String())
}
