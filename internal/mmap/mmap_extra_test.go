package mmap

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMmap_Region_And_Advise(t *testing.T) {
	path := writeFile(t, make([]byte, 1024))

	m, err := OpenShared(path)
	require.NoError(t, err)

	err = m.Advise(AccessRandom)
	require.NoError(t, err)

	r, err := m.Region(100, 200)
	require.NoError(t, err)
	assert.Len(t, r.Bytes(), 200)
	assert.Equal(t, 200, cap(r.Bytes()))

	err = r.Advise(AccessSequential)
	require.NoError(t, err)

	// Error cases
	_, err = m.Region(-1, 0)
	assert.ErrorIs(t, err, ErrOutOfBounds)
	_, err = m.Region(1000, 25)
	assert.ErrorIs(t, err, ErrOutOfBounds)

	err = m.Close()
	require.NoError(t, err)

	// Region after close
	assert.Nil(t, r.Bytes())
	assert.Error(t, r.Advise(AccessDefault))
}

func TestMmap_AfterClose(t *testing.T) {
	path := writeFile(t, []byte("data"))

	m, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, m.Close())

	assert.Nil(t, m.Bytes())
	assert.ErrorIs(t, m.Advise(AccessRandom), ErrClosed)
	_, err = m.Region(0, 1)
	assert.ErrorIs(t, err, ErrClosed)
	_, err = m.ReadAt(make([]byte, 1), 0)
	assert.ErrorIs(t, err, ErrClosed)
}
