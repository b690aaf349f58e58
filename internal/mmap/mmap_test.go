package mmap

import (
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenReadClose(t *testing.T) {
	path := filepath.Join(t.TempDir(), "blob")
	require.NoError(t, os.WriteFile(path, []byte("hello mmap"), 0o644))

	m, err := Open(path)
	require.NoError(t, err)
	assert.Equal(t, int64(10), m.Size())
	assert.Equal(t, []byte("hello mmap"), m.Bytes())

	buf := make([]byte, 5)
	n, err := m.ReadAt(buf, 6)
	assert.ErrorIs(t, err, io.EOF)
	assert.Equal(t, 4, n, "short read at tail")

	require.NoError(t, m.Close())
	require.NoError(t, m.Close(), "close is idempotent")
	assert.Nil(t, m.Bytes())

	_, err = m.ReadAt(buf, 0)
	assert.ErrorIs(t, err, ErrClosed)
}

func TestOpenEmptyFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty")
	require.NoError(t, os.WriteFile(path, nil, 0o644))

	m, err := Open(path)
	require.NoError(t, err)
	assert.Equal(t, int64(0), m.Size())
	require.NoError(t, m.Close())
}

func TestOpenMissingFile(t *testing.T) {
	_, err := Open(filepath.Join(t.TempDir(), "nope"))
	assert.Error(t, err)
}
