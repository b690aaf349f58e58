package blobstore

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testStore(t *testing.T, store Store) {
	t.Helper()
	ctx := context.Background()

	_, err := store.Open(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, store.Put(ctx, "snapshots/a.bin", []byte("alpha")))
	require.NoError(t, store.Put(ctx, "snapshots/b.bin", []byte("beta")))
	require.NoError(t, store.Put(ctx, "other/c.bin", []byte("gamma")))

	blob, err := store.Open(ctx, "snapshots/a.bin")
	require.NoError(t, err)
	assert.Equal(t, int64(5), blob.Size())
	data, err := ReadAll(blob)
	require.NoError(t, err)
	assert.Equal(t, []byte("alpha"), data)
	require.NoError(t, blob.Close())

	// Overwrites replace content.
	require.NoError(t, store.Put(ctx, "snapshots/a.bin", []byte("alpha2")))
	blob, err = store.Open(ctx, "snapshots/a.bin")
	require.NoError(t, err)
	data, err = ReadAll(blob)
	require.NoError(t, err)
	assert.Equal(t, []byte("alpha2"), data)
	require.NoError(t, blob.Close())

	names, err := store.List(ctx, "snapshots/")
	require.NoError(t, err)
	assert.Equal(t, []string{"snapshots/a.bin", "snapshots/b.bin"}, names)

	names, err = store.List(ctx, "")
	require.NoError(t, err)
	assert.Len(t, names, 3)

	require.NoError(t, store.Delete(ctx, "snapshots/a.bin"))
	_, err = store.Open(ctx, "snapshots/a.bin")
	assert.ErrorIs(t, err, ErrNotFound)

	// Deleting a missing blob is not an error.
	require.NoError(t, store.Delete(ctx, "snapshots/a.bin"))
}

func testStoreCreate(t *testing.T, store Store) {
	t.Helper()
	ctx := context.Background()

	w, err := store.Create(ctx, "streamed.bin")
	require.NoError(t, err)
	_, err = w.Write([]byte("hello "))
	require.NoError(t, err)
	_, err = w.Write([]byte("world"))
	require.NoError(t, err)
	require.NoError(t, w.Close())

	blob, err := store.Open(ctx, "streamed.bin")
	require.NoError(t, err)
	data, err := ReadAll(blob)
	require.NoError(t, err)
	assert.Equal(t, []byte("hello world"), data)
	require.NoError(t, blob.Close())
}

func TestMemoryStore(t *testing.T) {
	testStore(t, NewMemory())
}

func TestMemoryStoreCreate(t *testing.T) {
	testStoreCreate(t, NewMemory())
}

func TestMemoryStoreCreateNotVisibleBeforeClose(t *testing.T) {
	ctx := context.Background()
	store := NewMemory()

	w, err := store.Create(ctx, "pending.bin")
	require.NoError(t, err)
	_, err = w.Write([]byte("partial"))
	require.NoError(t, err)

	_, err = store.Open(ctx, "pending.bin")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, w.Close())
	_, err = store.Open(ctx, "pending.bin")
	assert.NoError(t, err)
}

func TestLocalStore(t *testing.T) {
	store, err := NewLocal(t.TempDir())
	require.NoError(t, err)
	testStore(t, store)
}

func TestLocalStoreCreate(t *testing.T) {
	store, err := NewLocal(t.TempDir())
	require.NoError(t, err)
	testStoreCreate(t, store)
}

func TestLocalStoreCreatesRoot(t *testing.T) {
	root := filepath.Join(t.TempDir(), "nested", "dir")
	store, err := NewLocal(root)
	require.NoError(t, err)
	require.NoError(t, store.Put(context.Background(), "a/b.bin", []byte("x")))

	names, err := store.List(context.Background(), "a/")
	require.NoError(t, err)
	assert.Equal(t, []string{"a/b.bin"}, names)
}

func TestThrottledStore(t *testing.T) {
	// Generous budget so the suite does not actually block.
	store := NewThrottled(NewMemory(), 1<<30, 1<<20)
	testStore(t, store)
	testStoreCreate(t, store)
}

func TestThrottledStoreCanceledContext(t *testing.T) {
	store := NewThrottled(NewMemory(), 1, 1)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := store.Put(ctx, "a.bin", []byte("too slow"))
	assert.Error(t, err)
}
