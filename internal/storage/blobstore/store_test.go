package blobstore

import (
	"context"
	"sync"
	"testing"

	"github.com/scorbettUM/dcrx-kv/internal/common"
	"github.com/scorbettUM/dcrx-kv/internal/interfaces"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore() *Store {
	return New(common.NewSilentLogger())
}

func TestStoreWriteRead(t *testing.T) {
	store := newTestStore()
	defer store.Close()

	ctx := context.Background()
	path := "a/x"
	data := []byte{0x01, 0x02, 0x03}

	require.NoError(t, store.Write(ctx, path, data))

	got, err := store.Read(ctx, path)
	require.NoError(t, err)
	assert.Equal(t, data, got)
}

func TestStoreReadNotFound(t *testing.T) {
	store := newTestStore()
	defer store.Close()

	_, err := store.Read(context.Background(), "a/missing")
	require.Error(t, err)

	var blobErr *interfaces.BlobError
	require.ErrorAs(t, err, &blobErr)
	assert.Equal(t, interfaces.ErrKindNotFound, blobErr.Kind)
}

func TestStoreRemoveNotFound(t *testing.T) {
	store := newTestStore()
	defer store.Close()

	err := store.Remove(context.Background(), "a/missing")
	require.Error(t, err)

	var blobErr *interfaces.BlobError
	require.ErrorAs(t, err, &blobErr)
	assert.Equal(t, interfaces.ErrKindNotFound, blobErr.Kind)
}

func TestStoreWriteOverwrite(t *testing.T) {
	store := newTestStore()
	defer store.Close()

	ctx := context.Background()
	path := "a/y"
	require.NoError(t, store.Write(ctx, path, []byte("first")))
	require.NoError(t, store.Write(ctx, path, []byte("second")))

	got, err := store.Read(ctx, path)
	require.NoError(t, err)
	assert.Equal(t, []byte("second"), got)
}

func TestStoreExists(t *testing.T) {
	store := newTestStore()
	defer store.Close()

	ctx := context.Background()
	ok, err := store.Exists(ctx, "a/z")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, store.Write(ctx, "a/z", []byte("hi")))
	ok, err = store.Exists(ctx, "a/z")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestStoreRemove(t *testing.T) {
	store := newTestStore()
	defer store.Close()

	ctx := context.Background()
	require.NoError(t, store.Write(ctx, "a/w", []byte("hi")))
	require.NoError(t, store.Remove(ctx, "a/w"))

	ok, err := store.Exists(ctx, "a/w")
	require.NoError(t, err)
	assert.False(t, ok)
}

// TestStoreConcurrentAccess exercises concurrent writers/readers on one
// shared path to guard against deadlocks under interleaved calls.
func TestStoreConcurrentAccess(t *testing.T) {
	store := newTestStore()
	defer store.Close()

	ctx := context.Background()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			path := "ns/concurrent"
			_ = store.Write(ctx, path, []byte{byte(i)})
			_, _ = store.Read(ctx, path)
			_, _ = store.Exists(ctx, path)
		}(i)
	}
	wg.Wait()
}

func TestStoreCloseThenOperate(t *testing.T) {
	store := newTestStore()
	require.NoError(t, store.Close())

	_, err := store.Read(context.Background(), "a/x")
	require.Error(t, err)
}
