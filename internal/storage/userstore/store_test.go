package userstore

import (
	"context"
	"testing"

	"github.com/scorbettUM/dcrx-kv/internal/common"
	"github.com/scorbettUM/dcrx-kv/internal/models"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	cfg := &common.DatabaseConfig{Type: "sqlite", URI: ":memory:"}
	store, err := New(cfg, 1, common.NewSilentLogger())
	require.NoError(t, err)
	require.NoError(t, store.Init(context.Background()))
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestStoreCreateAndVerifyPassword(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	account := &models.Account{ID: "u1", Username: "alice", Email: "alice@example.com"}
	require.NoError(t, store.Create(ctx, account, "hunter2"))

	verified, err := store.VerifyPassword(ctx, "alice", "hunter2")
	require.NoError(t, err)
	require.Equal(t, "u1", verified.ID)

	_, err = store.VerifyPassword(ctx, "alice", "wrong-password")
	require.Error(t, err)
}

func TestStoreGetByUsernameNotFound(t *testing.T) {
	store := newTestStore(t)
	_, err := store.GetByUsername(context.Background(), "missing")
	require.Error(t, err)
}

func TestStoreGetByID(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	account := &models.Account{ID: "u2", Username: "bob"}
	require.NoError(t, store.Create(ctx, account, "pw"))

	got, err := store.GetByID(ctx, "u2")
	require.NoError(t, err)
	require.Equal(t, "bob", got.Username)
}

func TestStoreVerifyPasswordDisabledAccount(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	account := &models.Account{ID: "u3", Username: "carol", Disabled: true}
	require.NoError(t, store.Create(ctx, account, "pw"))

	_, err := store.VerifyPassword(ctx, "carol", "pw")
	require.Error(t, err)
}
