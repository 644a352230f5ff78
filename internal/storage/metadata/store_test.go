package metadata

import (
	"context"
	"testing"

	"github.com/scorbettUM/dcrx-kv/internal/common"
	"github.com/scorbettUM/dcrx-kv/internal/models"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	cfg := &common.DatabaseConfig{Type: "sqlite", URI: ":memory:", TransactionRetries: 3}
	store, err := New(cfg, 1, common.NewSilentLogger())
	require.NoError(t, err)
	require.NoError(t, store.Init(context.Background()))
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func sampleRow(path string) *models.JobMetadata {
	return &models.JobMetadata{
		ID:            "job-1",
		Key:           "x",
		Namespace:     "a",
		Path:          path,
		Filename:      "x.bin",
		ContentType:   models.DefaultContentType,
		OperationType: models.OperationUpload,
		BackupType:    models.BackupDisk,
		Encoding:      models.DefaultEncoding,
		Context:       "creating",
		Status:        models.JobStatusCreating,
	}
}

func TestStoreUpsertByPathInsertsThenUpdates(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	row := sampleRow("a/x")
	result := store.UpsertByPath(ctx, row)
	require.NoError(t, result.Err)

	selected := store.Select(ctx, map[string]any{"path": "a/x"})
	require.NoError(t, selected.Err)
	require.Len(t, selected.Data, 1)
	require.Equal(t, models.JobStatusCreating, selected.Data[0].Status)

	row.Status = models.JobStatusDone
	result = store.UpsertByPath(ctx, row)
	require.NoError(t, result.Err)

	selected = store.Select(ctx, map[string]any{"path": "a/x"})
	require.NoError(t, selected.Err)
	require.Len(t, selected.Data, 1)
	require.Equal(t, models.JobStatusDone, selected.Data[0].Status)
}

func TestStoreUpsertByPathIdempotent(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	row := sampleRow("a/idem")
	require.NoError(t, store.UpsertByPath(ctx, row).Err)
	require.NoError(t, store.UpsertByPath(ctx, row).Err)

	selected := store.Select(ctx, map[string]any{"path": "a/idem"})
	require.NoError(t, selected.Err)
	require.Len(t, selected.Data, 1)
}

func TestStoreSelectMissingReturnsEmpty(t *testing.T) {
	store := newTestStore(t)

	result := store.Select(context.Background(), map[string]any{"path": "missing/path"})
	require.NoError(t, result.Err)
	require.Empty(t, result.Data)
}

func TestStoreDelete(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	row := sampleRow("a/del")
	require.NoError(t, store.UpsertByPath(ctx, row).Err)

	result := store.Delete(ctx, map[string]any{"path": "a/del"})
	require.NoError(t, result.Err)

	selected := store.Select(ctx, map[string]any{"path": "a/del"})
	require.NoError(t, selected.Err)
	require.Empty(t, selected.Data)
}

func TestStoreInsertThenUpdate(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	row := sampleRow("a/ins")
	require.NoError(t, store.Insert(ctx, []*models.JobMetadata{row}).Err)

	row.Status = models.JobStatusWriting
	result := store.Update(ctx, []*models.JobMetadata{row}, map[string]any{"path": "a/ins"})
	require.NoError(t, result.Err)

	selected := store.Select(ctx, map[string]any{"path": "a/ins"})
	require.NoError(t, selected.Err)
	require.Len(t, selected.Data, 1)
	require.Equal(t, models.JobStatusWriting, selected.Data[0].Status)
}

func TestStoreDrop(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Drop(ctx))
	require.NoError(t, store.Init(ctx))
}
