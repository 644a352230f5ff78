package jobqueue

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/scorbettUM/dcrx-kv/internal/common"
	"github.com/scorbettUM/dcrx-kv/internal/models"
	"github.com/scorbettUM/dcrx-kv/internal/storage/blobstore"
	"github.com/scorbettUM/dcrx-kv/internal/storage/metadata"
	"github.com/stretchr/testify/require"
)

func newTestQueue(t *testing.T, cfg Config) (*Queue, *blobstore.Store, *metadata.Store) {
	t.Helper()
	logger := common.NewSilentLogger()
	store := blobstore.New(logger)

	mdCfg := &common.DatabaseConfig{Type: "sqlite", URI: ":memory:", TransactionRetries: 3}
	md, err := metadata.New(mdCfg, 1, logger)
	require.NoError(t, err)
	require.NoError(t, md.Init(context.Background()))

	t.Cleanup(func() { _ = md.Close() })

	if cfg.BlobMaxAge == 0 {
		cfg.BlobMaxAge = time.Minute
	}
	if cfg.PruneInterval == 0 {
		cfg.PruneInterval = time.Hour
	}

	q := New(cfg, store, md, nil, 0, logger)
	return q, store, md
}

func waitForStatus(t *testing.T, q *Queue, namespace, key string, status models.JobStatus, timeout time.Duration) *models.JobMetadata {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		meta, err := q.GetJobMetadata(context.Background(), namespace, key)
		if err == nil && meta.Status == status {
			return meta
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s/%s to reach status %s", namespace, key, status)
	return nil
}

func TestQueueHappyUploadDownload(t *testing.T) {
	q, _, _ := newTestQueue(t, Config{MaxJobs: 2, MaxPendingJobs: 2, MaxJobWorkers: 2})
	ctx := context.Background()

	blob := models.NewBlob("a", "x", "x.bin", models.OperationUpload, models.BackupDisk, "", "")
	meta, err := q.Upload(ctx, blob, bytes.NewReader([]byte{0x01, 0x02, 0x03}))
	require.NoError(t, err)
	require.Equal(t, models.JobStatusCreating, meta.Status)

	waitForStatus(t, q, "a", "x", models.JobStatusDone, time.Second)

	downloadBlob := models.NewBlob("a", "x", "x.bin", models.OperationDownload, models.BackupDisk, "", "")
	result, err := q.Download(ctx, downloadBlob)
	require.NoError(t, err)
	require.Equal(t, []byte{0x01, 0x02, 0x03}, result.Data)
	require.Empty(t, result.Error)
}

func TestQueueAdmissionRefusal(t *testing.T) {
	q, _, _ := newTestQueue(t, Config{MaxJobs: 1, MaxPendingJobs: 1, MaxJobWorkers: 1})
	ctx := context.Background()

	first := models.NewBlob("a", "first", "f.bin", models.OperationUpload, models.BackupDisk, "", "")
	_, err := q.Upload(ctx, first, bytes.NewReader([]byte("one")))
	require.NoError(t, err)

	second := models.NewBlob("a", "second", "s.bin", models.OperationUpload, models.BackupDisk, "", "")
	_, err = q.Upload(ctx, second, bytes.NewReader([]byte("two")))
	require.NoError(t, err)

	third := models.NewBlob("a", "third", "t.bin", models.OperationUpload, models.BackupDisk, "", "")
	_, err = q.Upload(ctx, third, bytes.NewReader([]byte("three")))
	require.Error(t, err)

	var limitErr *models.ServerLimitException
	require.ErrorAs(t, err, &limitErr)
	require.Equal(t, 1, limitErr.Limit)
}

func TestQueueNotFoundDownload(t *testing.T) {
	q, _, md := newTestQueue(t, Config{MaxJobs: 2, MaxPendingJobs: 2, MaxJobWorkers: 2})
	ctx := context.Background()

	blob := models.NewBlob("a", "missing", "", models.OperationDownload, models.BackupDisk, "", "")
	_, err := q.Download(ctx, blob)
	require.Error(t, err)

	var notFound *models.PathNotFoundException
	require.ErrorAs(t, err, &notFound)

	result := md.Select(ctx, map[string]any{"path": "a/missing"})
	require.NoError(t, result.Err)
	require.Empty(t, result.Data)
}

func TestQueueDeletePath(t *testing.T) {
	q, _, _ := newTestQueue(t, Config{MaxJobs: 2, MaxPendingJobs: 2, MaxJobWorkers: 2})
	ctx := context.Background()

	upload := models.NewBlob("a", "y", "y.bin", models.OperationUpload, models.BackupDisk, "", "")
	_, err := q.Upload(ctx, upload, bytes.NewReader([]byte("hi")))
	require.NoError(t, err)
	waitForStatus(t, q, "a", "y", models.JobStatusDone, time.Second)

	deleteBlob := models.NewBlob("a", "y", "y.bin", models.OperationDelete, models.BackupDisk, "", "")
	meta, err := q.Delete(ctx, deleteBlob)
	require.NoError(t, err)
	require.Equal(t, models.JobStatusDone, meta.Status)

	persisted, err := q.GetJobMetadata(ctx, "a", "y")
	require.NoError(t, err)
	require.Equal(t, models.JobStatusDone, persisted.Status)
	require.Equal(t, models.OperationDelete, persisted.OperationType)
}

func TestQueuePrunerReclaim(t *testing.T) {
	q, store, _ := newTestQueue(t, Config{
		MaxJobs: 2, MaxPendingJobs: 2, MaxJobWorkers: 2,
		BlobMaxAge:    100 * time.Millisecond,
		PruneInterval: 50 * time.Millisecond,
	})
	q.Start()
	defer q.Close()
	ctx := context.Background()

	upload := models.NewBlob("a", "z", "z.bin", models.OperationUpload, models.BackupDisk, "", "")
	_, err := q.Upload(ctx, upload, bytes.NewReader([]byte("hi")))
	require.NoError(t, err)
	waitForStatus(t, q, "a", "z", models.JobStatusDone, time.Second)

	time.Sleep(400 * time.Millisecond)

	exists, err := store.Exists(ctx, "a/z")
	require.NoError(t, err)
	require.False(t, exists)

	persisted, err := q.GetJobMetadata(ctx, "a", "z")
	require.NoError(t, err)
	require.Equal(t, models.JobStatusDone, persisted.Status)
}

func TestQueueCancel(t *testing.T) {
	q, _, _ := newTestQueue(t, Config{MaxJobs: 2, MaxPendingJobs: 2, MaxJobWorkers: 2})
	ctx := context.Background()

	upload := models.NewBlob("a", "cancel-me", "c.bin", models.OperationUpload, models.BackupDisk, "", "")
	meta, err := q.Upload(ctx, upload, bytes.NewReader([]byte("data")))
	require.NoError(t, err)

	job, err := q.Cancel(ctx, meta.ID)
	if err != nil {
		// The job may have already reached DONE before cancel ran; that is
		// an acceptable race for this in-memory, near-instant store.
		var notFound *models.PathNotFoundException
		require.ErrorAs(t, err, &notFound)
		return
	}
	require.NotNil(t, job)
}
