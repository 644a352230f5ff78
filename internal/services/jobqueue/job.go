package jobqueue

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/scorbettUM/dcrx-kv/internal/common"
	"github.com/scorbettUM/dcrx-kv/internal/interfaces"
	"github.com/scorbettUM/dcrx-kv/internal/models"
)

// Job binds one Blob request to one execution against a BlobStore. Every
// status transition is persisted via MetadataStore.UpsertByPath before the
// next step runs, so a concurrent metadata lookup observes monotonic
// progress.
type Job struct {
	ID   string
	Blob *models.Blob

	metadataStore interfaces.MetadataStore
	logger        *common.Logger

	mu        sync.Mutex
	status    models.JobStatus
	context   string
	errorText string
	startTime time.Time
	closed    bool
}

// NewJob constructs a Job around blob, not yet persisted.
func NewJob(blob *models.Blob, metadataStore interfaces.MetadataStore, logger *common.Logger) *Job {
	return &Job{
		ID:            uuid.New().String(),
		Blob:          blob,
		metadataStore: metadataStore,
		logger:        logger,
		status:        models.JobStatusCreating,
	}
}

// StartTime reports when Create persisted the job's initial row.
func (j *Job) StartTime() time.Time {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.startTime
}

// Status returns the job's current status.
func (j *Job) Status() models.JobStatus {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.status
}

// Snapshot returns the JobMetadata row as currently known in memory.
func (j *Job) Snapshot() *models.JobMetadata {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.metadataLocked()
}

func (j *Job) metadataLocked() *models.JobMetadata {
	m := models.JobMetadataFromBlob(j.ID, j.Blob, j.status, j.context)
	m.Error = j.errorText
	return m
}

func (j *Job) persist(ctx context.Context) *models.JobMetadata {
	j.mu.Lock()
	snapshot := j.metadataLocked()
	j.mu.Unlock()

	result := j.metadataStore.UpsertByPath(ctx, snapshot)
	if result.Err != nil {
		j.mu.Lock()
		j.status = models.JobStatusFailed
		j.errorText = result.Err.Error()
		failed := j.metadataLocked()
		j.mu.Unlock()
		return failed
	}
	return snapshot
}

func (j *Job) transition(ctx context.Context, status models.JobStatus, progress string) *models.JobMetadata {
	j.mu.Lock()
	if j.status.IsTerminal() {
		current := j.metadataLocked()
		j.mu.Unlock()
		return current
	}
	j.status = status
	j.context = progress
	j.mu.Unlock()
	return j.persist(ctx)
}

// Create persists the initial CREATING row. On persistence failure it
// returns metadata already transitioned to FAILED.
func (j *Job) Create(ctx context.Context) *models.JobMetadata {
	j.mu.Lock()
	j.startTime = time.Now()
	j.status = models.JobStatusCreating
	j.context = "created"
	j.mu.Unlock()
	return j.persist(ctx)
}

// PathExists checks store for j.Blob.Path without persisting any state.
// Download/Delete call this before Create so that a request against an
// absent path never leaves a row behind.
func (j *Job) PathExists(ctx context.Context, store interfaces.BlobStore) (bool, error) {
	return store.Exists(ctx, j.Blob.Path)
}

// Run dispatches to the operation implied by Blob.OperationType. It returns
// models.PathNotFoundException for a download/delete against an absent
// path (a request-shape error, never marked FAILED); any other BlobStore
// failure is caught and recorded as a terminal FAILED status, returned as a
// *models.Blob with Error populated rather than as a Go error.
func (j *Job) Run(ctx context.Context, store interfaces.BlobStore, data []byte) (*models.Blob, error) {
	switch j.Blob.OperationType {
	case models.OperationUpload:
		return j.runUpload(ctx, store, data), nil
	case models.OperationDownload:
		return j.runDownload(ctx, store)
	case models.OperationDelete:
		return j.runDelete(ctx, store)
	default:
		j.transition(ctx, models.JobStatusFailed, "unsupported operation")
		return &models.Blob{
			Key: j.Blob.Key, Namespace: j.Blob.Namespace, Path: j.Blob.Path,
			OperationType: j.Blob.OperationType, Error: "unsupported operation type",
		}, nil
	}
}

func (j *Job) runUpload(ctx context.Context, store interfaces.BlobStore, data []byte) *models.Blob {
	j.transition(ctx, models.JobStatusWriting, "writing blob")

	if err := store.MakeDirs(ctx, j.Blob.Namespace); err != nil {
		return j.failBlob(ctx, err)
	}
	if err := store.Write(ctx, j.Blob.Path, data); err != nil {
		return j.failBlob(ctx, err)
	}

	j.transition(ctx, models.JobStatusDone, "upload complete")
	return &models.Blob{
		Key: j.Blob.Key, Namespace: j.Blob.Namespace, Filename: j.Blob.Filename,
		Path: j.Blob.Path, ContentType: j.Blob.ContentType,
		OperationType: models.OperationUpload, BackupType: j.Blob.BackupType,
		Encoding: j.Blob.Encoding,
	}
}

func (j *Job) runDownload(ctx context.Context, store interfaces.BlobStore) (*models.Blob, error) {
	exists, err := store.Exists(ctx, j.Blob.Path)
	if err != nil {
		return j.failBlob(ctx, err), nil
	}
	if !exists {
		return nil, models.NewPathNotFoundException(j.Blob.Namespace, j.Blob.Key)
	}

	j.transition(ctx, models.JobStatusReading, "reading blob")
	data, err := store.Read(ctx, j.Blob.Path)
	if err != nil {
		return j.failBlob(ctx, err), nil
	}

	j.transition(ctx, models.JobStatusDone, "download complete")
	return &models.Blob{
		Key: j.Blob.Key, Namespace: j.Blob.Namespace, Filename: j.Blob.Filename,
		Path: j.Blob.Path, ContentType: j.Blob.ContentType,
		OperationType: models.OperationDownload, BackupType: j.Blob.BackupType,
		Encoding: j.Blob.Encoding, Data: data,
	}, nil
}

func (j *Job) runDelete(ctx context.Context, store interfaces.BlobStore) (*models.Blob, error) {
	exists, err := store.Exists(ctx, j.Blob.Path)
	if err != nil {
		return j.failBlob(ctx, err), nil
	}
	if !exists {
		return nil, models.NewPathNotFoundException(j.Blob.Namespace, j.Blob.Key)
	}

	j.transition(ctx, models.JobStatusDeleting, "deleting blob")
	if err := store.Remove(ctx, j.Blob.Path); err != nil {
		return j.failBlob(ctx, err), nil
	}

	j.transition(ctx, models.JobStatusDone, "delete complete")
	return &models.Blob{
		Key: j.Blob.Key, Namespace: j.Blob.Namespace, Filename: j.Blob.Filename,
		Path: j.Blob.Path, ContentType: j.Blob.ContentType,
		OperationType: models.OperationDelete, BackupType: j.Blob.BackupType,
		Encoding: j.Blob.Encoding,
	}
}

// failBlob classifies a BlobStore error, transitions to FAILED, and
// returns a Blob carrying the error text. Unclassified errors (a bug in a
// BlobStore implementation) are recorded the same way rather than
// panicking the calling goroutine out from under the queue.
func (j *Job) failBlob(ctx context.Context, err error) *models.Blob {
	var blobErr *interfaces.BlobError
	message := err.Error()
	if errors.As(err, &blobErr) {
		message = blobErr.Error()
	}

	j.mu.Lock()
	j.errorText = message
	j.mu.Unlock()
	j.transition(ctx, models.JobStatusFailed, "operation failed")

	return &models.Blob{
		Key: j.Blob.Key, Namespace: j.Blob.Namespace, Filename: j.Blob.Filename,
		Path: j.Blob.Path, OperationType: j.Blob.OperationType,
		BackupType: j.Blob.BackupType, Encoding: j.Blob.Encoding, Error: message,
	}
}

// Cancel transitions to CANCELLED if the job is in a cancellable state. A
// no-op from a terminal state.
func (j *Job) Cancel(ctx context.Context) {
	j.mu.Lock()
	if j.status.IsTerminal() {
		j.mu.Unlock()
		return
	}
	j.mu.Unlock()
	j.transition(ctx, models.JobStatusCancelled, "cancelled")
}

// Close releases resources owned by the job. Idempotent. A Job owns no
// per-job worker pool — that collapses into the Queue's shared pool — so
// Close only marks the job as released for the pruner's bookkeeping.
func (j *Job) Close() {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.closed = true
}

func (j *Job) isClosed() bool {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.closed
}
