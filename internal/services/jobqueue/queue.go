// Package jobqueue implements admission control over two bounded queues
// (running, pending), a background pruner, and orderly shutdown.
package jobqueue

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/scorbettUM/dcrx-kv/internal/common"
	"github.com/scorbettUM/dcrx-kv/internal/interfaces"
	"github.com/scorbettUM/dcrx-kv/internal/models"
)

// Config carries the JobQueue's construction-time tunables.
type Config struct {
	MaxJobs           int
	MaxPendingJobs    int
	MaxJobWorkers     int
	BlobMaxAge        time.Duration
	PruneInterval     time.Duration
	MaxPendingWait    time.Duration
}

// Queue owns admission, scheduling, pruning, and orderly shutdown over a
// BlobStore/MetadataStore pair. Exported methods touch the queue's maps and
// lanes only under q.mu, and make their own BlobStore/MetadataStore calls
// (Create, the inline Run of Download/Delete, Select) on the caller's
// goroutine without holding q.mu. An admitted upload's Run is offloaded to
// a goroutine drawing from workerSem, a shared bounded pool rather than a
// pool per job.
type Queue struct {
	cfg      Config
	store    interfaces.BlobStore
	metadata interfaces.MetadataStore
	monitor  interfaces.ResourceMonitor
	maxMemoryPercent float64
	logger   *common.Logger

	mu               sync.Mutex
	jobs             map[string]*Job
	runningJobs      []string
	pendingJobs      []string
	pendingData      map[string][]byte
	activeTasks      map[string]context.CancelFunc
	completedClosers []*Job
	closed           bool

	workerSem chan struct{}

	pruneCancel context.CancelFunc
	pruneDone   chan struct{}
}

// New constructs a Queue. monitor may be nil, in which case
// max_memory_percent_usage admission gating is skipped.
func New(cfg Config, store interfaces.BlobStore, metadataStore interfaces.MetadataStore, monitor interfaces.ResourceMonitor, maxMemoryPercent float64, logger *common.Logger) *Queue {
	if cfg.MaxJobWorkers <= 0 {
		cfg.MaxJobWorkers = 4
	}
	return &Queue{
		cfg:              cfg,
		store:            store,
		metadata:         metadataStore,
		monitor:          monitor,
		maxMemoryPercent: maxMemoryPercent,
		logger:           logger,
		jobs:             make(map[string]*Job),
		pendingData:      make(map[string][]byte),
		activeTasks:      make(map[string]context.CancelFunc),
		workerSem:        make(chan struct{}, cfg.MaxJobWorkers),
	}
}

// Start spawns the background pruner task.
func (q *Queue) Start() {
	ctx, cancel := context.WithCancel(context.Background())
	q.mu.Lock()
	q.pruneCancel = cancel
	q.pruneDone = make(chan struct{})
	q.mu.Unlock()

	go q.pruneLoop(ctx)
}

func (q *Queue) runningCount() int {
	return len(q.runningJobs)
}

func (q *Queue) pendingCount() int {
	return len(q.pendingJobs)
}

// Stats reports the current running and pending job counts.
func (q *Queue) Stats() (running, pending int) {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.runningCount(), q.pendingCount()
}

// Upload admits blob/data to the running queue, the pending queue, or
// refuses it with ServerLimitException once both are full. Admission is
// pre-checked before the job's row is persisted, so a refusal at that point
// leaves no row behind. The check is repeated under q.mu once the body has
// been read, since capacity may have changed in the meantime; a refusal
// from that second check comes after Create, and the job's CREATING row
// stays in the MetadataStore.
func (q *Queue) Upload(ctx context.Context, blob *models.Blob, dataReader interfaces.DataReader) (*models.JobMetadata, error) {
	if err := q.checkResourceLimit(ctx); err != nil {
		return nil, err
	}
	if err := q.checkAdmission(); err != nil {
		return nil, err
	}

	job := NewJob(blob, q.metadata, q.logger)
	meta := job.Create(ctx)
	if meta.Status == models.JobStatusFailed {
		return meta, nil
	}

	data, err := io.ReadAll(dataReader)
	if err != nil {
		return meta, fmt.Errorf("jobqueue: read upload body: %w", err)
	}

	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return meta, errQueueClosed
	}

	running := q.runningCount()
	pending := q.pendingCount()

	switch {
	case running >= q.cfg.MaxJobs && pending < q.cfg.MaxPendingJobs:
		q.pendingJobs = append(q.pendingJobs, job.ID)
		q.jobs[job.ID] = job
		q.pendingData[job.ID] = data
		q.mu.Unlock()
		return meta, nil
	case running >= q.cfg.MaxJobs && pending >= q.cfg.MaxPendingJobs:
		q.mu.Unlock()
		return meta, models.NewServerLimitException(q.cfg.MaxPendingJobs, pending)
	default:
		q.runningJobs = append(q.runningJobs, job.ID)
		q.jobs[job.ID] = job
		q.spawnLocked(job, data)
		q.mu.Unlock()
		return meta, nil
	}
}

// spawnLocked launches job.Run in its own goroutine, offloading the
// blocking BlobStore/MetadataStore work through the shared worker
// semaphore. The caller must hold q.mu; spawnLocked only registers the
// task's cancel handle under the lock and never itself blocks.
func (q *Queue) spawnLocked(job *Job, data []byte) {
	taskCtx, cancel := context.WithCancel(context.Background())
	q.activeTasks[job.ID] = cancel

	go func() {
		defer func() {
			if r := recover(); r != nil {
				q.logger.Error().Str("job_id", job.ID).Str("panic", fmt.Sprintf("%v", r)).Msg("jobqueue: recovered panic in job task")
			}
		}()

		select {
		case q.workerSem <- struct{}{}:
		case <-taskCtx.Done():
			return
		}
		defer func() { <-q.workerSem }()

		select {
		case <-taskCtx.Done():
			job.Cancel(context.Background())
			return
		default:
		}

		_, _ = job.Run(taskCtx, q.store, data)
	}()
}

// Download constructs a Job and runs it inline against store; downloads do
// not consume an admission slot. The path is checked against store before
// any row is persisted, so a miss surfaces as PathNotFoundException without
// leaving a CREATING row behind (it is a request-shape error, not an
// operational failure).
func (q *Queue) Download(ctx context.Context, blob *models.Blob) (*models.Blob, error) {
	job := NewJob(blob, q.metadata, q.logger)

	exists, err := job.PathExists(ctx, q.store)
	if err == nil && !exists {
		return nil, models.NewPathNotFoundException(blob.Namespace, blob.Key)
	}

	meta := job.Create(ctx)
	if meta.Status == models.JobStatusFailed {
		return nil, fmt.Errorf("jobqueue: job creation failed: %s", meta.Error)
	}

	q.mu.Lock()
	q.jobs[job.ID] = job
	q.mu.Unlock()

	return job.Run(ctx, q.store, nil)
}

// Delete constructs a Job, runs it inline against store as a synchronous,
// non-admitted operation, and returns its final metadata. As with Download,
// the path is checked before any row is persisted.
func (q *Queue) Delete(ctx context.Context, blob *models.Blob) (*models.JobMetadata, error) {
	job := NewJob(blob, q.metadata, q.logger)

	exists, err := job.PathExists(ctx, q.store)
	if err == nil && !exists {
		return nil, models.NewPathNotFoundException(blob.Namespace, blob.Key)
	}

	meta := job.Create(ctx)
	if meta.Status == models.JobStatusFailed {
		return meta, nil
	}

	q.mu.Lock()
	q.jobs[job.ID] = job
	q.mu.Unlock()

	result, err := job.Run(ctx, q.store, nil)
	if err != nil {
		return nil, err
	}
	if result.Error != "" {
		failed := models.JobMetadataFromBlob(job.ID, blob, models.JobStatusFailed, "delete failed")
		failed.Error = result.Error
		return failed, nil
	}
	return job.Snapshot(), nil
}

// GetJobMetadata looks up the persisted row for namespace/key.
func (q *Queue) GetJobMetadata(ctx context.Context, namespace, key string) (*models.JobMetadata, error) {
	path := models.JoinPath(namespace, key)
	result := q.metadata.Select(ctx, map[string]any{"path": path})
	if result.Err != nil {
		return nil, result.Err
	}
	if len(result.Data) == 0 {
		return nil, models.NewPathNotFoundException(namespace, key)
	}
	return result.Data[0], nil
}

// GetBlobMetadata projects the persisted row into a Blob envelope under
// the requested operation type.
func (q *Queue) GetBlobMetadata(ctx context.Context, namespace, key string, op models.OperationType) (*models.Blob, error) {
	meta, err := q.GetJobMetadata(ctx, namespace, key)
	if err != nil {
		return nil, err
	}
	return meta.AsBlob(op), nil
}

// Cancel cancels the active task for jobID (if any) and transitions the
// job to CANCELLED, provided it is still in a cancellable state.
func (q *Queue) Cancel(ctx context.Context, jobID string) (*Job, error) {
	q.mu.Lock()
	cancelFn, hasTask := q.activeTasks[jobID]
	job, hasJob := q.jobs[jobID]
	q.mu.Unlock()

	if !hasJob || !job.Status().IsCancellable() {
		return nil, models.NewPathNotFoundException("", jobID)
	}

	if hasTask {
		cancelFn()
	}
	job.Cancel(ctx)
	return job, nil
}

// checkAdmission reports ServerLimitException when both the running and
// pending lanes are already full, before any job row is created. The
// caller still re-checks capacity under q.mu once it holds the lock for
// the actual admit, since this pre-check only narrows the common case
// where a row would otherwise be persisted for a request that was always
// going to be refused.
func (q *Queue) checkAdmission() error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return errQueueClosed
	}
	running := q.runningCount()
	pending := q.pendingCount()
	if running >= q.cfg.MaxJobs && pending >= q.cfg.MaxPendingJobs {
		return models.NewServerLimitException(q.cfg.MaxPendingJobs, pending)
	}
	return nil
}

// checkResourceLimit consults the configured ResourceMonitor, refusing
// admission with ServerLimitException when sampled usage exceeds
// max_memory_percent_usage. This composes with, and never replaces, the
// running/pending capacity caps.
func (q *Queue) checkResourceLimit(ctx context.Context) error {
	if q.monitor == nil || q.maxMemoryPercent <= 0 {
		return nil
	}
	used, err := q.monitor.MemoryPercentUsed(ctx)
	if err != nil {
		return nil
	}
	if used > q.maxMemoryPercent {
		return &models.ServerLimitException{
			Message: fmt.Sprintf("server limit reached: memory usage %d%% exceeds %d%%", int(used), int(q.maxMemoryPercent)),
			Limit:   int(q.maxMemoryPercent),
			Current: int(used),
		}
	}
	return nil
}

// Close performs an orderly shutdown: close the blob store, stop and await
// the pruner, close pending and running jobs, and cancel active tasks.
func (q *Queue) Close() error {
	if err := q.store.Close(); err != nil {
		q.logger.Warn().Err(err).Msg("jobqueue: blob store close returned error")
	}

	q.mu.Lock()
	cancel := q.pruneCancel
	done := q.pruneDone
	q.mu.Unlock()
	if cancel != nil {
		cancel()
	}
	if done != nil {
		<-done
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	for _, id := range q.pendingJobs {
		if job, ok := q.jobs[id]; ok {
			job.Close()
		}
	}
	q.pendingJobs = nil

	for _, id := range q.runningJobs {
		if job, ok := q.jobs[id]; ok {
			job.Close()
		}
	}
	q.runningJobs = nil

	for _, cancelFn := range q.activeTasks {
		cancelFn()
	}
	q.activeTasks = make(map[string]context.CancelFunc)
	q.closed = true

	return nil
}
