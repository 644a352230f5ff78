package jobqueue

import (
	"context"
	"errors"
	"time"

	"github.com/scorbettUM/dcrx-kv/internal/interfaces"
	"github.com/scorbettUM/dcrx-kv/internal/models"
)

// pruneLoop ticks at cfg.PruneInterval, running one reclaim pass each tick,
// until ctx is cancelled by Close.
func (q *Queue) pruneLoop(ctx context.Context) {
	defer close(q.pruneDone)

	interval := q.cfg.PruneInterval
	if interval <= 0 {
		interval = 30 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			q.pruneTick(context.Background())
		}
	}
}

// pruneTick runs one pass of the pruner: reap terminal jobs past
// BlobMaxAge, drain the running queue (re-enqueuing live jobs, promoting
// one pending job per vacated slot), drain the pending queue (discarding
// terminal entries), then reap completedClosers.
func (q *Queue) pruneTick(ctx context.Context) {
	q.mu.Lock()
	defer q.mu.Unlock()

	now := time.Now()

	// Step 1: reap terminal jobs past BlobMaxAge; close every terminal job.
	for id, job := range q.jobs {
		if !job.Status().IsTerminal() {
			continue
		}
		if !job.isClosed() {
			job.Close()
			q.completedClosers = append(q.completedClosers, job)
		}
		if now.Sub(job.StartTime()) > q.cfg.BlobMaxAge {
			q.removeBlobLocked(ctx, job)
			delete(q.jobs, id)
			delete(q.pendingData, id)
		}
	}

	// Step 2: drain running_jobs; terminal entries vacate a slot and
	// promote one pending job (FIFO) into running_jobs.
	currentRunning := q.runningJobs
	q.runningJobs = nil
	for _, id := range currentRunning {
		job, ok := q.jobs[id]
		if ok && !job.Status().IsTerminal() {
			q.runningJobs = append(q.runningJobs, id)
			continue
		}
		q.promoteOneLocked()
	}

	// Step 3: drain pending_jobs; re-enqueue non-terminal, discard terminal.
	currentPending := q.pendingJobs
	q.pendingJobs = nil
	for _, id := range currentPending {
		job, ok := q.jobs[id]
		if ok && !job.Status().IsTerminal() {
			q.pendingJobs = append(q.pendingJobs, id)
		} else {
			delete(q.pendingData, id)
		}
	}

	// Step 4: reap completed_closers — Close() already ran synchronously
	// above, so reaping is just clearing the bookkeeping list.
	q.completedClosers = nil
}

// promoteOneLocked pops the head of pendingJobs (if any) and spawns it
// into runningJobs. Caller must hold q.mu.
func (q *Queue) promoteOneLocked() {
	if len(q.pendingJobs) == 0 {
		return
	}
	id := q.pendingJobs[0]
	q.pendingJobs = q.pendingJobs[1:]

	job, ok := q.jobs[id]
	if !ok {
		delete(q.pendingData, id)
		return
	}

	data := q.pendingData[id]
	delete(q.pendingData, id)

	q.runningJobs = append(q.runningJobs, id)
	q.spawnLocked(job, data)
}

// removeBlobLocked removes job's blob from the store, swallowing
// ReadOnly/NotFound errors since the blob may already be gone.
func (q *Queue) removeBlobLocked(ctx context.Context, job *Job) {
	err := q.store.Remove(ctx, job.Blob.Path)
	if err == nil {
		return
	}
	var blobErr *interfaces.BlobError
	if errors.As(err, &blobErr) &&
		(blobErr.Kind == interfaces.ErrKindNotFound || blobErr.Kind == interfaces.ErrKindReadOnly) {
		return
	}
	var notFound *models.PathNotFoundException
	if errors.As(err, &notFound) {
		return
	}
	q.logger.Warn().Str("job_id", job.ID).Str("path", job.Blob.Path).Err(err).Msg("jobqueue: pruner failed to remove blob")
}
