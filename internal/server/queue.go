package server

import (
	"context"

	"github.com/scorbettUM/dcrx-kv/internal/interfaces"
	"github.com/scorbettUM/dcrx-kv/internal/models"
)

// queueAPI is the narrow surface the HTTP layer needs from the job queue.
// Satisfied by *jobqueue.Queue; tests substitute a fake.
type queueAPI interface {
	Upload(ctx context.Context, blob *models.Blob, data interfaces.DataReader) (*models.JobMetadata, error)
	Download(ctx context.Context, blob *models.Blob) (*models.Blob, error)
	Delete(ctx context.Context, blob *models.Blob) (*models.JobMetadata, error)
	GetJobMetadata(ctx context.Context, namespace, key string) (*models.JobMetadata, error)
	Stats() (running, pending int)
}
