// Package interfaces defines the narrow contracts the job queue core
// consumes from its storage and monitoring collaborators. Concrete
// implementations live under internal/storage and internal/services; the
// core never imports those packages directly.
package interfaces

import (
	"context"
	"io"

	"github.com/scorbettUM/dcrx-kv/internal/models"
)

// ErrKind classifies a BlobStore failure so callers (the pruner's blob
// removal) can tell a missing or read-only blob from other failures
// without inspecting implementation-specific error types.
type ErrKind int

const (
	ErrKindNone ErrKind = iota
	ErrKindReadOnly
	ErrKindLocked
	ErrKindNotFound
	ErrKindGeneric
)

// BlobError wraps a BlobStore failure with its classification.
type BlobError struct {
	Kind ErrKind
	Err  error
}

func (e *BlobError) Error() string { return e.Err.Error() }
func (e *BlobError) Unwrap() error { return e.Err }

// BlobStore is a process-local byte store addressed by slash-joined
// namespace/key paths. Implementations must tolerate concurrent calls from
// worker goroutines without deadlocking under any call ordering.
type BlobStore interface {
	Exists(ctx context.Context, path string) (bool, error)
	MakeDirs(ctx context.Context, namespace string) error
	Write(ctx context.Context, path string, data []byte) error
	Read(ctx context.Context, path string) ([]byte, error)
	Remove(ctx context.Context, path string) error
	Close() error
}

// MetadataStore persists JobMetadata rows keyed by Path. The row
// operations (Select, Insert, Update, UpsertByPath, Delete) retry failed
// transactions and return a TransactionResult rather than raising once
// their retry budget is exhausted; Init, Drop and Close run once and
// return a plain error.
type MetadataStore interface {
	Init(ctx context.Context) error
	Select(ctx context.Context, filters map[string]any) TransactionResult
	Insert(ctx context.Context, rows []*models.JobMetadata) TransactionResult
	Update(ctx context.Context, rows []*models.JobMetadata, filters map[string]any) TransactionResult
	UpsertByPath(ctx context.Context, row *models.JobMetadata) TransactionResult
	Delete(ctx context.Context, filters map[string]any) TransactionResult
	Drop(ctx context.Context) error
	Close() error
}

// TransactionResult is the uniform envelope every MetadataStore operation
// returns: a human-readable message, the rows affected (when relevant),
// and an error populated only once the retry budget is exhausted.
type TransactionResult struct {
	Message string
	Data    []*models.JobMetadata
	Err     error
}

// UserStore backs the bearer-token auth middleware. It sits outside the
// job queue core and is consumed only through this contract.
type UserStore interface {
	GetByUsername(ctx context.Context, username string) (*models.Account, error)
	GetByID(ctx context.Context, id string) (*models.Account, error)
	Create(ctx context.Context, account *models.Account, password string) error
	VerifyPassword(ctx context.Context, username, password string) (*models.Account, error)
}

// ResourceMonitor samples process/host resource usage. The JobQueue
// consults it, when configured, as one more admission input alongside the
// running/pending capacity counters — never as a replacement for them.
type ResourceMonitor interface {
	MemoryPercentUsed(ctx context.Context) (float64, error)
	Start()
	Stop()
}

// DataReader is the minimal contract Queue.Upload needs from the
// inbound request body — satisfied directly by *multipart.Part / io.Reader.
type DataReader interface {
	io.Reader
}
