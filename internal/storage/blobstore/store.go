// Package blobstore implements an in-memory, namespaced byte store. Blob
// bytes never touch disk and do not survive process restart — durability
// of the *metadata* describing an operation is the job of
// internal/storage/metadata, not of this package.
package blobstore

import (
	"context"
	"sync"

	"github.com/scorbettUM/dcrx-kv/internal/common"
	"github.com/scorbettUM/dcrx-kv/internal/interfaces"
)

// Store is a process-local, concurrency-safe byte store keyed by the
// canonical namespace/key path (models.JoinPath). It satisfies
// interfaces.BlobStore.
type Store struct {
	mu         sync.RWMutex
	objects    map[string][]byte
	namespaces map[string]struct{}
	closed     bool
	logger     *common.Logger
}

// New creates an empty in-memory blob store.
func New(logger *common.Logger) *Store {
	return &Store{
		objects:    make(map[string][]byte),
		namespaces: make(map[string]struct{}),
		logger:     logger,
	}
}

func (s *Store) blobErr(kind interfaces.ErrKind, err error) error {
	return &interfaces.BlobError{Kind: kind, Err: err}
}

// Exists reports whether path currently has an object.
func (s *Store) Exists(_ context.Context, path string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return false, s.blobErr(interfaces.ErrKindGeneric, errClosed)
	}
	_, ok := s.objects[path]
	return ok, nil
}

// MakeDirs idempotently registers a namespace container. In-memory storage
// has no real directories, so this only tracks namespace membership for
// bookkeeping parity with disk-backed implementations.
func (s *Store) MakeDirs(_ context.Context, namespace string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return s.blobErr(interfaces.ErrKindGeneric, errClosed)
	}
	s.namespaces[namespace] = struct{}{}
	return nil
}

// Write stores data at path, overwriting any existing object.
func (s *Store) Write(_ context.Context, path string, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return s.blobErr(interfaces.ErrKindGeneric, errClosed)
	}
	buf := make([]byte, len(data))
	copy(buf, data)
	s.objects[path] = buf
	return nil
}

// Read returns the bytes stored at path, or ErrKindNotFound if absent.
func (s *Store) Read(_ context.Context, path string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, s.blobErr(interfaces.ErrKindGeneric, errClosed)
	}
	data, ok := s.objects[path]
	if !ok {
		return nil, s.blobErr(interfaces.ErrKindNotFound, errNotFound(path))
	}
	buf := make([]byte, len(data))
	copy(buf, data)
	return buf, nil
}

// Remove deletes the object at path. Fails with ErrKindNotFound if absent.
func (s *Store) Remove(_ context.Context, path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return s.blobErr(interfaces.ErrKindGeneric, errClosed)
	}
	if _, ok := s.objects[path]; !ok {
		return s.blobErr(interfaces.ErrKindNotFound, errNotFound(path))
	}
	delete(s.objects, path)
	return nil
}

// Close releases all state held by the store. Idempotent.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects = nil
	s.namespaces = nil
	s.closed = true
	return nil
}

var _ interfaces.BlobStore = (*Store)(nil)
