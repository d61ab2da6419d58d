package blobstore

import (
	"context"
	"sync"
)

// MemoryStore keeps blobs in process memory. Used for development and tests.
type MemoryStore struct {
	mu    sync.RWMutex
	blobs map[string]Blob
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{blobs: make(map[string]Blob)}
}

func (s *MemoryStore) Get(_ context.Context, key string) (Blob, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	b, ok := s.blobs[key]
	if !ok {
		return Blob{}, ErrNotFound
	}
	data := make([]byte, len(b.Data))
	copy(data, b.Data)
	return Blob{Data: data, Version: b.Version}, nil
}

func (s *MemoryStore) Set(_ context.Context, key string, data []byte, expectedVersion int64) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.blobs[key].Version != expectedVersion {
		return 0, ErrVersionConflict
	}
	stored := make([]byte, len(data))
	copy(stored, data)
	next := expectedVersion + 1
	s.blobs[key] = Blob{Data: stored, Version: next}
	return next, nil
}

func (s *MemoryStore) Ping(context.Context) error { return nil }

func (s *MemoryStore) Close() error { return nil }
