// Package blobstore persists opaque documents under string keys with a
// monotonically increasing version used for compare-and-set writes.
package blobstore

import (
	"context"
	"errors"
)

var (
	// ErrNotFound is returned by Get when nothing is stored under the key.
	ErrNotFound = errors.New("blobstore: key not found")
	// ErrVersionConflict is returned by Set when the stored version differs from the expected one.
	ErrVersionConflict = errors.New("blobstore: version conflict")
)

// Blob is a stored document and the version it was written at.
// Version 0 means the key has never been written.
type Blob struct {
	Data    []byte
	Version int64
}

// Store is a key-value document store with optimistic concurrency.
type Store interface {
	Get(ctx context.Context, key string) (Blob, error)

	// Set writes data under key only if the stored version equals
	// expectedVersion (0 for a key that does not exist yet) and returns the
	// new version.
	Set(ctx context.Context, key string, data []byte, expectedVersion int64) (int64, error)

	Ping(ctx context.Context) error
	Close() error
}
