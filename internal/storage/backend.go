// Package storage defines the Backend interface for the object store that
// holds published baseline manifests, and builds backends from configuration.
package storage

import (
	"context"
	"io"
	"io/fs"
)

// ErrObjectNotFound is returned (wrapped) by GetObject when the key does not
// exist. Backends wrap fs.ErrNotExist so errors.Is works across packages.
var ErrObjectNotFound = fs.ErrNotExist

// Backend is the interface for object storage backends.
// Implementations handle raw object I/O (S3, local filesystem).
type Backend interface {
	// GetObject retrieves the whole object stored under key and its size.
	GetObject(ctx context.Context, key string) (io.ReadCloser, int64, error)

	// PutObject uploads content to the given key.
	PutObject(ctx context.Context, key string, body io.Reader, size int64) error

	// ObjectExists checks if an object exists at the given key.
	ObjectExists(ctx context.Context, key string) (bool, error)

	// Type returns the backend type identifier ("s3", "local").
	Type() string

	// Close releases any resources held by the backend.
	Close() error
}
