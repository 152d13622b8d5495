// Package blob stores document payloads outside the database.
package blob

import (
	"context"
	"errors"
	"io"
)

// Store persists opaque payloads under generated paths.
type Store interface {
	// Put writes data and returns the path it was stored under.
	Put(ctx context.Context, name string, data []byte) (string, error)
	// Delete removes the blob at path. Deleting a missing blob is not an error.
	Delete(ctx context.Context, path string) error
	Open(ctx context.Context, path string) (io.ReadCloser, error)
}

var (
	ErrNotFound    = errors.New("blob_not_found")
	ErrInvalidPath = errors.New("invalid_blob_path")
)
