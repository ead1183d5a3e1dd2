package storage

import (
	"context"
	"errors"
)

// ErrNotFound is returned by Get when no object exists at the given key.
var ErrNotFound = errors.New("storage: key not found")

// BlobStore is a key-addressed blob store with overwrite semantics.
// These two primitives are all the harvester needs: no listing, no
// versioning, no conditional writes.
type BlobStore interface {
	// Get returns the object stored at key, or ErrNotFound.
	Get(ctx context.Context, key string) ([]byte, error)
	// Put stores data at key, overwriting any existing object.
	Put(ctx context.Context, key string, data []byte, contentType string) error
}
