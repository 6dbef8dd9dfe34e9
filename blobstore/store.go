// Package blobstore abstracts the durable storage used for cache snapshots.
//
// Snapshots are small, read fully into memory at startup, and rewritten
// fully after each mutation, so the interface is whole-blob Get/Put rather
// than random access. Backends must make Put atomic: a reader never
// observes a half-written snapshot.
package blobstore

import (
	"context"
	"os"
)

// ErrNotFound is returned when a blob does not exist.
//
// Implementations should return an error that satisfies
// `errors.Is(err, ErrNotFound)`. The default maps to `os.ErrNotExist`.
var ErrNotFound = os.ErrNotExist

// BlobStore is an abstraction for durable snapshot blobs.
type BlobStore interface {
	// Get reads the full content of a blob.
	Get(ctx context.Context, name string) ([]byte, error)

	// Put writes a blob atomically, replacing any previous content.
	Put(ctx context.Context, name string, data []byte) error

	// Delete removes a blob. Deleting a missing blob is not an error.
	Delete(ctx context.Context, name string) error

	// List returns all blob names with the given prefix.
	List(ctx context.Context, prefix string) ([]string, error)
}
