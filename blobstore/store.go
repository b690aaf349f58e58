// Package blobstore abstracts where scene snapshots live: in memory, on
// the local file system, or in S3-compatible object storage.
package blobstore

import (
	"context"
	"errors"
	"io"
)

// ErrNotFound is returned when a blob does not exist.
//
// Implementations should return an error that satisfies
// `errors.Is(err, ErrNotFound)`.
var ErrNotFound = errors.New("blobstore: blob not found")

// Store is an abstraction for reading and writing named snapshot blobs.
type Store interface {
	// Open opens an existing blob for reading.
	Open(ctx context.Context, name string) (Blob, error)

	// Create opens a new blob for streaming writes. The blob becomes
	// visible on Close.
	Create(ctx context.Context, name string) (WritableBlob, error)

	// Put writes a complete blob atomically.
	Put(ctx context.Context, name string, data []byte) error

	// Delete removes a blob. Deleting a missing blob is not an error.
	Delete(ctx context.Context, name string) error

	// List returns the blob names with the given prefix, sorted.
	List(ctx context.Context, prefix string) ([]string, error)
}

// Blob is a read-only handle to a snapshot blob.
type Blob interface {
	io.ReaderAt
	io.Closer
	// Size returns the size of the blob in bytes.
	Size() int64
}

// WritableBlob is a streaming write handle. Close commits the blob.
type WritableBlob interface {
	io.WriteCloser
}

// Mappable is an optional interface for Blobs whose bytes are directly
// addressable (memory-mapped files, in-memory blobs). Bytes is valid until
// the blob is closed.
type Mappable interface {
	Bytes() ([]byte, error)
}

// ReadAll reads the full contents of a blob, using the zero-copy path when
// the blob supports it. The returned slice must not outlive the blob.
func ReadAll(b Blob) ([]byte, error) {
	if m, ok := b.(Mappable); ok {
		return m.Bytes()
	}
	data := make([]byte, b.Size())
	if _, err := b.ReadAt(data, 0); err != nil && err != io.EOF {
		return nil, err
	}
	return data, nil
}
