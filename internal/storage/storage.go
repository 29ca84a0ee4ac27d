// Package storage provides object storage abstractions for datasets that live
// outside the local filesystem.
package storage

import (
	"context"
	"errors"
)

// Common errors for storage operations.
var (
	ErrObjectNotFound = errors.New("object not found")
	ErrUploadFailed   = errors.New("upload failed")
	ErrDownloadFailed = errors.New("download failed")
)

// ObjectStorage abstracts the read side of an object store holding a dataset.
// Implementations include S3 and a local filesystem store for development and tests.
type ObjectStorage interface {
	// Download copies an object to a local file.
	// objectPath is the source path in object storage.
	// localPath is the destination path on the local filesystem.
	Download(ctx context.Context, objectPath, localPath string) error

	// Size returns the object's size in bytes, or ErrObjectNotFound.
	Size(ctx context.Context, objectPath string) (int64, error)

	// Location identifies the store, e.g. "s3://bucket" or "file:///data/store".
	// Two stores with the same location serve the same objects.
	Location() string

	// ListObjects returns all object paths under the given prefix in listing order.
	ListObjects(ctx context.Context, prefix string) ([]string, error)
}
