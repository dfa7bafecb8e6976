// Package storage provides blob storage for uploaded product photos and
// archived reels. It defines the Storage port and implementations for local
// disk and S3.
package storage

import (
	"context"
	"io"
)

// Storage defines the interface for media blob storage.
// Product photos land here when an upload is accepted; finished reels can
// optionally be archived here as well.
type Storage interface {
	// SaveBlob saves data to local storage and returns the file path.
	// The name parameter is used as a hint for the filename.
	SaveBlob(ctx context.Context, name string, data io.Reader) (path string, err error)

	// LoadBlob reads a stored blob and returns a reader.
	// The caller is responsible for closing the returned ReadCloser.
	LoadBlob(ctx context.Context, path string) (io.ReadCloser, error)

	// Cleanup removes the specified blobs.
	// It continues cleanup even if some files fail to delete.
	Cleanup(ctx context.Context, paths []string) error

	// UploadToS3 uploads data to S3 and returns the public URL.
	// Returns ErrS3NotConfigured if S3 is not configured.
	UploadToS3(ctx context.Context, key string, data io.Reader) (url string, err error)
}
