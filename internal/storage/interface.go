// Package storage archives downloaded audio files after a batch
// completes, either into a local directory or a GCS bucket.
package storage

import "context"

// Archiver stores finished download artifacts.
type Archiver interface {
	// Store copies the local file into the archive and returns the
	// destination path or object name.
	Store(ctx context.Context, localPath string) (string, error)

	// List returns the names of the artifacts currently archived.
	List(ctx context.Context) ([]string, error)

	Close() error
}
