package storage

import (
	"context"
	"errors"
)

var ErrNoArchiveTarget = errors.New("no archive target configured")

// Options selects the archive backend. Bucket takes precedence over Dir
// when both are set.
type Options struct {
	// Bucket names a GCS bucket; Prefix is the object prefix within it.
	Bucket string
	Prefix string

	// Dir is a local archive directory.
	Dir string

	// CredentialsFile optionally overrides application default
	// credentials for the GCS client.
	CredentialsFile string
}

// NewArchiver returns the archiver for the configured target.
func NewArchiver(ctx context.Context, opts Options) (Archiver, error) {
	if opts.Bucket != "" {
		return NewGCSArchive(ctx, opts.Bucket, opts.Prefix, opts.CredentialsFile)
	}

	if opts.Dir != "" {
		return NewLocalArchive(opts.Dir)
	}

	return nil, ErrNoArchiveTarget
}
