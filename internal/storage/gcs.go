package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"

	"cloud.google.com/go/storage"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
)

// GCSArchive uploads artifacts to a Google Cloud Storage bucket under an
// optional object prefix.
type GCSArchive struct {
	client *storage.Client
	bucket string
	prefix string
}

// NewGCSArchive creates a GCS-backed archive. With an empty
// credentialsFile the client uses application default credentials.
func NewGCSArchive(ctx context.Context, bucket, prefix, credentialsFile string) (*GCSArchive, error) {
	var client *storage.Client
	var err error

	if credentialsFile != "" {
		client, err = storage.NewClient(ctx, option.WithCredentialsFile(credentialsFile))
	} else {
		client, err = storage.NewClient(ctx)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create GCS client: %w", err)
	}

	return &GCSArchive{client: client, bucket: bucket, prefix: prefix}, nil
}

func (a *GCSArchive) objectName(localPath string) string {
	name := filepath.Base(localPath)
	if a.prefix != "" {
		return path.Join(a.prefix, name)
	}
	return name
}

func (a *GCSArchive) Store(ctx context.Context, localPath string) (string, error) {
	src, err := os.Open(localPath)
	if err != nil {
		return "", fmt.Errorf("failed to open artifact: %w", err)
	}
	defer src.Close()

	objectName := a.objectName(localPath)
	w := a.client.Bucket(a.bucket).Object(objectName).NewWriter(ctx)

	if _, err := io.Copy(w, src); err != nil {
		w.Close()
		return "", fmt.Errorf("failed to upload artifact: %w", err)
	}

	if err := w.Close(); err != nil {
		return "", fmt.Errorf("failed to finalise upload: %w", err)
	}

	return fmt.Sprintf("gs://%s/%s", a.bucket, objectName), nil
}

func (a *GCSArchive) List(ctx context.Context) ([]string, error) {
	it := a.client.Bucket(a.bucket).Objects(ctx, &storage.Query{Prefix: a.prefix})

	var names []string
	for {
		attrs, err := it.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to list archived objects: %w", err)
		}
		names = append(names, attrs.Name)
	}
	return names, nil
}

func (a *GCSArchive) Close() error {
	return a.client.Close()
}
