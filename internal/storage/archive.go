package storage

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
)

// ArchiveDownloads stores the given files and returns the archived
// destinations. Callers pass only the artifacts the batch produced, so
// files that predate the run are never re-archived. A failed upload
// aborts the pass; the files already archived stay archived.
func ArchiveDownloads(ctx context.Context, archiver Archiver, files []string) ([]string, error) {
	if len(files) == 0 {
		slog.Info("No artifacts to archive")
		return nil, nil
	}

	destinations := make([]string, 0, len(files))
	for _, file := range files {
		dest, err := archiver.Store(ctx, file)
		if err != nil {
			return destinations, fmt.Errorf("archiving %s: %w", filepath.Base(file), err)
		}
		slog.Info("Archived artifact", "file", filepath.Base(file), "dest", dest)
		destinations = append(destinations, dest)
	}

	return destinations, nil
}
