package filestore

import (
	"context"
	"io"
)

type (
	// FileStore abstracts the backing store holding metadata, manifest, and
	// data files. Deletes are best-effort from the caller's point of view:
	// implementations may report a missing path as an error, callers log and
	// continue.
	FileStore interface {
		OpenFile(ctx context.Context, path string) (io.ReadCloser, error)
		WriteFile(ctx context.Context, path string, r io.Reader) error
		DeleteFile(ctx context.Context, path string) error

		Shutdown(ctx context.Context) error
	}
)
