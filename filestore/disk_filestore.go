package filestore

import (
	"context"
	"fmt"
	"io"
	"path/filepath"

	"github.com/spf13/afero"
)

type (
	DiskFileStore struct {
		fs       afero.Fs
		rootPath string
	}
)

func NewDiskFileStore(rootPath string) *DiskFileStore {
	return &DiskFileStore{
		fs:       afero.NewOsFs(),
		rootPath: rootPath,
	}
}

// NewMemFileStore is a DiskFileStore over an in-memory filesystem, for tests
// and embedded use.
func NewMemFileStore() *DiskFileStore {
	return &DiskFileStore{
		fs:       afero.NewMemMapFs(),
		rootPath: "",
	}
}

func (dfs *DiskFileStore) fullPath(path string) string {
	return filepath.Join(dfs.rootPath, path)
}

func (dfs *DiskFileStore) OpenFile(_ context.Context, path string) (io.ReadCloser, error) {
	f, err := dfs.fs.Open(dfs.fullPath(path))
	if err != nil {
		return nil, fmt.Errorf("error in fs.Open: %w", err)
	}
	return f, nil
}

func (dfs *DiskFileStore) WriteFile(_ context.Context, path string, r io.Reader) error {
	full := dfs.fullPath(path)
	if err := dfs.fs.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return fmt.Errorf("error in fs.MkdirAll: %w", err)
	}
	f, err := dfs.fs.Create(full)
	if err != nil {
		return fmt.Errorf("error in fs.Create: %w", err)
	}
	defer f.Close()
	if _, err := io.Copy(f, r); err != nil {
		return fmt.Errorf("error in io.Copy: %w", err)
	}
	return nil
}

func (dfs *DiskFileStore) DeleteFile(_ context.Context, path string) error {
	if err := dfs.fs.Remove(dfs.fullPath(path)); err != nil {
		return fmt.Errorf("error in fs.Remove: %w", err)
	}
	return nil
}

func (dfs *DiskFileStore) Shutdown(_ context.Context) error {
	return nil
}
