// Package blob abstracts the file store documents are uploaded to. The
// pipeline only ever downloads by storage path; uploads happen elsewhere.
package blob

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// ErrNotFound indicates no object exists at the requested path.
var ErrNotFound = errors.New("blob: object not found")

// ErrInvalidPath indicates the storage path escapes the store root.
var ErrInvalidPath = errors.New("blob: invalid storage path")

// Downloader fetches an uploaded document's bytes by storage path.
type Downloader interface {
	Download(ctx context.Context, path string) ([]byte, error)
}

// FileStore serves documents from a local directory tree. Storage paths are
// relative to the root; anything resolving outside it is rejected.
type FileStore struct {
	root   string
	logger *slog.Logger
}

var _ Downloader = (*FileStore)(nil)

// NewFileStore creates a downloader rooted at the given directory.
func NewFileStore(root string) (*FileStore, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("blob: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("blob: %s is not a directory", root)
	}
	return &FileStore{
		root:   root,
		logger: slog.Default().With("component", "blob"),
	}, nil
}

// Download reads the object at path relative to the store root.
func (s *FileStore) Download(ctx context.Context, path string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	cleaned := filepath.Clean(filepath.FromSlash(path))
	if filepath.IsAbs(cleaned) || cleaned == ".." || strings.HasPrefix(cleaned, ".."+string(filepath.Separator)) {
		return nil, ErrInvalidPath
	}

	data, err := os.ReadFile(filepath.Join(s.root, cleaned))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		return nil, fmt.Errorf("blob: read %s: %w", path, err)
	}

	s.logger.Debug("downloaded object", "path", path, "bytes", len(data))
	return data, nil
}
