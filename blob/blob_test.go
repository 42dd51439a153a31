package blob

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileStoreDownload(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "agency-1"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "agency-1", "policy.pdf"), []byte("%PDF-1.4"), 0644))

	store, err := NewFileStore(root)
	require.NoError(t, err)

	data, err := store.Download(context.Background(), "agency-1/policy.pdf")
	require.NoError(t, err)
	assert.Equal(t, []byte("%PDF-1.4"), data)
}

func TestFileStoreNotFound(t *testing.T) {
	store, err := NewFileStore(t.TempDir())
	require.NoError(t, err)

	_, err = store.Download(context.Background(), "missing.pdf")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestFileStoreRejectsEscapingPaths(t *testing.T) {
	store, err := NewFileStore(t.TempDir())
	require.NoError(t, err)

	for _, path := range []string{"../outside.pdf", "a/../../outside.pdf", "/etc/passwd"} {
		_, err := store.Download(context.Background(), path)
		assert.ErrorIs(t, err, ErrInvalidPath, path)
	}
}

func TestFileStoreHonorsContext(t *testing.T) {
	store, err := NewFileStore(t.TempDir())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = store.Download(ctx, "anything.pdf")
	assert.ErrorIs(t, err, context.Canceled)
}
