package blob

import "context"

// MockDownloader is a test double for Downloader.
// It allows custom behavior injection via function fields.
type MockDownloader struct {
	// DownloadFunc is called by Download if set. If nil, Files is consulted.
	DownloadFunc func(ctx context.Context, path string) ([]byte, error)

	// Files maps storage paths to their contents for the default behavior.
	Files map[string][]byte

	callCount int
	paths     []string
}

var _ Downloader = (*MockDownloader)(nil)

// NewMockDownloader creates a mock with an empty file set.
// Note: Returns concrete type to allow test assertions.
func NewMockDownloader() *MockDownloader {
	return &MockDownloader{Files: make(map[string][]byte)}
}

// Download records the call and serves from Files unless DownloadFunc is set.
func (m *MockDownloader) Download(ctx context.Context, path string) ([]byte, error) {
	m.callCount++
	m.paths = append(m.paths, path)

	if m.DownloadFunc != nil {
		return m.DownloadFunc(ctx, path)
	}
	data, ok := m.Files[path]
	if !ok {
		return nil, ErrNotFound
	}
	return data, nil
}

// CallCount returns the number of Download calls made.
func (m *MockDownloader) CallCount() int {
	return m.callCount
}

// Paths returns every requested path, in call order.
func (m *MockDownloader) Paths() []string {
	return m.paths
}

// Reset clears recorded calls and injected behavior.
func (m *MockDownloader) Reset() {
	m.callCount = 0
	m.paths = nil
	m.DownloadFunc = nil
}
