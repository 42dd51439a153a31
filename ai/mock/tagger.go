package mock

import (
	"context"

	"github.com/coverdesk/docpipe/ai"
)

// MockTagger is a test double for ai.Tagger.
// It allows custom behavior injection via function fields.
type MockTagger struct {
	// TagDocumentFunc is called by TagDocument if set.
	// If nil, a fixed "other" result is returned.
	TagDocumentFunc func(ctx context.Context, text string) (*ai.TagResult, error)

	callCount int
}

var _ ai.Tagger = (*MockTagger)(nil)

// NewMockTagger creates a mock tagger with default behavior.
// Note: Returns concrete type to allow test assertions.
func NewMockTagger() *MockTagger {
	return &MockTagger{}
}

// TagDocument returns a fixed classification unless a custom func is set.
func (m *MockTagger) TagDocument(ctx context.Context, text string) (*ai.TagResult, error) {
	m.callCount++

	if m.TagDocumentFunc != nil {
		return m.TagDocumentFunc(ctx, text)
	}

	return &ai.TagResult{
		DocumentType: "other",
		Tags:         []string{"mock"},
		Summary:      "Mock tagging result.",
	}, nil
}

// CallCount returns the number of TagDocument calls made.
func (m *MockTagger) CallCount() int {
	return m.callCount
}

// Reset clears the call count and injected behavior.
func (m *MockTagger) Reset() {
	m.callCount = 0
	m.TagDocumentFunc = nil
}
