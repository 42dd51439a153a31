package mock

import (
	"github.com/coverdesk/docpipe/ai"
)

// MockProvider aggregates mock AI services for tests.
type MockProvider struct {
	MockEmbedder *MockEmbedder
	MockParser   *MockParser
	MockTagger   *MockTagger

	// DisableTagger makes Tagger() return nil, simulating a deployment
	// without the tagging stage.
	DisableTagger bool
}

var _ ai.Provider = (*MockProvider)(nil)

// NewMockProvider creates a provider wired with default mocks.
// Note: Returns concrete type to allow test assertions on the mocks.
func NewMockProvider() *MockProvider {
	return &MockProvider{
		MockEmbedder: NewMockEmbedder(),
		MockParser:   NewMockParser(),
		MockTagger:   NewMockTagger(),
	}
}

// Embedder returns the mock embedding service.
func (p *MockProvider) Embedder() ai.Embedder {
	return p.MockEmbedder
}

// Parser returns the mock extraction service.
func (p *MockProvider) Parser() ai.DocumentParser {
	return p.MockParser
}

// Tagger returns the mock tagging service, or nil when disabled.
func (p *MockProvider) Tagger() ai.Tagger {
	if p.DisableTagger {
		return nil
	}
	return p.MockTagger
}

// Close is a no-op.
func (p *MockProvider) Close() error {
	return nil
}
