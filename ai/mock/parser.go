package mock

import (
	"context"

	"github.com/coverdesk/docpipe/ai"
)

// MockParser is a test double for ai.DocumentParser.
// It allows custom behavior injection via function fields.
type MockParser struct {
	// ParseFunc is called by Parse if set. If nil, the file bytes are
	// treated as the extracted markdown.
	ParseFunc func(ctx context.Context, file []byte, filename string, opts ParseCall) (*ai.ParseResult, error)

	calls []ParseCall
}

// ParseCall records the arguments of one Parse invocation.
type ParseCall struct {
	Filename string
	Options  ai.ParseOptions
	Size     int
}

var _ ai.DocumentParser = (*MockParser)(nil)

// NewMockParser creates a mock parser with default pass-through behavior.
// Note: Returns concrete type to allow test assertions.
func NewMockParser() *MockParser {
	return &MockParser{}
}

// Parse records the call and returns the file bytes as markdown, with page
// markers derived from the standard delimiter.
func (m *MockParser) Parse(ctx context.Context, file []byte, filename string, opts ai.ParseOptions) (*ai.ParseResult, error) {
	call := ParseCall{Filename: filename, Options: opts, Size: len(file)}
	m.calls = append(m.calls, call)

	if m.ParseFunc != nil {
		return m.ParseFunc(ctx, file, filename, call)
	}

	markdown := string(file)
	markers := ai.DerivePageMarkers(markdown)
	return &ai.ParseResult{
		Markdown:    markdown,
		PageMarkers: markers,
		PageCount:   len(markers),
	}, nil
}

// Calls returns the recorded invocations in order.
func (m *MockParser) Calls() []ParseCall {
	return m.calls
}

// CallCount returns the number of Parse calls made.
func (m *MockParser) CallCount() int {
	return len(m.calls)
}

// Reset clears recorded calls and injected behavior.
func (m *MockParser) Reset() {
	m.calls = nil
	m.ParseFunc = nil
}
