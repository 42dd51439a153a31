package mock

import (
	"context"
	"hash/fnv"
	"sync"

	"github.com/coverdesk/docpipe/ai"
)

// MockEmbedder is a test double for ai.Embedder.
// It allows custom behavior injection via function fields.
type MockEmbedder struct {
	// EmbedBatchFunc is called by EmbedBatch if set.
	// If nil, uses default deterministic behavior.
	EmbedBatchFunc func(ctx context.Context, texts []string) ([]ai.IndexedEmbedding, error)

	// ReverseOrder makes the default behavior return items in reverse
	// request order, exercising callers' index re-sorting.
	ReverseOrder bool

	// Dimensions is the default vector size. Zero means 384.
	Dimensions int

	mu         sync.Mutex // callers may embed batches concurrently
	callCount  int
	batchSizes []int
}

var _ ai.Embedder = (*MockEmbedder)(nil)

// NewMockEmbedder creates a mock embedder with default deterministic behavior.
// Note: Returns concrete type to allow test assertions.
func NewMockEmbedder() *MockEmbedder {
	return &MockEmbedder{}
}

// EmbedBatch generates deterministic embeddings derived from each text's hash.
func (m *MockEmbedder) EmbedBatch(ctx context.Context, texts []string) ([]ai.IndexedEmbedding, error) {
	m.mu.Lock()
	m.callCount++
	m.batchSizes = append(m.batchSizes, len(texts))
	m.mu.Unlock()

	if m.EmbedBatchFunc != nil {
		return m.EmbedBatchFunc(ctx, texts)
	}

	dim := m.Dimensions
	if dim == 0 {
		dim = 384
	}

	result := make([]ai.IndexedEmbedding, len(texts))
	for i, text := range texts {
		pos := i
		if m.ReverseOrder {
			pos = len(texts) - 1 - i
		}
		result[pos] = ai.IndexedEmbedding{
			Index:  i,
			Vector: generateDeterministicVector(text, dim),
		}
	}
	return result, nil
}

// Version identifies the mock model.
func (m *MockEmbedder) Version() string {
	return "mock-embedder-v1"
}

// CallCount returns the number of EmbedBatch calls made.
func (m *MockEmbedder) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.callCount
}

// BatchSizes returns the size of every batch received, in call order.
func (m *MockEmbedder) BatchSizes() []int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.batchSizes
}

// Reset clears recorded calls and injected behavior.
func (m *MockEmbedder) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.callCount = 0
	m.batchSizes = nil
	m.EmbedBatchFunc = nil
}

// generateDeterministicVector creates a deterministic embedding vector from text.
// It uses FNV hash to ensure the same text always produces the same vector.
func generateDeterministicVector(text string, dim int) []float32 {
	h := fnv.New32a()
	h.Write([]byte(text))
	seed := h.Sum32()

	vector := make([]float32, dim)
	for i := 0; i < dim; i++ {
		seed = seed*1664525 + 1013904223 // LCG constants
		vector[i] = float32(seed%1000) / 1000.0
	}
	return vector
}
