package ai

import (
	"context"
)

// Embedder generates vector embeddings for batches of text.
// Implementations must be thread-safe for concurrent use.
type Embedder interface {
	// EmbedBatch generates one embedding per input text. Results carry the
	// index of the input they belong to; callers must not assume the slice
	// is in request order, since some services return items out of order.
	EmbedBatch(ctx context.Context, texts []string) ([]IndexedEmbedding, error)

	// Version identifies the embedding model, recorded on every chunk so a
	// later model change can target stale rows.
	Version() string
}

// DocumentParser converts raw file bytes into markdown with page boundaries.
// The call is bounded by the caller-supplied context deadline.
type DocumentParser interface {
	Parse(ctx context.Context, file []byte, filename string, opts ParseOptions) (*ParseResult, error)
}

// Tagger derives a document type, tags and a short summary from extracted
// text. Tagging is advisory: callers treat failures as skippable.
type Tagger interface {
	TagDocument(ctx context.Context, text string) (*TagResult, error)
}

// Provider aggregates the AI collaborators for convenient initialization and
// lifecycle management.
type Provider interface {
	// Embedder returns the embedding service. Safe for concurrent use.
	Embedder() Embedder

	// Parser returns the document extraction service.
	Parser() DocumentParser

	// Tagger returns the document tagging service, or nil when tagging is
	// not configured.
	Tagger() Tagger

	// Close releases resources held by the provider and its services.
	Close() error
}
