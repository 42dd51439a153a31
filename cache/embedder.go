package cache

import (
	"context"
	"errors"
	"log/slog"

	"github.com/coverdesk/docpipe/ai"
)

// CachingEmbedder wraps an ai.Embedder with the embedding cache. Hits are
// served locally; only misses reach the underlying service. Cache failures
// are logged and ignored so a broken cache never fails a pipeline run.
type CachingEmbedder struct {
	inner  ai.Embedder
	cache  *EmbeddingCache
	logger *slog.Logger
}

var _ ai.Embedder = (*CachingEmbedder)(nil)

// NewCachingEmbedder wraps inner with the given cache.
func NewCachingEmbedder(inner ai.Embedder, cache *EmbeddingCache) *CachingEmbedder {
	return &CachingEmbedder{
		inner:  inner,
		cache:  cache,
		logger: slog.Default().With("component", "caching_embedder"),
	}
}

// Version returns the wrapped embedder's model version.
func (e *CachingEmbedder) Version() string {
	return e.inner.Version()
}

// EmbedBatch serves cached vectors and delegates the remainder to the
// wrapped embedder. Returned indices refer to positions in texts.
func (e *CachingEmbedder) EmbedBatch(ctx context.Context, texts []string) ([]ai.IndexedEmbedding, error) {
	version := e.inner.Version()
	results := make([]ai.IndexedEmbedding, 0, len(texts))

	var missTexts []string
	var missIndices []int
	for i, text := range texts {
		vector, err := e.cache.Get(version, text)
		if err != nil {
			if !errors.Is(err, ErrMiss) {
				e.logger.Warn("cache read failed", "error", err)
			}
			missTexts = append(missTexts, text)
			missIndices = append(missIndices, i)
			continue
		}
		results = append(results, ai.IndexedEmbedding{Index: i, Vector: vector})
	}

	if len(missTexts) > 0 {
		embedded, err := e.inner.EmbedBatch(ctx, missTexts)
		if err != nil {
			return nil, err
		}

		for _, item := range embedded {
			if item.Index < 0 || item.Index >= len(missIndices) {
				continue
			}
			original := missIndices[item.Index]
			results = append(results, ai.IndexedEmbedding{Index: original, Vector: item.Vector})

			if err := e.cache.Put(version, missTexts[item.Index], item.Vector); err != nil {
				e.logger.Warn("cache write failed", "error", err)
			}
		}
	}

	e.logger.Debug("embedded batch",
		"total", len(texts), "hits", len(texts)-len(missTexts), "misses", len(missTexts))
	return results, nil
}
