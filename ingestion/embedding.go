package ingestion

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/coverdesk/docpipe/ai"
	"github.com/coverdesk/docpipe/core"
	"github.com/panjf2000/ants/v2"
)

const (
	// embedBatchSize is the number of chunk texts sent per service call.
	embedBatchSize = 20

	// embedMaxAttempts bounds retries per batch.
	embedMaxAttempts = 3

	// embedBaseDelay is the initial retry backoff, doubling per attempt.
	embedBaseDelay = time.Second
)

// batchEmbedder generates embeddings for chunk contents in fixed-size
// batches. Batches run sequentially by default; with a worker pool they may
// be pipelined, bounded to keep external rate-limit exposure small. Either
// way an all-batches-or-nothing contract holds: any batch exhausting its
// retries fails the whole run, and no partial state is persisted.
type batchEmbedder struct {
	embedder    ai.Embedder
	batchSize   int
	maxAttempts int
	baseDelay   time.Duration
	pool        *ants.Pool
	logger      *slog.Logger
}

func newBatchEmbedder(embedder ai.Embedder, pool *ants.Pool) *batchEmbedder {
	return &batchEmbedder{
		embedder:    embedder,
		batchSize:   embedBatchSize,
		maxAttempts: embedMaxAttempts,
		baseDelay:   embedBaseDelay,
		pool:        pool,
		logger:      slog.Default().With("component", "embedder"),
	}
}

// embedChunks fills in Embedding and EmbeddingVersion on every chunk.
// onBatch is invoked after each completed batch with (done, total) so the
// embedding stage's progress advances incrementally.
func (b *batchEmbedder) embedChunks(ctx context.Context, chunks []*core.DocumentChunk, onBatch func(done, total int)) error {
	if len(chunks) == 0 {
		return nil
	}

	texts := make([]string, len(chunks))
	for i, chunk := range chunks {
		texts[i] = chunk.Content
	}

	total := (len(texts) + b.batchSize - 1) / b.batchSize
	version := b.embedder.Version()

	var mu sync.Mutex
	var firstErr error
	done := 0

	runBatch := func(batchIndex int) {
		start := batchIndex * b.batchSize
		end := min(start+b.batchSize, len(texts))

		vectors, err := b.embedBatch(ctx, texts[start:end])

		mu.Lock()
		defer mu.Unlock()
		if err != nil {
			if firstErr == nil {
				firstErr = fmt.Errorf("embedding batch %d/%d: %w", batchIndex+1, total, err)
			}
			return
		}

		for i, vector := range vectors {
			chunks[start+i].Embedding = vector
			chunks[start+i].EmbeddingVersion = version
		}

		done++
		if onBatch != nil {
			onBatch(done, total)
		}
	}

	if b.pool == nil {
		for i := 0; i < total; i++ {
			runBatch(i)
			mu.Lock()
			err := firstErr
			mu.Unlock()
			if err != nil {
				return err
			}
		}
		return nil
	}

	var wg sync.WaitGroup
	for i := 0; i < total; i++ {
		wg.Add(1)
		batchIndex := i
		if err := b.pool.Submit(func() {
			defer wg.Done()
			runBatch(batchIndex)
		}); err != nil {
			wg.Done()
			mu.Lock()
			if firstErr == nil {
				firstErr = err
			}
			mu.Unlock()
		}
	}
	wg.Wait()

	return firstErr
}

// embedBatch calls the embedding service for one batch with retries, then
// re-sorts the returned items to request order. The service reports an
// explicit per-item index and is not trusted to preserve ordering.
func (b *batchEmbedder) embedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	var items []ai.IndexedEmbedding

	err := RetryWithBackoff(ctx, func() error {
		var err error
		items, err = b.embedder.EmbedBatch(ctx, texts)
		return err
	}, b.maxAttempts, b.baseDelay)
	if err != nil {
		return nil, err
	}

	if len(items) != len(texts) {
		return nil, fmt.Errorf("embedding result mismatch. expected %d, received %d", len(texts), len(items))
	}

	vectors := make([][]float32, len(texts))
	for _, item := range items {
		if item.Index < 0 || item.Index >= len(texts) {
			return nil, fmt.Errorf("embedding index %d out of range for batch of %d", item.Index, len(texts))
		}
		if vectors[item.Index] != nil {
			return nil, fmt.Errorf("duplicate embedding index %d", item.Index)
		}
		vectors[item.Index] = item.Vector
	}
	for i, vector := range vectors {
		if vector == nil {
			return nil, fmt.Errorf("missing embedding for item %d", i)
		}
	}
	return vectors, nil
}
