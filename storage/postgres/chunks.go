package postgres

import (
	"context"
	"fmt"

	"github.com/coverdesk/docpipe/core"
	"github.com/coverdesk/docpipe/storage"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// insertBatchSize caps the rows per statement batch so a large document
// never exceeds request payload limits.
const insertBatchSize = 100

// InsertChunks writes all chunks for a document in one transaction. The
// statements are batched in groups of insertBatchSize, but the transaction
// makes the write all-or-nothing: a failure leaves no partial rows.
func (b *Backend) InsertChunks(ctx context.Context, chunks []*core.DocumentChunk) error {
	if len(chunks) == 0 {
		return nil
	}

	for _, chunk := range chunks {
		if chunk.ID == uuid.Nil {
			chunk.ID = uuid.New()
		}
		if err := chunk.Validate(); err != nil {
			return fmt.Errorf("postgres: insert chunks: %w", err)
		}
	}

	tx, err := b.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("postgres: begin insert chunks: %w", err)
	}
	defer tx.Rollback(ctx)

	for start := 0; start < len(chunks); start += insertBatchSize {
		end := min(start+insertBatchSize, len(chunks))

		batch := &pgx.Batch{}
		for _, chunk := range chunks[start:end] {
			batch.Queue(`
				INSERT INTO document_chunks
					(id, document_id, agency_id, content, page_number, chunk_index,
					 chunk_type, summary, token_count, embedding, embedding_version)
				VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
				chunk.ID, chunk.DocumentID, chunk.AgencyID, chunk.Content,
				chunk.PageNumber, chunk.ChunkIndex, string(chunk.ChunkType),
				chunk.Summary, chunk.TokenCount,
				storage.EncodeVector(chunk.Embedding), chunk.EmbeddingVersion)
		}

		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			return fmt.Errorf("postgres: insert chunk batch: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("postgres: commit insert chunks: %w", err)
	}

	b.logger.Debug("inserted chunks", "document_id", chunks[0].DocumentID, "count", len(chunks))
	return nil
}

// DeleteChunks removes all chunks for a document.
func (b *Backend) DeleteChunks(ctx context.Context, documentID uuid.UUID) (int, error) {
	tag, err := b.pool.Exec(ctx,
		`DELETE FROM document_chunks WHERE document_id = $1`, documentID)
	if err != nil {
		return 0, fmt.Errorf("postgres: delete chunks: %w", err)
	}
	return int(tag.RowsAffected()), nil
}

// CountChunks returns the number of chunks stored for a document.
func (b *Backend) CountChunks(ctx context.Context, documentID uuid.UUID) (int, error) {
	var count int
	err := b.pool.QueryRow(ctx,
		`SELECT count(*) FROM document_chunks WHERE document_id = $1`, documentID).
		Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("postgres: count chunks: %w", err)
	}
	return count, nil
}

// ListChunks returns a document's chunks ordered by chunk index.
func (b *Backend) ListChunks(ctx context.Context, documentID uuid.UUID) ([]*core.DocumentChunk, error) {
	rows, err := b.pool.Query(ctx, `
		SELECT id, document_id, agency_id, content, page_number, chunk_index,
		       chunk_type, summary, token_count, embedding::text, embedding_version
		FROM document_chunks
		WHERE document_id = $1
		ORDER BY chunk_index`, documentID)
	if err != nil {
		return nil, fmt.Errorf("postgres: list chunks: %w", err)
	}
	defer rows.Close()

	var chunks []*core.DocumentChunk
	for rows.Next() {
		var chunk core.DocumentChunk
		var chunkType, embedding string

		err := rows.Scan(&chunk.ID, &chunk.DocumentID, &chunk.AgencyID, &chunk.Content,
			&chunk.PageNumber, &chunk.ChunkIndex, &chunkType, &chunk.Summary,
			&chunk.TokenCount, &embedding, &chunk.EmbeddingVersion)
		if err != nil {
			return nil, fmt.Errorf("postgres: scan chunk: %w", err)
		}

		chunk.ChunkType = core.ChunkType(chunkType)
		chunk.Embedding, err = storage.DecodeVector(embedding)
		if err != nil {
			return nil, fmt.Errorf("postgres: chunk %s: %w", chunk.ID, err)
		}
		chunks = append(chunks, &chunk)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: list chunks: %w", err)
	}
	return chunks, nil
}
