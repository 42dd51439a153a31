package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/coverdesk/docpipe/core"
	"github.com/coverdesk/docpipe/storage"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// CreateDocument inserts an uploaded document record.
func (b *Backend) CreateDocument(ctx context.Context, doc *core.Document) error {
	if doc.ID == uuid.Nil {
		doc.ID = uuid.New()
	}
	if doc.Status == "" {
		doc.Status = core.DocumentUploaded
	}

	_, err := b.pool.Exec(ctx, `
		INSERT INTO documents (id, agency_id, storage_path, status, page_count, raw_text, document_type, ai_tags, ai_summary)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		doc.ID, doc.AgencyID, doc.StoragePath, string(doc.Status),
		doc.PageCount, doc.RawText, doc.DocumentType, doc.AITags, doc.AISummary)
	if err != nil {
		return fmt.Errorf("postgres: create document: %w", err)
	}
	return nil
}

// GetDocument retrieves a document by ID.
func (b *Backend) GetDocument(ctx context.Context, id uuid.UUID) (*core.Document, error) {
	var doc core.Document
	var status string

	err := b.pool.QueryRow(ctx, `
		SELECT id, agency_id, storage_path, status, page_count, raw_text, document_type, ai_tags, ai_summary
		FROM documents WHERE id = $1`, id).
		Scan(&doc.ID, &doc.AgencyID, &doc.StoragePath, &status,
			&doc.PageCount, &doc.RawText, &doc.DocumentType, &doc.AITags, &doc.AISummary)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("postgres: get document: %w", err)
	}

	doc.Status = core.DocumentStatus(status)
	return &doc, nil
}

// SetDocumentStatus transitions a document's lifecycle state.
func (b *Backend) SetDocumentStatus(ctx context.Context, id uuid.UUID, status core.DocumentStatus) error {
	tag, err := b.pool.Exec(ctx,
		`UPDATE documents SET status = $2 WHERE id = $1`, id, string(status))
	if err != nil {
		return fmt.Errorf("postgres: set document status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// SetDocumentExtracted records the extraction output.
func (b *Backend) SetDocumentExtracted(ctx context.Context, id uuid.UUID, rawText string, pageCount int) error {
	tag, err := b.pool.Exec(ctx,
		`UPDATE documents SET raw_text = $2, page_count = $3 WHERE id = $1`,
		id, rawText, pageCount)
	if err != nil {
		return fmt.Errorf("postgres: set document extracted: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// SetDocumentTags records the advisory tagging output.
func (b *Backend) SetDocumentTags(ctx context.Context, id uuid.UUID, documentType string, tags []string, summary string) error {
	if tags == nil {
		tags = []string{}
	}
	tag, err := b.pool.Exec(ctx,
		`UPDATE documents SET document_type = $2, ai_tags = $3, ai_summary = $4 WHERE id = $1`,
		id, documentType, tags, summary)
	if err != nil {
		return fmt.Errorf("postgres: set document tags: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}
