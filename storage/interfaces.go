package storage

import (
	"context"
	"time"

	"github.com/coverdesk/docpipe/core"
	"github.com/google/uuid"
)

// JobRepository provides operations for the per-tenant processing job queue.
// Implementations must be thread-safe and support concurrent access.
type JobRepository interface {
	// CreateJob inserts a new pending job. Sets CreatedAt if not already set.
	CreateJob(ctx context.Context, job *core.ProcessingJob) error

	// GetJob retrieves a job by ID.
	// Returns ErrNotFound if the job doesn't exist.
	GetJob(ctx context.Context, id uuid.UUID) (*core.ProcessingJob, error)

	// HasActiveJob reports whether any job for the agency is currently
	// processing.
	HasActiveJob(ctx context.Context, agencyID uuid.UUID) (bool, error)

	// ClaimNextPending atomically claims the oldest pending job for the
	// agency and moves it to processing, excluding jobs concurrent callers
	// have already claimed. Returns ErrNotFound when no pending job exists.
	ClaimNextPending(ctx context.Context, agencyID uuid.UUID) (*core.ProcessingJob, error)

	// ReapStaleJobs forces any job processing for longer than olderThan to
	// failed with the given message. Returns the number of jobs reaped.
	ReapStaleJobs(ctx context.Context, olderThan time.Duration, message string) (int, error)

	// SetJobStatus transitions a job, recording StartedAt on entry to
	// processing and CompletedAt on entry to a terminal state. The error
	// message is recorded on failed transitions.
	// Returns ErrNotFound if the job doesn't exist.
	SetJobStatus(ctx context.Context, id uuid.UUID, status core.JobStatus, errorMessage string) error

	// UpdateJobProgress overwrites the job's embedded progress record.
	UpdateJobProgress(ctx context.Context, id uuid.UUID, progress *core.ProgressData) error
}

// DocumentRepository provides operations for documents under processing.
type DocumentRepository interface {
	// CreateDocument inserts an uploaded document record.
	CreateDocument(ctx context.Context, doc *core.Document) error

	// GetDocument retrieves a document by ID.
	// Returns ErrNotFound if the document doesn't exist.
	GetDocument(ctx context.Context, id uuid.UUID) (*core.Document, error)

	// SetDocumentStatus transitions a document's lifecycle state.
	SetDocumentStatus(ctx context.Context, id uuid.UUID, status core.DocumentStatus) error

	// SetDocumentExtracted records the extraction output. Written once, when
	// extraction succeeds.
	SetDocumentExtracted(ctx context.Context, id uuid.UUID, rawText string, pageCount int) error

	// SetDocumentTags records the advisory tagging output.
	SetDocumentTags(ctx context.Context, id uuid.UUID, documentType string, tags []string, summary string) error
}

// ChunkRepository provides operations for document chunks.
type ChunkRepository interface {
	// InsertChunks bulk-inserts all chunks for a document atomically.
	// Chunks are immutable once written.
	InsertChunks(ctx context.Context, chunks []*core.DocumentChunk) error

	// DeleteChunks removes all chunks for a document, returning how many
	// rows were removed. Used to purge leftovers of failed runs.
	DeleteChunks(ctx context.Context, documentID uuid.UUID) (int, error)

	// CountChunks returns the number of chunks stored for a document.
	CountChunks(ctx context.Context, documentID uuid.UUID) (int, error)

	// ListChunks returns a document's chunks ordered by chunk index.
	ListChunks(ctx context.Context, documentID uuid.UUID) ([]*core.DocumentChunk, error)
}

// Store aggregates the repositories over one backend.
type Store interface {
	JobRepository
	DocumentRepository
	ChunkRepository

	// Close closes the storage backend and releases resources.
	Close() error
}
