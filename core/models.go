package core

import (
	"time"

	"github.com/google/uuid"
)

// JobStatus represents the lifecycle state of a processing job.
type JobStatus string

const (
	JobPending    JobStatus = "pending"
	JobProcessing JobStatus = "processing"
	JobCompleted  JobStatus = "completed"
	JobFailed     JobStatus = "failed"
)

// Terminal reports whether the status is an end state.
func (s JobStatus) Terminal() bool {
	return s == JobCompleted || s == JobFailed
}

// DocumentStatus represents the lifecycle state of a document.
type DocumentStatus string

const (
	DocumentUploaded   DocumentStatus = "uploaded"
	DocumentProcessing DocumentStatus = "processing"
	DocumentReady      DocumentStatus = "ready"
	DocumentFailed     DocumentStatus = "failed"
)

// ChunkType distinguishes plain text chunks from atomic table chunks.
type ChunkType string

const (
	ChunkText  ChunkType = "text"
	ChunkTable ChunkType = "table"
)

// Stage identifies a pipeline stage for progress reporting.
type Stage string

const (
	StageDownloading Stage = "downloading"
	StageParsing     Stage = "parsing"
	StageChunking    Stage = "chunking"
	StageTagging     Stage = "tagging"
	StageEmbedding   Stage = "embedding"
	StagePersisting  Stage = "persisting"
	StageCompleted   Stage = "completed"
	StageFailed      Stage = "failed"
)

// ProcessingJob is the queue's bookkeeping record for one document run.
// Jobs are created at upload time, mutated by the orchestrator, and kept
// forever as a historical record. At most one job per agency may be in
// JobProcessing at any time.
type ProcessingJob struct {
	ID           uuid.UUID
	DocumentID   uuid.UUID
	AgencyID     uuid.UUID
	Status       JobStatus
	StartedAt    *time.Time
	CompletedAt  *time.Time
	ErrorMessage string
	Progress     *ProgressData
	CreatedAt    time.Time
}

// Document is an uploaded file tracked through extraction.
// RawText and PageCount are written once extraction succeeds.
type Document struct {
	ID           uuid.UUID
	AgencyID     uuid.UUID
	StoragePath  string
	Status       DocumentStatus
	PageCount    int
	RawText      string
	DocumentType string
	AITags       []string
	AISummary    string
}

// DocumentChunk is one retrieval unit of a document. Chunks are written in a
// single bulk step after embedding and are immutable afterward. ChunkIndex is
// contiguous and strictly increasing per document.
type DocumentChunk struct {
	ID               uuid.UUID
	DocumentID       uuid.UUID
	AgencyID         uuid.UUID
	Content          string
	PageNumber       int
	ChunkIndex       int
	ChunkType        ChunkType
	Summary          string // non-empty for table chunks only
	TokenCount       int
	Embedding        []float32
	EmbeddingVersion string
}

// ProgressData is the ephemeral, in-place-overwritten progress record
// embedded on a ProcessingJob.
type ProgressData struct {
	Stage                     Stage     `json:"stage"`
	StagePercent              float64   `json:"stage_percent"`
	TotalPercent              float64   `json:"total_percent"`
	EstimatedSecondsRemaining *int      `json:"estimated_seconds_remaining,omitempty"`
	UpdatedAt                 time.Time `json:"updated_at"`
}

// Page is a unit of parsed document text handed to the chunker.
type Page struct {
	Number  int
	Content string
}
