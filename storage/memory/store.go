// Package memory implements storage.Store in process memory. It backs tests
// and single-process development; the claim and reap operations provide the
// same atomicity guarantees as the postgres backend, enforced with a mutex
// instead of row locks.
package memory

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/coverdesk/docpipe/core"
	"github.com/coverdesk/docpipe/storage"
	"github.com/google/uuid"
)

// Store holds all records behind a single mutex.
type Store struct {
	mu        sync.Mutex
	jobs      map[uuid.UUID]*core.ProcessingJob
	documents map[uuid.UUID]*core.Document
	chunks    map[uuid.UUID][]*core.DocumentChunk // keyed by document ID
	closed    bool
}

var _ storage.Store = (*Store)(nil)

// NewStore creates an empty in-memory store.
func NewStore() *Store {
	return &Store{
		jobs:      make(map[uuid.UUID]*core.ProcessingJob),
		documents: make(map[uuid.UUID]*core.Document),
		chunks:    make(map[uuid.UUID][]*core.DocumentChunk),
	}
}

// Close marks the store closed; subsequent operations fail.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

func (s *Store) checkOpen() error {
	if s.closed {
		return storage.ErrStorageClosed
	}
	return nil
}

// cloneJob copies a job so callers never share memory with the store.
func cloneJob(job *core.ProcessingJob) *core.ProcessingJob {
	out := *job
	if job.Progress != nil {
		progress := *job.Progress
		out.Progress = &progress
	}
	return &out
}

// CreateJob inserts a new pending job.
func (s *Store) CreateJob(ctx context.Context, job *core.ProcessingJob) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkOpen(); err != nil {
		return err
	}

	if job.ID == uuid.Nil {
		job.ID = uuid.New()
	}
	if job.Status == "" {
		job.Status = core.JobPending
	}
	if job.CreatedAt.IsZero() {
		job.CreatedAt = time.Now().UTC()
	}
	if _, exists := s.jobs[job.ID]; exists {
		return storage.ErrDuplicateKey
	}

	s.jobs[job.ID] = cloneJob(job)
	return nil
}

// GetJob retrieves a job by ID.
func (s *Store) GetJob(ctx context.Context, id uuid.UUID) (*core.ProcessingJob, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkOpen(); err != nil {
		return nil, err
	}

	job, ok := s.jobs[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return cloneJob(job), nil
}

// HasActiveJob reports whether the agency has a job in processing.
func (s *Store) HasActiveJob(ctx context.Context, agencyID uuid.UUID) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkOpen(); err != nil {
		return false, err
	}

	for _, job := range s.jobs {
		if job.AgencyID == agencyID && job.Status == core.JobProcessing {
			return true, nil
		}
	}
	return false, nil
}

// ClaimNextPending claims the oldest pending job for the agency. The mutex
// makes the select-and-transition atomic, mirroring SKIP LOCKED semantics.
func (s *Store) ClaimNextPending(ctx context.Context, agencyID uuid.UUID) (*core.ProcessingJob, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkOpen(); err != nil {
		return nil, err
	}

	var oldest *core.ProcessingJob
	for _, job := range s.jobs {
		if job.AgencyID != agencyID || job.Status != core.JobPending {
			continue
		}
		if oldest == nil || job.CreatedAt.Before(oldest.CreatedAt) {
			oldest = job
		}
	}
	if oldest == nil {
		return nil, storage.ErrNotFound
	}

	now := time.Now().UTC()
	oldest.Status = core.JobProcessing
	oldest.StartedAt = &now
	return cloneJob(oldest), nil
}

// ReapStaleJobs fails any job processing for longer than olderThan.
func (s *Store) ReapStaleJobs(ctx context.Context, olderThan time.Duration, message string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkOpen(); err != nil {
		return 0, err
	}

	cutoff := time.Now().UTC().Add(-olderThan)
	count := 0
	for _, job := range s.jobs {
		if job.Status != core.JobProcessing || job.StartedAt == nil || !job.StartedAt.Before(cutoff) {
			continue
		}
		now := time.Now().UTC()
		job.Status = core.JobFailed
		job.CompletedAt = &now
		job.ErrorMessage = message
		count++
	}
	return count, nil
}

// SetJobStatus transitions a job, maintaining the lifecycle timestamps.
func (s *Store) SetJobStatus(ctx context.Context, id uuid.UUID, status core.JobStatus, errorMessage string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkOpen(); err != nil {
		return err
	}

	job, ok := s.jobs[id]
	if !ok {
		return storage.ErrNotFound
	}

	now := time.Now().UTC()
	job.Status = status
	if errorMessage != "" {
		job.ErrorMessage = errorMessage
	}
	if status == core.JobProcessing && job.StartedAt == nil {
		job.StartedAt = &now
	}
	if status.Terminal() {
		job.CompletedAt = &now
	}
	return nil
}

// UpdateJobProgress overwrites the job's progress record in place.
func (s *Store) UpdateJobProgress(ctx context.Context, id uuid.UUID, progress *core.ProgressData) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkOpen(); err != nil {
		return err
	}

	job, ok := s.jobs[id]
	if !ok {
		return storage.ErrNotFound
	}

	copied := *progress
	job.Progress = &copied
	return nil
}

// CreateDocument inserts an uploaded document record.
func (s *Store) CreateDocument(ctx context.Context, doc *core.Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkOpen(); err != nil {
		return err
	}

	if doc.ID == uuid.Nil {
		doc.ID = uuid.New()
	}
	if doc.Status == "" {
		doc.Status = core.DocumentUploaded
	}
	if _, exists := s.documents[doc.ID]; exists {
		return storage.ErrDuplicateKey
	}

	copied := *doc
	copied.AITags = slices.Clone(doc.AITags)
	s.documents[doc.ID] = &copied
	return nil
}

// GetDocument retrieves a document by ID.
func (s *Store) GetDocument(ctx context.Context, id uuid.UUID) (*core.Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkOpen(); err != nil {
		return nil, err
	}

	doc, ok := s.documents[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	copied := *doc
	copied.AITags = slices.Clone(doc.AITags)
	return &copied, nil
}

// SetDocumentStatus transitions a document's lifecycle state.
func (s *Store) SetDocumentStatus(ctx context.Context, id uuid.UUID, status core.DocumentStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkOpen(); err != nil {
		return err
	}

	doc, ok := s.documents[id]
	if !ok {
		return storage.ErrNotFound
	}
	doc.Status = status
	return nil
}

// SetDocumentExtracted records the extraction output.
func (s *Store) SetDocumentExtracted(ctx context.Context, id uuid.UUID, rawText string, pageCount int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkOpen(); err != nil {
		return err
	}

	doc, ok := s.documents[id]
	if !ok {
		return storage.ErrNotFound
	}
	doc.RawText = rawText
	doc.PageCount = pageCount
	return nil
}

// SetDocumentTags records the advisory tagging output.
func (s *Store) SetDocumentTags(ctx context.Context, id uuid.UUID, documentType string, tags []string, summary string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkOpen(); err != nil {
		return err
	}

	doc, ok := s.documents[id]
	if !ok {
		return storage.ErrNotFound
	}
	doc.DocumentType = documentType
	doc.AITags = slices.Clone(tags)
	doc.AISummary = summary
	return nil
}

// InsertChunks writes all chunks for a document atomically.
func (s *Store) InsertChunks(ctx context.Context, chunks []*core.DocumentChunk) error {
	if len(chunks) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkOpen(); err != nil {
		return err
	}

	// Validate everything before mutating, so a bad chunk leaves no rows.
	for _, chunk := range chunks {
		if chunk.ID == uuid.Nil {
			chunk.ID = uuid.New()
		}
		if err := chunk.Validate(); err != nil {
			return err
		}
	}

	for _, chunk := range chunks {
		copied := *chunk
		copied.Embedding = slices.Clone(chunk.Embedding)
		s.chunks[chunk.DocumentID] = append(s.chunks[chunk.DocumentID], &copied)
	}
	for docID := range s.chunks {
		slices.SortFunc(s.chunks[docID], func(a, b *core.DocumentChunk) int {
			return a.ChunkIndex - b.ChunkIndex
		})
	}
	return nil
}

// DeleteChunks removes all chunks for a document.
func (s *Store) DeleteChunks(ctx context.Context, documentID uuid.UUID) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkOpen(); err != nil {
		return 0, err
	}

	count := len(s.chunks[documentID])
	delete(s.chunks, documentID)
	return count, nil
}

// CountChunks returns the number of chunks stored for a document.
func (s *Store) CountChunks(ctx context.Context, documentID uuid.UUID) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkOpen(); err != nil {
		return 0, err
	}
	return len(s.chunks[documentID]), nil
}

// ListChunks returns a document's chunks ordered by chunk index.
func (s *Store) ListChunks(ctx context.Context, documentID uuid.UUID) ([]*core.DocumentChunk, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkOpen(); err != nil {
		return nil, err
	}

	stored := s.chunks[documentID]
	out := make([]*core.DocumentChunk, len(stored))
	for i, chunk := range stored {
		copied := *chunk
		copied.Embedding = slices.Clone(chunk.Embedding)
		out[i] = &copied
	}
	return out, nil
}
