package memory

import (
	"context"
	"testing"
	"time"

	"github.com/coverdesk/docpipe/core"
	"github.com/coverdesk/docpipe/storage"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestJob(agencyID uuid.UUID, createdAt time.Time) *core.ProcessingJob {
	return &core.ProcessingJob{
		ID:         uuid.New(),
		DocumentID: uuid.New(),
		AgencyID:   agencyID,
		Status:     core.JobPending,
		CreatedAt:  createdAt,
	}
}

func TestClaimNextPendingFIFO(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	agencyID := uuid.New()

	base := time.Now().UTC().Add(-time.Minute)
	first := newTestJob(agencyID, base)
	second := newTestJob(agencyID, base.Add(time.Second))
	third := newTestJob(agencyID, base.Add(2*time.Second))

	// Insert out of order; claim order must follow created_at.
	require.NoError(t, store.CreateJob(ctx, second))
	require.NoError(t, store.CreateJob(ctx, third))
	require.NoError(t, store.CreateJob(ctx, first))

	for _, want := range []*core.ProcessingJob{first, second, third} {
		claimed, err := store.ClaimNextPending(ctx, agencyID)
		require.NoError(t, err)
		assert.Equal(t, want.ID, claimed.ID)
		assert.Equal(t, core.JobProcessing, claimed.Status)
		require.NotNil(t, claimed.StartedAt)
	}

	_, err := store.ClaimNextPending(ctx, agencyID)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestClaimNextPendingScopedToAgency(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	agencyA := uuid.New()
	agencyB := uuid.New()

	jobA := newTestJob(agencyA, time.Now().UTC())
	require.NoError(t, store.CreateJob(ctx, jobA))

	_, err := store.ClaimNextPending(ctx, agencyB)
	assert.ErrorIs(t, err, storage.ErrNotFound)

	claimed, err := store.ClaimNextPending(ctx, agencyA)
	require.NoError(t, err)
	assert.Equal(t, jobA.ID, claimed.ID)
}

func TestHasActiveJob(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	agencyID := uuid.New()

	active, err := store.HasActiveJob(ctx, agencyID)
	require.NoError(t, err)
	assert.False(t, active)

	job := newTestJob(agencyID, time.Now().UTC())
	require.NoError(t, store.CreateJob(ctx, job))

	// Pending jobs do not count as active.
	active, err = store.HasActiveJob(ctx, agencyID)
	require.NoError(t, err)
	assert.False(t, active)

	_, err = store.ClaimNextPending(ctx, agencyID)
	require.NoError(t, err)

	active, err = store.HasActiveJob(ctx, agencyID)
	require.NoError(t, err)
	assert.True(t, active)

	require.NoError(t, store.SetJobStatus(ctx, job.ID, core.JobCompleted, ""))

	active, err = store.HasActiveJob(ctx, agencyID)
	require.NoError(t, err)
	assert.False(t, active)
}

func TestReapStaleJobs(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	agencyID := uuid.New()

	stale := newTestJob(agencyID, time.Now().UTC().Add(-time.Hour))
	fresh := newTestJob(agencyID, time.Now().UTC())
	require.NoError(t, store.CreateJob(ctx, stale))
	require.NoError(t, store.CreateJob(ctx, fresh))

	claimed, err := store.ClaimNextPending(ctx, agencyID)
	require.NoError(t, err)
	require.Equal(t, stale.ID, claimed.ID)

	// Backdate the claim so it is older than the reap window.
	store.mu.Lock()
	past := time.Now().UTC().Add(-20 * time.Minute)
	store.jobs[stale.ID].StartedAt = &past
	store.mu.Unlock()

	count, err := store.ReapStaleJobs(ctx, 10*time.Minute, "Processing timed out. Please try again.")
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	reaped, err := store.GetJob(ctx, stale.ID)
	require.NoError(t, err)
	assert.Equal(t, core.JobFailed, reaped.Status)
	assert.Equal(t, "Processing timed out. Please try again.", reaped.ErrorMessage)
	require.NotNil(t, reaped.CompletedAt)

	// The fresh job is untouched and still claimable.
	next, err := store.ClaimNextPending(ctx, agencyID)
	require.NoError(t, err)
	assert.Equal(t, fresh.ID, next.ID)
}

func TestSetJobStatusTimestamps(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	job := newTestJob(uuid.New(), time.Now().UTC())
	require.NoError(t, store.CreateJob(ctx, job))

	require.NoError(t, store.SetJobStatus(ctx, job.ID, core.JobProcessing, ""))
	got, err := store.GetJob(ctx, job.ID)
	require.NoError(t, err)
	require.NotNil(t, got.StartedAt)
	assert.Nil(t, got.CompletedAt)

	require.NoError(t, store.SetJobStatus(ctx, job.ID, core.JobFailed, "The document could not be read."))
	got, err = store.GetJob(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, core.JobFailed, got.Status)
	assert.Equal(t, "The document could not be read.", got.ErrorMessage)
	require.NotNil(t, got.CompletedAt)
}

func TestUpdateJobProgressIsolation(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	job := newTestJob(uuid.New(), time.Now().UTC())
	require.NoError(t, store.CreateJob(ctx, job))

	progress := &core.ProgressData{Stage: core.StageParsing, StagePercent: 50, TotalPercent: 32.5, UpdatedAt: time.Now().UTC()}
	require.NoError(t, store.UpdateJobProgress(ctx, job.ID, progress))

	// Mutating the caller's copy must not leak into the store.
	progress.TotalPercent = 99

	got, err := store.GetJob(ctx, job.ID)
	require.NoError(t, err)
	require.NotNil(t, got.Progress)
	assert.Equal(t, 32.5, got.Progress.TotalPercent)
}

func TestChunkLifecycle(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	docID := uuid.New()
	agencyID := uuid.New()

	chunks := []*core.DocumentChunk{
		{DocumentID: docID, AgencyID: agencyID, Content: "second", ChunkIndex: 1, ChunkType: core.ChunkText},
		{DocumentID: docID, AgencyID: agencyID, Content: "first", ChunkIndex: 0, ChunkType: core.ChunkText, Embedding: []float32{0.1, 0.2}},
	}
	require.NoError(t, store.InsertChunks(ctx, chunks))

	count, err := store.CountChunks(ctx, docID)
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	listed, err := store.ListChunks(ctx, docID)
	require.NoError(t, err)
	require.Len(t, listed, 2)
	assert.Equal(t, "first", listed[0].Content)
	assert.Equal(t, "second", listed[1].Content)
	assert.Equal(t, []float32{0.1, 0.2}, listed[0].Embedding)

	deleted, err := store.DeleteChunks(ctx, docID)
	require.NoError(t, err)
	assert.Equal(t, 2, deleted)

	count, err = store.CountChunks(ctx, docID)
	require.NoError(t, err)
	assert.Equal(t, 0, count)
}

func TestInsertChunksRejectsInvalid(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	docID := uuid.New()

	chunks := []*core.DocumentChunk{
		{DocumentID: docID, AgencyID: uuid.New(), Content: "ok", ChunkIndex: 0, ChunkType: core.ChunkText},
		{DocumentID: docID, AgencyID: uuid.New(), Content: "", ChunkIndex: 1, ChunkType: core.ChunkText},
	}
	err := store.InsertChunks(ctx, chunks)
	require.Error(t, err)

	// All-or-nothing: the valid chunk must not have been written.
	count, err := store.CountChunks(ctx, docID)
	require.NoError(t, err)
	assert.Equal(t, 0, count)
}

func TestDocumentLifecycle(t *testing.T) {
	ctx := context.Background()
	store := NewStore()

	doc := &core.Document{AgencyID: uuid.New(), StoragePath: "agency/doc.pdf"}
	require.NoError(t, store.CreateDocument(ctx, doc))

	got, err := store.GetDocument(ctx, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, core.DocumentUploaded, got.Status)

	require.NoError(t, store.SetDocumentExtracted(ctx, doc.ID, "page one\ftwo", 2))
	require.NoError(t, store.SetDocumentTags(ctx, doc.ID, "policy", []string{"auto", "commercial"}, "An auto policy."))
	require.NoError(t, store.SetDocumentStatus(ctx, doc.ID, core.DocumentReady))

	got, err = store.GetDocument(ctx, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, core.DocumentReady, got.Status)
	assert.Equal(t, 2, got.PageCount)
	assert.Equal(t, "policy", got.DocumentType)
	assert.Equal(t, []string{"auto", "commercial"}, got.AITags)
}

func TestClosedStore(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	require.NoError(t, store.Close())

	err := store.CreateJob(ctx, newTestJob(uuid.New(), time.Now().UTC()))
	assert.ErrorIs(t, err, storage.ErrStorageClosed)

	_, err = store.ClaimNextPending(ctx, uuid.New())
	assert.ErrorIs(t, err, storage.ErrStorageClosed)
}
