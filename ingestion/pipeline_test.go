package ingestion

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/coverdesk/docpipe/ai"
	"github.com/coverdesk/docpipe/ai/mock"
	"github.com/coverdesk/docpipe/blob"
	"github.com/coverdesk/docpipe/core"
	"github.com/coverdesk/docpipe/queue"
	"github.com/coverdesk/docpipe/storage/memory"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	store      *memory.Store
	queue      *queue.Manager
	downloader *blob.MockDownloader
	provider   *mock.MockProvider
	pipeline   *Pipeline
}

func newFixture(t *testing.T, opts ...Option) *fixture {
	t.Helper()

	store := memory.NewStore()
	manager := queue.NewManager(store)
	downloader := blob.NewMockDownloader()
	provider := mock.NewMockProvider()

	pipeline, err := NewPipeline(store, manager, downloader, provider, opts...)
	require.NoError(t, err)
	pipeline.extractor.retryDelay = time.Millisecond
	pipeline.embedDelay = time.Millisecond
	t.Cleanup(pipeline.Release)

	return &fixture{
		store:      store,
		queue:      manager,
		downloader: downloader,
		provider:   provider,
		pipeline:   pipeline,
	}
}

// upload seeds a document, its file bytes, and a pending job.
func (f *fixture) upload(t *testing.T, agencyID uuid.UUID, path, content string) *core.Document {
	t.Helper()
	ctx := context.Background()

	doc := &core.Document{AgencyID: agencyID, StoragePath: path}
	require.NoError(t, f.store.CreateDocument(ctx, doc))
	f.downloader.Files[path] = []byte(content)

	_, err := f.queue.Enqueue(ctx, doc.ID, agencyID)
	require.NoError(t, err)
	return doc
}

func TestTriggerHappyPath(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	agencyID := uuid.New()

	doc := f.upload(t, agencyID, "agency/policy.pdf", "First page text.\fSecond page text.")

	result := f.pipeline.Trigger(ctx, TriggerRequest{
		DocumentID: doc.ID, StoragePath: doc.StoragePath, AgencyID: agencyID,
	})
	require.True(t, result.Success, result.Error)
	assert.Equal(t, 2, result.PageCount)
	assert.Equal(t, 2, result.ChunkCount)

	got, err := f.store.GetDocument(ctx, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, core.DocumentReady, got.Status)
	assert.Equal(t, 2, got.PageCount)
	assert.Contains(t, got.RawText, "First page text.")
	// Tagging ran with the default mock.
	assert.Equal(t, "other", got.DocumentType)

	chunks, err := f.store.ListChunks(ctx, doc.ID)
	require.NoError(t, err)
	require.Len(t, chunks, 2)
	for i, chunk := range chunks {
		assert.Equal(t, i, chunk.ChunkIndex)
		assert.Equal(t, doc.ID, chunk.DocumentID)
		assert.Equal(t, agencyID, chunk.AgencyID)
		assert.NotEmpty(t, chunk.Embedding)
		assert.Equal(t, "mock-embedder-v1", chunk.EmbeddingVersion)
	}
	assert.Equal(t, 1, chunks[0].PageNumber)
	assert.Equal(t, 2, chunks[1].PageNumber)
}

func TestTriggerDefersWhenAgencyBusy(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	agencyID := uuid.New()

	doc := f.upload(t, agencyID, "agency/a.pdf", "text")

	// Claim the job directly, simulating a concurrently running worker.
	claimed, err := f.queue.NextPendingJob(ctx, agencyID)
	require.NoError(t, err)
	require.NotNil(t, claimed)

	result := f.pipeline.Trigger(ctx, TriggerRequest{
		DocumentID: doc.ID, StoragePath: doc.StoragePath, AgencyID: agencyID,
	})
	assert.True(t, result.Success)
	assert.True(t, result.Skipped)
	assert.Zero(t, result.ChunkCount)
	assert.Equal(t, 0, f.provider.MockParser.CallCount())
}

func TestTriggerEmptyQueue(t *testing.T) {
	f := newFixture(t)

	result := f.pipeline.Trigger(context.Background(), TriggerRequest{AgencyID: uuid.New()})
	assert.True(t, result.Success)
	assert.True(t, result.Skipped)
	assert.Zero(t, result.ChunkCount)
}

func TestTriggerRunsOldestJobRegardlessOfRequest(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	agencyID := uuid.New()

	first := f.upload(t, agencyID, "agency/first.pdf", "first document")
	time.Sleep(2 * time.Millisecond)
	second := f.upload(t, agencyID, "agency/second.pdf", "second document")

	// Trigger names the second document; FIFO still runs the first.
	result := f.pipeline.Trigger(ctx, TriggerRequest{
		DocumentID: second.ID, StoragePath: second.StoragePath, AgencyID: agencyID,
	})
	require.True(t, result.Success)

	// Both jobs complete: the first synchronously, the second via the
	// asynchronous chain trigger.
	require.Eventually(t, func() bool {
		a, err := f.store.GetDocument(ctx, first.ID)
		if err != nil || a.Status != core.DocumentReady {
			return false
		}
		b, err := f.store.GetDocument(ctx, second.ID)
		return err == nil && b.Status == core.DocumentReady
	}, 5*time.Second, 10*time.Millisecond)
}

func TestParseFailureMarksDocumentAndJobFailed(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	agencyID := uuid.New()

	f.provider.MockParser.ParseFunc = func(ctx context.Context, file []byte, filename string, call mock.ParseCall) (*ai.ParseResult, error) {
		return nil, errors.New("invalid mediabox")
	}
	doc := f.upload(t, agencyID, "agency/bad.pdf", "broken")

	result := f.pipeline.Trigger(ctx, TriggerRequest{
		DocumentID: doc.ID, StoragePath: doc.StoragePath, AgencyID: agencyID,
	})
	require.False(t, result.Success)
	assert.Equal(t, core.UserMessage(core.FailureMalformedInput), result.Error)

	got, err := f.store.GetDocument(ctx, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, core.DocumentFailed, got.Status)

	count, err := f.store.CountChunks(ctx, doc.ID)
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestEmbeddingFailureLeavesNoChunks(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	agencyID := uuid.New()

	f.provider.MockEmbedder.EmbedBatchFunc = func(ctx context.Context, texts []string) ([]ai.IndexedEmbedding, error) {
		return nil, errors.New("embedding service unavailable")
	}
	doc := f.upload(t, agencyID, "agency/doc.pdf", "some document text")

	result := f.pipeline.Trigger(ctx, TriggerRequest{
		DocumentID: doc.ID, StoragePath: doc.StoragePath, AgencyID: agencyID,
	})
	require.False(t, result.Success)
	assert.NotEmpty(t, result.Error)
	assert.Equal(t, 3, f.provider.MockEmbedder.CallCount())

	count, err := f.store.CountChunks(ctx, doc.ID)
	require.NoError(t, err)
	assert.Zero(t, count)

	got, err := f.store.GetDocument(ctx, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, core.DocumentFailed, got.Status)
}

func TestDownloadFailure(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	agencyID := uuid.New()

	doc := &core.Document{AgencyID: agencyID, StoragePath: "agency/missing.pdf"}
	require.NoError(t, f.store.CreateDocument(ctx, doc))
	job, err := f.queue.Enqueue(ctx, doc.ID, agencyID)
	require.NoError(t, err)

	result := f.pipeline.Trigger(ctx, TriggerRequest{
		DocumentID: doc.ID, StoragePath: doc.StoragePath, AgencyID: agencyID,
	})
	require.False(t, result.Success)

	failed, err := f.queue.GetJob(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, core.JobFailed, failed.Status)
	assert.NotEmpty(t, failed.ErrorMessage)
	require.NotNil(t, failed.CompletedAt)
}

func TestFailureDoesNotBlockNextJob(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	agencyID := uuid.New()

	bad := f.upload(t, agencyID, "agency/bad.pdf", "bad")
	f.downloader.Files["agency/bad.pdf"] = nil
	delete(f.downloader.Files, "agency/bad.pdf")
	time.Sleep(2 * time.Millisecond)
	good := f.upload(t, agencyID, "agency/good.pdf", "good document text")

	result := f.pipeline.Trigger(ctx, TriggerRequest{
		DocumentID: bad.ID, StoragePath: bad.StoragePath, AgencyID: agencyID,
	})
	require.False(t, result.Success)

	// The chain trigger still runs the good document.
	require.Eventually(t, func() bool {
		got, err := f.store.GetDocument(ctx, good.ID)
		return err == nil && got.Status == core.DocumentReady
	}, 5*time.Second, 10*time.Millisecond)
}

func TestTaggingFailureIsAdvisory(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	agencyID := uuid.New()

	f.provider.MockTagger.TagDocumentFunc = func(ctx context.Context, text string) (*ai.TagResult, error) {
		return nil, errors.New("tagging model offline")
	}
	doc := f.upload(t, agencyID, "agency/doc.pdf", "policy text")

	result := f.pipeline.Trigger(ctx, TriggerRequest{
		DocumentID: doc.ID, StoragePath: doc.StoragePath, AgencyID: agencyID,
	})
	require.True(t, result.Success, result.Error)

	got, err := f.store.GetDocument(ctx, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, core.DocumentReady, got.Status)
	assert.Empty(t, got.DocumentType)
}

func TestTaggerDisabledSkipsStage(t *testing.T) {
	f := newFixture(t)
	f.provider.DisableTagger = true
	ctx := context.Background()
	agencyID := uuid.New()

	doc := f.upload(t, agencyID, "agency/doc.pdf", "policy text")
	result := f.pipeline.Trigger(ctx, TriggerRequest{
		DocumentID: doc.ID, StoragePath: doc.StoragePath, AgencyID: agencyID,
	})
	require.True(t, result.Success)
	assert.Equal(t, 0, f.provider.MockTagger.CallCount())
}

func TestRunBudgetExceeded(t *testing.T) {
	f := newFixture(t, WithRunBudget(30*time.Millisecond))
	ctx := context.Background()
	agencyID := uuid.New()

	f.provider.MockParser.ParseFunc = func(ctx context.Context, file []byte, filename string, call mock.ParseCall) (*ai.ParseResult, error) {
		time.Sleep(50 * time.Millisecond)
		markdown := "slow but successful"
		return &ai.ParseResult{Markdown: markdown, PageMarkers: ai.DerivePageMarkers(markdown), PageCount: 1}, nil
	}
	doc := f.upload(t, agencyID, "agency/slow.pdf", "slow")

	result := f.pipeline.Trigger(ctx, TriggerRequest{
		DocumentID: doc.ID, StoragePath: doc.StoragePath, AgencyID: agencyID,
	})
	require.False(t, result.Success)
	assert.Equal(t, core.UserMessage(core.FailureServiceTimeout), result.Error)
}

func TestProgressRecordedThroughRun(t *testing.T) {
	notifier := &recordingNotifier{}
	f := newFixture(t, WithNotifier(notifier))
	ctx := context.Background()
	agencyID := uuid.New()

	doc := f.upload(t, agencyID, "agency/doc.pdf", "document body text")
	result := f.pipeline.Trigger(ctx, TriggerRequest{
		DocumentID: doc.ID, StoragePath: doc.StoragePath, AgencyID: agencyID,
	})
	require.True(t, result.Success)

	updates := notifier.all()
	require.NotEmpty(t, updates)

	seen := make(map[core.Stage]bool)
	for _, update := range updates {
		seen[update.Stage] = true
	}
	for _, stage := range []core.Stage{
		core.StageDownloading, core.StageParsing, core.StageChunking,
		core.StageTagging, core.StageEmbedding, core.StagePersisting, core.StageCompleted,
	} {
		assert.True(t, seen[stage], string(stage))
	}

	last := updates[len(updates)-1]
	assert.Equal(t, core.StageCompleted, last.Stage)
	assert.Equal(t, 100.0, last.TotalPercent)
}
