// Copyright 2025 Coverdesk
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package ingestion

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/coverdesk/docpipe/ai"
	"github.com/coverdesk/docpipe/blob"
	"github.com/coverdesk/docpipe/chunker"
	"github.com/coverdesk/docpipe/core"
	"github.com/coverdesk/docpipe/queue"
	"github.com/coverdesk/docpipe/storage"
	"github.com/google/uuid"
	"github.com/panjf2000/ants/v2"
)

const (
	// defaultRunBudget is the global wall-clock budget for one pipeline
	// run, leaving margin for the failure handler before any outer
	// platform timeout.
	defaultRunBudget = 8 * time.Minute

	// maxTaggingChars caps the text sent to the tagging model.
	maxTaggingChars = 8000

	// failureHandlerTimeout bounds the bookkeeping writes after a failed
	// run; they must not inherit the already-expired run context.
	failureHandlerTimeout = 15 * time.Second
)

// Pipeline drives documents through download, extraction, chunking,
// tagging, embedding and persistence, one agency job at a time.
type Pipeline struct {
	store      storage.Store
	queue      *queue.Manager
	downloader blob.Downloader
	provider   ai.Provider
	chunker    *chunker.Chunker
	extractor  *extractor
	notifier   Notifier
	runBudget  time.Duration
	embedPool  *ants.Pool
	embedDelay time.Duration
	logger     *slog.Logger
}

// Option configures a Pipeline.
type Option func(*Pipeline) error

// WithRunBudget overrides the global wall-clock budget per run.
func WithRunBudget(budget time.Duration) Option {
	return func(p *Pipeline) error {
		if budget > 0 {
			p.runBudget = budget
		}
		return nil
	}
}

// WithNotifier broadcasts every progress write to the given notifier.
func WithNotifier(notifier Notifier) Option {
	return func(p *Pipeline) error {
		p.notifier = notifier
		return nil
	}
}

// WithChunker replaces the default chunker configuration.
func WithChunker(c *chunker.Chunker) Option {
	return func(p *Pipeline) error {
		if c != nil {
			p.chunker = c
		}
		return nil
	}
}

// WithParseTimeout overrides the per-call extraction timeout.
func WithParseTimeout(timeout time.Duration) Option {
	return func(p *Pipeline) error {
		p.extractor = newExtractor(p.provider.Parser(), timeout)
		return nil
	}
}

// WithEmbedConcurrency pipelines embedding batches through a worker pool of
// the given size. The default is fully sequential batches, which bounds
// exposure to the embedding service's rate limits.
func WithEmbedConcurrency(size int) Option {
	return func(p *Pipeline) error {
		if size <= 1 {
			return nil
		}
		if p.embedPool != nil {
			p.embedPool.Release()
		}
		pool, err := ants.NewPool(size)
		if err != nil {
			return err
		}
		p.embedPool = pool
		return nil
	}
}

// NewPipeline creates the pipeline orchestrator.
func NewPipeline(
	store storage.Store,
	queueManager *queue.Manager,
	downloader blob.Downloader,
	provider ai.Provider,
	opts ...Option,
) (*Pipeline, error) {
	if store == nil {
		return nil, ErrStoreRequired
	}
	if queueManager == nil {
		return nil, ErrQueueRequired
	}
	if downloader == nil {
		return nil, ErrDownloaderRequired
	}
	if provider == nil {
		return nil, ErrProviderRequired
	}

	p := &Pipeline{
		store:      store,
		queue:      queueManager,
		downloader: downloader,
		provider:   provider,
		chunker:    chunker.New(),
		extractor:  newExtractor(provider.Parser(), defaultParseTimeout),
		runBudget:  defaultRunBudget,
		embedDelay: embedBaseDelay,
		logger:     slog.Default().With("component", "pipeline"),
	}

	for _, opt := range opts {
		if err := opt(p); err != nil {
			p.Release()
			return nil, err
		}
	}
	return p, nil
}

// Release frees the embedding worker pool, if one was configured.
// The pipeline should not be used after calling Release.
func (p *Pipeline) Release() {
	if p.embedPool != nil {
		p.embedPool.Release()
	}
}

// TriggerRequest identifies the upload event or queue poke that invoked
// the pipeline. The agency's oldest pending job runs regardless of which
// document triggered the call.
type TriggerRequest struct {
	DocumentID  uuid.UUID `json:"documentId"`
	StoragePath string    `json:"storagePath"`
	AgencyID    uuid.UUID `json:"agencyId"`
}

// TriggerResult is the response contract for a trigger call.
type TriggerResult struct {
	Success    bool   `json:"success"`
	Skipped    bool   `json:"skipped,omitempty"`
	ChunkCount int    `json:"chunkCount,omitempty"`
	PageCount  int    `json:"pageCount,omitempty"`
	Error      string `json:"error,omitempty"`
}

// Trigger runs the agency's oldest pending job, if the agency has no job
// already processing. When another job is active the call returns
// immediately; the active job will chain to the next one on completion.
func (p *Pipeline) Trigger(ctx context.Context, req TriggerRequest) *TriggerResult {
	if p.queue.HasActiveJob(ctx, req.AgencyID) {
		p.logger.Info("agency already has an active job, deferring", "agency_id", req.AgencyID)
		return &TriggerResult{Success: true, Skipped: true}
	}

	job, err := p.queue.NextPendingJob(ctx, req.AgencyID)
	if err != nil {
		p.logger.Error("claiming next job failed", "agency_id", req.AgencyID, "err", err)
		return &TriggerResult{Success: false, Error: core.UserMessage(core.FailureUnknown)}
	}
	if job == nil {
		return &TriggerResult{Success: true, Skipped: true}
	}

	chunkCount, pageCount, err := p.run(ctx, job)
	if err != nil {
		failure := p.handleFailure(ctx, job, err)
		p.triggerNext(job.AgencyID)
		return &TriggerResult{Success: false, Error: failure.Message}
	}

	p.triggerNext(job.AgencyID)
	return &TriggerResult{Success: true, ChunkCount: chunkCount, PageCount: pageCount}
}

// run executes all pipeline stages for one claimed job.
func (p *Pipeline) run(ctx context.Context, job *core.ProcessingJob) (chunkCount, pageCount int, err error) {
	started := time.Now()
	logger := p.logger.With("job_id", job.ID, "document_id", job.DocumentID)
	logger.Info("starting pipeline run")

	runCtx, cancel := context.WithTimeout(ctx, p.runBudget)
	defer cancel()

	reporter := newProgressReporter(p.store, p.notifier, job.ID)

	doc, err := p.store.GetDocument(runCtx, job.DocumentID)
	if err != nil {
		return 0, 0, fmt.Errorf("loading document: %w", err)
	}
	if err := p.store.SetDocumentStatus(runCtx, doc.ID, core.DocumentProcessing); err != nil {
		return 0, 0, fmt.Errorf("marking document processing: %w", err)
	}

	// Downloading.
	reporter.stageStart(runCtx, core.StageDownloading)
	file, err := p.downloader.Download(runCtx, doc.StoragePath)
	if err != nil {
		return 0, 0, core.AsFailure(err)
	}
	reporter.setFileSize(len(file))
	if err := p.checkBudget(started); err != nil {
		return 0, 0, err
	}

	// Parsing.
	reporter.stageStart(runCtx, core.StageParsing)
	parsed, err := p.extractor.extract(runCtx, file, doc.StoragePath)
	if err != nil {
		return 0, 0, err
	}
	pageCount = parsed.PageCount
	if err := p.store.SetDocumentExtracted(runCtx, doc.ID, parsed.Markdown, parsed.PageCount); err != nil {
		return 0, 0, fmt.Errorf("recording extraction: %w", err)
	}
	if err := p.checkBudget(started); err != nil {
		return 0, 0, err
	}

	// Chunking.
	reporter.stageStart(runCtx, core.StageChunking)
	pages := make([]core.Page, len(parsed.PageMarkers))
	for i, marker := range parsed.PageMarkers {
		pages[i] = core.Page{Number: marker.PageNumber, Content: marker.PageText(parsed.Markdown)}
	}
	chunks := p.chunker.ChunkPages(pages)
	for _, chunk := range chunks {
		chunk.DocumentID = doc.ID
		chunk.AgencyID = doc.AgencyID
	}
	logger.Info("chunked document", "pages", len(pages), "chunks", len(chunks))
	if err := p.checkBudget(started); err != nil {
		return 0, 0, err
	}

	// Tagging is advisory: a failure is logged and the run continues.
	if tagger := p.provider.Tagger(); tagger != nil {
		reporter.stageStart(runCtx, core.StageTagging)
		p.tagDocument(runCtx, tagger, doc.ID, parsed.Markdown, logger)
		if err := p.checkBudget(started); err != nil {
			return 0, 0, err
		}
	}

	// Embedding.
	reporter.stageStart(runCtx, core.StageEmbedding)
	embedder := newBatchEmbedder(p.provider.Embedder(), p.embedPool)
	embedder.baseDelay = p.embedDelay
	err = embedder.embedChunks(runCtx, chunks, func(done, total int) {
		reporter.stageProgress(runCtx, core.StageEmbedding, float64(done)/float64(total)*100)
	})
	if err != nil {
		return 0, 0, core.AsFailure(err)
	}
	if err := p.checkBudget(started); err != nil {
		return 0, 0, err
	}

	// Persisting. Purge any rows a previous failed run left behind, then
	// insert everything in one logical bulk operation.
	reporter.stageStart(runCtx, core.StagePersisting)
	if purged, err := p.store.DeleteChunks(runCtx, doc.ID); err != nil {
		return 0, 0, fmt.Errorf("purging stale chunks: %w", err)
	} else if purged > 0 {
		logger.Warn("purged chunks from a previous run", "count", purged)
	}
	if err := p.store.InsertChunks(runCtx, chunks); err != nil {
		return 0, 0, fmt.Errorf("persisting chunks: %w", err)
	}

	if err := p.store.SetDocumentStatus(runCtx, doc.ID, core.DocumentReady); err != nil {
		return 0, 0, fmt.Errorf("marking document ready: %w", err)
	}
	if err := p.queue.SetStatus(runCtx, job.ID, core.JobCompleted, ""); err != nil {
		return 0, 0, fmt.Errorf("marking job completed: %w", err)
	}
	reporter.completed(runCtx)

	logger.Info("pipeline run completed",
		"chunks", len(chunks), "pages", pageCount, "elapsed", time.Since(started))
	return len(chunks), pageCount, nil
}

// tagDocument runs the optional tagging stage.
func (p *Pipeline) tagDocument(ctx context.Context, tagger ai.Tagger, docID uuid.UUID, markdown string, logger *slog.Logger) {
	text := markdown
	if len(text) > maxTaggingChars {
		text = text[:maxTaggingChars]
	}

	result, err := tagger.TagDocument(ctx, text)
	if err != nil {
		logger.Warn("tagging failed, continuing without tags", "err", err)
		return
	}
	if err := p.store.SetDocumentTags(ctx, docID, result.DocumentType, result.Tags, result.Summary); err != nil {
		logger.Warn("storing tags failed", "err", err)
	}
}

// checkBudget aborts the run once the global wall-clock budget is spent.
func (p *Pipeline) checkBudget(started time.Time) error {
	if time.Since(started) > p.runBudget {
		return core.NewFailure(core.FailureServiceTimeout, ErrRunBudgetExceeded)
	}
	return nil
}

// handleFailure is the single failure path for every stage: it records a
// sanitized message on both the document and the job, purges any partial
// chunk rows, and logs the full internal error. It runs on a fresh context
// because the run context is typically already expired or cancelled.
func (p *Pipeline) handleFailure(ctx context.Context, job *core.ProcessingJob, runErr error) *core.Failure {
	failure := core.AsFailure(runErr)
	p.logger.Error("pipeline run failed",
		"job_id", job.ID, "document_id", job.DocumentID,
		"category", failure.Category, "err", runErr)

	cleanupCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), failureHandlerTimeout)
	defer cancel()

	reporter := newProgressReporter(p.store, p.notifier, job.ID)
	reporter.failed(cleanupCtx)

	// A failed job's chunk rows are garbage, never a valid partial result.
	if _, err := p.store.DeleteChunks(cleanupCtx, job.DocumentID); err != nil {
		p.logger.Error("purging chunks after failure", "document_id", job.DocumentID, "err", err)
	}
	if err := p.store.SetDocumentStatus(cleanupCtx, job.DocumentID, core.DocumentFailed); err != nil {
		p.logger.Error("marking document failed", "document_id", job.DocumentID, "err", err)
	}
	if err := p.queue.SetStatus(cleanupCtx, job.ID, core.JobFailed, failure.Message); err != nil {
		p.logger.Error("marking job failed", "job_id", job.ID, "err", err)
	}
	return failure
}

// triggerNext asynchronously re-invokes the pipeline for the agency's next
// pending job, forming a chain. Fire-and-forget: a trigger failure is
// logged and the job stays pending for the next upload or sweep to pick up.
func (p *Pipeline) triggerNext(agencyID uuid.UUID) {
	go func() {
		result := p.Trigger(context.Background(), TriggerRequest{AgencyID: agencyID})
		if !result.Success {
			p.logger.Error("chained trigger failed", "agency_id", agencyID, "error", result.Error)
		}
	}()
}
