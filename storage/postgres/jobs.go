package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/coverdesk/docpipe/core"
	"github.com/coverdesk/docpipe/storage"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const jobColumns = `id, document_id, agency_id, status, started_at, completed_at, error_message, progress_data, created_at`

// scanJob reads one job row, decoding the embedded progress JSON.
func scanJob(row pgx.Row) (*core.ProcessingJob, error) {
	var job core.ProcessingJob
	var status string
	var progressRaw []byte

	err := row.Scan(&job.ID, &job.DocumentID, &job.AgencyID, &status,
		&job.StartedAt, &job.CompletedAt, &job.ErrorMessage, &progressRaw, &job.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("postgres: scan job: %w", err)
	}

	job.Status = core.JobStatus(status)
	if len(progressRaw) > 0 {
		var progress core.ProgressData
		if err := json.Unmarshal(progressRaw, &progress); err == nil {
			job.Progress = &progress
		}
	}
	return &job, nil
}

// CreateJob inserts a new pending job.
func (b *Backend) CreateJob(ctx context.Context, job *core.ProcessingJob) error {
	if job.ID == uuid.Nil {
		job.ID = uuid.New()
	}
	if job.Status == "" {
		job.Status = core.JobPending
	}
	if job.CreatedAt.IsZero() {
		job.CreatedAt = time.Now().UTC()
	}

	_, err := b.pool.Exec(ctx, `
		INSERT INTO processing_jobs (id, document_id, agency_id, status, error_message, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		job.ID, job.DocumentID, job.AgencyID, string(job.Status), job.ErrorMessage, job.CreatedAt)
	if err != nil {
		return fmt.Errorf("postgres: create job: %w", err)
	}
	return nil
}

// GetJob retrieves a job by ID.
func (b *Backend) GetJob(ctx context.Context, id uuid.UUID) (*core.ProcessingJob, error) {
	row := b.pool.QueryRow(ctx,
		`SELECT `+jobColumns+` FROM processing_jobs WHERE id = $1`, id)
	return scanJob(row)
}

// HasActiveJob reports whether the agency has a job in processing.
func (b *Backend) HasActiveJob(ctx context.Context, agencyID uuid.UUID) (bool, error) {
	var active bool
	err := b.pool.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM processing_jobs
			WHERE agency_id = $1 AND status = 'processing'
		)`, agencyID).Scan(&active)
	if err != nil {
		return false, fmt.Errorf("postgres: has active job: %w", err)
	}
	return active, nil
}

// ClaimNextPending claims the oldest pending job for the agency. SKIP LOCKED
// excludes rows a concurrent claimer is already holding, so two workers can
// never take the same job.
func (b *Backend) ClaimNextPending(ctx context.Context, agencyID uuid.UUID) (*core.ProcessingJob, error) {
	row := b.pool.QueryRow(ctx, `
		UPDATE processing_jobs
		SET status = 'processing', started_at = now()
		WHERE id = (
			SELECT id FROM processing_jobs
			WHERE agency_id = $1 AND status = 'pending'
			ORDER BY created_at
			LIMIT 1
			FOR UPDATE SKIP LOCKED
		)
		RETURNING `+jobColumns, agencyID)
	return scanJob(row)
}

// ReapStaleJobs fails any job that has been processing longer than olderThan.
func (b *Backend) ReapStaleJobs(ctx context.Context, olderThan time.Duration, message string) (int, error) {
	tag, err := b.pool.Exec(ctx, `
		UPDATE processing_jobs
		SET status = 'failed', completed_at = now(), error_message = $2
		WHERE status = 'processing'
		  AND started_at < now() - make_interval(secs => $1)`,
		olderThan.Seconds(), message)
	if err != nil {
		return 0, fmt.Errorf("postgres: reap stale jobs: %w", err)
	}

	count := int(tag.RowsAffected())
	if count > 0 {
		b.logger.Warn("reaped stale jobs", "count", count)
	}
	return count, nil
}

// SetJobStatus transitions a job, maintaining the lifecycle timestamps.
func (b *Backend) SetJobStatus(ctx context.Context, id uuid.UUID, status core.JobStatus, errorMessage string) error {
	tag, err := b.pool.Exec(ctx, `
		UPDATE processing_jobs SET
			status = $2,
			error_message = CASE WHEN $3 <> '' THEN $3 ELSE error_message END,
			started_at = CASE WHEN $2 = 'processing' AND started_at IS NULL THEN now() ELSE started_at END,
			completed_at = CASE WHEN $2 IN ('completed', 'failed') THEN now() ELSE completed_at END
		WHERE id = $1`,
		id, string(status), errorMessage)
	if err != nil {
		return fmt.Errorf("postgres: set job status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// UpdateJobProgress overwrites the job's progress record in place.
func (b *Backend) UpdateJobProgress(ctx context.Context, id uuid.UUID, progress *core.ProgressData) error {
	raw, err := json.Marshal(progress)
	if err != nil {
		return fmt.Errorf("postgres: encode progress: %w", err)
	}

	tag, err := b.pool.Exec(ctx,
		`UPDATE processing_jobs SET progress_data = $2 WHERE id = $1`, id, raw)
	if err != nil {
		return fmt.Errorf("postgres: update progress: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}
