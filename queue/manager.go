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

// Package queue schedules document processing jobs. Each agency has a FIFO
// queue with at most one job processing at a time; mutual exclusion comes
// entirely from the store's atomic claim primitive, with no external lock
// service.
package queue

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/coverdesk/docpipe/core"
	"github.com/coverdesk/docpipe/storage"
	"github.com/google/uuid"
)

const (
	// defaultStalenessWindow is how long a job may sit in processing
	// before the reaper assumes its worker crashed.
	defaultStalenessWindow = 10 * time.Minute

	// staleJobMessage is the user-facing message recorded on reaped jobs.
	staleJobMessage = "Processing timed out. Please try uploading the document again."
)

// Manager coordinates job scheduling on top of the job repository.
type Manager struct {
	jobs            storage.JobRepository
	stalenessWindow time.Duration
	logger          *slog.Logger
}

// Option configures a Manager.
type Option func(*Manager)

// WithStalenessWindow overrides how long a processing job may run before
// being reaped.
func WithStalenessWindow(window time.Duration) Option {
	return func(m *Manager) { m.stalenessWindow = window }
}

// NewManager creates a queue manager backed by the given job repository.
func NewManager(jobs storage.JobRepository, opts ...Option) *Manager {
	m := &Manager{
		jobs:            jobs,
		stalenessWindow: defaultStalenessWindow,
		logger:          slog.Default().With("component", "queue"),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Enqueue creates a pending job for the document.
func (m *Manager) Enqueue(ctx context.Context, documentID, agencyID uuid.UUID) (*core.ProcessingJob, error) {
	job := &core.ProcessingJob{
		DocumentID: documentID,
		AgencyID:   agencyID,
		Status:     core.JobPending,
		CreatedAt:  time.Now().UTC(),
	}
	if err := m.jobs.CreateJob(ctx, job); err != nil {
		return nil, err
	}
	m.logger.Info("enqueued job", "job_id", job.ID, "document_id", documentID, "agency_id", agencyID)
	return job, nil
}

// ReapStaleJobs forces any job stuck in processing beyond the staleness
// window to failed, so a crashed worker can never block its agency's queue.
func (m *Manager) ReapStaleJobs(ctx context.Context) (int, error) {
	return m.jobs.ReapStaleJobs(ctx, m.stalenessWindow, staleJobMessage)
}

// HasActiveJob reports whether the agency currently has a processing job.
// It fails closed: on infrastructure error it reports true, since it is
// safer to under-schedule than to run two jobs for one agency.
func (m *Manager) HasActiveJob(ctx context.Context, agencyID uuid.UUID) bool {
	active, err := m.jobs.HasActiveJob(ctx, agencyID)
	if err != nil {
		m.logger.Error("active job check failed, assuming active", "agency_id", agencyID, "err", err)
		return true
	}
	return active
}

// NextPendingJob reaps stale jobs, then atomically claims the agency's
// oldest pending job. Returns nil when the queue is empty. Reap failures
// are logged but do not block the dequeue.
func (m *Manager) NextPendingJob(ctx context.Context, agencyID uuid.UUID) (*core.ProcessingJob, error) {
	if _, err := m.ReapStaleJobs(ctx); err != nil {
		m.logger.Error("stale job reap failed", "err", err)
	}

	job, err := m.jobs.ClaimNextPending(ctx, agencyID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}

	m.logger.Info("claimed job", "job_id", job.ID, "agency_id", agencyID)
	return job, nil
}

// SetStatus transitions a job. The store records startedAt on entry to
// processing and completedAt on entry to a terminal state.
func (m *Manager) SetStatus(ctx context.Context, jobID uuid.UUID, status core.JobStatus, errorMessage string) error {
	return m.jobs.SetJobStatus(ctx, jobID, status, errorMessage)
}

// GetJob retrieves a job by ID.
func (m *Manager) GetJob(ctx context.Context, jobID uuid.UUID) (*core.ProcessingJob, error) {
	return m.jobs.GetJob(ctx, jobID)
}
