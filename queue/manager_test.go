package queue

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/coverdesk/docpipe/core"
	"github.com/coverdesk/docpipe/storage"
	"github.com/coverdesk/docpipe/storage/memory"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// failingJobs wraps the in-memory store to inject repository errors.
type failingJobs struct {
	storage.JobRepository
	activeErr error
	reapErr   error
}

func (f *failingJobs) HasActiveJob(ctx context.Context, agencyID uuid.UUID) (bool, error) {
	if f.activeErr != nil {
		return false, f.activeErr
	}
	return f.JobRepository.HasActiveJob(ctx, agencyID)
}

func (f *failingJobs) ReapStaleJobs(ctx context.Context, olderThan time.Duration, message string) (int, error) {
	if f.reapErr != nil {
		return 0, f.reapErr
	}
	return f.JobRepository.ReapStaleJobs(ctx, olderThan, message)
}

func TestEnqueueAndClaimFIFO(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	manager := NewManager(store)
	agencyID := uuid.New()

	first, err := manager.Enqueue(ctx, uuid.New(), agencyID)
	require.NoError(t, err)
	time.Sleep(2 * time.Millisecond)
	second, err := manager.Enqueue(ctx, uuid.New(), agencyID)
	require.NoError(t, err)

	claimed, err := manager.NextPendingJob(ctx, agencyID)
	require.NoError(t, err)
	require.NotNil(t, claimed)
	assert.Equal(t, first.ID, claimed.ID)
	assert.Equal(t, core.JobProcessing, claimed.Status)

	// Second job stays pending while the first is processing.
	got, err := manager.GetJob(ctx, second.ID)
	require.NoError(t, err)
	assert.Equal(t, core.JobPending, got.Status)
	assert.True(t, manager.HasActiveJob(ctx, agencyID))
}

func TestNextPendingJobEmptyQueue(t *testing.T) {
	manager := NewManager(memory.NewStore())

	job, err := manager.NextPendingJob(context.Background(), uuid.New())
	require.NoError(t, err)
	assert.Nil(t, job)
}

func TestHasActiveJobFailsClosed(t *testing.T) {
	jobs := &failingJobs{
		JobRepository: memory.NewStore(),
		activeErr:     errors.New("connection refused"),
	}
	manager := NewManager(jobs)

	assert.True(t, manager.HasActiveJob(context.Background(), uuid.New()))
}

func TestNextPendingJobReapsFirst(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	manager := NewManager(store, WithStalenessWindow(50*time.Millisecond))
	agencyID := uuid.New()

	stuck, err := manager.Enqueue(ctx, uuid.New(), agencyID)
	require.NoError(t, err)
	claimed, err := manager.NextPendingJob(ctx, agencyID)
	require.NoError(t, err)
	require.Equal(t, stuck.ID, claimed.ID)

	queued, err := manager.Enqueue(ctx, uuid.New(), agencyID)
	require.NoError(t, err)

	// Let the claimed job exceed the staleness window, simulating a
	// crashed worker that never reported back.
	time.Sleep(80 * time.Millisecond)

	next, err := manager.NextPendingJob(ctx, agencyID)
	require.NoError(t, err)
	require.NotNil(t, next)
	assert.Equal(t, queued.ID, next.ID)

	reaped, err := manager.GetJob(ctx, stuck.ID)
	require.NoError(t, err)
	assert.Equal(t, core.JobFailed, reaped.Status)
	assert.Contains(t, reaped.ErrorMessage, "timed out")
}

func TestNextPendingJobSurvivesReapFailure(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	jobs := &failingJobs{JobRepository: store, reapErr: errors.New("reap unavailable")}
	manager := NewManager(jobs)
	agencyID := uuid.New()

	queued, err := manager.Enqueue(ctx, uuid.New(), agencyID)
	require.NoError(t, err)

	claimed, err := manager.NextPendingJob(ctx, agencyID)
	require.NoError(t, err)
	require.NotNil(t, claimed)
	assert.Equal(t, queued.ID, claimed.ID)
}

func TestSetStatusRecordsTerminalState(t *testing.T) {
	ctx := context.Background()
	manager := NewManager(memory.NewStore())
	agencyID := uuid.New()

	job, err := manager.Enqueue(ctx, uuid.New(), agencyID)
	require.NoError(t, err)

	_, err = manager.NextPendingJob(ctx, agencyID)
	require.NoError(t, err)

	require.NoError(t, manager.SetStatus(ctx, job.ID, core.JobCompleted, ""))

	done, err := manager.GetJob(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, core.JobCompleted, done.Status)
	require.NotNil(t, done.CompletedAt)
	assert.False(t, manager.HasActiveJob(ctx, agencyID))
}
