package ingestion

import (
	"context"
	"log/slog"
	"math"
	"time"

	"github.com/coverdesk/docpipe/core"
	"github.com/coverdesk/docpipe/storage"
	"github.com/google/uuid"
)

// stageWeights assigns each pipeline stage a share of total progress,
// summing to 100. Parsing dominates because the external extraction call
// is by far the slowest stage on typical documents.
var stageWeights = []struct {
	stage  core.Stage
	weight float64
}{
	{core.StageDownloading, 5},
	{core.StageParsing, 55},
	{core.StageChunking, 10},
	{core.StageTagging, 5},
	{core.StageEmbedding, 20},
	{core.StagePersisting, 5},
}

// perMBSeconds is the heuristic processing cost per megabyte per stage,
// used only for the estimated-seconds-remaining hint.
var perMBSeconds = map[core.Stage]float64{
	core.StageDownloading: 1,
	core.StageParsing:     20,
	core.StageChunking:    1,
	core.StageTagging:     2,
	core.StageEmbedding:   6,
	core.StagePersisting:  1,
}

// stageStartPercent returns the cumulative weight of all stages before the
// given one, i.e. the totalPercent at which the stage begins.
func stageStartPercent(stage core.Stage) (start, weight float64) {
	for _, sw := range stageWeights {
		if sw.stage == stage {
			return start, sw.weight
		}
		start += sw.weight
	}
	return 100, 0
}

// Notifier receives every progress record that is written, so a transport
// layer can broadcast updates instead of clients polling the job row.
type Notifier interface {
	Notify(jobID uuid.UUID, progress *core.ProgressData)
}

// progressReporter maintains the single ProgressData record for one job.
// Writes are throttled to at most one per second, except stage-boundary
// writes which always go through so a UI never appears stuck between
// stages. Write failures are logged and swallowed: progress is advisory
// and must never fail a run.
type progressReporter struct {
	jobs      storage.JobRepository
	notifier  Notifier
	jobID     uuid.UUID
	fileBytes int
	throttle  time.Duration
	lastWrite time.Time
	logger    *slog.Logger
}

func newProgressReporter(jobs storage.JobRepository, notifier Notifier, jobID uuid.UUID) *progressReporter {
	return &progressReporter{
		jobs:     jobs,
		notifier: notifier,
		jobID:    jobID,
		throttle: time.Second,
		logger:   slog.Default().With("component", "progress", "job_id", jobID),
	}
}

// setFileSize records the input size used by the time-remaining heuristic.
func (r *progressReporter) setFileSize(bytes int) {
	r.fileBytes = bytes
}

// stageStart forces a write marking the beginning of a stage.
func (r *progressReporter) stageStart(ctx context.Context, stage core.Stage) {
	r.report(ctx, stage, 0, true)
}

// stageProgress writes mid-stage progress, subject to throttling.
func (r *progressReporter) stageProgress(ctx context.Context, stage core.Stage, stagePercent float64) {
	r.report(ctx, stage, stagePercent, false)
}

// completed forces the terminal progress write with no remaining estimate.
func (r *progressReporter) completed(ctx context.Context) {
	r.report(ctx, core.StageCompleted, 100, true)
}

// failed forces a terminal progress write for a failed run.
func (r *progressReporter) failed(ctx context.Context) {
	r.report(ctx, core.StageFailed, 100, true)
}

func (r *progressReporter) report(ctx context.Context, stage core.Stage, stagePercent float64, forced bool) {
	now := time.Now().UTC()
	if !forced && now.Sub(r.lastWrite) < r.throttle {
		return
	}

	start, weight := stageStartPercent(stage)
	total := start + (stagePercent/100)*weight
	if stage == core.StageCompleted || stage == core.StageFailed {
		total = 100
	}

	progress := &core.ProgressData{
		Stage:                     stage,
		StagePercent:              stagePercent,
		TotalPercent:              total,
		EstimatedSecondsRemaining: r.estimateRemaining(stage, total),
		UpdatedAt:                 now,
	}

	if err := r.jobs.UpdateJobProgress(ctx, r.jobID, progress); err != nil {
		r.logger.Warn("progress write failed", "err", err)
		return
	}
	r.lastWrite = now

	if r.notifier != nil {
		r.notifier.Notify(r.jobID, progress)
	}
}

// estimateRemaining derives a rough seconds-remaining hint from the file
// size and per-stage cost heuristics. Terminal stages report no estimate.
func (r *progressReporter) estimateRemaining(stage core.Stage, totalPercent float64) *int {
	if stage == core.StageCompleted || stage == core.StageFailed {
		return nil
	}

	mb := float64(r.fileBytes) / (1 << 20)
	var totalSeconds float64
	for _, sw := range stageWeights {
		totalSeconds += perMBSeconds[sw.stage] * mb
	}
	if totalSeconds < 10 {
		totalSeconds = 10
	}

	remaining := int(math.Ceil(totalSeconds * (100 - totalPercent) / 100))
	return &remaining
}
