package ingestion

import "errors"

var (
	// ErrStoreRequired is returned when a store is not provided.
	ErrStoreRequired = errors.New("store required")

	// ErrQueueRequired is returned when a queue manager is not provided.
	ErrQueueRequired = errors.New("queue manager required")

	// ErrDownloaderRequired is returned when a downloader is not provided.
	ErrDownloaderRequired = errors.New("downloader required")

	// ErrProviderRequired is returned when an AI provider is not provided.
	ErrProviderRequired = errors.New("AI provider required")

	// ErrInvalidMaxAttempts is returned when a retry is configured with
	// a non-positive attempt count.
	ErrInvalidMaxAttempts = errors.New("max attempts must be positive")

	// ErrRunBudgetExceeded is returned when a pipeline run exceeds its
	// global wall-clock budget.
	ErrRunBudgetExceeded = errors.New("pipeline run budget exceeded")
)
