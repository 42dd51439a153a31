package ingestion

import (
	"context"
	"log/slog"
	"time"

	"github.com/coverdesk/docpipe/ai"
	"github.com/coverdesk/docpipe/core"
)

const (
	// defaultParseTimeout bounds a single extraction service call.
	defaultParseTimeout = 300 * time.Second

	// defaultParseRetryDelay is the pause before the single retry attempt.
	defaultParseRetryDelay = 2 * time.Second
)

// extractor wraps the external parsing service with a per-call timeout and
// a bounded two-attempt retry policy. The first attempt uses standard parse
// mode; what the second attempt does depends on how the first failed.
type extractor struct {
	parser     ai.DocumentParser
	timeout    time.Duration
	retryDelay time.Duration
	logger     *slog.Logger
}

func newExtractor(parser ai.DocumentParser, timeout time.Duration) *extractor {
	if timeout <= 0 {
		timeout = defaultParseTimeout
	}
	return &extractor{
		parser:     parser,
		timeout:    timeout,
		retryDelay: defaultParseRetryDelay,
		logger:     slog.Default().With("component", "extractor"),
	}
}

// extract parses the file, retrying once on failure. A first failure
// matching the page-dimension signature (a malformed-PDF pattern some
// encoders produce) retries in the parser's alternate mode with layout
// analysis disabled; any other failure retries once in standard mode.
// A second failure is surfaced as a classified, sanitized error.
func (e *extractor) extract(ctx context.Context, file []byte, filename string) (*ai.ParseResult, error) {
	result, firstErr := e.parse(ctx, file, filename, ai.ParseOptions{})
	if firstErr == nil {
		return result, nil
	}

	// Unsupported formats never succeed on retry.
	if core.Classify(firstErr) == core.FailureUnsupportedFormat {
		return nil, core.AsFailure(firstErr)
	}

	alternate := core.HasPageDimensionSignature(firstErr)
	e.logger.Warn("parse attempt failed, retrying",
		"file", filename, "alternate_mode", alternate, "err", firstErr)

	select {
	case <-ctx.Done():
		return nil, core.AsFailure(ctx.Err())
	case <-time.After(e.retryDelay):
	}

	result, secondErr := e.parse(ctx, file, filename, ai.ParseOptions{DisableLayoutAnalysis: alternate})
	if secondErr == nil {
		return result, nil
	}

	e.logger.Error("parse failed after retry", "file", filename, "err", secondErr)
	if alternate {
		// Both attempts tripped on page geometry: report the malformed
		// file, not whatever secondary error the retry produced.
		return nil, core.NewFailure(core.FailureMalformedInput, secondErr)
	}
	return nil, core.AsFailure(secondErr)
}

// parse runs one attempt under the per-call timeout.
func (e *extractor) parse(ctx context.Context, file []byte, filename string, opts ai.ParseOptions) (*ai.ParseResult, error) {
	callCtx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()
	return e.parser.Parse(callCtx, file, filename, opts)
}
