package core

import (
	"context"
	"errors"
	"strings"
)

// FailureCategory classifies pipeline failures for retry policy and for
// selecting the user-facing message recorded on the job.
type FailureCategory string

const (
	// FailureTransientNetwork covers connection resets, refused connections
	// and similar retryable conditions.
	FailureTransientNetwork FailureCategory = "transient-network"

	// FailureServiceTimeout covers external-call deadline expiry, retryable
	// with backoff.
	FailureServiceTimeout FailureCategory = "service-timeout"

	// FailureMalformedInput covers files the parser rejects; retried once in
	// alternate mode, then terminal.
	FailureMalformedInput FailureCategory = "malformed-input"

	// FailureUnsupportedFormat covers file types the parser does not handle;
	// terminal, no retry.
	FailureUnsupportedFormat FailureCategory = "unsupported-format"

	// FailureUnknown covers everything else; terminal, full detail is logged
	// but only a generic message is surfaced.
	FailureUnknown FailureCategory = "unknown"
)

// Retryable reports whether a failure in this category may be retried
// within its stage.
func (c FailureCategory) Retryable() bool {
	return c == FailureTransientNetwork || c == FailureServiceTimeout
}

// Failure is a classified pipeline error. Message is safe to record on the
// job and show to the user; Err holds the internal cause for logging only.
type Failure struct {
	Category FailureCategory
	Message  string
	Err      error
}

func (f *Failure) Error() string {
	if f.Err != nil {
		return string(f.Category) + ": " + f.Err.Error()
	}
	return string(f.Category) + ": " + f.Message
}

func (f *Failure) Unwrap() error {
	return f.Err
}

// NewFailure wraps err with a category and its default user-facing message.
func NewFailure(category FailureCategory, err error) *Failure {
	return &Failure{
		Category: category,
		Message:  UserMessage(category),
		Err:      err,
	}
}

// AsFailure extracts a *Failure from an error chain. If err is not already
// classified it is classified and wrapped.
func AsFailure(err error) *Failure {
	var f *Failure
	if errors.As(err, &f) {
		return f
	}
	return NewFailure(Classify(err), err)
}

// pageDimensionSignatures are error fragments some PDF encoders produce when
// the parser cannot resolve page geometry. These are recoverable in the
// parser's alternate mode.
var pageDimensionSignatures = []string{
	"page dimension",
	"page dimensions",
	"mediabox",
	"invalid page size",
}

// HasPageDimensionSignature reports whether the error matches the known
// malformed-PDF page-geometry signature.
func HasPageDimensionSignature(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	for _, sig := range pageDimensionSignatures {
		if strings.Contains(msg, sig) {
			return true
		}
	}
	return false
}

// Classify maps an arbitrary error onto the failure taxonomy by inspecting
// the error chain and message.
func Classify(err error) FailureCategory {
	if err == nil {
		return FailureUnknown
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return FailureServiceTimeout
	}

	if HasPageDimensionSignature(err) {
		return FailureMalformedInput
	}

	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "timeout"), strings.Contains(msg, "timed out"), strings.Contains(msg, "deadline"):
		return FailureServiceTimeout
	case strings.Contains(msg, "unsupported"), strings.Contains(msg, "not supported"), strings.Contains(msg, "unknown file type"):
		return FailureUnsupportedFormat
	case strings.Contains(msg, "malformed"), strings.Contains(msg, "corrupt"), strings.Contains(msg, "invalid pdf"), strings.Contains(msg, "parse error"):
		return FailureMalformedInput
	case strings.Contains(msg, "connection refused"), strings.Contains(msg, "connection reset"),
		strings.Contains(msg, "no such host"), strings.Contains(msg, "broken pipe"),
		strings.Contains(msg, "eof"), strings.Contains(msg, "unavailable"):
		return FailureTransientNetwork
	}
	return FailureUnknown
}

// UserMessage returns the sanitized message recorded on the document and job
// for a failure category. Internal detail never leaks here.
func UserMessage(category FailureCategory) string {
	switch category {
	case FailureMalformedInput:
		return "The file appears to be damaged or in a non-standard format. Try re-exporting it as a PDF and uploading again."
	case FailureServiceTimeout:
		return "Processing took too long and was stopped. Large or complex files can time out; try splitting the file and uploading again."
	case FailureUnsupportedFormat:
		return "This file type is not supported. Upload a PDF, Word, or Excel document."
	case FailureTransientNetwork:
		return "A temporary network problem interrupted processing. Upload the file again to retry."
	default:
		return "Something went wrong while processing this file. Upload it again, and contact support if the problem persists."
	}
}
