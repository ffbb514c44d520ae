// Package common defines shared constants and sentinel errors used across
// the client and server layers of the asset core. Callers should use
// errors.Is to match these values.
package common

import "errors"

var (
	// ErrValidation covers rejected input: disallowed extension or content
	// type, oversized payload, malformed hash. Never persisted or retried.
	ErrValidation = errors.New("validation failed")

	// ErrPermissionDenied means the (session, user) tuple lacks the
	// capability required by the operation.
	ErrPermissionDenied = errors.New("permission denied")

	// ErrRateLimited is transient; the caller may retry after the window
	// slides.
	ErrRateLimited = errors.New("rate limited")

	// ErrNotFound is returned for unknown asset ids and missing rows.
	ErrNotFound = errors.New("not found")

	// ErrBackendUnavailable wraps failures of the object store or the
	// database. Transient and retryable.
	ErrBackendUnavailable = errors.New("backend unavailable")

	// ErrDuplicateContent marks byte-identical content that is already
	// registered. A normal outcome of deduplication, not a failure.
	ErrDuplicateContent = errors.New("duplicate content")
)
