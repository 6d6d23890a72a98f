// Package handlers defines HTTP-layer error codes used across all API
// endpoints.
//
// These symbolic constants are mapped to HTTP responses via the `fail()`
// helper and give clients a stable, machine-readable error taxonomy that
// supplements human-readable messages. Codes are lowercase snake_case;
// generic codes mirror common HTTP status semantics, domain-specific codes
// cover business failures that a status alone cannot convey.
package handlers

const (
	ErrCodeBadRequest      = "bad_request"
	ErrCodeUnauthenticated = "unauthenticated"
	ErrCodeNotFound        = "not_found"
	ErrCodeConflict        = "conflict"
	ErrCodeInternal        = "internal_error"

	// Domain-specific:
	ErrCodeInvalidImage        = "invalid_image"
	ErrCodeAnalysisFailed      = "analysis_failed"
	ErrCodeLocationUnavailable = "location_unavailable"
	ErrCodeUpstreamFailure     = "upstream_failure"
	ErrCodeConfirmRequired     = "confirm_required"
	ErrCodeMethodNotAllowed    = "method_not_allowed"
)
