// Package handlers defines HTTP-layer error codes used across all API endpoints.
//
// This file centralizes symbolic error code constants that are mapped to HTTP
// responses via the fail() helper. Clients are expected to branch on these
// codes rather than on messages.
//
// Example response:
//
//	{
//	  "request_id": "e1b9be03-4999-4289-9f03-999b042d65d6",
//	  "code": "invalid_plan",
//	  "message": "invalid plan request: invalid capacity: must be >= 0"
//	}
package handlers

const (
	ErrCodeBadRequest   = "bad_request"
	ErrCodeUnauthorized = "unauthorized"
	ErrCodeForbidden    = "forbidden"
	ErrCodeNotFound     = "not_found"
	ErrCodeConflict     = "conflict"
	ErrCodeRateLimited  = "too_many_requests"
	ErrCodeInternal     = "internal_error"
	ErrCodeUnavailable  = "unavailable"

	// Domain-specific:
	ErrCodeInvalidPlan      = "invalid_plan"
	ErrCodePlanFailed       = "plan_failed"
	ErrCodeInvalidFeedback  = "invalid_feedback"
	ErrCodeFeedbackPersist  = "feedback_persistence_failed"
	ErrCodeListFailed       = "list_failed"
	ErrCodeMethodNotAllowed = "method_not_allowed"
)
