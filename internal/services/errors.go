// Package services defines the business logic for planning runs and seat
// satisfaction feedback. This file centralizes service-level error values so
// that they can be returned consistently by service methods and checked by
// callers.
//
// Translation into HTTP status codes happens in the handler layer.
package services

import "errors"

var (
	// ErrPlanNotFound indicates that the requested plan run does not exist or
	// is not owned by the current user.
	ErrPlanNotFound = errors.New("plan run not found")

	// ErrInvalidPlan wraps input validation failures of a planning request.
	// The wrapped *planner.ValidationError carries the offending field.
	ErrInvalidPlan = errors.New("invalid plan request")

	// ErrInvalidFeedback is returned when a satisfaction record is malformed:
	// missing identifiers, a date that is not YYYY-MM-DD, or a rating outside
	// 1..5.
	ErrInvalidFeedback = errors.New("invalid feedback")

	// ErrFeedbackPersistence wraps storage failures while recording feedback.
	// Planning runs never see it.
	ErrFeedbackPersistence = errors.New("feedback persistence failed")
)
