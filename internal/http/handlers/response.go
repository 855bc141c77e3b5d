// Package handlers provides HTTP handler implementations for the public API.
//
// This file defines the response utilities shared by all endpoints: the
// error envelope, the mapping from service errors to status codes, and small
// success helpers.
//
// Example error response:
//
//	HTTP/1.1 400 Bad Request
//	{
//	  "request_id": "123e4567-e89b-12d3-a456-426614174000",
//	  "code": "invalid_plan",
//	  "message": "invalid plan request: invalid employees[1].employee_id: duplicate id \"E1\""
//	}
package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-seat-planner/internal/http/middleware"
	"github.com/tbourn/go-seat-planner/internal/services"
)

// ErrorResponse is the standard error envelope returned by all endpoints.
type ErrorResponse struct {
	// Correlates server logs and client errors
	RequestID string `json:"request_id,omitempty" example:"123e4567-e89b-12d3-a456-426614174000"`
	// Stable, machine-readable code (see errors.go constants)
	Code string `json:"code" example:"invalid_plan"`
	// Human-readable message (safe to show to users)
	Message string `json:"message" example:"invalid plan request: invalid capacity: must be >= 0"`
}

// fail aborts the request with a structured error. Server errors (>=500) are
// logged with the request-scoped logger.
func fail(c *gin.Context, status int, code, msg string) {
	resp := ErrorResponse{
		RequestID: c.Writer.Header().Get("X-Request-ID"),
		Code:      code,
		Message:   msg,
	}

	if status >= http.StatusInternalServerError {
		lg := middleware.LoggerFrom(c)
		lg.Error().
			Int("status", status).
			Str("code", code).
			Str("message", msg).
			Msg("api error")
	}

	c.AbortWithStatusJSON(status, resp)
}

// Fail is the exported variant of fail() for the router's fallback handlers.
func Fail(c *gin.Context, status int, code, msg string) { fail(c, status, code, msg) }

// failErr maps a service error to its status and code. fallback is the code
// used for unexpected errors.
func failErr(c *gin.Context, err error, fallback string) {
	switch {
	case errors.Is(err, services.ErrInvalidPlan):
		fail(c, http.StatusBadRequest, ErrCodeInvalidPlan, err.Error())
	case errors.Is(err, services.ErrInvalidFeedback):
		fail(c, http.StatusBadRequest, ErrCodeInvalidFeedback, err.Error())
	case errors.Is(err, services.ErrPlanNotFound):
		fail(c, http.StatusNotFound, ErrCodeNotFound, "plan run not found")
	case errors.Is(err, services.ErrFeedbackPersistence):
		fail(c, http.StatusInternalServerError, ErrCodeFeedbackPersist, "feedback could not be stored")
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		fail(c, http.StatusServiceUnavailable, ErrCodeUnavailable, "request canceled or timed out")
	default:
		fail(c, http.StatusInternalServerError, fallback, err.Error())
	}
}

func ok(c *gin.Context, status int, body any) {
	c.JSON(status, body)
}

func noContent(c *gin.Context) {
	c.Status(http.StatusNoContent)
}
