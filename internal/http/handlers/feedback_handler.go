// Feedback HTTP handlers.
//
// This file exposes REST endpoints for seat satisfaction:
//   - PUT  /feedback                     (upsert a record; POST is an alias)
//   - GET  /employees/{id}/feedback      (records, paginated, ETag support)
//   - GET  /employees/{id}/satisfaction  (aggregated statistics)
//   - GET  /feedback/alerts              (low-satisfaction streaks)
//
// Records are keyed by (employee_id, assignment_date, seat_id); resubmitting
// the same key replaces the earlier values, so PUT is naturally idempotent.
package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-seat-planner/internal/domain"
	"github.com/tbourn/go-seat-planner/internal/feedback"
	"github.com/tbourn/go-seat-planner/internal/services"
)

// ListFeedbackResponse wraps a page of satisfaction records.
type ListFeedbackResponse struct {
	Feedback   []domain.SatisfactionFeedback `json:"feedback"`
	Pagination Pagination                    `json:"pagination"`
}

// AlertsResponse lists current low-satisfaction alerts.
type AlertsResponse struct {
	Alerts []feedback.Alert `json:"alerts"`
}

// SubmitFeedback godoc
// @ID          submitFeedback
// @Summary     Record seat satisfaction
// @Description Upserts the rating for (employee_id, assignment_date, seat_id) and returns the stored record.
// @Tags        Feedback
// @Accept      json
// @Produce     json
//
// @Param       X-User-ID  header  string  false "User ID (demo header)"  example(user123)
// @Param       body       body    services.FeedbackInput  true  "Satisfaction record"
//
// @Success     200  {object}  domain.SatisfactionFeedback
// @Failure     400  {object}  handlers.ErrorResponse  "Invalid feedback"
// @Failure     500  {object}  handlers.ErrorResponse  "Feedback could not be stored"
// @Router      /feedback [put]
func (h *Handlers) SubmitFeedback(c *gin.Context) {
	var in services.FeedbackInput
	if err := c.ShouldBindJSON(&in); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return
	}
	row, err := h.fbSvc.Submit(c.Request.Context(), userID(c), in)
	if err != nil {
		failErr(c, err, ErrCodeInternal)
		return
	}
	ok(c, http.StatusOK, row)
}

// ListEmployeeFeedback godoc
// @ID          listEmployeeFeedback
// @Summary     List an employee's satisfaction records
// @Description Newest assignment date first. Supports weak ETag via If-None-Match.
// @Tags        Feedback
// @Produce     json
//
// @Param       id             path    string  true  "Employee ID"  example(E001)
// @Param       If-None-Match  header  string  false "Return 304 if ETag matches"
// @Param       page           query   int     false "Page number"     minimum(1) default(1)
// @Param       page_size      query   int     false "Items per page"  minimum(1) maximum(100) default(20)
//
// @Success     200  {object}  handlers.ListFeedbackResponse
// @Success     304  {string}  string  "Not Modified"
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /employees/{id}/feedback [get]
func (h *Handlers) ListEmployeeFeedback(c *gin.Context) {
	ctx := c.Request.Context()
	emp := strings.TrimSpace(c.Param("id"))
	if emp == "" {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "employee id required")
		return
	}
	page, pageSize := clampPagination(c)

	if count, latest, err := h.fbSvc.Stats(ctx, emp); err == nil {
		if notModified(c, "feedback", emp, count, latest) {
			return
		}
	}

	items, total, err := h.fbSvc.ListPage(ctx, emp, page, pageSize)
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeListFailed, err.Error())
		return
	}
	ok(c, http.StatusOK, ListFeedbackResponse{Feedback: items, Pagination: newPagination(page, pageSize, total)})
}

// GetSatisfaction godoc
// @ID          getSatisfaction
// @Summary     Aggregated satisfaction of an employee
// @Description Moving average, record count, trailing low-score streak and per-seat averages.
// @Tags        Feedback
// @Produce     json
//
// @Param       id  path  string  true  "Employee ID"  example(E001)
//
// @Success     200  {object}  feedback.EmployeeStats
// @Failure     404  {object}  handlers.ErrorResponse  "No feedback for this employee"
// @Router      /employees/{id}/satisfaction [get]
func (h *Handlers) GetSatisfaction(c *gin.Context) {
	st, found := h.fbSvc.Satisfaction(strings.TrimSpace(c.Param("id")))
	if !found {
		fail(c, http.StatusNotFound, ErrCodeNotFound, "no feedback for this employee")
		return
	}
	ok(c, http.StatusOK, st)
}

// ListAlerts godoc
// @ID          listAlerts
// @Summary     Low-satisfaction alerts
// @Description Employees whose latest consecutive scores are all below the low-score threshold.
// @Tags        Feedback
// @Produce     json
//
// @Success     200  {object}  handlers.AlertsResponse
// @Router      /feedback/alerts [get]
func (h *Handlers) ListAlerts(c *gin.Context) {
	ok(c, http.StatusOK, AlertsResponse{Alerts: h.fbSvc.Alerts()})
}
