// Plan HTTP handlers.
//
// This file exposes REST endpoints for planning runs:
//   - POST /plans            (run the planner, idempotent with Idempotency-Key)
//   - POST /plans/validate   (validate a request without running it)
//   - GET  /plans            (list run summaries, paginated, ETag support)
//   - GET  /plans/{id}       (stored result of one run)
//
// The response schema is the same whichever matching method produced it.
package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/tbourn/go-seat-planner/internal/domain"
	"github.com/tbourn/go-seat-planner/internal/http/middleware"
	"github.com/tbourn/go-seat-planner/internal/planner"
)

// ListPlansResponse wraps a page of run summaries.
type ListPlansResponse struct {
	Plans      []domain.PlanRun `json:"plans"`
	Pagination Pagination       `json:"pagination"`
}

// idempotencyKey returns the key validated by the middleware, or the raw
// header when the middleware is not installed.
func idempotencyKey(c *gin.Context) string {
	if k, ok := middleware.GetIdempotencyKey(c); ok {
		return k
	}
	return strings.TrimSpace(c.GetHeader(middleware.HeaderIdempotencyKey))
}

// CreatePlan godoc
// @ID          createPlan
// @Summary     Run the seat planner
// @Description Schedules the requested weekdays, assigns seats and reports warnings.
// @Description Supports idempotency via the Idempotency-Key header (same key → same run).
// @Tags        Plans
// @Accept      json
// @Produce     json
//
// @Param       X-User-ID        header  string  false "User ID (demo header)"  example(user123)
// @Param       Idempotency-Key  header  string  false "Idempotency key for safe retries"  example(7a8d9f4c-1b2a-4c3d-8e9f-0123456789ab)
// @Param       body             body    planner.Request  true  "Employees, seats and capacity"
//
// @Success     201  {object}  services.PlanResponse
// @Header      201  {string}  Idempotency-Replayed  "true when an earlier result is replayed"
// @Failure     400  {object}  handlers.ErrorResponse  "Invalid plan request"
// @Failure     503  {object}  handlers.ErrorResponse  "Request canceled"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /plans [post]
func (h *Handlers) CreatePlan(c *gin.Context) {
	ctx := c.Request.Context()
	uid := userID(c)

	var req planner.Request
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body: "+err.Error())
		return
	}

	key := idempotencyKey(c)
	scope := middleware.IdempotencyScope(c)
	if key != "" && h.idem != nil {
		if rec, err := h.idem.Get(ctx, uid, scope, key, time.Now().UTC()); err == nil && rec != nil {
			if prev, err := h.planSvc.Get(ctx, uid, rec.ResourceID); err == nil {
				c.Header("Idempotency-Replayed", "true")
				ok(c, rec.Status, prev)
				return
			}
		}
	}

	out, err := h.planSvc.Plan(ctx, uid, req)
	if err != nil {
		failErr(c, err, ErrCodePlanFailed)
		return
	}

	// Best effort: a lost record only means a retry plans again.
	if key != "" && h.idem != nil {
		if err := h.idem.Create(ctx, uid, scope, key, out.ID, http.StatusCreated, IdempotencyTTL); err != nil {
			lg := middleware.LoggerFrom(c)
			lg.Warn().Err(err).Str("run_id", out.ID).Msg("idempotency record not stored")
		}
	}

	ok(c, http.StatusCreated, out)
}

// ValidatePlan godoc
// @ID          validatePlan
// @Summary     Validate a planning request
// @Description Normalizes and validates the request without scheduling or matching.
// @Tags        Plans
// @Accept      json
// @Produce     json
//
// @Param       body  body  planner.Request  true  "Employees, seats and capacity"
//
// @Success     204  {string}  string  "Valid"
// @Failure     400  {object}  handlers.ErrorResponse  "Invalid plan request"
// @Router      /plans/validate [post]
func (h *Handlers) ValidatePlan(c *gin.Context) {
	var req planner.Request
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body: "+err.Error())
		return
	}
	if err := h.planSvc.Validate(c.Request.Context(), req); err != nil {
		failErr(c, err, ErrCodeInternal)
		return
	}
	noContent(c)
}

// ListPlans godoc
// @ID          listPlans
// @Summary     List planning runs (paginated)
// @Description Returns run summaries for the current user, newest first. Supports weak ETag via If-None-Match.
// @Tags        Plans
// @Produce     json
//
// @Param       X-User-ID      header  string  false "User ID (demo header)"       example(user123)
// @Param       If-None-Match  header  string  false "Return 304 if ETag matches"
// @Param       page           query   int     false "Page number"     minimum(1) default(1)
// @Param       page_size      query   int     false "Items per page"  minimum(1) maximum(100) default(20)
//
// @Success     200  {object}  handlers.ListPlansResponse
// @Header      200  {string}  ETag  "Weak ETag for current result"
// @Success     304  {string}  string  "Not Modified"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /plans [get]
func (h *Handlers) ListPlans(c *gin.Context) {
	ctx := c.Request.Context()
	uid := userID(c)
	page, pageSize := clampPagination(c)

	// ETag pre-check (best effort).
	if count, latest, err := h.planSvc.Stats(ctx, uid); err == nil {
		if notModified(c, "plans", uid, count, latest) {
			return
		}
	}

	items, total, err := h.planSvc.ListPage(ctx, uid, page, pageSize)
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeListFailed, err.Error())
		return
	}
	ok(c, http.StatusOK, ListPlansResponse{Plans: items, Pagination: newPagination(page, pageSize, total)})
}

// GetPlan godoc
// @ID          getPlan
// @Summary     Get a planning run
// @Description Returns exactly the body the run originally returned.
// @Tags        Plans
// @Produce     json
//
// @Param       X-User-ID  header  string  false "User ID (demo header)"  example(user123)
// @Param       id         path    string  true  "Run ID (UUID)"  format(uuid)
//
// @Success     200  {object}  services.PlanResponse
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Failure     404  {object}  handlers.ErrorResponse  "Run not found"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /plans/{id} [get]
func (h *Handlers) GetPlan(c *gin.Context) {
	id := c.Param("id")
	if _, err := uuid.Parse(id); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "plan id must be a UUID")
		return
	}
	out, err := h.planSvc.Get(c.Request.Context(), userID(c), id)
	if err != nil {
		failErr(c, err, ErrCodeInternal)
		return
	}
	ok(c, http.StatusOK, out)
}
