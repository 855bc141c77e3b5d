// Package handlers exposes the planner's REST endpoints. Handlers are
// transport-thin: they bind and validate input, call application services,
// and translate results into HTTP responses, including conditional (ETag)
// responses and idempotent replays.
package handlers

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-seat-planner/internal/domain"
	"github.com/tbourn/go-seat-planner/internal/feedback"
	"github.com/tbourn/go-seat-planner/internal/planner"
	"github.com/tbourn/go-seat-planner/internal/services"
	"github.com/tbourn/go-seat-planner/internal/utils"
)

//
// Service contracts (context-aware)
//

// PlanService runs and retrieves planning runs.
type PlanService interface {
	Plan(ctx context.Context, userID string, req planner.Request) (*services.PlanResponse, error)
	Validate(ctx context.Context, req planner.Request) error
	Get(ctx context.Context, userID, id string) (*services.PlanResponse, error)
	ListPage(ctx context.Context, userID string, page, pageSize int) ([]domain.PlanRun, int64, error)
	Stats(ctx context.Context, userID string) (int64, *time.Time, error)
}

// FeedbackService records and reports seat satisfaction.
type FeedbackService interface {
	Submit(ctx context.Context, userID string, in services.FeedbackInput) (*domain.SatisfactionFeedback, error)
	ListPage(ctx context.Context, employeeID string, page, pageSize int) ([]domain.SatisfactionFeedback, int64, error)
	Stats(ctx context.Context, employeeID string) (int64, *time.Time, error)
	Satisfaction(employeeID string) (feedback.EmployeeStats, bool)
	Alerts() []feedback.Alert
}

// IdempotencyStore persists completed unsafe requests for replay.
type IdempotencyStore interface {
	Get(ctx context.Context, userID, scope, key string, now time.Time) (*domain.Idempotency, error)
	Create(ctx context.Context, userID, scope, key, resourceID string, status int, ttl time.Duration) error
}

// IdempotencyTTL is how long a completed request can be replayed.
const IdempotencyTTL = 24 * time.Hour

// Handlers groups the HTTP endpoints.
type Handlers struct {
	planSvc PlanService
	fbSvc   FeedbackService
	idem    IdempotencyStore
}

// New constructs Handlers. idem may be nil, which disables replays.
func New(planSvc PlanService, fbSvc FeedbackService, idem IdempotencyStore) *Handlers {
	return &Handlers{planSvc: planSvc, fbSvc: fbSvc, idem: idem}
}

// userID extracts the caller identity: the gin context value set by the auth
// middleware, then the X-User-ID header, then "demo-user".
func userID(c *gin.Context) string {
	if v, ok := c.Get("userID"); ok {
		if s, ok := v.(string); ok && s != "" {
			return s
		}
	}
	if c != nil && c.Request != nil {
		if h := strings.TrimSpace(c.GetHeader("X-User-ID")); h != "" {
			return h
		}
	}
	return "demo-user"
}

// Pagination carries pagination metadata for list responses.
type Pagination struct {
	Page       int   `json:"page"`
	PageSize   int   `json:"page_size"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"total_pages"`
	HasNext    bool  `json:"has_next"`
}

func newPagination(page, pageSize int, total int64) Pagination {
	totalPages := int((total + int64(pageSize) - 1) / int64(pageSize))
	return Pagination{
		Page:       page,
		PageSize:   pageSize,
		Total:      total,
		TotalPages: totalPages,
		HasNext:    page < totalPages,
	}
}

// clampPagination parses and bounds the page and page_size query params.
func clampPagination(c *gin.Context) (page, pageSize int) {
	const (
		defaultPage     = 1
		defaultPageSize = 20
		maxPageSize     = 100
	)
	page = max(1, utils.AtoiDefault(c.Query("page"), defaultPage))
	pageSize = utils.Clamp(utils.AtoiDefault(c.Query("page_size"), defaultPageSize), 1, maxPageSize)
	return
}

// notModified sets a weak ETag derived from (count, latest) and reports
// whether the client's If-None-Match already matches it.
func notModified(c *gin.Context, kind, owner string, count int64, latest *time.Time) bool {
	var ts int64
	if latest != nil {
		ts = latest.UnixNano()
	}
	etag := fmt.Sprintf(`W/"%s:%s:%d:%d"`, kind, owner, count, ts)
	c.Header("ETag", etag)
	if inm := c.GetHeader("If-None-Match"); inm != "" && inm == etag {
		c.Status(http.StatusNotModified)
		return true
	}
	return false
}
