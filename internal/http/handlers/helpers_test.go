package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-seat-planner/internal/domain"
	"github.com/tbourn/go-seat-planner/internal/feedback"
	"github.com/tbourn/go-seat-planner/internal/planner"
	"github.com/tbourn/go-seat-planner/internal/services"
)

// ---------- stubs ----------

type stubPlanSvc struct {
	planFn     func(ctx context.Context, userID string, req planner.Request) (*services.PlanResponse, error)
	validateFn func(ctx context.Context, req planner.Request) error
	getFn      func(ctx context.Context, userID, id string) (*services.PlanResponse, error)
	listFn     func(ctx context.Context, userID string, page, pageSize int) ([]domain.PlanRun, int64, error)
	statsFn    func(ctx context.Context, userID string) (int64, *time.Time, error)

	planCalls int
}

func (s *stubPlanSvc) Plan(ctx context.Context, userID string, req planner.Request) (*services.PlanResponse, error) {
	s.planCalls++
	return s.planFn(ctx, userID, req)
}

func (s *stubPlanSvc) Validate(ctx context.Context, req planner.Request) error {
	if s.validateFn == nil {
		return nil
	}
	return s.validateFn(ctx, req)
}

func (s *stubPlanSvc) Get(ctx context.Context, userID, id string) (*services.PlanResponse, error) {
	return s.getFn(ctx, userID, id)
}

func (s *stubPlanSvc) ListPage(ctx context.Context, userID string, page, pageSize int) ([]domain.PlanRun, int64, error) {
	return s.listFn(ctx, userID, page, pageSize)
}

func (s *stubPlanSvc) Stats(ctx context.Context, userID string) (int64, *time.Time, error) {
	if s.statsFn == nil {
		return 0, nil, context.Canceled
	}
	return s.statsFn(ctx, userID)
}

type stubFeedbackSvc struct {
	submitFn func(ctx context.Context, userID string, in services.FeedbackInput) (*domain.SatisfactionFeedback, error)
	listFn   func(ctx context.Context, employeeID string, page, pageSize int) ([]domain.SatisfactionFeedback, int64, error)
	statsFn  func(ctx context.Context, employeeID string) (int64, *time.Time, error)
	stats    map[string]feedback.EmployeeStats
	alerts   []feedback.Alert
}

func (s *stubFeedbackSvc) Submit(ctx context.Context, userID string, in services.FeedbackInput) (*domain.SatisfactionFeedback, error) {
	return s.submitFn(ctx, userID, in)
}

func (s *stubFeedbackSvc) ListPage(ctx context.Context, employeeID string, page, pageSize int) ([]domain.SatisfactionFeedback, int64, error) {
	return s.listFn(ctx, employeeID, page, pageSize)
}

func (s *stubFeedbackSvc) Stats(ctx context.Context, employeeID string) (int64, *time.Time, error) {
	if s.statsFn == nil {
		return 0, nil, context.Canceled
	}
	return s.statsFn(ctx, employeeID)
}

func (s *stubFeedbackSvc) Satisfaction(employeeID string) (feedback.EmployeeStats, bool) {
	st, ok := s.stats[employeeID]
	return st, ok
}

func (s *stubFeedbackSvc) Alerts() []feedback.Alert {
	if s.alerts == nil {
		return []feedback.Alert{}
	}
	return s.alerts
}

// memIdem is an in-memory IdempotencyStore.
type memIdem struct {
	recs map[string]domain.Idempotency
}

func newMemIdem() *memIdem { return &memIdem{recs: map[string]domain.Idempotency{}} }

func (m *memIdem) Get(_ context.Context, userID, scope, key string, _ time.Time) (*domain.Idempotency, error) {
	rec, ok := m.recs[userID+"|"+scope+"|"+key]
	if !ok {
		return nil, services.ErrPlanNotFound
	}
	return &rec, nil
}

func (m *memIdem) Create(_ context.Context, userID, scope, key, resourceID string, status int, ttl time.Duration) error {
	m.recs[userID+"|"+scope+"|"+key] = domain.Idempotency{
		UserID: userID, Scope: scope, Key: key, ResourceID: resourceID, Status: status,
		ExpiresAt: time.Now().Add(ttl),
	}
	return nil
}

// ---------- helpers ----------

func newRouter(h *Handlers) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(func(c *gin.Context) { c.Header("X-Request-ID", "rid-test"); c.Next() })
	r.POST("/plans", h.CreatePlan)
	r.POST("/plans/validate", h.ValidatePlan)
	r.GET("/plans", h.ListPlans)
	r.GET("/plans/:id", h.GetPlan)
	r.PUT("/feedback", h.SubmitFeedback)
	r.GET("/employees/:id/feedback", h.ListEmployeeFeedback)
	r.GET("/employees/:id/satisfaction", h.GetSatisfaction)
	r.GET("/feedback/alerts", h.ListAlerts)
	return r
}

func doJSON(t *testing.T, r http.Handler, method, path, body string, hdr map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	for k, v := range hdr {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

const officeBody = `{
  "employees": [
    {"employee_id": "E1", "team": "core", "preferred_zone": "A"},
    {"employee_id": "E2", "team": "core", "needs_accessible": true}
  ],
  "seats": [
    {"seat_id": "S1", "zone": "A"},
    {"seat_id": "S2", "zone": "B", "is_accessible": true}
  ],
  "capacity": 2,
  "days": ["Monday"]
}`

func contains(s, sub string) bool { return strings.Contains(s, sub) }
