// Package httpapi wires the HTTP transport (Gin) to the planning and
// feedback services, middleware, and route handlers. It centralizes the
// cross-cutting concerns: tracing, correlation IDs, scrubbed access logs,
// panic recovery, metrics, optional bearer identity, idempotency, rate
// limiting, CORS and security headers.
package httpapi

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"gorm.io/gorm"

	"github.com/tbourn/go-seat-planner/docs"
	"github.com/tbourn/go-seat-planner/internal/config"
	"github.com/tbourn/go-seat-planner/internal/domain"
	"github.com/tbourn/go-seat-planner/internal/feedback"
	"github.com/tbourn/go-seat-planner/internal/http/handlers"
	"github.com/tbourn/go-seat-planner/internal/http/middleware"
	"github.com/tbourn/go-seat-planner/internal/planner"
	"github.com/tbourn/go-seat-planner/internal/repo"
	"github.com/tbourn/go-seat-planner/internal/services"
)

// planRepoShim adapts the repo free functions to services.PlanRepo.
type planRepoShim struct{}

func (planRepoShim) CreatePlanRun(ctx context.Context, db *gorm.DB, run *domain.PlanRun) error {
	return repo.CreatePlanRun(ctx, db, run)
}

func (planRepoShim) GetPlanRun(ctx context.Context, db *gorm.DB, id, userID string) (*domain.PlanRun, error) {
	return repo.GetPlanRun(ctx, db, id, userID)
}

func (planRepoShim) CountPlanRuns(ctx context.Context, db *gorm.DB, userID string) (int64, error) {
	return repo.CountPlanRuns(ctx, db, userID)
}

func (planRepoShim) ListPlanRunsPage(ctx context.Context, db *gorm.DB, userID string, offset, limit int) ([]domain.PlanRun, error) {
	return repo.ListPlanRunsPage(ctx, db, userID, offset, limit)
}

func (planRepoShim) PlanRunsStats(ctx context.Context, db *gorm.DB, userID string) (int64, *time.Time, error) {
	return repo.PlanRunsStats(ctx, db, userID)
}

// feedbackRepoShim adapts the repo free functions to services.FeedbackRepo.
type feedbackRepoShim struct{}

func (feedbackRepoShim) UpsertFeedback(ctx context.Context, db *gorm.DB, fb *domain.SatisfactionFeedback) (*domain.SatisfactionFeedback, error) {
	return repo.UpsertFeedback(ctx, db, fb)
}

func (feedbackRepoShim) CountEmployeeFeedback(ctx context.Context, db *gorm.DB, employeeID string) (int64, error) {
	return repo.CountEmployeeFeedback(ctx, db, employeeID)
}

func (feedbackRepoShim) ListEmployeeFeedbackPage(ctx context.Context, db *gorm.DB, employeeID string, offset, limit int) ([]domain.SatisfactionFeedback, error) {
	return repo.ListEmployeeFeedbackPage(ctx, db, employeeID, offset, limit)
}

func (feedbackRepoShim) EachFeedback(ctx context.Context, db *gorm.DB, batch int, fn func([]domain.SatisfactionFeedback) error) error {
	return repo.EachFeedback(ctx, db, batch, fn)
}

func (feedbackRepoShim) FeedbackStats(ctx context.Context, db *gorm.DB, employeeID string) (int64, *time.Time, error) {
	return repo.FeedbackStats(ctx, db, employeeID)
}

// idemStore adapts the idempotency repo to handlers.IdempotencyStore. A
// positive ttl overrides the handler default.
type idemStore struct {
	db  *gorm.DB
	ttl time.Duration
}

func (s idemStore) Get(ctx context.Context, userID, scope, key string, now time.Time) (*domain.Idempotency, error) {
	return repo.GetIdempotency(ctx, s.db, userID, scope, key, now)
}

func (s idemStore) Create(ctx context.Context, userID, scope, key, resourceID string, status int, ttl time.Duration) error {
	if s.ttl > 0 {
		ttl = s.ttl
	}
	_, err := repo.CreateIdempotency(ctx, s.db, userID, scope, key, resourceID, status, ttl)
	return err
}

// Services are the application services behind the routes.
type Services struct {
	Plans    *services.PlanService
	Feedback *services.FeedbackService
}

// NewServices builds the services over db. agg may be nil, which disables
// satisfaction learning.
func NewServices(db *gorm.DB, engine *planner.Engine, agg *feedback.Aggregator) Services {
	var (
		snap services.SnapshotSource
		ag   services.Aggregate
	)
	if agg != nil {
		snap, ag = agg, agg
	}
	return Services{
		Plans:    services.NewPlanService(db, planRepoShim{}, engine, snap),
		Feedback: services.NewFeedbackService(db, feedbackRepoShim{}, ag),
	}
}

// RegisterRoutes attaches all middleware and HTTP endpoints to r.
//
// Middleware order matters:
//  1. OpenTelemetry
//  2. RequestID
//  3. AccessLog (scrubbed, request-scoped logger)
//  4. Recovery
//  5. Body size limit
//  6. Metrics
//  7. BearerAuth (identity must be known before idempotency and limits)
//  8. Idempotency validator (before the limiter so replays bypass it)
//  9. Rate limiter
//  10. CORS and security headers
func RegisterRoutes(r *gin.Engine, db *gorm.DB, svcs Services, cfg config.Config) {
	r.HandleMethodNotAllowed = true

	r.Use(otelgin.Middleware(cfg.OTEL.ServiceName))
	r.Use(middleware.RequestID())
	r.Use(middleware.AccessLog(middleware.AccessLogOptions{
		Redact:        middleware.RedactOptions{MaskHeaders: []string{"X-API-Key"}},
		SlowThreshold: cfg.SlowRequest,
	}))
	r.Use(middleware.Recovery())
	r.Use(limitBody(cfg.MaxBodyBytes))

	r.Use(middleware.Metrics())
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	r.Use(middleware.BearerAuth([]byte(cfg.Security.JWTSecret)))

	idem := idemStore{db: db, ttl: cfg.IdempotencyTTL}
	r.Use(middleware.IdempotencyValidator(
		middleware.IdempotencyOptions{MaxLen: 200},
		func(ctx context.Context, userID, scope, key string, now time.Time) (bool, error) {
			rec, err := idem.Get(ctx, userID, scope, key, now)
			if errors.Is(err, repo.ErrNotFound) {
				return false, nil
			}
			return rec != nil, err
		},
	))

	rl := middleware.NewRateLimiterWithOptions(cfg.RateRPS, cfg.RateBurst, middleware.KeyByUserOrIP(),
		middleware.RateLimiterOptions{WriteCost: cfg.RateWriteCost})
	r.Use(rl.Handler())

	corsCfg := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PUT", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", "If-None-Match", "X-User-ID", middleware.HeaderIdempotencyKey},
		ExposeHeaders:    []string{"X-Request-ID", "ETag", "Idempotency-Replayed", "Content-Length"},
		AllowCredentials: false,
		MaxAge:           12 * time.Hour,
	}
	if len(cfg.CORS.AllowedOrigins) == 0 {
		// ACAO: * even without an Origin header, so health probes see it too.
		r.Use(func(c *gin.Context) {
			c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
			c.Next()
		})
		corsCfg.AllowAllOrigins = true
	} else {
		corsCfg.AllowOrigins = cfg.CORS.AllowedOrigins
	}
	r.Use(cors.New(corsCfg))

	r.Use(middleware.SecurityHeaders(middleware.SecurityOptions{
		EnableHSTS:   cfg.Security.EnableHSTS,
		HSTSMaxAge:   cfg.Security.HSTSMaxAge,
		NoStore:      true,
		EnablePolicy: true,
		CSP:          middleware.DefaultAPIPolicy,
		CSPExempt:    []string{"/swagger/"},
	}))

	r.NoRoute(func(c *gin.Context) {
		handlers.Fail(c, http.StatusNotFound, handlers.ErrCodeNotFound, "route not found")
	})
	r.NoMethod(func(c *gin.Context) {
		handlers.Fail(c, http.StatusMethodNotAllowed, handlers.ErrCodeMethodNotAllowed, "method not allowed")
	})

	r.GET("/health", health(db))

	if cfg.SwaggerEnabled {
		docs.SwaggerInfo.BasePath = cfg.APIBasePath
		r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	h := handlers.New(svcs.Plans, svcs.Feedback, idem)

	api := groupWithPrefix(r, cfg.APIBasePath)
	{
		api.POST("/plans", h.CreatePlan)
		api.POST("/plans/validate", h.ValidatePlan)
		api.GET("/plans", h.ListPlans)
		api.GET("/plans/:id", h.GetPlan)

		api.PUT("/feedback", h.SubmitFeedback)
		api.POST("/feedback", h.SubmitFeedback)
		api.GET("/feedback/alerts", h.ListAlerts)
		api.GET("/employees/:id/feedback", h.ListEmployeeFeedback)
		api.GET("/employees/:id/satisfaction", h.GetSatisfaction)
	}
}

// health reports liveness plus database reachability. A failed ping is a
// 503 so orchestrators stop routing planning traffic here.
func health(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		if db != nil {
			ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
			defer cancel()
			if sqlDB, err := db.DB(); err != nil || sqlDB.PingContext(ctx) != nil {
				c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded", "database": "unreachable"})
				return
			}
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	}
}

// limitBody caps request bodies at maxBytes; larger bodies fail to bind.
func limitBody(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		c.Next()
	}
}

// groupWithPrefix mounts a group at prefix, treating "/" (or empty) as root.
func groupWithPrefix(r *gin.Engine, prefix string) *gin.RouterGroup {
	if prefix == "" || prefix == "/" {
		return r.Group("")
	}
	return r.Group(prefix)
}
