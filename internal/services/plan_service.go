// Package services – PlanService
//
// This file implements PlanService, which runs the seat-planning engine on
// behalf of a user and keeps an audit record of every successful run. The
// feedback snapshot is taken once when a run starts, so satisfaction that
// arrives while a run is in flight only affects later runs.
//
// Observability: public methods are OpenTelemetry-instrumented and planning
// outcomes are counted in Prometheus.
package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/tbourn/go-seat-planner/internal/domain"
	"github.com/tbourn/go-seat-planner/internal/feedback"
	"github.com/tbourn/go-seat-planner/internal/observability"
	"github.com/tbourn/go-seat-planner/internal/planner"
)

// PlanRepo defines the repository contract required by PlanService.
type PlanRepo interface {
	// CreatePlanRun inserts a run, assigning its ID.
	CreatePlanRun(ctx context.Context, db *gorm.DB, run *domain.PlanRun) error
	// GetPlanRun fetches a run owned by userID.
	GetPlanRun(ctx context.Context, db *gorm.DB, id, userID string) (*domain.PlanRun, error)
	// CountPlanRuns returns the number of runs owned by userID.
	CountPlanRuns(ctx context.Context, db *gorm.DB, userID string) (int64, error)
	// ListPlanRunsPage returns a page of runs, newest first.
	ListPlanRunsPage(ctx context.Context, db *gorm.DB, userID string, offset, limit int) ([]domain.PlanRun, error)
	// PlanRunsStats returns the count and newest creation time for ETags.
	PlanRunsStats(ctx context.Context, db *gorm.DB, userID string) (int64, *time.Time, error)
}

// SnapshotSource yields the current feedback snapshot. *feedback.Aggregator
// implements it.
type SnapshotSource interface {
	Snapshot() *feedback.Snapshot
}

// PlanResponse is the body returned for a planning run. It is stored verbatim
// so that a later lookup returns exactly what the run returned.
type PlanResponse struct {
	ID string `json:"id"`
	planner.Result
	Alerts    []feedback.Alert `json:"alerts"`
	CreatedAt time.Time        `json:"created_at"`
}

// PlanService coordinates planning runs and their audit trail.
type PlanService struct {
	DB       *gorm.DB
	Repo     PlanRepo
	Engine   *planner.Engine
	Feedback SnapshotSource
}

// NewPlanService constructs a PlanService. fb may be nil, in which case runs
// are scored without satisfaction history.
func NewPlanService(db *gorm.DB, r PlanRepo, engine *planner.Engine, fb SnapshotSource) *PlanService {
	return &PlanService{DB: db, Repo: r, Engine: engine, Feedback: fb}
}

// Validate normalizes req without running it. Failures wrap ErrInvalidPlan.
func (s *PlanService) Validate(ctx context.Context, req planner.Request) error {
	_, span := otel.Tracer("services/PlanService").Start(ctx, "Validate")
	defer span.End()

	if _, err := s.Engine.Validate(req); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidPlan, err)
	}
	return nil
}

// Plan runs the engine for userID and persists the run.
//
// Input errors wrap ErrInvalidPlan and are never persisted. Capacity and
// seating problems are part of a successful response's warnings.
func (s *PlanService) Plan(ctx context.Context, userID string, req planner.Request) (*PlanResponse, error) {
	tr := otel.Tracer("services/PlanService")
	ctx, span := tr.Start(ctx, "Plan",
		trace.WithAttributes(
			attribute.String("user.id", userID),
			attribute.Int("plan.employees", len(req.Employees)),
			attribute.Int("plan.seats", len(req.Seats)),
		),
	)
	defer span.End()

	start := time.Now()
	in, err := s.Engine.Validate(req)
	if err != nil {
		observability.PlanRuns.WithLabelValues("invalid").Inc()
		return nil, fmt.Errorf("%w: %w", ErrInvalidPlan, err)
	}

	var (
		view   planner.FeedbackView
		alerts = []feedback.Alert{}
	)
	if s.Feedback != nil {
		if snap := s.Feedback.Snapshot(); snap != nil {
			view = snap.View(in.Seats)
			alerts = snap.Alerts()
		}
	}

	res, err := s.Engine.Plan(ctx, req, view)
	if err != nil {
		observability.PlanRuns.WithLabelValues("error").Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, "plan failed")
		var verr *planner.ValidationError
		if errors.As(err, &verr) {
			return nil, fmt.Errorf("%w: %w", ErrInvalidPlan, err)
		}
		return nil, err
	}
	s.record(res, time.Since(start))
	span.SetAttributes(
		attribute.Int("plan.seated", res.Meta.Seated),
		attribute.Int("plan.unseated", res.Meta.Unseated),
		attribute.Bool("plan.degraded", res.Meta.Degraded),
	)

	out := &PlanResponse{Result: *res, Alerts: alerts, CreatedAt: time.Now().UTC()}
	run := &domain.PlanRun{
		UserID:          userID,
		Days:            joinDays(res.Meta.Days),
		Employees:       len(in.Employees),
		Seats:           len(in.Seats),
		Attending:       res.Meta.Attending,
		Seated:          res.Meta.Seated,
		Unseated:        res.Meta.Unseated,
		Warnings:        len(res.Warnings),
		Errors:          countErrors(res.Warnings),
		Degraded:        res.Meta.Degraded,
		FeedbackVersion: int64(res.Meta.FeedbackVersion),
		CreatedAt:       out.CreatedAt,
	}

	// The ID must be known before the payload is encoded.
	run.ID = uuid.NewString()
	out.ID = run.ID
	body, err := json.Marshal(out)
	if err != nil {
		return nil, err
	}
	run.Result = string(body)
	err = s.Repo.CreatePlanRun(ctx, s.DB, run)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	log.Info().
		Str("run_id", run.ID).
		Str("user_id", userID).
		Int("seated", run.Seated).
		Int("unseated", run.Unseated).
		Int("warnings", run.Warnings).
		Bool("degraded", run.Degraded).
		Msg("plan run completed")
	return out, nil
}

// Get returns the stored response of a run owned by userID.
func (s *PlanService) Get(ctx context.Context, userID, id string) (*PlanResponse, error) {
	_, span := otel.Tracer("services/PlanService").Start(ctx, "Get",
		trace.WithAttributes(attribute.String("run.id", id)),
	)
	defer span.End()

	run, err := s.Repo.GetPlanRun(ctx, s.DB, id, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPlanNotFound
		}
		return nil, err
	}
	var out PlanResponse
	if err := json.Unmarshal([]byte(run.Result), &out); err != nil {
		return nil, fmt.Errorf("decode stored run %s: %w", id, err)
	}
	return &out, nil
}

// ListPage returns a page of run summaries for userID and the total count.
func (s *PlanService) ListPage(ctx context.Context, userID string, page, pageSize int) ([]domain.PlanRun, int64, error) {
	_, span := otel.Tracer("services/PlanService").Start(ctx, "ListPage",
		trace.WithAttributes(
			attribute.String("user.id", userID),
			attribute.Int("page", page),
			attribute.Int("page_size", pageSize),
		),
	)
	defer span.End()

	if page < 1 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = 20
	}
	total, err := s.Repo.CountPlanRuns(ctx, s.DB, userID)
	if err != nil {
		return nil, 0, err
	}
	if total == 0 {
		return []domain.PlanRun{}, 0, nil
	}
	items, err := s.Repo.ListPlanRunsPage(ctx, s.DB, userID, (page-1)*pageSize, pageSize)
	return items, total, err
}

// Stats returns the run count and newest run time, for conditional responses.
func (s *PlanService) Stats(ctx context.Context, userID string) (int64, *time.Time, error) {
	return s.Repo.PlanRunsStats(ctx, s.DB, userID)
}

func (s *PlanService) record(res *planner.Result, took time.Duration) {
	observability.PlanRuns.WithLabelValues("ok").Inc()
	observability.PlanDuration.Observe(took.Seconds())
	for day, m := range res.Meta.Methods {
		observability.MatchMethods.WithLabelValues(string(m), string(day)).Inc()
	}
	if res.Meta.Degraded {
		observability.OptimizerFallbacks.Inc()
	}
	if res.Meta.Unseated > 0 {
		observability.UnseatedEmployees.Add(float64(res.Meta.Unseated))
	}
}

func joinDays(days []planner.Weekday) string {
	parts := make([]string, len(days))
	for i, d := range days {
		parts[i] = string(d)
	}
	return strings.Join(parts, ",")
}

func countErrors(ws []planner.Warning) int {
	n := 0
	for _, w := range ws {
		if w.Severity == planner.SeverityError {
			n++
		}
	}
	return n
}
