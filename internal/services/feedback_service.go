// Package services – FeedbackService
//
// This file implements FeedbackService, which records an employee's
// satisfaction with the seat they used on a given date. Records are upserted
// by (employee, date, seat); the stored row is the source of truth and the
// in-memory aggregate that feeds the planner is updated asynchronously.
//
// Service-level errors (ErrInvalidFeedback, ErrFeedbackPersistence) are
// returned for predictable cases so handlers can map them to HTTP results.
package services

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/tbourn/go-seat-planner/internal/domain"
	"github.com/tbourn/go-seat-planner/internal/feedback"
	"github.com/tbourn/go-seat-planner/internal/observability"
)

// MaxCommentRunes caps the free-text comment stored with a record.
const MaxCommentRunes = 2000

// FeedbackRepo defines the repository contract required by FeedbackService.
type FeedbackRepo interface {
	// UpsertFeedback inserts or replaces the row with the same key and
	// returns the stored row.
	UpsertFeedback(ctx context.Context, db *gorm.DB, fb *domain.SatisfactionFeedback) (*domain.SatisfactionFeedback, error)
	// CountEmployeeFeedback returns the number of rows for an employee.
	CountEmployeeFeedback(ctx context.Context, db *gorm.DB, employeeID string) (int64, error)
	// ListEmployeeFeedbackPage returns a page of an employee's rows.
	ListEmployeeFeedbackPage(ctx context.Context, db *gorm.DB, employeeID string, offset, limit int) ([]domain.SatisfactionFeedback, error)
	// EachFeedback streams every stored row in batches.
	EachFeedback(ctx context.Context, db *gorm.DB, batch int, fn func([]domain.SatisfactionFeedback) error) error
	// FeedbackStats returns the row count and newest update time for ETags.
	FeedbackStats(ctx context.Context, db *gorm.DB, employeeID string) (int64, *time.Time, error)
}

// Aggregate is the in-memory satisfaction model. *feedback.Aggregator
// implements it.
type Aggregate interface {
	Submit(ctx context.Context, e feedback.Entry) error
	Apply(entries ...feedback.Entry) error
	Snapshot() *feedback.Snapshot
}

// FeedbackInput is a satisfaction submission.
type FeedbackInput struct {
	EmployeeID        string `json:"employee_id"        example:"E001"`
	AssignmentDate    string `json:"assignment_date"    example:"2025-01-06"`
	SeatID            string `json:"seat_id"            example:"S-2-014"`
	SatisfactionScore int    `json:"satisfaction_score" example:"4"`
	ComfortRating     *int   `json:"comfort_rating,omitempty"`
	LocationRating    *int   `json:"location_rating,omitempty"`
	AmenitiesRating   *int   `json:"amenities_rating,omitempty"`
	WouldRecommend    *bool  `json:"would_recommend,omitempty"`
	Comments          string `json:"comments,omitempty"`
	// SeatZone and SeatIsWindow describe the seat as experienced. They let
	// the planner learn from seats that are no longer in the inventory.
	SeatZone     string `json:"seat_zone,omitempty"`
	SeatIsWindow *bool  `json:"seat_is_window,omitempty"`
}

func (in FeedbackInput) entry() feedback.Entry {
	return feedback.Entry{
		EmployeeID: in.EmployeeID,
		Date:       in.AssignmentDate,
		SeatID:     in.SeatID,
		Score:      float64(in.SatisfactionScore),
		SeatZone:   in.SeatZone,
		SeatWindow: in.SeatIsWindow,
	}
}

// FeedbackService implements the satisfaction feedback use-cases.
type FeedbackService struct {
	DB   *gorm.DB
	Repo FeedbackRepo
	Agg  Aggregate
}

// NewFeedbackService constructs a FeedbackService.
func NewFeedbackService(db *gorm.DB, r FeedbackRepo, agg Aggregate) *FeedbackService {
	return &FeedbackService{DB: db, Repo: r, Agg: agg}
}

// Submit validates in, upserts it on behalf of userID and queues it for the
// aggregate. Storage failures wrap ErrFeedbackPersistence. A full or stopped
// aggregate queue does not fail the call; the row is already stored and the
// aggregate is rebuilt from storage on start.
func (s *FeedbackService) Submit(ctx context.Context, userID string, in FeedbackInput) (*domain.SatisfactionFeedback, error) {
	tr := otel.Tracer("services/FeedbackService")
	ctx, span := tr.Start(ctx, "Submit",
		trace.WithAttributes(
			attribute.String("employee.id", in.EmployeeID),
			attribute.String("seat.id", in.SeatID),
			attribute.String("assignment.date", in.AssignmentDate),
		),
	)
	defer span.End()

	in.EmployeeID = strings.TrimSpace(in.EmployeeID)
	in.SeatID = strings.TrimSpace(in.SeatID)
	in.AssignmentDate = strings.TrimSpace(in.AssignmentDate)
	in.SeatZone = strings.TrimSpace(in.SeatZone)
	in.Comments = strings.TrimSpace(in.Comments)

	if err := validateFeedback(in); err != nil {
		observability.FeedbackSubmissions.WithLabelValues("invalid").Inc()
		return nil, err
	}

	row := &domain.SatisfactionFeedback{
		EmployeeID:        in.EmployeeID,
		AssignmentDate:    in.AssignmentDate,
		SeatID:            in.SeatID,
		SatisfactionScore: in.SatisfactionScore,
		ComfortRating:     in.ComfortRating,
		LocationRating:    in.LocationRating,
		AmenitiesRating:   in.AmenitiesRating,
		WouldRecommend:    in.WouldRecommend,
		Comments:          in.Comments,
		SeatZone:          in.SeatZone,
		SeatIsWindow:      in.SeatIsWindow,
		SubmittedBy:       userID,
	}
	stored, err := s.Repo.UpsertFeedback(ctx, s.DB, row)
	if err != nil {
		observability.FeedbackSubmissions.WithLabelValues("error").Inc()
		span.RecordError(err)
		return nil, fmt.Errorf("%w: %w", ErrFeedbackPersistence, err)
	}
	observability.FeedbackSubmissions.WithLabelValues("ok").Inc()

	if s.Agg != nil {
		if err := s.Agg.Submit(ctx, in.entry()); err != nil {
			log.Warn().Err(err).
				Str("employee_id", in.EmployeeID).
				Msg("feedback stored but not queued for aggregation")
		}
	}
	return stored, nil
}

// validateFeedback checks identifiers, the date and every rating.
func validateFeedback(in FeedbackInput) error {
	if err := in.entry().Validate(); err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidFeedback, strings.TrimPrefix(err.Error(), feedback.ErrInvalidEntry.Error()+": "))
	}
	ratings := []struct {
		name string
		v    *int
	}{
		{"comfort_rating", in.ComfortRating},
		{"location_rating", in.LocationRating},
		{"amenities_rating", in.AmenitiesRating},
	}
	for _, r := range ratings {
		if r.v != nil && (*r.v < 1 || *r.v > 5) {
			return fmt.Errorf("%w: %s must be within [1,5]", ErrInvalidFeedback, r.name)
		}
	}
	if utf8.RuneCountInString(in.Comments) > MaxCommentRunes {
		return fmt.Errorf("%w: comments exceed %d characters", ErrInvalidFeedback, MaxCommentRunes)
	}
	return nil
}

// ListPage returns a page of an employee's records and the total count.
func (s *FeedbackService) ListPage(ctx context.Context, employeeID string, page, pageSize int) ([]domain.SatisfactionFeedback, int64, error) {
	_, span := otel.Tracer("services/FeedbackService").Start(ctx, "ListPage",
		trace.WithAttributes(
			attribute.String("employee.id", employeeID),
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
	total, err := s.Repo.CountEmployeeFeedback(ctx, s.DB, employeeID)
	if err != nil {
		return nil, 0, err
	}
	if total == 0 {
		return []domain.SatisfactionFeedback{}, 0, nil
	}
	items, err := s.Repo.ListEmployeeFeedbackPage(ctx, s.DB, employeeID, (page-1)*pageSize, pageSize)
	return items, total, err
}

// Stats returns the employee's row count and newest update time.
func (s *FeedbackService) Stats(ctx context.Context, employeeID string) (int64, *time.Time, error) {
	return s.Repo.FeedbackStats(ctx, s.DB, employeeID)
}

// Satisfaction returns the aggregated view of one employee. ok is false when
// no feedback has been aggregated for them yet.
func (s *FeedbackService) Satisfaction(employeeID string) (feedback.EmployeeStats, bool) {
	if s.Agg == nil {
		return feedback.EmployeeStats{}, false
	}
	return s.Agg.Snapshot().Employee(employeeID)
}

// Alerts returns the current low-satisfaction streak candidates.
func (s *FeedbackService) Alerts() []feedback.Alert {
	if s.Agg == nil {
		return []feedback.Alert{}
	}
	return s.Agg.Snapshot().Alerts()
}

// Rebuild loads every stored record into the aggregate. It is called once on
// start, before the aggregate's writer goroutine runs.
func (s *FeedbackService) Rebuild(ctx context.Context) (int, error) {
	if s.Agg == nil {
		return 0, nil
	}
	n := 0
	err := s.Repo.EachFeedback(ctx, s.DB, 500, func(rows []domain.SatisfactionFeedback) error {
		entries := make([]feedback.Entry, 0, len(rows))
		for _, r := range rows {
			entries = append(entries, feedback.Entry{
				EmployeeID: r.EmployeeID,
				Date:       r.AssignmentDate,
				SeatID:     r.SeatID,
				Score:      float64(r.SatisfactionScore),
				SeatZone:   r.SeatZone,
				SeatWindow: r.SeatIsWindow,
			})
		}
		n += len(entries)
		// Rows that no longer validate are skipped; the rest still count.
		if err := s.Agg.Apply(entries...); err != nil {
			log.Warn().Err(err).Msg("stored feedback skipped during rebuild")
		}
		return nil
	})
	if err != nil {
		return n, err
	}
	log.Info().Int("records", n).Uint64("version", s.Agg.Snapshot().Version()).Msg("feedback aggregate rebuilt")
	return n, nil
}
