// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for
// SatisfactionFeedback.
//
// Feedback is upserted: the (employee_id, assignment_date, seat_id) unique
// index is the conflict target, so resubmitting for the same key overwrites
// the stored ratings and never adds a second row.
package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/tbourn/go-seat-planner/internal/domain"
)

// feedbackUpdatable lists the columns overwritten on conflict.
var feedbackUpdatable = []string{
	"satisfaction_score",
	"comfort_rating",
	"location_rating",
	"amenities_rating",
	"would_recommend",
	"comments",
	"seat_zone",
	"seat_is_window",
	"submitted_by",
	"updated_at",
}

// UpsertFeedback inserts fb or updates the row with the same
// (employee_id, assignment_date, seat_id), then returns the stored row.
func UpsertFeedback(ctx context.Context, db *gorm.DB, fb *domain.SatisfactionFeedback) (*domain.SatisfactionFeedback, error) {
	now := time.Now().UTC()
	if fb.ID == "" {
		fb.ID = uuid.NewString()
	}
	if fb.CreatedAt.IsZero() {
		fb.CreatedAt = now
	}
	fb.UpdatedAt = now

	err := db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{
			{Name: "employee_id"},
			{Name: "assignment_date"},
			{Name: "seat_id"},
		},
		DoUpdates: clause.AssignmentColumns(feedbackUpdatable),
	}).Create(fb).Error
	if err != nil {
		return nil, err
	}
	return GetFeedback(ctx, db, fb.EmployeeID, fb.AssignmentDate, fb.SeatID)
}

// GetFeedback loads the row for one (employee, date, seat) key.
func GetFeedback(ctx context.Context, db *gorm.DB, employeeID, date, seatID string) (*domain.SatisfactionFeedback, error) {
	var out domain.SatisfactionFeedback
	err := db.WithContext(ctx).
		Where("employee_id = ? AND assignment_date = ? AND seat_id = ?", employeeID, date, seatID).
		First(&out).Error
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// CountEmployeeFeedback returns the number of rows for employeeID.
func CountEmployeeFeedback(ctx context.Context, db *gorm.DB, employeeID string) (int64, error) {
	var total int64
	err := db.WithContext(ctx).
		Model(&domain.SatisfactionFeedback{}).
		Where("employee_id = ?", employeeID).
		Count(&total).Error
	return total, err
}

// ListEmployeeFeedbackPage returns a page of an employee's feedback, newest
// assignment date first.
func ListEmployeeFeedbackPage(ctx context.Context, db *gorm.DB, employeeID string, offset, limit int) ([]domain.SatisfactionFeedback, error) {
	var out []domain.SatisfactionFeedback
	err := db.WithContext(ctx).
		Where("employee_id = ?", employeeID).
		Order("assignment_date desc").
		Order("seat_id").
		Offset(offset).
		Limit(limit).
		Find(&out).Error
	return out, err
}

// EachFeedback streams every stored row in batches to fn, ordered by
// primary key. It is used to rebuild in-memory aggregates on start.
func EachFeedback(ctx context.Context, db *gorm.DB, batch int, fn func([]domain.SatisfactionFeedback) error) error {
	if batch <= 0 {
		batch = 500
	}
	var rows []domain.SatisfactionFeedback
	return db.WithContext(ctx).
		Order("id").
		FindInBatches(&rows, batch, func(tx *gorm.DB, _ int) error {
			return fn(rows)
		}).Error
}
