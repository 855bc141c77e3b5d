// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides small aggregate queries used for
// conditional responses (ETag generation) in the HTTP layer.
package repo

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/tbourn/go-seat-planner/internal/domain"
)

// PlanRunsStats returns the number of runs owned by userID and the newest
// CreatedAt among them (nil when there are none).
func PlanRunsStats(ctx context.Context, db *gorm.DB, userID string) (count int64, latest *time.Time, err error) {
	q := db.WithContext(ctx).Model(&domain.PlanRun{}).Where("user_id = ?", userID)
	return countAndLatest(q, "created_at")
}

// FeedbackStats returns the number of feedback rows for employeeID and the
// newest UpdatedAt among them (nil when there are none).
func FeedbackStats(ctx context.Context, db *gorm.DB, employeeID string) (count int64, latest *time.Time, err error) {
	q := db.WithContext(ctx).Model(&domain.SatisfactionFeedback{}).Where("employee_id = ?", employeeID)
	return countAndLatest(q, "updated_at")
}

func countAndLatest(q *gorm.DB, column string) (int64, *time.Time, error) {
	var count int64
	if err := q.Session(&gorm.Session{}).Count(&count).Error; err != nil {
		return 0, nil, err
	}
	if count == 0 {
		return 0, nil, nil
	}

	// ORDER BY instead of MAX(): SQLite returns MAX() of a datetime as TEXT.
	var row struct {
		At time.Time
	}
	if err := q.Session(&gorm.Session{}).Select(column + " AS at").Order(column + " DESC").Limit(1).Scan(&row).Error; err != nil {
		return 0, nil, err
	}
	return count, &row.At, nil
}
