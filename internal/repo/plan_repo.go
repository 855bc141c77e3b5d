// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for PlanRun audit
// records.
//
// Functions follow the thin-repository approach: persistence and query
// composition only. A missing run is reported as ErrNotFound.
package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tbourn/go-seat-planner/internal/domain"
)

// ErrNotFound is returned when a requested record does not exist.
// It aliases gorm.ErrRecordNotFound.
var ErrNotFound = gorm.ErrRecordNotFound

// CreatePlanRun inserts run, assigning an ID and CreatedAt when unset.
func CreatePlanRun(ctx context.Context, db *gorm.DB, run *domain.PlanRun) error {
	if run.ID == "" {
		run.ID = uuid.NewString()
	}
	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now().UTC()
	}
	return db.WithContext(ctx).Create(run).Error
}

// GetPlanRun fetches a run by ID and owner.
func GetPlanRun(ctx context.Context, db *gorm.DB, id, userID string) (*domain.PlanRun, error) {
	var run domain.PlanRun
	err := db.WithContext(ctx).
		Where("id = ? AND user_id = ?", id, userID).
		First(&run).Error
	if err != nil {
		return nil, err
	}
	return &run, nil
}

// CountPlanRuns returns the number of runs owned by userID.
func CountPlanRuns(ctx context.Context, db *gorm.DB, userID string) (int64, error) {
	var total int64
	err := db.WithContext(ctx).
		Model(&domain.PlanRun{}).
		Where("user_id = ?", userID).
		Count(&total).Error
	return total, err
}

// ListPlanRunsPage returns a page of runs for userID, newest first. The
// stored result payload is not loaded.
func ListPlanRunsPage(ctx context.Context, db *gorm.DB, userID string, offset, limit int) ([]domain.PlanRun, error) {
	var out []domain.PlanRun
	err := db.WithContext(ctx).
		Omit("result").
		Where("user_id = ?", userID).
		Order("created_at desc").
		Order("id").
		Offset(offset).
		Limit(limit).
		Find(&out).Error
	return out, err
}
