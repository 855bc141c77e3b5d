package services

import (
	"context"
	"fmt"
	"testing"
	"time"

	sqlite "github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/tbourn/go-seat-planner/internal/domain"
	"github.com/tbourn/go-seat-planner/internal/repo"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:services_%s?mode=memory&cache=shared", uuid.NewString())

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := repo.AutoMigrate(db); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	return db
}

// dbRepo satisfies PlanRepo and FeedbackRepo with the real repository.
type dbRepo struct{}

func (dbRepo) CreatePlanRun(ctx context.Context, db *gorm.DB, run *domain.PlanRun) error {
	return repo.CreatePlanRun(ctx, db, run)
}

func (dbRepo) GetPlanRun(ctx context.Context, db *gorm.DB, id, userID string) (*domain.PlanRun, error) {
	return repo.GetPlanRun(ctx, db, id, userID)
}

func (dbRepo) CountPlanRuns(ctx context.Context, db *gorm.DB, userID string) (int64, error) {
	return repo.CountPlanRuns(ctx, db, userID)
}

func (dbRepo) ListPlanRunsPage(ctx context.Context, db *gorm.DB, userID string, offset, limit int) ([]domain.PlanRun, error) {
	return repo.ListPlanRunsPage(ctx, db, userID, offset, limit)
}

func (dbRepo) PlanRunsStats(ctx context.Context, db *gorm.DB, userID string) (int64, *time.Time, error) {
	return repo.PlanRunsStats(ctx, db, userID)
}

func (dbRepo) UpsertFeedback(ctx context.Context, db *gorm.DB, fb *domain.SatisfactionFeedback) (*domain.SatisfactionFeedback, error) {
	return repo.UpsertFeedback(ctx, db, fb)
}

func (dbRepo) CountEmployeeFeedback(ctx context.Context, db *gorm.DB, employeeID string) (int64, error) {
	return repo.CountEmployeeFeedback(ctx, db, employeeID)
}

func (dbRepo) ListEmployeeFeedbackPage(ctx context.Context, db *gorm.DB, employeeID string, offset, limit int) ([]domain.SatisfactionFeedback, error) {
	return repo.ListEmployeeFeedbackPage(ctx, db, employeeID, offset, limit)
}

func (dbRepo) EachFeedback(ctx context.Context, db *gorm.DB, batch int, fn func([]domain.SatisfactionFeedback) error) error {
	return repo.EachFeedback(ctx, db, batch, fn)
}

func (dbRepo) FeedbackStats(ctx context.Context, db *gorm.DB, employeeID string) (int64, *time.Time, error) {
	return repo.FeedbackStats(ctx, db, employeeID)
}
