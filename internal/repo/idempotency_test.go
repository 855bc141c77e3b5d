package repo

import (
	"context"
	"testing"
	"time"

	"github.com/tbourn/go-seat-planner/internal/domain"
)

func TestGetIdempotency_BlankScopeOrKey_ReturnsNotFound(t *testing.T) {
	db := newTestDB(t, &domain.Idempotency{})
	now := time.Now().UTC()

	for _, tc := range []struct{ scope, key string }{{"   ", "k1"}, {"plans", ""}} {
		rec, err := GetIdempotency(context.Background(), db, "u1", tc.scope, tc.key, now)
		if rec != nil || err != ErrNotFound {
			t.Fatalf("scope=%q key=%q: expected (nil, ErrNotFound), got (%v, %v)", tc.scope, tc.key, rec, err)
		}
	}
}

func TestGetIdempotency_ExpiredOrMissing_ReturnsNotFound(t *testing.T) {
	db := newTestDB(t, &domain.Idempotency{})
	now := time.Now().UTC()

	exp := &domain.Idempotency{
		ID:         "expired",
		UserID:     "u1",
		Scope:      "plans",
		Key:        "k1",
		ResourceID: "r1",
		Status:     201,
		CreatedAt:  now.Add(-2 * time.Hour),
		ExpiresAt:  now.Add(-time.Hour),
	}
	if err := db.Create(exp).Error; err != nil {
		t.Fatalf("seed expired: %v", err)
	}

	if rec, err := GetIdempotency(context.Background(), db, "u1", "plans", "k1", now); rec != nil || err != ErrNotFound {
		t.Fatalf("expected (nil, ErrNotFound) for expired, got (%v, %v)", rec, err)
	}
	if rec, err := GetIdempotency(context.Background(), db, "u1", "plans", "missing", now); rec != nil || err != ErrNotFound {
		t.Fatalf("expected (nil, ErrNotFound) for missing, got (%v, %v)", rec, err)
	}
}

func TestCreateIdempotency_SuccessGetAndDuplicate(t *testing.T) {
	db := newTestDB(t, &domain.Idempotency{})
	ctx := context.Background()

	ttl := 90 * time.Minute
	start := time.Now().UTC()

	rec, err := CreateIdempotency(ctx, db, "u9", "plans", "k9", "run-9", 201, ttl)
	if err != nil {
		t.Fatalf("CreateIdempotency error: %v", err)
	}
	if rec.ID == "" || rec.Scope != "plans" || rec.ResourceID != "run-9" || rec.Status != 201 {
		t.Fatalf("unexpected record: %+v", rec)
	}
	if !(rec.ExpiresAt.After(start) && rec.ExpiresAt.Before(start.Add(2*time.Hour))) {
		t.Fatalf("unexpected ExpiresAt: %v", rec.ExpiresAt)
	}

	got, err := GetIdempotency(ctx, db, "u9", "plans", "k9", time.Now().UTC())
	if err != nil || got.ResourceID != "run-9" {
		t.Fatalf("GetIdempotency = %+v, %v", got, err)
	}

	// Same key under a different scope is a different record.
	if _, err := CreateIdempotency(ctx, db, "u9", "feedback", "k9", "fb-1", 200, ttl); err != nil {
		t.Fatalf("other scope should not collide: %v", err)
	}

	if _, err := CreateIdempotency(ctx, db, "u9", "plans", "k9", "run-X", 201, ttl); err != ErrDuplicate {
		t.Fatalf("expected ErrDuplicate, got %v", err)
	}
}

func TestCreateIdempotency_Error_NoTable(t *testing.T) {
	db := newTestDB(t)
	_, err := CreateIdempotency(context.Background(), db, "uX", "plans", "kX", "rX", 201, time.Minute)
	if err == nil || err == ErrDuplicate {
		t.Fatalf("expected non-duplicate error when table is missing, got %v", err)
	}
}

func TestPurgeExpiredIdempotency(t *testing.T) {
	db := newTestDB(t, &domain.Idempotency{})
	now := time.Now().UTC()
	rows := []domain.Idempotency{
		{ID: "old", UserID: "u", Scope: "plans", Key: "a", ResourceID: "r", Status: 201, CreatedAt: now, ExpiresAt: now.Add(-time.Minute)},
		{ID: "new", UserID: "u", Scope: "plans", Key: "b", ResourceID: "r", Status: 201, CreatedAt: now, ExpiresAt: now.Add(time.Hour)},
	}
	if err := db.Create(&rows).Error; err != nil {
		t.Fatalf("seed: %v", err)
	}

	n, err := PurgeExpiredIdempotency(context.Background(), db, now)
	if err != nil || n != 1 {
		t.Fatalf("PurgeExpiredIdempotency = %d, %v; want 1", n, err)
	}
}
