package domain

import (
	"testing"
	"time"
)

func TestIdempotency_UniquePerUserScopeKey(t *testing.T) {
	db := newTestDB(t)
	if err := db.AutoMigrate(&Idempotency{}); err != nil {
		t.Fatalf("automigrate: %v", err)
	}

	now := time.Now().UTC()
	rec := Idempotency{ID: "i1", UserID: "u1", Scope: "plans", Key: "k1", ResourceID: "r1", Status: 201, ExpiresAt: now.Add(time.Hour)}
	if err := db.Create(&rec).Error; err != nil {
		t.Fatalf("insert: %v", err)
	}
	if rec.CreatedAt.IsZero() {
		t.Fatalf("CreatedAt should be set automatically")
	}

	dup := rec
	dup.ID = "i2"
	if err := db.Create(&dup).Error; err == nil {
		t.Fatalf("expected unique violation")
	}

	other := rec
	other.ID, other.Scope = "i3", "feedback"
	if err := db.Create(&other).Error; err != nil {
		t.Fatalf("same key in another scope must be allowed: %v", err)
	}
}
