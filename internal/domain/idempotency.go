package domain

import "time"

// Idempotency records the outcome of a completed unsafe request, keyed by
// (user_id, scope, key). Scope names the operation ("plans"); ResourceID is
// the identifier of what the original request created, so a retry can be
// answered by loading that resource instead of repeating the work.
type Idempotency struct {
	ID         string    `gorm:"type:varchar(36);not null;primaryKey"`
	UserID     string    `gorm:"type:varchar(64);not null;uniqueIndex:ux_user_scope_key,priority:1"`
	Scope      string    `gorm:"type:varchar(64);not null;uniqueIndex:ux_user_scope_key,priority:2"`
	Key        string    `gorm:"type:varchar(200);not null;uniqueIndex:ux_user_scope_key,priority:3"`
	ResourceID string    `gorm:"type:varchar(64);not null"`
	Status     int       `gorm:"not null"`
	CreatedAt  time.Time `gorm:"not null;autoCreateTime"`
	ExpiresAt  time.Time `gorm:"not null;index"`
}

// TableName implements the GORM tabler interface.
func (Idempotency) TableName() string { return "idempotency" }
