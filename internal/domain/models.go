// Package domain defines the persistence models of the seat planner: plan-run
// audit records, satisfaction feedback and idempotency records. These types
// are mapped with GORM and shared by the repo and services layers.
package domain

import (
	"time"

	"gorm.io/gorm"
)

// PlanRun is the audit record of one planning run. The computed result is
// stored verbatim so that GET /plans/{id} returns exactly what the original
// request returned; warnings are never treated as a source of truth.
//
// Fields:
//   - ID: UUID primary key (char(36)).
//   - UserID: identity that requested the run; indexed for listing.
//   - Days: comma-separated planned weekdays ("Mon,Tue").
//   - Employees / Seats: input sizes.
//   - Attending / Seated / Unseated: result totals over all days.
//   - Warnings / Errors: warning count and error-severity warning count.
//   - Degraded: the remote optimizer failed and local matching was used.
//   - FeedbackVersion: feedback snapshot version the run was scored with.
//   - Result: JSON-encoded planner.Result.
type PlanRun struct {
	ID              string         `json:"id"               gorm:"type:char(36);primaryKey"`
	UserID          string         `json:"user_id"          gorm:"type:varchar(64);not null;index:idx_user_runs,priority:1"`
	Days            string         `json:"days"             gorm:"type:varchar(32);not null"`
	Employees       int            `json:"employees"        gorm:"not null"`
	Seats           int            `json:"seats"            gorm:"not null"`
	Attending       int            `json:"attending"        gorm:"not null"`
	Seated          int            `json:"seated"           gorm:"not null"`
	Unseated        int            `json:"unseated"         gorm:"not null"`
	Warnings        int            `json:"warnings"         gorm:"not null"`
	Errors          int            `json:"errors"           gorm:"not null"`
	Degraded        bool           `json:"degraded"         gorm:"not null;default:false"`
	FeedbackVersion int64          `json:"feedback_version" gorm:"not null;default:0"`
	Result          string         `json:"-"                gorm:"type:text;not null"`
	CreatedAt       time.Time      `json:"created_at"       gorm:"index:idx_user_runs,priority:2"`
	UpdatedAt       time.Time      `json:"updated_at"`
	DeletedAt       gorm.DeletedAt `json:"-"                gorm:"index"`
}

// TableName returns the database table name for PlanRun.
func (PlanRun) TableName() string { return "plan_runs" }

// SatisfactionFeedback is an employee's rating of the seat they used on one
// date. (employee_id, assignment_date, seat_id) is unique: resubmitting
// replaces the stored values instead of adding a row.
//
// The optional sub-ratings share the 1..5 scale of SatisfactionScore.
// SeatZone and SeatIsWindow capture the seat as the employee experienced it;
// the feedback aggregator prefers them over the current inventory.
type SatisfactionFeedback struct {
	ID                string    `json:"id"                         gorm:"type:char(36);primaryKey"`
	EmployeeID        string    `json:"employee_id"                gorm:"type:varchar(64);not null;uniqueIndex:ux_feedback_employee_date_seat,priority:1"`
	AssignmentDate    string    `json:"assignment_date"            gorm:"type:varchar(10);not null;uniqueIndex:ux_feedback_employee_date_seat,priority:2"`
	SeatID            string    `json:"seat_id"                    gorm:"type:varchar(64);not null;uniqueIndex:ux_feedback_employee_date_seat,priority:3"`
	SatisfactionScore int       `json:"satisfaction_score"         gorm:"not null;check:satisfaction_score BETWEEN 1 AND 5"`
	ComfortRating     *int      `json:"comfort_rating,omitempty"`
	LocationRating    *int      `json:"location_rating,omitempty"`
	AmenitiesRating   *int      `json:"amenities_rating,omitempty"`
	WouldRecommend    *bool     `json:"would_recommend,omitempty"`
	Comments          string    `json:"comments,omitempty"         gorm:"type:text"`
	SeatZone          string    `json:"seat_zone,omitempty"        gorm:"type:varchar(64)"`
	SeatIsWindow      *bool     `json:"seat_is_window,omitempty"`
	SubmittedBy       string    `json:"submitted_by"               gorm:"type:varchar(64);not null"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"                 gorm:"index"`
}

// TableName returns the database table name for SatisfactionFeedback.
func (SatisfactionFeedback) TableName() string { return "satisfaction_feedback" }
