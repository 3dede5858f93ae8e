package models

import (
	"time"
)

// Profile carries a user's reputation state. It shares its primary key with
// the owning User row and is created at signup.
//
// Points and Grade are mutated only through the reputation service; Grade is
// derived from Points and never set directly from user input.
type Profile struct {
	UserID               uint       `gorm:"primaryKey" json:"user_id"`
	Picture              string     `gorm:"size:300" json:"picture"`
	Points               int        `gorm:"not null;default:0" json:"points"`
	Grade                string     `gorm:"size:20" json:"grade"`
	PostCount            int        `gorm:"not null;default:0" json:"post_count"`
	TotalFeedbackCount   int        `gorm:"not null;default:0" json:"total_feedback_count"`
	AdoptedFeedbackCount int        `gorm:"not null;default:0" json:"adopted_feedback_count"`
	LastAttendanceDate   *time.Time `json:"last_attendance_date,omitempty"`
	CreatedAt            time.Time  `json:"created_at"`
	UpdatedAt            time.Time  `json:"updated_at"`
}
