package models

import (
	"time"
)

// Feedback is a peer review of a Post.
//
// Adopted is flipped at most once per post by the post author; once adopted,
// the feedback can no longer be edited or deleted by its own author.
type Feedback struct {
	ID         uint    `gorm:"primaryKey" json:"id"`
	PostID     uint    `gorm:"not null;index" json:"post_id"`
	UserID     uint    `gorm:"not null;index" json:"user_id"`
	Content    string  `gorm:"type:text;not null" json:"content"`
	Rating     float64 `gorm:"not null" json:"rating"`
	Adopted    bool    `gorm:"not null;default:false" json:"adopted"`
	LikesCount int     `gorm:"not null;default:0" json:"likes_count"`

	Lines    []LineFeedback    `gorm:"foreignKey:FeedbackID;constraint:OnDelete:CASCADE" json:"lines,omitempty"`
	Comments []FeedbackComment `gorm:"foreignKey:FeedbackID;constraint:OnDelete:CASCADE" json:"comments,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// LineFeedback is a comment anchored to a line range of the reviewed code.
// EndLine is nil for single-line comments.
type LineFeedback struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	FeedbackID uint      `gorm:"not null;index" json:"feedback_id"`
	UserID     uint      `gorm:"not null" json:"user_id"`
	Line       int       `gorm:"not null" json:"line"`
	EndLine    *int      `json:"end_line,omitempty"`
	Content    string    `gorm:"type:text;not null" json:"content"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// FeedbackComment is a threaded reply under a Feedback.
type FeedbackComment struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	FeedbackID uint      `gorm:"not null;index" json:"feedback_id"`
	UserID     uint      `gorm:"not null" json:"user_id"`
	Content    string    `gorm:"type:text;not null" json:"content"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}
