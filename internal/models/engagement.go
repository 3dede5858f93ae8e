package models

import (
	"time"
)

// PostLike records that a user liked a post. Existence implies "liked";
// rows are toggled, never updated.
type PostLike struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"not null;uniqueIndex:idx_post_like" json:"user_id"`
	PostID    uint      `gorm:"not null;uniqueIndex:idx_post_like" json:"post_id"`
	CreatedAt time.Time `json:"created_at"`
}

// PostScrap records that a user scrapped (saved) a post.
type PostScrap struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"not null;uniqueIndex:idx_post_scrap" json:"user_id"`
	PostID    uint      `gorm:"not null;uniqueIndex:idx_post_scrap" json:"post_id"`
	CreatedAt time.Time `json:"created_at"`
}

// FeedbackLike records that a user liked a feedback.
type FeedbackLike struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	UserID     uint      `gorm:"not null;uniqueIndex:idx_feedback_like" json:"user_id"`
	FeedbackID uint      `gorm:"not null;uniqueIndex:idx_feedback_like" json:"feedback_id"`
	CreatedAt  time.Time `json:"created_at"`
}
