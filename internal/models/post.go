package models

import (
	"time"
)

// Post represents a code submission posted for review.
//
// ContentsType splits the board in two: true is a general development post,
// false is a coding-test post (which must carry a ProblemStatement).
// LangTags and StackTags are normalized lowercase CSV lists with no
// duplicates; normalization happens in the service layer before persistence.
type Post struct {
	ID      uint   `gorm:"primaryKey" json:"id"`
	UserID  uint   `gorm:"not null;index" json:"user_id"`
	User    *User  `gorm:"foreignKey:UserID" json:"user,omitempty"`
	Title   string `gorm:"size:200;not null" json:"title"`
	Content string `gorm:"type:text;not null" json:"content"`
	Code    string `gorm:"type:text;not null" json:"code"`
	// Summary states what feedback the author is looking for.
	Summary          string `gorm:"type:text;not null" json:"summary"`
	ContentsType     bool   `gorm:"not null" json:"contents_type"`
	LangTags         string `gorm:"size:500" json:"lang_tags"`
	StackTags        string `gorm:"size:500" json:"stack_tags"`
	GithubRepoURL    string `gorm:"size:300" json:"github_repo_url"`
	ProblemStatement string `gorm:"type:text" json:"problem_statement"`
	AIFeedback       string `gorm:"type:text" json:"ai_feedback"`

	// Aggregate counters maintained by companion operations, not recomputed
	// from underlying rows.
	LikesCount    int `gorm:"not null;default:0" json:"likes_count"`
	Views         int `gorm:"not null;default:0" json:"views"`
	ScrapCount    int `gorm:"not null;default:0" json:"scrap_count"`
	FeedbackCount int `gorm:"not null;default:0" json:"feedback_count"`

	// Per-viewer flags resolved at read time, never persisted.
	Liked    bool `gorm:"-" json:"liked"`
	Scrapped bool `gorm:"-" json:"scrapped"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
