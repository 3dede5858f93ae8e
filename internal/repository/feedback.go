package repository

import (
	"context"
	"errors"
	"time"

	"codegardener/internal/models"

	"gorm.io/gorm"
)

// UserCount pairs a user ID with an aggregate count, ordered by the query
// that produced it.
type UserCount struct {
	UserID uint  `json:"user_id"`
	Count  int64 `json:"count"`
}

// FeedbackRepository defines persistence operations for feedback, line
// comments, and replies.
type FeedbackRepository interface {
	Create(ctx context.Context, feedback *models.Feedback) error
	GetByID(ctx context.Context, id uint) (*models.Feedback, error)
	ListByPost(ctx context.Context, postID uint) ([]*models.Feedback, error)
	ListByUser(ctx context.Context, userID uint, limit, offset int) ([]*models.Feedback, error)
	Update(ctx context.Context, feedback *models.Feedback) error
	Delete(ctx context.Context, id uint) error
	MarkAdopted(ctx context.Context, id uint) error
	HasAdoptedFeedback(ctx context.Context, postID uint) (bool, error)
	ToggleLike(ctx context.Context, userID, feedbackID uint) (bool, error)
	AddComment(ctx context.Context, comment *models.FeedbackComment) error
	DeleteComment(ctx context.Context, id uint) error
	GetComment(ctx context.Context, id uint) (*models.FeedbackComment, error)
	AddLine(ctx context.Context, line *models.LineFeedback) error
	UpdateLine(ctx context.Context, line *models.LineFeedback) error
	DeleteLine(ctx context.Context, id uint) error
	GetLine(ctx context.Context, id uint) (*models.LineFeedback, error)
	CountsByUserSince(ctx context.Context, since time.Time, adoptedOnly bool, limit, offset int) ([]UserCount, error)
	CountUsersWithFeedbackSince(ctx context.Context, since time.Time, adoptedOnly bool) (int64, error)
}

type feedbackRepository struct {
	db *gorm.DB
}

// NewFeedbackRepository returns a new FeedbackRepository implementation.
func NewFeedbackRepository(db *gorm.DB) FeedbackRepository {
	return &feedbackRepository{db: db}
}

// Create inserts the feedback (with any line comments) and bumps the post's
// feedback_count in one transaction.
func (r *feedbackRepository) Create(ctx context.Context, feedback *models.Feedback) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(feedback).Error; err != nil {
			return err
		}
		return tx.Model(&models.Post{}).
			Where("id = ?", feedback.PostID).
			UpdateColumn("feedback_count", gorm.Expr("feedback_count + 1")).Error
	})
	if err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

func (r *feedbackRepository) GetByID(ctx context.Context, id uint) (*models.Feedback, error) {
	var feedback models.Feedback
	if err := r.db.WithContext(ctx).
		Preload("Lines").
		Preload("Comments").
		First(&feedback, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundError("Feedback", id)
		}
		return nil, models.NewInternalError(err)
	}
	return &feedback, nil
}

func (r *feedbackRepository) ListByPost(ctx context.Context, postID uint) ([]*models.Feedback, error) {
	var feedbacks []*models.Feedback
	if err := r.db.WithContext(ctx).
		Preload("Lines").
		Preload("Comments").
		Where("post_id = ?", postID).
		Order("adopted DESC, created_at ASC").
		Find(&feedbacks).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return feedbacks, nil
}

func (r *feedbackRepository) ListByUser(ctx context.Context, userID uint, limit, offset int) ([]*models.Feedback, error) {
	var feedbacks []*models.Feedback
	if err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&feedbacks).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return feedbacks, nil
}

func (r *feedbackRepository) Update(ctx context.Context, feedback *models.Feedback) error {
	if err := r.db.WithContext(ctx).
		Omit("Lines", "Comments").
		Save(feedback).Error; err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

// Delete removes the feedback and decrements the post's feedback_count.
// Line comments and replies go with it via the cascade constraint.
func (r *feedbackRepository) Delete(ctx context.Context, id uint) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var feedback models.Feedback
		if err := tx.First(&feedback, id).Error; err != nil {
			return err
		}
		if err := tx.Delete(&models.Feedback{}, id).Error; err != nil {
			return err
		}
		return tx.Model(&models.Post{}).
			Where("id = ? AND feedback_count > 0", feedback.PostID).
			UpdateColumn("feedback_count", gorm.Expr("feedback_count - 1")).Error
	})
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.NewNotFoundError("Feedback", id)
		}
		return models.NewInternalError(err)
	}
	return nil
}

func (r *feedbackRepository) MarkAdopted(ctx context.Context, id uint) error {
	if err := r.db.WithContext(ctx).
		Model(&models.Feedback{}).
		Where("id = ?", id).
		Update("adopted", true).Error; err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

func (r *feedbackRepository) HasAdoptedFeedback(ctx context.Context, postID uint) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&models.Feedback{}).
		Where("post_id = ? AND adopted = ?", postID, true).
		Count(&count).Error; err != nil {
		return false, models.NewInternalError(err)
	}
	return count > 0, nil
}

// ToggleLike flips the like state on a feedback, keeping likes_count in step.
func (r *feedbackRepository) ToggleLike(ctx context.Context, userID, feedbackID uint) (bool, error) {
	var liked bool
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Where("user_id = ? AND feedback_id = ?", userID, feedbackID).Delete(&models.FeedbackLike{})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected > 0 {
			liked = false
			return tx.Model(&models.Feedback{}).
				Where("id = ? AND likes_count > 0", feedbackID).
				UpdateColumn("likes_count", gorm.Expr("likes_count - 1")).Error
		}
		if err := tx.Create(&models.FeedbackLike{UserID: userID, FeedbackID: feedbackID}).Error; err != nil {
			return err
		}
		liked = true
		return tx.Model(&models.Feedback{}).
			Where("id = ?", feedbackID).
			UpdateColumn("likes_count", gorm.Expr("likes_count + 1")).Error
	})
	if err != nil {
		return false, models.NewInternalError(err)
	}
	return liked, nil
}

func (r *feedbackRepository) AddLine(ctx context.Context, line *models.LineFeedback) error {
	if err := r.db.WithContext(ctx).Create(line).Error; err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

func (r *feedbackRepository) UpdateLine(ctx context.Context, line *models.LineFeedback) error {
	if err := r.db.WithContext(ctx).Save(line).Error; err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

func (r *feedbackRepository) GetLine(ctx context.Context, id uint) (*models.LineFeedback, error) {
	var line models.LineFeedback
	if err := r.db.WithContext(ctx).First(&line, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundError("Line feedback", id)
		}
		return nil, models.NewInternalError(err)
	}
	return &line, nil
}

func (r *feedbackRepository) DeleteLine(ctx context.Context, id uint) error {
	if err := r.db.WithContext(ctx).Delete(&models.LineFeedback{}, id).Error; err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

func (r *feedbackRepository) AddComment(ctx context.Context, comment *models.FeedbackComment) error {
	if err := r.db.WithContext(ctx).Create(comment).Error; err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

func (r *feedbackRepository) GetComment(ctx context.Context, id uint) (*models.FeedbackComment, error) {
	var comment models.FeedbackComment
	if err := r.db.WithContext(ctx).First(&comment, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundError("Comment", id)
		}
		return nil, models.NewInternalError(err)
	}
	return &comment, nil
}

func (r *feedbackRepository) DeleteComment(ctx context.Context, id uint) error {
	result := r.db.WithContext(ctx).Delete(&models.FeedbackComment{}, id)
	if result.Error != nil {
		return models.NewInternalError(result.Error)
	}
	if result.RowsAffected == 0 {
		return models.NewNotFoundError("Comment", id)
	}
	return nil
}

// CountsByUserSince aggregates feedback written since the cutoff, grouped by
// author and ordered by count descending with the lower user ID breaking
// ties. The result carries IDs and counts only; callers load the users
// separately and restore this ordering themselves.
func (r *feedbackRepository) CountsByUserSince(ctx context.Context, since time.Time, adoptedOnly bool, limit, offset int) ([]UserCount, error) {
	query := r.db.WithContext(ctx).
		Model(&models.Feedback{}).
		Select("user_id, COUNT(*) as count").
		Where("created_at >= ?", since)
	if adoptedOnly {
		query = query.Where("adopted = ?", true)
	}

	var counts []UserCount
	if err := query.
		Group("user_id").
		Order("count DESC, user_id ASC").
		Limit(limit).
		Offset(offset).
		Scan(&counts).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return counts, nil
}

// CountUsersWithFeedbackSince counts distinct authors matching the same
// criteria as CountsByUserSince, for pagination totals.
func (r *feedbackRepository) CountUsersWithFeedbackSince(ctx context.Context, since time.Time, adoptedOnly bool) (int64, error) {
	query := r.db.WithContext(ctx).
		Model(&models.Feedback{}).
		Where("created_at >= ?", since)
	if adoptedOnly {
		query = query.Where("adopted = ?", true)
	}

	var count int64
	if err := query.Distinct("user_id").Count(&count).Error; err != nil {
		return 0, models.NewInternalError(err)
	}
	return count, nil
}
