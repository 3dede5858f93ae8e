package service

import (
	"context"
	"log/slog"
	"strings"

	"codegardener/internal/models"
	"codegardener/internal/observability"
	"codegardener/internal/repository"
)

// FeedbackService implements peer reviews: creation, adoption, likes, and
// threaded comments.
type FeedbackService struct {
	feedbackRepo repository.FeedbackRepository
	postRepo     repository.PostRepository
	userRepo     repository.UserRepository
	reputation   *ReputationService
	logger       *slog.Logger
	isAdmin      func(ctx context.Context, userID uint) (bool, error)
}

// LineFeedbackInput anchors part of a review to a line range of the code.
type LineFeedbackInput struct {
	Line    int
	EndLine *int
	Content string
}

// CreateFeedbackInput carries a new review submission.
type CreateFeedbackInput struct {
	UserID  uint
	PostID  uint
	Content string
	Rating  float64
	Lines   []LineFeedbackInput
}

// UpdateFeedbackInput carries a review edit. Empty Content and zero Rating
// leave the corresponding field unchanged.
type UpdateFeedbackInput struct {
	UserID     uint
	FeedbackID uint
	Content    string
	Rating     float64
}

// NewFeedbackService returns a new FeedbackService.
func NewFeedbackService(
	feedbackRepo repository.FeedbackRepository,
	postRepo repository.PostRepository,
	userRepo repository.UserRepository,
	reputation *ReputationService,
	logger *slog.Logger,
	isAdmin func(ctx context.Context, userID uint) (bool, error),
) *FeedbackService {
	return &FeedbackService{
		feedbackRepo: feedbackRepo,
		postRepo:     postRepo,
		userRepo:     userRepo,
		reputation:   reputation,
		logger:       logger,
		isAdmin:      isAdmin,
	}
}

const (
	minRating = 0
	maxRating = 5
)

// CreateFeedback validates and stores a review and bumps the reviewer's
// feedback counter.
func (s *FeedbackService) CreateFeedback(ctx context.Context, in CreateFeedbackInput) (*models.Feedback, error) {
	if strings.TrimSpace(in.Content) == "" {
		return nil, models.NewValidationError("Content is required")
	}
	if in.Rating < minRating || in.Rating > maxRating {
		return nil, models.NewValidationError("Rating must be between 0 and 5")
	}
	for _, line := range in.Lines {
		if err := validateLine(line); err != nil {
			return nil, err
		}
	}

	post, err := s.postRepo.GetByID(ctx, in.PostID)
	if err != nil {
		return nil, err
	}
	if post.UserID == in.UserID {
		return nil, models.NewValidationError("You cannot review your own post")
	}

	feedback := &models.Feedback{
		PostID:  in.PostID,
		UserID:  in.UserID,
		Content: in.Content,
		Rating:  in.Rating,
	}
	for _, line := range in.Lines {
		feedback.Lines = append(feedback.Lines, models.LineFeedback{
			UserID:  in.UserID,
			Line:    line.Line,
			EndLine: line.EndLine,
			Content: line.Content,
		})
	}

	if err := s.feedbackRepo.Create(ctx, feedback); err != nil {
		return nil, err
	}

	if err := s.adjustFeedbackCount(ctx, in.UserID, 1); err != nil {
		s.logger.WarnContext(ctx, "failed to bump feedback counter",
			slog.Uint64("user_id", uint64(in.UserID)),
			slog.String("error", err.Error()),
		)
	}

	observability.FeedbackCreated.Inc()
	return feedback, nil
}

// GetFeedback returns a single review with its lines and comments.
func (s *FeedbackService) GetFeedback(ctx context.Context, id uint) (*models.Feedback, error) {
	return s.feedbackRepo.GetByID(ctx, id)
}

// ListByPost returns all reviews on a post, adopted first, then oldest first.
func (s *FeedbackService) ListByPost(ctx context.Context, postID uint) ([]*models.Feedback, error) {
	if _, err := s.postRepo.GetByID(ctx, postID); err != nil {
		return nil, err
	}
	return s.feedbackRepo.ListByPost(ctx, postID)
}

// ListByUser returns a reviewer's feedback history, newest first.
func (s *FeedbackService) ListByUser(ctx context.Context, userID uint, limit, offset int) ([]*models.Feedback, error) {
	if limit <= 0 {
		limit = DefaultPageSize
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}
	return s.feedbackRepo.ListByUser(ctx, userID, limit, offset)
}

// UpdateFeedback applies an edit. Only the author may edit, and adopted
// feedback is frozen.
func (s *FeedbackService) UpdateFeedback(ctx context.Context, in UpdateFeedbackInput) (*models.Feedback, error) {
	feedback, err := s.feedbackRepo.GetByID(ctx, in.FeedbackID)
	if err != nil {
		return nil, err
	}
	if feedback.UserID != in.UserID {
		return nil, models.NewForbiddenError("You can only update your own feedback")
	}
	if feedback.Adopted {
		return nil, models.NewInvalidStateError("Adopted feedback cannot be modified")
	}

	if in.Content != "" {
		feedback.Content = in.Content
	}
	if in.Rating != 0 {
		if in.Rating < minRating || in.Rating > maxRating {
			return nil, models.NewValidationError("Rating must be between 0 and 5")
		}
		feedback.Rating = in.Rating
	}

	if err := s.feedbackRepo.Update(ctx, feedback); err != nil {
		return nil, err
	}
	return feedback, nil
}

// DeleteFeedback removes a review. The author may delete it unless adopted;
// admins may delete regardless.
func (s *FeedbackService) DeleteFeedback(ctx context.Context, userID, feedbackID uint) error {
	feedback, err := s.feedbackRepo.GetByID(ctx, feedbackID)
	if err != nil {
		return err
	}

	admin := false
	if s.isAdmin != nil {
		admin, err = s.isAdmin(ctx, userID)
		if err != nil {
			return err
		}
	}

	if feedback.UserID != userID && !admin {
		return models.NewForbiddenError("You can only delete your own feedback")
	}
	if feedback.Adopted && !admin {
		return models.NewInvalidStateError("Adopted feedback cannot be deleted")
	}

	if err := s.feedbackRepo.Delete(ctx, feedbackID); err != nil {
		return err
	}

	if err := s.adjustFeedbackCount(ctx, feedback.UserID, -1); err != nil {
		s.logger.WarnContext(ctx, "failed to decrement feedback counter",
			slog.Uint64("user_id", uint64(feedback.UserID)),
			slog.String("error", err.Error()),
		)
	}
	return nil
}

// AdoptFeedback marks a review as the accepted answer on a post. Only the
// post author may adopt, never on their own review, and at most once per
// post. The reviewer earns the adoption bonus.
func (s *FeedbackService) AdoptFeedback(ctx context.Context, userID, feedbackID uint) (*models.Feedback, error) {
	feedback, err := s.feedbackRepo.GetByID(ctx, feedbackID)
	if err != nil {
		return nil, err
	}

	post, err := s.postRepo.GetByID(ctx, feedback.PostID)
	if err != nil {
		return nil, err
	}
	if post.UserID != userID {
		return nil, models.NewForbiddenError("Only the post author can adopt feedback")
	}
	if feedback.UserID == userID {
		return nil, models.NewValidationError("You cannot adopt your own feedback")
	}
	if feedback.Adopted {
		return nil, models.NewInvalidStateError("This feedback is already adopted")
	}

	adopted, err := s.feedbackRepo.HasAdoptedFeedback(ctx, feedback.PostID)
	if err != nil {
		return nil, err
	}
	if adopted {
		return nil, models.NewInvalidStateError("This post already has adopted feedback")
	}

	if err := s.feedbackRepo.MarkAdopted(ctx, feedbackID); err != nil {
		return nil, err
	}
	feedback.Adopted = true

	if _, err := s.reputation.AddPoints(ctx, feedback.UserID, AdoptionPoints, "adoption"); err != nil {
		s.logger.ErrorContext(ctx, "failed to grant adoption points",
			slog.Uint64("user_id", uint64(feedback.UserID)),
			slog.Uint64("feedback_id", uint64(feedbackID)),
			slog.String("error", err.Error()),
		)
	}

	if profile, err := s.userRepo.GetProfile(ctx, feedback.UserID); err == nil {
		profile.AdoptedFeedbackCount++
		if err := s.userRepo.UpdateProfile(ctx, profile); err != nil {
			s.logger.WarnContext(ctx, "failed to bump adopted feedback counter",
				slog.Uint64("user_id", uint64(feedback.UserID)),
				slog.String("error", err.Error()),
			)
		}
	}

	observability.FeedbackAdopted.Inc()
	return feedback, nil
}

// ToggleLike flips the viewer's like on a review and returns the new state.
func (s *FeedbackService) ToggleLike(ctx context.Context, userID, feedbackID uint) (bool, error) {
	if _, err := s.feedbackRepo.GetByID(ctx, feedbackID); err != nil {
		return false, err
	}
	return s.feedbackRepo.ToggleLike(ctx, userID, feedbackID)
}

// AddComment attaches a reply to a review.
func (s *FeedbackService) AddComment(ctx context.Context, userID, feedbackID uint, content string) (*models.FeedbackComment, error) {
	if strings.TrimSpace(content) == "" {
		return nil, models.NewValidationError("Content is required")
	}
	if _, err := s.feedbackRepo.GetByID(ctx, feedbackID); err != nil {
		return nil, err
	}

	comment := &models.FeedbackComment{
		FeedbackID: feedbackID,
		UserID:     userID,
		Content:    content,
	}
	if err := s.feedbackRepo.AddComment(ctx, comment); err != nil {
		return nil, err
	}
	return comment, nil
}

// DeleteComment removes a reply. The comment author or an admin may delete.
func (s *FeedbackService) DeleteComment(ctx context.Context, userID, commentID uint) error {
	comment, err := s.feedbackRepo.GetComment(ctx, commentID)
	if err != nil {
		return err
	}
	if comment.UserID != userID {
		admin := false
		if s.isAdmin != nil {
			admin, err = s.isAdmin(ctx, userID)
			if err != nil {
				return err
			}
		}
		if !admin {
			return models.NewForbiddenError("You can only delete your own comments")
		}
	}
	return s.feedbackRepo.DeleteComment(ctx, commentID)
}

// AddLine anchors an additional line comment to an existing review. Only the
// review author may add lines, and not once the review is adopted.
func (s *FeedbackService) AddLine(ctx context.Context, userID, feedbackID uint, in LineFeedbackInput) (*models.LineFeedback, error) {
	if err := validateLine(in); err != nil {
		return nil, err
	}
	feedback, err := s.feedbackRepo.GetByID(ctx, feedbackID)
	if err != nil {
		return nil, err
	}
	if feedback.UserID != userID {
		return nil, models.NewForbiddenError("You can only add lines to your own feedback")
	}
	if feedback.Adopted {
		return nil, models.NewInvalidStateError("Adopted feedback cannot be modified")
	}

	line := &models.LineFeedback{
		FeedbackID: feedbackID,
		UserID:     userID,
		Line:       in.Line,
		EndLine:    in.EndLine,
		Content:    in.Content,
	}
	if err := s.feedbackRepo.AddLine(ctx, line); err != nil {
		return nil, err
	}
	return line, nil
}

// UpdateLine rewrites a line comment. Only the line author may edit, and not
// once the parent review is adopted.
func (s *FeedbackService) UpdateLine(ctx context.Context, userID, feedbackID, lineID uint, in LineFeedbackInput) (*models.LineFeedback, error) {
	if err := validateLine(in); err != nil {
		return nil, err
	}
	line, err := s.feedbackRepo.GetLine(ctx, lineID)
	if err != nil {
		return nil, err
	}
	if line.FeedbackID != feedbackID {
		return nil, models.NewNotFoundError("Line feedback", lineID)
	}
	if line.UserID != userID {
		return nil, models.NewForbiddenError("You can only edit your own line feedback")
	}
	feedback, err := s.feedbackRepo.GetByID(ctx, feedbackID)
	if err != nil {
		return nil, err
	}
	if feedback.Adopted {
		return nil, models.NewInvalidStateError("Adopted feedback cannot be modified")
	}

	line.Line = in.Line
	line.EndLine = in.EndLine
	line.Content = in.Content
	if err := s.feedbackRepo.UpdateLine(ctx, line); err != nil {
		return nil, err
	}
	return line, nil
}

// DeleteLine removes a line comment. The line author or an admin may delete,
// subject to the same adopted freeze as the parent review.
func (s *FeedbackService) DeleteLine(ctx context.Context, userID, feedbackID, lineID uint) error {
	line, err := s.feedbackRepo.GetLine(ctx, lineID)
	if err != nil {
		return err
	}
	if line.FeedbackID != feedbackID {
		return models.NewNotFoundError("Line feedback", lineID)
	}
	feedback, err := s.feedbackRepo.GetByID(ctx, feedbackID)
	if err != nil {
		return err
	}
	if feedback.Adopted {
		return models.NewInvalidStateError("Adopted feedback cannot be modified")
	}
	if line.UserID != userID {
		admin := false
		if s.isAdmin != nil {
			admin, err = s.isAdmin(ctx, userID)
			if err != nil {
				return err
			}
		}
		if !admin {
			return models.NewForbiddenError("You can only delete your own line feedback")
		}
	}
	return s.feedbackRepo.DeleteLine(ctx, lineID)
}

func validateLine(in LineFeedbackInput) error {
	if in.Line <= 0 {
		return models.NewValidationError("Line numbers must be positive")
	}
	if in.EndLine != nil && *in.EndLine < in.Line {
		return models.NewValidationError("end_line must not precede line")
	}
	if strings.TrimSpace(in.Content) == "" {
		return models.NewValidationError("Line feedback content is required")
	}
	return nil
}

func (s *FeedbackService) adjustFeedbackCount(ctx context.Context, userID uint, delta int) error {
	profile, err := s.userRepo.GetProfile(ctx, userID)
	if err != nil {
		return err
	}
	profile.TotalFeedbackCount += delta
	if profile.TotalFeedbackCount < 0 {
		profile.TotalFeedbackCount = 0
	}
	return s.userRepo.UpdateProfile(ctx, profile)
}
