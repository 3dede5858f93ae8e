package service

import (
	"context"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"codegardener/internal/models"
	"codegardener/internal/observability"
	"codegardener/internal/repository"
)

// PostService implements post CRUD, discovery, and engagement toggles.
type PostService struct {
	postRepo repository.PostRepository
	userRepo repository.UserRepository
	ai       *AIFeedbackService
	logger   *slog.Logger
	isAdmin  func(ctx context.Context, userID uint) (bool, error)
}

// CreatePostInput carries a new post submission. LangTags and StackTags are
// raw CSV strings normalized before persistence.
type CreatePostInput struct {
	UserID           uint
	Title            string
	Content          string
	Code             string
	Summary          string
	ContentsType     bool
	LangTags         string
	StackTags        string
	GithubRepoURL    string
	ProblemStatement string
}

// UpdatePostInput carries a partial post edit. Empty strings leave the
// corresponding field unchanged.
type UpdatePostInput struct {
	UserID           uint
	PostID           uint
	Title            string
	Content          string
	Code             string
	Summary          string
	LangTags         string
	StackTags        string
	GithubRepoURL    string
	ProblemStatement string
}

// NewPostService returns a new PostService.
func NewPostService(
	postRepo repository.PostRepository,
	userRepo repository.UserRepository,
	ai *AIFeedbackService,
	logger *slog.Logger,
	isAdmin func(ctx context.Context, userID uint) (bool, error),
) *PostService {
	return &PostService{
		postRepo: postRepo,
		userRepo: userRepo,
		ai:       ai,
		logger:   logger,
		isAdmin:  isAdmin,
	}
}

const (
	maxTitleLen   = 200
	maxContentLen = 50000
	maxCodeLen    = 100000
)

// CreatePost validates and persists a post, bumps the author's post counter,
// and kicks off AI feedback generation in the background.
func (s *PostService) CreatePost(ctx context.Context, in CreatePostInput) (*models.Post, error) {
	if strings.TrimSpace(in.Title) == "" {
		return nil, models.NewValidationError("Title is required")
	}
	if len(in.Title) > maxTitleLen {
		return nil, models.NewValidationError("Title too long (max 200 characters)")
	}
	if strings.TrimSpace(in.Content) == "" {
		return nil, models.NewValidationError("Content is required")
	}
	if len(in.Content) > maxContentLen {
		return nil, models.NewValidationError("Content too long (max 50000 characters)")
	}
	if strings.TrimSpace(in.Code) == "" {
		return nil, models.NewValidationError("Code is required")
	}
	if len(in.Code) > maxCodeLen {
		return nil, models.NewValidationError("Code too long (max 100000 characters)")
	}
	if strings.TrimSpace(in.Summary) == "" {
		return nil, models.NewValidationError("Summary is required")
	}
	// Coding-test posts must carry the problem they solve.
	if !in.ContentsType && strings.TrimSpace(in.ProblemStatement) == "" {
		return nil, models.NewValidationError("Problem statement is required for coding-test posts")
	}
	if in.GithubRepoURL != "" {
		if _, err := url.ParseRequestURI(in.GithubRepoURL); err != nil {
			return nil, models.NewValidationError("github_repo_url must be a valid URL")
		}
	}

	post := &models.Post{
		UserID:           in.UserID,
		Title:            in.Title,
		Content:          in.Content,
		Code:             in.Code,
		Summary:          in.Summary,
		ContentsType:     in.ContentsType,
		LangTags:         NormalizeCSV(in.LangTags),
		StackTags:        NormalizeCSV(in.StackTags),
		GithubRepoURL:    in.GithubRepoURL,
		ProblemStatement: in.ProblemStatement,
	}
	if err := s.postRepo.Create(ctx, post); err != nil {
		return nil, err
	}

	if err := s.adjustPostCount(ctx, in.UserID, 1); err != nil {
		s.logger.WarnContext(ctx, "failed to bump post counter",
			slog.Uint64("user_id", uint64(in.UserID)),
			slog.String("error", err.Error()),
		)
	}

	observability.PostsCreated.WithLabelValues(contentTypeLabel(post.ContentsType)).Inc()

	s.generateAIFeedbackAsync(ctx, post)

	return post, nil
}

func contentTypeLabel(contentsType bool) string {
	if contentsType {
		return "dev"
	}
	return "coding_test"
}

// generateAIFeedbackAsync produces the automatic first review without
// blocking the request. The HTTP context dies with the response, so the
// background work gets its own deadline.
func (s *PostService) generateAIFeedbackAsync(ctx context.Context, post *models.Post) {
	if s.ai == nil {
		return
	}

	fields := map[string]interface{}{"post_id": post.ID}
	observability.LogAsyncOperationStart(ctx, "ai_feedback", fields)

	go func() {
		bgCtx, cancel := context.WithTimeout(context.Background(), s.ai.Timeout()+5*time.Second)
		defer cancel()

		feedback := s.ai.GenerateFeedback(bgCtx, post)
		if err := s.postRepo.UpdateAIFeedback(bgCtx, post.ID, feedback); err != nil {
			observability.LogAsyncOperationError(bgCtx, "ai_feedback", err, fields)
			return
		}
		observability.LogAsyncOperationEnd(bgCtx, "ai_feedback", fields)
	}()
}

// GetPost returns the post with per-viewer flags resolved and records the
// view. currentUserID is zero for anonymous viewers.
func (s *PostService) GetPost(ctx context.Context, id uint, currentUserID uint) (*models.Post, error) {
	post, err := s.postRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := s.postRepo.IncrementViews(ctx, id); err != nil {
		s.logger.WarnContext(ctx, "failed to record view",
			slog.Uint64("post_id", uint64(id)),
			slog.String("error", err.Error()),
		)
	} else {
		post.Views++
	}

	if err := s.resolveViewerFlags(ctx, currentUserID, []*models.Post{post}); err != nil {
		return nil, err
	}
	return post, nil
}

// DiscoverPosts runs the discovery query and personalizes the page for the
// viewer. Returns the page and the total match count.
func (s *PostService) DiscoverPosts(ctx context.Context, in DiscoverInput, currentUserID uint) ([]*models.Post, int64, error) {
	posts, total, err := s.postRepo.Discover(ctx, in.BuildPostFilter())
	if err != nil {
		return nil, 0, err
	}
	if err := s.resolveViewerFlags(ctx, currentUserID, posts); err != nil {
		return nil, 0, err
	}
	return posts, total, nil
}

// PopularPosts returns the most liked posts for the main page, restricted to
// one content type when contentsType is set.
func (s *PostService) PopularPosts(ctx context.Context, limit int, contentsType *bool, currentUserID uint) ([]*models.Post, error) {
	if limit <= 0 {
		limit = 4
	}
	posts, err := s.postRepo.PopularTop(ctx, limit, contentsType)
	if err != nil {
		return nil, err
	}
	if err := s.resolveViewerFlags(ctx, currentUserID, posts); err != nil {
		return nil, err
	}
	return posts, nil
}

// GetUserPosts lists a user's posts, newest first.
func (s *PostService) GetUserPosts(ctx context.Context, userID uint, limit, offset int) ([]*models.Post, error) {
	if limit <= 0 {
		limit = DefaultPageSize
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}
	return s.postRepo.GetByUserID(ctx, userID, limit, offset)
}

// UpdatePost applies a partial edit. Only the author may edit a post.
func (s *PostService) UpdatePost(ctx context.Context, in UpdatePostInput) (*models.Post, error) {
	post, err := s.postRepo.GetByID(ctx, in.PostID)
	if err != nil {
		return nil, err
	}
	if post.UserID != in.UserID {
		return nil, models.NewForbiddenError("You can only update your own posts")
	}

	if in.Title != "" {
		if len(in.Title) > maxTitleLen {
			return nil, models.NewValidationError("Title too long (max 200 characters)")
		}
		post.Title = in.Title
	}
	if in.Content != "" {
		post.Content = in.Content
	}
	if in.Code != "" {
		post.Code = in.Code
	}
	if in.Summary != "" {
		post.Summary = in.Summary
	}
	if in.LangTags != "" {
		post.LangTags = NormalizeCSV(in.LangTags)
	}
	if in.StackTags != "" {
		post.StackTags = NormalizeCSV(in.StackTags)
	}
	if in.GithubRepoURL != "" {
		if _, err := url.ParseRequestURI(in.GithubRepoURL); err != nil {
			return nil, models.NewValidationError("github_repo_url must be a valid URL")
		}
		post.GithubRepoURL = in.GithubRepoURL
	}
	if in.ProblemStatement != "" {
		post.ProblemStatement = in.ProblemStatement
	}

	if err := s.postRepo.Update(ctx, post); err != nil {
		return nil, err
	}
	return post, nil
}

// DeletePost removes a post. The author or an admin may delete it; the
// author's post counter is decremented in either case.
func (s *PostService) DeletePost(ctx context.Context, userID, postID uint) error {
	post, err := s.postRepo.GetByID(ctx, postID)
	if err != nil {
		return err
	}

	if post.UserID != userID {
		if s.isAdmin == nil {
			return models.NewForbiddenError("You can only delete your own posts")
		}
		admin, err := s.isAdmin(ctx, userID)
		if err != nil {
			return err
		}
		if !admin {
			return models.NewForbiddenError("You can only delete your own posts")
		}
	}

	if err := s.postRepo.Delete(ctx, postID); err != nil {
		return err
	}

	if err := s.adjustPostCount(ctx, post.UserID, -1); err != nil {
		s.logger.WarnContext(ctx, "failed to decrement post counter",
			slog.Uint64("user_id", uint64(post.UserID)),
			slog.String("error", err.Error()),
		)
	}
	return nil
}

// ToggleLike flips the viewer's like on a post and returns the refreshed post.
func (s *PostService) ToggleLike(ctx context.Context, userID, postID uint) (*models.Post, error) {
	if _, err := s.postRepo.GetByID(ctx, postID); err != nil {
		return nil, err
	}
	liked, err := s.postRepo.ToggleLike(ctx, userID, postID)
	if err != nil {
		return nil, err
	}

	post, err := s.postRepo.GetByID(ctx, postID)
	if err != nil {
		return nil, err
	}
	post.Liked = liked
	if err := s.resolveScrapFlag(ctx, userID, post); err != nil {
		return nil, err
	}
	return post, nil
}

// ToggleScrap flips the viewer's scrap on a post and returns the refreshed post.
func (s *PostService) ToggleScrap(ctx context.Context, userID, postID uint) (*models.Post, error) {
	if _, err := s.postRepo.GetByID(ctx, postID); err != nil {
		return nil, err
	}
	scrapped, err := s.postRepo.ToggleScrap(ctx, userID, postID)
	if err != nil {
		return nil, err
	}

	post, err := s.postRepo.GetByID(ctx, postID)
	if err != nil {
		return nil, err
	}
	post.Scrapped = scrapped
	likedIDs, err := s.postRepo.LikedPostIDs(ctx, userID, []uint{postID})
	if err != nil {
		return nil, err
	}
	post.Liked = len(likedIDs) == 1
	return post, nil
}

// ScrappedPosts lists the viewer's saved posts, newest scrap first.
func (s *PostService) ScrappedPosts(ctx context.Context, userID uint, limit, offset int) ([]*models.Post, error) {
	if limit <= 0 {
		limit = DefaultPageSize
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}
	posts, err := s.postRepo.ScrappedPosts(ctx, userID, limit, offset)
	if err != nil {
		return nil, err
	}
	for _, p := range posts {
		p.Scrapped = true
	}
	return posts, nil
}

// RegenerateAIFeedback re-runs the AI review synchronously and stores the
// result. Only the post author may trigger it.
func (s *PostService) RegenerateAIFeedback(ctx context.Context, userID, postID uint) (*models.Post, error) {
	post, err := s.postRepo.GetByID(ctx, postID)
	if err != nil {
		return nil, err
	}
	if post.UserID != userID {
		return nil, models.NewForbiddenError("You can only regenerate feedback on your own posts")
	}
	if s.ai == nil {
		return nil, models.NewInvalidStateError("AI feedback is not available")
	}

	feedback := s.ai.GenerateFeedback(ctx, post)
	if err := s.postRepo.UpdateAIFeedback(ctx, post.ID, feedback); err != nil {
		return nil, err
	}
	post.AIFeedback = feedback
	return post, nil
}

// GetAIFeedback returns the stored AI review without counting a view.
func (s *PostService) GetAIFeedback(ctx context.Context, postID uint) (string, error) {
	post, err := s.postRepo.GetByID(ctx, postID)
	if err != nil {
		return "", err
	}
	return post.AIFeedback, nil
}

func (s *PostService) adjustPostCount(ctx context.Context, userID uint, delta int) error {
	profile, err := s.userRepo.GetProfile(ctx, userID)
	if err != nil {
		return err
	}
	profile.PostCount += delta
	if profile.PostCount < 0 {
		profile.PostCount = 0
	}
	return s.userRepo.UpdateProfile(ctx, profile)
}

// resolveViewerFlags fills Liked and Scrapped on the posts for the viewer.
// Anonymous viewers keep the zero values.
func (s *PostService) resolveViewerFlags(ctx context.Context, currentUserID uint, posts []*models.Post) error {
	if currentUserID == 0 || len(posts) == 0 {
		return nil
	}

	ids := make([]uint, len(posts))
	for i, p := range posts {
		ids[i] = p.ID
	}

	likedIDs, err := s.postRepo.LikedPostIDs(ctx, currentUserID, ids)
	if err != nil {
		return err
	}
	scrappedIDs, err := s.postRepo.ScrappedPostIDs(ctx, currentUserID, ids)
	if err != nil {
		return err
	}

	liked := make(map[uint]bool, len(likedIDs))
	for _, id := range likedIDs {
		liked[id] = true
	}
	scrapped := make(map[uint]bool, len(scrappedIDs))
	for _, id := range scrappedIDs {
		scrapped[id] = true
	}
	for _, p := range posts {
		p.Liked = liked[p.ID]
		p.Scrapped = scrapped[p.ID]
	}
	return nil
}

func (s *PostService) resolveScrapFlag(ctx context.Context, userID uint, post *models.Post) error {
	ids, err := s.postRepo.ScrappedPostIDs(ctx, userID, []uint{post.ID})
	if err != nil {
		return err
	}
	post.Scrapped = len(ids) == 1
	return nil
}
