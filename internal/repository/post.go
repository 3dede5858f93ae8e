package repository

import (
	"context"
	"errors"

	"codegardener/internal/models"

	"gorm.io/gorm"
)

// PostFilter carries the prepared discovery conditions. Keyword is a
// lowercased LIKE pattern with wildcards already escaped; LangPattern and
// StackPattern are anchored POSIX regexes over the normalized CSV tag
// columns. Empty fields are skipped.
type PostFilter struct {
	Keyword      string
	LangPattern  string
	StackPattern string
	ContentsType *bool
	Sort         string
	Limit        int
	Offset       int
}

// PostRepository defines the interface for post data operations
type PostRepository interface {
	Create(ctx context.Context, post *models.Post) error
	GetByID(ctx context.Context, id uint) (*models.Post, error)
	GetByUserID(ctx context.Context, userID uint, limit, offset int) ([]*models.Post, error)
	Discover(ctx context.Context, filter PostFilter) ([]*models.Post, int64, error)
	PopularTop(ctx context.Context, limit int, contentsType *bool) ([]*models.Post, error)
	Update(ctx context.Context, post *models.Post) error
	UpdateAIFeedback(ctx context.Context, postID uint, feedback string) error
	Delete(ctx context.Context, id uint) error
	IncrementViews(ctx context.Context, id uint) error
	ToggleLike(ctx context.Context, userID, postID uint) (bool, error)
	ToggleScrap(ctx context.Context, userID, postID uint) (bool, error)
	ScrappedPosts(ctx context.Context, userID uint, limit, offset int) ([]*models.Post, error)
	LikedPostIDs(ctx context.Context, userID uint, postIDs []uint) ([]uint, error)
	ScrappedPostIDs(ctx context.Context, userID uint, postIDs []uint) ([]uint, error)
}

// postRepository implements PostRepository
type postRepository struct {
	db *gorm.DB
}

// NewPostRepository creates a new post repository
func NewPostRepository(db *gorm.DB) PostRepository {
	return &postRepository{db: db}
}

func (r *postRepository) Create(ctx context.Context, post *models.Post) error {
	if err := r.db.WithContext(ctx).Create(post).Error; err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

func (r *postRepository) GetByID(ctx context.Context, id uint) (*models.Post, error) {
	var post models.Post
	if err := r.db.WithContext(ctx).
		Preload("User").
		Preload("User.Profile").
		First(&post, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundError("Post", id)
		}
		return nil, models.NewInternalError(err)
	}
	return &post, nil
}

func (r *postRepository) GetByUserID(ctx context.Context, userID uint, limit, offset int) ([]*models.Post, error) {
	var posts []*models.Post
	if err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&posts).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return posts, nil
}

// applyFilter appends the discovery WHERE clauses. The keyword condition also
// matches the author's username, which requires the users join.
func (r *postRepository) applyFilter(db *gorm.DB, filter PostFilter) *gorm.DB {
	db = db.Joins("JOIN users ON users.id = posts.user_id")

	if filter.ContentsType != nil {
		db = db.Where("posts.contents_type = ?", *filter.ContentsType)
	}
	if filter.Keyword != "" {
		db = db.Where(
			`LOWER(posts.title) LIKE ? ESCAPE '\' OR LOWER(posts.content) LIKE ? ESCAPE '\' OR LOWER(users.username) LIKE ? ESCAPE '\'`,
			filter.Keyword, filter.Keyword, filter.Keyword,
		)
	}
	if filter.LangPattern != "" {
		db = db.Where("posts.lang_tags ~ ?", filter.LangPattern)
	}
	if filter.StackPattern != "" {
		db = db.Where("posts.stack_tags ~ ?", filter.StackPattern)
	}
	return db
}

// applySort appends the ORDER BY clause for the requested sort type.
// created_at DESC is always the final tie breaker.
func (r *postRepository) applySort(db *gorm.DB, sort string) *gorm.DB {
	switch sort {
	case "views":
		return db.Order("posts.views DESC, posts.created_at DESC")
	case "feedback":
		return db.Order("posts.feedback_count DESC, posts.created_at DESC")
	default: // "latest" and anything unrecognized
		return db.Order("posts.created_at DESC")
	}
}

// Discover returns one page of posts matching the filter plus the total match
// count across all pages.
func (r *postRepository) Discover(ctx context.Context, filter PostFilter) ([]*models.Post, int64, error) {
	var total int64
	countQuery := r.applyFilter(r.db.WithContext(ctx).Model(&models.Post{}), filter)
	if err := countQuery.Count(&total).Error; err != nil {
		return nil, 0, models.NewInternalError(err)
	}

	var posts []*models.Post
	pageQuery := r.applyFilter(r.db.WithContext(ctx).Model(&models.Post{}), filter).
		Select("posts.*").
		Preload("User")
	if err := r.applySort(pageQuery, filter.Sort).
		Limit(filter.Limit).
		Offset(filter.Offset).
		Find(&posts).Error; err != nil {
		return nil, 0, models.NewInternalError(err)
	}
	return posts, total, nil
}

// PopularTop returns the most liked posts for the main page, optionally
// restricted to one content type.
func (r *postRepository) PopularTop(ctx context.Context, limit int, contentsType *bool) ([]*models.Post, error) {
	query := r.db.WithContext(ctx).
		Preload("User").
		Order("likes_count DESC, created_at DESC").
		Limit(limit)
	if contentsType != nil {
		query = query.Where("contents_type = ?", *contentsType)
	}

	var posts []*models.Post
	if err := query.Find(&posts).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return posts, nil
}

func (r *postRepository) Update(ctx context.Context, post *models.Post) error {
	if err := r.db.WithContext(ctx).Omit("User").Save(post).Error; err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

func (r *postRepository) UpdateAIFeedback(ctx context.Context, postID uint, feedback string) error {
	if err := r.db.WithContext(ctx).
		Model(&models.Post{}).
		Where("id = ?", postID).
		Update("ai_feedback", feedback).Error; err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

func (r *postRepository) Delete(ctx context.Context, id uint) error {
	result := r.db.WithContext(ctx).Delete(&models.Post{}, id)
	if result.Error != nil {
		return models.NewInternalError(result.Error)
	}
	if result.RowsAffected == 0 {
		return models.NewNotFoundError("Post", id)
	}
	return nil
}

func (r *postRepository) IncrementViews(ctx context.Context, id uint) error {
	if err := r.db.WithContext(ctx).
		Model(&models.Post{}).
		Where("id = ?", id).
		UpdateColumn("views", gorm.Expr("views + 1")).Error; err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

// ToggleLike flips the like state for the user and keeps the denormalized
// likes_count in step. Returns the new state (true when the post is now liked).
func (r *postRepository) ToggleLike(ctx context.Context, userID, postID uint) (bool, error) {
	var liked bool
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Where("user_id = ? AND post_id = ?", userID, postID).Delete(&models.PostLike{})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected > 0 {
			liked = false
			return tx.Model(&models.Post{}).
				Where("id = ? AND likes_count > 0", postID).
				UpdateColumn("likes_count", gorm.Expr("likes_count - 1")).Error
		}
		if err := tx.Create(&models.PostLike{UserID: userID, PostID: postID}).Error; err != nil {
			return err
		}
		liked = true
		return tx.Model(&models.Post{}).
			Where("id = ?", postID).
			UpdateColumn("likes_count", gorm.Expr("likes_count + 1")).Error
	})
	if err != nil {
		return false, models.NewInternalError(err)
	}
	return liked, nil
}

// ToggleScrap flips the scrap (bookmark) state, mirroring ToggleLike.
func (r *postRepository) ToggleScrap(ctx context.Context, userID, postID uint) (bool, error) {
	var scrapped bool
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Where("user_id = ? AND post_id = ?", userID, postID).Delete(&models.PostScrap{})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected > 0 {
			scrapped = false
			return tx.Model(&models.Post{}).
				Where("id = ? AND scrap_count > 0", postID).
				UpdateColumn("scrap_count", gorm.Expr("scrap_count - 1")).Error
		}
		if err := tx.Create(&models.PostScrap{UserID: userID, PostID: postID}).Error; err != nil {
			return err
		}
		scrapped = true
		return tx.Model(&models.Post{}).
			Where("id = ?", postID).
			UpdateColumn("scrap_count", gorm.Expr("scrap_count + 1")).Error
	})
	if err != nil {
		return false, models.NewInternalError(err)
	}
	return scrapped, nil
}

func (r *postRepository) ScrappedPosts(ctx context.Context, userID uint, limit, offset int) ([]*models.Post, error) {
	var posts []*models.Post
	if err := r.db.WithContext(ctx).
		Preload("User").
		Joins("JOIN post_scraps ON post_scraps.post_id = posts.id").
		Where("post_scraps.user_id = ?", userID).
		Order("post_scraps.created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&posts).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return posts, nil
}

func (r *postRepository) LikedPostIDs(ctx context.Context, userID uint, postIDs []uint) ([]uint, error) {
	if len(postIDs) == 0 {
		return nil, nil
	}
	var ids []uint
	if err := r.db.WithContext(ctx).
		Model(&models.PostLike{}).
		Where("user_id = ? AND post_id IN ?", userID, postIDs).
		Pluck("post_id", &ids).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return ids, nil
}

func (r *postRepository) ScrappedPostIDs(ctx context.Context, userID uint, postIDs []uint) ([]uint, error) {
	if len(postIDs) == 0 {
		return nil, nil
	}
	var ids []uint
	if err := r.db.WithContext(ctx).
		Model(&models.PostScrap{}).
		Where("user_id = ? AND post_id IN ?", userID, postIDs).
		Pluck("post_id", &ids).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return ids, nil
}
