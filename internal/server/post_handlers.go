// Package server contains HTTP handlers for the application's API endpoints.
package server

import (
	"codegardener/internal/models"
	"codegardener/internal/service"

	"github.com/gofiber/fiber/v2"
)

type postRequest struct {
	Title            string `json:"title"`
	Content          string `json:"content"`
	Code             string `json:"code"`
	Summary          string `json:"summary"`
	ContentsType     *bool  `json:"contents_type"`
	LangTags         string `json:"lang_tags"`
	StackTags        string `json:"stack_tags"`
	GithubRepoURL    string `json:"github_repo_url"`
	ProblemStatement string `json:"problem_statement"`
}

// CreatePost handles POST /api/posts
// @Summary Create a post
// @Description Submit code for review; the AI first-pass review is generated in the background
// @Tags posts
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body postRequest true "Post"
// @Success 201 {object} models.Post
// @Failure 400 {object} object{error=string}
// @Router /posts [post]
func (s *Server) CreatePost(c *fiber.Ctx) error {
	userID := c.Locals("userID").(uint)

	var req postRequest
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	contentsType := true // dev post unless stated otherwise
	if req.ContentsType != nil {
		contentsType = *req.ContentsType
	}

	post, err := s.postService.CreatePost(c.Context(), service.CreatePostInput{
		UserID:           userID,
		Title:            req.Title,
		Content:          req.Content,
		Code:             req.Code,
		Summary:          req.Summary,
		ContentsType:     contentsType,
		LangTags:         req.LangTags,
		StackTags:        req.StackTags,
		GithubRepoURL:    req.GithubRepoURL,
		ProblemStatement: req.ProblemStatement,
	})
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(post)
}

// GetPost handles GET /api/posts/:id
// @Summary Get a post
// @Description Get a post with author and per-viewer flags; records a view
// @Tags posts
// @Produce json
// @Param id path int true "Post ID"
// @Success 200 {object} models.Post
// @Failure 404 {object} object{error=string}
// @Router /posts/{id} [get]
func (s *Server) GetPost(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	post, err := s.postService.GetPost(c.Context(), id, currentUserID(c))
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.JSON(post)
}

// DiscoverPosts handles GET /api/posts
// @Summary Discover posts
// @Description Browse posts filtered by keyword, language/stack tags, and content type
// @Tags posts
// @Produce json
// @Param keyword query string false "Keyword matched against title, content, and author name"
// @Param langs query string false "Comma-separated language tags"
// @Param stacks query string false "Comma-separated stack tags"
// @Param contents_type query bool false "true for dev posts, false for coding-test posts"
// @Param sort query string false "latest | views | feedback"
// @Param page query int false "Zero-based page"
// @Param size query int false "Page size (max 50)"
// @Success 200 {object} object{posts=[]models.Post,total=int}
// @Router /posts [get]
func (s *Server) DiscoverPosts(c *fiber.Ctx) error {
	in := service.DiscoverInput{
		Keyword:      c.Query("keyword"),
		LangCSV:      c.Query("langs"),
		StackCSV:     c.Query("stacks"),
		ContentsType: boolQuery(c, "contents_type"),
		Sort:         c.Query("sort"),
		Page:         c.QueryInt("page", 0),
		Size:         c.QueryInt("size", service.DefaultPageSize),
	}

	posts, total, err := s.postService.DiscoverPosts(c.Context(), in, currentUserID(c))
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.JSON(fiber.Map{
		"posts": posts,
		"total": total,
	})
}

// GetPopularPosts handles GET /api/posts/popular
// @Summary Most liked posts
// @Tags posts
// @Produce json
// @Param limit query int false "Number of posts (default 4)"
// @Param contents_type query bool false "true for dev posts, false for coding tests"
// @Success 200 {array} models.Post
// @Router /posts/popular [get]
func (s *Server) GetPopularPosts(c *fiber.Ctx) error {
	limit := c.QueryInt("limit", 4)

	posts, err := s.postService.PopularPosts(c.Context(), limit,
		boolQuery(c, "contents_type"), currentUserID(c))
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.JSON(posts)
}

// GetPostAIFeedback handles GET /api/posts/:id/ai-feedback
// @Summary Stored AI review for a post
// @Tags posts
// @Produce json
// @Param id path int true "Post ID"
// @Success 200 {object} object{ai_feedback=string}
// @Failure 404 {object} object{error=string}
// @Router /posts/{id}/ai-feedback [get]
func (s *Server) GetPostAIFeedback(c *fiber.Ctx) error {
	postID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	feedback, err := s.postService.GetAIFeedback(c.Context(), postID)
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.JSON(fiber.Map{
		"ai_feedback": feedback,
	})
}

// UpdatePost handles PUT /api/posts/:id
// @Summary Update a post
// @Description Partial edit; only the author may update
// @Tags posts
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Post ID"
// @Param request body postRequest true "Fields to update"
// @Success 200 {object} models.Post
// @Failure 403 {object} object{error=string}
// @Router /posts/{id} [put]
func (s *Server) UpdatePost(c *fiber.Ctx) error {
	userID := c.Locals("userID").(uint)
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	var req postRequest
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	post, err := s.postService.UpdatePost(c.Context(), service.UpdatePostInput{
		UserID:           userID,
		PostID:           id,
		Title:            req.Title,
		Content:          req.Content,
		Code:             req.Code,
		Summary:          req.Summary,
		LangTags:         req.LangTags,
		StackTags:        req.StackTags,
		GithubRepoURL:    req.GithubRepoURL,
		ProblemStatement: req.ProblemStatement,
	})
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.JSON(post)
}

// DeletePost handles DELETE /api/posts/:id
// @Summary Delete a post
// @Description The author or an admin may delete
// @Tags posts
// @Produce json
// @Security BearerAuth
// @Param id path int true "Post ID"
// @Success 200 {object} object{message=string}
// @Failure 403 {object} object{error=string}
// @Router /posts/{id} [delete]
func (s *Server) DeletePost(c *fiber.Ctx) error {
	userID := c.Locals("userID").(uint)
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	if err := s.postService.DeletePost(c.Context(), userID, id); err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.JSON(fiber.Map{
		"message": "Post deleted",
	})
}

// TogglePostLike handles POST /api/posts/:id/like
// @Summary Toggle a like on a post
// @Tags posts
// @Produce json
// @Security BearerAuth
// @Param id path int true "Post ID"
// @Success 200 {object} models.Post
// @Failure 404 {object} object{error=string}
// @Router /posts/{id}/like [post]
func (s *Server) TogglePostLike(c *fiber.Ctx) error {
	userID := c.Locals("userID").(uint)
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	post, err := s.postService.ToggleLike(c.Context(), userID, id)
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.JSON(post)
}

// TogglePostScrap handles POST /api/posts/:id/scrap
// @Summary Toggle a scrap (bookmark) on a post
// @Tags posts
// @Produce json
// @Security BearerAuth
// @Param id path int true "Post ID"
// @Success 200 {object} models.Post
// @Failure 404 {object} object{error=string}
// @Router /posts/{id}/scrap [post]
func (s *Server) TogglePostScrap(c *fiber.Ctx) error {
	userID := c.Locals("userID").(uint)
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	post, err := s.postService.ToggleScrap(c.Context(), userID, id)
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.JSON(post)
}

// RegenerateAIFeedback handles POST /api/posts/:id/ai-feedback
// @Summary Regenerate the AI review
// @Description Re-run the AI review synchronously; only the author may trigger it
// @Tags posts
// @Produce json
// @Security BearerAuth
// @Param id path int true "Post ID"
// @Success 200 {object} models.Post
// @Failure 403 {object} object{error=string}
// @Router /posts/{id}/ai-feedback [post]
func (s *Server) RegenerateAIFeedback(c *fiber.Ctx) error {
	userID := c.Locals("userID").(uint)
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	post, err := s.postService.RegenerateAIFeedback(c.Context(), userID, id)
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.JSON(post)
}
