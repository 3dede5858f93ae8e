// Package server contains HTTP handlers for the application's API endpoints.
package server

import (
	"codegardener/internal/models"
	"codegardener/internal/service"

	"github.com/gofiber/fiber/v2"
)

type lineFeedbackRequest struct {
	Line    int    `json:"line"`
	EndLine *int   `json:"end_line"`
	Content string `json:"content"`
}

// CreateFeedback handles POST /api/posts/:id/feedbacks
// @Summary Submit feedback on a post
// @Tags feedback
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Post ID"
// @Param request body object{content=string,rating=number,lines=[]lineFeedbackRequest} true "Feedback"
// @Success 201 {object} models.Feedback
// @Failure 400 {object} object{error=string}
// @Router /posts/{id}/feedbacks [post]
func (s *Server) CreateFeedback(c *fiber.Ctx) error {
	userID := c.Locals("userID").(uint)
	postID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	var req struct {
		Content string                `json:"content"`
		Rating  float64               `json:"rating"`
		Lines   []lineFeedbackRequest `json:"lines"`
	}
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	in := service.CreateFeedbackInput{
		UserID:  userID,
		PostID:  postID,
		Content: req.Content,
		Rating:  req.Rating,
	}
	for _, line := range req.Lines {
		in.Lines = append(in.Lines, service.LineFeedbackInput{
			Line:    line.Line,
			EndLine: line.EndLine,
			Content: line.Content,
		})
	}

	feedback, err := s.feedbackService.CreateFeedback(c.Context(), in)
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(feedback)
}

// GetPostFeedbacks handles GET /api/posts/:id/feedbacks
// @Summary List feedback on a post
// @Description Adopted feedback first, then oldest first
// @Tags feedback
// @Produce json
// @Param id path int true "Post ID"
// @Success 200 {array} models.Feedback
// @Failure 404 {object} object{error=string}
// @Router /posts/{id}/feedbacks [get]
func (s *Server) GetPostFeedbacks(c *fiber.Ctx) error {
	postID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	feedbacks, err := s.feedbackService.ListByPost(c.Context(), postID)
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.JSON(feedbacks)
}

// UpdateFeedback handles PUT /api/feedbacks/:id
// @Summary Update feedback
// @Description Author only; adopted feedback is frozen
// @Tags feedback
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Feedback ID"
// @Param request body object{content=string,rating=number} true "Fields to update"
// @Success 200 {object} models.Feedback
// @Failure 403 {object} object{error=string}
// @Failure 409 {object} object{error=string}
// @Router /feedbacks/{id} [put]
func (s *Server) UpdateFeedback(c *fiber.Ctx) error {
	userID := c.Locals("userID").(uint)
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	var req struct {
		Content string  `json:"content"`
		Rating  float64 `json:"rating"`
	}
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	feedback, err := s.feedbackService.UpdateFeedback(c.Context(), service.UpdateFeedbackInput{
		UserID:     userID,
		FeedbackID: id,
		Content:    req.Content,
		Rating:     req.Rating,
	})
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.JSON(feedback)
}

// DeleteFeedback handles DELETE /api/feedbacks/:id
// @Summary Delete feedback
// @Description Author (unless adopted) or an admin
// @Tags feedback
// @Produce json
// @Security BearerAuth
// @Param id path int true "Feedback ID"
// @Success 200 {object} object{message=string}
// @Failure 403 {object} object{error=string}
// @Failure 409 {object} object{error=string}
// @Router /feedbacks/{id} [delete]
func (s *Server) DeleteFeedback(c *fiber.Ctx) error {
	userID := c.Locals("userID").(uint)
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	if err := s.feedbackService.DeleteFeedback(c.Context(), userID, id); err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.JSON(fiber.Map{
		"message": "Feedback deleted",
	})
}

// AdoptFeedback handles POST /api/feedbacks/:id/adopt
// @Summary Adopt feedback
// @Description Post author marks the accepted review; the reviewer earns the adoption bonus
// @Tags feedback
// @Produce json
// @Security BearerAuth
// @Param id path int true "Feedback ID"
// @Success 200 {object} models.Feedback
// @Failure 403 {object} object{error=string}
// @Failure 409 {object} object{error=string}
// @Router /feedbacks/{id}/adopt [post]
func (s *Server) AdoptFeedback(c *fiber.Ctx) error {
	userID := c.Locals("userID").(uint)
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	feedback, err := s.feedbackService.AdoptFeedback(c.Context(), userID, id)
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.JSON(feedback)
}

// ToggleFeedbackLike handles POST /api/feedbacks/:id/like
// @Summary Toggle a like on feedback
// @Tags feedback
// @Produce json
// @Security BearerAuth
// @Param id path int true "Feedback ID"
// @Success 200 {object} object{liked=bool}
// @Failure 404 {object} object{error=string}
// @Router /feedbacks/{id}/like [post]
func (s *Server) ToggleFeedbackLike(c *fiber.Ctx) error {
	userID := c.Locals("userID").(uint)
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	liked, err := s.feedbackService.ToggleLike(c.Context(), userID, id)
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.JSON(fiber.Map{
		"liked": liked,
	})
}

// CreateFeedbackComment handles POST /api/feedbacks/:id/comments
// @Summary Comment on feedback
// @Tags feedback
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Feedback ID"
// @Param request body object{content=string} true "Comment"
// @Success 201 {object} models.FeedbackComment
// @Failure 400 {object} object{error=string}
// @Router /feedbacks/{id}/comments [post]
func (s *Server) CreateFeedbackComment(c *fiber.Ctx) error {
	userID := c.Locals("userID").(uint)
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	var req struct {
		Content string `json:"content"`
	}
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	comment, err := s.feedbackService.AddComment(c.Context(), userID, id, req.Content)
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(comment)
}

// DeleteFeedbackComment handles DELETE /api/feedbacks/:id/comments/:commentId
// @Summary Delete a feedback comment
// @Tags feedback
// @Produce json
// @Security BearerAuth
// @Param id path int true "Feedback ID"
// @Param commentId path int true "Comment ID"
// @Success 200 {object} object{message=string}
// @Failure 403 {object} object{error=string}
// @Router /feedbacks/{id}/comments/{commentId} [delete]
func (s *Server) DeleteFeedbackComment(c *fiber.Ctx) error {
	userID := c.Locals("userID").(uint)
	commentID, err := s.parseID(c, "commentId")
	if err != nil {
		return nil
	}

	if err := s.feedbackService.DeleteComment(c.Context(), userID, commentID); err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.JSON(fiber.Map{
		"message": "Comment deleted",
	})
}

// GetFeedback handles GET /api/feedbacks/:id
// @Summary Feedback detail with line comments and replies
// @Tags feedback
// @Produce json
// @Param id path int true "Feedback ID"
// @Success 200 {object} models.Feedback
// @Failure 404 {object} object{error=string}
// @Router /feedbacks/{id} [get]
func (s *Server) GetFeedback(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	feedback, err := s.feedbackService.GetFeedback(c.Context(), id)
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.JSON(feedback)
}

// CreateLineFeedback handles POST /api/feedbacks/:id/lines
// @Summary Anchor a line comment to existing feedback
// @Tags feedback
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Feedback ID"
// @Param request body lineFeedbackRequest true "Line comment"
// @Success 201 {object} models.LineFeedback
// @Failure 400 {object} object{error=string}
// @Failure 403 {object} object{error=string}
// @Router /feedbacks/{id}/lines [post]
func (s *Server) CreateLineFeedback(c *fiber.Ctx) error {
	userID := c.Locals("userID").(uint)
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	var req lineFeedbackRequest
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	line, err := s.feedbackService.AddLine(c.Context(), userID, id, service.LineFeedbackInput{
		Line:    req.Line,
		EndLine: req.EndLine,
		Content: req.Content,
	})
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(line)
}

// DeleteLineFeedback handles DELETE /api/feedbacks/:id/lines/:lineId
// @Summary Delete a line comment
// @Tags feedback
// @Produce json
// @Security BearerAuth
// @Param id path int true "Feedback ID"
// @Param lineId path int true "Line feedback ID"
// @Success 200 {object} object{message=string}
// @Failure 403 {object} object{error=string}
// @Router /feedbacks/{id}/lines/{lineId} [delete]
func (s *Server) DeleteLineFeedback(c *fiber.Ctx) error {
	userID := c.Locals("userID").(uint)
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	lineID, err := s.parseID(c, "lineId")
	if err != nil {
		return nil
	}

	if err := s.feedbackService.DeleteLine(c.Context(), userID, id, lineID); err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.JSON(fiber.Map{
		"message": "Line feedback deleted",
	})
}

// UpdateLineFeedback handles PUT /api/feedbacks/:id/lines/:lineId
// @Summary Edit a line comment
// @Tags feedback
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Feedback ID"
// @Param lineId path int true "Line feedback ID"
// @Param request body lineFeedbackRequest true "Line comment"
// @Success 200 {object} models.LineFeedback
// @Failure 403 {object} object{error=string}
// @Failure 409 {object} object{error=string}
// @Router /feedbacks/{id}/lines/{lineId} [put]
func (s *Server) UpdateLineFeedback(c *fiber.Ctx) error {
	userID := c.Locals("userID").(uint)
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	lineID, err := s.parseID(c, "lineId")
	if err != nil {
		return nil
	}

	var req lineFeedbackRequest
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	line, err := s.feedbackService.UpdateLine(c.Context(), userID, id, lineID, service.LineFeedbackInput{
		Line:    req.Line,
		EndLine: req.EndLine,
		Content: req.Content,
	})
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.JSON(line)
}
