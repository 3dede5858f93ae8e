// Package server contains HTTP handlers for the application's API endpoints.
package server

import (
	"codegardener/internal/models"
	"codegardener/internal/service"

	"github.com/gofiber/fiber/v2"
)

// GetLeaderboard handles GET /api/leaderboard
// @Summary Ranked users
// @Description Rank users by total points or weekly feedback activity
// @Tags community
// @Produce json
// @Param sort query string false "points | weeklyadopted | weeklyfeedback" default(points)
// @Param page query int false "Zero-based page"
// @Param size query int false "Page size (max 50)"
// @Success 200 {object} object{entries=[]service.LeaderboardEntry,total=int}
// @Failure 400 {object} object{error=string}
// @Router /leaderboard [get]
func (s *Server) GetLeaderboard(c *fiber.Ctx) error {
	sortBy := c.Query("sort", "points")
	page := c.QueryInt("page", 0)
	size := c.QueryInt("size", 0)

	entries, total, err := s.leaderboardService.List(c.Context(), sortBy, page, size)
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.JSON(fiber.Map{
		"entries": entries,
		"total":   total,
	})
}

// GetLeaderboardTop3 handles GET /api/leaderboard/top3
// @Summary Top three gardeners
// @Tags community
// @Produce json
// @Param sort query string false "points | weeklyadopted | weeklyfeedback" default(points)
// @Success 200 {array} service.LeaderboardEntry
// @Failure 400 {object} object{error=string}
// @Router /leaderboard/top3 [get]
func (s *Server) GetLeaderboardTop3(c *fiber.Ctx) error {
	entries, err := s.leaderboardService.Top3(c.Context(), c.Query("sort", service.LeaderboardByPoints))
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.JSON(entries)
}

// GetMainPage handles GET /api/main
// @Summary Main page payload
// @Description The most liked posts alongside the top three gardeners
// @Tags community
// @Produce json
// @Success 200 {object} object{popular_posts=[]models.Post,top3=[]service.LeaderboardEntry}
// @Router /main [get]
func (s *Server) GetMainPage(c *fiber.Ctx) error {
	posts, err := s.postService.PopularPosts(c.Context(), 4, nil, currentUserID(c))
	if err != nil {
		return models.RespondWithAppError(c, err)
	}

	top3, err := s.leaderboardService.Top3(c.Context(), service.LeaderboardByPoints)
	if err != nil {
		return models.RespondWithAppError(c, err)
	}

	return c.JSON(fiber.Map{
		"popular_posts": posts,
		"top3":          top3,
	})
}
