package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"codegardener/internal/models"
	"codegardener/internal/service"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestGetLeaderboard_InvalidSort(t *testing.T) {
	s := &Server{
		leaderboardService: service.NewLeaderboardService(nil, nil),
	}
	app := fiber.New()
	app.Get("/leaderboard", s.GetLeaderboard)

	req := httptest.NewRequest(http.MethodGet, "/leaderboard?sort=banana", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestGetLeaderboardTop3(t *testing.T) {
	mockRepo := new(MockUserRepository)
	mockRepo.On("TopByPoints", mock.Anything, 3, 0).Return([]models.User{
		{ID: 1, Username: "first", Profile: &models.Profile{UserID: 1, Points: 11000}},
		{ID: 2, Username: "second", Profile: &models.Profile{UserID: 2, Points: 8000}},
		{ID: 3, Username: "third", Profile: &models.Profile{UserID: 3, Points: 4000}},
	}, nil)

	s := &Server{
		leaderboardService: service.NewLeaderboardService(mockRepo, nil),
	}
	app := fiber.New()
	app.Get("/leaderboard/top3", s.GetLeaderboardTop3)

	req := httptest.NewRequest(http.MethodGet, "/leaderboard/top3", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var entries []service.LeaderboardEntry
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&entries))
	require.Len(t, entries, 3)
	assert.Equal(t, 1, entries[0].Rank)
	assert.Equal(t, "first", entries[0].User.Username)
	assert.Equal(t, int64(11000), entries[0].Score)
}
