package service

import (
	"context"
	"testing"
	"time"

	"codegardener/internal/models"
	"codegardener/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLeaderboardService_List_InvalidSort(t *testing.T) {
	t.Parallel()

	svc := NewLeaderboardService(noopUserRepo(), noopFeedbackRepo())
	_, _, err := svc.List(context.Background(), "banana", 0, 20)
	assertValidationError(t, err)
}

func TestLeaderboardService_List_Points(t *testing.T) {
	t.Parallel()

	userRepo := noopUserRepo()
	userRepo.topByPointsFn = func(_ context.Context, limit, offset int) ([]models.User, error) {
		assert.Equal(t, 20, limit)
		assert.Equal(t, 20, offset)
		return []models.User{
			{ID: 3, Profile: &models.Profile{UserID: 3, Points: 800}},
			{ID: 1, Profile: &models.Profile{UserID: 1, Points: 600}},
		}, nil
	}
	userRepo.countProfilesFn = func(_ context.Context) (int64, error) { return 42, nil }
	svc := NewLeaderboardService(userRepo, noopFeedbackRepo())

	entries, total, err := svc.List(context.Background(), "points", 1, 20)
	require.NoError(t, err)
	assert.Equal(t, int64(42), total)
	require.Len(t, entries, 2)
	assert.Equal(t, 21, entries[0].Rank)
	assert.Equal(t, int64(800), entries[0].Score)
	assert.Equal(t, 22, entries[1].Rank)
	assert.Equal(t, uint(1), entries[1].User.ID)
}

func TestLeaderboardService_List_WeeklyFeedback_RestoresOrder(t *testing.T) {
	t.Parallel()

	feedbackRepo := noopFeedbackRepo()
	feedbackRepo.countsByUserSinceFn = func(_ context.Context, _ time.Time, adoptedOnly bool, _, _ int) ([]repository.UserCount, error) {
		assert.False(t, adoptedOnly)
		return []repository.UserCount{
			{UserID: 7, Count: 5},
			{UserID: 2, Count: 3},
			{UserID: 9, Count: 1},
		}, nil
	}
	feedbackRepo.countUsersWithFeedbackSinceFn = func(_ context.Context, _ time.Time, _ bool) (int64, error) {
		return 3, nil
	}

	// The user query returns rows in a different order than the counts.
	userRepo := noopUserRepo()
	userRepo.getByIDsFn = func(_ context.Context, ids []uint) ([]models.User, error) {
		assert.ElementsMatch(t, []uint{7, 2, 9}, ids)
		return []models.User{{ID: 9}, {ID: 2}, {ID: 7}}, nil
	}
	svc := NewLeaderboardService(userRepo, feedbackRepo)

	entries, total, err := svc.List(context.Background(), "weeklyfeedback", 0, 20)
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	require.Len(t, entries, 3)
	assert.Equal(t, uint(7), entries[0].User.ID)
	assert.Equal(t, int64(5), entries[0].Score)
	assert.Equal(t, 1, entries[0].Rank)
	assert.Equal(t, uint(2), entries[1].User.ID)
	assert.Equal(t, uint(9), entries[2].User.ID)
	assert.Equal(t, 3, entries[2].Rank)
}

func TestLeaderboardService_List_WeeklyAdopted_DropsMissingUsers(t *testing.T) {
	t.Parallel()

	feedbackRepo := noopFeedbackRepo()
	feedbackRepo.countsByUserSinceFn = func(_ context.Context, since time.Time, adoptedOnly bool, _, _ int) ([]repository.UserCount, error) {
		assert.True(t, adoptedOnly)
		assert.WithinDuration(t, time.Now().Add(-weeklyWindow), since, time.Minute)
		return []repository.UserCount{
			{UserID: 4, Count: 2},
			{UserID: 8, Count: 1},
		}, nil
	}
	feedbackRepo.countUsersWithFeedbackSinceFn = func(_ context.Context, _ time.Time, _ bool) (int64, error) {
		return 2, nil
	}

	// User 8 was deleted between the count query and the user query.
	userRepo := noopUserRepo()
	userRepo.getByIDsFn = func(_ context.Context, _ []uint) ([]models.User, error) {
		return []models.User{{ID: 4}}, nil
	}
	svc := NewLeaderboardService(userRepo, feedbackRepo)

	entries, total, err := svc.List(context.Background(), "WeeklyAdopted", 0, 20)
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	require.Len(t, entries, 1)
	assert.Equal(t, uint(4), entries[0].User.ID)
}

func TestLeaderboardService_List_ClampsPaging(t *testing.T) {
	t.Parallel()

	userRepo := noopUserRepo()
	userRepo.topByPointsFn = func(_ context.Context, limit, offset int) ([]models.User, error) {
		assert.Equal(t, maxPageSize, limit)
		assert.Equal(t, 0, offset)
		return nil, nil
	}
	svc := NewLeaderboardService(userRepo, noopFeedbackRepo())

	_, _, err := svc.List(context.Background(), "points", -3, 500)
	require.NoError(t, err)
}

func TestLeaderboardService_Top3(t *testing.T) {
	t.Parallel()

	userRepo := noopUserRepo()
	userRepo.topByPointsFn = func(_ context.Context, limit, offset int) ([]models.User, error) {
		assert.Equal(t, 3, limit)
		assert.Equal(t, 0, offset)
		return []models.User{
			{ID: 1, Profile: &models.Profile{UserID: 1, Points: 12000}},
			{ID: 2, Profile: &models.Profile{UserID: 2, Points: 9000}},
			{ID: 3},
		}, nil
	}
	svc := NewLeaderboardService(userRepo, noopFeedbackRepo())

	entries, err := svc.Top3(context.Background(), "")
	require.NoError(t, err)
	require.Len(t, entries, 3)
	assert.Equal(t, 1, entries[0].Rank)
	assert.Equal(t, int64(12000), entries[0].Score)
	assert.Equal(t, int64(0), entries[2].Score)
}

func TestLeaderboardService_Top3_WeeklySort(t *testing.T) {
	t.Parallel()

	feedbackRepo := noopFeedbackRepo()
	feedbackRepo.countsByUserSinceFn = func(_ context.Context, _ time.Time, adoptedOnly bool, limit, offset int) ([]repository.UserCount, error) {
		assert.True(t, adoptedOnly)
		assert.Equal(t, 3, limit)
		assert.Equal(t, 0, offset)
		return []repository.UserCount{{UserID: 4, Count: 2}}, nil
	}
	userRepo := noopUserRepo()
	userRepo.getByIDsFn = func(_ context.Context, ids []uint) ([]models.User, error) {
		return []models.User{{ID: 4}}, nil
	}
	svc := NewLeaderboardService(userRepo, feedbackRepo)

	entries, err := svc.Top3(context.Background(), "weeklyadopted")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, int64(2), entries[0].Score)

	_, err = svc.Top3(context.Background(), "banana")
	assertValidationError(t, err)
}
