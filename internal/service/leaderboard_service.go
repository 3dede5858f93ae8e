package service

import (
	"context"
	"strings"
	"time"

	"codegardener/internal/models"
	"codegardener/internal/repository"
)

// Leaderboard sort keys.
const (
	LeaderboardByPoints         = "points"
	LeaderboardByWeeklyAdopted  = "weeklyadopted"
	LeaderboardByWeeklyFeedback = "weeklyfeedback"

	weeklyWindow = 7 * 24 * time.Hour
)

// LeaderboardEntry is one ranked row. Score is the ranking value: total
// points for the points board, feedback counts for the weekly boards.
type LeaderboardEntry struct {
	Rank  int         `json:"rank"`
	User  models.User `json:"user"`
	Score int64       `json:"score"`
}

// LeaderboardService ranks users by points or recent feedback activity.
//
// The weekly boards aggregate counts first and load the user rows in a
// second, unordered query; the aggregation order is restored afterwards with
// reorderByIDs rather than trusting the user query's ordering.
type LeaderboardService struct {
	userRepo     repository.UserRepository
	feedbackRepo repository.FeedbackRepository
	now          func() time.Time
}

// NewLeaderboardService returns a new LeaderboardService.
func NewLeaderboardService(userRepo repository.UserRepository, feedbackRepo repository.FeedbackRepository) *LeaderboardService {
	return &LeaderboardService{
		userRepo:     userRepo,
		feedbackRepo: feedbackRepo,
		now:          time.Now,
	}
}

// Top3 returns the three highest-ranked users for the given sort. An empty
// sort ranks by points, which is what the main page shows.
func (s *LeaderboardService) Top3(ctx context.Context, sortBy string) ([]LeaderboardEntry, error) {
	switch strings.ToLower(strings.TrimSpace(sortBy)) {
	case LeaderboardByPoints, "":
		users, err := s.userRepo.TopByPoints(ctx, 3, 0)
		if err != nil {
			return nil, err
		}
		return entriesFromPoints(users, 0), nil
	case LeaderboardByWeeklyAdopted:
		entries, _, err := s.weeklyBoard(ctx, true, 3, 0)
		return entries, err
	case LeaderboardByWeeklyFeedback:
		entries, _, err := s.weeklyBoard(ctx, false, 3, 0)
		return entries, err
	default:
		return nil, models.NewValidationError("Invalid leaderboard sort: " + sortBy)
	}
}

// List returns one page of the leaderboard for the given sort along with the
// total number of ranked users. Unknown sorts are rejected.
func (s *LeaderboardService) List(ctx context.Context, sortBy string, page, size int) ([]LeaderboardEntry, int64, error) {
	if page < 0 {
		page = 0
	}
	if size <= 0 {
		size = DefaultPageSize
	}
	if size > maxPageSize {
		size = maxPageSize
	}
	offset := page * size

	switch strings.ToLower(strings.TrimSpace(sortBy)) {
	case LeaderboardByPoints:
		users, err := s.userRepo.TopByPoints(ctx, size, offset)
		if err != nil {
			return nil, 0, err
		}
		total, err := s.userRepo.CountProfiles(ctx)
		if err != nil {
			return nil, 0, err
		}
		return entriesFromPoints(users, offset), total, nil
	case LeaderboardByWeeklyAdopted:
		return s.weeklyBoard(ctx, true, size, offset)
	case LeaderboardByWeeklyFeedback:
		return s.weeklyBoard(ctx, false, size, offset)
	default:
		return nil, 0, models.NewValidationError("Invalid leaderboard sort: " + sortBy)
	}
}

func (s *LeaderboardService) weeklyBoard(ctx context.Context, adoptedOnly bool, size, offset int) ([]LeaderboardEntry, int64, error) {
	since := s.now().Add(-weeklyWindow)

	counts, err := s.feedbackRepo.CountsByUserSince(ctx, since, adoptedOnly, size, offset)
	if err != nil {
		return nil, 0, err
	}
	total, err := s.feedbackRepo.CountUsersWithFeedbackSince(ctx, since, adoptedOnly)
	if err != nil {
		return nil, 0, err
	}
	if len(counts) == 0 {
		return nil, total, nil
	}

	ids := make([]uint, len(counts))
	countByID := make(map[uint]int64, len(counts))
	for i, c := range counts {
		ids[i] = c.UserID
		countByID[c.UserID] = c.Count
	}

	users, err := s.userRepo.GetByIDs(ctx, ids)
	if err != nil {
		return nil, 0, err
	}
	ordered := reorderByIDs(users, ids)

	entries := make([]LeaderboardEntry, len(ordered))
	for i, u := range ordered {
		entries[i] = LeaderboardEntry{
			Rank:  offset + i + 1,
			User:  u,
			Score: countByID[u.ID],
		}
	}
	return entries, total, nil
}

// entriesFromPoints builds ranked entries for a points-ordered user slice.
func entriesFromPoints(users []models.User, offset int) []LeaderboardEntry {
	entries := make([]LeaderboardEntry, len(users))
	for i, u := range users {
		var points int64
		if u.Profile != nil {
			points = int64(u.Profile.Points)
		}
		entries[i] = LeaderboardEntry{
			Rank:  offset + i + 1,
			User:  u,
			Score: points,
		}
	}
	return entries
}

// reorderByIDs arranges users to match the order of ids. IDs with no
// matching user are skipped, so a user deleted between the two queries drops
// out instead of leaving a hole.
func reorderByIDs(users []models.User, ids []uint) []models.User {
	byID := make(map[uint]models.User, len(users))
	for _, u := range users {
		byID[u.ID] = u
	}

	ordered := make([]models.User, 0, len(ids))
	for _, id := range ids {
		if u, ok := byID[id]; ok {
			ordered = append(ordered, u)
		}
	}
	return ordered
}
