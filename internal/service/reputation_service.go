package service

import (
	"context"
	"log/slog"
	"time"

	"codegardener/internal/models"
	"codegardener/internal/observability"
	"codegardener/internal/repository"
)

// ReputationService owns the points ledger, grade transitions, and daily
// attendance. All point mutations flow through here so the grade on the
// profile never drifts from its point total.
type ReputationService struct {
	userRepo repository.UserRepository
	logger   *slog.Logger
	// now is swapped in tests to pin the calendar day.
	now func() time.Time
}

// NewReputationService returns a new ReputationService.
func NewReputationService(userRepo repository.UserRepository, logger *slog.Logger) *ReputationService {
	return &ReputationService{
		userRepo: userRepo,
		logger:   logger,
		now:      time.Now,
	}
}

// AddPoints grants points to the user and recomputes the grade. A zero or
// negative amount is logged and ignored rather than treated as an error.
func (s *ReputationService) AddPoints(ctx context.Context, userID uint, amount int, source string) (*models.Profile, error) {
	profile, err := s.userRepo.GetProfile(ctx, userID)
	if err != nil {
		return nil, err
	}
	if amount <= 0 {
		s.logger.WarnContext(ctx, "ignoring non-positive point grant",
			slog.Uint64("user_id", uint64(userID)),
			slog.Int("amount", amount),
			slog.String("source", source),
		)
		return profile, nil
	}

	profile.Points += amount
	profile.Grade = GradeForPoints(profile.Points)
	if err := s.userRepo.UpdateProfile(ctx, profile); err != nil {
		return nil, err
	}

	observability.PointsAwarded.WithLabelValues(source).Add(float64(amount))
	return profile, nil
}

// SubtractPoints removes points from the user, flooring at zero, and
// recomputes the grade. Non-positive amounts are ignored like in AddPoints.
func (s *ReputationService) SubtractPoints(ctx context.Context, userID uint, amount int, source string) (*models.Profile, error) {
	profile, err := s.userRepo.GetProfile(ctx, userID)
	if err != nil {
		return nil, err
	}
	if amount <= 0 {
		s.logger.WarnContext(ctx, "ignoring non-positive point deduction",
			slog.Uint64("user_id", uint64(userID)),
			slog.Int("amount", amount),
			slog.String("source", source),
		)
		return profile, nil
	}

	profile.Points -= amount
	if profile.Points < 0 {
		s.logger.WarnContext(ctx, "point deduction exceeds balance, flooring at zero",
			slog.Uint64("user_id", uint64(userID)),
			slog.Int("amount", amount),
			slog.Int("balance", profile.Points+amount),
			slog.String("source", source),
		)
		profile.Points = 0
	}
	profile.Grade = GradeForPoints(profile.Points)
	if err := s.userRepo.UpdateProfile(ctx, profile); err != nil {
		return nil, err
	}
	return profile, nil
}

// sameCalendarDay reports whether a and b fall on the same date in UTC.
func sameCalendarDay(a, b time.Time) bool {
	ay, am, ad := a.UTC().Date()
	by, bm, bd := b.UTC().Date()
	return ay == by && am == bm && ad == bd
}

// RecordAttendance grants the daily attendance bonus. A second check-in on
// the same calendar day leaves the profile untouched and reports awarded as
// false rather than failing.
func (s *ReputationService) RecordAttendance(ctx context.Context, userID uint) (*models.Profile, bool, error) {
	profile, err := s.userRepo.GetProfile(ctx, userID)
	if err != nil {
		return nil, false, err
	}

	now := s.now()
	if profile.LastAttendanceDate != nil && sameCalendarDay(*profile.LastAttendanceDate, now) {
		return profile, false, nil
	}

	profile.Points += AttendancePoints
	profile.Grade = GradeForPoints(profile.Points)
	profile.LastAttendanceDate = &now
	if err := s.userRepo.UpdateProfile(ctx, profile); err != nil {
		return nil, false, err
	}

	observability.AttendanceChecks.Inc()
	observability.PointsAwarded.WithLabelValues("attendance").Add(float64(AttendancePoints))
	return profile, true, nil
}
