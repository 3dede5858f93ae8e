package service

import (
	"context"

	"codegardener/internal/models"
	"codegardener/internal/repository"
	"codegardener/internal/validation"
)

// UserService implements account and profile management.
type UserService struct {
	userRepo repository.UserRepository
}

// UpdateProfileInput carries a profile edit. Empty fields are left unchanged.
type UpdateProfileInput struct {
	UserID   uint
	Username string
	Picture  string
}

// NewUserService returns a new UserService.
func NewUserService(userRepo repository.UserRepository) *UserService {
	return &UserService{userRepo: userRepo}
}

// GetUserByID returns the user with their profile preloaded.
func (s *UserService) GetUserByID(ctx context.Context, id uint) (*models.User, error) {
	return s.userRepo.GetByID(ctx, id)
}

// GetProfile returns the user's public profile.
func (s *UserService) GetProfile(ctx context.Context, userID uint) (*models.Profile, error) {
	return s.userRepo.GetProfile(ctx, userID)
}

// UpdateProfile applies a partial profile edit for the authenticated user.
func (s *UserService) UpdateProfile(ctx context.Context, in UpdateProfileInput) (*models.User, error) {
	user, err := s.userRepo.GetByID(ctx, in.UserID)
	if err != nil {
		return nil, err
	}

	if in.Username != "" && in.Username != user.Username {
		if err := validation.ValidateUsername(in.Username); err != nil {
			return nil, models.NewValidationError(err.Error())
		}
		existing, err := s.userRepo.GetByUsername(ctx, in.Username)
		if err != nil {
			return nil, err
		}
		if existing != nil {
			return nil, models.NewAlreadyExistsError("Username is already taken")
		}
		user.Username = in.Username
		if err := s.userRepo.Update(ctx, user); err != nil {
			return nil, err
		}
	}

	if in.Picture != "" {
		profile, err := s.userRepo.GetProfile(ctx, in.UserID)
		if err != nil {
			return nil, err
		}
		profile.Picture = in.Picture
		if err := s.userRepo.UpdateProfile(ctx, profile); err != nil {
			return nil, err
		}
		user.Profile = profile
	}

	return user, nil
}

// SetRole changes a user's role. Callers enforce that only admins reach this.
func (s *UserService) SetRole(ctx context.Context, targetID uint, role models.Role) (*models.User, error) {
	if role != models.RoleUser && role != models.RoleAdmin {
		return nil, models.NewValidationError("Invalid role: " + string(role))
	}

	user, err := s.userRepo.GetByID(ctx, targetID)
	if err != nil {
		return nil, err
	}

	user.Role = role
	if err := s.userRepo.Update(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// DeleteAccount removes the user and, through the cascade, their profile.
func (s *UserService) DeleteAccount(ctx context.Context, userID uint) error {
	return s.userRepo.Delete(ctx, userID)
}

// AdminDeleteUser removes another user's account. Admins may not delete
// themselves through this operation.
func (s *UserService) AdminDeleteUser(ctx context.Context, adminID, targetID uint) error {
	if adminID == targetID {
		return models.NewInvalidStateError("Admins cannot delete their own account")
	}
	if _, err := s.userRepo.GetByID(ctx, targetID); err != nil {
		return err
	}
	return s.userRepo.Delete(ctx, targetID)
}

// IsAdmin reports whether the user holds the admin role. Wired into post and
// feedback services as their admin check.
func (s *UserService) IsAdmin(ctx context.Context, userID uint) (bool, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return false, err
	}
	return user.IsAdmin(), nil
}
