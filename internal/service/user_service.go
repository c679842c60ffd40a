package service

import (
	"context"
	"strings"

	"forum/internal/models"
	"forum/internal/repository"
	"forum/internal/validation"
)

type UserService struct {
	userRepo repository.UserRepository
	files    FileStore
}

// UpdateProfileInput carries a partial profile edit; nil fields are left unchanged.
type UpdateProfileInput struct {
	UserID   uint
	Username *string
	Bio      *string
	Avatar   *string
}

func NewUserService(userRepo repository.UserRepository, files FileStore) *UserService {
	return &UserService{userRepo: userRepo, files: files}
}

func (s *UserService) GetUserByID(ctx context.Context, id uint) (*models.User, error) {
	return s.userRepo.GetByID(ctx, id)
}

// GetProfile returns the public profile with the user's post and comment counts.
func (s *UserService) GetProfile(ctx context.Context, id uint) (*models.User, error) {
	user, err := s.userRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	posts, comments, err := s.userRepo.CountActivity(ctx, id)
	if err != nil {
		return nil, err
	}
	user.PostsCount = posts
	user.CommentsCount = comments
	return user, nil
}

// UpdateProfile applies a profile edit. A replaced avatar stays in storage.
func (s *UserService) UpdateProfile(ctx context.Context, in UpdateProfileInput) (*models.User, error) {
	current, err := s.userRepo.GetByID(ctx, in.UserID)
	if err != nil {
		return nil, err
	}

	changes := repository.ProfileChanges{}
	if in.Username != nil && *in.Username != current.Username {
		username := strings.TrimSpace(*in.Username)
		if err := validation.ValidateUsername(username); err != nil {
			return nil, models.NewValidationError(err.Error()).WithParam("username")
		}
		existing, err := s.userRepo.GetByUsername(ctx, username)
		if err != nil {
			return nil, err
		}
		if existing != nil && existing.ID != in.UserID {
			return nil, models.NewConflictError("Username already in use").WithParam("username")
		}
		changes.Username = &username
	}
	if in.Bio != nil {
		if err := validation.ValidateBio(*in.Bio); err != nil {
			return nil, models.NewValidationError(err.Error()).WithParam("bio")
		}
		changes.Bio = in.Bio
	}

	if in.Avatar != nil {
		avatar := strings.TrimSpace(*in.Avatar)
		if s.files != nil {
			avatar = s.files.Normalize(avatar)
		}
		changes.Avatar = &avatar
	}

	return s.userRepo.UpdateProfile(ctx, in.UserID, changes)
}

func (s *UserService) ListUsers(ctx context.Context, in ListInput) (*models.Page[models.User], error) {
	opts, err := userListRules.options(in)
	if err != nil {
		return nil, err
	}
	users, total, err := s.userRepo.List(ctx, opts)
	if err != nil {
		return nil, err
	}
	return pageOf(users, total, opts), nil
}

// SetRole changes a user's role to USER or ADMIN.
func (s *UserService) SetRole(ctx context.Context, targetID uint, role string) (*models.User, error) {
	role = strings.ToUpper(strings.TrimSpace(role))
	if err := validation.ValidateRole(role); err != nil {
		return nil, models.NewValidationError(err.Error()).WithParam("role")
	}
	return s.userRepo.UpdateRole(ctx, targetID, role)
}

// IsAdmin reports whether userID holds the ADMIN role. It backs the services'
// author-or-admin checks.
func (s *UserService) IsAdmin(ctx context.Context, userID uint) (bool, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return false, err
	}
	return user.IsAdmin(), nil
}
