package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/stemsi/proctor-backend/internal/model"
	"github.com/stemsi/proctor-backend/internal/repository"
)

// UserStore is the profile persistence the service depends on.
type UserStore interface {
	GetByID(ctx context.Context, id string) (*model.User, error)
	UpsertProfile(ctx context.Context, u *model.User) error
	SetRole(ctx context.Context, id, email, role string) error
}

// UserService owns profiles and the admin role lookup.
type UserService struct {
	repo UserStore
}

// NewUserService creates a new UserService.
func NewUserService(repo UserStore) *UserService {
	return &UserService{repo: repo}
}

// Profile returns the stored profile, or nil when the user has none yet.
func (s *UserService) Profile(ctx context.Context, id string) (*model.User, error) {
	u, err := retryRead(ctx, func(ctx context.Context) (*model.User, error) {
		return s.repo.GetByID(ctx, id)
	})
	if errors.Is(err, repository.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get profile: %w", err)
	}
	return u, nil
}

// IsAdmin reports whether id holds the admin role.
func (s *UserService) IsAdmin(ctx context.Context, id string) (bool, error) {
	u, err := s.Profile(ctx, id)
	if err != nil {
		return false, err
	}
	return u.IsAdmin(), nil
}

// UpdateProfile stores the caller's own name, year and department.
func (s *UserService) UpdateProfile(ctx context.Context, ident *Identity, req model.UpdateProfileRequest) (*model.User, error) {
	u := &model.User{
		ID:         ident.UserID,
		Email:      ident.Email,
		Name:       strings.TrimSpace(req.Name),
		Year:       req.Year.Int(),
		Department: model.NormalizeDepartment(req.Department),
	}
	if err := s.repo.UpsertProfile(ctx, u); err != nil {
		return nil, fmt.Errorf("update profile: %w", err)
	}
	return u, nil
}

// GrantRole sets the role of id, creating a bare profile when needed.
func (s *UserService) GrantRole(ctx context.Context, id, email, role string) error {
	if role != model.RoleAdmin && role != model.RoleStudent {
		return fmt.Errorf("grant role: unknown role %q", role)
	}
	return s.repo.SetRole(ctx, id, email, role)
}
