package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stemsi/proctor-backend/internal/model"
)

// UserRepository stores per-user profile and role data keyed by identity-provider id.
type UserRepository struct {
	pool *pgxpool.Pool
}

// NewUserRepository creates a new UserRepository.
func NewUserRepository(pool *pgxpool.Pool) *UserRepository {
	return &UserRepository{pool: pool}
}

// GetByID returns the profile for a user id.
func (r *UserRepository) GetByID(ctx context.Context, id string) (*model.User, error) {
	u := &model.User{}
	err := r.pool.QueryRow(ctx,
		`SELECT id, email, name, role, year, department, updated_at
		 FROM users WHERE id = $1`, id,
	).Scan(&u.ID, &u.Email, &u.Name, &u.Role, &u.Year, &u.Department, &u.UpdatedAt)
	if err != nil {
		return nil, classify("get user", err)
	}
	return u, nil
}

// UpsertProfile creates or updates the caller-editable part of a profile.
// The role column is never touched here.
func (r *UserRepository) UpsertProfile(ctx context.Context, u *model.User) error {
	err := r.pool.QueryRow(ctx,
		`INSERT INTO users (id, email, name, year, department)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (id) DO UPDATE
		 SET email = EXCLUDED.email, name = EXCLUDED.name,
		     year = EXCLUDED.year, department = EXCLUDED.department,
		     updated_at = NOW()
		 RETURNING role, updated_at`,
		u.ID, u.Email, u.Name, u.Year, u.Department,
	).Scan(&u.Role, &u.UpdatedAt)
	return classify("upsert user", err)
}

// SetRole grants or revokes a role, creating a bare profile when needed.
func (r *UserRepository) SetRole(ctx context.Context, id, email, role string) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO users (id, email, role) VALUES ($1, $2, $3)
		 ON CONFLICT (id) DO UPDATE SET role = EXCLUDED.role, updated_at = NOW()`,
		id, email, role)
	return classify("set role", err)
}
