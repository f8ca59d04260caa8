package repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/mailnotes/server/internal/model"
)

// UserRepo defines the interface for user repository operations
type UserRepo interface {
	GetByID(ctx context.Context, id uuid.UUID) (model.User, error)
	GetByEmail(ctx context.Context, email string) (model.User, error)
	Create(ctx context.Context, email string) (model.User, error)
	GetOrCreateByEmail(ctx context.Context, email string) (model.User, error)
}

type userRepo struct {
	db *sql.DB
}

// NewUserRepo creates a new UserRepo instance
func NewUserRepo(db *sql.DB) UserRepo {
	return &userRepo{db: db}
}

// GetByID retrieves a user by ID
func (r *userRepo) GetByID(ctx context.Context, id uuid.UUID) (model.User, error) {
	return r.scanOne(ctx, `SELECT id, email, created_at FROM users WHERE id = $1`, id)
}

// GetByEmail retrieves a user by email address
func (r *userRepo) GetByEmail(ctx context.Context, email string) (model.User, error) {
	return r.scanOne(ctx, `SELECT id, email, created_at FROM users WHERE email = $1`, email)
}

// Create inserts a new user and returns it with the generated id
func (r *userRepo) Create(ctx context.Context, email string) (model.User, error) {
	var user model.User
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO users (email)
		VALUES ($1)
		RETURNING id, email, created_at
	`, email).Scan(&user.ID, &user.Email, &user.CreatedAt)
	if err != nil {
		return model.User{}, fmt.Errorf("failed to insert user: %w", err)
	}
	return user, nil
}

// GetOrCreateByEmail retrieves a user by email or creates one if it doesn't exist.
// ON CONFLICT DO NOTHING keeps concurrent first requests for one address from failing.
func (r *userRepo) GetOrCreateByEmail(ctx context.Context, email string) (model.User, error) {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO users (email)
		VALUES ($1)
		ON CONFLICT (email) DO NOTHING
	`, email)
	if err != nil {
		return model.User{}, fmt.Errorf("failed to insert user: %w", err)
	}
	return r.GetByEmail(ctx, email)
}

func (r *userRepo) scanOne(ctx context.Context, query string, arg any) (model.User, error) {
	var user model.User
	err := r.db.QueryRowContext(ctx, query, arg).Scan(&user.ID, &user.Email, &user.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.User{}, fmt.Errorf("user: %w", ErrNotFound)
		}
		return model.User{}, fmt.Errorf("failed to query user: %w", err)
	}
	return user, nil
}
