package repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/mailnotes/server/internal/model"
)

// TokenRepo defines the interface for login token repository operations
type TokenRepo interface {
	Insert(ctx context.Context, userID uuid.UUID, codeHash string, expiresAt time.Time) (model.LoginToken, error)
	FindLatest(ctx context.Context, userID uuid.UUID, codeHash string) (model.LoginToken, error)
	MarkUsed(ctx context.Context, tokenID int64) (bool, error)
}

type tokenRepo struct {
	db *sql.DB
}

// NewTokenRepo creates a new TokenRepo instance
func NewTokenRepo(db *sql.DB) TokenRepo {
	return &tokenRepo{db: db}
}

// Insert stores a new unused token
func (r *tokenRepo) Insert(ctx context.Context, userID uuid.UUID, codeHash string, expiresAt time.Time) (model.LoginToken, error) {
	t := model.LoginToken{UserID: userID, CodeHash: codeHash, ExpiresAt: expiresAt}
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO login_tokens (user_id, code_hash, expires_at, used)
		VALUES ($1, $2, $3, false)
		RETURNING id, created_at
	`, userID, codeHash, expiresAt).Scan(&t.ID, &t.CreatedAt)
	if err != nil {
		return model.LoginToken{}, fmt.Errorf("insert login token: %w", err)
	}
	return t, nil
}

// FindLatest returns the most recently created token for the user and digest,
// regardless of whether it is used or expired; the caller decides.
func (r *tokenRepo) FindLatest(ctx context.Context, userID uuid.UUID, codeHash string) (model.LoginToken, error) {
	var t model.LoginToken
	err := r.db.QueryRowContext(ctx, `
		SELECT id, user_id, code_hash, expires_at, used, created_at
		FROM login_tokens
		WHERE user_id = $1 AND code_hash = $2
		ORDER BY id DESC
		LIMIT 1
	`, userID, codeHash).Scan(&t.ID, &t.UserID, &t.CodeHash, &t.ExpiresAt, &t.Used, &t.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.LoginToken{}, fmt.Errorf("login token: %w", ErrNotFound)
		}
		return model.LoginToken{}, fmt.Errorf("query login token: %w", err)
	}
	return t, nil
}

// MarkUsed flips used from false to true. It reports false when the token was
// already used, so of two concurrent callers exactly one observes true.
func (r *tokenRepo) MarkUsed(ctx context.Context, tokenID int64) (bool, error) {
	result, err := r.db.ExecContext(ctx, `
		UPDATE login_tokens SET used = true WHERE id = $1 AND used = false
	`, tokenID)
	if err != nil {
		return false, fmt.Errorf("mark token used: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("mark token used: %w", err)
	}
	return n == 1, nil
}
