package repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/mailnotes/server/internal/model"
)

// NoteRepo defines owner-scoped note operations. Every statement filters by
// user_id, so a note id belonging to someone else behaves like a missing one.
type NoteRepo interface {
	Insert(ctx context.Context, userID uuid.UUID, content string) (model.Note, error)
	Update(ctx context.Context, userID, noteID uuid.UUID, content string) (model.Note, error)
	Delete(ctx context.Context, userID, noteID uuid.UUID) error
	ListByUser(ctx context.Context, userID uuid.UUID) ([]model.Note, error)
}

type noteRepo struct {
	db *sql.DB
}

// NewNoteRepo creates a new NoteRepo instance
func NewNoteRepo(db *sql.DB) NoteRepo {
	return &noteRepo{db: db}
}

func (r *noteRepo) Insert(ctx context.Context, userID uuid.UUID, content string) (model.Note, error) {
	n := model.Note{UserID: userID, Content: content}
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO notes (user_id, content)
		VALUES ($1, $2)
		RETURNING id, created_at, updated_at
	`, userID, content).Scan(&n.ID, &n.CreatedAt, &n.UpdatedAt)
	if err != nil {
		return model.Note{}, fmt.Errorf("insert note: %w", err)
	}
	return n, nil
}

func (r *noteRepo) Update(ctx context.Context, userID, noteID uuid.UUID, content string) (model.Note, error) {
	n := model.Note{ID: noteID, UserID: userID, Content: content}
	err := r.db.QueryRowContext(ctx, `
		UPDATE notes SET content = $1, updated_at = now()
		WHERE id = $2 AND user_id = $3
		RETURNING created_at, updated_at
	`, content, noteID, userID).Scan(&n.CreatedAt, &n.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Note{}, fmt.Errorf("note: %w", ErrNotFound)
		}
		return model.Note{}, fmt.Errorf("update note: %w", err)
	}
	return n, nil
}

func (r *noteRepo) Delete(ctx context.Context, userID, noteID uuid.UUID) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM notes WHERE id = $1 AND user_id = $2`, noteID, userID)
	if err != nil {
		return fmt.Errorf("delete note: %w", err)
	}
	n, _ := result.RowsAffected()
	if n == 0 {
		return fmt.Errorf("note: %w", ErrNotFound)
	}
	return nil
}

func (r *noteRepo) ListByUser(ctx context.Context, userID uuid.UUID) ([]model.Note, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, user_id, content, created_at, updated_at
		FROM notes
		WHERE user_id = $1
		ORDER BY created_at DESC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("list notes: %w", err)
	}
	defer rows.Close()

	notes := make([]model.Note, 0)
	for rows.Next() {
		var n model.Note
		if err := rows.Scan(&n.ID, &n.UserID, &n.Content, &n.CreatedAt, &n.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan note: %w", err)
		}
		notes = append(notes, n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list notes: %w", err)
	}
	return notes, nil
}
