// Package notes holds the owner-scoped note operations behind the API.
package notes

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/mailnotes/server/internal/model"
	"github.com/mailnotes/server/internal/repo"
)

var (
	ErrContentRequired = errors.New("content is required")
	// ErrNoteNotFound covers both missing notes and notes owned by someone else.
	ErrNoteNotFound = errors.New("note not found")
)

// Service manages the notes of authenticated users.
type Service struct {
	notes repo.NoteRepo
}

func NewService(notes repo.NoteRepo) *Service {
	return &Service{notes: notes}
}

func (s *Service) Create(ctx context.Context, userID uuid.UUID, content string) (model.Note, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return model.Note{}, ErrContentRequired
	}
	n, err := s.notes.Insert(ctx, userID, content)
	if err != nil {
		return model.Note{}, fmt.Errorf("create note: %w", err)
	}
	return n, nil
}

func (s *Service) Update(ctx context.Context, userID, noteID uuid.UUID, content string) (model.Note, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return model.Note{}, ErrContentRequired
	}
	n, err := s.notes.Update(ctx, userID, noteID, content)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return model.Note{}, ErrNoteNotFound
		}
		return model.Note{}, fmt.Errorf("update note: %w", err)
	}
	return n, nil
}

func (s *Service) Delete(ctx context.Context, userID, noteID uuid.UUID) error {
	if err := s.notes.Delete(ctx, userID, noteID); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return ErrNoteNotFound
		}
		return fmt.Errorf("delete note: %w", err)
	}
	return nil
}

// List returns the user's notes, newest first.
func (s *Service) List(ctx context.Context, userID uuid.UUID) ([]model.Note, error) {
	notes, err := s.notes.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list notes: %w", err)
	}
	if notes == nil {
		notes = []model.Note{}
	}
	return notes, nil
}
