package repo

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/mailnotes/server/internal/model"
)

// MemoryUserRepo is a UserRepo kept in process memory (STORAGE=memory and tests).
type MemoryUserRepo struct {
	mu      sync.RWMutex
	byID    map[uuid.UUID]model.User
	byEmail map[string]uuid.UUID
}

func NewMemoryUserRepo() *MemoryUserRepo {
	return &MemoryUserRepo{
		byID:    make(map[uuid.UUID]model.User),
		byEmail: make(map[string]uuid.UUID),
	}
}

func (r *MemoryUserRepo) GetByID(_ context.Context, id uuid.UUID) (model.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	u, ok := r.byID[id]
	if !ok {
		return model.User{}, fmt.Errorf("user: %w", ErrNotFound)
	}
	return u, nil
}

func (r *MemoryUserRepo) GetByEmail(_ context.Context, email string) (model.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.byEmail[email]
	if !ok {
		return model.User{}, fmt.Errorf("user: %w", ErrNotFound)
	}
	return r.byID[id], nil
}

func (r *MemoryUserRepo) Create(_ context.Context, email string) (model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byEmail[email]; ok {
		return model.User{}, fmt.Errorf("failed to insert user: email %q already exists", email)
	}
	return r.insertLocked(email), nil
}

func (r *MemoryUserRepo) GetOrCreateByEmail(_ context.Context, email string) (model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if id, ok := r.byEmail[email]; ok {
		return r.byID[id], nil
	}
	return r.insertLocked(email), nil
}

// UpdateEmail changes the address bound to a user. Outstanding session
// credentials for that user stop resolving, since their tag covers the email.
func (r *MemoryUserRepo) UpdateEmail(_ context.Context, id uuid.UUID, email string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.byID[id]
	if !ok {
		return fmt.Errorf("user: %w", ErrNotFound)
	}
	if _, taken := r.byEmail[email]; taken {
		return fmt.Errorf("update user: email %q already exists", email)
	}
	delete(r.byEmail, u.Email)
	u.Email = email
	r.byID[id] = u
	r.byEmail[email] = id
	return nil
}

// Count returns the number of stored users
func (r *MemoryUserRepo) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byID)
}

func (r *MemoryUserRepo) insertLocked(email string) model.User {
	u := model.User{ID: uuid.New(), Email: email, CreatedAt: time.Now()}
	r.byID[u.ID] = u
	r.byEmail[email] = u.ID
	return u
}

// MemoryTokenRepo is a TokenRepo kept in process memory.
type MemoryTokenRepo struct {
	mu     sync.Mutex
	nextID int64
	tokens []model.LoginToken
}

func NewMemoryTokenRepo() *MemoryTokenRepo {
	return &MemoryTokenRepo{}
}

func (r *MemoryTokenRepo) Insert(_ context.Context, userID uuid.UUID, codeHash string, expiresAt time.Time) (model.LoginToken, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	t := model.LoginToken{
		ID:        r.nextID,
		UserID:    userID,
		CodeHash:  codeHash,
		ExpiresAt: expiresAt,
		CreatedAt: time.Now(),
	}
	r.tokens = append(r.tokens, t)
	return t, nil
}

func (r *MemoryTokenRepo) FindLatest(_ context.Context, userID uuid.UUID, codeHash string) (model.LoginToken, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := len(r.tokens) - 1; i >= 0; i-- {
		t := r.tokens[i]
		if t.UserID == userID && t.CodeHash == codeHash {
			return t, nil
		}
	}
	return model.LoginToken{}, fmt.Errorf("login token: %w", ErrNotFound)
}

func (r *MemoryTokenRepo) MarkUsed(_ context.Context, tokenID int64) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.tokens {
		if r.tokens[i].ID != tokenID {
			continue
		}
		if r.tokens[i].Used {
			return false, nil
		}
		r.tokens[i].Used = true
		return true, nil
	}
	return false, nil
}

// ForUser returns a copy of the user's tokens, oldest first
func (r *MemoryTokenRepo) ForUser(userID uuid.UUID) []model.LoginToken {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []model.LoginToken
	for _, t := range r.tokens {
		if t.UserID == userID {
			out = append(out, t)
		}
	}
	return out
}

// MemoryNoteRepo is a NoteRepo kept in process memory.
type MemoryNoteRepo struct {
	mu    sync.RWMutex
	seq   int64
	notes map[uuid.UUID]memNote
}

type memNote struct {
	model.Note
	seq int64
}

func NewMemoryNoteRepo() *MemoryNoteRepo {
	return &MemoryNoteRepo{notes: make(map[uuid.UUID]memNote)}
}

func (r *MemoryNoteRepo) Insert(_ context.Context, userID uuid.UUID, content string) (model.Note, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := time.Now()
	r.seq++
	n := model.Note{ID: uuid.New(), UserID: userID, Content: content, CreatedAt: now, UpdatedAt: now}
	r.notes[n.ID] = memNote{Note: n, seq: r.seq}
	return n, nil
}

func (r *MemoryNoteRepo) Update(_ context.Context, userID, noteID uuid.UUID, content string) (model.Note, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	n, ok := r.notes[noteID]
	if !ok || n.UserID != userID {
		return model.Note{}, fmt.Errorf("note: %w", ErrNotFound)
	}
	n.Content = content
	n.UpdatedAt = time.Now()
	r.notes[noteID] = n
	return n.Note, nil
}

func (r *MemoryNoteRepo) Delete(_ context.Context, userID, noteID uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	n, ok := r.notes[noteID]
	if !ok || n.UserID != userID {
		return fmt.Errorf("note: %w", ErrNotFound)
	}
	delete(r.notes, noteID)
	return nil
}

func (r *MemoryNoteRepo) ListByUser(_ context.Context, userID uuid.UUID) ([]model.Note, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	owned := make([]memNote, 0)
	for _, n := range r.notes {
		if n.UserID == userID {
			owned = append(owned, n)
		}
	}
	sort.Slice(owned, func(i, j int) bool {
		if !owned[i].CreatedAt.Equal(owned[j].CreatedAt) {
			return owned[i].CreatedAt.After(owned[j].CreatedAt)
		}
		return owned[i].seq > owned[j].seq
	})
	notes := make([]model.Note, len(owned))
	for i, n := range owned {
		notes[i] = n.Note
	}
	return notes, nil
}

var (
	_ UserRepo  = (*MemoryUserRepo)(nil)
	_ TokenRepo = (*MemoryTokenRepo)(nil)
	_ NoteRepo  = (*MemoryNoteRepo)(nil)
)

