package model

import (
	"time"

	"github.com/google/uuid"
)

// User represents a user in the system
type User struct {
	ID        uuid.UUID
	Email     string
	CreatedAt time.Time
}

// LoginToken is a persisted one-time code. Only the digest of the code is stored.
type LoginToken struct {
	ID        int64
	UserID    uuid.UUID
	CodeHash  string
	ExpiresAt time.Time
	Used      bool
	CreatedAt time.Time
}

// Note represents a text note owned by exactly one user
type Note struct {
	ID        uuid.UUID
	UserID    uuid.UUID
	Content   string
	CreatedAt time.Time
	UpdatedAt time.Time
}
