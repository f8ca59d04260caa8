package auth

import (
	"context"
	"errors"

	"github.com/mailnotes/server/internal/model"
)

var (
	ErrEmailRequired   = errors.New("email is required")
	ErrCodeRequired    = errors.New("code is required")
	ErrUserNotFound    = errors.New("user not found")
	ErrInvalidCode     = errors.New("invalid code")
	ErrCodeAlreadyUsed = errors.New("code already used")
	ErrCodeExpired     = errors.New("code expired")
	ErrDeliveryFailed  = errors.New("code delivery failed")
)

// CodeProvider issues and redeems one-time login codes
type CodeProvider interface {
	IssueCode(ctx context.Context, email string) error
	VerifyCode(ctx context.Context, email, code string) (model.User, error)
}
