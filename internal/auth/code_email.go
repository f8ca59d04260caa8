package auth

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/mailnotes/server/internal/mailer"
	"github.com/mailnotes/server/internal/model"
	"github.com/mailnotes/server/internal/repo"
)

const (
	// CodeTTL is how long an issued code can be redeemed.
	CodeTTL = 15 * time.Minute

	codeMin  = 100000
	codeSpan = 900000
)

// CodeGenerator returns a fresh six-digit decimal code.
type CodeGenerator func() (string, error)

// EmailCodeProvider implements CodeProvider with codes delivered by email.
// Only SHA-256 digests of codes are persisted.
type EmailCodeProvider struct {
	users    repo.UserRepo
	tokens   repo.TokenRepo
	sender   mailer.Sender
	generate CodeGenerator
	now      func() time.Time
}

// EmailCodeOption customizes an EmailCodeProvider.
type EmailCodeOption func(*EmailCodeProvider)

// WithCodeGenerator replaces the crypto/rand generator.
func WithCodeGenerator(g CodeGenerator) EmailCodeOption {
	return func(p *EmailCodeProvider) { p.generate = g }
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) EmailCodeOption {
	return func(p *EmailCodeProvider) { p.now = now }
}

// NewEmailCodeProvider creates a new code provider
func NewEmailCodeProvider(users repo.UserRepo, tokens repo.TokenRepo, sender mailer.Sender, opts ...EmailCodeOption) *EmailCodeProvider {
	p := &EmailCodeProvider{
		users:    users,
		tokens:   tokens,
		sender:   sender,
		generate: GenerateCode,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// IssueCode finds or creates the user, stores the digest of a new code and
// mails the plaintext. The token is kept when delivery fails; without the
// code it cannot be redeemed.
func (p *EmailCodeProvider) IssueCode(ctx context.Context, email string) error {
	user, err := p.users.GetOrCreateByEmail(ctx, email)
	if err != nil {
		return fmt.Errorf("resolve user: %w", err)
	}

	code, err := p.generate()
	if err != nil {
		return fmt.Errorf("generate code: %w", err)
	}

	expiresAt := p.now().Add(CodeTTL)
	if _, err := p.tokens.Insert(ctx, user.ID, Digest(code), expiresAt); err != nil {
		return fmt.Errorf("store code: %w", err)
	}

	msg := mailer.LoginCode(code, CodeTTL)
	if err := p.sender.Send(ctx, user.Email, msg.Subject, msg.Text, msg.HTML); err != nil {
		return fmt.Errorf("%w: %w", ErrDeliveryFailed, err)
	}
	return nil
}

// VerifyCode redeems code for email. Of any number of concurrent calls with
// the same valid code, exactly one succeeds.
func (p *EmailCodeProvider) VerifyCode(ctx context.Context, email, code string) (model.User, error) {
	user, err := p.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return model.User{}, ErrUserNotFound
		}
		return model.User{}, fmt.Errorf("lookup user: %w", err)
	}

	token, err := p.tokens.FindLatest(ctx, user.ID, Digest(code))
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return model.User{}, ErrInvalidCode
		}
		return model.User{}, fmt.Errorf("lookup code: %w", err)
	}

	if token.Used {
		return model.User{}, ErrCodeAlreadyUsed
	}
	if !p.now().Before(token.ExpiresAt) {
		return model.User{}, ErrCodeExpired
	}

	consumed, err := p.tokens.MarkUsed(ctx, token.ID)
	if err != nil {
		return model.User{}, fmt.Errorf("consume code: %w", err)
	}
	if !consumed {
		return model.User{}, ErrCodeAlreadyUsed
	}
	return user, nil
}

// GenerateCode draws a code uniformly from 100000-999999 using crypto/rand.
func GenerateCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(codeSpan))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()+codeMin), nil
}
