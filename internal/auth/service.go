package auth

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/mailnotes/server/internal/logging"
	"github.com/mailnotes/server/internal/mailer"
)

// Session is a freshly minted credential and the lifetime to give its cookie.
type Session struct {
	Identity   Identity
	Credential string
	MaxAge     time.Duration
}

// AuthService orchestrates authentication operations
type AuthService struct {
	codes         CodeProvider
	codec         *SessionCodec
	users         UserLookup
	notifier      mailer.Sender
	notifyTimeout time.Duration
	logger        *slog.Logger

	pending sync.WaitGroup
}

// NewAuthService creates a new auth service. notifier delivers the sign-in
// notice sent after each successful verification.
func NewAuthService(
	codes CodeProvider,
	codec *SessionCodec,
	users UserLookup,
	notifier mailer.Sender,
	notifyTimeout time.Duration,
) *AuthService {
	if notifyTimeout <= 0 {
		notifyTimeout = 30 * time.Second
	}
	return &AuthService{
		codes:         codes,
		codec:         codec,
		users:         users,
		notifier:      notifier,
		notifyTimeout: notifyTimeout,
		logger:        slog.Default().With("component", "auth"),
	}
}

// NormalizeEmail trims and lower-cases an address so one mailbox maps to one user.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// RequestCode issues a code for email and waits for it to be handed to the
// mail server, so the caller can report delivery failures.
func (s *AuthService) RequestCode(ctx context.Context, email string) error {
	email = NormalizeEmail(email)
	if email == "" {
		return ErrEmailRequired
	}
	if err := s.codes.IssueCode(ctx, email); err != nil {
		return err
	}
	s.logger.InfoContext(ctx, "login code issued", "email", logging.MaskEmail(email))
	return nil
}

// VerifyCode redeems the code and returns a session with the default
// lifetime. The sign-in notice is sent in the background.
func (s *AuthService) VerifyCode(ctx context.Context, email, code string) (Session, error) {
	email = NormalizeEmail(email)
	code = strings.TrimSpace(code)
	if email == "" {
		return Session{}, ErrEmailRequired
	}
	if code == "" {
		return Session{}, ErrCodeRequired
	}

	user, err := s.codes.VerifyCode(ctx, email, code)
	if err != nil {
		return Session{}, err
	}

	s.notifyLogin(ctx, user.Email)

	id := Identity{ID: user.ID, Email: user.Email}
	return s.issue(id, DefaultSessionLifetime), nil
}

// RenewSession re-encodes the credential for an already resolved identity
// with the lifetime for choice.
func (s *AuthService) RenewSession(id Identity, choice string) Session {
	return s.issue(id, ResolveDuration(choice))
}

// Resolve turns a raw cookie value into a Resolution.
func (s *AuthService) Resolve(ctx context.Context, credential string) Resolution {
	return s.codec.Decode(ctx, credential, s.users)
}

// Wait blocks until background notices finish or ctx is done.
func (s *AuthService) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		s.pending.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("waiting for login notices: %w", ctx.Err())
	}
}

func (s *AuthService) issue(id Identity, maxAge time.Duration) Session {
	return Session{
		Identity:   id,
		Credential: s.codec.Encode(id.ID, id.Email),
		MaxAge:     maxAge,
	}
}

// notifyLogin sends the notice detached from the request so a slow mail
// server never delays the response.
func (s *AuthService) notifyLogin(ctx context.Context, email string) {
	if s.notifier == nil {
		return
	}
	bg := context.WithoutCancel(ctx)
	msg := mailer.LoginNotice(email)

	s.pending.Add(1)
	go func() {
		defer s.pending.Done()
		sendCtx, cancel := context.WithTimeout(bg, s.notifyTimeout)
		defer cancel()
		if err := s.notifier.Send(sendCtx, email, msg.Subject, msg.Text, msg.HTML); err != nil {
			s.logger.WarnContext(sendCtx, "login notice not delivered", "email", logging.MaskEmail(email), "error", err)
		}
	}()
}
