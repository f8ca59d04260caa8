package auth

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mailnotes/server/internal/mailer/mailertest"
	"github.com/mailnotes/server/internal/repo"
)

type codeFixture struct {
	users    *repo.MemoryUserRepo
	tokens   *repo.MemoryTokenRepo
	mail     *mailertest.Recorder
	now      time.Time
	provider *EmailCodeProvider
}

func newCodeFixture(t *testing.T, codes ...string) *codeFixture {
	t.Helper()
	f := &codeFixture{
		users:  repo.NewMemoryUserRepo(),
		tokens: repo.NewMemoryTokenRepo(),
		mail:   &mailertest.Recorder{},
		now:    time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}
	opts := []EmailCodeOption{WithClock(func() time.Time { return f.now })}
	if len(codes) > 0 {
		var mu sync.Mutex
		next := 0
		opts = append(opts, WithCodeGenerator(func() (string, error) {
			mu.Lock()
			defer mu.Unlock()
			c := codes[next%len(codes)]
			next++
			return c, nil
		}))
	}
	f.provider = NewEmailCodeProvider(f.users, f.tokens, f.mail, opts...)
	return f
}

func TestIssueCode_StoresDigestAndMailsPlaintext(t *testing.T) {
	f := newCodeFixture(t, "482913")
	ctx := context.Background()

	require.NoError(t, f.provider.IssueCode(ctx, "a@b.com"))

	user, err := f.users.GetByEmail(ctx, "a@b.com")
	require.NoError(t, err)
	tokens := f.tokens.ForUser(user.ID)
	require.Len(t, tokens, 1)
	assert.Equal(t, Digest("482913"), tokens[0].CodeHash)
	assert.NotContains(t, tokens[0].CodeHash, "482913")
	assert.False(t, tokens[0].Used)
	assert.Equal(t, f.now.Add(15*time.Minute), tokens[0].ExpiresAt)

	code, ok := f.mail.LastCode("a@b.com")
	require.True(t, ok)
	assert.Equal(t, "482913", code)
}

func TestIssueCode_TwiceOneUserTwoTokens(t *testing.T) {
	f := newCodeFixture(t, "111111", "222222")
	ctx := context.Background()

	require.NoError(t, f.provider.IssueCode(ctx, "a@b.com"))
	require.NoError(t, f.provider.IssueCode(ctx, "a@b.com"))

	assert.Equal(t, 1, f.users.Count())
	user, err := f.users.GetByEmail(ctx, "a@b.com")
	require.NoError(t, err)
	tokens := f.tokens.ForUser(user.ID)
	require.Len(t, tokens, 2)
	assert.NotEqual(t, tokens[0].CodeHash, tokens[1].CodeHash)
}

func TestIssueCode_DeliveryFailureKeepsToken(t *testing.T) {
	f := newCodeFixture(t, "482913")
	f.mail.Err = errors.New("smtp down")
	ctx := context.Background()

	err := f.provider.IssueCode(ctx, "a@b.com")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrDeliveryFailed)

	user, err := f.users.GetByEmail(ctx, "a@b.com")
	require.NoError(t, err)
	assert.Len(t, f.tokens.ForUser(user.ID), 1, "token stays persisted without a delivered code")
}

func TestVerifyCode_Example(t *testing.T) {
	f := newCodeFixture(t, "482913")
	ctx := context.Background()
	require.NoError(t, f.provider.IssueCode(ctx, "a@b.com"))
	want, err := f.users.GetByEmail(ctx, "a@b.com")
	require.NoError(t, err)

	_, err = f.provider.VerifyCode(ctx, "a@b.com", "000000")
	assert.ErrorIs(t, err, ErrInvalidCode)

	got, err := f.provider.VerifyCode(ctx, "a@b.com", "482913")
	require.NoError(t, err)
	assert.Equal(t, want.ID, got.ID)
}

func TestVerifyCode_UserNotFound(t *testing.T) {
	f := newCodeFixture(t)
	_, err := f.provider.VerifyCode(context.Background(), "ghost@b.com", "123456")
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestVerifyCode_SecondUseRejected(t *testing.T) {
	f := newCodeFixture(t, "482913")
	ctx := context.Background()
	require.NoError(t, f.provider.IssueCode(ctx, "a@b.com"))

	_, err := f.provider.VerifyCode(ctx, "a@b.com", "482913")
	require.NoError(t, err)

	_, err = f.provider.VerifyCode(ctx, "a@b.com", "482913")
	assert.ErrorIs(t, err, ErrCodeAlreadyUsed)
}

func TestVerifyCode_Expiry(t *testing.T) {
	f := newCodeFixture(t, "482913")
	ctx := context.Background()
	require.NoError(t, f.provider.IssueCode(ctx, "a@b.com"))
	issuedAt := f.now

	f.now = issuedAt.Add(15 * time.Minute)
	_, err := f.provider.VerifyCode(ctx, "a@b.com", "482913")
	assert.ErrorIs(t, err, ErrCodeExpired, "a code is dead at exactly expires_at")

	f.now = issuedAt.Add(15*time.Minute - time.Second)
	_, err = f.provider.VerifyCode(ctx, "a@b.com", "482913")
	assert.NoError(t, err, "an expired attempt must not consume the code")
}

func TestVerifyCode_NewestTokenIsAuthoritative(t *testing.T) {
	f := newCodeFixture(t, "555555")
	ctx := context.Background()
	require.NoError(t, f.provider.IssueCode(ctx, "a@b.com"))
	require.NoError(t, f.provider.IssueCode(ctx, "a@b.com"))

	_, err := f.provider.VerifyCode(ctx, "a@b.com", "555555")
	require.NoError(t, err)

	_, err = f.provider.VerifyCode(ctx, "a@b.com", "555555")
	assert.ErrorIs(t, err, ErrCodeAlreadyUsed, "the older unused token with the same digest is unreachable")
}

func TestVerifyCode_CodesAreScopedToTheirUser(t *testing.T) {
	f := newCodeFixture(t, "111111", "222222")
	ctx := context.Background()
	require.NoError(t, f.provider.IssueCode(ctx, "a@b.com"))
	require.NoError(t, f.provider.IssueCode(ctx, "c@d.com"))

	_, err := f.provider.VerifyCode(ctx, "c@d.com", "111111")
	assert.ErrorIs(t, err, ErrInvalidCode)
}

func TestVerifyCode_ConcurrentRedemptionSucceedsOnce(t *testing.T) {
	f := newCodeFixture(t, "482913")
	ctx := context.Background()
	require.NoError(t, f.provider.IssueCode(ctx, "a@b.com"))

	const attempts = 50
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
		others    []error
	)
	start := make(chan struct{})
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			_, err := f.provider.VerifyCode(ctx, "a@b.com", "482913")
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				successes++
				return
			}
			others = append(others, err)
		}()
	}
	close(start)
	wg.Wait()

	assert.Equal(t, 1, successes)
	for _, err := range others {
		assert.True(t, errors.Is(err, ErrCodeAlreadyUsed) || errors.Is(err, ErrInvalidCode), "unexpected error: %v", err)
	}
}

func TestGenerateCode_SixDigitsInRange(t *testing.T) {
	pattern := regexp.MustCompile(`^[1-9]\d{5}$`)
	seen := make(map[string]struct{})
	for i := 0; i < 500; i++ {
		code, err := GenerateCode()
		require.NoError(t, err)
		require.Regexp(t, pattern, code)
		seen[code] = struct{}{}
	}
	assert.Greater(t, len(seen), 400, "codes should not repeat often")
}

func TestIssueCode_GeneratorError(t *testing.T) {
	f := newCodeFixture(t)
	f.provider = NewEmailCodeProvider(f.users, f.tokens, f.mail,
		WithCodeGenerator(func() (string, error) { return "", fmt.Errorf("entropy exhausted") }))

	err := f.provider.IssueCode(context.Background(), "a@b.com")
	require.Error(t, err)
	assert.Empty(t, f.mail.Messages())
}
