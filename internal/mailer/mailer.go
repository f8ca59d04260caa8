// Package mailer delivers transactional email: login codes and sign-in notices.
package mailer

import (
	"context"
	"errors"
)

// ErrRecipientRequired is returned when Send is called without an address.
var ErrRecipientRequired = errors.New("recipient is required")

// Sender delivers a single message with a plain-text and an HTML body.
type Sender interface {
	Send(ctx context.Context, to, subject, text, html string) error
}
