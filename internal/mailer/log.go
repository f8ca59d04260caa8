package mailer

import (
	"context"
	"log/slog"
)

// LogSender writes messages to the structured log instead of delivering them.
// It exists for local development and prints the plaintext body, codes included.
type LogSender struct {
	logger *slog.Logger
}

func NewLogSender(logger *slog.Logger) *LogSender {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogSender{logger: logger.With("component", "mailer")}
}

func (s *LogSender) Send(ctx context.Context, to, subject, text, _ string) error {
	if to == "" {
		return ErrRecipientRequired
	}
	s.logger.InfoContext(ctx, "mail not delivered (log driver)", "to", to, "subject", subject, "body", text)
	return nil
}
