package notify

import (
	"context"
	"log/slog"
)

// LogSender is a Sender used when SMTP is not configured.
// It logs each message and reports success.
type LogSender struct {
	logger *slog.Logger
}

// NewLogSender creates a LogSender.
func NewLogSender(logger *slog.Logger) *LogSender {
	return &LogSender{logger: logger.With("component", "notify.log_sender")}
}

// Deliver logs the message.
func (s *LogSender) Deliver(ctx context.Context, to, subject, body string) error {
	s.logger.InfoContext(ctx, "email not sent, SMTP disabled",
		"recipient", to,
		"subject", subject,
		"body_bytes", len(body),
	)
	return nil
}
