package notify

import (
	"context"

	"github.com/janndizz/test-plogg/internal/logging"
)

// LogSender writes emails to the log instead of sending them. It is meant for
// development, where the verification link is copied from the log.
type LogSender struct {
	logger logging.Logger
}

func NewLogSender(logger logging.Logger) *LogSender {
	return &LogSender{logger: logger}
}

func (s *LogSender) Deliver(ctx context.Context, email Email) error {
	s.logger.Info(ctx, "email not sent, log mail provider",
		"to", email.To,
		"subject", email.Subject,
		"body", email.Text,
	)
	return nil
}
