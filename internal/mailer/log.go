package mailer

import (
	"context"
	"log/slog"
)

// LogSender writes messages to the log instead of sending them. It is the
// development default.
type LogSender struct {
	logger *slog.Logger
}

// NewLogSender creates a LogSender.
func NewLogSender(logger *slog.Logger) *LogSender {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogSender{logger: logger}
}

// Send implements Sender.
func (s *LogSender) Send(ctx context.Context, msg Message) error {
	s.logger.InfoContext(ctx, "email (log provider)", "to", msg.To, "subject", msg.Subject, "body", msg.HTML)
	return nil
}
