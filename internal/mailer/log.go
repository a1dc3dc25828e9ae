package mailer

import (
	"context"
	"log/slog"
)

// LogMailer writes messages to the log instead of sending them. It is the
// development transport; the reset secret inside the body never reaches a
// real recipient.
type LogMailer struct {
	logger *slog.Logger
}

// NewLogMailer creates a log-only mailer.
func NewLogMailer(logger *slog.Logger) *LogMailer {
	return &LogMailer{logger: logger}
}

// Name returns the transport name.
func (m *LogMailer) Name() string {
	return "log"
}

// Send logs the message and always succeeds.
func (m *LogMailer) Send(ctx context.Context, msg Message) error {
	m.logger.InfoContext(ctx, "log mailer: message sent",
		slog.String("to", msg.To),
		slog.String("subject", msg.Subject),
		slog.String("body", msg.Body),
	)
	return nil
}
