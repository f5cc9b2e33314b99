package notify

import (
	"context"
	"log/slog"
)

var _ Sender = &LogSender{}

// LogSender logs the message instead of delivering it, for local dev.
type LogSender struct {
	logger *slog.Logger
}

func NewLogSender(logger *slog.Logger) *LogSender {
	return &LogSender{logger: logger}
}

func (s *LogSender) Send(ctx context.Context, msg Message) error {
	s.logger.Info("email that would be sent",
		slog.String("to", msg.ToAddress),
		slog.String("subject", msg.Subject),
		slog.String("text-body", msg.TextBody),
	)

	return nil
}
