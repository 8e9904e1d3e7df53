package sink

import (
	"context"
	"log/slog"

	audit "medadmit/pkg/platform/audit"
)

// Log writes events to a structured logger. It is the sink used when no
// brokers are configured.
type Log struct {
	logger *slog.Logger
}

func NewLog(logger *slog.Logger) *Log {
	if logger == nil {
		logger = slog.Default()
	}
	return &Log{logger: logger}
}

func (l *Log) Write(ctx context.Context, events []audit.Event) error {
	for _, e := range events {
		l.logger.InfoContext(ctx, e.Action,
			"log_type", "audit",
			"category", e.Category,
			"severity", e.Severity,
			"subject", e.Subject,
			"reason", e.Reason,
			"endpoint", e.Endpoint,
			"request_id", e.RequestID,
			"timestamp", e.Timestamp,
		)
	}
	return nil
}

func (l *Log) Close() error {
	return nil
}
