// Package observability provides audit logging helpers for the ratelimit module.
package observability

import (
	"context"
	"log/slog"

	"medadmit/internal/ratelimit/ports"
	"medadmit/pkg/attrs"
	"medadmit/pkg/platform/audit"
	"medadmit/pkg/requestcontext"
)

// LogAudit logs an audit event to the structured logger and, when a
// publisher is wired, emits it. Subject, reason and endpoint are lifted from
// attrList.
func LogAudit(ctx context.Context, logger *slog.Logger, publisher ports.AuditPublisher, event audit.AuditEvent, severity audit.Severity, attrList ...any) {
	requestID := requestcontext.RequestID(ctx)
	if requestID != "" {
		attrList = append(attrList, "request_id", requestID)
	}

	args := append(attrList, "event", string(event), "log_type", "audit")
	if logger != nil {
		logger.InfoContext(ctx, string(event), args...)
	}

	if publisher == nil {
		return
	}

	err := publisher.Emit(ctx, audit.Event{
		Category:  event.Category(),
		Timestamp: requestcontext.Now(ctx),
		Action:    string(event),
		Subject:   attrs.ExtractString(attrList, "identifier"),
		Reason:    attrs.ExtractString(attrList, "reason"),
		Endpoint:  attrs.ExtractString(attrList, "endpoint"),
		RequestID: requestID,
		Severity:  severity,
		Limit:     attrs.ExtractInt(attrList, "limit"),
		Window:    attrs.ExtractInt(attrList, "window_seconds"),
	})
	if err != nil && logger != nil {
		logger.WarnContext(ctx, "failed to emit audit event", "event", string(event), "error", err)
	}
}
