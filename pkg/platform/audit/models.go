// Package audit defines security audit events and the publisher that ships
// them to a sink off the request path.
package audit

import "time"

// EventCategory classifies audit events by their primary purpose so sinks can
// route and retain them differently.
type EventCategory string

const (
	// CategorySecurity covers events relevant to abuse monitoring and
	// forensics, such as rate limit violations.
	CategorySecurity EventCategory = "security"

	// CategoryOperations covers degraded-mode and configuration events.
	CategoryOperations EventCategory = "operations"
)

// Severity levels for SIEM routing.
type Severity string

const (
	SeverityInfo     Severity = "info"
	SeverityWarning  Severity = "warning"
	SeverityCritical Severity = "critical"
)

// AuditEvent names an auditable action.
type AuditEvent string

const (
	EventRateLimitExceeded      AuditEvent = "rate_limit_exceeded"
	EventRateLimitConfigMissing AuditEvent = "rate_limit_config_missing"
	EventRateLimitDegraded      AuditEvent = "rate_limit_degraded"
	EventRateLimitRecovered     AuditEvent = "rate_limit_recovered"
)

var eventCategories = map[AuditEvent]EventCategory{
	EventRateLimitExceeded:      CategorySecurity,
	EventRateLimitConfigMissing: CategorySecurity,
	EventRateLimitDegraded:      CategoryOperations,
	EventRateLimitRecovered:     CategoryOperations,
}

// Category returns the EventCategory for this audit event.
// Unknown events default to CategoryOperations.
func (e AuditEvent) Category() EventCategory {
	if cat, ok := eventCategories[e]; ok {
		return cat
	}
	return CategoryOperations
}

// Event is emitted by request-path components. It stays transport-agnostic so
// sinks can serialize it however they need.
type Event struct {
	Category  EventCategory `json:"category"`
	Timestamp time.Time     `json:"timestamp"`
	Action    string        `json:"action"`
	Subject   string        `json:"subject,omitempty"` // anonymized IP prefix or other non-PII handle
	Reason    string        `json:"reason,omitempty"`
	Endpoint  string        `json:"endpoint,omitempty"`
	RequestID string        `json:"request_id,omitempty"`
	Severity  Severity      `json:"severity,omitempty"`
	Limit     int           `json:"limit,omitempty"`
	Window    int           `json:"window_seconds,omitempty"`
}

// Normalize fills defaults derived from the action and clock.
func (e Event) Normalize(now time.Time) Event {
	if e.Timestamp.IsZero() {
		e.Timestamp = now
	}
	if e.Category == "" {
		e.Category = AuditEvent(e.Action).Category()
	}
	if e.Severity == "" {
		e.Severity = SeverityInfo
	}
	return e
}
