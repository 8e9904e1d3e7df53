package models

import (
	"time"

	dErrors "medadmit/pkg/domain-errors"
)

// EndpointClass categorizes endpoints for differentiated rate limiting.
type EndpointClass string

const (
	// ClassResolve: identifier resolution (100 req/min per IP) - POST/GET /resolve
	ClassResolve EndpointClass = "resolve"
	// ClassOps: health and metrics probes (600 req/min per IP)
	ClassOps EndpointClass = "ops"
)

// IsValid checks if the endpoint class is one of the supported enum values.
func (c EndpointClass) IsValid() bool {
	switch c {
	case ClassResolve, ClassOps:
		return true
	}
	return false
}

func (c EndpointClass) String() string {
	return string(c)
}

// RateLimitResult represents the outcome of a rate limit check.
type RateLimitResult struct {
	Allowed    bool      `json:"allowed"`
	Limit      int       `json:"limit"`
	Remaining  int       `json:"remaining"`
	ResetAt    time.Time `json:"reset_at"`
	RetryAfter int       `json:"retry_after,omitempty"` // seconds, only set when not allowed
	Degraded   bool      `json:"-"`                     // served by the in-process fallback
}

// RateLimitViolation represents a recorded rate limit violation for audit.
type RateLimitViolation struct {
	Identifier    string        `json:"identifier"` // anonymized IP prefix
	EndpointClass EndpointClass `json:"endpoint_class"`
	Endpoint      string        `json:"endpoint"`
	Limit         int           `json:"limit"`
	WindowSeconds int           `json:"window_seconds"`
	OccurredAt    time.Time     `json:"occurred_at"`
}

// NewRateLimitViolation creates a RateLimitViolation with domain invariant validation.
func NewRateLimitViolation(identifier string, class EndpointClass, endpoint string, limit, windowSeconds int, now time.Time) (*RateLimitViolation, error) {
	if identifier == "" {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "identifier cannot be empty")
	}
	if !class.IsValid() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "invalid endpoint class")
	}
	if endpoint == "" {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "endpoint cannot be empty")
	}
	if limit <= 0 {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "limit must be positive")
	}
	if windowSeconds <= 0 {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "window_seconds must be positive")
	}

	return &RateLimitViolation{
		Identifier:    identifier,
		EndpointClass: class,
		Endpoint:      endpoint,
		Limit:         limit,
		WindowSeconds: windowSeconds,
		OccurredAt:    now,
	}, nil
}

// Denied builds a rejection that resets after window.
func Denied(limit int, now time.Time, retryAfter time.Duration) *RateLimitResult {
	secs := int((retryAfter + time.Second - 1) / time.Second)
	if secs < 1 {
		secs = 1
	}
	return &RateLimitResult{
		Allowed:    false,
		Limit:      limit,
		Remaining:  0,
		ResetAt:    now.Add(retryAfter),
		RetryAfter: secs,
	}
}
