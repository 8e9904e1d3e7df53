package middleware

import (
	"log/slog"

	"medadmit/internal/ratelimit/config"
	"medadmit/internal/ratelimit/ports"
	"medadmit/internal/ratelimit/service/requestlimit"
	"medadmit/internal/ratelimit/store/bucket"
)

// NewFallbackLimiter creates an in-process limiter with the same limits as the
// primary. The circuit breaker routes to it while the shared store is down.
// Returns nil if cfg is nil, logging an error if a logger is provided.
func NewFallbackLimiter(cfg *config.Config, publisher ports.AuditPublisher, logger *slog.Logger) RateLimiter {
	if cfg == nil {
		if logger != nil {
			logger.Error("fallback limiter requires config")
		}
		return nil
	}
	requests, err := requestlimit.New(
		bucket.New(),
		requestlimit.WithLogger(logger),
		requestlimit.WithConfig(cfg),
		requestlimit.WithAuditPublisher(publisher),
	)
	if err != nil {
		if logger != nil {
			logger.Error("failed to initialize fallback rate limiter", "error", err)
		}
		return nil
	}
	return requests
}
