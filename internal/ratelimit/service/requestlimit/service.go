// Package requestlimit applies per-class, per-IP sliding-window limits.
package requestlimit

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"medadmit/internal/ratelimit/config"
	"medadmit/internal/ratelimit/metrics"
	"medadmit/internal/ratelimit/models"
	"medadmit/internal/ratelimit/observability"
	"medadmit/internal/ratelimit/ports"
	dErrors "medadmit/pkg/domain-errors"
	"medadmit/pkg/platform/audit"
	"medadmit/pkg/platform/middleware/metadata"
	"medadmit/pkg/requestcontext"
)

// Type aliases for interfaces from ports package.
type (
	BucketStore    = ports.BucketStore
	AuditPublisher = ports.AuditPublisher
)

type Service struct {
	buckets        BucketStore
	auditPublisher AuditPublisher
	logger         *slog.Logger
	config         *config.Config
	metrics        *metrics.Metrics
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithAuditPublisher(publisher AuditPublisher) Option {
	return func(s *Service) {
		s.auditPublisher = publisher
	}
}

func WithConfig(cfg *config.Config) Option {
	return func(s *Service) {
		if cfg != nil {
			s.config = cfg
		}
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

func New(buckets BucketStore, opts ...Option) (*Service, error) {
	if buckets == nil {
		return nil, errors.New("buckets store is required")
	}

	svc := &Service{
		buckets: buckets,
		config:  config.DefaultConfig(),
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc, nil
}

// CheckIP consumes one slot of ip's window for class. A class without a
// configured limit is denied. Store failures are returned as internal errors;
// the caller decides how to fail over.
func (s *Service) CheckIP(ctx context.Context, ip string, class models.EndpointClass) (*models.RateLimitResult, error) {
	now := requestcontext.Now(ctx)

	requestsPerWindow, window, ok := s.config.GetIPLimit(class)
	if !ok {
		s.metrics.IncrementConfigMissing(class.String())
		observability.LogAudit(ctx, s.logger, s.auditPublisher, audit.EventRateLimitConfigMissing, audit.SeverityCritical,
			"identifier", metadata.AnonymizeIP(ip),
			"endpoint_class", class.String(),
			"limit_type", string(models.KeyPrefixIP),
		)
		return models.Denied(0, now, s.config.DeniedRetryAfter), nil
	}

	key := models.NewRateLimitKey(models.KeyPrefixIP, ip, class)
	result, err := s.buckets.Allow(ctx, key.String(), requestsPerWindow, window)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to check rate limit")
	}
	s.metrics.RecordDecision(class.String(), result.Allowed)

	if !result.Allowed {
		s.auditViolation(ctx, ip, class, requestsPerWindow, window, now)
	}
	return result, nil
}

// auditViolation records a denial. Calls made outside the HTTP middleware
// carry no endpoint, so the class stands in for it.
func (s *Service) auditViolation(ctx context.Context, ip string, class models.EndpointClass, limit int, window time.Duration, now time.Time) {
	endpoint := requestcontext.Endpoint(ctx)
	if endpoint == "" {
		endpoint = class.String()
	}
	v, err := models.NewRateLimitViolation(metadata.AnonymizeIP(ip), class, endpoint, limit, int(window.Seconds()), now)
	if err != nil {
		if s.logger != nil {
			s.logger.WarnContext(ctx, "skipping rate limit audit", "error", err)
		}
		return
	}
	observability.LogAudit(ctx, s.logger, s.auditPublisher, audit.EventRateLimitExceeded, audit.SeverityWarning,
		"identifier", v.Identifier,
		"endpoint_class", v.EndpointClass.String(),
		"endpoint", v.Endpoint,
		"limit", v.Limit,
		"window_seconds", v.WindowSeconds,
	)
}
