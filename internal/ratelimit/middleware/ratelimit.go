package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"medadmit/internal/ratelimit/metrics"
	"medadmit/internal/ratelimit/models"
	"medadmit/internal/ratelimit/observability"
	"medadmit/internal/ratelimit/ports"
	"medadmit/pkg/platform/audit"
	"medadmit/pkg/platform/circuit"
	"medadmit/pkg/platform/httputil"
	"medadmit/pkg/platform/middleware/metadata"
	"medadmit/pkg/requestcontext"
)

// HeaderRateLimitStatus is set to "degraded" while the fallback serves.
const HeaderRateLimitStatus = "X-RateLimit-Status"

type RateLimiter interface {
	CheckIP(ctx context.Context, ip string, class models.EndpointClass) (*models.RateLimitResult, error)
}

type Middleware struct {
	limiter   RateLimiter
	fallback  RateLimiter
	breaker   *circuit.Breaker
	publisher ports.AuditPublisher
	metrics   *metrics.Metrics
	logger    *slog.Logger
	disabled  bool
}

type Option func(*Middleware)

// WithDisabled disables rate limiting entirely (for local runs and load tests).
func WithDisabled(disabled bool) Option {
	return func(m *Middleware) {
		m.disabled = disabled
	}
}

// WithFallback sets the limiter used when the primary fails or the breaker is open.
func WithFallback(limiter RateLimiter) Option {
	return func(m *Middleware) {
		m.fallback = limiter
	}
}

func WithBreaker(b *circuit.Breaker) Option {
	return func(m *Middleware) {
		m.breaker = b
	}
}

func WithAuditPublisher(publisher ports.AuditPublisher) Option {
	return func(m *Middleware) {
		m.publisher = publisher
	}
}

func WithMetrics(mt *metrics.Metrics) Option {
	return func(m *Middleware) {
		m.metrics = mt
	}
}

func New(limiter RateLimiter, logger *slog.Logger, opts ...Option) *Middleware {
	m := &Middleware{
		limiter: limiter,
		logger:  logger,
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.logger == nil {
		m.logger = slog.Default()
	}
	if m.breaker == nil {
		m.breaker = circuit.New("ratelimit")
	}
	if m.disabled {
		m.logger.Info("rate limiting disabled")
	}
	return m
}

// RateLimit limits requests per client IP for class. Client metadata
// middleware must run first.
func (m *Middleware) RateLimit(class models.EndpointClass) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if m.disabled {
				next.ServeHTTP(w, r)
				return
			}

			ctx := requestcontext.WithEndpoint(r.Context(), r.Method+" "+r.URL.Path)
			ip := requestcontext.ClientIP(ctx)

			result, err := m.check(ctx, ip, class)
			if err != nil {
				// No fallback available: fail open rather than take the API down.
				m.logger.ErrorContext(ctx, "failed to check IP rate limit",
					"error", err,
					"ip_prefix", metadata.AnonymizeIP(ip),
				)
				next.ServeHTTP(w, r)
				return
			}

			addRateLimitHeaders(w, result)

			if !result.Allowed {
				writeRateLimitExceeded(w, result)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// check asks the primary limiter and routes to the fallback on failure or
// while the breaker is open. The primary is still consulted when open so
// successes can close the breaker.
func (m *Middleware) check(ctx context.Context, ip string, class models.EndpointClass) (*models.RateLimitResult, error) {
	result, err := m.limiter.CheckIP(ctx, ip, class)
	if err != nil {
		m.metrics.IncrementStoreErrors()
		_, change := m.breaker.RecordFailure()
		m.onStateChange(ctx, change, err)
		return m.checkFallback(ctx, ip, class, err)
	}

	usePrimary, change := m.breaker.RecordSuccess()
	m.onStateChange(ctx, change, nil)
	if usePrimary || m.fallback == nil {
		return result, nil
	}
	return m.checkFallback(ctx, ip, class, nil)
}

func (m *Middleware) checkFallback(ctx context.Context, ip string, class models.EndpointClass, primaryErr error) (*models.RateLimitResult, error) {
	if m.fallback == nil {
		return nil, primaryErr
	}
	result, err := m.fallback.CheckIP(ctx, ip, class)
	if err != nil {
		return nil, err
	}
	result.Degraded = true
	return result, nil
}

func (m *Middleware) onStateChange(ctx context.Context, change circuit.StateChange, err error) {
	switch {
	case change.Opened:
		m.metrics.SetFallbackActive(true)
		observability.LogAudit(ctx, m.logger, m.publisher, audit.EventRateLimitDegraded, audit.SeverityWarning,
			"reason", errString(err),
			"breaker", m.breaker.Name(),
		)
	case change.Closed:
		m.metrics.SetFallbackActive(false)
		observability.LogAudit(ctx, m.logger, m.publisher, audit.EventRateLimitRecovered, audit.SeverityInfo,
			"breaker", m.breaker.Name(),
		)
	}
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}

func addRateLimitHeaders(w http.ResponseWriter, result *models.RateLimitResult) {
	if result == nil {
		return
	}
	w.Header().Set("X-RateLimit-Limit", strconv.Itoa(result.Limit))
	w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(result.Remaining))
	w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(result.ResetAt.Unix(), 10))
	if result.Degraded {
		w.Header().Set(HeaderRateLimitStatus, "degraded")
	}
}

func writeRateLimitExceeded(w http.ResponseWriter, result *models.RateLimitResult) {
	w.Header().Set("Retry-After", strconv.Itoa(result.RetryAfter))
	httputil.WriteJSON(w, http.StatusTooManyRequests, &models.RateLimitExceededResponse{
		Error:      "rate_limit_exceeded",
		Message:    "Too many requests from this IP address. Please try again later.",
		RetryAfter: result.RetryAfter,
	})
}
