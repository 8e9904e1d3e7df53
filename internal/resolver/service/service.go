// Package service is the resolver engine: it normalizes identifiers, checks
// the resolution cache, runs the matcher chain and writes results back.
package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"

	"medadmit/internal/resolver/cache"
	"medadmit/internal/resolver/metrics"
	"medadmit/internal/resolver/ports"
	"medadmit/internal/resolver/strategy"
)

var tracer = otel.Tracer("medadmit/internal/resolver/service")

const (
	DefaultWorkers       = 8
	DefaultLookupTimeout = 2 * time.Second
	DefaultPositiveTTL   = 10 * time.Minute
	DefaultNegativeTTL   = 2 * time.Minute
)

// Service resolves identifiers against the catalog.
type Service struct {
	catalog        ports.Catalog
	cache          cache.Cache
	chain          []strategy.Strategy
	logger         *slog.Logger
	metrics        *metrics.Metrics
	workers        int
	lookupTimeout  time.Duration
	positiveTTL    time.Duration
	negativeTTL    time.Duration
	candidateLimit int
}

type Option func(*Service)

// WithCache enables result caching. Without it every call runs the chain.
func WithCache(c cache.Cache) Option {
	return func(s *Service) {
		s.cache = c
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

// WithWorkers bounds how many identifiers of a batch resolve concurrently.
func WithWorkers(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.workers = n
		}
	}
}

// WithLookupTimeout bounds each store-touching matcher call and cache access.
func WithLookupTimeout(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.lookupTimeout = d
		}
	}
}

// WithTTLs sets how long matches and not_found verdicts stay cached.
func WithTTLs(positive, negative time.Duration) Option {
	return func(s *Service) {
		if positive > 0 {
			s.positiveTTL = positive
		}
		if negative > 0 {
			s.negativeTTL = negative
		}
	}
}

func WithCandidateLimit(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.candidateLimit = n
		}
	}
}

// WithChain overrides the matcher chain. Intended for tests.
func WithChain(chain ...strategy.Strategy) Option {
	return func(s *Service) {
		s.chain = chain
	}
}

func New(catalog ports.Catalog, opts ...Option) (*Service, error) {
	if catalog == nil {
		return nil, errors.New("catalog is required")
	}
	s := &Service{
		catalog:        catalog,
		logger:         slog.Default(),
		workers:        DefaultWorkers,
		lookupTimeout:  DefaultLookupTimeout,
		positiveTTL:    DefaultPositiveTTL,
		negativeTTL:    DefaultNegativeTTL,
		candidateLimit: ports.DefaultCandidateLimit,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.chain == nil {
		s.chain = strategy.DefaultChain(catalog, s.logger, s.candidateLimit)
	}
	return s, nil
}

// Ping reports whether the catalog is reachable.
func (s *Service) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, s.lookupTimeout)
	defer cancel()
	return s.catalog.Ping(ctx)
}
