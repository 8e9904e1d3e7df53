package service

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"medadmit/internal/resolver/cache"
	"medadmit/internal/resolver/models"
	"medadmit/internal/resolver/normalize"
	"medadmit/internal/resolver/strategy"
	dErrors "medadmit/pkg/domain-errors"
)

// outcome carries what the chain learned beyond the result itself.
type outcome struct {
	result    models.Result
	cacheHit  bool
	consulted bool // the matcher chain ran against the store
	degraded  bool
}

// storeDown reports whether every outcome that consulted the store degraded
// without resolving. A single resolved or cleanly missed identifier proves
// the store answered.
func storeDown(outcomes ...outcome) bool {
	consulted := 0
	for _, o := range outcomes {
		if !o.consulted {
			continue
		}
		if !o.degraded || o.result.Resolved() {
			return false
		}
		consulted++
	}
	return consulted > 0
}

// unavailable confirms a suspected outage with a catalog ping.
func (s *Service) unavailable(ctx context.Context) error {
	err := s.Ping(ctx)
	if err == nil {
		return nil
	}
	s.logger.ErrorContext(ctx, "catalog unavailable", "error", err)
	return dErrors.Wrap(err, dErrors.CodeInternal, "catalog unavailable")
}

// Resolve maps one identifier to a canonical record. It fails when ctx ends or
// when every matcher degraded and the catalog does not answer a ping; other
// backend trouble degrades to a weaker answer instead.
func (s *Service) Resolve(ctx context.Context, identifier string, q models.Query) (models.Result, error) {
	start := time.Now()
	ctx, span := tracer.Start(ctx, "resolver.Resolve", trace.WithSpanKind(trace.SpanKindInternal))
	defer span.End()
	span.SetAttributes(
		attribute.String("entity_type", string(q.Type)),
		attribute.Bool("use_cache", q.Options.UseCache),
		attribute.Float64("fuzzy_threshold", q.Options.FuzzyThreshold),
	)

	out, err := s.resolve(ctx, identifier, q)
	s.metrics.ObserveResolveLatency("single", time.Since(start))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "resolution cancelled")
		return models.Result{}, err
	}
	if storeDown(out) {
		if err := s.unavailable(ctx); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "catalog unavailable")
			return models.Result{}, err
		}
	}
	span.SetAttributes(
		attribute.String("method", string(out.result.Method)),
		attribute.Float64("confidence", out.result.Confidence),
		attribute.Bool("cache_hit", out.cacheHit),
		attribute.Bool("degraded", out.degraded),
	)
	return out.result, nil
}

func (s *Service) resolve(ctx context.Context, identifier string, q models.Query) (outcome, error) {
	if err := ctx.Err(); err != nil {
		return outcome{}, cancelled(err)
	}

	normalized := normalize.Normalize(identifier)
	if normalized == "" {
		s.metrics.IncrementResolution(string(q.Type), string(models.MethodNotFound))
		return outcome{result: models.NotFound()}, nil
	}

	threshold := clampThreshold(q.Options.FuzzyThreshold)
	key := cache.Key{Type: q.Type, Normalized: normalized}
	useCache := q.Options.UseCache && s.cache != nil

	if useCache {
		if r, ok := s.cached(ctx, key, threshold); ok {
			s.metrics.IncrementResolution(string(q.Type), string(r.Method))
			return outcome{result: r, cacheHit: true}, nil
		}
	} else {
		s.metrics.IncrementCacheLookup("bypass")
	}

	in := strategy.Input{Raw: identifier, Normalized: normalized, Type: q.Type, Threshold: threshold}
	out := outcome{result: models.NotFound(), consulted: true}
	// verdictThreshold is zero unless the answer depends on the threshold.
	var verdictThreshold float64

	for _, st := range s.chain {
		r, err := s.try(ctx, st, in)
		if ctxErr := ctx.Err(); ctxErr != nil {
			return outcome{}, cancelled(ctxErr)
		}
		if err != nil {
			out.degraded = true
			s.metrics.IncrementDegraded(string(st.Method()))
			s.logger.WarnContext(ctx, "matcher degraded",
				"strategy", st.Method(),
				"entity_type", q.Type,
				"error", err,
			)
			if st.Terminal() {
				break
			}
			continue
		}
		if r == nil {
			continue
		}
		out.result = *r
		if st.Terminal() {
			verdictThreshold = threshold
		}
		break
	}

	s.metrics.IncrementResolution(string(q.Type), string(out.result.Method))
	if useCache && !out.degraded {
		s.store(ctx, key, cache.Entry{Result: out.result, Threshold: verdictThreshold})
	}
	return out, nil
}

func (s *Service) try(ctx context.Context, st strategy.Strategy, in strategy.Input) (*models.Result, error) {
	ctx, cancel := context.WithTimeout(ctx, s.lookupTimeout)
	defer cancel()
	start := time.Now()
	r, err := st.TryResolve(ctx, in)
	s.metrics.ObserveStrategyLatency(string(st.Method()), time.Since(start))
	return r, err
}

func (s *Service) cached(ctx context.Context, key cache.Key, threshold float64) (models.Result, bool) {
	ctx, cancel := context.WithTimeout(ctx, s.lookupTimeout)
	defer cancel()
	entry, ok, err := s.cache.Get(ctx, key)
	if err != nil {
		s.metrics.IncrementCacheLookup("error")
		s.logger.WarnContext(ctx, "resolution cache read failed", "entity_type", key.Type, "error", err)
		return models.Result{}, false
	}
	if !ok {
		s.metrics.IncrementCacheLookup("miss")
		return models.Result{}, false
	}
	r, lookup := entry.Apply(threshold)
	if lookup != cache.LookupHit {
		s.metrics.IncrementCacheLookup("miss")
		return models.Result{}, false
	}
	s.metrics.IncrementCacheLookup("hit")
	return r, true
}

func (s *Service) store(ctx context.Context, key cache.Key, entry cache.Entry) {
	ttl := s.positiveTTL
	if !entry.Result.Resolved() {
		ttl = s.negativeTTL
	}
	ctx, cancel := context.WithTimeout(ctx, s.lookupTimeout)
	defer cancel()
	if err := s.cache.Put(ctx, key, entry, ttl); err != nil {
		s.logger.WarnContext(ctx, "resolution cache write failed", "entity_type", key.Type, "error", err)
	}
}

func clampThreshold(t float64) float64 {
	switch {
	case t < 0:
		return 0
	case t > 1:
		return 1
	default:
		return t
	}
}

func cancelled(err error) error {
	return dErrors.Wrap(err, dErrors.CodeTimeout, "resolution cancelled")
}
