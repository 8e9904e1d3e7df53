package service

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"medadmit/internal/resolver/models"
)

// ResolveBatch resolves every identifier with the same query. Each distinct
// raw identifier resolves once; the returned set keeps first-occurrence
// order and the stats count the full input including duplicates. If ctx ends
// the whole batch fails, and so does a batch whose every store-backed
// resolution degraded while the catalog is unreachable.
func (s *Service) ResolveBatch(ctx context.Context, identifiers []string, q models.Query) (*models.ResultSet, models.BatchStats, error) {
	start := time.Now()
	ctx, span := tracer.Start(ctx, "resolver.ResolveBatch", trace.WithSpanKind(trace.SpanKindInternal))
	defer span.End()

	unique := dedupe(identifiers)
	span.SetAttributes(
		attribute.String("entity_type", string(q.Type)),
		attribute.Int("batch.size", len(identifiers)),
		attribute.Int("batch.unique", len(unique)),
	)
	s.metrics.ObserveBatchSize(len(identifiers))

	outcomes := make([]outcome, len(unique))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers)
	for i, identifier := range unique {
		g.Go(func() error {
			out, err := s.resolve(gctx, identifier, q)
			if err != nil {
				return err
			}
			outcomes[i] = out
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "batch cancelled")
		return nil, models.BatchStats{}, err
	}
	if storeDown(outcomes...) {
		if err := s.unavailable(ctx); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "catalog unavailable")
			return nil, models.BatchStats{}, err
		}
	}

	set := models.NewResultSet(len(unique))
	for i, identifier := range unique {
		set.Set(identifier, outcomes[i].result)
	}
	stats := set.Stats(identifiers)
	span.SetAttributes(
		attribute.Int("batch.resolved", stats.Resolved),
		attribute.Int("batch.not_found", stats.NotFound),
	)
	s.metrics.ObserveResolveLatency("batch", time.Since(start))
	return set, stats, nil
}

func dedupe(identifiers []string) []string {
	seen := make(map[string]struct{}, len(identifiers))
	out := make([]string, 0, len(identifiers))
	for _, id := range identifiers {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
