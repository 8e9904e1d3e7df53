package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"medadmit/internal/platform/config"
	"medadmit/internal/platform/postgres"
	platformredis "medadmit/internal/platform/redis"
	"medadmit/internal/platform/sqlite"
	ratelimitConfig "medadmit/internal/ratelimit/config"
	ratelimitMetrics "medadmit/internal/ratelimit/metrics"
	ratelimitMW "medadmit/internal/ratelimit/middleware"
	"medadmit/internal/ratelimit/ports"
	"medadmit/internal/ratelimit/service/requestlimit"
	"medadmit/internal/ratelimit/store/bucket"
	"medadmit/internal/resolver/cache"
	resolverHandler "medadmit/internal/resolver/handler"
	resolverMetrics "medadmit/internal/resolver/metrics"
	resolverPorts "medadmit/internal/resolver/ports"
	"medadmit/internal/resolver/service"
	"medadmit/internal/resolver/store"
	httptransport "medadmit/internal/transport/http"
	"medadmit/pkg/platform/audit/publisher"
	"medadmit/pkg/platform/audit/sink"
	"medadmit/pkg/platform/circuit"
)

// app holds the long-lived collaborators and what must be closed on exit.
type app struct {
	handler   *resolverHandler.Handler
	rateLimit *ratelimitMW.Middleware
	health    []httptransport.HealthCheck
	closers   []func() error
}

func (a *app) Close(log *slog.Logger) {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			log.Warn("error during shutdown", "error", err)
		}
	}
}

func build(ctx context.Context, cfg config.Server, log *slog.Logger) (*app, error) {
	a := &app{}

	catalog, err := buildCatalog(ctx, cfg.Catalog, a)
	if err != nil {
		a.Close(log)
		return nil, err
	}

	redisClient, err := platformredis.New(ctx, cfg.Redis)
	if err != nil {
		a.Close(log)
		return nil, err
	}
	if redisClient != nil {
		a.closers = append(a.closers, redisClient.Close)
	}

	resolutionCache := buildCache(cfg.Cache, redisClient, log, a)

	svc, err := service.New(catalog,
		service.WithCache(resolutionCache),
		service.WithLogger(log),
		service.WithMetrics(resolverMetrics.New()),
		service.WithWorkers(cfg.Resolver.Workers),
		service.WithLookupTimeout(cfg.Resolver.LookupTimeout),
		service.WithTTLs(cfg.Cache.PositiveTTL, cfg.Cache.NegativeTTL),
		service.WithCandidateLimit(cfg.Resolver.CandidateLimit),
	)
	if err != nil {
		a.Close(log)
		return nil, err
	}
	a.handler = resolverHandler.New(svc, log)
	a.health = append(a.health, httptransport.HealthCheck{Name: "catalog", Critical: true, Check: svc.Ping})

	auditPublisher, err := buildAudit(ctx, cfg.Audit, log, a)
	if err != nil {
		a.Close(log)
		return nil, err
	}
	a.closers = append(a.closers, auditPublisher.Close)

	a.rateLimit, err = buildRateLimit(cfg, redisClient, auditPublisher, log)
	if err != nil {
		a.Close(log)
		return nil, err
	}
	return a, nil
}

func buildCatalog(ctx context.Context, cfg config.CatalogConfig, a *app) (resolverPorts.Catalog, error) {
	seed, err := loadSeed(cfg.SeedFile)
	if err != nil {
		return nil, err
	}

	switch cfg.Driver {
	case config.CatalogMemory:
		return store.NewInMemoryFromSeed(seed), nil
	case config.CatalogSQLite:
		db, err := sqlite.Open(ctx, cfg.SQLitePath, store.SQLiteSchema)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, db.Close)
		return loadSQL(ctx, db, store.DialectSQLite, seed)
	case config.CatalogPostgres:
		db, err := postgres.Open(ctx, cfg)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, db.Close)
		// The managed database is provisioned and loaded separately.
		if cfg.SeedFile == "" {
			return store.NewSQL(db, store.DialectPostgres), nil
		}
		return loadSQL(ctx, db, store.DialectPostgres, seed)
	default:
		return nil, fmt.Errorf("unknown catalog driver %q", cfg.Driver)
	}
}

func loadSeed(path string) (*store.Seed, error) {
	if path == "" {
		return store.DefaultSeed()
	}
	return store.LoadSeedFile(path)
}

func loadSQL(ctx context.Context, db *sql.DB, dialect store.Dialect, seed *store.Seed) (*store.SQL, error) {
	catalog := store.NewSQL(db, dialect)
	if err := catalog.Load(ctx, seed); err != nil {
		return nil, fmt.Errorf("load catalog seed: %w", err)
	}
	return catalog, nil
}

func buildCache(cfg config.CacheConfig, client *platformredis.Client, log *slog.Logger, a *app) cache.Cache {
	memory := cache.NewMemory(cfg.Capacity)
	if client == nil {
		return memory
	}
	failover := cache.NewFailover(cache.NewRedis(client.Client), memory, circuit.New("resolution-cache"), log)
	a.health = append(a.health, httptransport.HealthCheck{
		Name: "cache",
		Check: func(context.Context) error {
			if failover.State() == circuit.StateOpen {
				return errors.New("redis unavailable, serving from memory")
			}
			return nil
		},
	})
	return failover
}

func buildAudit(ctx context.Context, cfg config.AuditConfig, log *slog.Logger, a *app) (*publisher.Publisher, error) {
	var dst publisher.Sink = sink.NewLog(log)
	if len(cfg.KafkaBrokers) > 0 {
		k, err := sink.NewKafka(ctx, sink.KafkaConfig{Brokers: cfg.KafkaBrokers, Topic: cfg.Topic}, log)
		if err != nil {
			return nil, err
		}
		dst = k
		a.health = append(a.health, httptransport.HealthCheck{Name: "audit", Check: k.Ping})
	}
	return publisher.New(dst,
		publisher.WithLogger(log),
		publisher.WithMetrics(publisher.NewMetrics()),
		publisher.WithBufferSize(cfg.BufferSize),
		publisher.WithFlushInterval(cfg.FlushInterval),
	), nil
}

func buildRateLimit(cfg config.Server, client *platformredis.Client, auditPublisher ports.AuditPublisher, log *slog.Logger) (*ratelimitMW.Middleware, error) {
	limits := ratelimitConfig.DefaultConfig().
		WithResolvePerMinute(cfg.RateLimit.ResolvePerMinute).
		WithOpsPerMinute(cfg.RateLimit.OpsPerMinute)
	m := ratelimitMetrics.New()

	var buckets requestlimit.BucketStore = bucket.New()
	if client != nil {
		buckets = bucket.NewRedis(client.Client)
	}
	limiter, err := requestlimit.New(buckets,
		requestlimit.WithConfig(limits),
		requestlimit.WithLogger(log),
		requestlimit.WithAuditPublisher(auditPublisher),
		requestlimit.WithMetrics(m),
	)
	if err != nil {
		return nil, err
	}

	opts := []ratelimitMW.Option{
		ratelimitMW.WithDisabled(cfg.RateLimit.Disabled),
		ratelimitMW.WithAuditPublisher(auditPublisher),
		ratelimitMW.WithMetrics(m),
	}
	if client != nil {
		opts = append(opts, ratelimitMW.WithFallback(ratelimitMW.NewFallbackLimiter(limits, auditPublisher, log)))
	}
	return ratelimitMW.New(limiter, log, opts...), nil
}
