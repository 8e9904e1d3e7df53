package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Catalog drivers.
const (
	CatalogMemory   = "memory"
	CatalogPostgres = "postgres"
	CatalogSQLite   = "sqlite"
)

// Server captures process level configuration.
type Server struct {
	Addr        string
	Environment string
	LogLevel    string
	LogFormat   string

	Catalog   CatalogConfig
	Redis     RedisConfig
	Cache     CacheConfig
	Resolver  ResolverConfig
	RateLimit RateLimitConfig
	Audit     AuditConfig
}

// CatalogConfig selects and configures the canonical record store.
type CatalogConfig struct {
	Driver          string
	DatabaseURL     string
	SQLitePath      string
	SeedFile        string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// RedisConfig is optional; an empty URL keeps cache and rate limit buckets in process.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// CacheConfig bounds the resolution cache.
type CacheConfig struct {
	Capacity    int
	PositiveTTL time.Duration
	NegativeTTL time.Duration
}

// ResolverConfig tunes the resolution engine.
type ResolverConfig struct {
	Workers        int
	LookupTimeout  time.Duration
	CandidateLimit int
}

// RateLimitConfig controls the request limiter.
type RateLimitConfig struct {
	Disabled         bool
	ResolvePerMinute int
	OpsPerMinute     int
}

// AuditConfig configures the security audit sink. No brokers means log-only.
type AuditConfig struct {
	KafkaBrokers  []string
	Topic         string
	BufferSize    int
	FlushInterval time.Duration
}

// FromEnv builds a Server config from environment variables so main stays lean.
func FromEnv() Server {
	return Server{
		Addr:        envString("RESOLVER_ADDR", ":8080"),
		Environment: envString("ENVIRONMENT", "development"),
		LogLevel:    envString("LOG_LEVEL", "info"),
		LogFormat:   envString("LOG_FORMAT", "json"),
		Catalog: CatalogConfig{
			Driver:          envString("CATALOG_DRIVER", CatalogMemory),
			DatabaseURL:     os.Getenv("DATABASE_URL"),
			SQLitePath:      envString("SQLITE_PATH", "catalog.db"),
			SeedFile:        os.Getenv("CATALOG_SEED_FILE"),
			MaxOpenConns:    envInt("DB_MAX_OPEN_CONNS", 20),
			MaxIdleConns:    envInt("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: envDuration("DB_CONN_MAX_LIFETIME", 30*time.Minute),
		},
		Redis: RedisConfig{
			URL:          os.Getenv("REDIS_URL"),
			PoolSize:     envInt("REDIS_POOL_SIZE", 10),
			MinIdleConns: envInt("REDIS_MIN_IDLE_CONNS", 2),
			DialTimeout:  envDuration("REDIS_DIAL_TIMEOUT", 2*time.Second),
			ReadTimeout:  envDuration("REDIS_READ_TIMEOUT", 500*time.Millisecond),
			WriteTimeout: envDuration("REDIS_WRITE_TIMEOUT", 500*time.Millisecond),
		},
		Cache: CacheConfig{
			Capacity:    envInt("CACHE_CAPACITY", 50_000),
			PositiveTTL: envDuration("CACHE_TTL", 10*time.Minute),
			NegativeTTL: envDuration("CACHE_NEGATIVE_TTL", 2*time.Minute),
		},
		Resolver: ResolverConfig{
			Workers:        envInt("RESOLVER_WORKERS", 8),
			LookupTimeout:  envDuration("RESOLVER_LOOKUP_TIMEOUT", 2*time.Second),
			CandidateLimit: envInt("RESOLVER_CANDIDATE_LIMIT", 500),
		},
		RateLimit: RateLimitConfig{
			Disabled:         envBool("RATE_LIMIT_DISABLED", false),
			ResolvePerMinute: envInt("RATE_LIMIT_RESOLVE_PER_MINUTE", 100),
			OpsPerMinute:     envInt("RATE_LIMIT_OPS_PER_MINUTE", 600),
		},
		Audit: AuditConfig{
			KafkaBrokers:  envList("AUDIT_KAFKA_BROKERS"),
			Topic:         envString("AUDIT_KAFKA_TOPIC", "resolver.security-events"),
			BufferSize:    envInt("AUDIT_BUFFER_SIZE", 10_000),
			FlushInterval: envDuration("AUDIT_FLUSH_INTERVAL", 2*time.Second),
		},
	}
}

// IsProduction reports whether the service runs in production mode.
func (s Server) IsProduction() bool {
	return s.Environment == "production"
}

func envString(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	v, err := strconv.Atoi(strings.TrimSpace(os.Getenv(key)))
	if err != nil || v <= 0 {
		return fallback
	}
	return v
}

func envBool(key string, fallback bool) bool {
	v, err := strconv.ParseBool(strings.TrimSpace(os.Getenv(key)))
	if err != nil {
		return fallback
	}
	return v
}

func envDuration(key string, fallback time.Duration) time.Duration {
	v, err := time.ParseDuration(strings.TrimSpace(os.Getenv(key)))
	if err != nil || v <= 0 {
		return fallback
	}
	return v
}

func envList(key string) []string {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
