// Package config holds per-class rate limits.
package config

import (
	"time"

	"medadmit/internal/ratelimit/models"
)

// Limit is a sliding-window allowance.
type Limit struct {
	RequestsPerWindow int
	Window            time.Duration
}

// Config maps endpoint classes to per-IP limits. A class without an entry is
// denied outright.
type Config struct {
	IPLimits map[models.EndpointClass]Limit
	// DeniedRetryAfter is advertised when a class has no configured limit.
	DeniedRetryAfter time.Duration
}

// DefaultConfig returns the production limits.
func DefaultConfig() *Config {
	return &Config{
		IPLimits: map[models.EndpointClass]Limit{
			models.ClassResolve: {RequestsPerWindow: 100, Window: time.Minute},
			models.ClassOps:     {RequestsPerWindow: 600, Window: time.Minute},
		},
		DeniedRetryAfter: time.Minute,
	}
}

// WithResolvePerMinute overrides the resolve class allowance. Values <= 0 are
// ignored.
func (c *Config) WithResolvePerMinute(n int) *Config {
	return c.withPerMinute(models.ClassResolve, n)
}

// WithOpsPerMinute overrides the health and metrics allowance. Values <= 0
// are ignored.
func (c *Config) WithOpsPerMinute(n int) *Config {
	return c.withPerMinute(models.ClassOps, n)
}

func (c *Config) withPerMinute(class models.EndpointClass, n int) *Config {
	if n <= 0 {
		return c
	}
	c.IPLimits[class] = Limit{RequestsPerWindow: n, Window: time.Minute}
	return c
}

// GetIPLimit returns the per-IP limit for class. ok is false when none is
// configured.
func (c *Config) GetIPLimit(class models.EndpointClass) (requestsPerWindow int, window time.Duration, ok bool) {
	limit, ok := c.IPLimits[class]
	if !ok || limit.RequestsPerWindow <= 0 || limit.Window <= 0 {
		return 0, 0, false
	}
	return limit.RequestsPerWindow, limit.Window, true
}
