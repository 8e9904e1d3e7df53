// Package cache memoizes resolution results by entity type and normalized
// identifier.
package cache

import (
	"context"
	"time"

	"medadmit/internal/resolver/models"
)

// Key identifies a cached resolution.
type Key struct {
	Type       models.EntityType
	Normalized string
}

// Entry is an immutable cached resolution. Threshold is the fuzzy threshold
// a not_found verdict was produced under; zero means the verdict holds for
// every threshold.
type Entry struct {
	Result    models.Result `json:"result"`
	Threshold float64       `json:"threshold"`
	ExpiresAt time.Time     `json:"expiresAt"`
}

// Cache stores entries for a bounded time. Implementations are safe for
// concurrent use. A miss is (Entry{}, false, nil).
type Cache interface {
	Get(ctx context.Context, key Key) (Entry, bool, error)
	Put(ctx context.Context, key Key, entry Entry, ttl time.Duration) error
}

// Lookup is the outcome of checking an entry against a caller's threshold.
type Lookup int

const (
	LookupMiss Lookup = iota
	LookupHit
)

// Apply re-checks a cached entry against the threshold of the current call.
// Exact matches always hold. A fuzzy match below the threshold was the best
// candidate, so it becomes not_found. A not_found produced under a stricter
// threshold may hide a match that would clear this one, so it is a miss.
func (e Entry) Apply(threshold float64) (models.Result, Lookup) {
	r := e.Result
	switch {
	case r.Method.IsExact():
		return r, LookupHit
	case r.Method == models.MethodFuzzy:
		if r.Confidence >= threshold {
			return r, LookupHit
		}
		return models.NotFound(), LookupHit
	default:
		if threshold >= e.Threshold {
			return r, LookupHit
		}
		return models.Result{}, LookupMiss
	}
}
