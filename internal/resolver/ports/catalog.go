package ports

import (
	"context"

	"medadmit/internal/resolver/models"
)

//go:generate mockgen -source=catalog.go -destination=mocks/mocks.go -package=mocks Catalog

// Catalog is the read-only canonical store the matchers query.
// Lookups that miss return sentinel.ErrNotFound.
type Catalog interface {
	// FindByID looks up a record by its surrogate key.
	FindByID(ctx context.Context, entityType models.EntityType, id string) (*models.Record, error)

	// FindByCompositeKey returns every record sharing the key, most recently
	// updated first with ties broken by id.
	FindByCompositeKey(ctx context.Context, entityType models.EntityType, key string) ([]*models.Record, error)

	// FindAlias resolves a curated alternate spelling to its canonical record.
	FindAlias(ctx context.Context, entityType models.EntityType, alias string) (*models.Record, error)

	// ListCandidates returns a bounded set of records worth scoring.
	ListCandidates(ctx context.Context, entityType models.EntityType, filter CandidateFilter) ([]*models.Record, error)

	Ping(ctx context.Context) error
}

// DefaultCandidateLimit bounds a fuzzy scan when no limit is configured.
const DefaultCandidateLimit = 500

// CandidateFilter narrows a fuzzy scan. A record qualifies when its
// normalized name equals Exact, contains any token or starts with Prefix.
// Qualifying records are ranked before Limit applies: an exact name first,
// then by how many tokens and prefix the name matches, then by name.
type CandidateFilter struct {
	Exact  string
	Tokens []string
	Prefix string
	Limit  int
}

// Unfiltered reports whether the filter lists every record of the type.
func (f CandidateFilter) Unfiltered() bool {
	return f.Exact == "" && len(f.Tokens) == 0 && f.Prefix == ""
}

// EffectiveLimit returns Limit or the default when unset.
func (f CandidateFilter) EffectiveLimit() int {
	if f.Limit <= 0 {
		return DefaultCandidateLimit
	}
	return f.Limit
}
