// Package strategy holds the matchers the resolver engine tries in order.
package strategy

import (
	"context"
	"log/slog"

	"medadmit/internal/resolver/models"
	"medadmit/internal/resolver/ports"
)

// Input is what every matcher sees for one identifier.
type Input struct {
	Raw        string
	Normalized string
	Type       models.EntityType
	Threshold  float64
}

// Strategy is one tier of the resolution chain.
//
// TryResolve returns (nil, nil) when the matcher does not apply and the chain
// should continue. A non-nil result ends the chain. An error means the
// backing store failed; the caller decides how to degrade.
type Strategy interface {
	Method() models.Method
	// Terminal reports whether the chain ends with this matcher.
	Terminal() bool
	TryResolve(ctx context.Context, in Input) (*models.Result, error)
}

// DefaultChain builds the fixed matcher order: direct, composite,
// link table, fuzzy.
func DefaultChain(catalog ports.Catalog, logger *slog.Logger, candidateLimit int) []Strategy {
	return []Strategy{
		NewDirect(catalog),
		NewComposite(catalog, logger),
		NewLinkTable(catalog),
		NewFuzzy(catalog, candidateLimit),
	}
}

func resultPtr(r models.Result) *models.Result {
	return &r
}
