package strategy

import (
	"context"
	"log/slog"
	"strings"

	"medadmit/internal/resolver/models"
	"medadmit/internal/resolver/normalize"
	"medadmit/internal/resolver/ports"
)

// Composite matches delimiter-separated field tuples such as
// "name, state" against the stored composite key.
type Composite struct {
	catalog ports.Catalog
	logger  *slog.Logger
}

func NewComposite(catalog ports.Catalog, logger *slog.Logger) *Composite {
	if logger == nil {
		logger = slog.Default()
	}
	return &Composite{catalog: catalog, logger: logger}
}

func (c *Composite) Method() models.Method { return models.MethodComposite }

func (c *Composite) Terminal() bool { return false }

func (c *Composite) TryResolve(ctx context.Context, in Input) (*models.Result, error) {
	arity := in.Type.CompositeArity()
	if arity == 0 {
		return nil, nil
	}
	fields := normalize.SplitComposite(in.Raw)
	if len(fields) != arity+1 {
		return nil, nil
	}
	key := strings.Join(fields, normalize.KeySeparator)

	recs, err := c.catalog.FindByCompositeKey(ctx, in.Type, key)
	if err != nil {
		return nil, err
	}
	if len(recs) == 0 {
		return nil, nil
	}
	if len(recs) > 1 {
		c.logger.WarnContext(ctx, "duplicate composite key in catalog",
			"entity_type", in.Type,
			"composite_key", key,
			"rows", len(recs),
			"chosen_id", recs[0].ID,
		)
	}
	return resultPtr(models.Matched(models.MethodComposite, recs[0], 1)), nil
}
