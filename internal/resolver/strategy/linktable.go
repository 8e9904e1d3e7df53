package strategy

import (
	"context"
	"errors"

	"medadmit/internal/resolver/models"
	"medadmit/internal/resolver/ports"
	"medadmit/pkg/platform/sentinel"
)

// LinkTable resolves curated alternate spellings through the alias table.
type LinkTable struct {
	catalog ports.Catalog
}

func NewLinkTable(catalog ports.Catalog) *LinkTable {
	return &LinkTable{catalog: catalog}
}

func (l *LinkTable) Method() models.Method { return models.MethodLinkTable }

func (l *LinkTable) Terminal() bool { return false }

func (l *LinkTable) TryResolve(ctx context.Context, in Input) (*models.Result, error) {
	rec, err := l.catalog.FindAlias(ctx, in.Type, in.Normalized)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return resultPtr(models.Matched(models.MethodLinkTable, rec, 1)), nil
}
