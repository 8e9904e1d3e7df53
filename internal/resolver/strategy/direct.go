package strategy

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"

	"medadmit/internal/resolver/models"
	"medadmit/internal/resolver/ports"
	"medadmit/pkg/platform/sentinel"
)

// Direct looks identifiers shaped like a surrogate key up by id.
type Direct struct {
	catalog ports.Catalog
}

func NewDirect(catalog ports.Catalog) *Direct {
	return &Direct{catalog: catalog}
}

func (d *Direct) Method() models.Method { return models.MethodDirect }

func (d *Direct) Terminal() bool { return false }

func (d *Direct) TryResolve(ctx context.Context, in Input) (*models.Result, error) {
	id, ok := KeyShape(in.Raw)
	if !ok {
		return nil, nil
	}
	rec, err := d.catalog.FindByID(ctx, in.Type, id)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			// A well-formed key that does not exist is never reread as a name.
			return resultPtr(models.NotFound()), nil
		}
		return nil, err
	}
	return resultPtr(models.Matched(models.MethodDirect, rec, 1)), nil
}

// KeyShape reports whether raw is a hyphenated or bare-hex UUID and returns
// its canonical lowercase form.
func KeyShape(raw string) (string, bool) {
	s := strings.TrimSpace(raw)
	if len(s) != 36 && len(s) != 32 {
		return "", false
	}
	id, err := uuid.Parse(s)
	if err != nil {
		return "", false
	}
	return id.String(), true
}
