package handler

import (
	"net/url"
	"strconv"

	"medadmit/internal/resolver/models"
	dErrors "medadmit/pkg/domain-errors"
)

// ResolveBatchRequest is the HTTP request body for POST /resolve.
type ResolveBatchRequest struct {
	Identifiers []string        `json:"identifiers"`
	Type        string          `json:"type"`
	Options     *RequestOptions `json:"options,omitempty"`

	// Parsed values (populated by Validate)
	parsedType    models.EntityType
	parsedOptions models.Options
}

// RequestOptions are the optional per-call resolution options.
type RequestOptions struct {
	UseCache       *bool    `json:"useCache,omitempty"`
	FuzzyThreshold *float64 `json:"fuzzyThreshold,omitempty"`
}

// Validate validates and parses the request.
// Implements the Validatable interface for httputil.DecodeAndPrepare.
func (r *ResolveBatchRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}

	// Size validation (fail fast)
	if r.Identifiers == nil {
		return dErrors.New(dErrors.CodeValidation, "identifiers is required")
	}
	if len(r.Identifiers) == 0 {
		return dErrors.New(dErrors.CodeValidation, "identifiers must contain at least one entry")
	}
	if len(r.Identifiers) > models.MaxBatchSize {
		return dErrors.New(dErrors.CodeValidation, "identifiers must contain at most 100 entries")
	}

	t, err := models.ParseEntityType(r.Type)
	if err != nil {
		return err
	}
	r.parsedType = t

	opts := models.DefaultOptions()
	if r.Options != nil {
		if r.Options.UseCache != nil {
			opts.UseCache = *r.Options.UseCache
		}
		if th := r.Options.FuzzyThreshold; th != nil {
			if *th < 0 || *th > 1 {
				return dErrors.New(dErrors.CodeValidation, "options.fuzzyThreshold must be between 0 and 1")
			}
			opts.FuzzyThreshold = *th
		}
	}
	r.parsedOptions = opts
	return nil
}

// Query returns the validated resolution query.
func (r *ResolveBatchRequest) Query() models.Query {
	return models.Query{Type: r.parsedType, Options: r.parsedOptions}
}

// ResolveSingleRequest holds the validated query string of GET /resolve.
type ResolveSingleRequest struct {
	Identifier string
	Type       models.EntityType
	Options    models.Options
}

// ParseResolveSingleRequest validates the query string. Only an absent or
// empty identifier is rejected; whitespace is passed through and resolves
// to not_found. A missing, non-numeric or out-of-range fuzzyThreshold falls
// back to the default.
func ParseResolveSingleRequest(values url.Values) (*ResolveSingleRequest, error) {
	identifier := values.Get("identifier")
	if identifier == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "identifier is required")
	}
	t, err := models.ParseEntityType(values.Get("type"))
	if err != nil {
		return nil, err
	}

	opts := models.DefaultOptions()
	if raw := values.Get("fuzzyThreshold"); raw != "" {
		if th, err := strconv.ParseFloat(raw, 64); err == nil && th >= 0 && th <= 1 {
			opts.FuzzyThreshold = th
		}
	}
	if raw := values.Get("useCache"); raw != "" {
		if b, err := strconv.ParseBool(raw); err == nil {
			opts.UseCache = b
		}
	}
	return &ResolveSingleRequest{Identifier: identifier, Type: t, Options: opts}, nil
}

// Query returns the resolution query.
func (r *ResolveSingleRequest) Query() models.Query {
	return models.Query{Type: r.Type, Options: r.Options}
}
