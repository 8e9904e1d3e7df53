package strategy

import (
	"context"
	"strings"

	"medadmit/internal/resolver/models"
	"medadmit/internal/resolver/normalize"
	"medadmit/internal/resolver/ports"
	"medadmit/internal/resolver/similarity"
)

// stemLength trims tokens before the LIKE pre-filter so a typo near the end
// of a word still reaches the scorer.
const stemLength = 4

// Fuzzy scores a bounded candidate set and accepts the best match at or
// above the caller's threshold. It always answers.
type Fuzzy struct {
	catalog ports.Catalog
	limit   int
}

func NewFuzzy(catalog ports.Catalog, candidateLimit int) *Fuzzy {
	if candidateLimit <= 0 {
		candidateLimit = ports.DefaultCandidateLimit
	}
	return &Fuzzy{catalog: catalog, limit: candidateLimit}
}

func (f *Fuzzy) Method() models.Method { return models.MethodFuzzy }

func (f *Fuzzy) Terminal() bool { return true }

func (f *Fuzzy) TryResolve(ctx context.Context, in Input) (*models.Result, error) {
	candidates, err := f.candidates(ctx, in)
	if err != nil {
		return nil, err
	}

	var best *models.Record
	var bestScore float64
	for _, c := range candidates {
		score := similarity.Score(in.Normalized, normalize.Normalize(c.Name))
		if best == nil || score > bestScore || (score == bestScore && c.Name < best.Name) {
			best, bestScore = c, score
		}
	}
	if best == nil || bestScore < in.Threshold || bestScore == 0 {
		return resultPtr(models.NotFound()), nil
	}
	return resultPtr(models.Matched(models.MethodFuzzy, best, bestScore)), nil
}

// candidates runs the ranked exact/token/prefix pre-filter, widening to an
// unfiltered bounded scan when the filter finds nothing.
func (f *Fuzzy) candidates(ctx context.Context, in Input) ([]*models.Record, error) {
	filter := ports.CandidateFilter{
		Exact:  in.Normalized,
		Tokens: stems(normalize.Tokens(in.Normalized)),
		Limit:  f.limit,
	}
	if first, _, _ := strings.Cut(in.Normalized, " "); first != "" {
		filter.Prefix = first
	}
	recs, err := f.catalog.ListCandidates(ctx, in.Type, filter)
	if err != nil {
		return nil, err
	}
	if len(recs) > 0 {
		return recs, nil
	}
	return f.catalog.ListCandidates(ctx, in.Type, ports.CandidateFilter{Limit: f.limit})
}

func stems(tokens []string) []string {
	seen := make(map[string]struct{}, len(tokens))
	out := make([]string, 0, len(tokens))
	for _, tok := range tokens {
		r := []rune(tok)
		if len(r) > stemLength {
			tok = string(r[:stemLength])
		}
		if _, ok := seen[tok]; ok {
			continue
		}
		seen[tok] = struct{}{}
		out = append(out, tok)
	}
	return out
}
