package store

import (
	"context"
	"sort"
	"strings"
	"sync"

	"medadmit/internal/resolver/models"
	"medadmit/internal/resolver/normalize"
	"medadmit/internal/resolver/ports"
	"medadmit/pkg/platform/sentinel"
)

type memoryRecord struct {
	record     models.Record
	normalized string
}

// InMemory is a catalog held in process memory, used for local runs and
// tests. Safe for concurrent use.
type InMemory struct {
	mu        sync.RWMutex
	byID      map[models.EntityType]map[string]*memoryRecord
	composite map[models.EntityType]map[string][]*memoryRecord
	aliases   map[models.EntityType]map[string]string
	// ordered by normalized name, then id
	ordered map[models.EntityType][]*memoryRecord
}

// NewInMemory creates an empty catalog.
func NewInMemory() *InMemory {
	return &InMemory{
		byID:      make(map[models.EntityType]map[string]*memoryRecord),
		composite: make(map[models.EntityType]map[string][]*memoryRecord),
		aliases:   make(map[models.EntityType]map[string]string),
		ordered:   make(map[models.EntityType][]*memoryRecord),
	}
}

// NewInMemoryFromSeed creates a catalog populated from seed.
func NewInMemoryFromSeed(seed *Seed) *InMemory {
	s := NewInMemory()
	for _, e := range seed.Entities {
		s.Add(e.Record(), e.Aliases...)
	}
	return s
}

// Add inserts or replaces a record and registers its aliases.
func (s *InMemory) Add(rec *models.Record, aliases ...string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t := rec.Type
	if s.byID[t] == nil {
		s.byID[t] = make(map[string]*memoryRecord)
		s.composite[t] = make(map[string][]*memoryRecord)
		s.aliases[t] = make(map[string]string)
	}
	if old, ok := s.byID[t][rec.ID]; ok {
		s.unindex(old)
	}

	mr := &memoryRecord{record: *rec, normalized: normalize.Normalize(rec.Name)}
	s.byID[t][rec.ID] = mr
	if rec.CompositeKey != "" {
		rows := append(s.composite[t][rec.CompositeKey], mr)
		sort.SliceStable(rows, func(i, j int) bool {
			a, b := rows[i].record, rows[j].record
			if !a.UpdatedAt.Equal(b.UpdatedAt) {
				return a.UpdatedAt.After(b.UpdatedAt)
			}
			return a.ID < b.ID
		})
		s.composite[t][rec.CompositeKey] = rows
	}
	for _, alias := range aliases {
		if n := normalize.Normalize(alias); n != "" {
			s.aliases[t][n] = rec.ID
		}
	}

	ordered := append(s.ordered[t], mr)
	sort.Slice(ordered, func(i, j int) bool {
		if ordered[i].normalized != ordered[j].normalized {
			return ordered[i].normalized < ordered[j].normalized
		}
		return ordered[i].record.ID < ordered[j].record.ID
	})
	s.ordered[t] = ordered
}

func (s *InMemory) unindex(old *memoryRecord) {
	t := old.record.Type
	if key := old.record.CompositeKey; key != "" {
		rows := s.composite[t][key]
		for i, r := range rows {
			if r == old {
				s.composite[t][key] = append(rows[:i:i], rows[i+1:]...)
				break
			}
		}
	}
	ordered := s.ordered[t]
	for i, r := range ordered {
		if r == old {
			s.ordered[t] = append(ordered[:i:i], ordered[i+1:]...)
			break
		}
	}
}

func (s *InMemory) FindByID(_ context.Context, entityType models.EntityType, id string) (*models.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	mr, ok := s.byID[entityType][id]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	rec := mr.record
	return &rec, nil
}

func (s *InMemory) FindByCompositeKey(_ context.Context, entityType models.EntityType, key string) ([]*models.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rows := s.composite[entityType][key]
	out := make([]*models.Record, 0, len(rows))
	for _, mr := range rows {
		rec := mr.record
		out = append(out, &rec)
	}
	return out, nil
}

func (s *InMemory) FindAlias(_ context.Context, entityType models.EntityType, alias string) (*models.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.aliases[entityType][alias]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	mr, ok := s.byID[entityType][id]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	rec := mr.record
	return &rec, nil
}

func (s *InMemory) ListCandidates(_ context.Context, entityType models.EntityType, filter ports.CandidateFilter) ([]*models.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	limit := filter.EffectiveLimit()

	type ranked struct {
		mr   *memoryRecord
		rank int
	}
	var hits []ranked
	for _, mr := range s.ordered[entityType] {
		if filter.Unfiltered() {
			if len(hits) >= limit {
				break
			}
			hits = append(hits, ranked{mr: mr})
			continue
		}
		if rank := candidateRank(mr.normalized, filter); rank > 0 {
			hits = append(hits, ranked{mr: mr, rank: rank})
		}
	}
	// ordered is already by name then id, so a stable sort keeps that as the tiebreak.
	sort.SliceStable(hits, func(i, j int) bool { return hits[i].rank > hits[j].rank })
	if len(hits) > limit {
		hits = hits[:limit]
	}

	out := make([]*models.Record, 0, len(hits))
	for _, h := range hits {
		rec := h.mr.record
		out = append(out, &rec)
	}
	return out, nil
}

// candidateRank scores how well name matches the filter; zero means it does
// not qualify. An exact name outranks any combination of partial matches.
func candidateRank(name string, filter ports.CandidateFilter) int {
	rank := 0
	if filter.Prefix != "" && strings.HasPrefix(name, filter.Prefix) {
		rank++
	}
	for _, tok := range filter.Tokens {
		if strings.Contains(name, tok) {
			rank++
		}
	}
	if filter.Exact != "" && name == filter.Exact {
		rank += len(filter.Tokens) + 2
	}
	return rank
}

func (s *InMemory) Ping(context.Context) error {
	return nil
}

// Len reports how many records of the type are stored.
func (s *InMemory) Len(entityType models.EntityType) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.byID[entityType])
}
