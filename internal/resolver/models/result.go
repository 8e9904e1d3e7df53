package models

import (
	"bytes"
	"encoding/json"
)

// Result is the outcome of resolving one identifier. Build it with
// NotFound or Matched so that ID is nil exactly when Method is not_found.
type Result struct {
	ID         *string `json:"id"`
	Name       *string `json:"name"`
	Method     Method  `json:"method"`
	Confidence float64 `json:"confidence"`
}

// NotFound is the terminal negative outcome.
func NotFound() Result {
	return Result{Method: MethodNotFound, Confidence: 0}
}

// Matched builds a positive result for record. Exact methods always carry
// confidence 1.
func Matched(method Method, record *Record, confidence float64) Result {
	if record == nil || method == MethodNotFound {
		return NotFound()
	}
	if method.IsExact() {
		confidence = 1.0
	}
	id, name := record.ID, record.Name
	return Result{ID: &id, Name: &name, Method: method, Confidence: confidence}
}

// Resolved reports whether the result points at a canonical record.
func (r Result) Resolved() bool {
	return r.ID != nil
}

// Equal compares results by value.
func (r Result) Equal(o Result) bool {
	return r.Method == o.Method &&
		r.Confidence == o.Confidence &&
		equalPtr(r.ID, o.ID) &&
		equalPtr(r.Name, o.Name)
}

func equalPtr(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

// BatchStats summarizes a batch over the full input multiset.
type BatchStats struct {
	Total    int `json:"total"`
	Resolved int `json:"resolved"`
	NotFound int `json:"notFound"`
}

// ResultSet maps identifiers to results, remembering first-insertion order.
type ResultSet struct {
	keys    []string
	results map[string]Result
}

// NewResultSet allocates a set sized for n identifiers.
func NewResultSet(n int) *ResultSet {
	return &ResultSet{
		keys:    make([]string, 0, n),
		results: make(map[string]Result, n),
	}
}

// Set stores result for identifier. Re-setting keeps the original position.
func (s *ResultSet) Set(identifier string, result Result) {
	if _, ok := s.results[identifier]; !ok {
		s.keys = append(s.keys, identifier)
	}
	s.results[identifier] = result
}

// Get returns the result stored for identifier.
func (s *ResultSet) Get(identifier string) (Result, bool) {
	r, ok := s.results[identifier]
	return r, ok
}

// Keys returns identifiers in first-insertion order.
func (s *ResultSet) Keys() []string {
	out := make([]string, len(s.keys))
	copy(out, s.keys)
	return out
}

// Len is the number of distinct identifiers.
func (s *ResultSet) Len() int {
	return len(s.keys)
}

// Stats counts every element of identifiers, duplicates included.
func (s *ResultSet) Stats(identifiers []string) BatchStats {
	stats := BatchStats{Total: len(identifiers)}
	for _, id := range identifiers {
		if r, ok := s.results[id]; ok && r.Resolved() {
			stats.Resolved++
		}
	}
	stats.NotFound = stats.Total - stats.Resolved
	return stats
}

// MarshalJSON encodes the set as a JSON object in insertion order.
func (s *ResultSet) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range s.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		val, err := json.Marshal(s.results[k])
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}
