package models

import (
	"strings"
	"time"

	dErrors "medadmit/pkg/domain-errors"
)

// EntityType selects the canonical table and alias table consulted.
type EntityType string

const (
	EntityCollege EntityType = "college"
	EntityCourse  EntityType = "course"
	EntityCutoff  EntityType = "cutoff"
	EntityState   EntityType = "state"
)

// EntityTypes lists every supported type in a stable order.
var EntityTypes = []EntityType{EntityCollege, EntityCourse, EntityCutoff, EntityState}

// IsValid checks if the entity type is one of the supported enum values.
func (t EntityType) IsValid() bool {
	switch t {
	case EntityCollege, EntityCourse, EntityCutoff, EntityState:
		return true
	}
	return false
}

func (t EntityType) String() string {
	return string(t)
}

// CompositeArity is the number of qualifier fields following the name in a
// composite key: college=name|state, course=name|level,
// cutoff=college|course|year. Zero means composite keys do not apply.
func (t EntityType) CompositeArity() int {
	switch t {
	case EntityCollege, EntityCourse:
		return 1
	case EntityCutoff:
		return 2
	default:
		return 0
	}
}

// ParseEntityType validates s as an entity type.
func ParseEntityType(s string) (EntityType, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", dErrors.New(dErrors.CodeValidation, "type is required")
	}
	t := EntityType(strings.ToLower(s))
	if !t.IsValid() {
		return "", dErrors.New(dErrors.CodeValidation, "type must be one of: college, course, cutoff, state")
	}
	return t, nil
}

// Method names the strategy that produced a result.
type Method string

const (
	MethodDirect    Method = "direct"
	MethodComposite Method = "composite"
	MethodLinkTable Method = "link_table"
	MethodFuzzy     Method = "fuzzy"
	MethodNotFound  Method = "not_found"
)

// IsExact reports whether the method matches on an exact key.
func (m Method) IsExact() bool {
	return m == MethodDirect || m == MethodComposite || m == MethodLinkTable
}

// Record is a canonical stored entity.
type Record struct {
	ID           string
	Type         EntityType
	Name         string
	CompositeKey string
	UpdatedAt    time.Time
}

// DefaultFuzzyThreshold applies when the caller supplies none.
const DefaultFuzzyThreshold = 0.7

// MaxBatchSize is the largest batch accepted by the HTTP interface.
const MaxBatchSize = 100

// Options are per-call resolution options.
type Options struct {
	UseCache       bool
	FuzzyThreshold float64
}

// DefaultOptions returns cache-enabled options with the default threshold.
func DefaultOptions() Options {
	return Options{UseCache: true, FuzzyThreshold: DefaultFuzzyThreshold}
}

// Query is what a caller asks the engine to resolve identifiers against.
type Query struct {
	Type    EntityType
	Options Options
}
