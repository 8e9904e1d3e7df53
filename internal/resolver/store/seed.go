package store

import (
	_ "embed"
	"fmt"
	"io"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"medadmit/internal/resolver/models"
	"medadmit/internal/resolver/normalize"
	strs "medadmit/pkg/platform/strings"
)

//go:embed seed/catalog.yaml
var defaultSeed []byte

// SeedEntity is one canonical record in a seed file.
type SeedEntity struct {
	Type      models.EntityType `yaml:"type"`
	ID        string            `yaml:"id"`
	Name      string            `yaml:"name"`
	Key       []string          `yaml:"key"`
	UpdatedAt time.Time         `yaml:"updated_at"`
	Aliases   []string          `yaml:"aliases"`
}

// Seed is the document layout of a catalog seed file.
type Seed struct {
	Entities []SeedEntity `yaml:"entities"`
}

// Record converts the seed entry into a canonical record.
func (e SeedEntity) Record() *models.Record {
	var key string
	if len(e.Key) > 0 {
		key = normalize.CompositeKey(e.Key...)
	}
	return &models.Record{
		ID:           e.ID,
		Type:         e.Type,
		Name:         e.Name,
		CompositeKey: key,
		UpdatedAt:    e.UpdatedAt,
	}
}

// DefaultSeed parses the catalog bundled with the binary.
func DefaultSeed() (*Seed, error) {
	return ParseSeed(defaultSeed)
}

// LoadSeedFile reads a seed file from disk.
func LoadSeedFile(path string) (*Seed, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open seed %s: %w", path, err)
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("read seed %s: %w", path, err)
	}
	return ParseSeed(data)
}

// ParseSeed decodes and validates a seed document. Aliases that normalize to
// the same text are collapsed to their first spelling.
func ParseSeed(data []byte) (*Seed, error) {
	var seed Seed
	if err := yaml.Unmarshal(data, &seed); err != nil {
		return nil, fmt.Errorf("decode seed: %w", err)
	}
	seen := make(map[string]struct{}, len(seed.Entities))
	for i, e := range seed.Entities {
		if !e.Type.IsValid() {
			return nil, fmt.Errorf("seed entity %d: invalid type %q", i, e.Type)
		}
		if e.ID == "" || e.Name == "" {
			return nil, fmt.Errorf("seed entity %d: id and name are required", i)
		}
		if n := len(e.Key); n > 0 && n != e.Type.CompositeArity()+1 {
			return nil, fmt.Errorf("seed entity %s: %s key needs %d fields, got %d", e.ID, e.Type, e.Type.CompositeArity()+1, n)
		}
		if _, dup := seen[e.ID]; dup {
			return nil, fmt.Errorf("seed entity %s: duplicate id", e.ID)
		}
		seen[e.ID] = struct{}{}
		seed.Entities[i].Aliases = strs.DedupeBy(e.Aliases, normalize.Normalize)
	}
	return &seed, nil
}
