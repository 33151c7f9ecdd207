package stubstore

import (
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"os"

	goerrors "github.com/goliatone/go-errors"
	"gopkg.in/yaml.v3"

	"github.com/goliatone/go-listsync/catalog"
)

//go:embed seed.yaml
var defaultSeed []byte

// Seed maps resource names to the records created for them, in order.
type Seed map[string][]map[string]any

// DefaultSeed returns the bundled demo catalog.
func DefaultSeed() (Seed, error) {
	return ParseSeed(defaultSeed)
}

// LoadSeed reads a YAML seed file.
func LoadSeed(path string) (Seed, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryBadInput, "read seed file").
			WithMetadata(map[string]any{"path": path})
	}
	return ParseSeed(raw)
}

// ParseSeed decodes a YAML seed document.
func ParseSeed(raw []byte) (Seed, error) {
	var seed Seed
	if err := yaml.Unmarshal(raw, &seed); err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryBadInput, "parse seed").
			WithTextCode("MALFORMED_SEED")
	}
	for resource := range seed {
		if !catalog.Known(resource) {
			return nil, goerrors.New(fmt.Sprintf("seed lists unknown resource %q", resource), goerrors.CategoryBadInput).
				WithTextCode("MALFORMED_SEED")
		}
	}
	return seed, nil
}

// Apply creates every seed record. Resources are created in catalog order so
// sequence numbers are stable between runs.
func (s *Store) Apply(ctx context.Context, seed Seed) error {
	for _, resource := range catalog.Resources() {
		for i, item := range seed[resource] {
			raw, err := json.Marshal(item)
			if err != nil {
				return goerrors.Wrap(err, goerrors.CategoryBadInput, fmt.Sprintf("encode seed %s[%d]", resource, i))
			}
			if _, err := s.Create(ctx, resource, raw); err != nil {
				return goerrors.Wrap(err, goerrors.CategoryBadInput, fmt.Sprintf("seed %s[%d]", resource, i))
			}
		}
	}
	return nil
}
