package memory

import (
	"fmt"
	"sort"

	"github.com/aretw0/vigil/pkg/domain"
	"gopkg.in/yaml.v3"
)

// Source implements ports.SchemaSource using an in-memory map.
type Source struct {
	defs map[string][]byte
}

// NewSource creates a new memory source with the provided raw definitions.
func NewSource(data map[string]string) *Source {
	defs := make(map[string][]byte, len(data))
	for k, v := range data {
		defs[k] = []byte(v)
	}
	return &Source{defs: defs}
}

// NewFromValues creates a memory source from Go values, one per schema name.
// Each value is serialized to YAML, improving DX for tests.
func NewFromValues(values map[string]any) (*Source, error) {
	defs := make(map[string][]byte, len(values))
	for name, v := range values {
		if name == "" {
			return nil, fmt.Errorf("definition missing name")
		}
		b, err := yaml.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal definition %s: %w", name, err)
		}
		defs[name] = b
	}
	return &Source{defs: defs}, nil
}

// GetDefinition retrieves the raw definition of a schema by name.
func (s *Source) GetDefinition(name string) ([]byte, error) {
	content, ok := s.defs[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrDefinitionNotFound, name)
	}
	return content, nil
}

// ListDefinitions returns all available definition names.
func (s *Source) ListDefinitions() ([]string, error) {
	keys := make([]string, 0, len(s.defs))
	for k := range s.defs {
		keys = append(keys, k)
	}
	sort.Strings(keys) // Deterministic order
	return keys, nil
}
