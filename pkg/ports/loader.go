package ports

import "context"

// SchemaSource defines how the catalog retrieves schema definitions.
// This allows the storage layer (Loam, files, memory) to be decoupled.
type SchemaSource interface {
	// GetDefinition retrieves the raw definition of a schema by name.
	// It returns the raw bytes (YAML, JSON or TOML, which the catalog parses).
	// Returns domain.ErrDefinitionNotFound for unknown names.
	GetDefinition(name string) ([]byte, error)

	// ListDefinitions returns the names of all definitions, sorted.
	ListDefinitions() ([]string, error)
}

// Watchable is implemented by sources that can report changed definitions.
type Watchable interface {
	// Watch emits the name of every changed definition until ctx is done.
	Watch(ctx context.Context) (<-chan string, error)
}
