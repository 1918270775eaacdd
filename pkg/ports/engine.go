package ports

import (
	"context"

	"github.com/aretw0/vigil/pkg/domain"
)

// ValidationEngine defines the interface adapters (HTTP, MCP, CLI) drive.
// Implementations own the schema catalog and report persistence.
type ValidationEngine interface {
	// Validate checks data against the named schema and returns the report.
	// When fields is not empty only those fields are validated.
	// Returns domain.ErrSchemaNotFound for unknown schema names.
	Validate(ctx context.Context, schemaName string, data map[string]any, fields ...string) (*domain.Report, error)

	// Schemas lists the names of the available schemas, sorted.
	Schemas() []string

	// Describe returns the description of a schema.
	Describe(schemaName string) (*domain.SchemaInfo, error)

	// Report loads a stored report.
	// Returns domain.ErrReportNotFound if the report does not exist.
	Report(ctx context.Context, id string) (*domain.Report, error)
}
