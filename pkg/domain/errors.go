package domain

import "errors"

// ErrReportNotFound is returned when a report ID cannot be found in the store.
var ErrReportNotFound = errors.New("report not found")

// ErrSchemaNotFound is returned when a schema name is not known to the catalog.
var ErrSchemaNotFound = errors.New("schema not found")

// ErrDefinitionNotFound is returned by schema sources for unknown definition names.
var ErrDefinitionNotFound = errors.New("definition not found")
