/*
Package vigil is a runtime schema-validation engine for dynamic documents.

Schemas are ordered sets of typed fields. Each field is validated by a chain of
stages (required, nullable, type and bounds, custom) composed once when the
schema is built. Validation runs in a context that records an error code per
field path, supports partial re-validation of selected fields, awaits
asynchronous custom validators and propagates the validity of nested schemas
to their parents.

# Key Features

  - Declarative schemas: YAML, JSON, TOML or OpenAPI components, compiled into a named catalog.
  - Composite types: any-of unions and array-of collections, interned by identity.
  - Asynchronous custom validators, including external processes.
  - Reports: every pass yields a stored, diffable report.
  - Hexagonal Architecture: sources, report stores and transports (HTTP, MCP, CLI) are adapters.

# Usage

	package main

	import (
		"context"
		"fmt"
		"log"

		"github.com/aretw0/vigil"
	)

	func main() {
		// Reads ./schemas/*.yaml, *.json and *.toml
		eng, err := vigil.New("./schemas")
		if err != nil {
			log.Fatal(err)
		}

		report, err := eng.Validate(context.Background(), "order", map[string]any{
			"id":    "A-1",
			"total": -3,
		})
		if err != nil {
			log.Fatal(err)
		}
		for _, issue := range report.Issues() {
			fmt.Println(issue.Path, issue.Code)
		}
	}

The validation core lives in package schema and can be used on its own.
*/
package vigil
