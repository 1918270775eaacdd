/*
Package ports defines the driven ports (interfaces) of the Vigil engine.

These interfaces decouple validation from external implementations, allowing
the engine to read schema definitions from and persist reports to various
backends.

# Key Interfaces

  - SchemaSource: Provides raw schema definitions (e.g., from Loam, files or memory).
  - ReportStore: Persists and loads validation reports.
  - ValidationEngine: The core as seen by the HTTP and MCP adapters.
*/
package ports
