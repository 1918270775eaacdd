/*
Package domain contains the data models shared by the Vigil engine and its adapters.

It is kept free of I/O and persistence concerns. Adapters translate these
models to and from their storage or wire formats.

# Key Entities

  - Report: The outcome of one validation pass (schema, validity, messages, timing).
  - ReportDiff: The change in messages between two reports of the same schema.
  - SchemaInfo: A serializable description of a compiled schema, used by the CLI,
    the HTTP API and the MCP tools.
*/
package domain
