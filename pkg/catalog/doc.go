// Package catalog compiles declarative schema definitions into schemas.
//
// A definition is a YAML, JSON or TOML document with a `fields` mapping. Field
// order in the document is the declaration order of the schema:
//
//	description: A customer order
//	fields:
//	  id: { type: string, required: true, min: 1 }
//	  placedAt: date
//	  customer: Customer          # another schema of the catalog
//	  tags: [string]              # array of strings
//	  lines: "[OrderLine]"        # array of schemas
//	  total: { anyOf: [number, string] }
//	  address:
//	    fields:                   # inline schema named Order.address
//	      city: string
//
// A document with a top-level `schemas` mapping defines several schemas at
// once. References between schemas are compiled in dependency order and
// cycles are rejected with ErrCycle. Field options follow schema.FieldSpec;
// `custom` names a validator of the catalog's CustomRegistry and `timeout`
// takes a duration string or a number of milliseconds.
package catalog
