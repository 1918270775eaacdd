package domain

// SchemaInfo is a serializable description of a compiled schema.
type SchemaInfo struct {
	Name   string      `json:"name" yaml:"name"`
	Fields []FieldInfo `json:"fields" yaml:"fields"`
}

// FieldInfo describes one field of a schema.
type FieldInfo struct {
	Name     string `json:"name" yaml:"name"`
	Type     string `json:"type" yaml:"type"`
	Kind     string `json:"kind" yaml:"kind"`
	Required bool   `json:"required,omitempty" yaml:"required,omitempty"`
	Nullable bool   `json:"nullable" yaml:"nullable"`
	Min      any    `json:"min,omitempty" yaml:"min,omitempty"`
	Max      any    `json:"max,omitempty" yaml:"max,omitempty"`
	Allowed  []any  `json:"allowed_values,omitempty" yaml:"allowed_values,omitempty"`
	Custom   bool   `json:"custom,omitempty" yaml:"custom,omitempty"`

	// Members lists the candidates of an any-of field.
	Members []string `json:"members,omitempty" yaml:"members,omitempty"`

	// Elem names the element type of an array-of field.
	Elem string `json:"elem,omitempty" yaml:"elem,omitempty"`

	// Nested describes the schema behind a sub-schema field, or behind the
	// elements of an array-of-schema field.
	Nested *SchemaInfo `json:"nested,omitempty" yaml:"nested,omitempty"`
}
