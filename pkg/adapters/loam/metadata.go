package loam

// SchemaMetadata is the frontmatter of a schema document.
// It uses "mapstructure" tags to match the Frontmatter/YAML keys.
type SchemaMetadata struct {
	// Name overrides the file name as the schema name.
	Name        string         `json:"name" mapstructure:"name"`
	Description string         `json:"description" mapstructure:"description"`
	Fields      map[string]any `json:"fields" mapstructure:"fields"`

	// Order lists field names in declaration order. Frontmatter is decoded
	// into a map, so fields missing from Order follow alphabetically.
	Order []string `json:"order" mapstructure:"order"`
}
