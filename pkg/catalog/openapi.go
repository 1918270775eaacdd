package catalog

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/getkin/kin-openapi/openapi3"
)

const componentPrefix = "#/components/schemas/"

// FromOpenAPI queues every object schema under components.schemas of an
// OpenAPI 3 document as a definition and returns their names. Call Compile to
// build them.
func (c *Catalog) FromOpenAPI(data []byte) ([]string, error) {
	loader := openapi3.NewLoader()
	doc, err := loader.LoadFromData(data)
	if err != nil {
		return nil, fmt.Errorf("%w: openapi: %v", ErrInvalidDefinition, err)
	}
	if err := doc.Validate(context.Background()); err != nil {
		return nil, fmt.Errorf("%w: openapi: %v", ErrInvalidDefinition, err)
	}
	if doc.Components == nil || len(doc.Components.Schemas) == 0 {
		return nil, nil
	}

	names := make([]string, 0, len(doc.Components.Schemas))
	for name := range doc.Components.Schemas {
		names = append(names, name)
	}
	sort.Strings(names)

	var added []string
	for _, name := range names {
		ref := doc.Components.Schemas[name]
		if ref == nil || ref.Value == nil || !isObject(ref.Value) {
			c.logger.Debug("openapi component skipped", "component", name)
			continue
		}
		def := &definition{
			name:        name,
			description: ref.Value.Description,
			fields:      objectFields(ref.Value),
		}
		if err := c.addParsed(def); err != nil {
			return added, err
		}
		added = append(added, name)
	}
	return added, nil
}

func hasType(s *openapi3.Schema, t string) bool {
	return s.Type != nil && s.Type.Includes(t)
}

func isObject(s *openapi3.Schema) bool {
	return hasType(s, "object") || len(s.Properties) > 0
}

func objectFields(s *openapi3.Schema) *mapping {
	names := make([]string, 0, len(s.Properties))
	for name := range s.Properties {
		names = append(names, name)
	}
	sort.Strings(names)

	fields := newMapping()
	for _, name := range names {
		v := openAPIType(s.Properties[name])
		if contains(s.Required, name) {
			m, ok := v.(*mapping)
			if !ok {
				m = newMapping()
				m.set("type", v)
			}
			m.set("required", true)
			v = m
		}
		fields.set(name, v)
	}
	return fields
}

// openAPIType converts a property schema into the value a definition would
// carry for it: a schema name for references to object components, a
// mapping otherwise.
func openAPIType(ref *openapi3.SchemaRef) any {
	if ref == nil || ref.Value == nil {
		return "any"
	}
	if strings.HasPrefix(ref.Ref, componentPrefix) && isObject(ref.Value) {
		return strings.TrimPrefix(ref.Ref, componentPrefix)
	}

	s := ref.Value
	m := newMapping()
	switch {
	case len(s.OneOf) > 0 || len(s.AnyOf) > 0:
		var members []any
		for _, r := range append(append(openapi3.SchemaRefs(nil), s.OneOf...), s.AnyOf...) {
			members = append(members, openAPIType(r))
		}
		m.set("anyOf", members)
	case hasType(s, "array"):
		if s.Items != nil {
			m.set("arrayOf", openAPIType(s.Items))
		} else {
			m.set("type", "array")
		}
		if s.MinItems > 0 {
			m.set("min", s.MinItems)
		}
		if s.MaxItems != nil {
			m.set("max", *s.MaxItems)
		}
	case isObject(s):
		if len(s.Properties) > 0 {
			m.set("fields", objectFields(s))
		} else {
			m.set("type", "object")
		}
	case hasType(s, "string"):
		if s.Format == "date" || s.Format == "date-time" {
			m.set("type", "date")
		} else {
			m.set("type", "string")
			if s.MinLength > 0 {
				m.set("min", s.MinLength)
			}
			if s.MaxLength != nil {
				m.set("max", *s.MaxLength)
			}
		}
	case hasType(s, "integer"), hasType(s, "number"):
		if hasType(s, "integer") {
			m.set("type", "integer")
		} else {
			m.set("type", "number")
		}
		if s.Min != nil {
			m.set("min", *s.Min)
		}
		if s.Max != nil {
			m.set("max", *s.Max)
		}
	case hasType(s, "boolean"):
		m.set("type", "boolean")
	default:
		m.set("type", "any")
	}

	if len(s.Enum) > 0 {
		m.set("allowedValues", s.Enum)
	}
	if s.Default != nil {
		m.set("default", s.Default)
	}
	if !s.Nullable && !hasType(s, "null") {
		m.set("nullable", false)
	}
	return m
}
