package catalog

import (
	"encoding/json"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"

	"github.com/aretw0/vigil/pkg/domain"
	"github.com/aretw0/vigil/pkg/schema"
)

// typeKeys select the type of a field written as a mapping. At most one may
// be present.
var typeKeys = []string{"type", "anyOf", "arrayOf", "fields"}

// fieldDoc holds the options of a field written as a mapping.
type fieldDoc struct {
	Required      bool           `mapstructure:"required"`
	Nullable      *bool          `mapstructure:"nullable"`
	Min           any            `mapstructure:"min"`
	Max           any            `mapstructure:"max"`
	Default       any            `mapstructure:"default"`
	Custom        string         `mapstructure:"custom"`
	Timeout       time.Duration  `mapstructure:"timeout"`
	AllowedValues []any          `mapstructure:"allowedValues"`
	Description   string         `mapstructure:"description"`
	Extra         map[string]any `mapstructure:",remain"`
}

var durationType = reflect.TypeOf(time.Duration(0))

// millisecondsHook reads bare numbers as milliseconds when decoding durations.
func millisecondsHook(_ reflect.Type, to reflect.Type, data any) (any, error) {
	if to != durationType {
		return data, nil
	}
	ms := func(f float64) time.Duration { return time.Duration(f * float64(time.Millisecond)) }
	switch n := data.(type) {
	case int:
		return time.Duration(n) * time.Millisecond, nil
	case int64:
		return time.Duration(n) * time.Millisecond, nil
	case uint64:
		return time.Duration(n) * time.Millisecond, nil
	case float64:
		return ms(n), nil
	case json.Number:
		f, err := n.Float64()
		if err != nil {
			return nil, err
		}
		return ms(f), nil
	}
	return data, nil
}

func decodeFieldDoc(opts map[string]any) (fieldDoc, error) {
	var doc fieldDoc
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &doc,
		WeaklyTypedInput: true,
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			millisecondsHook,
			mapstructure.StringToTimeDurationHookFunc(),
		),
	})
	if err != nil {
		return doc, err
	}
	return doc, dec.Decode(opts)
}

// compiler resolves one batch of definitions. It runs under the catalog lock.
type compiler struct {
	catalog  *Catalog
	visiting map[string]bool
	stack    []string
	built    map[string]*schema.Schema
}

func (c *compiler) errorf(owner, field string, err error, format string, args ...any) error {
	return fmt.Errorf("schema %s field %s: %w: %s", owner, field, err, fmt.Sprintf(format, args...))
}

func (c *compiler) known(name string) bool {
	if _, ok := c.catalog.schemas[name]; ok {
		return true
	}
	if _, ok := c.built[name]; ok {
		return true
	}
	_, ok := c.catalog.defs[name]
	return ok
}

// schemaFor returns the schema called name, compiling its definition and
// everything it references first.
func (c *compiler) schemaFor(name string) (*schema.Schema, error) {
	if s, ok := c.catalog.schemas[name]; ok {
		return s, nil
	}
	if s, ok := c.built[name]; ok {
		return s, nil
	}
	def, ok := c.catalog.defs[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrSchemaNotFound, name)
	}
	if c.visiting[name] {
		start := 0
		for i, n := range c.stack {
			if n == name {
				start = i
				break
			}
		}
		path := append(append([]string(nil), c.stack[start:]...), name)
		return nil, fmt.Errorf("%w: %s", ErrCycle, strings.Join(path, " -> "))
	}

	c.visiting[name] = true
	c.stack = append(c.stack, name)
	s, err := c.build(name, def.fields)
	c.stack = c.stack[:len(c.stack)-1]
	delete(c.visiting, name)
	if err != nil {
		return nil, err
	}
	c.built[name] = s
	c.catalog.logger.Debug("schema compiled", "schema", name, "fields", len(def.fields.keys))
	return s, nil
}

func (c *compiler) build(name string, fields *mapping) (*schema.Schema, error) {
	decl := make(schema.Decl, 0, len(fields.keys))
	for _, key := range fields.keys {
		spec, err := c.fieldSpec(name, key, fields.values[key])
		if err != nil {
			return nil, err
		}
		decl = append(decl, schema.Entry{Name: key, Spec: spec})
	}
	s, err := schema.New(decl,
		schema.WithName(name),
		schema.WithLogger(c.catalog.logger),
		schema.WithObserver(c.catalog.observer),
		schema.WithTypeRegistry(c.catalog.types),
	)
	if err != nil {
		return nil, fmt.Errorf("schema %s: %w", name, err)
	}
	return s, nil
}

func (c *compiler) fieldSpec(owner, field string, v any) (schema.FieldSpec, error) {
	m, ok := v.(*mapping)
	if !ok {
		t, err := c.resolve(owner, field, v)
		if err != nil {
			return schema.FieldSpec{}, err
		}
		return schema.FieldSpec{Type: t}, nil
	}

	t, err := c.typeOf(owner, field, m)
	if err != nil {
		return schema.FieldSpec{}, err
	}
	doc, err := decodeFieldDoc(m.plain(typeKeys...))
	if err != nil {
		return schema.FieldSpec{}, c.errorf(owner, field, ErrInvalidDefinition, "%v", err)
	}
	spec := schema.FieldSpec{
		Type:          t,
		Required:      doc.Required,
		Nullable:      doc.Nullable,
		Min:           doc.Min,
		Max:           doc.Max,
		DefaultValue:  doc.Default,
		Timeout:       doc.Timeout,
		AllowedValues: doc.AllowedValues,
	}
	if len(doc.Extra) > 0 {
		spec.Extra = doc.Extra
	}
	if doc.Custom != "" {
		fn, ok := c.catalog.customs.Get(doc.Custom)
		if !ok {
			return schema.FieldSpec{}, c.errorf(owner, field, ErrUnknownCustom, "%q", doc.Custom)
		}
		spec.Custom = fn
	}
	return spec, nil
}

// typeOf resolves the type of a field written as a mapping.
func (c *compiler) typeOf(owner, field string, m *mapping) (*schema.Type, error) {
	var set []string
	for _, k := range typeKeys {
		if m.has(k) {
			set = append(set, k)
		}
	}
	if len(set) == 0 {
		return nil, c.errorf(owner, field, ErrInvalidDefinition, "missing type")
	}
	if len(set) > 1 {
		return nil, c.errorf(owner, field, ErrInvalidDefinition, "%s are mutually exclusive", strings.Join(set, "/"))
	}

	switch set[0] {
	case "fields":
		nested, ok := m.values["fields"].(*mapping)
		if !ok {
			return nil, c.errorf(owner, field, ErrInvalidDefinition, "fields must be a mapping")
		}
		s, err := c.build(owner+"."+field, nested)
		if err != nil {
			return nil, err
		}
		return s.AsType(), nil
	case "anyOf":
		list, ok := m.values["anyOf"].([]any)
		if !ok || len(list) == 0 {
			return nil, c.errorf(owner, field, schema.ErrEmptyComposite, "anyOf must be a non-empty list")
		}
		members := make([]any, len(list))
		for i, tok := range list {
			t, err := c.resolve(owner, field, tok)
			if err != nil {
				return nil, err
			}
			members[i] = t
		}
		t, err := c.catalog.types.AnyOf(members...)
		if err != nil {
			return nil, fmt.Errorf("schema %s field %s: %w", owner, field, err)
		}
		return t, nil
	case "arrayOf":
		elem, err := c.resolve(owner, field, m.values["arrayOf"])
		if err != nil {
			return nil, err
		}
		return c.arrayOf(owner, field, elem)
	default:
		return c.resolve(owner, field, m.values["type"])
	}
}

// resolve turns a type position (token, one-element list or mapping) into a
// descriptor.
func (c *compiler) resolve(owner, field string, v any) (*schema.Type, error) {
	switch x := v.(type) {
	case string:
		return c.resolveToken(owner, field, x)
	case []any:
		if len(x) != 1 {
			return nil, c.errorf(owner, field, ErrInvalidDefinition, "array shorthand takes exactly one element, got %d", len(x))
		}
		elem, err := c.resolve(owner, field, x[0])
		if err != nil {
			return nil, err
		}
		return c.arrayOf(owner, field, elem)
	case *mapping:
		return c.typeOf(owner, field, x)
	case nil:
		return nil, c.errorf(owner, field, ErrInvalidDefinition, "missing type")
	}
	return nil, c.errorf(owner, field, schema.ErrUnknownType, "unsupported type value %T", v)
}

// resolveToken resolves "[token]" shorthands, names of other schemas and type
// aliases, in that order.
func (c *compiler) resolveToken(owner, field, token string) (*schema.Type, error) {
	token = strings.TrimSpace(token)
	if strings.HasPrefix(token, "[") && strings.HasSuffix(token, "]") {
		elem, err := c.resolveToken(owner, field, token[1:len(token)-1])
		if err != nil {
			return nil, err
		}
		return c.arrayOf(owner, field, elem)
	}
	if c.known(token) {
		s, err := c.schemaFor(token)
		if err != nil {
			return nil, err
		}
		return s.AsType(), nil
	}
	if t, ok := c.catalog.types.GetType(token); ok {
		return t, nil
	}
	return nil, c.errorf(owner, field, schema.ErrUnknownType, "%q is neither a type nor a schema", token)
}

func (c *compiler) arrayOf(owner, field string, elem *schema.Type) (*schema.Type, error) {
	t, err := c.catalog.types.ArrayOf(elem)
	if err != nil {
		return nil, fmt.Errorf("schema %s field %s: %w", owner, field, err)
	}
	return t, nil
}
