package catalog

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/vigil/pkg/adapters/memory"
	"github.com/aretw0/vigil/pkg/domain"
	"github.com/aretw0/vigil/pkg/schema"
)

func validate(t *testing.T, s *schema.Schema, data map[string]any) map[string]string {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	vc := s.CreateContext()
	_, err := vc.Validate(data).Wait(ctx)
	require.NoError(t, err)
	return vc.GetMessages()
}

func compile(t *testing.T, c *Catalog, name, doc string) *schema.Schema {
	t.Helper()
	require.NoError(t, c.AddDefinition(name, []byte(doc)))
	require.NoError(t, c.Compile())
	s, err := c.Get(name)
	require.NoError(t, err)
	return s
}

func TestDetectFormat(t *testing.T) {
	tests := []struct {
		name string
		data string
		want Format
	}{
		{"JSON", `  {"fields": {}}`, FormatJSON},
		{"TOML", "[fields]\nid = \"string\"\n", FormatTOML},
		{"YAML", "fields:\n  id: string\n", FormatYAML},
		{"YAML With Equals In Value", "fields:\n  op: \"a = b\"\n", FormatYAML},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DetectFormat([]byte(tt.data)))
		})
	}
}

func TestDeclarationOrderIsPreserved(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{"YAML", `
fields:
  zeta: string
  alpha: integer
  mid: { type: number, min: 1 }
`},
		{"JSON", `{"fields": {"zeta": "string", "alpha": "integer", "mid": {"type": "number", "min": 1}}}`},
		{"TOML", `
description = "ordered"

[fields]
zeta = "string"
alpha = "integer"

[fields.mid]
type = "number"
min = 1
`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := compile(t, New(), "ordered", tt.doc)
			assert.Equal(t, []string{"zeta", "alpha", "mid"}, s.FieldNames())

			f, ok := s.Field("mid")
			require.True(t, ok)
			assert.Equal(t, schema.KindNumber, f.Type.Kind())
			assert.Equal(t, map[string]string{"mid": schema.CodeMinNumber},
				validate(t, s, map[string]any{"mid": 0}))
		})
	}
}

func TestFieldOptions(t *testing.T) {
	s := compile(t, New(), "user", `
fields:
  name: { type: string, required: true, min: 2, max: 10 }
  role: { type: string, allowedValues: [admin, user], default: user }
  nick: { type: string, nullable: false }
  tags: { arrayOf: string, timeout: 50ms, min: 1 }
  slow: { type: "[number]", timeout: 250 }
  extra: { type: any, format: uuid }
`)

	name, _ := s.Field("name")
	assert.True(t, name.Required)
	assert.Equal(t, 2, name.Min)

	tags, _ := s.Field("tags")
	assert.Equal(t, schema.KindArrayOf, tags.Type.Kind())
	assert.Equal(t, 50*time.Millisecond, tags.Timeout)

	slow, _ := s.Field("slow")
	assert.Equal(t, 250*time.Millisecond, slow.Timeout)
	assert.Equal(t, schema.KindArrayOf, slow.Type.Kind())

	extra, _ := s.Field("extra")
	assert.Equal(t, map[string]any{"format": "uuid"}, extra.Extra)

	assert.Equal(t, map[string]any{"role": "user"}, s.CreateModel(nil))

	msgs := validate(t, s, map[string]any{"role": "root", "nick": nil, "tags": []any{}})
	assert.Equal(t, map[string]string{
		"name": schema.CodeRequired,
		"role": schema.CodeNotAllowed,
		"nick": schema.CodeNoValue,
		"tags": schema.CodeMinArray,
	}, msgs)
}

func TestReferencesAcrossBundle(t *testing.T) {
	c := New()
	require.NoError(t, c.AddDefinition("shop", []byte(`
schemas:
  Order:
    description: A customer order
    fields:
      customer: Customer
      lines: "[Line]"
      total: { anyOf: [number, string] }
      shipping:
        fields:
          city: { type: string, required: true }
  Customer:
    fields:
      name: { type: string, required: true }
  Line:
    fields:
      qty: { type: integer, min: 1 }
`)))
	require.NoError(t, c.Compile())
	assert.Equal(t, []string{"Customer", "Line", "Order"}, c.Names())
	assert.Equal(t, "A customer order", c.Description("Order"))

	order, err := c.Get("Order")
	require.NoError(t, err)

	msgs := validate(t, order, map[string]any{
		"customer": map[string]any{},
		"lines":    []any{map[string]any{"qty": 2}, map[string]any{"qty": 0}},
		"total":    true,
		"shipping": map[string]any{},
	})
	assert.Equal(t, map[string]string{
		"customer":      schema.CodeInvalid,
		"customer.name": schema.CodeRequired,
		"lines":         schema.CodeInvalid,
		"lines.1.qty":   schema.CodeMinNumber,
		"total":         schema.CodeInvalidType,
		"shipping":      schema.CodeInvalid,
		"shipping.city": schema.CodeRequired,
	}, msgs)

	shipping, _ := order.Field("shipping")
	assert.Equal(t, "Order.shipping", shipping.Type.Schema().Name())

	customer, _ := c.Get("Customer")
	field, _ := order.Field("customer")
	assert.Same(t, customer, field.Type.Schema())
}

func TestReferenceToCodeSchema(t *testing.T) {
	c := New()
	point := schema.MustNew(schema.Decl{{Name: "x", Spec: "number"}}, schema.WithName("Point"))
	require.NoError(t, c.Add("Point", point))

	s := compile(t, c, "shape", "fields:\n  origin: Point\n  path: [Point]\n")
	origin, _ := s.Field("origin")
	assert.Same(t, point, origin.Type.Schema())
	path, _ := s.Field("path")
	assert.Same(t, point, path.Type.Elem().Schema())
}

func TestSchemaNamesShadowAliases(t *testing.T) {
	c := New()
	require.NoError(t, c.AddDefinition("bundle", []byte(`
schemas:
  Date:
    fields:
      day: integer
  Event:
    fields:
      when: Date
      at: date
`)))
	require.NoError(t, c.Compile())
	event, _ := c.Get("Event")
	when, _ := event.Field("when")
	at, _ := event.Field("at")
	assert.Equal(t, schema.KindSchema, when.Type.Kind())
	assert.Equal(t, schema.KindDate, at.Type.Kind())
}

func TestCompileErrors(t *testing.T) {
	tests := []struct {
		name string
		doc  string
		want error
	}{
		{"Unknown Type", "fields:\n  a: nope\n", schema.ErrUnknownType},
		{"Missing Fields", "description: empty\n", ErrInvalidDefinition},
		{"Fields Not A Mapping", "fields: [a, b]\n", ErrInvalidDefinition},
		{"Missing Type", "fields:\n  a: { required: true }\n", ErrInvalidDefinition},
		{"Exclusive Type Keys", "fields:\n  a: { type: string, anyOf: [number] }\n", ErrInvalidDefinition},
		{"Empty AnyOf", "fields:\n  a: { anyOf: [] }\n", schema.ErrEmptyComposite},
		{"Shorthand With Two Elements", "fields:\n  a: [string, number]\n", ErrInvalidDefinition},
		{"Unknown Custom", "fields:\n  a: { type: string, custom: nope }\n", ErrUnknownCustom},
		{"Bad Option", "fields:\n  a: { type: string, min: -1 }\n", schema.ErrInvalidOption},
		{"Bad Field Name", "fields:\n  \"1a\": string\n", schema.ErrInvalidFieldName},
		{"Duplicate Key", "fields:\n  a: string\n  a: number\n", ErrInvalidDefinition},
		{"Not A Mapping", "- a\n- b\n", ErrInvalidDefinition},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := New()
			err := c.AddDefinition("broken", []byte(tt.doc))
			if err == nil {
				err = c.Compile()
			}
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.want), "got %v", err)
			assert.Empty(t, c.Names())
		})
	}
}

func TestCycleDetection(t *testing.T) {
	c := New()
	require.NoError(t, c.AddDefinition("cycle", []byte(`
schemas:
  A:
    fields:
      b: B
  B:
    fields:
      items: "[C]"
  C:
    fields:
      a: { type: A }
`)))
	err := c.Compile()
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrCycle))
	assert.Contains(t, err.Error(), "A -> B -> C -> A")
	assert.Empty(t, c.Names(), "a failed compile adds nothing")
}

func TestDuplicateNames(t *testing.T) {
	c := New()
	require.NoError(t, c.AddDefinition("a", []byte("fields:\n  x: string\n")))
	err := c.AddDefinition("a", []byte("fields:\n  y: string\n"))
	assert.True(t, errors.Is(err, ErrDuplicateSchema))

	require.NoError(t, c.Compile())
	err = c.Add("a", schema.MustNew(nil))
	assert.True(t, errors.Is(err, ErrDuplicateSchema))
}

func TestGetUnknownSchema(t *testing.T) {
	_, err := New().Get("missing")
	assert.True(t, errors.Is(err, domain.ErrSchemaNotFound))

	_, err = New().Describe("missing")
	assert.True(t, errors.Is(err, domain.ErrSchemaNotFound))
}

func TestCustomValidators(t *testing.T) {
	customs := NewCustomRegistry()
	require.NoError(t, customs.Register("even", func(f *schema.Field, v any, vc *schema.Context) schema.Result {
		if n, ok := v.(int); ok && n%2 != 0 {
			return schema.Fail("odd")
		}
		return schema.Pass()
	}))
	assert.Error(t, customs.Register("even", func(*schema.Field, any, *schema.Context) schema.Result { return schema.Pass() }))
	assert.Error(t, customs.Register("", nil))
	assert.Equal(t, []string{"even"}, customs.Names())

	c := New(WithCustoms(customs))
	s := compile(t, c, "numbers", "fields:\n  n: { type: integer, custom: even }\n")

	assert.Empty(t, validate(t, s, map[string]any{"n": 2}))
	assert.Equal(t, map[string]string{"n": "odd"}, validate(t, s, map[string]any{"n": 3}))

	assert.True(t, customs.Unregister("even"))
	assert.Equal(t, map[string]string{"n": "odd"}, validate(t, s, map[string]any{"n": 3}),
		"compiled schemas keep their validators")
}

type recorder struct {
	events chan schema.ValidationEvent
}

func (r *recorder) OnValidated(e schema.ValidationEvent) { r.events <- e }

func TestCatalogOptionsReachSchemas(t *testing.T) {
	types := schema.NewTypeRegistry()
	require.NoError(t, types.RegisterAlias("email", schema.String))
	rec := &recorder{events: make(chan schema.ValidationEvent, 1)}

	c := New(WithTypeRegistry(types), WithObserver(rec))
	s := compile(t, c, "contact", "fields:\n  mail: email\n")
	assert.Equal(t, "contact", s.Name())

	validate(t, s, map[string]any{"mail": 1})
	select {
	case e := <-rec.events:
		assert.Equal(t, "contact", e.Schema)
		assert.False(t, e.Valid)
	case <-time.After(time.Second):
		t.Fatal("observer not notified")
	}

	err := New().AddDefinition("contact", []byte("fields:\n  mail: email\n"))
	require.NoError(t, err, "parsing does not resolve types")
}

func TestLoadFromSource(t *testing.T) {
	src := memory.NewSource(map[string]string{
		"customer": "fields:\n  name: string\n",
		"order":    `{"fields": {"customer": "customer", "total": "number"}}`,
	})
	c := New()
	require.NoError(t, c.Load(src))
	assert.Equal(t, []string{"customer", "order"}, c.Names())

	info, err := c.Describe("order")
	require.NoError(t, err)
	assert.Equal(t, "order", info.Name)
	require.Len(t, info.Fields, 2)
	require.NotNil(t, info.Fields[0].Nested)
	assert.Equal(t, "name", info.Fields[0].Nested.Fields[0].Name)
}
