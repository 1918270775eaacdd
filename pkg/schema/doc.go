// Package schema validates structured data against declarative field
// definitions and reports path-addressable error codes.
//
// A schema is declared once as an ordered list of fields. Each field is
// compiled into a chain of stages (required, nullable, type-and-bounds,
// user stages, custom) that wrap each other outer to inner:
//
//	item := schema.MustNew(schema.Decl{
//	    {Name: "sku", Spec: schema.FieldSpec{Type: "string", Required: true}},
//	    {Name: "qty", Spec: schema.FieldSpec{Type: "integer", Min: 1}},
//	})
//
//	order := schema.MustNew(schema.Decl{
//	    {Name: "id", Spec: "string"},
//	    {Name: "items", Spec: []any{item}},
//	    {Name: "ref", Spec: schema.AnyOf("string", "number")},
//	})
//
// Validation state lives in a Context. Validate always completes
// asynchronously; wait on the returned Completion before reading messages:
//
//	vc := order.CreateContext()
//	if _, err := vc.Validate(data).Wait(ctx); err != nil {
//	    return err
//	}
//	for path, code := range vc.GetMessages() {
//	    fmt.Println(path, code) // e.g. "items" invalid, "items.0.qty" minNumber
//	}
//
// Nested schemas report a single "invalid" code at the field holding them,
// while their own messages are copied under "<field>.<path>".
//
// Custom validators may return a pending Result built with Async. A failing
// or panicking asynchronous check is reported as the "error" code.
//
// Declaration mistakes (unknown types, bad field names, empty composites)
// surface as *ConfigError values when the schema is built. They are never
// reported as validation messages.
package schema
