package graph_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/aretw0/vigil/internal/presentation/graph"
	"github.com/aretw0/vigil/pkg/domain"
)

var (
	customer = domain.SchemaInfo{Name: "Customer", Fields: []domain.FieldInfo{
		{Name: "name", Type: "string", Kind: "string", Required: true},
	}}
	line = domain.SchemaInfo{Name: "OrderLine", Fields: []domain.FieldInfo{
		{Name: "qty", Type: "integer", Kind: "integer"},
	}}
	address = domain.SchemaInfo{Name: "Order.address", Fields: []domain.FieldInfo{
		{Name: "city", Type: "string", Kind: "string"},
	}}
	order = domain.SchemaInfo{Name: "Order", Fields: []domain.FieldInfo{
		{Name: "id", Type: "string", Kind: "string", Required: true},
		{Name: "customer", Type: "Customer", Kind: "schema", Nested: &customer},
		{Name: "lines", Type: "[OrderLine]", Kind: "arrayOf", Elem: "OrderLine", Nested: &line},
		{Name: "address", Type: "Order.address", Kind: "schema", Nested: &address},
		{Name: "payer", Type: "anyOf(Customer, string)", Kind: "anyOf", Members: []string{"Customer", "string"}},
	}}
)

func TestGenerateMermaid(t *testing.T) {
	tests := []struct {
		name     string
		schemas  []domain.SchemaInfo
		contains []string
		excludes []string
	}{
		{
			name:    "Schema Node Lists Fields",
			schemas: []domain.SchemaInfo{customer},
			contains: []string{
				"Customer[\"Customer<br/>name: string*\"]",
			},
		},
		{
			name:    "References",
			schemas: []domain.SchemaInfo{order, customer},
			contains: []string{
				"Order -- \"customer\" --> Customer",
				"Order -- \"lines[]\" --> OrderLine",
				"Order -- \"address\" --> Order_address",
				"Order -. \"payer\" .-> Customer",
				"Order_address[[\"Order.address<br/>city: string\"]]",
			},
			excludes: []string{"Order -. \"payer\" .-> string"},
		},
		{
			name:    "ID Sanitization",
			schemas: []domain.SchemaInfo{{Name: "my-schema v2"}},
			contains: []string{
				"my_schema_v2[\"my-schema v2\"]",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := graph.GenerateMermaid(tt.schemas, nil)
			assert.True(t, strings.HasPrefix(got, "graph TD\n"))
			for _, want := range tt.contains {
				assert.Contains(t, got, want)
			}
			for _, unwanted := range tt.excludes {
				assert.NotContains(t, got, unwanted)
			}
		})
	}
}

func TestGenerateMermaid_NodesOnce(t *testing.T) {
	got := graph.GenerateMermaid([]domain.SchemaInfo{order, customer, line}, nil)
	assert.Equal(t, 1, strings.Count(got, "Customer[\""))
	assert.Equal(t, 1, strings.Count(got, "OrderLine[\""))
}

func TestOverlayFromReport(t *testing.T) {
	report := &domain.Report{
		Schema: "Order",
		Messages: map[string]string{
			"lines":         "invalid",
			"lines.2.qty":   "minNumber",
			"customer":      "invalid",
			"customer.name": "required",
		},
	}
	overlay := graph.OverlayFromReport(order, report)
	assert.Equal(t, "Order", overlay.CurrentSchema)
	assert.Equal(t, []string{"Customer", "Order", "OrderLine"}, overlay.FailedSchemas)

	got := graph.GenerateMermaid([]domain.SchemaInfo{order}, overlay)
	assert.Contains(t, got, "classDef failed")
	assert.Contains(t, got, "class Order current;")
	assert.Contains(t, got, "class OrderLine failed;")
	assert.NotContains(t, got, "class Order_address failed;")

	valid := graph.OverlayFromReport(order, &domain.Report{Schema: "Order", Valid: true})
	assert.Empty(t, valid.FailedSchemas)
}
