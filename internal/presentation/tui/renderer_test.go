package tui

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/vigil/pkg/domain"
)

func TestReportMarkdown(t *testing.T) {
	report := &domain.Report{
		ID:       "r1",
		Schema:   "order",
		Messages: map[string]string{"total": "minNumber", "id": "required"},
		Duration: 2 * time.Millisecond,
	}
	md := ReportMarkdown(report)
	assert.Contains(t, md, "## order: ❌ invalid")
	assert.Contains(t, md, "Report `r1` (2ms)")
	assert.Less(t, strings.Index(md, "`id`"), strings.Index(md, "`total`"), "issues are sorted by path")

	valid := ReportMarkdown(&domain.Report{ID: "r2", Schema: "order", Valid: true})
	assert.Contains(t, valid, "✅ valid")
	assert.NotContains(t, valid, "| Path |")
}

func TestSchemaMarkdown(t *testing.T) {
	md := SchemaMarkdown(&domain.SchemaInfo{Name: "user", Fields: []domain.FieldInfo{
		{Name: "name", Type: "string", Required: true, Min: 1, Max: 20},
		{Name: "age", Type: "integer", Nullable: true, Min: 0},
	}})
	assert.Contains(t, md, "| name | `string` | yes |  | 1..20 |")
	assert.Contains(t, md, "| age | `integer` |  | yes | >= 0 |")
}

func TestReportRenderer(t *testing.T) {
	render, err := NewReportRenderer("notty")
	require.NoError(t, err)
	out, err := render(&domain.Report{ID: "r1", Schema: "order", Messages: map[string]string{"id": "required"}})
	require.NoError(t, err)
	assert.Contains(t, out, "order")
	assert.Contains(t, out, "required")
}

func TestPrintBanner(t *testing.T) {
	var buf bytes.Buffer
	PrintBanner(&buf)
	assert.Contains(t, buf.String(), "|___/")
}
