package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/glamour"

	"github.com/aretw0/vigil/pkg/domain"
)

// NewRenderer returns a function that renders markdown using glamour.
// An empty style detects light or dark backgrounds automatically.
func NewRenderer(style string) (func(string) (string, error), error) {
	opt := glamour.WithAutoStyle()
	if style != "" {
		opt = glamour.WithStandardStyle(style)
	}
	r, err := glamour.NewTermRenderer(opt)
	if err != nil {
		return nil, fmt.Errorf("failed to create renderer: %w", err)
	}
	return r.Render, nil
}

// NewReportRenderer renders reports as styled markdown.
func NewReportRenderer(style string) (func(*domain.Report) (string, error), error) {
	render, err := NewRenderer(style)
	if err != nil {
		return nil, err
	}
	return func(report *domain.Report) (string, error) {
		return render(ReportMarkdown(report))
	}, nil
}

// ReportMarkdown formats a report as a markdown section with a table of
// failing paths.
func ReportMarkdown(report *domain.Report) string {
	var b strings.Builder
	status := "✅ valid"
	if !report.Valid {
		status = "❌ invalid"
	}
	fmt.Fprintf(&b, "## %s: %s\n\n", report.Schema, status)
	fmt.Fprintf(&b, "Report `%s` (%s)\n", report.ID, report.Duration)

	issues := report.Issues()
	if len(issues) == 0 {
		return b.String()
	}
	b.WriteString("\n| Path | Code |\n|---|---|\n")
	for _, issue := range issues {
		fmt.Fprintf(&b, "| `%s` | %s |\n", issue.Path, issue.Code)
	}
	return b.String()
}

// SchemaMarkdown formats a schema description as a markdown table.
func SchemaMarkdown(info *domain.SchemaInfo) string {
	var b strings.Builder
	fmt.Fprintf(&b, "## %s\n\n", info.Name)
	b.WriteString("| Field | Type | Required | Nullable | Bounds |\n|---|---|---|---|---|\n")
	for _, f := range info.Fields {
		fmt.Fprintf(&b, "| %s | `%s` | %s | %s | %s |\n",
			f.Name, f.Type, yesNo(f.Required), yesNo(f.Nullable), bounds(f))
	}
	return b.String()
}

func yesNo(v bool) string {
	if v {
		return "yes"
	}
	return ""
}

func bounds(f domain.FieldInfo) string {
	switch {
	case f.Min != nil && f.Max != nil:
		return fmt.Sprintf("%v..%v", f.Min, f.Max)
	case f.Min != nil:
		return fmt.Sprintf(">= %v", f.Min)
	case f.Max != nil:
		return fmt.Sprintf("<= %v", f.Max)
	}
	return ""
}
