package graph

import (
	"fmt"
	"sort"
	"strings"

	"github.com/aretw0/vigil/pkg/domain"
)

// GraphOverlay contains report data to visualize on the graph.
type GraphOverlay struct {
	FailedSchemas []string
	CurrentSchema string
}

// GenerateMermaid produces a Mermaid flowchart of schemas and the references
// between them. Shapes:
// - Catalog schema: [Rectangle] listing its fields
// - Inline schema (named Parent.field): [[Subroutine]]
// Edges are labelled with the field name; array-of references end in "[]" and
// any-of members use dotted arrows.
func GenerateMermaid(schemas []domain.SchemaInfo, overlay *GraphOverlay) string {
	var sb strings.Builder
	sb.WriteString("graph TD\n")

	seen := make(map[string]bool)
	var emit func(info domain.SchemaInfo)
	emit = func(info domain.SchemaInfo) {
		if seen[info.Name] {
			return
		}
		seen[info.Name] = true
		safeID := sanitizeMermaidID(info.Name)

		opener, closer := "[", "]"
		if strings.Contains(info.Name, ".") {
			opener, closer = "[[", "]]"
		}
		sb.WriteString(fmt.Sprintf("    %s%s\"%s\"%s\n", safeID, opener, nodeLabel(info), closer))

		var nested []domain.SchemaInfo
		for _, f := range info.Fields {
			switch {
			case f.Nested != nil:
				label := f.Name
				if f.Kind == "arrayOf" {
					label += "[]"
				}
				sb.WriteString(fmt.Sprintf("    %s -- \"%s\" --> %s\n", safeID, label, sanitizeMermaidID(f.Nested.Name)))
				nested = append(nested, *f.Nested)
			case f.Kind == "anyOf":
				for _, m := range f.Members {
					if isSchemaName(m, schemas) {
						sb.WriteString(fmt.Sprintf("    %s -. \"%s\" .-> %s\n", safeID, f.Name, sanitizeMermaidID(m)))
					}
				}
			}
		}
		for _, n := range nested {
			emit(n)
		}
	}
	for _, info := range schemas {
		emit(info)
	}

	if overlay != nil {
		sb.WriteString("\n    %% Overlay Styles\n")
		// Force black text (color:#000) for high-contrast on light backgrounds, regardless of theme (Light/Dark)
		sb.WriteString("    classDef failed fill:#ffebee,stroke:#c62828,stroke-width:2px,color:#000;\n")
		sb.WriteString("    classDef current fill:#e1f5fe,stroke:#01579b,stroke-width:4px,color:#000;\n")

		if overlay.CurrentSchema != "" {
			sb.WriteString(fmt.Sprintf("    class %s current;\n", sanitizeMermaidID(overlay.CurrentSchema)))
		}
		failed := make(map[string]bool)
		for _, name := range overlay.FailedSchemas {
			safeID := sanitizeMermaidID(name)
			if !failed[safeID] && safeID != "" && seen[name] {
				failed[safeID] = true
				sb.WriteString(fmt.Sprintf("    class %s failed;\n", safeID))
			}
		}
	}

	return sb.String()
}

// OverlayFromReport marks the schemas along every failing path of report.
// info must describe report.Schema.
func OverlayFromReport(info domain.SchemaInfo, report *domain.Report) *GraphOverlay {
	overlay := &GraphOverlay{CurrentSchema: info.Name}
	if report == nil || report.Valid {
		return overlay
	}

	failed := map[string]bool{info.Name: true}
	for path := range report.Messages {
		current := &info
		segments := strings.Split(path, ".")
		for i := 0; i < len(segments) && current != nil; i++ {
			field := findField(current, segments[i])
			if field == nil || field.Nested == nil || i == len(segments)-1 {
				break
			}
			if field.Kind == "arrayOf" {
				i++ // element index
			}
			current = field.Nested
			failed[current.Name] = true
		}
	}

	for name := range failed {
		overlay.FailedSchemas = append(overlay.FailedSchemas, name)
	}
	sort.Strings(overlay.FailedSchemas)
	return overlay
}

func nodeLabel(info domain.SchemaInfo) string {
	var b strings.Builder
	b.WriteString(info.Name)
	for _, f := range info.Fields {
		b.WriteString("<br/>")
		b.WriteString(f.Name)
		b.WriteString(": ")
		b.WriteString(strings.ReplaceAll(f.Type, "\"", "'"))
		if f.Required {
			b.WriteString("*")
		}
	}
	return b.String()
}

func findField(info *domain.SchemaInfo, name string) *domain.FieldInfo {
	for i := range info.Fields {
		if info.Fields[i].Name == name {
			return &info.Fields[i]
		}
	}
	return nil
}

func isSchemaName(name string, schemas []domain.SchemaInfo) bool {
	for _, s := range schemas {
		if s.Name == name {
			return true
		}
	}
	return false
}

func sanitizeMermaidID(id string) string {
	s := strings.ReplaceAll(id, ".", "_")
	s = strings.ReplaceAll(s, "-", "_")
	s = strings.ReplaceAll(s, "/", "_")
	s = strings.ReplaceAll(s, "\\", "_")
	s = strings.ReplaceAll(s, " ", "_")
	return s
}
