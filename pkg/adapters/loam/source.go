package loam

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/aretw0/loam"
	"gopkg.in/yaml.v3"

	"github.com/aretw0/vigil/pkg/domain"
)

// Source adapts a Loam repository to the ports.SchemaSource interface. Each
// document is one schema: the frontmatter carries the fields and the body
// becomes the description.
type Source struct {
	Repo *loam.TypedRepository[SchemaMetadata]
}

// New creates a new Loam adapter.
func New(repo *loam.TypedRepository[SchemaMetadata]) *Source {
	return &Source{
		Repo: repo,
	}
}

// GetDefinition renders the document of name as a YAML definition.
func (s *Source) GetDefinition(name string) ([]byte, error) {
	ctx := context.Background()

	var meta SchemaMetadata
	var content string
	doc, err := s.Repo.Get(ctx, name)
	if err == nil && (doc.Data.Name == "" || doc.Data.Name == name) {
		meta, content = doc.Data, doc.Content
	} else {
		// The name may come from metadata rather than the file name.
		meta, content, err = s.find(ctx, name)
		if err != nil {
			return nil, err
		}
	}

	description := meta.Description
	if description == "" {
		description = strings.TrimSpace(content)
	}
	return render(description, meta.Fields, meta.Order)
}

func (s *Source) find(ctx context.Context, name string) (SchemaMetadata, string, error) {
	docs, err := s.Repo.List(ctx)
	if err != nil {
		return SchemaMetadata{}, "", fmt.Errorf("loam list failed: %w", err)
	}
	for _, doc := range docs {
		if schemaName(doc.ID, doc.Data) == name {
			return doc.Data, doc.Content, nil
		}
	}
	return SchemaMetadata{}, "", fmt.Errorf("%w: %s", domain.ErrDefinitionNotFound, name)
}

// ListDefinitions lists the schema names of the repository, sorted.
func (s *Source) ListDefinitions() ([]string, error) {
	ctx := context.Background()
	docs, err := s.Repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("loam list failed: %w", err)
	}

	seen := make(map[string]string)
	names := make([]string, 0, len(docs))
	for _, doc := range docs {
		name := schemaName(doc.ID, doc.Data)
		if existing, ok := seen[name]; ok {
			return nil, fmt.Errorf("collision detected: schema '%s' is defined in both '%s' and '%s'", name, existing, doc.ID)
		}
		seen[name] = doc.ID
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

// Watch emits the ID of every changed document until ctx is done.
func (s *Source) Watch(ctx context.Context) (<-chan string, error) {
	events, err := s.Repo.Watch(ctx, "**/*.{md,json,yaml,yml}")
	if err != nil {
		return nil, fmt.Errorf("failed to start loam watcher: %w", err)
	}

	ch := make(chan string, 1)
	go func() {
		defer close(ch)
		for {
			select {
			case <-ctx.Done():
				return
			case evt, ok := <-events:
				if !ok {
					return
				}
				select {
				case ch <- trimExtension(evt.ID):
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return ch, nil
}

func schemaName(id string, meta SchemaMetadata) string {
	if meta.Name != "" {
		return meta.Name
	}
	return trimExtension(id)
}

func trimExtension(id string) string {
	ext := filepath.Ext(id)
	if ext != "" {
		return filepath.ToSlash(strings.TrimSuffix(id, ext))
	}
	return filepath.ToSlash(id)
}

// render writes the definition with fields in declaration order.
func render(description string, fields map[string]any, order []string) ([]byte, error) {
	if fields == nil {
		return nil, errors.New("schema document has no fields")
	}

	keys := make([]string, 0, len(fields))
	for _, k := range order {
		if _, ok := fields[k]; ok && !contains(keys, k) {
			keys = append(keys, k)
		}
	}
	var rest []string
	for k := range fields {
		if !contains(keys, k) {
			rest = append(rest, k)
		}
	}
	sort.Strings(rest)
	keys = append(keys, rest...)

	body := &yaml.Node{Kind: yaml.MappingNode}
	for _, k := range keys {
		var value yaml.Node
		if err := value.Encode(normalize(fields[k])); err != nil {
			return nil, fmt.Errorf("failed to encode field %s: %w", k, err)
		}
		body.Content = append(body.Content, &yaml.Node{Kind: yaml.ScalarNode, Value: k}, &value)
	}

	root := &yaml.Node{Kind: yaml.MappingNode}
	if description != "" {
		root.Content = append(root.Content,
			&yaml.Node{Kind: yaml.ScalarNode, Value: "description"},
			&yaml.Node{Kind: yaml.ScalarNode, Value: description},
		)
	}
	root.Content = append(root.Content, &yaml.Node{Kind: yaml.ScalarNode, Value: "fields"}, body)

	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(root); err != nil {
		return nil, fmt.Errorf("failed to encode definition: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// normalize turns the json.Number values of strict mode back into plain
// numbers.
func normalize(v any) any {
	switch x := v.(type) {
	case json.Number:
		if i, err := x.Int64(); err == nil {
			return i
		}
		f, _ := x.Float64()
		return f
	case map[string]any:
		out := make(map[string]any, len(x))
		for k, e := range x {
			out[k] = normalize(e)
		}
		return out
	case []any:
		out := make([]any, len(x))
		for i, e := range x {
			out[i] = normalize(e)
		}
		return out
	}
	return v
}

func contains(list []string, s string) bool {
	for _, e := range list {
		if e == s {
			return true
		}
	}
	return false
}
