package catalog

import (
	"bytes"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// Format is the syntax of a raw definition.
type Format string

const (
	FormatYAML Format = "yaml"
	FormatJSON Format = "json"
	FormatTOML Format = "toml"
)

var tomlAssignment = regexp.MustCompile(`(?m)^\s*[A-Za-z0-9_."'-]+\s*=`)

// DetectFormat guesses the syntax of data. JSON is recognized by its leading
// brace, TOML by key = value assignments; everything else is read as YAML.
func DetectFormat(data []byte) Format {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '{' {
		return FormatJSON
	}
	if tomlAssignment.Match(data) {
		return FormatTOML
	}
	return FormatYAML
}

// mapping is a string-keyed map that remembers key order. Field order in a
// definition is the declaration order of the schema.
type mapping struct {
	keys   []string
	values map[string]any
}

func newMapping() *mapping {
	return &mapping{values: make(map[string]any)}
}

func (m *mapping) set(key string, v any) {
	if _, ok := m.values[key]; !ok {
		m.keys = append(m.keys, key)
	}
	m.values[key] = v
}

func (m *mapping) get(key string) (any, bool) {
	v, ok := m.values[key]
	return v, ok
}

func (m *mapping) has(key string) bool {
	_, ok := m.values[key]
	return ok
}

// plain converts m to nested plain maps, leaving out the given keys at the
// top level.
func (m *mapping) plain(skip ...string) map[string]any {
	out := make(map[string]any, len(m.keys))
	for _, k := range m.keys {
		if contains(skip, k) {
			continue
		}
		out[k] = plainValue(m.values[k])
	}
	return out
}

func plainValue(v any) any {
	switch x := v.(type) {
	case *mapping:
		return x.plain()
	case []any:
		out := make([]any, len(x))
		for i, e := range x {
			out[i] = plainValue(e)
		}
		return out
	}
	return v
}

// parse decodes a raw definition into ordered values.
func parse(data []byte) (*mapping, error) {
	var root any
	var err error
	switch DetectFormat(data) {
	case FormatTOML:
		root, err = parseTOML(data)
	default:
		root, err = parseYAML(data)
	}
	if err != nil {
		return nil, err
	}
	if root == nil {
		return newMapping(), nil
	}
	m, ok := root.(*mapping)
	if !ok {
		return nil, fmt.Errorf("%w: document must be a mapping, got %T", ErrInvalidDefinition, root)
	}
	return m, nil
}

func parseYAML(data []byte) (any, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidDefinition, err)
	}
	return fromYAML(&doc)
}

func fromYAML(n *yaml.Node) (any, error) {
	switch n.Kind {
	case 0:
		return nil, nil
	case yaml.DocumentNode:
		if len(n.Content) == 0 {
			return nil, nil
		}
		return fromYAML(n.Content[0])
	case yaml.AliasNode:
		return fromYAML(n.Alias)
	case yaml.MappingNode:
		m := newMapping()
		for i := 0; i+1 < len(n.Content); i += 2 {
			key := n.Content[i].Value
			if m.has(key) {
				return nil, fmt.Errorf("%w: line %d: duplicate key %q", ErrInvalidDefinition, n.Content[i].Line, key)
			}
			v, err := fromYAML(n.Content[i+1])
			if err != nil {
				return nil, err
			}
			m.set(key, v)
		}
		return m, nil
	case yaml.SequenceNode:
		out := make([]any, 0, len(n.Content))
		for _, c := range n.Content {
			v, err := fromYAML(c)
			if err != nil {
				return nil, err
			}
			out = append(out, v)
		}
		return out, nil
	default:
		var v any
		if err := n.Decode(&v); err != nil {
			return nil, fmt.Errorf("%w: line %d: %v", ErrInvalidDefinition, n.Line, err)
		}
		return v, nil
	}
}

func parseTOML(data []byte) (any, error) {
	var raw map[string]any
	md, err := toml.Decode(string(data), &raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidDefinition, err)
	}
	order := make(map[string][]string)
	for _, key := range md.Keys() {
		if len(key) == 0 {
			continue
		}
		parent := strings.Join(key[:len(key)-1], "\x00")
		child := key[len(key)-1]
		if !contains(order[parent], child) {
			order[parent] = append(order[parent], child)
		}
	}
	return fromTOML(raw, "", order), nil
}

func fromTOML(v any, path string, order map[string][]string) any {
	switch x := v.(type) {
	case map[string]any:
		m := newMapping()
		keys := append([]string(nil), order[path]...)
		var rest []string
		for k := range x {
			if !contains(keys, k) {
				rest = append(rest, k)
			}
		}
		sort.Strings(rest)
		for _, k := range append(keys, rest...) {
			val, ok := x[k]
			if !ok {
				continue
			}
			child := k
			if path != "" {
				child = path + "\x00" + k
			}
			m.set(k, fromTOML(val, child, order))
		}
		return m
	case []map[string]any:
		out := make([]any, len(x))
		for i, e := range x {
			out[i] = fromTOML(e, "", order)
		}
		return out
	case []any:
		out := make([]any, len(x))
		for i, e := range x {
			out[i] = fromTOML(e, "", order)
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
