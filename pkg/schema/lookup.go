package schema

import (
	"encoding/json"
	"reflect"
	"strconv"
	"strings"

	"github.com/tidwall/gjson"
)

// FieldValue is the outcome of a path lookup.
type FieldValue struct {
	Exists bool
	Value  any
}

// Lookup resolves a dot-separated path against root. Maps, Getter models,
// slices (numeric segments) and raw JSON documents are traversed; a missing
// segment yields a FieldValue that does not exist.
func Lookup(root any, path string) FieldValue {
	return lookup(root, path)
}

func lookup(root any, path string) FieldValue {
	if path == "" {
		return FieldValue{Exists: true, Value: root}
	}
	segments := strings.Split(path, ".")
	cur := root
	for i, seg := range segments {
		switch v := cur.(type) {
		case json.RawMessage:
			return lookupJSON(v, segments[i:])
		case []byte:
			return lookupJSON(v, segments[i:])
		case map[string]any:
			next, ok := v[seg]
			if !ok {
				return FieldValue{}
			}
			cur = next
		case Getter:
			next, ok := v.Get(seg)
			if !ok {
				return FieldValue{}
			}
			cur = next
		default:
			next, ok := reflectSegment(cur, seg)
			if !ok {
				return FieldValue{}
			}
			cur = next
		}
	}
	return FieldValue{Exists: true, Value: cur}
}

func reflectSegment(cur any, seg string) (any, bool) {
	if cur == nil {
		return nil, false
	}
	rv := reflect.ValueOf(cur)
	switch rv.Kind() {
	case reflect.Map:
		if rv.Type().Key().Kind() != reflect.String {
			return nil, false
		}
		val := rv.MapIndex(reflect.ValueOf(seg).Convert(rv.Type().Key()))
		if !val.IsValid() {
			return nil, false
		}
		return val.Interface(), true
	case reflect.Slice, reflect.Array:
		idx, err := strconv.Atoi(seg)
		if err != nil || idx < 0 || idx >= rv.Len() {
			return nil, false
		}
		return rv.Index(idx).Interface(), true
	}
	return nil, false
}

func lookupJSON(raw []byte, segments []string) FieldValue {
	escaped := make([]string, len(segments))
	for i, seg := range segments {
		escaped[i] = escapeGJSON(seg)
	}
	res := gjson.GetBytes(raw, strings.Join(escaped, "."))
	if !res.Exists() {
		return FieldValue{}
	}
	return FieldValue{Exists: true, Value: res.Value()}
}

// escapeGJSON escapes the characters gjson treats as path syntax.
func escapeGJSON(seg string) string {
	var sb strings.Builder
	for _, r := range seg {
		switch r {
		case '*', '?', '|', '#', '@', '!', '=', '<', '>', '%', '\\':
			sb.WriteByte('\\')
		}
		sb.WriteRune(r)
	}
	return sb.String()
}
