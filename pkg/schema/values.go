package schema

import (
	"encoding/json"
	"math"
	"reflect"
	"time"
)

type unsetValue struct{}

func (unsetValue) String() string { return "<unset>" }

// Unset stands for a field that is absent from the data under validation.
// A nil value is an explicit null and is handled by the nullable stage.
var Unset any = unsetValue{}

// IsUnset reports whether v is the Unset sentinel.
func IsUnset(v any) bool {
	_, ok := v.(unsetValue)
	return ok
}

// Getter is implemented by model-like objects that expose their fields through
// an accessor instead of being plain maps.
type Getter interface {
	Get(key string) (any, bool)
}

// Mapping is a Getter that can also enumerate its keys. Values implementing
// Mapping are accepted wherever a map[string]any is.
type Mapping interface {
	Getter
	Keys() []string
}

// dateLayouts are tried in order when a date is given as a string.
var dateLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02",
}

func toFloat(v any) (float64, bool) {
	var n float64
	switch x := v.(type) {
	case int:
		n = float64(x)
	case int8:
		n = float64(x)
	case int16:
		n = float64(x)
	case int32:
		n = float64(x)
	case int64:
		n = float64(x)
	case uint:
		n = float64(x)
	case uint8:
		n = float64(x)
	case uint16:
		n = float64(x)
	case uint32:
		n = float64(x)
	case uint64:
		n = float64(x)
	case float32:
		n = float64(x)
	case float64:
		n = x
	case json.Number:
		f, err := x.Float64()
		if err != nil {
			return 0, false
		}
		n = f
	default:
		return 0, false
	}
	if math.IsNaN(n) {
		return 0, false
	}
	return n, true
}

func isIntegral(n float64) bool {
	return !math.IsInf(n, 0) && n == math.Trunc(n)
}

func asSlice(v any) (reflect.Value, bool) {
	if v == nil {
		return reflect.Value{}, false
	}
	switch v.(type) {
	case []byte, json.RawMessage:
		return reflect.Value{}, false
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return reflect.Value{}, false
	}
	return rv, true
}

func isMapping(v any) bool {
	switch v.(type) {
	case map[string]any, Mapping:
		return true
	case nil:
		return false
	}
	rv := reflect.ValueOf(v)
	return rv.Kind() == reflect.Map && rv.Type().Key().Kind() == reflect.String
}

// toMap converts any accepted mapping into a map[string]any. Plain maps are
// returned as is.
func toMap(v any) (map[string]any, bool) {
	switch m := v.(type) {
	case map[string]any:
		return m, true
	case Mapping:
		keys := m.Keys()
		out := make(map[string]any, len(keys))
		for _, k := range keys {
			if val, ok := m.Get(k); ok {
				out[k] = val
			}
		}
		return out, true
	case nil:
		return nil, false
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Map || rv.Type().Key().Kind() != reflect.String {
		return nil, false
	}
	out := make(map[string]any, rv.Len())
	iter := rv.MapRange()
	for iter.Next() {
		out[iter.Key().String()] = iter.Value().Interface()
	}
	return out, true
}

func toTime(v any) (time.Time, bool) {
	t, code := asDate(v)
	return t, code == ""
}

// asDate returns invalidType for values that cannot denote a date at all and
// invalidDate for values that try to but are malformed.
func asDate(v any) (time.Time, string) {
	switch x := v.(type) {
	case time.Time:
		if x.IsZero() {
			return time.Time{}, CodeInvalidDate
		}
		return x, ""
	case *time.Time:
		if x == nil || x.IsZero() {
			return time.Time{}, CodeInvalidDate
		}
		return *x, ""
	case string:
		for _, layout := range dateLayouts {
			if t, err := time.Parse(layout, x); err == nil {
				return t, ""
			}
		}
		return time.Time{}, CodeInvalidDate
	}
	return time.Time{}, CodeInvalidType
}

func equalValues(a, b any) bool {
	if fa, ok := toFloat(a); ok {
		fb, ok := toFloat(b)
		return ok && fa == fb
	}
	if ta, ok := a.(time.Time); ok {
		tb, ok := toTime(b)
		return ok && ta.Equal(tb)
	}
	return reflect.DeepEqual(a, b)
}
