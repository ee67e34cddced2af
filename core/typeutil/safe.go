// Package typeutil provides safe coercion helpers for map[string]any payloads.
//
// Message bodies arrive as untyped JSON objects; these helpers replace the
// scattered comma-ok assertions that otherwise accumulate around payload
// access. All lookups are total: a missing key or wrong type yields the
// zero value (or the caller's default), never a panic.
package typeutil

import "strings"

// SafeString extracts a string value from a payload.
func SafeString(m map[string]any, key string) string {
	return SafeStringDefault(m, key, "")
}

// SafeStringDefault extracts a string value, falling back to def.
func SafeStringDefault(m map[string]any, key, def string) string {
	if m == nil {
		return def
	}
	if v, ok := m[key].(string); ok {
		return v
	}
	return def
}

// SafeBool extracts a bool value, falling back to def.
func SafeBool(m map[string]any, key string, def bool) bool {
	if m == nil {
		return def
	}
	if v, ok := m[key].(bool); ok {
		return v
	}
	return def
}

// SafeFloat64 extracts a numeric value as float64. JSON numbers decode to
// float64, but int and int64 are accepted for values built in Go.
func SafeFloat64(m map[string]any, key string, def float64) float64 {
	if m == nil {
		return def
	}
	switch v := m[key].(type) {
	case float64:
		return v
	case float32:
		return float64(v)
	case int:
		return float64(v)
	case int64:
		return float64(v)
	}
	return def
}

// SafeInt extracts a numeric value as int, truncating JSON floats.
func SafeInt(m map[string]any, key string, def int) int {
	if m == nil {
		return def
	}
	switch v := m[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	}
	return def
}

// SafeMapStringAny extracts a nested object. Returns nil when the key is
// absent or holds a non-object value.
func SafeMapStringAny(m map[string]any, key string) map[string]any {
	if m == nil {
		return nil
	}
	if v, ok := m[key].(map[string]any); ok {
		return v
	}
	return nil
}

// SafeStringSlice extracts a slice of strings. Accepts both []string and
// the []any form produced by JSON decoding; non-string elements are skipped.
func SafeStringSlice(m map[string]any, key string) []string {
	if m == nil {
		return nil
	}
	switch v := m[key].(type) {
	case []string:
		out := make([]string, len(v))
		copy(out, v)
		return out
	case []any:
		out := make([]string, 0, len(v))
		for _, e := range v {
			if s, ok := e.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}

// GetNestedValue walks a dotted path ("order.customer.id") through nested
// objects. The second return reports whether the full path resolved.
func GetNestedValue(m map[string]any, path string) (any, bool) {
	if m == nil || path == "" {
		return nil, false
	}
	parts := strings.Split(path, ".")
	current := any(m)
	for _, part := range parts {
		obj, ok := current.(map[string]any)
		if !ok {
			return nil, false
		}
		current, ok = obj[part]
		if !ok {
			return nil, false
		}
	}
	return current, true
}

// GetNestedString walks a dotted path and coerces the leaf to a string.
func GetNestedString(m map[string]any, path, def string) string {
	v, ok := GetNestedValue(m, path)
	if !ok {
		return def
	}
	if s, ok := v.(string); ok {
		return s
	}
	return def
}

// DeepCopyMap returns a deep copy of a payload. Nested maps and slices are
// cloned; scalar values are shared (they are immutable).
func DeepCopyMap(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = deepCopyValue(v)
	}
	return out
}

func deepCopyValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		return DeepCopyMap(t)
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = deepCopyValue(e)
		}
		return out
	default:
		return v
	}
}
