// Package query holds the request-parameter helpers shared by the catalog
// endpoints: operator-key sanitization and field projection.
package query

import (
	"net/url"
	"strings"
)

// ReservedPrefix marks keys the storage layers could interpret as operators.
const ReservedPrefix = "$"

// IsReserved reports whether key starts with the reserved operator prefix.
func IsReserved(key string) bool {
	return strings.HasPrefix(key, ReservedPrefix)
}

// Sanitize returns a copy of v with every reserved key removed at every
// nesting level. Maps are rebuilt, sequences are walked element by element and
// any other value is returned as is. The input is never modified.
func Sanitize(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			if IsReserved(k) {
				continue
			}
			out[k] = Sanitize(val)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, val := range t {
			out[i] = Sanitize(val)
		}
		return out
	case []map[string]any:
		out := make([]map[string]any, len(t))
		for i, val := range t {
			out[i] = Sanitize(val).(map[string]any)
		}
		return out
	case map[string]string:
		out := make(map[string]string, len(t))
		for k, val := range t {
			if !IsReserved(k) {
				out[k] = val
			}
		}
		return out
	case url.Values:
		return SanitizeValues(t)
	case map[string][]string:
		return map[string][]string(SanitizeValues(url.Values(t)))
	default:
		return v
	}
}

// SanitizeValues is the typed form of Sanitize for query strings.
func SanitizeValues(values url.Values) url.Values {
	out := make(url.Values, len(values))
	for k, vs := range values {
		if IsReserved(k) {
			continue
		}
		out[k] = append([]string(nil), vs...)
	}
	return out
}
