package query

import (
	"net/url"
	"sort"
	"strings"
)

// FieldsParam is the query parameter carrying the requested field list.
const FieldsParam = "fields"

// Projection turns a field list into an inclusion map. It accepts a single
// comma-separated string, a []string or a []any of strings. Names are trimmed,
// blanks are dropped and duplicates collapse to one entry. An empty result
// means the caller applies no projection.
func Projection(fields any) map[string]bool {
	out := make(map[string]bool)

	add := func(s string) {
		for _, name := range strings.Split(s, ",") {
			if name = strings.TrimSpace(name); name != "" {
				out[name] = true
			}
		}
	}

	switch t := fields.(type) {
	case string:
		add(t)
	case []string:
		for _, s := range t {
			add(s)
		}
	case []any:
		for _, v := range t {
			if s, ok := v.(string); ok {
				add(s)
			}
		}
	}

	return out
}

// ProjectionFromValues reads every `fields` parameter, whether repeated or
// comma-separated.
func ProjectionFromValues(values url.Values) map[string]bool {
	return Projection(values[FieldsParam])
}

// ProjectionFields returns the sorted field names of a projection.
func ProjectionFields(projection map[string]bool) []string {
	names := make([]string, 0, len(projection))
	for name, include := range projection {
		if include {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

// Project copies the projected top-level keys of doc into a new map.
// idKey is always kept when present. An empty projection returns doc itself.
func Project(doc map[string]any, projection map[string]bool, idKey string) map[string]any {
	if len(projection) == 0 {
		return doc
	}
	out := make(map[string]any, len(projection)+1)
	if v, ok := doc[idKey]; ok {
		out[idKey] = v
	}
	for name, include := range projection {
		if !include {
			continue
		}
		if v, ok := doc[name]; ok {
			out[name] = v
		}
	}
	return out
}
