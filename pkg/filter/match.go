package filter

import (
	"fmt"
	"strings"
)

// Match evaluates e against a document. Fields may be dotted paths into
// nested maps. Non-string values are compared through their fmt rendering.
func Match(e Expression, doc map[string]any) bool {
	switch e.Op {
	case OpEq:
		v, ok := lookup(doc, e.Field)
		return ok && v == e.Value
	case OpContains:
		v, ok := lookup(doc, e.Field)
		return ok && strings.Contains(strings.ToLower(v), strings.ToLower(e.Value))
	case OpAnd:
		for _, c := range e.Children {
			if !Match(c, doc) {
				return false
			}
		}
		return true
	case OpOr:
		for _, c := range e.Children {
			if Match(c, doc) {
				return true
			}
		}
		return false
	default:
		return true
	}
}

func lookup(doc map[string]any, path string) (string, bool) {
	var cur any = doc
	for _, part := range strings.Split(path, ".") {
		m, ok := cur.(map[string]any)
		if !ok {
			return "", false
		}
		if cur, ok = m[part]; !ok {
			return "", false
		}
	}
	switch v := cur.(type) {
	case nil:
		return "", false
	case string:
		return v, true
	default:
		return fmt.Sprint(v), true
	}
}
