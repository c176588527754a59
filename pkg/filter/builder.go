package filter

import (
	"fmt"
	"strings"
)

// Policy decides how a text term and a category are combined when both are
// present.
type Policy string

const (
	// PolicyAnd requires the text match and the category equality.
	PolicyAnd Policy = "and"
	// PolicyOr accepts documents satisfying either predicate.
	PolicyOr Policy = "or"
)

// ParsePolicy validates a policy name. An empty name selects PolicyAnd.
func ParsePolicy(s string) (Policy, error) {
	switch Policy(strings.ToLower(strings.TrimSpace(s))) {
	case "", PolicyAnd:
		return PolicyAnd, nil
	case PolicyOr:
		return PolicyOr, nil
	default:
		return "", fmt.Errorf("unknown filter policy %q", s)
	}
}

// Criteria are the recognized selection inputs of a catalog query.
type Criteria struct {
	Term     string
	Category string
}

// Builder turns Criteria into an Expression.
type Builder struct {
	// TextFields are matched case-insensitively against Term.
	TextFields []string
	// CategoryField is compared for exact equality with Category.
	CategoryField string
	Policy        Policy
}

// Build returns the filter for c. Blank inputs are ignored; with neither
// input the identity filter is returned.
func (b Builder) Build(c Criteria) Expression {
	term := strings.TrimSpace(c.Term)
	category := strings.TrimSpace(c.Category)

	text := All()
	if term != "" && len(b.TextFields) > 0 {
		preds := make([]Expression, len(b.TextFields))
		for i, f := range b.TextFields {
			preds[i] = Contains(f, term)
		}
		text = Or(preds...)
	}

	cat := All()
	if category != "" && b.CategoryField != "" {
		cat = Eq(b.CategoryField, category)
	}

	if b.Policy == PolicyOr && !text.IsAll() && !cat.IsAll() {
		return Or(text, cat)
	}
	return And(text, cat)
}
