// Package seed loads the product catalog from a JSON export and creates the
// test account.
package seed

import (
	"errors"
	"fmt"
	"io"
	"unicode"
	"unicode/utf8"

	jsoniter "github.com/json-iterator/go"

	"github.com/Uchennem/sleepoutsideServer/internal/domain"
	"github.com/Uchennem/sleepoutsideServer/pkg/validator"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// CamelCaseKeys lowercases the first letter of every object key in v,
// recursing through nested objects and arrays. Scalars are returned as is.
func CamelCaseKeys(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			out[lowerFirst(k)] = CamelCaseKeys(val)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, val := range t {
			out[i] = CamelCaseKeys(val)
		}
		return out
	default:
		return v
	}
}

func lowerFirst(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError || unicode.IsLower(r) {
		return s
	}
	return string(unicode.ToLower(r)) + s[size:]
}

// DecodeProducts reads a JSON array of products exported with PascalCase
// keys. Keys are converted to camelCase, each reviews URL is rewritten to
// the product's reviews path, and every product is validated. All
// violations are reported together.
func DecodeProducts(r io.Reader) ([]domain.Product, error) {
	var raw []any
	if err := json.NewDecoder(r).Decode(&raw); err != nil {
		return nil, fmt.Errorf("decode products: %w", err)
	}

	products := make([]domain.Product, 0, len(raw))
	var errs []error
	for i, item := range raw {
		doc, ok := CamelCaseKeys(item).(map[string]any)
		if !ok {
			errs = append(errs, fmt.Errorf("product %d: not a JSON object", i))
			continue
		}
		rewriteReviewsURL(doc)

		var p domain.Product
		if err := remarshal(doc, &p); err != nil {
			errs = append(errs, fmt.Errorf("product %d: %w", i, err))
			continue
		}
		if err := validator.Validate(&p); err != nil {
			errs = append(errs, fmt.Errorf("product %d (%s): %w", i, p.ID, err))
			continue
		}
		products = append(products, p)
	}

	if len(errs) > 0 {
		return nil, fmt.Errorf("invalid products: %w", errors.Join(errs...))
	}
	return products, nil
}

func rewriteReviewsURL(doc map[string]any) {
	id, _ := doc[domain.FieldID].(string)
	if id == "" {
		return
	}
	reviews, ok := doc["reviews"].(map[string]any)
	if !ok {
		reviews = map[string]any{}
		doc["reviews"] = reviews
	}
	reviews["reviewsUrl"] = domain.ReviewsPath(id)
}

func remarshal(src any, dst any) error {
	b, err := json.Marshal(src)
	if err != nil {
		return err
	}
	return json.Unmarshal(b, dst)
}
