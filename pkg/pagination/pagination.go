package pagination

import (
	"math"
	"net/url"
	"strconv"
)

// Query parameter names and limits for offset pagination.
const (
	LimitParam  = "limit"
	OffsetParam = "offset"

	DefaultLimit = 20
	MaxLimit     = 100

	// MaxOffset keeps Offset+MaxLimit within int range.
	MaxOffset = math.MaxInt - MaxLimit
)

// Params holds offset pagination parameters extracted from query strings.
type Params struct {
	Limit  int `json:"limit"`
	Offset int `json:"offset"`
}

// DefaultParams returns sensible pagination defaults.
func DefaultParams() Params {
	return Params{Limit: DefaultLimit, Offset: 0}
}

// ParseParams reads limit and offset from values. A missing, unparsable,
// zero or negative limit falls back to DefaultLimit and a limit above
// MaxLimit is capped. A missing, unparsable or negative offset becomes 0
// and an offset above MaxOffset is capped.
func ParseParams(values url.Values) Params {
	p := DefaultParams()

	if v, err := strconv.Atoi(values.Get(LimitParam)); err == nil && v > 0 {
		p.Limit = min(v, MaxLimit)
	}

	if v, err := strconv.Atoi(values.Get(OffsetParam)); err == nil && v > 0 {
		p.Offset = min(v, MaxOffset)
	}

	return p
}

// Page describes where an offset falls within a result set.
type Page struct {
	Current    int
	TotalPages int
	HasPrev    bool
	HasNext    bool
}

// Locate computes page boundaries for totalCount records.
func Locate(totalCount int, p Params) Page {
	if p.Limit <= 0 {
		p.Limit = DefaultLimit
	}
	p.Limit = min(p.Limit, MaxLimit)
	p.Offset = min(max(p.Offset, 0), MaxOffset)

	totalPages := 0
	if totalCount > 0 {
		totalPages = (totalCount-1)/p.Limit + 1
	}
	current := p.Offset/p.Limit + 1

	return Page{
		Current:    current,
		TotalPages: totalPages,
		HasPrev:    current > 1,
		HasNext:    current < totalPages,
	}
}

// Envelope is the paginated response shape returned by catalog queries.
// Count is the total number of matches, Results only the current page.
type Envelope[T any] struct {
	Count    int     `json:"count"`
	Previous *string `json:"previous"`
	Next     *string `json:"next"`
	Results  []T     `json:"results"`
}

// New builds the envelope for totalCount matches of the query described by
// values, leaving Results empty for the caller to fill. Previous and Next
// re-encode every parameter of values under basePath with only the offset
// changed. New is a pure function of its inputs.
func New[T any](totalCount int, basePath string, values url.Values) Envelope[T] {
	p := ParseParams(values)
	page := Locate(totalCount, p)

	env := Envelope[T]{
		Count:   totalCount,
		Results: []T{},
	}
	if page.HasPrev {
		env.Previous = link(basePath, values, max(p.Offset-p.Limit, 0))
	}
	if page.HasNext {
		env.Next = link(basePath, values, p.Offset+p.Limit)
	}
	return env
}

// WithResults returns a copy of e carrying results. A nil slice is replaced
// by an empty one so the JSON field is never null.
func (e Envelope[T]) WithResults(results []T) Envelope[T] {
	if results == nil {
		results = []T{}
	}
	e.Results = results
	return e
}

func link(basePath string, values url.Values, offset int) *string {
	q := make(url.Values, len(values)+1)
	for k, vs := range values {
		q[k] = append([]string(nil), vs...)
	}
	q.Set(OffsetParam, strconv.Itoa(offset))

	s := basePath + "?" + q.Encode()
	return &s
}
