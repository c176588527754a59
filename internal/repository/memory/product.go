package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/Uchennem/sleepoutsideServer/internal/domain"
	"github.com/Uchennem/sleepoutsideServer/internal/repository"
	apperrors "github.com/Uchennem/sleepoutsideServer/pkg/errors"
	"github.com/Uchennem/sleepoutsideServer/pkg/filter"
	"github.com/Uchennem/sleepoutsideServer/pkg/query"
)

// ProductRepository is an in-memory ProductRepository. Filters are
// evaluated with filter.Match. Safe for concurrent use.
type ProductRepository struct {
	mu   sync.RWMutex
	docs map[string]domain.Document
}

var _ repository.ProductRepository = (*ProductRepository)(nil)

// NewProductRepository creates an empty store.
func NewProductRepository() *ProductRepository {
	return &ProductRepository{docs: make(map[string]domain.Document)}
}

// Count returns the number of documents matching f.
func (r *ProductRepository) Count(_ context.Context, f filter.Expression) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	n := 0
	for _, d := range r.docs {
		if filter.Match(f, d) {
			n++
		}
	}
	return n, nil
}

// Find returns a page of matching documents ordered by id.
func (r *ProductRepository) Find(_ context.Context, opts repository.FindOptions) ([]domain.Document, error) {
	if opts.Limit <= 0 {
		return []domain.Document{}, nil
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := make([]string, 0, len(r.docs))
	for id, d := range r.docs {
		if filter.Match(opts.Filter, d) {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)

	start := min(max(opts.Skip, 0), len(ids))
	end := min(start+opts.Limit, len(ids))

	out := make([]domain.Document, 0, end-start)
	for _, id := range ids[start:end] {
		doc := query.Project(r.docs[id], opts.Projection, domain.FieldID)
		out = append(out, clone(doc))
	}
	return out, nil
}

// FindByID returns a copy of the document with the given id.
func (r *ProductRepository) FindByID(_ context.Context, id string) (domain.Document, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	d, ok := r.docs[id]
	if !ok {
		return nil, apperrors.NotFound("product", id)
	}
	return clone(d), nil
}

// InsertOne stores p. A duplicate id is rejected.
func (r *ProductRepository) InsertOne(_ context.Context, p *domain.Product) (string, error) {
	doc, err := p.Document()
	if err != nil {
		return "", err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.docs[p.ID]; exists {
		return "", apperrors.AlreadyExists("product", "id", p.ID)
	}
	r.docs[p.ID] = doc
	return p.ID, nil
}

// InsertMany stores every product, stopping at the first failure.
func (r *ProductRepository) InsertMany(ctx context.Context, products []domain.Product) (int, error) {
	for i := range products {
		if _, err := r.InsertOne(ctx, &products[i]); err != nil {
			return i, err
		}
	}
	return len(products), nil
}

// Reset removes every document.
func (r *ProductRepository) Reset(context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.docs = make(map[string]domain.Document)
	return nil
}

// clone deep-copies d so callers cannot mutate stored state.
func clone(d domain.Document) domain.Document {
	return domain.Document(cloneValue(map[string]any(d)).(map[string]any))
}

func cloneValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, e := range t {
			out[k] = cloneValue(e)
		}
		return out
	case domain.Document:
		return cloneValue(map[string]any(t))
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = cloneValue(e)
		}
		return out
	default:
		return v
	}
}
