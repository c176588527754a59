package service

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"github.com/Uchennem/sleepoutsideServer/internal/domain"
	"github.com/Uchennem/sleepoutsideServer/internal/repository"
	apperrors "github.com/Uchennem/sleepoutsideServer/pkg/errors"
	"github.com/Uchennem/sleepoutsideServer/pkg/filter"
	"github.com/Uchennem/sleepoutsideServer/pkg/pagination"
	"github.com/Uchennem/sleepoutsideServer/pkg/query"
)

// Recognized catalog query parameters. TermParam and QueryParam are
// synonyms; the first non-blank one wins.
const (
	TermParam     = "q"
	QueryParam    = "query"
	CategoryParam = "category"
)

// ProductEnvelope is the paginated response of the listing endpoints.
type ProductEnvelope = pagination.Envelope[domain.Document]

// CatalogService runs catalog queries: sanitize, build the filter, count,
// fetch a projected page and wrap it with pagination links.
type CatalogService struct {
	repo   repository.ProductRepository
	list   filter.Builder
	search filter.Builder
	logger *slog.Logger
}

// NewCatalogService creates a catalog service combining term and category
// with policy.
func NewCatalogService(repo repository.ProductRepository, policy filter.Policy, logger *slog.Logger) *CatalogService {
	return &CatalogService{
		repo: repo,
		list: filter.Builder{
			TextFields:    []string{domain.FieldName, domain.FieldDescription},
			CategoryField: domain.FieldCategory,
			Policy:        policy,
		},
		search: filter.Builder{
			TextFields:    []string{domain.FieldName, domain.FieldDescription, domain.FieldCategory},
			CategoryField: domain.FieldCategory,
			Policy:        policy,
		},
		logger: logger,
	}
}

// ListProducts answers the product listing. Links in the envelope are built
// on basePath.
func (s *CatalogService) ListProducts(ctx context.Context, basePath string, values url.Values) (ProductEnvelope, error) {
	return s.retrieve(ctx, s.list, basePath, values)
}

// SearchProducts is ListProducts with the term also matched against the
// category.
func (s *CatalogService) SearchProducts(ctx context.Context, basePath string, values url.Values) (ProductEnvelope, error) {
	return s.retrieve(ctx, s.search, basePath, values)
}

// GetProduct returns one product document.
func (s *CatalogService) GetProduct(ctx context.Context, id string) (domain.Document, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, apperrors.InvalidInput("product id is required")
	}
	doc, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get product %s: %w", id, err)
	}
	return doc, nil
}

func (s *CatalogService) retrieve(ctx context.Context, b filter.Builder, basePath string, values url.Values) (ProductEnvelope, error) {
	clean := query.SanitizeValues(values)

	f := b.Build(criteria(clean))
	projection := query.ProjectionFromValues(clean)
	page := pagination.ParseParams(clean)

	count, err := s.repo.Count(ctx, f)
	if err != nil {
		return ProductEnvelope{}, fmt.Errorf("count products: %w", err)
	}
	if count == 0 {
		return ProductEnvelope{}, apperrors.NoResults("products")
	}

	docs, err := s.repo.Find(ctx, repository.FindOptions{
		Filter:     f,
		Projection: projection,
		Skip:       page.Offset,
		Limit:      page.Limit,
	})
	if err != nil {
		return ProductEnvelope{}, fmt.Errorf("find products: %w", err)
	}

	s.logger.DebugContext(ctx, "catalog query",
		slog.String("filter", f.String()),
		slog.Int("count", count),
		slog.Int("returned", len(docs)),
		slog.Int("limit", page.Limit),
		slog.Int("offset", page.Offset),
	)

	return pagination.New[domain.Document](count, basePath, clean).WithResults(docs), nil
}

func criteria(values url.Values) filter.Criteria {
	term := strings.TrimSpace(values.Get(TermParam))
	if term == "" {
		term = strings.TrimSpace(values.Get(QueryParam))
	}
	return filter.Criteria{
		Term:     term,
		Category: strings.TrimSpace(values.Get(CategoryParam)),
	}
}
