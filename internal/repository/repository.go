package repository

import (
	"context"

	"github.com/Uchennem/sleepoutsideServer/internal/domain"
	"github.com/Uchennem/sleepoutsideServer/pkg/filter"
)

// FindOptions selects a page of products.
type FindOptions struct {
	Filter filter.Expression
	// Projection lists top-level fields to return in addition to "id".
	// An empty projection returns whole documents.
	Projection map[string]bool
	Skip       int
	Limit      int
}

// ProductRepository stores catalog documents. Results are ordered by id so
// consecutive pages never overlap.
type ProductRepository interface {
	// Count returns the number of documents matching f.
	Count(ctx context.Context, f filter.Expression) (int, error)

	// Find returns at most opts.Limit matching documents after skipping
	// opts.Skip of them. A Limit of zero or less returns no documents.
	Find(ctx context.Context, opts FindOptions) ([]domain.Document, error)

	// FindByID returns the document with the given id or an
	// apperrors.ErrNotFound error.
	FindByID(ctx context.Context, id string) (domain.Document, error)

	// InsertOne stores p and returns its id. A duplicate id is an
	// apperrors.ErrAlreadyExists error.
	InsertOne(ctx context.Context, p *domain.Product) (string, error)

	// InsertMany stores every product and returns the number inserted.
	InsertMany(ctx context.Context, products []domain.Product) (int, error)

	// Reset removes every document.
	Reset(ctx context.Context) error
}

// UserRepository stores user accounts keyed by unique email.
type UserRepository interface {
	// FindByEmail returns the user with exactly this email or an
	// apperrors.ErrNotFound error.
	FindByEmail(ctx context.Context, email string) (*domain.User, error)

	// FindByID returns the user with this id or an apperrors.ErrNotFound error.
	FindByID(ctx context.Context, id string) (*domain.User, error)

	// InsertOne stores u, assigning ID and timestamps when unset, and returns
	// the id. A duplicate email is an apperrors.ErrAlreadyExists error.
	InsertOne(ctx context.Context, u *domain.User) (string, error)
}
