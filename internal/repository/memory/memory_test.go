package memory

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Uchennem/sleepoutsideServer/internal/domain"
	"github.com/Uchennem/sleepoutsideServer/internal/repository"
	apperrors "github.com/Uchennem/sleepoutsideServer/pkg/errors"
	"github.com/Uchennem/sleepoutsideServer/pkg/filter"
)

func newTestProduct(id, name, category, description string) domain.Product {
	return domain.Product{
		ID:                    id,
		Category:              category,
		URL:                   "products/" + id,
		Reviews:               domain.Reviews{ReviewsURL: domain.ReviewsPath(id)},
		NameWithoutBrand:      name,
		Name:                  name,
		DescriptionHtmlSimple: description,
		Brand:                 domain.Brand{ID: "1", URL: "b", ProductsURL: "b/p", LogoSrc: "l.png", Name: "Brand"},
		ListPrice:             10,
		FinalPrice:            10,
	}
}

func seededProducts(t *testing.T) *ProductRepository {
	t.Helper()
	repo := NewProductRepository()
	n, err := repo.InsertMany(context.Background(), []domain.Product{
		newTestProduct("880RR", "Marmot Ajax Tent", "tents", "A 3-person tent"),
		newTestProduct("985PR", "Cedar Ridge Rimrock Tent", "tents", "Roomy family tent"),
		newTestProduct("344YJ", "Backpack 40L", "backpacks", "Light and tough"),
		newTestProduct("21KNT", "Sleeping Bag", "sleeping-bags", "Warm to -5C"),
	})
	require.NoError(t, err)
	require.Equal(t, 4, n)
	return repo
}

func TestProductRepository_CountAndFind(t *testing.T) {
	ctx := context.Background()
	repo := seededProducts(t)

	tests := []struct {
		name    string
		filter  filter.Expression
		wantIDs []string
	}{
		{"all", filter.All(), []string{"21KNT", "344YJ", "880RR", "985PR"}},
		{"category", filter.Eq(domain.FieldCategory, "tents"), []string{"880RR", "985PR"}},
		{"contains ignores case", filter.Contains(domain.FieldName, "AJAX"), []string{"880RR"}},
		{"description", filter.Contains(domain.FieldDescription, "tent"), []string{"880RR", "985PR"}},
		{"no match", filter.Eq(domain.FieldCategory, "kayaks"), []string{}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			n, err := repo.Count(ctx, tc.filter)
			require.NoError(t, err)
			assert.Equal(t, len(tc.wantIDs), n)

			docs, err := repo.Find(ctx, repository.FindOptions{Filter: tc.filter, Limit: 20})
			require.NoError(t, err)
			ids := make([]string, len(docs))
			for i, d := range docs {
				ids[i] = d.ID()
			}
			assert.Equal(t, tc.wantIDs, ids)
		})
	}
}

func TestProductRepository_FindPages(t *testing.T) {
	ctx := context.Background()
	repo := seededProducts(t)

	seen := map[string]int{}
	for skip := 0; skip < 4; skip += 3 {
		docs, err := repo.Find(ctx, repository.FindOptions{Filter: filter.All(), Skip: skip, Limit: 3})
		require.NoError(t, err)
		for _, d := range docs {
			seen[d.ID()]++
		}
	}
	assert.Len(t, seen, 4)
	for id, n := range seen {
		assert.Equal(t, 1, n, id)
	}

	docs, err := repo.Find(ctx, repository.FindOptions{Filter: filter.All(), Skip: 10, Limit: 3})
	require.NoError(t, err)
	assert.Empty(t, docs)

	docs, err = repo.Find(ctx, repository.FindOptions{Filter: filter.All(), Limit: 0})
	require.NoError(t, err)
	assert.Empty(t, docs)
}

func TestProductRepository_FindProjection(t *testing.T) {
	repo := seededProducts(t)

	docs, err := repo.Find(context.Background(), repository.FindOptions{
		Filter:     filter.Eq(domain.FieldID, "880RR"),
		Projection: map[string]bool{"name": true, "unknown": true},
		Limit:      1,
	})
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, domain.Document{"id": "880RR", "name": "Marmot Ajax Tent"}, docs[0])
}

func TestProductRepository_FindByID(t *testing.T) {
	ctx := context.Background()
	repo := seededProducts(t)

	doc, err := repo.FindByID(ctx, "880RR")
	require.NoError(t, err)
	assert.Equal(t, "Marmot Ajax Tent", doc[domain.FieldName])

	// returned documents are copies
	doc["reviews"].(map[string]any)["reviewsUrl"] = "changed"
	again, err := repo.FindByID(ctx, "880RR")
	require.NoError(t, err)
	assert.Equal(t, "/products/880RR/reviews/", again["reviews"].(map[string]any)["reviewsUrl"])

	_, err = repo.FindByID(ctx, "missing")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestProductRepository_DuplicateAndReset(t *testing.T) {
	ctx := context.Background()
	repo := seededProducts(t)

	p := newTestProduct("880RR", "Other", "tents", "")
	_, err := repo.InsertOne(ctx, &p)
	assert.ErrorIs(t, err, apperrors.ErrAlreadyExists)

	n, err := repo.InsertMany(ctx, []domain.Product{newTestProduct("NEW01", "New", "tents", ""), p})
	assert.ErrorIs(t, err, apperrors.ErrAlreadyExists)
	assert.Equal(t, 1, n)

	require.NoError(t, repo.Reset(ctx))
	count, err := repo.Count(ctx, filter.All())
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestUserRepository_InsertAndFind(t *testing.T) {
	ctx := context.Background()
	repo := NewUserRepository()

	u := &domain.User{Name: "New User", Email: "user@example.com", PasswordHash: "hash", Role: domain.RoleCustomer}
	id, err := repo.InsertOne(ctx, u)
	require.NoError(t, err)
	assert.NotEmpty(t, id)
	assert.Equal(t, id, u.ID)
	assert.False(t, u.CreatedAt.IsZero())
	assert.Equal(t, u.CreatedAt, u.UpdatedAt)

	byEmail, err := repo.FindByEmail(ctx, "user@example.com")
	require.NoError(t, err)
	assert.Equal(t, id, byEmail.ID)
	assert.Equal(t, "hash", byEmail.PasswordHash)

	byID, err := repo.FindByID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "user@example.com", byID.Email)

	_, err = repo.FindByEmail(ctx, "USER@example.com")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
	_, err = repo.FindByID(ctx, "missing")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestUserRepository_DuplicateEmail(t *testing.T) {
	ctx := context.Background()
	repo := NewUserRepository()

	_, err := repo.InsertOne(ctx, &domain.User{Email: "a@example.com"})
	require.NoError(t, err)
	_, err = repo.InsertOne(ctx, &domain.User{Email: "a@example.com"})
	assert.ErrorIs(t, err, apperrors.ErrAlreadyExists)
	assert.Len(t, repo.byEmail, 1)
	assert.Len(t, repo.byID, 1)
}

func TestUserRepository_ConcurrentInsert(t *testing.T) {
	ctx := context.Background()
	repo := NewUserRepository()

	var wg sync.WaitGroup
	for i := range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = repo.InsertOne(ctx, &domain.User{Email: fmt.Sprintf("u%d@example.com", i%5)})
		}()
	}
	wg.Wait()
	assert.Len(t, repo.byEmail, 5)
}
