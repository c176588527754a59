package seed

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/Uchennem/sleepoutsideServer/internal/auth"
	"github.com/Uchennem/sleepoutsideServer/internal/domain"
	"github.com/Uchennem/sleepoutsideServer/internal/repository"
	apperrors "github.com/Uchennem/sleepoutsideServer/pkg/errors"
)

// TestUser describes the account created by the seeder.
type TestUser struct {
	Name     string
	Email    string
	Password string
}

// Result summarizes a seeding run.
type Result struct {
	ProductsInserted int
	UserCreated      bool
	UserID           string
}

// Seeder resets the product store and ensures the test account exists.
type Seeder struct {
	products repository.ProductRepository
	users    repository.UserRepository
	hasher   *auth.PasswordHasher
	logger   *slog.Logger
}

// NewSeeder creates a seeder.
func NewSeeder(products repository.ProductRepository, users repository.UserRepository, hasher *auth.PasswordHasher, logger *slog.Logger) *Seeder {
	return &Seeder{products: products, users: users, hasher: hasher, logger: logger}
}

// LoadFile decodes the products file at path.
func LoadFile(path string) ([]domain.Product, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open products file: %w", err)
	}
	defer f.Close()
	return DecodeProducts(f)
}

// Run replaces the catalog with products and creates user unless an account
// with the same email already exists.
func (s *Seeder) Run(ctx context.Context, products []domain.Product, user TestUser) (Result, error) {
	var res Result

	if err := s.products.Reset(ctx); err != nil {
		return res, fmt.Errorf("reset products: %w", err)
	}
	s.logger.InfoContext(ctx, "product store reset")

	n, err := s.products.InsertMany(ctx, products)
	res.ProductsInserted = n
	if err != nil {
		return res, fmt.Errorf("insert products: %w", err)
	}
	s.logger.InfoContext(ctx, "products inserted", slog.Int("count", n))

	email := domain.NormalizeEmail(user.Email)
	existing, err := s.users.FindByEmail(ctx, email)
	switch {
	case err == nil:
		res.UserID = existing.ID
		s.logger.InfoContext(ctx, "test user already present", slog.String("email", email))
		return res, nil
	case !errors.Is(err, apperrors.ErrNotFound):
		return res, fmt.Errorf("look up test user: %w", err)
	}

	hash, err := s.hasher.Hash(user.Password)
	if err != nil {
		return res, fmt.Errorf("hash test user password: %w", err)
	}
	id, err := s.users.InsertOne(ctx, &domain.User{
		Name:         user.Name,
		Email:        email,
		PasswordHash: hash,
		Role:         domain.RoleCustomer,
	})
	if err != nil {
		return res, fmt.Errorf("create test user: %w", err)
	}
	res.UserCreated = true
	res.UserID = id
	s.logger.InfoContext(ctx, "test user created", slog.String("email", email), slog.String("user_id", id))
	return res, nil
}
