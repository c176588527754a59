package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/Uchennem/sleepoutsideServer/internal/auth"
	"github.com/Uchennem/sleepoutsideServer/internal/domain"
	"github.com/Uchennem/sleepoutsideServer/internal/event"
	"github.com/Uchennem/sleepoutsideServer/internal/repository"
	apperrors "github.com/Uchennem/sleepoutsideServer/pkg/errors"
	"github.com/Uchennem/sleepoutsideServer/pkg/validator"
)

// UserService implements registration, login and the protected greeting.
type UserService struct {
	repo     repository.UserRepository
	hasher   *auth.PasswordHasher
	tokens   *auth.JWTManager
	producer *event.Producer
	logger   *slog.Logger
}

// NewUserService creates a new user service.
func NewUserService(
	repo repository.UserRepository,
	hasher *auth.PasswordHasher,
	tokens *auth.JWTManager,
	producer *event.Producer,
	logger *slog.Logger,
) *UserService {
	return &UserService{
		repo:     repo,
		hasher:   hasher,
		tokens:   tokens,
		producer: producer,
		logger:   logger,
	}
}

// RegisterInput holds the parameters for registering a new user.
type RegisterInput struct {
	Name     string `json:"name" validate:"required"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
}

// LoginInput holds the parameters for user login.
type LoginInput struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginResult is a signed token and the authenticated user.
type LoginResult struct {
	Token string       `json:"token"`
	User  *domain.User `json:"user"`
}

// Register creates a new customer account. A duplicate email is an
// already-exists error and stores nothing.
func (s *UserService) Register(ctx context.Context, input RegisterInput) (*domain.User, error) {
	input.Name = strings.TrimSpace(input.Name)
	input.Email = domain.NormalizeEmail(input.Email)
	if err := validator.Validate(&input); err != nil {
		return nil, err
	}

	if _, err := s.repo.FindByEmail(ctx, input.Email); err == nil {
		return nil, apperrors.AlreadyExists("user", "email", input.Email)
	} else if !errors.Is(err, apperrors.ErrNotFound) {
		return nil, fmt.Errorf("look up user: %w", err)
	}

	hash, err := s.hasher.Hash(input.Password)
	if err != nil {
		return nil, err
	}

	user := &domain.User{
		Name:         input.Name,
		Email:        input.Email,
		PasswordHash: hash,
		Role:         domain.RoleCustomer,
	}
	if _, err := s.repo.InsertOne(ctx, user); err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}

	if err := s.producer.PublishUserRegistered(ctx, user); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish user.registered event",
			slog.String("user_id", user.ID),
			slog.String("error", err.Error()),
		)
	}

	s.logger.InfoContext(ctx, "user registered",
		slog.String("user_id", user.ID),
		slog.String("email", user.Email),
	)
	return user, nil
}

// Login authenticates by email and password and issues an access token.
func (s *UserService) Login(ctx context.Context, input LoginInput) (*LoginResult, error) {
	email := domain.NormalizeEmail(input.Email)
	if email == "" || input.Password == "" {
		return nil, apperrors.InvalidInput("email and password are required")
	}

	user, err := s.repo.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, apperrors.Unauthorized("invalid email or password")
		}
		return nil, fmt.Errorf("look up user: %w", err)
	}

	if err := s.hasher.Verify(user.PasswordHash, input.Password); err != nil {
		if errors.Is(err, auth.ErrPasswordMismatch) {
			return nil, apperrors.Unauthorized("invalid email or password")
		}
		return nil, err
	}

	token, err := s.tokens.Sign(user.ID, user.Email, user.Role)
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "user logged in",
		slog.String("user_id", user.ID),
		slog.String("email", user.Email),
	)
	return &LoginResult{Token: token, User: user}, nil
}

// ProtectedMessage greets an authenticated caller by email.
func (s *UserService) ProtectedMessage(email string) string {
	return fmt.Sprintf("Welcome %s, you have accessed a protected route.", email)
}
