package memory

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Uchennem/sleepoutsideServer/internal/domain"
	"github.com/Uchennem/sleepoutsideServer/internal/repository"
	apperrors "github.com/Uchennem/sleepoutsideServer/pkg/errors"
)

// UserRepository is an in-memory UserRepository keyed by email.
type UserRepository struct {
	mu      sync.RWMutex
	byEmail map[string]domain.User
	byID    map[string]string
	now     func() time.Time
}

var _ repository.UserRepository = (*UserRepository)(nil)

// NewUserRepository creates an empty store.
func NewUserRepository() *UserRepository {
	return &UserRepository{
		byEmail: make(map[string]domain.User),
		byID:    make(map[string]string),
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// FindByEmail returns the user stored under the normalized email.
func (r *UserRepository) FindByEmail(_ context.Context, email string) (*domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	u, ok := r.byEmail[email]
	if !ok {
		return nil, apperrors.NotFound("user", email)
	}
	return &u, nil
}

// FindByID returns the user with the given id.
func (r *UserRepository) FindByID(_ context.Context, id string) (*domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	email, ok := r.byID[id]
	if !ok {
		return nil, apperrors.NotFound("user", id)
	}
	u := r.byEmail[email]
	return &u, nil
}

// InsertOne stores u, assigning an id and timestamps when unset.
func (r *UserRepository) InsertOne(_ context.Context, u *domain.User) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byEmail[u.Email]; exists {
		return "", apperrors.AlreadyExists("user", "email", u.Email)
	}

	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	if u.CreatedAt.IsZero() {
		u.CreatedAt = r.now()
	}
	if u.UpdatedAt.IsZero() {
		u.UpdatedAt = u.CreatedAt
	}

	r.byEmail[u.Email] = *u
	r.byID[u.ID] = u.Email
	return u.ID, nil
}
