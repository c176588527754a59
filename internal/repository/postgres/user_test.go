package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	pgxmock "github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Uchennem/sleepoutsideServer/internal/domain"
	apperrors "github.com/Uchennem/sleepoutsideServer/pkg/errors"
)

func newUserTestFixture(t *testing.T) (*UserRepository, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	return NewUserRepository(mock), mock
}

func sampleUser() *domain.User {
	now := time.Now().UTC().Truncate(time.Microsecond)
	return &domain.User{
		ID:           "u-1234",
		Name:         "New User",
		Email:        "user@example.com",
		PasswordHash: "hash-abc",
		Role:         domain.RoleCustomer,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

func userRow(u *domain.User) *pgxmock.Rows {
	return pgxmock.NewRows([]string{"id", "name", "email", "password_hash", "role", "created_at", "updated_at"}).
		AddRow(u.ID, u.Name, u.Email, u.PasswordHash, u.Role, u.CreatedAt, u.UpdatedAt)
}

func TestUserRepository_InsertOne_Success(t *testing.T) {
	repo, mock := newUserTestFixture(t)
	defer mock.Close()

	u := sampleUser()
	mock.ExpectExec("INSERT INTO users").
		WithArgs(u.ID, u.Name, u.Email, u.PasswordHash, u.Role, u.CreatedAt, u.UpdatedAt).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	id, err := repo.InsertOne(context.Background(), u)
	require.NoError(t, err)
	assert.Equal(t, "u-1234", id)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepository_InsertOne_AssignsIDAndTimestamps(t *testing.T) {
	repo, mock := newUserTestFixture(t)
	defer mock.Close()

	mock.ExpectExec("INSERT INTO users").
		WithArgs(pgxmock.AnyArg(), "New User", "user@example.com", "hash", domain.RoleCustomer, pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	u := &domain.User{Name: "New User", Email: "user@example.com", PasswordHash: "hash", Role: domain.RoleCustomer}
	id, err := repo.InsertOne(context.Background(), u)
	require.NoError(t, err)
	assert.NotEmpty(t, id)
	assert.False(t, u.CreatedAt.IsZero())
	assert.Equal(t, u.CreatedAt, u.UpdatedAt)
}

func TestUserRepository_InsertOne_DuplicateEmail(t *testing.T) {
	repo, mock := newUserTestFixture(t)
	defer mock.Close()

	mock.ExpectExec("INSERT INTO users").
		WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "users_email_key"})

	_, err := repo.InsertOne(context.Background(), sampleUser())
	require.Error(t, err)

	var appErr *apperrors.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, "ALREADY_EXISTS", appErr.Code)
}

func TestUserRepository_InsertOne_DBError(t *testing.T) {
	repo, mock := newUserTestFixture(t)
	defer mock.Close()

	mock.ExpectExec("INSERT INTO users").WillReturnError(errors.New("connection refused"))

	_, err := repo.InsertOne(context.Background(), sampleUser())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "insert user")
}

func TestUserRepository_FindByEmail(t *testing.T) {
	repo, mock := newUserTestFixture(t)
	defer mock.Close()

	u := sampleUser()
	mock.ExpectQuery("SELECT (.+) FROM users WHERE email").
		WithArgs(u.Email).
		WillReturnRows(userRow(u))

	got, err := repo.FindByEmail(context.Background(), u.Email)
	require.NoError(t, err)
	assert.Equal(t, u, got)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepository_FindByEmail_NotFound(t *testing.T) {
	repo, mock := newUserTestFixture(t)
	defer mock.Close()

	mock.ExpectQuery("SELECT (.+) FROM users WHERE email").
		WithArgs("nobody@example.com").
		WillReturnError(pgx.ErrNoRows)

	_, err := repo.FindByEmail(context.Background(), "nobody@example.com")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestUserRepository_FindByID(t *testing.T) {
	repo, mock := newUserTestFixture(t)
	defer mock.Close()

	u := sampleUser()
	mock.ExpectQuery("SELECT (.+) FROM users WHERE id").
		WithArgs(u.ID).
		WillReturnRows(userRow(u))

	got, err := repo.FindByID(context.Background(), u.ID)
	require.NoError(t, err)
	assert.Equal(t, u.Email, got.Email)
	assert.Equal(t, u.PasswordHash, got.PasswordHash)
}

func TestUserRepository_FindByID_ScanError(t *testing.T) {
	repo, mock := newUserTestFixture(t)
	defer mock.Close()

	mock.ExpectQuery("SELECT (.+) FROM users WHERE id").
		WithArgs("u-1").
		WillReturnError(errors.New("timeout"))

	_, err := repo.FindByID(context.Background(), "u-1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "scan user")
}
