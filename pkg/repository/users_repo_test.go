package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AlfredLandry1/blisslearn-sub002/pkg/domain"
)

var userColumns = []string{
	"id", "email", "username", "name", "email_verified_at", "onboarding_completed",
	"failed_login_attempts", "locked_until", "created_at", "updated_at", "deleted_at",
}

func TestUsersRepository_GetByEmail(t *testing.T) {
	pool, mock := newMockPool(t)
	repo := NewUsersRepository(pool)
	id := uuid.New()
	now := time.Date(2026, 10, 1, 9, 0, 0, 0, time.UTC)

	mock.ExpectQuery(`(?s)SELECT .* FROM users\s+WHERE email = \$1 AND deleted_at IS NULL`).
		WithArgs("ada@example.com").
		WillReturnRows(sqlmock.NewRows(userColumns).
			AddRow(id.String(), "ada@example.com", "ada", "Ada", now, true, 0, nil, now, now, nil))

	user, err := repo.GetByEmail(context.Background(), "ada@example.com")

	require.NoError(t, err)
	assert.Equal(t, id, user.ID)
	assert.Equal(t, "ada", *user.Username)
	assert.True(t, user.EmailVerified())
	assert.True(t, user.OnboardingCompleted)
	assert.Nil(t, user.LockedUntil)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUsersRepository_GetByIDNotFound(t *testing.T) {
	pool, mock := newMockPool(t)
	repo := NewUsersRepository(pool)

	mock.ExpectQuery(`FROM users`).WillReturnRows(sqlmock.NewRows(userColumns))

	_, err := repo.GetByID(context.Background(), uuid.New())
	assert.ErrorIs(t, err, domain.ErrUserNotFound)
}

func TestUsersRepository_ExistsByUsername(t *testing.T) {
	pool, mock := newMockPool(t)
	repo := NewUsersRepository(pool)

	mock.ExpectQuery(`SELECT EXISTS\(SELECT 1 FROM users WHERE username = \$1`).
		WithArgs("ada").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

	exists, err := repo.ExistsByUsername(context.Background(), "ada")
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestUsersRepository_UpdateMissingUser(t *testing.T) {
	pool, mock := newMockPool(t)
	repo := NewUsersRepository(pool)

	mock.ExpectExec(`UPDATE users`).WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.Update(context.Background(), &domain.User{ID: uuid.New(), Email: "x@example.com"})
	assert.ErrorIs(t, err, domain.ErrUserNotFound)
}

func TestUsersRepository_IncrementFailedLoginAttemptsPassesLockTime(t *testing.T) {
	pool, mock := newMockPool(t)
	repo := NewUsersRepository(pool)
	id := uuid.New()
	lockUntil := time.Date(2026, 10, 1, 9, 15, 0, 0, time.UTC)

	mock.ExpectExec(`(?s)UPDATE users\s+SET failed_login_attempts = failed_login_attempts \+ 1`).
		WithArgs(id, 5, lockUntil).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.IncrementFailedLoginAttempts(context.Background(), id, lockUntil, 5))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUsersRepository_MarkEmailVerifiedTx(t *testing.T) {
	pool, mock := newMockPool(t)
	repo := NewUsersRepository(pool)
	id := uuid.New()
	at := time.Date(2026, 10, 1, 9, 0, 0, 0, time.UTC)

	mock.ExpectExec(`SET email_verified_at = \$2`).
		WithArgs(id, at).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.MarkEmailVerifiedTx(context.Background(), pool.DB(), id, at))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUsersRepository_RetriesTransientFailure(t *testing.T) {
	pool, mock := newMockPool(t)
	pool.Retrier().WithSleep(func(ctx context.Context, d time.Duration) error { return nil })
	repo := NewUsersRepository(pool)

	refused := errors.New("dial tcp 127.0.0.1:5432: connect: connection refused")
	mock.ExpectQuery(`FROM users`).WillReturnError(&netErr{refused})
	mock.ExpectQuery(`FROM users`).
		WillReturnRows(sqlmock.NewRows(userColumns).
			AddRow(uuid.NewString(), "ada@example.com", nil, nil, nil, false, 0, nil, time.Now(), time.Now(), nil))

	user, err := repo.GetByEmail(context.Background(), "ada@example.com")

	require.NoError(t, err)
	assert.Equal(t, "ada@example.com", user.Email)
	assert.Nil(t, user.Username)
}

func TestUsersRepository_DeleteMissingUser(t *testing.T) {
	pool, mock := newMockPool(t)
	repo := NewUsersRepository(pool)

	mock.ExpectExec(`DELETE FROM users WHERE id = \$1`).WillReturnResult(sqlmock.NewResult(0, 0))

	assert.ErrorIs(t, repo.Delete(context.Background(), uuid.New()), domain.ErrUserNotFound)
}

// netErr satisfies net.Error so the store classifies it as transient.
type netErr struct{ err error }

func (e *netErr) Error() string   { return e.err.Error() }
func (e *netErr) Timeout() bool   { return false }
func (e *netErr) Temporary() bool { return true }
