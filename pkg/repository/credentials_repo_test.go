package repository

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AlfredLandry1/blisslearn-sub002/pkg/domain"
)

func TestCredentialsRepository_GetByUserIDWithoutPassword(t *testing.T) {
	pool, mock := newMockPool(t)
	repo := NewCredentialsRepository(pool)

	mock.ExpectQuery(`FROM user_password`).
		WillReturnRows(sqlmock.NewRows([]string{"user_id", "password_hash", "password_updated_at"}))

	_, err := repo.GetByUserID(context.Background(), uuid.New())
	assert.ErrorIs(t, err, domain.ErrPasswordNotSet)
}

func TestCredentialsRepository_UpsertTx(t *testing.T) {
	pool, mock := newMockPool(t)
	repo := NewCredentialsRepository(pool)
	cred := &domain.UserPassword{
		UserID:            uuid.New(),
		PasswordHash:      "$argon2id$v=19$...",
		PasswordUpdatedAt: time.Date(2026, 10, 1, 9, 0, 0, 0, time.UTC),
	}

	mock.ExpectExec(`(?s)INSERT INTO user_password .* ON CONFLICT \(user_id\) DO UPDATE`).
		WithArgs(cred.UserID, cred.PasswordHash, cred.PasswordUpdatedAt).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.UpsertTx(context.Background(), pool.DB(), cred))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestIdentitiesRepository_GetByProviderSubject(t *testing.T) {
	pool, mock := newMockPool(t)
	repo := NewIdentitiesRepository(pool)
	id, userID := uuid.New(), uuid.New()

	mock.ExpectQuery(`(?s)FROM user_identities\s+WHERE provider = \$1 AND provider_subject = \$2`).
		WithArgs("google", "sub-1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "provider", "provider_subject", "email", "created_at"}).
			AddRow(id.String(), userID.String(), "google", "sub-1", "ada@example.com", time.Now()))

	identity, err := repo.GetByProviderSubject(context.Background(), "google", "sub-1")

	require.NoError(t, err)
	assert.Equal(t, userID, identity.UserID)
	assert.Equal(t, "ada@example.com", *identity.Email)
}

func TestIdentitiesRepository_ListByUserIDEmpty(t *testing.T) {
	pool, mock := newMockPool(t)
	repo := NewIdentitiesRepository(pool)

	mock.ExpectQuery(`FROM user_identities`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "provider", "provider_subject", "email", "created_at"}))

	identities, err := repo.ListByUserID(context.Background(), uuid.New())
	require.NoError(t, err)
	assert.Empty(t, identities)
}
