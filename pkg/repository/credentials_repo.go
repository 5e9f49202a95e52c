package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"

	"github.com/AlfredLandry1/blisslearn-sub002/internal/store"
	"github.com/AlfredLandry1/blisslearn-sub002/pkg/domain"
)

// CredentialsRepository handles password credentials.
type CredentialsRepository struct {
	pool *store.Pool
}

// NewCredentialsRepository creates a new credentials repository.
func NewCredentialsRepository(pool *store.Pool) *CredentialsRepository {
	return &CredentialsRepository{pool: pool}
}

// CreateTx stores credentials within a transaction.
func (r *CredentialsRepository) CreateTx(ctx context.Context, q store.Querier, cred *domain.UserPassword) error {
	query := `
		INSERT INTO user_password (user_id, password_hash, password_updated_at)
		VALUES ($1, $2, $3)
	`
	_, err := q.ExecContext(ctx, query, cred.UserID, cred.PasswordHash, cred.PasswordUpdatedAt)
	return err
}

// UpsertTx sets the password hash, creating the row for accounts that had
// none.
func (r *CredentialsRepository) UpsertTx(ctx context.Context, q store.Querier, cred *domain.UserPassword) error {
	query := `
		INSERT INTO user_password (user_id, password_hash, password_updated_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (user_id) DO UPDATE
		SET password_hash = EXCLUDED.password_hash,
		    password_updated_at = EXCLUDED.password_updated_at
	`
	_, err := q.ExecContext(ctx, query, cred.UserID, cred.PasswordHash, cred.PasswordUpdatedAt)
	return err
}

// GetByUserID returns the credentials, or domain.ErrPasswordNotSet.
func (r *CredentialsRepository) GetByUserID(ctx context.Context, userID uuid.UUID) (*domain.UserPassword, error) {
	query := `
		SELECT user_id, password_hash, password_updated_at
		FROM user_password
		WHERE user_id = $1
	`
	return store.Query(ctx, r.pool, func(ctx context.Context) (*domain.UserPassword, error) {
		cred := &domain.UserPassword{}
		err := r.pool.DB().QueryRowContext(ctx, query, userID).Scan(
			&cred.UserID, &cred.PasswordHash, &cred.PasswordUpdatedAt,
		)
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrPasswordNotSet
		}
		if err != nil {
			return nil, err
		}
		return cred, nil
	})
}

// HasPassword reports whether the user can sign in with a password.
func (r *CredentialsRepository) HasPassword(ctx context.Context, userID uuid.UUID) (bool, error) {
	return store.Query(ctx, r.pool, func(ctx context.Context) (bool, error) {
		var exists bool
		err := r.pool.DB().QueryRowContext(ctx,
			`SELECT EXISTS(SELECT 1 FROM user_password WHERE user_id = $1)`, userID,
		).Scan(&exists)
		return exists, err
	})
}
