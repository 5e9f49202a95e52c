package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"

	"github.com/AlfredLandry1/blisslearn-sub002/internal/store"
	"github.com/AlfredLandry1/blisslearn-sub002/pkg/domain"
)

// VerificationTokensRepository stores password reset and email verification
// tokens. Every method runs on the Querier it is given so callers can group
// them in one transaction.
type VerificationTokensRepository struct{}

// NewVerificationTokensRepository creates a new verification tokens repository.
func NewVerificationTokensRepository() *VerificationTokensRepository {
	return &VerificationTokensRepository{}
}

// Upsert stores token as the only live token for its (user, purpose). The
// unique constraint on (user_id, purpose) makes a concurrent issue replace
// rather than add.
func (r *VerificationTokensRepository) Upsert(ctx context.Context, q store.Querier, token *domain.VerificationToken) error {
	query := `
		INSERT INTO verification_tokens (id, user_id, purpose, token_hash, created_at, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (user_id, purpose) DO UPDATE
		SET id = EXCLUDED.id,
		    token_hash = EXCLUDED.token_hash,
		    created_at = EXCLUDED.created_at,
		    expires_at = EXCLUDED.expires_at
	`
	_, err := q.ExecContext(ctx, query,
		token.ID, token.UserID, string(token.Purpose), token.TokenHash,
		token.CreatedAt, token.ExpiresAt,
	)
	return err
}

// GetByHashForUpdate looks a token up by hash and locks its row until the
// transaction ends.
func (r *VerificationTokensRepository) GetByHashForUpdate(ctx context.Context, q store.Querier, purpose domain.TokenPurpose, tokenHash string) (*domain.VerificationToken, error) {
	query := `
		SELECT id, user_id, purpose, token_hash, created_at, expires_at
		FROM verification_tokens
		WHERE token_hash = $1 AND purpose = $2
		FOR UPDATE
	`
	token := &domain.VerificationToken{}
	var purposeStr string
	err := q.QueryRowContext(ctx, query, tokenHash, string(purpose)).Scan(
		&token.ID, &token.UserID, &purposeStr, &token.TokenHash,
		&token.CreatedAt, &token.ExpiresAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrTokenNotFound
	}
	if err != nil {
		return nil, err
	}
	token.Purpose = domain.TokenPurpose(purposeStr)
	return token, nil
}

// DeleteByID removes a single token.
func (r *VerificationTokensRepository) DeleteByID(ctx context.Context, q store.Querier, id uuid.UUID) error {
	_, err := q.ExecContext(ctx, `DELETE FROM verification_tokens WHERE id = $1`, id)
	return err
}

// DeleteByUserAndPurpose removes every token the user holds for purpose.
func (r *VerificationTokensRepository) DeleteByUserAndPurpose(ctx context.Context, q store.Querier, userID uuid.UUID, purpose domain.TokenPurpose) (int64, error) {
	return rowsAffected(q.ExecContext(ctx,
		`DELETE FROM verification_tokens WHERE user_id = $1 AND purpose = $2`,
		userID, string(purpose),
	))
}
