package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"

	"github.com/AlfredLandry1/blisslearn-sub002/internal/store"
	"github.com/AlfredLandry1/blisslearn-sub002/pkg/domain"
)

// IdentitiesRepository handles external identity links.
type IdentitiesRepository struct {
	pool *store.Pool
}

// NewIdentitiesRepository creates a new identities repository.
func NewIdentitiesRepository(pool *store.Pool) *IdentitiesRepository {
	return &IdentitiesRepository{pool: pool}
}

// CreateTx links an identity within a transaction.
func (r *IdentitiesRepository) CreateTx(ctx context.Context, q store.Querier, identity *domain.UserIdentity) error {
	query := `
		INSERT INTO user_identities (id, user_id, provider, provider_subject, email, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err := q.ExecContext(ctx, query,
		identity.ID, identity.UserID, identity.Provider, identity.ProviderSubject,
		identity.Email, identity.CreatedAt,
	)
	return err
}

// Create links an identity.
func (r *IdentitiesRepository) Create(ctx context.Context, identity *domain.UserIdentity) error {
	return r.pool.Do(ctx, func(ctx context.Context) error {
		return r.CreateTx(ctx, r.pool.DB(), identity)
	})
}

// GetByProviderSubject finds the identity a provider knows as subject.
func (r *IdentitiesRepository) GetByProviderSubject(ctx context.Context, provider, subject string) (*domain.UserIdentity, error) {
	query := `
		SELECT id, user_id, provider, provider_subject, email, created_at
		FROM user_identities
		WHERE provider = $1 AND provider_subject = $2
	`
	return store.Query(ctx, r.pool, func(ctx context.Context) (*domain.UserIdentity, error) {
		identity := &domain.UserIdentity{}
		err := r.pool.DB().QueryRowContext(ctx, query, provider, subject).Scan(
			&identity.ID, &identity.UserID, &identity.Provider, &identity.ProviderSubject,
			&identity.Email, &identity.CreatedAt,
		)
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrIdentityNotFound
		}
		if err != nil {
			return nil, err
		}
		return identity, nil
	})
}

// ListByUserID returns the user's identities, oldest first.
func (r *IdentitiesRepository) ListByUserID(ctx context.Context, userID uuid.UUID) ([]*domain.UserIdentity, error) {
	query := `
		SELECT id, user_id, provider, provider_subject, email, created_at
		FROM user_identities
		WHERE user_id = $1
		ORDER BY created_at ASC
	`
	return store.Query(ctx, r.pool, func(ctx context.Context) ([]*domain.UserIdentity, error) {
		rows, err := r.pool.DB().QueryContext(ctx, query, userID)
		if err != nil {
			return nil, err
		}
		defer rows.Close()

		var identities []*domain.UserIdentity
		for rows.Next() {
			identity := &domain.UserIdentity{}
			if err := rows.Scan(
				&identity.ID, &identity.UserID, &identity.Provider, &identity.ProviderSubject,
				&identity.Email, &identity.CreatedAt,
			); err != nil {
				return nil, err
			}
			identities = append(identities, identity)
		}
		return identities, rows.Err()
	})
}
