package auth

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/AlfredLandry1/blisslearn-sub002/internal/store"
	"github.com/AlfredLandry1/blisslearn-sub002/pkg/domain"
	"github.com/AlfredLandry1/blisslearn-sub002/pkg/repository"
)

// IdentityService signs users in with a profile an identity provider has
// already vouched for. The provider handshake itself happens elsewhere.
type IdentityService struct {
	pool       *store.Pool
	users      *repository.UsersRepository
	identities *repository.IdentitiesRepository
}

// NewIdentityService creates a new identity service.
func NewIdentityService(pool *store.Pool, users *repository.UsersRepository, identities *repository.IdentitiesRepository) *IdentityService {
	return &IdentityService{pool: pool, users: users, identities: identities}
}

// SignInWithProvider returns the user linked to profile, linking or creating
// one if needed:
//  1. a known (provider, subject) returns its user;
//  2. a verified provider email matching an account links to that account;
//  3. otherwise a provider-only account without a password is created.
//
// An unverified provider email that matches an existing account is refused
// with domain.ErrUserAlreadyExists. A profile without an email is refused.
func (s *IdentityService) SignInWithProvider(ctx context.Context, profile domain.ProviderProfile) (uuid.UUID, error) {
	if profile.Provider == "" || profile.Subject == "" {
		return uuid.Nil, &ValidationError{Field: "provider", Message: "provider and subject are required"}
	}
	email := NormalizeEmail(profile.Email)
	if email == "" {
		return uuid.Nil, &ValidationError{Field: "email", Message: "provider profile has no email"}
	}

	identity, err := s.identities.GetByProviderSubject(ctx, profile.Provider, profile.Subject)
	if err == nil {
		return identity.UserID, nil
	}
	if !errors.Is(err, domain.ErrIdentityNotFound) {
		return uuid.Nil, err
	}

	now := time.Now()
	user, err := s.users.GetByEmail(ctx, email)
	switch {
	case err == nil && profile.EmailVerified:
		link := &domain.UserIdentity{
			ID:              uuid.New(),
			UserID:          user.ID,
			Provider:        profile.Provider,
			ProviderSubject: profile.Subject,
			Email:           &email,
			CreatedAt:       now,
		}
		if err := s.identities.Create(ctx, link); err != nil {
			return uuid.Nil, err
		}
		return user.ID, nil
	case err == nil:
		return uuid.Nil, domain.ErrUserAlreadyExists
	case !errors.Is(err, domain.ErrUserNotFound):
		return uuid.Nil, err
	}

	newUser := &domain.User{
		ID:        uuid.New(),
		Email:     email,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if name := SanitizeName(profile.Name); name != "" {
		newUser.Name = &name
	}
	if profile.EmailVerified {
		newUser.EmailVerifiedAt = &now
	}

	newIdentity := &domain.UserIdentity{
		ID:              uuid.New(),
		UserID:          newUser.ID,
		Provider:        profile.Provider,
		ProviderSubject: profile.Subject,
		Email:           &email,
		CreatedAt:       now,
	}

	err = s.pool.Tx(ctx, func(ctx context.Context, q store.Querier) error {
		if err := s.users.CreateTx(ctx, q, newUser); err != nil {
			return err
		}
		return s.identities.CreateTx(ctx, q, newIdentity)
	})
	if err != nil {
		return uuid.Nil, err
	}

	return newUser.ID, nil
}
