package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/AlfredLandry1/blisslearn-sub002/internal/store"
	"github.com/AlfredLandry1/blisslearn-sub002/pkg/domain"
)

const (
	tokenBytes = 32

	DefaultPasswordResetTTL     = time.Hour
	DefaultEmailVerificationTTL = 24 * time.Hour
)

// Clock returns the current time.
type Clock func() time.Time

// TxRunner runs fn inside a database transaction. *store.Pool implements it.
type TxRunner interface {
	Tx(ctx context.Context, fn func(ctx context.Context, q store.Querier) error) error
}

// TokenStore persists verification tokens. *repository.VerificationTokensRepository
// implements it.
type TokenStore interface {
	Upsert(ctx context.Context, q store.Querier, token *domain.VerificationToken) error
	GetByHashForUpdate(ctx context.Context, q store.Querier, purpose domain.TokenPurpose, tokenHash string) (*domain.VerificationToken, error)
	DeleteByID(ctx context.Context, q store.Querier, id uuid.UUID) error
	DeleteByUserAndPurpose(ctx context.Context, q store.Querier, userID uuid.UUID, purpose domain.TokenPurpose) (int64, error)
}

// TokenEffect is applied in the same transaction that consumes a token.
type TokenEffect func(ctx context.Context, q store.Querier, token *domain.VerificationToken) error

// TokenConfig holds token lifetimes.
type TokenConfig struct {
	PasswordResetTTL     time.Duration
	EmailVerificationTTL time.Duration
}

// TokenService issues and consumes single-use verification tokens.
type TokenService struct {
	tx     TxRunner
	tokens TokenStore
	ttl    map[domain.TokenPurpose]time.Duration
	now    Clock
}

// NewTokenService creates a token service. Zero TTLs fall back to one hour
// for password resets and 24 hours for email verification.
func NewTokenService(tx TxRunner, tokens TokenStore, cfg TokenConfig) *TokenService {
	if cfg.PasswordResetTTL <= 0 {
		cfg.PasswordResetTTL = DefaultPasswordResetTTL
	}
	if cfg.EmailVerificationTTL <= 0 {
		cfg.EmailVerificationTTL = DefaultEmailVerificationTTL
	}
	return &TokenService{
		tx:     tx,
		tokens: tokens,
		ttl: map[domain.TokenPurpose]time.Duration{
			domain.PurposePasswordReset:     cfg.PasswordResetTTL,
			domain.PurposeEmailVerification: cfg.EmailVerificationTTL,
		},
		now: time.Now,
	}
}

// WithClock replaces the time source.
func (s *TokenService) WithClock(now Clock) *TokenService {
	s.now = now
	return s
}

// TTL returns the lifetime of tokens issued for purpose.
func (s *TokenService) TTL(purpose domain.TokenPurpose) time.Duration {
	return s.ttl[purpose]
}

// Issue creates a token for (userID, purpose), replacing any live one, and
// returns the raw value. The raw value is never stored.
func (s *TokenService) Issue(ctx context.Context, userID uuid.UUID, purpose domain.TokenPurpose) (string, *domain.VerificationToken, error) {
	if !purpose.Valid() {
		return "", nil, fmt.Errorf("unknown token purpose %q", purpose)
	}

	raw, err := GenerateToken(tokenBytes)
	if err != nil {
		return "", nil, err
	}

	now := s.now()
	token := &domain.VerificationToken{
		ID:        uuid.New(),
		UserID:    userID,
		Purpose:   purpose,
		TokenHash: HashToken(raw),
		CreatedAt: now,
		ExpiresAt: now.Add(s.ttl[purpose]),
	}

	err = s.tx.Tx(ctx, func(ctx context.Context, q store.Querier) error {
		if _, err := s.tokens.DeleteByUserAndPurpose(ctx, q, userID, purpose); err != nil {
			return err
		}
		return s.tokens.Upsert(ctx, q, token)
	})
	if err != nil {
		return "", nil, err
	}
	return raw, token, nil
}

// Consume redeems a raw token. An unknown token yields domain.ErrInvalidToken.
// An expired one is deleted and yields domain.ErrExpiredToken. Otherwise
// effect runs and every token of the owner for the same purpose is deleted,
// all in one transaction; if effect fails nothing is consumed.
func (s *TokenService) Consume(ctx context.Context, purpose domain.TokenPurpose, raw string, effect TokenEffect) (*domain.VerificationToken, error) {
	if raw == "" {
		return nil, domain.ErrInvalidToken
	}
	hash := HashToken(raw)

	var (
		expired  bool
		consumed *domain.VerificationToken
	)
	err := s.tx.Tx(ctx, func(ctx context.Context, q store.Querier) error {
		expired, consumed = false, nil

		token, err := s.tokens.GetByHashForUpdate(ctx, q, purpose, hash)
		if errors.Is(err, domain.ErrTokenNotFound) {
			return domain.ErrInvalidToken
		}
		if err != nil {
			return err
		}

		if token.ExpiredAt(s.now()) {
			expired = true
			return s.tokens.DeleteByID(ctx, q, token.ID)
		}

		if effect != nil {
			if err := effect(ctx, q, token); err != nil {
				return err
			}
		}
		if _, err := s.tokens.DeleteByUserAndPurpose(ctx, q, token.UserID, purpose); err != nil {
			return err
		}
		consumed = token
		return nil
	})
	if err != nil {
		return nil, err
	}
	if expired {
		return nil, domain.ErrExpiredToken
	}
	return consumed, nil
}

// Delete removes the owner's tokens for purpose. Used to undo Issue when the
// link could not be delivered.
func (s *TokenService) Delete(ctx context.Context, userID uuid.UUID, purpose domain.TokenPurpose) error {
	return s.tx.Tx(ctx, func(ctx context.Context, q store.Querier) error {
		_, err := s.tokens.DeleteByUserAndPurpose(ctx, q, userID, purpose)
		return err
	})
}
