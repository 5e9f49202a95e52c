package domain

import (
	"time"

	"github.com/google/uuid"
)

// TokenPurpose scopes a verification token to a single flow.
type TokenPurpose string

const (
	PurposePasswordReset     TokenPurpose = "password_reset"
	PurposeEmailVerification TokenPurpose = "email_verification"
)

// Valid reports whether p is a known purpose.
func (p TokenPurpose) Valid() bool {
	return p == PurposePasswordReset || p == PurposeEmailVerification
}

// VerificationToken is a single-use, time-boxed secret. Only the SHA-256
// hash of the raw value is stored.
type VerificationToken struct {
	ID        uuid.UUID
	UserID    uuid.UUID
	Purpose   TokenPurpose
	TokenHash string
	CreatedAt time.Time
	ExpiresAt time.Time
}

// ExpiredAt reports whether the token is no longer valid at now. A token is
// expired from its expiry instant onward.
func (t *VerificationToken) ExpiredAt(now time.Time) bool {
	return !now.Before(t.ExpiresAt)
}
