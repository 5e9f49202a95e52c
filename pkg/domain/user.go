package domain

import (
	"time"

	"github.com/google/uuid"
)

// User represents a learner account.
type User struct {
	ID                  uuid.UUID
	Email               string
	Username            *string
	Name                *string
	EmailVerifiedAt     *time.Time
	OnboardingCompleted bool
	FailedLoginAttempts int
	LockedUntil         *time.Time
	CreatedAt           time.Time
	UpdatedAt           time.Time
	DeletedAt           *time.Time
}

// EmailVerified reports whether the email address has been confirmed.
func (u *User) EmailVerified() bool {
	return u.EmailVerifiedAt != nil
}

// IsLocked returns true if the account is currently locked.
func (u *User) IsLocked() bool {
	if u.LockedUntil == nil {
		return false
	}
	return time.Now().Before(*u.LockedUntil)
}

// DisplayName returns the name, or the email when no name is set.
func (u *User) DisplayName() string {
	if u.Name != nil && *u.Name != "" {
		return *u.Name
	}
	return u.Email
}

// UserPassword stores password credentials separately from the profile.
// Accounts created through an identity provider have no row.
type UserPassword struct {
	UserID            uuid.UUID
	PasswordHash      string
	PasswordUpdatedAt time.Time
}

// UserIdentity links a user to an external identity provider.
type UserIdentity struct {
	ID              uuid.UUID
	UserID          uuid.UUID
	Provider        string
	ProviderSubject string
	Email           *string
	CreatedAt       time.Time
}

// Identity providers.
const (
	ProviderGoogle   = "google"
	ProviderGitHub   = "github"
	ProviderLinkedIn = "linkedin"
)

// ProviderProfile is what an identity provider vouches for after a
// successful sign-in.
type ProviderProfile struct {
	Provider      string
	Subject       string
	Email         string
	EmailVerified bool
	Name          string
}
