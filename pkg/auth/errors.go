package auth

import (
	"fmt"
	"strings"

	"github.com/AlfredLandry1/blisslearn-sub002/pkg/domain"
)

// ValidationError is returned when input is rejected before any store
// access.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return e.Field + ": " + e.Message
}

// PolicyError lists every password rule the candidate broke.
type PolicyError struct {
	Violations []string
	// Requirements describes the whole policy.
	Requirements string
}

func (e *PolicyError) Error() string {
	return strings.Join(e.Violations, "; ")
}

// Is makes errors.Is(err, domain.ErrWeakPassword) hold.
func (e *PolicyError) Is(target error) bool {
	return target == domain.ErrWeakPassword
}

// ProviderAccountError is returned for password operations on an account
// that only signs in through an identity provider.
type ProviderAccountError struct {
	Provider string
}

func (e *ProviderAccountError) Error() string {
	return fmt.Sprintf("this account uses %s sign-in", e.Provider)
}

// Is makes errors.Is(err, domain.ErrProviderAccount) hold.
func (e *ProviderAccountError) Is(target error) bool {
	return target == domain.ErrProviderAccount
}
