package auth

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/AlfredLandry1/blisslearn-sub002/internal/config"
)

// PasswordPolicy defines password complexity requirements.
type PasswordPolicy struct {
	MinLength        int
	RequireUppercase bool
	RequireLowercase bool
	RequireNumber    bool
	RequireSpecial   bool
}

// NewPasswordPolicy creates a PasswordPolicy from config.
func NewPasswordPolicy(cfg config.PasswordPolicyConfig) *PasswordPolicy {
	return &PasswordPolicy{
		MinLength:        cfg.MinLength,
		RequireUppercase: cfg.RequireUppercase,
		RequireLowercase: cfg.RequireLowercase,
		RequireNumber:    cfg.RequireNumber,
		RequireSpecial:   cfg.RequireSpecial,
	}
}

// DefaultPasswordPolicy requires 8 characters with an uppercase letter, a
// lowercase letter and a number.
func DefaultPasswordPolicy() *PasswordPolicy {
	return &PasswordPolicy{
		MinLength:        8,
		RequireUppercase: true,
		RequireLowercase: true,
		RequireNumber:    true,
	}
}

// ValidatePassword checks every rule and returns a *PolicyError naming all
// of the ones that failed, or nil.
func (p *PasswordPolicy) ValidatePassword(password string) error {
	var violations []string

	if p.MinLength > 0 && utf8.RuneCountInString(password) < p.MinLength {
		violations = append(violations, fmt.Sprintf("password must be at least %d characters long", p.MinLength))
	}
	if p.RequireUppercase && !containsUppercase(password) {
		violations = append(violations, "password must contain at least one uppercase letter")
	}
	if p.RequireLowercase && !containsLowercase(password) {
		violations = append(violations, "password must contain at least one lowercase letter")
	}
	if p.RequireNumber && !containsNumber(password) {
		violations = append(violations, "password must contain at least one number")
	}
	if p.RequireSpecial && !containsSpecial(password) {
		violations = append(violations, "password must contain at least one special character")
	}

	if len(violations) > 0 {
		return &PolicyError{Violations: violations, Requirements: p.GetRequirements()}
	}
	return nil
}

// GetRequirements returns a human-readable description of the policy.
func (p *PasswordPolicy) GetRequirements() string {
	if !p.HasRequirements() {
		return "No password requirements"
	}

	var requirements []string
	if p.MinLength > 0 {
		requirements = append(requirements, fmt.Sprintf("at least %d characters", p.MinLength))
	}
	if p.RequireUppercase {
		requirements = append(requirements, "one uppercase letter")
	}
	if p.RequireLowercase {
		requirements = append(requirements, "one lowercase letter")
	}
	if p.RequireNumber {
		requirements = append(requirements, "one number")
	}
	if p.RequireSpecial {
		requirements = append(requirements, "one special character")
	}

	return "Password must contain " + strings.Join(requirements, ", ")
}

// HasRequirements returns true if the policy has any requirements.
func (p *PasswordPolicy) HasRequirements() bool {
	return p.MinLength > 0 || p.RequireUppercase || p.RequireLowercase || p.RequireNumber || p.RequireSpecial
}

func containsUppercase(s string) bool {
	return strings.IndexFunc(s, unicode.IsUpper) >= 0
}

func containsLowercase(s string) bool {
	return strings.IndexFunc(s, unicode.IsLower) >= 0
}

func containsNumber(s string) bool {
	return strings.IndexFunc(s, unicode.IsDigit) >= 0
}

func containsSpecial(s string) bool {
	return strings.IndexFunc(s, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && !unicode.IsSpace(r)
	}) >= 0
}
