package auth

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/argon2"

	"github.com/AlfredLandry1/blisslearn-sub002/internal/store"
	"github.com/AlfredLandry1/blisslearn-sub002/pkg/domain"
	"github.com/AlfredLandry1/blisslearn-sub002/pkg/repository"
)

// Argon2 parameters (OWASP recommended)
const (
	argon2Time    = 1
	argon2Memory  = 64 * 1024 // 64 MB
	argon2Threads = 4
	argon2KeyLen  = 32
	saltLen       = 16
)

// Lockout policy for password sign-in.
const (
	MaxFailedLoginAttempts = 5
	LockoutDuration        = 15 * time.Minute
)

// EmailRules controls how strictly addresses are checked.
type EmailRules struct {
	Strict          bool
	BlockDisposable bool
}

// Validate checks email and returns a *ValidationError on failure.
func (r EmailRules) Validate(email string) error {
	if err := ValidateEmail(email, r.Strict, r.BlockDisposable); err != nil {
		return &ValidationError{Field: "email", Message: err.Error()}
	}
	return nil
}

// PasswordService handles password authentication.
type PasswordService struct {
	pool   *store.Pool
	users  *repository.UsersRepository
	creds  *repository.CredentialsRepository
	policy *PasswordPolicy
	email  EmailRules
}

// NewPasswordService creates a new password service.
func NewPasswordService(pool *store.Pool, users *repository.UsersRepository, creds *repository.CredentialsRepository, policy *PasswordPolicy, email EmailRules) *PasswordService {
	if policy == nil {
		policy = DefaultPasswordPolicy()
	}
	return &PasswordService{
		pool:   pool,
		users:  users,
		creds:  creds,
		policy: policy,
		email:  email,
	}
}

// Register creates a new user with password credentials.
func (s *PasswordService) Register(ctx context.Context, email, password, name string, username *string) (*domain.User, error) {
	if err := s.email.Validate(email); err != nil {
		return nil, err
	}
	email = NormalizeEmail(email)

	if err := s.policy.ValidatePassword(password); err != nil {
		return nil, err
	}

	name = SanitizeName(name)

	exists, err := s.users.ExistsByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, domain.ErrUserAlreadyExists
	}

	if username != nil && *username != "" {
		if err := ValidateUsername(*username); err != nil {
			return nil, err
		}
		exists, err := s.users.ExistsByUsername(ctx, *username)
		if err != nil {
			return nil, err
		}
		if exists {
			return nil, domain.ErrUsernameAlreadyExists
		}
	}

	hash, err := HashPassword(password)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	user := &domain.User{
		ID:        uuid.New(),
		Email:     email,
		Username:  username,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if name != "" {
		user.Name = &name
	}

	cred := &domain.UserPassword{
		UserID:            user.ID,
		PasswordHash:      hash,
		PasswordUpdatedAt: now,
	}

	err = s.pool.Tx(ctx, func(ctx context.Context, q store.Querier) error {
		if err := s.users.CreateTx(ctx, q, user); err != nil {
			return err
		}
		return s.creds.CreateTx(ctx, q, cred)
	})
	if err != nil {
		return nil, err
	}

	return user, nil
}

// Authenticate verifies identifier (email or username) and password and
// returns the user on success. The account is locked for LockoutDuration
// after MaxFailedLoginAttempts consecutive failures.
func (s *PasswordService) Authenticate(ctx context.Context, identifier, password string) (*domain.User, error) {
	if IsEmail(identifier) {
		identifier = NormalizeEmail(identifier)
	}

	user, err := s.users.GetByEmailOrUsername(ctx, identifier)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return nil, domain.ErrInvalidCredentials
		}
		return nil, err
	}

	if user.IsLocked() {
		return nil, domain.ErrAccountLocked
	}

	cred, err := s.creds.GetByUserID(ctx, user.ID)
	if err != nil {
		if errors.Is(err, domain.ErrPasswordNotSet) {
			return nil, domain.ErrInvalidCredentials
		}
		return nil, err
	}

	if !VerifyPassword(password, cred.PasswordHash) {
		_ = s.users.IncrementFailedLoginAttempts(ctx, user.ID, time.Now().Add(LockoutDuration), MaxFailedLoginAttempts)
		return nil, domain.ErrInvalidCredentials
	}

	if user.FailedLoginAttempts > 0 || user.LockedUntil != nil {
		_ = s.users.ResetFailedLoginAttempts(ctx, user.ID)
	}

	return user, nil
}

// HashPassword hashes a password using Argon2id.
func HashPassword(password string) (string, error) {
	salt := make([]byte, saltLen)
	if _, err := randomBytes(salt); err != nil {
		return "", err
	}

	hash := argon2.IDKey([]byte(password), salt, argon2Time, argon2Memory, argon2Threads, argon2KeyLen)

	// $argon2id$v=19$m=65536,t=1,p=4$<salt>$<hash>
	return encodeArgon2Hash(hash, salt, argon2Time, argon2Memory, argon2Threads), nil
}

// VerifyPassword verifies a password against an Argon2id hash.
func VerifyPassword(password, encodedHash string) bool {
	hash, salt, time, memory, threads, err := decodeArgon2Hash(encodedHash)
	if err != nil {
		return false
	}

	computed := argon2.IDKey([]byte(password), salt, time, memory, threads, uint32(len(hash)))
	return constantTimeCompare(hash, computed)
}
