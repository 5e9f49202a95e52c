package auth

import (
	"context"
	"fmt"
	"log/slog"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/AlfredLandry1/blisslearn-sub002/pkg/domain"
)

// MaxNameLength bounds display names, counted in runes.
const MaxNameLength = 100

// AccountUsers is the subset of the users repository the account service needs.
type AccountUsers interface {
	GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error)
	ExistsByEmail(ctx context.Context, email string) (bool, error)
	Update(ctx context.Context, user *domain.User) error
	Delete(ctx context.Context, id uuid.UUID) error
}

// VerificationSender emails a verification link. *RecoveryService
// implements it.
type VerificationSender interface {
	SendEmailVerification(ctx context.Context, user *domain.User) error
}

// ProfileUpdate holds the editable profile fields. Nil fields are left
// unchanged.
type ProfileUpdate struct {
	Name  *string `json:"name"`
	Email *string `json:"email"`
}

// AccountService manages the signed-in user's own account.
type AccountService struct {
	users    AccountUsers
	verifier VerificationSender
	email    EmailRules
	logger   *slog.Logger
}

// NewAccountService creates an account service. verifier may be nil.
func NewAccountService(users AccountUsers, verifier VerificationSender, email EmailRules, logger *slog.Logger) *AccountService {
	if logger == nil {
		logger = slog.Default()
	}
	return &AccountService{users: users, verifier: verifier, email: email, logger: logger}
}

// Get returns the user.
func (s *AccountService) Get(ctx context.Context, userID uuid.UUID) (*domain.User, error) {
	return s.users.GetByID(ctx, userID)
}

// Update applies upd. Changing the email clears its verification and sends
// a link to the new address; the returned flag reports whether that happened.
func (s *AccountService) Update(ctx context.Context, userID uuid.UUID, upd ProfileUpdate) (*domain.User, bool, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, false, err
	}

	if upd.Name != nil {
		name := SanitizeName(*upd.Name)
		if utf8.RuneCountInString(name) > MaxNameLength {
			return nil, false, &ValidationError{Field: "name", Message: fmt.Sprintf("name must be at most %d characters", MaxNameLength)}
		}
		if name == "" {
			user.Name = nil
		} else {
			user.Name = &name
		}
	}

	emailChanged := false
	if upd.Email != nil {
		if err := s.email.Validate(*upd.Email); err != nil {
			return nil, false, err
		}
		email := NormalizeEmail(*upd.Email)
		if email != user.Email {
			exists, err := s.users.ExistsByEmail(ctx, email)
			if err != nil {
				return nil, false, err
			}
			if exists {
				return nil, false, domain.ErrUserAlreadyExists
			}
			user.Email = email
			user.EmailVerifiedAt = nil
			emailChanged = true
		}
	}

	if err := s.users.Update(ctx, user); err != nil {
		return nil, false, err
	}

	if emailChanged && s.verifier != nil {
		if err := s.verifier.SendEmailVerification(ctx, user); err != nil {
			s.logger.Error("failed to send verification for new email", "error", err, "user_id", user.ID)
		}
	}
	return user, emailChanged, nil
}

// Delete removes the account and everything attached to it.
func (s *AccountService) Delete(ctx context.Context, userID uuid.UUID) error {
	if err := s.users.Delete(ctx, userID); err != nil {
		return err
	}
	s.logger.Info("account deleted", "user_id", userID)
	return nil
}
