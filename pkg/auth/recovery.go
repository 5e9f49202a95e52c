package auth

import (
	"context"
	"errors"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/AlfredLandry1/blisslearn-sub002/internal/store"
	"github.com/AlfredLandry1/blisslearn-sub002/pkg/domain"
)

// Messages returned to clients regardless of whether the account exists.
const (
	ResetRequestedMessage        = "If an account exists with that email, a password reset link has been sent"
	VerificationRequestedMessage = "If an unverified account exists with that email, a verification link has been sent"
)

// AccountStore is the subset of the users repository recovery needs.
type AccountStore interface {
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error)
	MarkEmailVerifiedTx(ctx context.Context, q store.Querier, userID uuid.UUID, at time.Time) error
}

// CredentialStore is the subset of the credentials repository recovery needs.
type CredentialStore interface {
	HasPassword(ctx context.Context, userID uuid.UUID) (bool, error)
	UpsertTx(ctx context.Context, q store.Querier, cred *domain.UserPassword) error
}

// IdentityLister lists the identity providers linked to a user.
type IdentityLister interface {
	ListByUserID(ctx context.Context, userID uuid.UUID) ([]*domain.UserIdentity, error)
}

// Tokens is the token lifecycle used by recovery. *TokenService implements it.
type Tokens interface {
	Issue(ctx context.Context, userID uuid.UUID, purpose domain.TokenPurpose) (string, *domain.VerificationToken, error)
	Consume(ctx context.Context, purpose domain.TokenPurpose, raw string, effect TokenEffect) (*domain.VerificationToken, error)
	Delete(ctx context.Context, userID uuid.UUID, purpose domain.TokenPurpose) error
	TTL(purpose domain.TokenPurpose) time.Duration
}

// RecoveryMailer sends the account emails. Delivery failures are returned as
// *mailer.DeliveryError.
type RecoveryMailer interface {
	SendPasswordReset(ctx context.Context, to, name, link string, validFor time.Duration) error
	SendPasswordChanged(ctx context.Context, to, name string) error
	SendVerification(ctx context.Context, to, name, link string, validFor time.Duration) error
}

// SessionRevoker ends every session of a user.
type SessionRevoker interface {
	RevokeAllSessions(ctx context.Context, userID uuid.UUID) error
}

// Notifier creates in-app notifications.
type Notifier interface {
	Notify(ctx context.Context, userID uuid.UUID, kind domain.NotificationKind, title, message string) error
}

// RecoveryDeps groups the collaborators of RecoveryService.
type RecoveryDeps struct {
	Users      AccountStore
	Creds      CredentialStore
	Identities IdentityLister
	Tokens     Tokens
	Mailer     RecoveryMailer
	Sessions   SessionRevoker
	Notifier   Notifier
	Policy     *PasswordPolicy
	Email      EmailRules
	AppBaseURL string
	Logger     *slog.Logger
}

// RecoveryService implements password reset and email verification.
type RecoveryService struct {
	RecoveryDeps
	now   Clock
	async func(fn func())
}

// NewRecoveryService creates a recovery service.
func NewRecoveryService(deps RecoveryDeps) *RecoveryService {
	if deps.Policy == nil {
		deps.Policy = DefaultPasswordPolicy()
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	deps.AppBaseURL = strings.TrimRight(deps.AppBaseURL, "/")
	return &RecoveryService{
		RecoveryDeps: deps,
		now:          time.Now,
		async:        func(fn func()) { go fn() },
	}
}

// RequestPasswordReset emails a reset link. Unknown addresses succeed
// silently. Accounts without a password get a *ProviderAccountError. If the
// email cannot be delivered the token is deleted and the delivery error is
// returned.
func (s *RecoveryService) RequestPasswordReset(ctx context.Context, email string) error {
	if err := s.Email.Validate(email); err != nil {
		return err
	}

	user, err := s.Users.GetByEmail(ctx, NormalizeEmail(email))
	if errors.Is(err, domain.ErrUserNotFound) {
		s.Logger.Info("password reset requested for unknown email")
		return nil
	}
	if err != nil {
		return err
	}

	hasPassword, err := s.Creds.HasPassword(ctx, user.ID)
	if err != nil {
		return err
	}
	if !hasPassword {
		return &ProviderAccountError{Provider: s.providerName(ctx, user.ID)}
	}

	raw, _, err := s.Tokens.Issue(ctx, user.ID, domain.PurposePasswordReset)
	if err != nil {
		return err
	}

	link := s.link("/reset-password", raw)
	if err := s.Mailer.SendPasswordReset(ctx, user.Email, user.DisplayName(), link, s.Tokens.TTL(domain.PurposePasswordReset)); err != nil {
		s.Logger.Error("failed to send password reset email", "error", err, "user_id", user.ID)
		if derr := s.Tokens.Delete(ctx, user.ID, domain.PurposePasswordReset); derr != nil {
			s.Logger.Error("failed to delete undelivered reset token", "error", derr, "user_id", user.ID)
		}
		return err
	}

	s.Logger.Info("password reset email sent", "user_id", user.ID)
	return nil
}

func (s *RecoveryService) providerName(ctx context.Context, userID uuid.UUID) string {
	if s.Identities != nil {
		identities, err := s.Identities.ListByUserID(ctx, userID)
		if err != nil {
			s.Logger.Warn("failed to list identities", "error", err, "user_id", userID)
		} else if len(identities) > 0 {
			return identities[0].Provider
		}
	}
	return "external"
}

// ResetPassword sets a new password using a reset token. The password is
// checked before the token is touched.
func (s *RecoveryService) ResetPassword(ctx context.Context, rawToken, newPassword string) error {
	if err := s.Policy.ValidatePassword(newPassword); err != nil {
		return err
	}

	hash, err := HashPassword(newPassword)
	if err != nil {
		return err
	}

	token, err := s.Tokens.Consume(ctx, domain.PurposePasswordReset, rawToken,
		func(ctx context.Context, q store.Querier, t *domain.VerificationToken) error {
			return s.Creds.UpsertTx(ctx, q, &domain.UserPassword{
				UserID:            t.UserID,
				PasswordHash:      hash,
				PasswordUpdatedAt: s.now(),
			})
		})
	if err != nil {
		return err
	}
	userID := token.UserID

	if s.Sessions != nil {
		if err := s.Sessions.RevokeAllSessions(ctx, userID); err != nil {
			s.Logger.Error("failed to revoke sessions", "error", err, "user_id", userID)
		}
	}

	user, err := s.Users.GetByID(ctx, userID)
	if err != nil {
		s.Logger.Error("failed to load user after password reset", "error", err, "user_id", userID)
	} else {
		bg := context.WithoutCancel(ctx)
		s.async(func() {
			if err := s.Mailer.SendPasswordChanged(bg, user.Email, user.DisplayName()); err != nil {
				s.Logger.Error("failed to send password changed email", "error", err, "user_id", userID)
			}
		})
	}

	s.notify(ctx, userID, domain.NotificationSuccess, "Password updated", "Your password was changed. If this wasn't you, contact support.")
	s.Logger.Info("password reset successful", "user_id", userID)
	return nil
}

// SendEmailVerification emails a verification link to user. If the email
// cannot be delivered the token is deleted and the delivery error returned.
func (s *RecoveryService) SendEmailVerification(ctx context.Context, user *domain.User) error {
	raw, _, err := s.Tokens.Issue(ctx, user.ID, domain.PurposeEmailVerification)
	if err != nil {
		return err
	}

	link := s.link("/verify-email", raw)
	if err := s.Mailer.SendVerification(ctx, user.Email, user.DisplayName(), link, s.Tokens.TTL(domain.PurposeEmailVerification)); err != nil {
		s.Logger.Error("failed to send verification email", "error", err, "user_id", user.ID)
		if derr := s.Tokens.Delete(ctx, user.ID, domain.PurposeEmailVerification); derr != nil {
			s.Logger.Error("failed to delete undelivered verification token", "error", derr, "user_id", user.ID)
		}
		return err
	}

	s.Logger.Info("verification email sent", "user_id", user.ID)
	return nil
}

// RequestEmailVerification is the public resend. It reveals nothing: unknown
// or already verified addresses and delivery failures all return nil.
func (s *RecoveryService) RequestEmailVerification(ctx context.Context, email string) error {
	if err := s.Email.Validate(email); err != nil {
		return err
	}

	user, err := s.Users.GetByEmail(ctx, NormalizeEmail(email))
	if errors.Is(err, domain.ErrUserNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	if user.EmailVerified() {
		return nil
	}

	if err := s.SendEmailVerification(ctx, user); err != nil && !isDelivery(err) {
		return err
	}
	return nil
}

// ResendVerification sends a new link to the signed-in user. It reports
// false when the address is already verified.
func (s *RecoveryService) ResendVerification(ctx context.Context, userID uuid.UUID) (bool, error) {
	user, err := s.Users.GetByID(ctx, userID)
	if err != nil {
		return false, err
	}
	if user.EmailVerified() {
		return false, nil
	}
	if err := s.SendEmailVerification(ctx, user); err != nil {
		return false, err
	}
	return true, nil
}

// VerifyEmail consumes a verification token and marks the address verified.
func (s *RecoveryService) VerifyEmail(ctx context.Context, rawToken string) (uuid.UUID, error) {
	token, err := s.Tokens.Consume(ctx, domain.PurposeEmailVerification, rawToken,
		func(ctx context.Context, q store.Querier, t *domain.VerificationToken) error {
			return s.Users.MarkEmailVerifiedTx(ctx, q, t.UserID, s.now())
		})
	if err != nil {
		return uuid.Nil, err
	}

	s.notify(ctx, token.UserID, domain.NotificationSuccess, "Email verified", "Your email address has been verified.")
	s.Logger.Info("email verified", "user_id", token.UserID)
	return token.UserID, nil
}

func (s *RecoveryService) notify(ctx context.Context, userID uuid.UUID, kind domain.NotificationKind, title, message string) {
	if s.Notifier == nil {
		return
	}
	if err := s.Notifier.Notify(ctx, userID, kind, title, message); err != nil {
		s.Logger.Warn("failed to create notification", "error", err, "user_id", userID)
	}
}

func (s *RecoveryService) link(path, token string) string {
	return s.AppBaseURL + path + "?token=" + url.QueryEscape(token)
}

// isDelivery reports whether err came from the mail provider rather than
// from the store.
func isDelivery(err error) bool {
	var d interface{ Delivery() bool }
	return errors.As(err, &d) && d.Delivery()
}
