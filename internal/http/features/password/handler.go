package password

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/AlfredLandry1/blisslearn-sub002/internal/httputil"
	"github.com/AlfredLandry1/blisslearn-sub002/pkg/auth"
	"github.com/AlfredLandry1/blisslearn-sub002/pkg/domain"
)

// Passwords registers and authenticates password accounts.
type Passwords interface {
	Register(ctx context.Context, email, password, name string, username *string) (*domain.User, error)
	Authenticate(ctx context.Context, identifier, password string) (*domain.User, error)
}

// Sessions issues sessions after a successful sign-in.
type Sessions interface {
	IssueSession(ctx context.Context, userID uuid.UUID, opts auth.IssueSessionOpts) (*domain.TokenPair, error)
	RefreshTokenTTL() time.Duration
}

// Recovery runs the reset and verification flows.
type Recovery interface {
	RequestPasswordReset(ctx context.Context, email string) error
	ResetPassword(ctx context.Context, rawToken, newPassword string) error
	SendEmailVerification(ctx context.Context, user *domain.User) error
}

// Handler handles password authentication endpoints.
type Handler struct {
	logger          *slog.Logger
	passwords       Passwords
	sessions        Sessions
	recovery        Recovery
	cookieConfig    httputil.CookieConfig
	requireVerified bool
}

// NewHandler creates a new password handler. When requireVerified is set,
// login is refused until the email address is verified.
func NewHandler(logger *slog.Logger, passwords Passwords, sessions Sessions, recovery Recovery, cookies httputil.CookieConfig, requireVerified bool) *Handler {
	return &Handler{
		logger:          logger,
		passwords:       passwords,
		sessions:        sessions,
		recovery:        recovery,
		cookieConfig:    cookies,
		requireVerified: requireVerified,
	}
}

// RegisterRequest represents a registration request.
type RegisterRequest struct {
	Email    string  `json:"email"`
	Username *string `json:"username,omitempty"`
	Password string  `json:"password"`
	Name     string  `json:"name"`
}

// LoginRequest represents a login request.
type LoginRequest struct {
	Identifier string `json:"identifier,omitempty"` // email or username
	Email      string `json:"email,omitempty"`
	Password   string `json:"password"`
}

// PasswordResetRequestRequest represents a password reset request.
type PasswordResetRequestRequest struct {
	Email string `json:"email"`
}

// PasswordResetRequest represents a password reset.
type PasswordResetRequest struct {
	Token       string `json:"token"`
	NewPassword string `json:"new_password"`
}

// Register handles user registration.
// POST /v1/auth/password/register
//
// For web clients: Sets HttpOnly cookies, returns minimal response.
// For mobile clients (X-Client-Type: mobile): Returns tokens in response body.
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if !httputil.Decode(w, r, &req) {
		return
	}

	if strings.TrimSpace(req.Email) == "" || req.Password == "" {
		httputil.Error(w, http.StatusBadRequest, "email and password are required")
		return
	}

	var username *string
	if req.Username != nil && *req.Username != "" {
		username = req.Username
	}

	user, err := h.passwords.Register(r.Context(), req.Email, req.Password, req.Name, username)
	if err != nil {
		httputil.WriteError(w, h.logger, err)
		return
	}

	tokens, err := h.sessions.IssueSession(r.Context(), user.ID, sessionOpts(r))
	if err != nil {
		httputil.WriteError(w, h.logger, err)
		return
	}

	// The account exists either way; the user can ask for a new link.
	if err := h.recovery.SendEmailVerification(r.Context(), user); err != nil {
		h.logger.Error("failed to send verification email after registration", "error", err, "user_id", user.ID)
	}

	h.logger.Info("user registered", "user_id", user.ID)
	httputil.WriteTokens(w, r, http.StatusCreated, tokens, h.sessions.RefreshTokenTTL(), h.cookieConfig)
}

// Login handles user login.
// POST /v1/auth/password/login
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if !httputil.Decode(w, r, &req) {
		return
	}

	identifier := req.Identifier
	if identifier == "" {
		identifier = req.Email
	}
	if identifier == "" || req.Password == "" {
		httputil.Error(w, http.StatusBadRequest, "email/username and password are required")
		return
	}

	user, err := h.passwords.Authenticate(r.Context(), identifier, req.Password)
	if err != nil {
		httputil.WriteError(w, h.logger, err)
		return
	}

	if h.requireVerified && !user.EmailVerified() {
		httputil.Error(w, http.StatusForbidden, "email verification required, check your inbox for the verification link")
		return
	}

	tokens, err := h.sessions.IssueSession(r.Context(), user.ID, sessionOpts(r))
	if err != nil {
		httputil.WriteError(w, h.logger, err)
		return
	}

	httputil.WriteTokens(w, r, http.StatusOK, tokens, h.sessions.RefreshTokenTTL(), h.cookieConfig)
}

// RequestPasswordReset handles password reset requests.
// POST /v1/auth/password/reset-request
func (h *Handler) RequestPasswordReset(w http.ResponseWriter, r *http.Request) {
	var req PasswordResetRequestRequest
	if !httputil.Decode(w, r, &req) {
		return
	}

	if strings.TrimSpace(req.Email) == "" {
		httputil.Error(w, http.StatusBadRequest, "email is required")
		return
	}

	if err := h.recovery.RequestPasswordReset(r.Context(), req.Email); err != nil {
		httputil.WriteError(w, h.logger, err)
		return
	}

	httputil.Message(w, auth.ResetRequestedMessage)
}

// ResetPassword handles password resets.
// POST /v1/auth/password/reset
func (h *Handler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	var req PasswordResetRequest
	if !httputil.Decode(w, r, &req) {
		return
	}

	if req.Token == "" {
		httputil.Error(w, http.StatusBadRequest, "token is required")
		return
	}
	if req.NewPassword == "" {
		httputil.Error(w, http.StatusBadRequest, "new password is required")
		return
	}

	if err := h.recovery.ResetPassword(r.Context(), req.Token, req.NewPassword); err != nil {
		httputil.WriteError(w, h.logger, err)
		return
	}

	httputil.Message(w, "Password reset successful")
}

func sessionOpts(r *http.Request) auth.IssueSessionOpts {
	return auth.IssueSessionOpts{
		IP:        auth.ClientIP(r),
		UserAgent: r.UserAgent(),
		Request:   r,
	}
}
