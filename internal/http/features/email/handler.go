package email

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/AlfredLandry1/blisslearn-sub002/internal/http/middleware"
	"github.com/AlfredLandry1/blisslearn-sub002/internal/httputil"
	"github.com/AlfredLandry1/blisslearn-sub002/pkg/auth"
)

// Verifier runs the email verification flow. *auth.RecoveryService
// implements it.
type Verifier interface {
	VerifyEmail(ctx context.Context, rawToken string) (uuid.UUID, error)
	RequestEmailVerification(ctx context.Context, email string) error
	ResendVerification(ctx context.Context, userID uuid.UUID) (bool, error)
}

type Handler struct {
	logger   *slog.Logger
	verifier Verifier
}

func NewHandler(logger *slog.Logger, verifier Verifier) *Handler {
	return &Handler{logger: logger, verifier: verifier}
}

type VerifyEmailRequest struct {
	Token string `json:"token"`
}

type RequestVerificationRequest struct {
	Email string `json:"email"`
}

// VerifyEmail handles email verification.
// POST /v1/auth/verify-email
func (h *Handler) VerifyEmail(w http.ResponseWriter, r *http.Request) {
	// Support both query parameter and JSON body
	token := r.URL.Query().Get("token")
	if token == "" {
		var req VerifyEmailRequest
		if !httputil.Decode(w, r, &req) {
			return
		}
		token = req.Token
	}

	if token == "" {
		httputil.Error(w, http.StatusBadRequest, "token is required")
		return
	}

	if _, err := h.verifier.VerifyEmail(r.Context(), token); err != nil {
		httputil.WriteError(w, h.logger, err)
		return
	}

	httputil.Message(w, "Email verified successfully")
}

// RequestVerificationEmail sends a new link to an unverified address.
// POST /v1/auth/request-verification
func (h *Handler) RequestVerificationEmail(w http.ResponseWriter, r *http.Request) {
	var req RequestVerificationRequest
	if !httputil.Decode(w, r, &req) {
		return
	}

	if strings.TrimSpace(req.Email) == "" {
		httputil.Error(w, http.StatusBadRequest, "email is required")
		return
	}

	if err := h.verifier.RequestEmailVerification(r.Context(), req.Email); err != nil {
		httputil.WriteError(w, h.logger, err)
		return
	}

	httputil.Message(w, auth.VerificationRequestedMessage)
}

// ResendVerificationEmail resends the verification email.
// POST /v1/auth/resend-verification
// Requires authentication.
func (h *Handler) ResendVerificationEmail(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		httputil.Error(w, http.StatusUnauthorized, "authentication required")
		return
	}

	sent, err := h.verifier.ResendVerification(r.Context(), userID)
	if err != nil {
		httputil.WriteError(w, h.logger, err)
		return
	}
	if !sent {
		httputil.Error(w, http.StatusBadRequest, "email already verified")
		return
	}

	h.logger.Info("verification email resent", "user_id", userID)
	httputil.Message(w, "Verification email sent")
}
