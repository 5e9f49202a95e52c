package me

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/AlfredLandry1/blisslearn-sub002/internal/http/middleware"
	"github.com/AlfredLandry1/blisslearn-sub002/internal/httputil"
	"github.com/AlfredLandry1/blisslearn-sub002/pkg/auth"
	"github.com/AlfredLandry1/blisslearn-sub002/pkg/domain"
)

// Accounts reads, edits and deletes the signed-in account.
// *auth.AccountService implements it.
type Accounts interface {
	Get(ctx context.Context, userID uuid.UUID) (*domain.User, error)
	Update(ctx context.Context, userID uuid.UUID, upd auth.ProfileUpdate) (*domain.User, bool, error)
	Delete(ctx context.Context, userID uuid.UUID) error
}

// Handler handles user profile endpoints.
type Handler struct {
	logger       *slog.Logger
	accounts     Accounts
	cookieConfig httputil.CookieConfig
}

// NewHandler creates a new me handler.
func NewHandler(logger *slog.Logger, accounts Accounts, cookies httputil.CookieConfig) *Handler {
	return &Handler{logger: logger, accounts: accounts, cookieConfig: cookies}
}

// UserResponse represents the user profile response.
type UserResponse struct {
	ID                  string    `json:"id"`
	Email               string    `json:"email"`
	EmailVerified       bool      `json:"email_verified"`
	Name                *string   `json:"name,omitempty"`
	Username            *string   `json:"username,omitempty"`
	OnboardingCompleted bool      `json:"onboarding_completed"`
	CreatedAt           time.Time `json:"created_at"`
}

// UpdateResponse is returned by PATCH /v1/me.
type UpdateResponse struct {
	User    UserResponse `json:"user"`
	Message string       `json:"message,omitempty"`
}

// UpdateRequest represents a profile update request.
type UpdateRequest struct {
	Name  *string `json:"name,omitempty"`
	Email *string `json:"email,omitempty"`
}

const emailChangedMessage = "Email updated. Please check your new email address for a verification link."

func toResponse(u *domain.User) UserResponse {
	return UserResponse{
		ID:                  u.ID.String(),
		Email:               u.Email,
		EmailVerified:       u.EmailVerified(),
		Name:                u.Name,
		Username:            u.Username,
		OnboardingCompleted: u.OnboardingCompleted,
		CreatedAt:           u.CreatedAt,
	}
}

// GetMe returns the current user's profile.
// GET /v1/me
func (h *Handler) GetMe(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		httputil.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	user, err := h.accounts.Get(r.Context(), userID)
	if err != nil {
		httputil.WriteError(w, h.logger, err)
		return
	}

	httputil.JSON(w, http.StatusOK, toResponse(user))
}

// UpdateMe updates the current user's profile.
// PATCH /v1/me
// A new email address starts unverified and gets a fresh verification link.
func (h *Handler) UpdateMe(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		httputil.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req UpdateRequest
	if !httputil.Decode(w, r, &req) {
		return
	}

	user, emailChanged, err := h.accounts.Update(r.Context(), userID, auth.ProfileUpdate{Name: req.Name, Email: req.Email})
	if err != nil {
		httputil.WriteError(w, h.logger, err)
		return
	}

	resp := UpdateResponse{User: toResponse(user)}
	if emailChanged {
		resp.Message = emailChangedMessage
	}
	httputil.JSON(w, http.StatusOK, resp)
}

// DeleteMe permanently deletes the current user.
// DELETE /v1/me
func (h *Handler) DeleteMe(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		httputil.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	if err := h.accounts.Delete(r.Context(), userID); err != nil {
		httputil.WriteError(w, h.logger, err)
		return
	}

	if !httputil.IsMobileClient(r) {
		httputil.ClearAuthCookies(w, h.cookieConfig)
	}
	h.logger.Info("account deleted", "user_id", userID)
	w.WriteHeader(http.StatusNoContent)
}
