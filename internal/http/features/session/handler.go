package session

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/AlfredLandry1/blisslearn-sub002/internal/http/middleware"
	"github.com/AlfredLandry1/blisslearn-sub002/internal/httputil"
	"github.com/AlfredLandry1/blisslearn-sub002/pkg/auth"
	"github.com/AlfredLandry1/blisslearn-sub002/pkg/domain"
)

// Sessions refreshes and revokes sessions. *auth.SessionService implements it.
type Sessions interface {
	RefreshSession(ctx context.Context, refreshToken string, opts auth.IssueSessionOpts) (*domain.TokenPair, error)
	RevokeSession(ctx context.Context, refreshToken string) error
	RevokeAllSessions(ctx context.Context, userID uuid.UUID) error
	RefreshTokenTTL() time.Duration
}

// Handler handles session endpoints.
type Handler struct {
	logger         *slog.Logger
	sessionService Sessions
	cookieConfig   httputil.CookieConfig
}

// NewHandler creates a new session handler.
func NewHandler(logger *slog.Logger, sessionService Sessions, cookies httputil.CookieConfig) *Handler {
	return &Handler{
		logger:         logger,
		sessionService: sessionService,
		cookieConfig:   cookies,
	}
}

// RefreshRequest represents a token refresh request (for mobile clients).
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// LogoutRequest represents a logout request (for mobile clients).
type LogoutRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// Refresh refreshes an access token.
// POST /v1/auth/refresh
//
// For web clients: Reads refresh token from cookie, sets new cookies.
// For mobile clients: Reads/returns tokens in request/response body.
func (h *Handler) Refresh(w http.ResponseWriter, r *http.Request) {
	var refreshToken string

	if httputil.IsMobileClient(r) {
		var req RefreshRequest
		if !httputil.Decode(w, r, &req) {
			return
		}
		refreshToken = req.RefreshToken
	} else {
		var ok bool
		refreshToken, ok = httputil.GetRefreshTokenFromCookie(r)
		if !ok {
			httputil.Error(w, http.StatusUnauthorized, "refresh token not found")
			return
		}
	}

	if refreshToken == "" {
		httputil.Error(w, http.StatusBadRequest, "refresh_token is required")
		return
	}

	opts := auth.IssueSessionOpts{
		IP:        auth.ClientIP(r),
		UserAgent: r.UserAgent(),
		Request:   r,
	}

	tokens, err := h.sessionService.RefreshSession(r.Context(), refreshToken, opts)
	if err != nil {
		if errors.Is(err, domain.ErrSessionNotFound) ||
			errors.Is(err, domain.ErrSessionExpired) ||
			errors.Is(err, domain.ErrSessionRevoked) ||
			errors.Is(err, domain.ErrSessionFingerprint) {
			if !httputil.IsMobileClient(r) {
				httputil.ClearAuthCookies(w, h.cookieConfig)
			}
			httputil.Error(w, http.StatusUnauthorized, "invalid or expired refresh token")
			return
		}
		httputil.WriteError(w, h.logger, err)
		return
	}

	httputil.WriteTokens(w, r, http.StatusOK, tokens, h.sessionService.RefreshTokenTTL(), h.cookieConfig)
}

// Logout revokes a session.
// POST /v1/auth/logout
//
// For web clients: Reads refresh token from cookie, clears cookies.
// For mobile clients: Reads token from request body.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	var refreshToken string

	if httputil.IsMobileClient(r) {
		var req LogoutRequest
		if !httputil.Decode(w, r, &req) {
			return
		}
		refreshToken = req.RefreshToken
	} else {
		refreshToken, _ = httputil.GetRefreshTokenFromCookie(r)
	}

	if refreshToken != "" {
		// Errors are ignored so logout never reveals whether a token was live.
		if err := h.sessionService.RevokeSession(r.Context(), refreshToken); err != nil {
			h.logger.Debug("logout revoke failed", "error", err)
		}
	}

	if !httputil.IsMobileClient(r) {
		httputil.ClearAuthCookies(w, h.cookieConfig)
	}

	w.WriteHeader(http.StatusNoContent)
}

// LogoutAll revokes all sessions for the current user.
// POST /v1/auth/logout/all
// Requires authentication
func (h *Handler) LogoutAll(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		httputil.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	if err := h.sessionService.RevokeAllSessions(r.Context(), userID); err != nil {
		httputil.WriteError(w, h.logger, err)
		return
	}

	if !httputil.IsMobileClient(r) {
		httputil.ClearAuthCookies(w, h.cookieConfig)
	}

	w.WriteHeader(http.StatusNoContent)
}
