package session

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers session routes.
func (h *Handler) RegisterRoutes(r chi.Router, authMiddleware, refreshLimit func(http.Handler) http.Handler) {
	r.With(refreshLimit).Post("/v1/auth/refresh", h.Refresh)
	r.Post("/v1/auth/logout", h.Logout)
	r.With(authMiddleware).Post("/v1/auth/logout/all", h.LogoutAll)
}
