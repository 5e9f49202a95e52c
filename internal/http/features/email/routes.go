package email

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers email verification routes.
func (h *Handler) RegisterRoutes(r chi.Router, authMiddleware, limit func(http.Handler) http.Handler) {
	r.With(limit).Post("/v1/auth/verify-email", h.VerifyEmail)
	r.With(limit).Post("/v1/auth/request-verification", h.RequestVerificationEmail)
	r.With(authMiddleware, limit).Post("/v1/auth/resend-verification", h.ResendVerificationEmail)
}
