package password

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers password authentication routes. signIn limits
// register and login, reset limits the reset flow.
func (h *Handler) RegisterRoutes(r chi.Router, signIn, reset func(http.Handler) http.Handler) {
	r.With(signIn).Post("/v1/auth/password/register", h.Register)
	r.With(signIn).Post("/v1/auth/password/login", h.Login)
	r.With(reset).Post("/v1/auth/password/reset-request", h.RequestPasswordReset)
	r.With(reset).Post("/v1/auth/password/reset", h.ResetPassword)
}
