package me

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers profile routes behind auth and the profile limit.
func (h *Handler) RegisterRoutes(r chi.Router, authMiddleware, limit func(http.Handler) http.Handler) {
	r.Group(func(r chi.Router) {
		r.Use(authMiddleware, limit)
		r.Get("/v1/me", h.GetMe)
		r.Patch("/v1/me", h.UpdateMe)
		r.Delete("/v1/me", h.DeleteMe)
	})
}
