package certifications

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/AlfredLandry1/blisslearn-sub002/internal/http/middleware"
	"github.com/AlfredLandry1/blisslearn-sub002/internal/httputil"
	"github.com/AlfredLandry1/blisslearn-sub002/pkg/domain"
	"github.com/AlfredLandry1/blisslearn-sub002/pkg/learning"
)

// Certifications reads issued certificates. *learning.CertificationService
// implements it.
type Certifications interface {
	List(ctx context.Context, userID uuid.UUID) ([]domain.Certification, error)
	Get(ctx context.Context, userID, id uuid.UUID) (*domain.Certification, error)
	DownloadURL(ctx context.Context, userID, id uuid.UUID) (string, error)
}

type Handler struct {
	logger *slog.Logger
	certs  Certifications
}

func NewHandler(logger *slog.Logger, certs Certifications) *Handler {
	return &Handler{logger: logger, certs: certs}
}

type ListResponse struct {
	Items []domain.Certification `json:"items"`
}

// DownloadResponse carries a short-lived link to the rendered certificate.
type DownloadResponse struct {
	URL       string `json:"url"`
	ExpiresIn int    `json:"expires_in"`
}

// List returns the user's certificates, newest first.
// GET /v1/me/certifications
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		httputil.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	items, err := h.certs.List(r.Context(), userID)
	if err != nil {
		httputil.WriteError(w, h.logger, err)
		return
	}
	httputil.JSON(w, http.StatusOK, ListResponse{Items: items})
}

// Get returns one certificate.
// GET /v1/me/certifications/{id}
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	userID, id, ok := ids(w, r)
	if !ok {
		return
	}

	cert, err := h.certs.Get(r.Context(), userID, id)
	if err != nil {
		httputil.WriteError(w, h.logger, err)
		return
	}
	httputil.JSON(w, http.StatusOK, cert)
}

// Download returns a presigned link to the certificate file.
// GET /v1/me/certifications/{id}/download
func (h *Handler) Download(w http.ResponseWriter, r *http.Request) {
	userID, id, ok := ids(w, r)
	if !ok {
		return
	}

	url, err := h.certs.DownloadURL(r.Context(), userID, id)
	if err != nil {
		httputil.WriteError(w, h.logger, err)
		return
	}
	httputil.JSON(w, http.StatusOK, DownloadResponse{URL: url, ExpiresIn: int(learning.DownloadURLTTL.Seconds())})
}

func ids(w http.ResponseWriter, r *http.Request) (uuid.UUID, uuid.UUID, bool) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		httputil.Error(w, http.StatusUnauthorized, "unauthorized")
		return uuid.Nil, uuid.Nil, false
	}
	id, ok := httputil.PathUUID(w, r, "id")
	if !ok {
		return uuid.Nil, uuid.Nil, false
	}
	return userID, id, true
}

// RegisterRoutes registers certificate routes.
func (h *Handler) RegisterRoutes(r chi.Router, authMiddleware func(http.Handler) http.Handler) {
	r.Group(func(r chi.Router) {
		r.Use(authMiddleware)
		r.Get("/v1/me/certifications", h.List)
		r.Get("/v1/me/certifications/{id}", h.Get)
		r.Get("/v1/me/certifications/{id}/download", h.Download)
	})
}
