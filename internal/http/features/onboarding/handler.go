package onboarding

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

// Profiles stores onboarding answers. *learning.OnboardingService implements it.
type Profiles interface {
	Complete(ctx context.Context, userID uuid.UUID, in learning.OnboardingInput) (*domain.LearnerProfile, error)
	Get(ctx context.Context, userID uuid.UUID) (*domain.LearnerProfile, error)
}

// Handler serves the onboarding questionnaire.
type Handler struct {
	logger   *slog.Logger
	profiles Profiles
}

func NewHandler(logger *slog.Logger, profiles Profiles) *Handler {
	return &Handler{logger: logger, profiles: profiles}
}

// Get returns the learner profile.
// GET /v1/me/onboarding
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		httputil.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	profile, err := h.profiles.Get(r.Context(), userID)
	if err != nil {
		httputil.WriteError(w, h.logger, err)
		return
	}
	httputil.JSON(w, http.StatusOK, profile)
}

// Complete saves the questionnaire and marks onboarding done.
// PUT /v1/me/onboarding
func (h *Handler) Complete(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		httputil.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var in learning.OnboardingInput
	if !httputil.Decode(w, r, &in) {
		return
	}

	profile, err := h.profiles.Complete(r.Context(), userID, in)
	if err != nil {
		httputil.WriteError(w, h.logger, err)
		return
	}
	httputil.JSON(w, http.StatusOK, profile)
}

// RegisterRoutes registers onboarding routes.
func (h *Handler) RegisterRoutes(r chi.Router, authMiddleware func(http.Handler) http.Handler) {
	r.With(authMiddleware).Get("/v1/me/onboarding", h.Get)
	r.With(authMiddleware).Put("/v1/me/onboarding", h.Complete)
}
