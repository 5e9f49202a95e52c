package progress

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/AlfredLandry1/blisslearn-sub002/internal/http/middleware"
	"github.com/AlfredLandry1/blisslearn-sub002/internal/httputil"
	"github.com/AlfredLandry1/blisslearn-sub002/pkg/domain"
)

// Tracker records course progress. *learning.ProgressService implements it.
type Tracker interface {
	Start(ctx context.Context, userID, courseID uuid.UUID) (*domain.CourseProgress, error)
	Update(ctx context.Context, userID, courseID uuid.UUID, completedModules, minutesSpent int) (*domain.CourseProgress, error)
	Get(ctx context.Context, userID, courseID uuid.UUID) (*domain.CourseProgress, error)
	List(ctx context.Context, userID uuid.UUID) ([]domain.CourseProgress, error)
	Stats(ctx context.Context, userID uuid.UUID) (*domain.ProgressStats, error)
}

type Handler struct {
	logger  *slog.Logger
	tracker Tracker
}

func NewHandler(logger *slog.Logger, tracker Tracker) *Handler {
	return &Handler{logger: logger, tracker: tracker}
}

// UpdateRequest reports work done in a course. MinutesSpent is added to the
// running total.
type UpdateRequest struct {
	CompletedModules int `json:"completed_modules"`
	MinutesSpent     int `json:"minutes_spent"`
}

// ListResponse wraps the user's enrollments.
type ListResponse struct {
	Items []domain.CourseProgress `json:"items"`
}

// List returns every enrollment of the user.
// GET /v1/me/progress
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		httputil.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	items, err := h.tracker.List(r.Context(), userID)
	if err != nil {
		httputil.WriteError(w, h.logger, err)
		return
	}
	httputil.JSON(w, http.StatusOK, ListResponse{Items: items})
}

// Stats aggregates the user's progress.
// GET /v1/me/progress/stats
func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		httputil.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	stats, err := h.tracker.Stats(r.Context(), userID)
	if err != nil {
		httputil.WriteError(w, h.logger, err)
		return
	}
	httputil.JSON(w, http.StatusOK, stats)
}

// Get returns progress in one course.
// GET /v1/me/progress/{courseID}
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	userID, courseID, ok := h.ids(w, r)
	if !ok {
		return
	}

	p, err := h.tracker.Get(r.Context(), userID, courseID)
	if err != nil {
		httputil.WriteError(w, h.logger, err)
		return
	}
	httputil.JSON(w, http.StatusOK, p)
}

// Start enrolls the user. Enrolling twice returns the existing record.
// POST /v1/me/progress/{courseID}/start
func (h *Handler) Start(w http.ResponseWriter, r *http.Request) {
	userID, courseID, ok := h.ids(w, r)
	if !ok {
		return
	}

	p, err := h.tracker.Start(r.Context(), userID, courseID)
	if err != nil {
		httputil.WriteError(w, h.logger, err)
		return
	}
	httputil.JSON(w, http.StatusOK, p)
}

// Update records completed modules and time spent.
// PUT /v1/me/progress/{courseID}
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	userID, courseID, ok := h.ids(w, r)
	if !ok {
		return
	}

	var req UpdateRequest
	if !httputil.Decode(w, r, &req) {
		return
	}

	p, err := h.tracker.Update(r.Context(), userID, courseID, req.CompletedModules, req.MinutesSpent)
	if err != nil {
		httputil.WriteError(w, h.logger, err)
		return
	}
	httputil.JSON(w, http.StatusOK, p)
}

func (h *Handler) ids(w http.ResponseWriter, r *http.Request) (uuid.UUID, uuid.UUID, bool) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		httputil.Error(w, http.StatusUnauthorized, "unauthorized")
		return uuid.Nil, uuid.Nil, false
	}
	courseID, ok := httputil.PathUUID(w, r, "courseID")
	if !ok {
		return uuid.Nil, uuid.Nil, false
	}
	return userID, courseID, true
}

// RegisterRoutes registers progress routes. Updates also require a verified
// email address.
func (h *Handler) RegisterRoutes(r chi.Router, authMiddleware, verified func(http.Handler) http.Handler) {
	r.Group(func(r chi.Router) {
		r.Use(authMiddleware)
		r.Get("/v1/me/progress", h.List)
		r.Get("/v1/me/progress/stats", h.Stats)
		r.Get("/v1/me/progress/{courseID}", h.Get)
		r.Post("/v1/me/progress/{courseID}/start", h.Start)
		r.With(verified).Put("/v1/me/progress/{courseID}", h.Update)
	})
}
