package admin

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/AlfredLandry1/blisslearn-sub002/internal/httputil"
)

// Sweeper runs one retention sweep. *notifications.Sweeper implements it.
type Sweeper interface {
	RunOnce(ctx context.Context) (int64, bool, error)
}

// Handler serves operator endpoints.
type Handler struct {
	logger  *slog.Logger
	sweeper Sweeper
}

func NewHandler(logger *slog.Logger, sweeper Sweeper) *Handler {
	return &Handler{logger: logger, sweeper: sweeper}
}

// SweepResponse reports the outcome of a sweep. Ran is false when another
// replica held the sweep lock.
type SweepResponse struct {
	Deleted int64 `json:"deleted"`
	Ran     bool  `json:"ran"`
}

// Sweep deletes notifications past the retention window.
// POST /v1/admin/notifications/sweep
func (h *Handler) Sweep(w http.ResponseWriter, r *http.Request) {
	n, ran, err := h.sweeper.RunOnce(r.Context())
	if err != nil {
		httputil.WriteError(w, h.logger, err)
		return
	}
	h.logger.Info("manual notification sweep", "deleted", n, "ran", ran)
	httputil.JSON(w, http.StatusOK, SweepResponse{Deleted: n, Ran: ran})
}

// RegisterRoutes registers operator routes behind the shared secret.
func (h *Handler) RegisterRoutes(r chi.Router, secret, limit func(http.Handler) http.Handler) {
	r.With(limit, secret).Post("/v1/admin/notifications/sweep", h.Sweep)
}
