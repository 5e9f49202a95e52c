package inbox

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/AlfredLandry1/blisslearn-sub002/internal/http/middleware"
	"github.com/AlfredLandry1/blisslearn-sub002/internal/httputil"
	"github.com/AlfredLandry1/blisslearn-sub002/pkg/domain"
	"github.com/AlfredLandry1/blisslearn-sub002/pkg/notifications"
)

// Inbox is the user's notification feed. *notifications.Service implements it.
type Inbox interface {
	List(ctx context.Context, userID uuid.UUID, opts notifications.ListOptions) (*domain.NotificationPage, error)
	UnreadCount(ctx context.Context, userID uuid.UUID) (int64, error)
	SetRead(ctx context.Context, userID, id uuid.UUID, read bool) error
	MarkAllRead(ctx context.Context, userID uuid.UUID) (int64, error)
	Delete(ctx context.Context, userID, id uuid.UUID) error
	DeleteAll(ctx context.Context, userID uuid.UUID) (int64, error)
}

type Handler struct {
	logger *slog.Logger
	inbox  Inbox
}

func NewHandler(logger *slog.Logger, inbox Inbox) *Handler {
	return &Handler{logger: logger, inbox: inbox}
}

// SetReadRequest flips the read flag of one notification.
type SetReadRequest struct {
	Read *bool `json:"read"`
}

type CountResponse struct {
	Count int64 `json:"count"`
}

type AffectedResponse struct {
	Updated int64 `json:"updated,omitempty"`
	Deleted int64 `json:"deleted,omitempty"`
}

// List returns a page of notifications.
// GET /v1/me/notifications?unread_only=&limit=&offset=
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		httputil.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var opts notifications.ListOptions
	if opts.UnreadOnly, ok = httputil.QueryBool(w, r, "unread_only"); !ok {
		return
	}
	if opts.Limit, ok = httputil.QueryInt(w, r, "limit", notifications.DefaultLimit); !ok {
		return
	}
	if opts.Offset, ok = httputil.QueryInt(w, r, "offset", 0); !ok {
		return
	}

	page, err := h.inbox.List(r.Context(), userID, opts)
	if err != nil {
		httputil.WriteError(w, h.logger, err)
		return
	}
	httputil.JSON(w, http.StatusOK, page)
}

// UnreadCount returns the number of unread notifications.
// GET /v1/me/notifications/unread-count
func (h *Handler) UnreadCount(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		httputil.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	n, err := h.inbox.UnreadCount(r.Context(), userID)
	if err != nil {
		httputil.WriteError(w, h.logger, err)
		return
	}
	httputil.JSON(w, http.StatusOK, CountResponse{Count: n})
}

// SetRead marks one notification read or unread.
// PATCH /v1/me/notifications/{id}
func (h *Handler) SetRead(w http.ResponseWriter, r *http.Request) {
	userID, id, ok := ids(w, r)
	if !ok {
		return
	}

	var req SetReadRequest
	if !httputil.Decode(w, r, &req) {
		return
	}
	if req.Read == nil {
		httputil.Error(w, http.StatusBadRequest, "read is required")
		return
	}

	if err := h.inbox.SetRead(r.Context(), userID, id, *req.Read); err != nil {
		httputil.WriteError(w, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// MarkAllRead marks every notification read.
// POST /v1/me/notifications/read-all
func (h *Handler) MarkAllRead(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		httputil.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	n, err := h.inbox.MarkAllRead(r.Context(), userID)
	if err != nil {
		httputil.WriteError(w, h.logger, err)
		return
	}
	httputil.JSON(w, http.StatusOK, AffectedResponse{Updated: n})
}

// Delete removes one notification.
// DELETE /v1/me/notifications/{id}
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	userID, id, ok := ids(w, r)
	if !ok {
		return
	}

	if err := h.inbox.Delete(r.Context(), userID, id); err != nil {
		httputil.WriteError(w, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// DeleteAll clears the inbox.
// DELETE /v1/me/notifications
func (h *Handler) DeleteAll(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		httputil.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	n, err := h.inbox.DeleteAll(r.Context(), userID)
	if err != nil {
		httputil.WriteError(w, h.logger, err)
		return
	}
	httputil.JSON(w, http.StatusOK, AffectedResponse{Deleted: n})
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

// RegisterRoutes registers the inbox routes.
func (h *Handler) RegisterRoutes(r chi.Router, authMiddleware func(http.Handler) http.Handler) {
	r.Group(func(r chi.Router) {
		r.Use(authMiddleware)
		r.Get("/v1/me/notifications", h.List)
		r.Delete("/v1/me/notifications", h.DeleteAll)
		r.Get("/v1/me/notifications/unread-count", h.UnreadCount)
		r.Post("/v1/me/notifications/read-all", h.MarkAllRead)
		r.Patch("/v1/me/notifications/{id}", h.SetRead)
		r.Delete("/v1/me/notifications/{id}", h.Delete)
	})
}
