package inbox

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AlfredLandry1/blisslearn-sub002/internal/http/middleware"
	"github.com/AlfredLandry1/blisslearn-sub002/pkg/auth"
	"github.com/AlfredLandry1/blisslearn-sub002/pkg/domain"
	"github.com/AlfredLandry1/blisslearn-sub002/pkg/notifications"
)

type fakeInbox struct {
	items map[uuid.UUID]*domain.Notification
	opts  notifications.ListOptions
}

func newInbox(owner uuid.UUID, n int) *fakeInbox {
	f := &fakeInbox{items: map[uuid.UUID]*domain.Notification{}}
	for range n {
		id := uuid.New()
		f.items[id] = &domain.Notification{ID: id, UserID: owner, Kind: domain.NotificationInfo, Title: "hello"}
	}
	return f
}

func (f *fakeInbox) find(userID, id uuid.UUID) (*domain.Notification, error) {
	n, ok := f.items[id]
	if !ok || n.UserID != userID {
		return nil, domain.ErrNotificationNotFound
	}
	return n, nil
}

func (f *fakeInbox) List(ctx context.Context, userID uuid.UUID, opts notifications.ListOptions) (*domain.NotificationPage, error) {
	f.opts = opts
	page := &domain.NotificationPage{Items: []domain.Notification{}, Limit: opts.Limit, Offset: opts.Offset}
	for _, n := range f.items {
		page.Items = append(page.Items, *n)
	}
	page.Total = int64(len(page.Items))
	return page, nil
}

func (f *fakeInbox) UnreadCount(ctx context.Context, userID uuid.UUID) (int64, error) {
	var c int64
	for _, n := range f.items {
		if !n.Read {
			c++
		}
	}
	return c, nil
}

func (f *fakeInbox) SetRead(ctx context.Context, userID, id uuid.UUID, read bool) error {
	n, err := f.find(userID, id)
	if err != nil {
		return err
	}
	n.Read = read
	return nil
}

func (f *fakeInbox) MarkAllRead(ctx context.Context, userID uuid.UUID) (int64, error) {
	var c int64
	for _, n := range f.items {
		if !n.Read {
			n.Read = true
			c++
		}
	}
	return c, nil
}

func (f *fakeInbox) Delete(ctx context.Context, userID, id uuid.UUID) error {
	if _, err := f.find(userID, id); err != nil {
		return err
	}
	delete(f.items, id)
	return nil
}

func (f *fakeInbox) DeleteAll(ctx context.Context, userID uuid.UUID) (int64, error) {
	n := int64(len(f.items))
	clear(f.items)
	return n, nil
}

func (f *fakeInbox) anyID() uuid.UUID {
	for id := range f.items {
		return id
	}
	return uuid.Nil
}

func newRouter(inbox *fakeInbox, userID uuid.UUID) http.Handler {
	signedIn := func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims := &auth.AccessTokenClaims{RegisteredClaims: jwt.RegisteredClaims{Subject: userID.String()}}
			next.ServeHTTP(w, r.WithContext(middleware.WithClaims(r.Context(), userID, claims)))
		})
	}
	r := chi.NewRouter()
	NewHandler(slog.New(slog.NewTextHandler(io.Discard, nil)), inbox).RegisterRoutes(r, signedIn)
	return r
}

func do(h http.Handler, method, target, body string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(method, target, bytes.NewBufferString(body)))
	return rec
}

func TestList_QueryOptions(t *testing.T) {
	userID := uuid.New()
	inbox := newInbox(userID, 3)
	router := newRouter(inbox, userID)

	rec := do(router, http.MethodGet, "/v1/me/notifications?unread_only=true&limit=5&offset=10", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, notifications.ListOptions{UnreadOnly: true, Limit: 5, Offset: 10}, inbox.opts)

	rec = do(router, http.MethodGet, "/v1/me/notifications", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, notifications.ListOptions{Limit: notifications.DefaultLimit}, inbox.opts)
	var page domain.NotificationPage
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&page))
	assert.EqualValues(t, 3, page.Total)

	assert.Equal(t, http.StatusBadRequest, do(router, http.MethodGet, "/v1/me/notifications?limit=lots", "").Code)
	assert.Equal(t, http.StatusBadRequest, do(router, http.MethodGet, "/v1/me/notifications?unread_only=perhaps", "").Code)
}

func TestSetReadAndCount(t *testing.T) {
	userID := uuid.New()
	inbox := newInbox(userID, 2)
	router := newRouter(inbox, userID)
	id := inbox.anyID()

	rec := do(router, http.MethodPatch, "/v1/me/notifications/"+id.String(), `{"read":true}`)
	require.Equal(t, http.StatusNoContent, rec.Code)
	assert.True(t, inbox.items[id].Read)

	rec = do(router, http.MethodGet, "/v1/me/notifications/unread-count", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"count":1}`, rec.Body.String())

	rec = do(router, http.MethodPatch, "/v1/me/notifications/"+id.String(), `{"read":false}`)
	require.Equal(t, http.StatusNoContent, rec.Code)
	assert.False(t, inbox.items[id].Read)

	assert.Equal(t, http.StatusBadRequest, do(router, http.MethodPatch, "/v1/me/notifications/"+id.String(), `{}`).Code)
}

func TestOwnerScoping(t *testing.T) {
	owner := uuid.New()
	inbox := newInbox(owner, 1)
	id := inbox.anyID()
	intruder := newRouter(inbox, uuid.New())

	assert.Equal(t, http.StatusNotFound, do(intruder, http.MethodPatch, "/v1/me/notifications/"+id.String(), `{"read":true}`).Code)
	assert.Equal(t, http.StatusNotFound, do(intruder, http.MethodDelete, "/v1/me/notifications/"+id.String(), "").Code)
	assert.Len(t, inbox.items, 1)
}

func TestBulkOperations(t *testing.T) {
	userID := uuid.New()
	inbox := newInbox(userID, 3)
	router := newRouter(inbox, userID)

	rec := do(router, http.MethodPost, "/v1/me/notifications/read-all", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"updated":3}`, rec.Body.String())

	id := inbox.anyID()
	require.Equal(t, http.StatusNoContent, do(router, http.MethodDelete, "/v1/me/notifications/"+id.String(), "").Code)
	assert.Len(t, inbox.items, 2)

	rec = do(router, http.MethodDelete, "/v1/me/notifications", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"deleted":2}`, rec.Body.String())
	assert.Empty(t, inbox.items)
}
