package httputil

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func withParam(r *http.Request, name, value string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(name, value)
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

func TestPathUUID(t *testing.T) {
	id := uuid.New()

	rec := httptest.NewRecorder()
	got, ok := PathUUID(rec, withParam(httptest.NewRequest(http.MethodGet, "/", nil), "id", id.String()), "id")
	assert.True(t, ok)
	assert.Equal(t, id, got)

	rec = httptest.NewRecorder()
	_, ok = PathUUID(rec, withParam(httptest.NewRequest(http.MethodGet, "/", nil), "id", "nope"), "id")
	assert.False(t, ok)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestQueryParams(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/?limit=5&unread_only=true&offset=x&flag=maybe", nil)

	n, ok := QueryInt(httptest.NewRecorder(), req, "limit", 20)
	assert.True(t, ok)
	assert.Equal(t, 5, n)

	n, ok = QueryInt(httptest.NewRecorder(), req, "page", 1)
	assert.True(t, ok)
	assert.Equal(t, 1, n)

	rec := httptest.NewRecorder()
	_, ok = QueryInt(rec, req, "offset", 0)
	assert.False(t, ok)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	b, ok := QueryBool(httptest.NewRecorder(), req, "unread_only")
	assert.True(t, ok)
	assert.True(t, b)

	_, ok = QueryBool(httptest.NewRecorder(), req, "flag")
	assert.False(t, ok)
}
