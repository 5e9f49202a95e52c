package httputil

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

// PathUUID parses the chi URL parameter name as a UUID. It writes a 400 and
// returns false when the parameter is malformed.
func PathUUID(w http.ResponseWriter, r *http.Request, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, name))
	if err != nil {
		Error(w, http.StatusBadRequest, "invalid "+name)
		return uuid.Nil, false
	}
	return id, true
}

// QueryInt reads an integer query parameter. Missing values yield def.
// It writes a 400 and returns false when the value is not a number.
func QueryInt(w http.ResponseWriter, r *http.Request, name string, def int) (int, bool) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		Error(w, http.StatusBadRequest, name+" must be an integer")
		return 0, false
	}
	return n, true
}

// QueryBool reads a boolean query parameter. Missing values are false.
func QueryBool(w http.ResponseWriter, r *http.Request, name string) (bool, bool) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return false, true
	}
	b, err := strconv.ParseBool(raw)
	if err != nil {
		Error(w, http.StatusBadRequest, name+" must be true or false")
		return false, false
	}
	return b, true
}
