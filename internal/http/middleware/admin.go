package middleware

import (
	"crypto/subtle"
	"net/http"

	"github.com/AlfredLandry1/blisslearn-sub002/internal/httputil"
)

// AdminSecretHeader carries the shared secret of operator endpoints.
const AdminSecretHeader = "X-Admin-Secret"

// AdminSecret guards operator endpoints with a shared secret. An empty
// secret disables them.
func AdminSecret(secret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if secret == "" {
				httputil.Error(w, http.StatusNotFound, "not found")
				return
			}
			got := r.Header.Get(AdminSecretHeader)
			if subtle.ConstantTimeCompare([]byte(got), []byte(secret)) != 1 {
				httputil.Error(w, http.StatusUnauthorized, "invalid admin secret")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
