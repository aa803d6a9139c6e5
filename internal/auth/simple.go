package auth

import (
	"crypto/subtle"
	"net/http"
	"os"
	"strings"
)

// openPaths never require a token so probes and scrapers keep working.
var openPaths = map[string]bool{
	"/healthz": true,
	"/readyz":  true,
	"/metrics": true,
}

// Middleware enforces a bearer token from DOCDOCK_API_TOKEN. When the env
// var is unset the API runs open.
func Middleware(next http.Handler) http.Handler {
	token := os.Getenv("DOCDOCK_API_TOKEN")

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if token == "" || openPaths[r.URL.Path] {
			next.ServeHTTP(w, r)
			return
		}

		// Expect: Authorization: Bearer <token>
		authz := r.Header.Get("Authorization")
		if !strings.HasPrefix(authz, "Bearer ") {
			http.Error(w, "missing API token", http.StatusUnauthorized)
			return
		}

		got := strings.TrimSpace(strings.TrimPrefix(authz, "Bearer "))
		if subtle.ConstantTimeCompare([]byte(got), []byte(token)) != 1 {
			http.Error(w, "invalid API token", http.StatusForbidden)
			return
		}

		next.ServeHTTP(w, r)
	})
}
