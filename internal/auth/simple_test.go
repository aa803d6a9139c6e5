package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func protected() http.Handler {
	return Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
}

func TestMiddleware(t *testing.T) {
	t.Run("open mode without a configured token", func(t *testing.T) {
		t.Setenv("DOCDOCK_API_TOKEN", "")
		rr := httptest.NewRecorder()
		protected().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/v1/resolutions", nil))
		if rr.Code != http.StatusOK {
			t.Fatalf("status: %d", rr.Code)
		}
	})

	t.Run("missing token is 401", func(t *testing.T) {
		t.Setenv("DOCDOCK_API_TOKEN", "secret")
		rr := httptest.NewRecorder()
		protected().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/v1/resolutions", nil))
		if rr.Code != http.StatusUnauthorized {
			t.Fatalf("status: %d", rr.Code)
		}
	})

	t.Run("wrong token is 403", func(t *testing.T) {
		t.Setenv("DOCDOCK_API_TOKEN", "secret")
		req := httptest.NewRequest(http.MethodGet, "/v1/resolutions", nil)
		req.Header.Set("Authorization", "Bearer wrong")
		rr := httptest.NewRecorder()
		protected().ServeHTTP(rr, req)
		if rr.Code != http.StatusForbidden {
			t.Fatalf("status: %d", rr.Code)
		}
	})

	t.Run("valid token passes", func(t *testing.T) {
		t.Setenv("DOCDOCK_API_TOKEN", "secret")
		req := httptest.NewRequest(http.MethodGet, "/v1/resolutions", nil)
		req.Header.Set("Authorization", "Bearer secret")
		rr := httptest.NewRecorder()
		protected().ServeHTTP(rr, req)
		if rr.Code != http.StatusOK {
			t.Fatalf("status: %d", rr.Code)
		}
	})

	t.Run("probe paths stay open", func(t *testing.T) {
		t.Setenv("DOCDOCK_API_TOKEN", "secret")
		for _, path := range []string{"/healthz", "/readyz", "/metrics"} {
			rr := httptest.NewRecorder()
			protected().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, path, nil))
			if rr.Code != http.StatusOK {
				t.Fatalf("%s status: %d", path, rr.Code)
			}
		}
	})
}
