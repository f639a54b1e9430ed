package router

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/brightsmile/dental-ai-platform/pkg/logging"
)

func newTestRouter(t *testing.T) http.Handler {
	t.Helper()
	return New(&Config{
		Logger:          logging.New("error"),
		AdminAuthSecret: "test-secret",
	})
}

func TestRouterHealthEndpoint(t *testing.T) {
	router := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, rr.Code)
	}

	var resp map[string]string
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode health response: %v", err)
	}
	if resp["status"] != "ok" {
		t.Errorf("expected status 'ok', got %q", resp["status"])
	}
}

func TestRouterPatientRoutesRequireIdentity(t *testing.T) {
	router := newTestRouter(t)

	for _, target := range []string{"/me", "/appointments/me", "/appointments/stats", "/voice/config"} {
		req := httptest.NewRequest(http.MethodGet, target, nil)
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		if rr.Code != http.StatusUnauthorized {
			t.Errorf("GET %s without token: status = %d, want 401", target, rr.Code)
		}
	}
}

func TestRouterAdminRoutesRequireAdminToken(t *testing.T) {
	router := newTestRouter(t)

	for _, target := range []string{"/admin/appointments", "/admin/dashboard"} {
		req := httptest.NewRequest(http.MethodGet, target, nil)
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		if rr.Code != http.StatusUnauthorized {
			t.Errorf("GET %s without token: status = %d, want 401", target, rr.Code)
		}
	}
}

func TestRouterUnknownRoute(t *testing.T) {
	router := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/nope", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rr.Code)
	}
}
