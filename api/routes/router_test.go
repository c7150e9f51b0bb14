package routes

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/attesthealth/attest-backend/pkg/config"
	"github.com/attesthealth/attest-backend/pkg/logger"
)

func testRouter() http.Handler {
	cfg := &config.Config{App: config.AppConfig{Env: "test"}}
	logg := logger.New(logger.Options{ServiceName: "router-test"})
	return NewRouter(cfg, logg, nil, nil, nil, nil, nil)
}

func TestRouterPublicSurface(t *testing.T) {
	router := testRouter()

	tests := []struct {
		name   string
		method string
		path   string
		status int
	}{
		{"liveness", http.MethodGet, "/health/live", http.StatusOK},
		{"readiness skips nil pingers", http.MethodGet, "/health/ready", http.StatusOK},
		{"public ping", http.MethodGet, "/api/public/ping", http.StatusOK},
		{"metrics", http.MethodGet, "/metrics", http.StatusOK},
		{"unknown route", http.MethodGet, "/api/v1/nope", http.StatusNotFound},
		{"webhook rejects GET", http.MethodGet, "/api/v1/webhooks/documentation", http.StatusMethodNotAllowed},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(tc.method, tc.path, nil)
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)
			if rec.Code != tc.status {
				t.Fatalf("%s %s: expected %d, got %d", tc.method, tc.path, tc.status, rec.Code)
			}
		})
	}
}

func TestRouterSetsEnvHeader(t *testing.T) {
	router := testRouter()
	req := httptest.NewRequest(http.MethodGet, "/health/live", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if got := rec.Header().Get("X-Attest-Env"); got != "test" {
		t.Fatalf("expected env header, got %q", got)
	}
}
