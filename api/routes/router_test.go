package routes

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/marisolvega/callinsights-backend/pkg/config"
	"github.com/marisolvega/callinsights-backend/pkg/logger"
)

func testRouter() http.Handler {
	cfg := &config.Config{}
	cfg.App.Env = "test"
	logg := logger.New(logger.Options{ServiceName: "routes-test", Output: io.Discard})
	return NewRouter(cfg, logg, nil, nil, nil, nil)
}

func TestHealthLive(t *testing.T) {
	router := testRouter()

	req := httptest.NewRequest(http.MethodGet, "/health/live", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if got := rec.Header().Get("X-CallInsights-Env"); got != "test" {
		t.Fatalf("expected env header, got %q", got)
	}
	if got := rec.Header().Get("X-Request-Id"); got == "" {
		t.Fatal("expected request id header")
	}
}

func TestMetricsEndpointExposed(t *testing.T) {
	router := testRouter()

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func TestUnknownRouteIs404(t *testing.T) {
	router := testRouter()

	req := httptest.NewRequest(http.MethodGet, "/api/v1/unknown", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}
