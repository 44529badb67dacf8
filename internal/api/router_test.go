package api_test

import (
	"context"
	"net/http"
	"strings"
	"testing"

	"github.com/wikiroute/wikiroute/internal/api"
	"github.com/wikiroute/wikiroute/internal/middleware"
)

func TestRouter(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	r := api.NewRouter(ctx, &api.RouterDeps{
		Log:         testLogger(),
		Titles:      testIndex(),
		Graph:       testGraph(t),
		CORSOrigins: []string{"http://localhost:8501"},
		Version:     "test-v1",
	})

	t.Run("health", func(t *testing.T) {
		w := doRequest(r, http.MethodGet, "/api/v1/health")
		if w.Code != http.StatusOK {
			t.Fatalf("status = %d", w.Code)
		}

		body := decode[map[string]any](t, w)
		if body["status"] != "ok" || body["version"] != "test-v1" {
			t.Errorf("health = %v", body)
		}
		if w.Header().Get(middleware.RequestIDHeader) == "" {
			t.Error("missing request id header")
		}
	})

	t.Run("title", func(t *testing.T) {
		w := doRequest(r, http.MethodGet, "/api/v1/titles/2")
		if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), "Alphabet") {
			t.Errorf("status = %d body = %s", w.Code, w.Body.String())
		}
	})

	t.Run("read only", func(t *testing.T) {
		w := doRequest(r, http.MethodPost, "/api/v1/titles/2")
		if w.Code != http.StatusMethodNotAllowed {
			t.Errorf("status = %d, want 405", w.Code)
		}
	})

	t.Run("metrics", func(t *testing.T) {
		w := doRequest(r, http.MethodGet, "/metrics")
		if w.Code != http.StatusOK {
			t.Fatalf("status = %d", w.Code)
		}
		if !strings.Contains(w.Body.String(), "wikiroute_http_requests_total") {
			t.Error("metrics output missing wikiroute_http_requests_total")
		}
	})

	t.Run("ws without hub", func(t *testing.T) {
		w := doRequest(r, http.MethodGet, "/api/v1/ws")
		if w.Code != http.StatusServiceUnavailable {
			t.Errorf("status = %d, want 503", w.Code)
		}
	})
}

func TestRouter_DegradedHealth(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	r := api.NewRouter(ctx, &api.RouterDeps{Log: testLogger(), Version: "v"})

	w := doRequest(r, http.MethodGet, "/api/v1/health")
	body := decode[map[string]any](t, w)

	if body["status"] != "degraded" || body["titles"] != "not_loaded" {
		t.Errorf("health = %v", body)
	}
}

func TestRouter_HealthWhileBuilding(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	lookups := api.NewLookups(testIndex(), testGraph(t))
	lookups.SetBuilding(true)

	r := api.NewRouter(ctx, &api.RouterDeps{Log: testLogger(), Lookups: lookups, Version: "v"})

	body := decode[map[string]any](t, doRequest(r, http.MethodGet, "/api/v1/health"))
	if body["status"] != "degraded" || body["building"] != true {
		t.Errorf("health while building = %v", body)
	}

	lookups.SetBuilding(false)

	body = decode[map[string]any](t, doRequest(r, http.MethodGet, "/api/v1/health"))
	if body["status"] != "ok" || body["building"] != false {
		t.Errorf("health after build = %v", body)
	}
}
