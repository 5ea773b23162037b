// MoviePulse - Title Trend Scoring Pipeline
// Copyright 2026 MoviePulse contributors
// SPDX-License-Identifier: Apache-2.0

package gateway

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/moviepulse/moviepulse/internal/logging"
)

func TestViewEndpointRateLimited(t *testing.T) {
	t.Parallel()

	h := NewHandler(newFakeTitleStore(603), &fakePublisher{}, logging.NewTestLogger(io.Discard))
	cfg := RouterConfig{
		RequestTimeout: 5 * time.Second,
		ViewRateLimit:  3,
		ViewRatePeriod: time.Minute,
	}
	router := NewRouter(h, cfg)

	var got []int
	for i := 0; i < 5; i++ {
		req := httptest.NewRequest(http.MethodPost, "/api/movies/view",
			strings.NewReader(`{"tmdb_id":603}`))
		req.RemoteAddr = "10.0.0.1:1234"
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		got = append(got, rec.Code)
	}

	var limited int
	for _, code := range got {
		if code == http.StatusTooManyRequests {
			limited++
		}
	}
	if limited != 2 {
		t.Errorf("status codes %v: %d limited, want 2 of 5 beyond the budget of 3", got, limited)
	}

	// Other endpoints stay unthrottled.
	for i := 0; i < 10; i++ {
		req := httptest.NewRequest(http.MethodGet, "/api/movies/603", nil)
		req.RemoteAddr = "10.0.0.1:1234"
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("read %d: status = %d, want 200", i, rec.Code)
		}
	}
}

func TestUnknownRoute(t *testing.T) {
	t.Parallel()

	h := NewHandler(newFakeTitleStore(), &fakePublisher{}, logging.NewTestLogger(io.Discard))
	router := NewRouter(h, DefaultRouterConfig())

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/unknown", nil))
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}

func TestCORSPreflight(t *testing.T) {
	t.Parallel()

	h := NewHandler(newFakeTitleStore(), &fakePublisher{}, logging.NewTestLogger(io.Discard))
	cfg := DefaultRouterConfig()
	cfg.CORSAllowedOrigins = []string{"https://app.example.com"}
	router := NewRouter(h, cfg)

	req := httptest.NewRequest(http.MethodOptions, "/api/movies/view", nil)
	req.Header.Set("Origin", "https://app.example.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "https://app.example.com" {
		t.Errorf("Access-Control-Allow-Origin = %q, want the allowed origin", got)
	}

	// An origin off the allowlist gets no CORS grant.
	req = httptest.NewRequest(http.MethodOptions, "/api/movies/view", nil)
	req.Header.Set("Origin", "https://evil.example.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "" {
		t.Errorf("Access-Control-Allow-Origin = %q for disallowed origin, want empty", got)
	}
}

func TestMetricsEndpointExposed(t *testing.T) {
	t.Parallel()

	h := NewHandler(newFakeTitleStore(), &fakePublisher{}, logging.NewTestLogger(io.Discard))
	router := NewRouter(h, DefaultRouterConfig())

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "go_") {
		t.Error("metrics output missing runtime collectors")
	}
}
