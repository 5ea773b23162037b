// MoviePulse - Title Trend Scoring Pipeline
// Copyright 2026 MoviePulse contributors
// SPDX-License-Identifier: Apache-2.0

package tmdb

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func testClient(baseURL string) *Client {
	return NewClient(Config{
		BaseURL:                 baseURL,
		APIKey:                  "test-key",
		Timeout:                 2 * time.Second,
		BreakerFailureThreshold: 3,
		BreakerOpenTimeout:      time.Minute,
	})
}

func TestFetchFound(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/movie/603" {
			t.Errorf("path = %q, want /movie/603", r.URL.Path)
		}
		if r.URL.Query().Get("api_key") != "test-key" {
			t.Errorf("api_key = %q, want test-key", r.URL.Query().Get("api_key"))
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"title":"The Matrix","vote_average":8.2}`)) //nolint:errcheck
	}))
	defer srv.Close()

	result := testClient(srv.URL).Fetch(context.Background(), 603)
	if result.Status != StatusFound {
		t.Fatalf("Status = %v, want found (cause: %v)", result.Status, result.Cause)
	}
	if result.Title != "The Matrix" {
		t.Errorf("Title = %q, want The Matrix", result.Title)
	}
	if result.Score != 8.2 {
		t.Errorf("Score = %v, want 8.2", result.Score)
	}
}

func TestFetchNotFoundHTTP404(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"status_code":34,"status_message":"not found"}`)) //nolint:errcheck
	}))
	defer srv.Close()

	result := testClient(srv.URL).Fetch(context.Background(), 999)
	if result.Status != StatusNotFound {
		t.Errorf("Status = %v, want not_found", result.Status)
	}
}

func TestFetchNotFoundBodyCode(t *testing.T) {
	t.Parallel()

	// Some provider deployments return 200 with a body-level error code.
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`{"status_code":34}`)) //nolint:errcheck
	}))
	defer srv.Close()

	result := testClient(srv.URL).Fetch(context.Background(), 999)
	if result.Status != StatusNotFound {
		t.Errorf("Status = %v, want not_found", result.Status)
	}
}

func TestFetchServerErrorIsTransient(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	result := testClient(srv.URL).Fetch(context.Background(), 603)
	if result.Status != StatusTransient {
		t.Errorf("Status = %v, want transient", result.Status)
	}
	if result.Cause == nil {
		t.Error("transient result missing cause")
	}
}

func TestFetchTimeoutIsTransient(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer srv.Close()

	client := NewClient(Config{
		BaseURL:            srv.URL,
		Timeout:            20 * time.Millisecond,
		BreakerOpenTimeout: time.Minute,
	})

	result := client.Fetch(context.Background(), 603)
	if result.Status != StatusTransient {
		t.Errorf("Status = %v, want transient", result.Status)
	}
}

func TestFetchMissingTitleIsTransient(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`{"vote_average":8.2}`)) //nolint:errcheck
	}))
	defer srv.Close()

	result := testClient(srv.URL).Fetch(context.Background(), 603)
	if result.Status != StatusTransient {
		t.Errorf("Status = %v, want transient", result.Status)
	}
}

func TestBreakerOpensAfterConsecutiveFailures(t *testing.T) {
	t.Parallel()

	var requests int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		requests++
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	client := testClient(srv.URL) // threshold 3

	for i := 0; i < 5; i++ {
		result := client.Fetch(context.Background(), 603)
		if result.Status != StatusTransient {
			t.Fatalf("fetch %d: Status = %v, want transient", i, result.Status)
		}
	}

	// Once open, the breaker rejects locally without touching the provider.
	if requests > 3 {
		t.Errorf("provider saw %d requests after breaker threshold 3", requests)
	}
}

func TestNotFoundDoesNotTripBreaker(t *testing.T) {
	t.Parallel()

	var requests int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		requests++
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"status_code":34}`)) //nolint:errcheck
	}))
	defer srv.Close()

	client := testClient(srv.URL)
	for i := 0; i < 10; i++ {
		result := client.Fetch(context.Background(), 999)
		if result.Status != StatusNotFound {
			t.Fatalf("fetch %d: Status = %v, want not_found", i, result.Status)
		}
	}
	if requests != 10 {
		t.Errorf("provider saw %d requests, want all 10 (breaker must not trip)", requests)
	}
}
