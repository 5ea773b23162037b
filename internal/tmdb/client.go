// MoviePulse - Title Trend Scoring Pipeline
// Copyright 2026 MoviePulse contributors
// SPDX-License-Identifier: Apache-2.0

// Package tmdb wraps the external metadata provider behind a bounded client.
//
// The client applies a request timeout, a client-side rate limit and a
// circuit breaker, and never retries internally: retry policy belongs to
// the score consumer via message requeue, keeping retry state externally
// observable and boundable.
package tmdb

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/goccy/go-json"
	gobreaker "github.com/sony/gobreaker/v2"
	"golang.org/x/time/rate"

	"github.com/moviepulse/moviepulse/internal/metrics"
)

// tmdbStatusNotFound is the provider's body-level code for an invalid id,
// returned alongside HTTP 404.
const tmdbStatusNotFound = 34

// Status is the outcome discriminator for a fetch.
type Status int

const (
	// StatusFound means the provider returned a title and score.
	StatusFound Status = iota
	// StatusNotFound means the provider authoritatively disavows the id.
	StatusNotFound
	// StatusTransient means the fetch failed for a retryable reason:
	// network error, timeout, rate limit, non-2xx, open breaker.
	StatusTransient
)

func (s Status) String() string {
	switch s {
	case StatusFound:
		return "found"
	case StatusNotFound:
		return "not_found"
	default:
		return "transient"
	}
}

// Result is the closed outcome union of a metadata fetch.
type Result struct {
	Status Status
	Title  string
	Score  float64
	Cause  error
}

// Config holds client configuration.
type Config struct {
	// BaseURL is the provider API root, e.g. https://api.themoviedb.org/3.
	BaseURL string

	// APIKey authenticates requests.
	APIKey string

	// Timeout bounds each request end to end.
	Timeout time.Duration

	// RequestsPerSecond is the client-side rate limit. 0 disables limiting.
	RequestsPerSecond float64

	// Burst is the rate limiter burst size.
	Burst int

	// BreakerFailureThreshold is the consecutive-failure count that opens
	// the circuit breaker.
	BreakerFailureThreshold uint32

	// BreakerOpenTimeout is how long the breaker stays open before probing.
	BreakerOpenTimeout time.Duration
}

// DefaultConfig returns production defaults for the client.
func DefaultConfig() Config {
	return Config{
		BaseURL:                 "https://api.themoviedb.org/3",
		Timeout:                 10 * time.Second,
		RequestsPerSecond:       40,
		Burst:                   10,
		BreakerFailureThreshold: 5,
		BreakerOpenTimeout:      30 * time.Second,
	}
}

// Client is a bounded metadata provider client.
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	limiter    *rate.Limiter
	breaker    *gobreaker.CircuitBreaker[Result]
}

// NewClient creates a client from configuration.
func NewClient(cfg Config) *Client {
	var limiter *rate.Limiter
	if cfg.RequestsPerSecond > 0 {
		burst := cfg.Burst
		if burst <= 0 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), burst)
	}

	threshold := cfg.BreakerFailureThreshold
	if threshold == 0 {
		threshold = 5
	}

	breaker := gobreaker.NewCircuitBreaker[Result](gobreaker.Settings{
		Name:    "tmdb",
		Timeout: cfg.BreakerOpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
	})

	return &Client{
		httpClient: &http.Client{Timeout: cfg.Timeout},
		baseURL:    cfg.BaseURL,
		apiKey:     cfg.APIKey,
		limiter:    limiter,
		breaker:    breaker,
	}
}

type movieResponse struct {
	Title       string  `json:"title"`
	VoteAverage float64 `json:"vote_average"`
	StatusCode  int     `json:"status_code"`
}

// Fetch retrieves title and score for the given external id.
// The outcome is always one of Found, NotFound or Transient; a timed-out
// or breaker-rejected request is Transient, never a crash.
func (c *Client) Fetch(ctx context.Context, tmdbID int64) Result {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return transient(fmt.Errorf("rate limiter: %w", err))
		}
	}

	result, err := c.breaker.Execute(func() (Result, error) {
		return c.doFetch(ctx, tmdbID)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return transient(fmt.Errorf("circuit breaker: %w", err))
		}
		return transient(err)
	}

	metrics.FetchOutcomes.WithLabelValues(result.Status.String()).Inc()
	return result
}

// doFetch runs a single request. Only transient causes are returned as
// errors so the breaker counts NotFound as a healthy provider response.
func (c *Client) doFetch(ctx context.Context, tmdbID int64) (Result, error) {
	url := fmt.Sprintf("%s/movie/%d?api_key=%s", c.baseURL, tmdbID, c.apiKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return Result{}, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Result{}, fmt.Errorf("provider request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return Result{}, fmt.Errorf("read provider response: %w", err)
	}

	if resp.StatusCode == http.StatusNotFound {
		return Result{Status: StatusNotFound}, nil
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return Result{}, fmt.Errorf("provider status %d", resp.StatusCode)
	}

	var movie movieResponse
	if err := json.Unmarshal(body, &movie); err != nil {
		return Result{}, fmt.Errorf("decode provider response: %w", err)
	}
	if movie.StatusCode == tmdbStatusNotFound {
		return Result{Status: StatusNotFound}, nil
	}
	if movie.Title == "" {
		return Result{}, fmt.Errorf("provider response missing title for id %d", tmdbID)
	}

	return Result{Status: StatusFound, Title: movie.Title, Score: movie.VoteAverage}, nil
}

func transient(cause error) Result {
	metrics.FetchOutcomes.WithLabelValues(StatusTransient.String()).Inc()
	return Result{Status: StatusTransient, Cause: cause}
}
