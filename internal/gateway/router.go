// MoviePulse - Title Trend Scoring Pipeline
// Copyright 2026 MoviePulse contributors
// SPDX-License-Identifier: Apache-2.0

package gateway

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/moviepulse/moviepulse/internal/metrics"
)

// RouterConfig holds HTTP surface settings.
type RouterConfig struct {
	// RequestTimeout bounds each request end to end.
	RequestTimeout time.Duration `koanf:"request_timeout"`

	// ViewRateLimit is the per-IP request budget for the view endpoint
	// per ViewRatePeriod. 0 disables rate limiting.
	ViewRateLimit int `koanf:"view_rate_limit"`

	// ViewRatePeriod is the window over which ViewRateLimit applies.
	ViewRatePeriod time.Duration `koanf:"view_rate_period"`

	// CORSAllowedOrigins lists origins allowed to call the API from a
	// browser. Empty disables CORS handling entirely.
	CORSAllowedOrigins []string `koanf:"cors_allowed_origins"`

	// CORSMaxAge is how long browsers may cache preflight responses,
	// in seconds.
	CORSMaxAge int `koanf:"cors_max_age"`
}

// DefaultRouterConfig returns production defaults.
func DefaultRouterConfig() RouterConfig {
	return RouterConfig{
		RequestTimeout:     15 * time.Second,
		ViewRateLimit:      100,
		ViewRatePeriod:     time.Minute,
		CORSAllowedOrigins: []string{"*"},
		CORSMaxAge:         300,
	}
}

// NewRouter assembles the gateway HTTP routes.
func NewRouter(h *Handler, cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.Timeout(cfg.RequestTimeout))
	if len(cfg.CORSAllowedOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: cfg.CORSAllowedOrigins,
			AllowedMethods: []string{http.MethodGet, http.MethodPost},
			AllowedHeaders: []string{"Accept", "Content-Type"},
			MaxAge:         cfg.CORSMaxAge,
		}))
	}

	r.Get("/healthz", h.Healthz)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/api/movies", func(r chi.Router) {
		r.Use(requestMetrics)

		r.Post("/register", h.Register)

		// Views are the high-volume write path; everything else is
		// operator traffic and stays unthrottled.
		if cfg.ViewRateLimit > 0 {
			r.With(httprate.LimitByIP(cfg.ViewRateLimit, cfg.ViewRatePeriod)).
				Post("/view", h.View)
		} else {
			r.Post("/view", h.View)
		}

		r.Get("/", h.List)
		r.Get("/{tmdbID}", h.Get)
		r.Post("/{tmdbID}/refresh", h.Refresh)
	})

	r.Route("/api/deadletters", func(r chi.Router) {
		r.Use(requestMetrics)
		r.Get("/", h.DeadLetters)
	})

	return r
}

// requestMetrics records one counter sample per request, labeled with the
// route pattern rather than the raw path so ids do not explode cardinality.
func requestMetrics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		pattern := chi.RouteContext(r.Context()).RoutePattern()
		if pattern == "" {
			pattern = "unmatched"
		}
		metrics.HTTPRequests.WithLabelValues(
			r.Method, pattern, strconv.Itoa(ww.Status())).Inc()
	})
}
