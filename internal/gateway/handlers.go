// MoviePulse - Title Trend Scoring Pipeline
// Copyright 2026 MoviePulse contributors
// SPDX-License-Identifier: Apache-2.0

// Package gateway provides the HTTP API in front of the trend pipeline.
//
// The gateway never computes scores. Writes are translated into events on
// the bus and acknowledged with 202 before any consumer runs; reads serve
// whatever the store currently holds.
package gateway

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"github.com/moviepulse/moviepulse/internal/events"
	"github.com/moviepulse/moviepulse/internal/store"
)

// EventPublisher publishes trend events to the bus.
type EventPublisher interface {
	PublishEvent(ctx context.Context, ev events.Envelope) error
}

// TitleStore is the store surface the gateway needs.
type TitleStore interface {
	Register(ctx context.Context, tmdbID int64) (bool, error)
	Get(ctx context.Context, tmdbID int64) (*store.Title, error)
	List(ctx context.Context) ([]store.Title, error)
	ListDeadLetters(ctx context.Context, limit int) ([]store.DeadLetter, error)
}

// Handler holds the gateway's HTTP handlers.
type Handler struct {
	store     TitleStore
	publisher EventPublisher
	validate  *validator.Validate
	logger    zerolog.Logger
}

// NewHandler creates the gateway handler set.
//
//nolint:gocritic // zerolog.Logger is designed to be passed by value
func NewHandler(titleStore TitleStore, publisher EventPublisher, logger zerolog.Logger) *Handler {
	return &Handler{
		store:     titleStore,
		publisher: publisher,
		validate:  validator.New(validator.WithRequiredStructEnabled()),
		logger:    logger,
	}
}

type registerRequest struct {
	TMDBID int64 `json:"tmdb_id" validate:"required,gt=0"`
}

type viewRequest struct {
	TMDBID int64 `json:"tmdb_id" validate:"required,gt=0"`
}

type acceptedResponse struct {
	Status  string `json:"status"`
	TMDBID  int64  `json:"tmdb_id"`
	EventID string `json:"event_id,omitempty"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// Register creates a minimal record for a title and enqueues the initial
// score fetch. 201 on creation, 409 when the id is already registered.
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if !h.decode(w, r, &req) {
		return
	}

	created, err := h.store.Register(r.Context(), req.TMDBID)
	if err != nil {
		h.logger.Error().Err(err).Int64("tmdb_id", req.TMDBID).Msg("register failed")
		h.respondError(w, http.StatusServiceUnavailable, "storage unavailable")
		return
	}
	if !created {
		h.respondError(w, http.StatusConflict, "title already registered")
		return
	}

	// The initial refresh is best effort. The record exists either way and
	// any later refresh request converges it.
	ev := events.NewRefresh(req.TMDBID)
	if err := h.publisher.PublishEvent(r.Context(), ev); err != nil {
		h.logger.Warn().Err(err).Int64("tmdb_id", req.TMDBID).
			Msg("initial refresh event not published")
	}

	h.respondJSON(w, http.StatusCreated, acceptedResponse{
		Status:  "registered",
		TMDBID:  req.TMDBID,
		EventID: ev.EventID,
	})
}

// View accepts a view signal for a registered title. The increment is
// asynchronous: 202 means the event is on the bus, not that the counter
// has moved.
func (h *Handler) View(w http.ResponseWriter, r *http.Request) {
	var req viewRequest
	if !h.decode(w, r, &req) {
		return
	}

	if _, err := h.store.Get(r.Context(), req.TMDBID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			h.respondError(w, http.StatusNotFound, "title not registered")
			return
		}
		h.logger.Error().Err(err).Int64("tmdb_id", req.TMDBID).Msg("view lookup failed")
		h.respondError(w, http.StatusServiceUnavailable, "storage unavailable")
		return
	}

	ev := events.NewView(req.TMDBID)
	if err := h.publisher.PublishEvent(r.Context(), ev); err != nil {
		h.logger.Error().Err(err).Int64("tmdb_id", req.TMDBID).Msg("view event publish failed")
		h.respondError(w, http.StatusServiceUnavailable, "event bus unavailable")
		return
	}

	h.respondJSON(w, http.StatusAccepted, acceptedResponse{
		Status:  "accepted",
		TMDBID:  req.TMDBID,
		EventID: ev.EventID,
	})
}

// Refresh enqueues an external score fetch for a title.
func (h *Handler) Refresh(w http.ResponseWriter, r *http.Request) {
	tmdbID, ok := h.pathID(w, r)
	if !ok {
		return
	}

	if _, err := h.store.Get(r.Context(), tmdbID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			h.respondError(w, http.StatusNotFound, "title not registered")
			return
		}
		h.logger.Error().Err(err).Int64("tmdb_id", tmdbID).Msg("refresh lookup failed")
		h.respondError(w, http.StatusServiceUnavailable, "storage unavailable")
		return
	}

	ev := events.NewRefresh(tmdbID)
	if err := h.publisher.PublishEvent(r.Context(), ev); err != nil {
		h.logger.Error().Err(err).Int64("tmdb_id", tmdbID).Msg("refresh event publish failed")
		h.respondError(w, http.StatusServiceUnavailable, "event bus unavailable")
		return
	}

	h.respondJSON(w, http.StatusAccepted, acceptedResponse{
		Status:  "accepted",
		TMDBID:  tmdbID,
		EventID: ev.EventID,
	})
}

// List returns all titles ordered by trend score.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	titles, err := h.store.List(r.Context())
	if err != nil {
		h.logger.Error().Err(err).Msg("list titles failed")
		h.respondError(w, http.StatusServiceUnavailable, "storage unavailable")
		return
	}
	if titles == nil {
		titles = []store.Title{}
	}
	h.respondJSON(w, http.StatusOK, titles)
}

// Get returns a single title record.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	tmdbID, ok := h.pathID(w, r)
	if !ok {
		return
	}

	title, err := h.store.Get(r.Context(), tmdbID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			h.respondError(w, http.StatusNotFound, "title not registered")
			return
		}
		h.logger.Error().Err(err).Int64("tmdb_id", tmdbID).Msg("get title failed")
		h.respondError(w, http.StatusServiceUnavailable, "storage unavailable")
		return
	}
	h.respondJSON(w, http.StatusOK, title)
}

// DeadLetters returns recently dead-lettered messages for inspection.
func (h *Handler) DeadLetters(w http.ResponseWriter, r *http.Request) {
	limit := 100
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 || parsed > 1000 {
			h.respondError(w, http.StatusBadRequest, "limit must be between 1 and 1000")
			return
		}
		limit = parsed
	}

	letters, err := h.store.ListDeadLetters(r.Context(), limit)
	if err != nil {
		h.logger.Error().Err(err).Msg("list dead letters failed")
		h.respondError(w, http.StatusServiceUnavailable, "storage unavailable")
		return
	}
	if letters == nil {
		letters = []store.DeadLetter{}
	}
	h.respondJSON(w, http.StatusOK, letters)
}

// Healthz reports liveness.
func (h *Handler) Healthz(w http.ResponseWriter, _ *http.Request) {
	h.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<16)).Decode(dst); err != nil {
		h.respondError(w, http.StatusBadRequest, "invalid JSON body")
		return false
	}
	if err := h.validate.Struct(dst); err != nil {
		h.respondError(w, http.StatusBadRequest, "tmdb_id must be a positive integer")
		return false
	}
	return true
}

func (h *Handler) pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	raw := chi.URLParam(r, "tmdbID")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		h.respondError(w, http.StatusBadRequest, "tmdb_id must be a positive integer")
		return 0, false
	}
	return id, true
}

func (h *Handler) respondJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		h.logger.Error().Err(err).Msg("encode response failed")
	}
}

func (h *Handler) respondError(w http.ResponseWriter, status int, msg string) {
	h.respondJSON(w, status, errorResponse{Error: msg})
}
