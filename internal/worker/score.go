// MoviePulse - Title Trend Scoring Pipeline
// Copyright 2026 MoviePulse contributors
// SPDX-License-Identifier: Apache-2.0

package worker

import (
	"context"
	"errors"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/rs/zerolog"

	"github.com/moviepulse/moviepulse/internal/bus"
	"github.com/moviepulse/moviepulse/internal/events"
	"github.com/moviepulse/moviepulse/internal/metrics"
	"github.com/moviepulse/moviepulse/internal/store"
	"github.com/moviepulse/moviepulse/internal/tmdb"
	"github.com/moviepulse/moviepulse/internal/trend"
)

// Fetcher retrieves external metadata for a title.
type Fetcher interface {
	Fetch(ctx context.Context, tmdbID int64) tmdb.Result
}

// ScoreStore is the store surface the score consumer needs.
type ScoreStore interface {
	ApplyScore(ctx context.Context, tmdbID int64, title string, externalScore float64, combine store.CombineFunc) (bool, error)
	Delete(ctx context.Context, tmdbID int64) error
}

// ScoreConsumer drains refresh events: it fetches the external score and
// either applies the combined trend score, purges an authoritatively
// unknown title, or requeues on transient provider failure.
//
// The external fetch always completes before the record transaction
// opens, so no row lock is ever held across a provider call.
type ScoreConsumer struct {
	store   ScoreStore
	fetcher Fetcher
	scorer  *trend.Scorer
	logger  zerolog.Logger
}

// NewScoreConsumer creates the score consumer.
//
//nolint:gocritic // zerolog.Logger is designed to be passed by value
func NewScoreConsumer(store ScoreStore, fetcher Fetcher, scorer *trend.Scorer, logger zerolog.Logger) *ScoreConsumer {
	return &ScoreConsumer{store: store, fetcher: fetcher, scorer: scorer, logger: logger}
}

// Handle processes one refresh event.
func (c *ScoreConsumer) Handle(msg *message.Message) error {
	ctx := msg.Context()

	ev, err := events.Unmarshal(msg.Payload)
	if err != nil {
		metrics.EventsProcessed.WithLabelValues("score", metrics.OutcomeDeadLettered).Inc()
		c.logger.Error().Err(err).Str("message_uuid", msg.UUID).
			Msg("malformed refresh event")
		return bus.NewPermanentError("malformed refresh event", err)
	}
	if ev.Kind != events.KindRefresh {
		metrics.EventsProcessed.WithLabelValues("score", metrics.OutcomeDeadLettered).Inc()
		return bus.NewPermanentError("unexpected event kind on refresh topic: "+string(ev.Kind), nil)
	}

	result := c.fetcher.Fetch(ctx, ev.TMDBID)
	switch result.Status {
	case tmdb.StatusFound:
		return c.applyScore(ctx, ev.TMDBID, result)
	case tmdb.StatusNotFound:
		return c.purge(ctx, ev.TMDBID)
	default:
		metrics.EventsProcessed.WithLabelValues("score", metrics.OutcomeRetried).Inc()
		c.logger.Warn().Err(result.Cause).Int64("tmdb_id", ev.TMDBID).
			Msg("transient fetch failure, requeueing")
		return bus.NewRetryableError("fetch external score", result.Cause)
	}
}

func (c *ScoreConsumer) applyScore(ctx context.Context, tmdbID int64, result tmdb.Result) error {
	found, err := c.store.ApplyScore(ctx, tmdbID, result.Title, result.Score, c.scorer.Combine)
	if err != nil {
		// Combine rejects out-of-range inputs; retrying the same payload
		// cannot succeed, anything else is a store fault worth retrying.
		if isCombineError(err) {
			metrics.EventsProcessed.WithLabelValues("score", metrics.OutcomeDeadLettered).Inc()
			c.logger.Error().Err(err).Int64("tmdb_id", tmdbID).
				Float64("external_score", result.Score).
				Msg("score combination rejected input")
			return bus.NewPermanentError("combine scores", err)
		}
		metrics.EventsProcessed.WithLabelValues("score", metrics.OutcomeRetried).Inc()
		return bus.NewRetryableError("apply score", err)
	}
	if !found {
		metrics.EventsProcessed.WithLabelValues("score", metrics.OutcomeDropped).Inc()
		c.logger.Debug().Int64("tmdb_id", tmdbID).Msg("refresh for unknown title dropped")
		return nil
	}

	metrics.EventsProcessed.WithLabelValues("score", metrics.OutcomeProcessed).Inc()
	c.logger.Info().Int64("tmdb_id", tmdbID).Str("title", result.Title).
		Float64("external_score", result.Score).
		Msg("trend score refreshed")
	return nil
}

// purge removes the record for an id the provider authoritatively
// disavows. Delete is idempotent, so redeliveries converge on absence.
func (c *ScoreConsumer) purge(ctx context.Context, tmdbID int64) error {
	if err := c.store.Delete(ctx, tmdbID); err != nil {
		metrics.EventsProcessed.WithLabelValues("score", metrics.OutcomeRetried).Inc()
		return bus.NewRetryableError("purge unknown title", err)
	}
	metrics.EventsProcessed.WithLabelValues("score", metrics.OutcomeProcessed).Inc()
	c.logger.Info().Int64("tmdb_id", tmdbID).Msg("title purged, provider reports not found")
	return nil
}

func isCombineError(err error) bool {
	return errors.Is(err, trend.ErrNegativeViews) || errors.Is(err, trend.ErrScoreOutOfRange)
}
