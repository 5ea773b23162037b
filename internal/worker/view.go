// MoviePulse - Title Trend Scoring Pipeline
// Copyright 2026 MoviePulse contributors
// SPDX-License-Identifier: Apache-2.0

// Package worker implements the two event consumers and the dead-letter
// drainer. Handlers run under the bus router: returning nil acks the
// message, a RetryableError requeues it within the bounded budget, a
// PermanentError dead-letters it immediately.
package worker

import (
	"context"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/rs/zerolog"

	"github.com/moviepulse/moviepulse/internal/bus"
	"github.com/moviepulse/moviepulse/internal/events"
	"github.com/moviepulse/moviepulse/internal/metrics"
)

// ViewStore is the store surface the view consumer needs.
type ViewStore interface {
	IncrementViews(ctx context.Context, tmdbID int64) (bool, error)
}

// ViewConsumer drains view events and increments the per-title counter.
//
// The counter commit and the broker ack are ordered commit-then-ack: a
// crash before the commit redelivers safely, a crash between commit and
// ack double counts one view. That skew is bounded by the broker's dedup
// window and accepted; views are a volume signal, not a ledger.
type ViewConsumer struct {
	store  ViewStore
	logger zerolog.Logger
}

// NewViewConsumer creates the view consumer.
//
//nolint:gocritic // zerolog.Logger is designed to be passed by value
func NewViewConsumer(store ViewStore, logger zerolog.Logger) *ViewConsumer {
	return &ViewConsumer{store: store, logger: logger}
}

// Handle processes one view event.
func (c *ViewConsumer) Handle(msg *message.Message) error {
	ctx := msg.Context()

	ev, err := events.Unmarshal(msg.Payload)
	if err != nil {
		metrics.EventsProcessed.WithLabelValues("view", metrics.OutcomeDeadLettered).Inc()
		c.logger.Error().Err(err).Str("message_uuid", msg.UUID).
			Msg("malformed view event")
		return bus.NewPermanentError("malformed view event", err)
	}
	if ev.Kind != events.KindView {
		metrics.EventsProcessed.WithLabelValues("view", metrics.OutcomeDeadLettered).Inc()
		return bus.NewPermanentError("unexpected event kind on view topic: "+string(ev.Kind), nil)
	}

	found, err := c.store.IncrementViews(ctx, ev.TMDBID)
	if err != nil {
		metrics.EventsProcessed.WithLabelValues("view", metrics.OutcomeRetried).Inc()
		return bus.NewRetryableError("increment views", err)
	}
	if !found {
		// The id may be unregistered, mid-registration, or purged by a
		// not-found refresh. A view on a nonexistent title is a no-op,
		// not an error; requeueing it would loop forever.
		metrics.EventsProcessed.WithLabelValues("view", metrics.OutcomeDropped).Inc()
		c.logger.Debug().Int64("tmdb_id", ev.TMDBID).Msg("view for unknown title dropped")
		return nil
	}

	metrics.EventsProcessed.WithLabelValues("view", metrics.OutcomeProcessed).Inc()
	c.logger.Debug().Int64("tmdb_id", ev.TMDBID).Msg("view recorded")
	return nil
}
