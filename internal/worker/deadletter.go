// MoviePulse - Title Trend Scoring Pipeline
// Copyright 2026 MoviePulse contributors
// SPDX-License-Identifier: Apache-2.0

package worker

import (
	"context"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/message/router/middleware"
	"github.com/rs/zerolog"

	"github.com/moviepulse/moviepulse/internal/store"
)

// DeadLetterStore is the store surface the drainer needs.
type DeadLetterStore interface {
	InsertDeadLetter(ctx context.Context, dl store.DeadLetter) error
}

// DeadLetterConsumer drains the poison topic into durable storage so
// failed messages survive broker retention and stay inspectable.
//
// It runs outside the router middleware chain: a persistence failure
// nacks and the broker redelivers, rather than re-poisoning the poison
// topic.
type DeadLetterConsumer struct {
	store  DeadLetterStore
	logger zerolog.Logger
}

// NewDeadLetterConsumer creates the drainer.
//
//nolint:gocritic // zerolog.Logger is designed to be passed by value
func NewDeadLetterConsumer(store DeadLetterStore, logger zerolog.Logger) *DeadLetterConsumer {
	return &DeadLetterConsumer{store: store, logger: logger}
}

// Handle persists one poisoned message. The poison middleware records the
// failure context in message metadata; the original payload travels
// unchanged.
func (c *DeadLetterConsumer) Handle(ctx context.Context, msg *message.Message) error {
	dl := store.DeadLetter{
		Topic:    msg.Metadata.Get(middleware.PoisonedTopicKey),
		Reason:   msg.Metadata.Get(middleware.ReasonForPoisonedKey),
		Payload:  []byte(msg.Payload),
		Metadata: map[string]string(msg.Metadata),
	}

	if err := c.store.InsertDeadLetter(ctx, dl); err != nil {
		c.logger.Error().Err(err).Str("message_uuid", msg.UUID).
			Msg("failed to persist dead letter")
		return err
	}

	c.logger.Warn().
		Str("message_uuid", msg.UUID).
		Str("source_topic", dl.Topic).
		Str("reason", dl.Reason).
		Msg("dead letter persisted")
	return nil
}
