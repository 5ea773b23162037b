// MoviePulse - Title Trend Scoring Pipeline
// Copyright 2026 MoviePulse contributors
// SPDX-License-Identifier: Apache-2.0

// Package events defines the message contracts carried on the event bus.
//
// Two event kinds exist, one per topic: a view event recording a single
// internal view, and a refresh event requesting an external score fetch.
// The kind is a closed tagged union at the serialization boundary; payloads
// carrying an unknown kind or an invalid id are rejected as permanent
// validation failures before any handler logic runs.
package events

import (
	"fmt"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
)

// Kind discriminates the event union.
type Kind string

const (
	// KindView is a single internal view of a title.
	KindView Kind = "view"
	// KindRefresh requests an external score fetch for a title.
	KindRefresh Kind = "refresh"
)

// JetStream subjects. One stream captures both topics plus the dead-letter
// sink so retention and dedup policy are managed in one place.
const (
	StreamName = "TREND_EVENTS"

	// TopicView carries KindView events.
	TopicView = "trend.view.events"
	// TopicRefresh carries KindRefresh events.
	TopicRefresh = "trend.refresh.events"
	// TopicDeadLetter receives messages that exhausted their retry budget
	// or failed permanently.
	TopicDeadLetter = "trend.dlq"
)

// StreamSubjects returns the subject filters for the trend event stream.
func StreamSubjects() []string {
	return []string{"trend.>"}
}

// Envelope is the wire format shared by both event kinds.
type Envelope struct {
	EventID    string    `json:"event_id"`
	Kind       Kind      `json:"kind"`
	TMDBID     int64     `json:"tmdb_id"`
	OccurredAt time.Time `json:"occurred_at"`
}

// NewView creates a view event for the given title id.
func NewView(tmdbID int64) Envelope {
	return newEnvelope(KindView, tmdbID)
}

// NewRefresh creates a refresh event for the given title id.
func NewRefresh(tmdbID int64) Envelope {
	return newEnvelope(KindRefresh, tmdbID)
}

func newEnvelope(kind Kind, tmdbID int64) Envelope {
	return Envelope{
		EventID:    uuid.New().String(),
		Kind:       kind,
		TMDBID:     tmdbID,
		OccurredAt: time.Now().UTC(),
	}
}

// Topic returns the bus topic this event belongs on.
func (e Envelope) Topic() string {
	if e.Kind == KindView {
		return TopicView
	}
	return TopicRefresh
}

// Validate checks the envelope against the closed contract.
func (e Envelope) Validate() error {
	if e.EventID == "" {
		return &ValidationError{Field: "event_id", Message: "required"}
	}
	switch e.Kind {
	case KindView, KindRefresh:
	default:
		return &ValidationError{Field: "kind", Message: fmt.Sprintf("unknown kind %q", e.Kind)}
	}
	if e.TMDBID <= 0 {
		return &ValidationError{Field: "tmdb_id", Message: "must be positive"}
	}
	return nil
}

// Marshal validates and encodes an envelope for publishing.
func Marshal(e Envelope) ([]byte, error) {
	if err := e.Validate(); err != nil {
		return nil, err
	}
	data, err := json.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("marshal event: %w", err)
	}
	return data, nil
}

// Unmarshal decodes and validates an envelope from a message payload.
// Both decode failures and contract violations surface as *ValidationError
// so consumers can dead-letter them without retrying.
func Unmarshal(data []byte) (Envelope, error) {
	var e Envelope
	if err := json.Unmarshal(data, &e); err != nil {
		return Envelope{}, &ValidationError{Field: "payload", Message: err.Error()}
	}
	if err := e.Validate(); err != nil {
		return Envelope{}, err
	}
	return e, nil
}

// ValidationError marks a payload that violates the event contract.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Field + ": " + e.Message
}
