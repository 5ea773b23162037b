// MoviePulse - Title Trend Scoring Pipeline
// Copyright 2026 MoviePulse contributors
// SPDX-License-Identifier: Apache-2.0

package events

import (
	"errors"
	"testing"
	"time"
)

func TestNewViewEnvelope(t *testing.T) {
	t.Parallel()

	ev := NewView(42)
	if ev.Kind != KindView {
		t.Errorf("Kind = %q, want %q", ev.Kind, KindView)
	}
	if ev.TMDBID != 42 {
		t.Errorf("TMDBID = %d, want 42", ev.TMDBID)
	}
	if ev.EventID == "" {
		t.Error("EventID is empty")
	}
	if ev.OccurredAt.IsZero() {
		t.Error("OccurredAt is zero")
	}
	if ev.Topic() != TopicView {
		t.Errorf("Topic() = %q, want %q", ev.Topic(), TopicView)
	}
}

func TestNewRefreshEnvelope(t *testing.T) {
	t.Parallel()

	ev := NewRefresh(42)
	if ev.Kind != KindRefresh {
		t.Errorf("Kind = %q, want %q", ev.Kind, KindRefresh)
	}
	if ev.Topic() != TopicRefresh {
		t.Errorf("Topic() = %q, want %q", ev.Topic(), TopicRefresh)
	}
}

func TestEventIDsUnique(t *testing.T) {
	t.Parallel()

	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		ev := NewView(1)
		if seen[ev.EventID] {
			t.Fatalf("duplicate event id %q", ev.EventID)
		}
		seen[ev.EventID] = true
	}
}

func TestMarshalUnmarshalRoundTrip(t *testing.T) {
	t.Parallel()

	original := NewRefresh(603)
	data, err := Marshal(original)
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}

	decoded, err := Unmarshal(data)
	if err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	if decoded.EventID != original.EventID {
		t.Errorf("EventID = %q, want %q", decoded.EventID, original.EventID)
	}
	if decoded.Kind != original.Kind {
		t.Errorf("Kind = %q, want %q", decoded.Kind, original.Kind)
	}
	if decoded.TMDBID != original.TMDBID {
		t.Errorf("TMDBID = %d, want %d", decoded.TMDBID, original.TMDBID)
	}
}

func TestMarshalRejectsInvalid(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		ev   Envelope
	}{
		{"zero id", Envelope{EventID: "x", Kind: KindView, TMDBID: 0, OccurredAt: time.Now()}},
		{"negative id", Envelope{EventID: "x", Kind: KindView, TMDBID: -7, OccurredAt: time.Now()}},
		{"unknown kind", Envelope{EventID: "x", Kind: "delete", TMDBID: 1, OccurredAt: time.Now()}},
		{"missing event id", Envelope{Kind: KindView, TMDBID: 1, OccurredAt: time.Now()}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := Marshal(tt.ev)
			var verr *ValidationError
			if !errors.As(err, &verr) {
				t.Errorf("Marshal error = %v, want *ValidationError", err)
			}
		})
	}
}

func TestUnmarshalRejectsGarbage(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		payload string
	}{
		{"not json", "not json at all"},
		{"empty", ""},
		{"wrong type", `{"event_id":"x","kind":"view","tmdb_id":"abc"}`},
		{"unknown kind", `{"event_id":"x","kind":"purge","tmdb_id":1}`},
		{"zero id", `{"event_id":"x","kind":"view","tmdb_id":0}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := Unmarshal([]byte(tt.payload))
			var verr *ValidationError
			if !errors.As(err, &verr) {
				t.Errorf("Unmarshal(%q) error = %v, want *ValidationError", tt.payload, err)
			}
		})
	}
}

func TestStreamSubjectsCoverTopics(t *testing.T) {
	t.Parallel()

	// All topics live under the trend.> wildcard so one stream captures
	// the whole pipeline.
	for _, topic := range []string{TopicView, TopicRefresh, TopicDeadLetter} {
		if len(topic) < 6 || topic[:6] != "trend." {
			t.Errorf("topic %q outside the trend.> subject space", topic)
		}
	}
}
