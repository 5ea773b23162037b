// MoviePulse - Title Trend Scoring Pipeline
// Copyright 2026 MoviePulse contributors
// SPDX-License-Identifier: Apache-2.0

package store

import (
	"context"
	"fmt"
)

// schema is the full DDL. Statements are idempotent so every binary can
// run EnsureSchema at startup without coordination.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS titles (
		tmdb_id           BIGINT PRIMARY KEY,
		title             TEXT,
		internal_views    BIGINT NOT NULL DEFAULT 0 CHECK (internal_views >= 0),
		external_score    DOUBLE PRECISION NOT NULL DEFAULT 0,
		final_trend_score DOUBLE PRECISION NOT NULL DEFAULT 0,
		created_at        TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at        TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS dead_letters (
		id          BIGSERIAL PRIMARY KEY,
		topic       TEXT NOT NULL,
		reason      TEXT NOT NULL,
		payload     BYTEA NOT NULL,
		metadata    JSONB,
		received_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_titles_trend_score
		ON titles (final_trend_score DESC)`,
	`CREATE INDEX IF NOT EXISTS idx_dead_letters_received_at
		ON dead_letters (received_at DESC)`,
}

// EnsureSchema creates the tables and indexes if they do not exist.
func (s *Store) EnsureSchema(ctx context.Context) error {
	for _, stmt := range schema {
		if _, err := s.db.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}
