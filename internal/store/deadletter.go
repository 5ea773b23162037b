// MoviePulse - Title Trend Scoring Pipeline
// Copyright 2026 MoviePulse contributors
// SPDX-License-Identifier: Apache-2.0

package store

import (
	"context"
	"fmt"
	"time"

	"github.com/goccy/go-json"

	"github.com/moviepulse/moviepulse/internal/metrics"
)

// DeadLetter is one permanently failed message, captured with its full
// payload so an operator can inspect and replay it manually.
type DeadLetter struct {
	ID         int64             `json:"id"`
	Topic      string            `json:"topic"`
	Reason     string            `json:"reason"`
	Payload    []byte            `json:"payload"`
	Metadata   map[string]string `json:"metadata"`
	ReceivedAt time.Time         `json:"received_at"`
}

// InsertDeadLetter persists a dead-lettered message.
func (s *Store) InsertDeadLetter(ctx context.Context, dl DeadLetter) error {
	meta, err := json.Marshal(dl.Metadata)
	if err != nil {
		return fmt.Errorf("marshal dead letter metadata: %w", err)
	}

	start := time.Now()
	_, err = s.db.Exec(ctx,
		`INSERT INTO dead_letters (topic, reason, payload, metadata) VALUES ($1, $2, $3, $4)`,
		dl.Topic, dl.Reason, dl.Payload, meta)
	metrics.ObserveStoreOp("insert_dead_letter", start, err)
	if err != nil {
		return fmt.Errorf("insert dead letter: %w", err)
	}
	metrics.DeadLettersPersisted.Inc()
	return nil
}

// ListDeadLetters returns the most recent dead-lettered messages.
func (s *Store) ListDeadLetters(ctx context.Context, limit int) ([]DeadLetter, error) {
	if limit <= 0 {
		limit = 100
	}

	start := time.Now()
	rows, err := s.db.Query(ctx,
		`SELECT id, topic, reason, payload, metadata, received_at
		   FROM dead_letters ORDER BY received_at DESC LIMIT $1`,
		limit)
	metrics.ObserveStoreOp("list_dead_letters", start, err)
	if err != nil {
		return nil, fmt.Errorf("list dead letters: %w", err)
	}
	defer rows.Close()

	var letters []DeadLetter
	for rows.Next() {
		var (
			dl   DeadLetter
			meta []byte
		)
		if err := rows.Scan(&dl.ID, &dl.Topic, &dl.Reason, &dl.Payload, &meta, &dl.ReceivedAt); err != nil {
			return nil, fmt.Errorf("scan dead letter: %w", err)
		}
		if len(meta) > 0 {
			if err := json.Unmarshal(meta, &dl.Metadata); err != nil {
				return nil, fmt.Errorf("decode dead letter metadata: %w", err)
			}
		}
		letters = append(letters, dl)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate dead letters: %w", err)
	}
	return letters, nil
}
