// MoviePulse - Title Trend Scoring Pipeline
// Copyright 2026 MoviePulse contributors
// SPDX-License-Identifier: Apache-2.0

// Package store persists per-title trend records in Postgres.
//
// Every mutation is an atomic read-modify-write scoped to a single record:
// a one-statement UPDATE for counters, a short row-locking transaction for
// score application. There are no cross-record transactions and no lock is
// ever held across an external call boundary.
package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/moviepulse/moviepulse/internal/metrics"
)

// ErrNotFound is returned by read paths when no record exists for the id.
var ErrNotFound = errors.New("record not found")

// DB is the subset of pgxpool.Pool used by the store.
// pgxmock satisfies it for tests.
type DB interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Title is one per-title trend record. The external id is the natural key.
type Title struct {
	TMDBID          int64      `json:"tmdb_id"`
	Title           *string    `json:"title"`
	InternalViews   int64      `json:"internal_views"`
	ExternalScore   float64    `json:"external_score"`
	FinalTrendScore float64    `json:"final_trend_score"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

// CombineFunc computes the final trend score from the latest committed
// view count and the freshly fetched external score.
type CombineFunc func(views int64, externalScore float64) (float64, error)

// Store provides record operations over a pgx connection pool.
type Store struct {
	db DB
}

// New creates a store over an open connection.
func New(db DB) *Store {
	return &Store{db: db}
}

// Connect opens a pgx connection pool for the given DSN and verifies it.
func Connect(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("open connection pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return pool, nil
}

// Register creates a minimal record for the id if none exists.
// Returns false when the id is already registered.
func (s *Store) Register(ctx context.Context, tmdbID int64) (bool, error) {
	start := time.Now()
	tag, err := s.db.Exec(ctx,
		`INSERT INTO titles (tmdb_id) VALUES ($1) ON CONFLICT (tmdb_id) DO NOTHING`,
		tmdbID)
	metrics.ObserveStoreOp("register", start, err)
	if err != nil {
		return false, fmt.Errorf("register title %d: %w", tmdbID, err)
	}
	return tag.RowsAffected() == 1, nil
}

// IncrementViews atomically adds one view to the record.
// Returns false without error when the record does not exist: a view on a
// nonexistent title is a no-op, not a failure.
func (s *Store) IncrementViews(ctx context.Context, tmdbID int64) (bool, error) {
	start := time.Now()
	tag, err := s.db.Exec(ctx,
		`UPDATE titles
		    SET internal_views = internal_views + 1, updated_at = now()
		  WHERE tmdb_id = $1`,
		tmdbID)
	metrics.ObserveStoreOp("increment_views", start, err)
	if err != nil {
		return false, fmt.Errorf("increment views for %d: %w", tmdbID, err)
	}
	return tag.RowsAffected() == 1, nil
}

// ApplyScore writes title, external score and the recomputed trend score in
// one atomic update. The record row is locked for the duration so the view
// count passed to combine is the latest committed value at write time; a
// racing increment either lands before the lock (and is observed) or waits
// for the commit (and survives it).
//
// Returns false without error when the record does not exist.
func (s *Store) ApplyScore(ctx context.Context, tmdbID int64, title string, externalScore float64, combine CombineFunc) (bool, error) {
	start := time.Now()
	found, err := s.applyScore(ctx, tmdbID, title, externalScore, combine)
	metrics.ObserveStoreOp("apply_score", start, err)
	return found, err
}

func (s *Store) applyScore(ctx context.Context, tmdbID int64, title string, externalScore float64, combine CombineFunc) (bool, error) {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return false, fmt.Errorf("begin score update for %d: %w", tmdbID, err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck // rollback after commit is a no-op

	var views int64
	err = tx.QueryRow(ctx,
		`SELECT internal_views FROM titles WHERE tmdb_id = $1 FOR UPDATE`,
		tmdbID).Scan(&views)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("lock record %d: %w", tmdbID, err)
	}

	trendScore, err := combine(views, externalScore)
	if err != nil {
		return false, fmt.Errorf("combine scores for %d: %w", tmdbID, err)
	}

	if _, err := tx.Exec(ctx,
		`UPDATE titles
		    SET title = $2, external_score = $3, final_trend_score = $4, updated_at = now()
		  WHERE tmdb_id = $1`,
		tmdbID, title, externalScore, trendScore); err != nil {
		return false, fmt.Errorf("write score for %d: %w", tmdbID, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return false, fmt.Errorf("commit score update for %d: %w", tmdbID, err)
	}
	return true, nil
}

// Delete removes the record for the id. Deleting a record that does not
// exist is a no-op so redelivered not-found purges stay idempotent.
func (s *Store) Delete(ctx context.Context, tmdbID int64) error {
	start := time.Now()
	_, err := s.db.Exec(ctx, `DELETE FROM titles WHERE tmdb_id = $1`, tmdbID)
	metrics.ObserveStoreOp("delete", start, err)
	if err != nil {
		return fmt.Errorf("delete title %d: %w", tmdbID, err)
	}
	return nil
}

// Get returns the record for the id, or ErrNotFound.
func (s *Store) Get(ctx context.Context, tmdbID int64) (*Title, error) {
	start := time.Now()
	var t Title
	err := s.db.QueryRow(ctx,
		`SELECT tmdb_id, title, internal_views, external_score, final_trend_score,
		        created_at, updated_at
		   FROM titles WHERE tmdb_id = $1`,
		tmdbID).Scan(&t.TMDBID, &t.Title, &t.InternalViews, &t.ExternalScore,
		&t.FinalTrendScore, &t.CreatedAt, &t.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		metrics.ObserveStoreOp("get", start, nil)
		return nil, ErrNotFound
	}
	metrics.ObserveStoreOp("get", start, err)
	if err != nil {
		return nil, fmt.Errorf("get title %d: %w", tmdbID, err)
	}
	return &t, nil
}

// List returns all records ordered by trend score, highest first.
func (s *Store) List(ctx context.Context) ([]Title, error) {
	start := time.Now()
	rows, err := s.db.Query(ctx,
		`SELECT tmdb_id, title, internal_views, external_score, final_trend_score,
		        created_at, updated_at
		   FROM titles ORDER BY final_trend_score DESC, tmdb_id`)
	metrics.ObserveStoreOp("list", start, err)
	if err != nil {
		return nil, fmt.Errorf("list titles: %w", err)
	}
	defer rows.Close()

	var titles []Title
	for rows.Next() {
		var t Title
		if err := rows.Scan(&t.TMDBID, &t.Title, &t.InternalViews, &t.ExternalScore,
			&t.FinalTrendScore, &t.CreatedAt, &t.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan title: %w", err)
		}
		titles = append(titles, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate titles: %w", err)
	}
	return titles, nil
}
