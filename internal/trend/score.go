// MoviePulse - Title Trend Scoring Pipeline
// Copyright 2026 MoviePulse contributors
// SPDX-License-Identifier: Apache-2.0

// Package trend implements the score-combination formula.
//
// The final trend score is a weighted blend of the externally fetched
// popularity score (already on the provider's 0-10 scale) and the internal
// view counter mapped onto the same scale by logarithmic compression:
//
//	normalize(v) = 10 * ln(1+v) / ln(1+saturation), clamped to [0, 10]
//	combine(v, s) = internalWeight*normalize(v) + externalWeight*s
//
// Weights and the saturation point are configuration constants, not data.
package trend

import (
	"errors"
	"fmt"
	"math"
)

// Scale is the upper bound of the provider score range.
const Scale = 10.0

// weightTolerance allows for float drift when checking the weight sum.
const weightTolerance = 1e-9

// ErrNegativeViews is returned when a negative view count reaches the
// formula. Counters are unsigned by invariant, so this is an invariant
// violation at the boundary, never a value to clamp silently.
var ErrNegativeViews = errors.New("view count must not be negative")

// ErrScoreOutOfRange is returned for an external score outside [0, Scale].
var ErrScoreOutOfRange = errors.New("external score out of range")

// Config holds the formula constants.
type Config struct {
	// InternalWeight is the blend weight of normalized internal views.
	InternalWeight float64 `koanf:"internal_weight"`

	// ExternalWeight is the blend weight of the provider score.
	// InternalWeight + ExternalWeight must equal 1.
	ExternalWeight float64 `koanf:"external_weight"`

	// ViewSaturation is the view count at which normalize reaches Scale.
	ViewSaturation int64 `koanf:"view_saturation"`
}

// DefaultConfig returns the production formula constants.
func DefaultConfig() Config {
	return Config{
		InternalWeight: 0.3,
		ExternalWeight: 0.7,
		ViewSaturation: 100000,
	}
}

// Validate checks the formula constants.
func (c Config) Validate() error {
	if c.InternalWeight < 0 || c.ExternalWeight < 0 {
		return fmt.Errorf("weights must not be negative: internal=%v external=%v",
			c.InternalWeight, c.ExternalWeight)
	}
	if math.Abs(c.InternalWeight+c.ExternalWeight-1) > weightTolerance {
		return fmt.Errorf("weights must sum to 1, got %v",
			c.InternalWeight+c.ExternalWeight)
	}
	if c.ViewSaturation <= 0 {
		return fmt.Errorf("view_saturation must be positive, got %d", c.ViewSaturation)
	}
	return nil
}

// Scorer computes trend scores with a fixed configuration.
type Scorer struct {
	cfg      Config
	logDenom float64
}

// NewScorer creates a scorer after validating the configuration.
func NewScorer(cfg Config) (*Scorer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Scorer{
		cfg:      cfg,
		logDenom: math.Log1p(float64(cfg.ViewSaturation)),
	}, nil
}

// Config returns the formula constants in use.
func (s *Scorer) Config() Config {
	return s.cfg
}

// Normalize maps an unbounded view count onto the provider score scale.
// normalize(0) = 0; the curve is non-decreasing and clamps at Scale.
func (s *Scorer) Normalize(views int64) (float64, error) {
	if views < 0 {
		return 0, ErrNegativeViews
	}
	n := Scale * math.Log1p(float64(views)) / s.logDenom
	return math.Min(n, Scale), nil
}

// Combine computes the final trend score from the latest committed view
// count and external score. Rounded to one decimal, matching the provider
// score precision.
func (s *Scorer) Combine(views int64, external float64) (float64, error) {
	normalized, err := s.Normalize(views)
	if err != nil {
		return 0, err
	}
	if external < 0 || external > Scale {
		return 0, fmt.Errorf("%w: %v", ErrScoreOutOfRange, external)
	}
	score := s.cfg.InternalWeight*normalized + s.cfg.ExternalWeight*external
	return math.Round(score*10) / 10, nil
}
