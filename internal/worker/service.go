// MoviePulse - Title Trend Scoring Pipeline
// Copyright 2026 MoviePulse contributors
// SPDX-License-Identifier: Apache-2.0

package worker

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/thejerf/suture/v4"
	"github.com/thejerf/sutureslog"

	"github.com/moviepulse/moviepulse/internal/bus"
)

// SupervisorConfig holds restart policy for the worker supervisor.
type SupervisorConfig struct {
	// FailureThreshold is the failure count before entering backoff.
	FailureThreshold float64

	// FailureDecay is the rate at which failures decay, in seconds.
	FailureDecay float64

	// FailureBackoff is how long the supervisor waits after the
	// threshold is crossed before restarting.
	FailureBackoff time.Duration

	// ShutdownTimeout bounds graceful service shutdown.
	ShutdownTimeout time.Duration
}

// DefaultSupervisorConfig returns production restart defaults.
func DefaultSupervisorConfig() SupervisorConfig {
	return SupervisorConfig{
		FailureThreshold: 5,
		FailureDecay:     30,
		FailureBackoff:   15 * time.Second,
		ShutdownTimeout:  10 * time.Second,
	}
}

// NewSupervisor builds a supervisor that restarts crashed consumer
// services with decaying-failure backoff. Consumers are crash-only: a
// restart re-subscribes the durable consumer and the broker redelivers
// anything left unacknowledged.
func NewSupervisor(name string, logger *slog.Logger, cfg SupervisorConfig) *suture.Supervisor {
	handler := &sutureslog.Handler{Logger: logger}
	return suture.New(name, suture.Spec{
		EventHook:        handler.MustHook(),
		FailureThreshold: cfg.FailureThreshold,
		FailureDecay:     cfg.FailureDecay,
		FailureBackoff:   cfg.FailureBackoff,
		Timeout:          cfg.ShutdownTimeout,
	})
}

// RouterService runs a bus router under supervision.
type RouterService struct {
	router *bus.Router
	name   string
}

// NewRouterService wraps a router as a supervised service.
func NewRouterService(name string, router *bus.Router) *RouterService {
	return &RouterService{router: router, name: name}
}

// Serve implements suture.Service. Context cancellation is a graceful
// stop, not a crash, so it returns nil and suture does not restart.
func (s *RouterService) Serve(ctx context.Context) error {
	err := s.router.Run(ctx)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func (s *RouterService) String() string {
	return s.name
}

// DrainerService runs the dead-letter drain loop under supervision.
type DrainerService struct {
	handler *bus.MessageHandler
	name    string
}

// NewDrainerService wraps a message handler loop as a supervised service.
func NewDrainerService(name string, handler *bus.MessageHandler) *DrainerService {
	return &DrainerService{handler: handler, name: name}
}

// Serve implements suture.Service.
func (s *DrainerService) Serve(ctx context.Context) error {
	err := s.handler.Run(ctx)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func (s *DrainerService) String() string {
	return s.name
}
