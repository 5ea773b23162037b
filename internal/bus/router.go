// MoviePulse - Title Trend Scoring Pipeline
// Copyright 2026 MoviePulse contributors
// SPDX-License-Identifier: Apache-2.0

package bus

import (
	"context"
	"fmt"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/message/router/middleware"
)

// Router wraps the Watermill router with the failure-routing middleware
// chain. Handlers never ack or nack directly: a nil return acks, an error
// is classified and either retried with backoff or published to the
// poison topic.
//
// Chain, outermost first:
//
//	Recoverer -> PoisonQueue(any error) -> Retry -> PoisonQueue(permanent)
//
// A PermanentError is caught by the innermost poison middleware before
// the retry budget is touched. A RetryableError passes through, is
// retried up to RetryMaxRetries with exponential backoff, and only then
// reaches the outer poison middleware.
type Router struct {
	router   *message.Router
	config   Config
	logger   watermill.LoggerAdapter
	handlers map[string]*message.Handler
}

// NewRouter creates a router publishing failures to cfg.PoisonTopic via
// poisonPublisher.
func NewRouter(cfg Config, poisonPublisher message.Publisher, logger watermill.LoggerAdapter) (*Router, error) {
	if logger == nil {
		logger = watermill.NewStdLogger(false, false)
	}
	if poisonPublisher == nil {
		return nil, fmt.Errorf("poison publisher required")
	}
	if cfg.PoisonTopic == "" {
		return nil, fmt.Errorf("poison topic required")
	}

	wmRouter, err := message.NewRouter(message.RouterConfig{
		CloseTimeout: cfg.CloseTimeout,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("create watermill router: %w", err)
	}

	r := &Router{
		router:   wmRouter,
		config:   cfg,
		logger:   logger,
		handlers: make(map[string]*message.Handler),
	}

	wmRouter.AddMiddleware(middleware.Recoverer)

	exhaustedPoison, err := middleware.PoisonQueue(poisonPublisher, cfg.PoisonTopic)
	if err != nil {
		return nil, fmt.Errorf("create poison queue middleware: %w", err)
	}
	wmRouter.AddMiddleware(exhaustedPoison)

	retry := middleware.Retry{
		MaxRetries:      cfg.RetryMaxRetries,
		InitialInterval: cfg.RetryInitialInterval,
		MaxInterval:     cfg.RetryMaxInterval,
		Multiplier:      cfg.RetryMultiplier,
		Logger:          logger,
	}
	wmRouter.AddMiddleware(retry.Middleware)

	permanentPoison, err := middleware.PoisonQueueWithFilter(poisonPublisher, cfg.PoisonTopic, IsPermanent)
	if err != nil {
		return nil, fmt.Errorf("create permanent poison middleware: %w", err)
	}
	wmRouter.AddMiddleware(permanentPoison)

	return r, nil
}

// AddConsumerHandler registers a consume-only handler for a topic.
func (r *Router) AddConsumerHandler(
	name string,
	subscribeTopic string,
	subscriber message.Subscriber,
	handler message.NoPublishHandlerFunc,
) *message.Handler {
	h := r.router.AddConsumerHandler(name, subscribeTopic, subscriber, handler)
	r.handlers[name] = h
	return h
}

// Run starts the router and blocks until context cancellation or Close.
func (r *Router) Run(ctx context.Context) error {
	return r.router.Run(ctx)
}

// Running returns a channel that closes once all handlers are running.
func (r *Router) Running() <-chan struct{} {
	return r.router.Running()
}

// Close stops the router, waiting up to CloseTimeout for in-flight
// handlers. Messages still unacknowledged at that point are redelivered.
func (r *Router) Close() error {
	return r.router.Close()
}

// retryBudgetCeiling reports the worst-case in-process retry duration,
// useful for sizing AckWait so the broker does not redeliver mid-retry.
func (r *Router) retryBudgetCeiling() time.Duration {
	var total time.Duration
	interval := r.config.RetryInitialInterval
	for i := 0; i < r.config.RetryMaxRetries; i++ {
		total += interval
		interval = time.Duration(float64(interval) * r.config.RetryMultiplier)
		if interval > r.config.RetryMaxInterval {
			interval = r.config.RetryMaxInterval
		}
	}
	return total
}

// ValidateAckWait returns an error when the retry budget cannot fit into
// the broker ack window, which would cause duplicate in-flight handling.
func (r *Router) ValidateAckWait() error {
	if budget := r.retryBudgetCeiling(); budget >= r.config.AckWait {
		return fmt.Errorf("retry budget %v exceeds ack wait %v", budget, r.config.AckWait)
	}
	return nil
}
