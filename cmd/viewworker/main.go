// MoviePulse - Title Trend Scoring Pipeline
// Copyright 2026 MoviePulse contributors
// SPDX-License-Identifier: Apache-2.0

// Command viewworker consumes view events and increments per-title view
// counters. Multiple instances share one durable queue group.
package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/moviepulse/moviepulse/internal/bus"
	"github.com/moviepulse/moviepulse/internal/config"
	"github.com/moviepulse/moviepulse/internal/events"
	"github.com/moviepulse/moviepulse/internal/logging"
	"github.com/moviepulse/moviepulse/internal/store"
	"github.com/moviepulse/moviepulse/internal/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.Fatal().Err(err).Msg("configuration load failed")
	}
	logging.Init(cfg.Logging)
	log := logging.With().Str("component", "viewworker").Logger()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := store.Connect(ctx, cfg.Database.URL)
	if err != nil {
		log.Fatal().Err(err).Msg("database connection failed")
	}
	defer pool.Close()

	titleStore := store.New(pool)
	if err := titleStore.EnsureSchema(ctx); err != nil {
		log.Fatal().Err(err).Msg("schema migration failed")
	}

	wmLogger := logging.NewWatermillAdapterWithLogger(log)
	conn, err := bus.Open(ctx, cfg.NATS, wmLogger)
	if err != nil {
		log.Fatal().Err(err).Msg("event bus connection failed")
	}
	defer conn.Close(context.Background())
	cfg.NATS.URL = conn.URL

	publisher, err := bus.NewPublisher(cfg.NATS, wmLogger)
	if err != nil {
		log.Fatal().Err(err).Msg("publisher creation failed")
	}
	defer publisher.Close()

	subscriber, err := bus.NewSubscriber(cfg.NATS, events.StreamName, wmLogger)
	if err != nil {
		log.Fatal().Err(err).Msg("subscriber creation failed")
	}
	defer subscriber.Close()

	router, err := bus.NewRouter(cfg.NATS, publisher.WatermillPublisher(), wmLogger)
	if err != nil {
		log.Fatal().Err(err).Msg("router creation failed")
	}
	if err := router.ValidateAckWait(); err != nil {
		log.Fatal().Err(err).Msg("retry budget misconfigured")
	}

	consumer := worker.NewViewConsumer(titleStore, log)
	router.AddConsumerHandler("view-consumer", events.TopicView,
		subscriber.WatermillSubscriber(), consumer.Handle)

	supervisor := worker.NewSupervisor("viewworker", logging.NewSlogLogger(), worker.DefaultSupervisorConfig())
	supervisor.Add(worker.NewRouterService("view-router", router))

	log.Info().Str("topic", events.TopicView).Msg("view worker started")
	if err := supervisor.Serve(ctx); err != nil && ctx.Err() == nil {
		log.Fatal().Err(err).Msg("supervisor exited")
	}
	log.Info().Msg("view worker stopped")
}
