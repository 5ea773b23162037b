// MoviePulse - Title Trend Scoring Pipeline
// Copyright 2026 MoviePulse contributors
// SPDX-License-Identifier: Apache-2.0

// Command scoreworker consumes refresh events: it fetches the external
// score, recomputes the trend score and writes it back. It also drains the
// dead-letter topic into durable storage for inspection.
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
	"github.com/moviepulse/moviepulse/internal/tmdb"
	"github.com/moviepulse/moviepulse/internal/trend"
	"github.com/moviepulse/moviepulse/internal/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.Fatal().Err(err).Msg("configuration load failed")
	}
	logging.Init(cfg.Logging)
	log := logging.With().Str("component", "scoreworker").Logger()

	scorer, err := trend.NewScorer(cfg.Trend)
	if err != nil {
		log.Fatal().Err(err).Msg("invalid trend formula configuration")
	}

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

	fetcher := tmdb.NewClient(cfg.TMDB.ClientConfig())
	scoreConsumer := worker.NewScoreConsumer(titleStore, fetcher, scorer, log)
	router.AddConsumerHandler("score-consumer", events.TopicRefresh,
		subscriber.WatermillSubscriber(), scoreConsumer.Handle)

	// The drainer gets its own subscriber connection: its consume loop
	// bypasses the router middleware so a persistence failure requeues
	// instead of re-poisoning the dead-letter topic.
	drainSubscriber, err := bus.NewSubscriber(cfg.NATS, events.StreamName, wmLogger)
	if err != nil {
		log.Fatal().Err(err).Msg("drain subscriber creation failed")
	}
	defer drainSubscriber.Close()

	dlConsumer := worker.NewDeadLetterConsumer(titleStore, log)
	drainer := drainSubscriber.NewMessageHandler(events.TopicDeadLetter).Handle(dlConsumer.Handle)

	supervisor := worker.NewSupervisor("scoreworker", logging.NewSlogLogger(), worker.DefaultSupervisorConfig())
	supervisor.Add(worker.NewRouterService("score-router", router))
	supervisor.Add(worker.NewDrainerService("deadletter-drainer", drainer))

	log.Info().Str("topic", events.TopicRefresh).Msg("score worker started")
	if err := supervisor.Serve(ctx); err != nil && ctx.Err() == nil {
		log.Fatal().Err(err).Msg("supervisor exited")
	}
	log.Info().Msg("score worker stopped")
}
