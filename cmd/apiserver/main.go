// MoviePulse - Title Trend Scoring Pipeline
// Copyright 2026 MoviePulse contributors
// SPDX-License-Identifier: Apache-2.0

// Command apiserver runs the HTTP gateway: it accepts registrations, view
// signals and refresh requests, publishes them as events and serves reads
// from the record store.
package main

import (
	"context"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/moviepulse/moviepulse/internal/bus"
	"github.com/moviepulse/moviepulse/internal/config"
	"github.com/moviepulse/moviepulse/internal/gateway"
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
	log := logging.With().Str("component", "apiserver").Logger()

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

	handler := gateway.NewHandler(titleStore, publisher, log)
	server := &http.Server{
		Addr:         cfg.Server.ListenAddr,
		Handler:      gateway.NewRouter(handler, cfg.Gateway),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	supervisor := worker.NewSupervisor("apiserver", logging.NewSlogLogger(), worker.DefaultSupervisorConfig())
	supervisor.Add(gateway.NewHTTPService(server, cfg.Server.ShutdownTimeout))

	log.Info().Str("addr", cfg.Server.ListenAddr).Msg("gateway listening")
	if err := supervisor.Serve(ctx); err != nil && ctx.Err() == nil {
		log.Fatal().Err(err).Msg("supervisor exited")
	}
	log.Info().Msg("gateway stopped")
}
