// MoviePulse - Title Trend Scoring Pipeline
// Copyright 2026 MoviePulse contributors
// SPDX-License-Identifier: Apache-2.0

// Package bus provides the durable event bus: NATS JetStream transport
// wrapped in Watermill publishers, subscribers and a middleware-equipped
// router with bounded retry and dead-letter routing.
package bus

import "time"

// Config holds event bus configuration for all binaries.
type Config struct {
	// URL is the NATS server connection URL.
	URL string `koanf:"url"`

	// EmbeddedServer starts an in-process NATS server instead of
	// connecting to URL. Intended for single-node and dev deployments.
	EmbeddedServer bool `koanf:"embedded_server"`

	// StoreDir is the JetStream storage directory for the embedded server.
	StoreDir string `koanf:"store_dir"`

	// MaxMemory caps embedded JetStream memory in bytes.
	MaxMemory int64 `koanf:"max_memory"`

	// MaxStore caps embedded JetStream disk usage in bytes.
	MaxStore int64 `koanf:"max_store"`

	// StreamRetentionDays is how long events stay replayable.
	StreamRetentionDays int `koanf:"stream_retention_days"`

	// SubscribersCount is the number of concurrent message processors per
	// consumer. Messages for different ids may be handled fully in
	// parallel; per-record atomicity in the store keeps this safe.
	SubscribersCount int `koanf:"subscribers_count"`

	// DurableName is the JetStream durable consumer prefix.
	DurableName string `koanf:"durable_name"`

	// QueueGroup load-balances across worker instances.
	QueueGroup string `koanf:"queue_group"`

	// AckWait is how long the broker waits for an ack before redelivering.
	AckWait time.Duration `koanf:"ack_wait"`

	// MaxDeliver bounds broker-side redelivery attempts.
	MaxDeliver int `koanf:"max_deliver"`

	// MaxAckPending bounds in-flight unacked messages (prefetch limit).
	MaxAckPending int `koanf:"max_ack_pending"`

	// RetryMaxRetries bounds in-process retries before dead-lettering.
	RetryMaxRetries int `koanf:"retry_max_retries"`

	// RetryInitialInterval is the first backoff delay.
	RetryInitialInterval time.Duration `koanf:"retry_initial_interval"`

	// RetryMaxInterval caps the backoff delay.
	RetryMaxInterval time.Duration `koanf:"retry_max_interval"`

	// RetryMultiplier is the backoff growth factor.
	RetryMultiplier float64 `koanf:"retry_multiplier"`

	// PoisonTopic receives messages that failed permanently or exhausted
	// their retry budget.
	PoisonTopic string `koanf:"poison_topic"`

	// CloseTimeout is how long to wait for in-flight handlers on shutdown.
	CloseTimeout time.Duration `koanf:"close_timeout"`

	// MaxReconnects bounds NATS reconnect attempts (-1 for unlimited).
	MaxReconnects int `koanf:"max_reconnects"`

	// ReconnectWait is the delay between reconnect attempts.
	ReconnectWait time.Duration `koanf:"reconnect_wait"`
}

// DefaultConfig returns production defaults for the bus.
func DefaultConfig() Config {
	return Config{
		URL:                  "nats://127.0.0.1:4222",
		EmbeddedServer:       false,
		StoreDir:             "/data/nats/jetstream",
		MaxMemory:            1 << 30,  // 1GB
		MaxStore:             10 << 30, // 10GB
		StreamRetentionDays:  7,
		SubscribersCount:     4,
		DurableName:          "trend-processor",
		QueueGroup:           "trend-workers",
		AckWait:              30 * time.Second,
		MaxDeliver:           5,
		MaxAckPending:        1000,
		RetryMaxRetries:      3,
		RetryInitialInterval: 100 * time.Millisecond,
		RetryMaxInterval:     time.Minute,
		RetryMultiplier:      2.0,
		PoisonTopic:          "trend.dlq",
		CloseTimeout:         30 * time.Second,
		MaxReconnects:        -1,
		ReconnectWait:        2 * time.Second,
	}
}
