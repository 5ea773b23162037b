// MoviePulse - Title Trend Scoring Pipeline
// Copyright 2026 MoviePulse contributors
// SPDX-License-Identifier: Apache-2.0

package bus

import (
	"context"
	"fmt"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	natsgo "github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/moviepulse/moviepulse/internal/events"
)

// Conn bundles the broker connection shared by one binary: the optional
// embedded server, the NATS connection and the provisioned stream.
type Conn struct {
	Embedded *EmbeddedServer
	NC       *natsgo.Conn
	URL      string
}

// Open starts the embedded server when configured, connects to the broker
// and ensures the trend event stream exists. Cleanup runs on every failure
// path so a half-opened connection never leaks.
func Open(ctx context.Context, cfg Config, logger watermill.LoggerAdapter) (*Conn, error) {
	conn := &Conn{URL: cfg.URL}

	if cfg.EmbeddedServer {
		embedded, err := NewEmbeddedServer(cfg)
		if err != nil {
			return nil, fmt.Errorf("start embedded server: %w", err)
		}
		conn.Embedded = embedded
		conn.URL = embedded.ClientURL()
		logger.Info("embedded NATS server started", watermill.LogFields{"url": conn.URL})
	}

	nc, err := natsgo.Connect(conn.URL,
		natsgo.RetryOnFailedConnect(true),
		natsgo.MaxReconnects(cfg.MaxReconnects),
		natsgo.ReconnectWait(cfg.ReconnectWait),
	)
	if err != nil {
		conn.Close(ctx)
		return nil, fmt.Errorf("connect to NATS: %w", err)
	}
	conn.NC = nc

	js, err := jetstream.New(nc)
	if err != nil {
		conn.Close(ctx)
		return nil, fmt.Errorf("create JetStream context: %w", err)
	}

	initializer, err := NewStreamInitializer(js, StreamConfig{
		Name:            events.StreamName,
		Subjects:        events.StreamSubjects(),
		MaxAge:          time.Duration(cfg.StreamRetentionDays) * 24 * time.Hour,
		DuplicateWindow: 2 * time.Minute,
		Replicas:        1,
	})
	if err != nil {
		conn.Close(ctx)
		return nil, err
	}
	if _, err := initializer.EnsureStream(ctx); err != nil {
		conn.Close(ctx)
		return nil, err
	}

	return conn, nil
}

// Close releases the connection and stops the embedded server if any.
func (c *Conn) Close(ctx context.Context) {
	if c.NC != nil {
		c.NC.Close()
		c.NC = nil
	}
	if c.Embedded != nil {
		c.Embedded.Shutdown(ctx)
		c.Embedded = nil
	}
}
