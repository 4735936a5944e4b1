// Package nats implements the event publishing port using NATS JetStream.
package nats

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/stackpad/stackpad/internal/config"
)

const streamName = "STACKPAD"

// Bus implements events.Publisher using NATS JetStream and exposes a
// JetStream key-value bucket used by the idempotency middleware.
type Bus struct {
	nc *nats.Conn
	js jetstream.JetStream
	kv jetstream.KeyValue
}

// Connect establishes a connection to NATS and ensures the JetStream stream
// and the idempotency bucket exist.
func Connect(ctx context.Context, cfg config.NATS) (*Bus, error) {
	nc, err := nats.Connect(cfg.URL,
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}

	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("jetstream init: %w", err)
	}

	// Ensure the stream exists with subjects matching our topic patterns.
	_, err = js.CreateOrUpdateStream(ctx, jetstream.StreamConfig{
		Name:     streamName,
		Subjects: []string{"orgs.>", "members.>"},
	})
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("jetstream stream create: %w", err)
	}

	kv, err := js.CreateOrUpdateKeyValue(ctx, jetstream.KeyValueConfig{
		Bucket: cfg.IdempotencyBucket,
		TTL:    cfg.IdempotencyTTL,
	})
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("jetstream kv create: %w", err)
	}

	slog.Info("nats connected", "url", cfg.URL, "stream", streamName)
	return &Bus{nc: nc, js: js, kv: kv}, nil
}

// Publish sends a message to the given subject.
func (b *Bus) Publish(ctx context.Context, subject string, data []byte) error {
	_, err := b.js.Publish(ctx, subject, data)
	if err != nil {
		return fmt.Errorf("nats publish %s: %w", subject, err)
	}
	return nil
}

// Subscribe registers a handler for messages on the given subject. The
// returned function stops the consumer.
func (b *Bus) Subscribe(ctx context.Context, subject string, handler func(subject string, data []byte) error) (func(), error) {
	consumer, err := b.js.CreateOrUpdateConsumer(ctx, streamName, jetstream.ConsumerConfig{
		FilterSubject: subject,
		AckPolicy:     jetstream.AckExplicitPolicy,
	})
	if err != nil {
		return nil, fmt.Errorf("nats consumer create: %w", err)
	}

	cons, err := consumer.Consume(func(msg jetstream.Msg) {
		if err := handler(msg.Subject(), msg.Data()); err != nil {
			slog.Error("message handler failed", "subject", msg.Subject(), "error", err)
			if nakErr := msg.Nak(); nakErr != nil {
				slog.Error("nats nak failed", "error", nakErr)
			}
			return
		}
		if ackErr := msg.Ack(); ackErr != nil {
			slog.Error("nats ack failed", "error", ackErr)
		}
	})
	if err != nil {
		return nil, fmt.Errorf("nats consume: %w", err)
	}

	return cons.Stop, nil
}

// KV returns the idempotency key-value bucket.
func (b *Bus) KV() jetstream.KeyValue {
	return b.kv
}

// IsConnected reports whether the underlying connection is up.
func (b *Bus) IsConnected() bool {
	return b.nc.IsConnected()
}

// Drain flushes pending messages and closes the connection.
func (b *Bus) Drain() error {
	return b.nc.Drain()
}

// Close shuts down the NATS connection immediately.
func (b *Bus) Close() error {
	b.nc.Close()
	return nil
}
