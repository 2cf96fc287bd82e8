package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"git.home.luguber.info/inful/regsync/internal/config"
	"git.home.luguber.info/inful/regsync/internal/logfields"
)

// Publisher sends update events to a NATS JetStream subject.
type Publisher struct {
	conn    *nats.Conn
	js      jetstream.JetStream
	subject string
}

// NewPublisher connects to NATS and ensures the target stream exists.
func NewPublisher(cfg *config.EventsConfig) (*Publisher, error) {
	if cfg == nil || !cfg.Enabled {
		return nil, fmt.Errorf("event publishing is disabled")
	}

	conn, err := nats.Connect(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	js, err := jetstream.New(conn)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to create JetStream context: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// Ensure the stream covering our subject exists.
	if _, err := js.Stream(ctx, cfg.Stream); err != nil {
		_, err = js.CreateStream(ctx, jetstream.StreamConfig{
			Name:        cfg.Stream,
			Description: "RegSync registry update events",
			Subjects:    []string{cfg.Subject},
		})
		if err != nil {
			conn.Close()
			return nil, fmt.Errorf("failed to create stream: %w", err)
		}
	}

	slog.Info("Event publisher initialized",
		logfields.URL(cfg.URL),
		logfields.Subject(cfg.Subject))

	return &Publisher{conn: conn, js: js, subject: cfg.Subject}, nil
}

// PublishUpdate publishes one update event. Callers treat failures as
// warnings; a lost event never fails a check.
func (p *Publisher) PublishUpdate(ctx context.Context, event UpdateEvent) error {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	pubCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if _, err := p.js.Publish(pubCtx, p.subject, data); err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}

	slog.Debug("Published registry update event",
		logfields.Subject(p.subject),
		logfields.Added(event.Added),
		logfields.Removed(event.Removed))
	return nil
}

// Connected reports whether the underlying NATS connection is up.
func (p *Publisher) Connected() bool {
	return p.conn != nil && p.conn.IsConnected()
}

// Close drains and closes the NATS connection.
func (p *Publisher) Close() error {
	if p.conn != nil {
		p.conn.Close()
	}
	return nil
}
