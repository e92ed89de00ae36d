package natsadapter

import (
	"context"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/samirrijal/trailmap/internal/core/domain"
)

const (
	// SubjectEvents prefixes visualization events: trails.events.<kind>.
	SubjectEvents = "trails.events"
	// SubjectRefresh carries catalog refresh requests; the payload is the
	// source name, empty for all.
	SubjectRefresh = "trails.catalog.refresh"
)

// Publisher implements ports.Notifier using NATS JetStream.
type Publisher struct {
	conn *nats.Conn
	js   nats.JetStreamContext
}

// NewPublisher connects to NATS and enables JetStream.
func NewPublisher(url string) (*Publisher, error) {
	conn, err := RawConn(url)
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}

	js, err := conn.JetStream()
	if err != nil {
		return nil, fmt.Errorf("jetstream: %w", err)
	}

	// Ensure streams exist
	streams := []nats.StreamConfig{
		{
			Name:      "TRAIL_EVENTS",
			Subjects:  []string{SubjectEvents + ".>"},
			Retention: nats.InterestPolicy,
			MaxAge:    1 * time.Hour,
			Storage:   nats.FileStorage,
		},
		{
			Name:      "TRAIL_REFRESH",
			Subjects:  []string{SubjectRefresh},
			Retention: nats.WorkQueuePolicy,
			MaxAge:    24 * time.Hour,
			Storage:   nats.FileStorage,
		},
	}

	for _, cfg := range streams {
		if _, err := js.AddStream(&cfg); err != nil {
			// Stream may already exist, try update
			if _, err := js.UpdateStream(&cfg); err != nil {
				return nil, fmt.Errorf("ensure stream %s: %w", cfg.Name, err)
			}
		}
	}

	return &Publisher{conn: conn, js: js}, nil
}

// Notify publishes ev asynchronously so the caller's frame loop is never
// blocked on a broker round trip.
func (p *Publisher) Notify(ctx context.Context, ev domain.Event) error {
	data, err := EncodeEvent(ev)
	if err != nil {
		return err
	}
	_, err = p.js.PublishAsync(SubjectEvents+"."+string(ev.Kind), data)
	return err
}

// RequestRefresh asks every subscriber to reload source; empty means all.
func (p *Publisher) RequestRefresh(ctx context.Context, source string) error {
	_, err := p.js.Publish(SubjectRefresh, []byte(source), nats.Context(ctx))
	return err
}

// Close drains and closes the connection.
func (p *Publisher) Close() {
	_ = p.conn.Drain()
}

// RawConn creates a plain NATS connection.
func RawConn(url string) (*nats.Conn, error) {
	return nats.Connect(url,
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
	)
}
