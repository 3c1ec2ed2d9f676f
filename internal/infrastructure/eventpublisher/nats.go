package eventpublisher

import (
	"context"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/iho/pokersettle/internal/domain"
)

// Stream settings for outbound settlement events.
const (
	StreamName    = "POKERSETTLE_EVENTS"
	SubjectPrefix = "pokersettle.events"
)

// NATSPublisher publishes outbox events to JetStream under
// pokersettle.events.{event_type}. The outbox event ID is used as the
// message ID so redelivered batches are deduplicated by the server.
type NATSPublisher struct {
	js jetstream.JetStream
}

// NewNATSPublisher wraps an existing JetStream context.
func NewNATSPublisher(js jetstream.JetStream) *NATSPublisher {
	return &NATSPublisher{js: js}
}

// ConnectNATS dials the server and ensures the events stream exists.
func ConnectNATS(ctx context.Context, url string) (*NATSPublisher, func(), error) {
	nc, err := nats.Connect(url, nats.Name("pokersettle"))
	if err != nil {
		return nil, nil, fmt.Errorf("connect nats: %w", err)
	}

	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		return nil, nil, fmt.Errorf("jetstream: %w", err)
	}

	if err := EnsureStream(ctx, js); err != nil {
		nc.Close()
		return nil, nil, err
	}

	return NewNATSPublisher(js), func() { _ = nc.Drain() }, nil
}

// Publish implements Publisher.
func (p *NATSPublisher) Publish(ctx context.Context, event *domain.OutboxEvent) error {
	data, err := encode(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	_, err = p.js.Publish(ctx, Subject(event.EventType), data, jetstream.WithMsgID(event.ID))
	if err != nil {
		return fmt.Errorf("publish %s: %w", event.EventType, err)
	}
	return nil
}

// Subject returns the subject an event type is published on.
func Subject(eventType string) string {
	return SubjectPrefix + "." + eventType
}

// EnsureStream creates or updates the outbound events stream.
func EnsureStream(ctx context.Context, js jetstream.JetStream) error {
	_, err := js.CreateOrUpdateStream(ctx, jetstream.StreamConfig{
		Name:       StreamName,
		Subjects:   []string{SubjectPrefix + ".>"},
		Storage:    jetstream.FileStorage,
		Retention:  jetstream.LimitsPolicy,
		MaxAge:     72 * time.Hour,
		Duplicates: 10 * time.Minute,
		Replicas:   1,
	})
	if err != nil {
		return fmt.Errorf("create events stream: %w", err)
	}
	return nil
}
