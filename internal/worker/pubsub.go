package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"cloud.google.com/go/pubsub/v2"
	"github.com/rs/zerolog"
)

// RefreshedEvent is published after a city's conditions are refreshed.
type RefreshedEvent struct {
	Event     string    `json:"event"`
	Country   string    `json:"country"`
	City      string    `json:"city"`
	AQI       int       `json:"aqi,omitempty"`
	Category  string    `json:"category,omitempty"`
	FetchedAt time.Time `json:"fetched_at"`
}

// EventName is the event field carried by every refresh message.
const EventName = "conditions.refreshed"

// Publisher emits refresh events to a Pub/Sub topic.
type Publisher struct {
	client    *pubsub.Client
	publisher *pubsub.Publisher
	topic     string
	logger    zerolog.Logger
}

// PublisherConfig holds configuration for the Pub/Sub publisher.
type PublisherConfig struct {
	ProjectID string
	Topic     string
	Logger    zerolog.Logger
}

// NewPublisher creates a Pub/Sub publisher for refresh events.
func NewPublisher(ctx context.Context, cfg PublisherConfig) (*Publisher, error) {
	client, err := pubsub.NewClient(ctx, cfg.ProjectID)
	if err != nil {
		return nil, fmt.Errorf("creating pubsub client: %w", err)
	}

	return &Publisher{
		client:    client,
		publisher: client.Publisher(cfg.Topic),
		topic:     cfg.Topic,
		logger:    cfg.Logger,
	}, nil
}

// Publish sends one refresh event. The call blocks until the server
// acknowledges the message or ctx expires.
func (p *Publisher) Publish(ctx context.Context, ev RefreshedEvent) error {
	ev.Event = EventName

	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("encoding event: %w", err)
	}

	result := p.publisher.Publish(ctx, &pubsub.Message{
		Data: data,
		Attributes: map[string]string{
			"event":   EventName,
			"country": ev.Country,
			"city":    ev.City,
			"aqi":     strconv.Itoa(ev.AQI),
		},
	})

	id, err := result.Get(ctx)
	if err != nil {
		return fmt.Errorf("publishing to %s: %w", p.topic, err)
	}

	p.logger.Debug().
		Str("message_id", id).
		Str("city", ev.City).
		Msg("refresh event published")
	return nil
}

// Close flushes pending messages and closes the client.
func (p *Publisher) Close() error {
	p.publisher.Stop()
	return p.client.Close()
}
