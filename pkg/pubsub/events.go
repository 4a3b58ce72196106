package pubsub

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	pubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"
)

const (
	envelopeVersion       = 1
	defaultPublishTimeout = 10 * time.Second
)

// Envelope is the stable payload structure of every event this service emits.
type Envelope struct {
	Version    int             `json:"version"`
	EventID    string          `json:"eventId"`
	EventType  string          `json:"eventType"`
	OccurredAt time.Time       `json:"occurredAt"`
	Data       json.RawMessage `json:"data"`
}

type publishResult interface {
	Get(ctx context.Context) (string, error)
}

type topicPublisher interface {
	Publish(ctx context.Context, msg *pubsub.Message) publishResult
}

// EventPublisher wraps a topic publisher with the envelope and attribute conventions.
type EventPublisher struct {
	topic   topicPublisher
	timeout time.Duration
	now     func() time.Time
}

// NewEventPublisher adapts a Pub/Sub publisher. A nil publisher is rejected.
func NewEventPublisher(p *pubsub.Publisher) (*EventPublisher, error) {
	if p == nil {
		return nil, errors.New("pubsub publisher is required")
	}
	return &EventPublisher{
		topic:   &gcpPublisher{Publisher: p},
		timeout: defaultPublishTimeout,
		now:     time.Now,
	}, nil
}

// Publish marshals data into an Envelope and waits for the server ack.
func (p *EventPublisher) Publish(ctx context.Context, eventType string, data any, attrs map[string]string) (string, error) {
	if p == nil || p.topic == nil {
		return "", errors.New("event publisher not configured")
	}
	payload, err := json.Marshal(data)
	if err != nil {
		return "", fmt.Errorf("marshal %s payload: %w", eventType, err)
	}
	envelope := Envelope{
		Version:    envelopeVersion,
		EventID:    uuid.NewString(),
		EventType:  eventType,
		OccurredAt: p.now().UTC(),
		Data:       payload,
	}
	body, err := json.Marshal(envelope)
	if err != nil {
		return "", fmt.Errorf("marshal %s envelope: %w", eventType, err)
	}

	attributes := map[string]string{
		"event_id":    envelope.EventID,
		"event_type":  eventType,
		"occurred_at": envelope.OccurredAt.Format(time.RFC3339Nano),
	}
	for k, v := range attrs {
		attributes[k] = v
	}

	publishCtx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()
	result := p.topic.Publish(publishCtx, &pubsub.Message{Data: body, Attributes: attributes})
	if result == nil {
		return "", fmt.Errorf("publisher returned nil for %s", eventType)
	}
	if _, err := result.Get(publishCtx); err != nil {
		return "", fmt.Errorf("publish %s: %w", eventType, err)
	}
	return envelope.EventID, nil
}

type gcpPublisher struct {
	*pubsub.Publisher
}

func (p *gcpPublisher) Publish(ctx context.Context, msg *pubsub.Message) publishResult {
	if p == nil || p.Publisher == nil {
		return nil
	}
	return &gcpPublishResult{PublishResult: p.Publisher.Publish(ctx, msg)}
}

type gcpPublishResult struct {
	*pubsub.PublishResult
}

func (r *gcpPublishResult) Get(ctx context.Context) (string, error) {
	if r == nil || r.PublishResult == nil {
		return "", errors.New("publish result is nil")
	}
	return r.PublishResult.Get(ctx)
}
