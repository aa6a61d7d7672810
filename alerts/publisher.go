// Package alerts hands HIGH-risk forecast triggers to the external alert
// broadcaster over Redis pub/sub. The broadcaster owns recipients and
// message content; this side only says which (area, condition, day)
// crossed the line.
package alerts

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/Dacosmicgiant/alatem-sos/models"
)

// Sink receives high-risk triggers one at a time.
type Sink interface {
	Publish(ctx context.Context, trigger models.HighRiskTrigger) error
}

// Publisher sends triggers to a Redis channel.
type Publisher struct {
	client  *redis.Client
	channel string
}

func NewPublisher(ctx context.Context, redisURL, channel string) (*Publisher, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis URL: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}
	return &Publisher{client: client, channel: channel}, nil
}

func (p *Publisher) Publish(ctx context.Context, trigger models.HighRiskTrigger) error {
	data, err := json.Marshal(trigger)
	if err != nil {
		return fmt.Errorf("marshal trigger: %w", err)
	}
	if err := p.client.Publish(ctx, p.channel, data).Err(); err != nil {
		return fmt.Errorf("redis publish failed: %w", err)
	}
	return nil
}

func (p *Publisher) Close() error {
	return p.client.Close()
}

// NopSink drops triggers; used when no Redis is configured.
type NopSink struct{}

func (NopSink) Publish(ctx context.Context, trigger models.HighRiskTrigger) error {
	return nil
}
