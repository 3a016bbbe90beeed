package dispatch

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"servicehub/models"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

// BookingEvent is emitted after every successful booking transition.
type BookingEvent struct {
	BookingID  string               `json:"bookingId"`
	From       models.BookingStatus `json:"from"`
	To         models.BookingStatus `json:"to"`
	Actor      string               `json:"actor"`
	Reason     string               `json:"reason,omitempty"`
	ProviderID string               `json:"providerId,omitempty"`
	Phase      string               `json:"phase"`
	At         time.Time            `json:"at"`
}

// EventPublisher fans booking events out to other services (customer
// notifications, billing).
type EventPublisher interface {
	Publish(ctx context.Context, event BookingEvent) error
}

// RedisEventPublisher publishes events as JSON on a Redis pub/sub channel.
type RedisEventPublisher struct {
	client  *redis.Client
	channel string
}

func NewRedisEventPublisher(client *redis.Client, channel string) *RedisEventPublisher {
	return &RedisEventPublisher{client: client, channel: channel}
}

func (p *RedisEventPublisher) Publish(ctx context.Context, event BookingEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal booking event: %w", err)
	}
	if err := p.client.Publish(ctx, p.channel, payload).Err(); err != nil {
		return fmt.Errorf("failed to publish booking event: %w", err)
	}
	return nil
}

// LogEventPublisher writes events to the log only.
type LogEventPublisher struct {
	Logger *zap.Logger
}

func (p LogEventPublisher) Publish(_ context.Context, event BookingEvent) error {
	if p.Logger != nil {
		p.Logger.Debug("booking event",
			zap.String("bookingID", event.BookingID),
			zap.String("from", string(event.From)),
			zap.String("to", string(event.To)),
			zap.String("phase", event.Phase))
	}
	return nil
}
