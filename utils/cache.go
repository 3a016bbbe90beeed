// File: utils/cache.go
package utils

import (
	"context"
	"fmt"
	"time"

	"servicehub/config"

	"github.com/go-redis/redis/v8"
)

// EventsClient publishes booking state-change events.
var EventsClient *redis.Client

// NewRedisClient connects to the configured Redis server on the given DB and
// pings it.
func NewRedisClient(db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     config.AppConfig.RedisAddr,
		Password: config.AppConfig.RedisPassword,
		DB:       db,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if _, err := client.Ping(ctx).Result(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis (db %d): %w", db, err)
	}
	return client, nil
}

// InitEvents initializes the Redis client used for booking events.
func InitEvents() error {
	client, err := NewRedisClient(config.AppConfig.RedisEventsDB)
	if err != nil {
		return err
	}
	EventsClient = client
	return nil
}
