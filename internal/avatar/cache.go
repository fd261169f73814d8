package avatar

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// Cache stores generated avatar payloads in Redis. A payload is written once
// after successful generation and never invalidated.
type Cache struct {
	client *redis.Client
}

// NewCache connects to Redis and verifies connectivity
func NewCache(address, password string, db int) (*Cache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     address,
		Password: password,
		DB:       db,
	})

	if err := client.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return &Cache{client: client}, nil
}

func key(userID string) string {
	return "avatar:" + userID
}

// Get returns the cached payload, or nil when absent
func (c *Cache) Get(ctx context.Context, userID string) ([]byte, error) {
	data, err := c.client.Get(ctx, key(userID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get avatar: %w", err)
	}
	return data, nil
}

// Set stores the payload with no expiry
func (c *Cache) Set(ctx context.Context, userID string, image []byte) error {
	if err := c.client.Set(ctx, key(userID), image, 0).Err(); err != nil {
		return fmt.Errorf("failed to set avatar: %w", err)
	}
	return nil
}

// HealthCheck verifies Redis connectivity
func (c *Cache) HealthCheck(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

// Close closes the Redis connection
func (c *Cache) Close() error {
	return c.client.Close()
}
