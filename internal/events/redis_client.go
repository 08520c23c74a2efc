package events

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

var (
	rdb *redis.Client
	ctx = context.Background()
)

// InitRedis initializes the Redis client used for the debate event stream.
func InitRedis(redisURL string, password string, db int) error {
	opt := &redis.Options{
		Addr:     redisURL,
		Password: password,
		DB:       db,
	}

	rdb = redis.NewClient(opt)

	// Test connection
	_, err := rdb.Ping(ctx).Result()
	if err != nil {
		return fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return nil
}

// Enabled reports whether the event stream is configured.
func Enabled() bool {
	return rdb != nil
}
