// config/redis.go
package config

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// NewRedisClient returns nil when REDIS_ADDR is not set; callers treat a nil
// client as "Redis disabled".
func NewRedisClient(cfg *Config) *redis.Client {
	if cfg.RedisAddr == "" {
		GetLogger().Info("REDIS_ADDR not set; redis features disabled")
		return nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		GetLogger().WithError(err).WithField("addr", cfg.RedisAddr).Warn("redis ping failed; continuing")
	}
	return client
}
