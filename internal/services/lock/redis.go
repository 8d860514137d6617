// Package lock provides the Redis-backed per-branch lock used when opening shifts.
package lock

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bsm/redislock"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/evn/pos_backend/config"
	"github.com/evn/pos_backend/internal/ledger"
)

const moduleName = "lock"

type RedisLocker struct {
	client *redislock.Client
	ttl    time.Duration
	log    *logrus.Logger
}

func NewRedisLocker(rdb *redis.Client, ttl time.Duration) *RedisLocker {
	return &RedisLocker{
		client: redislock.New(rdb),
		ttl:    ttl,
		log:    config.GetLogger(),
	}
}

// Lock obtains key without retrying. A held key yields ledger.ErrLockBusy.
func (l *RedisLocker) Lock(ctx context.Context, key string) (func(), error) {
	lk, err := l.client.Obtain(ctx, key, l.ttl, nil)
	if errors.Is(err, redislock.ErrNotObtained) {
		return nil, fmt.Errorf("%w: %s", ledger.ErrLockBusy, key)
	}
	if err != nil {
		config.LogError(l.log, moduleName, "Lock", "Error obtaining lock", key, err)
		return nil, err
	}

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := lk.Release(ctx); err != nil && !errors.Is(err, redislock.ErrLockNotHeld) {
			config.LogError(l.log, moduleName, "Lock", "Error releasing lock", key, err)
		}
	}, nil
}
