package ingest

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	lockKeyPrefix = "nepse:ingest:"
	// lockTTL bounds how long a crashed run can block its successor.
	lockTTL = 10 * time.Minute
)

// RedisLocker serializes ingestion runs with a per-key SETNX lock.
type RedisLocker struct {
	client *redis.Client
}

// NewRedisLocker creates a locker backed by the Redis instance at addr.
func NewRedisLocker(addr string) *RedisLocker {
	client := redis.NewClient(&redis.Options{
		Addr: addr,
	})
	return &RedisLocker{client: client}
}

// Acquire takes the named lock, returning false when it is already held.
func (l *RedisLocker) Acquire(ctx context.Context, key string) (bool, error) {
	ok, err := l.client.SetNX(ctx, lockKeyPrefix+key, 1, lockTTL).Result()
	if err != nil {
		return false, fmt.Errorf("failed to acquire lock %s: %w", key, err)
	}
	return ok, nil
}

// Release frees the named lock.
func (l *RedisLocker) Release(ctx context.Context, key string) error {
	if err := l.client.Del(ctx, lockKeyPrefix+key).Err(); err != nil {
		return fmt.Errorf("failed to release lock %s: %w", key, err)
	}
	return nil
}

// Close closes the Redis connection.
func (l *RedisLocker) Close() error {
	return l.client.Close()
}
