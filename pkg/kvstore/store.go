// Package kvstore provides an injectable expiring key-value store used for
// short-lived dispatch state such as pending ride offers. Implementations
// must treat an expired entry exactly like a missing one.
package kvstore

import (
	"context"
	"errors"
	"time"

	goredis "github.com/redis/go-redis/v9"

	redisclient "github.com/swiftride/dispatch/pkg/redis"
)

// Store is a key-value store with per-entry expiry.
type Store interface {
	// Get returns the value and whether the key exists and is unexpired.
	Get(ctx context.Context, key string) (string, bool, error)
	// Put writes a value with the given time to live. A zero ttl means the
	// entry never expires.
	Put(ctx context.Context, key, value string, ttl time.Duration) error
	// Delete removes keys. Missing keys are not an error.
	Delete(ctx context.Context, keys ...string) error
}

// RedisStore backs the store with Redis key expiry.
type RedisStore struct {
	client redisclient.ClientInterface
}

// NewRedisStore creates a Redis-backed store.
func NewRedisStore(client redisclient.ClientInterface) *RedisStore {
	return &RedisStore{client: client}
}

// Get returns the value for key, reporting absence for missing or expired keys.
func (s *RedisStore) Get(ctx context.Context, key string) (string, bool, error) {
	value, err := s.client.GetString(ctx, key)
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return "", false, nil
		}
		return "", false, err
	}
	return value, true, nil
}

// Put writes value under key with the given ttl.
func (s *RedisStore) Put(ctx context.Context, key, value string, ttl time.Duration) error {
	return s.client.SetWithExpiration(ctx, key, value, ttl)
}

// Delete removes the given keys.
func (s *RedisStore) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	return s.client.Delete(ctx, keys...)
}

var _ Store = (*RedisStore)(nil)
