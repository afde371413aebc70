package dispatch

import (
	"context"
	"time"

	redisclient "github.com/swiftride/dispatch/pkg/redis"
)

// Locker serializes accept attempts for one ride across engine instances.
// The database CAS remains the arbiter of who wins; the lock only keeps
// concurrent accepts from doing redundant driver reservations.
type Locker interface {
	// Acquire takes the lock, reporting false when another holder has it.
	Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error)
	Release(ctx context.Context, key string) error
}

// RedisLocker implements Locker with SET NX and key expiry.
type RedisLocker struct {
	client redisclient.ClientInterface
}

// NewRedisLocker creates a Redis-backed locker.
func NewRedisLocker(client redisclient.ClientInterface) *RedisLocker {
	return &RedisLocker{client: client}
}

// Acquire takes the lock via SET NX with ttl as the expiry.
func (l *RedisLocker) Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	return l.client.SetIfNotExists(ctx, key, "1", ttl)
}

// Release drops the lock.
func (l *RedisLocker) Release(ctx context.Context, key string) error {
	return l.client.Delete(ctx, key)
}

var _ Locker = (*RedisLocker)(nil)
