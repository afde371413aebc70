package redis

import (
	"context"
	"time"
)

// ClientInterface defines the Redis operations the engine depends on
type ClientInterface interface {
	SetWithExpiration(ctx context.Context, key string, value interface{}, expiration time.Duration) error
	SetIfNotExists(ctx context.Context, key string, value interface{}, expiration time.Duration) (bool, error)
	GetString(ctx context.Context, key string) (string, error)
	Delete(ctx context.Context, keys ...string) error
	Exists(ctx context.Context, key string) (bool, error)
	Expire(ctx context.Context, key string, expiration time.Duration) error

	// Geospatial operations
	GeoAdd(ctx context.Context, key string, longitude, latitude float64, member string) error
	GeoRadius(ctx context.Context, key string, longitude, latitude, radiusKm float64, count int) ([]string, error)
	GeoRemove(ctx context.Context, key string, member string) error

	Close() error
}

// Ensure Client implements ClientInterface
var _ ClientInterface = (*Client)(nil)
