package redis

import (
	"context"
	"time"
)

// ClientInterface is the cache store contract consumed by services, so tests
// can substitute mocks.
type ClientInterface interface {
	SetWithExpiration(ctx context.Context, key string, value interface{}, expiration time.Duration) error
	GetString(ctx context.Context, key string) (string, error)
	Delete(ctx context.Context, keys ...string) error
	Exists(ctx context.Context, key string) (bool, error)
	Ping(ctx context.Context) error
	Close() error
}

var _ ClientInterface = (*Client)(nil)
