package cache

import (
	"context"
	"errors"
	"time"
)

// ErrMiss is returned by GetAndParse when the key is absent or expired.
var ErrMiss = errors.New("cache miss")

type (
	// Cache stores JSON-encoded values by key.
	Cache interface {
		GetAndParse(ctx context.Context, key string, dst interface{}) error
		Set(ctx context.Context, key string, value interface{}) error
		SetExp(ctx context.Context, key string, value interface{}, exp time.Duration) error
		Ping(ctx context.Context) error
		Close() error
	}
)
