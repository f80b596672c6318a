package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"
)

var _ Cache = (*MemoryCache)(nil)

type memoryEntry struct {
	data    []byte
	expires time.Time // zero means no expiry
}

// MemoryCache is an in-process Cache. Values are JSON round-tripped so it
// behaves like the Redis backend.
type MemoryCache struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
	now     func() time.Time
}

func NewMemoryCache() *MemoryCache {
	return &MemoryCache{
		entries: make(map[string]memoryEntry),
		now:     time.Now,
	}
}

func (mc *MemoryCache) GetAndParse(ctx context.Context, key string, dst interface{}) error {
	mc.mu.Lock()
	e, ok := mc.entries[key]
	if ok && !e.expires.IsZero() && !mc.now().Before(e.expires) {
		delete(mc.entries, key)
		ok = false
	}
	mc.mu.Unlock()

	if !ok {
		return ErrMiss
	}
	if err := json.Unmarshal(e.data, dst); err != nil {
		return fmt.Errorf("cache key (%s): %w", key, err)
	}
	return nil
}

func (mc *MemoryCache) Set(ctx context.Context, key string, value interface{}) error {
	return mc.SetExp(ctx, key, value, 0)
}

func (mc *MemoryCache) SetExp(ctx context.Context, key string, value interface{}, exp time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	e := memoryEntry{data: data}
	if exp > 0 {
		e.expires = mc.now().Add(exp)
	}

	mc.mu.Lock()
	mc.entries[key] = e
	mc.mu.Unlock()
	return nil
}

func (mc *MemoryCache) Ping(ctx context.Context) error { return nil }

func (mc *MemoryCache) Close() error { return nil }
