package statement

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/noah-isme/theater-billing/internal/resilience"
)

// Cache stores computed statements in Redis as JSON.
type Cache struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
	guard  *resilience.Breaker
}

// NewCache constructs a cache helper. A nil client or non-positive TTL disables caching.
func NewCache(client *redis.Client, prefix string, ttl time.Duration) *Cache {
	if prefix == "" {
		prefix = "statement:"
	}
	return &Cache{client: client, prefix: prefix, ttl: ttl}
}

// WithBreaker routes cache calls through b so a failing Redis is skipped until it recovers.
func (c *Cache) WithBreaker(b *resilience.Breaker) *Cache {
	c.guard = b
	return c
}

func (c *Cache) enabled() bool {
	return c != nil && c.client != nil && c.ttl > 0
}

// Get loads the result stored under key. It reports whether the key existed.
func (c *Cache) Get(ctx context.Context, key string) (Result, bool, error) {
	if !c.enabled() || key == "" {
		return Result{}, false, nil
	}
	var data []byte
	found := false
	err := c.guard.Do(ctx, func(ctx context.Context) error {
		var err error
		data, err = c.client.Get(ctx, c.prefix+key).Bytes()
		if errors.Is(err, redis.Nil) {
			return nil
		}
		found = err == nil
		return err
	})
	if err != nil {
		return Result{}, false, err
	}
	if !found {
		return Result{}, false, nil
	}
	var res Result
	if err := json.Unmarshal(data, &res); err != nil {
		return Result{}, false, err
	}
	return res, true, nil
}

// Set stores res under key with the configured TTL.
func (c *Cache) Set(ctx context.Context, key string, res Result) error {
	if !c.enabled() || key == "" {
		return nil
	}
	data, err := json.Marshal(res)
	if err != nil {
		return err
	}
	return c.guard.Do(ctx, func(ctx context.Context) error {
		return c.client.Set(ctx, c.prefix+key, data, c.ttl).Err()
	})
}
