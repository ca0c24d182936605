package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"
)

// RefCache is a read-through cache for reference data (departments, role
// definitions, access rights). Entries carry a short TTL and are refreshed
// lazily on miss; concurrent misses for one key collapse into a single load.
// Stale reads are acceptable to callers by contract.
type RefCache struct {
	client *redis.Client
	ttl    time.Duration
	group  singleflight.Group
}

// NewRefCache constructs a RefCache. A nil client disables caching; every
// fetch then falls through to the loader.
func NewRefCache(client *redis.Client, ttl time.Duration) *RefCache {
	return &RefCache{client: client, ttl: ttl}
}

// FetchJSON loads a cached value into dest or populates the cache using loader.
func (c *RefCache) FetchJSON(ctx context.Context, key string, dest any, loader func(context.Context) (any, error)) error {
	if loader == nil {
		return errors.New("cache: loader required")
	}
	if c == nil || c.client == nil {
		value, err := loader(ctx)
		if err != nil {
			return err
		}
		return roundTrip(value, dest)
	}

	raw, err := c.client.Get(ctx, key).Bytes()
	if err == nil {
		return json.Unmarshal(raw, dest)
	}
	if !errors.Is(err, redis.Nil) {
		return err
	}

	ch := c.group.DoChan(key, func() (any, error) {
		value, err := loader(ctx)
		if err != nil {
			return nil, err
		}
		data, err := json.Marshal(value)
		if err != nil {
			return nil, err
		}
		if err := c.client.Set(ctx, key, data, c.ttl).Err(); err != nil {
			return nil, err
		}
		return data, nil
	})

	select {
	case <-ctx.Done():
		return ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return res.Err
		}
		return json.Unmarshal(res.Val.([]byte), dest)
	}
}

// Invalidate drops the cached entries for the given keys.
func (c *RefCache) Invalidate(ctx context.Context, keys ...string) error {
	if c == nil || c.client == nil || len(keys) == 0 {
		return nil
	}
	return c.client.Del(ctx, keys...).Err()
}

func roundTrip(value, dest any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, dest)
}
