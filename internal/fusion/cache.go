package fusion

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"time"

	"github.com/redis/go-redis/v9"
)

// Cache stores fused results keyed by query grid cell. Misses and cache
// errors are equivalent to the caller; the fusion path never fails on a
// cache problem.
type Cache interface {
	Get(ctx context.Context, q Query) (*Result, bool)
	Set(ctx context.Context, q Query, res *Result)
}

// cacheGridSize groups nearby query points into shared cells, in degrees.
const cacheGridSize = 0.01

func cacheKey(q Query) string {
	// Floor keeps cells uniform across the zero meridian and equator;
	// truncation would merge the two cells either side of zero.
	lat := int(math.Floor(q.Point.Lat / cacheGridSize))
	lon := int(math.Floor(q.Point.Lon / cacheGridSize))
	return fmt.Sprintf("fusion:%d:%d:%.0f", lat, lon, q.RadiusKm)
}

// RedisCache is a Redis-backed result cache.
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
}

var _ Cache = (*RedisCache)(nil)

// NewRedisCache creates a Redis-backed cache. A zero TTL defaults to
// five minutes.
func NewRedisCache(client *redis.Client, ttl time.Duration) *RedisCache {
	if ttl == 0 {
		ttl = 5 * time.Minute
	}
	return &RedisCache{client: client, ttl: ttl}
}

func (c *RedisCache) Get(ctx context.Context, q Query) (*Result, bool) {
	data, err := c.client.Get(ctx, cacheKey(q)).Bytes()
	if err != nil {
		return nil, false
	}
	var res Result
	if err := json.Unmarshal(data, &res); err != nil {
		return nil, false
	}
	return &res, true
}

func (c *RedisCache) Set(ctx context.Context, q Query, res *Result) {
	data, err := json.Marshal(res)
	if err != nil {
		return
	}
	c.client.Set(ctx, cacheKey(q), data, c.ttl)
}

// NoopCache disables caching.
type NoopCache struct{}

var _ Cache = NoopCache{}

func (NoopCache) Get(context.Context, Query) (*Result, bool) { return nil, false }
func (NoopCache) Set(context.Context, Query, *Result)        {}
