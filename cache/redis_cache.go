package cache

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/go-redis/redis/v8"

	Logger "github.com/postline/postline/utils/log"
)

const keyPrefix = "pagecache:"

var ctx = context.Background()

// RedisCache is the production PageCache, shared across server replicas.
type RedisCache struct {
	inner *redis.Client
	ttl   time.Duration
}

// NewRedisCache connects to the redis instance specified by env and
// caches pages with the given ttl.
func NewRedisCache(ttl time.Duration) *RedisCache {
	return &RedisCache{
		inner: redis.NewClient(&redis.Options{
			Addr:     fmt.Sprintf("%s:%s", os.Getenv("REDIS_HOST"), os.Getenv("REDIS_PORT")),
			Password: os.Getenv("REDIS_PASSWD"),
			DB:       0, // use default DB
		}),
		ttl: ttl,
	}
}

func (c *RedisCache) Get(key string) ([]byte, bool) {
	body, err := c.inner.Get(ctx, keyPrefix+key).Bytes()
	if err != nil {
		// Cache miss and redis outage look the same to the caller, the
		// page is simply rebuilt from the DB.
		return nil, false
	}
	return body, true
}

func (c *RedisCache) Set(key string, body []byte) {
	if err := c.inner.Set(ctx, keyPrefix+key, body, c.ttl).Err(); err != nil {
		Logger.Log.Warn("fail to cache page: ", err)
	}
}

// Clear drops every cached page, effective immediately on all replicas.
func (c *RedisCache) Clear() {
	iter := c.inner.Scan(ctx, 0, keyPrefix+"*", 0).Iterator()
	for iter.Next(ctx) {
		c.inner.Del(ctx, iter.Val())
	}
	if err := iter.Err(); err != nil {
		Logger.Log.Warn("fail to clear page cache: ", err)
	}
}
