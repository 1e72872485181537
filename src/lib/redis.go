package lib

import (
	"context"
	"log"
	"os"
	"time"

	"github.com/redis/go-redis/v9"
)

var redisClient *redis.Client

func GetRedisClient() *redis.Client {
	if redisClient != nil {
		return redisClient
	}
	redisHost := os.Getenv("REDIS_HOST")
	opt, err := redis.ParseURL(redisHost)
	if err != nil {
		log.Printf("[redis] Error parsing connection string: %s\n", err.Error())
		return nil
	}
	rdb := redis.NewClient(opt)
	redisClient = rdb
	return rdb
}

// NewRedisClient Replace redis instance with custom client implementation
func NewRedisClient(c *redis.Client) *redis.Client {
	redisClient = c
	return redisClient
}

// CacheGet returns the cached value for key, or "" on miss or when the cache
// is unavailable. The cache is best-effort; callers fall through to the store.
func CacheGet(ctx context.Context, key string) string {
	rdb := GetRedisClient()
	if rdb == nil {
		return ""
	}
	val, err := rdb.Get(ctx, key).Result()
	if err == redis.Nil {
		return ""
	}
	if err != nil {
		log.Printf("[redis] Error reading key %s: %s\n", key, err.Error())
		return ""
	}
	return val
}

func CacheSet(ctx context.Context, key, value string, ttl time.Duration) {
	rdb := GetRedisClient()
	if rdb == nil {
		return
	}
	if err := rdb.Set(ctx, key, value, ttl).Err(); err != nil {
		log.Printf("[redis] Error writing key %s: %s\n", key, err.Error())
	}
}

func CacheDel(ctx context.Context, keys ...string) {
	rdb := GetRedisClient()
	if rdb == nil {
		return
	}
	if err := rdb.Del(ctx, keys...).Err(); err != nil {
		log.Printf("[redis] Error deleting keys %v: %s\n", keys, err.Error())
	}
}
