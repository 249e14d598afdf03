package cache

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"pick-allocation-service/internal/platform/obs"
	"pick-allocation-service/internal/ports"
)

const redisKeyPrefix = "distance:"

// RedisDistanceCache stores one hash per origin: field = destination key,
// value = steps. A TTL of zero keeps entries forever.
type RedisDistanceCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisDistanceCache(client *redis.Client, ttl time.Duration) *RedisDistanceCache {
	return &RedisDistanceCache{client: client, ttl: ttl}
}

// DialRedis connects and pings.
func DialRedis(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis connection failed: %w", err)
	}
	return client, nil
}

func (c *RedisDistanceCache) GetMany(ctx context.Context, origin string, destinations []string) (_ map[string]ports.DistanceResult, err error) {
	defer obs.Time(ctx, "distance.redis.GetMany")(&err)

	if c.client == nil {
		return nil, errNilBackend
	}
	if err := validateOrigin("get redis distance cache", origin); err != nil {
		return nil, err
	}

	keys := uniqueKeys(destinations)
	out := make(map[string]ports.DistanceResult, len(keys))
	if len(keys) == 0 {
		return out, nil
	}

	vals, err := c.client.HMGet(ctx, redisKeyPrefix+origin, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("get redis distance cache: hmget: %w", err)
	}

	for i, v := range vals {
		s, ok := v.(string)
		if !ok {
			continue // missing field
		}
		steps, err := strconv.Atoi(s)
		if err != nil {
			return nil, fmt.Errorf("get redis distance cache: bad value for %q: %w", keys[i], err)
		}
		out[keys[i]] = ports.DistanceResult{Steps: steps}
	}
	return out, nil
}

func (c *RedisDistanceCache) PutMany(ctx context.Context, origin string, results map[string]ports.DistanceResult) (err error) {
	defer obs.Time(ctx, "distance.redis.PutMany")(&err)

	if c.client == nil {
		return errNilBackend
	}
	if err := validateOrigin("put redis distance cache", origin); err != nil {
		return err
	}
	if err := validateResults("put redis distance cache", results); err != nil {
		return err
	}
	if len(results) == 0 {
		return nil
	}

	fields := make(map[string]any, len(results))
	for k, r := range results {
		fields[k] = r.Steps
	}

	key := redisKeyPrefix + origin
	pipe := c.client.TxPipeline()
	pipe.HSet(ctx, key, fields)
	if c.ttl > 0 {
		pipe.Expire(ctx, key, c.ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("put redis distance cache: %w", err)
	}
	return nil
}
