package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"route-planner-service/internal/domain"

	redis "github.com/redis/go-redis/v9"
)

type redisGeocodeEntry struct {
	Lat         float64 `json:"lat"`
	Lon         float64 `json:"lon"`
	DisplayName string  `json:"display_name"`
}

// RedisGeocodeCache shares geocode results between service instances.
// Entries expire after TTL so renamed or moved places are eventually refreshed.
type RedisGeocodeCache struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewRedisGeocodeCache(rdb *redis.Client, ttl time.Duration) *RedisGeocodeCache {
	return &RedisGeocodeCache{rdb: rdb, ttl: ttl}
}

// NewRedisGeocodeCacheFromURL parses a redis:// URL and connects lazily.
func NewRedisGeocodeCacheFromURL(url string, ttl time.Duration) (*RedisGeocodeCache, error) {
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("redis geocode cache: parse url: %w", err)
	}
	return NewRedisGeocodeCache(redis.NewClient(opt), ttl), nil
}

func (c *RedisGeocodeCache) key(address string) string { return "geocode:" + address }

func (c *RedisGeocodeCache) Get(ctx context.Context, address string) (domain.GeocodeResult, bool, error) {
	address = normalize(address)
	if address == "" {
		return domain.GeocodeResult{}, false, nil
	}

	raw, err := c.rdb.Get(ctx, c.key(address)).Bytes()
	if errors.Is(err, redis.Nil) {
		return domain.GeocodeResult{}, false, nil
	}
	if err != nil {
		return domain.GeocodeResult{}, false, fmt.Errorf("get redis geocode cache: %w", err)
	}

	var e redisGeocodeEntry
	if err := json.Unmarshal(raw, &e); err != nil {
		return domain.GeocodeResult{}, false, fmt.Errorf("get redis geocode cache: decode %q: %w", address, err)
	}

	return domain.GeocodeResult{
		Coordinate:  domain.Coordinate{Lat: e.Lat, Lon: e.Lon},
		DisplayName: e.DisplayName,
	}, true, nil
}

func (c *RedisGeocodeCache) Put(ctx context.Context, address string, res domain.GeocodeResult) error {
	address = normalize(address)
	if address == "" {
		return fmt.Errorf("insert redis geocode cache: empty address key")
	}

	data, err := json.Marshal(redisGeocodeEntry{
		Lat:         res.Coordinate.Lat,
		Lon:         res.Coordinate.Lon,
		DisplayName: res.DisplayName,
	})
	if err != nil {
		return fmt.Errorf("insert redis geocode cache: encode: %w", err)
	}

	if err := c.rdb.Set(ctx, c.key(address), data, c.ttl).Err(); err != nil {
		return fmt.Errorf("insert redis geocode cache address=%q: %w", address, err)
	}
	return nil
}

// Close releases the underlying connection pool.
func (c *RedisGeocodeCache) Close() error { return c.rdb.Close() }

// Ping reports whether the Redis server is reachable.
func (c *RedisGeocodeCache) Ping(ctx context.Context) error { return c.rdb.Ping(ctx).Err() }
