package spotify

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/stereoclub/blindtest/internal/song"
)

// Cache stores search results keyed by query. A miss is never an error;
// callers fall through to the provider.
type Cache interface {
	Get(ctx context.Context, query string) ([]song.ProviderTrack, bool)
	Set(ctx context.Context, query string, tracks []song.ProviderTrack)
}

// NopCache never hits.
type NopCache struct{}

func (NopCache) Get(context.Context, string) ([]song.ProviderTrack, bool) { return nil, false }
func (NopCache) Set(context.Context, string, []song.ProviderTrack)       {}

const defaultCacheTTL = 10 * time.Minute

// RedisCache keeps search results in Redis with a TTL, so repeated queries
// while a host assembles a playlist don't hammer the provider. All failures
// degrade to a miss.
type RedisCache struct {
	rdb    *redis.Client
	ttl    time.Duration
	logger *slog.Logger
}

func NewRedisCache(rdb *redis.Client, logger *slog.Logger) *RedisCache {
	return &RedisCache{rdb: rdb, ttl: defaultCacheTTL, logger: logger}
}

func cacheKey(query string) string {
	return "search:" + strings.ToLower(strings.TrimSpace(query))
}

func (c *RedisCache) Get(ctx context.Context, query string) ([]song.ProviderTrack, bool) {
	raw, err := c.rdb.Get(ctx, cacheKey(query)).Bytes()
	if err != nil {
		return nil, false
	}
	var tracks []song.ProviderTrack
	if err := json.Unmarshal(raw, &tracks); err != nil {
		return nil, false
	}
	return tracks, true
}

func (c *RedisCache) Set(ctx context.Context, query string, tracks []song.ProviderTrack) {
	raw, err := json.Marshal(tracks)
	if err != nil {
		return
	}
	if err := c.rdb.Set(ctx, cacheKey(query), raw, c.ttl).Err(); err != nil {
		c.logger.Warn("search cache write failed", "error", err)
	}
}
