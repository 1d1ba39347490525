// Package cache memoizes computed leaderboard responses in Redis. Caching is
// purely an optimization: every read path works with caching disabled, and
// mutations invalidate season keys synchronously so the next read is fresh.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"kvk-tracker/internal/config"
	"kvk-tracker/internal/constants"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// ErrCacheMiss is returned when the requested key is not cached.
var ErrCacheMiss = errors.New("cache: key not found")

// Cache wraps a Redis client. A nil client means caching is disabled and all
// operations are no-ops.
type Cache struct {
	client *redis.Client
	logger zerolog.Logger
}

// New connects to Redis if REDIS_URL is configured. Connection failure is not
// fatal: the tracker runs without caching, just slower.
func New(cfg *config.Config, logger zerolog.Logger) *Cache {
	if cfg.RedisURL == "" {
		logger.Info().Msg("redis not configured, caching disabled")
		return &Cache{logger: logger}
	}

	opts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		logger.Warn().Err(err).Msg("invalid redis url, caching disabled")
		return &Cache{logger: logger}
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), constants.CacheTimeout)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		logger.Warn().Err(err).Msg("redis unavailable, caching disabled")
		return &Cache{logger: logger}
	}

	logger.Info().Msg("connected to redis")
	return &Cache{client: client, logger: logger}
}

// Enabled reports whether a Redis connection is live.
func (c *Cache) Enabled() bool {
	return c.client != nil
}

// Close releases the Redis connection.
func (c *Cache) Close() error {
	if c.client == nil {
		return nil
	}
	return c.client.Close()
}

// Get unmarshals the cached value at key into dest.
func (c *Cache) Get(ctx context.Context, key string, dest any) error {
	if c.client == nil {
		return ErrCacheMiss
	}

	data, err := c.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return ErrCacheMiss
	}
	if err != nil {
		c.logger.Warn().Err(err).Str("key", key).Msg("cache get failed")
		return ErrCacheMiss
	}

	if err := json.Unmarshal(data, dest); err != nil {
		c.logger.Warn().Err(err).Str("key", key).Msg("cache entry corrupt, dropping")
		c.client.Del(ctx, key)
		return ErrCacheMiss
	}

	return nil
}

// Set stores value at key with the given TTL. Failures are logged and
// swallowed.
func (c *Cache) Set(ctx context.Context, key string, value any, ttl time.Duration) {
	if c.client == nil {
		return
	}

	data, err := json.Marshal(value)
	if err != nil {
		c.logger.Warn().Err(err).Str("key", key).Msg("cache set: marshal failed")
		return
	}

	if err := c.client.Set(ctx, key, data, ttl).Err(); err != nil {
		c.logger.Warn().Err(err).Str("key", key).Msg("cache set failed")
	}
}

// Delete removes specific keys.
func (c *Cache) Delete(ctx context.Context, keys ...string) {
	if c.client == nil || len(keys) == 0 {
		return
	}
	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		c.logger.Warn().Err(err).Strs("keys", keys).Msg("cache delete failed")
	}
}

// InvalidatePattern deletes every key matching a glob pattern.
func (c *Cache) InvalidatePattern(ctx context.Context, pattern string) {
	if c.client == nil {
		return
	}

	iter := c.client.Scan(ctx, 0, pattern, 100).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		c.logger.Warn().Err(err).Str("pattern", pattern).Msg("cache scan failed")
		return
	}

	if len(keys) > 0 {
		c.Delete(ctx, keys...)
		c.logger.Debug().Int("count", len(keys)).Str("pattern", pattern).Msg("cache keys invalidated")
	}
}

// InvalidateSeason clears every cached read derived from a season's data.
// Called synchronously from every mutating operation before it returns.
func (c *Cache) InvalidateSeason(ctx context.Context, seasonID string) {
	if c.client == nil {
		return
	}

	c.InvalidatePattern(ctx, fmt.Sprintf("leaderboard:%s:*", seasonID))
	c.InvalidatePattern(ctx, fmt.Sprintf("player:%s:*", seasonID))
	c.Delete(ctx,
		CombinedLeaderboardKey(seasonID),
		ContributionsKey(seasonID),
		FightPeriodsKey(seasonID),
		SeasonKey(seasonID),
	)
}

// Key builders, shared by services so reads and invalidation agree.

func LeaderboardKey(seasonID, sortBy string) string {
	return fmt.Sprintf("leaderboard:%s:%s", seasonID, sortBy)
}

func CombinedLeaderboardKey(seasonID string) string {
	return fmt.Sprintf("leaderboard:combined:%s", seasonID)
}

func PlayerKey(seasonID, governorID string) string {
	return fmt.Sprintf("player:%s:%s", seasonID, governorID)
}

func ContributionsKey(seasonID string) string {
	return fmt.Sprintf("contributions:%s", seasonID)
}

func FightPeriodsKey(seasonID string) string {
	return fmt.Sprintf("fight_periods:%s", seasonID)
}

func SeasonKey(seasonID string) string {
	return fmt.Sprintf("season:%s", seasonID)
}

func ActiveSeasonKey() string {
	return "season:active"
}
