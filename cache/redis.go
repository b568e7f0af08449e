package cache

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// DefaultScanCount is the SCAN batch hint used by Clear.
const DefaultScanCount = 500

// RedisConfig holds the configuration for a Redis-backed cache.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int

	// Prefix namespaces every key this cache writes; Clear only touches keys
	// under it. Required.
	Prefix string

	// ScanCount is the COUNT hint for SCAN during Clear.
	// Default: DefaultScanCount
	ScanCount int64
}

// RedisCache is a Cache stored in Redis under a key prefix.
type RedisCache struct {
	client    redis.UniversalClient
	prefix    string
	scanCount int64
	logger    zerolog.Logger
}

// NewRedisCache connects to Redis and pings it before returning.
func NewRedisCache(ctx context.Context, cfg RedisConfig, logger zerolog.Logger) (*RedisCache, error) {
	if cfg.Addr == "" {
		return nil, errors.New("cache: redis address is required")
	}
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	c, err := NewRedisCacheFromClient(rdb, cfg, logger)
	if err != nil {
		_ = rdb.Close()
		return nil, err
	}

	if err := c.Ping(ctx); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("cache: failed to connect to redis at %s: %w", cfg.Addr, err)
	}

	c.logger.Info().Str("redis_address", cfg.Addr).Int("db", cfg.DB).Msg("connected to redis")
	return c, nil
}

// NewRedisCacheFromClient wraps an existing client. The cache takes
// ownership: Close closes the client.
func NewRedisCacheFromClient(client redis.UniversalClient, cfg RedisConfig, logger zerolog.Logger) (*RedisCache, error) {
	if client == nil {
		return nil, ErrNilCache
	}
	prefix := strings.TrimSuffix(cfg.Prefix, ":")
	if strings.TrimSpace(prefix) == "" {
		return nil, errors.New("cache: redis cache requires a key prefix")
	}
	scanCount := cfg.ScanCount
	if scanCount <= 0 {
		scanCount = DefaultScanCount
	}
	return &RedisCache{
		client:    client,
		prefix:    prefix + ":",
		scanCount: scanCount,
		logger:    logger.With().Str("component", "RedisCache").Str("prefix", prefix).Logger(),
	}, nil
}

// Get returns the value stored under key.
func (c *RedisCache) Get(ctx context.Context, key string) ([]byte, bool) {
	data, err := c.client.Get(ctx, c.prefix+key).Bytes()
	if err != nil {
		// redis.Nil is a plain miss.
		if !errors.Is(err, redis.Nil) {
			c.logger.Error().Err(err).Str("key", key).Msg("redis get failed")
		}
		return nil, false
	}
	return data, true
}

// Set stores value with ttl. TTL<=0 stores nothing.
func (c *RedisCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	if err := c.client.Set(ctx, c.prefix+key, value, ttl).Err(); err != nil {
		return fmt.Errorf("cache: redis set %q: %w", key, err)
	}
	return nil
}

// Delete removes key. Deleting a missing key is not an error.
func (c *RedisCache) Delete(ctx context.Context, key string) error {
	if err := c.client.Del(ctx, c.prefix+key).Err(); err != nil {
		return fmt.Errorf("cache: redis delete %q: %w", key, err)
	}
	c.logger.Debug().Str("key", key).Msg("redis key deleted")
	return nil
}

// Clear removes every key under the cache prefix. A full SCAN pass
// collects the keys before any are unlinked, because removing keys while a
// cursor is open can make later SCAN calls skip entries. Keys written during
// Clear may survive it.
func (c *RedisCache) Clear(ctx context.Context) error {
	var keys []string
	iter := c.client.Scan(ctx, 0, escapeGlob(c.prefix)+"*", c.scanCount).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("cache: redis scan: %w", err)
	}

	for batch := range slices.Chunk(keys, int(c.scanCount)) {
		if err := c.client.Unlink(ctx, batch...).Err(); err != nil {
			return fmt.Errorf("cache: redis unlink: %w", err)
		}
	}

	c.logger.Debug().Int("removed", len(keys)).Msg("redis cache cleared")
	return nil
}

// Ping checks connectivity.
func (c *RedisCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

// Close closes the underlying client.
func (c *RedisCache) Close() error {
	c.logger.Info().Msg("closing redis client")
	return c.client.Close()
}

// escapeGlob quotes the characters SCAN MATCH treats specially.
func escapeGlob(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch r {
		case '*', '?', '[', ']', '\\':
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}

var (
	_ Cache  = (*RedisCache)(nil)
	_ Pinger = (*RedisCache)(nil)
)
