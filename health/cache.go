package health

import (
	"context"
	"fmt"
	"time"

	"github.com/jonwraymond/flushops/cache"
)

// CacheCheckerConfig configures a CacheChecker.
type CacheCheckerConfig struct {
	// SlowThreshold marks a ping slower than this as degraded.
	// Default: 250ms
	SlowThreshold time.Duration
}

// CacheChecker reports whether a cache can receive invalidations.
// Caches implementing cache.Pinger are pinged; in-process caches are
// always healthy.
type CacheChecker struct {
	name   string
	cache  cache.Invalidator
	config CacheCheckerConfig
}

// NewCacheChecker creates a checker for the cache registered under name.
func NewCacheChecker(name string, c cache.Invalidator, config ...CacheCheckerConfig) *CacheChecker {
	var cfg CacheCheckerConfig
	if len(config) > 0 {
		cfg = config[0]
	}
	if cfg.SlowThreshold <= 0 {
		cfg.SlowThreshold = 250 * time.Millisecond
	}
	return &CacheChecker{name: name, cache: c, config: cfg}
}

// Name returns the checker name.
func (c *CacheChecker) Name() string {
	return "cache:" + c.name
}

// Check pings the cache when it supports pinging.
func (c *CacheChecker) Check(ctx context.Context) Result {
	p, ok := c.cache.(cache.Pinger)
	if !ok {
		r := Healthy("in-process cache").With("cache", c.name)
		if l, ok := c.cache.(interface{ Len() int }); ok {
			r = r.With("entries", l.Len())
		}
		return r
	}

	start := time.Now()
	err := p.Ping(ctx)
	rtt := time.Since(start)

	var r Result
	switch {
	case err != nil:
		r = Unhealthy(fmt.Sprintf("cache %s unreachable", c.name), fmt.Errorf("%w: %w", ErrUnreachable, err))
	case rtt > c.config.SlowThreshold:
		r = Degraded(fmt.Sprintf("cache %s slow: %s", c.name, rtt))
	default:
		r = Healthy(fmt.Sprintf("cache %s reachable", c.name))
	}
	return r.With("cache", c.name).With("ping", rtt.String())
}

var _ Checker = (*CacheChecker)(nil)

// RegisterCaches adds a CacheChecker for every cache in reg.
func (a *Aggregator) RegisterCaches(reg *cache.Registry, config ...CacheCheckerConfig) error {
	for _, name := range reg.Names() {
		c, err := reg.Lookup(name)
		if err != nil {
			return err
		}
		if err := a.Register(NewCacheChecker(name, c, config...)); err != nil {
			return err
		}
	}
	return nil
}
