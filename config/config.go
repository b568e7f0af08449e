package config

import (
	"errors"
	"fmt"
	"maps"
	"slices"
	"strings"
	"time"

	"github.com/jonwraymond/flushops/auth"
	"github.com/jonwraymond/flushops/invalidate"
	"github.com/jonwraymond/flushops/observe"
)

// Cache backends.
const (
	BackendMemory = "memory"
	BackendLRU    = "lru"
	BackendRedis  = "redis"
)

// Key kinds.
const (
	KeyKindArgs = "args"
	KeyKindHash = "hash"
)

// Config is the root configuration document.
type Config struct {
	Service  ServiceConfig          `yaml:"service"`
	Logging  LoggingConfig          `yaml:"logging"`
	Tracing  TracingConfig          `yaml:"tracing"`
	Metrics  MetricsConfig          `yaml:"metrics"`
	Failure  FailureConfig          `yaml:"failure"`
	Secrets  SecretsConfig          `yaml:"secrets"`
	Caches   map[string]CacheConfig `yaml:"caches"`
	Guard    GuardConfig            `yaml:"guard"`
	Health   HealthConfig           `yaml:"health"`
	Admin    AdminConfig            `yaml:"admin"`
	Policies []PolicyConfig         `yaml:"policies"`
}

// ServiceConfig identifies the process in logs and telemetry.
type ServiceConfig struct {
	Name    string `yaml:"name"`
	Version string `yaml:"version"`
}

// LoggingConfig configures the structured logger.
type LoggingConfig struct {
	// Level is debug|info|warn|error. Default: info
	Level string `yaml:"level"`
}

// TracingConfig configures span export.
type TracingConfig struct {
	Enabled   bool    `yaml:"enabled"`
	Exporter  string  `yaml:"exporter"`
	SamplePct float64 `yaml:"sample_pct"` // 0.0-1.0, default 1
}

// MetricsConfig configures metric export.
type MetricsConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Exporter string `yaml:"exporter"`
}

// FailureConfig selects the interceptor failure modes.
type FailureConfig struct {
	// OnKeyError is abort|proceed. Default: abort
	OnKeyError string `yaml:"on_key_error"`

	// OnCacheError is ignore|abort. Default: ignore
	OnCacheError string `yaml:"on_cache_error"`
}

// SecretsConfig configures secret providers used to resolve cache
// credentials. The env provider is always available.
type SecretsConfig struct {
	// Strict rejects secret references that resolve to an empty value.
	Strict bool `yaml:"strict"`

	// Providers maps a provider name to its parameters.
	Providers map[string]map[string]any `yaml:"providers"`
}

// CacheConfig declares one named cache.
type CacheConfig struct {
	// Backend is memory|lru|redis.
	Backend string `yaml:"backend"`

	// Size bounds an lru cache.
	Size int `yaml:"size"`

	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`

	// Prefix namespaces redis keys. Default: the cache name
	Prefix string `yaml:"prefix"`
}

// GuardConfig wraps cache calls in retries, a circuit breaker and a
// timeout. Zero values leave the corresponding layer out.
type GuardConfig struct {
	Retry   RetryConfig   `yaml:"retry"`
	Breaker BreakerConfig `yaml:"breaker"`
	Timeout time.Duration `yaml:"timeout"`
}

// RetryConfig configures retries of a failed Delete or Clear.
type RetryConfig struct {
	MaxAttempts  int           `yaml:"max_attempts"`
	InitialDelay time.Duration `yaml:"initial_delay"`
	MaxDelay     time.Duration `yaml:"max_delay"`
}

// BreakerConfig configures the circuit breaker.
type BreakerConfig struct {
	// Failures is the consecutive failure count that opens the circuit.
	Failures    int           `yaml:"failures"`
	OpenTimeout time.Duration `yaml:"open_timeout"`
}

// HealthConfig configures cache health checks.
type HealthConfig struct {
	// Timeout bounds a full round of checks. Default: 5s
	Timeout time.Duration `yaml:"timeout"`

	// SlowThreshold marks a reachable cache as degraded. Default: 250ms
	SlowThreshold time.Duration `yaml:"slow_threshold"`
}

// AdminConfig enables the authenticated cache admin endpoints.
type AdminConfig struct {
	Enabled bool           `yaml:"enabled"`
	APIKeys []APIKeyConfig `yaml:"api_keys"`
	JWT     JWTConfig      `yaml:"jwt"`

	// Roles maps a role to permissions written "<action> <resource>", for
	// example "clear cache:*". With no roles every authenticated caller is
	// allowed.
	Roles map[string][]string `yaml:"roles"`

	// AllowedOrigins enables CORS for these origins.
	AllowedOrigins []string `yaml:"allowed_origins"`
}

// APIKeyConfig registers one admin API key. Key may be a secret reference.
type APIKeyConfig struct {
	ID    string   `yaml:"id"`
	Key   string   `yaml:"key"`
	Roles []string `yaml:"roles"`
}

// JWTConfig accepts HMAC signed bearer tokens. Secret may be a secret
// reference; an empty Secret disables JWT authentication.
type JWTConfig struct {
	Secret     string `yaml:"secret"`
	Issuer     string `yaml:"issuer"`
	Audience   string `yaml:"audience"`
	RolesClaim string `yaml:"roles_claim"`
}

// PolicyConfig binds one operation to a cache.
type PolicyConfig struct {
	Scope     string    `yaml:"scope"`
	Operation string    `yaml:"operation"`
	Cache     string    `yaml:"cache"`
	RemoveAll bool      `yaml:"remove_all"`
	Key       KeyConfig `yaml:"key"`
}

// KeyConfig selects the key generator of a keyed policy.
type KeyConfig struct {
	// Kind is args|hash. Default: args when Args is set, hash otherwise
	Kind   string   `yaml:"kind"`
	Prefix string   `yaml:"prefix"`
	Args   []string `yaml:"args"`
}

// Identity returns the operation identity the policy applies to.
func (p PolicyConfig) Identity() invalidate.Identity {
	return invalidate.Identity{Scope: p.Scope, Operation: p.Operation}
}

// Default fills unset fields with their defaults.
func (c *Config) Default() {
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Tracing.SamplePct == 0 {
		c.Tracing.SamplePct = 1
	}
	if c.Failure.OnKeyError == "" {
		c.Failure.OnKeyError = "abort"
	}
	if c.Failure.OnCacheError == "" {
		c.Failure.OnCacheError = "ignore"
	}
	if c.Health.Timeout <= 0 {
		c.Health.Timeout = 5 * time.Second
	}
	if c.Health.SlowThreshold <= 0 {
		c.Health.SlowThreshold = 250 * time.Millisecond
	}
	for name, cc := range c.Caches {
		if cc.Backend == "" {
			cc.Backend = BackendMemory
		}
		if cc.Backend == BackendRedis && cc.Prefix == "" {
			cc.Prefix = name
		}
		c.Caches[name] = cc
	}
	for i := range c.Policies {
		k := &c.Policies[i].Key
		if c.Policies[i].RemoveAll || k.Kind != "" {
			continue
		}
		if len(k.Args) > 0 {
			k.Kind = KeyKindArgs
		} else {
			k.Kind = KeyKindHash
		}
	}
}

// Validate reports every problem in the document, joined.
func (c *Config) Validate() error {
	var errs []error
	add := func(err error) { errs = append(errs, err) }

	oc := c.ObserveConfig()
	if err := oc.Validate(); err != nil {
		add(err)
	}
	if !slices.Contains([]string{"abort", "proceed"}, c.Failure.OnKeyError) {
		add(fmt.Errorf("%w: failure.on_key_error %q must be abort or proceed", ErrInvalidConfig, c.Failure.OnKeyError))
	}
	if !slices.Contains([]string{"ignore", "abort"}, c.Failure.OnCacheError) {
		add(fmt.Errorf("%w: failure.on_cache_error %q must be ignore or abort", ErrInvalidConfig, c.Failure.OnCacheError))
	}

	for _, name := range sortedNames(c.Caches) {
		if err := c.Caches[name].validate(name); err != nil {
			add(err)
		}
	}
	if err := checkRedisPrefixes(c.Caches); err != nil {
		add(err)
	}

	if c.Guard.Retry.MaxAttempts < 0 || c.Guard.Breaker.Failures < 0 || c.Guard.Timeout < 0 {
		add(fmt.Errorf("%w: guard values must not be negative", ErrInvalidConfig))
	}

	if err := c.Admin.validate(); err != nil {
		add(err)
	}

	seen := make(map[invalidate.Identity]int, len(c.Policies))
	for i, p := range c.Policies {
		if err := p.validate(i, c.Caches); err != nil {
			add(err)
			continue
		}
		if j, dup := seen[p.Identity()]; dup {
			add(fmt.Errorf("%w: %s (policies[%d] and policies[%d])", ErrDuplicatePolicy, p.Identity(), j, i))
			continue
		}
		seen[p.Identity()] = i
	}

	return errors.Join(errs...)
}

func (cc CacheConfig) validate(name string) error {
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("%w: cache name is required", ErrInvalidConfig)
	}
	switch cc.Backend {
	case BackendMemory:
	case BackendLRU:
		if cc.Size <= 0 {
			return fmt.Errorf("%w: caches.%s: lru size must be greater than 0", ErrInvalidConfig, name)
		}
	case BackendRedis:
		if cc.Addr == "" {
			return fmt.Errorf("%w: caches.%s: redis addr is required", ErrInvalidConfig, name)
		}
	default:
		return fmt.Errorf("%w: caches.%s: %q", ErrUnknownBackend, name, cc.Backend)
	}
	return nil
}

// checkRedisPrefixes rejects redis caches sharing a server and database
// whose key namespaces nest, since Clear on one would remove the other's
// entries.
func checkRedisPrefixes(caches map[string]CacheConfig) error {
	type owner struct{ name, prefix string }
	servers := make(map[string][]owner)
	for _, name := range sortedNames(caches) {
		cc := caches[name]
		if cc.Backend != BackendRedis {
			continue
		}
		prefix := cc.Prefix
		if prefix == "" {
			prefix = name
		}
		server := fmt.Sprintf("%s/%d", cc.Addr, cc.DB)
		servers[server] = append(servers[server], owner{name, strings.TrimSuffix(prefix, ":")})
	}

	var errs []error
	for _, server := range slices.Sorted(maps.Keys(servers)) {
		owners := servers[server]
		for i, a := range owners {
			for _, b := range owners[i+1:] {
				if prefixesNest(a.prefix, b.prefix) {
					errs = append(errs, fmt.Errorf("%w: caches.%s (%q) and caches.%s (%q) on %s",
						ErrPrefixOverlap, a.name, a.prefix, b.name, b.prefix, server))
				}
			}
		}
	}
	return errors.Join(errs...)
}

// prefixesNest reports whether one namespace contains the other. Keys are
// stored as prefix:key, so "orders" and "ordersx" are disjoint but "orders"
// and "orders:eu" are not.
func prefixesNest(a, b string) bool {
	return a == b || strings.HasPrefix(a, b+":") || strings.HasPrefix(b, a+":")
}

func (a AdminConfig) validate() error {
	if !a.Enabled {
		return nil
	}
	if len(a.APIKeys) == 0 && a.JWT.Secret == "" {
		return fmt.Errorf("%w: admin: enabled without api_keys or jwt.secret", ErrInvalidConfig)
	}
	for i, k := range a.APIKeys {
		if k.ID == "" || k.Key == "" {
			return fmt.Errorf("%w: admin.api_keys[%d]: id and key are required", ErrInvalidConfig, i)
		}
	}
	for role, perms := range a.Roles {
		for _, p := range perms {
			if _, err := auth.ParsePermission(p); err != nil {
				return fmt.Errorf("%w: admin.roles.%s: %w", ErrInvalidConfig, role, err)
			}
		}
	}
	return nil
}

func (p PolicyConfig) validate(i int, caches map[string]CacheConfig) error {
	if strings.TrimSpace(p.Operation) == "" {
		return fmt.Errorf("%w: policies[%d]: operation is required", ErrInvalidConfig, i)
	}
	if _, ok := caches[p.Cache]; !ok {
		return fmt.Errorf("%w: policies[%d]: %q", ErrUnknownCache, i, p.Cache)
	}
	if p.RemoveAll {
		if p.Key.Kind != "" || len(p.Key.Args) > 0 || p.Key.Prefix != "" {
			return fmt.Errorf("%w: policies[%d]: remove_all policy must not declare a key", ErrInvalidConfig, i)
		}
		return nil
	}
	switch p.Key.Kind {
	case KeyKindArgs:
		if len(p.Key.Args) == 0 {
			return fmt.Errorf("%w: policies[%d]: args key requires at least one argument", ErrInvalidConfig, i)
		}
	case KeyKindHash:
		if len(p.Key.Args) > 0 {
			return fmt.Errorf("%w: policies[%d]: hash key hashes every argument and takes no args list", ErrInvalidConfig, i)
		}
	default:
		return fmt.Errorf("%w: policies[%d]: %q", ErrUnknownKeyKind, i, p.Key.Kind)
	}
	return nil
}

// ObserveConfig maps the telemetry sections onto observe.Config.
func (c *Config) ObserveConfig() observe.Config {
	return observe.Config{
		ServiceName: c.Service.Name,
		Version:     c.Service.Version,
		Tracing: observe.TracingConfig{
			Enabled:   c.Tracing.Enabled,
			Exporter:  c.Tracing.Exporter,
			SamplePct: c.Tracing.SamplePct,
		},
		Metrics: observe.MetricsConfig{
			Enabled:  c.Metrics.Enabled,
			Exporter: c.Metrics.Exporter,
		},
		Logging: observe.LoggingConfig{
			Enabled: true,
			Level:   c.Logging.Level,
		},
	}
}

// FailurePolicy maps the failure section onto invalidate.FailurePolicy.
func (c *Config) FailurePolicy() invalidate.FailurePolicy {
	var fp invalidate.FailurePolicy
	if c.Failure.OnKeyError == "proceed" {
		fp.OnKeyError = invalidate.ProceedOnKeyError
	}
	if c.Failure.OnCacheError == "abort" {
		fp.OnCacheError = invalidate.AbortOnCacheError
	}
	return fp
}

func sortedNames[V any](m map[string]V) []string {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}
