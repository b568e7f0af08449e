package config

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/rs/zerolog"

	"github.com/jonwraymond/flushops/admin"
	"github.com/jonwraymond/flushops/auth"
	"github.com/jonwraymond/flushops/cache"
	"github.com/jonwraymond/flushops/health"
	"github.com/jonwraymond/flushops/invalidate"
	"github.com/jonwraymond/flushops/observe"
	"github.com/jonwraymond/flushops/resilience"
	"github.com/jonwraymond/flushops/secret"
)

// Runtime is the wired result of Build.
type Runtime struct {
	Interceptor *invalidate.Interceptor
	Caches      *cache.Registry
	Resolver    *invalidate.SwappableResolver
	Health      *health.Aggregator
	Observer    observe.Observer
	Logger      observe.Logger
	Secrets     *secret.Resolver

	// Breaker is the guard's circuit breaker, nil when not configured.
	Breaker *resilience.CircuitBreaker

	// Admin serves the cache admin endpoints, nil when disabled.
	Admin http.Handler
}

// BuildOption configures Build.
type BuildOption func(*buildOptions)

type buildOptions struct {
	logWriter io.Writer
	providers []secret.Provider
}

// WithLogWriter sends log output to w. Default: os.Stderr
func WithLogWriter(w io.Writer) BuildOption {
	return func(o *buildOptions) {
		if w != nil {
			o.logWriter = w
		}
	}
}

// WithSecretProvider registers an extra secret provider, overriding a
// configured provider of the same name.
func WithSecretProvider(p secret.Provider) BuildOption {
	return func(o *buildOptions) {
		if p != nil {
			o.providers = append(o.providers, p)
		}
	}
}

// Build applies defaults to cfg and wires it into a Runtime. On error every
// resource opened so far is released.
func Build(ctx context.Context, cfg *Config, opts ...BuildOption) (_ *Runtime, err error) {
	if cfg == nil {
		return nil, fmt.Errorf("%w: config is nil", ErrInvalidConfig)
	}
	cfg.Default()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	o := buildOptions{logWriter: os.Stderr}
	for _, opt := range opts {
		opt(&o)
	}

	zl := zerolog.New(o.logWriter).
		Level(observe.ParseLogLevel(cfg.Logging.Level)).
		With().Timestamp().Str("service", cfg.Service.Name).Logger()

	rt := &Runtime{
		Caches: cache.NewRegistry(),
		Logger: observe.FromZerolog(zl),
	}
	defer func() {
		if err != nil {
			_ = rt.Close(context.WithoutCancel(ctx))
		}
	}()

	rt.Secrets, err = newSecretResolver(cfg.Secrets, o.providers)
	if err != nil {
		return nil, err
	}

	for _, name := range sortedNames(cfg.Caches) {
		c, err := newCache(ctx, name, cfg.Caches[name], rt.Secrets, zl)
		if err != nil {
			return nil, err
		}
		if err := rt.Caches.Register(name, c); err != nil {
			return nil, err
		}
	}

	policies, err := BuildPolicies(cfg.Policies, rt.Caches)
	if err != nil {
		return nil, err
	}
	rt.Resolver = invalidate.NewSwappableResolver(policies)

	rt.Observer, err = observe.NewObserver(ctx, cfg.ObserveConfig())
	if err != nil {
		return nil, err
	}
	metrics, err := observe.NewMetrics(rt.Observer.Meter())
	if err != nil {
		return nil, err
	}
	mw := observe.NewMiddleware(observe.NewTracer(rt.Observer.Tracer()), metrics, rt.Logger)

	interceptorOpts := []invalidate.Option{
		invalidate.WithLogger(rt.Logger.With(observe.Field{Key: "component", Value: "interceptor"})),
		invalidate.WithInstrumentation(mw),
		invalidate.WithFailurePolicy(cfg.FailurePolicy()),
	}
	if guard := rt.newGuard(cfg.Guard); guard != nil {
		interceptorOpts = append(interceptorOpts, invalidate.WithGuard(guard))
	}
	rt.Interceptor, err = invalidate.NewInterceptor(rt.Resolver, interceptorOpts...)
	if err != nil {
		return nil, err
	}

	rt.Health = health.NewAggregator(health.AggregatorConfig{Timeout: cfg.Health.Timeout})
	if err := rt.Health.RegisterCaches(rt.Caches, health.CacheCheckerConfig{SlowThreshold: cfg.Health.SlowThreshold}); err != nil {
		return nil, err
	}

	if cfg.Admin.Enabled {
		rt.Admin, err = newAdmin(ctx, cfg.Admin, rt, mw)
		if err != nil {
			return nil, err
		}
	}

	rt.Logger.Info(ctx, "runtime built",
		observe.Field{Key: "caches", Value: rt.Caches.Names()},
		observe.Field{Key: "policies", Value: policies.Len()},
	)
	return rt, nil
}

// BuildPolicies turns policy declarations into a registry whose targets
// are looked up in caches.
func BuildPolicies(policies []PolicyConfig, caches *cache.Registry) (*invalidate.Registry, error) {
	table := make(map[invalidate.Identity]invalidate.Policy, len(policies))
	for i, pc := range policies {
		target, err := caches.Lookup(pc.Cache)
		if err != nil {
			return nil, fmt.Errorf("%w: policies[%d]: %w", ErrUnknownCache, i, err)
		}
		id := pc.Identity()
		if _, dup := table[id]; dup {
			return nil, fmt.Errorf("%w: %s", ErrDuplicatePolicy, id)
		}

		if pc.RemoveAll {
			table[id] = invalidate.RemoveAllPolicy(pc.Cache, target)
			continue
		}
		var gen invalidate.KeyGenerator
		switch pc.Key.Kind {
		case KeyKindArgs:
			gen = invalidate.ArgsKeyGenerator{Prefix: pc.Key.Prefix, Args: pc.Key.Args}
		case KeyKindHash:
			gen = invalidate.HashKeyGenerator{Prefix: pc.Key.Prefix}
		default:
			return nil, fmt.Errorf("%w: policies[%d]: %q", ErrUnknownKeyKind, i, pc.Key.Kind)
		}
		table[id] = invalidate.KeyedPolicy(pc.Cache, target, gen)
	}
	return invalidate.NewRegistry(table)
}

// Reload validates cfg and swaps in its policies. Caches are not rebuilt,
// so every policy must name a cache the runtime already holds. On error
// the current policies stay in place.
func (rt *Runtime) Reload(ctx context.Context, cfg *Config) error {
	if rt == nil {
		return ErrNilRuntime
	}
	if cfg == nil {
		return fmt.Errorf("%w: config is nil", ErrInvalidConfig)
	}
	cfg.Default()
	if err := cfg.Validate(); err != nil {
		return err
	}
	reg, err := BuildPolicies(cfg.Policies, rt.Caches)
	if err != nil {
		return err
	}
	rt.Resolver.Store(reg)
	rt.Logger.Info(ctx, "policies reloaded", observe.Field{Key: "policies", Value: reg.Len()})
	return nil
}

// HealthHandler serves the health endpoints for the runtime's caches.
func (rt *Runtime) HealthHandler() http.Handler {
	return health.NewRouter(rt.Health)
}

// Close releases caches, secret providers and telemetry exporters.
func (rt *Runtime) Close(ctx context.Context) error {
	if rt == nil {
		return nil
	}
	var errs []error
	if rt.Caches != nil {
		errs = append(errs, rt.Caches.Close())
	}
	errs = append(errs, rt.Secrets.Close())
	if rt.Observer != nil {
		errs = append(errs, rt.Observer.Shutdown(ctx))
	}
	return errors.Join(errs...)
}

func (rt *Runtime) newGuard(gc GuardConfig) invalidate.Guard {
	var opts []resilience.ExecutorOption
	if gc.Breaker.Failures > 0 {
		logger := rt.Logger.With(observe.Field{Key: "component", Value: "breaker"})
		rt.Breaker = resilience.NewCircuitBreaker(resilience.CircuitBreakerConfig{
			Name:         "cache-invalidation",
			MaxFailures:  gc.Breaker.Failures,
			ResetTimeout: gc.Breaker.OpenTimeout,
			OnStateChange: func(name string, from, to resilience.State) {
				logger.Warn(context.Background(), "circuit state changed",
					observe.Field{Key: "breaker", Value: name},
					observe.Field{Key: "from", Value: from.String()},
					observe.Field{Key: "to", Value: to.String()},
				)
			},
		})
		opts = append(opts, resilience.WithCircuitBreaker(rt.Breaker))
	}
	if gc.Retry.MaxAttempts > 1 {
		opts = append(opts, resilience.WithRetry(resilience.NewRetry(resilience.RetryConfig{
			MaxAttempts:  gc.Retry.MaxAttempts,
			InitialDelay: gc.Retry.InitialDelay,
			MaxDelay:     gc.Retry.MaxDelay,
			Jitter:       true,
		})))
	}
	if gc.Timeout > 0 {
		opts = append(opts, resilience.WithTimeout(gc.Timeout))
	}
	if len(opts) == 0 {
		return nil
	}
	return resilience.NewExecutor(opts...)
}

func newAdmin(ctx context.Context, ac AdminConfig, rt *Runtime, mw *observe.Middleware) (http.Handler, error) {
	var authn auth.Composite

	if len(ac.APIKeys) > 0 {
		store := auth.NewMemoryAPIKeyStore()
		for _, k := range ac.APIKeys {
			key, err := rt.Secrets.ResolveValue(ctx, k.Key)
			if err != nil {
				return nil, fmt.Errorf("config: admin.api_keys.%s: %w", k.ID, err)
			}
			if err := store.Add(auth.APIKey{ID: k.ID, Hash: auth.HashAPIKey(key), Roles: k.Roles}); err != nil {
				return nil, fmt.Errorf("config: admin.api_keys: %w", err)
			}
		}
		authn = append(authn, auth.NewAPIKeyAuthenticator("", store))
	}

	if ac.JWT.Secret != "" {
		jwtSecret, err := rt.Secrets.ResolveValue(ctx, ac.JWT.Secret)
		if err != nil {
			return nil, fmt.Errorf("config: admin.jwt.secret: %w", err)
		}
		authn = append(authn, auth.NewJWTAuthenticator(auth.JWTConfig{
			Secret:     []byte(jwtSecret),
			Issuer:     ac.JWT.Issuer,
			Audience:   ac.JWT.Audience,
			RolesClaim: ac.JWT.RolesClaim,
		}))
	}

	var authz auth.Authorizer = auth.AllowAll{}
	if len(ac.Roles) > 0 {
		roles := make(map[string][]auth.Permission, len(ac.Roles))
		for role, perms := range ac.Roles {
			for _, p := range perms {
				perm, err := auth.ParsePermission(p)
				if err != nil {
					return nil, fmt.Errorf("config: admin.roles.%s: %w", role, err)
				}
				roles[role] = append(roles[role], perm)
			}
		}
		authz = auth.NewRBACAuthorizer(roles)
	}

	return admin.NewRouter(admin.Config{
		Caches:          rt.Caches,
		Policies:        rt.Resolver,
		Authenticator:   authn,
		Authorizer:      authz,
		Instrumentation: mw,
		Logger:          rt.Logger,
		AllowedOrigins:  ac.AllowedOrigins,
	})
}

func newSecretResolver(sc SecretsConfig, extra []secret.Provider) (*secret.Resolver, error) {
	r := secret.NewResolver(sc.Strict, secret.EnvProvider{})
	for _, name := range sortedNames(sc.Providers) {
		p, err := secret.DefaultRegistry.Create(name, sc.Providers[name])
		if err != nil {
			_ = r.Close()
			return nil, fmt.Errorf("config: secrets.providers.%s: %w", name, err)
		}
		r.Register(p)
	}
	for _, p := range extra {
		r.Register(p)
	}
	return r, nil
}

func newCache(ctx context.Context, name string, cc CacheConfig, secrets *secret.Resolver, zl zerolog.Logger) (cache.Cache, error) {
	switch cc.Backend {
	case BackendMemory:
		return cache.NewMemoryCache(), nil
	case BackendLRU:
		return cache.NewLRUCache(cc.Size)
	case BackendRedis:
		addr, err := secrets.ResolveValue(ctx, cc.Addr)
		if err != nil {
			return nil, fmt.Errorf("config: caches.%s.addr: %w", name, err)
		}
		password, err := secrets.ResolveValue(ctx, cc.Password)
		if err != nil {
			return nil, fmt.Errorf("config: caches.%s.password: %w", name, err)
		}
		return cache.NewRedisCache(ctx, cache.RedisConfig{
			Addr:     addr,
			Password: password,
			DB:       cc.DB,
			Prefix:   cc.Prefix,
		}, zl.With().Str("cache", name).Logger())
	default:
		return nil, fmt.Errorf("%w: caches.%s: %q", ErrUnknownBackend, name, cc.Backend)
	}
}
