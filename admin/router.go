package admin

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/google/uuid"

	"github.com/jonwraymond/flushops/auth"
	"github.com/jonwraymond/flushops/cache"
	"github.com/jonwraymond/flushops/invalidate"
	"github.com/jonwraymond/flushops/observe"
)

// Scope is the invalidation scope recorded for admin flushes.
const Scope = "admin"

// PolicySource returns the active policy registry.
// *invalidate.SwappableResolver implements it.
type PolicySource interface {
	Load() *invalidate.Registry
}

// Config wires the router.
type Config struct {
	Caches   *cache.Registry
	Policies PolicySource

	// Authenticator is required.
	Authenticator auth.Authenticator

	// Authorizer defaults to auth.AllowAll.
	Authorizer auth.Authorizer

	// Instrumentation defaults to a no-op middleware.
	Instrumentation *observe.Middleware

	// Logger defaults to a no-op logger.
	Logger observe.Logger

	// AllowedOrigins enables CORS for browser consoles. Empty disables it.
	AllowedOrigins []string
}

// PolicyResponse describes one active policy.
type PolicyResponse struct {
	Scope     string `json:"scope,omitempty"`
	Operation string `json:"operation"`
	Cache     string `json:"cache"`
	RemoveAll bool   `json:"remove_all"`
}

// FlushResponse reports a completed flush.
type FlushResponse struct {
	FlushID string `json:"flush_id"`
	Cache   string `json:"cache"`
	Action  string `json:"action"`
	Key     string `json:"key,omitempty"`
}

type router struct {
	caches   *cache.Registry
	policies PolicySource
	mw       *observe.Middleware
	logger   observe.Logger
}

// NewRouter builds the admin handler.
func NewRouter(cfg Config) (http.Handler, error) {
	if cfg.Authenticator == nil {
		return nil, ErrNoAuthenticator
	}
	if cfg.Caches == nil {
		return nil, ErrNoCaches
	}
	if cfg.Authorizer == nil {
		cfg.Authorizer = auth.AllowAll{}
	}
	if cfg.Instrumentation == nil {
		cfg.Instrumentation = observe.NewNoopMiddleware()
	}
	if cfg.Logger == nil {
		cfg.Logger = observe.NopLogger()
	}

	h := &router{
		caches:   cfg.Caches,
		policies: cfg.Policies,
		mw:       cfg.Instrumentation,
		logger:   cfg.Logger.With(observe.Field{Key: "component", Value: "admin"}),
	}

	static := func(resource string) func(*http.Request) string {
		return func(*http.Request) string { return resource }
	}
	cacheResource := func(r *http.Request) string { return "cache:" + chi.URLParam(r, "name") }
	require := func(action string, resource func(*http.Request) string) func(http.Handler) http.Handler {
		return auth.Require(cfg.Authorizer, action, resource)
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	if len(cfg.AllowedOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: cfg.AllowedOrigins,
			AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
			AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", auth.DefaultAPIKeyHeader},
			MaxAge:         300,
		}))
	}
	r.Use(auth.Middleware(cfg.Authenticator, h.logger))

	r.With(require(auth.ActionRead, static("caches"))).Get("/caches", h.listCaches)
	r.With(require(auth.ActionClear, cacheResource)).Post("/caches/{name}/clear", h.clearCache)
	r.With(require(auth.ActionRemove, cacheResource)).Delete("/caches/{name}/keys/{key}", h.removeKey)
	r.With(require(auth.ActionRead, static("policies"))).Get("/policies", h.listPolicies)
	return r, nil
}

func (h *router) listCaches(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string][]string{"caches": h.caches.Names()})
}

func (h *router) listPolicies(w http.ResponseWriter, _ *http.Request) {
	out := []PolicyResponse{}
	if h.policies != nil {
		reg := h.policies.Load()
		for _, id := range reg.Identities() {
			p, _ := reg.Resolve(id)
			out = append(out, PolicyResponse{
				Scope:     id.Scope,
				Operation: id.Operation,
				Cache:     p.CacheName,
				RemoveAll: p.RemoveAll,
			})
		}
	}
	writeJSON(w, http.StatusOK, map[string][]PolicyResponse{"policies": out})
}

func (h *router) clearCache(w http.ResponseWriter, r *http.Request) {
	h.flush(w, r, observe.ActionClear, "")
}

func (h *router) removeKey(w http.ResponseWriter, r *http.Request) {
	key, err := url.PathUnescape(chi.URLParam(r, "key"))
	if err == nil {
		err = cache.ValidateKey(key)
	}
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(err))
		return
	}
	h.flush(w, r, observe.ActionRemove, key)
}

func (h *router) flush(w http.ResponseWriter, r *http.Request, action, key string) {
	ctx := r.Context()
	name := chi.URLParam(r, "name")

	c, err := h.caches.Lookup(name)
	if err != nil {
		writeJSON(w, http.StatusNotFound, errorBody(err))
		return
	}

	resp := FlushResponse{FlushID: uuid.NewString(), Cache: name, Action: action, Key: key}
	meta := observe.InvalidationMeta{Scope: Scope, Operation: action, Cache: name, Action: action}
	err = h.mw.Wrap(ctx, meta, func(ctx context.Context) error {
		if action == observe.ActionClear {
			return c.Clear(ctx)
		}
		return c.Delete(ctx, key)
	})

	fields := []observe.Field{
		{Key: "flush_id", Value: resp.FlushID},
		{Key: "request_id", Value: middleware.GetReqID(ctx)},
		{Key: "cache", Value: name},
		{Key: "action", Value: action},
		{Key: "principal", Value: principal(r)},
	}
	if err != nil {
		h.logger.Error(ctx, "admin flush failed", append(fields, observe.Field{Key: "error", Value: err})...)
		writeJSON(w, http.StatusBadGateway, errorBody(err))
		return
	}
	h.logger.Info(ctx, "admin flush", fields...)
	writeJSON(w, http.StatusOK, resp)
}

func principal(r *http.Request) string {
	if id := auth.IdentityFromContext(r.Context()); id != nil {
		return id.Principal
	}
	return ""
}

func errorBody(err error) map[string]string {
	return map[string]string{"error": err.Error()}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
