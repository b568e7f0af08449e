package auth

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/jonwraymond/flushops/observe"
)

// Middleware authenticates every request with authn and attaches the
// identity to the request context. Requests without valid credentials get
// 401.
func Middleware(authn Authenticator, logger observe.Logger) func(http.Handler) http.Handler {
	if logger == nil {
		logger = observe.NopLogger()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			if !authn.Supports(r.Header) {
				writeError(w, http.StatusUnauthorized, ErrMissingCredentials)
				return
			}
			result, err := authn.Authenticate(ctx, r.Header)
			if err != nil {
				logger.Error(ctx, "authentication error", observe.Field{Key: "error", Value: err})
				writeError(w, http.StatusInternalServerError, errors.New("auth: internal error"))
				return
			}
			if !result.Authenticated {
				logger.Warn(ctx, "authentication failed",
					observe.Field{Key: "authenticator", Value: authn.Name()},
					observe.Field{Key: "error", Value: result.Err},
				)
				writeError(w, http.StatusUnauthorized, result.Err)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithIdentity(ctx, result.Identity)))
		})
	}
}

// Require rejects requests whose identity may not perform action on the
// resource named by resource(r). It must run inside Middleware.
func Require(authz Authorizer, action string, resource func(*http.Request) string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			req := &AuthzRequest{
				Subject:  IdentityFromContext(r.Context()),
				Resource: resource(r),
				Action:   action,
			}
			if err := authz.Authorize(r.Context(), req); err != nil {
				writeError(w, http.StatusForbidden, err)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func writeError(w http.ResponseWriter, status int, err error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
}
