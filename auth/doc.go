// Package auth authenticates and authorizes callers of the cache admin
// endpoints.
//
// Authenticators turn request headers into an Identity (API keys, HMAC
// signed JWTs, or the first of several). Authorizers decide whether that
// identity may perform an action such as "clear" on a resource such as
// "cache:orders". Middleware and Require adapt both to net/http.
package auth
