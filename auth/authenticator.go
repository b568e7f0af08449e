package auth

import (
	"context"
	"net/http"
)

// Authenticator validates credentials and returns an identity.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Context: methods should honor cancellation/deadlines.
// - Errors: Authenticate returns (nil, error) for internal errors and
// (*Result, nil) for auth failures (check result.Authenticated).
type Authenticator interface {
	// Name returns a unique identifier for this authenticator.
	Name() string

	// Supports returns true if the request carries credentials this
	// authenticator understands.
	Supports(headers http.Header) bool

	// Authenticate validates credentials and returns a result.
	Authenticate(ctx context.Context, headers http.Header) (*Result, error)
}

// Result is the result of an authentication attempt.
type Result struct {
	// Authenticated is true if authentication succeeded.
	Authenticated bool

	// Identity is set when Authenticated is true.
	Identity *Identity

	// Err is set when Authenticated is false.
	Err error
}

// Success creates a successful authentication result.
func Success(identity *Identity) *Result {
	return &Result{Authenticated: true, Identity: identity}
}

// Failure creates a failed authentication result.
func Failure(err error) *Result {
	return &Result{Err: err}
}

// Composite tries authenticators in order and returns the first success.
type Composite []Authenticator

// Name returns "composite".
func (c Composite) Name() string { return "composite" }

// Supports returns true if any authenticator supports the request.
func (c Composite) Supports(headers http.Header) bool {
	for _, a := range c {
		if a.Supports(headers) {
			return true
		}
	}
	return false
}

// Authenticate returns the first successful result, or the last failure.
func (c Composite) Authenticate(ctx context.Context, headers http.Header) (*Result, error) {
	last := Failure(ErrMissingCredentials)
	for _, a := range c {
		if !a.Supports(headers) {
			continue
		}
		result, err := a.Authenticate(ctx, headers)
		if err != nil {
			return nil, err
		}
		if result.Authenticated {
			return result, nil
		}
		last = result
	}
	return last, nil
}

var _ Authenticator = Composite(nil)
