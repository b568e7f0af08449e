package auth

import "errors"

// Authentication failures. Handlers answer these with 401.
var (
	ErrMissingCredentials = errors.New("auth: missing credentials")
	ErrInvalidCredentials = errors.New("auth: invalid credentials")
	ErrTokenExpired       = errors.New("auth: credentials expired")
	ErrTokenMalformed     = errors.New("auth: token malformed")
)

// ErrForbidden is matched by every *AuthzError.
var ErrForbidden = errors.New("auth: access denied")

// API key registration errors.
var (
	ErrInvalidAPIKey   = errors.New("auth: invalid api key registration")
	ErrDuplicateAPIKey = errors.New("auth: api key already registered")
)
