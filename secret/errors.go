package secret

import "errors"

// Sentinel errors for secret resolution.
var (
	ErrMissingEnv           = errors.New("secret: missing required environment variables")
	ErrProviderNotFound     = errors.New("secret: provider not registered")
	ErrDuplicateProvider    = errors.New("secret: provider already registered")
	ErrInvalidRegistration  = errors.New("secret: invalid provider registration")
	ErrEmptyValue           = errors.New("secret: provider returned empty value")
	ErrInvalidRef           = errors.New("secret: invalid reference")
	ErrSecretNotFound       = errors.New("secret: not found")
	ErrInvalidProviderParam = errors.New("secret: invalid provider parameter")
)
