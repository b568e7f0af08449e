package admin

import "errors"

// Sentinel errors for the admin router.
var (
	ErrNoAuthenticator = errors.New("admin: authenticator is required")
	ErrNoCaches        = errors.New("admin: cache registry is required")
)
