package config

import "errors"

// Sentinel errors for configuration.
var (
	ErrInvalidConfig   = errors.New("config: invalid configuration")
	ErrUnknownBackend  = errors.New("config: unknown cache backend")
	ErrUnknownCache    = errors.New("config: policy references unknown cache")
	ErrDuplicatePolicy = errors.New("config: duplicate policy for operation")
	ErrUnknownKeyKind  = errors.New("config: unknown key kind")
	ErrPrefixOverlap   = errors.New("config: redis key prefixes overlap")
	ErrNilRuntime      = errors.New("config: runtime is nil")
)
