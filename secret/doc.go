// Package secret produces final configuration values for cache backends
// and the admin surface.
//
// A value is first passed through ExpandEnvStrict, then any
// "secretref:<provider>:<ref>" in it is replaced by the named Provider's
// answer:
//
//	password: secretref:env:REDIS_PASSWORD
//	addr: ${REDIS_HOST}:6379
//	dsn: user=cache secretref:file:redis/password
//
// The "env" and "file" providers are built in and registered in
// DefaultRegistry. Resolved values must never be logged.
package secret
