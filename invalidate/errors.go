package invalidate

import (
	"errors"
	"fmt"
)

// Sentinel errors for invalidation.
var (
	// ErrKeyGeneration is matched by every *KeyGenerationError.
	ErrKeyGeneration = errors.New("invalidate: key generation failed")

	// ErrInvalidation is matched by every *InvalidationError.
	ErrInvalidation = errors.New("invalidate: cache invalidation failed")

	// ErrInvalidPolicy indicates a policy that is neither remove-all nor keyed, or both.
	ErrInvalidPolicy = errors.New("invalidate: invalid policy")

	// ErrNilCache indicates a policy without a target cache.
	ErrNilCache = errors.New("invalidate: policy target cache is nil")

	// ErrMissingArgument indicates a key generator referenced an argument
	// the invocation does not carry.
	ErrMissingArgument = errors.New("invalidate: missing argument")

	// ErrUnsupportedArgument indicates an argument value with no stable text
	// form, such as a map, a slice, or a nil pointer.
	ErrUnsupportedArgument = errors.New("invalidate: argument cannot form a key")

	// ErrNilResolver indicates NewInterceptor was given a nil resolver.
	ErrNilResolver = errors.New("invalidate: resolver is nil")
)

// KeyGenerationError reports that no key could be derived for an invocation.
// The operation was not run when this error is returned from Intercept.
type KeyGenerationError struct {
	Identity Identity
	Err      error
}

func (e *KeyGenerationError) Error() string {
	return fmt.Sprintf("invalidate: key generation for %s: %v", e.Identity, e.Err)
}

func (e *KeyGenerationError) Unwrap() error { return e.Err }

// Is reports whether target is ErrKeyGeneration.
func (e *KeyGenerationError) Is(target error) bool { return target == ErrKeyGeneration }

// InvalidationError reports a failed Delete or Clear against a cache.
type InvalidationError struct {
	Cache string
	Key   string // empty when All is set
	All   bool
	Err   error
}

func (e *InvalidationError) Error() string {
	if e.All {
		return fmt.Sprintf("invalidate: clear cache %q: %v", e.Cache, e.Err)
	}
	return fmt.Sprintf("invalidate: remove %q from cache %q: %v", e.Key, e.Cache, e.Err)
}

func (e *InvalidationError) Unwrap() error { return e.Err }

// Is reports whether target is ErrInvalidation.
func (e *InvalidationError) Is(target error) bool { return target == ErrInvalidation }
