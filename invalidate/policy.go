package invalidate

import (
	"fmt"

	"github.com/jonwraymond/flushops/cache"
)

// Policy says which cache an operation invalidates and how.
//
// Exactly one of RemoveAll or KeyGenerator must be set.
type Policy struct {
	// CacheName identifies Target in logs, spans, and errors.
	CacheName string

	// Target receives the Delete or Clear.
	Target cache.Invalidator

	// RemoveAll clears the whole cache instead of one key.
	RemoveAll bool

	// KeyGenerator derives the key to remove.
	KeyGenerator KeyGenerator
}

// RemoveAllPolicy returns a policy that clears c.
func RemoveAllPolicy(name string, c cache.Invalidator) Policy {
	return Policy{CacheName: name, Target: c, RemoveAll: true}
}

// KeyedPolicy returns a policy that removes the key gen derives from c.
func KeyedPolicy(name string, c cache.Invalidator, gen KeyGenerator) Policy {
	return Policy{CacheName: name, Target: c, KeyGenerator: gen}
}

// Validate checks the policy invariants.
func (p Policy) Validate() error {
	if p.Target == nil {
		return fmt.Errorf("%w: cache %q", ErrNilCache, p.CacheName)
	}
	switch {
	case p.RemoveAll && p.KeyGenerator != nil:
		return fmt.Errorf("%w: cache %q: remove-all policy must not have a key generator", ErrInvalidPolicy, p.CacheName)
	case !p.RemoveAll && p.KeyGenerator == nil:
		return fmt.Errorf("%w: cache %q: keyed policy requires a key generator", ErrInvalidPolicy, p.CacheName)
	}
	return nil
}
