package invalidate

import (
	"fmt"
	"sort"
	"sync/atomic"
)

// Resolver finds the invalidation policy for an operation.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Lookup: exact match on Identity; no partial matching or inheritance.
// - Errors: absence is reported by ok=false, never as an error.
// - Validity: Intercept rejects a resolved policy that fails Validate
//   without running the operation.
type Resolver interface {
	Resolve(id Identity) (Policy, bool)
}

// Registry is an immutable Identity to Policy map.
type Registry struct {
	policies map[Identity]Policy
}

// NewRegistry validates and copies policies. The caller may reuse the map.
func NewRegistry(policies map[Identity]Policy) (*Registry, error) {
	copied := make(map[Identity]Policy, len(policies))
	for id, p := range policies {
		if id.Operation == "" {
			return nil, fmt.Errorf("%w: empty operation name", ErrInvalidPolicy)
		}
		if err := p.Validate(); err != nil {
			return nil, fmt.Errorf("policy for %s: %w", id, err)
		}
		copied[id] = p
	}
	return &Registry{policies: copied}, nil
}

// Resolve returns the policy registered for id.
func (r *Registry) Resolve(id Identity) (Policy, bool) {
	if r == nil {
		return Policy{}, false
	}
	p, ok := r.policies[id]
	return p, ok
}

// Len reports the number of policies.
func (r *Registry) Len() int {
	if r == nil {
		return 0
	}
	return len(r.policies)
}

// Identities returns the registered identities sorted by String().
func (r *Registry) Identities() []Identity {
	if r == nil {
		return nil
	}
	ids := make([]Identity, 0, len(r.policies))
	for id := range r.policies {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i].String() < ids[j].String() })
	return ids
}

// SwappableResolver resolves against a registry that can be replaced as a
// whole. Each Resolve sees exactly one registry.
type SwappableResolver struct {
	current atomic.Pointer[Registry]
}

// NewSwappableResolver starts with reg, which may be nil.
func NewSwappableResolver(reg *Registry) *SwappableResolver {
	s := &SwappableResolver{}
	s.current.Store(reg)
	return s
}

// Store replaces the registry.
func (s *SwappableResolver) Store(reg *Registry) {
	s.current.Store(reg)
}

// Load returns the current registry.
func (s *SwappableResolver) Load() *Registry {
	return s.current.Load()
}

// Resolve looks id up in the current registry.
func (s *SwappableResolver) Resolve(id Identity) (Policy, bool) {
	return s.current.Load().Resolve(id)
}

var (
	_ Resolver = (*Registry)(nil)
	_ Resolver = (*SwappableResolver)(nil)
)
