package cache

import (
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
)

// Registry maps cache names to instances so that invalidation policies can
// refer to a cache by name.
type Registry struct {
	mu     sync.RWMutex
	caches map[string]Cache
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{caches: make(map[string]Cache)}
}

// Register adds c under name. Names are unique.
func (r *Registry) Register(name string, c Cache) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return errors.New("cache: name is required")
	}
	if c == nil {
		return fmt.Errorf("%w: %q", ErrNilCache, name)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.caches[name]; exists {
		return fmt.Errorf("%w: %q", ErrDuplicateName, name)
	}
	r.caches[name] = c
	return nil
}

// Lookup returns the cache registered under name.
func (r *Registry) Lookup(name string) (Cache, error) {
	r.mu.RLock()
	c, ok := r.caches[strings.TrimSpace(name)]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrCacheNotFound, name)
	}
	return c, nil
}

// Names returns the registered names in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return sortedKeys(r.caches)
}

// Close closes every registered cache that holds resources and returns the
// joined errors.
func (r *Registry) Close() error {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var errs []error
	for _, name := range sortedKeys(r.caches) {
		if closer, ok := r.caches[name].(io.Closer); ok {
			if err := closer.Close(); err != nil {
				errs = append(errs, fmt.Errorf("close %s: %w", name, err))
			}
		}
	}
	return errors.Join(errs...)
}

func sortedKeys(m map[string]Cache) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
