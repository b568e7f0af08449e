package secret

import (
	"fmt"
	"sort"
	"strings"
	"sync"
)

// ProviderFactory builds a Provider from its secrets.providers.<name>
// configuration block. cfg may be nil.
type ProviderFactory func(cfg map[string]any) (Provider, error)

// Registry maps provider names, as used in "secretref:<provider>:...", to
// factories.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]ProviderFactory
}

func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]ProviderFactory)}
}

// Register adds factory under name. Names are unique.
func (r *Registry) Register(name string, factory ProviderFactory) error {
	name = strings.TrimSpace(name)
	if name == "" || factory == nil {
		return ErrInvalidRegistration
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, dup := r.factories[name]; dup {
		return fmt.Errorf("%w: %q", ErrDuplicateProvider, name)
	}
	r.factories[name] = factory
	return nil
}

// Create builds the provider registered under name. The provider must
// report the same name, since resolvers key providers by Name().
func (r *Registry) Create(name string, cfg map[string]any) (Provider, error) {
	name = strings.TrimSpace(name)

	r.mu.RLock()
	factory, ok := r.factories[name]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrProviderNotFound, name)
	}

	p, err := factory(cfg)
	if err != nil {
		return nil, fmt.Errorf("secret: create %s: %w", name, err)
	}
	if p == nil || p.Name() != name {
		if p != nil {
			_ = p.Close()
		}
		return nil, fmt.Errorf("%w: factory %q built a provider with another name", ErrInvalidRegistration, name)
	}
	return p, nil
}

// List returns the registered names in sorted order.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// DefaultRegistry is the global registry for secret providers. It starts
// with the "env" and "file" providers.
var DefaultRegistry = newDefaultRegistry()

func newDefaultRegistry() *Registry {
	r := NewRegistry()
	_ = r.Register("env", func(map[string]any) (Provider, error) {
		return EnvProvider{}, nil
	})
	_ = r.Register("file", newFileProvider)
	return r
}

func newFileProvider(cfg map[string]any) (Provider, error) {
	p := &FileProvider{}
	if raw, ok := cfg["dir"]; ok {
		dir, ok := raw.(string)
		if !ok {
			return nil, fmt.Errorf("%w: file.dir must be a string", ErrInvalidProviderParam)
		}
		p.Dir = dir
	}
	return p, nil
}
