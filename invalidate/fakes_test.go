package invalidate

import (
	"context"
	"sync"
)

// callLog records cache calls and proceeds in order.
type callLog struct {
	mu     sync.Mutex
	events []string
}

func (l *callLog) add(e string) {
	l.mu.Lock()
	l.events = append(l.events, e)
	l.mu.Unlock()
}

func (l *callLog) snapshot() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.events...)
}

// recordingCache is a cache.Invalidator that records calls into a callLog.
type recordingCache struct {
	log       *callLog
	deleteErr error
	clearErr  error
}

func (c *recordingCache) Delete(_ context.Context, key string) error {
	c.log.add("remove:" + key)
	return c.deleteErr
}

func (c *recordingCache) Clear(context.Context) error {
	c.log.add("removeAll")
	return c.clearErr
}

func proceedReturning(log *callLog, v any, err error) ProceedFunc {
	return func(context.Context) (any, error) {
		log.add("proceed")
		return v, err
	}
}

type countingGuard struct {
	mu    sync.Mutex
	calls int
}

func (g *countingGuard) Execute(ctx context.Context, op func(context.Context) error) error {
	g.mu.Lock()
	g.calls++
	g.mu.Unlock()
	return op(ctx)
}

func mustRegistry(t interface{ Fatalf(string, ...any) }, policies map[Identity]Policy) *Registry {
	reg, err := NewRegistry(policies)
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}
	return reg
}

func mustInterceptor(t interface{ Fatalf(string, ...any) }, r Resolver, opts ...Option) *Interceptor {
	i, err := NewInterceptor(r, opts...)
	if err != nil {
		t.Fatalf("NewInterceptor: %v", err)
	}
	return i
}

// fixedResolver returns one policy for every identity, unvalidated.
type fixedResolver struct{ policy Policy }

func (r fixedResolver) Resolve(Identity) (Policy, bool) { return r.policy, true }
