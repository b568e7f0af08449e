package invalidate

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"sync"
	"testing"
	"time"

	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/jonwraymond/flushops/cache"
	"github.com/jonwraymond/flushops/observe"
)

var (
	idI1 = Identity{Scope: "Svc", Operation: "I1"}
	idI2 = Identity{Scope: "Svc", Operation: "I2"}
	idI3 = Identity{Scope: "Svc", Operation: "I3"}
)

func assertEvents(t *testing.T, log *callLog, want ...string) {
	t.Helper()
	got := log.snapshot()
	if len(want) == 0 {
		want = nil
	}
	if len(got) == 0 {
		got = nil
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("events = %v, want %v", got, want)
	}
}

func TestIntercept_NoPolicyPassesThrough(t *testing.T) {
	log := &callLog{}
	c := &recordingCache{log: log}
	reg := mustRegistry(t, map[Identity]Policy{
		idI2: RemoveAllPolicy("C", c),
	})
	ic := mustInterceptor(t, reg)

	got, err := ic.Intercept(context.Background(),
		NewInvocation(idI1, map[string]any{"x": 5}, proceedReturning(log, 42, nil)))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != 42 {
		t.Errorf("result = %v, want 42", got)
	}
	assertEvents(t, log, "proceed")
}

func TestIntercept_NoPolicyReturnsOperationErrorUnchanged(t *testing.T) {
	log := &callLog{}
	ic := mustInterceptor(t, mustRegistry(t, nil))
	want := errors.New("operation failed")

	_, err := ic.Intercept(context.Background(), NewInvocation(idI1, nil, proceedReturning(log, nil, want)))
	if err != want {
		t.Fatalf("error = %v, want %v", err, want)
	}
}

func TestIntercept_RemoveAllBeforeProceed(t *testing.T) {
	log := &callLog{}
	c := &recordingCache{log: log}
	ic := mustInterceptor(t, mustRegistry(t, map[Identity]Policy{idI2: RemoveAllPolicy("C", c)}))

	got, err := ic.Intercept(context.Background(), NewInvocation(idI2, nil, proceedReturning(log, "done", nil)))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "done" {
		t.Errorf("result = %v, want done", got)
	}
	assertEvents(t, log, "removeAll", "proceed")
}

func TestIntercept_KeyedRemoveBeforeProceed(t *testing.T) {
	log := &callLog{}
	c := &recordingCache{log: log}
	gen := KeyGeneratorFunc(func(inv *Invocation) (string, error) {
		return fmt.Sprintf("%s:%v", inv.Identity.Operation, inv.Args["id"]), nil
	})
	ic := mustInterceptor(t, mustRegistry(t, map[Identity]Policy{idI3: KeyedPolicy("C", c, gen)}))

	got, err := ic.Intercept(context.Background(),
		NewInvocation(idI3, map[string]any{"id": 7}, proceedReturning(log, "updated", nil)))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "updated" {
		t.Errorf("result = %v", got)
	}
	assertEvents(t, log, "remove:I3:7", "proceed")
}

func TestIntercept_KeyGenerationFailureAborts(t *testing.T) {
	log := &callLog{}
	c := &recordingCache{log: log}
	cause := errors.New("no id")
	gen := KeyGeneratorFunc(func(*Invocation) (string, error) { return "", cause })
	ic := mustInterceptor(t, mustRegistry(t, map[Identity]Policy{idI3: KeyedPolicy("C", c, gen)}))

	got, err := ic.Intercept(context.Background(),
		NewInvocation(idI3, map[string]any{"id": 7}, proceedReturning(log, "updated", nil)))
	if got != nil {
		t.Errorf("result = %v, want nil", got)
	}
	if !errors.Is(err, ErrKeyGeneration) {
		t.Fatalf("error = %v, want ErrKeyGeneration", err)
	}
	if !errors.Is(err, cause) {
		t.Errorf("error should wrap the generator cause")
	}
	var kerr *KeyGenerationError
	if !errors.As(err, &kerr) || kerr.Identity != idI3 {
		t.Errorf("expected *KeyGenerationError for %v, got %#v", idI3, err)
	}
	assertEvents(t, log)
}

func TestIntercept_InvalidGeneratedKey(t *testing.T) {
	tests := []struct {
		name    string
		key     string
		wantErr error
	}{
		{"empty", "", cache.ErrInvalidKey},
		{"newline", "a\nb", cache.ErrInvalidKey},
		{"too long", string(make([]byte, cache.MaxKeyLength+1)), cache.ErrKeyTooLong},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			log := &callLog{}
			gen := KeyGeneratorFunc(func(*Invocation) (string, error) { return tt.key, nil })
			ic := mustInterceptor(t, mustRegistry(t, map[Identity]Policy{
				idI3: KeyedPolicy("C", &recordingCache{log: log}, gen),
			}))

			_, err := ic.Intercept(context.Background(), NewInvocation(idI3, nil, proceedReturning(log, nil, nil)))
			if !errors.Is(err, ErrKeyGeneration) || !errors.Is(err, tt.wantErr) {
				t.Fatalf("error = %v, want key generation error wrapping %v", err, tt.wantErr)
			}
			assertEvents(t, log)
		})
	}
}

func TestIntercept_ProceedOnKeyError(t *testing.T) {
	log := &callLog{}
	gen := KeyGeneratorFunc(func(*Invocation) (string, error) { return "", errors.New("no id") })
	ic := mustInterceptor(t,
		mustRegistry(t, map[Identity]Policy{idI3: KeyedPolicy("C", &recordingCache{log: log}, gen)}),
		WithFailurePolicy(FailurePolicy{OnKeyError: ProceedOnKeyError}),
	)

	got, err := ic.Intercept(context.Background(), NewInvocation(idI3, nil, proceedReturning(log, 1, nil)))
	if err != nil || got != 1 {
		t.Fatalf("got (%v, %v), want (1, nil)", got, err)
	}
	assertEvents(t, log, "proceed")
}

func TestIntercept_CacheErrorIgnoredByDefault(t *testing.T) {
	tests := []struct {
		name   string
		policy func(c *recordingCache) Policy
		want   []string
	}{
		{
			name:   "remove",
			policy: func(c *recordingCache) Policy { return KeyedPolicy("C", c, ArgsKeyGenerator{Args: []string{"id"}}) },
			want:   []string{"remove:I3:7", "proceed"},
		},
		{
			name:   "remove all",
			policy: func(c *recordingCache) Policy { return RemoveAllPolicy("C", c) },
			want:   []string{"removeAll", "proceed"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			log := &callLog{}
			backendErr := errors.New("connection refused")
			c := &recordingCache{log: log, deleteErr: backendErr, clearErr: backendErr}
			ic := mustInterceptor(t, mustRegistry(t, map[Identity]Policy{idI3: tt.policy(c)}))

			got, err := ic.Intercept(context.Background(),
				NewInvocation(idI3, map[string]any{"id": 7}, proceedReturning(log, "ok", nil)))
			if err != nil || got != "ok" {
				t.Fatalf("got (%v, %v), want (ok, nil)", got, err)
			}
			assertEvents(t, log, tt.want...)
		})
	}
}

func TestIntercept_CacheErrorDoesNotMaskOperationError(t *testing.T) {
	log := &callLog{}
	c := &recordingCache{log: log, clearErr: errors.New("cache down")}
	opErr := errors.New("operation failed")
	ic := mustInterceptor(t, mustRegistry(t, map[Identity]Policy{idI2: RemoveAllPolicy("C", c)}))

	_, err := ic.Intercept(context.Background(), NewInvocation(idI2, nil, proceedReturning(log, nil, opErr)))
	if err != opErr {
		t.Fatalf("error = %v, want the operation error unchanged", err)
	}
}

func TestIntercept_AbortOnCacheError(t *testing.T) {
	log := &callLog{}
	backendErr := errors.New("connection refused")
	c := &recordingCache{log: log, deleteErr: backendErr}
	ic := mustInterceptor(t,
		mustRegistry(t, map[Identity]Policy{idI3: KeyedPolicy("orders", c, ArgsKeyGenerator{Args: []string{"id"}})}),
		WithFailurePolicy(FailurePolicy{OnCacheError: AbortOnCacheError}),
	)

	_, err := ic.Intercept(context.Background(),
		NewInvocation(idI3, map[string]any{"id": 7}, proceedReturning(log, nil, nil)))
	if !errors.Is(err, ErrInvalidation) || !errors.Is(err, backendErr) {
		t.Fatalf("error = %v, want invalidation error wrapping backend error", err)
	}
	var ierr *InvalidationError
	if !errors.As(err, &ierr) {
		t.Fatalf("expected *InvalidationError, got %T", err)
	}
	if ierr.Cache != "orders" || ierr.Key != "I3:7" || ierr.All {
		t.Errorf("unexpected error fields: %+v", ierr)
	}
	assertEvents(t, log, "remove:I3:7")
}

func TestIntercept_ContextPassedThrough(t *testing.T) {
	type ctxKey struct{}
	ctx := context.WithValue(context.Background(), ctxKey{}, "v")
	log := &callLog{}
	ic := mustInterceptor(t, mustRegistry(t, map[Identity]Policy{idI2: RemoveAllPolicy("C", &recordingCache{log: log})}))

	_, err := ic.Intercept(ctx, NewInvocation(idI2, nil, func(got context.Context) (any, error) {
		if got.Value(ctxKey{}) != "v" {
			t.Error("operation did not receive the caller's context")
		}
		if _, ok := got.Deadline(); ok {
			t.Error("interceptor must not add a deadline")
		}
		return nil, nil
	}))
	if err != nil {
		t.Fatal(err)
	}
}

func TestIntercept_Guard(t *testing.T) {
	log := &callLog{}
	guard := &countingGuard{}
	ic := mustInterceptor(t,
		mustRegistry(t, map[Identity]Policy{
			idI2: RemoveAllPolicy("C", &recordingCache{log: log}),
			idI3: KeyedPolicy("C", &recordingCache{log: log}, ArgsKeyGenerator{Args: []string{"id"}}),
		}),
		WithGuard(guard),
	)

	ctx := context.Background()
	_, _ = ic.Intercept(ctx, NewInvocation(idI1, nil, proceedReturning(log, nil, nil)))
	_, _ = ic.Intercept(ctx, NewInvocation(idI2, nil, proceedReturning(log, nil, nil)))
	_, _ = ic.Intercept(ctx, NewInvocation(idI3, map[string]any{"id": 1}, proceedReturning(log, nil, nil)))

	if guard.calls != 2 {
		t.Errorf("guard calls = %d, want 2", guard.calls)
	}
}

func TestIntercept_Instrumentation(t *testing.T) {
	rec := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(rec))
	mw := observe.NewMiddleware(observe.NewTracer(tp.Tracer("test")), nil, nil)

	log := &callLog{}
	failing := KeyGeneratorFunc(func(*Invocation) (string, error) { return "", errors.New("x") })
	ic := mustInterceptor(t,
		mustRegistry(t, map[Identity]Policy{
			idI1: KeyedPolicy("C", &recordingCache{log: log}, failing),
			idI2: RemoveAllPolicy("C", &recordingCache{log: log}),
			idI3: KeyedPolicy("C", &recordingCache{log: log}, ArgsKeyGenerator{Args: []string{"id"}}),
		}),
		WithInstrumentation(mw),
	)

	ctx := context.Background()
	_, _ = ic.Intercept(ctx, NewInvocation(idI1, nil, proceedReturning(log, nil, nil)))
	_, _ = ic.Intercept(ctx, NewInvocation(idI2, nil, proceedReturning(log, nil, nil)))
	_, _ = ic.Intercept(ctx, NewInvocation(idI3, map[string]any{"id": 1}, proceedReturning(log, nil, nil)))

	var names []string
	for _, s := range rec.Ended() {
		names = append(names, s.Name())
	}
	want := []string{"cache.invalidate.clear", "cache.invalidate.remove"}
	if !reflect.DeepEqual(names, want) {
		t.Errorf("spans = %v, want %v", names, want)
	}
}

func TestIntercept_Idempotent(t *testing.T) {
	mc := cache.NewMemoryCache()
	ctx := context.Background()
	_ = mc.Set(ctx, "I3:7", []byte("stale"), time.Minute)
	_ = mc.Set(ctx, "I3:8", []byte("other"), time.Minute)

	ic := mustInterceptor(t, mustRegistry(t, map[Identity]Policy{
		idI3: KeyedPolicy("C", mc, ArgsKeyGenerator{Args: []string{"id"}}),
	}))

	for range 2 {
		if _, err := ic.Intercept(ctx, NewInvocation(idI3, map[string]any{"id": 7}, nil)); err != nil {
			t.Fatal(err)
		}
		if _, ok := mc.Get(ctx, "I3:7"); ok {
			t.Fatal("entry should be removed")
		}
		if _, ok := mc.Get(ctx, "I3:8"); !ok {
			t.Fatal("unrelated entry must survive")
		}
	}
}

func TestIntercept_Concurrent(t *testing.T) {
	mc := cache.NewMemoryCache()
	ctx := context.Background()
	ic := mustInterceptor(t, mustRegistry(t, map[Identity]Policy{
		idI2: RemoveAllPolicy("C", mc),
		idI3: KeyedPolicy("C", mc, ArgsKeyGenerator{Args: []string{"id"}}),
	}))

	var (
		wg    sync.WaitGroup
		mu    sync.Mutex
		calls int
	)
	proceed := func(context.Context) (any, error) {
		mu.Lock()
		calls++
		mu.Unlock()
		return nil, nil
	}

	for n := range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = mc.Set(ctx, fmt.Sprintf("I3:%d", n), []byte("v"), time.Minute)
			id := idI3
			if n%10 == 0 {
				id = idI2
			}
			if _, err := ic.Intercept(ctx, NewInvocation(id, map[string]any{"id": n}, proceed)); err != nil {
				t.Error(err)
			}
		}()
	}
	wg.Wait()

	if calls != 50 {
		t.Errorf("proceed calls = %d, want 50", calls)
	}
}

func TestIntercept_UnsupportedArgumentAborts(t *testing.T) {
	log := &callLog{}
	ic := mustInterceptor(t, mustRegistry(t, map[Identity]Policy{
		idI3: KeyedPolicy("C", &recordingCache{log: log}, ArgsKeyGenerator{Args: []string{"id"}}),
	}))

	_, err := ic.Intercept(context.Background(),
		NewInvocation(idI3, map[string]any{"id": &struct{ N int }{7}}, proceedReturning(log, nil, nil)))
	if !errors.Is(err, ErrKeyGeneration) || !errors.Is(err, ErrUnsupportedArgument) {
		t.Fatalf("error = %v, want key generation error wrapping ErrUnsupportedArgument", err)
	}
	assertEvents(t, log)
}

func TestIntercept_RejectsInvalidResolvedPolicy(t *testing.T) {
	tests := []struct {
		name    string
		policy  func(c *recordingCache) Policy
		wantErr error
	}{
		{"keyed without generator", func(c *recordingCache) Policy { return Policy{CacheName: "C", Target: c} }, ErrInvalidPolicy},
		{"remove-all with generator", func(c *recordingCache) Policy {
			return Policy{CacheName: "C", Target: c, RemoveAll: true, KeyGenerator: ArgsKeyGenerator{}}
		}, ErrInvalidPolicy},
		{"nil target", func(*recordingCache) Policy { return Policy{CacheName: "C", RemoveAll: true} }, ErrNilCache},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			log := &callLog{}
			ic := mustInterceptor(t, fixedResolver{policy: tt.policy(&recordingCache{log: log})})

			_, err := ic.Intercept(context.Background(),
				NewInvocation(idI3, map[string]any{"id": 7}, proceedReturning(log, nil, nil)))
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("error = %v, want %v", err, tt.wantErr)
			}
			assertEvents(t, log)
		})
	}
}

func TestInvocation_ProceedRunsOnce(t *testing.T) {
	calls := 0
	inv := NewInvocation(idI2, nil, func(context.Context) (any, error) {
		calls++
		return calls, nil
	})
	ic := mustInterceptor(t, mustRegistry(t, map[Identity]Policy{idI2: RemoveAllPolicy("C", cache.NewMemoryCache())}))

	got, err := ic.Intercept(context.Background(), inv)
	if err != nil || got != 1 {
		t.Fatalf("got (%v, %v), want (1, nil)", got, err)
	}
	got, err = inv.Proceed(context.Background())
	if err != nil || got != 1 {
		t.Fatalf("second Proceed got (%v, %v), want the first result (1, nil)", got, err)
	}
	if calls != 1 {
		t.Errorf("operation ran %d times, want 1", calls)
	}
}

func TestNewInterceptor_NilResolver(t *testing.T) {
	if _, err := NewInterceptor(nil); !errors.Is(err, ErrNilResolver) {
		t.Fatalf("expected ErrNilResolver, got %v", err)
	}
}

func TestWrap(t *testing.T) {
	log := &callLog{}
	ic := mustInterceptor(t, mustRegistry(t, map[Identity]Policy{
		idI3: KeyedPolicy("C", &recordingCache{log: log}, ArgsKeyGenerator{Args: []string{"id"}}),
	}))

	update := ic.Wrap(idI3, func(_ context.Context, args map[string]any) (any, error) {
		log.add("proceed")
		return args["id"], nil
	})

	got, err := update(context.Background(), map[string]any{"id": 7})
	if err != nil || got != 7 {
		t.Fatalf("got (%v, %v), want (7, nil)", got, err)
	}
	assertEvents(t, log, "remove:I3:7", "proceed")
}

func TestChain_OutermostFirst(t *testing.T) {
	var order []string
	tag := func(name string) Decorator {
		return func(id Identity, fn OperationFunc) OperationFunc {
			return func(ctx context.Context, args map[string]any) (any, error) {
				order = append(order, name+">")
				v, err := fn(ctx, args)
				order = append(order, "<"+name)
				return v, err
			}
		}
	}

	op := Chain(tag("a"), tag("b"))(idI1, func(context.Context, map[string]any) (any, error) {
		order = append(order, "op")
		return nil, nil
	})
	_, _ = op(context.Background(), nil)

	want := []string{"a>", "b>", "op", "<b", "<a"}
	if !reflect.DeepEqual(order, want) {
		t.Errorf("order = %v, want %v", order, want)
	}
}

func TestChain_WithInterceptor(t *testing.T) {
	log := &callLog{}
	ic := mustInterceptor(t, mustRegistry(t, map[Identity]Policy{idI2: RemoveAllPolicy("C", &recordingCache{log: log})}))
	audit := func(id Identity, fn OperationFunc) OperationFunc {
		return func(ctx context.Context, args map[string]any) (any, error) {
			log.add("audit:" + id.String())
			return fn(ctx, args)
		}
	}

	op := Chain(audit, ic.Decorator())(idI2, func(context.Context, map[string]any) (any, error) {
		log.add("proceed")
		return nil, nil
	})
	if _, err := op(context.Background(), nil); err != nil {
		t.Fatal(err)
	}
	assertEvents(t, log, "audit:Svc.I2", "removeAll", "proceed")
}
