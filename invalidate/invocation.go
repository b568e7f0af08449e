package invalidate

import (
	"context"
	"sync"
)

// Identity names an intercepted operation: its declaring scope and its name.
// It is comparable and used as the policy lookup key.
type Identity struct {
	Scope     string
	Operation string
}

// String renders scope.operation, or the operation alone when scope is empty.
func (id Identity) String() string {
	if id.Scope == "" {
		return id.Operation
	}
	return id.Scope + "." + id.Operation
}

// ProceedFunc continues an intercepted call.
type ProceedFunc func(ctx context.Context) (any, error)

// OperationFunc is an operation taking named arguments.
type OperationFunc func(ctx context.Context, args map[string]any) (any, error)

// Invocation is one call of an operation: its identity, its arguments, and a
// continuation that runs the original operation. It must not be copied.
type Invocation struct {
	Identity Identity
	Args     map[string]any

	proceed ProceedFunc
	once    sync.Once
	result  any
	err     error
}

// NewInvocation creates an invocation. A nil proceed yields (nil, nil).
func NewInvocation(id Identity, args map[string]any, proceed ProceedFunc) *Invocation {
	return &Invocation{Identity: id, Args: args, proceed: proceed}
}

// Proceed runs the original operation and returns its result unchanged.
// The operation runs at most once; later calls return the first outcome.
func (inv *Invocation) Proceed(ctx context.Context) (any, error) {
	inv.once.Do(func() {
		if inv.proceed != nil {
			inv.result, inv.err = inv.proceed(ctx)
		}
	})
	return inv.result, inv.err
}

// Arg returns the named argument.
func (inv *Invocation) Arg(name string) (any, bool) {
	v, ok := inv.Args[name]
	return v, ok
}
