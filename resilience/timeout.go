package resilience

import (
	"context"
	"fmt"
	"time"
)

// DefaultTimeout bounds one attempt when TimeoutConfig leaves it unset.
const DefaultTimeout = 30 * time.Second

// TimeoutConfig configures a Timeout.
type TimeoutConfig struct {
	// Timeout is the longest one attempt may take.
	// Default: DefaultTimeout
	Timeout time.Duration
}

// Timeout bounds each backend call. A backend client that ignores its
// context is abandoned at the deadline rather than waited for.
type Timeout struct {
	d time.Duration
}

func NewTimeout(config TimeoutConfig) *Timeout {
	d := config.Timeout
	if d <= 0 {
		d = DefaultTimeout
	}
	return &Timeout{d: d}
}

// Duration returns the per-attempt limit.
func (t *Timeout) Duration() time.Duration { return t.d }

// Execute runs op under the deadline. Missing the deadline yields an error
// matching ErrTimeout; cancellation of ctx itself is returned as ctx.Err().
func (t *Timeout) Execute(ctx context.Context, op func(context.Context) error) error {
	tctx, cancel := context.WithTimeout(ctx, t.d)
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- op(tctx) }()

	var err error
	select {
	case err = <-done:
	case <-tctx.Done():
		err = tctx.Err()
	}

	switch {
	case err == nil:
		return nil
	case ctx.Err() != nil:
		return ctx.Err()
	case tctx.Err() != nil:
		return fmt.Errorf("%w after %s", ErrTimeout, t.d)
	}
	return err
}
