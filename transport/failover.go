// Package transport implements the ordered-endpoint failover policy shared by
// every outbound registry, payout and classifier call.
package transport

import (
	"context"
	"fmt"
	"time"
)

// ExhaustedError reports that every candidate endpoint failed. It carries the
// last failure observed so callers can decide whether to retry or escalate.
type ExhaustedError struct {
	Attempts int
	Last     error
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("transport: all %d endpoints failed: %v", e.Attempts, e.Last)
}

func (e *ExhaustedError) Unwrap() error {
	return e.Last
}

// Failover tries an operation against an ordered list of candidate endpoints
// and returns the first success. Each attempt runs under its own timeout so a
// hung endpoint cannot consume the whole budget.
type Failover struct {
	endpoints []string
	timeout   time.Duration
}

// NewFailover builds a policy over the given endpoints, tried in order. A
// non-positive timeout disables the per-attempt deadline.
func NewFailover(endpoints []string, timeout time.Duration) *Failover {
	return &Failover{
		endpoints: append([]string(nil), endpoints...),
		timeout:   timeout,
	}
}

// Endpoints returns the configured candidates in try order.
func (f *Failover) Endpoints() []string {
	return append([]string(nil), f.endpoints...)
}

// Do invokes fn against each endpoint in order until one succeeds. When all
// candidates fail the aggregate *ExhaustedError wraps the last failure. A
// cancelled context stops the sweep immediately.
func (f *Failover) Do(ctx context.Context, fn func(ctx context.Context, endpoint string) error) error {
	if len(f.endpoints) == 0 {
		return &ExhaustedError{Attempts: 0, Last: fmt.Errorf("no endpoints configured")}
	}
	var last error
	for _, endpoint := range f.endpoints {
		if err := ctx.Err(); err != nil {
			return err
		}
		attemptCtx := ctx
		cancel := func() {}
		if f.timeout > 0 {
			attemptCtx, cancel = context.WithTimeout(ctx, f.timeout)
		}
		err := fn(attemptCtx, endpoint)
		cancel()
		if err == nil {
			return nil
		}
		last = err
	}
	return &ExhaustedError{Attempts: len(f.endpoints), Last: last}
}
