package core

import (
	"context"
	"fmt"
	"sync"
)

// CallBudget caps a number of backend calls. It covers whatever scope it is
// attached to: a driver's lifetime, or a single run via WithCallBudget.
type CallBudget struct {
	max  int
	used int
	mu   sync.Mutex
}

// NewCallBudget creates a budget of max calls. max <= 0 means unlimited.
func NewCallBudget(max int) *CallBudget {
	return &CallBudget{max: max}
}

// Acquire consumes one call, failing with ErrBudgetExhausted past the limit.
// A nil budget is unlimited.
func (b *CallBudget) Acquire() error {
	if b == nil {
		return nil
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.max > 0 && b.used >= b.max {
		return fmt.Errorf("%w: %d calls", ErrBudgetExhausted, b.max)
	}
	b.used++
	return nil
}

// Used returns the number of calls consumed.
func (b *CallBudget) Used() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.used
}

// Remaining returns calls left, or -1 when unlimited.
func (b *CallBudget) Remaining() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.max <= 0 {
		return -1
	}
	return b.max - b.used
}

type budgetKey struct{}

// WithCallBudget returns a context carrying b. Calls made under the returned
// context consume b in addition to any budget of the component.
func WithCallBudget(ctx context.Context, b *CallBudget) context.Context {
	return context.WithValue(ctx, budgetKey{}, b)
}

// CallBudgetFrom returns the budget attached to ctx, or nil.
func CallBudgetFrom(ctx context.Context) *CallBudget {
	b, _ := ctx.Value(budgetKey{}).(*CallBudget)
	return b
}
