package transaction

import (
	"context"
	"sync"
)

// Manager runs fn inside a single storage transaction. Repositories called
// with the context passed to fn take part in that transaction.
type Manager interface {
	WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

type hooksKey struct{}

// Hooks collects callbacks that must only run once the outermost transaction commits.
type Hooks struct {
	mu  sync.Mutex
	fns []func()
}

// WithHooks attaches a fresh hook list to ctx. Managers call it when they open
// an outermost transaction and call Run after a successful commit.
func WithHooks(ctx context.Context) (context.Context, *Hooks) {
	h := &Hooks{}
	return context.WithValue(ctx, hooksKey{}, h), h
}

func (h *Hooks) Run() {
	h.mu.Lock()
	fns := h.fns
	h.fns = nil
	h.mu.Unlock()

	for _, fn := range fns {
		fn()
	}
}

// AfterCommit defers fn until the transaction carried by ctx commits. Outside
// a transaction fn runs immediately. Callbacks of a rolled back transaction are dropped.
func AfterCommit(ctx context.Context, fn func()) {
	h, ok := ctx.Value(hooksKey{}).(*Hooks)
	if !ok {
		fn()
		return
	}
	h.mu.Lock()
	h.fns = append(h.fns, fn)
	h.mu.Unlock()
}
