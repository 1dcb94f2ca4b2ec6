package tablestore

import (
	"context"
	"sync"
)

type transactionScopeKey struct{}

// transactionScope collects the Changes notified while a transaction begun through LowLevel is open.
// On a successful end they move to the enclosing scope, or are published when there is none.
// On rollback they are dropped.
type transactionScope struct {
	parent     *transactionScope
	mu         sync.Mutex
	pending    Changes
	successful bool
}

func transactionScopeFrom(ctx context.Context) *transactionScope {
	scope, _ := ctx.Value(transactionScopeKey{}).(*transactionScope)

	return scope
}

func withTransactionScope(ctx context.Context) context.Context {
	return context.WithValue(ctx, transactionScopeKey{}, &transactionScope{parent: transactionScopeFrom(ctx)})
}

func (t *transactionScope) collect(changes Changes) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.pending = t.pending.Merge(changes)
}

func (t *transactionScope) markSuccessful() {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.successful = true
}

// release empties the scope and returns what must travel on, which is nothing after a rollback.
func (t *transactionScope) release(committed bool) Changes {
	t.mu.Lock()
	defer t.mu.Unlock()

	pending := t.pending
	t.pending = Changes{}

	if !committed || !t.successful {
		return Changes{}
	}

	return pending
}
