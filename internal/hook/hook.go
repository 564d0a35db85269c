// Package hook implements the ordered dispatcher that runs registered
// hooks over each incoming-changes batch during a pull, before those
// changes are reconciled by the Change Importer.
package hook

import (
	"context"
	"fmt"

	"github.com/maxiofs/collectionsync/internal/record"
)

// IncomingChangesBatch is the set of remote changes about to be imported
// for one sync pass.
type IncomingChangesBatch struct {
	Changes []record.Record
}

// IncomingChangesHook inspects or rewrites a batch before import. A hook
// that wants to reject the whole pull returns a non-nil error, which
// aborts the sync with that error.
type IncomingChangesHook func(ctx context.Context, batch IncomingChangesBatch) (IncomingChangesBatch, error)

// Dispatcher runs an ordered chain of hooks for the "incoming-changes"
// phase, each hook's output feeding the next — the only phase this
// module currently defines.
type Dispatcher struct {
	hooks []IncomingChangesHook
}

// NewDispatcher returns a Dispatcher with no hooks registered.
func NewDispatcher() *Dispatcher {
	return &Dispatcher{}
}

// Register appends a hook to the incoming-changes chain.
func (d *Dispatcher) Register(h IncomingChangesHook) {
	d.hooks = append(d.hooks, h)
}

// DispatchIncomingChanges runs every registered hook in registration
// order over batch, returning the final transformed batch.
func (d *Dispatcher) DispatchIncomingChanges(ctx context.Context, batch IncomingChangesBatch) (IncomingChangesBatch, error) {
	cur := batch
	for i, h := range d.hooks {
		next, err := h(ctx, cur)
		if err != nil {
			return IncomingChangesBatch{}, fmt.Errorf("incoming-changes hook %d: %w", i, err)
		}
		cur = next
	}
	return cur, nil
}
