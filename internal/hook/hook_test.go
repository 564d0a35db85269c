package hook

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maxiofs/collectionsync/internal/record"
)

func TestDispatcherChainsHooksInOrder(t *testing.T) {
	d := NewDispatcher()
	var order []string

	d.Register(func(ctx context.Context, b IncomingChangesBatch) (IncomingChangesBatch, error) {
		order = append(order, "first")
		b.Changes = append(b.Changes, record.Record{"id": "1"})
		return b, nil
	})
	d.Register(func(ctx context.Context, b IncomingChangesBatch) (IncomingChangesBatch, error) {
		order = append(order, "second")
		b.Changes = append(b.Changes, record.Record{"id": "2"})
		return b, nil
	})

	out, err := d.DispatchIncomingChanges(context.Background(), IncomingChangesBatch{})
	require.NoError(t, err)
	assert.Equal(t, []string{"first", "second"}, order)
	assert.Len(t, out.Changes, 2)
}

func TestDispatcherAbortsOnHookError(t *testing.T) {
	d := NewDispatcher()
	d.Register(func(ctx context.Context, b IncomingChangesBatch) (IncomingChangesBatch, error) {
		return b, assert.AnError
	})
	called := false
	d.Register(func(ctx context.Context, b IncomingChangesBatch) (IncomingChangesBatch, error) {
		called = true
		return b, nil
	})

	_, err := d.DispatchIncomingChanges(context.Background(), IncomingChangesBatch{})
	assert.Error(t, err)
	assert.False(t, called)
}
