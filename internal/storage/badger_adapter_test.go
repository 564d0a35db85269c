package storage

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maxiofs/collectionsync/internal/record"
)

func openTestBadgerAdapter(t *testing.T) *BadgerAdapter {
	t.Helper()
	a, err := OpenBadgerAdapter(BadgerOptions{DataDir: t.TempDir(), Bucket: "main", Collection: "records"})
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close() })
	return a
}

func TestBadgerAdapterExecuteCreateGet(t *testing.T) {
	a := openTestBadgerAdapter(t)
	ctx := context.Background()

	err := a.Execute(ctx, []string{"id1"}, func(txn TxnProxy) error {
		return txn.Create(ctx, record.Record{"id": "id1", "title": "hello"})
	})
	require.NoError(t, err)

	r, err := a.Get(ctx, "id1")
	require.NoError(t, err)
	assert.Equal(t, "hello", r["title"])
}

func TestBadgerAdapterExecuteSeesOwnWrites(t *testing.T) {
	a := openTestBadgerAdapter(t)
	ctx := context.Background()

	err := a.Execute(ctx, []string{"id1"}, func(txn TxnProxy) error {
		if err := txn.Create(ctx, record.Record{"id": "id1", "title": "first"}); err != nil {
			return err
		}
		r, err := txn.Get(ctx, "id1")
		require.NoError(t, err)
		assert.Equal(t, "first", r["title"])
		return nil
	})
	require.NoError(t, err)
}

func TestBadgerAdapterExecuteRollsBackOnError(t *testing.T) {
	a := openTestBadgerAdapter(t)
	ctx := context.Background()

	err := a.Execute(ctx, []string{"id1"}, func(txn TxnProxy) error {
		if createErr := txn.Create(ctx, record.Record{"id": "id1"}); createErr != nil {
			return createErr
		}
		return assert.AnError
	})
	assert.Error(t, err)

	_, getErr := a.Get(ctx, "id1")
	assert.True(t, IsNotFound(getErr))
}

func TestBadgerAdapterPreloadRestriction(t *testing.T) {
	a := openTestBadgerAdapter(t)
	ctx := context.Background()

	err := a.Execute(ctx, []string{"other"}, func(txn TxnProxy) error {
		return txn.Create(ctx, record.Record{"id": "id1"})
	})
	assert.Error(t, err)
}

func TestBadgerAdapterListFilterAndOrder(t *testing.T) {
	a := openTestBadgerAdapter(t)
	ctx := context.Background()
	require.NoError(t, a.ImportBulk(ctx, []record.Record{
		{"id": "a", "score": 3.0},
		{"id": "b", "score": 1.0},
		{"id": "c", "score": 2.0},
	}))

	results, err := a.List(ctx, []Filter{{Field: "score", Operator: OpGreaterThan, Value: 1.0}}, &Order{Field: "score"})
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "c", results[0].ID())
	assert.Equal(t, "a", results[1].ID())
}

func TestBadgerAdapterClearWipesEverything(t *testing.T) {
	a := openTestBadgerAdapter(t)
	ctx := context.Background()
	require.NoError(t, a.ImportBulk(ctx, []record.Record{{"id": "a"}}))
	require.NoError(t, a.SaveLastModified(ctx, 100))
	require.NoError(t, a.SaveMetadata(ctx, map[string]any{"k": "v"}))

	require.NoError(t, a.Clear(ctx))

	list, err := a.List(ctx, nil, nil)
	require.NoError(t, err)
	assert.Empty(t, list)

	lm, err := a.GetLastModified(ctx)
	require.NoError(t, err)
	assert.Zero(t, lm)

	meta, err := a.GetMetadata(ctx)
	require.NoError(t, err)
	assert.Nil(t, meta)
}
