package collection

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/maxiofs/collectionsync/internal/record"
	"github.com/maxiofs/collectionsync/internal/remote"
	"github.com/maxiofs/collectionsync/internal/storage"
	"github.com/maxiofs/collectionsync/internal/transform"
)

// fakeFacade answers Batch with a scripted sequence of responses, one
// slice per call, to drive the ClientWins retry path deterministically.
type fakeFacade struct {
	remote.Facade
	responses [][]remote.BatchOperationResult
	calls     int
}

func (f *fakeFacade) Batch(ctx context.Context, ops []remote.BatchOperation) ([]remote.BatchOperationResult, error) {
	resp := f.responses[f.calls]
	f.calls++
	return resp, nil
}

func TestPublishBatchRetriesClientWinsConflictOnce(t *testing.T) {
	pipeline := transform.NewPipeline()
	facade := &fakeFacade{
		responses: [][]remote.BatchOperationResult{
			{{Status: 412, Body: map[string]any{"id": "a", "last_modified": int64(9)}}},
			{{Status: 200, Body: map[string]any{"id": "a", "last_modified": int64(10)}}},
		},
	}

	local := record.Record{"id": "a", "title": "mine"}
	local.SetStatus(record.StatusUpdated)
	local.SetLastModified(5)

	outcomes, err := publishBatch(context.Background(), facade, pipeline, "main", "articles", StrategyClientWins, []record.Record{local}, 0)
	require.NoError(t, err)
	require.Len(t, outcomes, 1)
	require.Equal(t, outcomePublished, outcomes[0].kind)
	require.Equal(t, 2, facade.calls)
}

func TestPublishBatchReportsOutgoingConflictUnderManualStrategy(t *testing.T) {
	pipeline := transform.NewPipeline()
	facade := &fakeFacade{
		responses: [][]remote.BatchOperationResult{
			{{Status: 412, Body: map[string]any{"id": "a", "last_modified": int64(9)}}},
		},
	}

	local := record.Record{"id": "a", "title": "mine"}
	local.SetStatus(record.StatusUpdated)
	local.SetLastModified(5)

	outcomes, err := publishBatch(context.Background(), facade, pipeline, "main", "articles", StrategyManual, []record.Record{local}, 0)
	require.NoError(t, err)
	require.Len(t, outcomes, 1)
	require.Equal(t, outcomeConflict, outcomes[0].kind)
	require.Equal(t, 1, facade.calls)
}

func TestPublishChangesSkipsUnacknowledgedLocalTombstone(t *testing.T) {
	adapter := storage.NewMemoryAdapter()
	pipeline := transform.NewPipeline()

	tombstone := record.Record{"id": "never-synced"}
	tombstone.SetStatus(record.StatusDeleted)

	result, err := publishChanges(context.Background(), nil, adapter, pipeline, "main", "articles", StrategyManual, []record.Record{tombstone})
	require.NoError(t, err)
	require.Len(t, result.Skipped, 1)
	require.Empty(t, result.Published)
}

func TestBuildOperationUsesIfNoneMatchForNeverSyncedRecord(t *testing.T) {
	pipeline := transform.NewPipeline()
	r := record.Record{"id": "a", "title": "x"}
	r.SetStatus(record.StatusCreated)

	op, err := buildOperation(context.Background(), pipeline, "main", "articles", r)
	require.NoError(t, err)
	require.Equal(t, "*", op.Headers["If-None-Match"])
	require.Equal(t, "PUT", op.Method)
}

func TestBuildOperationUsesIfMatchForPreviouslySyncedRecord(t *testing.T) {
	pipeline := transform.NewPipeline()
	r := record.Record{"id": "a", "title": "x"}
	r.SetStatus(record.StatusUpdated)
	r.SetLastModified(7)

	op, err := buildOperation(context.Background(), pipeline, "main", "articles", r)
	require.NoError(t, err)
	require.Contains(t, op.Headers["If-Match"], "7")
}
