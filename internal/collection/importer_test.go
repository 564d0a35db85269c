package collection

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/maxiofs/collectionsync/internal/record"
	"github.com/maxiofs/collectionsync/internal/storage"
)

func TestImportChangesCreatesAbsentRecord(t *testing.T) {
	adapter := storage.NewMemoryAdapter()
	incoming := record.Record{"id": "a", "title": "hello"}

	result, err := importChanges(context.Background(), adapter, StrategyManual, []record.Record{incoming}, 5)
	require.NoError(t, err)
	require.Len(t, result.Created, 1)
	require.Equal(t, int64(5), result.LastModified)

	got, err := adapter.Get(context.Background(), "a")
	require.NoError(t, err)
	require.Equal(t, record.StatusSynced, got.Status())
}

func TestImportChangesSkipsTombstoneForAbsentRecord(t *testing.T) {
	adapter := storage.NewMemoryAdapter()
	tombstone := record.NewTombstone("gone", 1)
	tombstone["deleted"] = true

	result, err := importChanges(context.Background(), adapter, StrategyManual, []record.Record{tombstone}, 1)
	require.NoError(t, err)
	require.Len(t, result.Skipped, 1)
	require.Empty(t, result.Created)
}

func TestImportChangesUpdatesSyncedRecordWithoutConflict(t *testing.T) {
	adapter := storage.NewMemoryAdapter()
	existing := record.Record{"id": "a", "title": "old"}
	existing.SetStatus(record.StatusSynced)
	require.NoError(t, adapter.ImportBulk(context.Background(), []record.Record{existing}))

	incoming := record.Record{"id": "a", "title": "new"}
	result, err := importChanges(context.Background(), adapter, StrategyManual, []record.Record{incoming}, 2)
	require.NoError(t, err)
	require.Len(t, result.Updated, 1)
	require.Empty(t, result.Conflicts)
}

func TestImportChangesSkipsConvergentDoubleTombstone(t *testing.T) {
	adapter := storage.NewMemoryAdapter()
	localTombstone := record.Record{"id": "a"}
	localTombstone.SetStatus(record.StatusDeleted)
	require.NoError(t, adapter.ImportBulk(context.Background(), []record.Record{localTombstone}))

	remoteTombstone := record.Record{"id": "a", "deleted": true}
	result, err := importChanges(context.Background(), adapter, StrategyManual, []record.Record{remoteTombstone}, 3)
	require.NoError(t, err)
	require.Empty(t, result.Conflicts)
	require.Empty(t, result.Resolved)
	require.Len(t, result.Skipped, 1)
}

func TestImportChangesVoidsUnchangedSyncedRecord(t *testing.T) {
	adapter := storage.NewMemoryAdapter()
	existing := record.Record{"id": "a", "title": "same"}
	existing.SetStatus(record.StatusSynced)
	existing.SetLastModified(1)
	require.NoError(t, adapter.ImportBulk(context.Background(), []record.Record{existing}))

	incoming := record.Record{"id": "a", "title": "same", "last_modified": int64(2)}
	result, err := importChanges(context.Background(), adapter, StrategyManual, []record.Record{incoming}, 2)
	require.NoError(t, err)
	require.Empty(t, result.Updated)
	require.Empty(t, result.Conflicts)
	require.Equal(t, int64(2), result.LastModified)

	got, err := adapter.Get(context.Background(), "a")
	require.NoError(t, err)
	lm, ok := got.LastModified()
	require.True(t, ok)
	require.Equal(t, int64(1), lm, "a voided pull must not touch the stored record at all")
}

func TestImportChangesReconcilesIdenticalPendingChangeSilently(t *testing.T) {
	adapter := storage.NewMemoryAdapter()
	localPending := record.Record{"id": "a", "title": "same edit"}
	localPending.SetStatus(record.StatusUpdated)
	require.NoError(t, adapter.ImportBulk(context.Background(), []record.Record{localPending}))

	remoteChange := record.Record{"id": "a", "title": "same edit", "last_modified": int64(7)}
	result, err := importChanges(context.Background(), adapter, StrategyManual, []record.Record{remoteChange}, 7)
	require.NoError(t, err)
	require.Empty(t, result.Conflicts)
	require.Len(t, result.Updated, 1)
	require.Equal(t, int64(7), result.LastModified)

	got, err := adapter.Get(context.Background(), "a")
	require.NoError(t, err)
	require.Equal(t, record.StatusSynced, got.Status())
}

func TestImportChangesReportsManualConflictForDivergentUpdate(t *testing.T) {
	adapter := storage.NewMemoryAdapter()
	localPending := record.Record{"id": "a", "title": "local edit"}
	localPending.SetStatus(record.StatusUpdated)
	require.NoError(t, adapter.ImportBulk(context.Background(), []record.Record{localPending}))

	remoteChange := record.Record{"id": "a", "title": "remote edit"}
	result, err := importChanges(context.Background(), adapter, StrategyManual, []record.Record{remoteChange}, 4)
	require.NoError(t, err)
	require.Len(t, result.Conflicts, 1)
	require.Equal(t, ConflictIncoming, result.Conflicts[0].Type)
	require.Zero(t, result.LastModified, "a batch left with an unresolved conflict must not advance the watermark")
}

func TestImportChangesServerWinsResolvesConflictAutomatically(t *testing.T) {
	adapter := storage.NewMemoryAdapter()
	localPending := record.Record{"id": "a", "title": "local edit"}
	localPending.SetStatus(record.StatusUpdated)
	require.NoError(t, adapter.ImportBulk(context.Background(), []record.Record{localPending}))

	remoteChange := record.Record{"id": "a", "title": "remote edit", "last_modified": int64(9)}
	result, err := importChanges(context.Background(), adapter, StrategyServerWins, []record.Record{remoteChange}, 9)
	require.NoError(t, err)
	require.Empty(t, result.Conflicts)
	require.Len(t, result.Resolved, 1)

	got, err := adapter.Get(context.Background(), "a")
	require.NoError(t, err)
	require.Equal(t, "remote edit", got["title"])
	lm, ok := got.LastModified()
	require.True(t, ok)
	require.Equal(t, int64(9), lm)
}
