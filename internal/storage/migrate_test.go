package storage

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maxiofs/collectionsync/internal/record"
)

func TestMigrateBadgerToPebblePreservesData(t *testing.T) {
	ctx := context.Background()
	dataDir := t.TempDir()

	badgerAdapter, err := OpenBadgerAdapter(BadgerOptions{DataDir: dataDir, Bucket: "main", Collection: "records"})
	require.NoError(t, err)
	require.NoError(t, badgerAdapter.ImportBulk(ctx, []record.Record{
		{"id": "a", "title": "alpha"},
		{"id": "b", "title": "beta"},
	}))
	require.NoError(t, badgerAdapter.SaveLastModified(ctx, 42))
	require.NoError(t, badgerAdapter.SaveMetadata(ctx, map[string]any{"schema": "v1"}))
	require.NoError(t, badgerAdapter.Close())

	logger := logrus.New()
	logger.SetOutput(os.Stderr)
	require.NoError(t, MigrateBadgerToPebble(dataDir, "main", "records", logger))

	pebbleAdapter, err := OpenPebbleAdapter(PebbleAdapterOptions{DataDir: dataDir, Bucket: "main", Collection: "records"})
	require.NoError(t, err)
	t.Cleanup(func() { _ = pebbleAdapter.Close() })

	list, err := pebbleAdapter.List(ctx, nil, &Order{Field: "id"})
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "alpha", list[0]["title"])
	assert.Equal(t, "beta", list[1]["title"])

	lm, err := pebbleAdapter.GetLastModified(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(42), lm)

	meta, err := pebbleAdapter.GetMetadata(ctx)
	require.NoError(t, err)
	assert.Equal(t, "v1", meta["schema"])

	entries, err := os.ReadDir(dataDir)
	require.NoError(t, err)
	var sawBackup bool
	for _, e := range entries {
		if filepath.Base(e.Name()) != "storage" && e.IsDir() {
			sawBackup = true
		}
	}
	assert.True(t, sawBackup, "expected a storage_badger_backup_* directory to remain after migration")
}

func TestMigrateBadgerToPebbleOnEmptyStoreMigratesNothing(t *testing.T) {
	ctx := context.Background()
	dataDir := t.TempDir()
	logger := logrus.New()
	logger.SetOutput(os.Stderr)

	// BadgerDB creates its directory on first Open, so migrating a data
	// directory that has never held any records is a no-op, not an error.
	require.NoError(t, MigrateBadgerToPebble(dataDir, "main", "records", logger))

	pebbleAdapter, err := OpenPebbleAdapter(PebbleAdapterOptions{DataDir: dataDir, Bucket: "main", Collection: "records"})
	require.NoError(t, err)
	t.Cleanup(func() { _ = pebbleAdapter.Close() })

	list, err := pebbleAdapter.List(ctx, nil, nil)
	require.NoError(t, err)
	assert.Empty(t, list)
}
