package synclog_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/maxiofs/collectionsync/internal/synclog"
)

func TestAppendAndRecentOrdersNewestFirst(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sync.db")
	log, err := synclog.Open(path)
	require.NoError(t, err)
	defer log.Close()

	ctx := context.Background()
	first := synclog.Entry{Bucket: "main", Collection: "articles", StartedAt: time.Unix(1, 0), OK: true, Created: 2}
	second := synclog.Entry{Bucket: "main", Collection: "articles", StartedAt: time.Unix(2, 0), OK: false, Errors: 1}
	require.NoError(t, log.Append(ctx, first))
	require.NoError(t, log.Append(ctx, second))

	entries, err := log.Recent(ctx, "main", "articles", 10)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	require.False(t, entries[0].OK)
	require.Equal(t, 1, entries[0].Errors)
	require.True(t, entries[1].OK)
}

func TestRecentRespectsLimit(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sync.db")
	log, err := synclog.Open(path)
	require.NoError(t, err)
	defer log.Close()

	ctx := context.Background()
	for i := 0; i < 5; i++ {
		require.NoError(t, log.Append(ctx, synclog.Entry{
			Bucket: "main", Collection: "articles", StartedAt: time.Unix(int64(i), 0), OK: true,
		}))
	}

	entries, err := log.Recent(ctx, "main", "articles", 2)
	require.NoError(t, err)
	require.Len(t, entries, 2)
}
