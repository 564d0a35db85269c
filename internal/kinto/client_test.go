package kinto_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/maxiofs/collectionsync/internal/collection"
	"github.com/maxiofs/collectionsync/internal/kinto"
	"github.com/maxiofs/collectionsync/internal/record"
	"github.com/maxiofs/collectionsync/internal/remote/remotetest"
)

func TestClientLocalCRUDWithMemoryBackend(t *testing.T) {
	c := kinto.New(kinto.ClientOptions{Backend: kinto.BackendMemory})
	coll, err := c.Collection("main", "articles")
	require.NoError(t, err)

	created, err := coll.Create(context.Background(), record.Record{"title": "hello"})
	require.NoError(t, err)
	require.Equal(t, record.StatusCreated, created.Status())

	got, err := coll.Get(context.Background(), created.ID())
	require.NoError(t, err)
	require.Equal(t, "hello", got["title"])
}

func TestClientSyncAgainstFakeServer(t *testing.T) {
	srv := remotetest.New()
	defer srv.Close()

	c := kinto.New(kinto.ClientOptions{Backend: kinto.BackendMemory, RemoteURL: srv.URL()})
	coll, err := c.Collection("main", "articles")
	require.NoError(t, err)

	_, err = coll.Create(context.Background(), record.Record{"id": "77777777-7777-4777-8777-777777777777", "title": "first"})
	require.NoError(t, err)

	result, err := coll.Sync(context.Background(), collection.SyncOptions{Strategy: collection.StrategyClientWins})
	require.NoError(t, err)
	require.True(t, result.OK())
	require.Len(t, result.Published, 1)

	got, err := coll.Get(context.Background(), "77777777-7777-4777-8777-777777777777")
	require.NoError(t, err)
	require.Equal(t, record.StatusSynced, got.Status())
}

func TestClientPullsRemoteSeedData(t *testing.T) {
	srv := remotetest.New()
	defer srv.Close()
	srv.Seed("main", "articles", map[string]any{"id": "seeded", "title": "from server"})

	c := kinto.New(kinto.ClientOptions{Backend: kinto.BackendMemory, RemoteURL: srv.URL()})
	coll, err := c.Collection("main", "articles")
	require.NoError(t, err)

	result, err := coll.Sync(context.Background(), collection.SyncOptions{Strategy: collection.StrategyPullOnly})
	require.NoError(t, err)
	require.True(t, result.OK())

	got, err := coll.Get(context.Background(), "seeded")
	require.NoError(t, err)
	require.Equal(t, "from server", got["title"])
}
