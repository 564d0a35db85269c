package remote_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/maxiofs/collectionsync/internal/remote"
)

func TestHTTPFacadeGetServerInfoCachesResult(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"settings":{"batch_max_requests":10}}`))
	}))
	defer srv.Close()

	f := remote.NewHTTPFacade(remote.HTTPFacadeOptions{BaseURL: srv.URL})

	info, err := f.GetServerInfo(context.Background())
	require.NoError(t, err)
	require.Equal(t, 10, info.BatchMaxRequests)

	_, err = f.GetServerInfo(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, calls)
}

func TestHTTPFacadeListRecordsParsesETagAsLastModified(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("ETag", `"42"`)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"data":[{"id":"a","last_modified":42}]}`))
	}))
	defer srv.Close()

	f := remote.NewHTTPFacade(remote.HTTPFacadeOptions{BaseURL: srv.URL})
	result, err := f.ListRecords(context.Background(), "main", "articles", remote.ListRecordsOptions{})
	require.NoError(t, err)
	require.Equal(t, int64(42), result.LastModified)
	require.Len(t, result.Records, 1)
}

func TestHTTPFacadeReturnsFlushedSignalOn410(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusGone)
	}))
	defer srv.Close()

	f := remote.NewHTTPFacade(remote.HTTPFacadeOptions{BaseURL: srv.URL})
	_, err := f.ListRecords(context.Background(), "main", "articles", remote.ListRecordsOptions{})
	require.Error(t, err)
	var flushed *remote.FlushedSignal
	require.ErrorAs(t, err, &flushed)
}

func TestHTTPFacadeEmitsBackoffEventAndSignalsFutureCalls(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Backoff", "30")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"data":[]}`))
	}))
	defer srv.Close()

	f := remote.NewHTTPFacade(remote.HTTPFacadeOptions{BaseURL: srv.URL})

	var gotBackoff bool
	f.Events().On("backoff", func(e remote.Event) { gotBackoff = true })

	_, err := f.ListRecords(context.Background(), "main", "articles", remote.ListRecordsOptions{})
	require.NoError(t, err)
	require.True(t, gotBackoff)

	_, err = f.ListRecords(context.Background(), "main", "articles", remote.ListRecordsOptions{})
	require.Error(t, err)
	var backoff *remote.BackoffSignal
	require.ErrorAs(t, err, &backoff)
}

func TestHTTPFacadeBatchChunksByServerMaxRequests(t *testing.T) {
	var batchCalls int
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"settings":{"batch_max_requests":2}}`))
	})
	mux.HandleFunc("/batch", func(w http.ResponseWriter, r *http.Request) {
		batchCalls++
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"responses":[{"status":201,"body":{}},{"status":201,"body":{}}]}`))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	f := remote.NewHTTPFacade(remote.HTTPFacadeOptions{BaseURL: srv.URL})
	ops := make([]remote.BatchOperation, 4)
	for i := range ops {
		ops[i] = remote.BatchOperation{Method: "PUT", Path: "/x"}
	}
	results, err := f.Batch(context.Background(), ops)
	require.NoError(t, err)
	require.Len(t, results, 4)
	require.Equal(t, 2, batchCalls)
}
